package assembler

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/onegreenvn/bizdoc-services-backend/internal/services/converter"
)

const (
	pdfMargin     = 20.0
	pdfLineHeight = 6.0
	pdfFont       = "Helvetica"
)

// PDFAssembler renders the same cover, body and information layout as the
// DOCX assembler using the core PDF fonts.
type PDFAssembler struct{}

func NewPDFAssembler() *PDFAssembler { return &PDFAssembler{} }

func (a *PDFAssembler) Format() Format { return FormatPDF }

func (a *PDFAssembler) ContentType() string { return "application/pdf" }

func (a *PDFAssembler) Extension() string { return "pdf" }

func (a *PDFAssembler) Assemble(doc Document, theme Theme) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetTitle(doc.displayTitle(), true)
	pdf.SetAuthor(doc.BusinessName, true)
	pdf.SetSubject(doc.DocumentType, true)
	pdf.SetCreator("BizDoc", true)
	pdf.SetCreationDate(doc.timestamp())

	r := &pdfRenderer{pdf: pdf, theme: theme, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(r.footer)
	pdf.AliasNbPages("")

	r.coverPage(doc)
	pdf.AddPage()
	for _, block := range converter.ParseBlocks(doc.Content) {
		r.block(block)
	}
	pdf.AddPage()
	r.informationPage(doc)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type pdfRenderer struct {
	pdf   *gofpdf.Fpdf
	theme Theme
	// tr maps UTF-8 to the cp1252 encoding of the core fonts
	tr func(string) string
}

func (r *pdfRenderer) color(hex string) {
	cr, cg, cb := RGB(hex)
	r.pdf.SetTextColor(cr, cg, cb)
}

func (r *pdfRenderer) centered(text string, style string, size float64, hex string, height float64) {
	r.pdf.SetFont(pdfFont, style, size)
	r.color(hex)
	r.pdf.MultiCell(0, height, r.tr(text), "", "C", false)
}

func (r *pdfRenderer) coverPage(doc Document) {
	t := r.theme
	pdf := r.pdf
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	pr, pg, pb := RGB(t.PrimaryColor)
	pdf.SetFillColor(pr, pg, pb)
	pdf.Rect(0, 0, width, 12, "F")

	pdf.SetY(70)
	r.centered(doc.displayTitle(), "B", t.TitleSize, t.PrimaryColor, 14)
	pdf.Ln(6)
	r.centered(doc.BusinessName, "B", t.HeadingSize(1), t.SecondaryColor, 9)
	r.rule(t.AccentColor, 0.8)
	pdf.Ln(4)
	r.centered(doc.DocumentType, "", t.HeadingSize(2), t.AccentColor, 8)
	r.centered("Generated on "+doc.dateLabel(), "I", t.BodySize, t.MutedColor, pdfLineHeight)

	pdf.Ln(20)
	r.heading(2, "Document Overview")
	r.spans(overviewText(doc), "")
}

func (r *pdfRenderer) informationPage(doc Document) {
	t := r.theme
	r.heading(1, "Document Information")
	rows := [][2]string{
		{"Business Name", doc.BusinessName},
		{"Document Type", doc.DocumentType},
		{"Generated Date", doc.dateLabel()},
		{"Generated Time", doc.timeLabel()},
	}
	for _, row := range rows {
		r.pdf.SetFont(pdfFont, "B", t.BodySize)
		r.color(t.SecondaryColor)
		r.pdf.CellFormat(45, pdfLineHeight+2, r.tr(row[0]+":"), "", 0, "L", false, 0, "")
		r.pdf.SetFont(pdfFont, "", t.BodySize)
		r.color(t.TextColor)
		r.pdf.MultiCell(0, pdfLineHeight+2, r.tr(row[1]), "", "L", false)
	}
	r.pdf.Ln(12)
	r.centered("This document was generated with AI assistance. Review all figures before sharing.",
		"I", t.BodySize-1, t.MutedColor, pdfLineHeight)
}

func (r *pdfRenderer) block(b converter.Block) {
	switch b.Kind {
	case converter.BlockHeading:
		r.heading(b.Level, converter.PlainText(b.Text))
	case converter.BlockBullet:
		r.bullet(b.Text)
	case converter.BlockSpacer:
		r.pdf.Ln(pdfLineHeight / 2)
	default:
		r.spans(b.Text, "")
		r.pdf.Ln(2)
	}
}

func (r *pdfRenderer) heading(level int, text string) {
	t := r.theme
	hex := t.AccentColor
	switch level {
	case 1:
		hex = t.PrimaryColor
	case 2:
		hex = t.SecondaryColor
	}
	r.pdf.Ln(3)
	size := t.HeadingSize(level)
	r.pdf.SetFont(pdfFont, "B", size)
	r.color(hex)
	r.pdf.MultiCell(0, size*0.5, r.tr(text), "", "L", false)
	if level <= 2 {
		r.rule(hex, 0.6/float64(level))
	}
	r.pdf.Ln(2)
}

func (r *pdfRenderer) bullet(text string) {
	pdf := r.pdf
	indent := pdfMargin + 8
	pdf.SetX(pdfMargin + 3)
	pdf.SetFont(pdfFont, "B", r.theme.BodySize)
	r.color(r.theme.SecondaryColor)
	pdf.Write(pdfLineHeight, r.tr("•"))
	pdf.SetLeftMargin(indent)
	pdf.SetX(indent)
	r.spans(text, "")
	pdf.SetLeftMargin(pdfMargin)
	pdf.Ln(1)
}

// spans writes flowing text, switching to bold for "**" segments
func (r *pdfRenderer) spans(text string, baseStyle string) {
	pdf := r.pdf
	r.color(r.theme.TextColor)
	for _, span := range converter.SplitEmphasis(text) {
		style := baseStyle
		if span.Bold {
			style = "B"
		}
		pdf.SetFont(pdfFont, style, r.theme.BodySize)
		pdf.Write(pdfLineHeight, r.tr(span.Text))
	}
	pdf.Ln(pdfLineHeight)
}

func (r *pdfRenderer) rule(hex string, width float64) {
	pdf := r.pdf
	cr, cg, cb := RGB(hex)
	pdf.SetDrawColor(cr, cg, cb)
	pdf.SetLineWidth(width)
	pageWidth, _ := pdf.GetPageSize()
	y := pdf.GetY() + 1
	pdf.Line(pdfMargin, y, pageWidth-pdfMargin, y)
	pdf.SetY(y + 1)
}

func (r *pdfRenderer) footer() {
	pdf := r.pdf
	pdf.SetY(-15)
	pdf.SetFont(pdfFont, "I", 8)
	r.color(r.theme.MutedColor)
	pdf.CellFormat(0, 10, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
}
