package assembler

import (
	"fmt"
	"strings"

	"github.com/onegreenvn/bizdoc-services-backend/internal/services/converter"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCXAssembler writes WordprocessingML directly
type DOCXAssembler struct{}

func NewDOCXAssembler() *DOCXAssembler { return &DOCXAssembler{} }

func (a *DOCXAssembler) Format() Format { return FormatDOCX }

func (a *DOCXAssembler) ContentType() string { return docxContentType }

func (a *DOCXAssembler) Extension() string { return "docx" }

// Assemble lays out a cover page with an overview paragraph, the converted
// content blocks and a closing information page.
func (a *DOCXAssembler) Assemble(doc Document, theme Theme) ([]byte, error) {
	w := &docxWriter{theme: theme}

	w.coverPage(doc)
	w.pageBreak()
	for _, block := range converter.ParseBlocks(doc.Content) {
		w.block(block)
	}
	w.pageBreak()
	w.informationPage(doc)

	pkg := newPackage()
	pkg.add("[Content_Types].xml", docxContentTypesXML)
	pkg.add("_rels/.rels", rootRelsXML("word/document.xml"))
	pkg.add("word/_rels/document.xml.rels", docxDocumentRelsXML)
	pkg.add("word/document.xml", w.documentXML())
	pkg.add("word/styles.xml", docxStylesXML(theme))
	pkg.add("docProps/core.xml", corePropsXML(doc.displayTitle(), doc.BusinessName, doc.timestamp()))
	pkg.add("docProps/app.xml", appPropsXML("BizDoc"))
	return pkg.bytes()
}

type docxWriter struct {
	theme Theme
	body  strings.Builder
}

type runStyle struct {
	bold   bool
	italic bool
	size   float64
	color  string
}

type paraStyle struct {
	align       string
	spaceBefore int
	spaceAfter  int
	indentLeft  int
	hanging     int
	borderColor string
	borderSize  int
	keepNext    bool
}

func (w *docxWriter) coverPage(doc Document) {
	t := w.theme
	for i := 0; i < 6; i++ {
		w.emptyParagraph()
	}
	w.paragraph(paraStyle{align: "center", spaceAfter: 240},
		runStyle{bold: true, size: t.TitleSize, color: t.PrimaryColor}, doc.displayTitle())
	w.paragraph(paraStyle{align: "center", spaceAfter: 120, borderColor: t.AccentColor, borderSize: 12},
		runStyle{bold: true, size: t.HeadingSize(1), color: t.SecondaryColor}, doc.BusinessName)
	w.paragraph(paraStyle{align: "center", spaceBefore: 240, spaceAfter: 120},
		runStyle{size: t.HeadingSize(2), color: t.AccentColor}, doc.DocumentType)
	w.paragraph(paraStyle{align: "center", spaceAfter: 480},
		runStyle{italic: true, size: t.BodySize, color: t.MutedColor}, "Generated on "+doc.dateLabel())

	w.paragraph(paraStyle{spaceBefore: 480, spaceAfter: 120, keepNext: true, borderColor: t.PrimaryColor, borderSize: 8},
		runStyle{bold: true, size: t.HeadingSize(2), color: t.PrimaryColor}, "Document Overview")
	w.paragraph(paraStyle{align: "both", spaceAfter: 120},
		runStyle{size: t.BodySize, color: t.TextColor}, overviewText(doc))
}

func overviewText(doc Document) string {
	kind := strings.ToLower(doc.DocumentType)
	if kind == "" {
		kind = "document"
	}
	business := doc.BusinessName
	if business == "" {
		business = "your business"
	}
	return fmt.Sprintf("This %s was prepared for %s on %s. It presents the information supplied "+
		"during drafting, expanded into a structured, professional format ready for review, "+
		"editing and sharing with stakeholders.", kind, business, doc.dateLabel())
}

func (w *docxWriter) informationPage(doc Document) {
	t := w.theme
	w.paragraph(paraStyle{spaceAfter: 240, borderColor: t.PrimaryColor, borderSize: 12},
		runStyle{bold: true, size: t.HeadingSize(1), color: t.PrimaryColor}, "Document Information")

	rows := [][2]string{
		{"Business Name", doc.BusinessName},
		{"Document Type", doc.DocumentType},
		{"Generated Date", doc.dateLabel()},
		{"Generated Time", doc.timeLabel()},
	}
	for _, row := range rows {
		w.body.WriteString(`<w:p>`)
		w.pPr(paraStyle{spaceAfter: 80})
		w.run(runStyle{bold: true, size: t.BodySize, color: t.SecondaryColor}, row[0]+": ")
		w.run(runStyle{size: t.BodySize, color: t.TextColor}, row[1])
		w.body.WriteString(`</w:p>`)
	}
	w.emptyParagraph()
	w.paragraph(paraStyle{align: "center", spaceBefore: 480},
		runStyle{italic: true, size: t.BodySize - 1, color: t.MutedColor},
		"This document was generated with AI assistance. Review all figures before sharing.")
}

func (w *docxWriter) block(b converter.Block) {
	t := w.theme
	switch b.Kind {
	case converter.BlockHeading:
		ps := paraStyle{spaceBefore: 240, spaceAfter: 120, keepNext: true}
		rs := runStyle{bold: true, size: t.HeadingSize(b.Level)}
		switch b.Level {
		case 1:
			rs.color = t.PrimaryColor
			ps.borderColor, ps.borderSize = t.PrimaryColor, 12
		case 2:
			rs.color = t.SecondaryColor
			ps.borderColor, ps.borderSize = t.SecondaryColor, 4
		default:
			rs.color = t.AccentColor
		}
		w.spans(ps, rs, b.Text)
	case converter.BlockBullet:
		w.body.WriteString(`<w:p>`)
		w.pPr(paraStyle{spaceAfter: 60, indentLeft: 720, hanging: 360})
		w.run(runStyle{size: t.BodySize, color: t.SecondaryColor}, "•\t")
		w.spanRuns(runStyle{size: t.BodySize, color: t.TextColor}, b.Text)
		w.body.WriteString(`</w:p>`)
	case converter.BlockSpacer:
		w.emptyParagraph()
	default:
		w.spans(paraStyle{align: "both", spaceAfter: 120}, runStyle{size: t.BodySize, color: t.TextColor}, b.Text)
	}
}

func (w *docxWriter) paragraph(ps paraStyle, rs runStyle, text string) {
	w.body.WriteString(`<w:p>`)
	w.pPr(ps)
	if text != "" {
		w.run(rs, text)
	}
	w.body.WriteString(`</w:p>`)
}

// spans writes a paragraph whose "**bold**" segments become bold runs
func (w *docxWriter) spans(ps paraStyle, rs runStyle, text string) {
	w.body.WriteString(`<w:p>`)
	w.pPr(ps)
	w.spanRuns(rs, text)
	w.body.WriteString(`</w:p>`)
}

func (w *docxWriter) spanRuns(rs runStyle, text string) {
	for _, span := range converter.SplitEmphasis(text) {
		if span.Text == "" {
			continue
		}
		style := rs
		style.bold = rs.bold || span.Bold
		w.run(style, span.Text)
	}
}

func (w *docxWriter) emptyParagraph() {
	w.body.WriteString(`<w:p/>`)
}

func (w *docxWriter) pageBreak() {
	w.body.WriteString(`<w:p><w:r><w:br w:type="page"/></w:r></w:p>`)
}

func (w *docxWriter) pPr(ps paraStyle) {
	b := &w.body
	b.WriteString(`<w:pPr>`)
	if ps.keepNext {
		b.WriteString(`<w:keepNext/>`)
	}
	if ps.borderColor != "" {
		fmt.Fprintf(b, `<w:pBdr><w:bottom w:val="single" w:sz="%d" w:space="4" w:color="%s"/></w:pBdr>`, ps.borderSize, ps.borderColor)
	}
	fmt.Fprintf(b, `<w:spacing w:before="%d" w:after="%d"/>`, ps.spaceBefore, ps.spaceAfter)
	if ps.indentLeft > 0 {
		fmt.Fprintf(b, `<w:ind w:left="%d" w:hanging="%d"/>`, ps.indentLeft, ps.hanging)
	}
	if ps.align != "" {
		fmt.Fprintf(b, `<w:jc w:val="%s"/>`, ps.align)
	}
	b.WriteString(`</w:pPr>`)
}

func (w *docxWriter) run(rs runStyle, text string) {
	b := &w.body
	b.WriteString(`<w:r><w:rPr>`)
	if rs.bold {
		b.WriteString(`<w:b/>`)
	}
	if rs.italic {
		b.WriteString(`<w:i/>`)
	}
	if rs.color != "" {
		fmt.Fprintf(b, `<w:color w:val="%s"/>`, rs.color)
	}
	if rs.size > 0 {
		fmt.Fprintf(b, `<w:sz w:val="%d"/><w:szCs w:val="%d"/>`, halfPoints(rs.size), halfPoints(rs.size))
	}
	b.WriteString(`</w:rPr>`)
	if strings.Contains(text, "\t") {
		parts := strings.Split(text, "\t")
		for i, part := range parts {
			if i > 0 {
				b.WriteString(`<w:tab/>`)
			}
			if part != "" {
				b.WriteString(`<w:t xml:space="preserve">` + esc(part) + `</w:t>`)
			}
		}
	} else {
		b.WriteString(`<w:t xml:space="preserve">` + esc(text) + `</w:t>`)
	}
	b.WriteString(`</w:r>`)
}

func (w *docxWriter) documentXML() string {
	return xmlHeader +
		`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" ` +
		`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">` +
		`<w:body>` + w.body.String() +
		`<w:sectPr><w:pgSz w:w="11906" w:h="16838"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`
}

const docxContentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
	`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
	`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>` +
	`</Types>`

const docxDocumentRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
	`</Relationships>`

func docxStylesXML(theme Theme) string {
	return xmlHeader +
		`<w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">` +
		`<w:docDefaults><w:rPrDefault><w:rPr>` +
		fmt.Sprintf(`<w:rFonts w:ascii="%[1]s" w:hAnsi="%[1]s" w:eastAsia="%[1]s" w:cs="%[1]s"/>`, esc(theme.FontFamily)) +
		fmt.Sprintf(`<w:color w:val="%s"/><w:sz w:val="%d"/><w:szCs w:val="%d"/>`, theme.TextColor, halfPoints(theme.BodySize), halfPoints(theme.BodySize)) +
		`<w:lang w:val="en-US"/></w:rPr></w:rPrDefault>` +
		`<w:pPrDefault><w:pPr><w:spacing w:after="120" w:line="276" w:lineRule="auto"/></w:pPr></w:pPrDefault>` +
		`</w:docDefaults>` +
		`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/><w:qFormat/></w:style>` +
		`</w:styles>`
}
