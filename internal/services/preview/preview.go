// Package preview lays document content out as the fixed page or slide
// sequence the client shows before export. The output is plain JSON; the
// client does the drawing.
package preview

import (
	"strings"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/assembler"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/converter"
)

const (
	LayoutPages  = "pages"
	LayoutSlides = "slides"

	PageCover       = "cover"
	PageContent     = "content"
	PageInformation = "information"
	PageClosing     = "closing"
)

// blocksPerPage approximates one printed A4 page of body text
const blocksPerPage = 28

type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

type Block struct {
	Type  string `json:"type" example:"heading"`
	Level int    `json:"level,omitempty"`
	Spans []Span `json:"spans,omitempty"`
}

type Page struct {
	Number int     `json:"number"`
	Kind   string  `json:"kind" example:"content"`
	Title  string  `json:"title,omitempty"`
	Blocks []Block `json:"blocks"`
}

// Theme is the colour and type scale the client should apply
type Theme struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	TextColor      string `json:"text_color"`
	FontFamily     string `json:"font_family"`
}

type Preview struct {
	Layout       string `json:"layout" example:"slides"`
	Title        string `json:"title"`
	BusinessName string `json:"business_name"`
	DocumentType string `json:"document_type"`
	GeneratedAt  string `json:"generated_at"`
	Theme        Theme  `json:"theme"`
	Pages        []Page `json:"pages"`
}

type Renderer struct {
	theme assembler.Theme
}

func NewRenderer(theme assembler.Theme) *Renderer {
	return &Renderer{theme: theme}
}

// RenderProject lays out a stored project
func (r *Renderer) RenderProject(p *models.Project) *Preview {
	return r.Render(p.Type, p.DisplayTitle(), p.BusinessName, p.Content, p.UpdatedAt)
}

// Render picks the slide layout for slide-deck kinds and the page layout
// otherwise
func (r *Renderer) Render(kind models.DocumentKind, title, businessName, content string, at time.Time) *Preview {
	pv := &Preview{
		Title:        title,
		BusinessName: businessName,
		DocumentType: kind.Label(),
		GeneratedAt:  at.Format("January 2, 2006"),
		Theme: Theme{
			PrimaryColor:   "#" + r.theme.PrimaryColor,
			SecondaryColor: "#" + r.theme.SecondaryColor,
			AccentColor:    "#" + r.theme.AccentColor,
			TextColor:      "#" + r.theme.TextColor,
			FontFamily:     r.theme.FontFamily,
		},
	}
	if kind.IsSlideDeck() {
		pv.Layout = LayoutSlides
		pv.Pages = slidePages(pv, content)
	} else {
		pv.Layout = LayoutPages
		pv.Pages = documentPages(pv, content)
	}
	for i := range pv.Pages {
		pv.Pages[i].Number = i + 1
	}
	return pv
}

func coverPage(pv *Preview) Page {
	return Page{
		Kind:  PageCover,
		Title: pv.Title,
		Blocks: []Block{
			textBlock("heading", 1, pv.BusinessName),
			textBlock("paragraph", 0, pv.DocumentType),
			textBlock("paragraph", 0, "Generated on "+pv.GeneratedAt),
		},
	}
}

func documentPages(pv *Preview, content string) []Page {
	pages := []Page{coverPage(pv)}

	current := Page{Kind: PageContent, Blocks: []Block{}}
	for _, b := range converter.ParseBlocks(content) {
		// start a new page at top-level headings once the page has content
		if len(current.Blocks) >= blocksPerPage || (b.Kind == converter.BlockHeading && b.Level <= 2 && len(current.Blocks) > blocksPerPage/2) {
			pages = append(pages, current)
			current = Page{Kind: PageContent, Blocks: []Block{}}
		}
		if b.Kind == converter.BlockSpacer && len(current.Blocks) == 0 {
			continue
		}
		if current.Title == "" && b.Kind == converter.BlockHeading {
			current.Title = converter.PlainText(b.Text)
		}
		current.Blocks = append(current.Blocks, fromBlock(b))
	}
	pages = append(pages, current)

	pages = append(pages, Page{
		Kind:  PageInformation,
		Title: "Document Information",
		Blocks: []Block{
			labelled("Business Name", pv.BusinessName),
			labelled("Document Type", pv.DocumentType),
			labelled("Generated Date", pv.GeneratedAt),
		},
	})
	return pages
}

func slidePages(pv *Preview, content string) []Page {
	pages := []Page{coverPage(pv)}
	for _, s := range converter.SplitSlides(content) {
		page := Page{Kind: PageContent, Title: converter.PlainText(s.Title), Blocks: []Block{}}
		for _, line := range s.Body {
			switch line.Kind {
			case converter.SlideBullet:
				page.Blocks = append(page.Blocks, textBlock("bullet", 0, line.Text))
			case converter.SlideSubheading:
				page.Blocks = append(page.Blocks, textBlock("heading", 3, line.Text))
			default:
				page.Blocks = append(page.Blocks, textBlock("paragraph", 0, line.Text))
			}
		}
		pages = append(pages, page)
	}
	return append(pages, Page{
		Kind:  PageClosing,
		Title: "Thank You",
		Blocks: []Block{
			textBlock("paragraph", 0, pv.BusinessName),
		},
	})
}

func fromBlock(b converter.Block) Block {
	return textBlock(b.Kind.String(), b.Level, b.Text)
}

func textBlock(typ string, level int, text string) Block {
	blk := Block{Type: typ, Level: level}
	if typ == "spacer" || strings.TrimSpace(text) == "" {
		return blk
	}
	for _, s := range converter.SplitEmphasis(text) {
		blk.Spans = append(blk.Spans, Span{Text: s.Text, Bold: s.Bold})
	}
	return blk
}

func labelled(label, value string) Block {
	return Block{
		Type:  "paragraph",
		Spans: []Span{{Text: label + ": ", Bold: true}, {Text: value}},
	}
}
