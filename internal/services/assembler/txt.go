package assembler

import (
	"strings"
)

// TXTAssembler prefixes the raw content with a short header
type TXTAssembler struct{}

func NewTXTAssembler() *TXTAssembler { return &TXTAssembler{} }

func (a *TXTAssembler) Format() Format { return FormatTXT }

func (a *TXTAssembler) ContentType() string { return "text/plain; charset=utf-8" }

func (a *TXTAssembler) Extension() string { return "txt" }

func (a *TXTAssembler) Assemble(doc Document, _ Theme) ([]byte, error) {
	title := doc.displayTitle()
	var b strings.Builder
	b.WriteString(strings.ToUpper(title) + "\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))) + "\n")
	if doc.BusinessName != "" {
		b.WriteString("Business: " + doc.BusinessName + "\n")
	}
	if doc.DocumentType != "" {
		b.WriteString("Document Type: " + doc.DocumentType + "\n")
	}
	b.WriteString("Generated: " + doc.dateLabel() + " " + doc.timeLabel() + "\n\n")
	b.WriteString(doc.Content)
	if doc.Content != "" && !strings.HasSuffix(doc.Content, "\n") {
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}
