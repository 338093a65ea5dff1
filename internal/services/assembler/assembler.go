// Package assembler builds downloadable files from generated document
// content. Each output format has exactly one Assembler; a Registry maps a
// format to it.
package assembler

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Format string

const (
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatPDF  Format = "pdf"
	FormatTXT  Format = "txt"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts a format name case-insensitively, with or without a
// leading dot
func ParseFormat(s string) (Format, bool) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	switch f {
	case FormatDOCX, FormatPPTX, FormatPDF, FormatTXT, FormatXLSX:
		return f, true
	}
	return "", false
}

// Document is the input to every assembler
type Document struct {
	Title        string
	BusinessName string
	// DocumentType is the human readable label, e.g. "Business Proposal"
	DocumentType string
	Content      string
	GeneratedAt  time.Time
}

func (d Document) displayTitle() string {
	if t := strings.TrimSpace(d.Title); t != "" {
		return t
	}
	if d.DocumentType != "" {
		return d.DocumentType
	}
	return "Business Document"
}

func (d Document) timestamp() time.Time {
	if d.GeneratedAt.IsZero() {
		return time.Now()
	}
	return d.GeneratedAt
}

func (d Document) dateLabel() string { return d.timestamp().Format("January 2, 2006") }

func (d Document) timeLabel() string { return d.timestamp().Format("3:04 PM MST") }

// Assembler produces the bytes of one file format. Implementations keep no
// state between calls.
type Assembler interface {
	Format() Format
	ContentType() string
	Extension() string
	Assemble(doc Document, theme Theme) ([]byte, error)
}

// Registry is read-only after construction and safe for concurrent use
type Registry struct {
	assemblers map[Format]Assembler
}

// NewRegistry fails when two assemblers claim the same format
func NewRegistry(assemblers ...Assembler) (*Registry, error) {
	r := &Registry{assemblers: make(map[Format]Assembler, len(assemblers))}
	for _, a := range assemblers {
		if _, dup := r.assemblers[a.Format()]; dup {
			return nil, fmt.Errorf("duplicate assembler for format %q", a.Format())
		}
		r.assemblers[a.Format()] = a
	}
	return r, nil
}

// DefaultRegistry wires every built-in assembler
func DefaultRegistry() *Registry {
	r, err := NewRegistry(
		NewDOCXAssembler(),
		NewPPTXAssembler(),
		NewPDFAssembler(),
		NewTXTAssembler(),
		NewXLSXAssembler(),
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(format Format) (Assembler, bool) {
	a, ok := r.assemblers[format]
	return a, ok
}

// Formats lists registered formats in a stable order
func (r *Registry) Formats() []Format {
	formats := make([]Format, 0, len(r.assemblers))
	for f := range r.assemblers {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}
