package converter

import "strings"

// Span is a run of text with uniform weight
type Span struct {
	Text string
	Bold bool
}

// SplitEmphasis splits text on "**" pairs. An unmatched "**" is kept as
// literal text.
func SplitEmphasis(text string) []Span {
	var spans []Span
	rest := text
	for {
		open := strings.Index(rest, "**")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open+2:], "**")
		if end < 0 {
			break
		}
		end += open + 2
		if open > 0 {
			spans = append(spans, Span{Text: rest[:open]})
		}
		if inner := rest[open+2 : end]; inner != "" {
			spans = append(spans, Span{Text: inner, Bold: true})
		}
		rest = rest[end+2:]
	}
	if rest != "" || len(spans) == 0 {
		spans = append(spans, Span{Text: rest})
	}
	return spans
}

// PlainText drops emphasis markers
func PlainText(text string) string {
	var b strings.Builder
	for _, s := range SplitEmphasis(text) {
		b.WriteString(s.Text)
	}
	return b.String()
}
