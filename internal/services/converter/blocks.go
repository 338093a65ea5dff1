// Package converter turns LLM markdown output into typed document blocks.
//
// Only five line shapes carry meaning: "# ", "## ", "### ", "- " and blank
// lines. Everything else is paragraph text. Parsing never fails.
package converter

import (
	"strings"
)

type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockBullet
	BlockSpacer
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockBullet:
		return "bullet"
	case BlockSpacer:
		return "spacer"
	default:
		return "paragraph"
	}
}

// Block is one rendered unit of a document. Level is 1-3 for headings and
// zero otherwise.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
}

func Heading(level int, text string) Block {
	return Block{Kind: BlockHeading, Level: level, Text: text}
}

func Bullet(text string) Block { return Block{Kind: BlockBullet, Text: text} }

func Paragraph(text string) Block { return Block{Kind: BlockParagraph, Text: text} }

func Spacer() Block { return Block{Kind: BlockSpacer} }

var headingMarkers = []struct {
	prefix string
	level  int
}{
	{"### ", 3},
	{"## ", 2},
	{"# ", 1},
}

const bulletMarker = "- "

// ParseBlocks converts content into blocks in a single pass.
//
// Markers are matched against the line with only its indentation removed, so
// an indented "- item" is still a bullet and a bare "- " or "# " line yields
// an empty bullet or heading. A marker line always ends the current
// paragraph; there is no lazy continuation of bullets or headings.
func ParseBlocks(content string) []Block {
	lines := SplitLines(content)
	blocks := make([]Block, 0, len(lines))

	var para []string
	flush := func() {
		if len(para) > 0 {
			blocks = append(blocks, Paragraph(strings.Join(para, " ")))
			para = para[:0]
		}
	}

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush()
			blocks = append(blocks, Spacer())
			continue
		}

		marked := trimIndent(line)
		if level, text, ok := matchHeading(marked); ok {
			flush()
			blocks = append(blocks, Heading(level, text))
			continue
		}
		if text, ok := matchBullet(marked); ok {
			flush()
			blocks = append(blocks, Bullet(text))
			continue
		}
		para = append(para, strings.TrimSpace(line))
	}
	flush()

	return blocks
}

// SplitLines normalises line endings and drops the empty line produced by a
// single trailing newline. Empty content yields no lines.
func SplitLines(content string) []string {
	if content == "" {
		return nil
	}
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// trimIndent drops leading spaces and tabs but keeps the space after a marker
func trimIndent(line string) string {
	return strings.TrimLeft(line, " \t")
}

func matchHeading(line string) (int, string, bool) {
	for _, m := range headingMarkers {
		if strings.HasPrefix(line, m.prefix) {
			return m.level, strings.TrimSpace(line[len(m.prefix):]), true
		}
	}
	return 0, "", false
}

func matchBullet(line string) (string, bool) {
	if strings.HasPrefix(line, bulletMarker) {
		return strings.TrimSpace(line[len(bulletMarker):]), true
	}
	return "", false
}
