package converter

import (
	"strings"
)

type SlideLineKind int

const (
	SlideProse SlideLineKind = iota
	SlideBullet
	SlideSubheading
)

type SlideLine struct {
	Kind SlideLineKind
	Text string
}

// Slide is one "## " section of presentation content
type Slide struct {
	Title string
	Body  []SlideLine
}

const slideMarker = "## "

// SplitSlides splits content on lines beginning with "## ". Text before the
// first marker becomes its own slide when it is not blank. Content with no
// marker at all is returned as exactly one slide.
func SplitSlides(content string) []Slide {
	lines := SplitLines(content)

	var sections [][]string
	var current []string
	started := false
	for _, line := range lines {
		if strings.HasPrefix(line, slideMarker) {
			if started || hasText(current) {
				sections = append(sections, current)
			}
			current = []string{strings.TrimSpace(line[len(slideMarker):])}
			started = true
			continue
		}
		current = append(current, line)
	}
	if started || hasText(current) || len(sections) == 0 {
		sections = append(sections, current)
	}

	slides := make([]Slide, 0, len(sections))
	for _, section := range sections {
		slides = append(slides, buildSlide(section))
	}
	return slides
}

func buildSlide(lines []string) Slide {
	var slide Slide
	titled := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		marked := trimIndent(line)
		if !titled {
			slide.Title = stripTitleMarker(marked)
			titled = true
			continue
		}
		slide.Body = append(slide.Body, classifySlideLine(marked))
	}
	return slide
}

func classifySlideLine(line string) SlideLine {
	if text, ok := matchBullet(line); ok {
		return SlideLine{Kind: SlideBullet, Text: text}
	}
	if _, text, ok := matchHeading(line); ok {
		return SlideLine{Kind: SlideSubheading, Text: text}
	}
	return SlideLine{Kind: SlideProse, Text: strings.TrimSpace(line)}
}

// stripTitleMarker removes a heading or bullet marker from a preamble title
func stripTitleMarker(line string) string {
	if _, text, ok := matchHeading(line); ok {
		return text
	}
	if text, ok := matchBullet(line); ok {
		return text
	}
	return strings.TrimSpace(line)
}

func hasText(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}
