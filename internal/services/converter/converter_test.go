package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBlocksMixedContent(t *testing.T) {
	blocks := ParseBlocks("# A\n\nB\n- C\n- D")

	assert.Equal(t, []Block{
		Heading(1, "A"),
		Spacer(),
		Paragraph("B"),
		Bullet("C"),
		Bullet("D"),
	}, blocks)
}

func TestParseBlocksWithoutMarkersYieldsOneParagraph(t *testing.T) {
	inputs := []string{
		"just one line",
		"first line\nsecond line\nthird line",
		"  padded  \n#nospace\n-nospace\n#### four hashes",
	}
	expected := []string{
		"just one line",
		"first line second line third line",
		"padded #nospace -nospace #### four hashes",
	}
	for i, in := range inputs {
		blocks := ParseBlocks(in)
		require.Len(t, blocks, 1, in)
		assert.Equal(t, Paragraph(expected[i]), blocks[0])
	}
}

func TestParseBlocksHeadingLevels(t *testing.T) {
	blocks := ParseBlocks("# One\n## Two\n### Three")
	assert.Equal(t, []Block{Heading(1, "One"), Heading(2, "Two"), Heading(3, "Three")}, blocks)
}

func TestParseBlocksBulletEndsParagraph(t *testing.T) {
	blocks := ParseBlocks("intro text\ncontinues here\n- point\nafter point")
	assert.Equal(t, []Block{
		Paragraph("intro text continues here"),
		Bullet("point"),
		Paragraph("after point"),
	}, blocks)
}

func TestParseBlocksConsecutiveBlankLines(t *testing.T) {
	blocks := ParseBlocks("a\n\n\nb")
	assert.Equal(t, []Block{Paragraph("a"), Spacer(), Spacer(), Paragraph("b")}, blocks)
}

func TestParseBlocksNormalisesLineEndings(t *testing.T) {
	blocks := ParseBlocks("# Title\r\n- item\r\n")
	assert.Equal(t, []Block{Heading(1, "Title"), Bullet("item")}, blocks)
}

func TestParseBlocksIndentedBullet(t *testing.T) {
	blocks := ParseBlocks("   - nested looking")
	assert.Equal(t, []Block{Bullet("nested looking")}, blocks)
}

func TestParseBlocksMarkerOnlyLines(t *testing.T) {
	blocks := ParseBlocks("- \n# \n  ## \ntext")
	assert.Equal(t, []Block{
		Bullet(""),
		Heading(1, ""),
		Heading(2, ""),
		Paragraph("text"),
	}, blocks)

	// without the trailing space there is no marker
	assert.Equal(t, []Block{Paragraph("- #")}, ParseBlocks("-\n#"))
}

func TestSplitSlidesMarkerOnlyBodyLines(t *testing.T) {
	slides := SplitSlides("## Plan\n- \n### \nmore")

	require.Len(t, slides, 1)
	assert.Equal(t, []SlideLine{
		{Kind: SlideBullet, Text: ""},
		{Kind: SlideSubheading, Text: ""},
		{Kind: SlideProse, Text: "more"},
	}, slides[0].Body)
}

func TestParseBlocksEmpty(t *testing.T) {
	assert.Empty(t, ParseBlocks(""))
}

func TestSplitSlidesOnSectionMarkers(t *testing.T) {
	slides := SplitSlides("## Problem\nCustomers wait too long\n- 3 day delays\n## Solution\nSame-day delivery")

	require.Len(t, slides, 2)
	assert.Equal(t, "Problem", slides[0].Title)
	assert.Equal(t, []SlideLine{
		{Kind: SlideProse, Text: "Customers wait too long"},
		{Kind: SlideBullet, Text: "3 day delays"},
	}, slides[0].Body)
	assert.Equal(t, "Solution", slides[1].Title)
}

func TestSplitSlidesWithoutMarkersIsOneSlide(t *testing.T) {
	slides := SplitSlides("# Company Profile\nWe bake bread.\n- Fresh daily\n### Team")

	require.Len(t, slides, 1)
	assert.Equal(t, "Company Profile", slides[0].Title)
	assert.Equal(t, []SlideLine{
		{Kind: SlideProse, Text: "We bake bread."},
		{Kind: SlideBullet, Text: "Fresh daily"},
		{Kind: SlideSubheading, Text: "Team"},
	}, slides[0].Body)
}

func TestSplitSlidesKeepsPreamble(t *testing.T) {
	slides := SplitSlides("Acme Pitch\n\n## Market\nLarge")
	require.Len(t, slides, 2)
	assert.Equal(t, "Acme Pitch", slides[0].Title)
	assert.Equal(t, "Market", slides[1].Title)
}

func TestSplitSlidesIgnoresBlankPreamble(t *testing.T) {
	slides := SplitSlides("\n\n## Only\nbody")
	require.Len(t, slides, 1)
	assert.Equal(t, "Only", slides[0].Title)
}

func TestSplitSlidesEmptyContent(t *testing.T) {
	slides := SplitSlides("")
	require.Len(t, slides, 1)
	assert.Empty(t, slides[0].Title)
	assert.Empty(t, slides[0].Body)
}

func TestSplitEmphasis(t *testing.T) {
	assert.Equal(t, []Span{{Text: "Revenue: "}, {Text: "N5m", Bold: true}, {Text: " per year"}},
		SplitEmphasis("Revenue: **N5m** per year"))
	assert.Equal(t, []Span{{Text: "a ** b"}}, SplitEmphasis("a ** b"))
	assert.Equal(t, []Span{{Text: "bold", Bold: true}}, SplitEmphasis("**bold**"))
	assert.Equal(t, []Span{{Text: ""}}, SplitEmphasis(""))
	assert.Equal(t, "Revenue: N5m", PlainText("Revenue: **N5m**"))
}
