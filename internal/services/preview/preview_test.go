package preview

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
	"github.com/onegreenvn/bizdoc-services-backend/internal/services/assembler"
)

var at = time.Date(2025, 6, 30, 9, 0, 0, 0, time.UTC)

func TestSlideDeckPreview(t *testing.T) {
	r := NewRenderer(assembler.DefaultTheme())
	pv := r.Render(models.KindPitchDeck, "Seed Round", "Acme", "## The Problem\n- **Stale** bread\n## The Ask\nWe need funds", at)

	assert.Equal(t, LayoutSlides, pv.Layout)
	assert.Equal(t, "#1F4E79", pv.Theme.PrimaryColor)
	require.Len(t, pv.Pages, 4)
	assert.Equal(t, PageCover, pv.Pages[0].Kind)
	assert.Equal(t, "The Problem", pv.Pages[1].Title)
	assert.Equal(t, []Span{{Text: "Stale", Bold: true}, {Text: " bread"}}, pv.Pages[1].Blocks[0].Spans)
	assert.Equal(t, "bullet", pv.Pages[1].Blocks[0].Type)
	assert.Equal(t, "The Ask", pv.Pages[2].Title)
	assert.Equal(t, PageClosing, pv.Pages[3].Kind)
	assert.Equal(t, 4, pv.Pages[3].Number)
}

func TestSlideDeckWithoutSectionsHasOneContentSlide(t *testing.T) {
	pv := NewRenderer(assembler.DefaultTheme()).Render(models.KindCompanyProfile, "", "Acme", "Just prose\nmore prose", at)
	require.Len(t, pv.Pages, 3)
	assert.Equal(t, "Just prose", pv.Pages[1].Title)
}

func TestDocumentPreviewPaginates(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 3; i++ {
		fmt.Fprintf(&b, "## Section %d\n", i)
		for j := 0; j < 20; j++ {
			fmt.Fprintf(&b, "- point %d.%d\n", i, j)
		}
	}
	pv := NewRenderer(assembler.DefaultTheme()).Render(models.KindBusinessProposal, "Proposal", "Acme", b.String(), at)

	assert.Equal(t, LayoutPages, pv.Layout)
	assert.Equal(t, PageCover, pv.Pages[0].Kind)
	assert.Equal(t, PageInformation, pv.Pages[len(pv.Pages)-1].Kind)

	content := pv.Pages[1 : len(pv.Pages)-1]
	require.Len(t, content, 3)
	total := 0
	for i, p := range content {
		assert.LessOrEqual(t, len(p.Blocks), blocksPerPage)
		assert.Equal(t, fmt.Sprintf("Section %d", i), p.Title)
		total += len(p.Blocks)
	}
	assert.Equal(t, 63, total)
}

func TestDocumentPreviewOfEmptyContent(t *testing.T) {
	pv := NewRenderer(assembler.DefaultTheme()).Render(models.KindExecutiveSummary, "", "Acme", "", at)
	require.Len(t, pv.Pages, 3)
	assert.Empty(t, pv.Pages[1].Blocks)
	assert.NotNil(t, pv.Pages[1].Blocks)
}
