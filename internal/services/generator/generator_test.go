package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

type fakeChatModel struct {
	reply     *schema.Message
	err       error
	calls     int
	messages  []*schema.Message
	maxTokens int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls++
	f.messages = input
	if o := model.GetCommonOptions(&model.Options{}, opts...); o.MaxTokens != nil {
		f.maxTokens = *o.MaxTokens
	}
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func pitchDeck() *models.PitchDeckInput {
	return &models.PitchDeckInput{
		BusinessInfo: models.BusinessInfo{
			BusinessName: "Acme Bakery",
			Sector:       "Food",
			Location:     "Lagos",
			Currency:     "NGN",
		},
		Problem:    "Offices get\nstale bread",
		Solution:   "Morning delivery",
		FundingAsk: 25000000,
	}
}

func mustCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := LoadCatalog()
	require.NoError(t, err)
	return c
}

func TestEmbeddedCatalogCoversEveryKind(t *testing.T) {
	c := mustCatalog(t)
	for _, kind := range models.AllDocumentKinds() {
		tpl, ok := c.Template(kind)
		require.True(t, ok, kind)
		assert.GreaterOrEqual(t, tpl.MaxTokens, 1500)
		assert.LessOrEqual(t, tpl.MaxTokens, 4000)
	}
}

func TestParseCatalogRejectsIncompleteCatalog(t *testing.T) {
	_, err := ParseCatalog([]byte("system: hi\nkinds:\n  pitch_deck:\n    max_tokens: 2000\n    sections: [A]\n"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("kinds: {}\n"))
	assert.Error(t, err)
}

func TestBuildPromptEmbedsInputAndSections(t *testing.T) {
	p, err := mustCatalog(t).BuildPrompt(pitchDeck())
	require.NoError(t, err)

	assert.Equal(t, models.KindPitchDeck, p.Kind)
	assert.Equal(t, 2500, p.MaxTokens)
	assert.NotEmpty(t, p.System)

	assert.Contains(t, p.User, "Pitch Deck for Acme Bakery")
	assert.Contains(t, p.User, "- Problem: Offices get stale bread")
	assert.Contains(t, p.User, "- Funding Ask: NGN 25000000")
	assert.Contains(t, p.User, "all amounts are in NGN")
	assert.Contains(t, p.User, "1. The Problem")
	assert.Contains(t, p.User, "Enhance, do not repeat")
	assert.Contains(t, p.User, `"## "`)
	// empty answers are left out
	assert.NotContains(t, p.User, "Traction:")
}

func TestBuildPromptValidatesInput(t *testing.T) {
	in := pitchDeck()
	in.BusinessName = ""
	_, err := mustCatalog(t).BuildPrompt(in)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestGenerateReturnsContentVerbatim(t *testing.T) {
	content := "## The Problem\n- Stale bread\n"
	fake := &fakeChatModel{reply: &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			Usage: &schema.TokenUsage{PromptTokens: 120, CompletionTokens: 300, TotalTokens: 420},
		},
	}}
	g := New(mustCatalog(t), fake)

	res, err := g.Generate(context.Background(), pitchDeck())
	require.NoError(t, err)
	assert.Equal(t, content, res.Content)
	assert.Equal(t, 420, res.TotalTokens())

	require.Len(t, fake.messages, 2)
	assert.Equal(t, schema.System, fake.messages[0].Role)
	assert.Equal(t, schema.User, fake.messages[1].Role)
	assert.Equal(t, 2500, fake.maxTokens)
}

func TestGenerateMapsFailures(t *testing.T) {
	cases := map[string]*fakeChatModel{
		"provider error": {err: errors.New("503 from provider")},
		"empty reply":    {reply: &schema.Message{Role: schema.Assistant, Content: "  \n"}},
		"nil reply":      {},
	}
	for name, fake := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(mustCatalog(t), fake).Generate(context.Background(), pitchDeck())
			appErr, ok := apperror.As(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeGeneration, appErr.Code)
			assert.Equal(t, "failed to generate document", appErr.Message)
			assert.Equal(t, 1, fake.calls)
		})
	}
}

func TestGenerateSkipsModelOnInvalidInput(t *testing.T) {
	fake := &fakeChatModel{}
	in := pitchDeck()
	in.Sector = ""
	_, err := New(mustCatalog(t), fake).Generate(context.Background(), in)
	assert.Error(t, err)
	assert.Zero(t, fake.calls)
}
