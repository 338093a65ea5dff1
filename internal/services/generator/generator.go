package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// Result is the model's text plus token usage
type Result struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// TotalTokens is prompt plus completion tokens
func (r *Result) TotalTokens() int {
	return r.PromptTokens + r.CompletionTokens
}

// Generator sends document prompts to one configured chat model
type Generator struct {
	catalog *Catalog
	model   model.BaseChatModel
}

// NewChatModel builds the OpenAI-compatible chat model from config
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("LLM_API_KEY is not set")
	}
	temperature := float32(cfg.Temperature)
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: &temperature,
		Timeout:     cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return chatModel, nil
}

func New(catalog *Catalog, chatModel model.BaseChatModel) *Generator {
	return &Generator{catalog: catalog, model: chatModel}
}

// Catalog exposes the prompt catalog
func (g *Generator) Catalog() *Catalog {
	return g.catalog
}

// Generate builds the prompt for input and returns the first completion
// verbatim. Provider errors and blank completions are reported as
// generation errors; nothing is retried.
func (g *Generator) Generate(ctx context.Context, input models.DocumentInput) (*Result, error) {
	prompt, err := g.catalog.BuildPrompt(input)
	if err != nil {
		return nil, err
	}
	if g.model == nil {
		return nil, apperror.Generation(errors.New("chat model not configured"))
	}

	kind := string(prompt.Kind)
	start := time.Now()
	msg, err := g.model.Generate(ctx,
		[]*schema.Message{
			schema.SystemMessage(prompt.System),
			schema.UserMessage(prompt.User),
		},
		model.WithMaxTokens(prompt.MaxTokens),
	)
	metrics.GenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.Generations.WithLabelValues(kind, "error").Inc()
		return nil, apperror.Generation(err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		metrics.Generations.WithLabelValues(kind, "empty").Inc()
		return nil, apperror.Generation(errors.New("empty completion"))
	}
	metrics.Generations.WithLabelValues(kind, "success").Inc()

	result := &Result{Content: msg.Content}
	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		result.PromptTokens = msg.ResponseMeta.Usage.PromptTokens
		result.CompletionTokens = msg.ResponseMeta.Usage.CompletionTokens
	}
	logrus.WithFields(logrus.Fields{
		"kind":              kind,
		"prompt_tokens":     result.PromptTokens,
		"completion_tokens": result.CompletionTokens,
		"latency":           time.Since(start),
	}).Info("Document generated")
	return result, nil
}
