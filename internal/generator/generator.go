// Package generator produces answers from a chat completion model.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the chat model used when none is configured.
	DefaultModel = string(openai.ChatModelGPT4oMini)

	// DefaultTemperature keeps answers close to the supplied context.
	DefaultTemperature = 0.3

	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxTokens is the maximum instruction length before truncation (in tokens).
	DefaultMaxTokens = 16000
)

var (
	// ErrUnavailable is returned when no model is configured.
	ErrUnavailable = errors.New("answer generator not configured")

	// ErrEmptyCompletion is returned when the model replies without content.
	ErrEmptyCompletion = errors.New("model returned no answer")
)

// Options configures a Generator. Zero values select the defaults.
type Options struct {
	Model       string
	Temperature float64
	Timeout     time.Duration
	MaxTokens   int
	Logger      *slog.Logger
}

// Generator answers questions with an OpenAI-compatible chat model.
// A nil *Generator is valid and reports ErrUnavailable.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float64
	timeout     time.Duration
	maxTokens   int
	logger      *slog.Logger
}

// New creates a Generator over client.
func New(client *openai.Client, opts Options) *Generator {
	g := &Generator{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		maxTokens:   opts.MaxTokens,
		logger:      opts.Logger,
	}
	if g.model == "" {
		g.model = DefaultModel
	}
	if g.temperature <= 0 {
		g.temperature = DefaultTemperature
	}
	if g.timeout <= 0 {
		g.timeout = DefaultTimeout
	}
	if g.maxTokens <= 0 {
		g.maxTokens = DefaultMaxTokens
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Available reports whether the generator can be called.
func (g *Generator) Available() bool {
	return g != nil && g.client != nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

// Generate sends instructions as the system message and question as the user
// message, and returns the model's reply. The call is bounded by the
// configured timeout.
func (g *Generator) Generate(ctx context.Context, instructions, question string) (string, error) {
	if !g.Available() {
		return "", ErrUnavailable
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(g.truncateContent(instructions)),
			openai.UserMessage(question),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", ErrEmptyCompletion
	}
	return answer, nil
}

// truncateContent truncates content to fit within token limits.
// Uses rough estimate of 4 characters per token.
func (g *Generator) truncateContent(content string) string {
	maxChars := g.maxTokens * 4

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	g.logger.Warn("Truncating instructions",
		"from", len(runes), "to", maxChars, "estimated_tokens", g.maxTokens)

	return string(runes[:maxChars])
}
