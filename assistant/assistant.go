// Package assistant produces replies for the chat view.
//
// A Responder receives the full conversation history, oldest first, and
// returns the assistant's markdown reply. Replies may contain $...$ and
// $$...$$ math, which the chat view renders with the registered engines.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	convert "github.com/youssefsiam38/mdchat/internal/anthropic"
	"github.com/youssefsiam38/mdchat/storage"
)

var (
	// ErrInvalidConfig is returned when a responder is misconfigured.
	ErrInvalidConfig = errors.New("assistant: invalid config")

	// ErrEmptyHistory is returned when there is nothing to reply to.
	ErrEmptyHistory = errors.New("assistant: empty history")

	// ErrEmptyReply is returned when the model produced no text.
	ErrEmptyReply = errors.New("assistant: empty reply")
)

// Responder generates the next assistant message.
type Responder interface {
	Reply(ctx context.Context, history []*storage.Message) (string, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, history []*storage.Message) (string, error)

// Reply calls f.
func (f ResponderFunc) Reply(ctx context.Context, history []*storage.Message) (string, error) {
	return f(ctx, history)
}

// Defaults for Config.
const (
	DefaultModel            = string(anthropic.ModelClaudeSonnet4_5)
	DefaultMaxTokens        = 2048
	DefaultMaxHistoryTokens = 32000
)

// DefaultSystemPrompt asks the model for markdown with dollar-delimited math.
const DefaultSystemPrompt = "You are a helpful assistant. Answer in GitHub-flavored markdown. " +
	"Write inline math as $...$ and display math as $$...$$ on their own lines. " +
	"Do not use \\( \\) or \\[ \\] delimiters."

// Config configures the Anthropic responder.
type Config struct {
	// APIKey is the Anthropic API key. Required.
	APIKey string

	// Model is the Claude model to use.
	// Defaults to DefaultModel.
	Model string

	// MaxTokens caps the reply length.
	// Defaults to DefaultMaxTokens.
	MaxTokens int64

	// SystemPrompt is sent with every request.
	// Defaults to DefaultSystemPrompt.
	SystemPrompt string

	// MaxHistoryTokens bounds the estimated size of the history sent.
	// Older messages are dropped first. Defaults to DefaultMaxHistoryTokens.
	MaxHistoryTokens int

	// RequestOptions are passed to the Anthropic client, after the API key.
	RequestOptions []option.RequestOption
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxHistoryTokens == 0 {
		c.MaxHistoryTokens = DefaultMaxHistoryTokens
	}
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: APIKey is required", ErrInvalidConfig)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: MaxTokens must be positive", ErrInvalidConfig)
	}
	if c.MaxHistoryTokens < 0 {
		return fmt.Errorf("%w: MaxHistoryTokens must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Anthropic replies using the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	config Config
}

// NewAnthropic creates a Responder backed by Claude.
func NewAnthropic(cfg Config) (*Anthropic, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	opts := append([]option.RequestOption{option.WithAPIKey(cfg.APIKey)}, cfg.RequestOptions...)
	return &Anthropic{
		client: anthropic.NewClient(opts...),
		config: cfg,
	}, nil
}

// Model returns the configured model name.
func (a *Anthropic) Model() string {
	return a.config.Model
}

// Reply sends the history to Claude and returns the text of its answer.
func (a *Anthropic) Reply(ctx context.Context, history []*storage.Message) (string, error) {
	messages := convert.ConvertToAnthropicMessages(convert.TrimHistory(history, a.config.MaxHistoryTokens))
	if len(messages) == 0 {
		return "", ErrEmptyHistory
	}

	response, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.config.Model),
		MaxTokens: a.config.MaxTokens,
		System:    convert.BuildSystemPrompt(a.config.SystemPrompt),
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}

	text := convert.ExtractText(response)
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

// Compile-time check
var _ Responder = (*Anthropic)(nil)
