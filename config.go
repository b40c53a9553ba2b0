package mdchat

import (
	"fmt"
	"strings"

	"github.com/youssefsiam38/mdchat/assistant"
	"github.com/youssefsiam38/mdchat/render"
)

// DefaultPageSize is the number of documents or conversations listed per page.
const DefaultPageSize = 25

// Logger interface for structured logging.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds app configuration.
type Config struct {
	// BasePath is the URL prefix where the app is mounted.
	// For example, if mounted at "/md/", set BasePath to "/md".
	// Defaults to empty string (root mount).
	BasePath string

	// ReadOnly disables document creation and chat.
	ReadOnly bool

	// ProductionTip enables development diagnostics: navigation is logged
	// at debug level and error pages include the failure.
	// Defaults to false.
	ProductionTip bool

	// MathJaxSrc is the URL the MathJax engine is loaded from.
	// Defaults to render.DefaultMathJaxSrc.
	MathJaxSrc string

	// PageSize for pagination.
	// Defaults to 25.
	PageSize int

	// Responder produces assistant replies in the chat view.
	// If nil, chat messages are stored without a reply.
	Responder assistant.Responder

	// Logger for structured logging.
	// If nil, logging is disabled.
	Logger Logger
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		MathJaxSrc: render.DefaultMathJaxSrc,
		PageSize:   DefaultPageSize,
	}
}

// applyDefaults fills in default values for zero-valued fields.
func (c *Config) applyDefaults() {
	if c.MathJaxSrc == "" {
		c.MathJaxSrc = render.DefaultMathJaxSrc
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
}

// validate checks the configuration for errors.
func (c *Config) validate() error {
	if c.PageSize < 1 {
		return fmt.Errorf("%w: PageSize must be positive", ErrInvalidConfig)
	}
	if c.BasePath != "" && (!strings.HasPrefix(c.BasePath, "/") || strings.HasSuffix(c.BasePath, "/")) {
		return fmt.Errorf("%w: BasePath %q must start with / and not end with /", ErrInvalidConfig, c.BasePath)
	}
	return nil
}
