package render

import (
	"bytes"
	"fmt"
	"html/template"
	"slices"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
)

// Script is a script tag emitted in the page head.
// Exactly one of Src and Inline is set.
type Script struct {
	Src    string
	Inline string
	Defer  bool
}

// Assets are the stylesheets and scripts a page needs to display rendered
// content.
type Assets struct {
	Stylesheets []string
	Scripts     []Script
}

// Renderer converts markdown to sanitized HTML. It is safe for concurrent use.
type Renderer struct {
	md         goldmark.Markdown
	policy     *bluemonday.Policy
	assets     Assets
	engines    []string
	extensions []string
}

// RenderOption configures a single Render call.
type RenderOption func(*renderOptions)

type renderOptions struct {
	engine string
}

// WithEngine selects the math engine used to typeset math in the document.
func WithEngine(name string) RenderOption {
	return func(o *renderOptions) {
		o.engine = name
	}
}

// Render converts src to HTML.
func (r *Renderer) Render(src string, opts ...RenderOption) (template.HTML, error) {
	o := renderOptions{engine: r.DefaultEngine()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.engine != "" && !r.HasEngine(o.engine) {
		return "", fmt.Errorf("%w: %s", ErrUnknownEngine, o.engine)
	}

	pc := parser.NewContext()
	pc.Set(engineKey, o.engine)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}

	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// Assets returns the page assets contributed by the extensions.
func (r *Renderer) Assets() Assets {
	return Assets{
		Stylesheets: slices.Clone(r.assets.Stylesheets),
		Scripts:     slices.Clone(r.assets.Scripts),
	}
}

// Engines returns the math engine names in registration order.
func (r *Renderer) Engines() []string {
	return slices.Clone(r.engines)
}

// DefaultEngine returns the first registered math engine, or "" if none.
func (r *Renderer) DefaultEngine() string {
	if len(r.engines) == 0 {
		return ""
	}
	return r.engines[0]
}

// HasEngine reports whether a math engine is registered.
func (r *Renderer) HasEngine(name string) bool {
	return slices.Contains(r.engines, name)
}

// Extensions returns the extension names the renderer was built from.
func (r *Renderer) Extensions() []string {
	return slices.Clone(r.extensions)
}
