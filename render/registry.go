package render

import (
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

// Extension adds a rendering capability to a Registry.
type Extension interface {
	// Name is the unique identifier of the extension.
	Name() string

	// Extend contributes the extension's parser, typesetter, policy and
	// assets to the renderer being built.
	Extend(b *Builder) error
}

// Registry holds the rendering extensions of an application in
// registration order. It is written during startup and frozen by Build.
type Registry struct {
	mu         sync.RWMutex
	extensions []Extension
	names      map[string]struct{}
	renderer   *Renderer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: make(map[string]struct{}),
	}
}

// Register appends an extension to the registry.
func (r *Registry) Register(ext Extension) error {
	if ext == nil {
		return fmt.Errorf("%w: extension cannot be nil", ErrInvalidExtension)
	}

	name := ext.Name()
	if name == "" {
		return fmt.Errorf("%w: extension name cannot be empty", ErrInvalidExtension)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer != nil {
		return fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, name)
	}
	if _, exists := r.names[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateExtension, name)
	}

	r.names[name] = struct{}{}
	r.extensions = append(r.extensions, ext)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ext Extension) {
	if err := r.Register(ext); err != nil {
		panic(err)
	}
}

// Names returns the registered extension names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.extensions))
	for i, ext := range r.extensions {
		names[i] = ext.Name()
	}
	return names
}

// Count returns the number of registered extensions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.extensions)
}

// Frozen reports whether Build has succeeded.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.renderer != nil
}

// Build freezes the registry and returns the renderer for it.
// Calling Build again returns the same renderer.
func (r *Registry) Build() (*Renderer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.renderer != nil {
		return r.renderer, nil
	}

	b := &Builder{}
	for _, ext := range r.extensions {
		if err := ext.Extend(b); err != nil {
			return nil, fmt.Errorf("extend %s: %w", ext.Name(), err)
		}
	}

	renderer, err := b.build(r.namesLocked())
	if err != nil {
		return nil, err
	}

	r.renderer = renderer
	return renderer, nil
}

func (r *Registry) namesLocked() []string {
	names := make([]string, len(r.extensions))
	for i, ext := range r.extensions {
		names[i] = ext.Name()
	}
	return names
}

// Builder collects what extensions contribute while a Registry is built.
type Builder struct {
	markdown    bool
	options     []goldmark.Option
	extenders   []goldmark.Extender
	policy      *bluemonday.Policy
	typesetters []Typesetter
	assets      Assets
}

// UseMarkdown installs the base markdown converter options and the sanitizing
// policy applied to every rendered document.
func (b *Builder) UseMarkdown(policy *bluemonday.Policy, opts ...goldmark.Option) error {
	if b.markdown {
		return fmt.Errorf("%w: markdown already configured", ErrDuplicateExtension)
	}
	b.markdown = true
	b.policy = policy
	b.options = append(b.options, opts...)
	return nil
}

// AddExtender adds a goldmark extender to the converter.
func (b *Builder) AddExtender(e goldmark.Extender) {
	b.extenders = append(b.extenders, e)
}

// AddTypesetter adds a math engine. Engine names must be unique.
func (b *Builder) AddTypesetter(t Typesetter) error {
	for _, existing := range b.typesetters {
		if existing.Engine() == t.Engine() {
			return fmt.Errorf("%w: engine %s", ErrDuplicateExtension, t.Engine())
		}
	}
	b.typesetters = append(b.typesetters, t)
	return nil
}

// AddStylesheet adds a stylesheet URL to the page assets.
func (b *Builder) AddStylesheet(href string) {
	b.assets.Stylesheets = appendUnique(b.assets.Stylesheets, href)
}

// AddScript adds a script to the page assets.
func (b *Builder) AddScript(s Script) {
	for _, existing := range b.assets.Scripts {
		if existing == s {
			return
		}
	}
	b.assets.Scripts = append(b.assets.Scripts, s)
}

func (b *Builder) build(names []string) (*Renderer, error) {
	if !b.markdown {
		return nil, ErrNoMarkdown
	}

	extenders := append([]goldmark.Extender(nil), b.extenders...)
	engines := make([]string, len(b.typesetters))
	for i, t := range b.typesetters {
		engines[i] = t.Engine()
	}

	if len(b.typesetters) > 0 {
		extenders = append(extenders, newMathExtender(b.typesetters))
		allowMathMarkup(b.policy)
	}

	opts := append([]goldmark.Option(nil), b.options...)
	opts = append(opts, goldmark.WithExtensions(extenders...))

	return &Renderer{
		md:         goldmark.New(opts...),
		policy:     b.policy,
		assets:     b.assets,
		engines:    engines,
		extensions: names,
	}, nil
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
