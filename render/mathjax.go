package render

import (
	"fmt"
	"net/url"

	"github.com/yuin/goldmark/util"
)

// MathJaxName is the registry and engine name of the MathJax extension.
const MathJaxName = "mathjax"

// DefaultMathJaxSrc is the script MathJax is loaded from when no source is
// configured.
const DefaultMathJaxSrc = "https://cdnjs.cloudflare.com/ajax/libs/mathjax/2.7.7/MathJax.js?config=TeX-AMS_HTML"

// MathJaxOptions configures the MathJax extension.
type MathJaxOptions struct {
	// Src is the URL of the MathJax loader script.
	// Defaults to DefaultMathJaxSrc.
	Src string
}

type mathjaxExtension struct {
	src string
}

// MathJax returns the math engine backed by a MathJax script loaded from a
// remote URL. The server never fetches the URL; if it is unreachable the
// browser shows the TeX source.
func MathJax(opts MathJaxOptions) Extension {
	src := opts.Src
	if src == "" {
		src = DefaultMathJaxSrc
	}
	return &mathjaxExtension{src: src}
}

func (m *mathjaxExtension) Name() string { return MathJaxName }

func (m *mathjaxExtension) Extend(b *Builder) error {
	u, err := url.Parse(m.src)
	if err != nil {
		return fmt.Errorf("parse mathjax src: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("mathjax src must be an http(s) URL, got %q", m.src)
	}

	if err := b.AddTypesetter(m); err != nil {
		return err
	}
	b.AddScript(Script{Src: m.src, Defer: true})
	return nil
}

func (m *mathjaxExtension) Engine() string { return MathJaxName }

// Typeset wraps the formula in the delimiters MathJax scans for.
func (m *mathjaxExtension) Typeset(w util.BufWriter, tex []byte, display bool) error {
	open, end := `\(`, `\)`
	if display {
		open, end = `\[`, `\]`
	}
	_, _ = w.WriteString(`<span class="math math-mathjax">`)
	_, _ = w.WriteString(open)
	_, _ = w.Write(util.EscapeHTML(tex))
	_, _ = w.WriteString(end)
	_, err := w.WriteString("</span>")
	return err
}
