package render

import (
	"github.com/yuin/goldmark/util"
)

// KaTeXName is the registry and engine name of the KaTeX extension.
const KaTeXName = "katex"

// KaTeX asset locations.
const (
	KaTeXStylesheet = "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.css"
	KaTeXScript     = "https://cdn.jsdelivr.net/npm/katex@0.16.11/dist/katex.min.js"
)

// katexBootstrap typesets every KaTeX span once the page is parsed.
const katexBootstrap = `document.addEventListener("DOMContentLoaded", function () {
  document.querySelectorAll(".math-katex").forEach(function (el) {
    katex.render(el.textContent, el, {displayMode: el.dataset.display === "true", throwOnError: false});
  });
});`

type katexExtension struct{}

// KaTeX returns the math engine that typesets formulas in the browser with
// KaTeX. It takes no options.
func KaTeX() Extension {
	return katexExtension{}
}

func (katexExtension) Name() string { return KaTeXName }

func (k katexExtension) Extend(b *Builder) error {
	if err := b.AddTypesetter(k); err != nil {
		return err
	}
	b.AddStylesheet(KaTeXStylesheet)
	b.AddScript(Script{Src: KaTeXScript})
	b.AddScript(Script{Inline: katexBootstrap})
	return nil
}

func (katexExtension) Engine() string { return KaTeXName }

func (katexExtension) Typeset(w util.BufWriter, tex []byte, display bool) error {
	if display {
		_, _ = w.WriteString(`<span class="math math-katex" data-display="true">`)
	} else {
		_, _ = w.WriteString(`<span class="math math-katex" data-display="false">`)
	}
	_, _ = w.Write(util.EscapeHTML(tex))
	_, err := w.WriteString("</span>")
	return err
}
