package render

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// MarkdownName is the registry name of the markdown extension.
const MarkdownName = "markdown"

type markdownExtension struct{}

// Markdown returns the extension that converts GitHub flavored markdown to
// HTML. Raw HTML in the source is dropped and the output is sanitized.
func Markdown() Extension {
	return markdownExtension{}
}

func (markdownExtension) Name() string { return MarkdownName }

func (markdownExtension) Extend(b *Builder) error {
	return b.UseMarkdown(newPolicy(),
		goldmark.WithExtensions(extension.GFM, extension.Footnote),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
}

var (
	languageClass = regexp.MustCompile(`^language-[a-zA-Z0-9_+-]+$`)
	mathClass     = regexp.MustCompile(`^math( math-[a-z]+)?$`)
)

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(languageClass).OnElements("code")
	p.AllowAttrs("type", "checked", "disabled").OnElements("input")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// allowMathMarkup lets the markup emitted by math typesetters through the
// sanitizer.
func allowMathMarkup(p *bluemonday.Policy) {
	p.AllowAttrs("class").Matching(mathClass).OnElements("span", "div")
	p.AllowAttrs("data-display").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("span", "div")
}
