// Package render turns markdown with embedded math into sanitized HTML.
//
// Rendering capabilities are contributed by extensions registered on an
// explicit Registry. There is no package-level registry: the application
// builds one at startup and passes the resulting Renderer by reference to
// everything that renders content.
//
// # Quick Start
//
//	reg := render.NewRegistry()
//	reg.MustRegister(render.Markdown())
//	reg.MustRegister(render.KaTeX())
//	reg.MustRegister(render.MathJax(render.MathJaxOptions{}))
//
//	r, err := reg.Build()
//	if err != nil {
//	    return err
//	}
//	html, err := r.Render("Euler: $e^{i\\pi} + 1 = 0$")
//
// # Math Syntax
//
// Inline math is written as $...$ and display math as $$...$$, either inline
// or as a block fenced by lines containing only $$. An opening $ followed by a
// space, or a closing $ preceded by a space or followed by a digit, is plain
// text, so "$5 and $10" is left alone.
//
// Math nodes are typeset by the engine selected for the render call. The
// first registered engine is the default; WithEngine picks another one.
package render
