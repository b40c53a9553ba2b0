package render

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Typesetter writes the markup a math engine needs for a formula.
type Typesetter interface {
	// Engine is the name used to select this typesetter at render time.
	Engine() string

	// Typeset writes the HTML for tex. The tex source is raw and must be
	// escaped by the typesetter.
	Typeset(w util.BufWriter, tex []byte, display bool) error
}

// engineKey carries the math engine selected for a render call.
var engineKey = parser.NewContextKey()

// KindMath is the node kind of inline math.
var KindMath = ast.NewNodeKind("Math")

// KindMathBlock is the node kind of fenced display math.
var KindMathBlock = ast.NewNodeKind("MathBlock")

// Math is an inline formula written as $...$ or $$...$$.
type Math struct {
	ast.BaseInline
	Value   []byte
	Display bool
	Engine  string
}

// Kind implements ast.Node.
func (n *Math) Kind() ast.NodeKind { return KindMath }

// Dump implements ast.Node.
func (n *Math) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Value":  string(n.Value),
		"Engine": n.Engine,
	}, nil)
}

// MathBlock is display math between two lines containing only $$.
type MathBlock struct {
	ast.BaseBlock
	Engine string
}

// Kind implements ast.Node.
func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }

// IsRaw implements ast.Node.
func (n *MathBlock) IsRaw() bool { return true }

// Dump implements ast.Node.
func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Engine": n.Engine}, nil)
}

func engineFromContext(pc parser.Context) string {
	engine, _ := pc.Get(engineKey).(string)
	return engine
}

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if len(line) < 2 || line[0] != '$' {
		return nil
	}

	display := line[1] == '$'
	open := 1
	if display {
		open = 2
	}

	body := line[open:]
	if len(body) == 0 || util.IsSpace(body[0]) {
		return nil
	}

	end := closingDelimiter(body, display)
	if end <= 0 {
		return nil
	}

	node := &Math{
		Value:   append([]byte(nil), body[:end]...),
		Display: display,
		Engine:  engineFromContext(pc),
	}
	block.Advance(open + end + open)
	return node
}

// closingDelimiter returns the index in body of the delimiter that closes
// the formula, or -1.
func closingDelimiter(body []byte, display bool) int {
	if display {
		return bytes.Index(body, []byte("$$"))
	}
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '\\':
			i++
		case '\n':
			return -1
		case '$':
			if util.IsSpace(body[i-1]) {
				continue
			}
			if i+1 < len(body) && body[i+1] >= '0' && body[i+1] <= '9' {
				continue
			}
			return i
		}
	}
	return -1
}

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte {
	return []byte{'$'}
}

func (p *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !isMathFence(line[pos:]) {
		return nil, parser.NoChildren
	}
	// An unclosed fence stays paragraph text.
	if !hasClosingFence(reader.Source()[segment.Stop:]) {
		return nil, parser.NoChildren
	}
	return &MathBlock{Engine: engineFromContext(pc)}, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	line, segment := reader.PeekLine()
	if isMathFence(line) {
		newline := 1
		if line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Len() - newline)
		return parser.Close
	}
	node.Lines().Append(segment)
	reader.Advance(segment.Len() - 1)
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }

func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

// hasClosingFence reports whether src has a line holding only $$, ignoring
// blockquote markers.
func hasClosingFence(src []byte) bool {
	for len(src) > 0 {
		line := src
		if i := bytes.IndexByte(src, '\n'); i >= 0 {
			line, src = src[:i], src[i+1:]
		} else {
			src = nil
		}
		if isMathFence(bytes.TrimLeft(line, " \t>")) {
			return true
		}
	}
	return false
}

func isMathFence(line []byte) bool {
	return bytes.Equal(util.TrimRightSpace(util.TrimLeftSpace(line)), []byte("$$"))
}

// mathRenderer dispatches math nodes to the typesetter of their engine.
type mathRenderer struct {
	typesetters map[string]Typesetter
}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMath, r.renderMath)
	reg.Register(KindMathBlock, r.renderMathBlock)
}

func (r *mathRenderer) renderMath(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node := n.(*Math)
	if err := r.typeset(w, node.Engine, node.Value, node.Display); err != nil {
		return ast.WalkStop, err
	}
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderMathBlock(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	node := n.(*MathBlock)
	tex := bytes.TrimSpace(node.Lines().Value(source))
	_, _ = w.WriteString("<div class=\"math\">")
	if err := r.typeset(w, node.Engine, tex, true); err != nil {
		return ast.WalkStop, err
	}
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) typeset(w util.BufWriter, engine string, tex []byte, display bool) error {
	t, ok := r.typesetters[engine]
	if !ok {
		// No engine selected: leave the source readable.
		_, _ = w.Write(util.EscapeHTML(tex))
		return nil
	}
	return t.Typeset(w, tex, display)
}

type mathExtender struct {
	typesetters map[string]Typesetter
}

func newMathExtender(typesetters []Typesetter) goldmark.Extender {
	m := make(map[string]Typesetter, len(typesetters))
	for _, t := range typesetters {
		m[t.Engine()] = t
	}
	return &mathExtender{typesetters: m}
}

func (e *mathExtender) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 90)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 150)),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{typesetters: e.typesetters}, 500)),
	)
}
