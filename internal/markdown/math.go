package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/goliatone/go-folio/internal/content"
)

// MathPolicy controls what happens to expressions that fail validation.
type MathPolicy string

const (
	// MathIgnore leaves malformed expressions as literal text.
	MathIgnore MathPolicy = "ignore"
	// MathWarn leaves them as literal text and reports a diagnostic.
	MathWarn MathPolicy = "warn"
	// MathError fails the render with *content.MalformedMathExpressionError.
	MathError MathPolicy = "error"
)

// ParseMathPolicy normalises a configured policy. Empty selects MathIgnore.
func ParseMathPolicy(value string) (MathPolicy, error) {
	switch MathPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", MathIgnore:
		return MathIgnore, nil
	case MathWarn:
		return MathWarn, nil
	case MathError:
		return MathError, nil
	default:
		return "", fmt.Errorf("markdown: unknown math policy %q", value)
	}
}

// MathRenderer typesets a validated expression.
type MathRenderer interface {
	RenderMath(expr string, display bool) (string, error)
}

// MathConfig configures the math stage.
type MathConfig struct {
	Policy   MathPolicy
	Renderer MathRenderer
}

var (
	// KindMathBlock is the node kind of MathBlock.
	KindMathBlock = ast.NewNodeKind("MathBlock")
	// KindMathInline is the node kind of MathInline.
	KindMathInline = ast.NewNodeKind("MathInline")
)

// MathBlock is a $$ ... $$ display expression.
type MathBlock struct {
	ast.BaseBlock
	// HTML holds the typeset output once the stage has run.
	HTML string

	closed       bool
	unterminated bool
}

func (n *MathBlock) Kind() ast.NodeKind { return KindMathBlock }
func (n *MathBlock) IsRaw() bool        { return true }

func (n *MathBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Expression returns the TeX source of the block.
func (n *MathBlock) Expression(source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		b.Write(line.Value(source))
	}
	return strings.TrimSpace(b.String())
}

// MathInline is a $...$ expression inside a paragraph.
type MathInline struct {
	ast.BaseInline
	Segment text.Segment
	Display bool
	HTML    string
}

func (n *MathInline) Kind() ast.NodeKind { return KindMathInline }

func (n *MathInline) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Expression": string(n.Segment.Value(source))}, nil)
}

// Math parses dollar-delimited TeX and typesets it.
type Math struct {
	cfg MathConfig
}

// NewMath constructs the stage with a MathMLRenderer unless one is supplied.
func NewMath(cfg MathConfig) *Math {
	if cfg.Policy == "" {
		cfg.Policy = MathIgnore
	}
	if cfg.Renderer == nil {
		cfg.Renderer = MathMLRenderer{}
	}
	return &Math{cfg: cfg}
}

func (s *Math) Name() string { return "math" }

func (s *Math) ParserOptions() []parser.Option {
	return []parser.Option{
		parser.WithBlockParsers(util.Prioritized(&mathBlockParser{}, 701)),
		parser.WithInlineParsers(util.Prioritized(&mathInlineParser{}, 150)),
	}
}

func (s *Math) RendererOptions() []renderer.Option {
	return []renderer.Option{
		renderer.WithNodeRenderers(util.Prioritized(&mathRenderer{}, 100)),
	}
}

// Transform validates and typesets every math node. Malformed expressions are
// handled according to the configured policy.
func (s *Math) Transform(ctx *StageContext, doc *ast.Document) error {
	var nodes []ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *MathBlock, *MathInline:
			nodes = append(nodes, n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, node := range nodes {
		var (
			expr, literal string
			display       bool
			problem       error
		)
		switch n := node.(type) {
		case *MathBlock:
			expr, display = n.Expression(ctx.Source), true
			literal = "$$" + expr + "$$"
			if n.unterminated {
				literal = "$$" + expr
				problem = fmt.Errorf("missing closing $$")
			}
		case *MathInline:
			expr, display = string(n.Segment.Value(ctx.Source)), n.Display
			delim := "$"
			if n.Display {
				delim = "$$"
			}
			literal = delim + expr + delim
		}
		if problem == nil {
			problem = ValidateTeX(expr)
		}

		var typeset string
		if problem == nil {
			out, err := s.cfg.Renderer.RenderMath(expr, display)
			if err != nil {
				problem = err
			}
			typeset = out
		}

		if problem != nil {
			switch s.cfg.Policy {
			case MathError:
				return &content.MalformedMathExpressionError{Path: ctx.Path, Expression: expr, Display: display, Reason: problem.Error()}
			case MathWarn:
				ctx.Report(s.Name(), "malformed expression %q: %v", expr, problem)
			}
			replaceWithLiteral(node, literal)
			continue
		}

		switch n := node.(type) {
		case *MathBlock:
			n.HTML = typeset
		case *MathInline:
			n.HTML = typeset
		}
	}
	return nil
}

func replaceWithLiteral(node ast.Node, literal string) {
	parent := node.Parent()
	if parent == nil {
		return
	}
	str := ast.NewString([]byte(literal))
	str.SetRaw(true)
	if _, ok := node.(*MathBlock); ok {
		para := ast.NewParagraph()
		para.AppendChild(para, str)
		parent.ReplaceChild(parent, node, para)
		return
	}
	parent.ReplaceChild(parent, node, str)
}

type mathRenderer struct{}

func (r *mathRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindMathBlock, r.renderBlock)
	reg.Register(KindMathInline, r.renderInline)
}

func (r *mathRenderer) renderBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathBlock)
	_, _ = w.WriteString(`<div class="math math-display" data-tex="`)
	_, _ = w.Write(util.EscapeHTML([]byte(n.Expression(source))))
	_, _ = w.WriteString(`">`)
	_, _ = w.WriteString(n.HTML)
	_, _ = w.WriteString("</div>\n")
	return ast.WalkSkipChildren, nil
}

func (r *mathRenderer) renderInline(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*MathInline)
	_, _ = w.WriteString(`<span class="math math-inline" data-tex="`)
	_, _ = w.Write(util.EscapeHTML(n.Segment.Value(source)))
	_, _ = w.WriteString(`">`)
	_, _ = w.WriteString(n.HTML)
	_, _ = w.WriteString(`</span>`)
	return ast.WalkSkipChildren, nil
}

var mathFence = []byte("$$")

type mathBlockParser struct{}

func (p *mathBlockParser) Trigger() []byte { return []byte{'$'} }

func (p *mathBlockParser) Open(parent ast.Node, reader text.Reader, pc parser.Context) (ast.Node, parser.State) {
	line, segment := reader.PeekLine()
	pos := pc.BlockOffset()
	if pos < 0 || !bytes.HasPrefix(line[pos:], mathFence) {
		return nil, parser.NoChildren
	}

	node := &MathBlock{}
	start := segment.Start + pos + len(mathFence)
	rest := line[pos+len(mathFence):]

	if idx := bytes.Index(rest, mathFence); idx >= 0 {
		if len(util.TrimRightSpace(rest[idx+len(mathFence):])) != 0 {
			return nil, parser.NoChildren
		}
		node.Lines().Append(text.NewSegment(start, start+idx))
		node.closed = true
	} else if len(util.TrimRightSpace(rest)) > 0 {
		node.Lines().Append(text.NewSegment(start, segment.Stop))
	}

	return node, parser.NoChildren
}

func (p *mathBlockParser) Continue(node ast.Node, reader text.Reader, pc parser.Context) parser.State {
	n := node.(*MathBlock)
	if n.closed {
		return parser.Close
	}
	line, segment := reader.PeekLine()
	if line == nil {
		return parser.Close
	}
	trimmed := util.TrimRightSpace(line)
	if bytes.HasSuffix(trimmed, mathFence) {
		if body := len(trimmed) - len(mathFence); body > 0 {
			n.Lines().Append(text.NewSegment(segment.Start, segment.Start+body))
		}
		n.closed = true
		newline := 1
		if line[len(line)-1] != '\n' {
			newline = 0
		}
		reader.Advance(segment.Stop - segment.Start - newline + segment.Padding)
		return parser.Close
	}
	n.Lines().Append(segment)
	reader.AdvanceLine()
	return parser.Continue | parser.NoChildren
}

func (p *mathBlockParser) Close(node ast.Node, reader text.Reader, pc parser.Context) {
	n := node.(*MathBlock)
	if !n.closed {
		n.unterminated = true
	}
}

func (p *mathBlockParser) CanInterruptParagraph() bool { return true }
func (p *mathBlockParser) CanAcceptIndentedLine() bool { return false }

type mathInlineParser struct{}

func (p *mathInlineParser) Trigger() []byte { return []byte{'$'} }

// Parse recognises $expr$ and $$expr$$ on a single line. An opening $ followed
// by a space, a closing $ preceded by a space, or a closing $ followed by a
// digit is not math, which keeps prices like $5 and $10 literal.
func (p *mathInlineParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, segment := block.PeekLine()
	width := 1
	if len(line) > 1 && line[1] == '$' {
		width = 2
	}
	if len(line) <= width || line[width] == ' ' || line[width] == '\t' || line[width] == '$' {
		return nil
	}

	for i := width; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
			continue
		case '$':
		default:
			continue
		}
		if width == 2 && (i+1 >= len(line) || line[i+1] != '$') {
			continue
		}
		prev := line[i-1]
		if prev == ' ' || prev == '\t' {
			return nil
		}
		if next := i + width; next < len(line) && line[next] >= '0' && line[next] <= '9' {
			return nil
		}
		node := &MathInline{
			Segment: text.NewSegment(segment.Start+width, segment.Start+i),
			Display: width == 2,
		}
		block.Advance(i + width)
		return node
	}
	return nil
}
