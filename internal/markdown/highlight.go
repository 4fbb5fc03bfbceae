package markdown

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// PromptConfig describes the shell prompt drawn in front of command lines.
type PromptConfig struct {
	User   string
	Host   string
	Global bool
}

// CodeConfig configures the code highlighting stage.
type CodeConfig struct {
	// ClassPrefix is prepended to the language name. Defaults to "language-".
	ClassPrefix string
	// InlineMarker separates a language from inline code, as in `bash>ls -la`.
	// Empty disables inline highlighting.
	InlineMarker string
	Prompt       PromptConfig
	// Aliases maps info-string languages to lexer names, e.g. sh -> bash.
	Aliases map[string]string
	// Style names the chroma style used for WriteCSS. Defaults to "github".
	Style string
}

// DefaultCodeConfig mirrors the defaults used by the site.
func DefaultCodeConfig() CodeConfig {
	return CodeConfig{
		ClassPrefix:  "language-",
		InlineMarker: ">",
		Prompt:       PromptConfig{User: "root", Host: "localhost"},
		Style:        "github",
	}
}

const plainLanguage = "text"

var shellLanguages = map[string]bool{
	"bash": true, "sh": true, "shell": true, "zsh": true, "console": true, "shell-session": true,
}

var (
	// KindCodeBlock is the node kind of CodeBlock.
	KindCodeBlock = ast.NewNodeKind("HighlightedCodeBlock")
	// KindInlineCode is the node kind of InlineCode.
	KindInlineCode = ast.NewNodeKind("HighlightedInlineCode")
)

// CodeBlock replaces a fenced code block with its highlighted markup.
type CodeBlock struct {
	ast.BaseBlock
	Language string
	HTML     string
}

func (n *CodeBlock) Kind() ast.NodeKind { return KindCodeBlock }

func (n *CodeBlock) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Language": n.Language}, nil)
}

// InlineCode replaces a code span.
type InlineCode struct {
	ast.BaseInline
	HTML string
}

func (n *InlineCode) Kind() ast.NodeKind { return KindInlineCode }

func (n *InlineCode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, nil, nil)
}

// Code highlights fenced blocks and marked inline code with chroma.
type Code struct {
	cfg       CodeConfig
	formatter *chromahtml.Formatter
	style     *chroma.Style
}

// NewCode constructs the stage.
func NewCode(cfg CodeConfig) *Code {
	defaults := DefaultCodeConfig()
	if cfg.ClassPrefix == "" {
		cfg.ClassPrefix = defaults.ClassPrefix
	}
	if cfg.Prompt.User == "" {
		cfg.Prompt.User = defaults.Prompt.User
	}
	if cfg.Prompt.Host == "" {
		cfg.Prompt.Host = defaults.Prompt.Host
	}
	if cfg.Style == "" {
		cfg.Style = defaults.Style
	}
	return &Code{
		cfg:       cfg,
		formatter: chromahtml.New(chromahtml.WithClasses(true), chromahtml.PreventSurroundingPre(true)),
		style:     styles.Get(cfg.Style),
	}
}

func (s *Code) Name() string { return "code" }

// WriteCSS writes the stylesheet matching the class names in highlighted output.
func (s *Code) WriteCSS(w io.Writer) error {
	return s.formatter.WriteCSS(w, s.style)
}

func (s *Code) Transform(ctx *StageContext, doc *ast.Document) error {
	var targets []ast.Node
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeSpan:
			targets = append(targets, n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for _, target := range targets {
		parent := target.Parent()
		if parent == nil {
			continue
		}
		switch n := target.(type) {
		case *ast.FencedCodeBlock:
			block, err := s.block(ctx, n)
			if err != nil {
				return err
			}
			parent.ReplaceChild(parent, n, block)
		case *ast.CodeSpan:
			parent.ReplaceChild(parent, n, s.inline(ctx, n))
		}
	}
	return nil
}

// fenceInfo is the parsed info string of a fenced block, e.g. bash{promptUser: alice}{2-3}.
type fenceInfo struct {
	language    string
	prompt      bool
	user        string
	host        string
	outputLines map[int]bool
	highlight   [][2]int
	lineNumbers bool
}

var infoGroup = regexp.MustCompile(`\{([^}]*)\}`)

func parseFenceInfo(info string) fenceInfo {
	info = strings.TrimSpace(info)
	out := fenceInfo{}
	end := strings.IndexAny(info, "{ \t")
	if end < 0 {
		end = len(info)
	}
	out.language = strings.ToLower(info[:end])

	for _, match := range infoGroup.FindAllStringSubmatch(info[end:], -1) {
		group := strings.TrimSpace(match[1])
		key, value, hasValue := strings.Cut(group, ":")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case group == "prompt":
			out.prompt = true
		case hasValue && key == "promptUser":
			out.prompt, out.user = true, value
		case hasValue && key == "promptHost":
			out.prompt, out.host = true, value
		case hasValue && key == "outputLines":
			out.outputLines = map[int]bool{}
			for _, r := range parseLineRanges(value) {
				for line := r[0]; line <= r[1]; line++ {
					out.outputLines[line] = true
				}
			}
		case hasValue && key == "numberLines":
			out.lineNumbers = value != "false"
		default:
			out.highlight = append(out.highlight, parseLineRanges(group)...)
		}
	}
	return out
}

func parseLineRanges(value string) [][2]int {
	var ranges [][2]int
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		start, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || start <= 0 {
			continue
		}
		stop := start
		if isRange {
			if stop, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || stop < start {
				continue
			}
		}
		ranges = append(ranges, [2]int{start, stop})
	}
	return ranges
}

func (s *Code) lexer(language string) (chroma.Lexer, string) {
	if language == "" {
		return nil, plainLanguage
	}
	if alias, ok := s.cfg.Aliases[language]; ok {
		language = alias
	}
	lexer := lexers.Get(language)
	if lexer == nil {
		return nil, plainLanguage
	}
	return chroma.Coalesce(lexer), language
}

func (s *Code) block(ctx *StageContext, n *ast.FencedCodeBlock) (*CodeBlock, error) {
	var info fenceInfo
	if n.Info != nil {
		info = parseFenceInfo(string(n.Info.Segment.Value(ctx.Source)))
	}

	var code bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		code.Write(line.Value(ctx.Source))
	}

	lexer, language := s.lexer(info.language)
	class := s.cfg.ClassPrefix + language
	if info.language != "" && lexer == nil {
		ctx.Report(s.Name(), "unknown language %q rendered as %s", info.language, plainLanguage)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<div class="folio-highlight" data-language="%s">`, attr(language))
	prompt := shellLanguages[language] && (s.cfg.Prompt.Global || info.prompt)
	preClass := class
	if prompt {
		preClass += " command-line"
	}
	fmt.Fprintf(&b, `<pre class="%s"><code class="%s">`, attr(preClass), attr(class))
	if prompt {
		b.WriteString(s.promptSpans(info, countLines(code.String())))
	}

	if lexer == nil {
		b.WriteString(html.EscapeString(code.String()))
	} else {
		iterator, err := lexer.Tokenise(nil, code.String())
		if err != nil {
			return nil, fmt.Errorf("tokenise %s: %w", language, err)
		}
		formatter := s.formatter
		if len(info.highlight) > 0 || info.lineNumbers {
			formatter = chromahtml.New(
				chromahtml.WithClasses(true),
				chromahtml.PreventSurroundingPre(true),
				chromahtml.HighlightLines(info.highlight),
				chromahtml.WithLineNumbers(info.lineNumbers),
			)
		}
		if err := formatter.Format(&b, s.style, iterator); err != nil {
			return nil, fmt.Errorf("format %s: %w", language, err)
		}
	}
	b.WriteString("</code></pre></div>")

	return &CodeBlock{Language: language, HTML: b.String()}, nil
}

func (s *Code) promptSpans(info fenceInfo, lines int) string {
	user, host := s.cfg.Prompt.User, s.cfg.Prompt.Host
	if info.user != "" {
		user = info.user
	}
	if info.host != "" {
		host = info.host
	}
	var b strings.Builder
	b.WriteString(`<span class="command-line-prompt">`)
	for line := 1; line <= lines; line++ {
		if info.outputLines[line] {
			b.WriteString(`<span></span>`)
			continue
		}
		fmt.Fprintf(&b, `<span data-user="%s" data-host="%s"></span>`, attr(user), attr(host))
	}
	b.WriteString(`</span>`)
	return b.String()
}

func countLines(code string) int {
	code = strings.TrimSuffix(code, "\n")
	if code == "" {
		return 1
	}
	return strings.Count(code, "\n") + 1
}

var inlineLanguage = regexp.MustCompile(`^[A-Za-z0-9_+#.-]+$`)

func (s *Code) inline(ctx *StageContext, n *ast.CodeSpan) *InlineCode {
	raw := nodeText(n, ctx.Source)
	literal := func() *InlineCode {
		return &InlineCode{HTML: `<code class="` + attr(s.cfg.ClassPrefix+plainLanguage) + `">` + html.EscapeString(raw) + `</code>`}
	}

	if s.cfg.InlineMarker == "" {
		return literal()
	}
	language, code, found := strings.Cut(raw, s.cfg.InlineMarker)
	if !found || !inlineLanguage.MatchString(language) {
		return literal()
	}
	lexer, resolved := s.lexer(strings.ToLower(language))
	if lexer == nil {
		return literal()
	}

	class := s.cfg.ClassPrefix + resolved
	var b strings.Builder
	if shellLanguages[resolved] {
		fmt.Fprintf(&b, `<code class="%s command-line">`, attr(class))
		fmt.Fprintf(&b, `<span class="command-line-prompt"><span data-user="%s" data-host="%s"></span></span>`,
			attr(s.cfg.Prompt.User), attr(s.cfg.Prompt.Host))
	} else {
		fmt.Fprintf(&b, `<code class="%s">`, attr(class))
	}
	writeTokens(&b, lexer, code)
	b.WriteString(`</code>`)
	return &InlineCode{HTML: b.String()}
}

// writeTokens emits chroma token spans without line wrappers.
func writeTokens(b *strings.Builder, lexer chroma.Lexer, code string) {
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		b.WriteString(html.EscapeString(code))
		return
	}
	tokens := iterator.Tokens()
	if last := len(tokens) - 1; last >= 0 && !strings.HasSuffix(code, "\n") {
		tokens[last].Value = strings.TrimSuffix(tokens[last].Value, "\n")
	}
	for _, token := range tokens {
		if token.Value == "" {
			continue
		}
		class := chroma.StandardTypes[token.Type]
		if class == "" {
			b.WriteString(html.EscapeString(token.Value))
			continue
		}
		fmt.Fprintf(b, `<span class="%s">%s</span>`, class, html.EscapeString(token.Value))
	}
}

func (s *Code) RendererOptions() []renderer.Option {
	return []renderer.Option{
		renderer.WithNodeRenderers(util.Prioritized(&codeRenderer{}, 100)),
	}
}

type codeRenderer struct{}

func (r *codeRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindCodeBlock, r.renderBlock)
	reg.Register(KindInlineCode, r.renderInline)
}

func (r *codeRenderer) renderBlock(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*CodeBlock).HTML)
		_ = w.WriteByte('\n')
	}
	return ast.WalkSkipChildren, nil
}

func (r *codeRenderer) renderInline(w util.BufWriter, _ []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		_, _ = w.WriteString(node.(*InlineCode).HTML)
	}
	return ast.WalkSkipChildren, nil
}
