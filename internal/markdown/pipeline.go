// Package markdown turns record bodies into HTML through an ordered list of
// stages run over a shared goldmark document.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// Diagnostic is a non-fatal note raised while rendering one document.
type Diagnostic struct {
	Stage   string `json:"stage"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Path, d.Stage, d.Message)
}

// StageContext carries per-document state shared by every stage.
type StageContext struct {
	context.Context
	// Path is the record path, used to resolve relative references.
	Path string
	// Source is the markdown body the document was parsed from.
	Source []byte

	mu          sync.Mutex
	diagnostics []Diagnostic
}

// Report records a diagnostic for stage.
func (c *StageContext) Report(stage, format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Stage:   stage,
		Path:    c.Path,
		Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostics returns the diagnostics reported so far.
func (c *StageContext) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Diagnostic(nil), c.diagnostics...)
}

// Stage rewrites a parsed document in place.
type Stage interface {
	Name() string
	Transform(ctx *StageContext, doc *ast.Document) error
}

// ParserExtender is implemented by stages that need goldmark to recognise new syntax.
type ParserExtender interface {
	ParserOptions() []parser.Option
}

// RendererExtender is implemented by stages that introduce node kinds.
type RendererExtender interface {
	RendererOptions() []renderer.Option
}

// Config holds the static pipeline configuration.
type Config struct {
	// Extensions names goldmark extensions to enable. Empty selects GFM.
	Extensions []string
	HardWraps  bool
	// SafeMode drops raw HTML from the output.
	SafeMode bool
	// ExternalSchemes are rewritten to open in a new browsing context. Empty disables the rewrite.
	ExternalSchemes []string
}

// Result is the output of one render.
type Result struct {
	HTML        string
	Diagnostics []Diagnostic
}

// Pipeline is immutable after construction and safe for concurrent use.
type Pipeline struct {
	md      goldmark.Markdown
	stages  []Stage
	schemes []string
	logger  interfaces.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger interfaces.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logging.OrNoOp(logger)
	}
}

// New builds a pipeline that runs stages in the given order.
func New(cfg Config, stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages:  append([]Stage(nil), stages...),
		schemes: append([]string(nil), cfg.ExternalSchemes...),
		logger:  logging.NoOp(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.md = newEngine(cfg, p.stages)
	return p
}

// StageNames lists the configured stages in order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, stage := range p.stages {
		names[i] = stage.Name()
	}
	return names
}

// Parse builds the document for body without running any stage.
func (p *Pipeline) Parse(body []byte) *ast.Document {
	node := p.md.Parser().Parse(text.NewReader(body))
	doc, ok := node.(*ast.Document)
	if !ok {
		doc = ast.NewDocument()
		doc.AppendChild(doc, node)
	}
	return doc
}

// Render parses body, runs every stage and serializes the result. External
// links are rewritten once on the final HTML.
func (p *Pipeline) Render(ctx context.Context, path string, body []byte) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sc := &StageContext{Context: ctx, Path: path, Source: body}
	doc := p.Parse(body)

	for _, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := stage.Transform(sc, doc); err != nil {
			return nil, fmt.Errorf("markdown stage %s: %w", stage.Name(), err)
		}
	}

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, body, doc); err != nil {
		return nil, fmt.Errorf("markdown render %s: %w", path, err)
	}

	out := buf.String()
	if len(p.schemes) > 0 {
		rewritten, err := RewriteExternalLinks(out, p.schemes)
		if err != nil {
			return nil, fmt.Errorf("markdown rewrite links %s: %w", path, err)
		}
		out = rewritten
	}

	diagnostics := sc.Diagnostics()
	for _, d := range diagnostics {
		p.logger.Warn("markdown.stage.diagnostic", "path", d.Path, "stage", d.Stage, "message", d.Message)
	}

	return &Result{HTML: out, Diagnostics: diagnostics}, nil
}

func newEngine(cfg Config, stages []Stage) goldmark.Markdown {
	parserOptions := []parser.Option{}
	rendererOptions := []renderer.Option{}

	if cfg.HardWraps {
		rendererOptions = append(rendererOptions, html.WithHardWraps())
	}
	if !cfg.SafeMode {
		rendererOptions = append(rendererOptions, html.WithUnsafe())
	}

	for _, stage := range stages {
		if ext, ok := stage.(ParserExtender); ok {
			parserOptions = append(parserOptions, ext.ParserOptions()...)
		}
		if ext, ok := stage.(RendererExtender); ok {
			rendererOptions = append(rendererOptions, ext.RendererOptions()...)
		}
	}

	engineOptions := []goldmark.Option{
		goldmark.WithParserOptions(parserOptions...),
		goldmark.WithRendererOptions(rendererOptions...),
	}
	if exts := collectExtensions(cfg.Extensions); len(exts) > 0 {
		engineOptions = append(engineOptions, goldmark.WithExtensions(exts...))
	}
	return goldmark.New(engineOptions...)
}

var extensionRegistry = map[string]goldmark.Extender{
	"gfm":            extension.GFM,
	"table":          extension.Table,
	"tables":         extension.Table,
	"strikethrough":  extension.Strikethrough,
	"linkify":        extension.Linkify,
	"autolink":       extension.Linkify,
	"tasklist":       extension.TaskList,
	"definition":     extension.DefinitionList,
	"footnote":       extension.Footnote,
	"typographer":    extension.Typographer,
	"definitionlist": extension.DefinitionList,
}

// KnownExtensions lists the extension names accepted in Config.Extensions.
func KnownExtensions() []string {
	return slices.Sorted(maps.Keys(extensionRegistry))
}

func collectExtensions(names []string) []goldmark.Extender {
	if len(names) == 0 {
		return []goldmark.Extender{extension.GFM}
	}

	var extenders []goldmark.Extender
	seen := map[string]struct{}{}
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		ext, ok := extensionRegistry[key]
		if !ok {
			continue
		}
		extenders = append(extenders, ext)
		seen[key] = struct{}{}
	}
	return extenders
}

// nodeText concatenates the literal text beneath n.
func nodeText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := child.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}
