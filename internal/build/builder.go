// Package build runs a full site build: enumerate sources, derive records in
// parallel, build the index, generate routes, render pages and write them out.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"time"

	"github.com/goliatone/go-folio/internal/config"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/images"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/markdown"
	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/internal/render"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/internal/source"
	"github.com/goliatone/go-folio/internal/theme"
	"github.com/goliatone/go-folio/internal/validation"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// StylesheetPath is where the code highlight stylesheet is written.
const StylesheetPath = "static/css/chroma.css"

var errConfigRequired = errors.New("build: configuration required")

// Option configures a Builder.
type Option func(*Builder)

// WithSource reads content from fsys instead of the configured content dir.
func WithSource(fsys fs.FS) Option {
	return func(b *Builder) {
		b.source = fsys
	}
}

// WithWriter sends artifacts to w instead of the configured output dir.
func WithWriter(w output.Writer) Option {
	return func(b *Builder) {
		b.writer = w
	}
}

// WithLoggerProvider scopes the build, markdown and render loggers.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(b *Builder) {
		b.provider = provider
	}
}

// WithImageProcessor replaces the default image processor.
func WithImageProcessor(processor interfaces.ImageProcessor) Option {
	return func(b *Builder) {
		b.processor = processor
	}
}

// WithTheme applies t instead of loading build.theme.dir.
func WithTheme(t *theme.Theme) Option {
	return func(b *Builder) {
		b.theme = t
	}
}

// WithClock fixes the build time.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// Builder owns the collaborators of a build. It can run any number of builds;
// each run enumerates the sources afresh.
type Builder struct {
	cfg       config.Config
	source    fs.FS
	writer    output.Writer
	provider  interfaces.LoggerProvider
	processor interfaces.ImageProcessor
	theme     *theme.Theme
	now       func() time.Time

	logger    interfaces.Logger
	validator *validation.Validator
	pipeline  *markdown.Pipeline
	code      *markdown.Code
	templates *render.Templates
}

// New wires a builder from cfg.
func New(cfg *config.Config, opts ...Option) (*Builder, error) {
	if cfg == nil {
		return nil, errConfigRequired
	}
	b := &Builder{cfg: *cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logging.BuildLogger(b.provider)

	if b.source == nil {
		b.source = os.DirFS(b.cfg.Content.Dir)
	}
	if b.writer == nil {
		if b.cfg.Build.DryRun {
			b.writer = output.NewMemoryWriter()
		} else {
			b.writer = output.NewDirWriter(b.cfg.Build.OutputDir)
		}
	}
	if b.processor == nil && b.cfg.Images.Enabled {
		b.processor = images.NewProcessor(b.source, b.writer, images.Config{
			Factors:   b.cfg.Images.Factors,
			OutputDir: b.cfg.Images.OutputDir,
			Quality:   b.cfg.Images.Quality,
		}, images.WithLogger(logging.MarkdownLogger(b.provider)))
	}

	var vopts []validation.Option
	for ns, file := range b.cfg.Content.Schemas {
		schema, err := validation.LoadSchema(b.source, file)
		if err != nil {
			return nil, err
		}
		vopts = append(vopts, validation.WithSchema(content.Namespace(ns), schema))
	}
	b.validator = validation.NewValidator(vopts...)

	if b.theme == nil && b.cfg.Build.Theme.Dir != "" {
		loaded, err := theme.Load(b.cfg.Build.Theme.Dir, b.cfg.Build.Theme.Variant)
		if err != nil {
			return nil, err
		}
		b.theme = loaded
	}
	if b.theme != nil {
		templates, err := b.theme.Templates()
		if err != nil {
			return nil, err
		}
		b.templates = templates
		b.logger.Debug("build.theme.loaded", "theme", b.theme.Name(), "variant", b.theme.Variant(), "assets", len(b.theme.Assets()))
	}

	pipeline, code, err := NewPipeline(b.cfg.Markdown, b.processor, logging.MarkdownLogger(b.provider))
	if err != nil {
		return nil, err
	}
	b.pipeline, b.code = pipeline, code
	return b, nil
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() config.Config { return b.cfg }

// Writer returns the artifact writer.
func (b *Builder) Writer() output.Writer { return b.writer }

// Snapshot is the immutable record set produced by one enumeration.
type Snapshot struct {
	Index       *content.Index
	Records     []*content.Record
	Excluded    []content.RecordFailure
	Diagnostics []markdown.Diagnostic
}

// Result summarizes a build.
type Result struct {
	Records     []*content.Record
	Excluded    []content.RecordFailure
	Routes      []routes.Route
	Pages       []*interfaces.RenderedPage
	Diagnostics []markdown.Diagnostic
	Written     []string
	Skipped     []string
	Removed     []string
	DryRun      bool
	Duration    time.Duration
}

// ExcludedError joins the excluded record failures, or returns nil.
func (r *Result) ExcludedError() error {
	if r == nil || len(r.Excluded) == 0 {
		return nil
	}
	errs := make([]error, len(r.Excluded))
	for i, failure := range r.Excluded {
		errs[i] = failure
	}
	return errors.Join(errs...)
}

func (b *Builder) roots() []source.Root {
	var roots []source.Root
	for _, root := range b.cfg.ContentRoots() {
		roots = append(roots, source.Root{
			Namespace: content.Namespace(root.Namespace),
			Dir:       path.Clean(root.Dir),
		})
	}
	return roots
}

// Load enumerates the sources, derives every record and builds the index.
// Missing roots and duplicate slugs are fatal; malformed records are
// excluded and reported.
func (b *Builder) Load(ctx context.Context) (*Snapshot, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	registry := source.NewRegistry(b.source, b.roots(),
		source.WithPattern(b.cfg.Content.Pattern),
		source.WithRecursive(b.cfg.Content.Recursive),
		source.WithLogger(logging.SourceLogger(b.provider)),
	)

	slots, err := b.derive(ctx, registry)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{}
	for _, s := range slots {
		snap.Diagnostics = append(snap.Diagnostics, s.diagnostics...)
		if s.err != nil {
			b.logger.Warn("build.record.excluded", "path", s.file.Path, "namespace", s.file.Namespace, "error", s.err)
			snap.Excluded = append(snap.Excluded, content.RecordFailure{Path: s.file.Path, Namespace: s.file.Namespace, Err: s.err})
			continue
		}
		snap.Records = append(snap.Records, s.record)
	}

	idx, err := content.NewIndex(snap.Records)
	if err != nil {
		b.logger.Error("build.index.failed", "error", err)
		return nil, err
	}
	snap.Index = idx
	b.logger.Info("build.index.ready", "records", idx.Len(), "excluded", len(snap.Excluded))
	return snap, nil
}

// Build runs a complete build and writes its artifacts.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := b.now()

	snap, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Records:     snap.Records,
		Excluded:    snap.Excluded,
		Diagnostics: snap.Diagnostics,
		DryRun:      b.cfg.Build.DryRun,
	}

	result.Routes, err = routes.All(snap.Index)
	if err != nil {
		b.logger.Error("build.routes.failed", "error", err)
		return nil, err
	}

	pages, err := b.renderPages(ctx, snap.Index, result.Routes, start)
	if err != nil {
		return nil, err
	}
	result.Pages = pages
	for _, page := range pages {
		if page.NotFound {
			result.Diagnostics = append(result.Diagnostics, markdown.Diagnostic{
				Stage:   "render",
				Path:    page.Path,
				Message: "record not found, rendered the not-found page",
			})
		}
	}

	if err := b.writeArtifacts(ctx, result, start); err != nil {
		return nil, err
	}

	result.Duration = b.now().Sub(start)
	b.logger.Info("build.completed",
		"records", len(result.Records),
		"excluded", len(result.Excluded),
		"pages", len(result.Pages),
		"written", len(result.Written),
		"skipped", len(result.Skipped),
		"duration", result.Duration,
	)
	return result, nil
}

func (b *Builder) workers() int {
	if b.cfg.Build.Workers > 0 {
		return b.cfg.Build.Workers
	}
	return 1
}

func wrapFatal(stage string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("build %s: %w", stage, err)
}
