// Package folio builds a static portfolio site from markdown content: blog
// posts, portfolio entries and a resume.
package folio

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/goliatone/go-folio/internal/build"
	"github.com/goliatone/go-folio/internal/commands"
	sitecmd "github.com/goliatone/go-folio/internal/commands/site"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/internal/search"
	"github.com/goliatone/go-folio/internal/watch"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

var (
	ErrSourceRead           = content.ErrSourceRead
	ErrMalformedFrontmatter = content.ErrMalformedFrontmatter
	ErrDuplicateSlug        = content.ErrDuplicateSlug
	ErrMalformedMath        = content.ErrMalformedMath
	ErrNotFound             = content.ErrNotFound
	ErrInvalidQuery         = content.ErrInvalidQuery
)

type (
	Record       = content.Record
	Namespace    = content.Namespace
	QueryOptions = content.QueryOptions
	SortOrder    = content.SortOrder
	Route        = routes.Route
	BuildResult  = build.Result
	Snapshot     = build.Snapshot
	SearchHit    = search.Hit
)

const (
	NamespaceBlog      = content.NamespaceBlog
	NamespacePortfolio = content.NamespacePortfolio
	NamespaceResume    = content.NamespaceResume
	SortAsc            = content.SortAsc
	SortDesc           = content.SortDesc
)

// Option customises the collaborators of a Module.
type Option func(*options)

type options struct {
	provider  interfaces.LoggerProvider
	source    fs.FS
	processor interfaces.ImageProcessor
	clock     func() time.Time
}

// WithLoggerProvider routes module logs through provider.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(o *options) { o.provider = provider }
}

// WithSource reads content from fsys instead of Content.Dir.
func WithSource(fsys fs.FS) Option {
	return func(o *options) { o.source = fsys }
}

// WithImageProcessor replaces the default image variant generator.
func WithImageProcessor(processor interfaces.ImageProcessor) Option {
	return func(o *options) { o.processor = processor }
}

// WithClock fixes the build time.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// Module represents the top level folio runtime facade.
type Module struct {
	cfg      Config
	provider interfaces.LoggerProvider
	builder  *build.Builder

	buildHandler  *sitecmd.BuildSiteHandler
	routesHandler *sitecmd.ListRoutesHandler
	queryHandler  *sitecmd.QueryContentHandler
	postHandler   *sitecmd.GetPostHandler
	searchHandler *sitecmd.SearchContentHandler
}

// New constructs a module from cfg.
func New(cfg Config, opts ...Option) (*Module, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	buildOpts := []build.Option{build.WithLoggerProvider(o.provider)}
	if o.source != nil {
		buildOpts = append(buildOpts, build.WithSource(o.source))
	}
	if o.processor != nil {
		buildOpts = append(buildOpts, build.WithImageProcessor(o.processor))
	}
	if o.clock != nil {
		buildOpts = append(buildOpts, build.WithClock(o.clock))
	}
	builder, err := build.New(&cfg, buildOpts...)
	if err != nil {
		return nil, err
	}

	logger := commands.CommandLogger(o.provider, "site")
	return &Module{
		cfg:           cfg,
		provider:      o.provider,
		builder:       builder,
		buildHandler:  sitecmd.NewBuildSiteHandler(builder, logger),
		routesHandler: sitecmd.NewListRoutesHandler(builder, logger),
		queryHandler:  sitecmd.NewQueryContentHandler(builder, logger),
		postHandler:   sitecmd.NewGetPostHandler(builder, logger),
		searchHandler: sitecmd.NewSearchContentHandler(builder, logger),
	}, nil
}

// Config returns the configuration the module was built with.
func (m *Module) Config() Config { return m.cfg }

// Builder exposes the underlying builder for advanced integrations.
func (m *Module) Builder() *build.Builder { return m.builder }

// Build runs a full build. With strict set, excluded records fail the call
// after the artifacts are written.
func (m *Module) Build(ctx context.Context, strict bool) (*BuildResult, error) {
	var result *BuildResult
	err := m.buildHandler.Execute(ctx, sitecmd.BuildSiteCommand{
		FailOnExcluded: strict,
		ResultCallback: func(r *build.Result) { result = r },
	})
	return result, err
}

// Load enumerates and indexes the content without rendering.
func (m *Module) Load(ctx context.Context) (*Snapshot, error) {
	return m.builder.Load(ctx)
}

// Routes lists the routes of the current content.
func (m *Module) Routes(ctx context.Context) ([]Route, error) {
	var list []Route
	err := m.routesHandler.Execute(ctx, sitecmd.ListRoutesCommand{
		ResultCallback: func(r []routes.Route) { list = r },
	})
	return list, err
}

// Query selects records of one namespace.
func (m *Module) Query(ctx context.Context, opts QueryOptions) ([]*Record, error) {
	var records []*Record
	err := m.queryHandler.Execute(ctx, sitecmd.QueryContentCommand{
		Namespace:      string(opts.Namespace),
		SortField:      opts.SortField,
		SortOrder:      string(opts.SortOrder),
		Limit:          opts.Limit,
		ResultCallback: func(r []*content.Record) { records = r },
	})
	return records, err
}

// Post resolves a blog post by slug.
func (m *Module) Post(ctx context.Context, slug string) (*Record, error) {
	var record *Record
	err := m.postHandler.Execute(ctx, sitecmd.GetPostCommand{
		Slug:           slug,
		ResultCallback: func(r *content.Record) { record = r },
	})
	return record, err
}

// Search runs a full-text query. An empty namespace searches every namespace.
func (m *Module) Search(ctx context.Context, query string, ns Namespace, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	err := m.searchHandler.Execute(ctx, sitecmd.SearchContentCommand{
		Query:          query,
		Namespace:      string(ns),
		Limit:          limit,
		ResultCallback: func(r []search.Hit) { hits = r },
	})
	return hits, err
}

// WatchDirs returns the directories watched for changes.
func (m *Module) WatchDirs() []string {
	var dirs []string
	for _, root := range m.cfg.ContentRoots() {
		dirs = append(dirs, filepath.Join(m.cfg.Content.Dir, filepath.FromSlash(root.Dir)))
	}
	return dirs
}

// Watch rebuilds the site on every change below the content roots until ctx
// is done. onRebuild, when set, receives each build outcome.
func (m *Module) Watch(ctx context.Context, onRebuild func(*BuildResult, error)) error {
	var last *BuildResult
	w := watch.New(m.WatchDirs(), func(ctx context.Context) error {
		result, err := m.Build(ctx, false)
		last = result
		return err
	},
		watch.WithDebounce(m.cfg.Watch.Debounce),
		watch.WithLogger(logging.WatchLogger(m.provider)),
		watch.OnRebuild(func(err error) {
			if onRebuild != nil {
				onRebuild(last, err)
			}
		}),
	)
	return w.Run(ctx)
}
