package sitecmd

import (
	"context"
	"errors"
	"strings"

	"github.com/goliatone/go-folio/internal/build"
	"github.com/goliatone/go-folio/internal/commands"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/internal/search"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// ErrSiteRequired is returned when a handler runs without a site to operate on.
var ErrSiteRequired = errors.New("sitecmd: site is required")

// Site is the build surface the handlers drive. *build.Builder satisfies it.
type Site interface {
	Load(ctx context.Context) (*build.Snapshot, error)
	Build(ctx context.Context) (*build.Result, error)
}

// BuildSiteHandler runs builds through the shared command handler.
type BuildSiteHandler struct {
	inner *commands.Handler[BuildSiteCommand]
}

// NewBuildSiteHandler constructs a handler wired to site.
func NewBuildSiteHandler(site Site, logger interfaces.Logger, opts ...commands.HandlerOption[BuildSiteCommand]) *BuildSiteHandler {
	exec := func(ctx context.Context, msg BuildSiteCommand) error {
		if site == nil {
			return ErrSiteRequired
		}
		result, err := site.Build(ctx)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(result)
		}
		if msg.FailOnExcluded {
			return result.ExcludedError()
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[BuildSiteCommand]{
		commands.WithLogger[BuildSiteCommand](logger),
		commands.WithOperation[BuildSiteCommand]("site.build"),
		commands.WithMessageFields(func(msg BuildSiteCommand) map[string]any {
			if msg.FailOnExcluded {
				return map[string]any{"fail_on_excluded": true}
			}
			return nil
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &BuildSiteHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[BuildSiteCommand].
func (h *BuildSiteHandler) Execute(ctx context.Context, msg BuildSiteCommand) error {
	return h.inner.Execute(ctx, msg)
}

// ListRoutesHandler reports the routes of the current content.
type ListRoutesHandler struct {
	inner *commands.Handler[ListRoutesCommand]
}

// NewListRoutesHandler constructs a handler wired to site.
func NewListRoutesHandler(site Site, logger interfaces.Logger, opts ...commands.HandlerOption[ListRoutesCommand]) *ListRoutesHandler {
	exec := func(ctx context.Context, msg ListRoutesCommand) error {
		if site == nil {
			return ErrSiteRequired
		}
		snap, err := site.Load(ctx)
		if err != nil {
			return err
		}
		list, err := routes.All(snap.Index)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(list)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[ListRoutesCommand]{
		commands.WithLogger[ListRoutesCommand](logger),
		commands.WithOperation[ListRoutesCommand]("site.routes"),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &ListRoutesHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[ListRoutesCommand].
func (h *ListRoutesHandler) Execute(ctx context.Context, msg ListRoutesCommand) error {
	return h.inner.Execute(ctx, msg)
}

// QueryContentHandler answers type-scoped index queries.
type QueryContentHandler struct {
	inner *commands.Handler[QueryContentCommand]
}

// NewQueryContentHandler constructs a handler wired to site.
func NewQueryContentHandler(site Site, logger interfaces.Logger, opts ...commands.HandlerOption[QueryContentCommand]) *QueryContentHandler {
	exec := func(ctx context.Context, msg QueryContentCommand) error {
		if site == nil {
			return ErrSiteRequired
		}
		options, err := msg.Options()
		if err != nil {
			return err
		}
		snap, err := site.Load(ctx)
		if err != nil {
			return err
		}
		records, err := snap.Index.Query(options)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(records)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[QueryContentCommand]{
		commands.WithLogger[QueryContentCommand](logger),
		commands.WithOperation[QueryContentCommand]("content.query"),
		commands.WithMessageFields(func(msg QueryContentCommand) map[string]any {
			fields := map[string]any{"namespace": msg.Namespace}
			if msg.SortField != "" {
				fields["sort_field"] = msg.SortField
			}
			if msg.Limit > 0 {
				fields["limit"] = msg.Limit
			}
			return fields
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &QueryContentHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[QueryContentCommand].
func (h *QueryContentHandler) Execute(ctx context.Context, msg QueryContentCommand) error {
	return h.inner.Execute(ctx, msg)
}

// GetPostHandler resolves one blog post by slug.
type GetPostHandler struct {
	inner *commands.Handler[GetPostCommand]
}

// NewGetPostHandler constructs a handler wired to site.
func NewGetPostHandler(site Site, logger interfaces.Logger, opts ...commands.HandlerOption[GetPostCommand]) *GetPostHandler {
	exec := func(ctx context.Context, msg GetPostCommand) error {
		if site == nil {
			return ErrSiteRequired
		}
		snap, err := site.Load(ctx)
		if err != nil {
			return err
		}
		record, err := snap.Index.GetBySlug(msg.Slug)
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(record)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[GetPostCommand]{
		commands.WithLogger[GetPostCommand](logger),
		commands.WithOperation[GetPostCommand]("content.get_post"),
		commands.WithMessageFields(func(msg GetPostCommand) map[string]any {
			return map[string]any{"slug": msg.Slug}
		}),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &GetPostHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[GetPostCommand].
func (h *GetPostHandler) Execute(ctx context.Context, msg GetPostCommand) error {
	return h.inner.Execute(ctx, msg)
}

// SearchContentHandler runs full-text queries against a fresh search index.
type SearchContentHandler struct {
	inner *commands.Handler[SearchContentCommand]
}

// NewSearchContentHandler constructs a handler wired to site.
func NewSearchContentHandler(site Site, logger interfaces.Logger, opts ...commands.HandlerOption[SearchContentCommand]) *SearchContentHandler {
	exec := func(ctx context.Context, msg SearchContentCommand) error {
		if site == nil {
			return ErrSiteRequired
		}
		snap, err := site.Load(ctx)
		if err != nil {
			return err
		}
		idx, err := search.NewIndex(ctx, snap.Index)
		if err != nil {
			return err
		}
		defer idx.Close()

		hits, err := idx.Search(ctx, search.Request{
			Query:     msg.Query,
			Namespace: content.Namespace(strings.TrimSpace(msg.Namespace)),
			Limit:     msg.Limit,
		})
		if err != nil {
			return err
		}
		if msg.ResultCallback != nil {
			msg.ResultCallback(hits)
		}
		return nil
	}

	handlerOpts := []commands.HandlerOption[SearchContentCommand]{
		commands.WithLogger[SearchContentCommand](logger),
		commands.WithOperation[SearchContentCommand]("content.search"),
	}
	handlerOpts = append(handlerOpts, opts...)
	return &SearchContentHandler{inner: commands.NewHandler(exec, handlerOpts...)}
}

// Execute satisfies command.Commander[SearchContentCommand].
func (h *SearchContentHandler) Execute(ctx context.Context, msg SearchContentCommand) error {
	return h.inner.Execute(ctx, msg)
}
