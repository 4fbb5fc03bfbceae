package build

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/render"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// NewHost returns the page host used for idx.
func (b *Builder) NewHost(idx *content.Index, generatedAt time.Time) (*render.Host, error) {
	opts := []render.Option{
		render.WithLogger(logging.RenderLogger(b.provider)),
		render.WithBaseURL(b.cfg.Build.BaseURL),
		render.WithStylesheets("/" + StylesheetPath),
		render.WithGeneratedAt(generatedAt),
	}
	if b.theme != nil {
		opts = append(opts,
			render.WithTemplates(b.templates),
			render.WithTheme(b.theme.View(b.cfg.Build.Theme.CSSPrefix, b.cfg.Build.Theme.AssetsDir)),
		)
	}
	return render.NewHost(idx, b.cfg.Site, opts...)
}

// renderPages renders every route concurrently; pages keep route order.
func (b *Builder) renderPages(ctx context.Context, idx *content.Index, list []routes.Route, generatedAt time.Time) ([]*interfaces.RenderedPage, error) {
	host, err := b.NewHost(idx, generatedAt)
	if err != nil {
		return nil, wrapFatal("render", err)
	}
	pages := make([]*interfaces.RenderedPage, len(list))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers())
	for i, route := range list {
		g.Go(func() error {
			page, err := host.RenderPage(gctx, route.Request())
			if err != nil {
				return err
			}
			pages[i] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logger.Error("build.render.failed", "error", err)
		return nil, wrapFatal("render", err)
	}
	return pages, nil
}
