package build

import (
	"bytes"
	"context"
	"path"
	"time"

	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/internal/render"
	"github.com/goliatone/go-folio/internal/theme"
)

type cleaner interface {
	Clean() error
}

type artifact struct {
	path        string
	route       string
	template    string
	category    output.Category
	contentType string
	data        []byte
}

func (b *Builder) artifacts(result *Result, generatedAt time.Time) ([]artifact, error) {
	list := make([]artifact, 0, len(result.Pages)+3)
	for _, page := range result.Pages {
		list = append(list, artifact{
			path:        output.PagePath(page.Path),
			route:       page.Path,
			template:    page.Template,
			category:    output.CategoryPage,
			contentType: "text/html; charset=utf-8",
			data:        []byte(page.Output),
		})
	}

	var css bytes.Buffer
	if err := b.code.WriteCSS(&css); err != nil {
		return nil, wrapFatal("stylesheet", err)
	}
	list = append(list, artifact{
		path:        StylesheetPath,
		category:    output.CategoryStylesheet,
		contentType: "text/css; charset=utf-8",
		data:        css.Bytes(),
	})

	if b.theme != nil {
		for _, asset := range b.theme.Assets() {
			data, err := b.theme.ReadAsset(asset)
			if err != nil {
				return nil, wrapFatal("theme", err)
			}
			list = append(list, artifact{
				path:        path.Join(b.cfg.Build.Theme.AssetsDir, asset),
				category:    output.CategoryAsset,
				contentType: theme.ContentType(asset),
				data:        data,
			})
		}
	}

	if b.cfg.Build.Sitemap {
		list = append(list, artifact{
			path:        render.SitemapFile,
			category:    output.CategorySitemap,
			contentType: "application/xml",
			data:        []byte(render.BuildSitemap(b.cfg.Build.BaseURL, result.Pages, generatedAt)),
		})
	}
	if b.cfg.Build.Robots {
		list = append(list, artifact{
			path:        render.RobotsFile,
			category:    output.CategoryRobots,
			contentType: "text/plain; charset=utf-8",
			data:        []byte(render.BuildRobots(b.cfg.Build.BaseURL, b.cfg.Build.Sitemap)),
		})
	}
	return list, nil
}

// writeArtifacts writes pages and site files, skipping those whose checksum
// matches the previous manifest and that are still present in the output
// when incremental builds are enabled.
func (b *Builder) writeArtifacts(ctx context.Context, result *Result, generatedAt time.Time) error {
	if c, ok := b.writer.(cleaner); ok && b.cfg.Build.Clean && !b.cfg.Build.DryRun {
		if err := c.Clean(); err != nil {
			return wrapFatal("clean", err)
		}
	}

	manifest := output.NewManifest()
	reader, _ := b.writer.(output.Reader)
	if reader != nil && b.cfg.Build.Incremental {
		loaded, err := output.LoadManifest(reader)
		if err != nil {
			b.logger.Warn("build.manifest.unreadable", "error", err)
		} else {
			manifest = loaded
		}
	}

	list, err := b.artifacts(result, generatedAt)
	if err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(list))
	for _, a := range list {
		keep[a.path] = struct{}{}
		checksum := output.Checksum(a.data)
		if b.cfg.Build.Incremental && manifest.Unchanged(a.path, checksum) && output.Exists(reader, a.path) {
			result.Skipped = append(result.Skipped, a.path)
			continue
		}
		if err := output.WriteBytes(ctx, b.writer, a.path, a.category, a.contentType, a.data); err != nil {
			b.logger.Error("build.write.failed", "path", a.path, "error", err)
			return wrapFatal("write", err)
		}
		manifest.Set(output.ManifestEntry{
			Output:    a.path,
			Route:     a.route,
			Template:  a.template,
			Category:  a.category,
			Checksum:  checksum,
			WrittenAt: generatedAt,
		})
		result.Written = append(result.Written, a.path)
	}

	result.Removed = manifest.Prune(keep)
	if remover, ok := b.writer.(output.Remover); ok {
		for _, stale := range result.Removed {
			if err := remover.Remove(stale); err != nil {
				return wrapFatal("prune", err)
			}
			b.logger.Debug("build.output.removed", "path", stale)
		}
	}

	manifest.GeneratedAt = generatedAt
	data, err := manifest.Marshal()
	if err != nil {
		return wrapFatal("manifest", err)
	}
	if err := output.WriteBytes(ctx, b.writer, output.ManifestFile, output.CategoryManifest, "application/json", data); err != nil {
		return wrapFatal("manifest", err)
	}
	return nil
}
