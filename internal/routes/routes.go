// Package routes maps the content index to the deterministic list of pages a
// build renders.
package routes

import (
	"fmt"
	"path"
	"strings"

	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

const (
	TemplateIndex     = "index"
	TemplateBlog      = "blog"
	TemplateBlogPost  = "blog-post"
	TemplatePortfolio = "portfolio"
	TemplateResume    = "resume"
	TemplateNotFound  = "404"
)

const (
	PathIndex     = "/"
	PathBlog      = "/blog"
	PathPortfolio = "/portfolio"
	PathResume    = "/resume"
	PathNotFound  = "/404"
)

// Route is a page to render.
type Route struct {
	Path     string                  `json:"path"`
	Template string                  `json:"template"`
	Context  interfaces.RouteContext `json:"context"`
}

// Request converts the route into a page host request.
func (r Route) Request() interfaces.PageRequest {
	return interfaces.PageRequest{Path: r.Path, Template: r.Template, Context: r.Context}
}

// Fixed returns the routes that exist regardless of content.
func Fixed() []Route {
	return []Route{
		{Path: PathIndex, Template: TemplateIndex},
		{Path: PathBlog, Template: TemplateBlog},
		{Path: PathPortfolio, Template: TemplatePortfolio},
		{Path: PathResume, Template: TemplateResume},
		{Path: PathNotFound, Template: TemplateNotFound},
	}
}

// BlogPostPath returns the route path for a blog slug.
func BlogPostPath(slug string) string {
	return path.Join(PathBlog, strings.TrimSpace(slug))
}

// Generate returns one route per blog post, newest first. A failing query is
// fatal to the build.
func Generate(idx *content.Index) ([]Route, error) {
	posts, err := idx.Query(content.QueryOptions{
		Namespace: content.NamespaceBlog,
		SortField: content.FieldDate,
		SortOrder: content.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("routes: query blog posts: %w", err)
	}
	out := make([]Route, 0, len(posts))
	for _, post := range posts {
		slug := post.Slug()
		if slug == "" {
			continue
		}
		out = append(out, Route{
			Path:     BlogPostPath(slug),
			Template: TemplateBlogPost,
			Context:  interfaces.RouteContext{Slug: slug},
		})
	}
	return Dedupe(out), nil
}

// All returns the fixed routes followed by the generated ones.
func All(idx *content.Index) ([]Route, error) {
	generated, err := Generate(idx)
	if err != nil {
		return nil, err
	}
	return Dedupe(append(Fixed(), generated...)), nil
}

// Dedupe keeps the first route for each path.
func Dedupe(in []Route) []Route {
	seen := make(map[string]struct{}, len(in))
	out := make([]Route, 0, len(in))
	for _, route := range in {
		if _, ok := seen[route.Path]; ok {
			continue
		}
		seen[route.Path] = struct{}{}
		out = append(out, route)
	}
	return out
}
