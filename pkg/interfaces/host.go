package interfaces

import (
	"context"
	"time"
)

// RouteContext carries the minimal data a template needs to re-resolve the
// record it renders.
type RouteContext struct {
	Slug string `json:"slug,omitempty"`
}

// PageRequest is a (route, context) pair handed to the page-rendering host.
type PageRequest struct {
	Path     string       `json:"path"`
	Template string       `json:"template"`
	Context  RouteContext `json:"context"`
}

// RenderedPage reports the artifact produced for a single page request.
type RenderedPage struct {
	Path     string
	Template string
	// Output is the rendered HTML document.
	Output       string
	Checksum     string
	LastModified time.Time
	NotFound     bool
}

// PageHost is the page-rendering/templating collaborator that turns route
// requests into final pages.
type PageHost interface {
	RenderPage(ctx context.Context, req PageRequest) (*RenderedPage, error)
}
