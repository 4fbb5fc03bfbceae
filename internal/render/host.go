// Package render is the page host: it resolves each route against the
// content index and renders it through the page templates.
package render

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/goliatone/go-folio/internal/config"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/internal/output"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

const (
	BlogDateLayout    = "January 02, 2006"
	ProjectDateLayout = "January 2006"
)

// PostView is a blog post as templates see it.
type PostView struct {
	Title       string
	Slug        string
	URL         string
	Date        string
	Description string
	HTML        template.HTML
}

// ProjectView is a portfolio entry as templates see it.
type ProjectView struct {
	Title    string
	URL      string
	CoverImg string
	Start    string
	End      string
	HTML     template.HTML
}

// ResumeView is the resume document.
type ResumeView struct {
	Date string
	HTML template.HTML
}

// ThemeView exposes the selected theme to templates. Assets maps manifest
// asset keys to their published URLs; Style holds the :root custom properties.
type ThemeView struct {
	Name    string
	Variant string
	Tokens  map[string]string
	Assets  map[string]string
	Style   template.CSS
}

// PageData is the data contract passed to every page template.
type PageData struct {
	Site        config.SiteMetadata
	Title       string
	Path        string
	Template    string
	Canonical   string
	Year        int
	Stylesheets []string
	Theme       ThemeView
	Post        *PostView
	Posts       []PostView
	Projects    []ProjectView
	Resume      *ResumeView
	NotFound    bool
}

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(h *Host) {
		h.logger = logging.OrNoOp(logger)
	}
}

// WithTemplates replaces the embedded templates.
func WithTemplates(renderer interfaces.TemplateRenderer) Option {
	return func(h *Host) {
		if renderer != nil {
			h.templates = renderer
		}
	}
}

// WithTheme passes the selected theme to every page.
func WithTheme(view ThemeView) Option {
	return func(h *Host) {
		h.theme = view
	}
}

// WithBaseURL sets the origin used for canonical links.
func WithBaseURL(baseURL string) Option {
	return func(h *Host) {
		h.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithStylesheets adds stylesheet links to every page.
func WithStylesheets(hrefs ...string) Option {
	return func(h *Host) {
		h.stylesheets = append(h.stylesheets, hrefs...)
	}
}

// WithGeneratedAt fixes the build time shown in page footers.
func WithGeneratedAt(t time.Time) Option {
	return func(h *Host) {
		h.generatedAt = t
	}
}

// Host implements interfaces.PageHost over a content index.
type Host struct {
	idx         *content.Index
	site        config.SiteMetadata
	templates   interfaces.TemplateRenderer
	logger      interfaces.Logger
	baseURL     string
	stylesheets []string
	theme       ThemeView
	generatedAt time.Time
}

var _ interfaces.PageHost = (*Host)(nil)

// NewHost builds a host rendering pages for idx.
func NewHost(idx *content.Index, site config.SiteMetadata, opts ...Option) (*Host, error) {
	h := &Host{
		idx:         idx,
		site:        site,
		logger:      logging.NoOp(),
		generatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.templates == nil {
		templates, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		h.templates = templates
	}
	return h, nil
}

// RenderPage renders one route. A blog route whose slug is no longer in the
// index renders the not-found page and is flagged, not failed.
func (h *Host) RenderPage(ctx context.Context, req interfaces.PageRequest) (*interfaces.RenderedPage, error) {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	data := PageData{
		Site:        h.site,
		Path:        req.Path,
		Template:    req.Template,
		Year:        h.generatedAt.Year(),
		Stylesheets: h.stylesheets,
		Theme:       h.theme,
	}
	if h.baseURL != "" {
		data.Canonical = h.baseURL + req.Path
	}
	page := &interfaces.RenderedPage{Path: req.Path, Template: req.Template}

	var err error
	switch req.Template {
	case routes.TemplateIndex:
		data.Title = "Home"
	case routes.TemplateBlog:
		data.Title = "Blog"
		data.Posts, err = h.posts()
	case routes.TemplateBlogPost:
		var post *PostView
		var modified time.Time
		post, modified, err = h.post(req.Context.Slug)
		if errors.Is(err, content.ErrNotFound) {
			h.logger.Warn("render.page.not_found", "path", req.Path, "slug", req.Context.Slug)
			page.NotFound = true
			page.Template = routes.TemplateNotFound
			data.Template = routes.TemplateNotFound
			data.Title = "Not Found"
			data.NotFound = true
			err = nil
			break
		}
		if post != nil {
			data.Title = post.Title
			data.Post = post
			page.LastModified = modified
		}
	case routes.TemplatePortfolio:
		data.Title = "Portfolio"
		data.Projects, err = h.projects()
	case routes.TemplateResume:
		data.Title = "Resume"
		data.Resume, err = h.resume()
	case routes.TemplateNotFound:
		data.Title = "Not Found"
		data.NotFound = true
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, req.Template)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.Path, err)
	}

	out, err := h.templates.Render(data.Template, data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", req.Path, err)
	}
	page.Output = out
	page.Checksum = output.Checksum([]byte(out))
	h.logger.Debug("render.page.rendered", "path", req.Path, "template", page.Template, "bytes", len(out))
	return page, nil
}

func (h *Host) posts() ([]PostView, error) {
	records, err := h.idx.Query(content.QueryOptions{
		Namespace: content.NamespaceBlog,
		SortField: content.FieldDate,
		SortOrder: content.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	views := make([]PostView, 0, len(records))
	for _, record := range records {
		views = append(views, postView(record, ""))
	}
	return views, nil
}

func (h *Host) post(slug string) (*PostView, time.Time, error) {
	record, err := h.idx.GetBySlug(slug)
	if err != nil {
		return nil, time.Time{}, err
	}
	body, err := record.HTML()
	if err != nil {
		return nil, time.Time{}, err
	}
	view := postView(record, body)
	modified, _ := record.Date(content.FieldDate)
	return &view, modified, nil
}

func postView(record *content.Record, body string) PostView {
	view := PostView{
		Title:       record.Title(),
		Slug:        record.Slug(),
		URL:         routes.BlogPostPath(record.Slug()),
		Description: record.FrontMatter.String(content.FieldDescription),
		HTML:        template.HTML(body),
	}
	if date, ok := record.Date(content.FieldDate); ok {
		view.Date = date.Format(BlogDateLayout)
	}
	return view
}

func (h *Host) projects() ([]ProjectView, error) {
	records, err := h.idx.Query(content.QueryOptions{
		Namespace: content.NamespacePortfolio,
		SortField: content.FieldStartDate,
		SortOrder: content.SortDesc,
	})
	if err != nil {
		return nil, err
	}
	views := make([]ProjectView, 0, len(records))
	for _, record := range records {
		body, err := record.HTML()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", record.Path, err)
		}
		view := ProjectView{
			Title:    record.Title(),
			URL:      record.FrontMatter.String(content.FieldProjectURL),
			CoverImg: record.FrontMatter.String(content.FieldCoverImg),
			HTML:     template.HTML(body),
		}
		if start, ok := record.Date(content.FieldStartDate); ok {
			view.Start = start.Format(ProjectDateLayout)
		}
		if end, ok := record.Date(content.FieldEndDate); ok {
			view.End = end.Format(ProjectDateLayout)
		}
		views = append(views, view)
	}
	return views, nil
}

func (h *Host) resume() (*ResumeView, error) {
	records, err := h.idx.Query(content.QueryOptions{
		Namespace: content.NamespaceResume,
		SortField: content.FieldDate,
		SortOrder: content.SortDesc,
		Limit:     1,
	})
	if err != nil || len(records) == 0 {
		return nil, err
	}
	body, err := records[0].HTML()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", records[0].Path, err)
	}
	view := &ResumeView{HTML: template.HTML(body)}
	if date, ok := records[0].Date(content.FieldDate); ok {
		view.Date = date.Format(ProjectDateLayout)
	}
	return view, nil
}
