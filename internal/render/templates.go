package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"

	"github.com/goliatone/go-folio/pkg/interfaces"
)

// ErrUnknownTemplate is returned when a route names a template that is not loaded.
var ErrUnknownTemplate = errors.New("render: unknown template")

// LayoutName is the source key of the shared layout.
const LayoutName = "layout"

//go:embed templates/*.html
var embedded embed.FS

// Templates renders pages by executing each page's "content" definition
// inside the shared layout.
type Templates struct {
	pages map[string]*template.Template
}

var _ interfaces.TemplateRenderer = (*Templates)(nil)

// Source locates one template file.
type Source struct {
	FS   fs.FS
	Path string
}

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() (*Templates, error) {
	sources, err := DefaultSources()
	if err != nil {
		return nil, err
	}
	return ParseTemplates(sources)
}

// DefaultSources maps each embedded page name, layout included, to its file.
func DefaultSources() (map[string]Source, error) {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	return Sources(sub)
}

// Sources maps every *.html file in fsys to a page name, the file name
// without extension.
func Sources(fsys fs.FS) (map[string]Source, error) {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, err
	}
	sources := make(map[string]Source, len(files))
	for _, file := range files {
		sources[strings.TrimSuffix(path.Base(file), ".html")] = Source{FS: fsys, Path: file}
	}
	return sources, nil
}

// LoadTemplates parses layout.html and every other *.html file in fsys.
func LoadTemplates(fsys fs.FS) (*Templates, error) {
	sources, err := Sources(fsys)
	if err != nil {
		return nil, err
	}
	return ParseTemplates(sources)
}

// ParseTemplates parses the layout source and clones it once per page.
func ParseTemplates(sources map[string]Source) (*Templates, error) {
	layoutSrc, ok := sources[LayoutName]
	if !ok {
		return nil, fmt.Errorf("render: parse layout: %w: %s", ErrUnknownTemplate, LayoutName)
	}
	layout, err := template.ParseFS(layoutSrc.FS, layoutSrc.Path)
	if err != nil {
		return nil, fmt.Errorf("render: parse layout: %w", err)
	}
	t := &Templates{pages: map[string]*template.Template{}}
	for name, src := range sources {
		if name == LayoutName {
			continue
		}
		page, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := page.ParseFS(src.FS, src.Path); err != nil {
			return nil, fmt.Errorf("render: parse %s: %w", src.Path, err)
		}
		t.pages[name] = page
	}
	return t, nil
}

// Names lists the loaded page templates.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.pages))
	for name := range t.pages {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Render executes the named page.
func (t *Templates) Render(name string, data any, out ...io.Writer) (string, error) {
	page, ok := t.pages[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	var buf bytes.Buffer
	if err := page.ExecuteTemplate(&buf, "layout", data); err != nil {
		return "", fmt.Errorf("render: execute %s: %w", name, err)
	}
	for _, w := range out {
		if w == nil {
			continue
		}
		if _, err := w.Write(buf.Bytes()); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
