// Package theme selects a go-theme manifest and applies it to a build: page
// template overrides, CSS variables, tokens and static assets.
package theme

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	gotheme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-folio/internal/render"
)

var (
	ErrDirRequired      = errors.New("theme: directory required")
	ErrManifestRequired = errors.New("theme: manifest required")
	ErrNameRequired     = errors.New("theme: manifest name required")
)

// DefaultVersion is registered for manifests that omit a version.
const DefaultVersion = "0.0.0"

// TemplatesDir is searched for page overrides the manifest does not name.
const TemplatesDir = "templates"

// Theme is a registered manifest with a resolved variant.
type Theme struct {
	fsys      fs.FS
	selection *gotheme.Selection
}

// Load reads the manifest stored in dir and selects variant. An empty
// variant selects the manifest default.
func Load(dir, variant string) (*Theme, error) {
	cleaned := strings.TrimSpace(dir)
	if cleaned == "" {
		return nil, ErrDirRequired
	}
	fsys := os.DirFS(filepath.Clean(cleaned))
	manifest, err := gotheme.LoadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("theme: load manifest from %s: %w", cleaned, err)
	}
	return New(fsys, manifest, variant)
}

// New registers manifest in a fresh registry and selects variant. Files the
// manifest references are read from fsys.
func New(fsys fs.FS, manifest *gotheme.Manifest, variant string) (*Theme, error) {
	if manifest == nil {
		return nil, ErrManifestRequired
	}
	normalized := *manifest
	normalized.Name = strings.TrimSpace(normalized.Name)
	if normalized.Name == "" {
		return nil, ErrNameRequired
	}
	if strings.TrimSpace(normalized.Version) == "" {
		normalized.Version = DefaultVersion
	}

	registry := gotheme.NewRegistry()
	if err := registry.Register(&normalized); err != nil {
		return nil, fmt.Errorf("theme: register %s: %w", normalized.Name, err)
	}
	variant = strings.TrimSpace(variant)
	selector := gotheme.Selector{
		Registry:       registry,
		DefaultTheme:   normalized.Name,
		DefaultVariant: variant,
	}
	selection, err := selector.Select(normalized.Name, variant)
	if err != nil {
		return nil, fmt.Errorf("theme: select %s: %w", normalized.Name, err)
	}
	return &Theme{fsys: fsys, selection: selection}, nil
}

func (t *Theme) Name() string    { return t.selection.Theme }
func (t *Theme) Variant() string { return t.selection.Variant }

// Templates parses the embedded page set with every page the theme overrides
// swapped in. A page is overridden when the manifest names a template for it
// or when templates/<page>.html exists in the theme.
func (t *Theme) Templates() (*render.Templates, error) {
	sources, err := render.DefaultSources()
	if err != nil {
		return nil, err
	}
	overrides, err := t.Overrides(slices.Sorted(maps.Keys(sources)))
	if err != nil {
		return nil, err
	}
	for name, file := range overrides {
		sources[name] = render.Source{FS: t.fsys, Path: file}
	}
	return render.ParseTemplates(sources)
}

// Overrides resolves the theme file for each page name. A file named by the
// manifest must exist; the conventional path is optional.
func (t *Theme) Overrides(pages []string) (map[string]string, error) {
	out := map[string]string{}
	for _, page := range pages {
		conventional := path.Join(TemplatesDir, page+".html")
		file := strings.TrimPrefix(strings.TrimSpace(t.selection.Template(page, conventional)), "/")
		if _, err := fs.Stat(t.fsys, file); err != nil {
			if file == conventional && errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("theme: template %s for %s: %w", file, page, err)
		}
		out[page] = file
	}
	return out, nil
}

// Assets lists the manifest asset files, variant files merged over the base
// set, de-duplicated and sorted.
func (t *Theme) Assets() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, file := range t.assetFiles() {
		file = strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(file)), "/")
		if file == "" {
			continue
		}
		if _, ok := seen[file]; ok {
			continue
		}
		seen[file] = struct{}{}
		out = append(out, file)
	}
	slices.Sort(out)
	return out
}

func (t *Theme) assetFiles() map[string]string {
	manifest := t.selection.Manifest
	if manifest == nil {
		return nil
	}
	files := manifest.Assets.Files
	if variant := strings.TrimSpace(t.selection.Variant); variant != "" {
		if v, ok := manifest.Variants[variant]; ok && len(v.Assets.Files) > 0 {
			merged := make(map[string]string, len(files)+len(v.Assets.Files))
			for key, file := range files {
				merged[key] = file
			}
			for key, file := range v.Assets.Files {
				merged[key] = file
			}
			files = merged
		}
	}
	return files
}

// ReadAsset returns the content of an asset listed by Assets.
func (t *Theme) ReadAsset(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("theme: invalid asset path %q", name)
	}
	return fs.ReadFile(t.fsys, name)
}

// View builds the template view of the theme. Asset URLs are rooted at
// "/"+assetsDir, where build copies them.
func (t *Theme) View(cssPrefix, assetsDir string) render.ThemeView {
	assets := map[string]string{}
	for key, file := range t.assetFiles() {
		file = strings.TrimPrefix(strings.TrimSpace(filepath.ToSlash(file)), "/")
		if file == "" {
			continue
		}
		assets[key] = "/" + path.Join(assetsDir, file)
	}
	return render.ThemeView{
		Name:    t.selection.Theme,
		Variant: t.selection.Variant,
		Tokens:  t.selection.Tokens(),
		Assets:  assets,
		Style:   rootStyle(t.selection.CSSVariables(cssPrefix)),
	}
}

var cssValueCleaner = strings.NewReplacer(";", "", "{", "", "}", "", "<", "")

// rootStyle declares vars as custom properties on :root in key order.
func rootStyle(vars map[string]string) template.CSS {
	if len(vars) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(":root{")
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		name := strings.TrimSpace(key)
		if !strings.HasPrefix(name, "--") {
			name = "--" + name
		}
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(cssValueCleaner.Replace(vars[key]))
		b.WriteByte(';')
	}
	b.WriteString("}")
	return template.CSS(b.String())
}

// ContentType guesses the content type of an asset from its extension.
func ContentType(asset string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(asset), ".")) {
	case "css":
		return "text/css; charset=utf-8"
	case "js":
		return "application/javascript"
	case "json":
		return "application/json"
	case "svg":
		return "image/svg+xml"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "ico":
		return "image/x-icon"
	case "woff2":
		return "font/woff2"
	default:
		return "application/octet-stream"
	}
}
