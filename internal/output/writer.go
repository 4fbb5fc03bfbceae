// Package output writes generated artifacts (pages, images, stylesheets,
// sitemap, manifest) below the configured output directory.
package output

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// Category tags a write so writers and manifests can tell artifacts apart.
type Category string

const (
	CategoryPage       Category = "page"
	CategoryImage      Category = "image"
	CategoryAsset      Category = "asset"
	CategoryStylesheet Category = "stylesheet"
	CategorySitemap    Category = "sitemap"
	CategoryRobots     Category = "robots"
	CategoryManifest   Category = "manifest"
)

var (
	ErrMissingContent = errors.New("output: write requires content reader")
	ErrMissingPath    = errors.New("output: write requires path")
	ErrUnsafePath     = errors.New("output: path escapes the output root")
)

// WriteFileRequest describes one artifact routed through a Writer.
type WriteFileRequest struct {
	Path        string
	Content     io.Reader
	Category    Category
	ContentType string
	Checksum    string
}

// Writer abstracts where generated artifacts end up.
type Writer interface {
	EnsureDir(ctx context.Context, path string) error
	WriteFile(ctx context.Context, req WriteFileRequest) error
}

// Reader is implemented by writers that can hand back what they stored.
type Reader interface {
	ReadFile(path string) ([]byte, error)
}

// Exists reports whether p is present in r.
func Exists(r Reader, p string) bool {
	if r == nil {
		return false
	}
	if stater, ok := r.(interface{ Stat(string) (fs.FileInfo, error) }); ok {
		info, err := stater.Stat(p)
		return err == nil && !info.IsDir()
	}
	_, err := r.ReadFile(p)
	return err == nil
}

// Remover is implemented by writers that can delete stale artifacts.
type Remover interface {
	Remove(path string) error
}

func cleanRelative(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", ErrMissingPath
	}
	clean := path.Clean(strings.TrimPrefix(filepath.ToSlash(p), "/"))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, p)
	}
	return clean, nil
}

// DirWriter writes artifacts to a directory on disk. Files are written to a
// temporary sibling and renamed into place.
type DirWriter struct {
	root string
}

// NewDirWriter returns a writer rooted at dir.
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{root: filepath.Clean(dir)}
}

// Root returns the output directory.
func (w *DirWriter) Root() string { return w.root }

func (w *DirWriter) EnsureDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(p) == "" || p == "." {
		return os.MkdirAll(w.root, 0o755)
	}
	clean, err := cleanRelative(p)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(w.root, filepath.FromSlash(clean)), 0o755)
}

func (w *DirWriter) WriteFile(ctx context.Context, req WriteFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return ErrMissingContent
	}
	clean, err := cleanRelative(req.Path)
	if err != nil {
		return err
	}
	target := filepath.Join(w.root, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("output: ensure dir for %s: %w", clean, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".folio-*")
	if err != nil {
		return fmt.Errorf("output: create temp for %s: %w", clean, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, req.Content); err != nil {
		tmp.Close()
		return fmt.Errorf("output: write %s: %w", clean, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("output: close %s: %w", clean, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("output: chmod %s: %w", clean, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("output: rename %s: %w", clean, err)
	}
	return nil
}

func (w *DirWriter) ReadFile(p string) ([]byte, error) {
	clean, err := cleanRelative(p)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(w.root, filepath.FromSlash(clean)))
}

func (w *DirWriter) Stat(p string) (fs.FileInfo, error) {
	clean, err := cleanRelative(p)
	if err != nil {
		return nil, err
	}
	return os.Stat(filepath.Join(w.root, filepath.FromSlash(clean)))
}

// Clean removes everything below the output directory, keeping the directory itself.
func (w *DirWriter) Clean() error {
	entries, err := os.ReadDir(w.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("output: read %s: %w", w.root, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(w.root, entry.Name())); err != nil {
			return fmt.Errorf("output: remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// Remove deletes an artifact below the root. Missing files are ignored.
func (w *DirWriter) Remove(p string) error {
	clean, err := cleanRelative(p)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(w.root, filepath.FromSlash(clean))); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("output: remove %s: %w", clean, err)
	}
	return nil
}

// MemoryWriter keeps artifacts in memory. It backs dry runs and tests.
type MemoryWriter struct {
	mu    sync.RWMutex
	files map[string][]byte
	cats  map[string]Category
	dirs  map[string]struct{}
}

// NewMemoryWriter returns an empty in-memory writer.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		files: map[string][]byte{},
		cats:  map[string]Category{},
		dirs:  map[string]struct{}{},
	}
}

func (w *MemoryWriter) EnsureDir(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(p) == "" || p == "." {
		return nil
	}
	clean, err := cleanRelative(p)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.dirs[clean] = struct{}{}
	w.mu.Unlock()
	return nil
}

func (w *MemoryWriter) WriteFile(ctx context.Context, req WriteFileRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if req.Content == nil {
		return ErrMissingContent
	}
	clean, err := cleanRelative(req.Path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, req.Content); err != nil {
		return fmt.Errorf("output: write %s: %w", clean, err)
	}
	w.mu.Lock()
	w.files[clean] = buf.Bytes()
	w.cats[clean] = req.Category
	w.mu.Unlock()
	return nil
}

func (w *MemoryWriter) ReadFile(p string) ([]byte, error) {
	clean, err := cleanRelative(p)
	if err != nil {
		return nil, err
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	data, ok := w.files[clean]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: clean, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

// Remove deletes a stored artifact. Missing paths are ignored.
func (w *MemoryWriter) Remove(p string) error {
	clean, err := cleanRelative(p)
	if err != nil {
		return err
	}
	w.mu.Lock()
	delete(w.files, clean)
	delete(w.cats, clean)
	w.mu.Unlock()
	return nil
}

// Files lists the stored paths in lexical order.
func (w *MemoryWriter) Files() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	paths := make([]string, 0, len(w.files))
	for p := range w.files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Category reports the category a path was written with.
func (w *MemoryWriter) Category(p string) Category {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cats[p]
}

// NoopWriter discards every write.
type NoopWriter struct{}

func (NoopWriter) EnsureDir(context.Context, string) error { return nil }

func (NoopWriter) WriteFile(context.Context, WriteFileRequest) error { return nil }

// WriteBytes is a convenience wrapper for in-memory content.
func WriteBytes(ctx context.Context, w Writer, p string, category Category, contentType string, data []byte) error {
	if w == nil {
		w = NoopWriter{}
	}
	return w.WriteFile(ctx, WriteFileRequest{
		Path:        p,
		Content:     bytes.NewReader(data),
		Category:    category,
		ContentType: contentType,
		Checksum:    Checksum(data),
	})
}
