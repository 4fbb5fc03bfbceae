package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"path"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/logging"
	"github.com/goliatone/go-folio/pkg/interfaces"
)

// ErrEnumerated is yielded when a registry is iterated more than once.
var ErrEnumerated = errors.New("source: registry already enumerated")

// DefaultPattern selects markdown files.
const DefaultPattern = "*.md"

// Root declares a content directory and the namespace its files belong to.
type Root struct {
	Namespace content.Namespace
	Dir       string
}

// RawFile is an unparsed content file.
type RawFile struct {
	// Path is slash separated and relative to the registry filesystem.
	Path      string
	Namespace content.Namespace
	Root      string
	Data      []byte
	ModTime   time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithPattern limits discovered files to base names matching pattern.
func WithPattern(pattern string) Option {
	return func(r *Registry) {
		if strings.TrimSpace(pattern) != "" {
			r.pattern = pattern
		}
	}
}

// WithRecursive toggles descending into sub-directories. Defaults to true.
func WithRecursive(recursive bool) Option {
	return func(r *Registry) {
		r.recursive = recursive
	}
}

// WithLogger sets the registry logger.
func WithLogger(logger interfaces.Logger) Option {
	return func(r *Registry) {
		r.logger = logging.OrNoOp(logger)
	}
}

// Registry enumerates content files across namespaced roots. A registry is
// single use: build a new one for every build.
type Registry struct {
	fs        fs.FS
	roots     []Root
	pattern   string
	recursive bool
	logger    interfaces.Logger
	consumed  atomic.Bool
}

// NewRegistry constructs a registry over fsys.
func NewRegistry(fsys fs.FS, roots []Root, opts ...Option) *Registry {
	r := &Registry{
		fs:        fsys,
		roots:     slices.Clone(roots),
		pattern:   DefaultPattern,
		recursive: true,
		logger:    logging.NoOp(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Roots returns the declared roots in order.
func (r *Registry) Roots() []Root {
	return slices.Clone(r.roots)
}

// Enumerate lazily yields every matching file. Roots are visited in declared
// order and files within a root in lexicographic path order. A missing or
// unreadable root yields a *content.SourceReadError and ends the sequence.
func (r *Registry) Enumerate(ctx context.Context) iter.Seq2[RawFile, error] {
	return func(yield func(RawFile, error) bool) {
		if !r.consumed.CompareAndSwap(false, true) {
			yield(RawFile{}, ErrEnumerated)
			return
		}
		for _, root := range r.roots {
			if err := ctx.Err(); err != nil {
				yield(RawFile{}, err)
				return
			}
			files, err := r.list(root)
			if err != nil {
				r.logger.Error("source.root.unreadable", "namespace", root.Namespace, "root", root.Dir, "error", err)
				yield(RawFile{}, err)
				return
			}
			r.logger.Debug("source.root.listed", "namespace", root.Namespace, "root", root.Dir, "count", len(files))
			for _, name := range files {
				if err := ctx.Err(); err != nil {
					yield(RawFile{}, err)
					return
				}
				file, err := r.read(root, name)
				if err != nil {
					yield(RawFile{}, err)
					return
				}
				if !yield(file, nil) {
					return
				}
			}
		}
	}
}

func (r *Registry) list(root Root) ([]string, error) {
	dir := cleanDir(root.Dir)
	info, err := fs.Stat(r.fs, dir)
	if err != nil {
		return nil, &content.SourceReadError{Namespace: root.Namespace, Root: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &content.SourceReadError{Namespace: root.Namespace, Root: dir, Err: fmt.Errorf("not a directory")}
	}

	var files []string
	err = fs.WalkDir(r.fs, dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if p != dir && (!r.recursive || strings.HasPrefix(d.Name(), ".")) {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := path.Match(r.pattern, d.Name()); ok {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, &content.SourceReadError{Namespace: root.Namespace, Root: dir, Err: err}
	}
	slices.Sort(files)
	return files, nil
}

func (r *Registry) read(root Root, name string) (RawFile, error) {
	data, err := fs.ReadFile(r.fs, name)
	if err != nil {
		return RawFile{}, &content.SourceReadError{Namespace: root.Namespace, Root: root.Dir, Path: name, Err: err}
	}
	var modTime time.Time
	if info, err := fs.Stat(r.fs, name); err == nil {
		modTime = info.ModTime()
	}
	return RawFile{
		Path:      name,
		Namespace: root.Namespace,
		Root:      cleanDir(root.Dir),
		Data:      data,
		ModTime:   modTime,
	}, nil
}

func cleanDir(dir string) string {
	dir = path.Clean(strings.TrimPrefix(strings.ReplaceAll(dir, "\\", "/"), "/"))
	if dir == "" {
		return "."
	}
	return dir
}
