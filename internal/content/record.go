package content

import (
	"crypto/sha256"
	"fmt"
	"html"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Namespace tags the source directory a record was loaded from.
type Namespace string

const (
	NamespaceBlog      Namespace = "blog"
	NamespacePortfolio Namespace = "portfolio"
	NamespaceResume    Namespace = "resume"
)

// Namespaces lists the known namespaces in declaration order.
func Namespaces() []Namespace {
	return []Namespace{NamespaceBlog, NamespacePortfolio, NamespaceResume}
}

// Valid reports whether n is a known namespace.
func (n Namespace) Valid() bool {
	switch n {
	case NamespaceBlog, NamespacePortfolio, NamespaceResume:
		return true
	default:
		return false
	}
}

func (n Namespace) String() string { return string(n) }

// Front-matter keys with shared meaning across namespaces.
const (
	FieldType        = "type"
	FieldSlug        = "slug"
	FieldTitle       = "title"
	FieldDate        = "date"
	FieldDescription = "description"
	FieldStartDate   = "startDate"
	FieldEndDate     = "endDate"
	FieldProjectURL  = "projectURL"
	FieldCoverImg    = "coverImg"
)

var recordNamespace = uuid.MustParse("8a0c6d1e-3f7b-4d59-9c0e-5b2f1d7a4e63")

// RecordID derives the deterministic identifier for a record.
func RecordID(ns Namespace, p string) uuid.UUID {
	return uuid.NewSHA1(recordNamespace, []byte(string(ns)+":"+p))
}

// RenderFunc derives the HTML for a record. It must depend only on the record's
// raw body and static pipeline configuration.
type RenderFunc func(*Record) (string, error)

// Record is a single parsed content file.
type Record struct {
	ID          uuid.UUID
	Path        string
	Namespace   Namespace
	FrontMatter Metadata
	RawBody     []byte
	Checksum    []byte
	ModTime     time.Time

	render  RenderFunc
	once    sync.Once
	html    string
	htmlErr error
}

// RecordInput carries the pieces needed to build a record.
type RecordInput struct {
	Path        string
	Namespace   Namespace
	FrontMatter Metadata
	Body        []byte
	Source      []byte
	ModTime     time.Time
	Render      RenderFunc
}

// NewRecord assembles a record. The body is copied so later mutation of the
// input slice cannot leak into the record.
func NewRecord(in RecordInput) *Record {
	p := path.Clean(strings.TrimPrefix(in.Path, "/"))
	sum := sha256.Sum256(in.Source)
	return &Record{
		ID:          RecordID(in.Namespace, p),
		Path:        p,
		Namespace:   in.Namespace,
		FrontMatter: in.FrontMatter.Clone(),
		RawBody:     append([]byte(nil), in.Body...),
		Checksum:    sum[:],
		ModTime:     in.ModTime,
		render:      in.Render,
	}
}

// HTML returns the rendered body, computing it on first use.
func (r *Record) HTML() (string, error) {
	r.once.Do(func() {
		if r.render == nil {
			r.htmlErr = fmt.Errorf("content: record %s has no renderer", r.Path)
			return
		}
		r.html, r.htmlErr = r.render(r)
	})
	return r.html, r.htmlErr
}

// Type returns the declared front-matter type tag.
func (r *Record) Type() string {
	return r.FrontMatter.String(FieldType)
}

// Slug returns the declared slug.
func (r *Record) Slug() string {
	return r.FrontMatter.String(FieldSlug)
}

// Title returns the declared title, falling back to a title-cased file name.
func (r *Record) Title() string {
	if title := strings.TrimSpace(r.FrontMatter.String(FieldTitle)); title != "" {
		return title
	}
	return TitleFromPath(r.Path)
}

// Date returns a time-valued front-matter field.
func (r *Record) Date(field string) (time.Time, bool) {
	return r.FrontMatter.Time(field)
}

// MatchesNamespace reports whether the record was loaded from ns and declares it as its type.
func (r *Record) MatchesNamespace(ns Namespace) bool {
	return r.Namespace == ns && r.Type() == string(ns)
}

var excerptPolicy = bluemonday.StrictPolicy()

// Excerpt returns up to n runes of plain text, preferring the description field.
func (r *Record) Excerpt(n int) string {
	text := strings.TrimSpace(r.FrontMatter.String(FieldDescription))
	if text == "" {
		body, err := r.HTML()
		if err != nil {
			return ""
		}
		text = strings.Join(strings.Fields(html.UnescapeString(excerptPolicy.Sanitize(body))), " ")
	}
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:n]), " ")
	return cut + "…"
}

// TitleFromPath turns "blog/my-first_post.md" into "My First Post".
func TitleFromPath(p string) string {
	base := path.Base(p)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	return cases.Title(language.English).String(strings.Join(strings.Fields(base), " "))
}
