package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSourceRead           = errors.New("content: source read failed")
	ErrMalformedFrontmatter = errors.New("content: malformed front matter")
	ErrDuplicateSlug        = errors.New("content: duplicate slug")
	ErrMalformedMath        = errors.New("content: malformed math expression")
	ErrNotFound             = errors.New("content: record not found")
	ErrInvalidQuery         = errors.New("content: invalid query")
)

// SourceReadError reports a missing or unreadable content root. It is fatal to a build.
type SourceReadError struct {
	Namespace Namespace
	Root      string
	Path      string
	Err       error
}

func (e *SourceReadError) Error() string {
	if e == nil {
		return ErrSourceRead.Error()
	}
	target := e.Root
	if e.Path != "" {
		target = e.Path
	}
	msg := fmt.Sprintf("%s: namespace=%s path=%s", ErrSourceRead.Error(), e.Namespace, target)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SourceReadError) Unwrap() []error {
	if e == nil || e.Err == nil {
		return []error{ErrSourceRead}
	}
	return []error{ErrSourceRead, e.Err}
}

// MalformedFrontmatterError excludes a single record from the index.
type MalformedFrontmatterError struct {
	Path   string
	Field  string
	Reason string
	Err    error
}

func (e *MalformedFrontmatterError) Error() string {
	if e == nil {
		return ErrMalformedFrontmatter.Error()
	}
	var b strings.Builder
	b.WriteString(ErrMalformedFrontmatter.Error())
	if e.Path != "" {
		fmt.Fprintf(&b, ": path=%s", e.Path)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field=%s", e.Field)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, ": %s", e.Reason)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *MalformedFrontmatterError) Unwrap() []error {
	if e == nil || e.Err == nil {
		return []error{ErrMalformedFrontmatter}
	}
	return []error{ErrMalformedFrontmatter, e.Err}
}

// DuplicateSlugError lists every path that declares the same blog slug.
type DuplicateSlugError struct {
	Slug  string
	Paths []string
}

func (e *DuplicateSlugError) Error() string {
	if e == nil {
		return ErrDuplicateSlug.Error()
	}
	return fmt.Sprintf("%s: slug=%s paths=[%s]", ErrDuplicateSlug.Error(), e.Slug, strings.Join(e.Paths, ", "))
}

func (e *DuplicateSlugError) Unwrap() error {
	return ErrDuplicateSlug
}

// MalformedMathExpressionError is raised by the math stage when the strict policy is "error".
type MalformedMathExpressionError struct {
	Path       string
	Expression string
	Display    bool
	Reason     string
}

func (e *MalformedMathExpressionError) Error() string {
	if e == nil {
		return ErrMalformedMath.Error()
	}
	kind := "inline"
	if e.Display {
		kind = "display"
	}
	msg := fmt.Sprintf("%s: %s %q", ErrMalformedMath.Error(), kind, e.Expression)
	if e.Path != "" {
		msg += " path=" + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedMathExpressionError) Unwrap() error {
	return ErrMalformedMath
}

// NotFoundError is returned when a slug lookup misses.
type NotFoundError struct {
	Slug string
}

func (e *NotFoundError) Error() string {
	if e == nil || strings.TrimSpace(e.Slug) == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: slug=%s", ErrNotFound.Error(), e.Slug)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// RecordFailure pairs an excluded source path with the reason it was dropped.
type RecordFailure struct {
	Path      string
	Namespace Namespace
	Err       error
}

func (f RecordFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

func (f RecordFailure) Unwrap() error {
	return f.Err
}
