// Package validation checks parsed front matter against per-namespace rules
// and optional JSON schemas before a record is admitted to the index.
package validation

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-folio/internal/content"
)

// Validator applies the namespace rules and any registered schema.
type Validator struct {
	rules   map[content.Namespace][]*ozzo.KeyRules
	schemas map[content.Namespace]*Schema
}

// Option configures a Validator.
type Option func(*Validator)

// WithSchema validates records of ns against schema after the built-in rules.
func WithSchema(ns content.Namespace, schema *Schema) Option {
	return func(v *Validator) {
		if schema != nil {
			v.schemas[ns] = schema
		}
	}
}

// NewValidator returns a validator with the built-in rules for each namespace.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		rules:   defaultRules(),
		schemas: map[content.Namespace]*Schema{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func defaultRules() map[content.Namespace][]*ozzo.KeyRules {
	return map[content.Namespace][]*ozzo.KeyRules{
		content.NamespaceBlog: {
			ozzo.Key(content.FieldSlug, ozzo.Required, ozzo.By(validSlug)),
			ozzo.Key(content.FieldTitle, ozzo.Required, ozzo.By(stringValue)),
			ozzo.Key(content.FieldDate, ozzo.Required, ozzo.By(timeValue)),
			ozzo.Key(content.FieldDescription, ozzo.By(stringValue)).Optional(),
		},
		content.NamespacePortfolio: {
			ozzo.Key(content.FieldTitle, ozzo.Required, ozzo.By(stringValue)),
			ozzo.Key(content.FieldStartDate, ozzo.Required, ozzo.By(timeValue)),
			ozzo.Key(content.FieldEndDate, ozzo.By(timeValue)).Optional(),
			ozzo.Key(content.FieldProjectURL, is.URL).Optional(),
			ozzo.Key(content.FieldCoverImg, ozzo.By(stringValue)).Optional(),
		},
		content.NamespaceResume: {
			ozzo.Key(content.FieldDate, ozzo.Required, ozzo.By(timeValue)),
		},
	}
}

// Validate checks the front matter of a record loaded from ns. A record whose
// type tag names another namespace is accepted untouched; the index filters
// it out of type-scoped queries. A missing type tag is malformed.
func (v *Validator) Validate(path string, ns content.Namespace, meta content.Metadata) error {
	typ := strings.TrimSpace(meta.String(content.FieldType))
	if typ == "" {
		return &content.MalformedFrontmatterError{Path: path, Field: content.FieldType, Reason: "type is required"}
	}
	if typ != string(ns) {
		return nil
	}

	if rules := v.rules[ns]; len(rules) > 0 {
		mapRule := ozzo.Map(rules...).AllowExtraKeys()
		if err := ozzo.Validate(map[string]any(meta), mapRule); err != nil {
			return fieldError(path, err)
		}
	}

	if schema := v.schemas[ns]; schema != nil {
		if err := schema.Validate(meta); err != nil {
			field := ""
			if issues := Issues(err); len(issues) > 0 {
				field = strings.TrimPrefix(strings.TrimPrefix(issues[0].Location, "#"), "/")
			}
			return &content.MalformedFrontmatterError{Path: path, Field: field, Reason: "schema " + schema.Name(), Err: err}
		}
	}
	return nil
}

func fieldError(path string, err error) error {
	var errs ozzo.Errors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &content.MalformedFrontmatterError{Path: path, Err: err}
	}
	keys := make([]string, 0, len(errs))
	for key := range errs {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	first := keys[0]
	return &content.MalformedFrontmatterError{Path: path, Field: first, Reason: errs[first].Error(), Err: err}
}

func validSlug(value any) error {
	s, ok := value.(string)
	if !ok {
		return ozzo.NewError("folio.frontmatter.slug_type", "must be a string")
	}
	if !slug.IsValid(s) {
		suggestion, _ := slug.Normalize(s)
		msg := fmt.Sprintf("%q is not a valid slug", s)
		if suggestion != "" && suggestion != s {
			msg += fmt.Sprintf(" (try %q)", suggestion)
		}
		return ozzo.NewError("folio.frontmatter.slug_invalid", msg)
	}
	return nil
}

func stringValue(value any) error {
	if _, ok := value.(string); !ok {
		return ozzo.NewError("folio.frontmatter.string", "must be a string")
	}
	return nil
}

func timeValue(value any) error {
	if _, ok := value.(time.Time); !ok {
		return ozzo.NewError("folio.frontmatter.date", "must be a date")
	}
	return nil
}
