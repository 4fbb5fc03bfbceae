package content

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder selects ascending or descending query results.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder normalises user input into a SortOrder.
func ParseSortOrder(value string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "asc", "ascending":
		return SortAsc, nil
	case "desc", "descending":
		return SortDesc, nil
	default:
		return "", fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, value)
	}
}

// QueryOptions selects, orders and truncates records.
type QueryOptions struct {
	Namespace Namespace
	SortField string
	SortOrder SortOrder
	// Limit truncates the sorted result. Zero means no limit.
	Limit int
}

// Index is the immutable record set for one build. It is safe for concurrent reads.
type Index struct {
	records []*Record
	bySlug  map[string]*Record
}

// NewIndex builds an index from records in canonical enumeration order. Blog
// slugs must be unique; collisions yield a *DuplicateSlugError per slug.
func NewIndex(records []*Record) (*Index, error) {
	idx := &Index{
		records: make([]*Record, 0, len(records)),
		bySlug:  make(map[string]*Record),
	}

	paths := map[string][]string{}
	var order []string
	for _, record := range records {
		if record == nil {
			continue
		}
		idx.records = append(idx.records, record)
		if !record.MatchesNamespace(NamespaceBlog) {
			continue
		}
		slug := record.Slug()
		if slug == "" {
			continue
		}
		if _, seen := paths[slug]; !seen {
			order = append(order, slug)
		}
		paths[slug] = append(paths[slug], record.Path)
		if _, exists := idx.bySlug[slug]; !exists {
			idx.bySlug[slug] = record
		}
	}

	var errs []error
	for _, slug := range order {
		if len(paths[slug]) > 1 {
			errs = append(errs, &DuplicateSlugError{Slug: slug, Paths: paths[slug]})
		}
	}
	switch len(errs) {
	case 0:
		return idx, nil
	case 1:
		return nil, errs[0]
	default:
		return nil, errors.Join(errs...)
	}
}

// Len reports the number of records.
func (i *Index) Len() int {
	if i == nil {
		return 0
	}
	return len(i.records)
}

// All returns every record in enumeration order.
func (i *Index) All() []*Record {
	if i == nil {
		return nil
	}
	return slices.Clone(i.records)
}

// GetBySlug returns the blog record declaring slug.
func (i *Index) GetBySlug(slug string) (*Record, error) {
	if i != nil {
		if record, ok := i.bySlug[strings.TrimSpace(slug)]; ok {
			return record, nil
		}
	}
	return nil, &NotFoundError{Slug: slug}
}

// Query returns records loaded from opts.Namespace whose type matches it,
// stably sorted by opts.SortField with missing values last.
func (i *Index) Query(opts QueryOptions) ([]*Record, error) {
	if !opts.Namespace.Valid() {
		return nil, fmt.Errorf("%w: unknown namespace %q", ErrInvalidQuery, opts.Namespace)
	}
	order := opts.SortOrder
	if order == "" {
		order = SortAsc
	}
	if order != SortAsc && order != SortDesc {
		return nil, fmt.Errorf("%w: unknown sort order %q", ErrInvalidQuery, opts.SortOrder)
	}
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, opts.Limit)
	}
	if i == nil {
		return nil, nil
	}

	matched := make([]*Record, 0, len(i.records))
	for _, record := range i.records {
		if record.MatchesNamespace(opts.Namespace) {
			matched = append(matched, record)
		}
	}

	if field := strings.TrimSpace(opts.SortField); field != "" {
		collator := collate.New(language.English, collate.IgnoreCase)
		slices.SortStableFunc(matched, func(a, b *Record) int {
			av, aok := a.FrontMatter[field]
			bv, bok := b.FrontMatter[field]
			switch {
			case !aok && !bok:
				return 0
			case !aok:
				return 1
			case !bok:
				return -1
			}
			cmp := compareValues(av, bv, collator)
			if order == SortDesc {
				return -cmp
			}
			return cmp
		})
	}

	if opts.Limit > 0 && len(matched) > opts.Limit {
		matched = matched[:opts.Limit]
	}
	return matched, nil
}

// compareValues orders like-typed values; mixed types order by kind rank.
func compareValues(a, b any, collator *collate.Collator) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case string:
		if bv, ok := b.(string); ok {
			return collator.CompareString(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	case []string:
		if bv, ok := b.([]string); ok {
			return collator.CompareString(strings.Join(av, ","), strings.Join(bv, ","))
		}
	}
	if af, ok := number(a); ok {
		if bf, ok := number(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	return kindRank(a) - kindRank(b)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func kindRank(v any) int {
	switch v.(type) {
	case time.Time:
		return 0
	case int, int64, float64:
		return 1
	case string:
		return 2
	case bool:
		return 3
	case []string:
		return 4
	default:
		return 5
	}
}
