// Package search builds an in-memory full-text index over the content index.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/goliatone/go-folio/internal/content"
)

const (
	FieldTitle     = "title"
	FieldBody      = "body"
	FieldNamespace = "namespace"
	FieldSlug      = "slug"
	FieldPath      = "path"
)

// DefaultLimit caps results when no limit is given.
const DefaultLimit = 10

// ErrEmptyQuery is returned for blank search terms.
var ErrEmptyQuery = errors.New("search: empty query")

// Hit is a single search result.
type Hit struct {
	Path      string  `json:"path"`
	Namespace string  `json:"namespace"`
	Slug      string  `json:"slug,omitempty"`
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
}

// Request narrows a search.
type Request struct {
	Query     string
	Namespace content.Namespace
	Limit     int
}

// Index is a read-only search index. It is safe for concurrent searches.
type Index struct {
	index bleve.Index
}

// NewMapping returns the document mapping used for records.
func NewMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	docMapping.AddFieldMappingsAt(FieldTitle, titleField)

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = standard.Name
	bodyField.Store = false
	docMapping.AddFieldMappingsAt(FieldBody, bodyField)

	for _, name := range []string{FieldNamespace, FieldSlug, FieldPath} {
		field := bleve.NewTextFieldMapping()
		field.Analyzer = keyword.Name
		field.Store = true
		docMapping.AddFieldMappingsAt(name, field)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// NewIndex indexes every record of idx that matches its namespace. Bodies are
// indexed as plain text.
func NewIndex(ctx context.Context, idx *content.Index) (*Index, error) {
	index, err := bleve.NewMemOnly(NewMapping())
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}
	batch := index.NewBatch()
	for _, record := range idx.All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !record.MatchesNamespace(record.Namespace) {
			continue
		}
		doc := map[string]any{
			FieldTitle:     record.Title(),
			FieldBody:      record.Excerpt(0),
			FieldNamespace: string(record.Namespace),
			FieldSlug:      record.Slug(),
			FieldPath:      record.Path,
		}
		if err := batch.Index(record.ID.String(), doc); err != nil {
			return nil, fmt.Errorf("search: index %s: %w", record.Path, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("search: commit batch: %w", err)
	}
	return &Index{index: index}, nil
}

// Count reports the number of indexed documents.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Search runs a match query over titles and bodies, titles boosted.
func (i *Index) Search(ctx context.Context, req Request) ([]Hit, error) {
	terms := strings.TrimSpace(req.Query)
	if terms == "" {
		return nil, ErrEmptyQuery
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	titleQuery := bleve.NewMatchQuery(terms)
	titleQuery.SetField(FieldTitle)
	titleQuery.SetBoost(3.0)
	bodyQuery := bleve.NewMatchQuery(terms)
	bodyQuery.SetField(FieldBody)
	var q query.Query = bleve.NewDisjunctionQuery(titleQuery, bodyQuery)

	if req.Namespace != "" {
		if !req.Namespace.Valid() {
			return nil, fmt.Errorf("%w: unknown namespace %q", content.ErrInvalidQuery, req.Namespace)
		}
		nsQuery := bleve.NewTermQuery(string(req.Namespace))
		nsQuery.SetField(FieldNamespace)
		q = bleve.NewConjunctionQuery(q, nsQuery)
	}

	searchReq := bleve.NewSearchRequest(q)
	searchReq.Size = limit
	searchReq.Fields = []string{FieldTitle, FieldNamespace, FieldSlug, FieldPath}
	results, err := i.index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, match := range results.Hits {
		hits = append(hits, Hit{
			Path:      stringField(match.Fields, FieldPath),
			Namespace: stringField(match.Fields, FieldNamespace),
			Slug:      stringField(match.Fields, FieldSlug),
			Title:     stringField(match.Fields, FieldTitle),
			Score:     match.Score,
		})
	}
	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}

func stringField(fields map[string]any, name string) string {
	if value, ok := fields[name].(string); ok {
		return value
	}
	return ""
}
