package sitecmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"

	"github.com/goliatone/go-folio/internal/build"
	"github.com/goliatone/go-folio/internal/content"
	"github.com/goliatone/go-folio/internal/routes"
	"github.com/goliatone/go-folio/internal/search"
)

const (
	buildSiteMessageType     = "folio.site.build"
	listRoutesMessageType    = "folio.site.routes"
	queryContentMessageType  = "folio.content.query"
	getPostMessageType       = "folio.content.get_post"
	searchContentMessageType = "folio.content.search"
)

// BuildSiteCommand runs a full build.
type BuildSiteCommand struct {
	// FailOnExcluded turns excluded records into a command failure after the
	// artifacts are written.
	FailOnExcluded bool                `json:"fail_on_excluded,omitempty"`
	ResultCallback func(*build.Result) `json:"-"`
}

// Type implements command.Message.
func (BuildSiteCommand) Type() string { return buildSiteMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (BuildSiteCommand) Validate() error { return nil }

// ListRoutesCommand loads the content and reports the route list without rendering.
type ListRoutesCommand struct {
	ResultCallback func([]routes.Route) `json:"-"`
}

// Type implements command.Message.
func (ListRoutesCommand) Type() string { return listRoutesMessageType }

// Validate satisfies command.Message; there are no payload constraints.
func (ListRoutesCommand) Validate() error { return nil }

// QueryContentCommand selects records of one namespace ordered by a front-matter field.
type QueryContentCommand struct {
	Namespace      string                  `json:"namespace"`
	SortField      string                  `json:"sort_field,omitempty"`
	SortOrder      string                  `json:"sort_order,omitempty"`
	Limit          int                     `json:"limit,omitempty"`
	ResultCallback func([]*content.Record) `json:"-"`
}

// Type implements command.Message.
func (QueryContentCommand) Type() string { return queryContentMessageType }

// Validate ensures the namespace is known and the ordering is well-formed.
func (m QueryContentCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Namespace, validation.Required, validation.By(knownNamespace)),
		validation.Field(&m.SortOrder, validation.In("asc", "desc", "ascending", "descending").
			Error("sort order must be asc or desc")),
		validation.Field(&m.Limit, validation.Min(0)),
	)
}

// Options converts the message into index query options.
func (m QueryContentCommand) Options() (content.QueryOptions, error) {
	order, err := content.ParseSortOrder(m.SortOrder)
	if err != nil {
		return content.QueryOptions{}, err
	}
	return content.QueryOptions{
		Namespace: content.Namespace(strings.TrimSpace(m.Namespace)),
		SortField: strings.TrimSpace(m.SortField),
		SortOrder: order,
		Limit:     m.Limit,
	}, nil
}

// GetPostCommand resolves a single blog post by slug.
type GetPostCommand struct {
	Slug           string                `json:"slug"`
	ResultCallback func(*content.Record) `json:"-"`
}

// Type implements command.Message.
func (GetPostCommand) Type() string { return getPostMessageType }

// Validate ensures the slug is well-formed.
func (m GetPostCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Slug, validation.Required, validation.By(func(value any) error {
			if !slug.IsValid(value.(string)) {
				return validation.NewError("folio.content.get_post.slug_invalid", "slug is not valid")
			}
			return nil
		})),
	)
}

// SearchContentCommand runs a full-text query over the loaded records.
type SearchContentCommand struct {
	Query          string             `json:"query"`
	Namespace      string             `json:"namespace,omitempty"`
	Limit          int                `json:"limit,omitempty"`
	ResultCallback func([]search.Hit) `json:"-"`
}

// Type implements command.Message.
func (SearchContentCommand) Type() string { return searchContentMessageType }

// Validate ensures a query is present and the namespace, when set, is known.
func (m SearchContentCommand) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Query, validation.Required, validation.By(func(value any) error {
			if strings.TrimSpace(value.(string)) == "" {
				return validation.NewError("folio.content.search.query_required", "query is required")
			}
			return nil
		})),
		validation.Field(&m.Namespace, validation.By(knownNamespace)),
		validation.Field(&m.Limit, validation.Min(0)),
	)
}

func knownNamespace(value any) error {
	s, _ := value.(string)
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if !content.Namespace(s).Valid() {
		return validation.NewError("folio.content.namespace_unknown", "namespace must be blog, portfolio or resume")
	}
	return nil
}
