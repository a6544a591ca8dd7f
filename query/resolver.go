package query

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"crm-api/models"
)

// SavedViewSource is the slice of the saved-views store the resolver needs.
// GetByID returns (nil, nil) when the view does not exist.
type SavedViewSource interface {
	GetByID(id int) (*models.SavedView, error)
}

// Input carries the raw view-selection parameters of a list request.
// Every field may be empty; each absent layer simply falls through.
type Input struct {
	ViewID      string // saved view id, as received on the wire
	FiltersJSON string // ad-hoc filter tree, JSON-encoded
	ViewMode    string // legacy "my" switch
	SortJSON    string // {"field": ..., "direction": ...}
}

// Resolved is the outcome of view resolution: a single predicate plus an
// effective sort, already aliased to real column paths.
type Resolved struct {
	Predicate sq.Sqlizer
	SortField string
	SortDir   string
}

// OrderBy renders the resolved sort as an ORDER BY term.
func (r *Resolved) OrderBy() string {
	if r.SortDir == "desc" {
		return r.SortField + " DESC"
	}
	return r.SortField + " ASC"
}

type sortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// Resolver combines a saved view, an ad-hoc filter, the legacy ownership
// switch and a sort override into one predicate and sort per request.
type Resolver struct {
	Views SavedViewSource
}

func NewResolver(views SavedViewSource) *Resolver {
	return &Resolver{Views: views}
}

// Resolve applies the precedence rules:
//
//  1. A resolvable saved view contributes its stored filter; an unresolvable
//     view id contributes nothing (fails open so stale bookmarks keep
//     working). An ad-hoc filter is AND-ed on top, not replaced.
//  2. ViewMode "my" with an authenticated principal AND-s an
//     ownership-equality predicate.
//  3. Sort starts from the schema default, is overridden by the saved view's
//     stored sort, and finally by the request's explicit sort.
//
// Malformed ad-hoc filter or sort JSON is a caller error and surfaces.
func (r *Resolver) Resolve(in Input, schema *Schema, principal *int, now time.Time) (*Resolved, error) {
	compiler := NewCompiler(schema, principal, now)

	var preds []sq.Sqlizer
	var view *models.SavedView

	if in.ViewID != "" {
		if id, err := strconv.Atoi(in.ViewID); err == nil {
			v, err := r.Views.GetByID(id)
			if err != nil {
				return nil, err
			}
			view = v
		}
	}
	if view != nil && len(view.Filters) > 0 {
		node, err := Parse(view.Filters)
		if err != nil {
			return nil, err
		}
		pred, err := compiler.Compile(node)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	if in.FiltersJSON != "" {
		node, err := Parse([]byte(in.FiltersJSON))
		if err != nil {
			return nil, err
		}
		pred, err := compiler.Compile(node)
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}

	if in.ViewMode == "my" && principal != nil {
		if ownerCol, ok := schema.Column("owner"); ok {
			preds = append(preds, sq.Eq{ownerCol: *principal})
		}
	}

	sortField := schema.DefaultSortField
	sortDir := schema.DefaultSortDir
	if view != nil && len(view.Sorting) > 0 {
		var s sortSpec
		// Stored sorting is best-effort: a view with junk sorting keeps
		// its filters and falls back to the default order.
		if err := json.Unmarshal(view.Sorting, &s); err == nil {
			if s.Field != "" {
				sortField = s.Field
			}
			if s.Direction != "" {
				sortDir = s.Direction
			}
		}
	}
	if in.SortJSON != "" {
		var s sortSpec
		if err := json.Unmarshal([]byte(in.SortJSON), &s); err != nil {
			return nil, ErrInvalidFilter
		}
		if s.Field != "" {
			sortField = s.Field
		}
		if s.Direction != "" {
			sortDir = s.Direction
		}
	}

	if !strings.EqualFold(sortDir, "desc") {
		sortDir = "asc"
	} else {
		sortDir = "desc"
	}

	resolved := &Resolved{
		SortField: schema.SortColumn(sortField),
		SortDir:   sortDir,
	}
	switch len(preds) {
	case 0:
		resolved.Predicate = Identity()
	case 1:
		resolved.Predicate = preds[0]
	default:
		resolved.Predicate = sq.And(preds)
	}
	return resolved, nil
}
