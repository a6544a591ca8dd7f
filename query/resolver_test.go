package query

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-api/models"
)

type fakeViews struct {
	views map[int]*models.SavedView
}

func (f *fakeViews) GetByID(id int) (*models.SavedView, error) {
	return f.views[id], nil
}

func resolveClients(t *testing.T, in Input, views SavedViewSource, principal *int) *Resolved {
	t.Helper()
	r := NewResolver(views)
	resolved, err := r.Resolve(in, Clients, principal, time.Now())
	require.NoError(t, err)
	return resolved
}

func predicateSQL(t *testing.T, resolved *Resolved) (string, []any) {
	t.Helper()
	sql, args, err := resolved.Predicate.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestResolveDefaults(t *testing.T) {
	resolved := resolveClients(t, Input{}, &fakeViews{}, nil)
	sql, _ := predicateSQL(t, resolved)
	assert.Equal(t, "TRUE", sql)
	assert.Equal(t, "clients.name ASC", resolved.OrderBy())
}

func TestResolveSavedViewContributesFilterAndSort(t *testing.T) {
	views := &fakeViews{views: map[int]*models.SavedView{
		4: {
			ID:      4,
			Filters: json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`),
			Sorting: json.RawMessage(`{"field":"created_at","direction":"desc"}`),
		},
	}}
	resolved := resolveClients(t, Input{ViewID: "4"}, views, nil)
	sql, args := predicateSQL(t, resolved)
	assert.Equal(t, "(clients.name ILIKE ?)", sql)
	assert.Equal(t, []any{"%acme%"}, args)
	assert.Equal(t, "clients.created_at DESC", resolved.OrderBy())
}

func TestResolveUnknownViewFailsOpen(t *testing.T) {
	resolved := resolveClients(t, Input{ViewID: "999"}, &fakeViews{}, nil)
	sql, _ := predicateSQL(t, resolved)
	assert.Equal(t, "TRUE", sql)

	// Non-numeric ids behave the same as missing ones.
	resolved = resolveClients(t, Input{ViewID: "latest"}, &fakeViews{}, nil)
	sql, _ = predicateSQL(t, resolved)
	assert.Equal(t, "TRUE", sql)
}

func TestResolveAdHocFiltersStackOnView(t *testing.T) {
	views := &fakeViews{views: map[int]*models.SavedView{
		4: {
			ID:      4,
			Filters: json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`),
		},
	}}
	resolved := resolveClients(t, Input{
		ViewID:      "4",
		FiltersJSON: `{"logic":"AND","conditions":[{"field":"phone","operator":"isnull","value":false}]}`,
	}, views, nil)
	sql, _ := predicateSQL(t, resolved)
	assert.Equal(t, "((clients.name ILIKE ?) AND (clients.phone IS NOT NULL))", sql)
}

func TestResolveMyModeAddsOwnership(t *testing.T) {
	me := 9
	resolved := resolveClients(t, Input{ViewMode: "my"}, &fakeViews{}, &me)
	sql, args := predicateSQL(t, resolved)
	assert.Equal(t, "clients.owner_id = ?", sql)
	assert.Equal(t, []any{9}, args)

	// Unauthenticated "my" contributes nothing rather than erroring.
	resolved = resolveClients(t, Input{ViewMode: "my"}, &fakeViews{}, nil)
	sql, _ = predicateSQL(t, resolved)
	assert.Equal(t, "TRUE", sql)
}

func TestResolveSortPrecedence(t *testing.T) {
	views := &fakeViews{views: map[int]*models.SavedView{
		4: {ID: 4, Sorting: json.RawMessage(`{"field":"created_at","direction":"desc"}`)},
	}}

	// Request sort wins over the view's stored sort.
	resolved := resolveClients(t, Input{
		ViewID:   "4",
		SortJSON: `{"field":"email","direction":"asc"}`,
	}, views, nil)
	assert.Equal(t, "clients.email ASC", resolved.OrderBy())

	// View sort wins over the schema default.
	resolved = resolveClients(t, Input{ViewID: "4"}, views, nil)
	assert.Equal(t, "clients.created_at DESC", resolved.OrderBy())
}

func TestResolveSortAliases(t *testing.T) {
	resolved := resolveClients(t, Input{SortJSON: `{"field":"owner_name","direction":"desc"}`}, &fakeViews{}, nil)
	assert.Equal(t, "users.username DESC", resolved.OrderBy())
}

func TestResolveUnknownSortFieldFallsBack(t *testing.T) {
	resolved := resolveClients(t, Input{SortJSON: `{"field":"secrets; DROP TABLE clients","direction":"desc"}`}, &fakeViews{}, nil)
	assert.Equal(t, "clients.name DESC", resolved.OrderBy())
}

func TestResolveSortDirectionNormalization(t *testing.T) {
	resolved := resolveClients(t, Input{SortJSON: `{"field":"name","direction":"DESC"}`}, &fakeViews{}, nil)
	assert.Equal(t, "clients.name DESC", resolved.OrderBy())

	resolved = resolveClients(t, Input{SortJSON: `{"field":"name","direction":"sideways"}`}, &fakeViews{}, nil)
	assert.Equal(t, "clients.name ASC", resolved.OrderBy())
}

func TestResolveMalformedRequestSortIsAnError(t *testing.T) {
	r := NewResolver(&fakeViews{})
	_, err := r.Resolve(Input{SortJSON: `{"field":`}, Clients, nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestResolveViewWithJunkSortingKeepsFilters(t *testing.T) {
	views := &fakeViews{views: map[int]*models.SavedView{
		4: {
			ID:      4,
			Filters: json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","value":"Acme"}]}`),
			Sorting: json.RawMessage(`"newest first"`),
		},
	}}
	resolved := resolveClients(t, Input{ViewID: "4"}, views, nil)
	sql, _ := predicateSQL(t, resolved)
	assert.Equal(t, "(clients.name = ?)", sql)
	assert.Equal(t, "clients.name ASC", resolved.OrderBy())
}

func TestResolveMalformedAdHocFilterIsAnError(t *testing.T) {
	r := NewResolver(&fakeViews{})
	_, err := r.Resolve(Input{FiltersJSON: `[1,2]`}, Clients, nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidFilter)
}
