package query

import (
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var compileNow = time.Date(2025, 3, 15, 10, 30, 0, 0, time.UTC)

func compileClients(t *testing.T, raw string, principal *int) (string, []any) {
	t.Helper()
	node, err := Parse([]byte(raw))
	require.NoError(t, err)
	pred, err := NewCompiler(Clients, principal, compileNow).Compile(node)
	require.NoError(t, err)
	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	return sql, args
}

func TestCompileNilTreeIsIdentity(t *testing.T) {
	pred, err := NewCompiler(Clients, nil, compileNow).Compile(nil)
	require.NoError(t, err)
	sql, args, err := pred.ToSql()
	require.NoError(t, err)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)
}

func TestCompileDefaultOperatorIsExact(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"name","value":"Acme"}]}`, nil)
	assert.Equal(t, "(clients.name = ?)", sql)
	assert.Equal(t, []any{"Acme"}, args)
}

func TestCompileTextOperators(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`, nil)
	assert.Equal(t, "(clients.name ILIKE ?)", sql)
	assert.Equal(t, []any{"%acme%"}, args)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"email","operator":"istartswith","value":"info"}]}`, nil)
	assert.Equal(t, "(clients.email ILIKE ?)", sql)
	assert.Equal(t, []any{"info%"}, args)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"name","operator":"contains","value":"Acme"}]}`, nil)
	assert.Equal(t, "(clients.name LIKE ?)", sql)
	assert.Equal(t, []any{"%Acme%"}, args)
}

func TestCompileIsNull(t *testing.T) {
	sql, _ := compileClients(t, `{"logic":"AND","conditions":[{"field":"phone","operator":"isnull","value":true}]}`, nil)
	assert.Equal(t, "(clients.phone IS NULL)", sql)

	// String coercion: "True" counts as true, anything else as false.
	sql, _ = compileClients(t, `{"logic":"AND","conditions":[{"field":"phone","operator":"isnull","value":"True"}]}`, nil)
	assert.Equal(t, "(clients.phone IS NULL)", sql)

	sql, _ = compileClients(t, `{"logic":"AND","conditions":[{"field":"phone","operator":"isnull","value":false}]}`, nil)
	assert.Equal(t, "(clients.phone IS NOT NULL)", sql)

	sql, _ = compileClients(t, `{"logic":"AND","conditions":[{"field":"phone","operator":"isnull","value":"nope"}]}`, nil)
	assert.Equal(t, "(clients.phone IS NOT NULL)", sql)
}

func TestCompileInWrapsScalars(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"id","operator":"in","value":[1,2,3]}]}`, nil)
	assert.Equal(t, "(clients.id IN (?,?,?))", sql)
	assert.Len(t, args, 3)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"id","operator":"in","value":5}]}`, nil)
	assert.Equal(t, "(clients.id IN (?))", sql)
	assert.Len(t, args, 1)
}

func TestCompileBetween(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"between","value":["2025-01-01","2025-02-01"]}]}`, nil)
	assert.Equal(t, "(clients.created_at BETWEEN ? AND ?)", sql)
	assert.Equal(t, []any{"2025-01-01", "2025-02-01"}, args)
}

func TestCompileBetweenRequiresTwoElements(t *testing.T) {
	for _, raw := range []string{
		`{"logic":"AND","conditions":[{"field":"created_at","operator":"between","value":["2025-01-01"]}]}`,
		`{"logic":"AND","conditions":[{"field":"created_at","operator":"between","value":["a","b","c"]}]}`,
		`{"logic":"AND","conditions":[{"field":"created_at","operator":"between","value":"2025-01-01"}]}`,
	} {
		node, err := Parse([]byte(raw))
		require.NoError(t, err)
		_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
		assert.ErrorIs(t, err, ErrBadBetweenValue)
	}
}

func TestCompileRelativeDates(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"today"}]}`, nil)
	assert.Equal(t, "(DATE(clients.created_at) = ?)", sql)
	assert.Equal(t, []any{"2025-03-15"}, args)

	_, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"yesterday"}]}`, nil)
	assert.Equal(t, []any{"2025-03-14"}, args)

	_, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"tomorrow"}]}`, nil)
	assert.Equal(t, []any{"2025-03-16"}, args)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"after_today"}]}`, nil)
	assert.Equal(t, "(DATE(clients.created_at) > ?)", sql)
	assert.Equal(t, []any{"2025-03-15"}, args)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"before_today"}]}`, nil)
	assert.Equal(t, "(DATE(clients.created_at) < ?)", sql)
	assert.Equal(t, []any{"2025-03-15"}, args)
}

func TestCompileRelativeWindows(t *testing.T) {
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"past_n_days","value":7}]}`, nil)
	assert.Equal(t, "(clients.created_at >= ?)", sql)
	assert.Equal(t, []any{compileNow.AddDate(0, 0, -7)}, args)

	sql, args = compileClients(t, `{"logic":"AND","conditions":[{"field":"created_at","operator":"future_n_days","value":"30"}]}`, nil)
	assert.Equal(t, "(clients.created_at <= ?)", sql)
	assert.Equal(t, []any{compileNow.AddDate(0, 0, 30)}, args)
}

func TestCompileWindowRejectsNonInteger(t *testing.T) {
	node, err := Parse([]byte(`{"logic":"AND","conditions":[{"field":"created_at","operator":"past_n_days","value":"soon"}]}`))
	require.NoError(t, err)
	_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestCompilePrincipalMe(t *testing.T) {
	me := 7
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"owner","operator":"exact","value":"me"}]}`, &me)
	assert.Equal(t, "(clients.owner_id = ?)", sql)
	assert.Equal(t, []any{7}, args)

	// Operator is irrelevant on principal fields; the value shape decides.
	sql2, args2 := compileClients(t, `{"logic":"AND","conditions":[{"field":"owner","operator":"icontains","value":"me"}]}`, &me)
	assert.Equal(t, sql, sql2)
	assert.Equal(t, args, args2)
}

func TestCompilePrincipalList(t *testing.T) {
	me := 7
	sql, args := compileClients(t, `{"logic":"AND","conditions":[{"field":"owner","value":["me",3]}]}`, &me)
	assert.Equal(t, "(clients.owner_id IN (?,?))", sql)
	assert.Equal(t, []any{7, float64(3)}, args)
}

func TestCompileMeWithoutPrincipalFailsClosed(t *testing.T) {
	node, err := Parse([]byte(`{"logic":"AND","conditions":[{"field":"owner","value":"me"}]}`))
	require.NoError(t, err)
	_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
	assert.ErrorIs(t, err, ErrUnresolvedPrincipal)

	node, err = Parse([]byte(`{"logic":"AND","conditions":[{"field":"owner","value":["me"]}]}`))
	require.NoError(t, err)
	_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
	assert.ErrorIs(t, err, ErrUnresolvedPrincipal)
}

func TestCompileUnknownFieldAndOperator(t *testing.T) {
	node, err := Parse([]byte(`{"logic":"AND","conditions":[{"field":"password","value":"x"}]}`))
	require.NoError(t, err)
	_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
	assert.ErrorIs(t, err, ErrUnknownField)

	node, err = Parse([]byte(`{"logic":"AND","conditions":[{"field":"name","operator":"regex","value":".*"}]}`))
	require.NoError(t, err)
	_, err = NewCompiler(Clients, nil, compileNow).Compile(node)
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestCompileNestedGroups(t *testing.T) {
	sql, args := compileClients(t, `{
		"logic": "OR",
		"conditions": [
			{"logic": "AND", "conditions": [
				{"field": "name", "operator": "icontains", "value": "acme"},
				{"field": "email", "operator": "exact", "value": "info@acme.test"}
			]},
			{"field": "phone", "operator": "isnull", "value": true}
		]
	}`, nil)
	assert.Equal(t, "((clients.name ILIKE ? AND clients.email = ?) OR clients.phone IS NULL)", sql)
	assert.Equal(t, []any{"%acme%", "info@acme.test"}, args)
}

func TestCompileEmptyNestedGroupIsVacuouslyTrue(t *testing.T) {
	sql, args := compileClients(t, `{
		"logic": "OR",
		"conditions": [
			{"logic": "AND", "conditions": []},
			{"field": "name", "value": "Acme"}
		]
	}`, nil)
	assert.Equal(t, "(TRUE OR clients.name = ?)", sql)
	assert.Equal(t, []any{"Acme"}, args)
}

func TestCompileDepthLimit(t *testing.T) {
	leaf := &Node{Field: "name", Operator: "exact", Value: "x"}
	n := &Node{Logic: LogicAnd, Conditions: []*Node{leaf}, group: true}
	for i := 0; i < MaxDepth+1; i++ {
		n = &Node{Logic: LogicAnd, Conditions: []*Node{n}, group: true}
	}
	_, err := NewCompiler(Clients, nil, compileNow).Compile(n)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestCompiledPredicateEmbedsInSelect(t *testing.T) {
	node, err := Parse([]byte(`{"logic":"AND","conditions":[{"field":"name","operator":"icontains","value":"acme"}]}`))
	require.NoError(t, err)
	pred, err := NewCompiler(Clients, nil, compileNow).Compile(node)
	require.NoError(t, err)

	sql, args, err := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select("clients.id").From("clients").Where(pred).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT clients.id FROM clients WHERE (clients.name ILIKE $1)", sql)
	assert.Equal(t, []any{"%acme%"}, args)
}
