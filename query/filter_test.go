package query

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmptyDocuments(t *testing.T) {
	for _, raw := range []string{"", "  ", "null", "{}", `{"logic": "AND", "conditions": []}`} {
		n, err := Parse([]byte(raw))
		require.NoError(t, err, "input %q", raw)
		assert.Nil(t, n, "input %q should yield no tree", raw)
	}
}

func TestParseTopLevelIsAlwaysGroup(t *testing.T) {
	// A bare condition object at the top carries no conditions list and
	// therefore contributes nothing.
	n, err := Parse([]byte(`{"field": "name", "operator": "exact", "value": "Acme"}`))
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestParseGroupAndCondition(t *testing.T) {
	n, err := Parse([]byte(`{
		"logic": "or",
		"conditions": [
			{"field": "name", "operator": "icontains", "value": "acme"},
			{"logic": "AND", "conditions": [{"field": "phone", "operator": "isnull", "value": true}]}
		]
	}`))
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.True(t, n.IsGroup())
	assert.Equal(t, LogicOr, n.normalizedLogic())
	require.Len(t, n.Conditions, 2)

	cond := n.Conditions[0]
	assert.False(t, cond.IsGroup())
	assert.Equal(t, "name", cond.Field)
	assert.Equal(t, "icontains", cond.Operator)
	assert.Equal(t, "acme", cond.Value)

	sub := n.Conditions[1]
	assert.True(t, sub.IsGroup())
	require.Len(t, sub.Conditions, 1)
}

func TestParseRejectsNonObjects(t *testing.T) {
	_, err := Parse([]byte(`[{"field": "name"}]`))
	assert.ErrorIs(t, err, ErrInvalidFilter)

	_, err = Parse([]byte(`"name"`))
	assert.ErrorIs(t, err, ErrInvalidFilter)
}

func TestParseUnrecognizedLogicBehavesAsAnd(t *testing.T) {
	n, err := Parse([]byte(`{"logic": "XOR", "conditions": [{"field": "name", "value": "x"}]}`))
	require.NoError(t, err)
	assert.Equal(t, LogicAnd, n.normalizedLogic())
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(json.RawMessage(`{}`)))
	assert.True(t, IsEmpty(json.RawMessage(`null`)))
	assert.False(t, IsEmpty(json.RawMessage(`{"logic":"AND","conditions":[{"field":"name","value":"x"}]}`)))
	// Malformed input is not empty; it must surface at compile time instead.
	assert.False(t, IsEmpty(json.RawMessage(`[1,2]`)))
}
