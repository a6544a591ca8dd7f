package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Filter documents arrive as untrusted JSON from saved views, ad-hoc list
// parameters and stored workflows:
//
//	{ "logic": "AND"|"OR", "conditions": [ <group> | <condition>, ... ] }
//	{ "field": "name", "operator": "icontains", "value": "acme" }
//
// A node is a group iff it carries a "logic" key. The key's presence is the
// structural discriminator; a condition can never have a field named "logic".

var (
	ErrInvalidFilter       = errors.New("invalid filter document")
	ErrTooDeep             = errors.New("filter nesting too deep")
	ErrUnknownField        = errors.New("unknown filter field")
	ErrUnknownOperator     = errors.New("unknown filter operator")
	ErrUnresolvedPrincipal = errors.New(`filter uses "me" but no acting user is set`)
	ErrBadBetweenValue     = errors.New("between requires a two-element value")
)

// MaxDepth bounds group nesting to keep adversarial input from exhausting the
// stack during compilation.
const MaxDepth = 32

const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Node is one vertex of the filter tree: either a group (Logic + Conditions)
// or a single condition (Field/Operator/Value).
type Node struct {
	Logic      string
	Conditions []*Node

	Field    string
	Operator string
	Value    any

	group bool
}

// IsGroup reports whether the node was parsed as a nested group.
func (n *Node) IsGroup() bool { return n.group }

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}
	if logicRaw, ok := raw["logic"]; ok {
		n.group = true
		if err := json.Unmarshal(logicRaw, &n.Logic); err != nil {
			return fmt.Errorf("%w: logic must be a string", ErrInvalidFilter)
		}
		if condRaw, ok := raw["conditions"]; ok {
			if err := json.Unmarshal(condRaw, &n.Conditions); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
			}
		}
		return nil
	}
	n.group = false
	if fieldRaw, ok := raw["field"]; ok {
		if err := json.Unmarshal(fieldRaw, &n.Field); err != nil {
			return fmt.Errorf("%w: field must be a string", ErrInvalidFilter)
		}
	}
	if opRaw, ok := raw["operator"]; ok {
		if err := json.Unmarshal(opRaw, &n.Operator); err != nil {
			return fmt.Errorf("%w: operator must be a string", ErrInvalidFilter)
		}
	}
	if valRaw, ok := raw["value"]; ok {
		if err := json.Unmarshal(valRaw, &n.Value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidFilter, err)
		}
	}
	return nil
}

// normalizedLogic folds the case-insensitive logic value onto the two
// supported connectives; anything unrecognized behaves as AND.
func (n *Node) normalizedLogic() string {
	if strings.EqualFold(n.Logic, LogicOr) {
		return LogicOr
	}
	return LogicAnd
}

// Parse decodes a filter document. Empty input, JSON null and the empty
// object all yield a nil tree, which compiles to the match-everything
// predicate. The top level of a document is always treated as a group:
// a bare condition object at the top contributes nothing.
func Parse(data []byte) (*Node, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidFilter)
	}
	var n Node
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return nil, err
	}
	// Top level is a group even without an explicit "logic" key.
	n.group = true
	if len(n.Conditions) == 0 {
		return nil, nil
	}
	return &n, nil
}

// IsEmpty reports whether raw JSON holds no filter at all. Workflows with
// empty filters match every triggering entity without a database roundtrip.
func IsEmpty(raw json.RawMessage) bool {
	n, err := Parse(raw)
	return err == nil && n == nil
}
