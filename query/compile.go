package query

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Compiler turns a parsed filter tree into a squirrel predicate for one
// entity schema. The evaluation instant is captured once at construction so
// every date-relative condition in a tree refers to the same moment.
type Compiler struct {
	Schema    *Schema
	Principal *int
	Now       time.Time
}

// NewCompiler builds a compiler for the given schema and acting user
// (nil when the request is unauthenticated).
func NewCompiler(schema *Schema, principal *int, now time.Time) *Compiler {
	return &Compiler{Schema: schema, Principal: principal, Now: now}
}

// Identity is the match-everything predicate.
func Identity() sq.Sqlizer { return sq.Expr("TRUE") }

// Compile walks the tree and produces a boolean combination of column
// comparisons. A nil tree compiles to Identity. Compilation is pure: no
// database access, no side effects.
func (c *Compiler) Compile(n *Node) (sq.Sqlizer, error) {
	return c.compile(n, 0)
}

func (c *Compiler) compile(n *Node, depth int) (sq.Sqlizer, error) {
	if n == nil {
		return Identity(), nil
	}
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}
	if !n.IsGroup() {
		return c.compileCondition(n)
	}

	var parts []sq.Sqlizer
	for _, child := range n.Conditions {
		sub, err := c.compile(child, depth+1)
		if err != nil {
			return nil, err
		}
		parts = append(parts, sub)
	}
	// An empty group is vacuously true under either connective.
	if len(parts) == 0 {
		return Identity(), nil
	}
	if n.normalizedLogic() == LogicOr {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

func (c *Compiler) compileCondition(n *Node) (sq.Sqlizer, error) {
	col, ok := c.Schema.Column(n.Field)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, n.Field)
	}

	// Relation-identity fields resolve the "me" token against the acting
	// user and ignore the operator: a scalar compares for equality, a list
	// becomes a membership test.
	if c.Schema.PrincipalFields[n.Field] {
		return c.compilePrincipal(col, n.Value)
	}

	op := n.Operator
	if op == "" {
		op = "exact"
	}
	switch op {
	case "exact":
		return sq.Eq{col: n.Value}, nil
	case "icontains":
		return sq.Expr(col+" ILIKE ?", "%"+fmt.Sprint(n.Value)+"%"), nil
	case "contains":
		return sq.Expr(col+" LIKE ?", "%"+fmt.Sprint(n.Value)+"%"), nil
	case "istartswith":
		return sq.Expr(col+" ILIKE ?", fmt.Sprint(n.Value)+"%"), nil
	case "gt":
		return sq.Gt{col: n.Value}, nil
	case "gte":
		return sq.GtOrEq{col: n.Value}, nil
	case "lt":
		return sq.Lt{col: n.Value}, nil
	case "lte":
		return sq.LtOrEq{col: n.Value}, nil
	case "isnull":
		if truthy(n.Value) {
			return sq.Eq{col: nil}, nil
		}
		return sq.NotEq{col: nil}, nil
	case "in":
		list, ok := n.Value.([]any)
		if !ok {
			list = []any{n.Value}
		}
		return sq.Eq{col: list}, nil
	case "today":
		return c.onDate(col, 0), nil
	case "yesterday":
		return c.onDate(col, -1), nil
	case "tomorrow":
		return c.onDate(col, 1), nil
	case "after_today":
		return sq.Expr("DATE("+col+") > ?", c.date(0)), nil
	case "before_today":
		return sq.Expr("DATE("+col+") < ?", c.date(0)), nil
	case "past_n_days":
		days, err := intValue(n.Value)
		if err != nil {
			return nil, err
		}
		return sq.GtOrEq{col: c.Now.AddDate(0, 0, -days)}, nil
	case "future_n_days":
		days, err := intValue(n.Value)
		if err != nil {
			return nil, err
		}
		return sq.LtOrEq{col: c.Now.AddDate(0, 0, days)}, nil
	case "between":
		list, ok := n.Value.([]any)
		if !ok || len(list) != 2 {
			return nil, ErrBadBetweenValue
		}
		return sq.Expr(col+" BETWEEN ? AND ?", list[0], list[1]), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

func (c *Compiler) compilePrincipal(col string, value any) (sq.Sqlizer, error) {
	if list, ok := value.([]any); ok {
		resolved := make([]any, 0, len(list))
		for _, v := range list {
			if v == "me" {
				if c.Principal == nil {
					return nil, ErrUnresolvedPrincipal
				}
				resolved = append(resolved, *c.Principal)
				continue
			}
			resolved = append(resolved, v)
		}
		return sq.Eq{col: resolved}, nil
	}
	if value == "me" {
		if c.Principal == nil {
			return nil, ErrUnresolvedPrincipal
		}
		return sq.Eq{col: *c.Principal}, nil
	}
	return sq.Eq{col: value}, nil
}

// onDate matches rows whose date component equals the evaluation instant's
// date shifted by the given number of days.
func (c *Compiler) onDate(col string, days int) sq.Sqlizer {
	return sq.Expr("DATE("+col+") = ?", c.date(days))
}

func (c *Compiler) date(days int) string {
	return c.Now.AddDate(0, 0, days).Format("2006-01-02")
}

// truthy coerces isnull values: native booleans pass through, strings match
// "true" case-insensitively, everything else is false.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return strings.EqualFold(t, "true")
	default:
		return false
	}
}

// intValue parses the N of past_n_days/future_n_days. JSON numbers arrive as
// float64, hand-typed values as strings; absent values default to zero.
func intValue(v any) (int, error) {
	switch t := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(t), nil
	case string:
		if t == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(t)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidFilter, t)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: expected an integer value", ErrInvalidFilter)
	}
}
