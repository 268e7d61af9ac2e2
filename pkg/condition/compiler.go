package condition

import (
	"encoding/json"
	"fmt"
	"strings"

	"go-psa/internal/models"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Predicate evaluates a filter against one row.
type Predicate func(row map[string]interface{}) (bool, error)

// Compile turns where-conditions into a reusable row predicate, backed by
// a compiled Tengo script. Conditions are combined with AND. Used for
// client-side filtering of sources that cannot evaluate WHERE server-side
// (files and APIs).
func Compile(conds []models.WhereCondition) (Predicate, error) {
	if len(conds) == 0 {
		return func(map[string]interface{}) (bool, error) { return true, nil }, nil
	}

	expr, err := buildExpression(conds)
	if err != nil {
		return nil, err
	}

	script := tengo.NewScript([]byte("text := import(\"text\")\nok := " + expr))
	script.SetImports(stdlib.GetModuleMap("text"))
	if err := script.Add("row", map[string]interface{}{}); err != nil {
		return nil, fmt.Errorf("failed to bind row variable: %w", err)
	}

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("failed to compile condition: %w", err)
	}

	return func(row map[string]interface{}) (bool, error) {
		c := compiled.Clone()
		if err := c.Set("row", row); err != nil {
			return false, err
		}
		if err := c.Run(); err != nil {
			return false, fmt.Errorf("condition evaluation failed: %w", err)
		}
		return c.Get("ok").Bool(), nil
	}, nil
}

func buildExpression(conds []models.WhereCondition) (string, error) {
	parts := make([]string, 0, len(conds))
	for _, cond := range conds {
		part, err := buildTerm(cond)
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, " && "), nil
}

func buildTerm(cond models.WhereCondition) (string, error) {
	if cond.Field == "" {
		return "", fmt.Errorf("condition is missing a field")
	}

	field, err := literal(cond.Field)
	if err != nil {
		return "", err
	}
	value, err := literal(cond.Value)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", cond.Field, err)
	}
	access := fmt.Sprintf("row[%s]", field)

	switch cond.Operator {
	case "eq", "":
		return fmt.Sprintf("%s == %s", access, value), nil
	case "ne":
		return fmt.Sprintf("%s != %s", access, value), nil
	case "gt":
		return fmt.Sprintf("%s > %s", access, value), nil
	case "gte":
		return fmt.Sprintf("%s >= %s", access, value), nil
	case "lt":
		return fmt.Sprintf("%s < %s", access, value), nil
	case "lte":
		return fmt.Sprintf("%s <= %s", access, value), nil
	case "contains":
		return fmt.Sprintf("text.contains(string(%s), %s)", access, value), nil
	case "startsWith", "starts_with":
		return fmt.Sprintf("text.has_prefix(string(%s), %s)", access, value), nil
	case "endsWith", "ends_with":
		return fmt.Sprintf("text.has_suffix(string(%s), %s)", access, value), nil
	default:
		return "", fmt.Errorf("unknown operator: %s", cond.Operator)
	}
}

// literal renders a Go value as a Tengo literal. JSON literal syntax for
// strings, numbers and booleans is valid Tengo.
func literal(v interface{}) (string, error) {
	switch v.(type) {
	case string, float64, float32, int, int32, int64, bool, nil:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		if string(b) == "null" {
			return "undefined", nil
		}
		return string(b), nil
	}
	return "", fmt.Errorf("unsupported condition value type %T", v)
}
