package condition

import (
	"testing"

	"go-psa/internal/models"
)

func TestCompileEmptyMatchesEverything(t *testing.T) {
	pred, err := Compile(nil)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := pred(map[string]interface{}{"anything": 1})
	if err != nil || !ok {
		t.Errorf("empty condition set = (%v, %v), want match", ok, err)
	}
}

func TestCompileOperators(t *testing.T) {
	row := map[string]interface{}{
		"status": "active",
		"age":    int64(30),
		"email":  "jane@example.com",
		"vip":    true,
	}

	tests := []struct {
		name  string
		conds []models.WhereCondition
		want  bool
	}{
		{
			name:  "eq match",
			conds: []models.WhereCondition{{Field: "status", Operator: "eq", Value: "active"}},
			want:  true,
		},
		{
			name:  "eq mismatch",
			conds: []models.WhereCondition{{Field: "status", Operator: "eq", Value: "closed"}},
			want:  false,
		},
		{
			name:  "empty operator defaults to eq",
			conds: []models.WhereCondition{{Field: "status", Value: "active"}},
			want:  true,
		},
		{
			name:  "ne",
			conds: []models.WhereCondition{{Field: "status", Operator: "ne", Value: "closed"}},
			want:  true,
		},
		{
			name:  "gt",
			conds: []models.WhereCondition{{Field: "age", Operator: "gt", Value: 18}},
			want:  true,
		},
		{
			name:  "gte boundary",
			conds: []models.WhereCondition{{Field: "age", Operator: "gte", Value: 30}},
			want:  true,
		},
		{
			name:  "lt fails on equal",
			conds: []models.WhereCondition{{Field: "age", Operator: "lt", Value: 30}},
			want:  false,
		},
		{
			name:  "lte",
			conds: []models.WhereCondition{{Field: "age", Operator: "lte", Value: 30}},
			want:  true,
		},
		{
			name:  "contains",
			conds: []models.WhereCondition{{Field: "email", Operator: "contains", Value: "@example"}},
			want:  true,
		},
		{
			name:  "startsWith",
			conds: []models.WhereCondition{{Field: "email", Operator: "startsWith", Value: "jane"}},
			want:  true,
		},
		{
			name:  "endsWith",
			conds: []models.WhereCondition{{Field: "email", Operator: "endsWith", Value: ".com"}},
			want:  true,
		},
		{
			name:  "bool value",
			conds: []models.WhereCondition{{Field: "vip", Operator: "eq", Value: true}},
			want:  true,
		},
		{
			name: "conditions are conjunctive",
			conds: []models.WhereCondition{
				{Field: "status", Operator: "eq", Value: "active"},
				{Field: "age", Operator: "gt", Value: 40},
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred, err := Compile(tt.conds)
			if err != nil {
				t.Fatal(err)
			}
			got, err := pred(row)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCompileRejectsBadConditions(t *testing.T) {
	tests := []struct {
		name  string
		conds []models.WhereCondition
	}{
		{"missing field", []models.WhereCondition{{Operator: "eq", Value: "x"}}},
		{"unknown operator", []models.WhereCondition{{Field: "a", Operator: "regex", Value: "x"}}},
		{"unsupported value type", []models.WhereCondition{{Field: "a", Operator: "eq", Value: []string{"x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compile(tt.conds); err == nil {
				t.Error("expected a compile error")
			}
		})
	}
}

func TestCompiledPredicateIsReusable(t *testing.T) {
	pred, err := Compile([]models.WhereCondition{{Field: "n", Operator: "gt", Value: 5}})
	if err != nil {
		t.Fatal(err)
	}

	for i, tt := range []struct {
		n    int64
		want bool
	}{{10, true}, {3, false}, {6, true}} {
		got, err := pred(map[string]interface{}{"n": tt.n})
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("row %d: predicate = %v, want %v", i, got, tt.want)
		}
	}
}
