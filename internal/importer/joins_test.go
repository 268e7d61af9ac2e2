package importer

import (
	"context"
	"strings"
	"testing"

	"go-psa/internal/models"
)

func testSchema() *models.SourceSchema {
	return &models.SourceSchema{
		Tables: []models.SourceTable{
			{
				Name: "customers",
				Fields: []models.SourceField{
					{Name: "id"}, {Name: "name"}, {Name: "plan_id"}, {Name: "status"},
				},
			},
			{
				Name: "plans",
				Fields: []models.SourceField{
					{Name: "id"}, {Name: "label"},
				},
			},
		},
	}
}

func testJoinConfig() *models.JoinedTableConfig {
	return &models.JoinedTableConfig{
		PrimaryTable: "customers",
		Joins: []models.JoinedTable{
			{
				Table: "plans",
				Type:  models.JoinLeft,
				Alias: "p",
				Conditions: []models.JoinCondition{
					{SourceField: "plan_id", TargetField: "id", Operator: "eq"},
				},
			},
		},
	}
}

func TestValidateJoinConfig(t *testing.T) {
	schema := testSchema()

	tests := []struct {
		name    string
		mutate  func(cfg *models.JoinedTableConfig)
		wantErr string
	}{
		{
			name:   "valid star",
			mutate: func(cfg *models.JoinedTableConfig) {},
		},
		{
			name:    "unknown primary table",
			mutate:  func(cfg *models.JoinedTableConfig) { cfg.PrimaryTable = "ghosts" },
			wantErr: "primary table",
		},
		{
			name:    "unknown joined table",
			mutate:  func(cfg *models.JoinedTableConfig) { cfg.Joins[0].Table = "ghosts" },
			wantErr: "not found",
		},
		{
			name:    "no conditions",
			mutate:  func(cfg *models.JoinedTableConfig) { cfg.Joins[0].Conditions = nil },
			wantErr: "no conditions",
		},
		{
			name: "source field not in primary",
			mutate: func(cfg *models.JoinedTableConfig) {
				cfg.Joins[0].Conditions[0].SourceField = "label"
			},
			wantErr: "not found in primary table",
		},
		{
			name: "target field not in joined",
			mutate: func(cfg *models.JoinedTableConfig) {
				cfg.Joins[0].Conditions[0].TargetField = "status"
			},
			wantErr: "not found in joined table",
		},
		{
			name: "unknown operator",
			mutate: func(cfg *models.JoinedTableConfig) {
				cfg.Joins[0].Conditions[0].Operator = "between"
			},
			wantErr: "unknown operator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testJoinConfig()
			tt.mutate(cfg)
			err := ValidateJoinConfig(cfg, schema)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestBuildJoinQuery(t *testing.T) {
	schema := testSchema()
	cfg := testJoinConfig()

	query, args, err := BuildJoinQuery(cfg, schema, models.SourceMySQL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(args) != 0 {
		t.Errorf("args = %v, want none without a where clause", args)
	}

	for _, want := range []string{
		"FROM customers",
		"LEFT JOIN plans AS p",
		"ON customers.plan_id = p.id",
		`p.label AS "p.label"`,
		"customers.name",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("query %q missing %q", query, want)
		}
	}
	if strings.Contains(query, "LIMIT") {
		t.Error("limit 0 must not emit a LIMIT clause")
	}
}

func TestBuildJoinQueryWherePlaceholders(t *testing.T) {
	schema := testSchema()
	cfg := testJoinConfig()
	cfg.Where = []models.WhereCondition{
		{Field: "customers.status", Operator: "eq", Value: "active"},
		{Field: "customers.id", Operator: "gt", Value: 100},
	}

	mysqlQuery, args, err := BuildJoinQuery(cfg, schema, models.SourceMySQL, 5)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(mysqlQuery, "customers.status = ? AND customers.id > ?") {
		t.Errorf("mysql query = %q", mysqlQuery)
	}
	if len(args) != 2 || args[0] != "active" {
		t.Errorf("args = %v", args)
	}
	if !strings.HasSuffix(mysqlQuery, "LIMIT 5") {
		t.Errorf("query %q missing limit", mysqlQuery)
	}

	pgQuery, _, err := BuildJoinQuery(cfg, schema, models.SourcePostgreSQL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(pgQuery, "customers.status = $1 AND customers.id > $2") {
		t.Errorf("postgres query = %q", pgQuery)
	}
}

func TestBuildJoinQuerySelectedFields(t *testing.T) {
	schema := testSchema()
	cfg := testJoinConfig()
	cfg.SelectedFields = []string{"name", "p.label"}

	query, _, err := BuildJoinQuery(cfg, schema, models.SourceMySQL, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(query, "customers.name") {
		t.Errorf("query %q missing unprefixed primary field", query)
	}
	if !strings.Contains(query, `p.label AS "p.label"`) {
		t.Errorf("query %q missing aliased joined field", query)
	}
	if strings.Contains(query, "customers.status") {
		t.Error("unselected fields must not be projected")
	}
}

func TestFetchJoinedRejectsNonDatabase(t *testing.T) {
	conn := connectorStub{} // reports SourceCSV
	_, err := FetchJoined(context.Background(), conn, testJoinConfig(), testSchema())
	if err == nil || !strings.Contains(err.Error(), "database") {
		t.Errorf("error = %v, want database-source requirement", err)
	}
}

func TestPreviewJoinFallbackIsApproximate(t *testing.T) {
	conn := connectorStub{rows: []map[string]interface{}{
		{"id": 1, "name": "Acme", "plan_id": 7, "status": "active"},
		{"id": 2, "name": "Globex", "plan_id": 7, "status": "active"},
	}}

	preview, err := PreviewJoin(context.Background(), conn, testJoinConfig(), testSchema(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if !preview.Approximate {
		t.Error("client-side fallback must be labeled approximate")
	}
	if len(preview.Rows) != 2 {
		t.Errorf("rows = %d, want one per primary row", len(preview.Rows))
	}
	for _, row := range preview.Rows {
		if _, ok := row["name"]; !ok {
			t.Error("primary fields must survive the merge")
		}
		if _, ok := row["p.name"]; !ok {
			t.Error("joined fields must be alias-prefixed")
		}
	}
}
