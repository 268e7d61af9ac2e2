package importer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go-psa/internal/connectors"
	"go-psa/internal/models"
)

// joinOperators maps configured join operators to SQL.
var joinOperators = map[string]string{
	"eq": "=", "ne": "<>", "gt": ">", "gte": ">=", "lt": "<", "lte": "<=",
}

var whereOperators = map[string]string{
	"eq": "=", "ne": "<>", "gt": ">", "gte": ">=", "lt": "<", "lte": "<=", "like": "LIKE",
}

// ValidateJoinConfig checks the star invariant against an introspected
// schema: every join condition must reference a field of the primary
// table on one side and a field of that specific joined table on the
// other. Violations are execution-time errors, never a silent empty join.
func ValidateJoinConfig(cfg *models.JoinedTableConfig, schema *models.SourceSchema) error {
	primary := schema.FindTable(cfg.PrimaryTable)
	if primary == nil {
		return fmt.Errorf("primary table %q not found in source schema", cfg.PrimaryTable)
	}

	for _, join := range cfg.Joins {
		joined := schema.FindTable(join.Table)
		if joined == nil {
			return fmt.Errorf("joined table %q not found in source schema", join.Table)
		}
		if len(join.Conditions) == 0 {
			return fmt.Errorf("join to %q has no conditions", join.Table)
		}
		for _, cond := range join.Conditions {
			if primary.FindField(cond.SourceField) == nil {
				return fmt.Errorf("join to %q: field %q not found in primary table %q",
					join.Table, cond.SourceField, cfg.PrimaryTable)
			}
			if joined.FindField(cond.TargetField) == nil {
				return fmt.Errorf("join to %q: field %q not found in joined table",
					join.Table, cond.TargetField)
			}
			if _, ok := joinOperators[cond.Operator]; cond.Operator != "" && !ok {
				return fmt.Errorf("join to %q: unknown operator %q", join.Table, cond.Operator)
			}
		}
	}

	return nil
}

// BuildJoinQuery assembles the star join SQL for the virtual table. The
// primary table's fields are projected unprefixed; joined-table fields
// are aliased as "alias.field". A limit of 0 means no LIMIT clause.
func BuildJoinQuery(cfg *models.JoinedTableConfig, schema *models.SourceSchema, kind models.SourceKind, limit int) (string, []interface{}, error) {
	primary := schema.FindTable(cfg.PrimaryTable)
	if primary == nil {
		return "", nil, fmt.Errorf("primary table %q not found in source schema", cfg.PrimaryTable)
	}

	var query strings.Builder
	query.WriteString("SELECT ")
	query.WriteString(strings.Join(projection(cfg, schema, primary), ", "))
	query.WriteString(fmt.Sprintf(" FROM %s", cfg.PrimaryTable))

	for _, join := range cfg.Joins {
		name := join.Name()
		switch join.Type {
		case models.JoinLeft:
			query.WriteString(" LEFT JOIN ")
		case models.JoinRight:
			query.WriteString(" RIGHT JOIN ")
		case models.JoinFull:
			query.WriteString(" FULL OUTER JOIN ")
		default:
			query.WriteString(" INNER JOIN ")
		}
		query.WriteString(join.Table)
		if join.Alias != "" {
			query.WriteString(" AS " + join.Alias)
		}

		conds := make([]string, 0, len(join.Conditions))
		for _, cond := range join.Conditions {
			op := joinOperators[cond.Operator]
			if op == "" {
				op = "="
			}
			conds = append(conds, fmt.Sprintf("%s.%s %s %s.%s",
				cfg.PrimaryTable, cond.SourceField, op, name, cond.TargetField))
		}
		query.WriteString(" ON " + strings.Join(conds, " AND "))
	}

	var args []interface{}
	if len(cfg.Where) > 0 {
		clauses := make([]string, 0, len(cfg.Where))
		for i, w := range cfg.Where {
			op := whereOperators[w.Operator]
			if op == "" {
				op = "="
			}
			placeholder := "?"
			if kind == models.SourcePostgreSQL {
				placeholder = fmt.Sprintf("$%d", i+1)
			}
			clauses = append(clauses, fmt.Sprintf("%s %s %s", w.Field, op, placeholder))
			args = append(args, w.Value)
		}
		query.WriteString(" WHERE " + strings.Join(clauses, " AND "))
	}

	if limit > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", limit))
	}

	return query.String(), args, nil
}

// projection expands the field selection. Empty selectedFields means all
// fields from all participating tables.
func projection(cfg *models.JoinedTableConfig, schema *models.SourceSchema, primary *models.SourceTable) []string {
	if len(cfg.SelectedFields) > 0 {
		cols := make([]string, 0, len(cfg.SelectedFields))
		for _, f := range cfg.SelectedFields {
			if table, field, ok := strings.Cut(f, "."); ok {
				cols = append(cols, fmt.Sprintf("%s.%s AS \"%s.%s\"", table, field, table, field))
			} else {
				cols = append(cols, fmt.Sprintf("%s.%s", cfg.PrimaryTable, f))
			}
		}
		return cols
	}

	var cols []string
	for _, f := range primary.Fields {
		cols = append(cols, fmt.Sprintf("%s.%s", cfg.PrimaryTable, f.Name))
	}
	for _, join := range cfg.Joins {
		name := join.Name()
		joined := schema.FindTable(join.Table)
		if joined == nil {
			continue
		}
		for _, f := range joined.Fields {
			cols = append(cols, fmt.Sprintf("%s.%s AS \"%s.%s\"", name, f.Name, name, f.Name))
		}
	}
	return cols
}

// FetchJoined materializes the virtual table for a real execution. Only
// database sources can serve a joined table, and there is no client-side
// fallback on this path.
func FetchJoined(ctx context.Context, conn connectors.Connector, cfg *models.JoinedTableConfig, schema *models.SourceSchema) ([]map[string]interface{}, error) {
	if !conn.Kind().IsDatabase() {
		return nil, fmt.Errorf("joined tables require a database source, got %s", conn.Kind())
	}
	if err := ValidateJoinConfig(cfg, schema); err != nil {
		return nil, err
	}

	query, args, err := BuildJoinQuery(cfg, schema, conn.Kind(), 0)
	if err != nil {
		return nil, err
	}
	return conn.Query(ctx, query, args...)
}

// JoinPreview is the result of previewing a virtual table. Approximate is
// set when the rows come from the client-side fallback, which pairs
// primary rows with randomly chosen joined rows and is materially
// incorrect; interfaces must label it and it is never used for a real
// execution.
type JoinPreview struct {
	Rows        []map[string]interface{} `json:"rows"`
	Approximate bool                     `json:"approximate"`
}

// PreviewJoin attempts a true server-side join first and falls back to
// the client-side approximation when the query fails.
func PreviewJoin(ctx context.Context, conn connectors.Connector, cfg *models.JoinedTableConfig, schema *models.SourceSchema, limit int) (*JoinPreview, error) {
	if limit <= 0 {
		limit = 10
	}

	if conn.Kind().IsDatabase() {
		if err := ValidateJoinConfig(cfg, schema); err != nil {
			return nil, err
		}
		query, args, err := BuildJoinQuery(cfg, schema, conn.Kind(), limit)
		if err == nil {
			if rows, qerr := conn.Query(ctx, query, args...); qerr == nil {
				return &JoinPreview{Rows: rows}, nil
			}
		}
	}

	rows, err := approximateJoin(ctx, conn, cfg, limit)
	if err != nil {
		return nil, err
	}
	return &JoinPreview{Rows: rows, Approximate: true}, nil
}

// approximateJoin pairs each primary row with a random row from each
// joined table. Preview-only.
func approximateJoin(ctx context.Context, conn connectors.Connector, cfg *models.JoinedTableConfig, limit int) ([]map[string]interface{}, error) {
	primaryRows, err := conn.TablePreview(ctx, cfg.PrimaryTable, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to read primary table: %w", err)
	}

	joinedRows := make(map[string][]map[string]interface{}, len(cfg.Joins))
	for _, join := range cfg.Joins {
		rows, err := conn.TablePreview(ctx, join.Table, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to read joined table %s: %w", join.Table, err)
		}
		joinedRows[join.Name()] = rows
	}

	result := make([]map[string]interface{}, 0, len(primaryRows))
	for _, prow := range primaryRows {
		merged := make(map[string]interface{}, len(prow))
		for k, v := range prow {
			merged[k] = v
		}
		for _, join := range cfg.Joins {
			name := join.Name()
			rows := joinedRows[name]
			if len(rows) == 0 {
				continue
			}
			pick := rows[rand.Intn(len(rows))]
			for k, v := range pick {
				merged[name+"."+k] = v
			}
		}
		result = append(result, merged)
	}

	return result, nil
}
