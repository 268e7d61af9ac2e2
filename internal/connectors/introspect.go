package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"go-psa/internal/models"
)

// infraTablePattern matches framework bookkeeping tables that would only
// confuse an operator picking an import source.
var infraTablePattern = regexp.MustCompile(`(?i)^(schema_)?migrations$|migration|session|cache|password_reset|failed_jobs|flyway_|knex_|ar_internal_metadata`)

const unfilteredTableCap = 10

// introspect derives the full source schema. It is all-or-nothing: if any
// table's column query fails the whole introspection fails, because a
// partial schema would silently mislead the mapping step.
func (c *DatabaseConnector) introspect(ctx context.Context, db *sql.DB) (*models.SourceSchema, error) {
	names, err := c.listTables(ctx, db)
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(names))
	for _, n := range names {
		if !infraTablePattern.MatchString(n) {
			filtered = append(filtered, n)
		}
	}
	// If the filter ate everything, show the first few unfiltered tables
	// rather than an empty schema.
	if len(filtered) == 0 {
		filtered = names
		if len(filtered) > unfilteredTableCap {
			filtered = filtered[:unfilteredTableCap]
		}
	}

	schema := &models.SourceSchema{Tables: make([]models.SourceTable, 0, len(filtered))}
	for _, name := range filtered {
		table, err := c.introspectTable(ctx, db, name)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		schema.Tables = append(schema.Tables, *table)
	}

	return schema, nil
}

func (c *DatabaseConnector) listTables(ctx context.Context, db *sql.DB) ([]string, error) {
	var query string
	switch c.cfg.Kind {
	case models.SourcePostgreSQL:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case models.SourceMySQL:
		query = `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_type = 'BASE TABLE'
			ORDER BY table_name`
	case models.SourceSQLite:
		query = `SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (c *DatabaseConnector) introspectTable(ctx context.Context, db *sql.DB, name string) (*models.SourceTable, error) {
	var fields []models.SourceField
	var err error

	if c.cfg.Kind == models.SourceSQLite {
		fields, err = c.sqliteColumns(ctx, db, name)
	} else {
		fields, err = c.informationSchemaColumns(ctx, db, name)
	}
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count records: %w", err)
	}

	return &models.SourceTable{Name: name, Fields: fields, RecordCount: count}, nil
}

func (c *DatabaseConnector) informationSchemaColumns(ctx context.Context, db *sql.DB, table string) ([]models.SourceField, error) {
	var query string
	if c.cfg.Kind == models.SourcePostgreSQL {
		query = `SELECT c.column_name, c.data_type, c.is_nullable,
				COALESCE(c.character_maximum_length, 0),
				EXISTS (
					SELECT 1 FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage kcu
						ON tc.constraint_name = kcu.constraint_name
					WHERE tc.table_name = c.table_name
						AND kcu.column_name = c.column_name
						AND tc.constraint_type = 'PRIMARY KEY'
				),
				EXISTS (
					SELECT 1 FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage kcu
						ON tc.constraint_name = kcu.constraint_name
					WHERE tc.table_name = c.table_name
						AND kcu.column_name = c.column_name
						AND tc.constraint_type = 'FOREIGN KEY'
				)
			FROM information_schema.columns c
			WHERE c.table_name = $1
			ORDER BY c.ordinal_position`
	} else {
		// column_type, not data_type: only column_type carries the display
		// width, and tinyint(1) is how MySQL spells boolean.
		query = `SELECT column_name, column_type, is_nullable,
				COALESCE(character_maximum_length, 0),
				column_key = 'PRI', column_key = 'MUL'
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`
	}

	rows, err := db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var fields []models.SourceField
	for rows.Next() {
		var name, dataType, nullable string
		var maxLength int
		var isPK, isFK bool
		if err := rows.Scan(&name, &dataType, &nullable, &maxLength, &isPK, &isFK); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		fields = append(fields, models.SourceField{
			Name:         name,
			Type:         mapColumnType(dataType),
			Nullable:     strings.EqualFold(nullable, "YES"),
			MaxLength:    maxLength,
			IsPrimaryKey: isPK,
			IsForeignKey: isFK,
		})
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no columns found")
	}
	return fields, rows.Err()
}

func (c *DatabaseConnector) sqliteColumns(ctx context.Context, db *sql.DB, table string) ([]models.SourceField, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var fields []models.SourceField
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		fields = append(fields, models.SourceField{
			Name:         name,
			Type:         mapColumnType(dataType),
			Nullable:     notNull == 0,
			IsPrimaryKey: pk > 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no columns found")
	}

	// PRAGMA foreign_key_list marks the referencing columns.
	fkRows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer fkRows.Close()

	fkCols := map[string]bool{}
	for fkRows.Next() {
		var id, seq int
		var refTable, from, to, onUpdate, onDelete, match string
		if err := fkRows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, err
		}
		fkCols[from] = true
	}
	for i := range fields {
		if fkCols[fields[i].Name] {
			fields[i].IsForeignKey = true
		}
	}

	return fields, fkRows.Err()
}

// mapColumnType normalizes an engine-reported column type to the shared
// field type vocabulary.
func mapColumnType(dbType string) models.FieldType {
	t := strings.ToLower(dbType)
	switch {
	// tinyint(1) is MySQL's boolean; check before the generic int match.
	case strings.Contains(t, "bool"), t == "bit", strings.HasPrefix(t, "tinyint(1)"):
		return models.FieldTypeBoolean
	case strings.Contains(t, "int"), strings.Contains(t, "decimal"), strings.Contains(t, "numeric"),
		strings.Contains(t, "float"), strings.Contains(t, "double"), strings.Contains(t, "real"),
		strings.Contains(t, "serial"), strings.Contains(t, "money"):
		return models.FieldTypeNumber
	case strings.Contains(t, "timestamp"), strings.Contains(t, "datetime"):
		return models.FieldTypeDateTime
	case strings.Contains(t, "date"):
		return models.FieldTypeDate
	case strings.Contains(t, "json"):
		return models.FieldTypeJSON
	case strings.Contains(t, "blob"), strings.Contains(t, "bytea"), strings.Contains(t, "binary"):
		return models.FieldTypeBinary
	default:
		return models.FieldTypeString
	}
}
