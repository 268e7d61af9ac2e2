package connectors

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go-psa/internal/models"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// DatabaseConnector serves the MySQL, PostgreSQL and SQLite kinds over
// database/sql. Every method opens its own connection and closes it
// before returning.
type DatabaseConnector struct {
	cfg *models.ConnectionConfig
}

func newDatabaseConnector(cfg *models.ConnectionConfig) *DatabaseConnector {
	return &DatabaseConnector{cfg: cfg}
}

func (c *DatabaseConnector) Kind() models.SourceKind {
	return c.cfg.Kind
}

func (c *DatabaseConnector) open(ctx context.Context) (*sql.DB, error) {
	driver, dsn, err := c.dsn()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func (c *DatabaseConnector) dsn() (driver, dsn string, err error) {
	d := c.cfg.Database
	switch c.cfg.Kind {
	case models.SourcePostgreSQL:
		port := d.Port
		if port == 0 {
			port = 5432
		}
		return "postgres", fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			d.Host, port, d.Username, d.Password, d.Database,
		), nil
	case models.SourceMySQL:
		port := d.Port
		if port == 0 {
			port = 3306
		}
		return "mysql", fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.Username, d.Password, d.Host, port, d.Database,
		), nil
	case models.SourceSQLite:
		return "sqlite3", d.Path, nil
	}
	return "", "", fmt.Errorf("not a database kind: %q", c.cfg.Kind)
}

// TestConnection opens a connection, runs a liveness query, derives the
// schema and closes the connection.
func (c *DatabaseConnector) TestConnection(ctx context.Context) *TestResult {
	start := time.Now()

	db, err := c.open(ctx)
	if err != nil {
		return &TestResult{Success: false, Message: err.Error(), ConnectionTime: time.Since(start)}
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "SELECT 1"); err != nil {
		return &TestResult{Success: false, Message: fmt.Sprintf("liveness check failed: %v", err), ConnectionTime: time.Since(start)}
	}

	schema, err := c.introspect(ctx, db)
	if err != nil {
		return &TestResult{Success: false, Message: fmt.Sprintf("schema introspection failed: %v", err), ConnectionTime: time.Since(start)}
	}

	var total int64
	for _, t := range schema.Tables {
		total += t.RecordCount
	}

	return &TestResult{
		Success:        true,
		Message:        fmt.Sprintf("connected to %s source, %d tables", c.cfg.Kind, len(schema.Tables)),
		ConnectionTime: time.Since(start),
		Schema:         schema,
		RecordCount:    total,
	}
}

func (c *DatabaseConnector) Schema(ctx context.Context) (*models.SourceSchema, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return c.introspect(ctx, db)
}

func (c *DatabaseConnector) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	return c.Query(ctx, fmt.Sprintf("SELECT * FROM %s", table))
}

func (c *DatabaseConnector) TablePreview(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if limit <= 0 {
		limit = 10
	}
	return c.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", table, limit))
}

func (c *DatabaseConnector) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	db, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	return rowsToMaps(rows)
}

// rowsToMaps scans a result set into ordered maps, converting []byte
// column values to strings.
func rowsToMaps(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := []map[string]interface{}{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			if b, ok := val.([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = val
			}
		}

		result = append(result, row)
	}

	return result, rows.Err()
}
