package connectors

import (
	"context"
	"fmt"
	"time"

	"go-psa/internal/models"
)

// TestResult is the outcome of probing a source. Failures are reported in
// Success/Message rather than as an error so a bad config never takes the
// caller down.
type TestResult struct {
	Success        bool                 `json:"success"`
	Message        string               `json:"message"`
	ConnectionTime time.Duration        `json:"connection_time"`
	Schema         *models.SourceSchema `json:"schema,omitempty"`
	RecordCount    int64                `json:"record_count,omitempty"`
}

// Connector abstracts one source kind. Implementations are stateless
// between calls: database connectors open a short-lived connection per
// call and close it before returning, file connectors re-read the file.
// Imports are infrequent, human-initiated operations, so correctness wins
// over connection reuse.
type Connector interface {
	// TestConnection probes the source, derives its schema and counts
	// records. It never returns an error; failures are in the result.
	TestConnection(ctx context.Context) *TestResult

	// Schema derives the source schema. All-or-nothing: if any table's
	// introspection fails, no partial schema is returned.
	Schema(ctx context.Context) (*models.SourceSchema, error)

	// FetchAll materializes every row of the named table in source order.
	FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error)

	// TablePreview returns up to limit rows of the named table.
	TablePreview(ctx context.Context, table string, limit int) ([]map[string]interface{}, error)

	// Query runs a raw query against the source. Only database kinds
	// support it; other kinds return an error.
	Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error)

	Kind() models.SourceKind
}

// New builds the connector for the config's source kind.
func New(cfg *models.ConnectionConfig) (Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch {
	case cfg.Kind.IsDatabase():
		return newDatabaseConnector(cfg), nil
	case cfg.Kind.IsFile():
		return newFileConnector(cfg), nil
	case cfg.Kind == models.SourceREST:
		return newRESTConnector(cfg), nil
	}
	return nil, fmt.Errorf("unsupported source kind: %q", cfg.Kind)
}
