package repository

import (
	"context"
	"time"

	"go-psa/internal/models"
)

// ExecutionRepository persists import executions. The engine only ever
// creates and updates-by-id; executions are never deleted here (their
// lifecycle belongs to the surrounding application).
type ExecutionRepository interface {
	Create(ctx context.Context, exec *models.ImportExecution) error
	Get(ctx context.Context, id string) (*models.ImportExecution, error)
	Update(ctx context.Context, exec *models.ImportExecution) error
	List(ctx context.Context, limit int) ([]models.ImportExecution, error)
}

// ExecutionLogRepository is the append-only audit trail sink.
type ExecutionLogRepository interface {
	Append(ctx context.Context, entry *models.ImportExecutionLog) error
	ListByExecution(ctx context.Context, executionID string, limit int) ([]models.ImportExecutionLog, error)
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ConnectionRepository stores saved connection configurations for the
// configuration UI.
type ConnectionRepository interface {
	Create(ctx context.Context, cfg *models.ConnectionConfig) error
	Get(ctx context.Context, id string) (*models.ConnectionConfig, error)
	List(ctx context.Context) ([]models.ConnectionConfig, error)
	Delete(ctx context.Context, id string) error
}

// MappingRepository stores saved mapping sets.
type MappingRepository interface {
	Create(ctx context.Context, set *models.MappingSet) error
	Get(ctx context.Context, id string) (*models.MappingSet, error)
	List(ctx context.Context) ([]models.MappingSet, error)
	Delete(ctx context.Context, id string) error
}

// EntityRepository is the persistence boundary behind the record sink:
// one insert per transformed record into the entity's collection.
// Downstream uniqueness and reference enforcement belongs to the
// application, not the import engine.
type EntityRepository interface {
	Insert(ctx context.Context, entity string, data map[string]interface{}) error
}
