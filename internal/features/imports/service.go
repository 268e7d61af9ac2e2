package imports

import (
	"context"
	"fmt"
	"sync"

	"go-psa/internal/connectors"
	"go-psa/internal/importer"
	"go-psa/internal/models"
	"go-psa/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ImportService interface {
	TestConnection(ctx context.Context, cfg *models.ConnectionConfig) *connectors.TestResult
	GetSchema(ctx context.Context, connectionID string) (*models.SourceSchema, error)
	TablePreview(ctx context.Context, connectionID, table string, limit int) ([]map[string]interface{}, error)
	PreviewWithConfig(ctx context.Context, cfg *models.ConnectionConfig, table string, limit int) ([]map[string]interface{}, error)
	PreviewJoin(ctx context.Context, connectionID string, cfg *models.JoinedTableConfig, limit int) (*importer.JoinPreview, error)

	SaveConnection(ctx context.Context, cfg *models.ConnectionConfig) error
	GetConnection(ctx context.Context, id string) (*models.ConnectionConfig, error)
	ListConnections(ctx context.Context) ([]models.ConnectionConfig, error)
	DeleteConnection(ctx context.Context, id string) error

	SaveMappingSet(ctx context.Context, set *models.MappingSet) error
	GetMappingSet(ctx context.Context, id string) (*models.MappingSet, error)
	ListMappingSets(ctx context.Context) ([]models.MappingSet, error)
	DeleteMappingSet(ctx context.Context, id string) error

	StartExecution(ctx context.Context, mappingSetID string, dryRun bool) (*models.ImportExecution, error)
	CancelExecution(id string) error
	GetExecution(ctx context.Context, id string) (*models.ImportExecution, error)
	ListExecutions(ctx context.Context, limit int) ([]models.ImportExecution, error)
	GetExecutionLogs(ctx context.Context, id string, limit int) ([]models.ImportExecutionLog, error)
}

type ImportServiceImpl struct {
	ConnRepo    repository.ConnectionRepository
	MappingRepo repository.MappingRepository
	ExecRepo    repository.ExecutionRepository
	LogRepo     repository.ExecutionLogRepository
	Sink        *importer.RecordSink
	Hub         *ProgressHub
	Log         *zap.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
}

func NewImportService(
	connRepo repository.ConnectionRepository,
	mappingRepo repository.MappingRepository,
	execRepo repository.ExecutionRepository,
	logRepo repository.ExecutionLogRepository,
	sink *importer.RecordSink,
	hub *ProgressHub,
	log *zap.Logger,
) ImportService {
	return &ImportServiceImpl{
		ConnRepo:    connRepo,
		MappingRepo: mappingRepo,
		ExecRepo:    execRepo,
		LogRepo:     logRepo,
		Sink:        sink,
		Hub:         hub,
		Log:         log,
		running:     make(map[string]context.CancelFunc),
	}
}

func (s *ImportServiceImpl) TestConnection(ctx context.Context, cfg *models.ConnectionConfig) *connectors.TestResult {
	conn, err := connectors.New(cfg)
	if err != nil {
		return &connectors.TestResult{Success: false, Message: err.Error()}
	}
	return conn.TestConnection(ctx)
}

func (s *ImportServiceImpl) connector(ctx context.Context, connectionID string) (connectors.Connector, error) {
	cfg, err := s.ConnRepo.Get(ctx, connectionID)
	if err != nil {
		return nil, fmt.Errorf("connection not found: %w", err)
	}
	return connectors.New(cfg)
}

func (s *ImportServiceImpl) GetSchema(ctx context.Context, connectionID string) (*models.SourceSchema, error) {
	conn, err := s.connector(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return conn.Schema(ctx)
}

func (s *ImportServiceImpl) TablePreview(ctx context.Context, connectionID, table string, limit int) ([]map[string]interface{}, error) {
	conn, err := s.connector(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	return conn.TablePreview(ctx, table, limit)
}

// PreviewWithConfig previews a table of an unsaved connection. Used by
// the upload flow, where the config exists only in the request.
func (s *ImportServiceImpl) PreviewWithConfig(ctx context.Context, cfg *models.ConnectionConfig, table string, limit int) ([]map[string]interface{}, error) {
	conn, err := connectors.New(cfg)
	if err != nil {
		return nil, err
	}
	return conn.TablePreview(ctx, table, limit)
}

func (s *ImportServiceImpl) PreviewJoin(ctx context.Context, connectionID string, cfg *models.JoinedTableConfig, limit int) (*importer.JoinPreview, error) {
	conn, err := s.connector(ctx, connectionID)
	if err != nil {
		return nil, err
	}
	schema, err := conn.Schema(ctx)
	if err != nil {
		return nil, err
	}
	return importer.PreviewJoin(ctx, conn, cfg, schema, limit)
}

func (s *ImportServiceImpl) SaveConnection(ctx context.Context, cfg *models.ConnectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return s.ConnRepo.Create(ctx, cfg)
}

func (s *ImportServiceImpl) GetConnection(ctx context.Context, id string) (*models.ConnectionConfig, error) {
	return s.ConnRepo.Get(ctx, id)
}

func (s *ImportServiceImpl) ListConnections(ctx context.Context) ([]models.ConnectionConfig, error) {
	return s.ConnRepo.List(ctx)
}

func (s *ImportServiceImpl) DeleteConnection(ctx context.Context, id string) error {
	return s.ConnRepo.Delete(ctx, id)
}

func (s *ImportServiceImpl) SaveMappingSet(ctx context.Context, set *models.MappingSet) error {
	// Unknown entities fail at configuration time, not at row time.
	if !s.Sink.Known(set.TargetEntity) {
		return fmt.Errorf("unknown target entity %q", set.TargetEntity)
	}
	if len(set.Mappings) == 0 {
		return fmt.Errorf("mapping set has no field mappings")
	}
	return s.MappingRepo.Create(ctx, set)
}

func (s *ImportServiceImpl) GetMappingSet(ctx context.Context, id string) (*models.MappingSet, error) {
	return s.MappingRepo.Get(ctx, id)
}

func (s *ImportServiceImpl) ListMappingSets(ctx context.Context) ([]models.MappingSet, error) {
	return s.MappingRepo.List(ctx)
}

func (s *ImportServiceImpl) DeleteMappingSet(ctx context.Context, id string) error {
	return s.MappingRepo.Delete(ctx, id)
}

// StartExecution creates the execution record and runs the import in the
// background. One execution at a time: a second start while one is
// running is rejected.
func (s *ImportServiceImpl) StartExecution(ctx context.Context, mappingSetID string, dryRun bool) (*models.ImportExecution, error) {
	set, err := s.MappingRepo.Get(ctx, mappingSetID)
	if err != nil {
		return nil, fmt.Errorf("mapping set not found: %w", err)
	}

	cfg, err := s.ConnRepo.Get(ctx, set.ConnectionID.Hex())
	if err != nil {
		return nil, fmt.Errorf("connection not found: %w", err)
	}
	conn, err := connectors.New(cfg)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if len(s.running) > 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("an import is already running")
	}

	exec := &models.ImportExecution{
		ID:           primitive.NewObjectID(),
		MappingSetID: set.ID,
		DryRun:       dryRun,
	}
	if err := s.ExecRepo.Create(ctx, exec); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to create execution: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s.running[exec.ID.Hex()] = cancel
	s.mu.Unlock()

	go s.run(runCtx, exec, conn, set, dryRun)

	return exec, nil
}

func (s *ImportServiceImpl) run(ctx context.Context, exec *models.ImportExecution, conn connectors.Connector, set *models.MappingSet, dryRun bool) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.running[exec.ID.Hex()]; ok {
			cancel()
			delete(s.running, exec.ID.Hex())
		}
		s.mu.Unlock()
	}()

	engine := importer.NewEngine(s.ExecRepo, s.LogRepo, s.Sink, s.Log)
	result, err := engine.Execute(ctx, exec, conn, set, importer.RunOptions{
		DryRun:   dryRun,
		Progress: s.Hub.Publish,
	})
	if err != nil {
		s.Log.Error("import execution failed to persist state",
			zap.String("execution", exec.ID.Hex()), zap.Error(err))
		return
	}

	// Final snapshot so late websocket subscribers see the terminal state.
	s.Hub.Publish(models.ImportProgress{
		ExecutionID:       result.ExecutionID,
		Status:            result.Status,
		TotalRecords:      result.TotalRecords,
		ProcessedRecords:  result.ProcessedRecords,
		SuccessfulRecords: result.SuccessfulRecords,
		FailedRecords:     result.FailedRecords,
		SkippedRecords:    result.SkippedRecords,
		Errors:            result.Errors,
		Warnings:          result.Warnings,
	})
}

// CancelExecution requests cooperative cancellation. The record being
// processed finishes first; cancellation is not an error.
func (s *ImportServiceImpl) CancelExecution(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cancel, ok := s.running[id]
	if !ok {
		return fmt.Errorf("execution %s is not running", id)
	}
	cancel()
	return nil
}

func (s *ImportServiceImpl) GetExecution(ctx context.Context, id string) (*models.ImportExecution, error) {
	return s.ExecRepo.Get(ctx, id)
}

func (s *ImportServiceImpl) ListExecutions(ctx context.Context, limit int) ([]models.ImportExecution, error) {
	return s.ExecRepo.List(ctx, limit)
}

func (s *ImportServiceImpl) GetExecutionLogs(ctx context.Context, id string, limit int) ([]models.ImportExecutionLog, error) {
	return s.LogRepo.ListByExecution(ctx, id, limit)
}
