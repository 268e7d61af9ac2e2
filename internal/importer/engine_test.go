package importer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-psa/internal/connectors"
	"go-psa/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// connectorStub serves fixed rows. A non-empty failure makes the source
// unreachable.
type connectorStub struct {
	rows    []map[string]interface{}
	failure string
}

func (c connectorStub) TestConnection(ctx context.Context) *connectors.TestResult {
	if c.failure != "" {
		return &connectors.TestResult{Success: false, Message: c.failure}
	}
	return &connectors.TestResult{
		Success:     true,
		Schema:      &models.SourceSchema{},
		RecordCount: int64(len(c.rows)),
	}
}

func (c connectorStub) Schema(ctx context.Context) (*models.SourceSchema, error) {
	return &models.SourceSchema{}, nil
}

func (c connectorStub) FetchAll(ctx context.Context, table string) ([]map[string]interface{}, error) {
	return c.rows, nil
}

func (c connectorStub) TablePreview(ctx context.Context, table string, limit int) ([]map[string]interface{}, error) {
	if limit > len(c.rows) {
		limit = len(c.rows)
	}
	return c.rows[:limit], nil
}

func (c connectorStub) Query(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	return nil, fmt.Errorf("query unsupported")
}

func (c connectorStub) Kind() models.SourceKind { return models.SourceCSV }

type memExecRepo struct {
	mu    sync.Mutex
	execs map[string]models.ImportExecution
}

func newMemExecRepo() *memExecRepo {
	return &memExecRepo{execs: make(map[string]models.ImportExecution)}
}

func (r *memExecRepo) Create(ctx context.Context, exec *models.ImportExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	r.execs[exec.ID.Hex()] = *exec
	return nil
}

func (r *memExecRepo) Get(ctx context.Context, id string) (*models.ImportExecution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.execs[id]
	if !ok {
		return nil, fmt.Errorf("not found")
	}
	return &e, nil
}

func (r *memExecRepo) Update(ctx context.Context, exec *models.ImportExecution) error {
	// The Mongo driver fails immediately on a dead context; mirror that.
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.execs[exec.ID.Hex()] = *exec
	return nil
}

func (r *memExecRepo) List(ctx context.Context, limit int) ([]models.ImportExecution, error) {
	return nil, nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []models.ImportExecutionLog
}

func (r *memLogRepo) Append(ctx context.Context, entry *models.ImportExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memLogRepo) ListByExecution(ctx context.Context, executionID string, limit int) ([]models.ImportExecutionLog, error) {
	return r.entries, nil
}

func (r *memLogRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func countingSink(t *testing.T) (*RecordSink, *int) {
	t.Helper()
	saves := 0
	sink := NewRecordSink()
	if err := sink.Register("account", func(ctx context.Context, data map[string]interface{}) error {
		saves++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return sink, &saves
}

func testMappingSet() *models.MappingSet {
	return &models.MappingSet{
		ID:           primitive.NewObjectID(),
		TargetEntity: "account",
		SourceTable:  "accounts",
		Mappings: []models.FieldMapping{
			{SourceField: "name", TargetField: "name", Required: true},
			{SourceField: "email", TargetField: "email"},
		},
	}
}

func newTestEngine(t *testing.T, sink *RecordSink) (*Engine, *memExecRepo, *memLogRepo) {
	t.Helper()
	execRepo := newMemExecRepo()
	logRepo := &memLogRepo{}
	return NewEngine(execRepo, logRepo, sink, zap.NewNop()), execRepo, logRepo
}

func TestEngineExecuteMixedOutcome(t *testing.T) {
	sink, saves := countingSink(t)
	engine, execRepo, _ := newTestEngine(t, sink)

	conn := connectorStub{rows: []map[string]interface{}{
		{"name": "Acme", "email": "a@acme.io"},
		{"name": "", "email": "b@acme.io"}, // required failure
		{"name": "", "email": ""},          // skip
	}}

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	result, err := engine.Execute(context.Background(), exec, conn, testMappingSet(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != models.ExecutionStatusFailed {
		t.Errorf("status = %s, want failed when any record errored", result.Status)
	}
	if result.TotalRecords != 3 || result.ProcessedRecords != 3 {
		t.Errorf("total/processed = %d/%d, want 3/3", result.TotalRecords, result.ProcessedRecords)
	}
	if result.SuccessfulRecords != 1 || result.FailedRecords != 1 || result.SkippedRecords != 1 {
		t.Errorf("ok/fail/skip = %d/%d/%d, want 1/1/1",
			result.SuccessfulRecords, result.FailedRecords, result.SkippedRecords)
	}
	if *saves != 1 {
		t.Errorf("saves = %d, want only the accepted record persisted", *saves)
	}

	// Counts never exceed the total.
	sum := result.SuccessfulRecords + result.FailedRecords + result.SkippedRecords
	if sum != result.ProcessedRecords {
		t.Errorf("outcome counts sum to %d, want %d", sum, result.ProcessedRecords)
	}
}

func TestEngineDryRunPersistsNothing(t *testing.T) {
	sink, saves := countingSink(t)
	engine, execRepo, _ := newTestEngine(t, sink)

	conn := connectorStub{rows: []map[string]interface{}{
		{"name": "Acme", "email": "a@acme.io"},
		{"name": "", "email": "b@acme.io"},
	}}

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	dry, err := engine.Execute(context.Background(), exec, conn, testMappingSet(), RunOptions{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if *saves != 0 {
		t.Fatalf("dry run persisted %d records", *saves)
	}

	// A real run over the same input reports the same counts.
	exec2 := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec2)
	wet, err := engine.Execute(context.Background(), exec2, conn, testMappingSet(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if dry.SuccessfulRecords != wet.SuccessfulRecords ||
		dry.FailedRecords != wet.FailedRecords ||
		dry.SkippedRecords != wet.SkippedRecords {
		t.Errorf("dry run counts %d/%d/%d differ from real run %d/%d/%d",
			dry.SuccessfulRecords, dry.FailedRecords, dry.SkippedRecords,
			wet.SuccessfulRecords, wet.FailedRecords, wet.SkippedRecords)
	}
}

func TestEngineCancellation(t *testing.T) {
	sink := NewRecordSink()
	ctx, cancel := context.WithCancel(context.Background())

	persisted := 0
	sink.Register("account", func(ctx context.Context, data map[string]interface{}) error {
		persisted++
		if persisted == 3 {
			cancel()
		}
		return nil
	})

	engine, execRepo, _ := newTestEngine(t, sink)

	rows := make([]map[string]interface{}, 10)
	for i := range rows {
		rows[i] = map[string]interface{}{"name": fmt.Sprintf("acct-%d", i), "email": "x@y.z"}
	}
	conn := connectorStub{rows: rows}

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	result, err := engine.Execute(ctx, exec, conn, testMappingSet(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != models.ExecutionStatusCancelled {
		t.Errorf("status = %s, want cancelled", result.Status)
	}
	if result.ProcessedRecords != 3 {
		t.Errorf("processed = %d, want the in-flight record to finish and no more", result.ProcessedRecords)
	}
	if result.TotalRecords != 10 {
		t.Errorf("total = %d, want the pre-count preserved", result.TotalRecords)
	}
	if persisted != 3 {
		t.Errorf("persisted = %d, want no record saved after cancellation", persisted)
	}

	// The terminal status must land in the store even though the run
	// context is already cancelled.
	stored, err := execRepo.Get(context.Background(), exec.ID.Hex())
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != models.ExecutionStatusCancelled {
		t.Errorf("stored status = %s, want cancelled written after cancel", stored.Status)
	}
	if stored.CompletedAt == nil {
		t.Error("cancelled execution must carry a completion time")
	}
}

func TestEngineRequiredFailureIsNotSkipped(t *testing.T) {
	sink, saves := countingSink(t)
	engine, execRepo, _ := newTestEngine(t, sink)

	// Row 2 has an empty required name but real data elsewhere; it must
	// count as failed, not skipped.
	conn := connectorStub{rows: []map[string]interface{}{
		{"id": 1, "name": "widget", "value": 100},
		{"id": 2, "name": "", "value": 200},
	}}
	set := &models.MappingSet{
		ID:           primitive.NewObjectID(),
		TargetEntity: "account",
		SourceTable:  "accounts",
		Mappings: []models.FieldMapping{
			{SourceField: "name", TargetField: "accountName", Required: true},
		},
	}

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	result, err := engine.Execute(context.Background(), exec, conn, set, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != models.ExecutionStatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.SuccessfulRecords != 1 || result.FailedRecords != 1 || result.SkippedRecords != 0 {
		t.Errorf("ok/fail/skip = %d/%d/%d, want 1/1/0",
			result.SuccessfulRecords, result.FailedRecords, result.SkippedRecords)
	}
	if *saves != 1 {
		t.Errorf("saves = %d, want only the valid record persisted", *saves)
	}
}

func TestEngineSourceFailureIsFatal(t *testing.T) {
	sink, saves := countingSink(t)
	engine, execRepo, logRepo := newTestEngine(t, sink)

	conn := connectorStub{failure: "connection refused"}

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	result, err := engine.Execute(context.Background(), exec, conn, testMappingSet(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if result.Status != models.ExecutionStatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want a single run-level error", result.Errors)
	}
	if result.Errors[0].RecordIndex != nil {
		t.Error("run-level error must not carry a record index")
	}
	if *saves != 0 {
		t.Error("nothing may be persisted when the source is unreachable")
	}
	if len(logRepo.entries) == 0 {
		t.Error("failure must leave an audit trail")
	}
}

func TestEngineUnknownEntityFailsBeforeFetch(t *testing.T) {
	sink, _ := countingSink(t)
	engine, execRepo, _ := newTestEngine(t, sink)

	set := testMappingSet()
	set.TargetEntity = "invoice"

	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	result, err := engine.Execute(context.Background(), exec, connectorStub{}, set, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != models.ExecutionStatusFailed {
		t.Errorf("status = %s, want failed", result.Status)
	}
	if result.TotalRecords != 0 {
		t.Error("no rows may be counted for an unconfigurable import")
	}
}

func TestEngineProgressCadence(t *testing.T) {
	sink, _ := countingSink(t)
	engine, execRepo, _ := newTestEngine(t, sink)

	rows := make([]map[string]interface{}, 25)
	for i := range rows {
		rows[i] = map[string]interface{}{"name": fmt.Sprintf("acct-%d", i), "email": "x@y.z"}
	}
	conn := connectorStub{rows: rows}

	var snapshots []models.ImportProgress
	exec := &models.ImportExecution{ID: primitive.NewObjectID()}
	execRepo.Create(context.Background(), exec)

	_, err := engine.Execute(context.Background(), exec, conn, testMappingSet(), RunOptions{
		Progress: func(p models.ImportProgress) { snapshots = append(snapshots, p) },
	})
	if err != nil {
		t.Fatal(err)
	}

	// Flushes at 10, 20 and the final record.
	if len(snapshots) != 3 {
		t.Fatalf("snapshots = %d, want 3", len(snapshots))
	}
	last := snapshots[len(snapshots)-1]
	if last.ProcessedRecords != 25 {
		t.Errorf("final snapshot processed = %d, want 25", last.ProcessedRecords)
	}
	prev := 0
	for _, s := range snapshots {
		if s.ProcessedRecords < prev {
			t.Error("processed count must be monotonic")
		}
		prev = s.ProcessedRecords
	}
}
