package importer

import (
	"context"
	"fmt"
	"time"

	"go-psa/internal/connectors"
	"go-psa/internal/models"
	"go-psa/internal/repository"
	"go-psa/pkg/condition"

	"go.uber.org/zap"
)

// progressInterval is how many rows are processed between progress
// flushes. The final row always flushes.
const progressInterval = 10

// ProgressFunc receives progress snapshots at the flush cadence.
type ProgressFunc func(models.ImportProgress)

// RunOptions tune one execution.
type RunOptions struct {
	// DryRun executes every step except persistence. Counting, mapping
	// and validation behave identically to a real run, so a dry run's
	// counts are a reliable preview of a real one.
	DryRun bool

	Progress ProgressFunc
}

// Engine drives one import execution. Each execution owns its own Engine
// instance; there is no parallel row processing and no state shared
// across executions.
type Engine struct {
	execRepo  repository.ExecutionRepository
	logRepo   repository.ExecutionLogRepository
	sink      *RecordSink
	processor *Processor
	log       *zap.Logger
}

func NewEngine(
	execRepo repository.ExecutionRepository,
	logRepo repository.ExecutionLogRepository,
	sink *RecordSink,
	log *zap.Logger,
) *Engine {
	return &Engine{
		execRepo:  execRepo,
		logRepo:   logRepo,
		sink:      sink,
		processor: NewProcessor(),
		log:       log,
	}
}

// Execute runs the full import. Cancellation is cooperative through ctx:
// it is observed once per loop iteration, so the in-flight record always
// finishes and no record is ever half-persisted. Execute always returns a
// result; the error return is reserved for persistence failures on the
// execution record itself.
func (e *Engine) Execute(ctx context.Context, exec *models.ImportExecution, conn connectors.Connector, set *models.MappingSet, opts RunOptions) (*models.ImportResult, error) {
	start := time.Now()
	exec.Status = models.ExecutionStatusRunning
	exec.StartedAt = &start
	if err := e.execRepo.Update(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to mark execution running: %w", err)
	}

	e.appendLog(exec, models.LogLevelInfo, fmt.Sprintf("import started (target entity %s, dry run %v)", set.TargetEntity, opts.DryRun), nil)

	var errs []models.ImportError
	var warns []models.ImportWarning

	fatal := func(msg string) (*models.ImportResult, error) {
		errs = append(errs, models.ImportError{Message: msg})
		e.appendLog(exec, models.LogLevelError, msg, nil)
		return e.finalize(exec, start, false, errs, warns)
	}

	if !e.sink.Known(set.TargetEntity) {
		return fatal(fmt.Sprintf("unknown target entity %q", set.TargetEntity))
	}

	test := conn.TestConnection(ctx)
	if !test.Success {
		return fatal(fmt.Sprintf("source unreachable: %s", test.Message))
	}

	rows, err := e.materialize(ctx, conn, set, test.Schema)
	if err != nil {
		return fatal(fmt.Sprintf("failed to read source rows: %v", err))
	}

	// totalRecords is fixed before any row is processed; there is no
	// streaming progress against an unknown total.
	exec.TotalRecords = len(rows)
	if err := e.execRepo.Update(ctx, exec); err != nil {
		return nil, fmt.Errorf("failed to record total: %w", err)
	}
	e.appendLog(exec, models.LogLevelInfo, fmt.Sprintf("materialized %d source records", len(rows)), nil)

	cancelled := false
	for i, row := range rows {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		rec := e.processor.ProcessRecord(row, set.Mappings, i)
		switch {
		case rec.Skip:
			exec.SkippedRecords++
			warns = append(warns, rec.Warnings...)
		case len(rec.Errors) > 0:
			exec.FailedRecords++
			errs = append(errs, rec.Errors...)
			warns = append(warns, rec.Warnings...)
			e.appendLog(exec, models.LogLevelError, fmt.Sprintf("record %d failed: %s", i, rec.Errors[0].Message), &i)
		default:
			warns = append(warns, rec.Warnings...)
			if opts.DryRun {
				exec.SuccessfulRecords++
			} else if err := e.sink.Save(ctx, set.TargetEntity, rec.Transformed); err != nil {
				exec.FailedRecords++
				idx := i
				errs = append(errs, models.ImportError{RecordIndex: &idx, Message: fmt.Sprintf("persistence failed: %v", err)})
				e.appendLog(exec, models.LogLevelError, fmt.Sprintf("record %d persistence failed: %v", i, err), &i)
			} else {
				exec.SuccessfulRecords++
			}
		}
		exec.ProcessedRecords++

		if exec.ProcessedRecords%progressInterval == 0 || i == len(rows)-1 {
			e.flushProgress(exec, start, i, errs, warns, opts.Progress)
		}
	}

	return e.finalize(exec, start, cancelled, errs, warns)
}

// materialize reads all source rows into memory, via the join planner's
// virtual table when one is configured, and applies client-side where
// filtering for sources that cannot evaluate it server-side.
func (e *Engine) materialize(ctx context.Context, conn connectors.Connector, set *models.MappingSet, schema *models.SourceSchema) ([]map[string]interface{}, error) {
	if set.JoinedTable != nil {
		return FetchJoined(ctx, conn, set.JoinedTable, schema)
	}

	rows, err := conn.FetchAll(ctx, set.SourceTable)
	if err != nil {
		return nil, err
	}

	if len(set.Where) == 0 {
		return rows, nil
	}
	pred, err := condition.Compile(set.Where)
	if err != nil {
		return nil, fmt.Errorf("invalid where conditions: %w", err)
	}
	filtered := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		keep, err := pred(row)
		if err != nil {
			return nil, err
		}
		if keep {
			filtered = append(filtered, row)
		}
	}
	return filtered, nil
}

func (e *Engine) flushProgress(exec *models.ImportExecution, start time.Time, current int, errs []models.ImportError, warns []models.ImportWarning, fn ProgressFunc) {
	// Detached context: a progress write must survive cancellation of
	// the run, same as the audit trail.
	if err := e.execRepo.Update(context.Background(), exec); err != nil {
		e.log.Warn("failed to flush progress", zap.Error(err), zap.String("execution", exec.ID.Hex()))
	}

	var etaMs int64
	if exec.ProcessedRecords > 0 {
		elapsed := time.Since(start)
		perRecord := elapsed / time.Duration(exec.ProcessedRecords)
		remaining := exec.TotalRecords - exec.ProcessedRecords
		etaMs = (perRecord * time.Duration(remaining)).Milliseconds()
	}

	if fn != nil {
		fn(models.ImportProgress{
			ExecutionID:              exec.ID,
			Status:                   exec.Status,
			TotalRecords:             exec.TotalRecords,
			ProcessedRecords:         exec.ProcessedRecords,
			SuccessfulRecords:        exec.SuccessfulRecords,
			FailedRecords:            exec.FailedRecords,
			SkippedRecords:           exec.SkippedRecords,
			CurrentRecord:            current,
			EstimatedTimeRemainingMs: etaMs,
			Errors:                   errs,
			Warnings:                 warns,
		})
	}
}

// finalize computes the terminal status, stamps completion and writes the
// summary. Called exactly once per execution. The write runs on a
// detached context: after a cancel the run ctx is already dead, and the
// CANCELLED status must still reach the store.
func (e *Engine) finalize(exec *models.ImportExecution, start time.Time, cancelled bool, errs []models.ImportError, warns []models.ImportWarning) (*models.ImportResult, error) {
	switch {
	case cancelled:
		exec.Status = models.ExecutionStatusCancelled
	case len(errs) > 0:
		exec.Status = models.ExecutionStatusFailed
	default:
		exec.Status = models.ExecutionStatusCompleted
	}

	now := time.Now()
	exec.CompletedAt = &now
	duration := now.Sub(start)

	if err := e.execRepo.Update(context.Background(), exec); err != nil {
		return nil, fmt.Errorf("failed to finalize execution: %w", err)
	}

	summary := fmt.Sprintf("import %s: %d/%d processed, %d succeeded, %d failed, %d skipped in %s",
		exec.Status, exec.ProcessedRecords, exec.TotalRecords,
		exec.SuccessfulRecords, exec.FailedRecords, exec.SkippedRecords, duration.Round(time.Millisecond))
	level := models.LogLevelInfo
	if exec.Status == models.ExecutionStatusFailed {
		level = models.LogLevelError
	}
	e.appendLog(exec, level, summary, nil)
	e.log.Info("import finished",
		zap.String("execution", exec.ID.Hex()),
		zap.String("status", string(exec.Status)),
		zap.Int("processed", exec.ProcessedRecords),
		zap.Int("failed", exec.FailedRecords),
	)

	result := &models.ImportResult{
		ExecutionID:       exec.ID,
		Status:            exec.Status,
		TotalRecords:      exec.TotalRecords,
		ProcessedRecords:  exec.ProcessedRecords,
		SuccessfulRecords: exec.SuccessfulRecords,
		FailedRecords:     exec.FailedRecords,
		SkippedRecords:    exec.SkippedRecords,
		Errors:            errs,
		Warnings:          warns,
		Duration:          duration,
	}
	if exec.ProcessedRecords > 0 && duration > 0 {
		result.RecordsPerSecond = float64(exec.ProcessedRecords) / duration.Seconds()
		result.AvgRecordTime = duration / time.Duration(exec.ProcessedRecords)
	}
	if exec.TotalRecords > 0 {
		result.ErrorRate = float64(exec.FailedRecords) / float64(exec.TotalRecords)
	}

	return result, nil
}

// appendLog writes one audit row. The audit trail is durable and must
// never be dropped, progress callback or not; a write failure is logged
// but does not abort the run.
func (e *Engine) appendLog(exec *models.ImportExecution, level models.LogLevel, msg string, recordIndex *int) {
	entry := &models.ImportExecutionLog{
		ExecutionID: exec.ID,
		Level:       level,
		Message:     msg,
		RecordIndex: recordIndex,
		Timestamp:   time.Now(),
	}
	// Use a background context so cancellation does not lose the trail.
	if err := e.logRepo.Append(context.Background(), entry); err != nil {
		e.log.Warn("failed to append execution log", zap.Error(err))
	}
}
