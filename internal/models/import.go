package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "pending"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ImportExecution is one run of the pipeline. Created before processing
// begins, updated incrementally while rows are processed, finalized
// exactly once. The engine never deletes executions.
type ImportExecution struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	MappingSetID      primitive.ObjectID `json:"mapping_set_id" bson:"mapping_set_id"`
	Status            ExecutionStatus    `json:"status" bson:"status"`
	DryRun            bool               `json:"dry_run" bson:"dry_run"`
	TotalRecords      int                `json:"total_records" bson:"total_records"`
	ProcessedRecords  int                `json:"processed_records" bson:"processed_records"`
	SuccessfulRecords int                `json:"successful_records" bson:"successful_records"`
	FailedRecords     int                `json:"failed_records" bson:"failed_records"`
	SkippedRecords    int                `json:"skipped_records" bson:"skipped_records"`
	StartedAt         *time.Time         `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt       *time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// ImportError attributes a failure to a record where possible. A nil
// RecordIndex means the error applies to the run as a whole (connection
// failures and the like).
type ImportError struct {
	RecordIndex *int   `json:"record_index,omitempty" bson:"record_index,omitempty"`
	Field       string `json:"field,omitempty" bson:"field,omitempty"`
	Message     string `json:"message" bson:"message"`
}

type ImportWarning struct {
	RecordIndex *int   `json:"record_index,omitempty" bson:"record_index,omitempty"`
	Field       string `json:"field,omitempty" bson:"field,omitempty"`
	Message     string `json:"message" bson:"message"`
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ImportExecutionLog is one row of the append-only audit trail. Never
// mutated after insert.
type ImportExecutionLog struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	ExecutionID primitive.ObjectID     `json:"execution_id" bson:"execution_id"`
	Level       LogLevel               `json:"level" bson:"level"`
	Message     string                 `json:"message" bson:"message"`
	Details     map[string]interface{} `json:"details,omitempty" bson:"details,omitempty"`
	RecordIndex *int                   `json:"record_index,omitempty" bson:"record_index,omitempty"`
	Timestamp   time.Time              `json:"timestamp" bson:"timestamp"`
}

// ProcessedRecord is the transient outcome of mapping one source row. It
// lives only for the duration of processing that row.
type ProcessedRecord struct {
	Index       int
	Original    map[string]interface{}
	Transformed map[string]interface{}
	Errors      []ImportError
	Warnings    []ImportWarning
	Skip        bool
}

// Accepted reports whether the record may be persisted.
func (r *ProcessedRecord) Accepted() bool {
	return !r.Skip && len(r.Errors) == 0
}

// ImportResult is the final report of one execution.
type ImportResult struct {
	ExecutionID       primitive.ObjectID `json:"execution_id"`
	Status            ExecutionStatus    `json:"status"`
	TotalRecords      int                `json:"total_records"`
	ProcessedRecords  int                `json:"processed_records"`
	SuccessfulRecords int                `json:"successful_records"`
	FailedRecords     int                `json:"failed_records"`
	SkippedRecords    int                `json:"skipped_records"`
	Errors            []ImportError      `json:"errors"`
	Warnings          []ImportWarning    `json:"warnings"`
	Duration          time.Duration      `json:"duration"`
	RecordsPerSecond  float64            `json:"records_per_second"`
	AvgRecordTime     time.Duration      `json:"avg_record_time"`
	ErrorRate         float64            `json:"error_rate"`
}

// ImportProgress is the payload delivered to progress callbacks and the
// websocket stream.
type ImportProgress struct {
	ExecutionID              primitive.ObjectID `json:"execution_id"`
	Status                   ExecutionStatus    `json:"status"`
	TotalRecords             int                `json:"total_records"`
	ProcessedRecords         int                `json:"processed_records"`
	SuccessfulRecords        int                `json:"successful_records"`
	FailedRecords            int                `json:"failed_records"`
	SkippedRecords           int                `json:"skipped_records"`
	CurrentRecord            int                `json:"current_record"`
	EstimatedTimeRemainingMs int64              `json:"estimated_time_remaining_ms"`
	Errors                   []ImportError      `json:"errors"`
	Warnings                 []ImportWarning    `json:"warnings"`
}
