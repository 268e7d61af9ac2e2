package logger

import (
	"context"
	"fmt"
	"time"

	"go-psa/internal/config"
	"go-psa/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap/zapcore"
)

// LogEntry holds the data passed from Zap to the worker
type LogEntry struct {
	Level       zapcore.Level
	Message     string
	ExecutionID string
	Caller      string
}

// appLog is the shape of one row in the logs collection.
type appLog struct {
	AppId        string    `bson:"app_id"`
	Level        string    `bson:"level"`
	Message      string    `bson:"message"`
	ExecutionID  string    `bson:"execution_id,omitempty"`
	Caller       string    `bson:"caller,omitempty"`
	CreatedOnUtc time.Time `bson:"created_on_utc"`
}

// DBLogWriter handles the async writing
type DBLogWriter struct {
	db      *mongo.Database
	logChan chan LogEntry
	appId   string
}

// NewDBLogWriter initializes the worker
func NewDBLogWriter(mongodb *database.MongodbDB, cfg *config.Config) *DBLogWriter {
	writer := &DBLogWriter{
		db:      mongodb.DB,
		logChan: make(chan LogEntry, 1000), // Buffer 1000 logs
		appId:   cfg.AppId,
	}

	// Start the background worker immediately
	go writer.processLogs()

	return writer
}

// AddLog is called by the Zap hook
func (w *DBLogWriter) AddLog(entry LogEntry) {
	select {
	case w.logChan <- entry:
	default:
		// Channel full: drop rather than block the caller
		fmt.Println("DB Log Channel Full! Dropping log:", entry.Message)
	}
}

func (w *DBLogWriter) processLogs() {
	for entry := range w.logChan {
		record := appLog{
			AppId:        w.appId,
			Level:        entry.Level.CapitalString(),
			Message:      entry.Message,
			ExecutionID:  entry.ExecutionID,
			Caller:       entry.Caller,
			CreatedOnUtc: time.Now().UTC(),
		}

		// Insert errors are swallowed to keep the app running
		w.db.Collection("logs").InsertOne(context.Background(), record)
	}
}
