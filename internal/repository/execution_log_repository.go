package repository

import (
	"context"
	"time"

	"go-psa/internal/database"
	"go-psa/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExecutionLogRepositoryImpl struct {
	collection *mongo.Collection
}

func NewExecutionLogRepository(db *database.MongodbDB) ExecutionLogRepository {
	return &ExecutionLogRepositoryImpl{
		collection: db.DB.Collection("import_execution_logs"),
	}
}

func (r *ExecutionLogRepositoryImpl) Append(ctx context.Context, entry *models.ImportExecutionLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

func (r *ExecutionLogRepositoryImpl) ListByExecution(ctx context.Context, executionID string, limit int) ([]models.ImportExecutionLog, error) {
	objID, err := primitive.ObjectIDFromHex(executionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}

	opts := options.Find().
		SetSort(bson.M{"timestamp": 1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"execution_id": objID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.ImportExecutionLog
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ExecutionLogRepositoryImpl) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
