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

type ExecutionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewExecutionRepository(db *database.MongodbDB) ExecutionRepository {
	return &ExecutionRepositoryImpl{
		collection: db.DB.Collection("import_executions"),
	}
}

func (r *ExecutionRepositoryImpl) Create(ctx context.Context, exec *models.ImportExecution) error {
	if exec.ID.IsZero() {
		exec.ID = primitive.NewObjectID()
	}
	exec.Status = models.ExecutionStatusPending
	exec.CreatedAt = time.Now()
	exec.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, exec)
	return err
}

func (r *ExecutionRepositoryImpl) Get(ctx context.Context, id string) (*models.ImportExecution, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var exec models.ImportExecution
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&exec); err != nil {
		return nil, err
	}
	return &exec, nil
}

func (r *ExecutionRepositoryImpl) Update(ctx context.Context, exec *models.ImportExecution) error {
	exec.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": exec.ID}, exec)
	return err
}

func (r *ExecutionRepositoryImpl) List(ctx context.Context, limit int) ([]models.ImportExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var execs []models.ImportExecution
	if err := cursor.All(ctx, &execs); err != nil {
		return nil, err
	}
	return execs, nil
}
