package repository

import (
	"context"
	"time"

	"go-psa/internal/database"
	"go-psa/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type ConnectionRepositoryImpl struct {
	collection *mongo.Collection
}

func NewConnectionRepository(db *database.MongodbDB) ConnectionRepository {
	return &ConnectionRepositoryImpl{
		collection: db.DB.Collection("import_connections"),
	}
}

func (r *ConnectionRepositoryImpl) Create(ctx context.Context, cfg *models.ConnectionConfig) error {
	if cfg.ID.IsZero() {
		cfg.ID = primitive.NewObjectID()
	}
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, cfg)
	return err
}

func (r *ConnectionRepositoryImpl) Get(ctx context.Context, id string) (*models.ConnectionConfig, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var cfg models.ConnectionConfig
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ConnectionRepositoryImpl) List(ctx context.Context) ([]models.ConnectionConfig, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []models.ConnectionConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ConnectionRepositoryImpl) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}
