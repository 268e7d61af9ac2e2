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

type MappingRepositoryImpl struct {
	collection *mongo.Collection
}

func NewMappingRepository(db *database.MongodbDB) MappingRepository {
	return &MappingRepositoryImpl{
		collection: db.DB.Collection("import_mapping_sets"),
	}
}

func (r *MappingRepositoryImpl) Create(ctx context.Context, set *models.MappingSet) error {
	if set.ID.IsZero() {
		set.ID = primitive.NewObjectID()
	}
	set.CreatedAt = time.Now()
	set.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, set)
	return err
}

func (r *MappingRepositoryImpl) Get(ctx context.Context, id string) (*models.MappingSet, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var set models.MappingSet
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&set); err != nil {
		return nil, err
	}
	return &set, nil
}

func (r *MappingRepositoryImpl) List(ctx context.Context) ([]models.MappingSet, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sets []models.MappingSet
	if err := cursor.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *MappingRepositoryImpl) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}
