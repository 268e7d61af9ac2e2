package repository

import (
	"context"
	"time"

	"go-psa/internal/database"

	"go.mongodb.org/mongo-driver/mongo"
)

// entityCollections maps a target entity name to its collection.
var entityCollections = map[string]string{
	"account":     "accounts",
	"user":        "users",
	"ticket":      "tickets",
	"timeEntry":   "time_entries",
	"billingRate": "billing_rates",
}

type EntityRepositoryImpl struct {
	db *mongo.Database
}

func NewEntityRepository(db *database.MongodbDB) EntityRepository {
	return &EntityRepositoryImpl{db: db.DB}
}

func (r *EntityRepositoryImpl) Insert(ctx context.Context, entity string, data map[string]interface{}) error {
	collection, ok := entityCollections[entity]
	if !ok {
		// The sink should have rejected this already; fall back to the
		// entity name itself rather than dropping the record.
		collection = entity
	}

	doc := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		doc[k] = v
	}
	doc["created_at"] = time.Now()

	_, err := r.db.Collection(collection).InsertOne(ctx, doc)
	return err
}
