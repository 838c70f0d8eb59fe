package sessiontypeRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookflow/database"
	"bookflow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoSessionTypeRepo implements SessionTypeRepository using MongoDB.
type MongoSessionTypeRepo struct {
	coll *mongo.Collection
}

// NewMongoSessionTypeRepo constructs a new instance of MongoSessionTypeRepo.
func NewMongoSessionTypeRepo() SessionTypeRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoSessionTypeRepo{
		coll: db.Collection("session_types"),
	}
}

// GetByID retrieves a session type by its ID.
func (repo *MongoSessionTypeRepo) GetByID(ctx context.Context, sessionTypeID string) (*models.SessionType, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var st models.SessionType
	err := repo.coll.FindOne(ctx, bson.M{"id": sessionTypeID}).Decode(&st)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching session type %s: %w", sessionTypeID, err)
	}
	return &st, nil
}

// ListByBuilder retrieves all session types offered by a builder.
func (repo *MongoSessionTypeRepo) ListByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := repo.coll.Find(ctx, bson.M{"builder_id": builderID})
	if err != nil {
		return nil, fmt.Errorf("error fetching session types for builder %s: %w", builderID, err)
	}
	defer cursor.Close(ctx)

	var types []models.SessionType
	for cursor.Next(ctx) {
		var st models.SessionType
		if err := cursor.Decode(&st); err != nil {
			return nil, fmt.Errorf("error decoding session type: %w", err)
		}
		types = append(types, st)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return types, nil
}
