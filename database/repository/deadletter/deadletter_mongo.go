package deadletterRepo

import (
	"context"
	"fmt"
	"time"

	"bookflow/database"
	"bookflow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDeadLetterRepo implements DeadLetterRepository using MongoDB.
type MongoDeadLetterRepo struct {
	coll *mongo.Collection
}

// NewMongoDeadLetterRepo constructs a new instance of MongoDeadLetterRepo.
func NewMongoDeadLetterRepo() DeadLetterRepository {
	db := database.MongoClient.Database(database.DatabaseName)
	return &MongoDeadLetterRepo{
		coll: db.Collection("webhook_dead_letters"),
	}
}

// Insert stores a dead-lettered webhook for manual inspection.
func (repo *MongoDeadLetterRepo) Insert(ctx context.Context, dl *models.DeadLetter) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, dl); err != nil {
		return fmt.Errorf("error inserting dead letter: %w", err)
	}
	return nil
}

// List returns the most recent dead letters for a source.
func (repo *MongoDeadLetterRepo) List(ctx context.Context, source string, limit int64) ([]models.DeadLetter, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{}
	if source != "" {
		filter["source"] = source
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := repo.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing dead letters: %w", err)
	}
	defer cursor.Close(ctx)

	var letters []models.DeadLetter
	for cursor.Next(ctx) {
		var dl models.DeadLetter
		if err := cursor.Decode(&dl); err != nil {
			return nil, fmt.Errorf("error decoding dead letter: %w", err)
		}
		letters = append(letters, dl)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return letters, nil
}
