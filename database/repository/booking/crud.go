package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookflow/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new booking document.
func (repo *MongoBookingRepo) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	if _, err := repo.coll.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("error creating booking: %w", err)
	}
	return nil
}

// GetByID retrieves a booking by its ID.
func (repo *MongoBookingRepo) GetByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var booking models.Booking
	err := repo.coll.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking %s: %w", bookingID, err)
	}
	return &booking, nil
}

// GetByRecoveryTokenHash retrieves a booking by the hash of its recovery token.
func (repo *MongoBookingRepo) GetByRecoveryTokenHash(ctx context.Context, hash string) (*models.Booking, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	var booking models.Booking
	err := repo.coll.FindOne(ctx, bson.M{"recovery_token_hash": hash}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching booking by recovery token: %w", err)
	}
	return &booking, nil
}

// UpdateCAS replaces the booking document guarded by the version check.
// A concurrent writer that advanced the version first wins; the loser gets
// ErrVersionConflict and must re-read.
func (repo *MongoBookingRepo) UpdateCAS(ctx context.Context, booking *models.Booking, expectedVersion int64) error {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	filter := bson.M{"id": booking.ID, "version": expectedVersion}
	res, err := repo.coll.ReplaceOne(ctx, filter, booking)
	if err != nil {
		return fmt.Errorf("error updating booking %s: %w", booking.ID, err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a lost race from a missing document.
		count, err := repo.coll.CountDocuments(ctx, bson.M{"id": booking.ID})
		if err != nil {
			return fmt.Errorf("error verifying booking %s: %w", booking.ID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	return nil
}

// FindStale returns bookings in the given states whose last transition is
// older than the cutoff.
func (repo *MongoBookingRepo) FindStale(ctx context.Context, states []models.BookingState, cutoff time.Time, limit int64) ([]models.Booking, error) {
	ctx, cancel := opCtx(ctx)
	defer cancel()

	filter := bson.M{
		"current_state":   bson.M{"$in": states},
		"last_transition": bson.M{"$lt": cutoff},
	}
	cursor, err := repo.coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("error finding stale bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []models.Booking
	for cursor.Next(ctx) {
		var b models.Booking
		if err := cursor.Decode(&b); err != nil {
			return nil, fmt.Errorf("error decoding booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return bookings, nil
}
