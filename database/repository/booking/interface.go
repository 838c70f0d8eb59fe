package bookingRepo

import (
	"context"
	"errors"
	"time"

	"bookflow/models"
)

var (
	// ErrNotFound is returned when no booking matches the query.
	ErrNotFound = errors.New("booking not found")
	// ErrVersionConflict is returned when the compare-and-swap update lost
	// against a concurrent writer. Callers retry from a fresh read.
	ErrVersionConflict = errors.New("booking version conflict")
	// ErrDuplicateID is returned when creating a booking whose id exists.
	ErrDuplicateID = errors.New("booking id already exists")
)

// BookingRepository is the persistence boundary for booking records.
type BookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, bookingID string) (*models.Booking, error)
	GetByRecoveryTokenHash(ctx context.Context, hash string) (*models.Booking, error)
	// UpdateCAS persists the booking if and only if the stored version
	// still equals expectedVersion. booking.Version must already carry the
	// incremented value.
	UpdateCAS(ctx context.Context, booking *models.Booking, expectedVersion int64) error
	// FindStale returns bookings sitting in one of the given states with no
	// transition since the cutoff — input for the reconciliation sweep.
	FindStale(ctx context.Context, states []models.BookingState, cutoff time.Time, limit int64) ([]models.Booking, error)
}
