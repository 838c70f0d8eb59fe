package sessiontypeRepo

import (
	"context"
	"errors"

	"bookflow/models"
)

// ErrNotFound is returned when no session type matches the query.
var ErrNotFound = errors.New("session type not found")

// SessionTypeRepository looks up the bookable offerings. The transition
// service needs the price to decide between the paid and free paths.
type SessionTypeRepository interface {
	GetByID(ctx context.Context, sessionTypeID string) (*models.SessionType, error)
	ListByBuilder(ctx context.Context, builderID string) ([]models.SessionType, error)
}
