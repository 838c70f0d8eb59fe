package deadletterRepo

import (
	"context"

	"bookflow/models"
)

// DeadLetterRepository stores webhooks that exhausted their retry budget.
type DeadLetterRepository interface {
	Insert(ctx context.Context, dl *models.DeadLetter) error
	List(ctx context.Context, source string, limit int64) ([]models.DeadLetter, error)
}
