package repository

import (
	"context"

	"examia/internal/model"
)

// QuestionRepository is the persistence contract of the catalog. Implementations
// contain no business logic: validation and authorization happen in the service.
type QuestionRepository interface {
	// Create stores a fully populated question and returns the stored record.
	Create(ctx context.Context, q *model.Question) (*model.Question, error)

	// List returns every question matching the filter in insertion order.
	List(ctx context.Context, f model.Filter) ([]model.Question, error)

	// Delete removes a question by ID. It returns sql.ErrNoRows when nothing was deleted.
	Delete(ctx context.Context, id string) error
}
