// Package tasks declares the task repository contract and its PostgreSQL
// implementation.
package tasks

import (
	"context"

	"github.com/dmitrijs2005/thechallenge/internal/server/models"
)

type Repository interface {
	// CreateBatch inserts tasks in slice order and fills in their IDs.
	CreateBatch(ctx context.Context, tasks []*models.Task) error
	Create(ctx context.Context, t *models.Task) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	// ListByChallenge returns tasks ordered by day, then insertion order.
	ListByChallenge(ctx context.Context, challengeID int64) ([]*models.Task, error)
	// ToggleCompleted flips is_completed and returns the new value.
	ToggleCompleted(ctx context.Context, id int64) (bool, error)
	// DeleteNonFixed removes the task unless it is fixed. A fixed task yields
	// common.ErrProtected.
	DeleteNonFixed(ctx context.Context, id int64) error
}
