// Package challenges declares the challenge repository contract and its
// PostgreSQL implementation.
package challenges

import (
	"context"

	"github.com/dmitrijs2005/thechallenge/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, c *models.Challenge) (*models.Challenge, error)
	GetByID(ctx context.Context, id int64) (*models.Challenge, error)
	// ListByUser returns the user's challenges, newest first.
	ListByUser(ctx context.Context, userID int64) ([]*models.Challenge, error)
	// Delete removes the challenge and, through the foreign key, its tasks.
	Delete(ctx context.Context, id int64) error
}
