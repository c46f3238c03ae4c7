// Package users declares the user repository contract and its PostgreSQL
// implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/thechallenge/internal/server/models"
)

type Repository interface {
	// Create inserts user and fills in its ID and CreatedAt. A duplicate
	// e-mail yields common.ErrEmailTaken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// Delete removes the user; challenges, tasks and refresh tokens go with it.
	Delete(ctx context.Context, id int64) error
}
