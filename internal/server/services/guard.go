// Package services contains the server-side business logic: the ownership
// guard, the challenge materializer and queries, the task mutation gate and
// account management. Every operation takes the caller's user id explicitly.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
)

// Guard resolves ids to records owned by the caller. It never writes.
type Guard struct {
	repomanager repomanager.RepositoryManager
}

func NewGuard(m repomanager.RepositoryManager) *Guard {
	return &Guard{repomanager: m}
}

// ResolveOwnedChallenge returns common.ErrorNotFound for an unknown id and
// common.ErrorForbidden when the challenge belongs to someone else.
func (g *Guard) ResolveOwnedChallenge(ctx context.Context, db dbx.DBTX, challengeID, callerID int64) (*models.Challenge, error) {
	c, err := g.repomanager.Challenges(db).GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading challenge: %w", err)
	}
	if c.UserID != callerID {
		return nil, common.ErrorForbidden
	}
	return c, nil
}

// ResolveOwnedTask authorizes a task through its parent challenge.
func (g *Guard) ResolveOwnedTask(ctx context.Context, db dbx.DBTX, taskID, callerID int64) (*models.Task, *models.Challenge, error) {
	t, err := g.repomanager.Tasks(db).GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, common.ErrorNotFound
		}
		return nil, nil, fmt.Errorf("error loading task: %w", err)
	}
	c, err := g.ResolveOwnedChallenge(ctx, db, t.ChallengeID, callerID)
	if err != nil {
		return nil, nil, err
	}
	return t, c, nil
}
