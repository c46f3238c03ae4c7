package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/dayclock"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thechallenge/internal/timex"
)

// TaskService changes tasks. Only tasks of the challenge's current day can be
// added, toggled or deleted; fixed tasks can never be deleted.
type TaskService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *Guard
	clock       timex.Clock
	loc         *time.Location
}

func NewTaskService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, loc *time.Location) *TaskService {
	return &TaskService{
		db:          db,
		repomanager: m,
		guard:       NewGuard(m),
		clock:       clock,
		loc:         loc,
	}
}

// Add creates a non-fixed task. dayNumber defaults to the current day when nil.
func (s *TaskService) Add(ctx context.Context, ownerID, challengeID int64, name string, dayNumber *int) (*models.Task, error) {
	today := dayclock.Today(s.clock.Now(), s.loc)

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
		c, err := s.guard.ResolveOwnedChallenge(ctx, tx, challengeID, ownerID)
		if err != nil {
			return nil, err
		}

		current := dayclock.CurrentDayNumber(c.StartDate.Time, today)
		day := current
		if dayNumber != nil {
			if *dayNumber < 1 {
				return nil, common.NewValidationError("day_number", "must be a positive integer")
			}
			day = *dayNumber
		}
		if day != current || day < 1 || day > c.DurationDays {
			return nil, common.ErrWrongDay
		}

		name = strings.TrimSpace(name)
		if name == "" {
			return nil, common.NewValidationError("name", "must not be empty")
		}

		t, err := s.repomanager.Tasks(tx).Create(ctx, &models.Task{
			ChallengeID: c.ID,
			Name:        truncateRunes(name, MaxTaskNameLen),
			DayNumber:   day,
		})
		if err != nil {
			return nil, fmt.Errorf("error creating task: %w", err)
		}
		return t, nil
	})
}

// Toggle flips the completion flag of a current-day task.
func (s *TaskService) Toggle(ctx context.Context, ownerID, taskID int64) (*models.Task, error) {
	today := dayclock.Today(s.clock.Now(), s.loc)

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Task, error) {
		t, c, err := s.guard.ResolveOwnedTask(ctx, tx, taskID, ownerID)
		if err != nil {
			return nil, err
		}
		if t.DayNumber != dayclock.CurrentDayNumber(c.StartDate.Time, today) {
			return nil, common.ErrWrongDay
		}

		completed, err := s.repomanager.Tasks(tx).ToggleCompleted(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("error toggling task: %w", err)
		}
		t.IsCompleted = completed
		return t, nil
	})
}

// Delete removes a non-fixed current-day task.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID int64) error {
	today := dayclock.Today(s.clock.Now(), s.loc)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		t, c, err := s.guard.ResolveOwnedTask(ctx, tx, taskID, ownerID)
		if err != nil {
			return err
		}
		if t.DayNumber != dayclock.CurrentDayNumber(c.StartDate.Time, today) {
			return common.ErrWrongDay
		}
		if t.IsFixed {
			return common.ErrProtected
		}

		if err := s.repomanager.Tasks(tx).DeleteNonFixed(ctx, t.ID); err != nil {
			return fmt.Errorf("error deleting task: %w", err)
		}
		return nil
	})
}
