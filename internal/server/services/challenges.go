package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/config"
	"github.com/dmitrijs2005/thechallenge/internal/server/dayclock"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
	"github.com/dmitrijs2005/thechallenge/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thechallenge/internal/timex"
)

const (
	MaxChallengeNameLen = 100
	MaxTaskNameLen      = 200
	MaxDurationDays     = 365
)

// ChallengeService creates, lists, shows, deletes and exports challenges.
type ChallengeService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	guard       *Guard
	clock       timex.Clock
	loc         *time.Location
	config      *config.Config
}

func NewChallengeService(db *sql.DB, m repomanager.RepositoryManager, clock timex.Clock, loc *time.Location, cfg *config.Config) *ChallengeService {
	return &ChallengeService{
		db:          db,
		repomanager: m,
		guard:       NewGuard(m),
		clock:       clock,
		loc:         loc,
		config:      cfg,
	}
}

func (s *ChallengeService) today() time.Time {
	return dayclock.Today(s.clock.Now(), s.loc)
}

// Create validates the input, then inserts the challenge and its
// durationDays x len(fixed names) grid of fixed tasks in one transaction.
// Tasks are generated day-major, names in the supplied order.
func (s *ChallengeService) Create(ctx context.Context, ownerID int64, name string, startDate time.Time, durationDays int, fixedTaskNames []string) (*models.Challenge, error) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n == 0 || n > MaxChallengeNameLen {
		return nil, common.NewValidationError("name", fmt.Sprintf("must be 1 to %d characters", MaxChallengeNameLen))
	}
	if startDate.IsZero() {
		return nil, common.NewValidationError("start_date", "is required")
	}
	if durationDays < 1 || durationDays > MaxDurationDays {
		return nil, common.NewValidationError("duration", fmt.Sprintf("must be between 1 and %d days", MaxDurationDays))
	}
	names := cleanTaskNames(fixedTaskNames)
	if len(names) == 0 {
		return nil, common.NewValidationError("fixed_tasks", "at least one fixed task is required")
	}

	challenge := &models.Challenge{
		UserID:       ownerID,
		Name:         name,
		StartDate:    models.NewDate(startDate),
		DurationDays: durationDays,
	}

	return dbx.WithTxValue(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) (*models.Challenge, error) {
		c, err := s.repomanager.Challenges(tx).Create(ctx, challenge)
		if err != nil {
			return nil, fmt.Errorf("error creating challenge: %w", err)
		}
		if err := s.repomanager.Tasks(tx).CreateBatch(ctx, fixedGrid(c.ID, durationDays, names)); err != nil {
			return nil, fmt.Errorf("error creating fixed tasks: %w", err)
		}
		return c, nil
	})
}

// List returns the owner's challenges, newest first.
func (s *ChallengeService) List(ctx context.Context, ownerID int64) ([]models.ChallengeSummary, error) {
	list, err := s.repomanager.Challenges(s.db).ListByUser(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("error listing challenges: %w", err)
	}

	today := s.today()
	out := make([]models.ChallengeSummary, 0, len(list))
	for _, c := range list {
		out = append(out, models.ChallengeSummary{
			Challenge:        *c,
			CurrentDayNumber: dayclock.CurrentDayNumber(c.StartDate.Time, today),
			IsFinished:       dayclock.IsFinished(c.StartDate.Time, c.DurationDays, today),
		})
	}
	return out, nil
}

// Detail returns the challenge grid grouped by day with per-day progress.
func (s *ChallengeService) Detail(ctx context.Context, ownerID, challengeID int64) (*models.ChallengeDetail, error) {
	today := s.today()

	c, err := s.guard.ResolveOwnedChallenge(ctx, s.db, challengeID, ownerID)
	if err != nil {
		return nil, err
	}

	list, err := s.repomanager.Tasks(s.db).ListByChallenge(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}

	byDay := make(map[int][]models.Task)
	for _, t := range list {
		byDay[t.DayNumber] = append(byDay[t.DayNumber], *t)
	}

	return &models.ChallengeDetail{
		Challenge:        *c,
		CurrentDate:      today.Format(time.DateOnly),
		CurrentDayNumber: dayclock.CurrentDayNumber(c.StartDate.Time, today),
		IsFinished:       dayclock.IsFinished(c.StartDate.Time, c.DurationDays, today),
		TasksByDay:       byDay,
		DailyProgress:    DailyProgress(byDay, c.DurationDays),
	}, nil
}

// Delete removes the challenge and its tasks.
func (s *ChallengeService) Delete(ctx context.Context, ownerID, challengeID int64) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := s.guard.ResolveOwnedChallenge(ctx, tx, challengeID, ownerID)
		if err != nil {
			return err
		}
		if err := s.repomanager.Challenges(tx).Delete(ctx, c.ID); err != nil {
			return fmt.Errorf("error deleting challenge: %w", err)
		}
		return nil
	})
}

// DailyProgress returns round(100 * completed / total) for days 1..duration.
// A day without tasks counts as 0%.
func DailyProgress(byDay map[int][]models.Task, durationDays int) []int {
	out := make([]int, durationDays)
	for day := 1; day <= durationDays; day++ {
		tasks := byDay[day]
		if len(tasks) == 0 {
			continue
		}
		done := 0
		for _, t := range tasks {
			if t.IsCompleted {
				done++
			}
		}
		out[day-1] = int(math.Round(100 * float64(done) / float64(len(tasks))))
	}
	return out
}

func cleanTaskNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, truncateRunes(n, MaxTaskNameLen))
	}
	return out
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}

func fixedGrid(challengeID int64, durationDays int, names []string) []*models.Task {
	out := make([]*models.Task, 0, durationDays*len(names))
	for day := 1; day <= durationDays; day++ {
		for _, n := range names {
			out = append(out, &models.Task{
				ChallengeID: challengeID,
				Name:        n,
				DayNumber:   day,
				IsFixed:     true,
			})
		}
	}
	return out
}
