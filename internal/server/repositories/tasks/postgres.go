package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/thechallenge/internal/common"
	"github.com/dmitrijs2005/thechallenge/internal/dbx"
	"github.com/dmitrijs2005/thechallenge/internal/server/models"
)

// batchSize bounds rows per INSERT; each row binds 5 parameters and
// PostgreSQL caps a statement at 65535.
const batchSize = 1000

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateBatch(ctx context.Context, tasks []*models.Task) error {
	for start := 0; start < len(tasks); start += batchSize {
		end := min(start+batchSize, len(tasks))
		if err := r.insertChunk(ctx, tasks[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) insertChunk(ctx context.Context, chunk []*models.Task) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO tasks (challenge_id, name, day_number, is_fixed, is_completed) VALUES ")

	args := make([]any, 0, len(chunk)*5)
	for i, t := range chunk {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := i * 5
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5)
		args = append(args, t.ChallengeID, t.Name, t.DayNumber, t.IsFixed, t.IsCompleted)
	}
	sb.WriteString(" RETURNING id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	// RETURNING of a multi-row VALUES insert yields ids in VALUES order.
	i := 0
	for rows.Next() {
		if i >= len(chunk) {
			return fmt.Errorf("db error: unexpected returned row")
		}
		if err := rows.Scan(&chunk[i].ID); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if i != len(chunk) {
		return fmt.Errorf("db error: inserted %d of %d tasks", i, len(chunk))
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.Task) (*models.Task, error) {
	query := `
		INSERT INTO tasks (challenge_id, name, day_number, is_fixed, is_completed)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, t.ChallengeID, t.Name, t.DayNumber, t.IsFixed, t.IsCompleted).Scan(&t.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	query := `
		SELECT id, challenge_id, name, day_number, is_fixed, is_completed
		FROM tasks
		WHERE id = $1
	`
	t := &models.Task{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.ChallengeID, &t.Name, &t.DayNumber, &t.IsFixed, &t.IsCompleted)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) ListByChallenge(ctx context.Context, challengeID int64) ([]*models.Task, error) {
	query := `
		SELECT id, challenge_id, name, day_number, is_fixed, is_completed
		FROM tasks
		WHERE challenge_id = $1
		ORDER BY day_number, id
	`
	rows, err := r.db.QueryContext(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	var result []*models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ChallengeID, &t.Name, &t.DayNumber, &t.IsFixed, &t.IsCompleted); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) ToggleCompleted(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE tasks
		SET is_completed = NOT is_completed
		WHERE id = $1
		RETURNING is_completed
	`
	var completed bool
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return completed, nil
}

func (r *PostgresRepository) DeleteNonFixed(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1 AND is_fixed = FALSE`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		// distinguish a fixed row from a missing one
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return common.ErrProtected
	}
	return nil
}
