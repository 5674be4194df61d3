package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-review/internal/model"
)

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

const attemptColumns = `id, reviewer_id, user_id, status, question_order, current_index,
	remaining_seconds, resumed_at, started_at, finished_at, score, correct_count, analysis`

func scanAttempt(row interface{ Scan(...any) error }) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.ReviewerID, &a.UserID, &a.Status, &a.QuestionOrder, &a.CurrentIndex,
		&a.RemainingSeconds, &a.ResumedAt, &a.StartedAt, &a.FinishedAt, &a.Score, &a.CorrectCount, &a.Analysis)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetOpen retrieves the user's unfinished (IN_PROGRESS or PAUSED) attempt for a reviewer.
func (r *AttemptRepository) GetOpen(ctx context.Context, userID int, reviewerID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND reviewer_id = $2 AND status <> $3`,
		userID, reviewerID, model.AttemptStatusCompleted))
}

// Create inserts a new IN_PROGRESS attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (reviewer_id, user_id, status, question_order, current_index, remaining_seconds, resumed_at)
		 VALUES ($1, $2, $3, $4, 0, $5, $6)
		 RETURNING id, started_at`,
		a.ReviewerID, a.UserID, model.AttemptStatusInProgress, a.QuestionOrder, a.RemainingSeconds, a.ResumedAt,
	).Scan(&a.ID, &a.StartedAt)
}

// Resume marks an attempt IN_PROGRESS again with a fresh time base.
func (r *AttemptRepository) Resume(ctx context.Context, id uuid.UUID, remaining *int, resumedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, remaining_seconds = $2, resumed_at = $3
		 WHERE id = $4 AND status <> $5`,
		model.AttemptStatusInProgress, remaining, resumedAt, id, model.AttemptStatusCompleted)
	return err
}

// Pause stores the remaining time and position and marks the attempt PAUSED.
func (r *AttemptRepository) Pause(ctx context.Context, id uuid.UUID, remaining *int, currentIndex int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, remaining_seconds = $2, current_index = $3, resumed_at = NULL
		 WHERE id = $4 AND status <> $5`,
		model.AttemptStatusPaused, remaining, currentIndex, id, model.AttemptStatusCompleted)
	return err
}

// Complete marks an attempt COMPLETED with its grade.
func (r *AttemptRepository) Complete(ctx context.Context, res *model.Result) error {
	id, err := uuid.Parse(res.AttemptID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, score = $2, correct_count = $3, analysis = $4, finished_at = $5
		 WHERE id = $6`,
		model.AttemptStatusCompleted, res.Score, res.CorrectCount, res.Analysis, res.SubmittedAt, id)
	return err
}

// ListAnswers retrieves the persisted answers of an attempt keyed by question index.
func (r *AttemptRepository) ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_index, choice FROM attempt_answers WHERE attempt_id = $1`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	answers := make(map[string]string)
	for rows.Next() {
		var (
			idx    int
			choice string
		)
		if err := rows.Scan(&idx, &choice); err != nil {
			return nil, err
		}
		answers[strconv.Itoa(idx)] = choice
	}
	return answers, rows.Err()
}
