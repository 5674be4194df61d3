package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-review/internal/model"
)

// LibraryRepository handles a user's saved reviewers.
type LibraryRepository struct {
	pool *pgxpool.Pool
}

// NewLibraryRepository creates a new LibraryRepository.
func NewLibraryRepository(pool *pgxpool.Pool) *LibraryRepository {
	return &LibraryRepository{pool: pool}
}

// List retrieves a user's library, most recently added first.
func (r *LibraryRepository) List(ctx context.Context, userID int) ([]model.LibraryEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewerColumns+`, l.added_at
		 FROM library_entries l
		 JOIN reviewers r ON r.id = l.reviewer_id
		 WHERE l.user_id = $1
		 ORDER BY l.added_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.LibraryEntry
	for rows.Next() {
		var e model.LibraryEntry
		rv := &e.Reviewer
		if err := rows.Scan(&rv.ID, &rv.Title, &rv.Description, &rv.Category,
			&rv.QuestionCount, &rv.TimeLimitMinutes, &rv.Premium, &rv.CreatedAt, &e.AddedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Add saves a reviewer to the user's library. Adding twice is a no-op.
func (r *LibraryRepository) Add(ctx context.Context, userID int, reviewerID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO library_entries (user_id, reviewer_id)
		 VALUES ($1, $2)
		 ON CONFLICT (user_id, reviewer_id) DO NOTHING`, userID, reviewerID)
	return err
}

// Remove deletes a reviewer from the user's library. It reports whether a row was removed.
func (r *LibraryRepository) Remove(ctx context.Context, userID int, reviewerID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM library_entries WHERE user_id = $1 AND reviewer_id = $2`, userID, reviewerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
