package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-review/internal/model"
)

// ReviewerRepository handles reviewer and question data access.
type ReviewerRepository struct {
	pool *pgxpool.Pool
}

// NewReviewerRepository creates a new ReviewerRepository.
func NewReviewerRepository(pool *pgxpool.Pool) *ReviewerRepository {
	return &ReviewerRepository{pool: pool}
}

const reviewerColumns = `r.id, r.title, r.description, r.category,
	(SELECT COUNT(*) FROM questions q WHERE q.reviewer_id = r.id) AS question_count,
	r.time_limit_minutes, r.premium, r.created_at`

func scanReviewer(row interface{ Scan(...any) error }, rv *model.Reviewer) error {
	return row.Scan(&rv.ID, &rv.Title, &rv.Description, &rv.Category,
		&rv.QuestionCount, &rv.TimeLimitMinutes, &rv.Premium, &rv.CreatedAt)
}

// List retrieves every reviewer, newest first.
func (r *ReviewerRepository) List(ctx context.Context) ([]model.Reviewer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+reviewerColumns+` FROM reviewers r ORDER BY r.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviewers []model.Reviewer
	for rows.Next() {
		var rv model.Reviewer
		if err := scanReviewer(rows, &rv); err != nil {
			return nil, err
		}
		reviewers = append(reviewers, rv)
	}
	return reviewers, rows.Err()
}

// GetByID retrieves a reviewer by its UUID.
func (r *ReviewerRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Reviewer, error) {
	rv := &model.Reviewer{}
	row := r.pool.QueryRow(ctx, `SELECT `+reviewerColumns+` FROM reviewers r WHERE r.id = $1`, id)
	if err := scanReviewer(row, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// Create inserts a new reviewer.
func (r *ReviewerRepository) Create(ctx context.Context, rv *model.Reviewer) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO reviewers (title, description, category, time_limit_minutes, premium)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		rv.Title, rv.Description, rv.Category, rv.TimeLimitMinutes, rv.Premium,
	).Scan(&rv.ID, &rv.CreatedAt)
}

// ListQuestions retrieves all questions of a reviewer, ordered by order_num.
func (r *ReviewerRepository) ListQuestions(ctx context.Context, reviewerID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, reviewer_id, question_text, options, correct_choice, explanation, order_num
		 FROM questions WHERE reviewer_id = $1
		 ORDER BY order_num`, reviewerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ReviewerID, &q.Text, &q.Options, &q.CorrectChoice, &q.Explanation, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CreateQuestion inserts a new question.
func (r *ReviewerRepository) CreateQuestion(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (reviewer_id, question_text, options, correct_choice, explanation, order_num)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		q.ReviewerID, q.Text, q.Options, q.CorrectChoice, q.Explanation, q.OrderNum,
	).Scan(&q.ID)
}
