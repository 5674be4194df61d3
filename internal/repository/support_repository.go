package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-review/internal/model"
)

// SupportRepository stores support tickets.
type SupportRepository struct {
	pool *pgxpool.Pool
}

// NewSupportRepository creates a new SupportRepository.
func NewSupportRepository(pool *pgxpool.Pool) *SupportRepository {
	return &SupportRepository{pool: pool}
}

// Create inserts a new ticket.
func (r *SupportRepository) Create(ctx context.Context, t *model.SupportTicket) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO support_tickets (user_id, subject, message)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		t.UserID, t.Subject, t.Message,
	).Scan(&t.ID, &t.CreatedAt)
}
