package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/model"
)

// SupportStore is the ticket persistence used by SupportService.
type SupportStore interface {
	Create(ctx context.Context, t *model.SupportTicket) error
}

// SupportService files help requests.
type SupportService struct {
	store SupportStore
	log   zerolog.Logger
}

// NewSupportService creates a new SupportService.
func NewSupportService(store SupportStore, log zerolog.Logger) *SupportService {
	return &SupportService{store: store, log: log.With().Str("component", "support_service").Logger()}
}

// Submit stores a ticket for the user.
func (s *SupportService) Submit(ctx context.Context, userID int, req model.CreateTicketRequest) (*model.SupportTicket, error) {
	t := &model.SupportTicket{
		UserID:  userID,
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}
	if err := s.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("create ticket: %w", err)
	}
	s.log.Info().Int("ticket_id", t.ID).Int("user_id", userID).Msg("Support ticket filed")
	return t, nil
}
