package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-review/internal/model"
)

// LibraryStore is the library persistence used by LibraryService.
type LibraryStore interface {
	List(ctx context.Context, userID int) ([]model.LibraryEntry, error)
	Add(ctx context.Context, userID int, reviewerID uuid.UUID) error
	Remove(ctx context.Context, userID int, reviewerID uuid.UUID) (bool, error)
}

// LibraryService manages the reviewers a user has saved.
type LibraryService struct {
	store     LibraryStore
	reviewers *ReviewerService
}

// NewLibraryService creates a new LibraryService.
func NewLibraryService(store LibraryStore, reviewers *ReviewerService) *LibraryService {
	return &LibraryService{store: store, reviewers: reviewers}
}

// List returns the user's saved reviewers, most recent first.
func (s *LibraryService) List(ctx context.Context, userID int) ([]model.LibraryEntry, error) {
	entries, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list library: %w", err)
	}
	if entries == nil {
		entries = []model.LibraryEntry{}
	}
	return entries, nil
}

// Add saves a reviewer. Unknown reviewers return ErrNotFound.
func (s *LibraryService) Add(ctx context.Context, userID int, reviewerID uuid.UUID) error {
	if _, err := s.reviewers.Get(ctx, reviewerID); err != nil {
		return err
	}
	if err := s.store.Add(ctx, userID, reviewerID); err != nil {
		return fmt.Errorf("add to library: %w", err)
	}
	return nil
}

// Remove drops a reviewer from the library. Missing entries return ErrNotFound.
func (s *LibraryService) Remove(ctx context.Context, userID int, reviewerID uuid.UUID) error {
	removed, err := s.store.Remove(ctx, userID, reviewerID)
	if err != nil {
		return fmt.Errorf("remove from library: %w", err)
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}
