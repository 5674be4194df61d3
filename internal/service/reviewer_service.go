package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/model"
)

// Reviewer errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrNoQuestions = errors.New("reviewer has no questions")
)

// ReviewerStore is the reviewer persistence used by ReviewerService.
type ReviewerStore interface {
	List(ctx context.Context) ([]model.Reviewer, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Reviewer, error)
	ListQuestions(ctx context.Context, reviewerID uuid.UUID) ([]model.Question, error)
}

// ReviewerService serves the reviewer catalog and keeps question payloads
// and answer keys cached in Redis.
type ReviewerService struct {
	store ReviewerStore
	rdb   *redis.Client
	log   zerolog.Logger
}

// NewReviewerService creates a new ReviewerService.
func NewReviewerService(store ReviewerStore, rdb *redis.Client, log zerolog.Logger) *ReviewerService {
	return &ReviewerService{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "reviewer_service").Logger(),
	}
}

// List returns the reviewer catalog.
func (s *ReviewerService) List(ctx context.Context) ([]model.Reviewer, error) {
	reviewers, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reviewers: %w", err)
	}
	if reviewers == nil {
		reviewers = []model.Reviewer{}
	}
	return reviewers, nil
}

// Get returns one reviewer or ErrNotFound.
func (s *ReviewerService) Get(ctx context.Context, id uuid.UUID) (*model.Reviewer, error) {
	rv, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get reviewer: %w", err)
	}
	return rv, nil
}

// Questions returns the reviewer's questions including the answer key.
func (s *ReviewerService) Questions(ctx context.Context, reviewerID uuid.UUID) ([]model.Question, error) {
	questions, err := s.store.ListQuestions(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

// WarmCache loads a reviewer's payload and answer key from PostgreSQL into Redis.
func (s *ReviewerService) WarmCache(ctx context.Context, rv *model.Reviewer) error {
	questions, err := s.Questions(ctx, rv.ID)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return ErrNoQuestions
	}

	studentQuestions := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		studentQuestions[i] = questions[i].ForStudent()
	}

	payload := model.ReviewerPayload{
		ReviewerID:       rv.ID,
		Title:            rv.Title,
		TimeLimitMinutes: rv.TimeLimitMinutes,
		Questions:        studentQuestions,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	answerKey := make(map[string]interface{}, len(questions))
	for _, q := range questions {
		answerKey[q.ID.String()] = string(q.CorrectChoice)
	}

	id := rv.ID.String()
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.ReviewerPayloadKey(id), payloadJSON, 0)
	pipe.Del(ctx, config.CacheKey.ReviewerAnswerKey(id))
	pipe.HSet(ctx, config.CacheKey.ReviewerAnswerKey(id), answerKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache to redis: %w", err)
	}

	s.log.Debug().
		Str("reviewer_id", id).
		Int("questions", len(questions)).
		Msg("Cache warmed")
	return nil
}

// PrewarmAll loads every reviewer into Redis on startup.
func (s *ReviewerService) PrewarmAll(ctx context.Context) error {
	reviewers, err := s.List(ctx)
	if err != nil {
		return err
	}
	if len(reviewers) == 0 {
		s.log.Info().Msg("No reviewers to prewarm")
		return nil
	}

	warmed := 0
	for i := range reviewers {
		if err := s.WarmCache(ctx, &reviewers[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("reviewer_id", reviewers[i].ID.String()).
				Msg("Failed to warm reviewer, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(reviewers)).
		Msg("Prewarming complete")
	return nil
}

// Payload returns the cached student payload, warming the cache on a miss.
func (s *ReviewerService) Payload(ctx context.Context, rv *model.Reviewer) (*model.ReviewerPayload, error) {
	key := config.CacheKey.ReviewerPayloadKey(rv.ID.String())
	data, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		if err := s.WarmCache(ctx, rv); err != nil {
			return nil, err
		}
		data, err = s.rdb.Get(ctx, key).Bytes()
	}
	if err != nil {
		return nil, fmt.Errorf("get payload: %w", err)
	}

	var payload model.ReviewerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &payload, nil
}

// AnswerKey returns question id -> correct choice, warming the cache on a miss.
func (s *ReviewerService) AnswerKey(ctx context.Context, reviewerID uuid.UUID) (map[string]string, error) {
	key := config.CacheKey.ReviewerAnswerKey(reviewerID.String())
	result, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	if len(result) > 0 {
		return result, nil
	}

	rv, err := s.Get(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if err := s.WarmCache(ctx, rv); err != nil {
		return nil, err
	}
	result, err = s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answer key: %w", err)
	}
	return result, nil
}
