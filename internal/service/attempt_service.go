package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/model"
)

// Attempt errors.
var (
	ErrSubscriptionRequired = errors.New("premium plan required")
	ErrAttemptCompleted     = errors.New("attempt already completed")
	ErrAttemptNotCompleted  = errors.New("attempt not completed yet")
	ErrInvalidQuestionIndex = errors.New("question index out of range")
	ErrInvalidChoice        = errors.New("invalid choice")
	ErrTimeExpired          = errors.New("attempt time has expired")
	ErrSubmitInProgress     = errors.New("attempt is being graded")

	errAttemptFinished = errors.New("open attempt finished during start")
)

const (
	// answerGrace accepts saves that were in flight when the deadline passed.
	answerGrace     = 5 * time.Second
	submitLockTTL   = 30 * time.Second
	resultTTL       = 24 * time.Hour
	analysisTimeout = 10 * time.Second

	pgUniqueViolation = "23505"
)

// AttemptStore is the attempt persistence used by AttemptService.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetOpen(ctx context.Context, userID int, reviewerID uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	Resume(ctx context.Context, id uuid.UUID, remaining *int, resumedAt time.Time) error
	Pause(ctx context.Context, id uuid.UUID, remaining *int, currentIndex int) error
	Complete(ctx context.Context, res *model.Result) error
	ListAnswers(ctx context.Context, attemptID uuid.UUID) (map[string]string, error)
}

// AttemptService runs the server side of an exam attempt: start-or-resume,
// autosave, pause, grading and the result/review views.
type AttemptService struct {
	attempts  AttemptStore
	reviewers *ReviewerService
	rdb       *redis.Client
	analyzer  Analyzer
	clock     clock.Clock
	log       zerolog.Logger
}

// NewAttemptService creates a new AttemptService. analyzer may be nil.
func NewAttemptService(
	attempts AttemptStore,
	reviewers *ReviewerService,
	rdb *redis.Client,
	analyzer Analyzer,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		reviewers: reviewers,
		rdb:       rdb,
		analyzer:  analyzer,
		clock:     clk,
		log:       log.With().Str("component", "attempt_service").Logger(),
	}
}

// ─── Start or resume ──────────────────────────────────────────────────

// Start resumes the caller's open attempt on the reviewer, or creates one
// with a shuffled question order. An open attempt whose time ran out is
// graded first and a fresh attempt is started.
func (s *AttemptService) Start(ctx context.Context, claims *Claims, reviewerID uuid.UUID) (*model.StartAttemptResponse, error) {
	rv, err := s.reviewers.Get(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if rv.Premium && !claims.Premium() {
		return nil, ErrSubscriptionRequired
	}

	payload, err := s.reviewers.Payload(ctx, rv)
	if err != nil {
		return nil, err
	}

	open, err := s.attempts.GetOpen(ctx, claims.UserID, reviewerID)
	switch {
	case err == nil:
		resp, err := s.resume(ctx, open, payload)
		if !errors.Is(err, errAttemptFinished) {
			return resp, err
		}
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("get open attempt: %w", err)
	}

	return s.create(ctx, claims.UserID, rv, payload)
}

func (s *AttemptService) create(ctx context.Context, userID int, rv *model.Reviewer, payload *model.ReviewerPayload) (*model.StartAttemptResponse, error) {
	order := make([]uuid.UUID, len(payload.Questions))
	for i, q := range payload.Questions {
		order[i] = q.ID
	}
	rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	now := s.clock.Now()
	a := &model.Attempt{
		ReviewerID:       rv.ID,
		UserID:           userID,
		Status:           model.AttemptStatusInProgress,
		QuestionOrder:    order,
		RemainingSeconds: rv.TimeLimitSeconds(),
		ResumedAt:        &now,
	}

	if err := s.attempts.Create(ctx, a); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// A concurrent start created the attempt first.
			open, fetchErr := s.attempts.GetOpen(ctx, userID, rv.ID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return s.resume(ctx, open, payload)
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	questions, err := orderQuestions(payload, order)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Str("reviewer_id", rv.ID.String()).
		Int("user_id", userID).
		Msg("Attempt started")

	return &model.StartAttemptResponse{
		AttemptID:        a.ID.String(),
		ReviewerID:       rv.ID.String(),
		Questions:        questions,
		TotalQuestions:   len(questions),
		RemainingSeconds: a.RemainingSeconds,
	}, nil
}

func (s *AttemptService) resume(ctx context.Context, a *model.Attempt, payload *model.ReviewerPayload) (*model.StartAttemptResponse, error) {
	// Graded but not yet flushed by the scoring worker.
	res, err := s.cachedResult(ctx, a.ID)
	switch {
	case err == nil:
		if err := s.attempts.Complete(ctx, res); err != nil {
			return nil, fmt.Errorf("complete attempt: %w", err)
		}
		return nil, errAttemptFinished
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	now := s.clock.Now()
	remaining := a.RemainingAt(now)
	if remaining != nil && *remaining == 0 {
		res, err := s.submit(ctx, a)
		if err != nil {
			return nil, err
		}
		if err := s.attempts.Complete(ctx, res); err != nil {
			return nil, fmt.Errorf("complete attempt: %w", err)
		}
		s.log.Info().Str("attempt_id", a.ID.String()).Msg("Expired attempt graded on start")
		return nil, errAttemptFinished
	}

	if err := s.attempts.Resume(ctx, a.ID, remaining, now); err != nil {
		return nil, fmt.Errorf("resume attempt: %w", err)
	}

	questions, err := orderQuestions(payload, a.QuestionOrder)
	if err != nil {
		return nil, err
	}

	answers, err := s.loadAnswers(ctx, a)
	if err != nil {
		return nil, err
	}
	userAnswers := make(map[int]model.Choice, len(answers))
	indices := make([]int, 0, len(answers))
	for k, v := range answers {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= len(questions) {
			continue
		}
		userAnswers[idx] = model.Choice(v)
		indices = append(indices, idx)
	}
	slices.Sort(indices)

	current := min(max(a.CurrentIndex, 0), len(questions)-1)

	s.log.Info().
		Str("attempt_id", a.ID.String()).
		Int("answered", len(indices)).
		Msg("Attempt resumed")

	return &model.StartAttemptResponse{
		AttemptID:        a.ID.String(),
		ReviewerID:       a.ReviewerID.String(),
		Resumed:          true,
		Questions:        questions,
		TotalQuestions:   len(questions),
		CurrentIndex:     current,
		RemainingSeconds: remaining,
		AnsweredIndices:  indices,
		UserAnswers:      userAnswers,
	}, nil
}

// orderQuestions lays the payload out in the attempt's question order.
func orderQuestions(payload *model.ReviewerPayload, order []uuid.UUID) ([]model.QuestionForStudent, error) {
	byID := make(map[uuid.UUID]model.QuestionForStudent, len(payload.Questions))
	for _, q := range payload.Questions {
		byID[q.ID] = q
	}
	questions := make([]model.QuestionForStudent, len(order))
	for i, id := range order {
		q, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("question %s of attempt no longer exists", id)
		}
		questions[i] = q
	}
	return questions, nil
}

// ─── Autosave & pause ─────────────────────────────────────────────────

// Open returns nil when the caller owns the attempt and it can still take answers.
func (s *AttemptService) Open(ctx context.Context, userID int, attemptID uuid.UUID) error {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return err
	}
	return s.ensureOpen(ctx, a)
}

// SaveAnswer stores one choice in the Redis answers hash and queues it for persistence.
func (s *AttemptService) SaveAnswer(ctx context.Context, userID int, attemptID uuid.UUID, req model.SaveAnswerRequest) error {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return err
	}
	if err := s.ensureOpen(ctx, a); err != nil {
		return err
	}
	if req.Index < 0 || req.Index >= len(a.QuestionOrder) {
		return ErrInvalidQuestionIndex
	}
	choice, err := model.ParseChoice(req.Choice)
	if err != nil {
		return ErrInvalidChoice
	}
	if pastDeadline(a, s.clock.Now()) {
		return ErrTimeExpired
	}

	id := a.ID.String()
	if err := s.rdb.HSet(ctx, config.CacheKey.AttemptAnswersKey(id), strconv.Itoa(req.Index), string(choice)).Err(); err != nil {
		return fmt.Errorf("save answer: %w", err)
	}

	job, _ := json.Marshal(model.AnswerJob{
		AttemptID:     id,
		QuestionID:    a.QuestionOrder[req.Index].String(),
		QuestionIndex: req.Index,
		Choice:        string(choice),
	})
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, job).Err(); err != nil {
		s.log.Error().Err(err).Str("attempt_id", id).Msg("Queue answer for persistence failed")
	}
	return nil
}

// Pause stores the remaining time and position. The client's remaining time
// is accepted only when it is lower than the server's.
func (s *AttemptService) Pause(ctx context.Context, userID int, attemptID uuid.UUID, req model.PauseAttemptRequest) error {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return err
	}
	if err := s.ensureOpen(ctx, a); err != nil {
		return err
	}

	remaining := a.RemainingAt(s.clock.Now())
	if remaining != nil && req.RemainingSeconds != nil && *req.RemainingSeconds >= 0 && *req.RemainingSeconds < *remaining {
		client := *req.RemainingSeconds
		remaining = &client
	}
	current := min(max(req.CurrentIndex, 0), max(len(a.QuestionOrder)-1, 0))

	if err := s.attempts.Pause(ctx, a.ID, remaining, current); err != nil {
		return fmt.Errorf("pause attempt: %w", err)
	}

	ev := s.log.Info().Str("attempt_id", a.ID.String()).Int("current_index", current)
	if remaining != nil {
		ev = ev.Int("remaining_seconds", *remaining)
	}
	ev.Msg("Attempt paused")
	return nil
}

// ─── Submit & grading ─────────────────────────────────────────────────

// Submit grades the attempt. Submitting a graded attempt returns the stored result.
func (s *AttemptService) Submit(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Result, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.submit(ctx, a)
}

func (s *AttemptService) submit(ctx context.Context, a *model.Attempt) (*model.Result, error) {
	res, err := s.storedResult(ctx, a)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrAttemptNotCompleted) {
		return nil, err
	}

	id := a.ID.String()
	lockKey := config.CacheKey.AttemptSubmitLockKey(id)
	acquired, err := s.rdb.SetNX(ctx, lockKey, 1, submitLockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire submit lock: %w", err)
	}
	if !acquired {
		return nil, ErrSubmitInProgress
	}
	defer s.rdb.Del(context.WithoutCancel(ctx), lockKey)

	res, err = s.grade(ctx, a)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	job, _ := json.Marshal(model.ScoreJob{
		AttemptID:    id,
		Score:        res.Score,
		CorrectCount: res.CorrectCount,
		Analysis:     res.Analysis,
		FinishedAt:   res.SubmittedAt,
	})

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, config.CacheKey.AttemptResultKey(id), data, resultTTL)
	pipe.RPush(ctx, config.WorkerKey.PersistScoresQueue, job)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("store result: %w", err)
	}

	s.log.Info().
		Str("attempt_id", id).
		Float64("score", res.Score).
		Int("correct", res.CorrectCount).
		Int("total", res.TotalQuestions).
		Msg("Attempt submitted and graded")
	return res, nil
}

func (s *AttemptService) grade(ctx context.Context, a *model.Attempt) (*model.Result, error) {
	key, err := s.reviewers.AnswerKey(ctx, a.ReviewerID)
	if err != nil {
		return nil, err
	}
	answers, err := s.loadAnswers(ctx, a)
	if err != nil {
		return nil, err
	}

	correct, answered, missed := GradeAnswers(a.QuestionOrder, key, answers)
	total := len(a.QuestionOrder)
	var score float64
	if total > 0 {
		score = float64(correct) / float64(total) * 100
	}

	res := &model.Result{
		AttemptID:      a.ID.String(),
		ReviewerID:     a.ReviewerID.String(),
		Score:          score,
		CorrectCount:   correct,
		AnsweredCount:  answered,
		TotalQuestions: total,
		SubmittedAt:    s.clock.Now().UTC(),
	}
	res.Analysis = s.analyze(ctx, a, res, missed)
	return res, nil
}

// GradeAnswers compares index-keyed answers with the question-id-keyed answer
// key. missed lists the indices answered wrong or left blank.
func GradeAnswers(order []uuid.UUID, key, answers map[string]string) (correct, answered int, missed []int) {
	for i, qid := range order {
		ans, ok := answers[strconv.Itoa(i)]
		if ok {
			answered++
		}
		if ok && ans == key[qid.String()] {
			correct++
			continue
		}
		missed = append(missed, i)
	}
	return correct, answered, missed
}

func (s *AttemptService) analyze(ctx context.Context, a *model.Attempt, res *model.Result, missed []int) string {
	in := AnalysisInput{Total: res.TotalQuestions, Correct: res.CorrectCount, Answered: res.AnsweredCount}
	if s.analyzer == nil {
		return SummarizeAttempt(in)
	}

	if rv, err := s.reviewers.Get(ctx, a.ReviewerID); err == nil {
		in.ReviewerTitle = rv.Title
		if payload, err := s.reviewers.Payload(ctx, rv); err == nil {
			texts := make(map[uuid.UUID]string, len(payload.Questions))
			for _, q := range payload.Questions {
				texts[q.ID] = q.Text
			}
			for _, i := range missed {
				in.Missed = append(in.Missed, texts[a.QuestionOrder[i]])
			}
		}
	}

	actx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()
	text, err := s.analyzer.Analyze(actx, in)
	if err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("AI analysis failed, using summary")
		return SummarizeAttempt(in)
	}
	return text
}

// ─── Result & review ──────────────────────────────────────────────────

// Result returns the graded outcome of a submitted attempt.
func (s *AttemptService) Result(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Result, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	return s.storedResult(ctx, a)
}

// Review lists every question of a submitted attempt in attempt order with
// the user's and the correct choice.
func (s *AttemptService) Review(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Review, error) {
	a, err := s.owned(ctx, userID, attemptID)
	if err != nil {
		return nil, err
	}
	if _, err := s.storedResult(ctx, a); err != nil {
		return nil, err
	}

	questions, err := s.reviewers.Questions(ctx, a.ReviewerID)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		byID[questions[i].ID] = &questions[i]
	}

	answers, err := s.loadAnswers(ctx, a)
	if err != nil {
		return nil, err
	}

	items := make([]model.ReviewItem, 0, len(a.QuestionOrder))
	for i, qid := range a.QuestionOrder {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		user := model.Choice(answers[strconv.Itoa(i)])
		items = append(items, model.ReviewItem{
			Index:         i,
			QuestionID:    qid.String(),
			Text:          q.Text,
			Options:       q.Options,
			UserChoice:    user,
			CorrectChoice: q.CorrectChoice,
			Correct:       user != "" && user == q.CorrectChoice,
			Explanation:   q.Explanation,
		})
	}

	return &model.Review{
		AttemptID:  a.ID.String(),
		ReviewerID: a.ReviewerID.String(),
		Items:      items,
	}, nil
}

// ─── Helpers ──────────────────────────────────────────────────────────

// owned loads an attempt and hides other users' attempts as not found.
func (s *AttemptService) owned(ctx context.Context, userID int, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a.UserID != userID {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *AttemptService) ensureOpen(ctx context.Context, a *model.Attempt) error {
	if a.Status == model.AttemptStatusCompleted {
		return ErrAttemptCompleted
	}
	n, err := s.rdb.Exists(ctx, config.CacheKey.AttemptResultKey(a.ID.String())).Result()
	if err != nil {
		return fmt.Errorf("check result: %w", err)
	}
	if n > 0 {
		return ErrAttemptCompleted
	}
	return nil
}

func pastDeadline(a *model.Attempt, now time.Time) bool {
	if a.RemainingSeconds == nil || a.Status != model.AttemptStatusInProgress || a.ResumedAt == nil {
		return false
	}
	deadline := a.ResumedAt.Add(time.Duration(*a.RemainingSeconds)*time.Second + answerGrace)
	return now.After(deadline)
}

// cachedResult returns redis.Nil when the attempt has no graded result in Redis.
func (s *AttemptService) cachedResult(ctx context.Context, attemptID uuid.UUID) (*model.Result, error) {
	data, err := s.rdb.Get(ctx, config.CacheKey.AttemptResultKey(attemptID.String())).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	var res model.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &res, nil
}

// storedResult reads the result from Redis, then from the completed attempt row.
func (s *AttemptService) storedResult(ctx context.Context, a *model.Attempt) (*model.Result, error) {
	res, err := s.cachedResult(ctx, a.ID)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, redis.Nil) {
		return nil, err
	}
	if a.Status != model.AttemptStatusCompleted {
		return nil, ErrAttemptNotCompleted
	}

	answers, err := s.loadAnswers(ctx, a)
	if err != nil {
		return nil, err
	}
	res = &model.Result{
		AttemptID:      a.ID.String(),
		ReviewerID:     a.ReviewerID.String(),
		AnsweredCount:  len(answers),
		TotalQuestions: len(a.QuestionOrder),
	}
	if a.Score != nil {
		res.Score = *a.Score
	}
	if a.CorrectCount != nil {
		res.CorrectCount = *a.CorrectCount
	}
	if a.Analysis != nil {
		res.Analysis = *a.Analysis
	}
	if a.FinishedAt != nil {
		res.SubmittedAt = a.FinishedAt.UTC()
	}
	return res, nil
}

// loadAnswers reads the answers hash, falling back to PostgreSQL and re-warming Redis.
func (s *AttemptService) loadAnswers(ctx context.Context, a *model.Attempt) (map[string]string, error) {
	key := config.CacheKey.AttemptAnswersKey(a.ID.String())
	answers, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("get answers: %w", err)
	}
	if len(answers) > 0 {
		return answers, nil
	}

	answers, err = s.attempts.ListAnswers(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	if len(answers) > 0 {
		fields := make(map[string]interface{}, len(answers))
		for k, v := range answers {
			fields[k] = v
		}
		if err := s.rdb.HSet(ctx, key, fields).Err(); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Re-warm answers cache failed")
		}
	}
	return answers, nil
}
