package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/model"
)

const (
	AutosavePollTimeout  = 1 * time.Second
	AutosaveRetryBackoff = 5 * time.Second
)

// AutosaveWorker consumes the persist answers queue and UPSERTs answers to PostgreSQL.
type AutosaveWorker struct {
	db    Execer
	rdb   *redis.Client
	log   zerolog.Logger
	retry time.Duration
}

// NewAutosaveWorker creates a new AutosaveWorker.
func NewAutosaveWorker(db Execer, rdb *redis.Client, log zerolog.Logger) *AutosaveWorker {
	return &AutosaveWorker{
		db:    db,
		rdb:   rdb,
		log:   log.With().Str("component", "autosave_worker").Logger(),
		retry: AutosaveRetryBackoff,
	}
}

// Start begins the worker loop and drains the queue on shutdown. Call in a goroutine.
func (w *AutosaveWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AutosaveWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, AutosavePollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}
	if len(result) < 2 {
		return
	}

	var job model.AnswerJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persistAnswer(ctx, &job); err != nil {
		w.log.Error().Err(err).
			Str("attempt_id", job.AttemptID).
			Int("question_index", job.QuestionIndex).
			Msg("Persist error, retrying")
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		select {
		case <-ctx.Done():
		case <-time.After(w.retry):
		}
	}
}

func (w *AutosaveWorker) persistAnswer(ctx context.Context, job *model.AnswerJob) error {
	attemptID, err := uuid.Parse(job.AttemptID)
	if err != nil {
		return err
	}
	questionID, err := uuid.Parse(job.QuestionID)
	if err != nil {
		return err
	}

	_, err = w.db.Exec(ctx,
		`INSERT INTO attempt_answers (attempt_id, question_index, question_id, choice)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (attempt_id, question_index) DO UPDATE
		 SET choice = EXCLUDED.choice, updated_at = NOW()`,
		attemptID, job.QuestionIndex, questionID, job.Choice,
	)
	return err
}

// drain processes all remaining items in the queue before shutdown.
func (w *AutosaveWorker) drain(ctx context.Context) {
	drained := 0
	for {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var job model.AnswerJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persistAnswer(ctx, &job); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
