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
	ScoreBatchSize    = 50
	ScoreBatchTimeout = 2 * time.Second
	ScorePollTimeout  = 1 * time.Second

	// AnswersRetention keeps a graded attempt's answers hash around for the review screen.
	AnswersRetention = time.Hour
)

// ScoringWorker batches graded attempts from the persist scores queue into PostgreSQL.
type ScoringWorker struct {
	db  Execer
	rdb *redis.Client
	log zerolog.Logger
}

func NewScoringWorker(db Execer, rdb *redis.Client, log zerolog.Logger) *ScoringWorker {
	return &ScoringWorker{
		db:  db,
		rdb: rdb,
		log: log.With().Str("component", "scoring_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	batch := make([]*model.ScoreJob, 0, ScoreBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ScoreBatchSize || time.Since(lastFlush) >= ScoreBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ScorePollTimeout, config.WorkerKey.PersistScoresQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var job model.ScoreJob
			if err := json.Unmarshal([]byte(item[1]), &job); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, &job)
		}
	}
}

// ----------------------------------------------------------------
// Batch update wrapper
// ----------------------------------------------------------------

func (w *ScoringWorker) flushSafe(ctx context.Context, batch []*model.ScoreJob) {
	if len(batch) == 0 {
		return
	}

	if err := w.bulkUpdateScores(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk score update failed, using fallback")

		for _, job := range batch {
			if err := w.persistSingle(ctx, job); err != nil {
				w.log.Error().Err(err).Str("attempt_id", job.AttemptID).Msg("persistSingle failed, requeueing")
				raw, _ := json.Marshal(job)
				w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, raw)
			}
		}
		return
	}

	w.expireAnswers(ctx, batch)
	w.log.Debug().Int("count", len(batch)).Msg("Scores flushed")
}

// ----------------------------------------------------------------
// Bulk PostgreSQL UPDATE using UNNEST
// ----------------------------------------------------------------

func (w *ScoringWorker) bulkUpdateScores(ctx context.Context, batch []*model.ScoreJob) error {
	n := len(batch)

	ids := make([]uuid.UUID, 0, n)
	scores := make([]float64, 0, n)
	corrects := make([]int, 0, n)
	analyses := make([]string, 0, n)
	finishedAts := make([]time.Time, 0, n)

	for _, job := range batch {
		id, err := uuid.Parse(job.AttemptID)
		if err != nil {
			return err
		}
		ids = append(ids, id)
		scores = append(scores, job.Score)
		corrects = append(corrects, job.CorrectCount)
		analyses = append(analyses, job.Analysis)
		finishedAts = append(finishedAts, job.FinishedAt)
	}

	query := `
		UPDATE attempts AS a
		SET status = 'COMPLETED',
		    score = t.score,
		    correct_count = t.correct_count,
		    analysis = t.analysis,
		    finished_at = t.finished_at
		FROM (
			SELECT
				u.id,
				u.score,
				u.correct_count,
				u.analysis,
				u.finished_at
			FROM UNNEST(
				$1::uuid[],
				$2::float8[],
				$3::int[],
				$4::text[],
				$5::timestamptz[]
			) AS u (id, score, correct_count, analysis, finished_at)
		) AS t
		WHERE a.id = t.id
	`

	_, err := w.db.Exec(ctx, query, ids, scores, corrects, analyses, finishedAts)
	return err
}

// ----------------------------------------------------------------
// Answers hash retention
// ----------------------------------------------------------------

func (w *ScoringWorker) expireAnswers(ctx context.Context, batch []*model.ScoreJob) {
	pipe := w.rdb.Pipeline()
	for _, job := range batch {
		pipe.Expire(ctx, config.CacheKey.AttemptAnswersKey(job.AttemptID), AnswersRetention)
	}
	_, _ = pipe.Exec(ctx)
}

// ----------------------------------------------------------------
// Fallback single update
// ----------------------------------------------------------------

func (w *ScoringWorker) persistSingle(ctx context.Context, job *model.ScoreJob) error {
	id, err := uuid.Parse(job.AttemptID)
	if err != nil {
		return err
	}

	_, err = w.db.Exec(ctx,
		`UPDATE attempts
		 SET status = 'COMPLETED',
		     score = $1,
		     correct_count = $2,
		     analysis = $3,
		     finished_at = $4
		 WHERE id = $5`,
		job.Score, job.CorrectCount, job.Analysis, job.FinishedAt, id,
	)
	return err
}
