package handler

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-review/internal/config"
)

const healthTimeout = 2 * time.Second

// Pinger reports whether a backing store is reachable. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports process health and worker queue depths.
type SystemHandler struct {
	db        Pinger
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db Pinger, rdb *redis.Client, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Database   string `json:"database"`
	Redis      string `json:"redis"`
	GoVersion  string `json:"go_version"`
	Goroutines int    `json:"goroutines"`

	// Worker Queues
	QueueAnswers int64 `json:"queue_answers"`
	QueueScores  int64 `json:"queue_scores"`
}

// Health godoc
// GET /health
// Returns 200 when PostgreSQL and Redis answer, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Uptime:     formatDuration(time.Since(h.startTime)),
		Database:   "ok",
		Redis:      "ok",
		GoVersion:  runtime.Version(),
		Goroutines: runtime.NumGoroutine(),
	}

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Database ping failed")
		report.Database = "unreachable"
		report.Status = "degraded"
	}

	// Pipelined LLEN doubles as the Redis ping.
	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	scoresCmd := pipe.LLen(ctx, config.WorkerKey.PersistScoresQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Redis ping failed")
		report.Redis = "unreachable"
		report.Status = "degraded"
	} else {
		report.QueueAnswers, _ = answersCmd.Result()
		report.QueueScores, _ = scoresCmd.Result()
	}

	status := http.StatusOK
	if report.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// ---------- Helpers ----------

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
