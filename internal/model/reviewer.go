package model

import (
	"time"

	"github.com/google/uuid"
)

// Reviewer is an exam set a user can take repeatedly.
type Reviewer struct {
	ID               uuid.UUID `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitMinutes *int      `json:"time_limit_minutes,omitempty"`
	Premium          bool      `json:"premium"`
	CreatedAt        time.Time `json:"created_at"`
}

// HasTimeLimit reports whether attempts on this reviewer are timed.
func (r *Reviewer) HasTimeLimit() bool {
	return r.TimeLimitMinutes != nil && *r.TimeLimitMinutes > 0
}

// TimeLimitSeconds returns the attempt duration, or nil when untimed.
func (r *Reviewer) TimeLimitSeconds() *int {
	if !r.HasTimeLimit() {
		return nil
	}
	secs := *r.TimeLimitMinutes * 60
	return &secs
}

// ReviewerPayload is the Redis-cached, student-facing content of a reviewer (no answer key).
type ReviewerPayload struct {
	ReviewerID       uuid.UUID            `json:"reviewer_id"`
	Title            string               `json:"title"`
	TimeLimitMinutes *int                 `json:"time_limit_minutes,omitempty"`
	Questions        []QuestionForStudent `json:"questions"`
}

// LibraryEntry is a reviewer bookmarked by a user.
type LibraryEntry struct {
	Reviewer Reviewer  `json:"reviewer"`
	AddedAt  time.Time `json:"added_at"`
}
