package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates server-side attempt states.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusPaused     AttemptStatus = "PAUSED"
	AttemptStatusCompleted  AttemptStatus = "COMPLETED"
)

// Attempt is one user's run through a reviewer.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	ReviewerID    uuid.UUID     `json:"reviewer_id"`
	UserID        int           `json:"user_id"`
	Status        AttemptStatus `json:"status"`
	QuestionOrder []uuid.UUID   `json:"question_order"`
	CurrentIndex  int           `json:"current_index"`
	// RemainingSeconds is the time left as of ResumedAt (or as of the pause
	// when Status is PAUSED). Nil for untimed reviewers.
	RemainingSeconds *int       `json:"remaining_seconds,omitempty"`
	ResumedAt        *time.Time `json:"resumed_at,omitempty"`
	StartedAt        time.Time  `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	Score            *float64   `json:"score,omitempty"`
	CorrectCount     *int       `json:"correct_count,omitempty"`
	Analysis         *string    `json:"analysis,omitempty"`
}

// RemainingAt extrapolates the remaining seconds at now. Nil for untimed attempts.
func (a *Attempt) RemainingAt(now time.Time) *int {
	if a.RemainingSeconds == nil {
		return nil
	}
	left := *a.RemainingSeconds
	if a.Status == AttemptStatusInProgress && a.ResumedAt != nil {
		left -= int(now.Sub(*a.ResumedAt) / time.Second)
	}
	if left < 0 {
		left = 0
	}
	return &left
}

// ─── Start-or-resume wire format ──────────────────────────────────────

// StartAttemptResponse is the body returned by POST /exam/:reviewer_id/start.
type StartAttemptResponse struct {
	AttemptID        string               `json:"attempt_id"`
	ReviewerID       string               `json:"reviewer_id"`
	Resumed          bool                 `json:"resumed"`
	Questions        []QuestionForStudent `json:"questions"`
	TotalQuestions   int                  `json:"total_questions"`
	CurrentIndex     int                  `json:"current_index"`
	RemainingSeconds *int                 `json:"remaining_seconds"`
	AnsweredIndices  []int                `json:"answered_indices,omitempty"`
	UserAnswers      map[int]Choice       `json:"user_answers,omitempty"`
}

// AttemptState is the decoded start response: either a FreshAttempt or a ResumedAttempt.
type AttemptState interface {
	Core() AttemptCore
	isAttemptState()
}

// AttemptCore holds the fields every attempt has.
type AttemptCore struct {
	AttemptID        string
	ReviewerID       string
	Questions        []QuestionForStudent
	TotalQuestions   int
	RemainingSeconds *int
}

// HasTimeLimit reports whether the attempt counts down.
func (c AttemptCore) HasTimeLimit() bool {
	return c.RemainingSeconds != nil && *c.RemainingSeconds > 0
}

// FreshAttempt starts at question 0 with no answers.
type FreshAttempt struct {
	AttemptCore
}

// ResumedAttempt restores position and prior answers.
type ResumedAttempt struct {
	AttemptCore
	CurrentIndex int
	Answers      map[int]Choice
}

func (f FreshAttempt) Core() AttemptCore   { return f.AttemptCore }
func (r ResumedAttempt) Core() AttemptCore { return r.AttemptCore }
func (FreshAttempt) isAttemptState()       {}
func (ResumedAttempt) isAttemptState()     {}

// ErrMalformedAttempt is returned when a start response cannot describe a usable session.
var ErrMalformedAttempt = errors.New("malformed attempt")

// State validates the response and converts it to its variant. Answers for
// indices outside the attempt and invalid choices are dropped; a current
// index out of range is clamped.
func (r *StartAttemptResponse) State() (AttemptState, error) {
	if r.AttemptID == "" {
		return nil, fmt.Errorf("%w: missing attempt id", ErrMalformedAttempt)
	}
	total := r.TotalQuestions
	if total <= 0 {
		total = len(r.Questions)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: attempt has no questions", ErrMalformedAttempt)
	}

	core := AttemptCore{
		AttemptID:        r.AttemptID,
		ReviewerID:       r.ReviewerID,
		Questions:        r.Questions,
		TotalQuestions:   total,
		RemainingSeconds: r.RemainingSeconds,
	}
	if !r.Resumed {
		return FreshAttempt{AttemptCore: core}, nil
	}

	answers := make(map[int]Choice, len(r.UserAnswers))
	for idx, c := range r.UserAnswers {
		if idx < 0 || idx >= total || !c.Valid() {
			continue
		}
		answers[idx] = c
	}

	current := r.CurrentIndex
	if current < 0 {
		current = 0
	}
	if current >= total {
		current = total - 1
	}

	return ResumedAttempt{AttemptCore: core, CurrentIndex: current, Answers: answers}, nil
}

// SaveAnswerRequest is the payload for PUT /attempts/:attempt_id/answers.
type SaveAnswerRequest struct {
	Index  int    `json:"index" binding:"min=0"`
	Choice string `json:"choice" binding:"required,choice"`
}

// PauseAttemptRequest is the payload for POST /attempts/:attempt_id/pause.
type PauseAttemptRequest struct {
	RemainingSeconds *int `json:"remaining_seconds" binding:"omitempty,min=0"`
	CurrentIndex     int  `json:"current_index" binding:"min=0"`
}
