package model

import "time"

// AnswerJob is queued for the autosave worker to persist one answer.
type AnswerJob struct {
	AttemptID     string `json:"attempt_id"`
	QuestionID    string `json:"question_id"`
	QuestionIndex int    `json:"question_index"`
	Choice        string `json:"choice"`
}

// ScoreJob is queued for the scoring worker to persist a graded attempt.
type ScoreJob struct {
	AttemptID    string    `json:"attempt_id"`
	Score        float64   `json:"score"`
	CorrectCount int       `json:"correct_count"`
	Analysis     string    `json:"analysis"`
	FinishedAt   time.Time `json:"finished_at"`
}
