package model

import "time"

// Result is the graded outcome of a submitted attempt.
type Result struct {
	AttemptID      string    `json:"attempt_id"`
	ReviewerID     string    `json:"reviewer_id"`
	Score          float64   `json:"score"`
	CorrectCount   int       `json:"correct_count"`
	AnsweredCount  int       `json:"answered_count"`
	TotalQuestions int       `json:"total_questions"`
	Analysis       string    `json:"analysis,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// ReviewItem is one question of a finished attempt with the user's and correct choices.
type ReviewItem struct {
	Index         int      `json:"index"`
	QuestionID    string   `json:"question_id"`
	Text          string   `json:"text"`
	Options       []Option `json:"options"`
	UserChoice    Choice   `json:"user_choice,omitempty"`
	CorrectChoice Choice   `json:"correct_choice"`
	Correct       bool     `json:"correct"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Review lists every question of a finished attempt in attempt order.
type Review struct {
	AttemptID  string       `json:"attempt_id"`
	ReviewerID string       `json:"reviewer_id"`
	Items      []ReviewItem `json:"items"`
}
