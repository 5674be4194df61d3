package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/session"
)

func TestKeyAction(t *testing.T) {
	tests := []struct {
		key  byte
		want action
	}{
		{'a', action{kind: actSelect, choice: model.ChoiceA}},
		{'d', action{kind: actSelect, choice: model.ChoiceD}},
		{'e', action{kind: actNone}},
		{'1', action{kind: actJump, index: 0}},
		{'9', action{kind: actJump, index: 8}},
		{'n', action{kind: actNext}},
		{'\r', action{kind: actDismiss}},
		{'k', action{kind: actDismiss}},
		{'y', action{kind: actConfirm}},
		{'x', action{kind: actPause}},
		{3, action{kind: actQuit}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, keyAction(tt.key), "key %q", tt.key)
	}
}

func activeSnapshot() session.Snapshot {
	return session.Snapshot{
		Status:         session.StatusActive,
		CurrentIndex:   1,
		TotalQuestions: 3,
		Question: &model.QuestionForStudent{
			Text: "What is 2 + 2?",
			Options: []model.Option{
				{Key: model.ChoiceA, Text: "3"},
				{Key: model.ChoiceB, Text: "4"},
			},
		},
		Selected:     model.ChoiceB,
		Answered:     []int{1, 2},
		HasTimeLimit: true,
		TimeLeft:     "00:09:58",
	}
}

func TestRender(t *testing.T) {
	t.Run("Active", func(t *testing.T) {
		out := render(activeSnapshot())
		assert.Contains(t, out, "Question 2 of 3    Time left 00:09:58")
		assert.Contains(t, out, "[x] b. 4")
		assert.Contains(t, out, "[ ] a. 3")
		assert.Contains(t, out, "Answered: 1 2")
		assert.Contains(t, out, "[n] next")
		for _, l := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
			require.NotContains(t, l, "\n", "raw mode needs CRLF line ends")
		}
	})

	t.Run("LastQuestionFinishes", func(t *testing.T) {
		s := activeSnapshot()
		s.IsLastQuestion = true
		assert.Contains(t, render(s), "[n] finish")
	})

	t.Run("Untimed", func(t *testing.T) {
		s := activeSnapshot()
		s.HasTimeLimit = false
		s.TimeLeft = ""
		assert.NotContains(t, render(s), "Time left")
	})

	t.Run("ConfirmModal", func(t *testing.T) {
		s := activeSnapshot()
		s.Status = session.StatusFrozenModal
		s.Modal = session.ModalConfirmSubmit
		out := render(s)
		assert.Contains(t, out, "You answered 2 of 3 questions.")
		assert.NotContains(t, out, "What is 2 + 2?")
	})

	t.Run("TimeUp", func(t *testing.T) {
		s := activeSnapshot()
		s.Status = session.StatusFrozenTimeout
		s.TimeLeft = "00:00:00"
		out := render(s)
		assert.Contains(t, out, "Your answers will be graded shortly.")
		assert.NotContains(t, out, "were submitted")
		assert.Contains(t, out, "[v] view results")

		s.Result = &model.Result{AttemptID: "att-1"}
		assert.Contains(t, render(s), "Time is up! Your answers were submitted.")
	})

	t.Run("LoadingError", func(t *testing.T) {
		out := render(session.Snapshot{Status: session.StatusLoading, LastError: "Could not load this exam."})
		assert.Contains(t, out, "Could not load this exam.")
		assert.Contains(t, out, "[r] retry    [q] back")

		assert.NotContains(t, render(session.Snapshot{Status: session.StatusLoading}), "[r] retry")
	})
}

func TestFormatReview(t *testing.T) {
	out := formatReview(&model.Review{Items: []model.ReviewItem{
		{Index: 0, Text: "Q1", UserChoice: model.ChoiceA, CorrectChoice: model.ChoiceA, Correct: true},
		{Index: 1, Text: "Q2", CorrectChoice: model.ChoiceC, Explanation: "Because."},
	}})
	assert.Contains(t, out, "1. Q1")
	assert.Contains(t, out, "(correct)")
	assert.Contains(t, out, "your answer: -   correct: C   (unanswered)")
	assert.Contains(t, out, "Because.")
}

func TestParseTakeArgs(t *testing.T) {
	id, from, err := parseTakeArgs([]string{"-from", "catalog", "rev-1"})
	require.NoError(t, err)
	assert.Equal(t, "rev-1", id)
	assert.Equal(t, "catalog", from)

	_, from, err = parseTakeArgs([]string{"rev-1"})
	require.NoError(t, err)
	assert.Equal(t, "library", from)

	_, _, err = parseTakeArgs(nil)
	assert.Error(t, err)
}
