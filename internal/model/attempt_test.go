package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartAttemptResponse_State(t *testing.T) {
	secs := 300

	t.Run("Fresh", func(t *testing.T) {
		resp := StartAttemptResponse{AttemptID: "a1", ReviewerID: "r1", TotalQuestions: 4, RemainingSeconds: &secs}
		st, err := resp.State()
		require.NoError(t, err)
		fresh, ok := st.(FreshAttempt)
		require.True(t, ok)
		assert.Equal(t, "a1", fresh.AttemptID)
		assert.True(t, fresh.HasTimeLimit())
	})

	t.Run("ResumedDecodedFromJSON", func(t *testing.T) {
		raw := `{"attempt_id":"a2","reviewer_id":"r1","resumed":true,"total_questions":4,
			"current_index":2,"remaining_seconds":120,"answered_indices":[0,2],
			"user_answers":{"0":"A","2":"C","9":"B","1":"Z"}}`
		var resp StartAttemptResponse
		require.NoError(t, json.Unmarshal([]byte(raw), &resp))

		st, err := resp.State()
		require.NoError(t, err)
		resumed, ok := st.(ResumedAttempt)
		require.True(t, ok)
		assert.Equal(t, 2, resumed.CurrentIndex)
		assert.Equal(t, map[int]Choice{0: ChoiceA, 2: ChoiceC}, resumed.Answers)
		require.NotNil(t, resumed.Core().RemainingSeconds)
		assert.Equal(t, 120, *resumed.Core().RemainingSeconds)
	})

	t.Run("ClampsCurrentIndex", func(t *testing.T) {
		resp := StartAttemptResponse{AttemptID: "a3", Resumed: true, TotalQuestions: 3, CurrentIndex: 7}
		st, err := resp.State()
		require.NoError(t, err)
		assert.Equal(t, 2, st.(ResumedAttempt).CurrentIndex)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := (&StartAttemptResponse{TotalQuestions: 3}).State()
		assert.True(t, errors.Is(err, ErrMalformedAttempt))

		_, err = (&StartAttemptResponse{AttemptID: "x"}).State()
		assert.True(t, errors.Is(err, ErrMalformedAttempt))
	})

	t.Run("UntimedHasNoLimit", func(t *testing.T) {
		st, err := (&StartAttemptResponse{AttemptID: "a4", TotalQuestions: 1}).State()
		require.NoError(t, err)
		assert.False(t, st.Core().HasTimeLimit())
	})
}

func TestAttempt_RemainingAt(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	secs := 600

	a := Attempt{Status: AttemptStatusInProgress, RemainingSeconds: &secs, ResumedAt: &start}
	assert.Equal(t, 540, *a.RemainingAt(start.Add(time.Minute)))
	assert.Equal(t, 0, *a.RemainingAt(start.Add(time.Hour)))

	a.Status = AttemptStatusPaused
	assert.Equal(t, 600, *a.RemainingAt(start.Add(time.Hour)), "paused attempts do not lose time")

	assert.Nil(t, (&Attempt{}).RemainingAt(start))
}

func TestParseChoice(t *testing.T) {
	c, err := ParseChoice(" b ")
	require.NoError(t, err)
	assert.Equal(t, ChoiceB, c)

	_, err = ParseChoice("E")
	assert.Error(t, err)
}
