package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleReviewersAreValid(t *testing.T) {
	assert.NoError(t, validateSeed(sampleReviewers()))
}

func TestValidateSeed(t *testing.T) {
	zero := 0
	tests := []struct {
		name string
		edit func(rv *seedReviewer)
		want string
	}{
		{"NoTitle", func(rv *seedReviewer) { rv.Title = "" }, "without title"},
		{"NoQuestions", func(rv *seedReviewer) { rv.Questions = nil }, "no questions"},
		{"ZeroLimit", func(rv *seedReviewer) { rv.TimeLimitMinutes = &zero }, "time limit"},
		{"BadAnswer", func(rv *seedReviewer) { rv.Questions[0].Correct = "E" }, "invalid answer"},
		{"ThreeOptions", func(rv *seedReviewer) { rv.Questions[0].Options = rv.Questions[0].Options[:3] }, "want 4 options"},
		{"OptionOrder", func(rv *seedReviewer) {
			opts := rv.Questions[0].Options
			opts[0], opts[1] = opts[1], opts[0]
		}, "must be A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rv := sampleReviewers()[0]
			tt.edit(&rv)
			err := validateSeed([]seedReviewer{rv})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Error(t, validateSeed(nil))
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	raw := `[{"title":"History","time_limit_minutes":5,"questions":[
		{"text":"Year the Berlin Wall fell?","correct":"C","options":[
			{"key":"A","text":"1979"},{"key":"B","text":"1985"},{"key":"C","text":"1989"},{"key":"D","text":"1991"}]}]}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	reviewers, err := loadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, reviewers, 1)
	assert.Equal(t, 5, *reviewers[0].TimeLimitMinutes)
	assert.NoError(t, validateSeed(reviewers))
}
