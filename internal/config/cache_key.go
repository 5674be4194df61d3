package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptAnswersKey returns the hash key holding an attempt's autosaved answers (index -> choice).
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptResultKey returns the key holding a graded attempt's result JSON.
func (r *CacheKeyStruct) AttemptResultKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:result", attemptID)
}

// AttemptSubmitLockKey guards against grading the same attempt twice.
func (r *CacheKeyStruct) AttemptSubmitLockKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:submit_lock", attemptID)
}

// ReviewerPayloadKey returns the cache key for a reviewer's student-facing questions.
func (r *CacheKeyStruct) ReviewerPayloadKey(reviewerID string) string {
	return fmt.Sprintf("reviewer:%s:payload", reviewerID)
}

// ReviewerAnswerKey returns the hash key mapping question id -> correct choice.
func (r *CacheKeyStruct) ReviewerAnswerKey(reviewerID string) string {
	return fmt.Sprintf("reviewer:%s:key", reviewerID)
}

var CacheKey = NewCacheKeyStruct()
