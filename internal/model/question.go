package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Choice is a single-letter answer option.
type Choice string

const (
	ChoiceA Choice = "A"
	ChoiceB Choice = "B"
	ChoiceC Choice = "C"
	ChoiceD Choice = "D"
)

// Choices lists the valid options in display order.
var Choices = []Choice{ChoiceA, ChoiceB, ChoiceC, ChoiceD}

// Valid reports whether c is one of Choices.
func (c Choice) Valid() bool {
	for _, v := range Choices {
		if c == v {
			return true
		}
	}
	return false
}

// ParseChoice accepts upper or lower case letters.
func ParseChoice(s string) (Choice, error) {
	c := Choice(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("invalid choice %q", s)
	}
	return c, nil
}

// Option is one labelled answer of a question.
type Option struct {
	Key  Choice `json:"key"`
	Text string `json:"text"`
}

// Question is a reviewer question including its answer key.
type Question struct {
	ID            uuid.UUID `json:"id"`
	ReviewerID    uuid.UUID `json:"reviewer_id"`
	Text          string    `json:"text"`
	Options       []Option  `json:"options"`
	CorrectChoice Choice    `json:"correct_choice"`
	Explanation   string    `json:"explanation,omitempty"`
	OrderNum      int       `json:"order_num"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{ID: q.ID, Text: q.Text, Options: q.Options}
}

// QuestionForStudent is a question without the correct answer, sent to test takers.
type QuestionForStudent struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Options []Option  `json:"options"`
}
