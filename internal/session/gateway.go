package session

import (
	"context"

	"github.com/stemsi/exstem-review/internal/model"
)

// Gateway is the remote exam API as seen by the controller.
//
// Start is idempotent from the caller's point of view: it resumes an
// in-progress attempt when one exists. Submit must tolerate repeated calls
// for the same attempt.
type Gateway interface {
	Start(ctx context.Context, reviewerID string) (model.AttemptState, error)
	SaveAnswer(ctx context.Context, attemptID string, index int, choice model.Choice) error
	Pause(ctx context.Context, attemptID string, remainingSeconds *int, currentIndex int) error
	Submit(ctx context.Context, attemptID string) (*model.Result, error)
}

// Navigator moves the host away from the exam screen. from is the opaque
// back-navigation context the controller was created with.
type Navigator interface {
	ToResults(attemptID, from string)
	Exit(from string)
}

type noopNavigator struct{}

func (noopNavigator) ToResults(string, string) {}
func (noopNavigator) Exit(string)              {}
