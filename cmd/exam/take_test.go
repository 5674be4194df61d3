package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/session"
)

// flakyGateway hands out attempts in order and fails Start while down is set.
type flakyGateway struct {
	mu     sync.Mutex
	down   bool
	starts int
	ids    []string
}

func (g *flakyGateway) setDown(down bool) {
	g.mu.Lock()
	g.down = down
	g.mu.Unlock()
}

func (g *flakyGateway) Start(context.Context, string) (model.AttemptState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	if g.down {
		return nil, errors.New("connection refused")
	}
	id := g.ids[0]
	g.ids = g.ids[1:]
	return model.FreshAttempt{AttemptCore: model.AttemptCore{
		AttemptID:        id,
		ReviewerID:       "rev-1",
		Questions:        []model.QuestionForStudent{{ID: uuid.New(), Text: "Q1"}, {ID: uuid.New(), Text: "Q2"}},
		TotalQuestions:   2,
		RemainingSeconds: intPtr(600),
	}}, nil
}

func (g *flakyGateway) SaveAnswer(context.Context, string, int, model.Choice) error { return nil }
func (g *flakyGateway) Pause(context.Context, string, *int, int) error { return nil }
func (g *flakyGateway) Submit(_ context.Context, id string) (*model.Result, error) {
	return &model.Result{AttemptID: id}, nil
}

func intPtr(v int) *int { return &v }

func newTestController(t *testing.T, gw session.Gateway) *session.Controller {
	t.Helper()
	ctrl := session.New(gw, "rev-1", session.Options{
		Clock:     clock.NewFake(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)),
		Logger:    zerolog.Nop(),
		Navigator: &navigator{ch: make(chan leave, 1)},
		From:      "library",
	})
	t.Cleanup(ctrl.Close)
	return ctrl
}

func TestHandleKey_RetryAfterFailedRestart(t *testing.T) {
	ctx := context.Background()
	gw := &flakyGateway{ids: []string{"att-1", "att-2"}}
	ctrl := newTestController(t, gw)
	log := zerolog.Nop()

	require.NoError(t, ctrl.Start(ctx))
	assert.False(t, handleKey(ctx, ctrl, log, '\r'))
	require.Equal(t, session.StatusActive, ctrl.Status())

	gw.setDown(true)
	assert.False(t, handleKey(ctx, ctrl, log, 'r'))
	snap := ctrl.Snapshot()
	require.Equal(t, session.StatusLoading, snap.Status)
	require.NotEmpty(t, snap.LastError)
	assert.Contains(t, render(snap), "[r] retry")

	// Still down: retrying keeps the error screen.
	assert.False(t, handleKey(ctx, ctrl, log, 'r'))
	assert.Equal(t, session.StatusLoading, ctrl.Status())
	assert.Equal(t, 3, gw.starts)

	gw.setDown(false)
	assert.False(t, handleKey(ctx, ctrl, log, 'r'))
	snap = ctrl.Snapshot()
	assert.Equal(t, session.StatusActive, snap.Status)
	assert.Equal(t, "att-2", snap.AttemptID)
	assert.Empty(t, snap.LastError)
	assert.Equal(t, 4, gw.starts)
}

func TestHandleKey_EnterRetriesAndQuitLeaves(t *testing.T) {
	ctx := context.Background()
	gw := &flakyGateway{down: true, ids: []string{"att-1"}}
	ctrl := newTestController(t, gw)
	log := zerolog.Nop()

	require.Error(t, ctrl.Start(ctx))
	require.NotEmpty(t, ctrl.Snapshot().LastError)

	// Exam keys do nothing on the error screen, q leaves it.
	assert.False(t, handleKey(ctx, ctrl, log, 'n'))
	assert.False(t, handleKey(ctx, ctrl, log, 'a'))
	assert.True(t, handleKey(ctx, ctrl, log, 'q'))
	assert.Equal(t, 1, gw.starts)

	gw.setDown(false)
	assert.False(t, handleKey(ctx, ctrl, log, '\r'))
	snap := ctrl.Snapshot()
	assert.Equal(t, "att-1", snap.AttemptID)
	assert.Equal(t, session.ModalIntro, snap.Modal, "first successful start still shows the intro")
}
