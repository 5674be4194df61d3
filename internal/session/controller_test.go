package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/model"
)

/* ---------------- fakes ---------------- */

type saveCall struct {
	AttemptID string
	Index     int
	Choice    model.Choice
}

type pauseCall struct {
	AttemptID    string
	Remaining    *int
	CurrentIndex int
}

type fakeGateway struct {
	mu          sync.Mutex
	states      []model.AttemptState
	startErr    error
	startCalls  int
	saves       []saveCall
	saveErr     error
	pauses      []pauseCall
	pauseErr    error
	submits     []string
	submitErr   error
	submitGate  chan struct{}
	submitEnter chan struct{}
}

func (g *fakeGateway) Start(_ context.Context, _ string) (model.AttemptState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.startCalls++
	if g.startErr != nil {
		return nil, g.startErr
	}
	i := g.startCalls - 1
	if i >= len(g.states) {
		i = len(g.states) - 1
	}
	return g.states[i], nil
}

func (g *fakeGateway) SaveAnswer(_ context.Context, attemptID string, index int, choice model.Choice) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.saves = append(g.saves, saveCall{attemptID, index, choice})
	return g.saveErr
}

func (g *fakeGateway) Pause(_ context.Context, attemptID string, remaining *int, current int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pauses = append(g.pauses, pauseCall{attemptID, remaining, current})
	return g.pauseErr
}

func (g *fakeGateway) Submit(_ context.Context, attemptID string) (*model.Result, error) {
	g.mu.Lock()
	g.submits = append(g.submits, attemptID)
	gate, enter, err := g.submitGate, g.submitEnter, g.submitErr
	g.mu.Unlock()

	if enter != nil {
		enter <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &model.Result{AttemptID: attemptID, Score: 50}, nil
}

func (g *fakeGateway) submitCalls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.submits...)
}

func (g *fakeGateway) setSubmitErr(err error) {
	g.mu.Lock()
	g.submitErr = err
	g.mu.Unlock()
}

type fakeNavigator struct {
	mu      sync.Mutex
	results []string
	exits   []string
}

func (n *fakeNavigator) ToResults(attemptID, from string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, attemptID+"|"+from)
}

func (n *fakeNavigator) Exit(from string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.exits = append(n.exits, from)
}

/* ---------------- helpers ---------------- */

func questions(n int) []model.QuestionForStudent {
	qs := make([]model.QuestionForStudent, n)
	for i := range qs {
		qs[i] = model.QuestionForStudent{ID: uuid.New(), Text: fmt.Sprintf("Question %d", i+1)}
	}
	return qs
}

func fresh(id string, total int, secs *int) model.AttemptState {
	return model.FreshAttempt{AttemptCore: model.AttemptCore{
		AttemptID:        id,
		ReviewerID:       "rev-1",
		Questions:        questions(total),
		TotalQuestions:   total,
		RemainingSeconds: secs,
	}}
}

func intPtr(v int) *int { return &v }

type harness struct {
	gw    *fakeGateway
	nav   *fakeNavigator
	clock *clock.Fake
	ctrl  *Controller

	mu       sync.Mutex
	displays []string
}

func newHarness(t *testing.T, states ...model.AttemptState) *harness {
	t.Helper()
	h := &harness{
		gw:    &fakeGateway{states: states},
		nav:   &fakeNavigator{},
		clock: clock.NewFake(time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)),
	}
	h.ctrl = New(h.gw, "rev-1", Options{
		Clock:     h.clock,
		Logger:    zerolog.Nop(),
		Navigator: h.nav,
		From:      "library",
		OnChange: func(s Snapshot) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if s.TimeLeft == "" {
				return
			}
			if n := len(h.displays); n == 0 || h.displays[n-1] != s.TimeLeft {
				h.displays = append(h.displays, s.TimeLeft)
			}
		},
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

// begin starts the attempt and dismisses the intro modal.
func (h *harness) begin(t *testing.T) {
	t.Helper()
	require.NoError(t, h.ctrl.Start(context.Background()))
	require.Equal(t, ModalIntro, h.ctrl.Snapshot().Modal)
	h.ctrl.DismissModal()
	require.Equal(t, StatusActive, h.ctrl.Status())
}

func (h *harness) lastDisplay() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.displays) == 0 {
		return ""
	}
	return h.displays[len(h.displays)-1]
}

func (h *harness) expire(t *testing.T) {
	t.Helper()
	secs, ok := h.ctrl.timer.Remaining()
	require.True(t, ok)
	h.clock.Advance(time.Duration(secs) * time.Second)
	require.Eventually(t, func() bool { return h.ctrl.Status() == StatusFrozenTimeout }, 2*time.Second, 5*time.Millisecond)
}

// settled waits until no submission is in flight.
func (h *harness) settled(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.ctrl.mu.Lock()
		defer h.ctrl.mu.Unlock()
		return !h.ctrl.submitting
	}, 2*time.Second, 5*time.Millisecond)
}

/* ---------------- tests ---------------- */

func TestController_IntroModalGatesCountdown(t *testing.T) {
	h := newHarness(t, fresh("att-1", 3, intPtr(120)), fresh("att-2", 3, intPtr(120)))

	require.NoError(t, h.ctrl.Start(context.Background()))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusFrozenModal, snap.Status)
	assert.Equal(t, ModalIntro, snap.Modal)
	assert.True(t, snap.Frozen)
	assert.Equal(t, "00:02:00", snap.TimeLeft)
	assert.Equal(t, 0, h.clock.ActiveTickers(), "countdown waits for the intro")

	assert.False(t, h.ctrl.SelectAnswer(0, model.ChoiceA), "frozen behind the intro")

	h.ctrl.DismissModal()
	assert.Equal(t, StatusActive, h.ctrl.Status())
	assert.Equal(t, 1, h.clock.ActiveTickers())

	// The intro is shown once per controller, not again after a reset.
	require.NoError(t, h.ctrl.Reset(context.Background()))
	assert.Equal(t, StatusActive, h.ctrl.Status())
	assert.Equal(t, ModalNone, h.ctrl.Snapshot().Modal)
}

func TestController_StartError(t *testing.T) {
	h := newHarness(t, fresh("att-1", 2, nil))
	h.gw.startErr = errors.New("connection refused")

	err := h.ctrl.Start(context.Background())
	var serr *StartError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, "rev-1", serr.ReviewerID)
	assert.Equal(t, StatusLoading, h.ctrl.Status())
	assert.NotEmpty(t, h.ctrl.Snapshot().LastError)

	h.gw.mu.Lock()
	h.gw.startErr = nil
	h.gw.mu.Unlock()

	require.NoError(t, h.ctrl.Start(context.Background()))
	assert.Equal(t, StatusFrozenModal, h.ctrl.Status())
	assert.Empty(t, h.ctrl.Snapshot().LastError)
}

func TestController_ResumeRestoresProgress(t *testing.T) {
	resumed := model.ResumedAttempt{
		AttemptCore: model.AttemptCore{
			AttemptID: "att-9", Questions: questions(5), TotalQuestions: 5, RemainingSeconds: intPtr(90),
		},
		CurrentIndex: 3,
		Answers:      map[int]model.Choice{1: model.ChoiceC, 3: model.ChoiceD},
	}
	h := newHarness(t, resumed)
	h.begin(t)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, 3, snap.CurrentIndex)
	assert.Equal(t, model.ChoiceD, snap.Selected)
	assert.Equal(t, []int{2, 4}, snap.Answered)
	secs, ok := h.ctrl.timer.Remaining()
	require.True(t, ok)
	assert.Equal(t, 90, secs, "deadline comes from the fresh remaining seconds")
}

// Scenario A.
func TestController_TimeUpAutoSubmitsOnce(t *testing.T) {
	h := newHarness(t, fresh("att-a", 3, intPtr(5)))
	h.begin(t)

	for _, want := range []string{"00:00:04", "00:00:03", "00:00:02", "00:00:01", "00:00:00"} {
		h.clock.Advance(time.Second)
		require.Eventually(t, func() bool { return h.lastDisplay() == want }, 2*time.Second, time.Millisecond, "waiting for %s", want)
	}

	require.Eventually(t, func() bool { return len(h.gw.submitCalls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"att-a"}, h.gw.submitCalls())

	h.mu.Lock()
	assert.Equal(t, []string{"00:00:05", "00:00:04", "00:00:03", "00:00:02", "00:00:01", "00:00:00"}, h.displays)
	h.mu.Unlock()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusFrozenTimeout, snap.Status)
	assert.True(t, snap.Frozen)
	require.Eventually(t, func() bool { return h.ctrl.Snapshot().Result != nil }, time.Second, 5*time.Millisecond)

	// More time passing never submits again.
	h.clock.Advance(10 * time.Second)
	h.ctrl.Tick()
	assert.Len(t, h.gw.submitCalls(), 1)
	assert.Equal(t, 0, h.clock.ActiveTickers())

	require.NoError(t, h.ctrl.ViewResults())
	assert.Equal(t, []string{"att-a|library"}, h.nav.results)
}

func TestController_FailedAutoSubmitStillFreezes(t *testing.T) {
	h := newHarness(t, fresh("att-x", 2, intPtr(3)))
	h.gw.submitErr = errors.New("503")
	h.begin(t)

	h.expire(t)
	require.Eventually(t, func() bool { return len(h.gw.submitCalls()) == 1 }, time.Second, 5*time.Millisecond)
	h.settled(t)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusFrozenTimeout, snap.Status)
	assert.Empty(t, snap.LastError, "auto-submit failures are not surfaced")

	// The user can still submit by hand from the time-up screen.
	h.gw.setSubmitErr(nil)
	_, err := h.ctrl.Submit(context.Background(), SubmitManual)
	require.NoError(t, err)
	assert.Equal(t, StatusSubmitted, h.ctrl.Status())
}

// Scenario B.
func TestController_NavigationRestoresSelection(t *testing.T) {
	h := newHarness(t, fresh("att-b", 4, intPtr(600)))
	h.begin(t)

	require.True(t, h.ctrl.Jump(2))
	require.True(t, h.ctrl.SelectAnswer(2, model.ChoiceB))
	require.True(t, h.ctrl.Jump(0))
	assert.Equal(t, model.Choice(""), h.ctrl.Snapshot().Selected, "unanswered question shows no selection")
	require.True(t, h.ctrl.Jump(2))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ChoiceB, snap.Selected)
	assert.Equal(t, 2, snap.CurrentIndex)

	h.ctrl.Close()
	require.Len(t, h.gw.saves, 1)
	assert.Equal(t, saveCall{"att-b", 2, model.ChoiceB}, h.gw.saves[0])
}

func TestController_NavigationBounds(t *testing.T) {
	h := newHarness(t, fresh("att-n", 3, nil))
	h.begin(t)

	assert.False(t, h.ctrl.Prev(), "already at the first question")
	assert.False(t, h.ctrl.Jump(3))
	assert.False(t, h.ctrl.Jump(-1))

	require.NoError(t, h.ctrl.Next(context.Background()))
	require.NoError(t, h.ctrl.Next(context.Background()))
	assert.Equal(t, 2, h.ctrl.Snapshot().CurrentIndex)
	assert.True(t, h.ctrl.Snapshot().IsLastQuestion)
	assert.True(t, h.ctrl.Prev())
	assert.Equal(t, 1, h.ctrl.Snapshot().CurrentIndex)
}

func TestController_JumpToCurrentIsNoop(t *testing.T) {
	h := newHarness(t, fresh("att-j", 4, nil))
	h.begin(t)
	h.ctrl.SelectAnswer(0, model.ChoiceA)
	h.ctrl.SelectAnswer(1, model.ChoiceB)

	before := h.ctrl.Snapshot()
	assert.False(t, h.ctrl.Jump(before.CurrentIndex))
	after := h.ctrl.Snapshot()
	assert.Equal(t, before.Answers, after.Answers)
	assert.Equal(t, before.Answered, after.Answered)
	assert.Equal(t, before.Selected, after.Selected)
}

func TestController_AnsweredSetMatchesAnswers(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 25; round++ {
		total := 1 + rng.Intn(12)
		h := newHarness(t, fresh(fmt.Sprintf("att-%d", round), total, nil))
		h.begin(t)

		for i := 0; i < 40; i++ {
			idx := rng.Intn(total)
			h.ctrl.SelectAnswer(idx, model.Choices[rng.Intn(len(model.Choices))])
			if rng.Intn(3) == 0 {
				h.ctrl.Jump(rng.Intn(total))
			}
		}

		snap := h.ctrl.Snapshot()
		want := make([]int, 0, len(snap.Answers))
		for idx := range snap.Answers {
			want = append(want, idx+1)
		}
		sort.Ints(want)
		assert.Equal(t, want, snap.Answered, "round %d", round)
		assert.Equal(t, snap.Answers[snap.CurrentIndex], snap.Selected)
	}
}

func TestController_SaveFailureKeepsLocalAnswer(t *testing.T) {
	h := newHarness(t, fresh("att-s", 2, nil))
	h.gw.saveErr = errors.New("timeout")
	h.begin(t)

	require.True(t, h.ctrl.SelectAnswer(1, model.ChoiceD))
	h.ctrl.Close()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, model.ChoiceD, snap.Answers[1])
	assert.Equal(t, []int{2}, snap.Answered)
	assert.Len(t, h.gw.saves, 1)
}

func TestController_SelectAnswerRejectsBadInput(t *testing.T) {
	h := newHarness(t, fresh("att-v", 2, nil))
	h.begin(t)

	assert.False(t, h.ctrl.SelectAnswer(2, model.ChoiceA))
	assert.False(t, h.ctrl.SelectAnswer(-1, model.ChoiceA))
	assert.False(t, h.ctrl.SelectAnswer(0, model.Choice("E")))
	assert.Empty(t, h.ctrl.Snapshot().Answers)
}

// Scenario C.
func TestController_TerminalActionOnTimedSessionConfirms(t *testing.T) {
	h := newHarness(t, fresh("att-c", 3, intPtr(900)))
	h.begin(t)
	require.True(t, h.ctrl.Jump(2))

	require.NoError(t, h.ctrl.Next(context.Background()))
	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusFrozenModal, snap.Status)
	assert.Equal(t, ModalConfirmSubmit, snap.Modal)
	assert.Empty(t, h.gw.submitCalls(), "no submit before confirmation")

	assert.False(t, h.ctrl.SelectAnswer(2, model.ChoiceA), "modal freezes answers")

	h.ctrl.KeepReviewing()
	assert.Equal(t, StatusActive, h.ctrl.Status())
	assert.Equal(t, 1, h.clock.ActiveTickers(), "keep reviewing does not restart the countdown")

	require.NoError(t, h.ctrl.RequestSubmit(context.Background()))
	require.NoError(t, h.ctrl.ConfirmSubmit(context.Background()))
	assert.Equal(t, StatusSubmitted, h.ctrl.Status())
	assert.Equal(t, []string{"att-c"}, h.gw.submitCalls())
	assert.Equal(t, []string{"att-c|library"}, h.nav.results)
	assert.Equal(t, 0, h.clock.ActiveTickers())
}

func TestController_TerminalActionOnUntimedSessionSubmits(t *testing.T) {
	h := newHarness(t, fresh("att-u", 1, nil))
	h.begin(t)

	require.NoError(t, h.ctrl.Next(context.Background()))
	assert.Equal(t, StatusSubmitted, h.ctrl.Status())
	assert.Equal(t, []string{"att-u"}, h.gw.submitCalls())
	assert.ErrorIs(t, h.ctrl.ConfirmSubmit(context.Background()), ErrNoPendingConfirmation)
}

func TestController_TimeUpClosesConfirmation(t *testing.T) {
	h := newHarness(t, fresh("att-m", 2, intPtr(4)))
	h.begin(t)
	require.NoError(t, h.ctrl.RequestSubmit(context.Background()))
	require.Equal(t, ModalConfirmSubmit, h.ctrl.Snapshot().Modal)

	h.expire(t)
	snap := h.ctrl.Snapshot()
	assert.Equal(t, ModalNone, snap.Modal)

	// No modal can be opened after time-up.
	require.NoError(t, h.ctrl.RequestSubmit(context.Background()))
	assert.Equal(t, ModalNone, h.ctrl.Snapshot().Modal)
	assert.ErrorIs(t, h.ctrl.ConfirmSubmit(context.Background()), ErrNoPendingConfirmation)
}

// Scenario D.
func TestController_ResetStartsNewAttempt(t *testing.T) {
	h := newHarness(t, fresh("att-old", 4, intPtr(300)), fresh("att-new", 4, intPtr(300)))
	h.begin(t)
	h.ctrl.Jump(3)
	h.ctrl.SelectAnswer(3, model.ChoiceA)
	h.ctrl.SelectAnswer(1, model.ChoiceC)
	h.clock.Advance(100 * time.Second)

	require.NoError(t, h.ctrl.Reset(context.Background()))

	snap := h.ctrl.Snapshot()
	assert.Equal(t, "att-new", snap.AttemptID)
	assert.Equal(t, StatusActive, snap.Status)
	assert.Empty(t, snap.Answers)
	assert.Empty(t, snap.Answered)
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Equal(t, model.Choice(""), snap.Selected)
	assert.Equal(t, 2, h.gw.startCalls)
	assert.Equal(t, []string{"att-old"}, h.gw.submitCalls(), "old attempt is submitted before discarding")
	assert.Equal(t, 1, h.clock.ActiveTickers(), "old countdown is cancelled")

	secs, ok := h.ctrl.timer.Remaining()
	require.True(t, ok)
	assert.Equal(t, 300, secs, "fresh deadline")
}

func TestController_StaleExpiryAfterResetIsIgnored(t *testing.T) {
	h := newHarness(t, fresh("att-old", 3, intPtr(5)), fresh("att-new", 3, intPtr(300)))
	h.begin(t)

	require.NoError(t, h.ctrl.Reset(context.Background()))
	require.Equal(t, "att-new", h.ctrl.Snapshot().AttemptID)

	// Late expiry callback from the old deadline.
	h.ctrl.handleExpire()

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusActive, snap.Status)
	assert.False(t, snap.Frozen)
	assert.Equal(t, []string{"att-old"}, h.gw.submitCalls(), "new attempt is not auto-submitted")
}

func TestController_ResetSurvivesFailedSubmitOfOldAttempt(t *testing.T) {
	h := newHarness(t, fresh("att-1", 2, nil), fresh("att-2", 2, nil))
	h.gw.submitErr = errors.New("boom")
	h.begin(t)

	require.NoError(t, h.ctrl.Reset(context.Background()))
	assert.Equal(t, "att-2", h.ctrl.Snapshot().AttemptID)
}

// Scenario E.
func TestController_DoubleSubmitCallsGatewayOnce(t *testing.T) {
	h := newHarness(t, fresh("att-e", 2, nil))
	h.gw.submitGate = make(chan struct{})
	h.gw.submitEnter = make(chan struct{}, 1)
	h.begin(t)

	errs := make(chan error, 1)
	go func() {
		_, err := h.ctrl.Submit(context.Background(), SubmitManual)
		errs <- err
	}()
	<-h.gw.submitEnter

	assert.Equal(t, StatusSubmitting, h.ctrl.Status())
	_, err := h.ctrl.Submit(context.Background(), SubmitManual)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(h.gw.submitGate)
	require.NoError(t, <-errs)
	assert.Len(t, h.gw.submitCalls(), 1)

	_, err = h.ctrl.Submit(context.Background(), SubmitManual)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.Len(t, h.gw.submitCalls(), 1)
}

func TestController_SubmitFailureAllowsRetry(t *testing.T) {
	h := newHarness(t, fresh("att-r", 2, intPtr(600)))
	h.gw.submitErr = errors.New("502 bad gateway")
	h.begin(t)
	require.NoError(t, h.ctrl.RequestSubmit(context.Background()))

	err := h.ctrl.ConfirmSubmit(context.Background())
	var serr *SubmitError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, SubmitManual, serr.Mode)

	snap := h.ctrl.Snapshot()
	assert.Equal(t, StatusFrozenModal, snap.Status, "back to the pre-submit state")
	assert.Equal(t, ModalConfirmSubmit, snap.Modal)
	assert.NotEmpty(t, snap.LastError)
	assert.Empty(t, h.nav.results)

	h.gw.setSubmitErr(nil)
	require.NoError(t, h.ctrl.ConfirmSubmit(context.Background()))
	assert.Equal(t, StatusSubmitted, h.ctrl.Status())
	assert.Len(t, h.gw.submitCalls(), 2)
}

func TestController_PauseSendsLiveRemainingTime(t *testing.T) {
	h := newHarness(t, fresh("att-p", 5, intPtr(600)))
	h.begin(t)
	h.ctrl.Jump(3)
	h.clock.Advance(65 * time.Second)

	require.NoError(t, h.ctrl.PauseAndExit(context.Background()))

	require.Len(t, h.gw.pauses, 1)
	p := h.gw.pauses[0]
	assert.Equal(t, "att-p", p.AttemptID)
	require.NotNil(t, p.Remaining)
	assert.Equal(t, 535, *p.Remaining)
	assert.Equal(t, 3, p.CurrentIndex)
	assert.Equal(t, []string{"library"}, h.nav.exits)
	assert.Equal(t, 0, h.clock.ActiveTickers())

	assert.False(t, h.ctrl.SelectAnswer(0, model.ChoiceA))
}

func TestController_PauseFailureStillExits(t *testing.T) {
	h := newHarness(t, fresh("att-pf", 2, nil))
	h.gw.pauseErr = errors.New("offline")
	h.begin(t)

	require.NoError(t, h.ctrl.PauseAndExit(context.Background()))
	assert.Nil(t, h.gw.pauses[0].Remaining, "untimed attempts pause without a time value")
	assert.Equal(t, []string{"library"}, h.nav.exits)
}

func TestController_FrozenAfterExpiry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 10; round++ {
		h := newHarness(t, fresh("att-f", 6, intPtr(2)))
		h.begin(t)
		h.ctrl.Jump(2)
		h.ctrl.SelectAnswer(2, model.ChoiceB)
		h.expire(t)
		require.Eventually(t, func() bool { return len(h.gw.submitCalls()) == 1 }, time.Second, 5*time.Millisecond)

		before := h.ctrl.Snapshot()
		for i := 0; i < 30; i++ {
			switch rng.Intn(5) {
			case 0:
				h.ctrl.SelectAnswer(rng.Intn(6), model.Choices[rng.Intn(4)])
			case 1:
				h.ctrl.Jump(rng.Intn(6))
			case 2:
				h.ctrl.Prev()
			case 3:
				require.NoError(t, h.ctrl.Next(context.Background()))
			case 4:
				require.NoError(t, h.ctrl.PauseAndExit(context.Background()))
			}
		}
		after := h.ctrl.Snapshot()

		assert.Equal(t, before.Status, after.Status)
		assert.Equal(t, before.CurrentIndex, after.CurrentIndex)
		assert.Equal(t, before.Answers, after.Answers)
		assert.Equal(t, before.Answered, after.Answered)
		assert.Equal(t, before.Selected, after.Selected)
		assert.Equal(t, before.Modal, after.Modal)
		assert.Empty(t, h.gw.pauses)
		assert.Empty(t, h.nav.exits)
	}
}
