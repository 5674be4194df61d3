// Package session implements the client-side controller for one timed exam
// attempt: countdown, optimistic answer cache, and the
// loading/active/frozen/submitting/submitted lifecycle.
//
// Local state is the source of truth for the rest of the attempt. Answer
// saves are fire-and-forget and server acknowledgements are never merged
// back; grading happens on the server at submit time.
package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/countdown"
	"github.com/stemsi/exstem-review/internal/model"
)

// Status is the controller's lifecycle state.
type Status string

const (
	StatusLoading       Status = "loading"
	StatusActive        Status = "active"
	StatusFrozenTimeout Status = "frozen-timeout"
	StatusFrozenModal   Status = "frozen-modal"
	StatusSubmitting    Status = "submitting"
	StatusSubmitted     Status = "submitted"
)

// Modal identifies the blocking dialog shown while in StatusFrozenModal.
type Modal string

const (
	ModalNone          Modal = ""
	ModalIntro         Modal = "intro"
	ModalConfirmSubmit Modal = "confirm-submit"
)

// SubmitMode records who asked for the submission.
type SubmitMode string

const (
	SubmitManual SubmitMode = "manual"
	SubmitAuto   SubmitMode = "auto"
)

// Options configures a Controller.
type Options struct {
	Clock     clock.Clock
	Logger    zerolog.Logger
	Navigator Navigator
	// From is an opaque back-navigation context (for example "library").
	From string
	// RequestTimeout bounds background gateway calls. Zero means no extra bound.
	RequestTimeout time.Duration
	// OnChange receives a snapshot after every state change. Called without locks held.
	OnChange func(Snapshot)
}

// Snapshot is an immutable view of the controller for rendering.
type Snapshot struct {
	Status         Status
	Modal          Modal
	Frozen         bool
	AttemptID      string
	ReviewerID     string
	From           string
	CurrentIndex   int
	TotalQuestions int
	Question       *model.QuestionForStudent
	Selected       model.Choice
	Answers        map[int]model.Choice
	Answered       []int // 1-based question numbers, ascending
	HasTimeLimit   bool
	TimeLeft       string
	IsLastQuestion bool
	LastError      string
	Result         *model.Result
}

// Controller runs one exam session for a reviewer.
type Controller struct {
	gw         Gateway
	nav        Navigator
	log        zerolog.Logger
	reviewerID string
	from       string
	timeout    time.Duration
	onChange   func(Snapshot)
	timer      *countdown.Driver

	mu           sync.Mutex
	status       Status
	modal        Modal
	starting     bool
	submitting   bool
	closed       bool
	introShown   bool
	timedOut     bool
	attemptID    string
	questions    []model.QuestionForStudent
	total        int
	current      int
	selected     model.Choice
	answers      map[int]model.Choice
	answered     map[int]struct{}
	remaining    *int
	hasTimeLimit bool
	display      string
	result       *model.Result
	lastErr      string

	saves sync.WaitGroup
}

// New creates a controller in StatusLoading. Call Start to fetch the attempt.
func New(gw Gateway, reviewerID string, opts Options) *Controller {
	nav := opts.Navigator
	if nav == nil {
		nav = noopNavigator{}
	}
	c := &Controller{
		gw:         gw,
		nav:        nav,
		log:        opts.Logger.With().Str("component", "session").Str("reviewer_id", reviewerID).Logger(),
		reviewerID: reviewerID,
		from:       opts.From,
		timeout:    opts.RequestTimeout,
		onChange:   opts.OnChange,
		status:     StatusLoading,
		answers:    make(map[int]model.Choice),
		answered:   make(map[int]struct{}),
	}
	c.timer = countdown.New(opts.Clock, c.handleTick, c.handleExpire)
	return c
}

// ─── Lifecycle ────────────────────────────────────────────────────────

// Start requests a new or resumed attempt. The first successful start of a
// controller shows the intro modal; the countdown begins when it is dismissed.
// Later starts (after Reset) go straight to active.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.starting:
		c.mu.Unlock()
		return ErrStarting
	case c.status != StatusLoading:
		c.mu.Unlock()
		return nil
	}
	c.starting = true
	c.lastErr = ""
	c.mu.Unlock()

	st, err := c.gw.Start(ctx, c.reviewerID)

	c.mu.Lock()
	c.starting = false
	if err != nil {
		serr := &StartError{ReviewerID: c.reviewerID, Err: err}
		c.lastErr = "Could not load this exam. Go back or try again."
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		c.log.Error().Err(err).Msg("Start attempt failed")
		return serr
	}
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	c.applyLocked(st)
	if !c.introShown {
		c.introShown = true
		c.status = StatusFrozenModal
		c.modal = ModalIntro
	} else {
		c.activateLocked()
	}
	_, resumed := st.(model.ResumedAttempt)
	c.log.Info().
		Str("attempt_id", c.attemptID).
		Bool("resumed", resumed).
		Int("total_questions", c.total).
		Msg("Attempt started")
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return nil
}

func (c *Controller) applyLocked(st model.AttemptState) {
	core := st.Core()
	c.attemptID = core.AttemptID
	c.questions = core.Questions
	c.total = core.TotalQuestions
	c.remaining = core.RemainingSeconds
	c.hasTimeLimit = core.HasTimeLimit()
	c.current = 0
	c.answers = make(map[int]model.Choice)
	c.answered = make(map[int]struct{})
	c.result = nil
	c.timedOut = false

	if resumed, ok := st.(model.ResumedAttempt); ok {
		c.current = resumed.CurrentIndex
		for idx, choice := range resumed.Answers {
			c.answers[idx] = choice
			c.answered[idx+1] = struct{}{}
		}
	}
	c.selected = c.answers[c.current]

	c.display = ""
	if c.hasTimeLimit {
		c.display = countdown.FormatHMS(*c.remaining)
	}
}

// activateLocked enters StatusActive and fixes the deadline for this activation.
func (c *Controller) activateLocked() {
	c.status = StatusActive
	c.modal = ModalNone
	if c.timer.Activate(c.remaining) {
		c.timer.Start()
	}
}

// Close tears the controller down: the countdown stops and pending answer
// saves are awaited. Further operations are no-ops.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.timer.Cancel()
	c.mu.Unlock()
	c.saves.Wait()
}

// ─── Countdown ────────────────────────────────────────────────────────

// Tick recomputes the remaining time immediately, outside the 1-second
// schedule. Hosts call it after a resume from suspension.
func (c *Controller) Tick() countdown.Reading {
	r := c.timer.Tick()
	c.handleTick(r)
	return r
}

func (c *Controller) handleTick(r countdown.Reading) {
	if r.Display == "" {
		return
	}
	c.mu.Lock()
	if c.attemptID == "" || c.display == r.Display {
		c.mu.Unlock()
		return
	}
	c.display = r.Display
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// handleExpire freezes the session and auto-submits. A failed auto-submit is
// only logged: grading is server side and the user is offered "view results".
func (c *Controller) handleExpire() {
	c.mu.Lock()
	// A Reset may have replaced the deadline after the driver decided to fire.
	if !c.timer.Expired() {
		c.mu.Unlock()
		return
	}
	c.timedOut = true
	c.display = countdown.FormatHMS(0)
	if c.closed || c.submitting || c.status == StatusLoading || c.status == StatusSubmitted {
		c.mu.Unlock()
		return
	}
	c.status = StatusFrozenTimeout
	c.modal = ModalNone
	attemptID := c.attemptID
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	c.log.Info().Str("attempt_id", attemptID).Msg("Time is up, auto-submitting")
	if _, err := c.submit(context.Background(), SubmitAuto); err != nil {
		c.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Auto-submit after time-up failed")
	}
}

// ─── Answers & navigation ─────────────────────────────────────────────

// SelectAnswer records choice for question index and persists it in the
// background. It returns false without changing anything when the session is
// frozen or the arguments are out of range.
func (c *Controller) SelectAnswer(index int, choice model.Choice) bool {
	c.mu.Lock()
	if c.frozenLocked() || index < 0 || index >= c.total || !choice.Valid() {
		c.mu.Unlock()
		return false
	}
	c.answers[index] = choice
	c.answered[index+1] = struct{}{}
	if index == c.current {
		c.selected = choice
	}
	attemptID := c.attemptID
	c.saves.Add(1)
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	go c.persistAnswer(attemptID, index, choice)
	return true
}

func (c *Controller) persistAnswer(attemptID string, index int, choice model.Choice) {
	defer c.saves.Done()
	ctx, cancel := c.requestContext(context.Background())
	defer cancel()

	if err := c.gw.SaveAnswer(ctx, attemptID, index, choice); err != nil {
		perr := &PersistenceError{Op: "save answer", AttemptID: attemptID, Err: err}
		c.log.Warn().Err(perr).Int("index", index).Msg("Answer not persisted; keeping local answer")
	}
}

// Jump moves to question target. Jumping to the current question is a no-op.
func (c *Controller) Jump(target int) bool {
	c.mu.Lock()
	if c.frozenLocked() || target < 0 || target >= c.total || target == c.current {
		c.mu.Unlock()
		return false
	}
	c.current = target
	c.selected = c.answers[target]
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
	return true
}

// Prev moves to the previous question.
func (c *Controller) Prev() bool {
	c.mu.Lock()
	target := c.current - 1
	c.mu.Unlock()
	return c.Jump(target)
}

// Next moves to the next question. On the last question it becomes the
// terminal action and behaves like RequestSubmit.
func (c *Controller) Next(ctx context.Context) error {
	c.mu.Lock()
	if c.frozenLocked() {
		c.mu.Unlock()
		return nil
	}
	last := c.current >= c.total-1
	target := c.current + 1
	c.mu.Unlock()

	if last {
		return c.RequestSubmit(ctx)
	}
	c.Jump(target)
	return nil
}

// ─── Modals ───────────────────────────────────────────────────────────

// RequestSubmit is the terminal action. Timed sessions open the submit
// confirmation; untimed sessions submit directly.
func (c *Controller) RequestSubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.frozenLocked() {
		c.mu.Unlock()
		return nil
	}
	if c.hasTimeLimit {
		c.status = StatusFrozenModal
		c.modal = ModalConfirmSubmit
		snap := c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return nil
	}
	c.mu.Unlock()

	_, err := c.submit(ctx, SubmitManual)
	return err
}

// ConfirmSubmit answers "submit now" in the confirmation modal.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusFrozenModal || c.modal != ModalConfirmSubmit {
		c.mu.Unlock()
		return ErrNoPendingConfirmation
	}
	c.mu.Unlock()

	_, err := c.submit(ctx, SubmitManual)
	return err
}

// DismissModal closes the intro ("begin") or the confirmation ("keep reviewing").
// Closing the intro starts the countdown.
func (c *Controller) DismissModal() {
	c.mu.Lock()
	if c.closed || c.status != StatusFrozenModal {
		c.mu.Unlock()
		return
	}
	if c.modal == ModalIntro {
		c.activateLocked()
	} else {
		c.status = StatusActive
		c.modal = ModalNone
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)
}

// KeepReviewing closes the submit confirmation.
func (c *Controller) KeepReviewing() {
	c.DismissModal()
}

// ─── Submit / pause / reset ───────────────────────────────────────────

// Submit sends the attempt for grading. Concurrent calls are rejected with
// ErrSubmitInFlight without reaching the gateway. A successful manual submit
// navigates to the results.
func (c *Controller) Submit(ctx context.Context, mode SubmitMode) (*model.Result, error) {
	return c.submit(ctx, mode)
}

func (c *Controller) submit(ctx context.Context, mode SubmitMode) (*model.Result, error) {
	c.mu.Lock()
	switch {
	case c.submitting:
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	case c.status == StatusSubmitted:
		c.mu.Unlock()
		return nil, ErrAlreadySubmitted
	case c.closed:
		c.mu.Unlock()
		return nil, ErrClosed
	case c.status != StatusActive && c.status != StatusFrozenModal && c.status != StatusFrozenTimeout:
		c.mu.Unlock()
		return nil, ErrNotSubmittable
	}

	c.submitting = true
	prevStatus, prevModal := c.status, c.modal
	attemptID := c.attemptID
	if mode == SubmitManual {
		c.status = StatusSubmitting
		c.modal = ModalNone
	}
	c.lastErr = ""
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	reqCtx, cancel := c.requestContext(ctx)
	res, err := c.gw.Submit(reqCtx, attemptID)
	cancel()

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		serr := &SubmitError{AttemptID: attemptID, Mode: mode, Err: err}
		if c.timedOut {
			c.status = StatusFrozenTimeout
			c.modal = ModalNone
		} else {
			c.status = prevStatus
			c.modal = prevModal
		}
		if mode == SubmitManual {
			c.lastErr = "Submission failed. Please try again."
		}
		snap = c.snapshotLocked()
		c.mu.Unlock()
		c.publish(snap)
		return nil, serr
	}

	c.result = res
	if mode == SubmitManual {
		c.status = StatusSubmitted
	}
	c.timer.Cancel()
	navigate := mode == SubmitManual && !c.closed
	from := c.from
	snap = c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	c.log.Info().Str("attempt_id", attemptID).Str("mode", string(mode)).Msg("Attempt submitted")
	if navigate {
		c.nav.ToResults(attemptID, from)
	}
	return res, nil
}

// ViewResults navigates to the results of a submitted or timed-out attempt.
func (c *Controller) ViewResults() error {
	c.mu.Lock()
	if c.status != StatusSubmitted && c.status != StatusFrozenTimeout {
		c.mu.Unlock()
		return ErrNoResult
	}
	attemptID, from := c.attemptID, c.from
	c.mu.Unlock()
	c.nav.ToResults(attemptID, from)
	return nil
}

// PauseAndExit stores the live remaining time and current position, then
// leaves the exam. A failed pause is logged; the user still leaves.
func (c *Controller) PauseAndExit(ctx context.Context) error {
	c.mu.Lock()
	if c.frozenLocked() {
		c.mu.Unlock()
		return nil
	}
	attemptID, index, from := c.attemptID, c.current, c.from
	var remaining *int
	if secs, ok := c.timer.Remaining(); ok {
		remaining = &secs
	} else if c.remaining != nil {
		secs := *c.remaining
		remaining = &secs
	}
	c.closed = true
	c.timer.Cancel()
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	c.saves.Wait()

	reqCtx, cancel := c.requestContext(ctx)
	err := c.gw.Pause(reqCtx, attemptID, remaining, index)
	cancel()
	if err != nil {
		perr := &PersistenceError{Op: "pause", AttemptID: attemptID, Err: err}
		c.log.Warn().Err(perr).Msg("Pause not persisted")
	}

	c.nav.Exit(from)
	return nil
}

// Reset abandons the current attempt and starts a brand-new one. The old
// attempt is submitted best-effort (it counts as a graded attempt); its
// countdown is cancelled before the new attempt is requested.
func (c *Controller) Reset(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.starting:
		c.mu.Unlock()
		return ErrStarting
	case c.submitting:
		c.mu.Unlock()
		return ErrSubmitInFlight
	case c.status != StatusActive && c.status != StatusFrozenModal && c.status != StatusFrozenTimeout:
		c.mu.Unlock()
		return ErrNotResettable
	}

	old := c.attemptID
	c.timer.Cancel()
	c.status = StatusLoading
	c.modal = ModalNone
	c.attemptID = ""
	c.questions = nil
	c.total = 0
	c.current = 0
	c.selected = ""
	c.answers = make(map[int]model.Choice)
	c.answered = make(map[int]struct{})
	c.remaining = nil
	c.hasTimeLimit = false
	c.display = ""
	c.result = nil
	c.lastErr = ""
	c.timedOut = false
	snap := c.snapshotLocked()
	c.mu.Unlock()
	c.publish(snap)

	reqCtx, cancel := c.requestContext(ctx)
	if _, err := c.gw.Submit(reqCtx, old); err != nil {
		c.log.Warn().Err(err).Str("attempt_id", old).Msg("Submitting abandoned attempt before reset failed")
	}
	cancel()

	return c.Start(ctx)
}

// ─── Queries ──────────────────────────────────────────────────────────

// Frozen reports whether answer and navigation changes are currently refused.
func (c *Controller) Frozen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozenLocked()
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) frozenLocked() bool {
	return c.closed || c.status != StatusActive
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Status:         c.status,
		Modal:          c.modal,
		Frozen:         c.frozenLocked(),
		AttemptID:      c.attemptID,
		ReviewerID:     c.reviewerID,
		From:           c.from,
		CurrentIndex:   c.current,
		TotalQuestions: c.total,
		Selected:       c.selected,
		Answers:        make(map[int]model.Choice, len(c.answers)),
		Answered:       make([]int, 0, len(c.answered)),
		HasTimeLimit:   c.hasTimeLimit,
		TimeLeft:       c.display,
		IsLastQuestion: c.total > 0 && c.current == c.total-1,
		LastError:      c.lastErr,
		Result:         c.result,
	}
	for k, v := range c.answers {
		s.Answers[k] = v
	}
	for n := range c.answered {
		s.Answered = append(s.Answered, n)
	}
	sort.Ints(s.Answered)
	if c.current >= 0 && c.current < len(c.questions) {
		q := c.questions[c.current]
		s.Question = &q
	}
	return s
}

func (c *Controller) publish(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Controller) requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(parent, c.timeout)
	}
	return context.WithCancel(parent)
}
