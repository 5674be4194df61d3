package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-review/internal/clock"
	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/gateway"
	"github.com/stemsi/exstem-review/internal/session"
)

// leave is sent by the navigator when the controller hands control back.
type leave struct {
	attemptID string
	results   bool
}

// navigator implements session.Navigator for the terminal host.
type navigator struct {
	ch chan leave
}

func (n *navigator) ToResults(attemptID, _ string) {
	select {
	case n.ch <- leave{attemptID: attemptID, results: true}:
	default:
	}
}

func (n *navigator) Exit(string) {
	select {
	case n.ch <- leave{}:
	default:
	}
}

// screen serializes frame writes from the ticker and key goroutines.
type screen struct {
	mu  sync.Mutex
	out io.Writer
}

func (s *screen) draw(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprint(s.out, "\x1b[H\x1b[2J"+render(snap))
}

func runTake(ctx context.Context, cfg *config.ClientConfig, client *gateway.Client, log zerolog.Logger, args []string) error {
	reviewerID, from, err := parseTakeArgs(args)
	if err != nil {
		return err
	}

	nav := &navigator{ch: make(chan leave, 1)}
	scr := &screen{out: os.Stdout}
	ctrl := session.New(client, reviewerID, session.Options{
		Clock:          clock.Real(),
		Logger:         log,
		Navigator:      nav,
		From:           from,
		RequestTimeout: cfg.RequestTimeout,
		OnChange:       scr.draw,
	})
	defer ctrl.Close()

	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	restored := false
	restore := func() {
		if !restored {
			term.Restore(fd, oldState)
			restored = true
		}
	}
	defer restore()
	scr.draw(ctrl.Snapshot())

	keys := make(chan byte)
	go readKeys(os.Stdin, keys)

	// A stopped and resumed process catches up with the real deadline at once.
	cont := make(chan os.Signal, 1)
	signal.Notify(cont, syscall.SIGCONT)
	defer signal.Stop(cont)

	for {
		select {
		case k, ok := <-keys:
			if !ok || handleKey(ctx, ctrl, log, k) {
				return nil
			}
		case <-cont:
			ctrl.Tick()
		case l := <-nav.ch:
			restore()
			if !l.results {
				fmt.Println("\nProgress saved. Resume any time with `exam take " + reviewerID + "`.")
				return nil
			}
			return showResults(ctx, client, l.attemptID)
		}
	}
}

func readKeys(r io.Reader, out chan<- byte) {
	defer close(out)
	buf := make([]byte, 1)
	for {
		if _, err := r.Read(buf); err != nil {
			return
		}
		out <- buf[0]
	}
}

// handleKey applies one key press. It reports whether the host should quit.
func handleKey(ctx context.Context, ctrl *session.Controller, log zerolog.Logger, k byte) bool {
	action := keyAction(k)
	if snap := ctrl.Snapshot(); snap.Status == session.StatusLoading && snap.LastError != "" {
		// The load failed: retry or leave.
		switch action.kind {
		case actReset, actDismiss:
			logRejected(log, ctrl.Start(ctx))
		case actQuit:
			return true
		}
		return false
	}

	switch action.kind {
	case actSelect:
		ctrl.SelectAnswer(ctrl.Snapshot().CurrentIndex, action.choice)
	case actNext:
		logRejected(log, ctrl.Next(ctx))
	case actPrev:
		ctrl.Prev()
	case actJump:
		ctrl.Jump(action.index)
	case actSubmit:
		logRejected(log, ctrl.RequestSubmit(ctx))
	case actConfirm:
		logRejected(log, ctrl.ConfirmSubmit(ctx))
	case actDismiss:
		ctrl.DismissModal()
	case actPause:
		logRejected(log, ctrl.PauseAndExit(ctx))
	case actReset:
		logRejected(log, ctrl.Reset(ctx))
	case actResults:
		logRejected(log, ctrl.ViewResults())
	case actQuit:
		return true
	}
	return false
}

func logRejected(log zerolog.Logger, err error) {
	if err != nil {
		log.Debug().Err(err).Msg("Key action rejected")
	}
}

func showResults(ctx context.Context, client *gateway.Client, attemptID string) error {
	res, err := client.Result(ctx, attemptID)
	if err != nil {
		return err
	}
	fmt.Print(formatResult(res))
	fmt.Printf("See every answer with `exam review %s`.\n", attemptID)
	return nil
}
