package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/session"
)

type actionKind int

const (
	actNone actionKind = iota
	actSelect
	actNext
	actPrev
	actJump
	actSubmit
	actConfirm
	actDismiss
	actPause
	actReset
	actResults
	actQuit
)

type action struct {
	kind   actionKind
	choice model.Choice
	index  int
}

// keyAction maps a raw key byte to an exam action.
func keyAction(k byte) action {
	switch {
	case k >= 'a' && k <= 'd':
		return action{kind: actSelect, choice: model.Choice(strings.ToUpper(string(k)))}
	case k >= '1' && k <= '9':
		return action{kind: actJump, index: int(k - '1')}
	}
	switch k {
	case 'n':
		return action{kind: actNext}
	case 'p':
		return action{kind: actPrev}
	case 's':
		return action{kind: actSubmit}
	case 'y':
		return action{kind: actConfirm}
	case 'k', '\r', '\n':
		return action{kind: actDismiss}
	case 'x':
		return action{kind: actPause}
	case 'r':
		return action{kind: actReset}
	case 'v':
		return action{kind: actResults}
	case 'q', 3: // 3 is Ctrl-C in raw mode
		return action{kind: actQuit}
	}
	return action{kind: actNone}
}

// render draws one exam frame. Lines end in \r\n because the terminal is in raw mode.
func render(s session.Snapshot) string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, format, args...)
		b.WriteString("\r\n")
	}

	if s.Status == session.StatusLoading {
		line("Loading exam...")
		if s.LastError != "" {
			line("%s", s.LastError)
			line("[r] retry    [q] back")
		}
		return b.String()
	}

	header := fmt.Sprintf("Question %d of %d", s.CurrentIndex+1, s.TotalQuestions)
	if s.HasTimeLimit {
		header += "    Time left " + s.TimeLeft
	}
	line("%s", header)
	line("%s", strings.Repeat("─", 48))

	switch s.Modal {
	case session.ModalIntro:
		line("Ready to begin?")
		if s.HasTimeLimit {
			line("You have %s for %d questions. The timer starts when you begin.", s.TimeLeft, s.TotalQuestions)
		} else {
			line("This reviewer has no time limit.")
		}
		line("Press enter to begin.")
		return b.String()
	case session.ModalConfirmSubmit:
		line("Submit your answers?")
		line("You answered %d of %d questions.", len(s.Answered), s.TotalQuestions)
		line("[y] submit now    [k] keep reviewing")
		return b.String()
	}

	switch s.Status {
	case session.StatusFrozenTimeout:
		if s.Result != nil {
			line("Time is up! Your answers were submitted.")
		} else {
			line("Time is up! Your answers will be graded shortly.")
		}
		line("[v] view results    [r] start over    [q] quit")
		return b.String()
	case session.StatusSubmitting:
		line("Submitting...")
		return b.String()
	case session.StatusSubmitted:
		line("Submitted.")
		return b.String()
	}

	if s.Question != nil {
		line("%s", s.Question.Text)
		line("")
		for _, opt := range s.Question.Options {
			mark := " "
			if opt.Key == s.Selected {
				mark = "x"
			}
			line("  [%s] %s. %s", mark, strings.ToLower(string(opt.Key)), opt.Text)
		}
	}
	line("")
	line("Answered: %s", answeredList(s.Answered))
	if s.LastError != "" {
		line("! %s", s.LastError)
	}
	next := "[n] next"
	if s.IsLastQuestion {
		next = "[n] finish"
	}
	line("[a-d] answer  %s  [p] prev  [1-9] jump  [s] submit  [x] pause & exit  [r] restart  [q] quit", next)
	return b.String()
}

func answeredList(nums []int) string {
	if len(nums) == 0 {
		return "none"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}

// ─── Plain listings ───────────────────────────────────────────────────

func formatReviewers(rs []model.Reviewer) string {
	if len(rs) == 0 {
		return "No reviewers available.\n"
	}
	var b strings.Builder
	for _, r := range rs {
		fmt.Fprintf(&b, "%s  %s  (%d questions, %s)", r.ID, r.Title, r.QuestionCount, timeLimit(&r))
		if r.Premium {
			b.WriteString("  [premium]")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLibrary(entries []model.LibraryEntry) string {
	if len(entries) == 0 {
		return "Your library is empty. Add a reviewer with `exam library add <id>`.\n"
	}
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%s  %s  (added %s)\n", e.Reviewer.ID, e.Reviewer.Title, e.AddedAt.Format("2006-01-02"))
	}
	return b.String()
}

func timeLimit(r *model.Reviewer) string {
	if !r.HasTimeLimit() {
		return "untimed"
	}
	return fmt.Sprintf("%d min", *r.TimeLimitMinutes)
}

func formatResult(res *model.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %.1f%%\n", res.Score)
	fmt.Fprintf(&b, "Correct: %d of %d (answered %d)\n", res.CorrectCount, res.TotalQuestions, res.AnsweredCount)
	if res.Analysis != "" {
		fmt.Fprintf(&b, "\n%s\n", res.Analysis)
	}
	return b.String()
}

func formatReview(rev *model.Review) string {
	var b strings.Builder
	for _, it := range rev.Items {
		verdict := "wrong"
		switch {
		case it.Correct:
			verdict = "correct"
		case it.UserChoice == "":
			verdict = "unanswered"
		}
		fmt.Fprintf(&b, "%d. %s\n", it.Index+1, it.Text)
		user := string(it.UserChoice)
		if user == "" {
			user = "-"
		}
		fmt.Fprintf(&b, "   your answer: %s   correct: %s   (%s)\n", user, it.CorrectChoice, verdict)
		if it.Explanation != "" {
			fmt.Fprintf(&b, "   %s\n", it.Explanation)
		}
	}
	return b.String()
}
