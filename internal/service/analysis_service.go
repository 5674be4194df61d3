package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// maxMissedInPrompt caps how many missed questions are quoted to the model.
const maxMissedInPrompt = 10

// AnalysisInput is what an Analyzer sees of a graded attempt.
type AnalysisInput struct {
	ReviewerTitle string
	Total         int
	Correct       int
	Answered      int
	// Missed holds the text of questions answered wrong or left blank, in attempt order.
	Missed []string
}

// Analyzer writes a short study note about a graded attempt.
type Analyzer interface {
	Analyze(ctx context.Context, in AnalysisInput) (string, error)
}

// GeminiAnalyzer asks a Gemini model for the study note.
type GeminiAnalyzer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnalyzer creates a Gemini-backed Analyzer.
func NewGeminiAnalyzer(ctx context.Context, apiKey, model string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, in AnalysisInput) (string, error) {
	result, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(analysisPrompt(in)), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	text = strings.TrimPrefix(text, "```markdown")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("empty model response")
	}
	return text, nil
}

func analysisPrompt(in AnalysisInput) string {
	var b strings.Builder
	b.WriteString("You are a tutor reviewing a practice exam. Write at most 4 short sentences of plain text ")
	b.WriteString("telling the student how they did and which topics to study next. No lists, no markdown.\n\n")
	fmt.Fprintf(&b, "Exam: %s\n", in.ReviewerTitle)
	fmt.Fprintf(&b, "Correct: %d of %d (answered %d)\n", in.Correct, in.Total, in.Answered)
	if len(in.Missed) > 0 {
		b.WriteString("Questions missed:\n")
		for i, q := range in.Missed {
			if i == maxMissedInPrompt {
				fmt.Fprintf(&b, "- and %d more\n", len(in.Missed)-maxMissedInPrompt)
				break
			}
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}
	return b.String()
}

// SummarizeAttempt is the deterministic note used when no model is configured or it fails.
func SummarizeAttempt(in AnalysisInput) string {
	if in.Total == 0 {
		return "This reviewer had no questions."
	}
	pct := float64(in.Correct) / float64(in.Total) * 100

	var verdict string
	switch {
	case pct >= 90:
		verdict = "Excellent work, you have this material down."
	case pct >= 75:
		verdict = "Good job, a little more review will make it solid."
	case pct >= 50:
		verdict = "You are halfway there. Review the questions you missed before trying again."
	default:
		verdict = "This topic needs more study. Go through the explanations and retake the reviewer."
	}

	msg := fmt.Sprintf("You answered %d of %d questions and got %d right (%.0f%%). %s",
		in.Answered, in.Total, in.Correct, pct, verdict)
	if skipped := in.Total - in.Answered; skipped > 0 {
		msg += fmt.Sprintf(" You left %d unanswered.", skipped)
	}
	return msg
}
