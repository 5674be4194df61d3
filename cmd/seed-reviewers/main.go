package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/database"
	"github.com/stemsi/exstem-review/internal/logger"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/repository"
	"github.com/stemsi/exstem-review/internal/service"
)

// seedReviewer is one reviewer in a seed file.
type seedReviewer struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Category         string         `json:"category"`
	TimeLimitMinutes *int           `json:"time_limit_minutes"`
	Premium          bool           `json:"premium"`
	Questions        []seedQuestion `json:"questions"`
}

type seedQuestion struct {
	Text        string         `json:"text"`
	Options     []model.Option `json:"options"`
	Correct     model.Choice   `json:"correct"`
	Explanation string         `json:"explanation"`
}

func main() {
	var file string
	flag.StringVar(&file, "file", "", "JSON file with reviewers to seed (default: built-in sample)")
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	reviewers := sampleReviewers()
	if file != "" {
		var err error
		if reviewers, err = loadSeedFile(file); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Failed to read seed file")
		}
	}
	if err := validateSeed(reviewers); err != nil {
		log.Fatal().Err(err).Msg("Invalid seed data")
	}

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	reviewerRepo := repository.NewReviewerRepository(pool)
	reviewerService := service.NewReviewerService(reviewerRepo, rdb, log)

	fmt.Printf("=== Seeding %d Reviewers ===\n", len(reviewers))

	successCount := 0
	for _, sr := range reviewers {
		rv := &model.Reviewer{
			Title:            sr.Title,
			Description:      sr.Description,
			Category:         sr.Category,
			TimeLimitMinutes: sr.TimeLimitMinutes,
			Premium:          sr.Premium,
		}
		if err := reviewerRepo.Create(ctx, rv); err != nil {
			fmt.Printf("Error creating reviewer %q: %v\n", sr.Title, err)
			continue
		}

		failed := false
		for i, sq := range sr.Questions {
			q := &model.Question{
				ReviewerID:    rv.ID,
				Text:          sq.Text,
				Options:       sq.Options,
				CorrectChoice: sq.Correct,
				Explanation:   sq.Explanation,
				OrderNum:      i + 1,
			}
			if err := reviewerRepo.CreateQuestion(ctx, q); err != nil {
				fmt.Printf("Error creating question %d of %q: %v\n", i+1, sr.Title, err)
				failed = true
				break
			}
		}
		if failed {
			continue
		}

		if err := reviewerService.WarmCache(ctx, rv); err != nil {
			log.Warn().Err(err).Str("reviewer_id", rv.ID.String()).Msg("Cache warm failed")
		}
		successCount++
		fmt.Printf("Created %q (%s) with %d questions\n", rv.Title, rv.ID, len(sr.Questions))
	}

	fmt.Printf("\nSeed completed! Successfully added %d/%d reviewers.\n", successCount, len(reviewers))
}

func loadSeedFile(path string) ([]seedReviewer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reviewers []seedReviewer
	if err := json.Unmarshal(data, &reviewers); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return reviewers, nil
}

// validateSeed checks every question has A-D options and a valid answer.
func validateSeed(reviewers []seedReviewer) error {
	if len(reviewers) == 0 {
		return errors.New("no reviewers")
	}
	for _, rv := range reviewers {
		if rv.Title == "" {
			return errors.New("reviewer without title")
		}
		if len(rv.Questions) == 0 {
			return fmt.Errorf("%q has no questions", rv.Title)
		}
		if rv.TimeLimitMinutes != nil && *rv.TimeLimitMinutes <= 0 {
			return fmt.Errorf("%q: time limit must be positive", rv.Title)
		}
		for i, q := range rv.Questions {
			if q.Text == "" {
				return fmt.Errorf("%q question %d: empty text", rv.Title, i+1)
			}
			if !q.Correct.Valid() {
				return fmt.Errorf("%q question %d: invalid answer %q", rv.Title, i+1, q.Correct)
			}
			if len(q.Options) != len(model.Choices) {
				return fmt.Errorf("%q question %d: want %d options, got %d", rv.Title, i+1, len(model.Choices), len(q.Options))
			}
			for j, opt := range q.Options {
				if opt.Key != model.Choices[j] {
					return fmt.Errorf("%q question %d: option %d must be %s", rv.Title, i+1, j+1, model.Choices[j])
				}
			}
		}
	}
	return nil
}

func options(a, b, c, d string) []model.Option {
	return []model.Option{
		{Key: model.ChoiceA, Text: a},
		{Key: model.ChoiceB, Text: b},
		{Key: model.ChoiceC, Text: c},
		{Key: model.ChoiceD, Text: d},
	}
}

func sampleReviewers() []seedReviewer {
	fifteen := 15
	return []seedReviewer{
		{
			Title:            "General Science Drill",
			Description:      "Quick mixed review of basic science facts.",
			Category:         "science",
			TimeLimitMinutes: &fifteen,
			Questions: []seedQuestion{
				{Text: "What is the chemical symbol for sodium?", Options: options("S", "Na", "So", "Sn"), Correct: model.ChoiceB,
					Explanation: "Sodium comes from the Latin natrium."},
				{Text: "Which planet is closest to the sun?", Options: options("Mercury", "Venus", "Earth", "Mars"), Correct: model.ChoiceA},
				{Text: "What gas do plants absorb for photosynthesis?", Options: options("Oxygen", "Nitrogen", "Carbon dioxide", "Helium"), Correct: model.ChoiceC},
				{Text: "What is the SI unit of force?", Options: options("Joule", "Watt", "Pascal", "Newton"), Correct: model.ChoiceD},
			},
		},
		{
			Title:       "Algebra Practice",
			Description: "Untimed linear equations practice.",
			Category:    "math",
			Premium:     true,
			Questions: []seedQuestion{
				{Text: "Solve 2x + 3 = 11.", Options: options("3", "4", "5", "7"), Correct: model.ChoiceB},
				{Text: "Solve x / 3 = 6.", Options: options("2", "9", "18", "3"), Correct: model.ChoiceC,
					Explanation: "Multiply both sides by 3."},
				{Text: "What is the slope of y = -4x + 1?", Options: options("-4", "1", "4", "-1"), Correct: model.ChoiceA},
			},
		},
	}
}
