package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/database"
	"github.com/stemsi/exstem-review/internal/logger"
	"github.com/stemsi/exstem-review/internal/model"
	"github.com/stemsi/exstem-review/internal/repository"
	"github.com/stemsi/exstem-review/internal/service"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	authService := service.NewAuthService(cfg, repository.NewUserRepository(pool))

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("=== Create New User ===")

	fmt.Print("Enter Name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)
	if name == "" {
		fmt.Println("Error: Name is required")
		return
	}

	fmt.Print("Enter Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		fmt.Println("Error: Email is required")
		return
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	password := string(bytePassword)
	fmt.Println()
	if len(password) < 6 {
		fmt.Println("Error: Password must be at least 6 characters")
		return
	}

	fmt.Print("Plan [free/premium] (default free): ")
	planStr, _ := reader.ReadString('\n')
	plan := model.Plan(strings.ToLower(strings.TrimSpace(planStr)))
	switch plan {
	case "":
		plan = model.PlanFree
	case model.PlanFree, model.PlanPremium:
	default:
		fmt.Println("Error: Plan must be free or premium")
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	user, err := authService.Register(ctx, email, name, password, plan)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create user")
	}

	fmt.Printf("\nSuccess! User '%s' (%s, %s) created with ID: %d\n", user.Name, user.Email, user.Plan, user.ID)
}
