package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/gateway"
	"github.com/stemsi/exstem-review/internal/logger"
	"github.com/stemsi/exstem-review/internal/tokenstore"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.LoadClient()

	// ─── Initialize Logger ─────────────────────────────────────────────
	// The terminal belongs to the exam screen, so logs go to a file.
	logFile, err := logger.OpenFile(cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot open log file %s: %v\n", cfg.LogFile, err)
		os.Exit(1)
	}
	defer logFile.Close()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, logFile)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	tokens := tokenstore.New(cfg.TokenFile)
	client := gateway.New(cfg.APIBaseURL, tokens,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithLogger(log),
		gateway.WithStream(cfg.UseStream),
	)
	defer client.Close()

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "login":
		err = runLogin(ctx, cfg, tokens, log)
	case "logout":
		err = tokens.Clear()
		if err == nil {
			fmt.Println("Logged out.")
		}
	case "list":
		err = runList(ctx, client)
	case "library":
		err = runLibrary(ctx, client, args)
	case "take":
		err = runTake(ctx, cfg, client, log, args)
	case "result":
		err = runResult(ctx, client, args)
	case "review":
		err = runReview(ctx, client, args)
	case "support":
		err = runSupport(ctx, client)
	default:
		printUsage()
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("command", cmd).Msg("Command failed")
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: exam <command> [args]")
	fmt.Println("Commands:")
	fmt.Println("  login                          sign in and store the token")
	fmt.Println("  logout                         forget the stored token")
	fmt.Println("  list                           list reviewers")
	fmt.Println("  library [add|remove <id>]      show or edit your library")
	fmt.Println("  take [-from ctx] <reviewer-id> take or resume a reviewer")
	fmt.Println("  result <attempt-id>            show the graded result")
	fmt.Println("  review <attempt-id>            show answers and explanations")
	fmt.Println("  support                        send a support ticket")
}

// describe turns API errors into a line the user can act on.
func describe(err error) string {
	switch {
	case errors.Is(err, tokenstore.ErrNoToken):
		return "not logged in; run `exam login` first"
	case errors.Is(err, tokenstore.ErrTokenExpired), errors.Is(err, gateway.ErrUnauthorized):
		return "your login has expired; run `exam login` again"
	case errors.Is(err, gateway.ErrNotFound):
		return "not found"
	}
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// ─── Commands ─────────────────────────────────────────────────────────

func runLogin(ctx context.Context, cfg *config.ClientConfig, tokens *tokenstore.Store, log zerolog.Logger) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, _ := reader.ReadString('\n')
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email is required")
	}

	fmt.Print("Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	anon := gateway.New(cfg.APIBaseURL, nil, gateway.WithTimeout(cfg.RequestTimeout), gateway.WithLogger(log))
	resp, err := anon.Login(ctx, email, string(bytePassword))
	if err != nil {
		return err
	}
	if err := tokens.Save(resp.Token); err != nil {
		return err
	}
	fmt.Printf("Welcome, %s (%s plan).\n", resp.User.Name, resp.User.Plan)
	return nil
}

func runList(ctx context.Context, client *gateway.Client) error {
	reviewers, err := client.ListReviewers(ctx)
	if err != nil {
		return err
	}
	fmt.Print(formatReviewers(reviewers))
	return nil
}

func runLibrary(ctx context.Context, client *gateway.Client, args []string) error {
	if len(args) == 2 {
		switch args[0] {
		case "add":
			if err := client.AddToLibrary(ctx, args[1]); err != nil {
				return err
			}
			fmt.Println("Added to library.")
			return nil
		case "remove":
			if err := client.RemoveFromLibrary(ctx, args[1]); err != nil {
				return err
			}
			fmt.Println("Removed from library.")
			return nil
		}
	}

	entries, err := client.Library(ctx)
	if err != nil {
		return err
	}
	fmt.Print(formatLibrary(entries))
	return nil
}

func runResult(ctx context.Context, client *gateway.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: exam result <attempt-id>")
	}
	res, err := client.Result(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Print(formatResult(res))
	return nil
}

func runReview(ctx context.Context, client *gateway.Client, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: exam review <attempt-id>")
	}
	rev, err := client.Review(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Print(formatReview(rev))
	return nil
}

func runSupport(ctx context.Context, client *gateway.Client) error {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Subject: ")
	subject, _ := reader.ReadString('\n')
	fmt.Print("Message: ")
	message, _ := reader.ReadString('\n')

	ticket, err := client.SubmitTicket(ctx, strings.TrimSpace(subject), strings.TrimSpace(message))
	if err != nil {
		return err
	}
	fmt.Printf("Ticket #%d sent. We'll get back to you by email.\n", ticket.ID)
	return nil
}

func parseTakeArgs(args []string) (reviewerID, from string, err error) {
	fs := flag.NewFlagSet("take", flag.ContinueOnError)
	fs.StringVar(&from, "from", "library", "Screen to return to after the exam")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if fs.NArg() != 1 {
		return "", "", errors.New("usage: exam take [-from ctx] <reviewer-id>")
	}
	return fs.Arg(0), from, nil
}
