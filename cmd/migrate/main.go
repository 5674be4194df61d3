package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-review/internal/config"
	"github.com/stemsi/exstem-review/internal/logger"
)

// command is a parsed migrate invocation. n is the step count for steps,
// or the target version for goto and force.
type command struct {
	name string
	n    int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, errors.New("missing command")
	}
	cmd := command{name: args[0]}
	switch cmd.name {
	case "up", "down", "version":
		return cmd, nil
	case "steps", "goto", "force":
		if len(args) < 2 {
			return command{}, fmt.Errorf("%s requires a number", cmd.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: invalid number %q", cmd.name, args[1])
		}
		if cmd.name == "steps" && n == 0 {
			return command{}, errors.New("steps must be non-zero")
		}
		if cmd.name == "goto" && n < 0 {
			return command{}, errors.New("goto version must be positive")
		}
		cmd.n = n
		return cmd, nil
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}
}

func main() {
	var migrationDir string
	flag.StringVar(&migrationDir, "path", "migrations", "Path to migration files")
	flag.Usage = printUsage
	flag.Parse()

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, nil).With().Str("component", "migrate").Logger()

	cmd, err := parseCommand(flag.Args())
	if err != nil {
		log.Error().Err(err).Msg("Bad arguments")
		printUsage()
		os.Exit(2)
	}

	m, err := migrate.New("file://"+migrationDir, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("path", migrationDir).Msg("Migration failed to initialize")
	}
	m.Log = migrateLogger{log}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			log.Warn().AnErr("source", srcErr).AnErr("database", dbErr).Msg("Close migrate")
		}
	}()

	if err := run(m, cmd); err != nil {
		log.Fatal().Err(err).Str("command", cmd.name).Msg("Migration failed")
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info().Str("command", cmd.name).Msg("No migrations applied")
	case err != nil:
		log.Fatal().Err(err).Msg("Read version")
	default:
		log.Info().Str("command", cmd.name).Uint("version", version).Bool("dirty", dirty).Msg("Done")
	}
}

func run(m *migrate.Migrate, cmd command) error {
	var err error
	switch cmd.name {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(cmd.n)
	case "goto":
		err = m.Migrate(uint(cmd.n))
	case "force":
		err = m.Force(cmd.n)
	case "version":
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

// migrateLogger routes golang-migrate's progress lines through zerolog.
type migrateLogger struct {
	log zerolog.Logger
}

func (l migrateLogger) Printf(format string, v ...interface{}) {
	l.log.Info().Msgf(format, v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.GetLevel() <= zerolog.DebugLevel
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: migrate [flags] <command>")
	fmt.Fprintln(os.Stderr, "Commands: up, down, version, steps <n>, goto <version>, force <version>")
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}
