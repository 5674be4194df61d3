package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Connect retry schedule. Compose brings postgres and redis up alongside the
// server, so the first pings often land before they accept connections.
const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
	maxBackoff      = 8 * time.Second
)

// pingWithRetry calls ping until it succeeds, attempts run out, or ctx ends.
// The wait doubles after each failure up to maxBackoff.
func pingWithRetry(ctx context.Context, log zerolog.Logger, what string, attempts int, backoff time.Duration, ping func(context.Context) error) error {
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn().Err(err).
			Str("target", what).
			Int("attempt", i).
			Dur("retry_in", backoff).
			Msg("Connection not ready, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping %s: %w", what, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return fmt.Errorf("ping %s after %d attempts: %w", what, attempts, err)
}
