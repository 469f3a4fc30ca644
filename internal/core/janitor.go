package database

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/duynhne/credential-service/internal/core/domain"
	"github.com/duynhne/credential-service/internal/logger"
)

// RunSessionPurger removes expired sessions every interval until ctx is done.
// Failures are logged and retried on the next tick.
func RunSessionPurger(ctx context.Context, sessions domain.SessionStore, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.LogError(&log.Logger, "Session purge failed", err)
				continue
			}
			if n > 0 {
				log.Info().Int64("purged", n).Msg("Expired sessions purged")
			}
		}
	}
}
