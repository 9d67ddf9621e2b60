package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"

	"github.com/skaild/sitegen/internal/observability/logger"
)

// ChangeChannel is the notification channel fed by the site triggers
const ChangeChannel = "site_changes"

// Invalidator drops cached state for a lookup key
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// Watcher listens for site change notifications on a dedicated connection
// and invalidates the matching cache entries.
type Watcher struct {
	dsn         string
	invalidator Invalidator
	maxInterval time.Duration
}

// NewWatcher creates a watcher using the connection settings of db
func NewWatcher(db *DB, invalidator Invalidator) *Watcher {
	return &Watcher{dsn: db.dsn, invalidator: invalidator, maxInterval: 30 * time.Second}
}

// Run blocks until ctx is cancelled, reconnecting with exponential backoff
// whenever the connection drops.
func (w *Watcher) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = w.maxInterval
	b.MaxElapsedTime = 0

	for {
		started := time.Now()
		err := w.listen(ctx)
		if ctx.Err() != nil {
			return nil
		}
		// a connection that stayed up for a while starts the backoff over
		if time.Since(started) > w.maxInterval {
			b.Reset()
		}

		wait := b.NextBackOff()
		slog.WarnContext(ctx, "site change feed disconnected",
			logger.Error(err), slog.Duration("retry_in", wait), logger.Component("watcher"))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := pgx.Connect(ctx, w.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{ChangeChannel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	slog.InfoContext(ctx, "listening for site changes", slog.String("channel", ChangeChannel), logger.Component("watcher"))

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload == "" {
			continue
		}
		if err := w.invalidator.Invalidate(ctx, n.Payload); err != nil && !errors.Is(err, context.Canceled) {
			slog.WarnContext(ctx, "failed to invalidate site config",
				logger.LookupKey(n.Payload), logger.Error(err), logger.Component("watcher"))
			continue
		}
		slog.DebugContext(ctx, "site config invalidated", logger.LookupKey(n.Payload), logger.Component("watcher"))
	}
}
