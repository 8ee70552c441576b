// Package server holds the process-level plumbing shared by the entrypoint:
// structured logger construction and supervision of the long-running
// goroutines that must not take the moderation API down with them.
package server

import (
	"context"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	superviseBaseBackoff = time.Second
	superviseMaxBackoff  = 5 * time.Minute
)

// Supervise runs fn until ctx is cancelled, restarting it with doubling
// backoff whenever it panics or returns early. The HTTPS listener runs under
// this so a certificate renewal failure cannot crash the intake endpoint.
func Supervise(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	backoff := superviseBaseBackoff
	restarts := 0
	for {
		runGuarded(ctx, logger, name, fn)

		select {
		case <-ctx.Done():
			logger.Info("supervised goroutine stopped", "name", name)
			return
		case <-time.After(backoff):
		}

		restarts++
		logger.Warn("supervised goroutine restarting",
			"name", name, "restarts", restarts, "backoff", backoff)
		if backoff *= 2; backoff > superviseMaxBackoff {
			backoff = superviseMaxBackoff
		}
	}
}

// runGuarded invokes fn once, converting a panic into an error log so the
// supervision loop survives it.
func runGuarded(ctx context.Context, logger *slog.Logger, name string, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("supervised goroutine panicked",
				"name", name,
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()
	fn(ctx)
}

// NewLogger builds the service-wide JSON logger at the configured level.
// Unknown level names select info, matching the config package's
// never-fatal handling of bad values.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
