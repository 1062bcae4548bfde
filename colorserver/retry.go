// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package colorserver

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// txRetry re-runs a transaction that lost to concurrent writers
type txRetry struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

var defaultTxRetry = txRetry{attempts: 3, base: 10 * time.Millisecond, max: 500 * time.Millisecond}

// isContention reports serialization failures, deadlocks and lock timeouts
func isContention(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// delay is the pause after failed attempt n (1-based)
func (r txRetry) delay(n int) time.Duration {
	d := r.base
	for i := 1; i < n && d < r.max; i++ {
		d *= 2
	}
	return min(d, r.max)
}

// do runs fn until it succeeds, fails with a non-contention error or runs out of attempts
func (r txRetry) do(ctx context.Context, logger *slog.Logger, op string, fn func(ctx context.Context) error) error {
	for n := 1; ; n++ {
		err := fn(ctx)
		if err == nil || !isContention(err) || n >= r.attempts {
			return err
		}
		logger.Warn("Retrying transaction after contention", "op", op, "attempt", n, "error", err)

		t := time.NewTimer(r.delay(n))
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}
