package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// busyBackoff is the wait before each retry of a statement that hit a
// locked database. Its length bounds the number of attempts.
var busyBackoff = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond}

var busyMarkers = []string{"SQLITE_BUSY", "database is locked", "database table is locked"}

// IsBusy reports whether err indicates an SQLite BUSY condition.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, m := range busyMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// withBusyRetry calls fn until it succeeds, fails with a non-busy error, or
// busyBackoff is exhausted.
func withBusyRetry[T any](ctx context.Context, op string, fn func() (T, error)) (T, error) {
	for i := 0; ; i++ {
		v, err := fn()
		if err == nil || !IsBusy(err) || i == len(busyBackoff) {
			return v, err
		}
		t := time.NewTimer(busyBackoff[i])
		select {
		case <-ctx.Done():
			t.Stop()
			var zero T
			return zero, fmt.Errorf("store: %s: %w", op, errors.Join(ctx.Err(), err))
		case <-t.C:
		}
	}
}

// runTx executes fn inside a transaction. The whole transaction is replayed
// when the database is busy.
func runTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	_, err := withBusyRetry(ctx, "tx", func() (struct{}, error) {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return struct{}{}, fmt.Errorf("store: begin tx: %w", err)
		}
		if err := fn(tx); err != nil {
			_ = tx.Rollback()
			return struct{}{}, err
		}
		if err := tx.Commit(); err != nil {
			return struct{}{}, fmt.Errorf("store: commit: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func exec(ctx context.Context, db *sql.DB, query string, args ...any) (sql.Result, error) {
	return withBusyRetry(ctx, "exec", func() (sql.Result, error) {
		return db.ExecContext(ctx, query, args...)
	})
}
