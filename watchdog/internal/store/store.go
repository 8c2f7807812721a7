// CLAUDE:SUMMARY SQLite history of poll cycles, restart attempts and lifecycle events; doubles as a sink.
// Package store persists watchdog reports in SQLite so past cycles and
// restart attempts can be inspected after the fact.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/panelwatch/watchdog/report"
)

// Schema creates the history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS poll_cycles (
	id            TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL,
	page_url      TEXT NOT NULL DEFAULT '',
	players       INTEGER NOT NULL,
	players_known INTEGER NOT NULL,
	player_source TEXT NOT NULL DEFAULT '',
	timer_minutes INTEGER,
	timer_seconds INTEGER,
	timer_total   INTEGER,
	timer_raw     TEXT,
	restart       INTEGER NOT NULL,
	class         TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	finished_at   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_poll_cycles_created ON poll_cycles(created_at);

CREATE TABLE IF NOT EXISTS restart_attempts (
	id               TEXT PRIMARY KEY,
	cycle_id         TEXT NOT NULL REFERENCES poll_cycles(id) ON DELETE CASCADE,
	outcome          TEXT NOT NULL,
	action_strategy  TEXT NOT NULL DEFAULT '',
	action_label     TEXT NOT NULL DEFAULT '',
	confirm_strategy TEXT NOT NULL DEFAULT '',
	confirm_label    TEXT NOT NULL DEFAULT '',
	error            TEXT NOT NULL DEFAULT '',
	screenshot       TEXT NOT NULL DEFAULT '',
	started_at       INTEGER NOT NULL,
	finished_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_restart_attempts_cycle ON restart_attempts(cycle_id);

CREATE TABLE IF NOT EXISTS monitor_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	type       TEXT NOT NULL,
	state      TEXT NOT NULL DEFAULT '',
	detail     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
`

// Store is the SQLite history. It implements sink.Sink.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the history database at path.
func Open(path string, opts ...OpenOption) (*Store, error) {
	db, err := openDB(path, opts...)
	if err != nil {
		return nil, err
	}
	return newStore(db), nil
}

func newStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }

// Send records a cycle and its restart attempt in one transaction.
func (s *Store) Send(ctx context.Context, c report.Cycle) error {
	var tm struct{ min, sec, total, raw any }
	if t := c.Facts.Timer; t != nil {
		tm.min, tm.sec, tm.total, tm.raw = t.Minutes, t.Seconds, t.Total, t.Raw
	}
	return runTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO poll_cycles (id, seq, page_url, players, players_known, player_source,
				timer_minutes, timer_seconds, timer_total, timer_raw, restart, class, created_at, finished_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Seq, c.PageURL, c.Facts.Players, c.Facts.PlayersKnown, c.Facts.PlayerSource,
			tm.min, tm.sec, tm.total, tm.raw, c.Decision.Restart, string(c.Decision.Class), c.Timestamp, c.FinishedAt)
		if err != nil {
			return fmt.Errorf("store: insert cycle: %w", err)
		}
		if a := c.Attempt; a != nil {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO restart_attempts (id, cycle_id, outcome, action_strategy, action_label,
					confirm_strategy, confirm_label, error, screenshot, started_at, finished_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				a.ID, c.ID, string(a.Outcome), a.ActionStrategy, a.ActionLabel,
				a.ConfirmStrategy, a.ConfirmLabel, a.Error, a.Screenshot, a.StartedAt, a.FinishedAt)
			if err != nil {
				return fmt.Errorf("store: insert attempt: %w", err)
			}
		}
		return nil
	})
}

// SendEvent records a lifecycle event.
func (s *Store) SendEvent(ctx context.Context, ev report.Event) error {
	_, err := exec(ctx, s.db,
		`INSERT INTO monitor_events (type, state, detail, created_at) VALUES (?, ?, ?, ?)`,
		string(ev.Type), string(ev.State), ev.Detail, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("store: insert event: %w", err)
	}
	return nil
}

const cycleColumns = `
	c.id, c.seq, c.page_url, c.players, c.players_known, c.player_source,
	c.timer_minutes, c.timer_seconds, c.timer_total, c.timer_raw, c.restart, c.class, c.created_at, c.finished_at,
	a.id, a.outcome, a.action_strategy, a.action_label, a.confirm_strategy, a.confirm_label,
	a.error, a.screenshot, a.started_at, a.finished_at`

// Recent returns the last limit cycles, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]report.Cycle, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+cycleColumns+`
		FROM poll_cycles c
		LEFT JOIN restart_attempts a ON a.cycle_id = c.id
		ORDER BY c.created_at DESC, c.seq DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var out []report.Cycle
	for rows.Next() {
		c, err := scanCycle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Last returns the most recent cycle, or nil when the history is empty.
func (s *Store) Last(ctx context.Context) (*report.Cycle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+cycleColumns+`
		FROM poll_cycles c
		LEFT JOIN restart_attempts a ON a.cycle_id = c.id
		ORDER BY c.created_at DESC, c.seq DESC
		LIMIT 1`)
	c, err := scanCycle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCycle(sc scanner) (report.Cycle, error) {
	var (
		c                     report.Cycle
		class                 string
		tmMin, tmSec, tmTotal sql.NullInt64
		tmRaw                 sql.NullString
		aID, aOutcome         sql.NullString
		aStrat, aLabel        sql.NullString
		aCStrat, aCLabel      sql.NullString
		aErr, aShot           sql.NullString
		aStarted, aFinished   sql.NullInt64
	)
	err := sc.Scan(&c.ID, &c.Seq, &c.PageURL, &c.Facts.Players, &c.Facts.PlayersKnown, &c.Facts.PlayerSource,
		&tmMin, &tmSec, &tmTotal, &tmRaw, &c.Decision.Restart, &class, &c.Timestamp, &c.FinishedAt,
		&aID, &aOutcome, &aStrat, &aLabel, &aCStrat, &aCLabel, &aErr, &aShot, &aStarted, &aFinished)
	if errors.Is(err, sql.ErrNoRows) {
		return c, err
	}
	if err != nil {
		return c, fmt.Errorf("store: scan cycle: %w", err)
	}
	c.Decision.Class = report.Class(class)
	if tmTotal.Valid {
		c.Facts.Timer = &report.Timer{
			Minutes: int(tmMin.Int64),
			Seconds: int(tmSec.Int64),
			Total:   int(tmTotal.Int64),
			Raw:     tmRaw.String,
		}
	}
	if aID.Valid {
		c.Attempt = &report.Attempt{
			ID:              aID.String,
			Outcome:         report.Outcome(aOutcome.String),
			ActionStrategy:  aStrat.String,
			ActionLabel:     aLabel.String,
			ConfirmStrategy: aCStrat.String,
			ConfirmLabel:    aCLabel.String,
			Error:           aErr.String,
			Screenshot:      aShot.String,
			StartedAt:       aStarted.Int64,
			FinishedAt:      aFinished.Int64,
		}
	}
	return c, nil
}

// Attempts returns the last limit restart attempts, newest first.
func (s *Store) Attempts(ctx context.Context, limit int) ([]report.Attempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, outcome, action_strategy, action_label, confirm_strategy, confirm_label,
		       error, screenshot, started_at, finished_at
		FROM restart_attempts
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: attempts: %w", err)
	}
	defer rows.Close()

	var out []report.Attempt
	for rows.Next() {
		var a report.Attempt
		var outcome string
		if err := rows.Scan(&a.ID, &outcome, &a.ActionStrategy, &a.ActionLabel,
			&a.ConfirmStrategy, &a.ConfirmLabel, &a.Error, &a.Screenshot,
			&a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("store: scan attempt: %w", err)
		}
		a.Outcome = report.Outcome(outcome)
		out = append(out, a)
	}
	return out, rows.Err()
}

// Stats summarises the whole history.
type Stats struct {
	Cycles         int64 `json:"cycles"`
	Restarts       int64 `json:"restarts"`
	FailedAttempts int64 `json:"failed_attempts"`
	LastRestartAt  int64 `json:"last_restart_at,omitempty"` // epoch milliseconds
}

// Stats counts cycles and restart attempts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var last sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM poll_cycles),
			(SELECT COUNT(*) FROM restart_attempts WHERE outcome IN ('clicked', 'confirmed')),
			(SELECT COUNT(*) FROM restart_attempts WHERE outcome NOT IN ('clicked', 'confirmed')),
			(SELECT MAX(started_at) FROM restart_attempts WHERE outcome IN ('clicked', 'confirmed'))
	`).Scan(&st.Cycles, &st.Restarts, &st.FailedAttempts, &last)
	if err != nil {
		return st, fmt.Errorf("store: stats: %w", err)
	}
	st.LastRestartAt = last.Int64
	return st, nil
}

// Cleanup deletes cycles, their attempts and events older than
// retentionDays. It returns the number of cycles removed.
func (s *Store) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-time.Duration(retentionDays) * 24 * time.Hour).UnixMilli()
	var n int64
	err := runTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM restart_attempts
			WHERE cycle_id IN (SELECT id FROM poll_cycles WHERE created_at < ?)`, cutoff); err != nil {
			return fmt.Errorf("store: cleanup attempts: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM poll_cycles WHERE created_at < ?`, cutoff)
		if err != nil {
			return fmt.Errorf("store: cleanup cycles: %w", err)
		}
		n, _ = res.RowsAffected()
		if _, err := tx.ExecContext(ctx, `DELETE FROM monitor_events WHERE created_at < ?`, cutoff); err != nil {
			return fmt.Errorf("store: cleanup events: %w", err)
		}
		return nil
	})
	return n, err
}
