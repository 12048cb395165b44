package store

import (
	"context"
	"fmt"
	"time"

	"github.com/voralis/formpilot/idgen"
	"github.com/voralis/formpilot/regflow"
)

// Record is one persisted registration outcome.
type Record struct {
	ID                string    `json:"id"`
	Email             string    `json:"email"`
	Password          string    `json:"password"`
	AccountID         string    `json:"account_id"`
	Profile           string    `json:"profile"`
	Message           string    `json:"message"`
	Success           bool      `json:"success"`
	NeedsVerification bool      `json:"needs_verification"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// AppendResult persists a registration result and evicts history beyond the
// configured bound, oldest first. Insert and eviction commit atomically, so
// the history can never be observed over its bound. Returns the record ID.
func (s *Store) AppendResult(ctx context.Context, res *regflow.Result) (string, error) {
	id := idgen.Prefixed("reg_", idgen.Default)()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("store: begin append: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO registrations (
			id, email, password, account_id, profile, message,
			success, needs_verification, started_at, finished_at
		) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		id, res.Email, res.Password, res.AccountID, res.Profile, res.Message,
		boolInt(res.Success), boolInt(res.NeedsVerification),
		res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("store: insert registration: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM registrations WHERE id NOT IN (
			SELECT id FROM registrations ORDER BY finished_at DESC, id DESC LIMIT ?
		)`, s.maxHistory)
	if err != nil {
		return "", fmt.Errorf("store: evict history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("store: commit append: %w", err)
	}
	return id, nil
}

// History returns up to limit records, most recent first. limit <= 0 means
// the full retained history.
func (s *Store) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > s.maxHistory {
		limit = s.maxHistory
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, email, password, account_id, profile, message,
		       success, needs_verification, started_at, finished_at
		FROM registrations ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var success, verify int
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Email, &r.Password, &r.AccountID,
			&r.Profile, &r.Message, &success, &verify, &started, &finished); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		r.Success = success != 0
		r.NeedsVerification = verify != 0
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		out = append(out, r)
	}
	return out, rows.Err()
}

// HistoryCount returns the retained record count.
func (s *Store) HistoryCount(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n)
	return n, err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
