package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voralis/formpilot/fields"
	"github.com/voralis/formpilot/formguard"
	"github.com/voralis/formpilot/regflow"
)

// BackupVersion is the exported form snapshot document version.
const BackupVersion = "1.0"

const backupKey = "form_backup"
const statsKey = "strategy_stats"

// Backup is the exported/imported form snapshot document.
type Backup struct {
	FormData  map[string]string `json:"formData"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
}

// ErrNoBackup is returned when no form backup has been saved.
var ErrNoBackup = errors.New("store: no form backup")

// SaveBackup persists the guard snapshot as a versioned JSON document.
func (s *Store) SaveBackup(ctx context.Context, snap formguard.Snapshot) error {
	doc := Backup{
		FormData:  make(map[string]string, len(snap)),
		Timestamp: time.Now().UTC(),
		Version:   BackupVersion,
	}
	for id, v := range snap {
		doc.FormData[string(id)] = v
	}
	return s.putJSON(ctx, backupKey, doc)
}

// LoadBackup reads the saved form snapshot document, if any.
func (s *Store) LoadBackup(ctx context.Context) (*Backup, error) {
	var doc Backup
	if err := s.getJSON(ctx, backupKey, &doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoBackup
		}
		return nil, err
	}
	return &doc, nil
}

// Snapshot converts the backup's form data back into a guard snapshot.
// Unknown keys are dropped.
func (b *Backup) Snapshot() formguard.Snapshot {
	snap := make(formguard.Snapshot, len(b.FormData))
	for k, v := range b.FormData {
		id := fields.ID(k)
		if fields.Valid(id) {
			snap[id] = v
		}
	}
	return snap
}

// SaveStats persists a strategy statistics snapshot.
func (s *Store) SaveStats(ctx context.Context, counters map[string]regflow.Counters) error {
	return s.putJSON(ctx, statsKey, counters)
}

// LoadStats reads the persisted strategy statistics, or an empty table when
// none were saved.
func (s *Store) LoadStats(ctx context.Context) (map[string]regflow.Counters, error) {
	out := make(map[string]regflow.Counters)
	if err := s.getJSON(ctx, statsKey, &out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, nil
		}
		return nil, err
	}
	return out, nil
}

// PutConfig stores an arbitrary JSON-serialisable configuration blob.
func (s *Store) PutConfig(ctx context.Context, key string, v any) error {
	return s.putJSON(ctx, "config_"+key, v)
}

// GetConfig reads a configuration blob into v. Missing keys return
// sql.ErrNoRows.
func (s *Store) GetConfig(ctx context.Context, key string, v any) error {
	return s.getJSON(ctx, "config_"+key, v)
}

func (s *Store) putJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", key, err)
	}
	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store: put %s: %w", key, err)
	}
	return nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) error {
	var raw string
	err := s.DB.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("store: unmarshal %s: %w", key, err)
	}
	return nil
}
