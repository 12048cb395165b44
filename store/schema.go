package store

// Schema contains the complete DDL for the formpilot tables.
const Schema = `
-- Registration history: bounded, most recent first
CREATE TABLE IF NOT EXISTS registrations (
    id                 TEXT PRIMARY KEY,
    email              TEXT NOT NULL,
    password           TEXT NOT NULL DEFAULT '',
    account_id         TEXT NOT NULL DEFAULT '',
    profile            TEXT NOT NULL DEFAULT '',
    message            TEXT NOT NULL DEFAULT '',
    success            INTEGER NOT NULL DEFAULT 0,
    needs_verification INTEGER NOT NULL DEFAULT 0,
    started_at         INTEGER NOT NULL,
    finished_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_registrations_finished ON registrations(finished_at DESC);

-- String-keyed JSON blobs: form snapshot backups, strategy stats, app config
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
