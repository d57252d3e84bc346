package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pocketbase/dbx"
	_ "modernc.org/sqlite"
)

const localSchema = `
CREATE TABLE IF NOT EXISTS drafts (
	id        TEXT PRIMARY KEY NOT NULL,
	payload   TEXT NOT NULL,
	version   INTEGER NOT NULL DEFAULT 0,
	updated   TEXT NOT NULL,
	remote_id TEXT NOT NULL DEFAULT '',
	synced    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts (updated);
CREATE INDEX IF NOT EXISTS idx_drafts_remote ON drafts (remote_id);
`

// LocalDB is the structured SQLite mirror of drafts.
type LocalDB struct {
	db *dbx.DB
}

type draftRow struct {
	ID       string `db:"id"`
	Payload  string `db:"payload"`
	Version  int    `db:"version"`
	Updated  string `db:"updated"`
	RemoteID string `db:"remote_id"`
	Synced   string `db:"synced"`
}

// OpenLocalDB opens (creating if needed) the SQLite file at path and
// ensures the drafts table exists. ":memory:" is accepted for tests.
func OpenLocalDB(path string) (*LocalDB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create localdb dir: %w", err)
		}
	}

	db, err := dbx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open localdb: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.DB().SetMaxOpenConns(1)

	if _, err := db.NewQuery(localSchema).Execute(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create localdb schema: %w", err)
	}
	return &LocalDB{db: db}, nil
}

// Close releases the database.
func (l *LocalDB) Close() error {
	return l.db.Close()
}

func (l *LocalDB) Ping(ctx context.Context) error {
	return l.db.DB().PingContext(ctx)
}

func (l *LocalDB) Save(ctx context.Context, d Draft) error {
	payload, err := json.Marshal(d.State)
	if err != nil {
		return fmt.Errorf("encode draft %s: %w", d.ID, err)
	}

	_, err = l.db.NewQuery(`
		INSERT INTO drafts (id, payload, version, updated, remote_id, synced)
		VALUES ({:id}, {:payload}, {:version}, {:updated}, {:remote_id}, {:synced})
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			version = excluded.version,
			updated = excluded.updated,
			remote_id = excluded.remote_id,
			synced = excluded.synced
	`).WithContext(ctx).Bind(dbx.Params{
		"id":        d.ID,
		"payload":   string(payload),
		"version":   d.Version,
		"updated":   formatTime(d.Updated),
		"remote_id": d.RemoteID,
		"synced":    formatTime(d.Synced),
	}).Execute()
	if err != nil {
		return fmt.Errorf("save draft %s: %w", d.ID, err)
	}
	return nil
}

func (l *LocalDB) Load(ctx context.Context, id string) (Draft, error) {
	var row draftRow
	err := l.db.Select("*").From("drafts").
		Where(dbx.HashExp{"id": id}).
		WithContext(ctx).
		One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return Draft{}, ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("load draft %s: %w", id, err)
	}
	return row.draft()
}

func (l *LocalDB) List(ctx context.Context) ([]Draft, error) {
	var rows []draftRow
	err := l.db.Select("*").From("drafts").
		OrderBy("updated DESC").
		WithContext(ctx).
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	drafts := make([]Draft, 0, len(rows))
	for _, row := range rows {
		d, err := row.draft()
		if errors.Is(err, ErrCorruptDraft) {
			continue
		}
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func (l *LocalDB) Delete(ctx context.Context, id string) error {
	_, err := l.db.Delete("drafts", dbx.HashExp{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return fmt.Errorf("delete draft %s: %w", id, err)
	}
	return nil
}

func (r draftRow) draft() (Draft, error) {
	d := Draft{
		ID:       r.ID,
		Version:  r.Version,
		RemoteID: r.RemoteID,
		Updated:  parseTime(r.Updated),
		Synced:   parseTime(r.Synced),
	}
	if err := json.Unmarshal([]byte(r.Payload), &d.State); err != nil {
		return Draft{}, fmt.Errorf("decode draft %s: %w: %v", r.ID, ErrCorruptDraft, err)
	}
	return d, nil
}

// timeLayout has a fixed-width fraction so stored values sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

var (
	_ DraftStore = (*LocalDB)(nil)
	_ DraftStore = (*KVDrafts)(nil)
)
