// Package capturedb indexes city captures in SQLite so a dashboard session
// can be opened at any recorded tick.
package capturedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
)

var ErrNotFound = errors.New("capture not found")

type DB struct {
	db *sql.DB
}

// Entry describes one stored capture without its payload.
type Entry struct {
	ID           string
	CityName     string
	Tick         uint64
	Buildings    int
	SnapshotPath string
	RecordedAt   time.Time
}

func Open(path string) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS captures (
			id TEXT PRIMARY KEY,
			city TEXT NOT NULL,
			tick INTEGER NOT NULL,
			buildings INTEGER NOT NULL,
			snapshot_path TEXT NOT NULL DEFAULT '',
			recorded_at TEXT NOT NULL,
			capture_json TEXT NOT NULL,
			UNIQUE(city, tick)
		);`,
		`CREATE INDEX IF NOT EXISTS captures_city_tick ON captures(city, tick);`,
		`INSERT OR IGNORE INTO meta(key, value) VALUES('schema_version', '1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Put stores c, replacing any capture of the same city at the same tick, and
// returns the new capture id.
func (d *DB) Put(ctx context.Context, c city.Capture, snapshotPath string) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode capture: %w", err)
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM captures WHERE city = ? AND tick = ?`, c.CityName, int64(c.Tick)); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO captures(id, city, tick, buildings, snapshot_path, recorded_at, capture_json) VALUES(?,?,?,?,?,?,?)`,
		id, c.CityName, int64(c.Tick), len(c.Buildings), snapshotPath, now, string(b),
	); err != nil {
		_ = tx.Rollback()
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (d *DB) Get(ctx context.Context, id string) (city.Capture, error) {
	row := d.db.QueryRowContext(ctx, `SELECT capture_json FROM captures WHERE id = ?`, id)
	return scanCapture(row)
}

// At returns the latest capture of cityName at or before tick.
func (d *DB) At(ctx context.Context, cityName string, tick uint64) (city.Capture, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT capture_json FROM captures WHERE city = ? AND tick <= ? ORDER BY tick DESC LIMIT 1`,
		cityName, int64(tick))
	return scanCapture(row)
}

// Latest returns the newest capture of cityName. An empty name matches any city.
func (d *DB) Latest(ctx context.Context, cityName string) (city.Capture, error) {
	var row *sql.Row
	if cityName == "" {
		row = d.db.QueryRowContext(ctx, `SELECT capture_json FROM captures ORDER BY recorded_at DESC, tick DESC LIMIT 1`)
	} else {
		row = d.db.QueryRowContext(ctx, `SELECT capture_json FROM captures WHERE city = ? ORDER BY tick DESC LIMIT 1`, cityName)
	}
	return scanCapture(row)
}

// List returns entries ordered by city then tick. An empty name lists all.
func (d *DB) List(ctx context.Context, cityName string) ([]Entry, error) {
	q := `SELECT id, city, tick, buildings, snapshot_path, recorded_at FROM captures`
	var args []any
	if cityName != "" {
		q += ` WHERE city = ?`
		args = append(args, cityName)
	}
	q += ` ORDER BY city, tick`
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e          Entry
			tick       int64
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.CityName, &tick, &e.Buildings, &e.SnapshotPath, &recordedAt); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanCapture(row *sql.Row) (city.Capture, error) {
	var c city.Capture
	var raw string
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, ErrNotFound
		}
		return c, err
	}
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return c, fmt.Errorf("decode capture: %w", err)
	}
	return c, nil
}
