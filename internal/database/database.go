package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	_ "modernc.org/sqlite"

	"github.com/mbeukers/tvguide/internal/model"
)

// Retention window applied on every save: programmes older than 12 hours or
// further out than 7 days are not kept.
const (
	windowPast   = 12 * time.Hour
	windowFuture = 7 * 24 * time.Hour
)

// searchLimit caps title search results.
const searchLimit = 200

// DB wraps the SQLite connection.
type DB struct {
	conn *sqlx.DB
}

var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// A single pooled connection keeps the per-connection pragmas in force
	// and serializes writers; the busy timeout makes a caller queue briefly
	// behind a commit instead of failing with SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("exec %q: %w", pragma, err)
		}
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS channels (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		icon TEXT
	);
	CREATE TABLE IF NOT EXISTS programmes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		channelId TEXT NOT NULL REFERENCES channels(id) ON DELETE CASCADE,
		start INTEGER NOT NULL,
		stop INTEGER NOT NULL,
		title TEXT NOT NULL,
		"desc" TEXT,
		UNIQUE(channelId, start)
	);
	CREATE INDEX IF NOT EXISTS idx_programmes_channel_start ON programmes(channelId, start);
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// --- Row types ---

type dbChannel struct {
	ID   string         `db:"id"`
	Name string         `db:"name"`
	Icon sql.NullString `db:"icon"`
}

func (c dbChannel) toModel() model.Channel {
	return model.Channel{ID: c.ID, Name: c.Name, Icon: c.Icon.String}
}

type dbProgramme struct {
	ID        int64          `db:"id"`
	ChannelID string         `db:"channelId"`
	Start     int64          `db:"start"`
	Stop      int64          `db:"stop"`
	Title     string         `db:"title"`
	Desc      sql.NullString `db:"desc"`
}

func (p dbProgramme) toModel() model.Programme {
	return model.Programme{
		ID:        p.ID,
		ChannelID: p.ChannelID,
		Start:     p.Start,
		Stop:      p.Stop,
		Title:     p.Title,
		Desc:      p.Desc.String,
	}
}

const programmeColumns = `id, channelId, start, stop, title, "desc"`

// --- Save ---

// SaveGuide upserts channels, prunes programmes outside the retention window
// and inserts the incoming programmes that lie fully within it, all in one
// transaction.
func (db *DB) SaveGuide(ctx context.Context, channels []model.Channel, programmes []model.Programme) error {
	now := time.Now()
	windowStart := now.Add(-windowPast).Unix()
	windowEnd := now.Add(windowFuture).Unix()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, ch := range channels {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO channels (id, name, icon) VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, icon = excluded.icon`,
			ch.ID, ch.Name, nullable(ch.Icon)); err != nil {
			return fmt.Errorf("upsert channel %s: %w", ch.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM programmes WHERE stop < ? OR start > ?",
		windowStart, windowEnd); err != nil {
		return fmt.Errorf("prune programmes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO programmes (channelId, start, stop, title, "desc")
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range programmes {
		if p.Start < windowStart || p.Stop > windowEnd {
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.ChannelID, p.Start, p.Stop, p.Title, nullable(p.Desc)); err != nil {
			return fmt.Errorf("insert programme %s@%d: %w", p.ChannelID, p.Start, err)
		}
	}

	return tx.Commit()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// --- Queries ---

// Channels returns all channels ordered by name.
func (db *DB) Channels(ctx context.Context) ([]model.Channel, error) {
	var rows []dbChannel
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, name, icon FROM channels ORDER BY name"); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(c dbChannel, _ int) model.Channel {
		return c.toModel()
	}), nil
}

// NowNext returns the current and upcoming programme for every channel.
// Per channel it fetches the two soonest-ending future programmes and
// classifies the first as current only when it has already started.
func (db *DB) NowNext(ctx context.Context, now time.Time) ([]model.NowNext, error) {
	channels, err := db.Channels(ctx)
	if err != nil {
		return nil, err
	}

	ts := now.Unix()
	result := make([]model.NowNext, 0, len(channels))
	for _, ch := range channels {
		var rows []dbProgramme
		if err := db.conn.SelectContext(ctx, &rows, `
			SELECT `+programmeColumns+` FROM programmes
			WHERE channelId = ? AND stop > ?
			ORDER BY start LIMIT 2`, ch.ID, ts); err != nil {
			return nil, err
		}

		entry := model.NowNext{Channel: ch}
		for _, row := range rows {
			p := row.toModel()
			if p.Start <= ts && entry.Now == nil {
				entry.Now = &p
			} else if p.Start > ts && entry.Next == nil {
				entry.Next = &p
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// ProgrammesOn returns the programmes of a channel starting on the given
// local calendar day, ordered by start.
func (db *DB) ProgrammesOn(ctx context.Context, channelID string, day time.Time) ([]model.Programme, error) {
	d := day.Local()
	dayStart := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.Local)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var rows []dbProgramme
	if err := db.conn.SelectContext(ctx, &rows, `
		SELECT `+programmeColumns+` FROM programmes
		WHERE channelId = ? AND start >= ? AND start < ?
		ORDER BY start`, channelID, dayStart.Unix(), dayEnd.Unix()); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p dbProgramme, _ int) model.Programme {
		return p.toModel()
	}), nil
}

// AllProgrammes returns every stored programme ordered by channel and start.
func (db *DB) AllProgrammes(ctx context.Context) ([]model.Programme, error) {
	var rows []dbProgramme
	if err := db.conn.SelectContext(ctx, &rows, `
		SELECT `+programmeColumns+` FROM programmes
		ORDER BY channelId, start`); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p dbProgramme, _ int) model.Programme {
		return p.toModel()
	}), nil
}

// SearchProgrammes matches query as a case-insensitive substring of the
// title. An empty query returns no results.
func (db *DB) SearchProgrammes(ctx context.Context, query string) ([]model.Programme, error) {
	if query == "" {
		return nil, nil
	}
	var rows []dbProgramme
	if err := db.conn.SelectContext(ctx, &rows, `
		SELECT `+programmeColumns+` FROM programmes
		WHERE title LIKE ?
		ORDER BY start LIMIT ?`, "%"+query+"%", searchLimit); err != nil {
		return nil, err
	}
	return lo.Map(rows, func(p dbProgramme, _ int) model.Programme {
		return p.toModel()
	}), nil
}

// Stats returns the stored channel and programme counts.
func (db *DB) Stats(ctx context.Context) (model.Stats, error) {
	var s model.Stats
	if err := db.conn.GetContext(ctx, &s.Channels, "SELECT COUNT(*) FROM channels"); err != nil {
		return model.Stats{}, err
	}
	if err := db.conn.GetContext(ctx, &s.Programmes, "SELECT COUNT(*) FROM programmes"); err != nil {
		return model.Stats{}, err
	}
	return s, nil
}

// --- Settings ---

// Setting retrieves a setting value, or "" when the key is absent.
func (db *DB) Setting(ctx context.Context, key string) (string, error) {
	var val string
	err := db.conn.GetContext(ctx, &val, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting saves a setting.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}
