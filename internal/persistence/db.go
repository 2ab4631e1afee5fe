// Package persistence keeps the SQLite journal of boost feedback and boosted
// growth, plus a small key/value store of world metadata. The journal is an
// audit trail: nothing in it is read back into engine state.
package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNoMeta is returned by GetMeta for an unknown key.
var ErrNoMeta = errors.New("meta key not found")

// FeedbackRecord is one boost transition seen by an agent.
type FeedbackRecord struct {
	Tick      uint64 `db:"tick" json:"tick"`
	AgentID   string `db:"agent_id" json:"agent_id"`
	AgentName string `db:"agent_name" json:"agent_name"`
	Kind      string `db:"kind" json:"kind"`
	Count     int    `db:"count" json:"count"`
	Percent   int    `db:"percent" json:"percent"`
	World     string `db:"world" json:"world"`
	X         int    `db:"x" json:"x"`
	Y         int    `db:"y" json:"y"`
	Z         int    `db:"z" json:"z"`
}

// GrowthRecord is one growth tick that the boost accelerated.
type GrowthRecord struct {
	Tick       uint64  `db:"tick" json:"tick"`
	World      string  `db:"world" json:"world"`
	X          int     `db:"x" json:"x"`
	Y          int     `db:"y" json:"y"`
	Z          int     `db:"z" json:"z"`
	Block      string  `db:"block" json:"block"`
	Multiplier float64 `db:"multiplier" json:"multiplier"`
	Extra      bool    `db:"extra" json:"extra"` // an extra block of height was added
}

// Event is a journal entry flattened for display.
type Event struct {
	Tick        uint64 `db:"tick" json:"tick"`
	Category    string `db:"category" json:"category"`
	Description string `db:"description" json:"description"`
}

// Counts summarises the journal.
type Counts struct {
	Feedback int `db:"feedback" json:"feedback"`
	Growth   int `db:"growth" json:"growth"`
}

// DB wraps a SQLite connection for the journal.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return setup(conn)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*DB, error) {
	conn, err := sqlx.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open memory db: %w", err)
	}
	// Every new connection to :memory: is a separate database.
	conn.SetMaxOpenConns(1)
	return setup(conn)
}

func setup(conn *sqlx.DB) (*DB, error) {
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
	CREATE TABLE IF NOT EXISTS feedback_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		agent_id TEXT NOT NULL,
		agent_name TEXT NOT NULL,
		kind TEXT NOT NULL,
		count INTEGER NOT NULL,
		percent INTEGER NOT NULL,
		world TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		z INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS growth_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tick INTEGER NOT NULL,
		world TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		z INTEGER NOT NULL,
		block TEXT NOT NULL,
		multiplier REAL NOT NULL,
		extra INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_tick ON feedback_events(tick);
	CREATE INDEX IF NOT EXISTS idx_feedback_agent ON feedback_events(agent_id);
	CREATE INDEX IF NOT EXISTS idx_growth_tick ON growth_events(tick);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// AppendFeedback writes feedback records in one transaction.
func (db *DB) AppendFeedback(records []FeedbackRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range records {
		_, err := tx.NamedExec(`INSERT INTO feedback_events
			(tick, agent_id, agent_name, kind, count, percent, world, x, y, z)
			VALUES (:tick, :agent_id, :agent_name, :kind, :count, :percent, :world, :x, :y, :z)`, r)
		if err != nil {
			return fmt.Errorf("insert feedback for %s: %w", r.AgentID, err)
		}
	}
	return tx.Commit()
}

// AppendGrowth writes growth records in one transaction.
func (db *DB) AppendGrowth(records []GrowthRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(`INSERT INTO growth_events
		(tick, world, x, y, z, block, multiplier, extra)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.Tick, r.World, r.X, r.Y, r.Z, r.Block, r.Multiplier, r.Extra); err != nil {
			return fmt.Errorf("insert growth at %s:%d:%d:%d: %w", r.World, r.X, r.Y, r.Z, err)
		}
	}
	return tx.Commit()
}

// RecentFeedback returns the latest feedback records, newest first.
func (db *DB) RecentFeedback(limit int) ([]FeedbackRecord, error) {
	var out []FeedbackRecord
	err := db.conn.Select(&out, `SELECT tick, agent_id, agent_name, kind, count, percent, world, x, y, z
		FROM feedback_events ORDER BY id DESC LIMIT ?`, limit)
	return out, err
}

// RecentGrowth returns the latest growth records, newest first.
func (db *DB) RecentGrowth(limit int) ([]GrowthRecord, error) {
	var out []GrowthRecord
	err := db.conn.Select(&out, `SELECT tick, world, x, y, z, block, multiplier, extra
		FROM growth_events ORDER BY id DESC LIMIT ?`, limit)
	return out, err
}

// RecentEvents returns the most recent N journal entries of either kind.
func (db *DB) RecentEvents(limit int) ([]Event, error) {
	var events []Event
	err := db.conn.Select(&events, `
		SELECT tick, category, description FROM (
			SELECT id, tick, 'feedback' AS category,
				agent_name || ' ' || kind || ' (' || count || ' farmers, +' || percent || '%)' AS description
			FROM feedback_events
			UNION ALL
			SELECT id, tick, 'growth' AS category,
				block || ' at ' || world || ' ' || x || ',' || y || ',' || z ||
				CASE WHEN extra THEN ' grew taller' ELSE ' grew' END AS description
			FROM growth_events
		) ORDER BY tick DESC, id DESC LIMIT ?`, limit)
	return events, err
}

// Counts returns the number of journal rows of each kind.
func (db *DB) Counts() (Counts, error) {
	var c Counts
	err := db.conn.Get(&c, `SELECT
		(SELECT COUNT(*) FROM feedback_events) AS feedback,
		(SELECT COUNT(*) FROM growth_events) AS growth`)
	return c, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", ErrNoMeta, key)
	}
	return value, err
}

// SaveRunMeta records where a simulation run stopped.
func (db *DB) SaveRunMeta(tick uint64, seed int64) error {
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	if err := db.SaveMeta("seed", fmt.Sprintf("%d", seed)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	slog.Info("run metadata saved", "tick", tick, "seed", seed)
	return nil
}
