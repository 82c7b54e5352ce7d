package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// MatchSummary is an archived match with its ranking
type MatchSummary struct {
	ID        int64       `json:"id"`
	RoomID    string      `json:"roomId"`
	StartedAt time.Time   `json:"startedAt"`
	Duration  float64     `json:"duration"` // seconds
	Reason    string      `json:"reason"`
	Results   []FinalStat `json:"results"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	// WAL lets the ops API read while the journal writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		duration REAL NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_results (
		match_id INTEGER NOT NULL REFERENCES matches(id),
		rank INTEGER NOT NULL,
		entity_id TEXT NOT NULL,
		name TEXT NOT NULL,
		is_bot INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		score INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, rank)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		room_id TEXT,
		entity_id TEXT,
		data TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_matches_created ON matches(created_at);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// RecordMatch stores a settled match and its ranking in one transaction
func (db *DB) RecordMatch(rec MatchRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"INSERT INTO matches (room_id, started_at, duration, reason) VALUES (?, ?, ?, ?)",
		rec.RoomID, rec.StartedAt.UTC(), rec.Duration.Seconds(), rec.Reason,
	)
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.Prepare(`INSERT INTO match_results (match_id, rank, entity_id, name, is_bot, kills, deaths, score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	for _, s := range rec.Stats {
		if _, err := stmt.Exec(id, s.Rank, s.ID, s.Name, s.IsBot, s.Kills, s.Deaths, s.Score); err != nil {
			return 0, fmt.Errorf("insert result %d: %w", s.Rank, err)
		}
	}
	return id, tx.Commit()
}

// RecentMatches returns the newest archived matches with their rankings
func (db *DB) RecentMatches(limit int) ([]MatchSummary, error) {
	rows, err := db.conn.Query(
		"SELECT id, room_id, started_at, duration, reason FROM matches ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	var result []MatchSummary
	for rows.Next() {
		var m MatchSummary
		if err := rows.Scan(&m.ID, &m.RoomID, &m.StartedAt, &m.Duration, &m.Reason); err != nil {
			rows.Close()
			return nil, err
		}
		result = append(result, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		results, err := db.matchResults(result[i].ID)
		if err != nil {
			return nil, err
		}
		result[i].Results = results
	}
	return result, nil
}

func (db *DB) matchResults(matchID int64) ([]FinalStat, error) {
	rows, err := db.conn.Query(`
		SELECT rank, entity_id, name, is_bot, kills, deaths, score
		FROM match_results WHERE match_id = ? ORDER BY rank`,
		matchID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []FinalStat
	for rows.Next() {
		var s FinalStat
		if err := rows.Scan(&s.Rank, &s.ID, &s.Name, &s.IsBot, &s.Kills, &s.Deaths, &s.Score); err != nil {
			return nil, err
		}
		s.KD = round2(killDeathRatio(s.Kills, s.Deaths))
		result = append(result, s)
	}
	return result, rows.Err()
}

// GetSetting returns a stored setting, or "" when absent
func (db *DB) GetSetting(key string) string {
	var v string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&v)
	if err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting, replacing any previous value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
