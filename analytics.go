package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// Event types for the room journal
const (
	EvtMatchStart   = "match_start"
	EvtMatchEnd     = "match_end"
	EvtKill         = "kill"
	EvtMoveRejected = "move_rejected"
	EvtConnect      = "connect"
	EvtDisconnect   = "disconnect"
)

const (
	journalBuffer     = 1024
	journalBatchSize  = 50
	journalFlushEvery = 5 * time.Second
)

// AnalyticsEvent represents a single journal entry
type AnalyticsEvent struct {
	Type      string
	RoomID    string
	EntityID  string
	Data      string
	Timestamp time.Time
}

// Analytics batches room events and match settlements into SQLite off the
// room goroutines. Without a database it only drains the queues.
type Analytics struct {
	db      *DB
	events  chan AnalyticsEvent
	matches chan MatchRecord
}

// NewAnalytics creates the journal; Run must be started to persist anything
func NewAnalytics(db *DB) *Analytics {
	return &Analytics{
		db:      db,
		events:  make(chan AnalyticsEvent, journalBuffer),
		matches: make(chan MatchRecord, 64),
	}
}

// Track enqueues an event (non-blocking)
func (a *Analytics) Track(evtType, roomID, entityID, data string) {
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		RoomID:    roomID,
		EntityID:  entityID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
		// full: drop rather than stall a room
	}
}

// RecordMatch enqueues a settled match (non-blocking)
func (a *Analytics) RecordMatch(rec MatchRecord) {
	select {
	case a.matches <- rec:
	default:
		slog.Warn("journal full, dropping match record", "room", rec.RoomID)
	}
}

// Run writes batches until ctx is cancelled, then drains what is queued
func (a *Analytics) Run(ctx context.Context) error {
	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(journalFlushEvery)
	defer ticker.Stop()

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= journalBatchSize {
				a.flush(batch)
				batch = batch[:0]
			}
		case rec := <-a.matches:
			a.saveMatch(rec)
		case <-ticker.C:
			if len(batch) > 0 {
				a.flush(batch)
				batch = batch[:0]
			}
		case <-ctx.Done():
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				case rec := <-a.matches:
					a.saveMatch(rec)
				default:
					a.flush(batch)
					return nil
				}
			}
		}
	}
}

func (a *Analytics) saveMatch(rec MatchRecord) {
	if a.db == nil {
		return
	}
	if _, err := a.db.RecordMatch(rec); err != nil {
		slog.Warn("record match", "room", rec.RoomID, "err", err)
	}
}

// flush writes a batch of events in one transaction
func (a *Analytics) flush(events []AnalyticsEvent) {
	if a.db == nil || len(events) == 0 {
		return
	}
	tx, err := a.db.conn.Begin()
	if err != nil {
		slog.Warn("journal: begin tx", "err", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO events (event_type, room_id, entity_id, data, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		slog.Warn("journal: prepare", "err", err)
		return
	}
	defer stmt.Close()

	for _, evt := range events {
		rid := sql.NullString{String: evt.RoomID, Valid: evt.RoomID != ""}
		eid := sql.NullString{String: evt.EntityID, Valid: evt.EntityID != ""}
		data := sql.NullString{String: evt.Data, Valid: evt.Data != ""}
		if _, err := stmt.Exec(evt.Type, rid, eid, data, evt.Timestamp.Format(time.RFC3339)); err != nil {
			slog.Warn("journal: insert", "type", evt.Type, "err", err)
		}
	}
	if err := tx.Commit(); err != nil {
		slog.Warn("journal: commit", "err", err)
	}
}

// EventCounts returns counts of each event type for the last N days
func (a *Analytics) EventCounts(days int) (map[string]int, error) {
	if a.db == nil {
		return map[string]int{}, nil
	}
	rows, err := a.db.conn.Query(`
		SELECT event_type, COUNT(*) FROM events
		WHERE created_at >= date('now', '-' || ? || ' days')
		GROUP BY event_type ORDER BY COUNT(*) DESC
	`, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var evtType string
		var count int
		if err := rows.Scan(&evtType, &count); err != nil {
			return nil, err
		}
		result[evtType] = count
	}
	return result, rows.Err()
}
