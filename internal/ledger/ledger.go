// Package ledger is the append-only log of raw history events pushed by the
// scenario backend. Events are deduplicated by id.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/jsonx"
	"github.com/dokzlo13/lightplan/internal/status"
)

// Entry represents a single event in the ledger
type Entry struct {
	Seq        int64
	EventID    string
	ScenarioID string
	Origin     string
	Timestamp  time.Time
	ReceivedAt time.Time
	Payload    map[string]any
}

// Ledger provides append-only event logging with deduplication
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// Append stores raw events and returns how many were new. Non-object
// elements are skipped. Events without an id get a random one, and events
// without a readable timestamp are stamped with the receive time.
func (l *Ledger) Append(events []any) (int, error) {
	tx, err := l.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO history_events (event_id, scenario_id, origin, timestamp, received_at, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	received := l.now().UTC()
	added := 0
	for _, raw := range events {
		src, ok := jsonx.Map(raw)
		if !ok {
			continue
		}

		payload := make(map[string]any, len(src)+1)
		for k, v := range src {
			payload[k] = v
		}
		id := jsonx.Text(payload["id"])
		if id == "" {
			id = uuid.NewString()
			payload["id"] = id
		}

		ts, ok := status.ParseTimestamp(jsonx.Pick(payload, "ts", "timestamp"))
		if !ok {
			ts = received
			payload["ts"] = received.Format(time.RFC3339Nano)
		}

		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event %s: %w", id, err)
		}

		res, err := stmt.Exec(id, scenarioID(payload), jsonx.Text(payload["origin"]),
			ts.UnixMilli(), received.UnixMilli(), string(data))
		if err != nil {
			return 0, fmt.Errorf("failed to insert event %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			added++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit events: %w", err)
	}

	log.Debug().Int("received", len(events)).Int("added", added).Msg("History events appended")
	return added, nil
}

// Recent returns up to limit events, newest first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT seq, event_id, scenario_id, origin, timestamp, received_at, payload
		FROM history_events
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ByScenario returns up to limit events of one scenario, newest first
func (l *Ledger) ByScenario(scenarioID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT seq, event_id, scenario_id, origin, timestamp, received_at, payload
		FROM history_events
		WHERE scenario_id = ?
		ORDER BY timestamp DESC, seq DESC
		LIMIT ?
	`, scenarioID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := l.now().Add(-retention).UnixMilli()
	result, err := l.db.Exec(`
		DELETE FROM history_events WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Payloads returns the raw payloads of entries as a list ready for
// history.Normalize.
func Payloads(entries []*Entry) []any {
	out := make([]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Payload)
	}
	return out
}

func scenarioID(payload map[string]any) string {
	for _, v := range []any{payload["scenarioId"], payload["scenario_id"], jsonx.Path(payload, "scenario", "id")} {
		if v != nil {
			return jsonx.Text(v)
		}
	}
	return ""
}

func scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var scenario, origin sql.NullString
		var ts, received int64
		var payloadStr string

		err := rows.Scan(&entry.Seq, &entry.EventID, &scenario, &origin, &ts, &received, &payloadStr)
		if err != nil {
			return nil, err
		}

		entry.ScenarioID = scenario.String
		entry.Origin = origin.String
		entry.Timestamp = time.UnixMilli(ts).UTC()
		entry.ReceivedAt = time.UnixMilli(received).UTC()

		entry.Payload = make(map[string]any)
		if err := json.Unmarshal([]byte(payloadStr), &entry.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload of %s: %w", entry.EventID, err)
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
