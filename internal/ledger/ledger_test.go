package ledger

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightplan/internal/db"
)

func openLedger(t *testing.T) *Ledger {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return New(database.DB)
}

func events(t *testing.T, s string) []any {
	t.Helper()
	var v []any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestLedger_AppendDedupesByID(t *testing.T) {
	l := openLedger(t)

	added, err := l.Append(events(t, `[
		{"id": "a", "ts": "2024-06-01T10:00:00Z", "scenarioId": "s1", "origin": "timer"},
		{"id": "b", "ts": "2024-06-01T11:00:00Z", "scenario": {"id": 7}}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = l.Append(events(t, `[{"id": "a", "ts": "2024-06-01T10:00:00Z"}, "junk"]`))
	require.NoError(t, err)
	assert.Zero(t, added)

	recent, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].EventID)
	assert.Equal(t, "7", recent[0].ScenarioID)
	assert.Equal(t, "a", recent[1].EventID)
	assert.Equal(t, "timer", recent[1].Origin)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), recent[1].Timestamp)
}

func TestLedger_AssignsIDAndTimestamp(t *testing.T) {
	l := openLedger(t)
	received := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return received }

	added, err := l.Append(events(t, `[{"brightness": 40}]`))
	require.NoError(t, err)
	require.Equal(t, 1, added)

	recent, err := l.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	e := recent[0]
	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, e.EventID, e.Payload["id"])
	assert.Equal(t, received, e.Timestamp)
	assert.Equal(t, received, e.ReceivedAt)
	assert.Equal(t, 40.0, e.Payload["brightness"])
}

func TestLedger_ByScenario(t *testing.T) {
	l := openLedger(t)
	_, err := l.Append(events(t, `[
		{"id": "1", "ts": 1000, "scenarioId": "x"},
		{"id": "2", "ts": 2000, "scenario_id": "y"},
		{"id": "3", "ts": 3000, "scenarioId": "x"}
	]`))
	require.NoError(t, err)

	got, err := l.ByScenario("x", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].EventID)

	payloads := Payloads(got)
	require.Len(t, payloads, 2)
	assert.Equal(t, "3", payloads[0].(map[string]any)["id"])
}

func TestLedger_Retention(t *testing.T) {
	l := openLedger(t)
	now := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, err := l.Append(events(t, `[
		{"id": "old", "ts": "2024-05-01T00:00:00Z"},
		{"id": "new", "ts": "2024-06-29T00:00:00Z"}
	]`))
	require.NoError(t, err)

	removed, err := l.DeleteOlderThan(7 * 24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	recent, err := l.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "new", recent[0].EventID)
}
