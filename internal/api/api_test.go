package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/lightplan/internal/db"
	"github.com/dokzlo13/lightplan/internal/eventbus"
	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/ingest"
	"github.com/dokzlo13/lightplan/internal/ledger"
	"github.com/dokzlo13/lightplan/internal/scenario"
)

var testNow = time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC) // 20:00 in Moscow

var moscow = geo.Location{Name: "Moscow", Latitude: 55.751, Longitude: 37.617, Timezone: "Europe/Moscow"}

type fixture struct {
	handler   http.Handler
	directory *scenario.Directory
	ledger    *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	dir := scenario.NewDirectory()
	l := ledger.New(database.DB)
	h := NewHandler(dir, l, geo.NewCalculator(moscow), ingest.NewSink(dir, l), Options{
		Now: func() time.Time { return testNow },
	})
	return &fixture{handler: h.Router(), directory: dir, ledger: l}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndReady(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "").Code)

	h := NewHandler(scenario.NewDirectory(), nil, geo.NewCalculator(moscow), nil, Options{Ready: func() bool { return false }})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIngestScenarios_SeedsAndLists(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/ingest/scenarios", `[
		{"scenario": {"id": "a", "name": "Evening"}, "status": {"result": {"active": true, "actionsSent": 1}}},
		{"id": "b", "name": "Alarm", "disabled": true},
		{"id": "c", "name": "Paused", "pause": {"reason": {"source": "manual"}}}
	]`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, string(eventbus.EventTypeScenarioList), decodeBody[ingestResponse](t, rec).Type)
	require.Equal(t, 3, f.directory.Len())

	rec = f.do(t, http.MethodGet, "/api/scenarios", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]scenarioSummary](t, rec)
	require.Len(t, list, 3)

	byID := map[string]scenarioSummary{}
	for _, s := range list {
		byID[s.ID] = s
	}
	assert.Equal(t, "running", string(byID["a"].Status.Kind))
	assert.Equal(t, "off", string(byID["b"].Status.Kind))
	assert.Equal(t, "Пауза · Ручная коррекция", byID["c"].Status.Label)
}

func TestIngestScenario_PathIDWins(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/ingest/scenarios/xyz", `{"id": "other", "name": "Night"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	_, ok := f.directory.ByID("xyz")
	assert.True(t, ok)
	_, ok = f.directory.ByID("other")
	assert.False(t, ok)

	rec = f.do(t, http.MethodPost, "/api/ingest/scenarios/xyz", `[1, 2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_MalformedJSON(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/api/ingest/scenarios", "/api/ingest/scenarios/x", "/api/ingest/events"} {
		rec := f.do(t, http.MethodPost, target, `{"broken`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := f.do(t, http.MethodPost, "/api/ingest/scenarios", `"string"`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIngest_BodyTooLarge(t *testing.T) {
	dir := scenario.NewDirectory()
	h := NewHandler(dir, nil, geo.NewCalculator(moscow), ingest.NewSink(dir, nil), Options{MaxBodyBytes: 8})
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest/scenarios", strings.NewReader(`[{"id": "a"}]`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestGetScenario(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/ingest/scenarios", `[
		{"id": "s", "name": "Evening", "time": {"tz": "Europe/Moscow", "start": "18:00", "end": "23:00"}},
		{"id": "al", "type": "auto-light-v1", "name": "Auto"}
	]`)

	rec := f.do(t, http.MethodGet, "/api/scenarios/s", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Scenario struct {
			ID string `json:"id"`
		} `json:"scenario"`
		Schedule struct {
			Start   string          `json:"start"`
			End     string          `json:"end"`
			Current json.RawMessage `json:"current"`
			Next    json.RawMessage `json:"next"`
		} `json:"schedule"`
		Environment geo.Environment `json:"environment"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "s", detail.Scenario.ID)
	assert.Equal(t, "18:00", detail.Schedule.Start)
	assert.Equal(t, "23:00", detail.Schedule.End)
	assert.NotEqual(t, "null", string(detail.Schedule.Current), "20:00 local is inside 18:00-23:00")
	assert.NotEqual(t, "null", string(detail.Schedule.Next))
	assert.Equal(t, "Europe/Moscow", detail.Environment.TZ)

	rec = f.do(t, http.MethodGet, "/api/scenarios/al?lux=200&now=2024-06-01T19:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var auto struct {
		AutoLight struct {
			Status     string `json:"status"`
			Evaluation *struct {
				Phase string `json:"phase"`
			} `json:"evaluation"`
		} `json:"autoLight"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auto))
	assert.Equal(t, "ACTIVE", auto.AutoLight.Status)
	require.NotNil(t, auto.AutoLight.Evaluation)
	assert.Equal(t, "evening", auto.AutoLight.Evaluation.Phase)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/scenarios/al?lux=bright", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/scenarios/missing", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/scenarios/s?now=garbage", "").Code)
}

func TestHistory(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/ingest/scenarios", `[{"id": "s1", "name": "Evening", "type": "auto-light-v1"}]`)

	rec := f.do(t, http.MethodPost, "/api/ingest/events", `[
		{"id": "alpha", "ts": "2024-06-01T10:00:00Z", "brightness": 40, "scenarioName": "evening"},
		{"id": "off", "ts": "2024-06-01T11:00:00Z", "sensorOff": true, "sensorLux": 5206, "sensorOffReason": "above", "scenarioName": "evening"},
		{"id": "beta", "ts": "2024-06-01T12:00:00Z", "brightness": 70, "scenarioId": "other"}
	]`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var events []struct {
		ID           string   `json:"id"`
		Brightness   *float64 `json:"brightness"`
		StatusLabel  string   `json:"statusLabel"`
		ScenarioID   string   `json:"scenarioId"`
		ScenarioType string   `json:"scenarioType"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 3)
	assert.Equal(t, "beta", events[0].ID)
	assert.Equal(t, "off", events[1].ID)
	assert.Nil(t, events[1].Brightness)
	assert.Equal(t, "5206 lx выкл", events[1].StatusLabel)
	assert.Equal(t, "s1", events[2].ScenarioID)
	assert.Equal(t, "auto-light-v1", events[2].ScenarioType)

	rec = f.do(t, http.MethodGet, "/api/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	assert.Len(t, events, 1)

	rec = f.do(t, http.MethodGet, "/api/history?scenario=other", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "beta", events[0].ID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/history?limit=-3", "").Code)
}

func TestEnvironment(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/environment?date=2024-06-01", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeBody[environmentResponse](t, rec)
	assert.Equal(t, "2024-06-01", env.Date)
	assert.Equal(t, "Europe/Moscow", env.TZ)
	assert.True(t, env.SunriseUTC.Before(env.SunsetUTC))
	assert.Regexp(t, `^0[2-4]:\d\d$`, env.SunriseLocal)
	assert.Regexp(t, `^2[0-2]:\d\d$`, env.SunsetLocal)

	rec = f.do(t, http.MethodGet, "/api/environment?tz=UTC&lat=0&lon=0&date=2024-03-20", "")
	require.Equal(t, http.StatusOK, rec.Code)
	env = decodeBody[environmentResponse](t, rec)
	assert.Equal(t, "UTC", env.TZ)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/environment?lat=abc&lon=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/environment?lat=95&lon=1", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/environment?date=June", "").Code)
}
