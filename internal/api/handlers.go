package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lightplan/internal/autolight"
	"github.com/dokzlo13/lightplan/internal/eventbus"
	"github.com/dokzlo13/lightplan/internal/geo"
	"github.com/dokzlo13/lightplan/internal/history"
	"github.com/dokzlo13/lightplan/internal/ingest"
	"github.com/dokzlo13/lightplan/internal/ledger"
	"github.com/dokzlo13/lightplan/internal/scenario"
	"github.com/dokzlo13/lightplan/internal/schedule"
	"github.com/dokzlo13/lightplan/internal/status"
)

// SourceWebhook tags events received over HTTP.
const SourceWebhook = "webhook"

const maxHistoryLimit = 5000

// HistoryStore reads raw history events. *ledger.Ledger satisfies it.
type HistoryStore interface {
	Recent(limit int) ([]*ledger.Entry, error)
	ByScenario(scenarioID string, limit int) ([]*ledger.Entry, error)
}

// Options tunes the handler.
type Options struct {
	HistoryLimit int
	MaxBodyBytes int64
	// Now is the clock used when a request has no ?now= override.
	Now func() time.Time
	// Ready reports readiness; nil means always ready.
	Ready func() bool
}

// Handler serves the API routes.
type Handler struct {
	directory *scenario.Directory
	history   HistoryStore
	sun       *geo.Calculator
	bus       ingest.Publisher
	opts      Options
}

// NewHandler creates the API handler.
func NewHandler(directory *scenario.Directory, hist HistoryStore, sun *geo.Calculator, bus ingest.Publisher, opts Options) *Handler {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 200
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{directory: directory, history: hist, sun: sun, bus: bus, opts: opts}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", h.ready).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/ingest/scenarios", h.ingestScenarios).Methods(http.MethodPost)
	api.HandleFunc("/ingest/scenarios/{id}", h.ingestScenario).Methods(http.MethodPost)
	api.HandleFunc("/ingest/events", h.ingestEvents).Methods(http.MethodPost)
	api.HandleFunc("/scenarios", h.listScenarios).Methods(http.MethodGet)
	api.HandleFunc("/scenarios/{id}", h.getScenario).Methods(http.MethodGet)
	api.HandleFunc("/history", h.getHistory).Methods(http.MethodGet)
	api.HandleFunc("/environment", h.getEnvironment).Methods(http.MethodGet)

	r.Use(logRequests)
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("HTTP request")
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) ready(w http.ResponseWriter, _ *http.Request) {
	if h.opts.Ready != nil && !h.opts.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// --- ingest ---

type ingestResponse struct {
	Status string `json:"status"`
	Type   string `json:"type"`
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) (any, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	raw, err := ingest.Decode(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return raw, true
}

func (h *Handler) publish(w http.ResponseWriter, event eventbus.Event) {
	if h.bus.Publish(event) == 0 {
		writeError(w, http.StatusServiceUnavailable, "event dropped")
		return
	}
	writeJSON(w, http.StatusAccepted, ingestResponse{Status: "accepted", Type: string(event.Type)})
}

func (h *Handler) ingestScenarios(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}
	event, err := ingest.ScenarioEvent(raw, SourceWebhook)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.publish(w, event)
}

func (h *Handler) ingestScenario(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}
	obj, isObj := raw.(map[string]any)
	if !isObj {
		writeError(w, http.StatusBadRequest, "scenario must be an object")
		return
	}

	// The path id wins over the body.
	id := mux.Vars(r)["id"]
	if inner, ok := obj["scenario"].(map[string]any); ok {
		inner["id"] = id
	} else {
		obj["id"] = id
	}
	h.publish(w, eventbus.Event{Type: eventbus.EventTypeScenarioUpdate, Source: SourceWebhook, Payload: obj})
}

func (h *Handler) ingestEvents(w http.ResponseWriter, r *http.Request) {
	raw, ok := h.readBody(w, r)
	if !ok {
		return
	}
	event, err := ingest.HistoryEvent(raw, SourceWebhook)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.publish(w, event)
}

// --- read API ---

type scenarioSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Disabled bool           `json:"disabled"`
	Status   status.Derived `json:"status"`
}

type autoLightView struct {
	autolight.Derived
	Evaluation *autolight.Evaluation `json:"evaluation,omitempty"`
}

type scenarioDetail struct {
	Scenario    scenario.Scenario `json:"scenario"`
	Meta        *scenario.Meta    `json:"meta,omitempty"`
	Snapshot    *status.Snapshot  `json:"snapshot"`
	Status      status.Derived    `json:"status"`
	Environment geo.Environment   `json:"environment"`
	Schedule    scheduleView      `json:"schedule"`
	AutoLight   *autoLightView    `json:"autoLight,omitempty"`
	Now         time.Time         `json:"now"`
}

// scheduleView is the locally computed window preview.
type scheduleView struct {
	Start    string              `json:"start"`
	End      string              `json:"end"`
	Current  *schedule.RunWindow `json:"current"`
	Next     *schedule.RunWindow `json:"next"`
	Previous *schedule.RunWindow `json:"previous"`
}

func (h *Handler) now(r *http.Request) (time.Time, error) {
	q := strings.TrimSpace(r.URL.Query().Get("now"))
	if q == "" {
		return h.opts.Now(), nil
	}
	t, ok := status.ParseTimestamp(q)
	if !ok {
		return time.Time{}, errors.New("invalid now")
	}
	return t, nil
}

func (h *Handler) listScenarios(w http.ResponseWriter, r *http.Request) {
	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries := h.directory.All()
	out := make([]scenarioSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, scenarioSummary{
			ID:       e.Scenario.ID,
			Name:     e.Scenario.Name,
			Type:     e.Scenario.Type,
			Disabled: e.Scenario.Disabled,
			Status:   e.Derive(now),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getScenario(w http.ResponseWriter, r *http.Request) {
	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	entry, ok := h.directory.ByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	sc := entry.Scenario
	snapshot := entry.Snapshot()
	detail := scenarioDetail{
		Scenario:    sc,
		Meta:        entry.Meta,
		Snapshot:    snapshot,
		Status:      status.Derive(snapshot, now),
		Environment: h.sun.Environment(now, sc.Time.TZ, sc.Time.Lat, sc.Time.Lon),
		Now:         now,
	}

	detail.Schedule = scheduleView{
		Start: schedule.FormatMinutes(schedule.ResolveMinutes(sc.Time.Start, detail.Environment, 18*60)),
		End:   schedule.FormatMinutes(schedule.ResolveMinutes(sc.Time.End, detail.Environment, 23*60)),
	}
	if rw, ok := sc.Time.Current(now, h.sun); ok {
		detail.Schedule.Current = &rw
	}
	if rw, ok := sc.Time.Next(now, h.sun); ok {
		detail.Schedule.Next = &rw
	}
	if rw, ok := sc.Time.Prev(now, h.sun); ok {
		detail.Schedule.Previous = &rw
	}

	if sc.AutoLight != nil {
		detail.AutoLight, err = h.autoLight(*sc.AutoLight, r, now)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) autoLight(cfg autolight.Config, r *http.Request, now time.Time) (*autoLightView, error) {
	loc := cfg.Location
	env := h.sun.Environment(now, loc.TZ, loc.Lat, loc.Lon)
	view := &autoLightView{Derived: autolight.Derive(cfg, env, now)}

	q := strings.TrimSpace(r.URL.Query().Get("lux"))
	if q == "" {
		return view, nil
	}
	lux, err := strconv.ParseFloat(q, 64)
	if err != nil {
		return nil, errors.New("invalid lux")
	}
	if ev, ok := autolight.Evaluate(cfg, env, lux, geo.MinuteOfDay(now, env.TZ)); ok {
		view.Evaluation = &ev
	}
	return view, nil
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	now, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := h.opts.HistoryLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	var entries []*ledger.Entry
	if id := r.URL.Query().Get("scenario"); id != "" {
		entries, err = h.history.ByScenario(id, limit)
	} else {
		entries, err = h.history.Recent(limit)
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read history")
		writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}

	events := history.Normalize(ledger.Payloads(entries), h.directory, history.Options{Now: now})
	writeJSON(w, http.StatusOK, events)
}

type environmentResponse struct {
	geo.Environment
	Date         string `json:"date"`
	SunriseLocal string `json:"sunriseLocal"`
	SunsetLocal  string `json:"sunsetLocal"`
}

func (h *Handler) getEnvironment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	def := h.sun.DefaultLocation()

	tz := q.Get("tz")
	if tz == "" {
		tz = def.Timezone
	}
	lat, lon := def.Latitude, def.Longitude
	if q.Get("lat") != "" || q.Get("lon") != "" {
		var errLat, errLon error
		lat, errLat = strconv.ParseFloat(q.Get("lat"), 64)
		lon, errLon = strconv.ParseFloat(q.Get("lon"), 64)
		if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			writeError(w, http.StatusBadRequest, "invalid coordinates")
			return
		}
	}

	at, err := h.now(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	loc := geo.LoadLocation(tz)
	if d := q.Get("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		at = day.Add(12 * time.Hour)
	}

	env := h.sun.Environment(at, tz, lat, lon)
	writeJSON(w, http.StatusOK, environmentResponse{
		Environment:  env,
		Date:         at.In(loc).Format("2006-01-02"),
		SunriseLocal: env.SunriseUTC.In(loc).Format("15:04"),
		SunsetLocal:  env.SunsetUTC.In(loc).Format("15:04"),
	})
}
