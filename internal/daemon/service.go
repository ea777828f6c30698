// Package daemon provides the long-running forecast service: it re-runs
// datasets when their exports change and serves the results over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/theirongolddev/ledgercast/internal/model"
	"github.com/theirongolddev/ledgercast/internal/pipeline"
	"github.com/theirongolddev/ledgercast/internal/store"

	"go.uber.org/zap"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Datasets     []pipeline.Dataset
	Loader       pipeline.Loader
	Options      pipeline.Options
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Logger       *zap.Logger
}

// Snapshot is a compact state of one dataset's latest run.
type Snapshot struct {
	Dataset       string    `json:"dataset"`
	Path          string    `json:"path,omitempty"`
	At            time.Time `json:"at"`
	Series        int       `json:"series"`
	Fitted        int       `json:"fitted"`
	Skipped       int       `json:"skipped"`
	Failed        int       `json:"failed"`
	ForecastTotal float64   `json:"forecast_total"`
	Error         string    `json:"error,omitempty"`
}

// Delta captures the change between two runs of a dataset.
type Delta struct {
	Fitted        int     `json:"fitted"`
	ForecastTotal float64 `json:"forecast_total"`
}

func (d Delta) isZero() bool {
	return d.Fitted == 0 && d.ForecastTotal == 0
}

// Event is emitted whenever a dataset run changes its snapshot.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time  `json:"started_at"`
	LastPollAt      time.Time  `json:"last_poll_at"`
	PollIntervalSec int        `json:"poll_interval_sec"`
	PollCount       int64      `json:"poll_count"`
	RunCount        int64      `json:"run_count"`
	BaseYear        int        `json:"base_year"`
	Datasets        []Snapshot `json:"datasets"`
	EventCount      int        `json:"event_count"`
	SubscriberCount int        `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg Config
	log *zap.Logger

	mu         sync.RWMutex
	startedAt  time.Time
	lastPollAt time.Time
	pollCount  int64
	runCount   int64
	snapshots  map[string]Snapshot
	results    map[string]*model.Result
	stamps     map[string]store.FileInfo

	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		startedAt: time.Now(),
		snapshots: make(map[string]Snapshot),
		results:   make(map[string]*model.Result),
		stamps:    make(map[string]store.FileInfo),
		subs:      make(map[int]chan Event),
	}
}

// Handler returns the HTTP routes of the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/status", s.handleStatus)
	mux.HandleFunc("GET /v1/events", s.handleEvents)
	mux.HandleFunc("GET /v1/stream", s.handleStream)
	mux.HandleFunc("GET /v1/forecasts/{dataset}", s.handleForecasts)
	mux.HandleFunc("GET /v1/cost-centers/{dataset}", s.handleCostCenters)
	mux.HandleFunc("GET /v1/total/{dataset}", s.handleTotal)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.log.Info("serving forecasts", zap.String("addr", s.cfg.Addr), zap.Duration("interval", s.cfg.Interval))

	// Seed results so the API is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// pollOnce re-runs every dataset whose export changed since its last run.
func (s *Service) pollOnce(ctx context.Context) {
	for _, ds := range s.cfg.Datasets {
		if ctx.Err() != nil {
			return
		}
		stamp, changed := s.checkInput(ds)
		if !changed {
			continue
		}

		start := time.Now()
		out := pipeline.RunOne(ctx, ds, s.cfg.Loader, s.cfg.Options)
		if ctx.Err() != nil {
			return
		}
		s.record(ds, out, stamp, time.Now())
		if out.Err != nil {
			s.log.Warn("dataset run failed", zap.String("dataset", ds.Name), zap.Error(out.Err))
		} else {
			s.log.Info("dataset forecast",
				zap.String("dataset", ds.Name),
				zap.Int("fitted", out.Result.Stats.Fitted),
				zap.Bool("cache_hit", out.CacheHit),
				zap.Duration("elapsed", time.Since(start)))
		}
	}

	s.mu.Lock()
	s.lastPollAt = time.Now()
	s.pollCount++
	s.mu.Unlock()
}

// checkInput reports whether ds needs a run: it has never run, or its file
// changed, or it cannot be stat'ed (the run will surface the error).
func (s *Service) checkInput(ds pipeline.Dataset) (store.FileInfo, bool) {
	s.mu.RLock()
	prev, seen := s.stamps[ds.Name]
	_, ran := s.snapshots[ds.Name]
	s.mu.RUnlock()

	if ds.Path == "" {
		return store.FileInfo{}, !ran
	}
	info, err := os.Stat(ds.Path)
	if err != nil {
		return store.FileInfo{}, true
	}
	stamp := store.FileInfo{MtimeNs: info.ModTime().UnixNano(), SizeBytes: info.Size()}
	if ran && seen && prev.Matches(info) {
		return stamp, false
	}
	return stamp, true
}

func (s *Service) record(ds pipeline.Dataset, out pipeline.Outcome, stamp store.FileInfo, now time.Time) {
	snap := snapshotFromOutcome(out, now)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev, existed := s.snapshots[ds.Name]
	s.snapshots[ds.Name] = snap
	s.stamps[ds.Name] = stamp
	s.runCount++
	if out.Err == nil {
		s.results[ds.Name] = out.Result
	} else {
		delete(s.results, ds.Name)
	}

	switch {
	case out.Err != nil:
		if !existed || prev.Error != snap.Error {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: "dataset_failed", Timestamp: now, Snapshot: snap}
			publish = true
		}
	case !existed || prev.Error != "":
		s.nextEventID++
		ev = Event{ID: s.nextEventID, Type: "snapshot", Timestamp: now, Snapshot: snap}
		publish = true
	default:
		if delta := diffSnapshots(prev, snap); !delta.isZero() {
			s.nextEventID++
			ev = Event{ID: s.nextEventID, Type: "forecast_updated", Timestamp: now, Snapshot: snap, Delta: delta}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func snapshotFromOutcome(out pipeline.Outcome, at time.Time) Snapshot {
	snap := Snapshot{Dataset: out.Dataset.Name, Path: out.Dataset.Path, At: at}
	if out.Err != nil {
		snap.Error = out.Err.Error()
		return snap
	}
	stats := out.Result.Stats
	snap.Series = stats.Series
	snap.Fitted = stats.Fitted
	snap.Skipped = stats.Skipped
	snap.Failed = stats.Failed
	for _, p := range out.Result.Total {
		snap.ForecastTotal += p.Forecast
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Fitted:        curr.Fitted - prev.Fitted,
		ForecastTotal: curr.ForecastTotal - prev.ForecastTotal,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	datasets := make([]Snapshot, 0, len(s.cfg.Datasets))
	for _, ds := range s.cfg.Datasets {
		snap, ok := s.snapshots[ds.Name]
		if !ok {
			snap = Snapshot{Dataset: ds.Name, Path: ds.Path}
		}
		datasets = append(datasets, snap)
	}

	baseYear := s.cfg.Options.BaseYear
	if baseYear == 0 {
		baseYear = pipeline.DefaultBaseYear
	}

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		RunCount:        s.runCount,
		BaseYear:        baseYear,
		Datasets:        datasets,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

// result returns the latest result for a dataset, or writes the error
// response and returns nil.
func (s *Service) result(w http.ResponseWriter, r *http.Request) *model.Result {
	name := r.PathValue("dataset")

	known := false
	for _, ds := range s.cfg.Datasets {
		if ds.Name == name {
			known = true
			break
		}
	}
	if !known {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown dataset %q", name))
		return nil
	}

	s.mu.RLock()
	res := s.results[name]
	snap, ran := s.snapshots[name]
	s.mu.RUnlock()

	switch {
	case !ran:
		writeError(w, http.StatusServiceUnavailable, name+": not run yet")
		return nil
	case res == nil:
		writeError(w, http.StatusUnprocessableEntity, snap.Error)
		return nil
	}
	return res
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleForecasts(w http.ResponseWriter, r *http.Request) {
	res := s.result(w, r)
	if res == nil {
		return
	}
	points := pipeline.FilterByAccount(res.Forecasts, r.URL.Query().Get("account"))
	points = pipeline.FilterByCostCenter(points, r.URL.Query().Get("cost_center"))
	if points == nil {
		points = model.ForecastTable{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Service) handleCostCenters(w http.ResponseWriter, r *http.Request) {
	if res := s.result(w, r); res != nil {
		writeJSON(w, http.StatusOK, res.CostCenters)
	}
}

func (s *Service) handleTotal(w http.ResponseWriter, r *http.Request) {
	if res := s.result(w, r); res != nil {
		writeJSON(w, http.StatusOK, res.Total)
	}
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshots immediately.
	for _, snap := range s.snapshotStatus().Datasets {
		writeSSE(w, Event{Type: "snapshot", Timestamp: time.Now(), Snapshot: snap})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
