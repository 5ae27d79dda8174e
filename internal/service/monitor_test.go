package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plant_monitor/internal/advisor"
	"plant_monitor/internal/models"
	"plant_monitor/internal/reporter"
	"plant_monitor/internal/sensor"

	"github.com/google/uuid"
)

// ---- stubs ----

type stubSource struct {
	calls atomic.Int64
	read  func(n int64) (models.Reading, error)
}

func (s *stubSource) Read(ctx context.Context) (models.Reading, error) {
	n := s.calls.Add(1)
	return s.read(n)
}

func (s *stubSource) Close() error { return nil }

func reading(temp float64) models.Reading {
	return models.Reading{
		ID:          uuid.NewString(),
		Temperature: temp,
		Humidity:    60,
		CO2:         500,
		Light:       5000,
		Timestamp:   time.Now().UTC(),
	}
}

func constantSource(temp float64) *stubSource {
	return &stubSource{read: func(int64) (models.Reading, error) { return reading(temp), nil }}
}

type stubAdvisor struct {
	calls  atomic.Int64
	advise func(ctx context.Context, recent []models.Reading, findings []models.Finding) models.Recommendation
}

func (a *stubAdvisor) Advise(ctx context.Context, recent []models.Reading, findings []models.Finding) models.Recommendation {
	a.calls.Add(1)
	if a.advise != nil {
		return a.advise(ctx, recent, findings)
	}
	return models.Recommendation{Text: "ok", Source: models.SourceAI, GeneratedAt: time.Now()}
}

type recordingReporter struct {
	mu     sync.Mutex
	pushes map[reporter.Kind]int
}

func (r *recordingReporter) Push(k reporter.Kind, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pushes == nil {
		r.pushes = map[reporter.Kind]int{}
	}
	r.pushes[k]++
}

func (r *recordingReporter) count(k reporter.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pushes[k]
}

func (r *recordingReporter) Failures() uint64 { return 0 }
func (r *recordingReporter) Close() error     { return nil }

type memEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (m *memEvents) Record(_ context.Context, e models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memEvents) count(typ string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

// ---- helpers ----

type harness struct {
	store  *SnapshotStore
	events *memEvents
	cancel context.CancelFunc
	done   chan error
}

func start(t *testing.T, deps MonitorDeps) *harness {
	t.Helper()
	h := &harness{store: NewSnapshotStore(), events: &memEvents{}, done: make(chan error, 1)}
	m := NewMonitorService(deps, h.store, h.events)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- m.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		h.done <- err // let Cleanup drain
		return err
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
		return nil
	}
}

func waitSnapshot(t *testing.T, store *SnapshotStore, cond func(models.Snapshot) bool) models.Snapshot {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		s := store.Current()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("snapshot condition not met; last: %+v", s)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// ---- tests ----

func TestMonitor_SensorFailureKeepsPreviousReading(t *testing.T) {
	t.Parallel()

	first := reading(22)
	src := &stubSource{read: func(n int64) (models.Reading, error) {
		switch {
		case n == 1:
			return first, nil
		case n <= 3:
			return models.Reading{}, &sensor.SensorError{Metrics: models.Metrics[:], Err: errors.New("bus timeout")}
		default:
			return reading(22), nil
		}
	}}
	h := start(t, MonitorDeps{Source: src, Advisor: &stubAdvisor{}, Interval: 20 * time.Millisecond, AIInterval: time.Hour})

	degraded := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.SensorErrors >= 1 && s.Readings == 1 })
	if degraded.Status != models.StatusDegraded {
		t.Fatalf("status = %s, want DEGRADED", degraded.Status)
	}
	if degraded.Reading == nil || degraded.Reading.ID != first.ID {
		t.Fatalf("previous reading must be kept, got %+v", degraded.Reading)
	}
	if len(degraded.Errors) == 0 || !strings.Contains(degraded.Errors[0], "bus timeout") {
		t.Fatalf("errors = %v", degraded.Errors)
	}

	recovered := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Readings >= 2 })
	if recovered.Status != models.StatusRunning {
		t.Fatalf("status after recovery = %s", recovered.Status)
	}
	if recovered.SensorErrors != 2 {
		t.Fatalf("sensor errors = %d, want 2", recovered.SensorErrors)
	}
	if len(recovered.Errors) != 0 {
		t.Fatalf("errors should clear, got %v", recovered.Errors)
	}
	if h.events.count(models.EventSensorError) != 2 {
		t.Fatalf("SENSOR_ERROR events = %d", h.events.count(models.EventSensorError))
	}
	if h.events.count(models.EventStatusChange) < 2 {
		t.Fatalf("expected RUNNING->DEGRADED->RUNNING transitions")
	}
}

func TestMonitor_PartialReadingIsAccepted(t *testing.T) {
	t.Parallel()

	src := &stubSource{read: func(int64) (models.Reading, error) {
		r := reading(22)
		r.CO2 = 0
		r.Unavailable = models.NewMetricSet(models.MetricCO2)
		return r, sensor.PartialError([]models.Metric{models.MetricCO2}, errors.New("no response"))
	}}
	h := start(t, MonitorDeps{Source: src, Advisor: &stubAdvisor{}, Interval: time.Hour, AIInterval: time.Hour})

	s := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Readings == 1 })
	if s.Status != models.StatusDegraded {
		t.Fatalf("status = %s", s.Status)
	}
	if s.Reading == nil || s.Reading.Available(models.MetricCO2) {
		t.Fatalf("partial reading not published: %+v", s.Reading)
	}
	if s.SensorErrors != 1 {
		t.Fatalf("sensor errors = %d", s.SensorErrors)
	}
	for _, f := range s.Findings {
		if f.Metric == models.MetricCO2 {
			t.Fatalf("unavailable metric must not produce findings")
		}
	}
}

func TestMonitor_FastAdvisoryCadence(t *testing.T) {
	t.Parallel()

	src := constantSource(22)
	adv := &stubAdvisor{}
	start(t, MonitorDeps{Source: src, Advisor: adv, Interval: 60 * time.Millisecond, AIInterval: 10 * time.Millisecond})

	deadline := time.Now().Add(3 * time.Second)
	for adv.calls.Load() < 4 || src.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("reads=%d advisories=%d", src.calls.Load(), adv.calls.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitor_AdvisoryNotOverlapped(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	adv := &stubAdvisor{advise: func(ctx context.Context, _ []models.Reading, _ []models.Finding) models.Recommendation {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return models.Recommendation{Text: "late", Source: models.SourceAI}
	}}
	h := start(t, MonitorDeps{Source: constantSource(22), Advisor: adv, Interval: time.Hour, AIInterval: 5 * time.Millisecond})

	time.Sleep(100 * time.Millisecond)
	if n := adv.calls.Load(); n != 1 {
		t.Fatalf("advisory calls while one in flight = %d, want 1", n)
	}
	close(release)
	waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Recommendation != nil })
	deadline := time.Now().Add(2 * time.Second)
	for adv.calls.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("advisories did not resume")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitor_SlowReporterDoesNotDelaySampling(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	rep := reporter.NewHTTP(reporter.HTTPConfig{BaseURL: srv.URL, Timeout: 10 * time.Second}, nil)
	defer rep.Close()

	h := start(t, MonitorDeps{Source: constantSource(30), Advisor: &stubAdvisor{}, Reporter: rep,
		Interval: 10 * time.Millisecond, AIInterval: time.Hour})

	began := time.Now()
	waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Readings >= 10 })
	if el := time.Since(began); el > 2*time.Second {
		t.Fatalf("sampling slowed down by reporter: %v", el)
	}
	// pushes beyond the in-flight bound are counted as failures
	s := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.ReporterFailures > 0 })
	if s.Status != models.StatusRunning {
		t.Fatalf("reporter failures must not degrade: %s", s.Status)
	}
}

func TestMonitor_CancellationStopsPromptly(t *testing.T) {
	t.Parallel()

	adv := &stubAdvisor{advise: func(ctx context.Context, _ []models.Reading, _ []models.Finding) models.Recommendation {
		<-ctx.Done()
		return models.Recommendation{Text: "cancelled", Source: models.SourceFallback}
	}}
	h := start(t, MonitorDeps{Source: constantSource(22), Advisor: adv, Interval: time.Hour, AIInterval: time.Hour})

	waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Readings == 1 })
	began := time.Now()
	if err := h.stop(t); err != nil {
		t.Fatalf("Run returned %v, want nil", err)
	}
	if el := time.Since(began); el > time.Second {
		t.Fatalf("shutdown took %v", el)
	}
	if s := h.store.Current(); s.Status != models.StatusStopped {
		t.Fatalf("final status = %s", s.Status)
	}
	if h.events.count(models.EventStart) != 1 || h.events.count(models.EventStop) != 1 {
		t.Fatalf("expected START and STOP events, got %+v", h.events.events)
	}
}

func TestMonitor_HotReadingWithoutAIKey(t *testing.T) {
	t.Parallel()

	rep := &recordingReporter{}
	h := start(t, MonitorDeps{
		Source:     constantSource(30),
		Advisor:    advisor.New(advisor.Config{}, nil),
		Reporter:   rep,
		Interval:   20 * time.Millisecond,
		AIInterval: time.Hour,
	})

	s := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.Recommendation != nil && s.Readings >= 3 })
	if s.Status != models.StatusRunning {
		t.Fatalf("missing AI key must not degrade, status = %s", s.Status)
	}
	if len(s.Findings) != 1 || s.Findings[0].Type() != "temperature_high" || s.Findings[0].Severity != models.SeverityModerate {
		t.Fatalf("findings = %+v", s.Findings)
	}
	if s.Recommendation.Source != models.SourceFallback || !strings.Contains(s.Recommendation.Text, "Temperature") {
		t.Fatalf("recommendation = %+v", s.Recommendation)
	}
	if s.AdvisorFailures != 0 {
		t.Fatalf("advisor failures = %d", s.AdvisorFailures)
	}
	if rep.count(reporter.KindReadings) < 3 || rep.count(reporter.KindAlerts) < 3 || rep.count(reporter.KindAnalysis) != 1 {
		t.Fatalf("pushes = %v", rep.pushes)
	}
	// the same finding stays active; it is journaled once
	if n := h.events.count(models.EventAlert); n != 1 {
		t.Fatalf("ALERT events = %d, want 1", n)
	}
}

type failingCompleter struct{ calls atomic.Int64 }

func (f *failingCompleter) Complete(context.Context, string, string) (string, error) {
	f.calls.Add(1)
	return "", errors.New("connection refused")
}

func TestMonitor_AdvisorAlwaysFailing(t *testing.T) {
	t.Parallel()

	comp := &failingCompleter{}
	adv := advisor.NewWithCompleter(comp, advisor.Config{BreakerMaxFailures: 2, BreakerCooldown: time.Hour}, nil)
	h := start(t, MonitorDeps{Source: constantSource(22), Advisor: adv,
		Interval: 15 * time.Millisecond, AIInterval: 10 * time.Millisecond})

	s := waitSnapshot(t, h.store, func(s models.Snapshot) bool { return s.AdvisorFailures >= 5 && s.Readings >= 3 })
	if s.Status != models.StatusDegraded {
		t.Fatalf("status = %s", s.Status)
	}
	if s.Recommendation == nil || s.Recommendation.Source != models.SourceFallback {
		t.Fatalf("recommendation = %+v", s.Recommendation)
	}
	if !strings.Contains(s.Recommendation.Text, "All conditions optimal") {
		t.Fatalf("fallback text = %q", s.Recommendation.Text)
	}
	// breaker stops remote calls; failures keep being counted
	if n := comp.calls.Load(); n != 2 {
		t.Fatalf("remote calls = %d, want 2 before the breaker opens", n)
	}
}

func TestSnapshotStore_PublishNeverBlocks(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	if store.Current().Status != models.StatusStopped {
		t.Fatalf("initial status = %s", store.Current().Status)
	}
	updates, cancel := store.Subscribe()
	defer cancel()
	for i := 0; i < 5; i++ {
		store.Publish(models.Snapshot{Status: models.StatusRunning, Readings: uint64(i)})
	}
	select {
	case <-updates:
	default:
		t.Fatalf("expected a pending update signal")
	}
	select {
	case <-updates:
		t.Fatalf("signals should coalesce")
	default:
	}
	if store.Current().Readings != 4 {
		t.Fatalf("current = %+v", store.Current())
	}
}

func TestSnapshotStore_EverySubscriberIsSignalled(t *testing.T) {
	t.Parallel()

	store := NewSnapshotStore()
	dash, cancelDash := store.Subscribe()
	defer cancelDash()
	ws, cancelWS := store.Subscribe()
	if store.Subscribers() != 2 {
		t.Fatalf("subscribers = %d, want 2", store.Subscribers())
	}

	store.Publish(models.Snapshot{Status: models.StatusRunning})
	for name, ch := range map[string]<-chan struct{}{"dashboard": dash, "stream": ws} {
		select {
		case <-ch:
		default:
			t.Fatalf("%s subscriber was not signalled", name)
		}
	}

	cancelWS()
	cancelWS()
	if store.Subscribers() != 1 {
		t.Fatalf("subscribers after cancel = %d, want 1", store.Subscribers())
	}
	store.Publish(models.Snapshot{Status: models.StatusDegraded})
	select {
	case <-ws:
		t.Fatalf("canceled subscriber still signalled")
	default:
	}
	select {
	case <-dash:
	default:
		t.Fatalf("remaining subscriber lost its signal")
	}
}
