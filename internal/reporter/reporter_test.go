package reporter

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"plant_monitor/internal/models"
)

type captured struct {
	path, auth, body string
}

func newCaptureServer(t *testing.T, status int, delay time.Duration) (*httptest.Server, <-chan captured) {
	t.Helper()
	ch := make(chan captured, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-r.Context().Done():
				return
			}
		}
		ch <- captured{path: r.URL.Path, auth: r.Header.Get("Authorization"), body: string(b)}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func sampleReading() models.Reading {
	return models.Reading{ID: "r-1", Temperature: 30, Humidity: 60, CO2: 500, Light: 5000,
		Timestamp: time.Date(2026, 1, 14, 10, 30, 0, 0, time.UTC)}
}

func TestHTTPReporter_PushesWithBearer(t *testing.T) {
	t.Parallel()

	srv, got := newCaptureServer(t, http.StatusOK, 0)
	r := NewHTTP(HTTPConfig{BaseURL: srv.URL + "/", APIKey: "secret"}, nil)
	defer r.Close()

	r.Push(KindReadings, sampleReading())

	select {
	case c := <-got:
		if c.path != "/readings" {
			t.Errorf("path = %s", c.path)
		}
		if c.auth != "Bearer secret" {
			t.Errorf("auth = %q", c.auth)
		}
		var body map[string]any
		if err := json.Unmarshal([]byte(c.body), &body); err != nil {
			t.Fatalf("body not json: %v", err)
		}
		if body["temperature_c"] != 30.0 || body["co2_ppm"] != 500.0 {
			t.Errorf("unexpected body: %s", c.body)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("push never arrived")
	}
	if r.Failures() != 0 {
		t.Fatalf("failures = %d", r.Failures())
	}
}

func TestHTTPReporter_AlertsAndAnalysisBodies(t *testing.T) {
	t.Parallel()

	srv, got := newCaptureServer(t, http.StatusCreated, 0)
	r := NewHTTP(HTTPConfig{BaseURL: srv.URL}, nil)
	defer r.Close()

	rd := sampleReading()
	f := models.Finding{Metric: models.MetricTemperature, Value: 30, Bound: models.BoundHigh, Min: 18, Max: 26, Severity: models.SeverityModerate}
	r.Push(KindAlerts, NewAlerts([]models.Finding{f}, rd))
	r.Push(KindAnalysis, NewAnalysis(models.Recommendation{Text: "cool it", Source: models.SourceFallback, GeneratedAt: rd.Timestamp}, &rd))

	bodies := map[string]string{}
	for i := 0; i < 2; i++ {
		select {
		case c := <-got:
			bodies[c.path] = c.body
			if c.auth != "" {
				t.Errorf("no key configured, but auth = %q", c.auth)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("missing push")
		}
	}
	if !strings.Contains(bodies["/alerts"], `"type":"temperature_high"`) {
		t.Errorf("alerts body: %s", bodies["/alerts"])
	}
	if !strings.HasPrefix(bodies["/alerts"], "[") {
		t.Errorf("alerts body must be a list: %s", bodies["/alerts"])
	}
	if !strings.Contains(bodies["/analysis"], `"source":"fallback"`) || !strings.Contains(bodies["/analysis"], `"text":"cool it"`) {
		t.Errorf("analysis body: %s", bodies["/analysis"])
	}
	if r.Failures() != 0 {
		t.Fatalf("2xx must not count as failure")
	}
}

func TestHTTPReporter_FailuresAreCountedNotPropagated(t *testing.T) {
	t.Parallel()

	srv, _ := newCaptureServer(t, http.StatusInternalServerError, 0)
	r := NewHTTP(HTTPConfig{BaseURL: srv.URL}, nil)
	defer r.Close()
	r.Push(KindReadings, sampleReading())
	waitFor(t, func() bool { return r.Failures() == 1 })

	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()
	refused := NewHTTP(HTTPConfig{BaseURL: url}, nil)
	defer refused.Close()
	refused.Push(KindReadings, sampleReading())
	waitFor(t, func() bool { return refused.Failures() == 1 })
}

func TestHTTPReporter_PushNeverBlocks(t *testing.T) {
	t.Parallel()

	srv, _ := newCaptureServer(t, http.StatusOK, 2*time.Second)
	r := NewHTTP(HTTPConfig{BaseURL: srv.URL, MaxInFlight: 1, Timeout: 10 * time.Second}, nil)

	start := time.Now()
	for i := 0; i < 5; i++ {
		r.Push(KindReadings, sampleReading())
	}
	if el := time.Since(start); el > 100*time.Millisecond {
		t.Fatalf("push blocked for %v", el)
	}
	// one in flight, four dropped
	if r.Failures() != 4 {
		t.Fatalf("dropped pushes should be counted, got %d", r.Failures())
	}

	start = time.Now()
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if el := time.Since(start); el > time.Second {
		t.Fatalf("close should cancel in-flight push, took %v", el)
	}
	r.Push(KindReadings, sampleReading()) // after close: ignored
}

func TestInfluxReporter_WritesPoints(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		lines []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		lines = append(lines, r.URL.Path+" "+string(b))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	r := NewInflux(InfluxConfig{URL: srv.URL, Token: "t", Org: "home", Bucket: "plants"}, nil)
	defer r.Close()

	rd := sampleReading()
	rd.Unavailable = models.NewMetricSet(models.MetricLight)
	r.Push(KindReadings, rd)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 1
	})
	mu.Lock()
	got := lines[0]
	mu.Unlock()
	if !strings.Contains(got, "/api/v2/write") || !strings.Contains(got, "reading ") || !strings.Contains(got, `reading_id="r-1"`) {
		t.Fatalf("unexpected write: %s", got)
	}
	if strings.Contains(got, "light=") {
		t.Fatalf("unavailable metric must not be written: %s", got)
	}
	if r.Failures() != 0 {
		t.Fatalf("failures = %d", r.Failures())
	}
}

func TestToPoints_TagsStayBounded(t *testing.T) {
	t.Parallel()

	// every tag key and value must come from a fixed vocabulary
	allowed := map[string]map[string]bool{
		"metric":   {"temperature": true, "humidity": true, "co2": true, "light": true},
		"bound":    {"low": true, "high": true},
		"severity": {"mild": true, "moderate": true, "critical": true},
		"source":   {"ai": true, "fallback": true},
	}

	first, second := sampleReading(), sampleReading()
	second.ID = "r-2"
	second.Timestamp = second.Timestamp.Add(10 * time.Second)
	rec := models.Recommendation{Text: "ok", Source: models.SourceAI, GeneratedAt: first.Timestamp}
	findings := []models.Finding{{
		Metric: models.MetricTemperature, Value: 30, Bound: models.BoundHigh,
		Min: 18, Max: 26, Severity: models.SeverityModerate,
	}}

	for _, payload := range []any{first, second, NewAnalysis(rec, &first), NewAlerts(findings, first)} {
		points, err := toPoints(payload)
		if err != nil {
			t.Fatalf("toPoints(%T): %v", payload, err)
		}
		for _, pt := range points {
			for _, tag := range pt.TagList() {
				if !allowed[tag.Key][tag.Value] {
					t.Fatalf("%s point has unbounded tag %s=%s", pt.Name(), tag.Key, tag.Value)
				}
			}
		}
	}

	points, _ := toPoints(first)
	var id any
	for _, f := range points[0].FieldList() {
		if f.Key == "reading_id" {
			id = f.Value
		}
	}
	if id != "r-1" {
		t.Fatalf("reading_id field = %v, want r-1", id)
	}
}

func TestToPoints_Unsupported(t *testing.T) {
	t.Parallel()
	if _, err := toPoints(42); err == nil {
		t.Fatalf("expected error for unsupported payload")
	}
}

type countingReporter struct {
	mu     sync.Mutex
	pushes []Kind
	fails  uint64
	closed bool
}

func (c *countingReporter) Push(k Kind, _ any) {
	c.mu.Lock()
	c.pushes = append(c.pushes, k)
	c.mu.Unlock()
}
func (c *countingReporter) Failures() uint64 { return c.fails }
func (c *countingReporter) Close() error     { c.closed = true; return nil }

func TestCombine(t *testing.T) {
	t.Parallel()

	if _, ok := Combine().(Noop); !ok {
		t.Fatalf("no reporters should give Noop")
	}
	a, b := &countingReporter{fails: 1}, &countingReporter{fails: 2}
	m := Combine(a, b)
	m.Push(KindAlerts, nil)
	if len(a.pushes) != 1 || len(b.pushes) != 1 {
		t.Fatalf("fan-out failed")
	}
	if m.Failures() != 3 {
		t.Fatalf("failures = %d", m.Failures())
	}
	_ = m.Close()
	if !a.closed || !b.closed {
		t.Fatalf("close not propagated")
	}
}
