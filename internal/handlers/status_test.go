package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"plant_monitor/internal/models"
	"plant_monitor/internal/service"
)

func TestHealth(t *testing.T) {
	s := &service.Service{Snapshots: &mockSnapshots{snap: models.Snapshot{Status: models.StatusDegraded}}}
	r := newTestRouter(s, "secret")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health must not require a key, got %d", w.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["status"] != "ok" || out["monitor"] != "DEGRADED" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestSnapshot(t *testing.T) {
	s := &service.Service{Snapshots: &mockSnapshots{snap: sampleSnapshot()}}
	r := newTestRouter(s, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/snapshot", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var got models.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Status != models.StatusRunning || got.Reading == nil || got.Reading.Temperature != 30 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}
	if len(got.Findings) != 1 || got.Findings[0].Type() != "temperature_high" {
		t.Fatalf("findings: %+v", got.Findings)
	}
	if got.Recommendation == nil || got.Recommendation.Text != "cool down" {
		t.Fatalf("recommendation: %+v", got.Recommendation)
	}
}

func TestRanges(t *testing.T) {
	r := newTestRouter(&service.Service{}, "")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ranges", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var out []rangeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := []rangeResponse{
		{Metric: models.MetricTemperature, Min: 18, Max: 26, Unit: "°C"},
		{Metric: models.MetricHumidity, Min: 50, Max: 70, Unit: "%"},
		{Metric: models.MetricCO2, Min: 400, Max: 800, Unit: "ppm"},
		{Metric: models.MetricLight, Min: 2000, Max: 10000, Unit: "lux"},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d ranges", len(out))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("range %d: got %+v want %+v", i, out[i], want[i])
		}
	}
}
