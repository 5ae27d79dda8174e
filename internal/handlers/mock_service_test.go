package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"plant_monitor/internal/models"
	"plant_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockSnapshots struct {
	mu   sync.Mutex
	snap models.Snapshot
	subs []chan struct{}
}

func (m *mockSnapshots) Current() models.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}

func (m *mockSnapshots) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch, func() {}
}

func (m *mockSnapshots) subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *mockSnapshots) publish(s models.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snap = s
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

type mockEventLog struct {
	resp   []models.Event
	err    error
	last   service.LogFilter
	calls  int
	pruned time.Duration
}

func (m *mockEventLog) Record(ctx context.Context, e models.Event) error { return nil }

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.Event, error) {
	m.calls++
	m.last = f
	return m.resp, m.err
}

func (m *mockEventLog) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	m.pruned = retention
	return 0, nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, apiKey)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func sampleSnapshot() models.Snapshot {
	at := time.Date(2026, 1, 14, 10, 30, 0, 0, time.UTC)
	r := models.Reading{ID: "r-1", Temperature: 30, Humidity: 60, CO2: 500, Light: 5000, Timestamp: at}
	return models.Snapshot{
		Status:  models.StatusRunning,
		Reading: &r,
		Findings: []models.Finding{{
			Metric: models.MetricTemperature, Value: 30, Bound: models.BoundHigh,
			Min: 18, Max: 26, Severity: models.SeverityModerate,
		}},
		Recommendation: &models.Recommendation{Text: "cool down", Source: models.SourceFallback, GeneratedAt: at},
		Readings:       3,
		StartedAt:      at.Add(-time.Minute),
		UpdatedAt:      at,
	}
}
