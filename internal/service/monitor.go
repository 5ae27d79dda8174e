package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"plant_monitor/internal/advisor"
	"plant_monitor/internal/evaluator"
	"plant_monitor/internal/logger"
	"plant_monitor/internal/models"
	"plant_monitor/internal/reporter"
	"plant_monitor/internal/sensor"
)

// Loop defaults.
const (
	DefaultInterval      = 10 * time.Second
	DefaultAIInterval    = 60 * time.Second
	DefaultSensorTimeout = 5 * time.Second

	// journal writes after cancellation still get this long
	recordTimeout = time.Second
)

// EventRecorder receives journal entries. Failures are logged, never fatal.
type EventRecorder interface {
	Record(ctx context.Context, e models.Event) error
}

// MonitorDeps are the collaborators of the loop.
type MonitorDeps struct {
	Source        sensor.Source
	Advisor       advisor.Advisor
	Reporter      reporter.Reporter // nil means none
	Interval      time.Duration
	AIInterval    time.Duration
	SensorTimeout time.Duration
	Log           *logger.Logger
}

// MonitorService owns the loop state. Everything it publishes goes through
// the SnapshotStore; nothing else writes there.
type MonitorService struct {
	source        sensor.Source
	advisor       advisor.Advisor
	reporter      reporter.Reporter
	events        EventRecorder
	store         *SnapshotStore
	log           *logger.Logger
	interval      time.Duration
	aiInterval    time.Duration
	sensorTimeout time.Duration
	now           func() time.Time
}

func NewMonitorService(deps MonitorDeps, store *SnapshotStore, events EventRecorder) *MonitorService {
	m := &MonitorService{
		source:        deps.Source,
		advisor:       deps.Advisor,
		reporter:      deps.Reporter,
		events:        events,
		store:         store,
		log:           deps.Log,
		interval:      deps.Interval,
		aiInterval:    deps.AIInterval,
		sensorTimeout: deps.SensorTimeout,
		now:           time.Now,
	}
	if m.reporter == nil {
		m.reporter = reporter.Noop{}
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	if m.interval <= 0 {
		m.interval = DefaultInterval
	}
	if m.aiInterval <= 0 {
		m.aiInterval = DefaultAIInterval
	}
	if m.sensorTimeout <= 0 {
		m.sensorTimeout = DefaultSensorTimeout
	}
	return m
}

// loopState is only touched by the Run goroutine.
type loopState struct {
	status    models.Status
	reading   *models.Reading
	window    []models.Reading
	findings  []models.Finding
	active    map[string]bool
	rec       *models.Recommendation
	startedAt time.Time

	sensorErr  string // non-empty while the last read failed
	advisorErr string // non-empty while the last advisory fell back on error

	readings        uint64
	sensorErrors    uint64
	advisorFailures uint64
}

func (st *loopState) degraded() bool { return st.sensorErr != "" || st.advisorErr != "" }

// Run samples every interval and asks for advice every AI interval until
// ctx is canceled. It returns nil on cancellation.
func (m *MonitorService) Run(ctx context.Context) error {
	st := &loopState{
		status:    models.StatusRunning,
		active:    map[string]bool{},
		startedAt: m.now().UTC(),
	}
	m.record(ctx, models.EventStart, "monitor started", map[string]any{
		"interval_s":    m.interval.Seconds(),
		"ai_interval_s": m.aiInterval.Seconds(),
	})
	m.log.Infow("monitor_started", "interval", m.interval.String(), "ai_interval", m.aiInterval.String())
	m.publish(st)

	readTicker := time.NewTicker(m.interval)
	defer readTicker.Stop()
	aiTicker := time.NewTicker(m.aiInterval)
	defer aiTicker.Stop()

	var (
		wg       sync.WaitGroup
		inFlight bool
		results  = make(chan models.Recommendation, 1)
	)
	startAdvisory := func() {
		if inFlight {
			m.log.Debugw("advisory_skipped", "reason", "previous request still running")
			return
		}
		inFlight = true
		recent := append([]models.Reading(nil), st.window...)
		findings := append([]models.Finding(nil), st.findings...)
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.advisor.Advise(ctx, recent, findings)
		}()
	}

	m.sample(ctx, st)
	startAdvisory()

	for {
		select {
		case <-ctx.Done():
			// a late advisory result is dropped; results has room for it
			wg.Wait()
			m.stop(ctx, st)
			return nil
		case <-readTicker.C:
			m.sample(ctx, st)
		case <-aiTicker.C:
			startAdvisory()
		case rec := <-results:
			inFlight = false
			m.applyAdvice(ctx, st, rec)
		}
	}
}

func (m *MonitorService) sample(ctx context.Context, st *loopState) {
	rctx, cancel := context.WithTimeout(ctx, m.sensorTimeout)
	r, err := m.source.Read(rctx)
	cancel()
	if err != nil && ctx.Err() != nil {
		// shutting down
		return
	}

	if err != nil {
		st.sensorErrors++
		st.sensorErr = err.Error()
		partial := sensor.IsPartial(err)
		meta := map[string]any{"partial": partial}
		var serr *sensor.SensorError
		if errors.As(err, &serr) {
			meta["metrics"] = serr.Metrics
		}
		m.log.Warnw("sensor_read_failed", "err", err, "partial", partial, "sensor_errors", st.sensorErrors)
		m.record(ctx, models.EventSensorError, err.Error(), meta)
		if !partial {
			// keep the previous reading on screen
			m.publish(st)
			return
		}
	} else {
		st.sensorErr = ""
	}

	st.readings++
	st.reading = &r
	st.window = append(st.window, r)
	if n := len(st.window); n > advisor.MaxContextReadings {
		st.window = append([]models.Reading(nil), st.window[n-advisor.MaxContextReadings:]...)
	}
	st.findings = evaluator.Evaluate(r)

	m.reporter.Push(reporter.KindReadings, r)
	if len(st.findings) > 0 {
		m.reporter.Push(reporter.KindAlerts, reporter.NewAlerts(st.findings, r))
	}
	m.trackAlerts(ctx, st, r)
	m.publish(st)
}

// trackAlerts journals findings that were not active on the previous reading.
func (m *MonitorService) trackAlerts(ctx context.Context, st *loopState, r models.Reading) {
	active := make(map[string]bool, len(st.findings))
	for _, f := range st.findings {
		active[f.Type()] = true
		if st.active[f.Type()] {
			continue
		}
		m.log.Infow("alert_raised", "type", f.Type(), "value", f.Value, "severity", string(f.Severity))
		m.record(ctx, models.EventAlert, f.Message(), map[string]any{
			"type":       f.Type(),
			"reading_id": r.ID,
			"value":      f.Value,
			"severity":   f.Severity,
		})
	}
	st.active = active
}

func (m *MonitorService) applyAdvice(ctx context.Context, st *loopState, rec models.Recommendation) {
	st.rec = &rec
	if rec.Failed() {
		st.advisorFailures++
		st.advisorErr = rec.FallbackReason
	} else {
		st.advisorErr = ""
	}
	m.reporter.Push(reporter.KindAnalysis, reporter.NewAnalysis(rec, st.reading))
	m.record(ctx, models.EventAdvisory, rec.Text, map[string]any{
		"source":          rec.Source,
		"fallback_reason": rec.FallbackReason,
	})
	m.publish(st)
}

func (m *MonitorService) stop(ctx context.Context, st *loopState) {
	st.status = models.StatusStopped
	m.store.Publish(m.snapshot(st))
	m.record(ctx, models.EventStop, "monitor stopped", map[string]any{
		"readings":      st.readings,
		"sensor_errors": st.sensorErrors,
	})
	m.log.Infow("monitor_stopped", "readings", st.readings, "sensor_errors", st.sensorErrors,
		"advisor_failures", st.advisorFailures, "reporter_failures", m.reporter.Failures())
}

// publish recomputes the status and stores a fresh snapshot.
func (m *MonitorService) publish(st *loopState) {
	next := models.StatusRunning
	if st.degraded() {
		next = models.StatusDegraded
	}
	if next != st.status {
		m.log.Infow("status_changed", "from", string(st.status), "to", string(next))
		m.record(context.Background(), models.EventStatusChange, string(st.status)+" -> "+string(next), map[string]any{
			"from": st.status,
			"to":   next,
		})
		st.status = next
	}
	m.store.Publish(m.snapshot(st))
}

// snapshot copies everything a reader can see.
func (m *MonitorService) snapshot(st *loopState) models.Snapshot {
	snap := models.Snapshot{
		Status:           st.status,
		Findings:         append([]models.Finding{}, st.findings...),
		Readings:         st.readings,
		SensorErrors:     st.sensorErrors,
		AdvisorFailures:  st.advisorFailures,
		ReporterFailures: m.reporter.Failures(),
		StartedAt:        st.startedAt,
		UpdatedAt:        m.now().UTC(),
	}
	if st.reading != nil {
		r := *st.reading
		snap.Reading = &r
	}
	if st.rec != nil {
		rec := *st.rec
		snap.Recommendation = &rec
	}
	if st.sensorErr != "" {
		snap.Errors = append(snap.Errors, "sensor: "+st.sensorErr)
	}
	if st.advisorErr != "" {
		snap.Errors = append(snap.Errors, "advisor: "+st.advisorErr)
	}
	return snap
}

// record writes a journal entry; it survives cancellation of ctx.
func (m *MonitorService) record(ctx context.Context, typ, desc string, meta map[string]any) {
	if m.events == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	err := m.events.Record(rctx, models.Event{
		OccurredAt:  m.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		m.log.Errorw("event_record_failed", "type", typ, "err", err)
	}
}
