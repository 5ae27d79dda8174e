// Package reporter forwards readings, advice and alerts to optional external
// sinks. Pushes are fire-and-forget: failures are logged and counted only.
package reporter

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"plant_monitor/internal/logger"
)

// Kind selects the endpoint a payload goes to.
type Kind string

const (
	KindReadings Kind = "readings"
	KindAnalysis Kind = "analysis"
	KindAlerts   Kind = "alerts"
)

const (
	DefaultTimeout     = 5 * time.Second
	DefaultMaxInFlight = 8
)

var errQueueFull = errors.New("too many pushes in flight; dropped")

// Reporter is a best-effort sink. Push never blocks the caller.
type Reporter interface {
	Push(kind Kind, payload any)
	Failures() uint64
	Close() error
}

// ReporterError describes one failed push.
type ReporterError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *ReporterError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("push %s: status %d", e.Kind, e.Status)
	}
	return fmt.Sprintf("push %s: %v", e.Kind, e.Err)
}

func (e *ReporterError) Unwrap() error { return e.Err }

type sendFunc func(ctx context.Context, kind Kind, payload any) error

// dispatcher runs sends on goroutines with a bounded number in flight.
type dispatcher struct {
	name    string
	send    sendFunc
	timeout time.Duration
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	sem    chan struct{}

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	failures atomic.Uint64
}

func newDispatcher(name string, send sendFunc, timeout time.Duration, maxInFlight int, log *logger.Logger) *dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &dispatcher{
		name:    name,
		send:    send,
		timeout: timeout,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		sem:     make(chan struct{}, maxInFlight),
	}
}

func (d *dispatcher) Push(kind Kind, payload any) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.sem <- struct{}{}:
	default:
		d.fail(&ReporterError{Kind: kind, Err: errQueueFull})
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()

		ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
		defer cancel()
		if err := d.send(ctx, kind, payload); err != nil {
			d.fail(err)
		}
	}()
}

func (d *dispatcher) fail(err error) {
	n := d.failures.Add(1)
	d.log.Warnw("report_failed", "sink", d.name, "err", err, "failures", n)
}

func (d *dispatcher) Failures() uint64 { return d.failures.Load() }

// close cancels in-flight pushes and waits for them to return.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
	d.wg.Wait()
}

// Noop is used when no sink is configured.
type Noop struct{}

func (Noop) Push(Kind, any)   {}
func (Noop) Failures() uint64 { return 0 }
func (Noop) Close() error     { return nil }

// Multi fans each push out to several reporters.
type Multi []Reporter

// Combine returns Noop, the single reporter, or a Multi.
func Combine(rs ...Reporter) Reporter {
	switch len(rs) {
	case 0:
		return Noop{}
	case 1:
		return rs[0]
	default:
		return Multi(rs)
	}
}

func (m Multi) Push(kind Kind, payload any) {
	for _, r := range m {
		r.Push(kind, payload)
	}
}

func (m Multi) Failures() uint64 {
	var n uint64
	for _, r := range m {
		n += r.Failures()
	}
	return n
}

func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
