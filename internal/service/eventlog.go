package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"plant_monitor/internal/models"
	"plant_monitor/internal/repository"
)

// List bounds.
const (
	DefaultListLimit = 200
	MaxListLimit     = 1000
)

var (
	ErrInvalidTimeRange = errors.New("invalid time range: from must not be after to")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidLimit     = errors.New("invalid limit")
)

// LogFilter selects journal entries. Zero values leave a dimension open.
type LogFilter struct {
	From  time.Time // inclusive
	To    time.Time // inclusive
	Types []string  // any of models.EventTypes, case-insensitive
	Limit int       // newest entries to return; 0 means DefaultListLimit
}

// query validates f and turns it into a repository query.
func (f LogFilter) query() (repository.EventQuery, error) {
	q := repository.EventQuery{From: utc(f.From), To: utc(f.To), Limit: f.Limit}
	if !q.From.IsZero() && !q.To.IsZero() && q.From.After(q.To) {
		return q, ErrInvalidTimeRange
	}
	switch {
	case q.Limit == 0:
		q.Limit = DefaultListLimit
	case q.Limit < 0 || q.Limit > MaxListLimit:
		return q, fmt.Errorf("%w: %d, want 1..%d", ErrInvalidLimit, f.Limit, MaxListLimit)
	}
	for _, t := range f.Types {
		typ := eventType(t)
		if typ == "" {
			continue
		}
		if !models.IsEventType(typ) {
			return q, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
		}
		if !slices.Contains(q.Types, typ) {
			q.Types = append(q.Types, typ)
		}
	}
	return q, nil
}

// EventLogService is the operational journal: what the loop did and when,
// never the readings themselves.
type EventLogService struct {
	repo repository.EventRepo
	now  func() time.Time
}

func NewEventLogService(repo repository.EventRepo) *EventLogService {
	return &EventLogService{repo: repo, now: time.Now}
}

// Record appends e, stamping it with the current time when it has none.
func (s *EventLogService) Record(ctx context.Context, e models.Event) error {
	e.Type = eventType(e.Type)
	if !models.IsEventType(e.Type) {
		return fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type)
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.now()
	}
	e.OccurredAt = e.OccurredAt.UTC()
	return s.repo.Append(ctx, e)
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.Event, error) {
	q, err := f.query()
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, q)
}

// Prune drops entries older than retention. A non-positive retention keeps everything.
func (s *EventLogService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return s.repo.Prune(ctx, s.now().Add(-retention).UTC())
}

func eventType(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
