package service

import (
	"context"
	"time"

	"plant_monitor/internal/models"
	"plant_monitor/internal/repository"
)

// Monitor runs the sampling and advisory loop until ctx is canceled.
type Monitor interface {
	Run(ctx context.Context) error
}

// Snapshots exposes the latest published state to readers.
type Snapshots interface {
	Current() models.Snapshot
	Subscribe() (updates <-chan struct{}, cancel func())
}

// EventLog exposes the operational journal.
type EventLog interface {
	Record(ctx context.Context, e models.Event) error
	List(ctx context.Context, f LogFilter) ([]models.Event, error)
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// Service aggregates the sub-services used by main and the handlers.
type Service struct {
	Monitor
	Snapshots
	EventLog
}

// NewService wires the repository layer and collaborators into concrete services.
func NewService(repos *repository.Repository, deps MonitorDeps) *Service {
	store := NewSnapshotStore()
	events := NewEventLogService(repos.EventRepo)
	return &Service{
		Monitor:   NewMonitorService(deps, store, events),
		Snapshots: store,
		EventLog:  events,
	}
}
