package repository

import (
	"context"
	"database/sql"
	"time"

	"plant_monitor/internal/models"
)

// EventQuery selects journal rows. Zero values leave a dimension open.
type EventQuery struct {
	From  time.Time // inclusive
	To    time.Time // inclusive
	Types []string  // any of; already normalized
	Limit int       // keep only the newest Limit rows; 0 keeps all
}

type EventRepo interface {
	Append(ctx context.Context, e models.Event) error
	List(ctx context.Context, q EventQuery) ([]models.Event, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type Repository struct {
	EventRepo EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		EventRepo: NewEventSQLite(db),
	}
}
