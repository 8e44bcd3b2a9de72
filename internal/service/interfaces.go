// Package service defines the contracts between pipeline stages.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/accidentes/internal/model"
)

// Fetcher retrieves the raw accident records from the dataset source.
type Fetcher interface {
	FetchAccidents(ctx context.Context) ([]model.RawAccident, error)
}

// TablePublisher pushes the normalized tables to an external destination.
type TablePublisher interface {
	Publish(ctx context.Context, tables []model.Table) error
}

// TableStore persists the normalized tables.
type TableStore interface {
	Migrate(ctx context.Context) error
	SaveTables(ctx context.Context, tables []model.Table) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RunSummary describes the outcome of one pipeline run.
type RunSummary struct {
	StartedAt      time.Time
	FinishedAt     time.Time
	RunID          string
	SourceURL      string
	Outputs        map[string]string
	RawRecords     int
	Accidents      int
	Details        int
	Communes       int
	AffectedByType map[string]int
}

// Duration returns how long the run took.
func (s RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
