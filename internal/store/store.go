// Package store persists synthesis runs: the synthesized household and
// person tables and the per-geography fit-quality diagnostics.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/synthpop/internal/census"
	"github.com/sells-group/synthpop/internal/synth"
)

// Run is one persisted synthesis run.
type Run struct {
	ID        string
	CreatedAt time.Time
	Result    *synth.Result
}

// RunSummary describes a stored run without its row data.
type RunSummary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Households int       `json:"households"`
	Persons    int       `json:"persons"`
	Failures   int       `json:"failures"`
}

// Store persists and queries synthesis runs.
type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, run Run) error
	ListRuns(ctx context.Context) ([]RunSummary, error)
	FitQuality(ctx context.Context, runID string) (map[census.GeographyID]census.FitQuality, error)
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
