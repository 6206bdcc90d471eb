// Package gather fetches historical market data into local storage. Gathering
// is an upstream collaborator of the simulation: each symbol's series is
// read-only and non-interacting, so fetches run in parallel across symbols.
package gather

import (
	"context"
	"time"
)

// Gatherer is the interface for all data gathering processes.
type Gatherer interface {
	// Name returns the gatherer identifier.
	Name() string
	// Run starts the data gathering process. It returns when the range is
	// fully fetched or ctx is cancelled.
	Run(ctx context.Context) error
}

// DateRange represents a time range for data fetching.
type DateRange struct {
	Start time.Time
	End   time.Time
}
