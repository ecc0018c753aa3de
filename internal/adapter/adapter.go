// Package adapter defines the time-series source consumed by the
// budget pipeline. The query string is opaque to the engine; adapters
// hand it to their provider as-is.
package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/halcyonops/halcyon/internal/budget"
)

// TimeSeriesSource resolves an opaque query into SLI measurements.
type TimeSeriesSource interface {
	GetSLITimeSeries(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]budget.Measurement, error)
}

// ProviderQueryError wraps a collaborator I/O failure. It is surfaced
// to the caller, which owns any retry policy.
type ProviderQueryError struct {
	Provider string
	Query    string
	Err      error
}

func (e *ProviderQueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Provider, e.Err)
}

func (e *ProviderQueryError) Unwrap() error {
	return e.Err
}
