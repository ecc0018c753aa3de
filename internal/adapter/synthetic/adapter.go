package synthetic

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/halcyonops/halcyon/internal/budget"
)

// Fixture is the JSON fixture file format: a named SLI series.
type Fixture struct {
	Samples []Sample `json:"samples"`
}

// Sample is one fixture data point.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Adapter is a synthetic time-series source that serves fixtures.
// Queries reference fixtures by name, optionally as "fixture:name".
type Adapter struct {
	fixtures map[string]*Fixture
}

// NewAdapter creates a new synthetic adapter
func NewAdapter() *Adapter {
	return &Adapter{
		fixtures: make(map[string]*Fixture),
	}
}

// LoadFixture loads a fixture from a JSON file
func (a *Adapter) LoadFixture(name string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read fixture: %w", err)
	}

	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("failed to parse fixture: %w", err)
	}

	a.fixtures[name] = &fixture
	return nil
}

// SetFixture directly sets a fixture (useful for testing)
func (a *Adapter) SetFixture(name string, fixture *Fixture) {
	a.fixtures[name] = fixture
}

// SetSeries sets a fixture from a plain measurement slice.
func (a *Adapter) SetSeries(name string, measurements []budget.Measurement) {
	fixture := &Fixture{}
	for _, m := range measurements {
		fixture.Samples = append(fixture.Samples, Sample{Timestamp: m.Timestamp, Value: m.Value})
	}
	a.fixtures[name] = fixture
}

// GetSLITimeSeries implements adapter.TimeSeriesSource. Samples outside
// [start, end] are filtered out; step is ignored because fixtures carry
// their own resolution.
func (a *Adapter) GetSLITimeSeries(_ context.Context, query string, start, end time.Time, _ time.Duration) ([]budget.Measurement, error) {
	name := strings.TrimPrefix(query, "fixture:")
	fixture, exists := a.fixtures[name]
	if !exists {
		return nil, fmt.Errorf("fixture not found: %s", name)
	}

	var measurements []budget.Measurement
	for _, s := range fixture.Samples {
		if s.Timestamp.Before(start) || s.Timestamp.After(end) {
			continue
		}
		measurements = append(measurements, budget.Measurement{
			Timestamp: s.Timestamp,
			Value:     s.Value,
		})
	}
	return measurements, nil
}
