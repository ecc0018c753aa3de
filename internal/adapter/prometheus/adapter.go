package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/halcyonops/halcyon/internal/adapter"
	"github.com/halcyonops/halcyon/internal/budget"
)

// Config holds Prometheus adapter configuration
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxConcurrency int64
	RetryCount     int
	RetryDelay     time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig(prometheusURL string) Config {
	return Config{
		URL:            prometheusURL,
		Timeout:        10 * time.Second,
		MaxConcurrency: 10,
		RetryCount:     1,
		RetryDelay:     100 * time.Millisecond,
	}
}

// Adapter is a Prometheus time-series source
type Adapter struct {
	config Config
	client *http.Client
	sem    *semaphore.Weighted
}

// NewAdapter creates a new Prometheus adapter
func NewAdapter(config Config) *Adapter {
	return &Adapter{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		sem: semaphore.NewWeighted(config.MaxConcurrency),
	}
}

// GetSLITimeSeries implements adapter.TimeSeriesSource via a Prometheus
// range query. Samples from multiple result series at the same
// timestamp are averaged into one measurement.
func (a *Adapter) GetSLITimeSeries(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]budget.Measurement, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	// Bound concurrent queries against the provider.
	if err := a.sem.Acquire(queryCtx, 1); err != nil {
		return nil, fmt.Errorf("semaphore acquire: %w", err)
	}
	defer a.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= a.config.RetryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(a.config.RetryDelay)
		}

		result, err := a.executeRangeQuery(queryCtx, query, start, end, step)
		if err == nil {
			return flattenSeries(result), nil
		}
		lastErr = err
	}

	return nil, &adapter.ProviderQueryError{
		Provider: "prometheus",
		Query:    query,
		Err:      fmt.Errorf("query failed after %d attempts: %w", a.config.RetryCount+1, lastErr),
	}
}

// executeRangeQuery performs a single Prometheus range query
func (a *Adapter) executeRangeQuery(ctx context.Context, query string, start, end time.Time, step time.Duration) (*QueryResponse, error) {
	queryURL := fmt.Sprintf("%s/api/v1/query_range", strings.TrimSuffix(a.config.URL, "/"))

	params := url.Values{}
	params.Add("query", query)
	params.Add("start", strconv.FormatInt(start.Unix(), 10))
	params.Add("end", strconv.FormatInt(end.Unix(), 10))
	params.Add("step", strconv.FormatInt(int64(step.Seconds()), 10))

	fullURL := queryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	var result QueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("prometheus error: %s", result.Error)
	}

	return &result, nil
}

// flattenSeries merges all result series into one ordered measurement
// sequence, averaging values that share a timestamp.
func flattenSeries(resp *QueryResponse) []budget.Measurement {
	if resp == nil {
		return nil
	}

	sums := make(map[int64]float64)
	counts := make(map[int64]int)
	for _, series := range resp.Data.Result {
		for _, sample := range series.Values {
			ts := sample.Timestamp().Unix()
			sums[ts] += sample.Value()
			counts[ts]++
		}
	}

	timestamps := make([]int64, 0, len(sums))
	for ts := range sums {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	measurements := make([]budget.Measurement, 0, len(timestamps))
	for _, ts := range timestamps {
		measurements = append(measurements, budget.Measurement{
			Timestamp: time.Unix(ts, 0),
			Value:     sums[ts] / float64(counts[ts]),
		})
	}
	return measurements
}
