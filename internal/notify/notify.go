// Package notify fans alert events out to notification channels.
// Channel failures are recorded per channel and never abort siblings;
// transport-level retry policy belongs to the channel implementation's
// collaborator, not here.
package notify

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/halcyonops/halcyon/internal/alert"
)

// Channel delivers one alert event. Implementations return an error on
// delivery failure; they must not panic.
type Channel interface {
	Name() string
	Send(ctx context.Context, ev alert.Event) error
}

// ChannelResult is the per-channel dispatch outcome.
type ChannelResult struct {
	Status string `json:"status"` // "sent" or "failed"
	Error  string `json:"error,omitempty"`
}

// Dispatcher sends events to every configured channel.
type Dispatcher struct {
	channels []Channel
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher over the given channels.
func NewDispatcher(channels []Channel, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{channels: channels, log: log}
}

// Dispatch sends ev to all channels concurrently and returns the
// per-channel results keyed by channel name. A failing channel never
// blocks or cancels the others.
func (d *Dispatcher) Dispatch(ctx context.Context, ev alert.Event) map[string]ChannelResult {
	results := make(map[string]ChannelResult, len(d.channels))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, ch := range d.channels {
		ch := ch
		g.Go(func() error {
			res := ChannelResult{Status: "sent"}
			if err := ch.Send(gctx, ev); err != nil {
				res = ChannelResult{Status: "failed", Error: err.Error()}
				d.log.Warn("notification channel failed",
					"channel", ch.Name(), "event_id", ev.ID, "error", err)
			}
			mu.Lock()
			results[ch.Name()] = res
			mu.Unlock()
			// Failures are captured in the result map, never returned,
			// so one channel cannot cancel its siblings.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// DispatchAll dispatches every event and returns results keyed by
// event ID then channel name.
func (d *Dispatcher) DispatchAll(ctx context.Context, events []alert.Event) map[string]map[string]ChannelResult {
	all := make(map[string]map[string]ChannelResult, len(events))
	for _, ev := range events {
		all[ev.ID] = d.Dispatch(ctx, ev)
	}
	return all
}
