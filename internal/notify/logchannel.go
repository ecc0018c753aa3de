package notify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/halcyonops/halcyon/internal/alert"
)

// LogChannel writes alert events to the structured log. Useful as a
// dev/default channel and in tests.
type LogChannel struct {
	log *slog.Logger
}

// NewLogChannel creates a log-backed channel.
func NewLogChannel(log *slog.Logger) *LogChannel {
	if log == nil {
		log = slog.Default()
	}
	return &LogChannel{log: log}
}

// Name implements Channel.
func (c *LogChannel) Name() string {
	return "log"
}

// Send implements Channel.
func (c *LogChannel) Send(_ context.Context, ev alert.Event) error {
	c.log.Info("alert fired",
		"event_id", ev.ID,
		"rule_id", ev.RuleID,
		"service", ev.Service,
		"slo_id", ev.SLOID,
		"severity", strings.ToLower(string(ev.Severity)),
		"title", ev.Title,
	)
	return nil
}
