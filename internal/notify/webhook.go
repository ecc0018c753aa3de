package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/halcyonops/halcyon/internal/alert"
)

// Webhook posts alert events as JSON to an HTTP endpoint (chat webhook,
// paging service bridge, etc). Non-2xx responses are delivery failures.
type Webhook struct {
	name   string
	url    string
	client *http.Client
}

// NewWebhook creates a webhook channel.
func NewWebhook(name, url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name implements Channel.
func (w *Webhook) Name() string {
	return w.name
}

// Send implements Channel.
func (w *Webhook) Send(ctx context.Context, ev alert.Event) error {
	payload := map[string]any{
		"id":           ev.ID,
		"rule_id":      ev.RuleID,
		"service":      ev.Service,
		"slo_id":       ev.SLOID,
		"severity":     strings.ToLower(string(ev.Severity)),
		"title":        ev.Title,
		"message":      ev.Message,
		"details":      ev.Details,
		"triggered_at": ev.TriggeredAt,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
