package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyonops/halcyon/internal/alert"
)

type fakeChannel struct {
	name string
	err  error
	sent []alert.Event
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, ev alert.Event) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, ev)
	return nil
}

func testEvent() alert.Event {
	return alert.Event{
		ID:       "ev-1",
		RuleID:   "warn-75",
		Service:  "checkout",
		SLOID:    "checkout-availability",
		Severity: alert.SeverityWarning,
		Title:    "Error budget 80.0% consumed for checkout-availability",
	}
}

func TestDispatchAllChannels(t *testing.T) {
	a := &fakeChannel{name: "pager"}
	b := &fakeChannel{name: "chat"}
	d := NewDispatcher([]Channel{a, b}, nil)

	results := d.Dispatch(context.Background(), testEvent())

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for name, res := range results {
		if res.Status != "sent" {
			t.Errorf("channel %s status = %s, want sent", name, res.Status)
		}
	}
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("deliveries: pager=%d chat=%d, want 1 each", len(a.sent), len(b.sent))
	}
}

func TestDispatchFailingChannelDoesNotBlockOthers(t *testing.T) {
	failing := &fakeChannel{name: "pager", err: errors.New("pager unreachable")}
	healthy := &fakeChannel{name: "chat"}
	d := NewDispatcher([]Channel{failing, healthy}, nil)

	results := d.Dispatch(context.Background(), testEvent())

	if res := results["pager"]; res.Status != "failed" || res.Error == "" {
		t.Errorf("pager result = %+v, want failed with error", res)
	}
	if res := results["chat"]; res.Status != "sent" {
		t.Errorf("chat result = %+v, want sent despite sibling failure", res)
	}
	if len(healthy.sent) != 1 {
		t.Errorf("healthy channel deliveries = %d, want 1", len(healthy.sent))
	}
}

func TestDispatchAllKeysByEvent(t *testing.T) {
	ch := &fakeChannel{name: "chat"}
	d := NewDispatcher([]Channel{ch}, nil)

	ev1 := testEvent()
	ev2 := testEvent()
	ev2.ID = "ev-2"

	all := d.DispatchAll(context.Background(), []alert.Event{ev1, ev2})
	if len(all) != 2 {
		t.Fatalf("got %d event entries, want 2", len(all))
	}
	if _, ok := all["ev-1"]; !ok {
		t.Error("missing results for ev-1")
	}
	if _, ok := all["ev-2"]; !ok {
		t.Error("missing results for ev-2")
	}
}

func TestWebhookSend(t *testing.T) {
	var gotPath string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := NewWebhook("chat", srv.URL+"/hooks/alerts", 5*time.Second)
	if err := wh.Send(context.Background(), testEvent()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotPath != "/hooks/alerts" {
		t.Errorf("path = %s", gotPath)
	}
	if gotContentType != "application/json" {
		t.Errorf("content type = %s", gotContentType)
	}
}

func TestWebhookSendNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := NewWebhook("chat", srv.URL, 5*time.Second)
	if err := wh.Send(context.Background(), testEvent()); err == nil {
		t.Error("expected error for 502 response")
	}
}
