package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func testWebhookEvent() WebhookEvent {
	return WebhookEvent{
		Timestamp:   "2024-03-01T08:30:00Z",
		DeliveryID:  "d1",
		IncidentKey: "sentinel:inc-1",
		Recipient:   "bu**@corp.example.com",
		Action:      "hard_block_and_revoke",
		RiskLevel:   "Critical",
		Score:       100,
		Ordinal:     3,
		Summary:     "masked summary",
	}
}

func TestSendPostsJSON(t *testing.T) {
	var got WebhookEvent
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := WebhookConfig{
		URL:     srv.URL,
		Headers: map[string]string{"Authorization": "Bearer tok"},
	}
	if err := Send(cfg, testWebhookEvent()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if auth != "Bearer tok" {
		t.Errorf("authorization header = %q", auth)
	}
	if got.IncidentKey != "sentinel:inc-1" || got.Score != 100 {
		t.Errorf("payload = %+v", got)
	}
}

func TestSendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := Send(WebhookConfig{URL: srv.URL}, testWebhookEvent()); err != nil {
		t.Fatalf("Send should succeed after retries: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestSendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	if err := Send(WebhookConfig{URL: srv.URL}, testWebhookEvent()); err == nil {
		t.Fatal("4xx should fail immediately")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry on 4xx)", calls.Load())
	}
}
