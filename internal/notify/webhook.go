package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	requestTimeout = 5 * time.Second
	maxRetries     = 3
)

var httpClient = &http.Client{Timeout: requestTimeout}

// WebhookConfig defines one operator alert destination.
type WebhookConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Actions []string          `yaml:"actions" json:"actions"` // e.g. ["hard_block_and_revoke", "soft_remediation"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// WebhookEvent is the payload posted to operator webhooks after a
// decision. Summary is already masked.
type WebhookEvent struct {
	Timestamp   string `json:"timestamp"`
	DeliveryID  string `json:"delivery_id"`
	IncidentKey string `json:"incident_key"`
	Recipient   string `json:"recipient"`
	Action      string `json:"action"`
	RiskLevel   string `json:"risk_level"`
	Score       int    `json:"score"`
	Ordinal     int    `json:"ordinal"`
	Summary     string `json:"summary"`
}

// Dispatcher fans decision events out to matching webhook destinations.
type Dispatcher struct {
	configs []WebhookConfig
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []WebhookConfig) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Actions list matches.
// Fires goroutines so the pipeline is never blocked on a slow endpoint.
func (d *Dispatcher) Dispatch(event WebhookEvent) {
	for _, cfg := range d.configs {
		if matches(cfg.Actions, event.Action) {
			go Send(cfg, event)
		}
	}
}

func matches(actions []string, action string) bool {
	for _, a := range actions {
		if a == action || a == "*" {
			return true
		}
	}
	return false
}

// Send posts an event to a webhook endpoint with retry on 5xx.
func Send(cfg WebhookConfig, event WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequest(http.MethodPost, cfg.URL, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range cfg.Headers {
			req.Header.Set(k, v)
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fmt.Errorf("webhook rejected: HTTP %d", resp.StatusCode)
		}
		// 5xx: retry
		lastErr = fmt.Errorf("webhook server error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("webhook failed after %d attempts: %w", maxRetries, lastErr)
}
