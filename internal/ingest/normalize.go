// Package ingest normalizes heterogeneous upstream payloads (SIEM
// incident JSON, DLP alert JSON, event-grid envelopes, manual replays)
// into the one ViolationEvent shape the pipeline consumes. Adapters are
// deliberately lenient: only the incident identifier and user principal
// are structural; everything else degrades to defaults downstream.
package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rizkypratama/dlpguard/internal/model"
)

// ValidationError marks an event that is structurally unusable: it is
// rejected before any side effect, distinct from a normal duplicate.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("event rejected: missing required field %q", e.Field)
}

// Validate checks the structural requirements of a normalized event.
// All other fields degrade to defaults in the decision engine.
func Validate(ev model.ViolationEvent) error {
	if strings.TrimSpace(ev.IncidentID) == "" {
		return &ValidationError{Field: "incident_id"}
	}
	if strings.TrimSpace(ev.UserUPN) == "" {
		return &ValidationError{Field: "user_upn"}
	}
	return nil
}

// Normalize parses a raw upstream payload for the named source into a
// ViolationEvent. Unknown sources are treated as manual: the payload
// must already carry the normalized shape.
func Normalize(source model.Source, raw []byte) (model.ViolationEvent, error) {
	switch source {
	case model.SourceSentinel:
		return normalizeSentinel(raw)
	case model.SourcePurview:
		return normalizePurview(raw)
	case model.SourceEventGrid:
		return normalizeEventGrid(raw)
	default:
		return normalizeManual(raw)
	}
}

// sentinelIncident mirrors the fields we read from a Sentinel incident
// resource. The user principal sits on the Account related entity and
// the file name on the File entity.
type sentinelIncident struct {
	Name       string `json:"name"`
	Properties struct {
		Title           string `json:"title"`
		Severity        string `json:"severity"`
		CreatedTimeUTC  string `json:"createdTimeUtc"`
		RelatedEntities []struct {
			Kind       string `json:"kind"`
			Properties struct {
				FileName       string         `json:"fileName"`
				AdditionalData map[string]any `json:"additionalData"`
			} `json:"properties"`
		} `json:"relatedEntities"`
	} `json:"properties"`
}

func normalizeSentinel(raw []byte) (model.ViolationEvent, error) {
	var inc sentinelIncident
	if err := json.Unmarshal(raw, &inc); err != nil {
		return model.ViolationEvent{}, fmt.Errorf("parse sentinel incident: %w", err)
	}

	var userUPN, fileName string
	for _, ent := range inc.Properties.RelatedEntities {
		switch ent.Kind {
		case "Account":
			if userUPN == "" {
				if upn, ok := ent.Properties.AdditionalData["UserPrincipalName"].(string); ok {
					userUPN = upn
				}
			}
		case "File":
			if fileName == "" {
				fileName = strings.ReplaceAll(ent.Properties.FileName, "%20", " ")
			}
		}
	}

	sev, _ := model.NormalizeSeverity(inc.Properties.Severity)
	title := inc.Properties.Title
	if fileName != "" {
		title = title + " (" + fileName + ")"
	}

	ev := model.ViolationEvent{
		IncidentID: inc.Name,
		UserUPN:    userUPN,
		Title:      title,
		Severity:   sev,
		// Sentinel DLP incidents always concern labeled content.
		Sensitivity: model.SensConfidential,
		Source:      model.SourceSentinel,
		ReceivedAt:  parseTime(inc.Properties.CreatedTimeUTC),
	}
	return ev, Validate(ev)
}

// purviewAlert mirrors the DLP policy webhook shape.
type purviewAlert struct {
	AlertID  string `json:"alertId"`
	Policy   string `json:"policyName"`
	Severity string `json:"severity"`
	User     struct {
		UPN        string `json:"userPrincipalName"`
		Department string `json:"department"`
	} `json:"user"`
	Content struct {
		Sample      string `json:"sample"`
		Sensitivity string `json:"sensitivityLabel"`
	} `json:"content"`
	DetectedAt string `json:"detectedAt"`
}

func normalizePurview(raw []byte) (model.ViolationEvent, error) {
	ev, err := purviewEvent(raw)
	if err != nil {
		return model.ViolationEvent{}, err
	}
	return ev, Validate(ev)
}

func purviewEvent(raw []byte) (model.ViolationEvent, error) {
	var alert purviewAlert
	if err := json.Unmarshal(raw, &alert); err != nil {
		return model.ViolationEvent{}, fmt.Errorf("parse purview alert: %w", err)
	}

	sev, _ := model.NormalizeSeverity(alert.Severity)
	sens, _ := model.NormalizeSensitivity(alert.Content.Sensitivity)

	title := alert.Policy
	if title == "" {
		title = "DLP policy violation"
	}

	return model.ViolationEvent{
		IncidentID:  alert.AlertID,
		UserUPN:     alert.User.UPN,
		Title:       title,
		Content:     alert.Content.Sample,
		Severity:    sev,
		Sensitivity: sens,
		Department:  alert.User.Department,
		Source:      model.SourcePurview,
		ReceivedAt:  parseTime(alert.DetectedAt),
	}, nil
}

// eventGridEnvelope is the generic event-grid notification wrapper; the
// inner data carries a purview-style alert.
type eventGridEnvelope struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	EventTime string          `json:"eventTime"`
	Data      json.RawMessage `json:"data"`
}

func normalizeEventGrid(raw []byte) (model.ViolationEvent, error) {
	var env eventGridEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.ViolationEvent{}, fmt.Errorf("parse event-grid envelope: %w", err)
	}
	if len(env.Data) == 0 {
		return model.ViolationEvent{}, fmt.Errorf("event-grid envelope %q has no data", env.ID)
	}

	ev, err := purviewEvent(env.Data)
	if err != nil {
		return model.ViolationEvent{}, err
	}
	// The envelope ID names the delivery; the inner alert ID names the
	// incident. Fall back to the envelope ID when the alert has none.
	if ev.IncidentID == "" {
		ev.IncidentID = env.ID
	}
	ev.Source = model.SourceEventGrid
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = parseTime(env.EventTime)
	}
	return ev, Validate(ev)
}

func normalizeManual(raw []byte) (model.ViolationEvent, error) {
	var ev model.ViolationEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return model.ViolationEvent{}, fmt.Errorf("parse manual event: %w", err)
	}
	if ev.Source == "" || !model.KnownSource(ev.Source) {
		ev.Source = model.SourceManual
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = time.Now().UTC()
	}
	return ev, Validate(ev)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Now().UTC()
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
