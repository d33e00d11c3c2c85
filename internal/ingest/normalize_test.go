package ingest

import (
	"errors"
	"testing"
	"time"

	"github.com/rizkypratama/dlpguard/internal/model"
)

const sentinelPayload = `{
	"name": "inc-2024-001",
	"properties": {
		"title": "DLP policy match on outbound mail",
		"severity": "High",
		"createdTimeUtc": "2024-03-01T08:30:00Z",
		"relatedEntities": [
			{"kind": "Account", "properties": {"additionalData": {"UserPrincipalName": "budi@corp.example.com"}}},
			{"kind": "File", "properties": {"fileName": "payroll%20Q1.xlsx"}}
		]
	}
}`

func TestNormalizeSentinel(t *testing.T) {
	ev, err := Normalize(model.SourceSentinel, []byte(sentinelPayload))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if ev.IncidentID != "inc-2024-001" {
		t.Errorf("incident id = %q", ev.IncidentID)
	}
	if ev.UserUPN != "budi@corp.example.com" {
		t.Errorf("user upn = %q", ev.UserUPN)
	}
	if ev.Title != "DLP policy match on outbound mail (payroll Q1.xlsx)" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Severity != model.SeverityHigh {
		t.Errorf("severity = %q", ev.Severity)
	}
	if ev.Sensitivity != model.SensConfidential {
		t.Errorf("sensitivity = %q", ev.Sensitivity)
	}
	if ev.Source != model.SourceSentinel {
		t.Errorf("source = %q", ev.Source)
	}
	want := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	if !ev.ReceivedAt.Equal(want) {
		t.Errorf("received at = %v, want %v", ev.ReceivedAt, want)
	}
	if ev.DedupKey() != "sentinel:inc-2024-001" {
		t.Errorf("dedup key = %q", ev.DedupKey())
	}
}

func TestNormalizeSentinelMissingAccount(t *testing.T) {
	payload := `{"name": "inc-1", "properties": {"title": "t", "severity": "Low", "relatedEntities": []}}`
	_, err := Normalize(model.SourceSentinel, []byte(payload))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("got %v, want ValidationError", err)
	}
	if verr.Field != "user_upn" {
		t.Errorf("field = %q, want user_upn", verr.Field)
	}
}

const purviewPayload = `{
	"alertId": "alert-77",
	"policyName": "PII outbound",
	"severity": "medium",
	"user": {"userPrincipalName": "ana@corp.example.com", "department": "Finance"},
	"content": {"sample": "NPWP 123456789012345 in body", "sensitivityLabel": "Confidential"},
	"detectedAt": "2024-03-02T10:00:00Z"
}`

func TestNormalizePurview(t *testing.T) {
	ev, err := Normalize(model.SourcePurview, []byte(purviewPayload))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	if ev.IncidentID != "alert-77" {
		t.Errorf("incident id = %q", ev.IncidentID)
	}
	if ev.UserUPN != "ana@corp.example.com" {
		t.Errorf("user upn = %q", ev.UserUPN)
	}
	if ev.Title != "PII outbound" {
		t.Errorf("title = %q", ev.Title)
	}
	if ev.Content != "NPWP 123456789012345 in body" {
		t.Errorf("content = %q", ev.Content)
	}
	if ev.Severity != model.SeverityMedium {
		t.Errorf("severity = %q", ev.Severity)
	}
	if ev.Sensitivity != model.SensConfidential {
		t.Errorf("sensitivity = %q", ev.Sensitivity)
	}
	if ev.Department != "Finance" {
		t.Errorf("department = %q", ev.Department)
	}
	if ev.Source != model.SourcePurview {
		t.Errorf("source = %q", ev.Source)
	}
}

func TestNormalizePurviewDefaultTitle(t *testing.T) {
	payload := `{"alertId": "a1", "user": {"userPrincipalName": "u@x.id"}}`
	ev, err := Normalize(model.SourcePurview, []byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Title != "DLP policy violation" {
		t.Errorf("title = %q", ev.Title)
	}
}

func TestNormalizeEventGrid(t *testing.T) {
	payload := `{
		"id": "env-99",
		"eventType": "Microsoft.Purview.DlpAlert",
		"eventTime": "2024-03-03T12:00:00Z",
		"data": {"alertId": "alert-5", "severity": "high", "user": {"userPrincipalName": "u@x.id"}}
	}`
	ev, err := Normalize(model.SourceEventGrid, []byte(payload))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if ev.IncidentID != "alert-5" {
		t.Errorf("incident id = %q", ev.IncidentID)
	}
	if ev.Source != model.SourceEventGrid {
		t.Errorf("source = %q", ev.Source)
	}
	if ev.DedupKey() != "eventgrid:alert-5" {
		t.Errorf("dedup key = %q", ev.DedupKey())
	}
}

func TestNormalizeEventGridEnvelopeIDFallback(t *testing.T) {
	payload := `{
		"id": "env-42",
		"eventTime": "2024-03-03T12:00:00Z",
		"data": {"severity": "low", "user": {"userPrincipalName": "u@x.id"}}
	}`
	ev, err := Normalize(model.SourceEventGrid, []byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if ev.IncidentID != "env-42" {
		t.Errorf("incident id = %q, want envelope id fallback", ev.IncidentID)
	}
	want := time.Date(2024, 3, 3, 12, 0, 0, 0, time.UTC)
	if !ev.ReceivedAt.Equal(want) {
		t.Errorf("received at = %v, want envelope event time", ev.ReceivedAt)
	}
}

func TestNormalizeEventGridEmptyData(t *testing.T) {
	if _, err := Normalize(model.SourceEventGrid, []byte(`{"id": "env-1"}`)); err == nil {
		t.Error("envelope without data should error")
	}
}

func TestNormalizeManual(t *testing.T) {
	payload := `{
		"incident_id": "manual-1",
		"user_upn": "u@x.id",
		"title": "replay",
		"severity": "High",
		"sensitivity": "Confidential",
		"department": "HR"
	}`
	ev, err := Normalize(model.SourceManual, []byte(payload))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if ev.Source != model.SourceManual {
		t.Errorf("source = %q", ev.Source)
	}
	if ev.ReceivedAt.IsZero() {
		t.Error("received at should default to now")
	}
	if ev.Severity != model.SeverityHigh || ev.Department != "HR" {
		t.Errorf("event = %+v", ev)
	}
}

func TestNormalizeManualUnknownSourceCoerced(t *testing.T) {
	payload := `{"incident_id": "m1", "user_upn": "u@x.id", "source": "carrier-pigeon"}`
	ev, err := Normalize(model.SourceManual, []byte(payload))
	if err != nil {
		t.Fatal(err)
	}
	if ev.Source != model.SourceManual {
		t.Errorf("unknown source should coerce to manual, got %q", ev.Source)
	}
}

func TestNormalizeMalformedJSON(t *testing.T) {
	for _, src := range []model.Source{model.SourceSentinel, model.SourcePurview, model.SourceEventGrid, model.SourceManual} {
		if _, err := Normalize(src, []byte("{nope")); err == nil {
			t.Errorf("%s: malformed payload should error", src)
		}
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		ev    model.ViolationEvent
		field string
	}{
		{"missing incident id", model.ViolationEvent{UserUPN: "u@x.id"}, "incident_id"},
		{"blank incident id", model.ViolationEvent{IncidentID: "   ", UserUPN: "u@x.id"}, "incident_id"},
		{"missing user upn", model.ViolationEvent{IncidentID: "i"}, "user_upn"},
	}
	for _, tc := range cases {
		err := Validate(tc.ev)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%s: got %v, want ValidationError", tc.name, err)
			continue
		}
		if verr.Field != tc.field {
			t.Errorf("%s: field = %q, want %q", tc.name, verr.Field, tc.field)
		}
	}

	ok := model.ViolationEvent{IncidentID: "i", UserUPN: "u@x.id"}
	if err := Validate(ok); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}
}

func TestParseTimeFormats(t *testing.T) {
	want := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)
	for _, s := range []string{
		"2024-03-01T08:30:00Z",
		"2024-03-01T08:30:00.000Z",
		"2024-03-01T08:30:00",
	} {
		if got := parseTime(s); !got.Equal(want) {
			t.Errorf("parseTime(%q) = %v, want %v", s, got, want)
		}
	}
	if got := parseTime("not a time"); got.IsZero() {
		t.Error("unparseable time should default to now, not zero")
	}
}
