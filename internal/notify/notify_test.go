package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/model"
)

func testDetector(t *testing.T) *detect.Detector {
	t.Helper()
	d, err := detect.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBuildNotification(t *testing.T) {
	d := testDetector(t)
	ev := model.ViolationEvent{
		IncidentID: "inc-1",
		UserUPN:    "budi@corp.example.com",
		Title:      "KTP 3201234567890123 attached",
		Content:    "sending KTP 3201234567890123 and NPWP 123456789012345",
		Source:     model.SourceSentinel,
		ReceivedAt: time.Now().UTC(),
	}
	findings := d.Scan(ev.Content)
	res := model.DecisionResult{
		Score:         100,
		Level:         model.RiskCritical,
		Action:        model.SoftRemediation,
		Ordinal:       1,
		Socialization: false,
	}

	intent := BuildNotification(d, ev, findings, res)

	if intent.Recipient != ev.UserUPN {
		t.Errorf("recipient = %q", intent.Recipient)
	}
	if intent.Subject != model.SoftRemediation {
		t.Errorf("subject = %q", intent.Subject)
	}
	if intent.RiskLevel != model.RiskCritical || intent.Ordinal != 1 {
		t.Errorf("intent = %+v", intent)
	}
	if strings.Contains(intent.MaskedSummary, "3201234567890123") ||
		strings.Contains(intent.MaskedSummary, "123456789012345") {
		t.Errorf("raw values leaked into summary: %s", intent.MaskedSummary)
	}
	if !strings.Contains(intent.MaskedSummary, "NATIONAL_ID x1") {
		t.Errorf("summary missing finding counts: %s", intent.MaskedSummary)
	}
	if !strings.Contains(intent.MaskedSummary, "TAX_ID x1") {
		t.Errorf("summary missing tax id count: %s", intent.MaskedSummary)
	}
	if !strings.Contains(intent.MaskedSummary, "320**********123") {
		t.Errorf("summary missing masked value: %s", intent.MaskedSummary)
	}
}

func TestBuildNotificationNoFindings(t *testing.T) {
	d := testDetector(t)
	ev := model.ViolationEvent{
		IncidentID: "inc-1",
		UserUPN:    "u@x.id",
		Title:      "policy match on outbound mail",
	}
	res := model.DecisionResult{Action: model.WarnAndEducate, Level: model.RiskLow, Ordinal: 1}

	intent := BuildNotification(d, ev, nil, res)
	if intent.MaskedSummary != "policy match on outbound mail" {
		t.Errorf("summary = %q", intent.MaskedSummary)
	}
	if strings.Contains(intent.MaskedSummary, "detected:") {
		t.Error("empty findings should not append a detection list")
	}
}

func TestBuildEnforcement(t *testing.T) {
	ev := model.ViolationEvent{UserUPN: "budi@corp.example.com"}
	res := model.DecisionResult{Score: 70, Level: model.RiskHigh, Action: model.HardBlockAndRevoke, Ordinal: 3}

	intent := BuildEnforcement(ev, res)
	if intent.UserUPN != "budi@corp.example.com" {
		t.Errorf("user = %q", intent.UserUPN)
	}
	if !strings.Contains(intent.Reason, "violation 3") || !strings.Contains(intent.Reason, "score 70") {
		t.Errorf("reason = %q", intent.Reason)
	}
}

func TestMatches(t *testing.T) {
	if !matches([]string{"*"}, "warn_and_educate") {
		t.Error("wildcard should match anything")
	}
	if !matches([]string{"hard_block_and_revoke"}, "hard_block_and_revoke") {
		t.Error("exact action should match")
	}
	if matches([]string{"hard_block_and_revoke"}, "warn_and_educate") {
		t.Error("non-listed action should not match")
	}
	if matches(nil, "warn_and_educate") {
		t.Error("empty action list should match nothing")
	}
}

func TestNewDispatcherEmpty(t *testing.T) {
	if d := NewDispatcher(nil); d != nil {
		t.Error("empty config should yield nil dispatcher")
	}
}
