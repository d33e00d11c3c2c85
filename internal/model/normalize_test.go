package model

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"Low", SeverityLow, true},
		{"informational", SeverityLow, true},
		{"MEDIUM", SeverityMedium, true},
		{" high ", SeverityHigh, true},
		{"Critical", SeverityHigh, true},
		{"severe", SeverityMedium, false},
		{"", SeverityMedium, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeSeverity(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeSeverity(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeSensitivity(t *testing.T) {
	cases := []struct {
		in   string
		want Sensitivity
		ok   bool
	}{
		{"Public", SensPublic, true},
		{"", SensPublic, true},
		{"Confidential", SensConfidential, true},
		{"Highly Confidential", SensConfidential, true},
		{"restricted", SensConfidential, true},
		{"internal-only", SensPublic, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeSensitivity(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeSensitivity(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestNormalizeSource(t *testing.T) {
	cases := []struct {
		in   string
		want Source
		ok   bool
	}{
		{"sentinel", SourceSentinel, true},
		{"azure-sentinel", SourceSentinel, true},
		{"Purview", SourcePurview, true},
		{"event-grid", SourceEventGrid, true},
		{"", SourceManual, true},
		{"carrier-pigeon", SourceManual, false},
	}
	for _, tc := range cases {
		got, ok := NormalizeSource(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("NormalizeSource(%q) = (%s, %v), want (%s, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestDedupKeyScopedBySource(t *testing.T) {
	a := ViolationEvent{IncidentID: "inc-1", Source: SourceSentinel}
	b := ViolationEvent{IncidentID: "inc-1", Source: SourcePurview}

	if a.DedupKey() != "sentinel:inc-1" {
		t.Errorf("key = %q", a.DedupKey())
	}
	if a.DedupKey() == b.DedupKey() {
		t.Error("same incident id from different sources must not collide")
	}
}

func TestKnownSource(t *testing.T) {
	for _, s := range []Source{SourceSentinel, SourcePurview, SourceEventGrid, SourceManual} {
		if !KnownSource(s) {
			t.Errorf("%s should be known", s)
		}
	}
	if KnownSource("smoke-signal") {
		t.Error("unknown source accepted")
	}
}
