package decision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rizkypratama/dlpguard/internal/model"
)

func defaultEngine() *Engine {
	return New(DefaultScoringConfig())
}

func event(sev model.Severity, sens model.Sensitivity, dept string) model.ViolationEvent {
	return model.ViolationEvent{
		IncidentID:  "inc-1",
		UserUPN:     "budi@corp.example.com",
		Severity:    sev,
		Sensitivity: sens,
		Department:  dept,
		Source:      model.SourceManual,
	}
}

func TestDecideFirstOffenseLowSeverity(t *testing.T) {
	res := defaultEngine().Decide(event(model.SeverityLow, model.SensPublic, "IT"), 0)

	if res.Score != 20 {
		t.Errorf("score = %d, want 20", res.Score)
	}
	if res.Level != model.RiskLow {
		t.Errorf("level = %s, want %s", res.Level, model.RiskLow)
	}
	if res.Action != model.WarnAndEducate {
		t.Errorf("action = %s, want %s", res.Action, model.WarnAndEducate)
	}
	if res.Ordinal != 1 {
		t.Errorf("ordinal = %d, want 1", res.Ordinal)
	}
	if res.Socialization {
		t.Error("first offense should not trigger socialization")
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}
}

func TestDecideHighConfidentialFinance(t *testing.T) {
	// 80 * 1.5 * 1.5 = 180, clamped to 100.
	res := defaultEngine().Decide(event(model.SeverityHigh, model.SensConfidential, "Finance"), 0)

	if res.Score != 100 {
		t.Errorf("score = %d, want 100", res.Score)
	}
	if res.Level != model.RiskCritical {
		t.Errorf("level = %s, want %s", res.Level, model.RiskCritical)
	}
	// First offense, but score past the escalation threshold.
	if res.Action != model.SoftRemediation {
		t.Errorf("action = %s, want %s", res.Action, model.SoftRemediation)
	}
}

func TestDecideHistoryPoints(t *testing.T) {
	e := defaultEngine()
	ev := event(model.SeverityLow, model.SensPublic, "IT")

	base := e.Decide(ev, 0).Score
	for prior := 1; prior <= 5; prior++ {
		got := e.Decide(ev, prior).Score
		if got != base+prior*10 {
			t.Errorf("prior=%d: score = %d, want %d", prior, got, base+prior*10)
		}
	}
	// History contribution is capped at 50 points.
	if got := e.Decide(ev, 9).Score; got != base+50 {
		t.Errorf("prior=9: score = %d, want %d (capped)", got, base+50)
	}
}

func TestDecideScoreMonotonicInHistory(t *testing.T) {
	e := defaultEngine()
	ev := event(model.SeverityMedium, model.SensConfidential, "HR")

	prev := -1
	for prior := 0; prior <= 12; prior++ {
		got := e.Decide(ev, prior).Score
		if got < prev {
			t.Errorf("score decreased at prior=%d: %d -> %d", prior, prev, got)
		}
		prev = got
	}
}

func TestLevelBoundaries(t *testing.T) {
	e := defaultEngine()
	cases := []struct {
		score int
		want  model.RiskLevel
	}{
		{0, model.RiskLow},
		{29, model.RiskLow},
		{30, model.RiskMedium},
		{59, model.RiskMedium},
		{60, model.RiskHigh},
		{79, model.RiskHigh},
		{80, model.RiskCritical},
		{100, model.RiskCritical},
	}
	for _, tc := range cases {
		if got := e.level(tc.score); got != tc.want {
			t.Errorf("level(%d) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestActionEscalationLadder(t *testing.T) {
	e := defaultEngine()
	cases := []struct {
		ordinal int
		score   int
		want    model.Action
	}{
		{1, 50, model.WarnAndEducate},
		{1, 80, model.SoftRemediation},
		{2, 50, model.EscalatedWarning},
		{2, 85, model.SoftRemediation},
		{3, 10, model.HardBlockAndRevoke},
		{4, 0, model.HardBlockAndRevoke},
	}
	for _, tc := range cases {
		if got := e.action(tc.ordinal, tc.score); got != tc.want {
			t.Errorf("action(%d, %d) = %s, want %s", tc.ordinal, tc.score, got, tc.want)
		}
	}
}

func TestDecideSocializationOrdinals(t *testing.T) {
	e := defaultEngine()
	ev := event(model.SeverityLow, model.SensPublic, "IT")

	for prior := 0; prior <= 6; prior++ {
		res := e.Decide(ev, prior)
		want := res.Ordinal == 3 || res.Ordinal == 5
		if res.Socialization != want {
			t.Errorf("ordinal %d: socialization = %v, want %v", res.Ordinal, res.Socialization, want)
		}
	}
}

func TestDecideUnknownValuesDegrade(t *testing.T) {
	e := defaultEngine()
	ev := event("Severe", "TopSecret", "Skunkworks")
	res := e.Decide(ev, 0)

	// Medium base, no multipliers.
	if res.Score != 50 {
		t.Errorf("score = %d, want 50", res.Score)
	}
	if len(res.Warnings) != 3 {
		t.Errorf("expected 3 warnings, got %v", res.Warnings)
	}
}

func TestDecideEmptyOptionalFieldsNoWarnings(t *testing.T) {
	res := defaultEngine().Decide(event(model.SeverityMedium, "", ""), 0)
	if len(res.Warnings) != 0 {
		t.Errorf("empty sensitivity/department should not warn: %v", res.Warnings)
	}
}

func TestLoadScoringConfigDefaultsWhenMissing(t *testing.T) {
	cfg, err := LoadScoringConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	want := DefaultScoringConfig()
	if cfg.SeverityBases != want.SeverityBases {
		t.Errorf("severity bases = %+v, want %+v", cfg.SeverityBases, want.SeverityBases)
	}
	if cfg.EscalationScore != want.EscalationScore {
		t.Errorf("escalation score = %d, want %d", cfg.EscalationScore, want.EscalationScore)
	}
}

func TestLoadScoringConfigPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	content := `severity_bases:
  low: 10
  medium: 40
  high: 90
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadScoringConfig(path)
	if err != nil {
		t.Fatalf("LoadScoringConfig failed: %v", err)
	}
	if cfg.SeverityBases.High != 90 {
		t.Errorf("high base = %d, want 90", cfg.SeverityBases.High)
	}
	if cfg.HistoryPointsPer != 10 {
		t.Errorf("history points per offense = %d, want default 10", cfg.HistoryPointsPer)
	}
	if cfg.HardBlockOrdinal != 3 {
		t.Errorf("hard block ordinal = %d, want default 3", cfg.HardBlockOrdinal)
	}
	if len(cfg.DepartmentMultiplier) == 0 {
		t.Error("department multipliers should fall back to defaults")
	}
}
