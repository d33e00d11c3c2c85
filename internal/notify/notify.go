// Package notify builds the outbound intents the engine hands to its
// external collaborators and fans decision events out to operator
// webhooks. The actual mail transport and account-management API live
// outside the engine; only the interfaces are defined here.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/model"
)

// Notifier delivers one notification intent to the user. The pipeline
// calls it at most once per incident.
type Notifier interface {
	Notify(ctx context.Context, intent model.NotificationIntent) error
}

// Enforcer executes one enforcement intent (revoke sessions, block
// sign-in) against the account-management collaborator.
type Enforcer interface {
	Enforce(ctx context.Context, intent model.EnforcementIntent) error
}

// BuildNotification assembles the masked notification intent for an
// event. Every free-text field passes through the detector's masker, so
// the intent is safe to hand to any transport.
func BuildNotification(d *detect.Detector, event model.ViolationEvent, findings []detect.Finding, res model.DecisionResult) model.NotificationIntent {
	return model.NotificationIntent{
		Recipient:     event.UserUPN,
		Subject:       res.Action,
		Ordinal:       res.Ordinal,
		MaskedSummary: summarize(d, event, findings),
		RiskLevel:     res.Level,
		Socialization: res.Socialization,
	}
}

// BuildEnforcement assembles the enforcement intent for a hard block.
func BuildEnforcement(event model.ViolationEvent, res model.DecisionResult) model.EnforcementIntent {
	return model.EnforcementIntent{
		UserUPN: event.UserUPN,
		Reason: fmt.Sprintf("violation %d for this user (risk %s, score %d)",
			res.Ordinal, res.Level, res.Score),
	}
}

// summarize renders a one-paragraph masked description of the incident.
func summarize(d *detect.Detector, event model.ViolationEvent, findings []detect.Finding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s", d.Mask(event.Title))
	if len(findings) > 0 {
		counts := make(map[detect.PatternKind]int)
		var order []detect.PatternKind
		for _, f := range findings {
			if counts[f.Kind] == 0 {
				order = append(order, f.Kind)
			}
			counts[f.Kind]++
		}
		var parts []string
		for _, k := range order {
			parts = append(parts, fmt.Sprintf("%s x%d", k, counts[k]))
		}
		fmt.Fprintf(&b, "; detected: %s", strings.Join(parts, ", "))

		var masked []string
		for _, f := range findings {
			masked = append(masked, f.Masked)
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(masked, ", "))
	}
	return b.String()
}
