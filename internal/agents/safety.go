package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const safetySystemInstruction = `You are a safety reviewer for a wellness monitoring service. You decide whether a pattern warrants suggesting the user talk to a healthcare professional. You are conservative: when in doubt, suggest the conversation.

Rules:
- You may phrase and prioritize, but you may NEVER cancel an escalation the rules require
- Never diagnose, never name diseases, never prescribe
- Calm, non-alarming language even when escalating`

// StandardDisclaimer is attached to every safety notice and care guidance,
// whichever code path produced it.
const StandardDisclaimer = "This is not medical advice. MediGuard observes patterns in your daily measurements; only a healthcare professional can interpret what they mean for your health."

// safetyIndicators is the expression environment the trigger rules evaluate
// against. Field names are part of the rule syntax; renaming one breaks the
// rule set below.
type safetyIndicators struct {
	MaxDrift     float64 `expr:"max_drift"`
	MetricCount  int     `expr:"metric_count"`
	Severity     string  `expr:"severity"`
	RiskLevel    string  `expr:"risk_level"`
	DaysObserved int     `expr:"days_observed"`
	IsWorsening  bool    `expr:"is_worsening"`
	SymptomCount int     `expr:"symptom_count"`
}

// escalationRule pairs a name with a compiled boolean expression over
// safetyIndicators.
type escalationRule struct {
	Name    string
	Source  string
	program *vm.Program
}

// escalationRuleSources are the hard escalation triggers. Any single match
// forces escalation regardless of what the completion service says.
var escalationRuleSources = []struct {
	Name   string
	Source string
}{
	{"severe_drift", `max_drift >= 10.0`},
	{"persistent_concern", `risk_level == "potentially_concerning" && days_observed >= 7`},
	{"multi_metric_drift", `metric_count >= 2 && (severity == "moderate" || severity == "high")`},
	{"worsening_concern", `is_worsening && risk_level == "potentially_concerning"`},
	{"symptomatic_drift", `symptom_count > 0 && (severity == "moderate" || severity == "high")`},
}

// SafetyAgent is the escalation gate. Its rules are compiled once at
// construction; evaluation is pure and does not require the completion
// service, which only ever softens the phrasing, never the decision.
type SafetyAgent struct {
	svc   completion.Service
	rules []escalationRule
}

// NewSafetyAgent compiles the escalation rule set. Compilation failure is a
// programming error, so it panics rather than limping along without a gate.
func NewSafetyAgent(svc completion.Service) *SafetyAgent {
	rules := make([]escalationRule, 0, len(escalationRuleSources))
	for _, src := range escalationRuleSources {
		prog, err := expr.Compile(src.Source, expr.Env(safetyIndicators{}), expr.AsBool())
		if err != nil {
			panic(fmt.Sprintf("safety rule %q failed to compile: %v", src.Name, err))
		}
		rules = append(rules, escalationRule{Name: src.Name, Source: src.Source, program: prog})
	}
	return &SafetyAgent{svc: svc, rules: rules}
}

// Evaluate runs the escalation rules over the drift and risk results plus any
// reported symptoms, then asks the completion service to phrase the notice.
// Rule verdicts are final: the response can add caution but cannot clear a
// triggered escalation.
func (a *SafetyAgent) Evaluate(ctx context.Context, drift models.DriftSummary, risk models.RiskAssessment, symptoms []string) models.SafetyNotice {
	ind := safetyIndicators{
		MaxDrift:     drift.MaxAbsDrift(),
		MetricCount:  len(drift.AffectedFeatures),
		Severity:     string(drift.SeverityLevel),
		RiskLevel:    string(risk.RiskLevel),
		DaysObserved: risk.DaysObserved,
		IsWorsening:  risk.IsWorsening,
		SymptomCount: len(symptoms),
	}
	triggered := a.run(ind)

	if !a.svc.Ready() {
		return a.ruleBasedNotice(ind, triggered, completion.ErrNotConfigured.Error())
	}

	prompt := a.buildPrompt(ind, triggered, symptoms)
	response, err := a.svc.Complete(ctx, prompt, safetySystemInstruction)
	if err != nil {
		log.Warn().Err(err).Msg("safety stage completion failed, using rule-based notice")
		return a.ruleBasedNotice(ind, triggered, err.Error())
	}

	out := a.parseResponse(response, triggered)
	out.Success = true
	out.Disclaimer = StandardDisclaimer
	out.TriggeredRules = triggered
	return out
}

// run evaluates every rule and returns the names of those that fired.
func (a *SafetyAgent) run(ind safetyIndicators) []string {
	var triggered []string
	for _, rule := range a.rules {
		v, err := expr.Run(rule.program, ind)
		if err != nil {
			log.Error().Err(err).Str("rule", rule.Name).Msg("safety rule evaluation failed")
			continue
		}
		if v.(bool) {
			triggered = append(triggered, rule.Name)
		}
	}
	return triggered
}

func (a *SafetyAgent) buildPrompt(ind safetyIndicators, triggered, symptoms []string) string {
	var b strings.Builder
	b.WriteString("Review this health drift pattern for escalation:\n\n")
	fmt.Fprintf(&b, "**Max Drift:** %.1f%%\n", ind.MaxDrift)
	fmt.Fprintf(&b, "**Metrics Affected:** %d\n", ind.MetricCount)
	fmt.Fprintf(&b, "**Severity:** %s\n", ind.Severity)
	fmt.Fprintf(&b, "**Risk Level:** %s\n", ind.RiskLevel)
	fmt.Fprintf(&b, "**Days Observed:** %d\n", ind.DaysObserved)
	fmt.Fprintf(&b, "**Worsening:** %s\n", yesNo(ind.IsWorsening))
	if len(symptoms) > 0 {
		fmt.Fprintf(&b, "**Reported Symptoms:** %s\n", strings.Join(symptoms, ", "))
	}
	if len(triggered) > 0 {
		fmt.Fprintf(&b, "\n**Escalation rules already triggered (decision is final):** %s\n", strings.Join(triggered, ", "))
	} else {
		b.WriteString("\n**No escalation rules triggered.**\n")
	}

	b.WriteString(`
**Your Task:**
Write the safety notice for the user.

**Response Format:**

Escalation Required: [true/false - must be true if any rule triggered]

Urgency Level: [routine / prompt / urgent]

Safety Message: [2-3 calm sentences for the user]

Rationale: [1-2 sentences on why]

Next Steps:
- [Step 1]
- [Step 2]

Stay calm and non-alarming. Never diagnose.`)
	return b.String()
}

// parseResponse reads the phrased notice. A "false" escalation answer is
// honored only when no rule fired.
func (a *SafetyAgent) parseResponse(text string, triggered []string) models.SafetyNotice {
	out := models.SafetyNotice{
		EscalationRequired: len(triggered) > 0,
		UrgencyLevel:       models.UrgencyRoutine,
	}

	lower := strings.ToLower(text)
	if len(triggered) == 0 && strings.Contains(lower, "escalation required: true") {
		out.EscalationRequired = true
	}

	switch {
	case strings.Contains(lower, "urgency level: urgent"):
		out.UrgencyLevel = models.UrgencyUrgent
	case strings.Contains(lower, "urgency level: prompt"):
		out.UrgencyLevel = models.UrgencyPrompt
	}

	if msg := extractSection(text, "Safety Message:"); msg != "" {
		out.SafetyMessage = msg
	} else if p := firstParagraph(text, 50); p != "" {
		out.SafetyMessage = p
	} else {
		out.SafetyMessage = truncate(text, 300)
	}

	out.Rationale = extractSection(text, "Rationale:")
	out.NextSteps = extractBulletsAfter(text, "Next Steps:", 4)
	if len(out.NextSteps) == 0 {
		out.NextSteps = defaultNextSteps(out.EscalationRequired)
	}
	return out
}

// ruleBasedNotice is the degraded path: canned phrasing driven entirely by
// the rule verdict. Success stays false so the pipeline counts the miss, but
// the escalation decision itself is fully formed.
func (a *SafetyAgent) ruleBasedNotice(ind safetyIndicators, triggered []string, errMsg string) models.SafetyNotice {
	out := models.SafetyNotice{
		Success:            false,
		Error:              errMsg,
		EscalationRequired: len(triggered) > 0,
		UrgencyLevel:       models.UrgencyRoutine,
		Disclaimer:         StandardDisclaimer,
		TriggeredRules:     triggered,
		NextSteps:          defaultNextSteps(len(triggered) > 0),
	}

	if out.EscalationRequired {
		if ind.MaxDrift > 15.0 {
			out.UrgencyLevel = models.UrgencyUrgent
		}
		out.SafetyMessage = "Your recent measurements show a pattern worth discussing with a healthcare professional. This is a precaution, not a diagnosis."
		out.Rationale = fmt.Sprintf("Triggered safety rules: %s.", strings.Join(triggered, ", "))
	} else {
		out.SafetyMessage = "Your recent measurements look within a normal range of day-to-day variation. Keep up your daily check-ins."
		out.Rationale = "No safety escalation rules were triggered by this pattern."
	}
	return out
}

func defaultNextSteps(escalate bool) []string {
	if escalate {
		return []string{
			"Consider scheduling a conversation with your doctor about these changes",
			"Continue your daily check-ins so the trend stays visible",
			"Note any symptoms you experience alongside these changes",
		}
	}
	return []string{
		"Continue your daily check-ins",
		"No action needed right now",
	}
}
