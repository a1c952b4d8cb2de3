package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const riskSystemInstruction = `You are a careful health trend analyst. You assess whether a pattern of change over time looks temporary, worth observing, or potentially concerning. You never diagnose.

Rules:
- Reason about duration, consistency and direction of the trend
- Use measured, probabilistic language
- Never name diseases or prescribe treatment
- A concerning pattern means "worth discussing with a doctor", nothing more`

// RiskAgent evaluates how concerning a drift pattern is over time. All four
// numeric outputs (risk level, confidence, consistency, trend) come from the
// deterministic classifiers; the completion service only writes the
// reasoning prose and may confirm, not replace, the computed tier.
type RiskAgent struct {
	svc completion.Service
}

// NewRiskAgent builds the risk stage.
func NewRiskAgent(svc completion.Service) *RiskAgent {
	return &RiskAgent{svc: svc}
}

// AnalyzeOverTime classifies the risk tier of a drift history. Fewer than
// two points is a structured insufficient-data failure; a completion failure
// still returns the full numeric classification with Success false.
func (a *RiskAgent) AnalyzeOverTime(ctx context.Context, metricName string, history []models.DriftPoint) models.RiskAssessment {
	if len(history) < 2 {
		return models.RiskAssessment{
			Success:          false,
			Error:            "Insufficient data. Need at least 2 days of drift history.",
			RiskLevel:        models.RiskUnknown,
			ConfidenceScore:  0,
			DaysObserved:     len(history),
			ConsistencyScore: 0,
		}
	}

	temporal := AnalyzeTemporalPatterns(history)
	trend := TrendDirection(history)
	consistency := ConsistencyScore(history)
	riskLevel := ClassifyRiskLevel(temporal.DurationDays, consistency, trend.IsWorsening, temporal.MaxDrift)
	confidence := ConfidenceScore(temporal.DurationDays, consistency, trend.Clarity)

	out := models.RiskAssessment{
		RiskLevel:        riskLevel,
		TrendDescription: trend.Description,
		ConfidenceScore:  confidence,
		DaysObserved:     temporal.DurationDays,
		ConsistencyScore: consistency,
		IsWorsening:      trend.IsWorsening,
	}

	if !a.svc.Ready() {
		out.Error = completion.ErrNotConfigured.Error()
		out.Reasoning = fmt.Sprintf("Rule-based assessment: %s over %d days of observation.", trend.Description, temporal.DurationDays)
		return out
	}

	prompt := a.buildPrompt(metricName, history, temporal, trend, consistency, riskLevel, confidence)
	response, err := a.svc.Complete(ctx, prompt, riskSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Str("metric", metricName).Msg("risk stage completion failed")
		out.Error = err.Error()
		out.Reasoning = fmt.Sprintf("Rule-based assessment: %s over %d days of observation.", trend.Description, temporal.DurationDays)
		return out
	}

	a.mergeResponse(&out, response)
	out.Success = true
	return out
}

func (a *RiskAgent) buildPrompt(metricName string, history []models.DriftPoint, temporal TemporalAnalysis, trend TrendInfo, consistency float64, riskLevel models.RiskLevel, confidence float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Assess the risk level of this drift pattern in %s:\n\n", titleCase(metricName))
	b.WriteString("**Daily Drift History:**\n")
	for _, p := range history {
		fmt.Fprintf(&b, "- Day %d: %+.1f%%\n", p.Day, p.DriftPercentage)
	}
	b.WriteString("\n**Computed Pattern Features:**\n")
	fmt.Fprintf(&b, "- Days Observed: %d\n", temporal.DurationDays)
	fmt.Fprintf(&b, "- Max Drift: %+.1f%%\n", temporal.MaxDrift)
	fmt.Fprintf(&b, "- Average Drift: %+.1f%%\n", temporal.AvgDrift)
	fmt.Fprintf(&b, "- Consistency Score: %.2f\n", consistency)
	fmt.Fprintf(&b, "- Trend: %s\n", trend.Description)
	fmt.Fprintf(&b, "- Accelerating: %s\n", yesNo(temporal.IsAccelerating))
	fmt.Fprintf(&b, "- Pre-classified Risk Level: %s\n", riskLevel)
	fmt.Fprintf(&b, "- Confidence: %.2f\n\n", confidence)

	b.WriteString(`**Your Task:**
Validate the pre-classified risk level and explain the pattern in plain language.

**Response Format:**

Risk Level: [temporary / needs_observation / potentially_concerning]

Reasoning: [3-4 sentences explaining what the duration, consistency and trend suggest]

Recommendations:
- [Monitoring suggestion 1]
- [Monitoring suggestion 2]

Use measured, probabilistic language. Never diagnose.`)
	return b.String()
}

// mergeResponse lets the completion response confirm an alternative tier
// only when it names one explicitly, and fills in reasoning prose.
func (a *RiskAgent) mergeResponse(out *models.RiskAssessment, text string) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "potentially_concerning") || strings.Contains(lower, "potentially concerning"):
		out.RiskLevel = models.RiskPotentiallyConcerning
	case strings.Contains(lower, "needs_observation") || strings.Contains(lower, "needs observation"):
		out.RiskLevel = models.RiskNeedsObservation
	case strings.Contains(lower, "temporary"):
		out.RiskLevel = models.RiskTemporary
	}

	if r := extractSection(text, "Reasoning:"); r != "" {
		out.Reasoning = r
	} else if p := firstParagraph(text, 100); p != "" {
		out.Reasoning = p
	} else {
		out.Reasoning = truncate(text, 500)
	}

	out.Recommendations = extractBulletsAfter(text, "Recommendations:", 3)
}
