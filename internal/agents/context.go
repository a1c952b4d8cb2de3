package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const contextSystemInstruction = `You are a thoughtful health companion who connects a person's lifestyle to changes in their health measurements. You never diagnose. You suggest plausible everyday explanations.

Rules:
- Connect lifestyle details (sleep, stress, activity, workload) to the observed change
- Use probabilistic language: "may explain", "could contribute", "might be related"
- Never name diseases or claim certainty
- Keep explanations warm and easy to follow`

// ContextSource provides stored lifestyle context for a user. The agent only
// needs the one read; the full store interface stays out of this package.
type ContextSource interface {
	GetUserContext(ctx context.Context, userID string) (*models.UserContext, error)
}

// ContextAgent explains why a drift may have happened by correlating it with
// the user's stored lifestyle context. When no context is available it falls
// back to population defaults and caps its confidence accordingly.
type ContextAgent struct {
	svc    completion.Service
	source ContextSource
}

// NewContextAgent builds the context stage.
func NewContextAgent(svc completion.Service, source ContextSource) *ContextAgent {
	return &ContextAgent{svc: svc, source: source}
}

// defaultConfidenceCap limits confidence when the analysis ran on default
// context rather than the user's own.
const defaultConfidenceCap = 0.6

// AnalyzeWithContext produces a lifestyle-grounded explanation for the drift
// summary. There is no rule-based fallback at this stage; a completion
// failure yields a failed result and the pipeline carries on without it.
func (a *ContextAgent) AnalyzeWithContext(ctx context.Context, userID string, drift models.DriftSummary) models.ContextExplanation {
	if !a.svc.Ready() {
		return contextFailure(completion.ErrNotConfigured.Error())
	}

	userCtx, usedDefault := a.loadContext(ctx, userID)

	prompt := a.buildPrompt(drift, userCtx, usedDefault)
	response, err := a.svc.Complete(ctx, prompt, contextSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("context stage completion failed")
		return contextFailure(err.Error())
	}

	out := a.parseResponse(response)
	out.Success = true
	if usedDefault && out.ConfidenceLevel > defaultConfidenceCap {
		out.ConfidenceLevel = defaultConfidenceCap
	}
	return out
}

// QuickCheck asks for a one-paragraph contextual read without the full
// structured format. Used by the quick analysis path.
func (a *ContextAgent) QuickCheck(ctx context.Context, userID string, metricName string, driftPct float64) models.ContextExplanation {
	if !a.svc.Ready() {
		return contextFailure(completion.ErrNotConfigured.Error())
	}

	userCtx, usedDefault := a.loadContext(ctx, userID)

	var b strings.Builder
	fmt.Fprintf(&b, "A user's %s changed by %+.1f%% from their baseline.\n\n", titleCase(metricName), driftPct)
	writeUserContext(&b, userCtx)
	b.WriteString("\nIn 2-3 sentences, suggest what everyday factors might explain this change. Use \"may\" and \"could\" language. Do not diagnose.")

	response, err := a.svc.Complete(ctx, b.String(), contextSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("quick context check failed")
		return contextFailure(err.Error())
	}

	out := models.ContextExplanation{
		Success:         true,
		Explanation:     strings.TrimSpace(truncate(response, 500)),
		ConfidenceLevel: 0.5,
	}
	if usedDefault {
		out.ConfidenceLevel = 0.4
	}
	return out
}

// loadContext fetches the user's stored context, substituting population
// defaults when the lookup fails or returns nothing.
func (a *ContextAgent) loadContext(ctx context.Context, userID string) (*models.UserContext, bool) {
	if a.source == nil {
		return models.DefaultUserContext(), true
	}
	userCtx, err := a.source.GetUserContext(ctx, userID)
	if err != nil || userCtx == nil {
		if err != nil {
			log.Debug().Err(err).Str("user_id", userID).Msg("user context unavailable, using defaults")
		}
		return models.DefaultUserContext(), true
	}
	return userCtx, false
}

func (a *ContextAgent) buildPrompt(drift models.DriftSummary, userCtx *models.UserContext, usedDefault bool) string {
	var b strings.Builder
	b.WriteString("Explain what might have caused this health metric change:\n\n")
	fmt.Fprintf(&b, "**Affected Metrics:** %s\n", strings.Join(drift.AffectedFeatures, ", "))
	for name, pct := range drift.DriftPercentages {
		fmt.Fprintf(&b, "- %s drifted %+.1f%%\n", titleCase(name), pct)
	}
	fmt.Fprintf(&b, "**Severity:** %s\n", drift.SeverityLevel)
	if drift.Explanation != "" {
		fmt.Fprintf(&b, "**Drift Analysis:** %s\n", truncate(drift.Explanation, 300))
	}
	b.WriteString("\n")

	writeUserContext(&b, userCtx)
	if usedDefault {
		b.WriteString("(No personal context on file; these are typical population defaults.)\n")
	}

	b.WriteString(`
**Your Task:**
Connect the lifestyle context above to the observed change.

**Response Format:**

Contextual Explanation: [2-4 sentences linking lifestyle to the change]

Possible Factors:
- [Factor 1]
- [Factor 2]
- [Factor 3]

Confidence Level: [0.0-1.0 based on how well the context explains the change]

Recommendations:
- [Lifestyle adjustment 1]
- [Lifestyle adjustment 2]

Use probabilistic language throughout. Never diagnose.`)
	return b.String()
}

func (a *ContextAgent) parseResponse(text string) models.ContextExplanation {
	out := models.ContextExplanation{}

	if expl := extractSection(text, "Contextual Explanation:"); expl != "" {
		out.Explanation = expl
	} else if p := firstParagraph(text, 100); p != "" {
		out.Explanation = p
	} else {
		out.Explanation = truncate(text, 500)
	}

	out.PossibleFactors = extractBulletsAfter(text, "Possible Factors:", 5)
	out.Recommendations = extractBulletsAfter(text, "Recommendations:", 3)

	if conf, ok := extractConfidence(text, "Confidence Level:"); ok {
		out.ConfidenceLevel = conf
	} else {
		out.ConfidenceLevel = 0.5
	}
	return out
}

func contextFailure(errMsg string) models.ContextExplanation {
	return models.ContextExplanation{
		Success:         false,
		Error:           errMsg,
		PossibleFactors: []string{},
		ConfidenceLevel: 0,
	}
}

func writeUserContext(b *strings.Builder, c *models.UserContext) {
	b.WriteString("**Lifestyle Context:**\n")
	fmt.Fprintf(b, "- Average Sleep: %.1f hours/night\n", c.SleepHours)
	fmt.Fprintf(b, "- Stress Level: %s\n", c.StressLevel)
	fmt.Fprintf(b, "- Activity Level: %s\n", c.ActivityLevel)
	fmt.Fprintf(b, "- Typical Workload: %s\n", c.Workload)
	if c.MedicalSummary != "" {
		fmt.Fprintf(b, "- Health Notes: %s\n", truncate(c.MedicalSummary, 300))
	}
	if c.KnownConditions != "" {
		fmt.Fprintf(b, "- Known Conditions: %s\n", truncate(c.KnownConditions, 200))
	}
	b.WriteString("\n")
}
