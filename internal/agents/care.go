package agents

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const careSystemInstruction = `You are a supportive wellness coach. You turn health analysis into small, doable daily suggestions. You never diagnose or prescribe.

Rules:
- Suggestions must be general wellness actions (sleep, movement, hydration, stress)
- Match the requested tone exactly
- Never name diseases, medications or treatments
- Keep each suggestion to one sentence`

// CareAgent turns the upstream stage results into actionable guidance. Tone
// selection is deterministic; the completion service writes the suggestions
// and a rule-based list stands in when it cannot.
type CareAgent struct {
	svc completion.Service
}

// NewCareAgent builds the care stage.
func NewCareAgent(svc completion.Service) *CareAgent {
	return &CareAgent{svc: svc}
}

// SelectTone is cautious when severity is moderate or high, the risk tier is
// potentially_concerning, or the trend is worsening. Reassuring otherwise.
func SelectTone(severity models.Severity, riskLevel models.RiskLevel, isWorsening bool) models.Tone {
	if severity == models.SeverityModerate || severity == models.SeverityHigh {
		return models.ToneCautious
	}
	if riskLevel == models.RiskPotentiallyConcerning || isWorsening {
		return models.ToneCautious
	}
	return models.ToneReassuring
}

// GenerateGuidance produces the final guidance list. On completion failure
// it degrades to the rule-based suggestion set with the tone preserved.
func (a *CareAgent) GenerateGuidance(ctx context.Context, drift models.DriftSummary, contextual models.ContextExplanation, risk models.RiskAssessment, safety models.SafetyNotice) models.CareGuidance {
	tone := SelectTone(drift.SeverityLevel, risk.RiskLevel, risk.IsWorsening)

	if !a.svc.Ready() {
		return a.ruleBasedGuidance(tone, completion.ErrNotConfigured.Error())
	}

	prompt := a.buildPrompt(drift, contextual, risk, safety, tone)
	response, err := a.svc.Complete(ctx, prompt, careSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Msg("care stage completion failed, using rule-based guidance")
		return a.ruleBasedGuidance(tone, err.Error())
	}

	out := a.parseResponse(response, tone)
	out.Success = true
	out.Disclaimer = StandardDisclaimer
	return out
}

func (a *CareAgent) buildPrompt(drift models.DriftSummary, contextual models.ContextExplanation, risk models.RiskAssessment, safety models.SafetyNotice, tone models.Tone) string {
	var b strings.Builder
	b.WriteString("Create care guidance from this analysis:\n\n")
	b.WriteString("**Drift Summary:** ")
	b.WriteString(truncate(drift.Explanation, 300))
	b.WriteString("\n")
	if contextual.Explanation != "" {
		b.WriteString("**Likely Context:** ")
		b.WriteString(truncate(contextual.Explanation, 300))
		b.WriteString("\n")
	}
	b.WriteString("**Risk Level:** ")
	b.WriteString(string(risk.RiskLevel))
	b.WriteString("\n**Escalation Suggested:** ")
	b.WriteString(yesNo(safety.EscalationRequired))
	b.WriteString("\n**Required Tone:** ")
	b.WriteString(string(tone))
	b.WriteString("\n")

	b.WriteString(`
**Your Task:**
Write practical daily wellness guidance in the required tone.

**Response Format:**

Guidance Suggestions:
- [Suggestion 1]
- [Suggestion 2]
- [Suggestion 3]
- [Suggestion 4]

Follow-Up Monitoring: [one sentence on what to keep an eye on]

Rationale: [1-2 sentences on why these suggestions fit this pattern]

General wellness only. No diagnosis, no medication, no treatment.`)
	return b.String()
}

func (a *CareAgent) parseResponse(text string, tone models.Tone) models.CareGuidance {
	out := models.CareGuidance{Tone: tone}

	out.GuidanceList = extractBulletsAfter(text, "Guidance Suggestions:", 6)
	if len(out.GuidanceList) == 0 {
		out.GuidanceList = ruleBasedSuggestions(tone)
	}

	if f := extractSection(text, "Follow-Up Monitoring:"); f != "" {
		out.FollowUpSuggestion = f
	} else if f := extractSection(text, "Follow-up Monitoring:"); f != "" {
		out.FollowUpSuggestion = f
	} else {
		out.FollowUpSuggestion = "Keep up your daily check-ins so any change in the trend is caught early."
	}

	if r := extractSection(text, "Rationale:"); r != "" {
		out.Rationale = r
	} else {
		out.Rationale = "Suggestions are matched to the observed drift pattern and your recent trend."
	}
	return out
}

// ruleBasedGuidance is the degraded path with canned suggestions per tone.
func (a *CareAgent) ruleBasedGuidance(tone models.Tone, errMsg string) models.CareGuidance {
	return models.CareGuidance{
		Success:            false,
		Error:              errMsg,
		GuidanceList:       ruleBasedSuggestions(tone),
		Tone:               tone,
		FollowUpSuggestion: "Keep up your daily check-ins so any change in the trend is caught early.",
		Rationale:          "General wellness guidance based on the detected pattern.",
		Disclaimer:         StandardDisclaimer,
	}
}

func ruleBasedSuggestions(tone models.Tone) []string {
	base := []string{
		"Aim for a consistent sleep schedule with 7-8 hours per night",
		"Take short movement breaks through the day, even a 10 minute walk helps",
		"Stay hydrated and keep regular meal times",
		"Set aside a few minutes for something that relaxes you",
	}
	if tone == models.ToneCautious {
		return append(base,
			"Pay a little extra attention to how you feel over the next few days",
			"If these changes continue or you notice symptoms, consider checking in with your doctor",
		)
	}
	return append(base, "Your pattern looks stable, so keep doing what works for you")
}
