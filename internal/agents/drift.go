package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const driftSystemInstruction = `You are a caring local doctor having a friendly chat with a patient. Explain health changes in the simplest way possible - like you're talking to a family member who doesn't know medical terms.

Rules:
- Use plain observations anyone can understand, not technical metric language
- Use probabilistic language: "may indicate", "suggests", "could be related to"
- Never name diseases or make medical diagnoses
- Say "talk to your doctor if this worries you" where appropriate
- Warm, conversational tone throughout`

// DriftAgent detects and explains numeric drift in a single metric or a set
// of correlated metrics. The severity pre-classification is deterministic;
// the completion service only supplies prose, and its severity mention can
// override the pre-classification only when it explicitly names a tier.
type DriftAgent struct {
	svc completion.Service
}

// NewDriftAgent builds the drift stage around a completion service.
func NewDriftAgent(svc completion.Service) *DriftAgent {
	return &DriftAgent{svc: svc}
}

// DriftInput carries one metric's numeric drift data into the drift stage.
type DriftInput struct {
	MetricName      string
	BaselineValue   float64
	RecentValue     float64
	DriftPercentage float64
	DaysObserved    int
	Profile         *models.UserProfile
}

// Analyze classifies a single metric's drift and enriches it with a
// natural-language explanation. On completion-service failure the numeric
// classification is still returned in the degraded payload so downstream
// stages can use it.
func (a *DriftAgent) Analyze(ctx context.Context, in DriftInput) models.DriftSummary {
	if !a.svc.Ready() {
		return driftFailure(completion.ErrNotConfigured.Error())
	}

	significant := IsSignificantDeviation(in.DriftPercentage)
	severity := ClassifySeverity(in.DriftPercentage)
	trend := TrendOf(in.DriftPercentage)

	prompt := a.buildPrompt(in, significant, severity, trend)
	response, err := a.svc.Complete(ctx, prompt, driftSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Str("metric", in.MetricName).Msg("drift stage completion failed")
		out := driftFailure(err.Error())
		out.AffectedFeatures = []string{in.MetricName}
		out.DriftPercentages = map[string]float64{in.MetricName: in.DriftPercentage}
		out.SeverityLevel = severity
		out.Trend = trend
		return out
	}

	out := a.parseResponse(response, severity)
	out.Success = true
	out.AffectedFeatures = []string{in.MetricName}
	out.DriftPercentages = map[string]float64{in.MetricName: in.DriftPercentage}
	out.Trend = trend
	return out
}

// AnalyzeMulti evaluates several metrics together, classifying overall
// severity from the maximum absolute drift and asking the completion
// service for cross-metric correlations.
func (a *DriftAgent) AnalyzeMulti(ctx context.Context, metrics []models.MetricDrift, profile *models.UserProfile) models.DriftSummary {
	if !a.svc.Ready() {
		return driftFailure(completion.ErrNotConfigured.Error())
	}

	features := make([]string, len(metrics))
	pcts := make(map[string]float64, len(metrics))
	maxDrift := 0.0
	for i, m := range metrics {
		features[i] = m.Name
		pcts[m.Name] = m.DriftPercentage
		if abs(m.DriftPercentage) > maxDrift {
			maxDrift = abs(m.DriftPercentage)
		}
	}
	severity := ClassifySeverity(maxDrift)

	prompt := a.buildMultiPrompt(metrics, profile, severity)
	response, err := a.svc.Complete(ctx, prompt, driftSystemInstruction)
	if err != nil {
		log.Warn().Err(err).Int("metrics", len(metrics)).Msg("multi-metric drift completion failed")
		out := driftFailure(err.Error())
		out.AffectedFeatures = features
		out.DriftPercentages = pcts
		out.SeverityLevel = severity
		return out
	}

	out := a.parseMultiResponse(response)
	out.Success = true
	out.AffectedFeatures = features
	out.DriftPercentages = pcts
	out.SeverityLevel = severity
	return out
}

func (a *DriftAgent) buildPrompt(in DriftInput, significant bool, severity models.Severity, trend models.Trend) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze this health metric drift pattern:\n\n")
	fmt.Fprintf(&b, "**Metric:** %s\n", titleCase(in.MetricName))
	fmt.Fprintf(&b, "**Baseline Value:** %g (initial measurement)\n", in.BaselineValue)
	fmt.Fprintf(&b, "**Recent Value:** %g (current measurement)\n", in.RecentValue)
	fmt.Fprintf(&b, "**Drift Percentage:** %+.1f%% (deviation from baseline)\n", in.DriftPercentage)
	fmt.Fprintf(&b, "**Days Observed:** %d\n", in.DaysObserved)
	fmt.Fprintf(&b, "**Trend Direction:** %s\n", trend)
	fmt.Fprintf(&b, "**Significant Deviation:** %s\n", yesNo(significant))
	fmt.Fprintf(&b, "**Pre-classified Severity:** %s\n\n", severity)

	writeProfile(&b, in.Profile)

	b.WriteString(`**Your Task:**
Provide a warm, user-friendly analysis of this pattern.

**Response Format:**

Explanation: [2-3 sentence interpretation using probabilistic language]

Contributing Factors:
- [Factor 1]
- [Factor 2]
- [Factor 3]

Recommendations:
- [Wellness suggestion 1]
- [Wellness suggestion 2]

**Critical Reminders:**
- ALWAYS use probabilistic language ("may", "suggests", "could", "might")
- NEVER diagnose or name diseases
- Make health data feel understandable and approachable`)
	return b.String()
}

func (a *DriftAgent) buildMultiPrompt(metrics []models.MetricDrift, profile *models.UserProfile, severity models.Severity) string {
	var b strings.Builder
	b.WriteString("Analyze these correlated health metric drift patterns:\n\n")
	for i, m := range metrics {
		fmt.Fprintf(&b, "**Metric %d: %s**\n", i+1, titleCase(m.Name))
		fmt.Fprintf(&b, "- Baseline: %g (initial measurement)\n", m.Baseline)
		fmt.Fprintf(&b, "- Recent: %g (current measurement)\n", m.Recent)
		fmt.Fprintf(&b, "- Drift: %+.1f%% (deviation from baseline)\n\n", m.DriftPercentage)
	}
	fmt.Fprintf(&b, "**Overall Pre-classified Severity:** %s\n\n", severity)
	writeProfile(&b, profile)

	b.WriteString(`**Your Task:**
Identify correlations between these drifts, verify overall severity, and give a SHORT explanation.

**Response Format:**

Severity: [low/moderate/high]

Explanation: [SHORT multi-metric explanation with probabilistic language]

Correlations:
- [Correlation 1]
- [Correlation 2]

Recommendations:
- [Holistic recommendation 1]
- [Holistic recommendation 2]

Use "may", "suggests", "could" language. No diagnosis or disease names.`)
	return b.String()
}

// parseResponse walks the extraction ladder for the single-metric response.
// The pre-classified severity stays in place unless the response explicitly
// names a tier keyword.
func (a *DriftAgent) parseResponse(text string, severity models.Severity) models.DriftSummary {
	out := models.DriftSummary{SeverityLevel: severity}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "high") || strings.Contains(lower, "severe"):
		out.SeverityLevel = models.SeverityHigh
	case strings.Contains(lower, "moderate"):
		out.SeverityLevel = models.SeverityModerate
	case strings.Contains(lower, "low") || strings.Contains(lower, "mild"):
		out.SeverityLevel = models.SeverityLow
	}

	if expl := extractSection(text, "Explanation:"); expl != "" {
		out.Explanation = expl
	} else if p := firstParagraph(text, 50); p != "" {
		out.Explanation = p
	} else {
		out.Explanation = truncate(text, 300)
	}

	out.Factors = extractBulletsAfter(text, "Factors:", 4)
	if recs := extractBulletsAfter(text, "Recommendations:", 3); len(recs) > 0 {
		out.Recommendations = recs
	} else {
		out.Recommendations = extractBulletsAfter(text, "Suggestions:", 3)
	}
	return out
}

func (a *DriftAgent) parseMultiResponse(text string) models.DriftSummary {
	out := models.DriftSummary{}
	if expl := extractSection(text, "Explanation:"); expl != "" {
		out.Explanation = expl
	} else if p := firstParagraph(text, 50); p != "" {
		out.Explanation = p
	} else {
		out.Explanation = truncate(text, 500)
	}
	out.Correlations = extractBulletsAfter(text, "Correlations:", 5)
	out.Recommendations = extractBulletsAfter(text, "Recommendations:", 3)
	return out
}

func driftFailure(errMsg string) models.DriftSummary {
	return models.DriftSummary{
		Success:          false,
		Error:            errMsg,
		AffectedFeatures: []string{},
		DriftPercentages: map[string]float64{},
		SeverityLevel:    models.SeverityUnknown,
		Trend:            models.TrendUnknown,
	}
}

func writeProfile(b *strings.Builder, p *models.UserProfile) {
	if p == nil {
		return
	}
	b.WriteString("**User Context:**\n")
	if p.Age > 0 {
		fmt.Fprintf(b, "- Age: %d\n", p.Age)
	}
	if p.Lifestyle != "" {
		fmt.Fprintf(b, "- Lifestyle: %s\n", p.Lifestyle)
	}
	b.WriteString("\n")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// titleCase uppercases the first letter of each underscore- or
// space-separated word ("avg_movement_speed" → "Avg Movement Speed").
func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
