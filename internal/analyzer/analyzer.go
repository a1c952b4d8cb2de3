// Package analyzer is the integration layer between stored health checks and
// the analysis pipeline. It derives baselines and drift histories from raw
// check records, runs the pipeline, and condenses the consolidated report
// into API-facing summaries and recommendations.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/internal/agents"
	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/internal/pipeline"
	"github.com/mediguard/driftai/internal/store"
	"github.com/mediguard/driftai/pkg/models"
)

// baselineWindow is how many of the earliest checks are averaged into the
// baseline. The baseline is fixed per analysis: every day's drift in one
// report is measured against the same number.
const baselineWindow = 5

// maxRecommendations caps the merged recommendation list.
const maxRecommendations = 5

// DefaultMetric is analyzed when a request names no metric.
const DefaultMetric = "avg_movement_speed"

// Analyzer runs full analyses against stored check data.
type Analyzer struct {
	store    store.Store
	pipeline *pipeline.Orchestrator
	svc      completion.Service
}

// New builds an analyzer over a store and an orchestrator.
func New(st store.Store, orch *pipeline.Orchestrator, svc completion.Service) *Analyzer {
	return &Analyzer{store: st, pipeline: orch, svc: svc}
}

// Analyze runs the full pipeline for one user and metric. days > 0 limits
// the analysis window to the newest N checks. Fewer than two stored checks
// yields a friendly no-data result instead of an error.
func (a *Analyzer) Analyze(ctx context.Context, userID, metricName string, days int, symptoms []string) models.AnalysisResult {
	if metricName == "" {
		metricName = DefaultMetric
	}

	checks, err := a.store.ListHealthChecks(ctx, userID, days)
	if err != nil {
		return models.AnalysisResult{Success: false, Error: fmt.Sprintf("load health checks: %v", err)}
	}

	series := metricSeries(checks, metricName)
	if len(series) < 2 {
		return models.AnalysisResult{
			Success: true,
			HasData: false,
			Message: "Not enough check-ins yet to analyze a trend. Keep up your daily checks and we'll have something to show you in a couple of days.",
		}
	}

	baseline := baselineOf(series)
	history, err := driftHistory(series, baseline)
	if err != nil {
		return models.AnalysisResult{Success: false, Error: err.Error()}
	}
	recent := series[len(series)-1].value

	profile, perr := a.store.GetUserProfile(ctx, userID)
	if perr != nil {
		profile = nil
	}

	report := a.pipeline.Run(ctx, pipeline.Request{
		UserID:       userID,
		MetricName:   metricName,
		Baseline:     baseline,
		Recent:       recent,
		DriftHistory: history,
		Symptoms:     symptoms,
		Profile:      profile,
	})

	summary := buildSummary(metricName, baseline, recent, &report)
	return models.AnalysisResult{
		Success:         report.Success,
		HasData:         true,
		Analysis:        &report,
		Summary:         summary,
		Recommendations: mergeRecommendations(&report),
		Error:           report.Error,
	}
}

// AnalyzeQuick runs the reduced drift-plus-care path on stored data.
func (a *Analyzer) AnalyzeQuick(ctx context.Context, userID, metricName string) models.QuickReport {
	if metricName == "" {
		metricName = DefaultMetric
	}

	checks, err := a.store.ListHealthChecks(ctx, userID, 0)
	if err != nil {
		return models.QuickReport{
			DriftSummary: models.DriftSummary{Success: false, Error: fmt.Sprintf("load health checks: %v", err)},
		}
	}
	series := metricSeries(checks, metricName)
	if len(series) < 2 {
		return models.QuickReport{
			Note: "Not enough check-ins yet for a quick read. Two days of data is all it takes.",
		}
	}

	return a.pipeline.Quick(ctx, pipeline.Request{
		UserID:     userID,
		MetricName: metricName,
		Baseline:   baselineOf(series),
		Recent:     series[len(series)-1].value,
	})
}

// AnalyzeMetrics runs multi-metric drift analysis over explicit
// baseline/recent pairs supplied by the caller.
func (a *Analyzer) AnalyzeMetrics(ctx context.Context, userID string, pairs []models.MetricDrift) (models.DriftSummary, error) {
	drifts := make([]models.MetricDrift, 0, len(pairs))
	for _, p := range pairs {
		pct, err := agents.DriftPercent(p.Baseline, p.Recent)
		if err != nil {
			return models.DriftSummary{}, fmt.Errorf("metric %s: %w", p.Name, err)
		}
		p.DriftPercentage = pct
		drifts = append(drifts, p)
	}

	profile, err := a.store.GetUserProfile(ctx, userID)
	if err != nil {
		profile = nil
	}

	drift := agents.NewDriftAgent(a.svc)
	return drift.AnalyzeMulti(ctx, drifts, profile), nil
}

// Chat answers a free-form question grounded in a fresh analysis of the
// user's data. Falls back to the plain summary sentence when the completion
// service cannot phrase a response.
func (a *Analyzer) Chat(ctx context.Context, userID, message string) models.ChatResponse {
	result := a.Analyze(ctx, userID, DefaultMetric, 0, nil)
	if !result.HasData {
		return models.ChatResponse{
			Success:  true,
			Response: result.Message,
		}
	}
	if result.Analysis == nil {
		return models.ChatResponse{Success: false, Error: result.Error}
	}

	grounding := summarySentence(result.Summary)
	if !a.svc.Ready() {
		return models.ChatResponse{Success: true, Response: grounding, Analysis: result.Analysis}
	}

	prompt := fmt.Sprintf(`A user asked: %q

Their latest analysis found: %s
Risk level: %s. Escalation suggested: %v.

Answer their question in 2-4 warm, plain sentences grounded in this analysis. Use "may" and "could" language. Never diagnose.`,
		message, grounding, result.Analysis.RiskAssessment.RiskLevel, result.Analysis.SafetyNotice.EscalationRequired)

	response, err := a.svc.Complete(ctx, prompt, "You are a caring health companion. Plain language, no diagnosis, no disease names.")
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("chat phrasing failed, returning summary")
		return models.ChatResponse{Success: true, Response: grounding, Analysis: result.Analysis}
	}
	return models.ChatResponse{Success: true, Response: strings.TrimSpace(response), Analysis: result.Analysis}
}

// ── derivation helpers ───────────────────────────────────────

type seriesPoint struct {
	date  string
	value float64
}

// metricSeries extracts the ordered values of one metric, skipping checks
// that did not record it.
func metricSeries(checks []models.HealthCheck, metricName string) []seriesPoint {
	var out []seriesPoint
	for _, c := range checks {
		if v, ok := c.Metric(metricName); ok {
			out = append(out, seriesPoint{date: c.CheckDate.Format("2006-01-02"), value: v})
		}
	}
	return out
}

// baselineOf averages the earliest baselineWindow values.
func baselineOf(series []seriesPoint) float64 {
	n := len(series)
	if n > baselineWindow {
		n = baselineWindow
	}
	sum := 0.0
	for _, p := range series[:n] {
		sum += p.value
	}
	return sum / float64(n)
}

// driftHistory computes each day's drift against the one fixed baseline.
func driftHistory(series []seriesPoint, baseline float64) ([]models.DriftPoint, error) {
	out := make([]models.DriftPoint, 0, len(series))
	for i, p := range series {
		pct, err := agents.DriftPercent(baseline, p.value)
		if err != nil {
			return nil, err
		}
		out = append(out, models.DriftPoint{
			Day:             i + 1,
			Date:            p.date,
			Value:           p.value,
			DriftPercentage: pct,
		})
	}
	return out, nil
}

func buildSummary(metricName string, baseline, recent float64, report *models.ConsolidatedReport) *models.AnalysisSummary {
	pct := 0.0
	if v, ok := report.DriftSummary.DriftPercentages[metricName]; ok {
		pct = v
	}
	return &models.AnalysisSummary{
		MetricName:       metricName,
		BaselineValue:    baseline,
		RecentValue:      recent,
		DriftPercentage:  pct,
		Severity:         report.DriftSummary.SeverityLevel,
		Trend:            report.DriftSummary.Trend,
		RiskLevel:        report.RiskAssessment.RiskLevel,
		EscalationNeeded: report.SafetyNotice.EscalationRequired,
		PossibleFactors:  report.ContextualExplanation.PossibleFactors,
		Confidence:       report.RiskAssessment.ConfidenceScore,
	}
}

func summarySentence(s *models.AnalysisSummary) string {
	if s == nil {
		return "Your analysis did not produce a summary this time."
	}
	return fmt.Sprintf("Your %s moved %+.1f%% from its baseline of %.1f, a %s change with a %s trend (risk: %s).",
		strings.ReplaceAll(s.MetricName, "_", " "), s.DriftPercentage, s.BaselineValue,
		s.Severity, s.Trend, s.RiskLevel)
}

// mergeRecommendations takes the care stage's top suggestions plus the
// context stage's top lifestyle adjustments, prepending an escalation warning
// when the safety gate fired. Capped at maxRecommendations.
func mergeRecommendations(report *models.ConsolidatedReport) []string {
	var out []string
	if report.SafetyNotice.EscalationRequired {
		out = append(out, "⚠️ "+report.SafetyNotice.SafetyMessage)
	}
	for i, r := range report.CareGuidance.GuidanceList {
		if i == 3 {
			break
		}
		out = append(out, r)
	}
	for i, r := range report.ContextualExplanation.Recommendations {
		if i == 2 {
			break
		}
		out = append(out, r)
	}
	if len(out) > maxRecommendations {
		out = out[:maxRecommendations]
	}
	return out
}
