// Package pipeline runs the five analysis stages in order and consolidates
// their results into a single report. The orchestrator tolerates individual
// stage failures: downstream stages consume whatever the failed stage left
// in its degraded payload, and only a run with too many failed stages is
// marked partial.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mediguard/driftai/internal/agents"
	"github.com/mediguard/driftai/internal/completion"
	"github.com/mediguard/driftai/pkg/models"
)

const pipelineName = "health-drift-analysis"

// minSuccessfulAgents is the consolidation policy: a run counts as an
// overall success when at least this many of the five stages succeeded and
// the drift stage itself is among them.
const minSuccessfulAgents = 4

var executionOrder = []string{"drift", "context", "risk", "safety", "care"}

// Request carries everything one full pipeline run needs.
type Request struct {
	UserID       string
	MetricName   string
	Baseline     float64
	Recent       float64
	DriftHistory []models.DriftPoint
	Symptoms     []string
	Profile      *models.UserProfile
}

// Orchestrator wires the five stage agents together.
type Orchestrator struct {
	svc     completion.Service
	drift   *agents.DriftAgent
	context *agents.ContextAgent
	risk    *agents.RiskAgent
	safety  *agents.SafetyAgent
	care    *agents.CareAgent
}

// New builds an orchestrator with all five stages sharing one completion
// service. contexts may be nil, in which case the context stage runs on
// population defaults.
func New(svc completion.Service, contexts agents.ContextSource) *Orchestrator {
	return &Orchestrator{
		svc:     svc,
		drift:   agents.NewDriftAgent(svc),
		context: agents.NewContextAgent(svc, contexts),
		risk:    agents.NewRiskAgent(svc),
		safety:  agents.NewSafetyAgent(svc),
		care:    agents.NewCareAgent(svc),
	}
}

// Run executes the full five-stage analysis. Stages run sequentially because
// each consumes the previous stage's typed result. An unconfigured
// completion service short-circuits before any stage runs.
func (o *Orchestrator) Run(ctx context.Context, req Request) models.ConsolidatedReport {
	ctx, span := otel.Tracer(pipelineName).Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("user_id", req.UserID),
		attribute.String("metric", req.MetricName),
	)

	report := models.ConsolidatedReport{
		ReportID: uuid.NewString(),
		Metadata: models.PipelineMetadata{ExecutionOrder: executionOrder},
	}

	if !o.svc.Ready() {
		report.Error = completion.ErrNotConfigured.Error()
		return report
	}

	driftPct := 0.0
	if pct, err := agents.DriftPercent(req.Baseline, req.Recent); err == nil {
		driftPct = pct
	} else {
		report.Error = err.Error()
		return report
	}

	// A lone baseline/recent pair still counts as one day of observation.
	days := len(req.DriftHistory)
	if days == 0 {
		days = 1
	}

	// Stage 1: drift detection.
	report.DriftSummary = o.drift.Analyze(ctx, agents.DriftInput{
		MetricName:      req.MetricName,
		BaselineValue:   req.Baseline,
		RecentValue:     req.Recent,
		DriftPercentage: driftPct,
		DaysObserved:    days,
		Profile:         req.Profile,
	})

	// Stage 2: contextual explanation.
	report.ContextualExplanation = o.context.AnalyzeWithContext(ctx, req.UserID, report.DriftSummary)

	// Stage 3: risk over time. With no usable history the stage degrades to
	// a static single-measurement assessment instead of failing the run.
	if len(req.DriftHistory) >= 2 {
		report.RiskAssessment = o.risk.AnalyzeOverTime(ctx, req.MetricName, req.DriftHistory)
	} else {
		report.RiskAssessment = singlePointRisk(days)
	}

	// Stage 4: safety gate.
	report.SafetyNotice = o.safety.Evaluate(ctx, report.DriftSummary, report.RiskAssessment, req.Symptoms)

	// Stage 5: care guidance.
	report.CareGuidance = o.care.GenerateGuidance(ctx, report.DriftSummary, report.ContextualExplanation, report.RiskAssessment, report.SafetyNotice)

	o.consolidate(&report)

	log.Info().
		Str("report_id", report.ReportID).
		Str("user_id", req.UserID).
		Int("agents_successful", report.Metadata.AgentsSuccessful).
		Bool("escalation", report.SafetyNotice.EscalationRequired).
		Msg("🩺 pipeline run complete")
	return report
}

// Quick runs only drift detection plus basic care guidance, for the
// low-latency endpoint.
func (o *Orchestrator) Quick(ctx context.Context, req Request) models.QuickReport {
	ctx, span := otel.Tracer(pipelineName).Start(ctx, "pipeline.quick")
	defer span.End()

	out := models.QuickReport{
		Note: "Quick analysis: drift detection and care guidance only. Run a full analysis for risk and safety review.",
	}

	driftPct, err := agents.DriftPercent(req.Baseline, req.Recent)
	if err != nil {
		out.DriftSummary = models.DriftSummary{Success: false, Error: err.Error(), SeverityLevel: models.SeverityUnknown}
		return out
	}

	out.DriftSummary = o.drift.Analyze(ctx, agents.DriftInput{
		MetricName:      req.MetricName,
		BaselineValue:   req.Baseline,
		RecentValue:     req.Recent,
		DriftPercentage: driftPct,
		Profile:         req.Profile,
	})
	out.CareGuidance = o.care.GenerateGuidance(ctx, out.DriftSummary,
		models.ContextExplanation{}, models.RiskAssessment{RiskLevel: models.RiskUnknown}, models.SafetyNotice{})
	out.Success = out.DriftSummary.Success
	return out
}

// Status reports pipeline readiness for the status endpoint.
func (o *Orchestrator) Status() models.AgentStatus {
	state := "ready"
	if !o.svc.Ready() {
		state = "not_configured"
	}
	stages := make(map[string]string, len(executionOrder))
	for _, name := range executionOrder {
		stages[name] = state
	}
	return models.AgentStatus{
		PipelineName:   pipelineName,
		TotalAgents:    len(executionOrder),
		ServiceReady:   o.svc.Ready(),
		Agents:         stages,
		ExecutionOrder: executionOrder,
	}
}

// consolidate derives run metadata and the overall success flag. Drift is
// load-bearing: a failed drift stage fails the run no matter how many of the
// other stages recovered.
func (o *Orchestrator) consolidate(report *models.ConsolidatedReport) {
	successes := 0
	for _, ok := range []bool{
		report.DriftSummary.Success,
		report.ContextualExplanation.Success,
		report.RiskAssessment.Success,
		report.SafetyNotice.Success,
		report.CareGuidance.Success,
	} {
		if ok {
			successes++
		}
	}

	report.Metadata.AgentsExecuted = len(executionOrder)
	report.Metadata.AgentsSuccessful = successes

	// Completion status tracks the overall verdict, not stage unanimity: a
	// run that absorbed one failed stage is still complete.
	report.Success = report.DriftSummary.Success && successes >= minSuccessfulAgents
	if report.Success {
		report.Metadata.CompletionStatus = models.CompletionComplete
	} else {
		report.Metadata.CompletionStatus = models.CompletionPartial
	}

	if !report.Success && report.Error == "" {
		if !report.DriftSummary.Success {
			report.Error = "drift detection failed: " + report.DriftSummary.Error
		} else {
			report.Error = "too many stages failed to produce a reliable report"
		}
	}
}

// singlePointRisk is the static assessment used when fewer than two history
// points exist. It is not a stage failure; it counts as a success so a brand
// new user can still get a complete first report.
func singlePointRisk(days int) models.RiskAssessment {
	return models.RiskAssessment{
		Success:          true,
		RiskLevel:        models.RiskTemporary,
		TrendDescription: "Single measurement - trend not yet established",
		ConfidenceScore:  0.3,
		Reasoning:        "Only one measurement is available, so no trend can be read yet. Early changes are treated as temporary until a few more days of data arrive.",
		DaysObserved:     days,
		ConsistencyScore: 0,
		Recommendations:  []string{"Continue daily monitoring to establish trend"},
	}
}
