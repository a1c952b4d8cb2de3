// Package models defines the data model for the MediGuard Drift AI analysis
// plane: stored health records, derived drift series, and the typed result
// structs each pipeline stage produces.
//
// Stage results are the contract between pipeline stages. Earlier designs
// passed loosely-keyed maps between stages; every cross-stage read is now a
// struct field so shape mismatches fail at compile time.
package models

import (
	"time"
)

// ── Enumerations ─────────────────────────────────────────────

// Severity classifies the magnitude of a single drift measurement.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityUnknown  Severity = "unknown"
)

// RiskLevel classifies the persistence and trend of a drift pattern
// over multiple days.
type RiskLevel string

const (
	RiskTemporary             RiskLevel = "temporary"
	RiskNeedsObservation      RiskLevel = "needs_observation"
	RiskPotentiallyConcerning RiskLevel = "potentially_concerning"
	RiskUnknown               RiskLevel = "unknown"
)

// Trend describes the direction of a single metric relative to baseline.
type Trend string

const (
	TrendDeclining Trend = "declining"
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendUnknown   Trend = "unknown"
)

// Urgency is the suggested timeframe for acting on a safety notice.
type Urgency string

const (
	UrgencyRoutine Urgency = "routine"
	UrgencyPrompt  Urgency = "prompt"
	UrgencyUrgent  Urgency = "urgent"
)

// Tone selects the voice of care guidance.
type Tone string

const (
	ToneReassuring Tone = "reassuring"
	ToneCautious   Tone = "cautious"
)

// ── Stored records ───────────────────────────────────────────

// HealthCheck is one day of camera-derived movement metrics for a user.
// Immutable once stored; the analyzer reads ordered sequences of these to
// build drift histories.
type HealthCheck struct {
	ID        string             `json:"id"`
	UserID    string             `json:"user_id"`
	CheckDate time.Time          `json:"check_date"`
	Metrics   map[string]float64 `json:"metrics"`
	CreatedAt time.Time          `json:"created_at"`
}

// Metric returns the named metric value and whether it was recorded that day.
func (h *HealthCheck) Metric(name string) (float64, bool) {
	v, ok := h.Metrics[name]
	return v, ok
}

// UserContext is the lifestyle context record backing the context stage.
type UserContext struct {
	UserID          string    `json:"user_id"`
	SleepHours      float64   `json:"sleep_hours"`
	StressLevel     string    `json:"stress_level"`
	Workload        string    `json:"workload"`
	ActivityLevel   string    `json:"activity_level"`
	MedicalSummary  string    `json:"medical_summary"`
	KnownConditions string    `json:"known_conditions"`
	ReportSummary   string    `json:"report_summary"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultUserContext is substituted when a user has no stored context.
// The context stage caps its confidence at 0.6 when this is used.
func DefaultUserContext() *UserContext {
	return &UserContext{
		SleepHours:    7.0,
		StressLevel:   "medium",
		Workload:      "moderate",
		ActivityLevel: "moderate",
	}
}

// UserProfile holds the demographic fields embedded in prompts.
type UserProfile struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name,omitempty"`
	Age       int    `json:"age,omitempty"`
	Lifestyle string `json:"lifestyle,omitempty"`
}

// ── Derived drift series ─────────────────────────────────────

// DriftPoint is one day of derived drift relative to a fixed baseline.
// Never persisted; always recomputed from the same baseline within a report.
type DriftPoint struct {
	Day             int     `json:"day"`
	Date            string  `json:"date,omitempty"`
	Value           float64 `json:"value"`
	DriftPercentage float64 `json:"drift_percentage"`
}

// MetricDrift is one metric's baseline/recent pair for multi-metric analysis.
type MetricDrift struct {
	Name            string  `json:"name"`
	Baseline        float64 `json:"baseline"`
	Recent          float64 `json:"recent"`
	DriftPercentage float64 `json:"drift_percentage"`
}

// ── Stage results ────────────────────────────────────────────

// DriftSummary is the drift stage output. The numeric severity classification
// is always populated, even on degraded paths, so downstream rule-based
// fallbacks can still consume it.
type DriftSummary struct {
	Success          bool               `json:"success"`
	Error            string             `json:"error,omitempty"`
	AffectedFeatures []string           `json:"affected_features"`
	DriftPercentages map[string]float64 `json:"drift_percentages"`
	SeverityLevel    Severity           `json:"severity_level"`
	Explanation      string             `json:"explanation"`
	Factors          []string           `json:"factors"`
	Recommendations  []string           `json:"recommendations"`
	Correlations     []string           `json:"correlations,omitempty"`
	Trend            Trend              `json:"trend"`
}

// MaxAbsDrift returns the largest absolute drift percentage across features.
func (d *DriftSummary) MaxAbsDrift() float64 {
	max := 0.0
	for _, v := range d.DriftPercentages {
		if v < 0 {
			v = -v
		}
		if v > max {
			max = v
		}
	}
	return max
}

// ContextExplanation is the context stage output.
type ContextExplanation struct {
	Success         bool     `json:"success"`
	Error           string   `json:"error,omitempty"`
	PossibleFactors []string `json:"possible_factors"`
	Explanation     string   `json:"contextual_explanation"`
	ConfidenceLevel float64  `json:"confidence_level"`
	Recommendations []string `json:"recommendations"`
}

// RiskAssessment is the risk stage output. The numeric fields (risk level,
// consistency, confidence, trend) never depend on the completion service.
type RiskAssessment struct {
	Success          bool      `json:"success"`
	Error            string    `json:"error,omitempty"`
	RiskLevel        RiskLevel `json:"risk_level"`
	TrendDescription string    `json:"trend_description"`
	ConfidenceScore  float64   `json:"confidence_score"`
	Reasoning        string    `json:"reasoning"`
	DaysObserved     int       `json:"days_observed"`
	ConsistencyScore float64   `json:"consistency_score"`
	IsWorsening      bool      `json:"is_worsening"`
	Recommendations  []string  `json:"recommendations"`
}

// SafetyNotice is the safety stage output. Disclaimer is always populated,
// whichever path produced the notice.
type SafetyNotice struct {
	Success            bool     `json:"success"`
	Error              string   `json:"error,omitempty"`
	EscalationRequired bool     `json:"escalation_required"`
	SafetyMessage      string   `json:"safety_message"`
	Rationale          string   `json:"rationale"`
	UrgencyLevel       Urgency  `json:"urgency_level"`
	Disclaimer         string   `json:"disclaimer"`
	NextSteps          []string `json:"next_steps"`
	TriggeredRules     []string `json:"triggered_rules,omitempty"`
}

// CareGuidance is the care stage output.
type CareGuidance struct {
	Success            bool     `json:"success"`
	Error              string   `json:"error,omitempty"`
	GuidanceList       []string `json:"guidance_list"`
	Tone               Tone     `json:"tone"`
	FollowUpSuggestion string   `json:"follow_up_suggestion"`
	Rationale          string   `json:"rationale"`
	Disclaimer         string   `json:"disclaimer"`
}

// ── Pipeline outputs ─────────────────────────────────────────

// Completion status values for PipelineMetadata.
const (
	CompletionComplete = "complete"
	CompletionPartial  = "partial"
)

// PipelineMetadata records execution details of one orchestration run.
type PipelineMetadata struct {
	AgentsExecuted   int      `json:"agents_executed"`
	AgentsSuccessful int      `json:"agents_successful"`
	ExecutionOrder   []string `json:"execution_order"`
	CompletionStatus string   `json:"completion_status,omitempty"`
}

// ConsolidatedReport is the union of all five stage results plus run
// metadata. Success is derived: true iff at least four of the five stages
// succeeded AND the drift stage itself succeeded (drift is load-bearing for
// every downstream rule-based fallback).
type ConsolidatedReport struct {
	ReportID              string             `json:"report_id,omitempty"`
	Success               bool               `json:"success"`
	Error                 string             `json:"error,omitempty"`
	DriftSummary          DriftSummary       `json:"drift_summary"`
	ContextualExplanation ContextExplanation `json:"contextual_explanation"`
	RiskAssessment        RiskAssessment     `json:"risk_assessment"`
	SafetyNotice          SafetyNotice       `json:"safety_notice"`
	CareGuidance          CareGuidance       `json:"care_guidance"`
	Metadata              PipelineMetadata   `json:"pipeline_metadata"`
}

// QuickReport is the reduced shape returned by the quick path: drift
// detection plus basic care guidance, no risk/safety/context stages.
type QuickReport struct {
	Success      bool         `json:"success"`
	DriftSummary DriftSummary `json:"drift_summary"`
	CareGuidance CareGuidance `json:"care_guidance"`
	Note         string       `json:"note"`
}

// ── Analyzer outputs ─────────────────────────────────────────

// AnalysisSummary is the UI-facing condensation of a ConsolidatedReport.
type AnalysisSummary struct {
	MetricName       string    `json:"metric_name"`
	BaselineValue    float64   `json:"baseline_value"`
	RecentValue      float64   `json:"recent_value"`
	DriftPercentage  float64   `json:"drift_percentage"`
	Severity         Severity  `json:"severity"`
	Trend            Trend     `json:"trend"`
	RiskLevel        RiskLevel `json:"risk_level"`
	EscalationNeeded bool      `json:"escalation_needed"`
	PossibleFactors  []string  `json:"possible_factors"`
	Confidence       float64   `json:"confidence"`
	Message          string    `json:"message,omitempty"`
}

// AnalysisResult is what the analyzer returns to the API layer.
type AnalysisResult struct {
	Success         bool                `json:"success"`
	HasData         bool                `json:"has_data"`
	Analysis        *ConsolidatedReport `json:"analysis,omitempty"`
	Summary         *AnalysisSummary    `json:"summary,omitempty"`
	Recommendations []string            `json:"recommendations"`
	Error           string              `json:"error,omitempty"`
	Message         string              `json:"message,omitempty"`
}

// ChatResponse is a conversational answer grounded in a fresh analysis.
type ChatResponse struct {
	Success  bool                `json:"success"`
	Response string              `json:"response"`
	Analysis *ConsolidatedReport `json:"analysis,omitempty"`
	Error    string              `json:"error,omitempty"`
}

// AgentStatus reports the readiness of the pipeline and its agents.
type AgentStatus struct {
	PipelineName   string            `json:"pipeline_name"`
	TotalAgents    int               `json:"total_agents"`
	ServiceReady   bool              `json:"completion_service_ready"`
	Agents         map[string]string `json:"agents"`
	ExecutionOrder []string          `json:"execution_order"`
}
