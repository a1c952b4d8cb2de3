package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mediguard/driftai/pkg/models"
)

// scriptedCompletion returns canned responses in call order. failAfter fails
// every call from that point on; failOn fails that one call only.
type scriptedCompletion struct {
	ready     bool
	responses []string
	failAfter int // 0 = never fail
	failOn    int // 0 = never fail
	calls     int
}

func (s *scriptedCompletion) Ready() bool { return s.ready }

func (s *scriptedCompletion) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	if s.failAfter > 0 && s.calls >= s.failAfter {
		return "", errors.New("provider unavailable")
	}
	if s.failOn > 0 && s.calls == s.failOn {
		return "", errors.New("provider unavailable")
	}
	if len(s.responses) > 0 {
		r := s.responses[0]
		if len(s.responses) > 1 {
			s.responses = s.responses[1:]
		}
		return r, nil
	}
	return genericResponse, nil
}

const genericResponse = `Explanation: This looks like a moderate shift that may reflect everyday variation in how you move, and it suggests nothing dramatic on its own.

Reasoning: The pattern has been steady for several days now, which suggests it is worth continuing to watch without any alarm at this stage of observation.

Contextual Explanation: Lighter sleep could plausibly explain a slower pace, since tiredness often shows up in movement before anything else does.

Confidence Level: 0.7

Safety Message: Nothing here needs urgent attention, keep up the daily check-ins.

Escalation Required: false

Urgency Level: routine

Guidance Suggestions:
- Keep a steady sleep schedule
- Take a short walk each day

Follow-Up Monitoring: Watch whether the pace recovers over the coming week.

Rationale: These habits address the most likely everyday causes.`

func request() Request {
	return Request{
		UserID:     "u1",
		MetricName: "avg_movement_speed",
		Baseline:   92.0,
		Recent:     87.5,
		DriftHistory: []models.DriftPoint{
			{Day: 1, DriftPercentage: -1.2},
			{Day: 2, DriftPercentage: -2.0},
			{Day: 3, DriftPercentage: -2.8},
			{Day: 4, DriftPercentage: -3.5},
			{Day: 5, DriftPercentage: -4.1},
			{Day: 6, DriftPercentage: -4.6},
			{Day: 7, DriftPercentage: -4.9},
		},
	}
}

func TestRunAllStagesSucceed(t *testing.T) {
	svc := &scriptedCompletion{ready: true}
	o := New(svc, nil)

	report := o.Run(context.Background(), request())

	if !report.Success {
		t.Fatalf("expected success, got error %q", report.Error)
	}
	if report.ReportID == "" {
		t.Error("report must carry an id")
	}
	if report.Metadata.AgentsSuccessful != 5 {
		t.Errorf("agents_successful = %d, want 5", report.Metadata.AgentsSuccessful)
	}
	if report.Metadata.CompletionStatus != models.CompletionComplete {
		t.Errorf("completion status = %q, want complete", report.Metadata.CompletionStatus)
	}
	if report.DriftSummary.SeverityLevel != models.SeverityModerate {
		t.Errorf("baseline 92 -> 87.5 severity = %s, want moderate", report.DriftSummary.SeverityLevel)
	}
	if report.RiskAssessment.RiskLevel != models.RiskPotentiallyConcerning {
		t.Errorf("7-day consistent decline risk = %s, want potentially_concerning", report.RiskAssessment.RiskLevel)
	}
	if !report.SafetyNotice.EscalationRequired {
		t.Error("persistent concerning pattern should trigger the safety gate")
	}
	if report.CareGuidance.Tone != models.ToneCautious {
		t.Errorf("tone = %s, want cautious", report.CareGuidance.Tone)
	}
}

func TestRunNotConfiguredShortCircuits(t *testing.T) {
	svc := &scriptedCompletion{ready: false}
	o := New(svc, nil)

	report := o.Run(context.Background(), request())
	if report.Success {
		t.Fatal("unconfigured service must fail the run")
	}
	if svc.calls != 0 {
		t.Errorf("no completion calls expected, got %d", svc.calls)
	}
	if report.Error == "" {
		t.Error("short-circuit must carry an error")
	}
}

func TestRunInvalidBaseline(t *testing.T) {
	o := New(&scriptedCompletion{ready: true}, nil)
	req := request()
	req.Baseline = 0

	report := o.Run(context.Background(), req)
	if report.Success {
		t.Fatal("zero baseline must fail the run")
	}
	if !strings.Contains(report.Error, "baseline") {
		t.Errorf("error should name the baseline problem, got %q", report.Error)
	}
}

func TestRunCompleteWithOneFailedStage(t *testing.T) {
	// The context stage (call 2 of 5) fails; the other four succeed. Four
	// successes including drift is still an overall success, and the report
	// is complete, not partial.
	svc := &scriptedCompletion{ready: true, failOn: 2}
	o := New(svc, nil)

	report := o.Run(context.Background(), request())

	if report.ContextualExplanation.Success {
		t.Fatal("context stage was scripted to fail")
	}
	if report.Metadata.AgentsSuccessful != 4 {
		t.Fatalf("agents_successful = %d, want 4", report.Metadata.AgentsSuccessful)
	}
	if !report.Success {
		t.Errorf("four of five stages should carry the run, got error %q", report.Error)
	}
	if report.Metadata.CompletionStatus != models.CompletionComplete {
		t.Errorf("status = %q, want complete with a single failed stage", report.Metadata.CompletionStatus)
	}
}

func TestRunPartialWhenMostStagesFail(t *testing.T) {
	// Every completion call from the context stage onward fails.
	svc := &scriptedCompletion{ready: true, failAfter: 2}
	svc.responses = []string{genericResponse}
	o := New(svc, nil)

	report := o.Run(context.Background(), request())

	// Calls 2..5 fail, so only drift succeeded via completion. Risk, safety
	// and care recover through their rule-based paths but report success
	// false, leaving 1 success: the run is partial and unsuccessful.
	if report.Metadata.CompletionStatus != models.CompletionPartial {
		t.Errorf("status = %q, want partial", report.Metadata.CompletionStatus)
	}
	if report.Success {
		t.Error("only one successful stage should not count as success")
	}
	// The degraded stages still carry their numeric verdicts.
	if report.RiskAssessment.RiskLevel != models.RiskPotentiallyConcerning {
		t.Errorf("degraded risk lost its tier: %s", report.RiskAssessment.RiskLevel)
	}
	if !report.SafetyNotice.EscalationRequired {
		t.Error("rule-based safety gate should still escalate")
	}
}

func TestRunDriftFailureFailsRun(t *testing.T) {
	svc := &scriptedCompletion{ready: true, failAfter: 1}
	o := New(svc, nil)

	report := o.Run(context.Background(), request())
	if report.Success {
		t.Fatal("a failed drift stage must fail the run regardless of other stages")
	}
	if !strings.Contains(report.Error, "drift detection failed") {
		t.Errorf("error = %q, want drift failure", report.Error)
	}
}

func TestRunSingleMeasurementRisk(t *testing.T) {
	svc := &scriptedCompletion{ready: true}
	o := New(svc, nil)
	req := request()
	req.DriftHistory = req.DriftHistory[:1]

	report := o.Run(context.Background(), req)
	if report.RiskAssessment.RiskLevel != models.RiskTemporary {
		t.Errorf("single measurement risk = %s, want temporary", report.RiskAssessment.RiskLevel)
	}
	if report.RiskAssessment.ConfidenceScore != 0.3 {
		t.Errorf("single measurement confidence = %.2f, want 0.3", report.RiskAssessment.ConfidenceScore)
	}
	if !report.Success {
		t.Errorf("a new user's first report should still succeed, got %q", report.Error)
	}
}

func TestRunEmptyHistoryCountsOneDay(t *testing.T) {
	svc := &scriptedCompletion{ready: true}
	o := New(svc, nil)
	req := request()
	req.DriftHistory = nil

	report := o.Run(context.Background(), req)
	if report.RiskAssessment.DaysObserved != 1 {
		t.Errorf("days observed = %d, want 1 for a lone baseline/recent pair", report.RiskAssessment.DaysObserved)
	}
	if report.RiskAssessment.RiskLevel != models.RiskTemporary {
		t.Errorf("risk = %s, want temporary", report.RiskAssessment.RiskLevel)
	}
}

func TestQuick(t *testing.T) {
	svc := &scriptedCompletion{ready: true}
	o := New(svc, nil)

	out := o.Quick(context.Background(), Request{
		UserID: "u1", MetricName: "avg_movement_speed", Baseline: 92, Recent: 87.5,
	})
	if !out.Success {
		t.Fatal("quick path should succeed")
	}
	if out.DriftSummary.SeverityLevel != models.SeverityModerate {
		t.Errorf("severity = %s, want moderate", out.DriftSummary.SeverityLevel)
	}
	if len(out.CareGuidance.GuidanceList) == 0 {
		t.Error("quick path must still carry guidance")
	}
	if out.Note == "" {
		t.Error("quick report should explain its reduced scope")
	}
}

func TestStatus(t *testing.T) {
	o := New(&scriptedCompletion{ready: true}, nil)
	st := o.Status()
	if st.TotalAgents != 5 {
		t.Errorf("total agents = %d, want 5", st.TotalAgents)
	}
	if !st.ServiceReady {
		t.Error("service should be ready")
	}
	if len(st.ExecutionOrder) != 5 || st.ExecutionOrder[0] != "drift" || st.ExecutionOrder[4] != "care" {
		t.Errorf("execution order = %v", st.ExecutionOrder)
	}

	off := New(&scriptedCompletion{ready: false}, nil).Status()
	if off.ServiceReady {
		t.Error("unconfigured service should not report ready")
	}
	if off.Agents["drift"] != "not_configured" {
		t.Errorf("agent state = %q, want not_configured", off.Agents["drift"])
	}
}
