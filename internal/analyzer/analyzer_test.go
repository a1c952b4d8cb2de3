package analyzer

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/mediguard/driftai/internal/pipeline"
	"github.com/mediguard/driftai/internal/store"
	"github.com/mediguard/driftai/pkg/models"
)

type stubCompletion struct {
	ready    bool
	response string
}

func (s *stubCompletion) Ready() bool { return s.ready }

func (s *stubCompletion) Complete(context.Context, string, string) (string, error) {
	return s.response, nil
}

const stubResponse = `Explanation: This looks like a moderate shift that may come from everyday factors, and it suggests keeping an eye on the pattern.

Reasoning: The decline has held for a week straight, which suggests the pattern is persistent and worth a closer look over the coming days.

Contextual Explanation: Shorter sleep could plausibly explain this change, since rest affects movement before most other things.

Confidence Level: 0.7

Possible Factors:
- Sleep debt
- A stressful stretch at work

Escalation Required: true

Urgency Level: prompt

Safety Message: This pattern is worth mentioning to your doctor, as a precaution rather than an alarm.

Guidance Suggestions:
- Keep a steady sleep schedule
- Take a short walk each day
- Stay hydrated through the afternoon
- Wind down screens before bed

Follow-Up Monitoring: Watch whether your movement speed levels off this week.

Rationale: Sleep and light activity are the most likely levers here.

Recommendations:
- Protect your sleep window
- Note how you feel each morning`

func seedChecks(t *testing.T, st store.Store, userID string, values []float64) {
	t.Helper()
	for i, v := range values {
		err := st.CreateHealthCheck(context.Background(), &models.HealthCheck{
			UserID:    userID,
			CheckDate: time.Date(2026, 8, i+1, 9, 0, 0, 0, time.UTC),
			Metrics:   map[string]float64{"avg_movement_speed": v},
		})
		if err != nil {
			t.Fatalf("seed check: %v", err)
		}
	}
}

func newTestAnalyzer(st store.Store, svc *stubCompletion) *Analyzer {
	return New(st, pipeline.New(svc, st), svc)
}

func TestAnalyzeDecliningWeek(t *testing.T) {
	st := store.NewMemoryStore()
	// Baseline is the mean of the first five values (92, 91.5, 90, 88.5, 88
	// = 90). The later days fall well below it.
	seedChecks(t, st, "u1", []float64{92, 91.5, 90, 88.5, 88, 84, 81})

	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})
	result := a.Analyze(context.Background(), "u1", "avg_movement_speed", 0, nil)

	if !result.HasData {
		t.Fatal("seven checks should be enough data")
	}
	if result.Analysis == nil || result.Summary == nil {
		t.Fatal("analysis and summary must be populated")
	}

	if math.Abs(result.Summary.BaselineValue-90.0) > 1e-9 {
		t.Errorf("baseline = %.2f, want mean of first five = 90.0", result.Summary.BaselineValue)
	}
	if result.Summary.RecentValue != 81 {
		t.Errorf("recent = %.2f, want 81", result.Summary.RecentValue)
	}
	if math.Abs(result.Summary.DriftPercentage-(-10.0)) > 0.01 {
		t.Errorf("drift = %.2f, want -10.0", result.Summary.DriftPercentage)
	}
	if result.Summary.Trend != models.TrendDeclining {
		t.Errorf("trend = %s, want declining", result.Summary.Trend)
	}
	if !result.Summary.EscalationNeeded {
		t.Error("10% drift should trip the safety gate")
	}
}

func TestAnalyzeInsufficientData(t *testing.T) {
	st := store.NewMemoryStore()
	seedChecks(t, st, "u1", []float64{92})

	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})
	result := a.Analyze(context.Background(), "u1", "", 0, nil)

	if !result.Success {
		t.Fatal("no-data is not an error")
	}
	if result.HasData {
		t.Fatal("one check is not enough data")
	}
	if result.Message == "" {
		t.Error("no-data result should carry a friendly message")
	}
	if result.Analysis != nil {
		t.Error("no pipeline run expected without data")
	}
}

func TestAnalyzeSkipsChecksMissingTheMetric(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	seedChecks(t, st, "u1", []float64{92, 90})
	// A check without the analyzed metric must not break the series.
	if err := st.CreateHealthCheck(ctx, &models.HealthCheck{
		UserID:    "u1",
		CheckDate: time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC),
		Metrics:   map[string]float64{"range_of_motion": 70},
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})
	result := a.Analyze(ctx, "u1", "avg_movement_speed", 0, nil)
	if !result.HasData {
		t.Fatal("two qualifying checks remain, should have data")
	}
	if result.Summary.RecentValue != 90 {
		t.Errorf("recent = %.1f, want 90 (metricless check skipped)", result.Summary.RecentValue)
	}
}

func TestRecommendationsMergeAndCap(t *testing.T) {
	st := store.NewMemoryStore()
	seedChecks(t, st, "u1", []float64{92, 91.5, 90, 88.5, 88, 84, 81})

	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})
	result := a.Analyze(context.Background(), "u1", "avg_movement_speed", 0, nil)

	if len(result.Recommendations) == 0 {
		t.Fatal("recommendations missing")
	}
	if len(result.Recommendations) > 5 {
		t.Errorf("recommendations = %d items, cap is 5", len(result.Recommendations))
	}
	if !strings.HasPrefix(result.Recommendations[0], "⚠️") {
		t.Errorf("escalation warning should lead the list, got %q", result.Recommendations[0])
	}
}

func TestAnalyzeQuickNotEnoughData(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})

	out := a.AnalyzeQuick(context.Background(), "u1", "")
	if out.Success {
		t.Fatal("empty store should not produce a quick report")
	}
	if out.Note == "" {
		t.Error("quick no-data result should explain itself")
	}
}

func TestAnalyzeMetricsValidatesBaseline(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})

	_, err := a.AnalyzeMetrics(context.Background(), "u1", []models.MetricDrift{
		{Name: "avg_movement_speed", Baseline: 0, Recent: 80},
	})
	if err == nil {
		t.Fatal("zero baseline must be rejected")
	}
	if !strings.Contains(err.Error(), "avg_movement_speed") {
		t.Errorf("error should name the offending metric, got %v", err)
	}
}

func TestAnalyzeMetricsMulti(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})

	out, err := a.AnalyzeMetrics(context.Background(), "u1", []models.MetricDrift{
		{Name: "avg_movement_speed", Baseline: 92, Recent: 87.5},
		{Name: "range_of_motion", Baseline: 80, Recent: 74},
	})
	if err != nil {
		t.Fatalf("analyze metrics: %v", err)
	}
	if len(out.AffectedFeatures) != 2 {
		t.Errorf("affected features = %v", out.AffectedFeatures)
	}
	// 74 vs 80 is -7.5%: the larger magnitude drives overall severity.
	if out.SeverityLevel != models.SeverityHigh {
		t.Errorf("severity = %s, want high", out.SeverityLevel)
	}
}

func TestChatWithoutData(t *testing.T) {
	st := store.NewMemoryStore()
	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})

	out := a.Chat(context.Background(), "u1", "how am I doing?")
	if !out.Success {
		t.Fatal("chat without data should still answer")
	}
	if out.Response == "" {
		t.Error("chat must respond with the no-data message")
	}
	if out.Analysis != nil {
		t.Error("no analysis expected without data")
	}
}

func TestChatGroundedInAnalysis(t *testing.T) {
	st := store.NewMemoryStore()
	seedChecks(t, st, "u1", []float64{92, 91.5, 90, 88.5, 88, 84, 81})

	a := newTestAnalyzer(st, &stubCompletion{ready: true, response: stubResponse})
	out := a.Chat(context.Background(), "u1", "should I be worried?")
	if !out.Success {
		t.Fatalf("chat failed: %q", out.Error)
	}
	if out.Analysis == nil {
		t.Error("chat should attach the grounding analysis")
	}
	if out.Response == "" {
		t.Error("chat must produce a response")
	}
}
