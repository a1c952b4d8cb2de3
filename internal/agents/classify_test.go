package agents

import (
	"errors"
	"math"
	"testing"

	"github.com/mediguard/driftai/pkg/models"
)

func TestDriftPercent(t *testing.T) {
	got, err := DriftPercent(92.0, 87.5)
	if err != nil {
		t.Fatalf("DriftPercent returned error: %v", err)
	}
	if math.Abs(got-(-4.89)) > 0.01 {
		t.Errorf("DriftPercent(92, 87.5) = %.2f, want -4.89", got)
	}
}

func TestDriftPercentZeroBaseline(t *testing.T) {
	_, err := DriftPercent(0, 50)
	if !errors.Is(err, ErrInvalidBaseline) {
		t.Fatalf("expected ErrInvalidBaseline, got %v", err)
	}
}

func TestClassifySeverityThresholds(t *testing.T) {
	cases := []struct {
		drift float64
		want  models.Severity
	}{
		{0, models.SeverityLow},
		{2.99, models.SeverityLow},
		{3.0, models.SeverityModerate},
		{6.99, models.SeverityModerate},
		{7.0, models.SeverityHigh},
		{50.0, models.SeverityHigh},
		{-2.99, models.SeverityLow},
		{-3.0, models.SeverityModerate},
		{-7.0, models.SeverityHigh},
	}
	for _, c := range cases {
		if got := ClassifySeverity(c.drift); got != c.want {
			t.Errorf("ClassifySeverity(%.2f) = %s, want %s", c.drift, got, c.want)
		}
	}
}

func TestIsSignificantDeviation(t *testing.T) {
	if IsSignificantDeviation(1.49) {
		t.Error("1.49% should not be significant")
	}
	if !IsSignificantDeviation(1.5) {
		t.Error("1.5% should be significant")
	}
	if !IsSignificantDeviation(-2.0) {
		t.Error("-2.0% should be significant")
	}
}

func TestTrendOf(t *testing.T) {
	if got := TrendOf(-1.0); got != models.TrendDeclining {
		t.Errorf("negative drift = %s, want declining", got)
	}
	if got := TrendOf(1.0); got != models.TrendImproving {
		t.Errorf("positive drift = %s, want improving", got)
	}
	if got := TrendOf(0); got != models.TrendStable {
		t.Errorf("zero drift = %s, want stable", got)
	}
}

func points(pcts ...float64) []models.DriftPoint {
	out := make([]models.DriftPoint, len(pcts))
	for i, p := range pcts {
		out[i] = models.DriftPoint{Day: i + 1, DriftPercentage: p}
	}
	return out
}

func TestConsistencyScoreBounds(t *testing.T) {
	series := [][]float64{
		{-1, -2, -3},
		{1, -1, 1, -1},
		{5, 5, 5, 5, 5},
		{-1, 2, -3, 4, -5, 6},
	}
	for _, s := range series {
		got := ConsistencyScore(points(s...))
		if got < 0 || got > 1 {
			t.Errorf("ConsistencyScore(%v) = %.3f, out of [0,1]", s, got)
		}
	}
}

func TestConsistencyScoreConstantSign(t *testing.T) {
	if got := ConsistencyScore(points(-1, -2, -3, -4)); got != 1.0 {
		t.Errorf("all-negative series = %.3f, want 1.0", got)
	}
	if got := ConsistencyScore(points(2, 3, 4)); got != 1.0 {
		t.Errorf("all-positive series = %.3f, want 1.0", got)
	}
}

func TestConsistencyScoreAlternating(t *testing.T) {
	alternating := ConsistencyScore(points(1, -1, 1, -1, 1, -1))
	steady := ConsistencyScore(points(1, 1, 1, 1, 1, 1))
	if alternating >= steady {
		t.Errorf("alternating (%.3f) should score below steady (%.3f)", alternating, steady)
	}
	if alternating > 0.5 {
		t.Errorf("fully alternating series = %.3f, want <= 0.5", alternating)
	}
}

func TestConsistencyScoreTooFewPoints(t *testing.T) {
	if got := ConsistencyScore(points(-3)); got != 0.5 {
		t.Errorf("single point = %.3f, want neutral 0.5", got)
	}
}

func TestClassifyRiskLevelPriority(t *testing.T) {
	// Severe drift dominates everything, even a single day.
	if got := ClassifyRiskLevel(1, 0.0, false, 12.0); got != models.RiskPotentiallyConcerning {
		t.Errorf("12%% drift day 1 = %s, want potentially_concerning", got)
	}
	if got := ClassifyRiskLevel(1, 0.0, false, -12.0); got != models.RiskPotentiallyConcerning {
		t.Errorf("-12%% drift = %s, want potentially_concerning", got)
	}
	// Short duration.
	if got := ClassifyRiskLevel(2, 1.0, true, 5.0); got != models.RiskTemporary {
		t.Errorf("2 days = %s, want temporary", got)
	}
	// Medium duration splits on consistency.
	if got := ClassifyRiskLevel(5, 0.5, true, 5.0); got != models.RiskTemporary {
		t.Errorf("5 days low consistency = %s, want temporary", got)
	}
	if got := ClassifyRiskLevel(5, 0.8, false, 5.0); got != models.RiskNeedsObservation {
		t.Errorf("5 days high consistency = %s, want needs_observation", got)
	}
	// Long duration requires consistency AND worsening to escalate.
	if got := ClassifyRiskLevel(8, 0.9, true, 5.0); got != models.RiskPotentiallyConcerning {
		t.Errorf("8 days consistent worsening = %s, want potentially_concerning", got)
	}
	if got := ClassifyRiskLevel(8, 0.9, false, 5.0); got != models.RiskNeedsObservation {
		t.Errorf("8 days consistent stable = %s, want needs_observation", got)
	}
	if got := ClassifyRiskLevel(8, 0.4, true, 5.0); got != models.RiskNeedsObservation {
		t.Errorf("8 days inconsistent worsening = %s, want needs_observation", got)
	}
}

func TestConfidenceScoreMonotonic(t *testing.T) {
	prev := -1.0
	for days := 1; days <= 20; days++ {
		got := ConfidenceScore(days, 0.8, 0.5)
		if got < prev {
			t.Fatalf("confidence dropped from %.3f to %.3f at %d days", prev, got, days)
		}
		prev = got
	}
}

func TestConfidenceScoreFull(t *testing.T) {
	got := ConfidenceScore(14, 1.0, 1.0)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("14 days perfect data = %.3f, want 1.0", got)
	}
	if got := ConfidenceScore(30, 1.0, 1.0); got != 1.0 {
		t.Errorf("confidence above 14 days should stay clamped at 1.0, got %.3f", got)
	}
}

func TestAnalyzeTemporalPatterns(t *testing.T) {
	ta := AnalyzeTemporalPatterns(points(-1, -2, -4, -6))
	if ta.DurationDays != 4 {
		t.Errorf("duration = %d, want 4", ta.DurationDays)
	}
	if ta.MaxDrift != -6 {
		t.Errorf("max drift = %.1f, want -6 (signed value of largest magnitude)", ta.MaxDrift)
	}
	if ta.MinDrift != -1 {
		t.Errorf("min drift = %.1f, want -1", ta.MinDrift)
	}
	if !ta.IsAccelerating {
		t.Error("second half averages larger magnitude, expected accelerating")
	}
}

func TestTrendDirectionWorsening(t *testing.T) {
	info := TrendDirection(points(-1, -1.5, -4, -5))
	if !info.IsWorsening {
		t.Error("recent magnitude well above early, expected worsening")
	}
	if info.Clarity <= 0 || info.Clarity > 1 {
		t.Errorf("clarity = %.3f, out of (0,1]", info.Clarity)
	}
}

func TestTrendDirectionStableMargin(t *testing.T) {
	info := TrendDirection(points(-5, -5, -5.1, -5.2))
	if !info.IsStable {
		t.Errorf("within 10%% margin should be stable, got %+v", info)
	}
}

func TestTrendDirectionShortSeries(t *testing.T) {
	info := TrendDirection(points(-2, -4))
	if !info.IsWorsening {
		t.Error("last point doubled, expected worsening")
	}
	if info.Clarity != 0.5 {
		t.Errorf("short-series clarity = %.2f, want fixed 0.5", info.Clarity)
	}
}
