// Package agents implements the five pipeline stages of the health drift
// analysis pipeline and the numeric classification heuristics that precede
// and validate every completion call.
//
// Stage order and roles:
//  1. drift   — detects WHAT changed (numeric drift vs baseline)
//  2. context — explains WHY it may have happened (lifestyle factors)
//  3. risk    — evaluates HOW CONCERNING the pattern is over time
//  4. safety  — decides IF ESCALATION is needed (hard rule gate)
//  5. care    — produces actionable guidance
//
// Every classification in this file is a pure function. The completion
// service only ever layers prose on top of numbers computed here; it can
// confirm a classification but never silently replace it.
package agents

import (
	"errors"

	"github.com/mediguard/driftai/pkg/models"
)

// Severity thresholds, in percent deviation from baseline.
const (
	severityLowMax      = 3.0 // below this: low
	severityModerateMax = 7.0 // below this: moderate, else high
)

// significantDeviationPct filters out normal daily variation.
const significantDeviationPct = 1.5

// Risk classification thresholds.
const (
	riskShortDurationDays  = 3   // fewer days: temporary
	riskMediumDurationDays = 7   // fewer days: temporary or needs_observation
	riskConsistencyFloor   = 0.6 // persistent-pattern consistency cutoff
	riskSevereDriftPct     = 10.0
)

// Confidence plateaus once two weeks of data are available.
const confidencePlateauDays = 14.0

// ErrInvalidBaseline is returned when a drift percentage is requested
// against a zero baseline. Callers must surface this as a structured error;
// guessing a fallback baseline is not allowed.
var ErrInvalidBaseline = errors.New("invalid baseline: baseline value must be non-zero")

// DriftPercent computes the signed percentage deviation of recent from
// baseline. Fails with ErrInvalidBaseline when baseline is zero.
func DriftPercent(baseline, recent float64) (float64, error) {
	if baseline == 0 {
		return 0, ErrInvalidBaseline
	}
	return (recent - baseline) / baseline * 100.0, nil
}

// ClassifySeverity maps a drift percentage onto a severity tier. Total and
// sign-independent: <3% low, <7% moderate, otherwise high.
func ClassifySeverity(driftPct float64) models.Severity {
	abs := driftPct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < severityLowMax:
		return models.SeverityLow
	case abs < severityModerateMax:
		return models.SeverityModerate
	default:
		return models.SeverityHigh
	}
}

// IsSignificantDeviation reports whether a drift exceeds normal daily
// variation (1.5% absolute).
func IsSignificantDeviation(driftPct float64) bool {
	if driftPct < 0 {
		driftPct = -driftPct
	}
	return driftPct >= significantDeviationPct
}

// TrendOf maps a signed drift percentage onto a direction label.
func TrendOf(driftPct float64) models.Trend {
	switch {
	case driftPct < 0:
		return models.TrendDeclining
	case driftPct > 0:
		return models.TrendImproving
	default:
		return models.TrendStable
	}
}

// TemporalAnalysis summarizes a multi-day drift series.
type TemporalAnalysis struct {
	DurationDays   int
	MaxDrift       float64 // signed value with the largest magnitude
	MinDrift       float64 // signed value with the smallest magnitude
	AvgDrift       float64
	DriftRange     float64 // signed max − signed min
	IsAccelerating bool
}

// AnalyzeTemporalPatterns computes duration, extremes, mean and acceleration
// for a drift series. Acceleration compares the mean magnitude of the second
// half against the first (midpoint by integer division) and needs ≥3 points.
func AnalyzeTemporalPatterns(points []models.DriftPoint) TemporalAnalysis {
	pcts := driftPercentages(points)
	ta := TemporalAnalysis{DurationDays: len(pcts)}
	if len(pcts) == 0 {
		return ta
	}

	ta.MaxDrift = pcts[0]
	ta.MinDrift = pcts[0]
	signedMax, signedMin := pcts[0], pcts[0]
	sum := 0.0
	for _, p := range pcts {
		if abs(p) > abs(ta.MaxDrift) {
			ta.MaxDrift = p
		}
		if abs(p) < abs(ta.MinDrift) {
			ta.MinDrift = p
		}
		if p > signedMax {
			signedMax = p
		}
		if p < signedMin {
			signedMin = p
		}
		sum += p
	}
	ta.AvgDrift = sum / float64(len(pcts))
	ta.DriftRange = signedMax - signedMin

	if len(pcts) >= 3 {
		mid := len(pcts) / 2
		ta.IsAccelerating = abs(mean(pcts[mid:])) > abs(mean(pcts[:mid]))
	}
	return ta
}

// TrendInfo describes the direction a drift series is moving in.
type TrendInfo struct {
	IsWorsening  bool
	IsRecovering bool
	IsStable     bool
	Description  string
	Clarity      float64 // 0..1, fixed at 0.5 with fewer than 4 points
}

// TrendDirection compares recent drift magnitude against early drift
// magnitude. With ≥4 points it averages the last two vs the first two; with
// fewer it compares the last single point to the first. A ±10% margin
// separates worsening, recovering and stable.
func TrendDirection(points []models.DriftPoint) TrendInfo {
	pcts := driftPercentages(points)
	var info TrendInfo

	if len(pcts) >= 4 {
		earlyAvg := (abs(pcts[0]) + abs(pcts[1])) / 2
		recentAvg := (abs(pcts[len(pcts)-2]) + abs(pcts[len(pcts)-1])) / 2

		info.IsWorsening = recentAvg > earlyAvg*1.1
		info.IsRecovering = recentAvg < earlyAvg*0.9
		info.IsStable = !info.IsWorsening && !info.IsRecovering

		denom := earlyAvg
		if denom < 1.0 {
			denom = 1.0
		}
		info.Clarity = clamp01(abs(recentAvg-earlyAvg) / denom)
	} else if len(pcts) > 0 {
		first := abs(pcts[0])
		last := abs(pcts[len(pcts)-1])

		info.IsWorsening = last > first*1.1
		info.IsRecovering = last < first*0.9
		info.IsStable = !info.IsWorsening && !info.IsRecovering
		info.Clarity = 0.5
	}

	switch {
	case info.IsWorsening:
		info.Description = "Worsening trend - drift magnitude is increasing over time"
	case info.IsRecovering:
		info.Description = "Recovering trend - drift is returning toward baseline"
	default:
		info.Description = "Stable trend - drift has plateaued at current level"
	}
	return info
}

// ConsistencyScore measures how uniformly a drift series moves in one
// direction. Majority-sign ratio, penalized by adjacent sign flips:
//
//	ratio * (1 - flips/(N-1) * 0.5), clamped to [0,1]
//
// Fewer than 2 points yields a neutral 0.5.
func ConsistencyScore(points []models.DriftPoint) float64 {
	pcts := driftPercentages(points)
	if len(pcts) < 2 {
		return 0.5
	}

	sum := 0.0
	for _, p := range pcts {
		sum += p
	}
	direction := -1.0
	if sum > 0 {
		direction = 1.0
	}

	consistent := 0
	for _, p := range pcts {
		if p*direction > 0 {
			consistent++
		}
	}
	ratio := float64(consistent) / float64(len(pcts))

	flips := 0
	for i := 1; i < len(pcts); i++ {
		if (pcts[i] > 0) != (pcts[i-1] > 0) {
			flips++
		}
	}
	penalty := float64(flips) / float64(len(pcts)-1)

	return clamp01(ratio * (1 - penalty*0.5))
}

// ClassifyRiskLevel maps temporal features onto a risk tier, in strict
// priority order:
//
//  1. |maxDrift| > 10%                          → potentially_concerning
//  2. fewer than 3 days observed                → temporary
//  3. fewer than 7 days: consistency < 0.6      → temporary, else needs_observation
//  4. 7+ days: consistency ≥ 0.6 and worsening  → potentially_concerning
//     otherwise                                 → needs_observation
func ClassifyRiskLevel(daysObserved int, consistency float64, isWorsening bool, maxDrift float64) models.RiskLevel {
	if abs(maxDrift) > riskSevereDriftPct {
		return models.RiskPotentiallyConcerning
	}
	if daysObserved < riskShortDurationDays {
		return models.RiskTemporary
	}
	if daysObserved < riskMediumDurationDays {
		if consistency < riskConsistencyFloor {
			return models.RiskTemporary
		}
		return models.RiskNeedsObservation
	}
	if consistency >= riskConsistencyFloor && isWorsening {
		return models.RiskPotentiallyConcerning
	}
	return models.RiskNeedsObservation
}

// ConfidenceScore weights data quantity (40%, plateau at 14 days), pattern
// consistency (30%) and trend clarity (30%), clamped to [0,1].
func ConfidenceScore(dataPoints int, consistency, clarity float64) float64 {
	dataConfidence := float64(dataPoints) / confidencePlateauDays
	if dataConfidence > 1.0 {
		dataConfidence = 1.0
	}
	return clamp01(0.4*dataConfidence + 0.3*consistency + 0.3*clarity)
}

// ── small helpers ────────────────────────────────────────────

func driftPercentages(points []models.DriftPoint) []float64 {
	pcts := make([]float64, len(points))
	for i, p := range points {
		pcts[i] = p.DriftPercentage
	}
	return pcts
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
