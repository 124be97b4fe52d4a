package scoring

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Risk labels.
const (
	LabelSafe     = "safe"
	LabelLowRisk  = "low_risk"
	LabelRisky    = "risky"
	LabelHighRisk = "high_risk"
	LabelNone     = ""
)

const (
	safeThreshold    = 90
	lowRiskThreshold = 80
	riskyThreshold   = 70
	tierDivisor      = 10
)

// Tier maps a 0-100 score onto the 0-10 display tier.
func Tier(score int) int {
	return clamp(score) / tierDivisor
}

// Label maps a score onto a risk label. A nil score has no label.
func Label(score *int) string {
	if score == nil {
		return LabelNone
	}

	switch s := *score; {
	case s >= safeThreshold:
		return LabelSafe
	case s >= lowRiskThreshold:
		return LabelLowRisk
	case s >= riskyThreshold:
		return LabelRisky
	default:
		return LabelHighRisk
	}
}

// LabelOf labels an untyped score value. Values that are not numeric get no label.
func LabelOf(v any) string {
	score, ok := toScore(v)
	if !ok {
		return LabelNone
	}

	return Label(&score)
}

// TierOf is the untyped counterpart of Tier.
func TierOf(v any) (int, bool) {
	score, ok := toScore(v)
	if !ok {
		return 0, false
	}

	return Tier(score), true
}

func toScore(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case *int:
		if n == nil {
			return 0, false
		}

		return *n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float32:
		return floatScore(float64(n))
	case float64:
		return floatScore(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}

		return floatScore(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return floatScore(f)
	default:
		return 0, false
	}
}

func floatScore(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	return int(math.Floor(f)), true
}
