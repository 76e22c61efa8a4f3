package race

import (
	"fmt"
	"math"
)

// costField is the optional per-report spend field. Missing means zero;
// non-numeric or negative values are data-quality conditions reported back
// as warnings and counted as zero.
const costField = "cost_usd"

// SumCost totals the optional cost field across result maps. It never
// fails: the returned warnings describe any value it had to discard.
func SumCost(results []map[string]any) (float64, []string) {
	var total float64
	var warnings []string
	for _, result := range results {
		if result == nil {
			continue
		}
		raw, ok := result[costField]
		if !ok {
			continue
		}
		cost, ok := asNumber(raw)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("non-numeric %s value %v", costField, raw))
			continue
		}
		if cost < 0 {
			warnings = append(warnings, fmt.Sprintf("negative %s value %v", costField, raw))
			continue
		}
		total += cost
	}
	return total, warnings
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// Round6 rounds a cost total to 6 decimal places for reporting stability.
func Round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Round2 rounds elapsed seconds to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*1e2) / 1e2
}
