package budget

import (
	"sort"

	"budgetlens/internal/core"
)

var (
	// SafeColor is the progress color at 0% used and below.
	SafeColor = core.HSL{H: 88, S: 63, L: 48}
	// DangerColor is the progress color at 100% used and above.
	DangerColor = core.HSL{H: 0, S: 100, L: 50}
)

// Rank orders summaries by percent used, highest first. Summaries without a
// percent sort last; ties break on category name. The input is not modified:
// the returned copies carry their 1-based Rank and progress Color.
func Rank(summaries []core.CategorySummary) []core.CategorySummary {
	out := make([]core.CategorySummary, len(summaries))
	copy(out, summaries)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Percent, out[j].Percent
		switch {
		case a == nil && b == nil:
			return out[i].Category < out[j].Category
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a > *b
		}
		return out[i].Category < out[j].Category
	})

	for i := range out {
		out[i].Rank = i + 1
		out[i].Color = ""
		if out[i].Percent != nil {
			out[i].Color = ColorFor(float64(*out[i].Percent)).String()
		}
	}
	return out
}

// ColorFor interpolates linearly, per component, between SafeColor at 0% and
// DangerColor at 100%. Values outside [0, 100] clamp to the nearest anchor.
func ColorFor(percent float64) core.HSL {
	t := percent / 100
	if t <= 0 {
		return SafeColor
	}
	if t >= 1 {
		return DangerColor
	}
	return core.HSL{
		H: lerp(SafeColor.H, DangerColor.H, t),
		S: lerp(SafeColor.S, DangerColor.S, t),
		L: lerp(SafeColor.L, DangerColor.L, t),
	}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
