package encoding

import (
	"fmt"
	"math"
	"strings"
)

// Strategy selects how category statistics become encoded values.
type Strategy int

const (
	// Smoothed blends each category mean with the global mean by evidence.
	Smoothed Strategy = iota
	// Plain uses the raw category mean.
	Plain
	// Holdout computes every row's value from the other folds only.
	Holdout
)

func (s Strategy) String() string {
	switch s {
	case Plain:
		return "plain"
	case Smoothed:
		return "smoothed"
	case Holdout:
		return "holdout"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

func (s Strategy) valid() bool {
	return s == Plain || s == Smoothed || s == Holdout
}

// ParseStrategy maps a configuration value to a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "plain", "mean":
		return Plain, nil
	case "smoothed", "smoothing", "smooth", "":
		return Smoothed, nil
	case "holdout", "oof", "out-of-fold":
		return Holdout, nil
	default:
		return 0, &ConfigError{Param: "strategy", Value: name, Reason: "expected plain, smoothed or holdout"}
	}
}

// StrategyFromFlags translates the legacy smoothing/holdout toggles. The
// holdout flag wins over the smoothing flag.
func StrategyFromFlags(smoothing, holdout bool) Strategy {
	switch {
	case holdout:
		return Holdout
	case smoothing:
		return Smoothed
	default:
		return Plain
	}
}

// PlainMapping maps every category to its target mean.
func PlainMapping[C comparable](stats map[C]Statistic) map[C]float64 {
	mapping := make(map[C]float64, len(stats))
	for c, s := range stats {
		mapping[c] = s.Mean
	}
	return mapping
}

// SmoothedMapping shrinks every category mean toward globalMean. The
// weight of the category's own mean is
// sigmoid((count - minSamplesLeaf) / smoothing).
func SmoothedMapping[C comparable](stats map[C]Statistic, globalMean float64, minSamplesLeaf int, smoothing float64) map[C]float64 {
	mapping := make(map[C]float64, len(stats))
	for c, s := range stats {
		w := SmoothingWeight(s.Count, minSamplesLeaf, smoothing)
		mapping[c] = globalMean*(1-w) + s.Mean*w
	}
	return mapping
}

var (
	minWeight = math.Nextafter(0, 1)
	maxWeight = math.Nextafter(1, 0)
)

// SmoothingWeight returns the logistic weight for a category observed
// count times, kept strictly inside (0, 1) when the sigmoid saturates.
func SmoothingWeight(count, minSamplesLeaf int, smoothing float64) float64 {
	z := float64(count-minSamplesLeaf) / smoothing
	w := 1 / (1 + math.Exp(-z))
	return math.Min(math.Max(w, minWeight), maxWeight)
}

// OutOfFold assigns every row the mean target of its category computed
// over the training rows of the fold holding the row out. Rows whose
// category does not occur in that training subset get the missing value.
func OutOfFold[C comparable](categories []C, targets []float64, folds []Fold) []float64 {
	values := make([]float64, len(categories))
	for i := range values {
		values[i] = Missing()
	}
	for _, f := range folds {
		means := PlainMapping(collectStatsAt(categories, targets, f.Train))
		for _, r := range f.Holdout {
			if v, ok := means[categories[r]]; ok {
				values[r] = v
			}
		}
	}
	return values
}

// aggregateOutOfFold averages the non-missing out-of-fold values of each
// category. Categories with no such value are left out.
func aggregateOutOfFold[C comparable](categories []C, values []float64) map[C]float64 {
	stats := make(map[C]Statistic)
	for i, c := range categories {
		if IsMissing(values[i]) {
			continue
		}
		s := stats[c]
		s.Count++
		s.Sum += values[i]
		stats[c] = s
	}
	return PlainMapping(finalize(stats))
}

// Missing returns the value used for rows that cannot be encoded.
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing value.
func IsMissing(v float64) bool { return math.IsNaN(v) }
