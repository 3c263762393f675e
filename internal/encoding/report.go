package encoding

import (
	"cmp"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// CategoryCount is one line of the category distribution of a fit.
type CategoryCount[C comparable] struct {
	Category C       `json:"category"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
}

// Report describes a completed fit. It carries no encoded values.
type Report[C comparable] struct {
	Strategy         Strategy           `json:"-"`
	StrategyName     string             `json:"strategy"`
	Rows             int                `json:"rows"`
	Categories       int                `json:"categories"`
	GlobalMean       float64            `json:"global_mean"`
	Distribution     []CategoryCount[C] `json:"distribution"`
	FoldSizes        []int              `json:"fold_sizes,omitempty"`
	MissingOutOfFold int                `json:"missing_out_of_fold"`
	Duration         time.Duration      `json:"duration"`
}

// newReport builds the distribution ordered by descending count; ties keep
// the order in which the categories first appear.
func newReport[C comparable](strategy Strategy, categories []C, stats map[C]Statistic, globalMean float64) Report[C] {
	firstSeen := make(map[C]int, len(stats))
	for i, c := range categories {
		if _, ok := firstSeen[c]; !ok {
			firstSeen[c] = i
		}
	}

	dist := make([]CategoryCount[C], 0, len(stats))
	for c, s := range stats {
		dist = append(dist, CategoryCount[C]{
			Category: c,
			Count:    s.Count,
			Share:    float64(s.Count) / float64(len(categories)),
		})
	}
	slices.SortFunc(dist, func(a, b CategoryCount[C]) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(firstSeen[a.Category], firstSeen[b.Category])
	})

	return Report[C]{
		Strategy:     strategy,
		StrategyName: strategy.String(),
		Rows:         len(categories),
		Categories:   len(stats),
		GlobalMean:   globalMean,
		Distribution: dist,
	}
}

// Log emits the fit summary at info level and the distribution, one event
// per category, at debug level.
func (r Report[C]) Log(logger zerolog.Logger) {
	logger.Info().
		Str("strategy", r.StrategyName).
		Int("rows", r.Rows).
		Int("categories", r.Categories).
		Float64("global_mean", r.GlobalMean).
		Ints("fold_sizes", r.FoldSizes).
		Int("missing_out_of_fold", r.MissingOutOfFold).
		Dur("duration", r.Duration).
		Msg("target encoder fitted")

	for _, d := range r.Distribution {
		logger.Debug().
			Interface("category", d.Category).
			Int("count", d.Count).
			Float64("share", d.Share).
			Msg("category distribution")
	}
}
