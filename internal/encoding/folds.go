package encoding

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// Fold is one split of a k-fold partition. Holdout sets of the folds of a
// partition are disjoint and together cover every row; Train is the
// complement of Holdout. Both are ascending.
type Fold struct {
	Train   []int `json:"train"`
	Holdout []int `json:"holdout"`
}

// StratifiedFolds partitions row indices into nSplits folds so that each
// distinct target value (class) is spread as evenly as possible over the
// folds. Rows are shuffled within their class by a PCG source seeded from
// seed, so the same input and seed always give the same partition.
func StratifiedFolds(targets []float64, nSplits int, seed int64) ([]Fold, error) {
	if nSplits < 2 {
		return nil, &ConfigError{Param: "n_splits", Value: nSplits, Reason: "must be at least 2"}
	}
	if len(targets) == 0 {
		return nil, &ValidationError{Field: "targets", Reason: "cannot partition an empty column"}
	}

	byClass := make(map[float64][]int)
	for i, y := range targets {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, &DataError{Reason: fmt.Sprintf("target at row %d is not finite", i)}
		}
		byClass[y] = append(byClass[y], i)
	}

	classes := make([]float64, 0, len(byClass))
	for y := range byClass {
		classes = append(classes, y)
	}
	slices.Sort(classes)

	smallest := len(targets)
	for _, y := range classes {
		smallest = min(smallest, len(byClass[y]))
	}
	if nSplits > smallest {
		return nil, &ConfigError{
			Param:  "n_splits",
			Value:  nSplits,
			Reason: fmt.Sprintf("exceeds the %d rows of the smallest target class", smallest),
		}
	}

	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	assignment := make([]int, len(targets))
	next := 0
	for _, y := range classes {
		rows := byClass[y]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for _, r := range rows {
			assignment[r] = next % nSplits
			next++
		}
	}

	folds := make([]Fold, nSplits)
	for r, f := range assignment {
		for k := range folds {
			if k == f {
				folds[k].Holdout = append(folds[k].Holdout, r)
			} else {
				folds[k].Train = append(folds[k].Train, r)
			}
		}
	}
	return folds, nil
}
