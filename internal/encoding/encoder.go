// Package encoding implements target encoding of categorical features.
//
// An Encoder learns, for every category of a column, a statistic of the
// target observed on rows of that category and substitutes it for the
// category. Three strategies are available: the plain category mean, a
// mean smoothed toward the global mean for rarely seen categories, and an
// out-of-fold mean computed over a stratified k-fold partition so that no
// row's own target contributes to its own encoded value.
//
// Categories never seen during Fit transform to the missing value (NaN);
// this is not an error.
package encoding

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MetricsTracker receives fit and transform measurements. Implementations
// must be safe for concurrent use.
type MetricsTracker interface {
	EncoderFitInc(strategy string)
	EncoderFitDuration(d time.Duration)
	EncoderErrorsInc(kind string)
	EncoderCategories(n int)
	EncoderTransformedRows(n int)
	EncoderUnseenInc(n int)
}

// Options configures an Encoder. Start from DefaultOptions; a zero
// Options is rejected because Smoothing and NSplits must be positive.
type Options struct {
	Strategy       Strategy
	MinSamplesLeaf int
	Smoothing      float64
	NSplits        int
	Seed           int64

	Logger  *zerolog.Logger
	Metrics MetricsTracker
}

// DefaultOptions returns the defaults: smoothed strategy, min_samples_leaf
// 1, smoothing 1.0, 5 folds and seed 42.
func DefaultOptions() Options {
	return Options{
		Strategy:       Smoothed,
		MinSamplesLeaf: 1,
		Smoothing:      1.0,
		NSplits:        5,
		Seed:           42,
	}
}

// Validate checks the parameters that do not depend on the data.
func (o Options) Validate() error {
	if !o.Strategy.valid() {
		return &ConfigError{Param: "strategy", Value: int(o.Strategy), Reason: "unknown strategy"}
	}
	if o.MinSamplesLeaf < 0 {
		return &ConfigError{Param: "min_samples_leaf", Value: o.MinSamplesLeaf, Reason: "must not be negative"}
	}
	if !(o.Smoothing > 0) || math.IsInf(o.Smoothing, 0) {
		return &ConfigError{Param: "smoothing", Value: o.Smoothing, Reason: "must be a finite number greater than 0"}
	}
	if o.NSplits < 2 {
		return &ConfigError{Param: "n_splits", Value: o.NSplits, Reason: "must be at least 2"}
	}
	return nil
}

type state[C comparable] struct {
	mapping   map[C]float64
	outOfFold []float64
	report    Report[C]
}

// Encoder is a target encoder for categories of type C. Fit replaces the
// learned state as a whole; Transform and the accessors only read it and
// may run concurrently.
type Encoder[C comparable] struct {
	opts    Options
	logger  zerolog.Logger
	metrics MetricsTracker

	mu    sync.RWMutex
	state *state[C]
}

// New returns an unfitted encoder.
func New[C comparable](opts Options) (*Encoder[C], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Encoder[C]{
		opts:    opts,
		logger:  logger.With().Str("component", "target_encoder").Logger(),
		metrics: opts.Metrics,
	}, nil
}

// Options returns the configuration the encoder was built with.
func (e *Encoder[C]) Options() Options { return e.opts }

// Fitted reports whether a fit has succeeded.
func (e *Encoder[C]) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state != nil
}

// Fit learns the encoding of categories from the positionally paired
// targets. On error the previously learned state, if any, is kept.
func (e *Encoder[C]) Fit(categories []C, targets []float64) error {
	start := time.Now()

	st, err := e.learn(categories, targets)
	if err != nil {
		if e.metrics != nil {
			e.metrics.EncoderErrorsInc(Kind(err))
		}
		e.logger.Warn().Err(err).Str("strategy", e.opts.Strategy.String()).Msg("fit failed")
		return err
	}
	st.report.Duration = time.Since(start)

	e.mu.Lock()
	e.state = st
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.EncoderFitInc(e.opts.Strategy.String())
		e.metrics.EncoderFitDuration(st.report.Duration)
		e.metrics.EncoderCategories(len(st.mapping))
	}
	st.report.Log(e.logger)
	return nil
}

func (e *Encoder[C]) learn(categories []C, targets []float64) (*state[C], error) {
	if len(categories) != len(targets) {
		return nil, &ValidationError{
			Field:  "categories",
			Reason: fmt.Sprintf("length %d does not match %d targets", len(categories), len(targets)),
		}
	}
	if len(categories) == 0 {
		return nil, &ValidationError{Field: "categories", Reason: "cannot fit on an empty column"}
	}
	for i, y := range targets {
		if math.IsNaN(y) || math.IsInf(y, 0) {
			return nil, &DataError{Reason: fmt.Sprintf("target at row %d is not finite", i)}
		}
	}
	globalMean := mean(targets)
	if math.IsNaN(globalMean) || math.IsInf(globalMean, 0) {
		return nil, &DataError{Reason: "global target mean is undefined"}
	}

	stats := CollectStats(categories, targets)
	for c, s := range stats {
		if math.IsInf(s.Mean, 0) || math.IsNaN(s.Mean) {
			return nil, &DataError{Reason: fmt.Sprintf("target mean of category %v is undefined", c)}
		}
	}
	st := &state[C]{report: newReport(e.opts.Strategy, categories, stats, globalMean)}

	switch e.opts.Strategy {
	case Plain:
		st.mapping = PlainMapping(stats)
	case Smoothed:
		st.mapping = SmoothedMapping(stats, globalMean, e.opts.MinSamplesLeaf, e.opts.Smoothing)
	case Holdout:
		folds, err := StratifiedFolds(targets, e.opts.NSplits, e.opts.Seed)
		if err != nil {
			return nil, err
		}
		st.outOfFold = OutOfFold(categories, targets, folds)
		for i, v := range st.outOfFold {
			if math.IsInf(v, 0) {
				return nil, &DataError{Reason: fmt.Sprintf("out-of-fold mean at row %d is not finite", i)}
			}
		}
		st.mapping = aggregateOutOfFold(categories, st.outOfFold)
		for c, v := range st.mapping {
			if math.IsInf(v, 0) {
				return nil, &DataError{Reason: fmt.Sprintf("out-of-fold mean of category %v is not finite", c)}
			}
		}
		for _, f := range folds {
			st.report.FoldSizes = append(st.report.FoldSizes, len(f.Holdout))
		}
		for _, v := range st.outOfFold {
			if IsMissing(v) {
				st.report.MissingOutOfFold++
			}
		}
	}
	return st, nil
}

// Transform encodes categories with the learned mapping. Categories absent
// from the mapping yield the missing value.
func (e *Encoder[C]) Transform(categories []C) ([]float64, error) {
	e.mu.RLock()
	st := e.state
	e.mu.RUnlock()
	if st == nil {
		if e.metrics != nil {
			e.metrics.EncoderErrorsInc(Kind(ErrNotFitted))
		}
		return nil, ErrNotFitted
	}

	out := make([]float64, len(categories))
	unseen := 0
	for i, c := range categories {
		v, ok := st.mapping[c]
		if !ok {
			v = Missing()
			unseen++
		}
		out[i] = v
	}

	if e.metrics != nil {
		e.metrics.EncoderTransformedRows(len(categories))
		if unseen > 0 {
			e.metrics.EncoderUnseenInc(unseen)
		}
	}
	if unseen > 0 {
		e.logger.Debug().Int("rows", len(categories)).Int("unseen", unseen).Msg("unseen categories encoded as missing")
	}
	return out, nil
}

// FitTransform fits on the columns and returns their training encoding.
// For the holdout strategy that is the out-of-fold vector, for the others
// it equals Transform(categories).
func (e *Encoder[C]) FitTransform(categories []C, targets []float64) ([]float64, error) {
	if err := e.Fit(categories, targets); err != nil {
		return nil, err
	}
	if e.opts.Strategy == Holdout {
		return e.OutOfFold()
	}
	return e.Transform(categories)
}

// Mapping returns a copy of the learned category to value mapping. For the
// holdout strategy it holds the mean out-of-fold value of each category.
func (e *Encoder[C]) Mapping() (map[C]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, ErrNotFitted
	}
	m := make(map[C]float64, len(e.state.mapping))
	for c, v := range e.state.mapping {
		m[c] = v
	}
	return m, nil
}

// OutOfFold returns a copy of the per-row out-of-fold values of the last
// holdout fit, aligned with the fitted rows. It only describes the fitted
// rows and cannot be applied to other data.
func (e *Encoder[C]) OutOfFold() ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return nil, ErrNotFitted
	}
	if e.state.outOfFold == nil {
		return nil, fmt.Errorf("%w: out-of-fold values exist only for the %s strategy, encoder uses %s",
			ErrState, Holdout, e.opts.Strategy)
	}
	return append([]float64(nil), e.state.outOfFold...), nil
}

// Report returns the summary of the last successful fit.
func (e *Encoder[C]) Report() (Report[C], error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.state == nil {
		return Report[C]{}, ErrNotFitted
	}
	r := e.state.report
	r.Distribution = append([]CategoryCount[C](nil), r.Distribution...)
	r.FoldSizes = append([]int(nil), r.FoldSizes...)
	return r, nil
}
