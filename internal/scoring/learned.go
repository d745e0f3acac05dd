package scoring

import (
	"math"
	"sort"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// EstimatorConfig tunes the learned-range estimator.
type EstimatorConfig struct {
	// MinBucketSamples is the population below which a bucket is discarded.
	MinBucketSamples int `toml:"min_bucket_samples" json:"minBucketSamples"`
	// MinBuckets is how many trusted buckets a factor needs before any range
	// is derived for it.
	MinBuckets int `toml:"min_buckets" json:"minBuckets"`
	// TopQuantile selects buckets whose mean outcome is at or above this
	// quantile of all trusted bucket means.
	TopQuantile float64 `toml:"top_quantile" json:"topQuantile"`
}

// DefaultEstimatorConfig keeps the top quartile of buckets holding at least
// 20 samples.
var DefaultEstimatorConfig = EstimatorConfig{
	MinBucketSamples: 20,
	MinBuckets:       3,
	TopQuantile:      0.75,
}

// Estimator derives per-venue optimal ranges from history.
type Estimator struct {
	cfg   EstimatorConfig
	specs map[models.Factor]FactorSpec
}

// NewEstimator builds an estimator. Zero config fields take their defaults.
func NewEstimator(cfg EstimatorConfig, specs map[models.Factor]FactorSpec) *Estimator {
	if cfg.MinBucketSamples <= 0 {
		cfg.MinBucketSamples = DefaultEstimatorConfig.MinBucketSamples
	}
	if cfg.MinBuckets <= 0 {
		cfg.MinBuckets = DefaultEstimatorConfig.MinBuckets
	}
	if cfg.TopQuantile <= 0 || cfg.TopQuantile > 1 {
		cfg.TopQuantile = DefaultEstimatorConfig.TopQuantile
	}
	if specs == nil {
		specs = DefaultFactorSpecs()
	}
	return &Estimator{cfg: cfg, specs: specs}
}

// Config returns the effective configuration.
func (e *Estimator) Config() EstimatorConfig {
	return e.cfg
}

type bucket struct {
	index    int64
	outcomes []float64
	mean     float64
}

// EstimateRanges returns the learned range for every factor with enough
// history, or nil when no factor qualifies. Observations tagged with another
// venue are ignored. The result depends only on the set of observations.
func (e *Estimator) EstimateRanges(venueID string, obs []Observation) map[models.Factor]models.OptimalRange {
	var out map[models.Factor]models.OptimalRange
	for _, f := range models.AllFactors {
		spec, ok := e.specs[f]
		if !ok || spec.BucketWidth <= 0 {
			continue
		}
		r, ok := e.estimateFactor(venueID, spec, obs)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[models.Factor]models.OptimalRange)
		}
		out[f] = r
	}
	return out
}

func (e *Estimator) estimateFactor(venueID string, spec FactorSpec, obs []Observation) (models.OptimalRange, bool) {
	byIndex := make(map[int64]*bucket)
	for _, o := range obs {
		if o.Reading.VenueID != "" && venueID != "" && o.Reading.VenueID != venueID {
			continue
		}
		if !stats.IsFinite(o.Outcome) {
			continue
		}
		v, ok := FactorValue(o.Reading, spec.Factor)
		if !ok || !spec.Domain.Contains(v) {
			continue
		}
		idx := int64(math.Floor(v / spec.BucketWidth))
		b, ok := byIndex[idx]
		if !ok {
			b = &bucket{index: idx}
			byIndex[idx] = b
		}
		b.outcomes = append(b.outcomes, o.Outcome)
	}

	trusted := make([]*bucket, 0, len(byIndex))
	for _, b := range byIndex {
		if len(b.outcomes) < e.cfg.MinBucketSamples {
			continue
		}
		// Summation order must not depend on observation order.
		sort.Float64s(b.outcomes)
		b.mean = stats.Mean(b.outcomes)
		trusted = append(trusted, b)
	}
	if len(trusted) < e.cfg.MinBuckets {
		return models.OptimalRange{}, false
	}
	sort.Slice(trusted, func(i, j int) bool { return trusted[i].index < trusted[j].index })

	means := make([]float64, len(trusted))
	best := 0
	for i, b := range trusted {
		means[i] = b.mean
		if b.mean > trusted[best].mean {
			best = i
		}
	}
	cut := stats.Quantile(means, e.cfg.TopQuantile)
	selected := func(i int) bool { return trusted[i].mean >= cut }

	lo, hi := best, best
	for lo > 0 && selected(lo-1) && trusted[lo-1].index == trusted[lo].index-1 {
		lo--
	}
	for hi < len(trusted)-1 && selected(hi+1) && trusted[hi+1].index == trusted[hi].index+1 {
		hi++
	}

	w := spec.BucketWidth
	r, err := models.NewOptimalRange(float64(trusted[lo].index)*w, float64(trusted[hi].index+1)*w)
	if err != nil {
		return models.OptimalRange{}, false
	}
	return r, true
}

// ScoreLearned scores a reading against learned ranges. Only factors that are
// both active in weights and present in ranges take part. The second result
// is false when nothing could be scored.
func ScoreLearned(reading models.SensorReading, ranges map[models.Factor]models.OptimalRange, weights FactorWeights, specs map[models.Factor]FactorSpec) (FactorBreakdown, bool) {
	if len(ranges) == 0 {
		return FactorBreakdown{}, false
	}
	if specs == nil {
		specs = DefaultFactorSpecs()
	}

	out := FactorBreakdown{
		PerFactor: make(map[models.Factor]float64),
		Ranges:    make(map[models.Factor]models.OptimalRange),
	}
	for _, f := range weights.Active() {
		r, ok := ranges[f]
		if !ok {
			continue
		}
		spec, ok := specs[f]
		if !ok {
			continue
		}
		value, ok := FactorValue(reading, f)
		if !ok {
			continue
		}
		out.Ranges[f] = r
		out.PerFactor[f] = spec.Score(value, r)
	}
	if !out.Scored() {
		return FactorBreakdown{}, false
	}

	out.Overall = combine(out.PerFactor, weights)
	return out, true
}
