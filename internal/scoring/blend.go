package scoring

import (
	"math"
	"time"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// Status band thresholds on the final score.
const (
	ExcellentThreshold = 85
	GoodThreshold      = 60
)

// Bands maps final scores to a status.
type Bands struct {
	Excellent int `toml:"excellent" json:"excellent"`
	Good      int `toml:"good" json:"good"`
}

// DefaultBands uses ExcellentThreshold and GoodThreshold.
var DefaultBands = Bands{Excellent: ExcellentThreshold, Good: GoodThreshold}

// Status returns the band and a short message for score.
func (b Bands) Status(score int) (string, string) {
	switch {
	case score >= b.Excellent:
		return models.StatusOptimal, "Conditions are optimal"
	case score >= b.Good:
		return models.StatusGood, "Conditions are good, minor adjustments could help"
	default:
		return models.StatusPoor, "Conditions need attention"
	}
}

// Blend interpolates the generic and learned scores by confidence. With no
// learned score the generic score is used as is and confidence is reported
// as 0. It never fails: non-finite inputs degrade toward the generic score.
func (b Bands) Blend(generic float64, learned *float64, confidence float64) models.ScoringResult {
	if !stats.IsFinite(generic) {
		generic = 0
	}
	generic = stats.Clamp(generic, 0, MaxScore)
	if !stats.IsFinite(confidence) {
		confidence = 0
	}
	confidence = stats.Clamp(confidence, 0, 1)
	if learned != nil && !stats.IsFinite(*learned) {
		learned = nil
	}

	var learnedWeight float64
	var learnedScore *float64
	final := generic
	if learned != nil {
		l := stats.Clamp(*learned, 0, MaxScore)
		learnedScore = &l
		learnedWeight = confidence
		final = generic*(1-learnedWeight) + l*learnedWeight
	}

	finalScore := int(stats.Clamp(math.Round(final), 0, MaxScore))
	status, message := b.Status(finalScore)

	return models.ScoringResult{
		FinalScore:    finalScore,
		Confidence:    learnedWeight,
		Status:        status,
		StatusMessage: message,
		ComputedAt:    time.Now().UTC(),
		Breakdown: models.ScoringBreakdown{
			GenericScore: generic,
			LearnedScore: learnedScore,
			Weights: models.BlendWeights{
				GenericWeight: 1 - learnedWeight,
				LearnedWeight: learnedWeight,
			},
		},
	}
}

// Blend combines scores using DefaultBands.
func Blend(generic float64, learned *float64, confidence float64) models.ScoringResult {
	return DefaultBands.Blend(generic, learned, confidence)
}
