package scoring

import (
	"sort"
	"time"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/stats"
)

// Observation pairs a historical reading with the outcome proxy it led to.
type Observation struct {
	Reading models.SensorReading
	Outcome float64
}

// GrowthWindow is the interval occupancy growth is expressed per.
const GrowthWindow = 15 * time.Minute

// MaxGrowthGap is the longest gap between consecutive readings that still
// yields a growth sample. Longer gaps usually mean the device was offline.
const MaxGrowthGap = time.Hour

// BuildObservations derives one outcome value per reading according to the
// metric. Readings without a usable outcome are dropped. The result is
// ordered by time and does not depend on the input order.
func BuildObservations(history []models.HistoricalReading, metric OutcomeMetric) []Observation {
	sorted := make([]models.HistoricalReading, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Time.Equal(sorted[j].Time) {
			return sorted[i].Time.Before(sorted[j].Time)
		}
		return sorted[i].ID < sorted[j].ID
	})

	switch metric {
	case OutcomeDwellTime, OutcomeRevenue:
		return attachedOutcomes(sorted, metric)
	default:
		return occupancyGrowth(sorted)
	}
}

func attachedOutcomes(history []models.HistoricalReading, metric OutcomeMetric) []Observation {
	out := make([]Observation, 0, len(history))
	for _, h := range history {
		if h.Outcome == nil {
			continue
		}
		v := h.Outcome.DwellMinutes
		if metric == OutcomeRevenue {
			v = h.Outcome.Revenue
		}
		if v == nil || !stats.IsFinite(*v) {
			continue
		}
		out = append(out, Observation{Reading: h.SensorReading, Outcome: *v})
	}
	return out
}

// occupancyGrowth credits each reading with the head-count change that
// followed it, scaled to GrowthWindow.
func occupancyGrowth(history []models.HistoricalReading) []Observation {
	out := make([]Observation, 0, len(history))
	for i := 0; i+1 < len(history); i++ {
		cur, next := history[i], history[i+1]
		if cur.VenueID != next.VenueID {
			continue
		}
		gap := next.Time.Sub(cur.Time)
		if gap <= 0 || gap > MaxGrowthGap {
			continue
		}
		a, ok := OccupancyCurrent(cur.SensorReading)
		if !ok {
			continue
		}
		b, ok := OccupancyCurrent(next.SensorReading)
		if !ok {
			continue
		}
		growth := float64(b-a) * float64(GrowthWindow) / float64(gap)
		out = append(out, Observation{Reading: cur.SensorReading, Outcome: growth})
	}
	return out
}
