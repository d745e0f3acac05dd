package learning

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/analysis"
	"github.com/jengzang/pulse-backend-go/internal/models"
)

func init() {
	analysis.RegisterAnalyzer(models.SkillLearnedRanges, NewLearnedRangesAnalyzer)
}

// LearnedRangesAnalyzer rebuilds the cached learned model of each venue.
// Incremental runs only touch venues whose cached model is missing or
// stale; full runs rebuild every venue.
type LearnedRangesAnalyzer struct {
	*analysis.IncrementalAnalyzer
	recomputer analysis.Recomputer
}

// NewLearnedRangesAnalyzer creates a new learned ranges analyzer
func NewLearnedRangesAnalyzer(deps analysis.Deps) analysis.Analyzer {
	return &LearnedRangesAnalyzer{
		IncrementalAnalyzer: analysis.NewIncrementalAnalyzer(deps.Tasks, models.SkillLearnedRanges, deps.Workers),
		recomputer:          deps.Recomputer,
	}
}

type summary struct {
	Mode     string   `json:"mode"`
	Venues   int      `json:"venues"`
	Skipped  int      `json:"skipped"`
	Learned  int      `json:"learned"`
	Failed   int      `json:"failed"`
	FailedID []string `json:"failedVenues,omitempty"`
	Millis   int64    `json:"elapsedMs"`
}

// Analyze recomputes learned models for the task's venue, or all venues.
func (a *LearnedRangesAnalyzer) Analyze(ctx context.Context, task *models.AnalysisTask, mode string) error {
	logger := log.WithFields(log.Fields{"task_id": task.ID, "mode": mode, "component": a.GetName()})
	logger.Info("Starting analysis")

	if err := a.MarkTaskAsRunning(task.ID); err != nil {
		return errors.Wrap(err, "failed to mark task as running")
	}

	candidates := []string{task.VenueID}
	if task.VenueID == "" {
		ids, err := a.recomputer.VenueIDs()
		if err != nil {
			return errors.Wrap(err, "failed to list venues")
		}
		candidates = ids
	}

	targets := candidates
	if mode != analysis.ModeFull {
		targets = targets[:0:0]
		for _, id := range candidates {
			stale, err := a.recomputer.Stale(id)
			if err != nil {
				return errors.Wrapf(err, "venue %s", id)
			}
			if stale {
				targets = append(targets, id)
			}
		}
	}

	var learned atomic.Int64
	res, err := a.ProcessVenues(ctx, task.ID, targets, func(ctx context.Context, venueID string) error {
		m, err := a.recomputer.Recompute(ctx, venueID)
		if err != nil {
			return err
		}
		if m.Ranges != nil {
			learned.Add(1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	out, err := json.Marshal(summary{
		Mode:     mode,
		Venues:   res.Total,
		Skipped:  len(candidates) - len(targets),
		Learned:  int(learned.Load()),
		Failed:   res.Failed,
		FailedID: res.FailedIDs,
		Millis:   res.Elapsed.Milliseconds(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode summary")
	}

	if err := a.MarkTaskAsCompleted(task.ID, string(out)); err != nil {
		return errors.Wrap(err, "failed to mark task as completed")
	}

	logger.WithFields(log.Fields{
		"venues":  res.Total,
		"failed":  res.Failed,
		"elapsed": res.Elapsed,
	}).Info("Analysis completed")
	return nil
}
