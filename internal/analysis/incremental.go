package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/pulse-backend-go/internal/repository"
)

// IncrementalAnalyzer provides base functionality for analyzers that work
// through a list of venues with bounded parallelism.
type IncrementalAnalyzer struct {
	*BaseAnalyzer
	Workers int // Number of venues processed concurrently
}

// NewIncrementalAnalyzer creates a new incremental analyzer
func NewIncrementalAnalyzer(tasks *repository.AnalysisTaskRepository, name string, workers int) *IncrementalAnalyzer {
	if workers <= 0 {
		workers = 4 // Default worker count
	}

	return &IncrementalAnalyzer{
		BaseAnalyzer: NewBaseAnalyzer(tasks, name),
		Workers:      workers,
	}
}

// BatchResult summarizes one pass over a venue list.
type BatchResult struct {
	Total     int           `json:"total"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	FailedIDs []string      `json:"failedVenues,omitempty"`
	Elapsed   time.Duration `json:"-"`
}

// ProcessVenues calls fn for every venue, recording progress on the task as
// venues finish. A failing venue is counted and logged; only context
// cancellation or a progress write failure stops the pass.
func (a *IncrementalAnalyzer) ProcessVenues(
	ctx context.Context,
	taskID int64,
	venueIDs []string,
	fn func(ctx context.Context, venueID string) error,
) (BatchResult, error) {
	res := BatchResult{Total: len(venueIDs)}
	start := time.Now()

	if err := a.Tasks.SetTotal(taskID, res.Total); err != nil {
		return res, errors.Wrap(err, "failed to set task total")
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.Workers)

	for _, id := range venueIDs {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			runErr := fn(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			res.Processed++
			if runErr != nil {
				res.Failed++
				res.FailedIDs = append(res.FailedIDs, id)
				log.WithError(runErr).WithFields(log.Fields{
					"task_id":  taskID,
					"venue_id": id,
				}).Warn("Venue failed")
			}
			return a.UpdateTaskProgress(taskID, res.Processed, res.Total, res.Failed)
		})
	}

	err := g.Wait()
	res.Elapsed = time.Since(start)
	if err != nil {
		return res, errors.Wrap(err, "venue pass aborted")
	}
	return res, nil
}
