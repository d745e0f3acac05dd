package analysis

import (
	"context"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/pulse-backend-go/internal/database"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/repository"
)

func newTaskRepo(t *testing.T) *repository.AnalysisTaskRepository {
	t.Helper()
	conn, err := database.Open(database.MemoryPath)
	require.NoError(t, err)
	require.NoError(t, database.MigrateUp(conn))
	t.Cleanup(func() { conn.Close() })
	return repository.NewAnalysisTaskRepository(conn)
}

func TestProcessVenuesCountsFailures(t *testing.T) {
	tasks := newTaskRepo(t)
	task := &models.AnalysisTask{SkillName: "test", TaskType: models.TaskTypeFullRecompute}
	require.NoError(t, tasks.Create(task))
	require.NoError(t, tasks.MarkAsRunning(task.ID))

	a := NewIncrementalAnalyzer(tasks, "test", 2)
	var calls atomic.Int64
	res, err := a.ProcessVenues(context.Background(), task.ID, []string{"a", "b", "c", "d"},
		func(ctx context.Context, id string) error {
			calls.Add(1)
			if id == "b" || id == "d" {
				return errors.New("boom")
			}
			return nil
		})
	require.NoError(t, err)

	assert.Equal(t, int64(4), calls.Load())
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 2, res.Failed)
	sort.Strings(res.FailedIDs)
	assert.Equal(t, []string{"b", "d"}, res.FailedIDs)

	progress, err := a.GetProgress(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, progress.Total)
	assert.Equal(t, 4, progress.Processed)
	assert.Equal(t, 2, progress.Failed)
	assert.InDelta(t, 100.0, progress.Percent, 1e-9)
}

func TestProcessVenuesStopsOnCancel(t *testing.T) {
	tasks := newTaskRepo(t)
	task := &models.AnalysisTask{SkillName: "test"}
	require.NoError(t, tasks.Create(task))
	require.NoError(t, tasks.MarkAsRunning(task.ID))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewIncrementalAnalyzer(tasks, "test", 1)
	_, err := a.ProcessVenues(ctx, task.ID, []string{"a", "b"}, func(context.Context, string) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

type noopAnalyzer struct{ *BaseAnalyzer }

func (noopAnalyzer) Analyze(context.Context, *models.AnalysisTask, string) error { return nil }

func TestProcessVenuesStopsWhenTaskIsCancelled(t *testing.T) {
	tasks := newTaskRepo(t)
	task := &models.AnalysisTask{SkillName: "test"}
	require.NoError(t, tasks.Create(task))
	require.NoError(t, tasks.MarkAsRunning(task.ID))

	a := NewIncrementalAnalyzer(tasks, "test", 1)
	var calls atomic.Int64
	_, err := a.ProcessVenues(context.Background(), task.ID, []string{"a", "b", "c"},
		func(ctx context.Context, id string) error {
			if calls.Add(1) == 1 {
				require.NoError(t, tasks.MarkAsFailed(task.ID, "Task cancelled by user"))
			}
			return nil
		})
	assert.ErrorIs(t, err, repository.ErrTaskFinished)
	assert.Equal(t, int64(1), calls.Load())
}

func TestRegistry(t *testing.T) {
	RegisterAnalyzer("registry_test", func(deps Deps) Analyzer {
		return noopAnalyzer{NewBaseAnalyzer(deps.Tasks, "registry_test")}
	})

	assert.True(t, IsRegistered("registry_test"))
	assert.False(t, IsRegistered("missing"))
	assert.Nil(t, GetAnalyzer("missing", Deps{}))
	assert.Contains(t, Skills(), "registry_test")
	assert.Equal(t, "registry_test", GetAnalyzer("registry_test", Deps{}).GetName())
	assert.Equal(t, ModeFull, ModeFor(models.TaskTypeFullRecompute))
	assert.Equal(t, ModeIncremental, ModeFor(models.TaskTypeIncremental))
}
