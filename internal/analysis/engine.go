package analysis

import (
	"context"
	"sort"
	"sync"

	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/repository"
)

// Analyzer is the interface that all analysis skills must implement
type Analyzer interface {
	// Analyze performs the analysis for a given task
	// mode: "incremental" or "full"
	Analyze(ctx context.Context, task *models.AnalysisTask, mode string) error

	// GetProgress returns the current progress of the analysis
	GetProgress(taskID int64) (*Progress, error)

	// GetName returns the name of the analyzer
	GetName() string
}

// Analysis modes
const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
)

// ModeFor maps a task type to an analysis mode.
func ModeFor(taskType string) string {
	if taskType == models.TaskTypeFullRecompute {
		return ModeFull
	}
	return ModeIncremental
}

// Progress represents the progress of an analysis task
type Progress struct {
	Processed int     // Number of venues processed
	Total     int     // Total number of venues to process
	Failed    int     // Number of failed venues
	Percent   float64 // Progress percentage (0-100)
	Status    string
}

// Recomputer rebuilds per-venue learned models.
type Recomputer interface {
	VenueIDs() ([]string, error)
	Stale(venueID string) (bool, error)
	Recompute(ctx context.Context, venueID string) (*models.LearnedModel, error)
}

// Deps are the collaborators handed to analyzer factories.
type Deps struct {
	Tasks      *repository.AnalysisTaskRepository
	Recomputer Recomputer
	Workers    int
}

// BaseAnalyzer provides common functionality for all analyzers
type BaseAnalyzer struct {
	Tasks *repository.AnalysisTaskRepository
	Name  string
}

// NewBaseAnalyzer creates a new base analyzer
func NewBaseAnalyzer(tasks *repository.AnalysisTaskRepository, name string) *BaseAnalyzer {
	return &BaseAnalyzer{
		Tasks: tasks,
		Name:  name,
	}
}

// GetName returns the analyzer name
func (a *BaseAnalyzer) GetName() string {
	return a.Name
}

// UpdateTaskProgress updates the progress of an analysis task in the database
func (a *BaseAnalyzer) UpdateTaskProgress(taskID int64, processed, total, failed int) error {
	percent := 0.0
	if total > 0 {
		percent = float64(processed) / float64(total) * 100.0
	}
	return a.Tasks.UpdateProgress(taskID, processed, failed, percent)
}

// MarkTaskAsRunning marks a task as running
func (a *BaseAnalyzer) MarkTaskAsRunning(taskID int64) error {
	return a.Tasks.MarkAsRunning(taskID)
}

// MarkTaskAsCompleted marks a task as completed
func (a *BaseAnalyzer) MarkTaskAsCompleted(taskID int64, summary string) error {
	return a.Tasks.MarkAsCompleted(taskID, summary)
}

// MarkTaskAsFailed marks a task as failed with an error message
func (a *BaseAnalyzer) MarkTaskAsFailed(taskID int64, errorMsg string) error {
	return a.Tasks.MarkAsFailed(taskID, errorMsg)
}

// GetProgress reads the stored progress of a task.
func (a *BaseAnalyzer) GetProgress(taskID int64) (*Progress, error) {
	task, err := a.Tasks.GetByID(taskID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Processed: task.ProcessedItems,
		Total:     task.TotalItems,
		Failed:    task.FailedItems,
		Percent:   task.ProgressPercent,
		Status:    task.Status,
	}, nil
}

// AnalyzerFactory is a function that creates an analyzer instance
type AnalyzerFactory func(deps Deps) Analyzer

var (
	registryMu sync.RWMutex
	registry   = make(map[string]AnalyzerFactory)
)

// RegisterAnalyzer registers an analyzer factory for a skill name
func RegisterAnalyzer(skillName string, factory AnalyzerFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[skillName] = factory
}

// GetAnalyzer retrieves an analyzer instance for a skill name
func GetAnalyzer(skillName string, deps Deps) Analyzer {
	registryMu.RLock()
	factory, ok := registry[skillName]
	registryMu.RUnlock()
	if !ok {
		return nil
	}
	return factory(deps)
}

// IsRegistered reports whether an analyzer exists for skillName.
func IsRegistered(skillName string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[skillName]
	return ok
}

// Skills lists the registered skill names.
func Skills() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
