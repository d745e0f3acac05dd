package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/jengzang/pulse-backend-go/internal/analysis"
	"github.com/jengzang/pulse-backend-go/internal/models"
	"github.com/jengzang/pulse-backend-go/internal/repository"
)

var (
	// ErrUnknownSkill is returned for skills with no registered analyzer.
	ErrUnknownSkill = errors.New("unknown analysis skill")
	// ErrInvalidTaskType is returned for task types other than INCREMENTAL
	// and FULL_RECOMPUTE.
	ErrInvalidTaskType = errors.New("invalid task type")
	// ErrTaskActive is returned when a task of the same skill is pending or
	// running.
	ErrTaskActive = errors.New("a task for this skill is already active")
	// ErrTaskNotActive is returned when cancelling a finished task.
	ErrTaskNotActive = errors.New("task is not running")
)

// AbandonAfter is how long a pending or running task may go without a
// progress update before a new task of the same skill replaces it.
const AbandonAfter = 30 * time.Minute

// TaskRequest describes a task to create.
type TaskRequest struct {
	SkillName string
	TaskType  string
	VenueID   string
	Params    map[string]interface{}
	CreatedBy string
}

// AnalysisTaskService handles analysis task business logic
type AnalysisTaskService struct {
	repo *repository.AnalysisTaskRepository
	deps analysis.Deps
	ctx  context.Context
	now  func() time.Time

	mu      sync.Mutex
	running map[int64]*runningTask
}

type runningTask struct {
	skill  string
	cancel context.CancelFunc
}

// NewAnalysisTaskService creates a new analysis task service. Tasks started
// in the background stop when ctx is cancelled.
func NewAnalysisTaskService(ctx context.Context, repo *repository.AnalysisTaskRepository, recomputer analysis.Recomputer, workers int) *AnalysisTaskService {
	return &AnalysisTaskService{
		repo:    repo,
		deps:    analysis.Deps{Tasks: repo, Recomputer: recomputer, Workers: workers},
		ctx:     ctx,
		now:     time.Now,
		running: make(map[int64]*runningTask),
	}
}

// RecoverOrphans fails every pending or running task left behind by a
// previous process. Call it once at startup, before any task runs.
func (s *AnalysisTaskService) RecoverOrphans() (int64, error) {
	n, err := s.repo.FailAbandoned("", s.now(), "Task orphaned by a restart")
	if err != nil {
		return 0, storeError(err)
	}
	if n > 0 {
		log.WithField("tasks", n).Warn("Failed orphaned analysis tasks")
	}
	return n, nil
}

// CreateTask creates a new analysis task and runs it in the background.
func (s *AnalysisTaskService) CreateTask(req TaskRequest) (*models.AnalysisTask, error) {
	task, err := s.create(req)
	if err != nil {
		return nil, err
	}

	go func() {
		err := s.Run(s.ctx, task)
		switch {
		case err == nil:
		case stopped(err):
			log.WithField("task_id", task.ID).Info("Analysis task stopped")
		default:
			log.WithError(err).WithField("task_id", task.ID).Error("Analysis task failed")
		}
	}()

	return task, nil
}

// RunTask creates a task and runs it to completion before returning.
func (s *AnalysisTaskService) RunTask(ctx context.Context, req TaskRequest) (*models.AnalysisTask, error) {
	task, err := s.create(req)
	if err != nil {
		return nil, err
	}
	runErr := s.Run(ctx, task)

	done, err := s.repo.GetByID(task.ID)
	if err != nil {
		return nil, err
	}
	return done, runErr
}

func (s *AnalysisTaskService) create(req TaskRequest) (*models.AnalysisTask, error) {
	if !analysis.IsRegistered(req.SkillName) {
		return nil, errors.Wrapf(ErrUnknownSkill, "%q", req.SkillName)
	}
	if req.TaskType == "" {
		req.TaskType = models.TaskTypeIncremental
	}
	if req.TaskType != models.TaskTypeIncremental && req.TaskType != models.TaskTypeFullRecompute {
		return nil, errors.Wrapf(ErrInvalidTaskType, "%q", req.TaskType)
	}

	var paramsJSON string
	if len(req.Params) > 0 {
		b, err := json.Marshal(req.Params)
		if err != nil {
			return nil, errors.Wrap(err, "failed to serialize params")
		}
		paramsJSON = string(b)
	}

	task := &models.AnalysisTask{
		SkillName:  req.SkillName,
		TaskType:   req.TaskType,
		VenueID:    req.VenueID,
		Status:     models.TaskStatusPending,
		ParamsJSON: paramsJSON,
		CreatedBy:  req.CreatedBy,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A cancelled run may still be unwinding after its row turned failed.
	for _, rt := range s.running {
		if rt.skill == req.SkillName {
			return nil, errors.Wrapf(ErrTaskActive, "%s", req.SkillName)
		}
	}

	var abandoned int64
	err := s.repo.Transaction(func(tx *repository.AnalysisTaskRepository) error {
		var err error
		abandoned, err = tx.FailAbandoned(req.SkillName, s.now().Add(-AbandonAfter), "Task abandoned without progress")
		if err != nil {
			return err
		}
		active, err := tx.HasActive(req.SkillName)
		if err != nil {
			return err
		}
		if active {
			return errors.Wrapf(ErrTaskActive, "%s", req.SkillName)
		}
		return tx.Create(task)
	})
	if errors.Is(err, ErrTaskActive) {
		return nil, err
	}
	if err != nil {
		return nil, storeError(err)
	}
	if abandoned > 0 {
		log.WithFields(log.Fields{"skill": req.SkillName, "tasks": abandoned}).Warn("Failed abandoned analysis tasks")
	}

	// Reserve the skill until Run picks the task up.
	s.running[task.ID] = &runningTask{skill: task.SkillName, cancel: func() {}}

	log.WithFields(log.Fields{
		"task_id":   task.ID,
		"skill":     task.SkillName,
		"task_type": task.TaskType,
		"venue_id":  task.VenueID,
	}).Info("Analysis task created")
	return task, nil
}

// Run executes an existing task and records a failure on it. CancelTask
// stops the run through its context.
func (s *AnalysisTaskService) Run(ctx context.Context, task *models.AnalysisTask) error {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.running[task.ID] = &runningTask{skill: task.SkillName, cancel: cancel}
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		delete(s.running, task.ID)
		s.mu.Unlock()
	}()

	analyzer := analysis.GetAnalyzer(task.SkillName, s.deps)
	if analyzer == nil {
		s.markFailed(task.ID, fmt.Sprintf("Unknown skill: %s", task.SkillName))
		return errors.Wrapf(ErrUnknownSkill, "%q", task.SkillName)
	}

	if err := analyzer.Analyze(ctx, task, analysis.ModeFor(task.TaskType)); err != nil {
		// A no-op for tasks already failed by CancelTask.
		s.markFailed(task.ID, fmt.Sprintf("Analysis failed: %v", err))
		return err
	}
	return nil
}

// stopped reports whether err ended a run because it was cancelled.
func stopped(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, repository.ErrTaskFinished)
}

func (s *AnalysisTaskService) markFailed(id int64, msg string) {
	err := s.repo.MarkAsFailed(id, msg)
	if err != nil && !errors.Is(err, repository.ErrTaskFinished) {
		log.WithError(err).WithField("task_id", id).Warn("Failed to mark task as failed")
	}
}

// GetTask retrieves a task by ID
func (s *AnalysisTaskService) GetTask(id int64) (*models.AnalysisTask, error) {
	return s.repo.GetByID(id)
}

// ListTasks retrieves all tasks with optional filters
func (s *AnalysisTaskService) ListTasks(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return s.repo.List(skillName, status, limit, offset)
}

// CancelTask fails a pending or running task and stops its run.
func (s *AnalysisTaskService) CancelTask(id int64) error {
	task, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}

	if task.Status != models.TaskStatusPending && task.Status != models.TaskStatusRunning {
		return errors.Wrapf(ErrTaskNotActive, "status %s", task.Status)
	}

	if err := s.repo.MarkAsFailed(id, "Task cancelled by user"); err != nil {
		if errors.Is(err, repository.ErrTaskFinished) {
			return errors.Wrapf(ErrTaskNotActive, "task %d", id)
		}
		return storeError(err)
	}

	s.mu.Lock()
	if rt, ok := s.running[id]; ok {
		rt.cancel()
	}
	s.mu.Unlock()

	log.WithField("task_id", id).Info("Analysis task cancelled")
	return nil
}
