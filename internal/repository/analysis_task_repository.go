package repository

import (
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/jengzang/pulse-backend-go/internal/database"
	"github.com/jengzang/pulse-backend-go/internal/models"
)

const taskColumns = `id, skill_name, task_type, venue_id, status, progress_percent,
	params_json, total_items, processed_items, failed_items, result_summary, error_message,
	created_by, created_at, updated_at, started_at, completed_at`

// AnalysisTaskRepository handles database operations for analysis tasks
type AnalysisTaskRepository struct {
	db   dbtx
	conn *sql.DB
}

// NewAnalysisTaskRepository creates a new analysis task repository
func NewAnalysisTaskRepository(db *sql.DB) *AnalysisTaskRepository {
	return &AnalysisTaskRepository{db: db, conn: db}
}

// Transaction runs fn against a repository bound to one transaction.
func (r *AnalysisTaskRepository) Transaction(fn func(tx *AnalysisTaskRepository) error) error {
	return database.Transaction(r.conn, func(tx *sql.Tx) error {
		return fn(&AnalysisTaskRepository{db: tx, conn: r.conn})
	})
}

// Create creates a new analysis task
func (r *AnalysisTaskRepository) Create(task *models.AnalysisTask) error {
	now := time.Now().UTC()
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}
	task.CreatedAt, task.UpdatedAt = now, now

	query := `
		INSERT INTO analysis_tasks (
			skill_name, task_type, venue_id, status, progress_percent, params_json,
			total_items, processed_items, failed_items, result_summary, error_message,
			created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		task.SkillName,
		task.TaskType,
		task.VenueID,
		task.Status,
		task.ProgressPercent,
		task.ParamsJSON,
		task.TotalItems,
		task.ProcessedItems,
		task.FailedItems,
		task.ResultSummary,
		task.ErrorMessage,
		task.CreatedBy,
		toMillis(task.CreatedAt),
		toMillis(task.UpdatedAt),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create analysis task")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "failed to get last insert id")
	}

	task.ID = id
	return nil
}

// GetByID retrieves an analysis task by ID
func (r *AnalysisTaskRepository) GetByID(id int64) (*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE id = ?`

	task, err := scanTask(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(ErrTaskNotFound, "id %d", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get analysis task")
	}
	return task, nil
}

// List retrieves analysis tasks with optional filters
func (r *AnalysisTaskRepository) List(skillName string, status string, limit int, offset int) ([]*models.AnalysisTask, error) {
	query := `SELECT ` + taskColumns + ` FROM analysis_tasks WHERE 1=1`

	args := []interface{}{}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	if limit <= 0 {
		limit = 50
	}

	query += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list analysis tasks")
	}
	defer rows.Close()

	tasks := []*models.AnalysisTask{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan analysis task")
		}
		tasks = append(tasks, task)
	}

	return tasks, errors.Wrap(rows.Err(), "failed to iterate analysis tasks")
}

// SetTotal records how many items a running task will process.
func (r *AnalysisTaskRepository) SetTotal(id int64, total int) error {
	res, err := r.db.Exec(`UPDATE analysis_tasks SET total_items = ?, updated_at = ? WHERE id = ? AND status = ?`,
		total, toMillis(time.Now()), id, models.TaskStatusRunning)
	if err != nil {
		return errors.Wrap(err, "failed to set task total")
	}
	return affected(res, id)
}

// UpdateProgress updates the progress of a running task
func (r *AnalysisTaskRepository) UpdateProgress(id int64, processed int, failed int, progressPercent float64) error {
	query := `
		UPDATE analysis_tasks
		SET processed_items = ?, failed_items = ?, progress_percent = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.Exec(query, processed, failed, progressPercent, toMillis(time.Now()), id, models.TaskStatusRunning)
	if err != nil {
		return errors.Wrap(err, "failed to update task progress")
	}

	return affected(res, id)
}

// MarkAsRunning moves a pending task to running
func (r *AnalysisTaskRepository) MarkAsRunning(id int64) error {
	now := toMillis(time.Now())
	query := `
		UPDATE analysis_tasks
		SET status = ?, started_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.Exec(query, models.TaskStatusRunning, now, now, id, models.TaskStatusPending)
	if err != nil {
		return errors.Wrap(err, "failed to mark task as running")
	}

	return affected(res, id)
}

// MarkAsCompleted marks a running task as completed with result summary
func (r *AnalysisTaskRepository) MarkAsCompleted(id int64, resultSummary string) error {
	now := toMillis(time.Now())
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, result_summary = ?,
			progress_percent = 100, updated_at = ?
		WHERE id = ? AND status = ?
	`

	res, err := r.db.Exec(query, models.TaskStatusCompleted, now, resultSummary, now, id, models.TaskStatusRunning)
	if err != nil {
		return errors.Wrap(err, "failed to mark task as completed")
	}

	return affected(res, id)
}

// MarkAsFailed marks a pending or running task as failed with an error
// message. A task that already finished keeps its outcome.
func (r *AnalysisTaskRepository) MarkAsFailed(id int64, errorMessage string) error {
	now := toMillis(time.Now())
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	res, err := r.db.Exec(query, models.TaskStatusFailed, now, errorMessage, now, id,
		models.TaskStatusPending, models.TaskStatusRunning)
	if err != nil {
		return errors.Wrap(err, "failed to mark task as failed")
	}

	return affected(res, id)
}

// FailAbandoned fails the pending or running tasks of skill that have not
// been updated since before. An empty skill matches every skill.
func (r *AnalysisTaskRepository) FailAbandoned(skillName string, before time.Time, errorMessage string) (int64, error) {
	now := toMillis(time.Now())
	query := `
		UPDATE analysis_tasks
		SET status = ?, completed_at = ?, error_message = ?, updated_at = ?
		WHERE status IN (?, ?) AND updated_at < ?
	`
	args := []interface{}{models.TaskStatusFailed, now, errorMessage, now,
		models.TaskStatusPending, models.TaskStatusRunning, toMillis(before)}
	if skillName != "" {
		query += " AND skill_name = ?"
		args = append(args, skillName)
	}

	res, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fail abandoned tasks")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "failed to count abandoned tasks")
}

// HasActive reports whether a task of skill is pending or running.
func (r *AnalysisTaskRepository) HasActive(skillName string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM analysis_tasks WHERE skill_name = ? AND status IN (?, ?)`,
		skillName, models.TaskStatusPending, models.TaskStatusRunning).Scan(&n)
	if err != nil {
		return false, errors.Wrap(err, "failed to count active tasks")
	}
	return n > 0, nil
}

func scanTask(s rowScanner) (*models.AnalysisTask, error) {
	var (
		task                 models.AnalysisTask
		createdAt, updatedAt int64
		startedAt, doneAt    sql.NullInt64
	)
	err := s.Scan(
		&task.ID,
		&task.SkillName,
		&task.TaskType,
		&task.VenueID,
		&task.Status,
		&task.ProgressPercent,
		&task.ParamsJSON,
		&task.TotalItems,
		&task.ProcessedItems,
		&task.FailedItems,
		&task.ResultSummary,
		&task.ErrorMessage,
		&task.CreatedBy,
		&createdAt,
		&updatedAt,
		&startedAt,
		&doneAt,
	)
	if err != nil {
		return nil, err
	}
	task.CreatedAt = fromMillis(createdAt)
	task.UpdatedAt = fromMillis(updatedAt)
	task.StartedAt = timePtr(startedAt)
	task.CompletedAt = timePtr(doneAt)
	return &task, nil
}
