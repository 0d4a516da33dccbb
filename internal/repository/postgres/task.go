package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

const taskSelect = `
	SELECT t.id, t.patient_id, t.assigned_to, t.title, t.description, t.priority, t.status,
		t.due_date, t.completed_at, t.created_at,
		p.first_name || ' ' || p.last_name AS patient_name,
		u.name AS assignee_name
	FROM workflow_tasks t
	JOIN patients p ON p.id = t.patient_id
	JOIN users u ON u.id = t.assigned_to`

const taskOrder = ` ORDER BY CASE t.priority
		WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
		t.due_date ASC NULLS LAST, t.id ASC`

type taskRepository struct {
	BaseRepository
	now func() time.Time
}

func NewTaskRepository(db *sqlx.DB) repository.TaskRepository {
	return &taskRepository{BaseRepository: NewBaseRepository(db), now: time.Now}
}

// Create stamps completed_at per the task's status and inserts it.
func (r *taskRepository) Create(ctx context.Context, task *model.WorkflowTask) error {
	task.ApplyCompletion(r.now())

	query := `
		INSERT INTO workflow_tasks (
			patient_id, assigned_to, title, description, priority, status, due_date, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		task.PatientID,
		task.AssignedTo,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.CompletedAt,
	).Scan(&task.ID, &task.CreatedAt)
	return mapError(err, "task")
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*model.WorkflowTask, error) {
	var task model.WorkflowTask
	if err := r.db.GetContext(ctx, &task, taskSelect+` WHERE t.id = $1`, id); err != nil {
		return nil, mapError(err, "task")
	}
	return &task, nil
}

// Update re-applies the completion rule before writing. The caller's
// completed_at is expected to be the stored value so a task that stays
// completed keeps its original stamp.
func (r *taskRepository) Update(ctx context.Context, task *model.WorkflowTask) error {
	task.ApplyCompletion(r.now())

	query := `
		UPDATE workflow_tasks SET
			patient_id = $1, assigned_to = $2, title = $3, description = $4,
			priority = $5, status = $6, due_date = $7, completed_at = $8
		WHERE id = $9
	`
	result, err := r.db.ExecContext(ctx, query,
		task.PatientID,
		task.AssignedTo,
		task.Title,
		task.Description,
		task.Priority,
		task.Status,
		task.DueDate,
		task.CompletedAt,
		task.ID,
	)
	if err != nil {
		return mapError(err, "task")
	}
	return requireAffected(result, "task")
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_tasks WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "task")
	}
	return requireAffected(result, "task")
}

func (r *taskRepository) List(ctx context.Context, filter *model.TaskFilter) ([]*model.WorkflowTask, int, error) {
	var w where
	if filter.Status != "" {
		w.add("t.status = $%d", filter.Status)
	}
	if filter.Priority != "" {
		w.add("t.priority = $%d", filter.Priority)
	}
	if filter.AssignedTo != nil {
		w.add("t.assigned_to = $%d", *filter.AssignedTo)
	}
	if filter.PatientID != nil {
		w.add("t.patient_id = $%d", *filter.PatientID)
	}
	if filter.Search != "" {
		w.add("(t.title ILIKE $%d OR t.description ILIKE $%d)", likePattern(filter.Search))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM workflow_tasks t`+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	limit, args := w.page(filter.PageSize, filter.Offset())
	tasks := []*model.WorkflowTask{}
	if err := r.db.SelectContext(ctx, &tasks, taskSelect+w.clause()+taskOrder+limit, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}
