package model

import (
	"time"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// WorkflowTask is a follow-up action assigned to a staff member
type WorkflowTask struct {
	ID          int64        `db:"id" json:"id"`
	PatientID   int64        `db:"patient_id" json:"patient"`
	AssignedTo  int64        `db:"assigned_to" json:"assigned_to"`
	Title       string       `db:"title" json:"title"`
	Description string       `db:"description" json:"description"`
	Priority    TaskPriority `db:"priority" json:"priority"`
	Status      TaskStatus   `db:"status" json:"status"`
	DueDate     *time.Time   `db:"due_date" json:"due_date"`
	CompletedAt *time.Time   `db:"completed_at" json:"completed_at"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`

	PatientName  string `db:"patient_name" json:"patient_name"`
	AssigneeName string `db:"assignee_name" json:"assignee_name"`
}

// ApplyCompletion keeps completed_at in step with status. A completed task
// keeps its first completion time; any other status clears it.
func (t *WorkflowTask) ApplyCompletion(now time.Time) {
	if t.Status != TaskStatusCompleted {
		t.CompletedAt = nil
		return
	}
	if t.CompletedAt == nil {
		stamp := now
		t.CompletedAt = &stamp
	}
}

// TaskFilter represents task search parameters
type TaskFilter struct {
	Pagination
	Status     string `form:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	Priority   string `form:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssignedTo *int64 `form:"assigned_to"`
	PatientID  *int64 `form:"patient_id"`
	Search     string `form:"search"`
}

// CreateTaskRequest represents task creation parameters. completed_at is
// never accepted from clients.
type CreateTaskRequest struct {
	Patient     int64        `json:"patient" binding:"required,gt=0"`
	AssignedTo  *int64       `json:"assigned_to" binding:"omitempty,gt=0"`
	Title       string       `json:"title" binding:"required,notblank,max=200"`
	Description string       `json:"description" binding:"required,notblank"`
	Priority    TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate     *time.Time   `json:"due_date"`
}

// ToTask builds the record to insert. actorID is used when assigned_to is
// absent.
func (r CreateTaskRequest) ToTask(actorID int64) *WorkflowTask {
	task := &WorkflowTask{
		PatientID:   r.Patient,
		AssignedTo:  actorID,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Status:      r.Status,
		DueDate:     r.DueDate,
	}
	if r.AssignedTo != nil {
		task.AssignedTo = *r.AssignedTo
	}
	if task.Priority == "" {
		task.Priority = TaskPriorityMedium
	}
	if task.Status == "" {
		task.Status = TaskStatusPending
	}
	return task
}

// UpdateTaskRequest represents task update parameters
type UpdateTaskRequest struct {
	Patient     *int64        `json:"patient" binding:"omitempty,gt=0"`
	AssignedTo  *int64        `json:"assigned_to" binding:"omitempty,gt=0"`
	Title       *string       `json:"title" binding:"omitempty,notblank,max=200"`
	Description *string       `json:"description" binding:"omitempty,notblank"`
	Priority    *TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	Status      *TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed cancelled"`
	DueDate     *time.Time    `json:"due_date"`
}

// Apply copies the fields present in the request onto t.
func (u UpdateTaskRequest) Apply(t *WorkflowTask) {
	if u.Patient != nil {
		t.PatientID = *u.Patient
	}
	if u.AssignedTo != nil {
		t.AssignedTo = *u.AssignedTo
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.DueDate != nil {
		t.DueDate = u.DueDate
	}
}
