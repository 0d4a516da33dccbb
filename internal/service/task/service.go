package task

import (
	"context"
	"fmt"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
)

type TaskService interface {
	CreateTask(ctx context.Context, actorID int64, req *model.CreateTaskRequest) (*model.WorkflowTask, error)
	GetTask(ctx context.Context, id int64) (*model.WorkflowTask, error)
	UpdateTask(ctx context.Context, id int64, req *model.UpdateTaskRequest) (*model.WorkflowTask, error)
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, filter *model.TaskFilter) ([]*model.WorkflowTask, int, error)
}

type Service struct {
	repo   repository.TaskRepository
	events event.Emitter
}

func NewService(repo repository.TaskRepository, events event.Emitter) *Service {
	return &Service{
		repo:   repo,
		events: events,
	}
}

func (s *Service) CreateTask(ctx context.Context, actorID int64, req *model.CreateTaskRequest) (*model.WorkflowTask, error) {
	task := req.ToTask(actorID)
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	if task.Status == model.TaskStatusCompleted {
		s.emitCompleted(ctx, task)
	}
	return s.GetTask(ctx, task.ID)
}

func (s *Service) GetTask(ctx context.Context, id int64) (*model.WorkflowTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// UpdateTask starts from the stored task so that a task which stays
// completed keeps its original completion time.
func (s *Service) UpdateTask(ctx context.Context, id int64, req *model.UpdateTaskRequest) (*model.WorkflowTask, error) {
	task, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	wasCompleted := task.Status == model.TaskStatusCompleted
	req.Apply(task)

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if !wasCompleted && task.Status == model.TaskStatusCompleted {
		s.emitCompleted(ctx, task)
	}
	return s.GetTask(ctx, id)
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Service) ListTasks(ctx context.Context, filter *model.TaskFilter) ([]*model.WorkflowTask, int, error) {
	filter.Normalize()
	tasks, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

func (s *Service) emitCompleted(ctx context.Context, task *model.WorkflowTask) {
	s.events.Emit(ctx, model.EventTaskCompleted, model.TaskEventPayload{
		TaskID:      task.ID,
		PatientID:   task.PatientID,
		AssignedTo:  task.AssignedTo,
		Title:       task.Title,
		Priority:    string(task.Priority),
		Status:      string(task.Status),
		CompletedAt: task.CompletedAt,
	})
}
