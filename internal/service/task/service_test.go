package task

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/repotest"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

type fixture struct {
	svc       *Service
	store     *repotest.Store
	clock     *time.Time
	actorID   int64
	patientID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	store := repotest.NewStore()
	f := &fixture{store: store, clock: &clock}
	store.Now = func() time.Time { return *f.clock }

	f.svc = NewService(repotest.TaskRepository{Store: store}, event.NewEventService(repotest.OutboxRepository{Store: store}, zerolog.Nop()))

	actor := &model.User{Username: "coach", Name: "Coach Lee", Role: model.RoleCoach, IsActive: true}
	require.NoError(t, repotest.UserRepository{Store: store}.Create(context.Background(), actor))
	patient := &model.Patient{EmployeeID: "FD-1", FirstName: "Jane", LastName: "Doe", Department: "Station 2", Union: "Local 42", Age: 51}
	require.NoError(t, repotest.PatientRepository{Store: store}.Create(context.Background(), patient))
	f.actorID, f.patientID = actor.ID, patient.ID
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func status(s model.TaskStatus) *model.TaskStatus { return &s }

func TestCreateTaskDefaults(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.CreateTask(context.Background(), f.actorID, &model.CreateTaskRequest{
		Patient: f.patientID, Title: "Call Jane", Description: "weekly check",
	})
	require.NoError(t, err)
	assert.Equal(t, f.actorID, task.AssignedTo)
	assert.Equal(t, model.TaskPriorityMedium, task.Priority)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, "Jane Doe", task.PatientName)
	assert.Equal(t, "Coach Lee", task.AssigneeName)
}

func TestCreateTaskCompletedIsStamped(t *testing.T) {
	f := newFixture(t)

	task, err := f.svc.CreateTask(context.Background(), f.actorID, &model.CreateTaskRequest{
		Patient: f.patientID, Title: "Logged visit", Description: "done on site", Status: model.TaskStatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, *f.clock, *task.CompletedAt)
	assert.Len(t, f.store.EventsOfType(model.EventTaskCompleted), 1)
}

func TestCompletionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	task, err := f.svc.CreateTask(ctx, f.actorID, &model.CreateTaskRequest{
		Patient: f.patientID, Title: "Call Jane", Description: "follow up",
	})
	require.NoError(t, err)

	f.advance(time.Hour)
	task, err = f.svc.UpdateTask(ctx, task.ID, &model.UpdateTaskRequest{Status: status(model.TaskStatusInProgress)})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)

	f.advance(time.Hour)
	completedAt := *f.clock
	task, err = f.svc.UpdateTask(ctx, task.ID, &model.UpdateTaskRequest{Status: status(model.TaskStatusCompleted)})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, completedAt, *task.CompletedAt)

	// further edits keep the first completion time
	f.advance(time.Hour)
	title := "Called Jane"
	task, err = f.svc.UpdateTask(ctx, task.ID, &model.UpdateTaskRequest{Title: &title, Status: status(model.TaskStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, completedAt, *task.CompletedAt)
	assert.Len(t, f.store.EventsOfType(model.EventTaskCompleted), 1)

	// reopening clears it
	task, err = f.svc.UpdateTask(ctx, task.ID, &model.UpdateTaskRequest{Status: status(model.TaskStatusPending)})
	require.NoError(t, err)
	assert.Nil(t, task.CompletedAt)
}

func TestUpdateTaskUnknownAssignee(t *testing.T) {
	f := newFixture(t)
	task, err := f.svc.CreateTask(context.Background(), f.actorID, &model.CreateTaskRequest{
		Patient: f.patientID, Title: "Call", Description: "x",
	})
	require.NoError(t, err)

	nobody := int64(404)
	_, err = f.svc.UpdateTask(context.Background(), task.ID, &model.UpdateTaskRequest{AssignedTo: &nobody})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestListTasksOrdersByPriorityThenDueDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	soon := f.clock.Add(time.Hour)
	later := f.clock.Add(48 * time.Hour)

	for _, req := range []*model.CreateTaskRequest{
		{Patient: f.patientID, Title: "low", Description: "x", Priority: model.TaskPriorityLow},
		{Patient: f.patientID, Title: "high later", Description: "x", Priority: model.TaskPriorityHigh, DueDate: &later},
		{Patient: f.patientID, Title: "high undated", Description: "x", Priority: model.TaskPriorityHigh},
		{Patient: f.patientID, Title: "high soon", Description: "x", Priority: model.TaskPriorityHigh, DueDate: &soon},
		{Patient: f.patientID, Title: "urgent", Description: "x", Priority: model.TaskPriorityUrgent},
	} {
		_, err := f.svc.CreateTask(ctx, f.actorID, req)
		require.NoError(t, err)
	}

	tasks, total, err := f.svc.ListTasks(ctx, &model.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"urgent", "high soon", "high later", "high undated", "low"}, titles)
}
