package reading

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jwalitptl/bp-admin-api/internal/bp"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/repotest"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc       *Service
	store     *repotest.Store
	metrics   *metrics.Metrics
	recorder  *model.User
	patientID int64
}

func newFixture(t *testing.T, autoFollowUp bool) *fixture {
	t.Helper()
	store := repotest.NewStore()
	store.Now = func() time.Time { return now }
	m := metrics.New("test")

	svc := NewService(
		repotest.ReadingRepository{Store: store},
		repotest.PatientRepository{Store: store},
		repotest.UserRepository{Store: store},
		repotest.TaskRepository{Store: store},
		repotest.CommunicationRepository{Store: store},
		event.NewEventService(repotest.OutboxRepository{Store: store}, zerolog.Nop()),
		Config{AutoFollowUp: autoFollowUp, RecentContact: 14 * 24 * time.Hour},
		m,
		zerolog.Nop(),
	)
	svc.now = func() time.Time { return now }

	recorder := &model.User{Username: "ff1", Name: "Firefighter One", Role: model.RoleFirefighter, IsActive: true}
	require.NoError(t, repotest.UserRepository{Store: store}.Create(context.Background(), recorder))
	patient := &model.Patient{EmployeeID: "FD-1", FirstName: "Jane", LastName: "Doe", Department: "Station 1", Union: "Local 42", Age: 44}
	require.NoError(t, repotest.PatientRepository{Store: store}.Create(context.Background(), patient))

	return &fixture{svc: svc, store: store, metrics: m, recorder: recorder, patientID: patient.ID}
}

func (f *fixture) addUser(t *testing.T, username string, role model.Role, active bool) *model.User {
	t.Helper()
	u := &model.User{Username: username, Name: username, Role: role, IsActive: active}
	require.NoError(t, repotest.UserRepository{Store: f.store}.Create(context.Background(), u))
	return u
}

func (f *fixture) record(t *testing.T, s, d int) *model.BpReading {
	t.Helper()
	r, err := f.svc.CreateReading(context.Background(), f.recorder.ID, &model.CreateReadingRequest{
		Patient: f.patientID, Systolic: s, Diastolic: d,
	})
	require.NoError(t, err)
	return r
}

func (f *fixture) tasks() []*model.WorkflowTask {
	var out []*model.WorkflowTask
	for _, task := range f.store.Tasks {
		out = append(out, task)
	}
	return out
}

func TestCreateReadingCategorizesAndDefaults(t *testing.T) {
	f := newFixture(t, false)

	r := f.record(t, 185, 125)
	assert.Equal(t, bp.CategoryCrisis, r.Category)
	assert.True(t, r.IsAbnormal)
	assert.Equal(t, f.recorder.ID, r.RecordedBy)
	assert.Equal(t, now, r.RecordedAt)
	assert.Equal(t, "Jane Doe", r.PatientName)
	assert.Equal(t, "Firefighter One", r.RecordedByName)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ReadingsCategorized.WithLabelValues("crisis")))
}

func TestCreateReadingEmitsEvents(t *testing.T) {
	f := newFixture(t, false)

	f.record(t, 118, 76)
	assert.Len(t, f.store.EventsOfType(model.EventReadingRecorded), 1)
	assert.Empty(t, f.store.EventsOfType(model.EventReadingAbnormal))

	r := f.record(t, 182, 110)
	abnormal := f.store.EventsOfType(model.EventReadingAbnormal)
	require.Len(t, abnormal, 1)

	var payload model.ReadingEventPayload
	require.NoError(t, json.Unmarshal(abnormal[0].Payload, &payload))
	assert.Equal(t, r.ID, payload.ReadingID)
	assert.Equal(t, "crisis", payload.Category)
	assert.Equal(t, "Jane Doe", payload.PatientName)
}

func TestCreateReadingUnknownPatient(t *testing.T) {
	f := newFixture(t, true)
	_, err := f.svc.CreateReading(context.Background(), f.recorder.ID, &model.CreateReadingRequest{Patient: 999, Systolic: 120, Diastolic: 80})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestAutoFollowUpUrgentGoesToNurse(t *testing.T) {
	f := newFixture(t, true)
	f.addUser(t, "inactive-nurse", model.RoleNurse, false)
	nurse := f.addUser(t, "nurse", model.RoleNurse, true)

	f.record(t, 165, 95)

	tasks := f.tasks()
	require.Len(t, tasks, 1)
	task := tasks[0]
	assert.Equal(t, nurse.ID, task.AssignedTo)
	assert.Equal(t, model.TaskPriorityUrgent, task.Priority)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Equal(t, "URGENT: Call Jane Doe for critical BP reading", task.Title)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, now.Add(2*time.Hour), *task.DueDate)
	assert.Len(t, f.store.EventsOfType(model.EventFollowUpCreated), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.FollowUpTasks.WithLabelValues("urgent_call")))
}

func TestAutoFollowUpFallsBackToRecorder(t *testing.T) {
	f := newFixture(t, true)

	f.record(t, 142, 85)

	tasks := f.tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, f.recorder.ID, tasks[0].AssignedTo)
	assert.Equal(t, model.TaskPriorityMedium, tasks[0].Priority)
	assert.Equal(t, "Hypertension coaching for Jane Doe", tasks[0].Title)
}

func TestAutoFollowUpSkipsRecentlyContacted(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, repotest.CommunicationRepository{Store: f.store}.Create(context.Background(), &model.CommunicationLog{
		PatientID: f.patientID, UserID: f.recorder.ID, Type: model.CommunicationCall, Message: "checked in",
		CreatedAt: now.Add(-3 * 24 * time.Hour),
	}))

	f.record(t, 152, 90)
	assert.Empty(t, f.tasks())

	// urgent readings are never suppressed
	f.record(t, 170, 100)
	assert.Len(t, f.tasks(), 1)
}

func TestAutoFollowUpIgnoresNonHypertensiveAbnormal(t *testing.T) {
	f := newFixture(t, true)

	f.record(t, 125, 75) // elevated
	f.record(t, 85, 55)  // low
	assert.Empty(t, f.tasks())
}

func TestAutoFollowUpDisabled(t *testing.T) {
	f := newFixture(t, false)
	f.record(t, 190, 120)
	assert.Empty(t, f.tasks())
}

func TestUpdateReadingRecategorizes(t *testing.T) {
	f := newFixture(t, false)
	r := f.record(t, 118, 76)

	systolic := 145
	updated, err := f.svc.UpdateReading(context.Background(), r.ID, &model.UpdateReadingRequest{Systolic: &systolic})
	require.NoError(t, err)
	assert.Equal(t, bp.CategoryStage2, updated.Category)
	assert.True(t, updated.IsAbnormal)
	assert.Equal(t, 76, updated.Diastolic)
}

func TestRecentReadingsLimit(t *testing.T) {
	f := newFixture(t, false)
	for i := 0; i < 12; i++ {
		_, err := f.svc.CreateReading(context.Background(), f.recorder.ID, &model.CreateReadingRequest{
			Patient: f.patientID, Systolic: 110 + i, Diastolic: 70,
			RecordedAt: timePtr(now.Add(time.Duration(i) * time.Minute)),
		})
		require.NoError(t, err)
	}

	recent, err := f.svc.RecentReadings(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, 121, recent[0].Systolic)
}

func TestListReadingsAbnormalFilter(t *testing.T) {
	f := newFixture(t, false)
	f.record(t, 118, 76)
	f.record(t, 150, 95)

	readings, total, err := f.svc.ListReadings(context.Background(), &model.ReadingFilter{AbnormalOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 150, readings[0].Systolic)
}

func TestExportReadings(t *testing.T) {
	f := newFixture(t, false)
	f.record(t, 118, 76)
	f.record(t, 150, 95)

	data, err := f.svc.ExportReadings(context.Background(), &model.ReadingFilter{})
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(exportSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, exportHeader[:len(rows[0])], rows[0])
	assert.Equal(t, "Jane Doe", rows[1][1])
	assert.Contains(t, []string{rows[1][6], rows[2][6]}, "Stage 2 Hypertension")
}

func timePtr(t time.Time) *time.Time { return &t }
