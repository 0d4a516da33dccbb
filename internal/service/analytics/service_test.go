package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository/repotest"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		token  string
		want   string
		window time.Duration
	}{
		{"7d", "7d", 7 * 24 * time.Hour},
		{"30d", "30d", 30 * 24 * time.Hour},
		{"90d", "90d", 90 * 24 * time.Hour},
		{"1y", "1y", 365 * 24 * time.Hour},
		{"", "30d", 30 * 24 * time.Hour},
		{"2w", "30d", 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			token, window := ParsePeriod(tt.token)
			assert.Equal(t, tt.want, token)
			assert.Equal(t, tt.window, window)
		})
	}
}

func outcome(o model.CommunicationOutcome) *model.CommunicationOutcome { return &o }

func TestAggregate(t *testing.T) {
	day1 := time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)
	since := day1.Add(-time.Hour)

	stats := []model.CommunicationStat{
		{Type: model.CommunicationCall, Outcome: outcome(model.OutcomeResolved), UserName: "Nurse Kim", CreatedAt: day2},
		{Type: model.CommunicationCall, Outcome: outcome(model.OutcomeNoAnswer), UserName: "Nurse Kim", CreatedAt: day1},
		{Type: model.CommunicationCall, Outcome: nil, UserName: "Coach Lee", CreatedAt: day2},
		{Type: model.CommunicationEmail, Outcome: outcome(model.OutcomeNoAnswer), UserName: "Coach Lee", CreatedAt: day2},
		{Type: model.CommunicationNote, Outcome: nil, UserName: "Nurse Kim", CreatedAt: day1},
	}

	got := Aggregate("7d", since, stats)
	assert.Equal(t, "7d", got.Period)
	assert.Equal(t, since, got.Since)
	assert.Equal(t, 5, got.TotalCommunications)
	assert.Equal(t, map[string]int{"call": 3, "email": 1, "note": 1}, got.ByType)
	assert.Equal(t, map[string]int{"resolved": 1, "no_answer": 2}, got.ByOutcome)
	assert.Equal(t, map[string]int{"Nurse Kim": 3, "Coach Lee": 2}, got.TopStaff)
	assert.Equal(t, map[string]int{"2024-06-10": 2, "2024-06-12": 3}, got.ByDay)
	// 2 of 3 calls answered; the unanswered email does not count
	assert.Equal(t, 67, got.ResponseRate)
	assert.Equal(t, []model.DailyCount{
		{Date: "2024-06-10", Count: 2},
		{Date: "2024-06-12", Count: 3},
	}, got.DailyTrend)
}

func TestAggregateEmpty(t *testing.T) {
	got := Aggregate("30d", time.Time{}, nil)
	assert.Equal(t, 0, got.TotalCommunications)
	assert.Equal(t, 0, got.ResponseRate)
	assert.Empty(t, got.ByOutcome)
	assert.NotNil(t, got.DailyTrend)
	assert.Empty(t, got.DailyTrend)
}

func TestAggregateUsesUTCDates(t *testing.T) {
	zone := time.FixedZone("UTC-7", -7*3600)
	late := time.Date(2024, 6, 10, 20, 0, 0, 0, zone)

	got := Aggregate("7d", time.Time{}, []model.CommunicationStat{
		{Type: model.CommunicationVisit, UserName: "Nurse Kim", CreatedAt: late},
	})
	assert.Equal(t, map[string]int{"2024-06-11": 1}, got.ByDay)
}

type fixture struct {
	svc       *Service
	store     *repotest.Store
	userID    int64
	patientID int64
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	store := repotest.NewStore()
	store.Now = func() time.Time { return now }
	svc := NewService(repotest.CommunicationRepository{Store: store}, repotest.StatsRepository{Store: store})
	svc.now = func() time.Time { return now }

	user := &model.User{Username: "nurse", Name: "Nurse Kim", Role: model.RoleNurse, IsActive: true}
	require.NoError(t, repotest.UserRepository{Store: store}.Create(context.Background(), user))
	patient := &model.Patient{EmployeeID: "FD-9", FirstName: "Ana", LastName: "Ruiz", Department: "Station 4", Union: "Local 42", Age: 47}
	require.NoError(t, repotest.PatientRepository{Store: store}.Create(context.Background(), patient))
	return &fixture{svc: svc, store: store, userID: user.ID, patientID: patient.ID}
}

func TestCommunicationAnalyticsWindow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, now)
	repo := repotest.CommunicationRepository{Store: f.store}

	for _, age := range []time.Duration{time.Hour, 6 * 24 * time.Hour, 8 * 24 * time.Hour} {
		require.NoError(t, repo.Create(context.Background(), &model.CommunicationLog{
			PatientID: f.patientID, UserID: f.userID, Type: model.CommunicationCall,
			Message: "check in", CreatedAt: now.Add(-age),
		}))
	}

	got, err := f.svc.CommunicationAnalytics(context.Background(), "7d")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalCommunications)
	assert.Equal(t, 100, got.ResponseRate)
	assert.Equal(t, now.Add(-7*24*time.Hour), got.Since)

	got, err = f.svc.CommunicationAnalytics(context.Background(), "bogus")
	require.NoError(t, err)
	assert.Equal(t, "30d", got.Period)
	assert.Equal(t, 3, got.TotalCommunications)
}

func TestDashboard(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.Local)
	f := newFixture(t, now)
	readings := repotest.ReadingRepository{Store: f.store}
	tasks := repotest.TaskRepository{Store: f.store}
	ctx := context.Background()

	for _, r := range []*model.BpReading{
		{PatientID: f.patientID, Systolic: 150, Diastolic: 95, RecordedBy: f.userID, RecordedAt: now.Add(-time.Hour)},
		{PatientID: f.patientID, Systolic: 118, Diastolic: 76, RecordedBy: f.userID, RecordedAt: now.Add(-30 * time.Hour)},
		{PatientID: f.patientID, Systolic: 185, Diastolic: 125, RecordedBy: f.userID, RecordedAt: now.Add(-48 * time.Hour)},
	} {
		require.NoError(t, readings.Create(ctx, r))
	}
	for _, task := range []*model.WorkflowTask{
		{PatientID: f.patientID, AssignedTo: f.userID, Title: "Call Ana", Description: "x", Priority: model.TaskPriorityHigh, Status: model.TaskStatusPending},
		{PatientID: f.patientID, AssignedTo: f.userID, Title: "Recall schedule", Description: "x", Priority: model.TaskPriorityLow, Status: model.TaskStatusPending},
		{PatientID: f.patientID, AssignedTo: f.userID, Title: "Call Ana again", Description: "x", Priority: model.TaskPriorityLow, Status: model.TaskStatusCompleted},
		{PatientID: f.patientID, AssignedTo: f.userID, Title: "Email Ana", Description: "x", Priority: model.TaskPriorityLow, Status: model.TaskStatusPending},
	} {
		require.NoError(t, tasks.Create(ctx, task))
	}

	stats, err := f.svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPatients)
	assert.Equal(t, 2, stats.AbnormalReadings)
	assert.Equal(t, 2, stats.PendingCalls)
	assert.Equal(t, 1, stats.TodayReadings)
}
