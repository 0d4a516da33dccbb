package bp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const fortnight = 14 * 24 * time.Hour

func TestTriage(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		systolic  int
		diastolic int
		action    Action
		role      string
		priority  string
		due       time.Duration
	}{
		{"urgent systolic", 162, 85, ActionUrgentCall, "nurse", "urgent", 2 * time.Hour},
		{"urgent diastolic", 130, 100, ActionUrgentCall, "nurse", "urgent", 2 * time.Hour},
		{"nurse outreach", 152, 88, ActionNurseOutreach, "nurse", "high", 24 * time.Hour},
		{"nurse outreach diastolic", 120, 96, ActionNurseOutreach, "nurse", "high", 24 * time.Hour},
		{"coach outreach", 144, 85, ActionCoachOutreach, "coach", "medium", 48 * time.Hour},
		{"coach outreach diastolic", 128, 92, ActionCoachOutreach, "coach", "medium", 48 * time.Hour},
		{"stage1 needs no task", 135, 85, ActionNone, "", "low", 30 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Triage(tt.systolic, tt.diastolic, ContactHistory{}, fortnight, now)
			assert.Equal(t, tt.action, got.Action)
			assert.Equal(t, tt.role, got.AssigneeRole)
			assert.Equal(t, tt.priority, got.Priority)
			assert.Equal(t, now.Add(tt.due), got.DueDate)
		})
	}
}

func TestTriageRecentContact(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lastWeek := now.Add(-7 * 24 * time.Hour)
	yesterday := now.Add(-24 * time.Hour)
	nextWeek := now.Add(7 * 24 * time.Hour)

	recent := ContactHistory{LastContactAt: &lastWeek}
	got := Triage(152, 88, recent, fortnight, now)
	assert.Equal(t, ActionNone, got.Action)

	got = Triage(170, 88, recent, fortnight, now)
	assert.Equal(t, ActionUrgentCall, got.Action, "urgent readings ignore recent contact")

	due := ContactHistory{LastContactAt: &lastWeek, FollowUpRecommended: &yesterday}
	got = Triage(152, 88, due, fortnight, now)
	assert.Equal(t, ActionNurseOutreach, got.Action)

	notDue := ContactHistory{LastContactAt: &lastWeek, FollowUpRecommended: &nextWeek}
	got = Triage(152, 88, notDue, fortnight, now)
	assert.Equal(t, ActionNone, got.Action)

	old := now.Add(-30 * 24 * time.Hour)
	got = Triage(144, 85, ContactHistory{LastContactAt: &old}, fortnight, now)
	assert.Equal(t, ActionCoachOutreach, got.Action)
}

func TestTaskTitles(t *testing.T) {
	r := TriageResult{Action: ActionUrgentCall}
	assert.Equal(t, "URGENT: Call Jane Doe for critical BP reading", r.TaskTitle("Jane Doe"))

	r = TriageResult{Action: ActionCoachOutreach, Reason: "moderate"}
	assert.Equal(t, "Hypertension coaching for Jane Doe", r.TaskTitle("Jane Doe"))
	assert.Contains(t, r.TaskDescription("Jane Doe", 144, 85), "BP Reading: 144/85 mmHg")
}
