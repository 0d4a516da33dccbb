package bp

import (
	"fmt"
	"time"
)

// Action is the outreach decided for a reading.
type Action string

const (
	ActionNone          Action = "no_action"
	ActionCoachOutreach Action = "coach_outreach"
	ActionNurseOutreach Action = "nurse_outreach"
	ActionUrgentCall    Action = "urgent_call"
)

// ContactHistory summarizes the latest staff contact with a patient.
type ContactHistory struct {
	LastContactAt       *time.Time
	FollowUpRecommended *time.Time
}

// TriageResult describes the follow-up task a reading calls for.
type TriageResult struct {
	Action       Action
	AssigneeRole string
	Priority     string
	Reason       string
	DueDate      time.Time
}

// Triage decides the outreach for a reading. Urgent levels always produce a
// call; otherwise a patient contacted within recentContact is left alone
// unless a recommended follow-up date has already passed.
func Triage(systolic, diastolic int, history ContactHistory, recentContact time.Duration, now time.Time) TriageResult {
	urgent := systolic >= 160 || diastolic >= 100

	recentlyContacted := history.LastContactAt != nil && history.LastContactAt.After(now.Add(-recentContact))
	followUpDue := history.FollowUpRecommended != nil && !history.FollowUpRecommended.After(now)

	if recentlyContacted && !urgent && !followUpDue {
		return TriageResult{
			Action:   ActionNone,
			Priority: "low",
			Reason:   "patient contacted recently, no urgent reading or due follow-up",
			DueDate:  now.Add(7 * 24 * time.Hour),
		}
	}

	switch {
	case urgent:
		return TriageResult{
			Action:       ActionUrgentCall,
			AssigneeRole: "nurse",
			Priority:     "urgent",
			Reason:       fmt.Sprintf("critical BP reading %d/%d requires immediate nurse intervention", systolic, diastolic),
			DueDate:      now.Add(2 * time.Hour),
		}
	case systolic >= 150 || diastolic >= 96:
		return TriageResult{
			Action:       ActionNurseOutreach,
			AssigneeRole: "nurse",
			Priority:     "high",
			Reason:       fmt.Sprintf("elevated BP %d/%d requires nurse assessment", systolic, diastolic),
			DueDate:      now.Add(24 * time.Hour),
		}
	case systolic >= 140 || diastolic >= 90:
		return TriageResult{
			Action:       ActionCoachOutreach,
			AssigneeRole: "coach",
			Priority:     "medium",
			Reason:       fmt.Sprintf("moderate BP elevation %d/%d, coach outreach indicated", systolic, diastolic),
			DueDate:      now.Add(48 * time.Hour),
		}
	default:
		return TriageResult{
			Action:   ActionNone,
			Priority: "low",
			Reason:   fmt.Sprintf("BP %d/%d within acceptable range", systolic, diastolic),
			DueDate:  now.Add(30 * 24 * time.Hour),
		}
	}
}

// TaskTitle is the follow-up task title for a triage result.
func (r TriageResult) TaskTitle(patientName string) string {
	switch r.Action {
	case ActionUrgentCall:
		return fmt.Sprintf("URGENT: Call %s for critical BP reading", patientName)
	case ActionNurseOutreach:
		return fmt.Sprintf("Nurse follow-up for %s - elevated BP", patientName)
	case ActionCoachOutreach:
		return fmt.Sprintf("Hypertension coaching for %s", patientName)
	default:
		return fmt.Sprintf("Monitor %s BP status", patientName)
	}
}

// TaskDescription is the follow-up task body for a triage result.
func (r TriageResult) TaskDescription(patientName string, systolic, diastolic int) string {
	base := fmt.Sprintf("Patient: %s\nBP Reading: %d/%d mmHg\nTriage Reason: %s\n\n", patientName, systolic, diastolic, r.Reason)

	switch r.Action {
	case ActionUrgentCall:
		return base + "Call patient within 2 hours. Assess for symptoms (headache, chest pain, shortness of breath), " +
			"review current medications and consider emergency referral if symptomatic."
	case ActionNurseOutreach:
		return base + "Contact patient within 24 hours. Review medication adherence and effectiveness, " +
			"schedule a visit if needed and update the treatment plan."
	case ActionCoachOutreach:
		return base + "Contact patient within 48 hours. Review medication adherence, discuss lifestyle factors " +
			"and schedule follow-up monitoring."
	default:
		return base + "Continue routine monitoring."
	}
}
