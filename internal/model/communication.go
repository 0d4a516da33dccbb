package model

import (
	"time"
)

type CommunicationType string

const (
	CommunicationCall  CommunicationType = "call"
	CommunicationEmail CommunicationType = "email"
	CommunicationNote  CommunicationType = "note"
	CommunicationVisit CommunicationType = "visit"
)

type CommunicationOutcome string

const (
	OutcomeResolved   CommunicationOutcome = "resolved"
	OutcomeUnresolved CommunicationOutcome = "unresolved"
	OutcomeEscalated  CommunicationOutcome = "escalated"
	OutcomeNoAnswer   CommunicationOutcome = "no_answer"
	OutcomeScheduled  CommunicationOutcome = "scheduled"
)

// CommunicationLog records one staff-patient interaction
type CommunicationLog struct {
	ID           int64                 `db:"id" json:"id"`
	PatientID    int64                 `db:"patient_id" json:"patient"`
	UserID       int64                 `db:"user_id" json:"user"`
	Type         CommunicationType     `db:"type" json:"type"`
	Message      string                `db:"message" json:"message"`
	Notes        *string               `db:"notes" json:"notes"`
	Outcome      *CommunicationOutcome `db:"outcome" json:"outcome"`
	FollowUpDate *time.Time            `db:"follow_up_date" json:"follow_up_date"`
	CreatedAt    time.Time             `db:"created_at" json:"created_at"`

	PatientName    string         `db:"patient_name" json:"patient_name"`
	UserName       string         `db:"user_name" json:"user_name"`
	PatientDetails PatientSummary `db:"patient" json:"patient_details"`
	UserDetails    UserSummary    `db:"author" json:"user_details"`
}

// PatientSummary is the patient contact card embedded in communication logs
type PatientSummary struct {
	ID         int64   `db:"id" json:"id"`
	FirstName  string  `db:"first_name" json:"first_name"`
	LastName   string  `db:"last_name" json:"last_name"`
	EmployeeID string  `db:"employee_id" json:"employee_id"`
	Department string  `db:"department" json:"department"`
	Phone      *string `db:"phone" json:"phone"`
	Email      *string `db:"email" json:"email"`
}

// UserSummary is the staff card embedded in communication logs
type UserSummary struct {
	ID    int64   `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Role  Role    `db:"role" json:"role"`
	Email *string `db:"email" json:"email"`
}

// CommunicationFilter represents communication search parameters
type CommunicationFilter struct {
	Pagination
	PatientID *int64     `form:"patient_id"`
	UserID    *int64     `form:"user_id"`
	Type      string     `form:"type" binding:"omitempty,oneof=call email note visit"`
	Outcome   string     `form:"outcome" binding:"omitempty,oneof=resolved unresolved escalated no_answer scheduled"`
	DateFrom  *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo    *time.Time `form:"date_to" time_format:"2006-01-02"`
	Search    string     `form:"search"`
	SortBy    string     `form:"sort_by" binding:"omitempty,oneof=created_at patient_name user_name type outcome"`
	SortOrder string     `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// CreateCommunicationRequest represents communication creation parameters
type CreateCommunicationRequest struct {
	Patient      int64                 `json:"patient" binding:"required,gt=0"`
	User         *int64                `json:"user" binding:"omitempty,gt=0"`
	Type         CommunicationType     `json:"type" binding:"omitempty,oneof=call email note visit"`
	Message      string                `json:"message" binding:"required,notblank"`
	Notes        *string               `json:"notes"`
	Outcome      *CommunicationOutcome `json:"outcome" binding:"omitempty,oneof=resolved unresolved escalated no_answer scheduled"`
	FollowUpDate *time.Time            `json:"follow_up_date"`
}

// ToCommunication builds the record to insert. actorID is used when user is
// absent.
func (r CreateCommunicationRequest) ToCommunication(actorID int64) *CommunicationLog {
	log := &CommunicationLog{
		PatientID:    r.Patient,
		UserID:       actorID,
		Type:         r.Type,
		Message:      r.Message,
		Notes:        r.Notes,
		Outcome:      r.Outcome,
		FollowUpDate: r.FollowUpDate,
	}
	if r.User != nil {
		log.UserID = *r.User
	}
	if log.Type == "" {
		log.Type = CommunicationCall
	}
	return log
}

// UpdateCommunicationRequest represents communication update parameters
type UpdateCommunicationRequest struct {
	Type         *CommunicationType    `json:"type" binding:"omitempty,oneof=call email note visit"`
	Message      *string               `json:"message" binding:"omitempty,notblank"`
	Notes        *string               `json:"notes"`
	Outcome      *CommunicationOutcome `json:"outcome" binding:"omitempty,oneof=resolved unresolved escalated no_answer scheduled"`
	FollowUpDate *time.Time            `json:"follow_up_date"`
}

// Apply copies the fields present in the request onto l.
func (u UpdateCommunicationRequest) Apply(l *CommunicationLog) {
	if u.Type != nil {
		l.Type = *u.Type
	}
	if u.Message != nil {
		l.Message = *u.Message
	}
	if u.Notes != nil {
		l.Notes = u.Notes
	}
	if u.Outcome != nil {
		l.Outcome = u.Outcome
	}
	if u.FollowUpDate != nil {
		l.FollowUpDate = u.FollowUpDate
	}
}

// ResolveCommunicationRequest closes a follow-up
type ResolveCommunicationRequest struct {
	Notes *string `json:"notes"`
}
