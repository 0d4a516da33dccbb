package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusProcessed  OutboxStatus = "PROCESSED"
	OutboxStatusFailed     OutboxStatus = "FAILED"
)

// Event types written to the outbox
const (
	EventPatientCreated  = "patient.created"
	EventReadingRecorded = "reading.recorded"
	EventReadingAbnormal = "reading.abnormal"
	EventTaskCompleted   = "task.completed"
	EventFollowUpCreated = "task.follow_up_created"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}

// NewOutboxEvent marshals payload into a pending event.
func NewOutboxEvent(eventType string, payload interface{}) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ReadingEventPayload is published for recorded readings
type ReadingEventPayload struct {
	ReadingID   int64     `json:"reading_id"`
	PatientID   int64     `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Systolic    int       `json:"systolic"`
	Diastolic   int       `json:"diastolic"`
	Category    string    `json:"category"`
	IsAbnormal  bool      `json:"is_abnormal"`
	RecordedBy  int64     `json:"recorded_by"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// TaskEventPayload is published for task lifecycle events
type TaskEventPayload struct {
	TaskID      int64      `json:"task_id"`
	PatientID   int64      `json:"patient_id"`
	AssignedTo  int64      `json:"assigned_to"`
	Title       string     `json:"title"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// PatientEventPayload is published when a patient is enrolled
type PatientEventPayload struct {
	PatientID  int64  `json:"patient_id"`
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Department string `json:"department"`
}
