package model

import (
	"time"

	"github.com/jwalitptl/bp-admin-api/internal/bp"
)

// BpReading is a single blood pressure measurement
type BpReading struct {
	ID         int64       `db:"id" json:"id"`
	PatientID  int64       `db:"patient_id" json:"patient"`
	Systolic   int         `db:"systolic" json:"systolic"`
	Diastolic  int         `db:"diastolic" json:"diastolic"`
	HeartRate  *int        `db:"heart_rate" json:"heart_rate"`
	Notes      *string     `db:"notes" json:"notes"`
	RecordedBy int64       `db:"recorded_by" json:"recorded_by"`
	RecordedAt time.Time   `db:"recorded_at" json:"recorded_at"`
	IsAbnormal bool        `db:"is_abnormal" json:"is_abnormal"`
	Category   bp.Category `db:"category" json:"category"`

	PatientName    string `db:"patient_name" json:"patient_name"`
	RecordedByName string `db:"recorded_by_name" json:"recorded_by_name"`
}

// Categorize recomputes the derived category fields from the current values.
func (r *BpReading) Categorize() {
	r.Category, r.IsAbnormal = bp.Categorize(r.Systolic, r.Diastolic)
}

// CategoryLabel is the display name of the reading's category.
func (r *BpReading) CategoryLabel() string {
	return r.Category.Label()
}

// ReadingFilter represents reading search parameters
type ReadingFilter struct {
	Pagination
	PatientID    *int64     `form:"patient_id"`
	RecordedBy   *int64     `form:"recorded_by"`
	Category     string     `form:"category" binding:"omitempty,oneof=normal elevated stage1 stage2 crisis low"`
	AbnormalOnly bool       `form:"abnormal"`
	DateFrom     *time.Time `form:"date_from" time_format:"2006-01-02"`
	DateTo       *time.Time `form:"date_to" time_format:"2006-01-02"`
}

// CreateReadingRequest represents reading creation parameters. Category and
// abnormal flags are always derived server side.
type CreateReadingRequest struct {
	Patient    int64      `json:"patient" binding:"required,gt=0"`
	Systolic   int        `json:"systolic" binding:"required,gt=0,lt=400"`
	Diastolic  int        `json:"diastolic" binding:"required,gt=0,lt=300"`
	HeartRate  *int       `json:"heart_rate" binding:"omitempty,gt=0,lt=300"`
	Notes      *string    `json:"notes"`
	RecordedBy *int64     `json:"recorded_by" binding:"omitempty,gt=0"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// ToReading builds the record to insert. actorID is used when recorded_by
// is absent.
func (r CreateReadingRequest) ToReading(actorID int64, now time.Time) *BpReading {
	reading := &BpReading{
		PatientID:  r.Patient,
		Systolic:   r.Systolic,
		Diastolic:  r.Diastolic,
		HeartRate:  r.HeartRate,
		Notes:      r.Notes,
		RecordedBy: actorID,
		RecordedAt: now,
	}
	if r.RecordedBy != nil {
		reading.RecordedBy = *r.RecordedBy
	}
	if r.RecordedAt != nil {
		reading.RecordedAt = *r.RecordedAt
	}
	return reading
}

// UpdateReadingRequest represents reading update parameters
type UpdateReadingRequest struct {
	Patient    *int64     `json:"patient" binding:"omitempty,gt=0"`
	Systolic   *int       `json:"systolic" binding:"omitempty,gt=0,lt=400"`
	Diastolic  *int       `json:"diastolic" binding:"omitempty,gt=0,lt=300"`
	HeartRate  *int       `json:"heart_rate" binding:"omitempty,gt=0,lt=300"`
	Notes      *string    `json:"notes"`
	RecordedBy *int64     `json:"recorded_by" binding:"omitempty,gt=0"`
	RecordedAt *time.Time `json:"recorded_at"`
}

// Apply copies the fields present in the request onto r.
func (u UpdateReadingRequest) Apply(r *BpReading) {
	if u.Patient != nil {
		r.PatientID = *u.Patient
	}
	if u.Systolic != nil {
		r.Systolic = *u.Systolic
	}
	if u.Diastolic != nil {
		r.Diastolic = *u.Diastolic
	}
	if u.HeartRate != nil {
		r.HeartRate = u.HeartRate
	}
	if u.Notes != nil {
		r.Notes = u.Notes
	}
	if u.RecordedBy != nil {
		r.RecordedBy = *u.RecordedBy
	}
	if u.RecordedAt != nil {
		r.RecordedAt = *u.RecordedAt
	}
}
