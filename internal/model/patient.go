package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Patient is a fire department employee enrolled in the BP program
type Patient struct {
	ID                       int64     `db:"id" json:"id"`
	EmployeeID               string    `db:"employee_id" json:"employee_id"`
	FirstName                string    `db:"first_name" json:"first_name"`
	LastName                 string    `db:"last_name" json:"last_name"`
	Department               string    `db:"department" json:"department"`
	Union                    string    `db:"union_name" json:"union"`
	Age                      int       `db:"age" json:"age"`
	Email                    *string   `db:"email" json:"email"`
	Phone                    *string   `db:"phone" json:"phone"`
	EmergencyContact         *string   `db:"emergency_contact" json:"emergency_contact"`
	Medications              *string   `db:"medications" json:"medications"`
	Allergies                *string   `db:"allergies" json:"allergies"`
	LastCheckup              *Date     `db:"last_checkup" json:"last_checkup"`
	CustomSystolicThreshold  *int      `db:"custom_systolic_threshold" json:"custom_systolic_threshold"`
	CustomDiastolicThreshold *int      `db:"custom_diastolic_threshold" json:"custom_diastolic_threshold"`
	CreatedAt                time.Time `db:"created_at" json:"created_at"`

	FullName        string     `db:"-" json:"full_name"`
	MedicationsList []string   `db:"-" json:"medications_list"`
	LatestReading   *BpReading `db:"-" json:"latest_reading"`
}

// Decorate fills the derived response fields.
func (p *Patient) Decorate() {
	p.FullName = strings.TrimSpace(p.FirstName + " " + p.LastName)
	p.MedicationsList = ParseMedications(p.Medications)
}

// ParseMedications decodes the stored JSON list. Anything that is not a
// JSON string array yields an empty list.
func ParseMedications(raw *string) []string {
	list := []string{}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return list
	}
	if err := json.Unmarshal([]byte(*raw), &list); err != nil {
		return []string{}
	}
	return list
}

// EncodeMedications stores a medication list as a JSON array string.
func EncodeMedications(list []string) *string {
	if list == nil {
		list = []string{}
	}
	b, _ := json.Marshal(list)
	s := string(b)
	return &s
}

// PatientFilter represents patient search parameters
type PatientFilter struct {
	Pagination
	Search string `form:"search"`
}

// CreatePatientRequest represents patient creation parameters
type CreatePatientRequest struct {
	EmployeeID               string   `json:"employee_id" binding:"required,notblank,max=20"`
	FirstName                string   `json:"first_name" binding:"required,notblank,max=50"`
	LastName                 string   `json:"last_name" binding:"required,notblank,max=50"`
	Department               string   `json:"department" binding:"required,notblank,max=100"`
	Union                    string   `json:"union" binding:"required,notblank,max=50"`
	Age                      int      `json:"age" binding:"required,min=16,max=100"`
	Email                    *string  `json:"email" binding:"omitempty,email"`
	Phone                    *string  `json:"phone" binding:"omitempty,max=20"`
	EmergencyContact         *string  `json:"emergency_contact" binding:"omitempty,max=20"`
	Medications              *string  `json:"medications"`
	MedicationsList          []string `json:"medications_list"`
	Allergies                *string  `json:"allergies"`
	LastCheckup              *Date    `json:"last_checkup"`
	CustomSystolicThreshold  *int     `json:"custom_systolic_threshold" binding:"omitempty,gt=0,lt=300"`
	CustomDiastolicThreshold *int     `json:"custom_diastolic_threshold" binding:"omitempty,gt=0,lt=200"`
}

// ToPatient builds the record to insert.
func (r CreatePatientRequest) ToPatient() *Patient {
	p := &Patient{
		EmployeeID:               strings.TrimSpace(r.EmployeeID),
		FirstName:                strings.TrimSpace(r.FirstName),
		LastName:                 strings.TrimSpace(r.LastName),
		Department:               strings.TrimSpace(r.Department),
		Union:                    strings.TrimSpace(r.Union),
		Age:                      r.Age,
		Email:                    r.Email,
		Phone:                    r.Phone,
		EmergencyContact:         r.EmergencyContact,
		Medications:              r.Medications,
		Allergies:                r.Allergies,
		LastCheckup:              r.LastCheckup,
		CustomSystolicThreshold:  r.CustomSystolicThreshold,
		CustomDiastolicThreshold: r.CustomDiastolicThreshold,
	}
	if r.MedicationsList != nil {
		p.Medications = EncodeMedications(r.MedicationsList)
	}
	return p
}

// UpdatePatientRequest represents patient update parameters
type UpdatePatientRequest struct {
	EmployeeID               *string  `json:"employee_id" binding:"omitempty,notblank,max=20"`
	FirstName                *string  `json:"first_name" binding:"omitempty,notblank,max=50"`
	LastName                 *string  `json:"last_name" binding:"omitempty,notblank,max=50"`
	Department               *string  `json:"department" binding:"omitempty,notblank,max=100"`
	Union                    *string  `json:"union" binding:"omitempty,notblank,max=50"`
	Age                      *int     `json:"age" binding:"omitempty,min=16,max=100"`
	Email                    *string  `json:"email" binding:"omitempty,email"`
	Phone                    *string  `json:"phone" binding:"omitempty,max=20"`
	EmergencyContact         *string  `json:"emergency_contact" binding:"omitempty,max=20"`
	Medications              *string  `json:"medications"`
	MedicationsList          []string `json:"medications_list"`
	Allergies                *string  `json:"allergies"`
	LastCheckup              *Date    `json:"last_checkup"`
	CustomSystolicThreshold  *int     `json:"custom_systolic_threshold" binding:"omitempty,gt=0,lt=300"`
	CustomDiastolicThreshold *int     `json:"custom_diastolic_threshold" binding:"omitempty,gt=0,lt=200"`
}

// Apply copies the fields present in the request onto p.
func (r UpdatePatientRequest) Apply(p *Patient) {
	if r.EmployeeID != nil {
		p.EmployeeID = strings.TrimSpace(*r.EmployeeID)
	}
	if r.FirstName != nil {
		p.FirstName = strings.TrimSpace(*r.FirstName)
	}
	if r.LastName != nil {
		p.LastName = strings.TrimSpace(*r.LastName)
	}
	if r.Department != nil {
		p.Department = strings.TrimSpace(*r.Department)
	}
	if r.Union != nil {
		p.Union = strings.TrimSpace(*r.Union)
	}
	if r.Age != nil {
		p.Age = *r.Age
	}
	if r.Email != nil {
		p.Email = r.Email
	}
	if r.Phone != nil {
		p.Phone = r.Phone
	}
	if r.EmergencyContact != nil {
		p.EmergencyContact = r.EmergencyContact
	}
	if r.Medications != nil {
		p.Medications = r.Medications
	}
	if r.MedicationsList != nil {
		p.Medications = EncodeMedications(r.MedicationsList)
	}
	if r.Allergies != nil {
		p.Allergies = r.Allergies
	}
	if r.LastCheckup != nil {
		p.LastCheckup = r.LastCheckup
	}
	if r.CustomSystolicThreshold != nil {
		p.CustomSystolicThreshold = r.CustomSystolicThreshold
	}
	if r.CustomDiastolicThreshold != nil {
		p.CustomDiastolicThreshold = r.CustomDiastolicThreshold
	}
}

// PatientTrend summarizes a patient's readings over a window of days
type PatientTrend struct {
	PatientID        int64        `json:"patient_id"`
	Days             int          `json:"days"`
	ReadingCount     int          `json:"reading_count"`
	AverageSystolic  int          `json:"average_systolic"`
	AverageDiastolic int          `json:"average_diastolic"`
	Trend            string       `json:"trend"`
	HighestRisk      string       `json:"highest_risk"`
	Readings         []*BpReading `json:"readings"`
}
