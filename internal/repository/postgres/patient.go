package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

const patientColumns = `p.id, p.employee_id, p.first_name, p.last_name, p.department, p.union_name, p.age,
	p.email, p.phone, p.emergency_contact, p.medications, p.allergies, p.last_checkup,
	p.custom_systolic_threshold, p.custom_diastolic_threshold, p.created_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (
			employee_id, first_name, last_name, department, union_name, age,
			email, phone, emergency_contact, medications, allergies, last_checkup,
			custom_systolic_threshold, custom_diastolic_threshold
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		patient.EmployeeID,
		patient.FirstName,
		patient.LastName,
		patient.Department,
		patient.Union,
		patient.Age,
		patient.Email,
		patient.Phone,
		patient.EmergencyContact,
		patient.Medications,
		patient.Allergies,
		patient.LastCheckup,
		patient.CustomSystolicThreshold,
		patient.CustomDiastolicThreshold,
	).Scan(&patient.ID, &patient.CreatedAt)
	return mapError(err, "patient")
}

func (r *patientRepository) GetByID(ctx context.Context, id int64) (*model.Patient, error) {
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, `SELECT `+patientColumns+` FROM patients p WHERE p.id = $1`, id)
	if err != nil {
		return nil, mapError(err, "patient")
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients SET
			employee_id = $1, first_name = $2, last_name = $3, department = $4, union_name = $5,
			age = $6, email = $7, phone = $8, emergency_contact = $9, medications = $10,
			allergies = $11, last_checkup = $12, custom_systolic_threshold = $13,
			custom_diastolic_threshold = $14
		WHERE id = $15
	`
	result, err := r.db.ExecContext(ctx, query,
		patient.EmployeeID,
		patient.FirstName,
		patient.LastName,
		patient.Department,
		patient.Union,
		patient.Age,
		patient.Email,
		patient.Phone,
		patient.EmergencyContact,
		patient.Medications,
		patient.Allergies,
		patient.LastCheckup,
		patient.CustomSystolicThreshold,
		patient.CustomDiastolicThreshold,
		patient.ID,
	)
	if err != nil {
		return mapError(err, "patient")
	}
	return requireAffected(result, "patient")
}

// Delete removes the patient; readings, tasks and communications cascade.
func (r *patientRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "patient")
	}
	return requireAffected(result, "patient")
}

func (r *patientRepository) List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error) {
	var w where
	if filter.Search != "" {
		w.add(`(p.first_name ILIKE $%d OR p.last_name ILIKE $%d OR p.employee_id ILIKE $%d OR p.department ILIKE $%d)`,
			likePattern(filter.Search))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM patients p`+w.clause(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	limit, args := w.page(filter.PageSize, filter.Offset())
	query := `SELECT ` + patientColumns + ` FROM patients p` + w.clause() +
		` ORDER BY p.last_name ASC, p.first_name ASC, p.id ASC` + limit

	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

func (r *patientRepository) ListPriority(ctx context.Context) ([]*model.Patient, error) {
	query := `
		SELECT ` + patientColumns + `
		FROM patients p
		JOIN LATERAL (
			SELECT r.is_abnormal
			FROM bp_readings r
			WHERE r.patient_id = p.id
			ORDER BY r.recorded_at DESC, r.id DESC
			LIMIT 1
		) latest ON TRUE
		WHERE latest.is_abnormal
		ORDER BY p.last_name ASC, p.first_name ASC, p.id ASC
	`
	patients := []*model.Patient{}
	if err := r.db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list priority patients: %w", err)
	}
	return patients, nil
}
