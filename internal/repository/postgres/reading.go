package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

const readingSelect = `
	SELECT r.id, r.patient_id, r.systolic, r.diastolic, r.heart_rate, r.notes, r.recorded_by,
		r.recorded_at, r.is_abnormal, r.category,
		p.first_name || ' ' || p.last_name AS patient_name,
		u.name AS recorded_by_name
	FROM bp_readings r
	JOIN patients p ON p.id = r.patient_id
	JOIN users u ON u.id = r.recorded_by`

type readingRepository struct {
	BaseRepository
}

func NewReadingRepository(db *sqlx.DB) repository.ReadingRepository {
	return &readingRepository{NewBaseRepository(db)}
}

// Create categorizes the reading and inserts it.
func (r *readingRepository) Create(ctx context.Context, reading *model.BpReading) error {
	reading.Categorize()
	if reading.RecordedAt.IsZero() {
		reading.RecordedAt = time.Now()
	}

	query := `
		INSERT INTO bp_readings (
			patient_id, systolic, diastolic, heart_rate, notes, recorded_by,
			recorded_at, is_abnormal, category
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, query,
		reading.PatientID,
		reading.Systolic,
		reading.Diastolic,
		reading.HeartRate,
		reading.Notes,
		reading.RecordedBy,
		reading.RecordedAt,
		reading.IsAbnormal,
		reading.Category,
	).Scan(&reading.ID)
	return mapError(err, "reading")
}

func (r *readingRepository) GetByID(ctx context.Context, id int64) (*model.BpReading, error) {
	var reading model.BpReading
	if err := r.db.GetContext(ctx, &reading, readingSelect+` WHERE r.id = $1`, id); err != nil {
		return nil, mapError(err, "reading")
	}
	return &reading, nil
}

// Update recategorizes the reading before writing it.
func (r *readingRepository) Update(ctx context.Context, reading *model.BpReading) error {
	reading.Categorize()

	query := `
		UPDATE bp_readings SET
			patient_id = $1, systolic = $2, diastolic = $3, heart_rate = $4, notes = $5,
			recorded_by = $6, recorded_at = $7, is_abnormal = $8, category = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		reading.PatientID,
		reading.Systolic,
		reading.Diastolic,
		reading.HeartRate,
		reading.Notes,
		reading.RecordedBy,
		reading.RecordedAt,
		reading.IsAbnormal,
		reading.Category,
		reading.ID,
	)
	if err != nil {
		return mapError(err, "reading")
	}
	return requireAffected(result, "reading")
}

func (r *readingRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bp_readings WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "reading")
	}
	return requireAffected(result, "reading")
}

func (r *readingRepository) List(ctx context.Context, filter *model.ReadingFilter) ([]*model.BpReading, int, error) {
	var w where
	if filter.PatientID != nil {
		w.add("r.patient_id = $%d", *filter.PatientID)
	}
	if filter.RecordedBy != nil {
		w.add("r.recorded_by = $%d", *filter.RecordedBy)
	}
	if filter.Category != "" {
		w.add("r.category = $%d", filter.Category)
	}
	if filter.AbnormalOnly {
		w.conditions = append(w.conditions, "r.is_abnormal")
	}
	if filter.DateFrom != nil {
		w.add("r.recorded_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		// date_to is inclusive of the whole day
		w.add("r.recorded_at < $%d", filter.DateTo.AddDate(0, 0, 1))
	}

	countQuery := `SELECT COUNT(*) FROM bp_readings r` + w.clause()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count readings: %w", err)
	}

	limit, args := w.page(filter.PageSize, filter.Offset())
	query := readingSelect + w.clause() + ` ORDER BY r.recorded_at DESC, r.id DESC` + limit

	readings := []*model.BpReading{}
	if err := r.db.SelectContext(ctx, &readings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list readings: %w", err)
	}
	return readings, total, nil
}

func (r *readingRepository) Recent(ctx context.Context, limit int) ([]*model.BpReading, error) {
	readings := []*model.BpReading{}
	query := readingSelect + ` ORDER BY r.recorded_at DESC, r.id DESC LIMIT $1`
	if err := r.db.SelectContext(ctx, &readings, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list recent readings: %w", err)
	}
	return readings, nil
}

// LatestByPatients returns the most recent reading of each patient, keyed by
// patient id. Ties on recorded_at go to the higher id.
func (r *readingRepository) LatestByPatients(ctx context.Context, patientIDs []int64) (map[int64]*model.BpReading, error) {
	latest := make(map[int64]*model.BpReading, len(patientIDs))
	if len(patientIDs) == 0 {
		return latest, nil
	}

	query := `
		SELECT DISTINCT ON (r.patient_id)
			r.id, r.patient_id, r.systolic, r.diastolic, r.heart_rate, r.notes, r.recorded_by,
			r.recorded_at, r.is_abnormal, r.category,
			p.first_name || ' ' || p.last_name AS patient_name,
			u.name AS recorded_by_name
		FROM bp_readings r
		JOIN patients p ON p.id = r.patient_id
		JOIN users u ON u.id = r.recorded_by
		WHERE r.patient_id = ANY($1)
		ORDER BY r.patient_id, r.recorded_at DESC, r.id DESC
	`
	var readings []*model.BpReading
	if err := r.db.SelectContext(ctx, &readings, query, pq.Array(patientIDs)); err != nil {
		return nil, fmt.Errorf("failed to load latest readings: %w", err)
	}
	for _, reading := range readings {
		latest[reading.PatientID] = reading
	}
	return latest, nil
}

// ListByPatientSince returns a patient's readings from since onwards, oldest
// first.
func (r *readingRepository) ListByPatientSince(ctx context.Context, patientID int64, since time.Time) ([]*model.BpReading, error) {
	readings := []*model.BpReading{}
	query := readingSelect + ` WHERE r.patient_id = $1 AND r.recorded_at >= $2 ORDER BY r.recorded_at ASC, r.id ASC`
	if err := r.db.SelectContext(ctx, &readings, query, patientID, since); err != nil {
		return nil, fmt.Errorf("failed to list patient readings: %w", err)
	}
	return readings, nil
}
