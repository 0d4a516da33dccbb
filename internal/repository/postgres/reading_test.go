package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/bp-admin-api/internal/bp"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

var readingRowColumns = []string{
	"id", "patient_id", "systolic", "diastolic", "heart_rate", "notes", "recorded_by",
	"recorded_at", "is_abnormal", "category", "patient_name", "recorded_by_name",
}

func TestReadingCreateCategorizes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	recordedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	reading := &model.BpReading{
		PatientID:  1,
		Systolic:   185,
		Diastolic:  115,
		RecordedBy: 2,
		RecordedAt: recordedAt,
		Category:   bp.CategoryNormal,
	}

	mock.ExpectQuery("INSERT INTO bp_readings").
		WithArgs(int64(1), 185, 115, nil, nil, int64(2), recordedAt, true, "crisis").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))

	require.NoError(t, repo.Create(context.Background(), reading))
	assert.Equal(t, int64(10), reading.ID)
	assert.Equal(t, bp.CategoryCrisis, reading.Category)
	assert.True(t, reading.IsAbnormal)
}

func TestReadingCreateUnknownPatient(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	mock.ExpectQuery("INSERT INTO bp_readings").
		WillReturnError(&pq.Error{Code: "23503", Constraint: "bp_readings_patient_id_fkey"})

	err := repo.Create(context.Background(), &model.BpReading{PatientID: 99, Systolic: 120, Diastolic: 80, RecordedBy: 1})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestReadingUpdateRecategorizes(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	recordedAt := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	reading := &model.BpReading{
		ID:         10,
		PatientID:  1,
		Systolic:   118,
		Diastolic:  78,
		RecordedBy: 2,
		RecordedAt: recordedAt,
		IsAbnormal: true,
		Category:   bp.CategoryCrisis,
	}

	mock.ExpectExec("UPDATE bp_readings SET").
		WithArgs(int64(1), 118, 78, nil, nil, int64(2), recordedAt, false, "normal", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Update(context.Background(), reading))
	assert.Equal(t, bp.CategoryNormal, reading.Category)
	assert.False(t, reading.IsAbnormal)
}

func TestReadingUpdateMissing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	mock.ExpectExec("UPDATE bp_readings SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &model.BpReading{ID: 404, Systolic: 120, Diastolic: 80})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}

func TestReadingListAppliesFilters(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	patientID := int64(5)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	filter := &model.ReadingFilter{
		Pagination:   model.Pagination{Page: 2, PageSize: 10},
		PatientID:    &patientID,
		Category:     "stage2",
		AbnormalOnly: true,
		DateFrom:     &from,
		DateTo:       &to,
	}
	dayAfter := to.AddDate(0, 0, 1)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bp_readings r WHERE r.patient_id = \$1 AND r.category = \$2 AND r.is_abnormal AND r.recorded_at >= \$3 AND r.recorded_at < \$4`).
		WithArgs(patientID, "stage2", from, dayAfter).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	mock.ExpectQuery(`ORDER BY r.recorded_at DESC, r.id DESC LIMIT \$5 OFFSET \$6`).
		WithArgs(patientID, "stage2", from, dayAfter, 10, 10).
		WillReturnRows(sqlmock.NewRows(readingRowColumns).
			AddRow(3, 5, 150, 95, nil, nil, 1, from, true, "stage2", "Jane Doe", "Nurse Joy"))

	readings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, readings, 1)
	assert.Equal(t, "Jane Doe", readings[0].PatientName)
	assert.Equal(t, bp.CategoryStage2, readings[0].Category)
}

func TestReadingLatestByPatients(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT DISTINCT ON \(r.patient_id\)`).
		WithArgs(pq.Array([]int64{1, 2})).
		WillReturnRows(sqlmock.NewRows(readingRowColumns).
			AddRow(7, 1, 130, 85, nil, nil, 1, now, true, "stage1", "A B", "N").
			AddRow(9, 2, 110, 70, nil, nil, 1, now, false, "normal", "C D", "N"))

	latest, err := repo.LatestByPatients(context.Background(), []int64{1, 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, int64(7), latest[1].ID)
	assert.False(t, latest[2].IsAbnormal)

	empty, err := repo.LatestByPatients(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
