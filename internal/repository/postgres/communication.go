package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

const communicationSelect = `
	SELECT c.id, c.patient_id, c.user_id, c.type, c.message, c.notes, c.outcome,
		c.follow_up_date, c.created_at,
		p.first_name || ' ' || p.last_name AS patient_name,
		u.name AS user_name,
		p.id AS "patient.id", p.first_name AS "patient.first_name", p.last_name AS "patient.last_name",
		p.employee_id AS "patient.employee_id", p.department AS "patient.department",
		p.phone AS "patient.phone", p.email AS "patient.email",
		u.id AS "author.id", u.name AS "author.name", u.role AS "author.role", u.email AS "author.email"
	FROM communication_logs c
	JOIN patients p ON p.id = c.patient_id
	JOIN users u ON u.id = c.user_id`

var communicationSortColumns = map[string]string{
	"created_at":   "c.created_at",
	"patient_name": "p.last_name",
	"user_name":    "u.name",
	"type":         "c.type",
	"outcome":      "c.outcome",
}

type communicationRepository struct {
	BaseRepository
}

func NewCommunicationRepository(db *sqlx.DB) repository.CommunicationRepository {
	return &communicationRepository{NewBaseRepository(db)}
}

func (r *communicationRepository) Create(ctx context.Context, log *model.CommunicationLog) error {
	query := `
		INSERT INTO communication_logs (patient_id, user_id, type, message, notes, outcome, follow_up_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		log.PatientID,
		log.UserID,
		log.Type,
		log.Message,
		log.Notes,
		log.Outcome,
		log.FollowUpDate,
	).Scan(&log.ID, &log.CreatedAt)
	return mapError(err, "communication")
}

func (r *communicationRepository) GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error) {
	var log model.CommunicationLog
	if err := r.db.GetContext(ctx, &log, communicationSelect+` WHERE c.id = $1`, id); err != nil {
		return nil, mapError(err, "communication")
	}
	return &log, nil
}

func (r *communicationRepository) Update(ctx context.Context, log *model.CommunicationLog) error {
	query := `
		UPDATE communication_logs
		SET type = $1, message = $2, notes = $3, outcome = $4, follow_up_date = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		log.Type,
		log.Message,
		log.Notes,
		log.Outcome,
		log.FollowUpDate,
		log.ID,
	)
	if err != nil {
		return mapError(err, "communication")
	}
	return requireAffected(result, "communication")
}

func (r *communicationRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM communication_logs WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "communication")
	}
	return requireAffected(result, "communication")
}

func (r *communicationRepository) List(ctx context.Context, filter *model.CommunicationFilter) ([]*model.CommunicationLog, int, error) {
	var w where
	if filter.PatientID != nil {
		w.add("c.patient_id = $%d", *filter.PatientID)
	}
	if filter.UserID != nil {
		w.add("c.user_id = $%d", *filter.UserID)
	}
	if filter.Type != "" {
		w.add("c.type = $%d", filter.Type)
	}
	if filter.Outcome != "" {
		w.add("c.outcome = $%d", filter.Outcome)
	}
	if filter.DateFrom != nil {
		w.add("c.created_at >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		w.add("c.created_at < $%d", filter.DateTo.AddDate(0, 0, 1))
	}
	if filter.Search != "" {
		w.add(`(c.message ILIKE $%d OR c.notes ILIKE $%d OR p.first_name ILIKE $%d
			OR p.last_name ILIKE $%d OR p.employee_id ILIKE $%d)`, likePattern(filter.Search))
	}

	countQuery := `
		SELECT COUNT(*)
		FROM communication_logs c
		JOIN patients p ON p.id = c.patient_id` + w.clause()
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count communications: %w", err)
	}

	limit, args := w.page(filter.PageSize, filter.Offset())
	query := communicationSelect + w.clause() + communicationOrder(filter.SortBy, filter.SortOrder) + limit

	logs := []*model.CommunicationLog{}
	if err := r.db.SelectContext(ctx, &logs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list communications: %w", err)
	}
	return logs, total, nil
}

// communicationOrder only ever emits whitelisted columns.
func communicationOrder(sortBy, sortOrder string) string {
	column, ok := communicationSortColumns[sortBy]
	if !ok {
		column = communicationSortColumns["created_at"]
	}
	direction := "DESC"
	if sortOrder == "asc" {
		direction = "ASC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, c.id %s", column, direction, direction)
}

func (r *communicationRepository) ListSince(ctx context.Context, since time.Time) ([]model.CommunicationStat, error) {
	query := `
		SELECT c.type, c.outcome, u.name AS user_name, c.created_at
		FROM communication_logs c
		JOIN users u ON u.id = c.user_id
		WHERE c.created_at >= $1
	`
	stats := []model.CommunicationStat{}
	if err := r.db.SelectContext(ctx, &stats, query, since); err != nil {
		return nil, fmt.Errorf("failed to load communications since %s: %w", since.Format(time.RFC3339), err)
	}
	return stats, nil
}

// FollowUpQueue lists unresolved communications whose follow-up date has
// arrived, oldest first.
func (r *communicationRepository) FollowUpQueue(ctx context.Context, now time.Time) ([]*model.CommunicationLog, error) {
	query := communicationSelect + `
		WHERE c.follow_up_date IS NOT NULL
			AND c.follow_up_date <= $1
			AND (c.outcome IS NULL OR c.outcome <> 'resolved')
		ORDER BY c.follow_up_date ASC, c.id ASC`

	logs := []*model.CommunicationLog{}
	if err := r.db.SelectContext(ctx, &logs, query, now); err != nil {
		return nil, fmt.Errorf("failed to load follow-up queue: %w", err)
	}
	return logs, nil
}

func (r *communicationRepository) LatestForPatient(ctx context.Context, patientID int64) (*model.CommunicationLog, error) {
	var log model.CommunicationLog
	query := communicationSelect + ` WHERE c.patient_id = $1 ORDER BY c.created_at DESC, c.id DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &log, query, patientID); err != nil {
		return nil, mapError(err, "communication")
	}
	return &log, nil
}
