package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/bp-admin-api/pkg/errors"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

// mapError translates driver errors into application errors. resource names
// the entity for not-found messages.
func mapError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NotFound(resource, err)
	}

	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return errors.Conflict(uniqueMessage(pqErr), err).
				WithDetail(constraintField(pqErr.Constraint), "already exists")
		case pqForeignKeyViolation:
			return errors.NotFound(referencedResource(pqErr.Constraint), err).
				WithDetail(constraintField(pqErr.Constraint), "does not exist")
		}
	}
	return fmt.Errorf("%s query failed: %w", resource, err)
}

var constraintFields = map[string]string{
	"patients_employee_id_key":           "employee_id",
	"users_username_key":                 "username",
	"bp_readings_patient_id_fkey":        "patient",
	"bp_readings_recorded_by_fkey":       "recorded_by",
	"workflow_tasks_patient_id_fkey":     "patient",
	"workflow_tasks_assigned_to_fkey":    "assigned_to",
	"communication_logs_patient_id_fkey": "patient",
	"communication_logs_user_id_fkey":    "user",
}

func constraintField(constraint string) string {
	if field, ok := constraintFields[constraint]; ok {
		return field
	}
	return constraint
}

func uniqueMessage(pqErr *pq.Error) string {
	switch constraintField(pqErr.Constraint) {
	case "employee_id":
		return "a patient with this employee id already exists"
	case "username":
		return "a user with this username already exists"
	default:
		return "record already exists"
	}
}

func referencedResource(constraint string) string {
	switch constraintField(constraint) {
	case "patient":
		return "patient"
	case "recorded_by", "assigned_to", "user":
		return "user"
	default:
		return "referenced record"
	}
}

// where accumulates AND-ed conditions with positional arguments.
type where struct {
	conditions []string
	args       []interface{}
}

// add appends a condition. Every %d in format is replaced by the position of
// v, so a condition may reference the same argument more than once.
func (w *where) add(format string, v interface{}) {
	w.args = append(w.args, v)
	n := len(w.args)
	count := strings.Count(format, "%d")
	refs := make([]interface{}, count)
	for i := range refs {
		refs[i] = n
	}
	w.conditions = append(w.conditions, fmt.Sprintf(format, refs...))
}

func (w *where) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// page appends LIMIT/OFFSET placeholders and returns the full argument list.
func (w *where) page(limit, offset int) (string, []interface{}) {
	args := append(append([]interface{}{}, w.args...), limit, offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func likePattern(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.TrimSpace(s)) + "%"
}
