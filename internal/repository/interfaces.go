package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/bp-admin-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles staff accounts
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		GetByID(ctx context.Context, id int64) (*model.User, error)
		GetByUsername(ctx context.Context, username string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filter *model.UserFilter) ([]*model.User, int, error)
		FirstActiveByRole(ctx context.Context, role model.Role) (*model.User, error)
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		GetByID(ctx context.Context, id int64) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error)
		// ListPriority returns patients whose most recent reading is abnormal.
		ListPriority(ctx context.Context) ([]*model.Patient, error)
	}

	// ReadingRepository categorizes every reading it writes.
	ReadingRepository interface {
		Create(ctx context.Context, reading *model.BpReading) error
		GetByID(ctx context.Context, id int64) (*model.BpReading, error)
		Update(ctx context.Context, reading *model.BpReading) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filter *model.ReadingFilter) ([]*model.BpReading, int, error)
		Recent(ctx context.Context, limit int) ([]*model.BpReading, error)
		LatestByPatients(ctx context.Context, patientIDs []int64) (map[int64]*model.BpReading, error)
		ListByPatientSince(ctx context.Context, patientID int64, since time.Time) ([]*model.BpReading, error)
	}

	// TaskRepository applies the completion rule on every write.
	TaskRepository interface {
		Create(ctx context.Context, task *model.WorkflowTask) error
		GetByID(ctx context.Context, id int64) (*model.WorkflowTask, error)
		Update(ctx context.Context, task *model.WorkflowTask) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filter *model.TaskFilter) ([]*model.WorkflowTask, int, error)
	}

	CommunicationRepository interface {
		Create(ctx context.Context, log *model.CommunicationLog) error
		GetByID(ctx context.Context, id int64) (*model.CommunicationLog, error)
		Update(ctx context.Context, log *model.CommunicationLog) error
		Delete(ctx context.Context, id int64) error
		List(ctx context.Context, filter *model.CommunicationFilter) ([]*model.CommunicationLog, int, error)
		ListSince(ctx context.Context, since time.Time) ([]model.CommunicationStat, error)
		FollowUpQueue(ctx context.Context, now time.Time) ([]*model.CommunicationLog, error)
		LatestForPatient(ctx context.Context, patientID int64) (*model.CommunicationLog, error)
	}

	StatsRepository interface {
		DashboardStats(ctx context.Context, dayStart, dayEnd time.Time) (*model.DashboardStats, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending marks up to limit due events as processing and
		// returns them.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkRetry(ctx context.Context, id uuid.UUID, errorMessage string, retryAt time.Time) error
		MarkFailed(ctx context.Context, id uuid.UUID, errorMessage string) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
