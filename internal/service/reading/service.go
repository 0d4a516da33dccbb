package reading

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/internal/bp"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
	"github.com/jwalitptl/bp-admin-api/pkg/errors"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

type ReadingService interface {
	CreateReading(ctx context.Context, actorID int64, req *model.CreateReadingRequest) (*model.BpReading, error)
	GetReading(ctx context.Context, id int64) (*model.BpReading, error)
	UpdateReading(ctx context.Context, id int64, req *model.UpdateReadingRequest) (*model.BpReading, error)
	DeleteReading(ctx context.Context, id int64) error
	ListReadings(ctx context.Context, filter *model.ReadingFilter) ([]*model.BpReading, int, error)
	RecentReadings(ctx context.Context, limit int) ([]*model.BpReading, error)
	ExportReadings(ctx context.Context, filter *model.ReadingFilter) ([]byte, error)
}

// Config controls the automatic follow-up workflow.
type Config struct {
	AutoFollowUp  bool
	RecentContact time.Duration
}

type Service struct {
	repo        repository.ReadingRepository
	patientRepo repository.PatientRepository
	userRepo    repository.UserRepository
	taskRepo    repository.TaskRepository
	commRepo    repository.CommunicationRepository
	events      event.Emitter
	config      Config
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(
	repo repository.ReadingRepository,
	patientRepo repository.PatientRepository,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	commRepo repository.CommunicationRepository,
	events event.Emitter,
	config Config,
	metrics *metrics.Metrics,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		commRepo:    commRepo,
		events:      events,
		config:      config,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *Service) CreateReading(ctx context.Context, actorID int64, req *model.CreateReadingRequest) (*model.BpReading, error) {
	reading := req.ToReading(actorID, s.now())
	if err := s.repo.Create(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to create reading: %w", err)
	}
	s.metrics.ReadingsCategorized.WithLabelValues(string(reading.Category)).Inc()

	created, err := s.repo.GetByID(ctx, reading.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload reading: %w", err)
	}

	payload := readingPayload(created)
	s.events.Emit(ctx, model.EventReadingRecorded, payload)
	if created.IsAbnormal {
		s.events.Emit(ctx, model.EventReadingAbnormal, payload)
		if s.config.AutoFollowUp {
			if err := s.createFollowUp(ctx, created); err != nil {
				s.logger.Warn().Err(err).
					Int64("reading_id", created.ID).
					Int64("patient_id", created.PatientID).
					Msg("Failed to create follow-up task")
			}
		}
	}
	return created, nil
}

func (s *Service) GetReading(ctx context.Context, id int64) (*model.BpReading, error) {
	reading, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	return reading, nil
}

// UpdateReading recategorizes the reading; no follow-up is created for
// edits.
func (s *Service) UpdateReading(ctx context.Context, id int64, req *model.UpdateReadingRequest) (*model.BpReading, error) {
	reading, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get reading: %w", err)
	}
	req.Apply(reading)

	if err := s.repo.Update(ctx, reading); err != nil {
		return nil, fmt.Errorf("failed to update reading: %w", err)
	}
	s.metrics.ReadingsCategorized.WithLabelValues(string(reading.Category)).Inc()

	return s.GetReading(ctx, id)
}

func (s *Service) DeleteReading(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete reading: %w", err)
	}
	return nil
}

func (s *Service) ListReadings(ctx context.Context, filter *model.ReadingFilter) ([]*model.BpReading, int, error) {
	filter.Normalize()
	readings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list readings: %w", err)
	}
	return readings, total, nil
}

func (s *Service) RecentReadings(ctx context.Context, limit int) ([]*model.BpReading, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	readings, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent readings: %w", err)
	}
	return readings, nil
}

// createFollowUp turns the triage decision for an abnormal reading into a
// task for the first active user of the indicated role, or for whoever
// recorded the reading when nobody holds that role.
func (s *Service) createFollowUp(ctx context.Context, reading *model.BpReading) error {
	patient, err := s.patientRepo.GetByID(ctx, reading.PatientID)
	if err != nil {
		return err
	}
	patient.Decorate()

	history, err := s.contactHistory(ctx, patient.ID)
	if err != nil {
		return err
	}

	now := s.now()
	result := bp.Triage(reading.Systolic, reading.Diastolic, history, s.config.RecentContact, now)
	if result.Action == bp.ActionNone {
		s.logger.Debug().Int64("reading_id", reading.ID).Str("reason", result.Reason).Msg("No follow-up needed")
		return nil
	}

	assignee := reading.RecordedBy
	user, err := s.userRepo.FirstActiveByRole(ctx, model.Role(result.AssigneeRole))
	switch {
	case err == nil:
		assignee = user.ID
	case errors.IsKind(err, errors.KindNotFound):
		s.logger.Info().Str("role", result.AssigneeRole).Msg("No active user for role, assigning follow-up to recorder")
	default:
		return err
	}

	due := result.DueDate
	task := &model.WorkflowTask{
		PatientID:   patient.ID,
		AssignedTo:  assignee,
		Title:       result.TaskTitle(patient.FullName),
		Description: result.TaskDescription(patient.FullName, reading.Systolic, reading.Diastolic),
		Priority:    model.TaskPriority(result.Priority),
		Status:      model.TaskStatusPending,
		DueDate:     &due,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return fmt.Errorf("failed to create follow-up task: %w", err)
	}
	s.metrics.FollowUpTasks.WithLabelValues(string(result.Action)).Inc()

	s.events.Emit(ctx, model.EventFollowUpCreated, model.TaskEventPayload{
		TaskID:     task.ID,
		PatientID:  task.PatientID,
		AssignedTo: task.AssignedTo,
		Title:      task.Title,
		Priority:   string(task.Priority),
		Status:     string(task.Status),
	})
	s.logger.Info().
		Int64("task_id", task.ID).
		Str("action", string(result.Action)).
		Int64("assigned_to", assignee).
		Msg("Created follow-up task")
	return nil
}

func (s *Service) contactHistory(ctx context.Context, patientID int64) (bp.ContactHistory, error) {
	last, err := s.commRepo.LatestForPatient(ctx, patientID)
	if errors.IsKind(err, errors.KindNotFound) {
		return bp.ContactHistory{}, nil
	}
	if err != nil {
		return bp.ContactHistory{}, fmt.Errorf("failed to load contact history: %w", err)
	}
	contacted := last.CreatedAt
	return bp.ContactHistory{LastContactAt: &contacted, FollowUpRecommended: last.FollowUpDate}, nil
}

func readingPayload(r *model.BpReading) model.ReadingEventPayload {
	return model.ReadingEventPayload{
		ReadingID:   r.ID,
		PatientID:   r.PatientID,
		PatientName: r.PatientName,
		Systolic:    r.Systolic,
		Diastolic:   r.Diastolic,
		Category:    string(r.Category),
		IsAbnormal:  r.IsAbnormal,
		RecordedBy:  r.RecordedBy,
		RecordedAt:  r.RecordedAt,
	}
}
