package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/bp-admin-api/internal/bp"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/internal/service/event"
)

const (
	DefaultTrendDays = 30
	MaxTrendDays     = 365
)

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id int64) (*model.Patient, error)
	UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id int64) error
	ListPatients(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error)
	ListPriorityPatients(ctx context.Context) ([]*model.Patient, error)
	GetTrend(ctx context.Context, id int64, days int) (*model.PatientTrend, error)
}

type Service struct {
	repo        repository.PatientRepository
	readingRepo repository.ReadingRepository
	events      event.Emitter
	now         func() time.Time
}

func NewService(repo repository.PatientRepository, readingRepo repository.ReadingRepository, events event.Emitter) *Service {
	return &Service{
		repo:        repo,
		readingRepo: readingRepo,
		events:      events,
		now:         time.Now,
	}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := req.ToPatient()
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	patient.Decorate()

	s.events.Emit(ctx, model.EventPatientCreated, model.PatientEventPayload{
		PatientID:  patient.ID,
		EmployeeID: patient.EmployeeID,
		FullName:   patient.FullName,
		Department: patient.Department,
	})
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if err := s.decorate(ctx, []*model.Patient{patient}); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id int64, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	req.Apply(patient)

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to update patient: %w", err)
	}
	if err := s.decorate(ctx, []*model.Patient{patient}); err != nil {
		return nil, err
	}
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	return nil
}

func (s *Service) ListPatients(ctx context.Context, filter *model.PatientFilter) ([]*model.Patient, int, error) {
	filter.Normalize()
	patients, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	if err := s.decorate(ctx, patients); err != nil {
		return nil, 0, err
	}
	return patients, total, nil
}

// ListPriorityPatients returns patients whose latest reading is abnormal.
func (s *Service) ListPriorityPatients(ctx context.Context) ([]*model.Patient, error) {
	patients, err := s.repo.ListPriority(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list priority patients: %w", err)
	}
	if err := s.decorate(ctx, patients); err != nil {
		return nil, err
	}
	return patients, nil
}

func (s *Service) GetTrend(ctx context.Context, id int64, days int) (*model.PatientTrend, error) {
	if days <= 0 {
		days = DefaultTrendDays
	}
	if days > MaxTrendDays {
		days = MaxTrendDays
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}

	since := s.now().AddDate(0, 0, -days)
	readings, err := s.readingRepo.ListByPatientSince(ctx, id, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load readings: %w", err)
	}

	samples := make([]bp.Sample, 0, len(readings))
	for _, r := range readings {
		samples = append(samples, bp.Sample{Systolic: r.Systolic, Diastolic: r.Diastolic, Category: r.Category})
	}
	summary := bp.SummarizeTrend(samples)

	return &model.PatientTrend{
		PatientID:        id,
		Days:             days,
		ReadingCount:     summary.Count,
		AverageSystolic:  summary.AverageSystolic,
		AverageDiastolic: summary.AverageDiastolic,
		Trend:            summary.Direction,
		HighestRisk:      summary.HighestRisk,
		Readings:         readings,
	}, nil
}

// decorate fills derived fields and attaches each patient's latest reading.
func (s *Service) decorate(ctx context.Context, patients []*model.Patient) error {
	ids := make([]int64, 0, len(patients))
	for _, p := range patients {
		p.Decorate()
		ids = append(ids, p.ID)
	}
	latest, err := s.readingRepo.LatestByPatients(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load latest readings: %w", err)
	}
	for _, p := range patients {
		p.LatestReading = latest[p.ID]
	}
	return nil
}
