package communication

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

type CommunicationService interface {
	CreateCommunication(ctx context.Context, actorID int64, req *model.CreateCommunicationRequest) (*model.CommunicationLog, error)
	GetCommunication(ctx context.Context, id int64) (*model.CommunicationLog, error)
	UpdateCommunication(ctx context.Context, id int64, req *model.UpdateCommunicationRequest) (*model.CommunicationLog, error)
	DeleteCommunication(ctx context.Context, id int64) error
	ListCommunications(ctx context.Context, filter *model.CommunicationFilter) ([]*model.CommunicationLog, int, error)
	FollowUpQueue(ctx context.Context) ([]*model.CommunicationLog, error)
	Resolve(ctx context.Context, id int64, req *model.ResolveCommunicationRequest) (*model.CommunicationLog, error)
}

type Service struct {
	repo repository.CommunicationRepository
	now  func() time.Time
}

func NewService(repo repository.CommunicationRepository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) CreateCommunication(ctx context.Context, actorID int64, req *model.CreateCommunicationRequest) (*model.CommunicationLog, error) {
	log := req.ToCommunication(actorID)
	if err := s.repo.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to create communication: %w", err)
	}
	return s.GetCommunication(ctx, log.ID)
}

func (s *Service) GetCommunication(ctx context.Context, id int64) (*model.CommunicationLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}
	return log, nil
}

func (s *Service) UpdateCommunication(ctx context.Context, id int64, req *model.UpdateCommunicationRequest) (*model.CommunicationLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}
	req.Apply(log)
	if err := s.repo.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to update communication: %w", err)
	}
	return s.GetCommunication(ctx, id)
}

func (s *Service) DeleteCommunication(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete communication: %w", err)
	}
	return nil
}

func (s *Service) ListCommunications(ctx context.Context, filter *model.CommunicationFilter) ([]*model.CommunicationLog, int, error) {
	filter.Normalize()
	logs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list communications: %w", err)
	}
	return logs, total, nil
}

// FollowUpQueue lists the unresolved communications whose follow-up date has
// passed.
func (s *Service) FollowUpQueue(ctx context.Context) ([]*model.CommunicationLog, error) {
	logs, err := s.repo.FollowUpQueue(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to load follow-up queue: %w", err)
	}
	return logs, nil
}

// Resolve marks a communication resolved, replacing its notes when given.
func (s *Service) Resolve(ctx context.Context, id int64, req *model.ResolveCommunicationRequest) (*model.CommunicationLog, error) {
	log, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get communication: %w", err)
	}
	resolved := model.OutcomeResolved
	log.Outcome = &resolved
	if req != nil && req.Notes != nil {
		log.Notes = req.Notes
	}
	if err := s.repo.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("failed to resolve communication: %w", err)
	}
	return s.GetCommunication(ctx, id)
}
