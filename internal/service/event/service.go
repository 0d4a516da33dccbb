package event

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
)

// Emitter records domain events for asynchronous delivery.
type Emitter interface {
	// Emit writes the event to the outbox. Failures are logged and never
	// fail the caller's request.
	Emit(ctx context.Context, eventType string, payload interface{})
}

type EventService struct {
	outboxRepo repository.OutboxRepository
	logger     zerolog.Logger
}

func NewEventService(outboxRepo repository.OutboxRepository, logger zerolog.Logger) *EventService {
	return &EventService{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func (s *EventService) Emit(ctx context.Context, eventType string, payload interface{}) {
	if err := s.write(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record event")
	}
}

func (s *EventService) write(ctx context.Context, eventType string, payload interface{}) error {
	event, err := model.NewOutboxEvent(eventType, payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}
