package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/internal/repository"
	"github.com/jwalitptl/bp-admin-api/pkg/messaging"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
)

type OutboxProcessorConfig struct {
	Channel       string
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	Retention     time.Duration
}

// Validate reports the first invalid setting.
func (c OutboxProcessorConfig) Validate() error {
	switch {
	case c.Channel == "":
		return fmt.Errorf("channel is required")
	case c.BatchSize <= 0:
		return fmt.Errorf("batch size must be greater than 0")
	case c.PollInterval <= 0:
		return fmt.Errorf("poll interval must be greater than 0")
	case c.RetryAttempts <= 0:
		return fmt.Errorf("retry attempts must be greater than 0")
	case c.RetryDelay <= 0:
		return fmt.Errorf("retry delay must be greater than 0")
	}
	return nil
}

// EventHandler runs after an event has been published. A handler error
// sends the event back for retry.
type EventHandler func(ctx context.Context, event *model.OutboxEvent) error

type OutboxProcessor struct {
	repo     repository.OutboxRepository
	broker   messaging.Broker
	config   OutboxProcessorConfig
	handlers map[string][]EventHandler
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOutboxProcessor(
	repo repository.OutboxRepository,
	broker messaging.Broker,
	config OutboxProcessorConfig,
	logger zerolog.Logger,
	metrics *metrics.Metrics,
) (*OutboxProcessor, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid outbox processor config: %w", err)
	}
	return &OutboxProcessor{
		repo:     repo,
		broker:   broker,
		config:   config,
		handlers: make(map[string][]EventHandler),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}, nil
}

// Handle registers h for events of the given type. Handlers must be
// registered before Start.
func (p *OutboxProcessor) Handle(eventType string, h EventHandler) {
	p.handlers[eventType] = append(p.handlers[eventType], h)
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	p.logger.Info().Str("channel", p.config.Channel).Msg("Starting outbox processor")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Shutting down outbox processor")
			return
		case <-ticker.C:
			if _, err := p.ProcessBatch(ctx); err != nil {
				p.logger.Error().Err(err).Msg("Failed to process events")
			}
		}
	}
}

// ProcessBatch claims one batch of due events and handles each of them. It
// returns the number of events published successfully.
func (p *OutboxProcessor) ProcessBatch(ctx context.Context) (int, error) {
	timer := prometheus.NewTimer(p.metrics.OutboxProcessingLatency)
	defer timer.ObserveDuration()

	events, err := p.repo.ClaimPending(ctx, p.config.BatchSize)
	if err != nil {
		p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "error").Inc()
		return 0, fmt.Errorf("failed to claim pending events: %w", err)
	}
	p.metrics.DatabaseOperations.WithLabelValues("claim_pending_events", "success").Inc()

	processed := 0
	for _, event := range events {
		if err := p.processEvent(ctx, event); err != nil {
			p.logger.Warn().Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Int("retry_count", event.RetryCount).
				Msg("Failed to process event")
			p.reschedule(ctx, event, err)
			continue
		}
		processed++
	}
	return processed, nil
}

func (p *OutboxProcessor) processEvent(ctx context.Context, event *model.OutboxEvent) error {
	message := messaging.Message{
		ID:         event.ID.String(),
		Type:       event.EventType,
		OccurredAt: event.CreatedAt,
		Payload:    json.RawMessage(event.Payload),
	}
	if err := p.broker.Publish(ctx, p.config.Channel, message); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	for _, h := range p.handlers[event.EventType] {
		if err := h(ctx, event); err != nil {
			return fmt.Errorf("handle %s: %w", event.EventType, err)
		}
	}

	if err := p.repo.MarkProcessed(ctx, event.ID); err != nil {
		return err
	}
	p.metrics.OutboxEventsProcessed.Inc()
	return nil
}

// reschedule backs the event off exponentially, or fails it for good once
// it has used up its attempts.
func (p *OutboxProcessor) reschedule(ctx context.Context, event *model.OutboxEvent, cause error) {
	attempt := event.RetryCount + 1
	if attempt >= p.config.RetryAttempts {
		p.metrics.OutboxEventsFailed.Inc()
		if err := p.repo.MarkFailed(ctx, event.ID, cause.Error()); err != nil {
			p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to update event status")
		}
		return
	}

	p.metrics.OutboxRetries.WithLabelValues(event.EventType).Inc()
	retryAt := p.now().Add(p.config.RetryDelay << uint(event.RetryCount))
	if err := p.repo.MarkRetry(ctx, event.ID, cause.Error(), retryAt); err != nil {
		p.logger.Error().Err(err).Str("event_id", event.ID.String()).Msg("Failed to update event status")
	}
}
