package email

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/bp-admin-api/config"
	"github.com/jwalitptl/bp-admin-api/internal/bp"
	"github.com/jwalitptl/bp-admin-api/internal/model"
	"github.com/jwalitptl/bp-admin-api/pkg/metrics"
)

type Service interface {
	SendCrisisAlert(ctx context.Context, reading model.ReadingEventPayload) error
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

type smtpService struct {
	from       string
	recipients []string
	sender     gomail.Sender
	logger     zerolog.Logger
}

// NewSMTPService dials the configured server for every message.
func NewSMTPService(cfg config.SMTPConfig, logger zerolog.Logger) Service {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	sender := gomail.SendFunc(func(from string, to []string, msg io.WriterTo) error {
		closer, err := dialer.Dial()
		if err != nil {
			return err
		}
		defer closer.Close()
		return closer.Send(from, to, msg)
	})
	return NewService(cfg.From, cfg.AlertRecipients, sender, logger)
}

func NewService(from string, recipients []string, sender gomail.Sender, logger zerolog.Logger) Service {
	return &smtpService{
		from:       from,
		recipients: recipients,
		sender:     sender,
		logger:     logger,
	}
}

func (s *smtpService) SendCrisisAlert(ctx context.Context, reading model.ReadingEventPayload) error {
	if len(s.recipients) == 0 {
		s.logger.Warn().Int64("reading_id", reading.ReadingID).Msg("No alert recipients configured, skipping crisis alert")
		return nil
	}
	subject := fmt.Sprintf("BP crisis: %s %d/%d", reading.PatientName, reading.Systolic, reading.Diastolic)
	body := fmt.Sprintf(
		"A hypertensive crisis reading was recorded.\n\nPatient: %s (id %d)\nReading: %d/%d mmHg\nRecorded at: %s\n\nContact the patient immediately.",
		reading.PatientName, reading.PatientID, reading.Systolic, reading.Diastolic,
		reading.RecordedAt.Format("2006-01-02 15:04 MST"),
	)
	return s.SendCustom(ctx, s.recipients, subject, body)
}

func (s *smtpService) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := gomail.Send(s.sender, m); err != nil {
		return fmt.Errorf("failed to send mail %q: %w", subject, err)
	}
	s.logger.Info().Strs("to", to).Str("subject", subject).Msg("Mail sent")
	return nil
}

// NewCrisisAlertHandler returns an outbox handler that mails an alert for
// every abnormal reading in the crisis category.
func NewCrisisAlertHandler(svc Service, m *metrics.Metrics) func(ctx context.Context, event *model.OutboxEvent) error {
	return func(ctx context.Context, event *model.OutboxEvent) error {
		var reading model.ReadingEventPayload
		if err := json.Unmarshal(event.Payload, &reading); err != nil {
			return fmt.Errorf("decode reading payload: %w", err)
		}
		if reading.Category != string(bp.CategoryCrisis) {
			return nil
		}
		if err := svc.SendCrisisAlert(ctx, reading); err != nil {
			return err
		}
		m.AlertsSent.Inc()
		return nil
	}
}
