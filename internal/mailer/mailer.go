// Package mailer dispatches guest notifications over SMTP.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"chaletd/internal/config"
	appLog "chaletd/internal/log"
	"chaletd/internal/message"
	"chaletd/internal/model"
	"chaletd/internal/stage"
)

// Messenger dispatches one stage message for one reservation. The scheduler
// enforces at-most-once via its own flags; implementations only need to
// report success or failure.
type Messenger interface {
	SendStage(ctx context.Context, s stage.Stage, r model.Reservation) error
}

// SMTPMailer sends stage emails through a plain-auth SMTP relay.
type SMTPMailer struct {
	cfg config.SMTPConfig
	est message.Establishment
}

func NewSMTP(cfg config.SMTPConfig, est config.EstablishmentConfig) *SMTPMailer {
	return &SMTPMailer{
		cfg: cfg,
		est: message.Establishment{
			Name:      est.Name,
			DoorCode:  est.DoorCode,
			ReviewURL: est.ReviewURL,
		},
	}
}

func (m *SMTPMailer) SendStage(_ context.Context, s stage.Stage, r model.Reservation) error {
	if m.cfg.Host == "" || m.cfg.Username == "" || m.cfg.Password == "" || m.cfg.Sender == "" {
		return fmt.Errorf("mailer: smtp not configured: set smtp host/username/password/sender")
	}
	if r.Email == "" {
		return fmt.Errorf("mailer: reservation %s has no email", r.ID)
	}

	subject, body, err := message.ForStage(s, r, m.est)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	msg := strings.Join([]string{
		"From: " + m.cfg.Sender,
		"To: " + r.Email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
		"",
		body,
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, m.cfg.Sender, []string{r.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("mailer: send %s to %s: %w", s, r.Email, err)
	}
	return nil
}

// LogMailer renders messages and logs them instead of sending. Used by
// -dry-run and by operators verifying templates.
type LogMailer struct {
	Est message.Establishment
}

func (m *LogMailer) SendStage(_ context.Context, s stage.Stage, r model.Reservation) error {
	subject, _, err := message.ForStage(s, r, m.Est)
	if err != nil {
		return err
	}
	appLog.Info("dry-run: stage message rendered", "stage", s.String(), "to", r.Email, "subject", subject)
	return nil
}
