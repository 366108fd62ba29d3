// Copyright (c) 2026 Moneta. All rights reserved.
// Author: dev@moneta.app

/*
Package mailer sends transactional email over SMTP.

It implements the email-sending port the auth service depends on. Delivery
is intentionally plain: subject + text body, one recipient, no templating.
*/
package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
)

// SMTPSettings holds the connection parameters for the outbound relay.
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

// Mailer sends account lifecycle email (verification codes, reset links).
type Mailer struct {
	client *mail.Client
	sender string
	logger *slog.Logger
}

// New constructs a Mailer from SMTP settings.
func New(settings SMTPSettings, logger *slog.Logger) (*Mailer, error) {
	client, err := mail.NewClient(settings.Host,
		mail.WithPort(settings.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(settings.Username),
		mail.WithPassword(settings.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("mailer: failed to create SMTP client: %w", err)
	}

	return &Mailer{
		client: client,
		sender: settings.Sender,
		logger: logger,
	}, nil
}

// SendAccountVerificationEmail mails the 6-digit confirmation code and the
// verification link to a freshly registered (or re-requesting) user.
func (m *Mailer) SendAccountVerificationEmail(ctx context.Context, to, code, verificationURL string) error {
	subject := "Verify your Moneta account"
	body := fmt.Sprintf(
		"Welcome to Moneta!\n\n"+
			"Your verification code is: %s\n\n"+
			"You can also verify directly: %s\n\n"+
			"The code expires in 60 minutes.\n",
		code, verificationURL,
	)
	return m.send(ctx, to, subject, body)
}

// SendPasswordResetEmail mails the password-reset link.
func (m *Mailer) SendPasswordResetEmail(ctx context.Context, to, resetURL string) error {
	subject := "Reset your Moneta password"
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password here: %s\n\n"+
			"The link expires in 60 minutes. If you did not request this, ignore this email.\n",
		resetURL,
	)
	return m.send(ctx, to, subject, body)
}

// send builds and delivers a single plain-text message.
func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("mailer: invalid sender address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("mailer: invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("mailer: failed to send email: %w", err)
	}

	m.logger.Info("email_sent", slog.String("to", to), slog.String("subject", subject))
	return nil
}
