// Package channels holds the outbound adapters behind notification.Sender.
package channels

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// EmailProvider delivers one rendered email.
type EmailProvider interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// EmailSender resolves the recipient's address and hands the message to a provider.
type EmailSender struct {
	provider  EmailProvider
	directory casefile.Directory
	logger    *logrus.Entry
}

func NewEmailSender(provider EmailProvider, directory casefile.Directory, logger *logrus.Entry) *EmailSender {
	return &EmailSender{provider: provider, directory: directory, logger: logger.WithField("channel", notification.ChannelEmail)}
}

func (s *EmailSender) Channel() notification.Channel { return notification.ChannelEmail }

func (s *EmailSender) Send(ctx context.Context, rec notification.Record) (notification.SendResult, error) {
	contact, err := lookup(ctx, s.directory, rec.RecipientID)
	if err != nil {
		return notification.SendResult{}, err
	}
	if contact.Email == "" {
		return notification.SendResult{}, fmt.Errorf("%w: recipient %s has no email address", notification.ErrPermanent, rec.RecipientID)
	}
	if err := s.provider.Send(ctx, contact.Email, rec.Title, renderEmailBody(contact.Name, rec)); err != nil {
		return notification.SendResult{}, err
	}
	s.logger.WithFields(logrus.Fields{"record_id": rec.ID, "to": contact.Email}).Debug("Email handed to provider")
	return notification.SendResult{OK: true, Message: "accepted by provider"}, nil
}

func renderEmailBody(name string, rec notification.Record) string {
	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "<p>Hello %s,</p>\n", html.EscapeString(name))
	}
	for _, line := range strings.Split(rec.Body, "\n") {
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(line))
	}
	return b.String()
}

// lookup maps an unknown recipient onto a permanent failure.
func lookup(ctx context.Context, dir casefile.Directory, id string) (*casefile.Contact, error) {
	c, err := dir.Contact(ctx, id)
	if err != nil {
		if errors.Is(err, casefile.ErrContactNotFound) {
			return nil, fmt.Errorf("%w: %w", notification.ErrPermanent, err)
		}
		return nil, fmt.Errorf("resolve recipient %s: %w", id, err)
	}
	return c, nil
}

// sanitizeHeader strips control characters so a value cannot inject headers.
func sanitizeHeader(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MockEmailProvider logs instead of sending, for local development.
type MockEmailProvider struct {
	logger *logrus.Entry
}

func NewMockEmailProvider(logger *logrus.Entry) *MockEmailProvider {
	return &MockEmailProvider{logger: logger}
}

func (m *MockEmailProvider) Send(_ context.Context, to, subject, htmlBody string) error {
	m.logger.WithFields(logrus.Fields{
		"to":          to,
		"subject":     subject,
		"body_length": len(htmlBody),
	}).Info("MOCK EMAIL")
	return nil
}
