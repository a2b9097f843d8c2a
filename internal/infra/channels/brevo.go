package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoProvider sends emails via the Brevo transactional API.
type BrevoProvider struct {
	apiKey   string
	fromAddr string
	fromName string
	endpoint string
	client   *http.Client
	logger   *logrus.Entry
}

func NewBrevoProvider(apiKey, fromAddr, fromName string, logger *logrus.Entry) *BrevoProvider {
	return &BrevoProvider{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		endpoint: brevoEndpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

type brevoSendRequest struct {
	Sender  brevoContact   `json:"sender"`
	To      []brevoContact `json:"to"`
	Subject string         `json:"subject"`
	HTML    string         `json:"htmlContent"`
}

type brevoContact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Send posts one email. Retries are left to the dispatcher's backoff.
func (b *BrevoProvider) Send(ctx context.Context, to, subject, htmlBody string) error {
	payload, err := json.Marshal(brevoSendRequest{
		Sender:  brevoContact{Email: b.fromAddr, Name: b.fromName},
		To:      []brevoContact{{Email: to}},
		Subject: subject,
		HTML:    htmlBody,
	})
	if err != nil {
		return fmt.Errorf("%w: marshal request: %w", notification.ErrPermanent, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", b.apiKey)

	started := time.Now()
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("brevo request: %w", err)
	}
	defer resp.Body.Close()

	b.logger.WithFields(logrus.Fields{
		"to":          to,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(started).Milliseconds(),
	}).Debug("Brevo API request completed")
	return classifyStatus("brevo", resp.StatusCode)
}

// classifyStatus treats 4xx (except 408 and 429) as permanent and 5xx as transient.
func classifyStatus(service string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusRequestTimeout || code == http.StatusTooManyRequests:
		return fmt.Errorf("%s: HTTP %d", service, code)
	case code >= 400 && code < 500:
		return fmt.Errorf("%w: %s: HTTP %d", notification.ErrPermanent, service, code)
	default:
		return fmt.Errorf("%s: HTTP %d", service, code)
	}
}
