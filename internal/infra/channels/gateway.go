package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// GatewaySender posts push and SMS notifications to an HTTP gateway.
type GatewaySender struct {
	channel   notification.Channel
	url       string
	token     string
	directory casefile.Directory
	client    *http.Client
	logger    *logrus.Entry
}

type gatewayMessage struct {
	RecordID string `json:"record_id"`
	Channel  string `json:"channel"`
	To       string `json:"to"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"category"`
	Priority string `json:"priority"`
}

func NewPushSender(url, token string, directory casefile.Directory, logger *logrus.Entry) *GatewaySender {
	return newGatewaySender(notification.ChannelPush, url, token, directory, logger)
}

func NewSMSSender(url, token string, directory casefile.Directory, logger *logrus.Entry) *GatewaySender {
	return newGatewaySender(notification.ChannelSMS, url, token, directory, logger)
}

func newGatewaySender(ch notification.Channel, url, token string, directory casefile.Directory, logger *logrus.Entry) *GatewaySender {
	return &GatewaySender{
		channel:   ch,
		url:       url,
		token:     token,
		directory: directory,
		client:    &http.Client{Timeout: 15 * time.Second},
		logger:    logger.WithField("channel", ch),
	}
}

func (g *GatewaySender) Channel() notification.Channel { return g.channel }

func (g *GatewaySender) Send(ctx context.Context, rec notification.Record) (notification.SendResult, error) {
	contact, err := lookup(ctx, g.directory, rec.RecipientID)
	if err != nil {
		return notification.SendResult{}, err
	}
	to := contact.PushToken
	body := rec.Body
	if g.channel == notification.ChannelSMS {
		to = contact.Phone
		body = rec.Title
	}
	if to == "" {
		return notification.SendResult{}, fmt.Errorf("%w: recipient %s has no %s address", notification.ErrPermanent, rec.RecipientID, g.channel)
	}

	payload, err := json.Marshal(gatewayMessage{
		RecordID: rec.ID,
		Channel:  string(g.channel),
		To:       to,
		Title:    rec.Title,
		Body:     body,
		Category: string(rec.Category),
		Priority: string(rec.Priority),
	})
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("%w: marshal gateway message: %w", notification.ErrPermanent, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("%w: create request: %w", notification.ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("%s gateway request: %w", g.channel, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(string(g.channel)+" gateway", resp.StatusCode); err != nil {
		g.logger.WithFields(logrus.Fields{"record_id": rec.ID, "status_code": resp.StatusCode}).Warn("Gateway rejected message")
		return notification.SendResult{}, err
	}
	return notification.SendResult{OK: true, Message: fmt.Sprintf("gateway accepted (%d)", resp.StatusCode)}, nil
}
