package telegram

import (
	"context"
	"errors"
	"fmt"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"
	domaintelegram "case_reminder_engine/internal/domain/telegram"

	"gopkg.in/telebot.v3"
)

// ChatSender delivers records to the recipient's Telegram chat.
type ChatSender struct {
	client    domaintelegram.Client
	directory casefile.Directory
}

func NewChatSender(client domaintelegram.Client, directory casefile.Directory) *ChatSender {
	return &ChatSender{client: client, directory: directory}
}

func (s *ChatSender) Channel() notification.Channel { return notification.ChannelChat }

func (s *ChatSender) Send(ctx context.Context, rec notification.Record) (notification.SendResult, error) {
	contact, err := s.directory.Contact(ctx, rec.RecipientID)
	if err != nil {
		if errors.Is(err, casefile.ErrContactNotFound) {
			return notification.SendResult{}, fmt.Errorf("%w: %w", notification.ErrPermanent, err)
		}
		return notification.SendResult{}, fmt.Errorf("resolve recipient %s: %w", rec.RecipientID, err)
	}
	if contact.TelegramChatID == 0 {
		return notification.SendResult{}, fmt.Errorf("%w: recipient %s has no telegram chat", notification.ErrPermanent, rec.RecipientID)
	}
	if err := ctx.Err(); err != nil {
		return notification.SendResult{}, err
	}

	if err := s.client.SendMessage(contact.TelegramChatID, FormatRecord(rec), &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		if isPermanentTelegramError(err) {
			return notification.SendResult{}, fmt.Errorf("%w: %w", notification.ErrPermanent, err)
		}
		return notification.SendResult{}, fmt.Errorf("telegram send: %w", err)
	}
	return notification.SendResult{OK: true, Message: "sent to telegram"}, nil
}

// FormatRecord renders a record as a plain-text chat message.
func FormatRecord(rec notification.Record) string {
	prefix := ""
	if rec.Priority.Urgent() {
		prefix = "❗ "
	}
	if rec.Body == "" {
		return prefix + rec.Title
	}
	return prefix + rec.Title + "\n\n" + rec.Body
}

func isPermanentTelegramError(err error) bool {
	return errors.Is(err, telebot.ErrBlockedByUser) || errors.Is(err, telebot.ErrChatNotFound)
}
