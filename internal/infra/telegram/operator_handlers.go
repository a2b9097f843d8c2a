package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"case_reminder_engine/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const (
	defaultFailedListLimit = 10
	maxFailedListLimit     = 50

	msgUnauthorized = "Error: you are not allowed to run this command."
)

// OperatorHandlers serves the operator commands in the admin chat.
// Each command is a method returning the reply so it can be exercised without a bot.
type OperatorHandlers struct {
	ctx    context.Context
	ops    *app.OperatorService
	logger *logrus.Entry
}

func NewOperatorHandlers(ctx context.Context, ops *app.OperatorService, baseLogger *logrus.Entry) *OperatorHandlers {
	return &OperatorHandlers{ctx: ctx, ops: ops, logger: baseLogger.WithField("handler_group", "operator")}
}

// RegisterOperatorHandlers wires the commands and the inline-button callbacks into the bot.
func RegisterOperatorHandlers(ctx context.Context, b *telebot.Bot, ops *app.OperatorService, baseLogger *logrus.Entry) {
	h := NewOperatorHandlers(ctx, ops, baseLogger)

	b.Handle("/start", func(c telebot.Context) error {
		return c.Send(h.Start(c.Sender().ID, c.Sender().FirstName))
	})
	b.Handle("/help", func(c telebot.Context) error {
		return c.Send(h.Help(c.Sender().ID), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
	})
	b.Handle("/failed", func(c telebot.Context) error {
		text, markup := h.Failed(c.Sender().ID, c.Args())
		if markup == nil {
			return c.Send(text)
		}
		return c.Send(text, markup)
	})
	b.Handle("/ack", func(c telebot.Context) error {
		return c.Send(h.Ack(c.Sender().ID, c.Args()))
	})
	b.Handle("/retry", func(c telebot.Context) error {
		return c.Send(h.Retry(c.Sender().ID, c.Args()))
	})
	b.Handle("/rule_on", func(c telebot.Context) error {
		return c.Send(h.SetRule(c.Sender().ID, c.Args(), true))
	})
	b.Handle("/rule_off", func(c telebot.Context) error {
		return c.Send(h.SetRule(c.Sender().ID, c.Args(), false))
	})
	b.Handle(telebot.OnCallback, func(c telebot.Context) error {
		return c.Respond(&telebot.CallbackResponse{Text: h.Callback(c.Sender().ID, c.Callback().Data)})
	})
}

func (h *OperatorHandlers) commandLogger(command string, senderID int64) *logrus.Entry {
	return h.logger.WithFields(logrus.Fields{"command": command, "sender_id": senderID})
}

func (h *OperatorHandlers) Start(senderID int64, firstName string) string {
	h.commandLogger("/start", senderID).Info("Command received")
	if h.ops.IsOperator(senderID) {
		return fmt.Sprintf("Hello %s! The reminder engine is running. Use /help for the operator commands.", firstName)
	}
	return "Hello! This bot delivers case reminders. Ask your firm administrator to link this chat to your contact record."
}

func (h *OperatorHandlers) Help(senderID int64) string {
	h.commandLogger("/help", senderID).Info("Command received")
	if !h.ops.IsOperator(senderID) {
		return "Reminders arrive here automatically. There are no commands available to you."
	}
	var help strings.Builder
	help.WriteString("Operator commands:\n\n")
	help.WriteString("`/failed [limit]`\n - List failed notifications.\n\n")
	help.WriteString("`/ack <record_id>`\n - Acknowledge a notification.\n\n")
	help.WriteString("`/retry <record_id>`\n - Re-send a failed notification.\n\n")
	help.WriteString("`/rule_on <rule_id>` / `/rule_off <rule_id>`\n - Enable or disable a trigger rule.\n\n")
	help.WriteString("`/help`\n - Show this message.")
	return help.String()
}

// Failed lists failed records with inline Retry and Ack buttons.
func (h *OperatorHandlers) Failed(senderID int64, args []string) (string, *telebot.ReplyMarkup) {
	logCtx := h.commandLogger("/failed", senderID)
	logCtx.Info("Command received")

	limit := defaultFailedListLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "Invalid limit. Use: /failed [limit]", nil
		}
		limit = min(n, maxFailedListLimit)
	}

	recs, err := h.ops.FailedRecords(senderID, limit)
	if err != nil {
		logCtx.WithError(err).Warn("Unauthorized access attempt")
		return msgUnauthorized, nil
	}
	if len(recs) == 0 {
		return "No failed notifications.", nil
	}

	var response strings.Builder
	markup := &telebot.ReplyMarkup{}
	response.WriteString(fmt.Sprintf("--- Failed notifications (%d) ---\n", len(recs)))
	for _, rec := range recs {
		response.WriteString(fmt.Sprintf("%s | %s → %s via %s | retries %d | %s\n",
			rec.ID, rec.Category, rec.RecipientID, rec.Channel, rec.RetryCount, rec.Error))
		markup.InlineKeyboard = append(markup.InlineKeyboard, []telebot.InlineButton{
			{Text: "Retry " + shortID(rec.ID), Data: "retry_" + rec.ID},
			{Text: "Ack " + shortID(rec.ID), Data: "ack_" + rec.ID},
		})
	}
	logCtx.WithField("records_count", len(recs)).Info("Failed records listed")
	return response.String(), markup
}

func (h *OperatorHandlers) Ack(senderID int64, args []string) string {
	if len(args) != 1 {
		return "Invalid command format. Use: /ack <record_id>"
	}
	return h.ack(senderID, args[0])
}

func (h *OperatorHandlers) ack(senderID int64, id string) string {
	logCtx := h.commandLogger("/ack", senderID).WithField("record_id", id)
	rec, err := h.ops.Acknowledge(h.ctx, senderID, id)
	if err != nil {
		return h.replyError(logCtx, err, id)
	}
	logCtx.Info("Record acknowledged")
	return fmt.Sprintf("Acknowledged %s (%s, %s).", rec.ID, rec.Category, rec.Status)
}

func (h *OperatorHandlers) Retry(senderID int64, args []string) string {
	if len(args) != 1 {
		return "Invalid command format. Use: /retry <record_id>"
	}
	return h.retry(senderID, args[0])
}

func (h *OperatorHandlers) retry(senderID int64, id string) string {
	logCtx := h.commandLogger("/retry", senderID).WithField("record_id", id)
	rec, err := h.ops.Retry(h.ctx, senderID, id)
	if err != nil {
		return h.replyError(logCtx, err, id)
	}
	logCtx.Info("Record re-dispatched")
	return fmt.Sprintf("Retrying %s on %s (status %s).", rec.ID, rec.Channel, rec.Status)
}

func (h *OperatorHandlers) SetRule(senderID int64, args []string, enabled bool) string {
	command := "/rule_off"
	if enabled {
		command = "/rule_on"
	}
	if len(args) != 1 {
		return fmt.Sprintf("Invalid command format. Use: %s <rule_id>", command)
	}
	logCtx := h.commandLogger(command, senderID).WithField("rule_id", args[0])
	rule, err := h.ops.SetRuleEnabled(h.ctx, senderID, args[0], enabled)
	if err != nil {
		return h.replyError(logCtx, err, args[0])
	}
	state := "disabled"
	if rule.Enabled {
		state = "enabled"
	}
	logCtx.WithField("enabled", rule.Enabled).Info("Rule updated")
	return fmt.Sprintf("Rule %s is now %s.", rule.ID, state)
}

// Callback handles the inline buttons attached by Failed.
func (h *OperatorHandlers) Callback(senderID int64, data string) string {
	action, id, ok := strings.Cut(data, "_")
	if !ok || id == "" {
		h.logger.WithField("data", data).Warn("Unhandled callback data")
		return "Unknown action."
	}
	switch action {
	case "ack":
		return h.ack(senderID, id)
	case "retry":
		return h.retry(senderID, id)
	default:
		h.logger.WithField("data", data).Warn("Unhandled callback data")
		return "Unknown action."
	}
}

func (h *OperatorHandlers) replyError(logCtx *logrus.Entry, err error, id string) string {
	logWithError := logCtx.WithError(err)
	switch {
	case errors.Is(err, app.ErrOperatorNotAuthorized):
		logWithError.Warn("Unauthorized access attempt")
		return msgUnauthorized
	case errors.Is(err, app.ErrRecordNotFound):
		logWithError.Warn("Record not found")
		return fmt.Sprintf("Notification %s was not found.", id)
	case errors.Is(err, app.ErrRecordNotFailed):
		logWithError.Warn("Record is not failed")
		return fmt.Sprintf("Notification %s is not in the failed state.", id)
	case errors.Is(err, app.ErrRuleNotFound):
		logWithError.Warn("Rule not found")
		return fmt.Sprintf("Rule %s was not found.", id)
	default:
		logWithError.Error("Operator command failed")
		return fmt.Sprintf("An error occurred: %s", err.Error())
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
