package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"case_reminder_engine/internal/app"
	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

const adminID int64 = 4242

var now = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeClient struct {
	chatID int64
	text   string
	err    error
}

func (f *fakeClient) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	f.chatID, f.text = chatID, text
	return f.err
}

type rejectingSender struct{ ch notification.Channel }

func (s rejectingSender) Channel() notification.Channel { return s.ch }

func (s rejectingSender) Send(context.Context, notification.Record) (notification.SendResult, error) {
	return notification.SendResult{}, fmt.Errorf("%w: address rejected", notification.ErrPermanent)
}

func snapshot() casefile.Snapshot {
	return casefile.Snapshot{
		Matters:   []casefile.Matter{{ID: "m1", Title: "Smith v. Jones", ClientID: "c1", LeadLawyerID: "l1"}},
		Lawyers:   []casefile.Contact{{ID: "l1", Audience: notification.AudienceLawyer, Name: "Alex Reed", TelegramChatID: 777}},
		Clients:   []casefile.Contact{{ID: "c1", Audience: notification.AudienceClient, Name: "Dana Smith"}},
		FollowUps: []casefile.FollowUp{{ID: "f1", MatterID: "m1", Title: "Call opposing counsel", DueAt: now.Add(6 * time.Hour), OwnerID: "l1"}},
	}
}

func newHandlers(t *testing.T) (*OperatorHandlers, *app.Engine) {
	t.Helper()
	var senders []notification.Sender
	for _, ch := range notification.AllChannels {
		senders = append(senders, rejectingSender{ch: ch})
	}
	engine := app.NewEngine(app.Deps{
		Source:  casefile.NewStatic(snapshot()),
		Senders: senders,
		Now:     func() time.Time { return now },
		Logger:  testLogger(),
	}, app.Options{Location: time.UTC})
	return NewOperatorHandlers(context.Background(), app.NewOperatorService(engine, adminID), testLogger()), engine
}

func TestChatSender_SendsToContactChat(t *testing.T) {
	client := &fakeClient{}
	s := NewChatSender(client, casefile.NewStatic(snapshot()))

	res, err := s.Send(context.Background(), notification.Record{
		RecipientID: "l1",
		Priority:    notification.PriorityCritical,
		Title:       "Deadline overdue",
		Body:        "File the motion",
	})
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, int64(777), client.chatID)
	assert.Equal(t, "❗ Deadline overdue\n\nFile the motion", client.text)
}

func TestChatSender_Errors(t *testing.T) {
	client := &fakeClient{}
	s := NewChatSender(client, casefile.NewStatic(snapshot()))
	ctx := context.Background()

	_, err := s.Send(ctx, notification.Record{RecipientID: "c1"})
	assert.ErrorIs(t, err, notification.ErrPermanent, "client without chat id")

	_, err = s.Send(ctx, notification.Record{RecipientID: "ghost"})
	assert.ErrorIs(t, err, notification.ErrPermanent)

	client.err = telebot.ErrBlockedByUser
	_, err = s.Send(ctx, notification.Record{RecipientID: "l1"})
	assert.ErrorIs(t, err, notification.ErrPermanent)

	client.err = errors.New("timeout")
	_, err = s.Send(ctx, notification.Record{RecipientID: "l1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, notification.ErrPermanent)
}

func TestFormatRecord(t *testing.T) {
	assert.Equal(t, "Weekly summary", FormatRecord(notification.Record{Title: "Weekly summary", Priority: notification.PriorityLow}))
}

func TestOperatorHandlers_Unauthorized(t *testing.T) {
	h, _ := newHandlers(t)

	text, markup := h.Failed(1, nil)
	assert.Equal(t, msgUnauthorized, text)
	assert.Nil(t, markup)
	assert.Equal(t, msgUnauthorized, h.Ack(1, []string{"x"}))
	assert.Equal(t, msgUnauthorized, h.Retry(1, []string{"x"}))
	assert.Equal(t, msgUnauthorized, h.SetRule(1, []string{"follow-up-due"}, false))
	assert.NotContains(t, h.Help(1), "/retry")
	assert.Contains(t, h.Help(adminID), "/retry")
}

func TestOperatorHandlers_ArgumentValidation(t *testing.T) {
	h, _ := newHandlers(t)

	assert.Contains(t, h.Ack(adminID, nil), "Use: /ack")
	assert.Contains(t, h.Retry(adminID, []string{"a", "b"}), "Use: /retry")
	assert.Contains(t, h.SetRule(adminID, nil, true), "Use: /rule_on")
	text, _ := h.Failed(adminID, []string{"zero"})
	assert.Contains(t, text, "Invalid limit")
	assert.Equal(t, "Unknown action.", h.Callback(adminID, "nonsense"))
	assert.Equal(t, "Unknown action.", h.Callback(adminID, "delete_r1"))
}

func TestOperatorHandlers_FailedAckRetry(t *testing.T) {
	h, engine := newHandlers(t)

	text, markup := h.Failed(adminID, nil)
	assert.Equal(t, "No failed notifications.", text)
	assert.Nil(t, markup)

	require.NoError(t, engine.Tick(context.Background()))
	engine.Wait()

	failed := engine.Records(app.RecordFilter{Status: notification.StatusFailed})
	require.NotEmpty(t, failed)
	id := failed[0].ID

	text, markup = h.Failed(adminID, []string{"100"})
	assert.Contains(t, text, id)
	require.NotNil(t, markup)
	require.Len(t, markup.InlineKeyboard, len(failed))
	assert.Equal(t, "retry_"+id, markup.InlineKeyboard[0][0].Data)
	assert.Equal(t, "ack_"+id, markup.InlineKeyboard[0][1].Data)

	assert.Contains(t, h.Callback(adminID, "ack_"+id), "Acknowledged "+id)
	assert.Contains(t, h.Retry(adminID, []string{id}), "Retrying "+id)
	engine.Wait()

	assert.Equal(t, "Notification missing was not found.", h.Ack(adminID, []string{"missing"}))
}

func TestOperatorHandlers_RuleToggle(t *testing.T) {
	h, engine := newHandlers(t)

	assert.Equal(t, "Rule follow-up-due is now disabled.", h.SetRule(adminID, []string{"follow-up-due"}, false))
	for _, r := range engine.Rules() {
		if r.ID == "follow-up-due" {
			assert.False(t, r.Enabled)
		}
	}
	assert.Equal(t, "Rule follow-up-due is now enabled.", h.SetRule(adminID, []string{"follow-up-due"}, true))
	assert.Equal(t, "Rule nope was not found.", h.SetRule(adminID, []string{"nope"}, true))
}
