package channels

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"sync"
	"sync/atomic"
	"testing"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func directory() *casefile.Static {
	return casefile.NewStatic(casefile.Snapshot{
		Lawyers: []casefile.Contact{{ID: "l1", Name: "Alex Reed", Email: "alex@firm.test", PushToken: "tok-l1"}},
		Clients: []casefile.Contact{{ID: "c1", Name: "Dana Smith", Phone: "+15550100"}},
	})
}

func record(recipient string) notification.Record {
	return notification.Record{
		ID:          "r1",
		RecipientID: recipient,
		Category:    notification.CategoryDeadlineApproaching,
		Priority:    notification.PriorityHigh,
		Title:       "Deadline in 3 hours",
		Body:        "File the motion\nfor Smith v. Jones",
	}
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, notification.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

type captureProvider struct {
	to, subject, body string
	err               error
}

func (c *captureProvider) Send(_ context.Context, to, subject, body string) error {
	c.to, c.subject, c.body = to, subject, body
	return c.err
}

func TestEmailSender_RendersAndEscapes(t *testing.T) {
	p := &captureProvider{}
	s := NewEmailSender(p, directory(), testLogger())

	rec := record("l1")
	rec.Body = "Reply <urgent>"
	res, err := s.Send(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.False(t, res.Delivered)
	assert.Equal(t, "alex@firm.test", p.to)
	assert.Equal(t, "Deadline in 3 hours", p.subject)
	assert.Contains(t, p.body, "Hello Alex Reed")
	assert.Contains(t, p.body, "Reply &lt;urgent&gt;")
}

func TestEmailSender_MissingAddressIsPermanent(t *testing.T) {
	s := NewEmailSender(&captureProvider{}, directory(), testLogger())

	_, err := s.Send(context.Background(), record("c1"))
	assert.ErrorIs(t, err, notification.ErrPermanent)

	_, err = s.Send(context.Background(), record("nobody"))
	assert.ErrorIs(t, err, notification.ErrPermanent)
	assert.ErrorIs(t, err, casefile.ErrContactNotFound)
}

func TestEmailSender_ProviderErrorPassesThrough(t *testing.T) {
	boom := errors.New("relay down")
	s := NewEmailSender(&captureProvider{err: boom}, directory(), testLogger())
	_, err := s.Send(context.Background(), record("l1"))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, notification.ErrPermanent)
}

func TestBrevoProvider_PostsRequest(t *testing.T) {
	var got brevoSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	b := NewBrevoProvider("secret", "noreply@firm.test", "Firm", testLogger())
	b.endpoint = srv.URL
	require.NoError(t, b.Send(context.Background(), "alex@firm.test", "Subject", "<p>x</p>"))
	assert.Equal(t, "noreply@firm.test", got.Sender.Email)
	assert.Equal(t, "alex@firm.test", got.To[0].Email)
	assert.Equal(t, "<p>x</p>", got.HTML)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   bool
		permanent bool
	}{
		{200, false, false},
		{202, false, false},
		{400, true, true},
		{404, true, true},
		{408, true, false},
		{429, true, false},
		{500, true, false},
		{503, true, false},
	}
	for _, tt := range tests {
		err := classifyStatus("svc", tt.code)
		if !tt.wantErr {
			assert.NoError(t, err, tt.code)
			continue
		}
		require.Error(t, err, tt.code)
		assert.Equal(t, tt.permanent, errors.Is(err, notification.ErrPermanent), tt.code)
	}
}

func TestGatewaySender_SMSUsesPhone(t *testing.T) {
	var got gatewayMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gw-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSMSSender(srv.URL, "gw-token", directory(), testLogger())
	assert.Equal(t, notification.ChannelSMS, s.Channel())
	res, err := s.Send(context.Background(), record("c1"))
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "+15550100", got.To)
	assert.Equal(t, "Deadline in 3 hours", got.Body)
}

func TestGatewaySender_ErrorClasses(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusBadGateway)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	s := NewPushSender(srv.URL, "", directory(), testLogger())
	_, err := s.Send(context.Background(), record("l1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, notification.ErrPermanent)

	status.Store(http.StatusUnprocessableEntity)
	_, err = s.Send(context.Background(), record("l1"))
	assert.ErrorIs(t, err, notification.ErrPermanent)

	// c1 has no push token
	_, err = s.Send(context.Background(), record("c1"))
	assert.ErrorIs(t, err, notification.ErrPermanent)
}

func TestSMTPProvider_BuildsMessage(t *testing.T) {
	p := NewSMTPProvider("mail.firm.test", 587, "user", "pw", "noreply@firm.test", "Firm")
	var gotAddr string
	var gotTo []string
	var gotMsg []byte
	p.sendMail = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, msg
		return nil
	}

	require.NoError(t, p.Send(context.Background(), "alex@firm.test", "Hearing\r\nBcc: evil@x", "<p>hi</p>"))
	assert.Equal(t, "mail.firm.test:587", gotAddr)
	assert.Equal(t, []string{"alex@firm.test"}, gotTo)
	assert.Contains(t, string(gotMsg), "From: Firm <noreply@firm.test>\r\n")
	assert.Contains(t, string(gotMsg), "Subject: HearingBcc: evil@x\r\n")
	assert.NotContains(t, string(gotMsg), "\r\nBcc:")
}

func TestInboxSender_AppendsAndCaps(t *testing.T) {
	store := &memStore{}
	s := NewPortalSender(store)
	s.cap = 2

	for _, id := range []string{"r1", "r2", "r3"} {
		rec := record("c1")
		rec.ID = id
		res, err := s.Send(context.Background(), rec)
		require.NoError(t, err)
		assert.True(t, res.Delivered)
	}

	items, err := s.Items(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "r2", items[0].RecordID)
	assert.Equal(t, "r3", items[1].RecordID)

	empty, err := NewInAppSender(store).Items(context.Background(), "c1")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
