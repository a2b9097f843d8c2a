package app

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fakeSender struct {
	ch     notification.Channel
	mu     sync.Mutex
	calls  []notification.Record
	result notification.SendResult
	err    error
}

func newFakeSender(ch notification.Channel) *fakeSender {
	return &fakeSender{ch: ch, result: notification.SendResult{OK: true}}
}

func (s *fakeSender) Channel() notification.Channel { return s.ch }

func (s *fakeSender) Send(_ context.Context, rec notification.Record) (notification.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, rec)
	return s.result, s.err
}

func (s *fakeSender) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: make(map[string][]byte)} }

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, notification.ErrNotFound
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

type memSink struct {
	mu      sync.Mutex
	entries []notification.AuditEntry
}

func (s *memSink) AppendAuditEntry(_ context.Context, e notification.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

func (s *memSink) categories() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, e := range s.entries {
		out[e.Category]++
	}
	return out
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type harness struct {
	engine  *Engine
	clock   *fakeClock
	source  *casefile.Static
	senders map[notification.Channel]*fakeSender
	store   *memStore
	sink    *memSink
}

func newHarness(t *testing.T, start time.Time, snap casefile.Snapshot, opts Options) *harness {
	t.Helper()
	h := &harness{
		clock:   &fakeClock{t: start},
		source:  casefile.NewStatic(snap),
		senders: make(map[notification.Channel]*fakeSender),
		store:   newMemStore(),
		sink:    &memSink{},
	}
	var senders []notification.Sender
	for _, ch := range notification.AllChannels {
		s := newFakeSender(ch)
		h.senders[ch] = s
		senders = append(senders, s)
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	h.engine = NewEngine(Deps{
		Source:  h.source,
		Senders: senders,
		Store:   h.store,
		Audit:   h.sink,
		Now:     h.clock.Now,
		Logger:  discardLogger(),
	}, opts)
	return h
}

func (h *harness) tick(t *testing.T) {
	t.Helper()
	if err := h.engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	h.engine.Wait()
}

var (
	lawyer = casefile.Contact{ID: "l1", Audience: notification.AudienceLawyer, Name: "Alex Reed", Email: "alex@firm.test"}
	client = casefile.Contact{ID: "c1", Audience: notification.AudienceClient, Name: "Dana Smith", Email: "dana@example.test"}
	matter = casefile.Matter{ID: "m1", Title: "Smith v. Jones", ClientID: "c1", LeadLawyerID: "l1"}
)

func baseSnapshot() casefile.Snapshot {
	return casefile.Snapshot{
		Matters: []casefile.Matter{matter},
		Lawyers: []casefile.Contact{lawyer},
		Clients: []casefile.Contact{client},
	}
}

func followUpSnapshot(due time.Time) casefile.Snapshot {
	snap := baseSnapshot()
	snap.FollowUps = []casefile.FollowUp{{ID: "f1", MatterID: "m1", Title: "Call opposing counsel", DueAt: due, OwnerID: "l1"}}
	return snap
}

func recordsByChannel(recs []notification.Record) map[notification.Channel]notification.Record {
	out := make(map[notification.Channel]notification.Record, len(recs))
	for _, r := range recs {
		out[r.Channel] = r
	}
	return out
}
