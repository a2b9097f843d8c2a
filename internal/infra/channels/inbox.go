package channels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"case_reminder_engine/internal/domain/notification"
)

const defaultInboxCap = 200

// InboxItem is one message shown in the in-app feed or the client portal.
type InboxItem struct {
	RecordID  string    `json:"recordId"`
	Category  string    `json:"category"`
	Priority  string    `json:"priority"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	MatterID  string    `json:"matterId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// InboxSender appends messages to a per-recipient list in the key-value store.
// Delivery is confirmed at hand-off.
type InboxSender struct {
	mu      sync.Mutex
	channel notification.Channel
	store   notification.Store
	cap     int
	now     func() time.Time
}

func NewInAppSender(store notification.Store) *InboxSender {
	return newInboxSender(notification.ChannelInApp, store)
}

func NewPortalSender(store notification.Store) *InboxSender {
	return newInboxSender(notification.ChannelPortal, store)
}

func newInboxSender(ch notification.Channel, store notification.Store) *InboxSender {
	return &InboxSender{channel: ch, store: store, cap: defaultInboxCap, now: time.Now}
}

func (s *InboxSender) Channel() notification.Channel { return s.channel }

func inboxKey(ch notification.Channel, recipient string) string {
	return fmt.Sprintf("inbox:%s:%s", ch, recipient)
}

func (s *InboxSender) Send(ctx context.Context, rec notification.Record) (notification.SendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx, rec.RecipientID)
	if err != nil {
		return notification.SendResult{}, err
	}
	items = append(items, InboxItem{
		RecordID:  rec.ID,
		Category:  string(rec.Category),
		Priority:  string(rec.Priority),
		Title:     rec.Title,
		Body:      rec.Body,
		MatterID:  rec.MatterID,
		CreatedAt: s.now(),
	})
	if len(items) > s.cap {
		items = items[len(items)-s.cap:]
	}
	data, err := json.Marshal(items)
	if err != nil {
		return notification.SendResult{}, fmt.Errorf("%w: encode inbox: %w", notification.ErrPermanent, err)
	}
	if err := s.store.Set(ctx, inboxKey(s.channel, rec.RecipientID), data); err != nil {
		return notification.SendResult{}, fmt.Errorf("write %s inbox: %w", s.channel, err)
	}
	return notification.SendResult{OK: true, Message: "stored", Delivered: true}, nil
}

// Items returns the recipient's inbox, oldest first.
func (s *InboxSender) Items(ctx context.Context, recipient string) ([]InboxItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx, recipient)
}

func (s *InboxSender) load(ctx context.Context, recipient string) ([]InboxItem, error) {
	data, err := s.store.Get(ctx, inboxKey(s.channel, recipient))
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s inbox: %w", s.channel, err)
	}
	var items []InboxItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode %s inbox: %w", s.channel, err)
	}
	return items, nil
}
