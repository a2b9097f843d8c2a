// Package casefile holds the read-only case entities the engine evaluates each tick.
package casefile

import (
	"time"

	"case_reminder_engine/internal/domain/notification"
)

// Deadline is a dated obligation on a matter.
type Deadline struct {
	ID         string
	MatterID   string
	Title      string
	DueAt      time.Time
	AssignedTo string // lawyer contact id
	ClientID   string
	Completed  bool
}

// CourtDate is a scheduled hearing.
type CourtDate struct {
	ID         string
	MatterID   string
	CaseNumber string
	Title      string
	Court      string
	StartsAt   time.Time
	LawyerID   string
	ClientID   string
}

// FollowUp is a task a lawyer promised to do.
type FollowUp struct {
	ID       string
	MatterID string
	Title    string
	DueAt    time.Time
	OwnerID  string
	Done     bool
}

// CalendarEvent is an entry on a lawyer's calendar.
type CalendarEvent struct {
	ID       string
	OwnerID  string
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
	AllDay   bool
}

// Matter groups the entities above.
type Matter struct {
	ID           string
	Title        string
	ClientID     string
	LeadLawyerID string
}

// Invoice is a bill issued to a client.
type Invoice struct {
	ID       string
	MatterID string
	ClientID string
	Number   string
	Amount   float64
	Currency string
	DueAt    time.Time
	Paid     bool
}

// DocumentRequest is a document the firm is waiting on from a client.
type DocumentRequest struct {
	ID          string
	MatterID    string
	ClientID    string
	Title       string
	RequestedAt time.Time
	Completed   bool
}

// DocumentAction is a document step a lawyer must take (sign, file, review).
type DocumentAction struct {
	ID        string
	MatterID  string
	LawyerID  string
	Title     string
	Action    string
	DueAt     time.Time
	Completed bool
}

// Contact holds the per-channel addresses of a lawyer or client.
type Contact struct {
	ID             string
	Audience       notification.Audience
	Name           string
	Email          string
	Phone          string
	TelegramChatID int64
	PushToken      string
}

// Snapshot is the immutable view of the case data for one tick.
type Snapshot struct {
	Deadlines        []Deadline
	CourtDates       []CourtDate
	FollowUps        []FollowUp
	CalendarEvents   []CalendarEvent
	Matters          []Matter
	Invoices         []Invoice
	DocumentRequests []DocumentRequest
	DocumentActions  []DocumentAction
	Lawyers          []Contact
	Clients          []Contact
}

// MatterByID finds a matter in the snapshot.
func (s *Snapshot) MatterByID(id string) (Matter, bool) {
	for _, m := range s.Matters {
		if m.ID == id {
			return m, true
		}
	}
	return Matter{}, false
}
