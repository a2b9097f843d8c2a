package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"case_reminder_engine/internal/domain/notification"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

type recordResponse struct {
	ID             string     `json:"id"`
	RecipientID    string     `json:"recipient_id"`
	Audience       string     `json:"audience"`
	Category       string     `json:"category"`
	Priority       string     `json:"priority"`
	Channel        string     `json:"channel"`
	Status         string     `json:"status"`
	RuleID         string     `json:"rule_id,omitempty"`
	Title          string     `json:"title"`
	Body           string     `json:"body"`
	MatterID       string     `json:"matter_id,omitempty"`
	CaseID         string     `json:"case_id,omitempty"`
	DeadlineID     string     `json:"deadline_id,omitempty"`
	CourtDateID    string     `json:"court_date_id,omitempty"`
	DigestID       string     `json:"digest_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	Error          string     `json:"error,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func toRecordResponse(r notification.Record) recordResponse {
	return recordResponse{
		ID:             r.ID,
		RecipientID:    r.RecipientID,
		Audience:       string(r.Audience),
		Category:       string(r.Category),
		Priority:       string(r.Priority),
		Channel:        string(r.Channel),
		Status:         string(r.Status),
		RuleID:         r.RuleID,
		Title:          r.Title,
		Body:           r.Body,
		MatterID:       r.MatterID,
		CaseID:         r.CaseID,
		DeadlineID:     r.DeadlineID,
		CourtDateID:    r.CourtDateID,
		DigestID:       r.DigestID,
		CreatedAt:      r.CreatedAt,
		ScheduledAt:    optionalTime(r.ScheduledAt),
		SentAt:         optionalTime(r.SentAt),
		DeliveredAt:    optionalTime(r.DeliveredAt),
		OpenedAt:       optionalTime(r.OpenedAt),
		FailedAt:       optionalTime(r.FailedAt),
		AcknowledgedAt: optionalTime(r.AcknowledgedAt),
		RetryCount:     r.RetryCount,
		MaxRetries:     r.MaxRetries,
		Error:          r.Error,
	}
}

type ruleResponse struct {
	ID              string   `json:"id"`
	Category        string   `json:"category"`
	Audience        string   `json:"audience"`
	Enabled         bool     `json:"enabled"`
	Channels        []string `json:"channels"`
	Priority        string   `json:"priority"`
	Delay           string   `json:"delay"`
	SubjectTemplate string   `json:"subject_template"`
	BodyTemplate    string   `json:"body_template"`
}

func toRuleResponse(r notification.Rule) ruleResponse {
	channels := make([]string, 0, len(r.Channels))
	for _, ch := range r.Channels {
		channels = append(channels, string(ch))
	}
	return ruleResponse{
		ID:              r.ID,
		Category:        string(r.Category),
		Audience:        string(r.Audience),
		Enabled:         r.Enabled,
		Channels:        channels,
		Priority:        string(r.Priority),
		Delay:           r.Delay.String(),
		SubjectTemplate: r.SubjectTemplate,
		BodyTemplate:    r.BodyTemplate,
	}
}

type digestResponse struct {
	ID                string     `json:"id"`
	RecipientID       string     `json:"recipient_id"`
	Frequency         string     `json:"frequency"`
	Status            string     `json:"status"`
	RecordIDs         []string   `json:"record_ids"`
	ScheduledAt       time.Time  `json:"scheduled_at"`
	CreatedAt         time.Time  `json:"created_at"`
	SentAt            *time.Time `json:"sent_at,omitempty"`
	CompositeRecordID string     `json:"composite_record_id,omitempty"`
}

func toDigestResponse(d notification.Digest) digestResponse {
	return digestResponse{
		ID:                d.ID,
		RecipientID:       d.RecipientID,
		Frequency:         string(d.Frequency),
		Status:            string(d.Status),
		RecordIDs:         d.RecordIDs,
		ScheduledAt:       d.ScheduledAt,
		CreatedAt:         d.CreatedAt,
		SentAt:            optionalTime(d.SentAt),
		CompositeRecordID: d.CompositeRecordID,
	}
}
