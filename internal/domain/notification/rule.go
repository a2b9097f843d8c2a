// internal/domain/notification/rule.go
package notification

import "time"

// Occurrence is a single evaluated case event that may produce notifications.
type Occurrence struct {
	Category    Category
	Audience    Audience
	RecipientID string
	// Priority overrides the rule priority when set (e.g. threshold-derived urgency).
	Priority Priority
	// DedupKey is stable per logical occurrence, e.g. "deadline_approaching:{id}:{threshold}".
	DedupKey string

	MatterID    string
	CaseID      string
	DeadlineID  string
	CourtDateID string

	Vars map[string]string
}

// Rule maps an event category to channels, priority and message templates.
type Rule struct {
	ID              string
	Category        Category
	Audience        Audience
	Enabled         bool
	Channels        []Channel
	Priority        Priority
	Delay           time.Duration // delay-before-send
	SubjectTemplate string
	BodyTemplate    string
	// Guard is optional; a false result drops the occurrence without creating a record.
	Guard func(Occurrence) bool `json:"-"`
}

// RulePatch carries a partial rule update. Nil fields are left untouched.
type RulePatch struct {
	Enabled         *bool          `json:"enabled,omitempty"`
	Channels        []Channel      `json:"channels,omitempty"`
	Priority        *Priority      `json:"priority,omitempty"`
	Delay           *time.Duration `json:"delay,omitempty"`
	SubjectTemplate *string        `json:"subject_template,omitempty"`
	BodyTemplate    *string        `json:"body_template,omitempty"`
}

// Apply returns a copy of r with the patch applied.
func (p RulePatch) Apply(r Rule) Rule {
	if p.Enabled != nil {
		r.Enabled = *p.Enabled
	}
	if p.Channels != nil {
		r.Channels = append([]Channel(nil), p.Channels...)
	}
	if p.Priority != nil {
		r.Priority = *p.Priority
	}
	if p.Delay != nil {
		r.Delay = *p.Delay
	}
	if p.SubjectTemplate != nil {
		r.SubjectTemplate = *p.SubjectTemplate
	}
	if p.BodyTemplate != nil {
		r.BodyTemplate = *p.BodyTemplate
	}
	return r
}
