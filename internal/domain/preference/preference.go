// Package preference models per-recipient delivery preferences.
package preference

import (
	"case_reminder_engine/internal/domain/notification"
)

// Preference is the setting for one (recipient, channel) pair.
// A missing Preference means: enabled, immediate, no quiet hours, no event lists.
type Preference struct {
	RecipientID     string                  `json:"recipient_id"`
	Channel         notification.Channel    `json:"channel"`
	Enabled         bool                    `json:"enabled"`
	DigestFrequency notification.Frequency  `json:"digest_frequency"`
	QuietHoursStart string                  `json:"quiet_hours_start,omitempty"` // "HH:MM"
	QuietHoursEnd   string                  `json:"quiet_hours_end,omitempty"`   // "HH:MM", may wrap past midnight
	Timezone        string                  `json:"timezone,omitempty"`
	AllowEvents     []notification.Category `json:"allow_events,omitempty"`
	DenyEvents      []notification.Category `json:"deny_events,omitempty"`
}

// Default returns the permissive preference used when none is stored.
func Default(recipientID string, ch notification.Channel) Preference {
	return Preference{
		RecipientID:     recipientID,
		Channel:         ch,
		Enabled:         true,
		DigestFrequency: notification.FrequencyImmediate,
	}
}

// Permits reports whether the category passes the allow and deny lists.
func (p Preference) Permits(c notification.Category) bool {
	for _, d := range p.DenyEvents {
		if d == c {
			return false
		}
	}
	if len(p.AllowEvents) == 0 {
		return true
	}
	for _, a := range p.AllowEvents {
		if a == c {
			return true
		}
	}
	return false
}

// HasQuietHours reports whether both bounds are configured.
func (p Preference) HasQuietHours() bool {
	return p.QuietHoursStart != "" && p.QuietHoursEnd != ""
}

// Batches reports whether non-urgent notifications on this channel go to a digest.
func (p Preference) Batches() bool {
	return p.DigestFrequency == notification.FrequencyDaily || p.DigestFrequency == notification.FrequencyWeekly
}

// PriorityChannels maps a priority tier to the ordered channels a recipient accepts for it.
type PriorityChannels map[notification.Priority][]notification.Channel

// DefaultPriorityChannels returns the tier mapping for an audience.
func DefaultPriorityChannels(a notification.Audience) PriorityChannels {
	if a == notification.AudienceClient {
		return PriorityChannels{
			notification.PriorityImmediate: {notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPush, notification.ChannelPortal},
			notification.PriorityCritical:  {notification.ChannelEmail, notification.ChannelSMS, notification.ChannelPush, notification.ChannelPortal},
			notification.PriorityHigh:      {notification.ChannelEmail, notification.ChannelPortal},
			notification.PriorityNormal:    {notification.ChannelEmail, notification.ChannelPortal},
			notification.PriorityLow:       {notification.ChannelPortal},
			notification.PriorityDigest:    {notification.ChannelEmail, notification.ChannelPortal},
		}
	}
	return PriorityChannels{
		notification.PriorityCritical:  {notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
		notification.PriorityImmediate: {notification.ChannelEmail, notification.ChannelPush, notification.ChannelChat, notification.ChannelInApp},
		notification.PriorityHigh:      {notification.ChannelEmail, notification.ChannelPush, notification.ChannelInApp},
		notification.PriorityNormal:    {notification.ChannelEmail, notification.ChannelInApp},
		notification.PriorityLow:       {notification.ChannelInApp},
		notification.PriorityDigest:    {notification.ChannelInApp},
	}
}

// Allows reports whether the tier for p includes ch.
func (pc PriorityChannels) Allows(p notification.Priority, ch notification.Channel) bool {
	for _, c := range pc[p] {
		if c == ch {
			return true
		}
	}
	return false
}

// Recipient groups all stored settings of one recipient.
type Recipient struct {
	RecipientID      string                              `json:"recipient_id"`
	Audience         notification.Audience               `json:"audience,omitempty"`
	DefaultChannel   notification.Channel                `json:"default_channel,omitempty"`
	PriorityChannels PriorityChannels                    `json:"priority_channels,omitempty"`
	Channels         map[notification.Channel]Preference `json:"channels,omitempty"`
}
