// internal/app/preference_service.go
package app

import (
	"fmt"
	"sort"
	"time"

	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/domain/preference"
)

// PreferenceService keeps recipient preferences in memory.
// Callers hold the engine lock; changes are visible to the next resolver lookup.
type PreferenceService struct {
	recipients map[string]*preference.Recipient
	locations  map[string]zoneLookup
}

type zoneLookup struct {
	loc *time.Location
	err error
}

func NewPreferenceService() *PreferenceService {
	return &PreferenceService{
		recipients: make(map[string]*preference.Recipient),
		locations:  make(map[string]zoneLookup),
	}
}

func (s *PreferenceService) recipient(id string) *preference.Recipient {
	r, ok := s.recipients[id]
	if !ok {
		r = &preference.Recipient{RecipientID: id}
		s.recipients[id] = r
	}
	return r
}

// Get returns the stored preference or the permissive default.
func (s *PreferenceService) Get(recipientID string, ch notification.Channel) preference.Preference {
	if r, ok := s.recipients[recipientID]; ok {
		if p, ok := r.Channels[ch]; ok {
			return p
		}
	}
	return preference.Default(recipientID, ch)
}

// List returns every stored channel preference of a recipient, ordered by channel.
func (s *PreferenceService) List(recipientID string) []preference.Preference {
	r, ok := s.recipients[recipientID]
	if !ok {
		return nil
	}
	out := make([]preference.Preference, 0, len(r.Channels))
	for _, p := range r.Channels {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Channel < out[j].Channel })
	return out
}

// Update validates and stores a channel preference.
func (s *PreferenceService) Update(p preference.Preference) error {
	if p.RecipientID == "" {
		return fmt.Errorf("preference has no recipient id")
	}
	switch p.DigestFrequency {
	case "":
		p.DigestFrequency = notification.FrequencyImmediate
	case notification.FrequencyImmediate, notification.FrequencyDaily, notification.FrequencyWeekly:
	default:
		return fmt.Errorf("unknown digest frequency %q", p.DigestFrequency)
	}
	r := s.recipient(p.RecipientID)
	if r.Channels == nil {
		r.Channels = make(map[notification.Channel]preference.Preference)
	}
	r.Channels[p.Channel] = p
	return nil
}

// SetPriorityChannels overrides the channel set of one priority tier for a recipient.
func (s *PreferenceService) SetPriorityChannels(recipientID string, p notification.Priority, channels []notification.Channel) {
	r := s.recipient(recipientID)
	if r.PriorityChannels == nil {
		r.PriorityChannels = make(preference.PriorityChannels)
	}
	r.PriorityChannels[p] = append([]notification.Channel(nil), channels...)
}

// SetDefaultChannel sets where digests for the recipient are delivered.
func (s *PreferenceService) SetDefaultChannel(recipientID string, ch notification.Channel) {
	s.recipient(recipientID).DefaultChannel = ch
}

// PriorityChannels merges recipient overrides over the audience defaults.
func (s *PreferenceService) PriorityChannels(recipientID string, a notification.Audience) preference.PriorityChannels {
	out := preference.DefaultPriorityChannels(a)
	if r, ok := s.recipients[recipientID]; ok {
		for p, chs := range r.PriorityChannels {
			out[p] = chs
		}
	}
	return out
}

// DefaultChannel is the digest delivery channel of a recipient (email unless overridden).
func (s *PreferenceService) DefaultChannel(recipientID string) notification.Channel {
	if r, ok := s.recipients[recipientID]; ok && r.DefaultChannel != "" {
		return r.DefaultChannel
	}
	return notification.ChannelEmail
}

// Location resolves the timezone of a preference, falling back when it is empty or invalid.
// Lookups are cached per zone name.
func (s *PreferenceService) Location(p preference.Preference, fallback *time.Location) (*time.Location, error) {
	if p.Timezone == "" {
		return fallback, nil
	}
	z, ok := s.locations[p.Timezone]
	if !ok {
		z.loc, z.err = time.LoadLocation(p.Timezone)
		s.locations[p.Timezone] = z
	}
	if z.err != nil {
		return fallback, fmt.Errorf("invalid timezone %q: %w", p.Timezone, z.err)
	}
	return z.loc, nil
}

// Export returns every stored recipient, ordered by id.
func (s *PreferenceService) Export() []preference.Recipient {
	out := make([]preference.Recipient, 0, len(s.recipients))
	for _, r := range s.recipients {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out
}

// Import replaces the stored recipients.
func (s *PreferenceService) Import(recipients []preference.Recipient) {
	s.recipients = make(map[string]*preference.Recipient, len(recipients))
	for i := range recipients {
		r := recipients[i]
		s.recipients[r.RecipientID] = &r
	}
}
