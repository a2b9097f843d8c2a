// internal/app/resolver.go
package app

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"time"

	"case_reminder_engine/internal/domain/notification"
)

// MissingValue replaces template placeholders that have no variable.
const MissingValue = "not specified"

var ErrRuleNotFound = errors.New("trigger rule not found")

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)\}`)

// Tuple is one resolved (channel, priority, dedup key, rendered text) emission.
type Tuple struct {
	RuleID   string
	Channel  notification.Channel
	Priority notification.Priority
	DedupKey string
	Subject  string
	Body     string
	Delay    time.Duration
}

// RuleResolver maps occurrences onto channels using trigger rules and recipient preferences.
type RuleResolver struct {
	rules map[string]notification.Rule
	prefs *PreferenceService
}

func NewRuleResolver(rules []notification.Rule, prefs *PreferenceService) *RuleResolver {
	r := &RuleResolver{rules: make(map[string]notification.Rule, len(rules)), prefs: prefs}
	for _, rule := range rules {
		r.rules[rule.ID] = rule
	}
	return r
}

// Rules returns all rules ordered by id.
func (r *RuleResolver) Rules() []notification.Rule {
	out := make([]notification.Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateRule applies a patch; the change is seen by the next Resolve call.
func (r *RuleResolver) UpdateRule(id string, patch notification.RulePatch) (notification.Rule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return notification.Rule{}, ErrRuleNotFound
	}
	rule = patch.Apply(rule)
	r.rules[id] = rule
	return rule, nil
}

// HasRules reports whether any rule, enabled or not, exists for the category.
func (r *RuleResolver) HasRules(c notification.Category) bool {
	for _, rule := range r.rules {
		if rule.Category == c {
			return true
		}
	}
	return false
}

// Resolve turns an occurrence into zero or more tuples.
func (r *RuleResolver) Resolve(occ notification.Occurrence) []Tuple {
	var out []Tuple
	tiers := r.prefs.PriorityChannels(occ.RecipientID, occ.Audience)
	for _, rule := range r.Rules() {
		if !rule.Enabled || rule.Category != occ.Category {
			continue
		}
		if rule.Guard != nil && !rule.Guard(occ) {
			continue
		}
		priority := rule.Priority
		if occ.Priority != "" {
			priority = occ.Priority
		}
		subject := Interpolate(rule.SubjectTemplate, occ.Vars)
		body := Interpolate(rule.BodyTemplate, occ.Vars)
		for _, ch := range rule.Channels {
			if !tiers.Allows(priority, ch) {
				continue
			}
			pref := r.prefs.Get(occ.RecipientID, ch)
			if !pref.Enabled || !pref.Permits(occ.Category) {
				continue
			}
			out = append(out, Tuple{
				RuleID:   rule.ID,
				Channel:  ch,
				Priority: priority,
				DedupKey: RecordDedupKey(occ.DedupKey, occ.RecipientID, ch),
				Subject:  subject,
				Body:     body,
				Delay:    rule.Delay,
			})
		}
	}
	return out
}

// RecordDedupKey scopes an occurrence key to one recipient and channel.
func RecordDedupKey(base, recipientID string, ch notification.Channel) string {
	return base + "|" + recipientID + "|" + string(ch)
}

// OccurrenceKey strips the recipient and channel suffix from a record's dedup key,
// so the channel copies of one occurrence share a key.
func OccurrenceKey(rec *notification.Record) string {
	return strings.TrimSuffix(rec.DedupKey, "|"+rec.RecipientID+"|"+string(rec.Channel))
}

// Interpolate replaces {name} tokens from vars; unknown or empty names become MissingValue.
func Interpolate(tmpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(tok string) string {
		name := tok[1 : len(tok)-1]
		if v, ok := vars[name]; ok && v != "" {
			return v
		}
		return MissingValue
	})
}
