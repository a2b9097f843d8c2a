// internal/app/evaluator.go
package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"
)

const displayTimeLayout = "Mon Jan 2 15:04"

// EvaluatorConfig holds the thresholds and look-ahead windows of the event scan.
type EvaluatorConfig struct {
	DeadlineThresholds   []int // minutes before due
	CourtDateThresholds  []int // minutes before start
	FollowUpWindow       time.Duration
	ConflictWindow       time.Duration
	DocumentActionWindow time.Duration
	InvoiceDueWindow     time.Duration
	Location             *time.Location
}

// DefaultEvaluatorConfig returns the stock thresholds and windows.
func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		DeadlineThresholds:   []int{1440, 180, 60},
		CourtDateThresholds:  []int{10080, 1440, 120},
		FollowUpWindow:       24 * time.Hour,
		ConflictWindow:       7 * 24 * time.Hour,
		DocumentActionWindow: 72 * time.Hour,
		InvoiceDueWindow:     72 * time.Hour,
		Location:             time.Local,
	}
}

// Evaluator turns a case snapshot into candidate occurrences.
type Evaluator struct {
	cfg EvaluatorConfig
}

func NewEvaluator(cfg EvaluatorConfig) *Evaluator {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Evaluator{cfg: cfg}
}

type snapshotIndex struct {
	matters map[string]casefile.Matter
	names   map[string]string
}

func indexSnapshot(snap *casefile.Snapshot) snapshotIndex {
	idx := snapshotIndex{
		matters: make(map[string]casefile.Matter, len(snap.Matters)),
		names:   make(map[string]string, len(snap.Lawyers)+len(snap.Clients)),
	}
	for _, m := range snap.Matters {
		idx.matters[m.ID] = m
	}
	for _, c := range snap.Lawyers {
		idx.names[c.ID] = c.Name
	}
	for _, c := range snap.Clients {
		idx.names[c.ID] = c.Name
	}
	return idx
}

func (e *Evaluator) display(t time.Time) string {
	return t.In(e.cfg.Location).Format(displayTimeLayout)
}

// Evaluate scans the snapshot and returns every occurrence due at now.
// Dedup is not applied here; keys are stable so the guard can filter repeats.
func (e *Evaluator) Evaluate(snap *casefile.Snapshot, now time.Time) []notification.Occurrence {
	idx := indexSnapshot(snap)
	var out []notification.Occurrence
	out = append(out, e.deadlines(snap, idx, now)...)
	out = append(out, e.courtDates(snap, idx, now)...)
	out = append(out, e.followUps(snap, idx, now)...)
	out = append(out, e.conflicts(snap, now)...)
	out = append(out, e.documentActions(snap, idx, now)...)
	out = append(out, e.invoices(snap, idx, now)...)
	out = append(out, e.documentRequests(snap, idx, now)...)
	return out
}

func (e *Evaluator) deadlines(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	for _, d := range snap.Deadlines {
		if d.Completed || d.AssignedTo == "" {
			continue
		}
		vars := map[string]string{
			"deadline_title": d.Title,
			"matter_title":   idx.matters[d.MatterID].Title,
			"due_at":         e.display(d.DueAt),
			"time_until":     FormatTimeUntil(now, d.DueAt),
			"name":           idx.names[d.AssignedTo],
		}
		if d.DueAt.Before(now) {
			out = append(out, notification.Occurrence{
				Category:    notification.CategoryDeadlineOverdue,
				Audience:    notification.AudienceLawyer,
				RecipientID: d.AssignedTo,
				Priority:    notification.PriorityCritical,
				DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryDeadlineOverdue, d.ID),
				MatterID:    d.MatterID,
				DeadlineID:  d.ID,
				Vars:        vars,
			})
			continue
		}
		threshold, ok := SelectThreshold(MinutesUntil(now, d.DueAt), e.cfg.DeadlineThresholds)
		if !ok {
			continue
		}
		vars["threshold_minutes"] = strconv.Itoa(threshold)
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryDeadlineApproaching,
			Audience:    notification.AudienceLawyer,
			RecipientID: d.AssignedTo,
			Priority:    ThresholdPriority(threshold),
			DedupKey:    fmt.Sprintf("%s:%s:%d", notification.CategoryDeadlineApproaching, d.ID, threshold),
			MatterID:    d.MatterID,
			DeadlineID:  d.ID,
			Vars:        vars,
		})
	}
	return out
}

func (e *Evaluator) courtDates(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	for _, c := range snap.CourtDates {
		if c.StartsAt.Before(now) {
			continue
		}
		threshold, ok := SelectThreshold(MinutesUntil(now, c.StartsAt), e.cfg.CourtDateThresholds)
		if !ok {
			continue
		}
		vars := map[string]string{
			"court_title":       c.Title,
			"case_number":       c.CaseNumber,
			"court":             c.Court,
			"starts_at":         e.display(c.StartsAt),
			"time_until":        FormatTimeUntil(now, c.StartsAt),
			"matter_title":      idx.matters[c.MatterID].Title,
			"threshold_minutes": strconv.Itoa(threshold),
		}
		if c.LawyerID != "" {
			category := notification.CategoryCourtDateUpcoming
			if threshold == minutesPerDay {
				category = notification.CategoryCourtDateTomorrow
			}
			out = append(out, notification.Occurrence{
				Category:    category,
				Audience:    notification.AudienceLawyer,
				RecipientID: c.LawyerID,
				Priority:    ThresholdPriority(threshold),
				DedupKey:    fmt.Sprintf("%s:%s:%d", category, c.ID, threshold),
				MatterID:    c.MatterID,
				CaseID:      c.CaseNumber,
				CourtDateID: c.ID,
				Vars:        withName(vars, idx.names[c.LawyerID]),
			})
		}
		if c.ClientID != "" && threshold <= minutesPerDay {
			clientVars := withName(vars, idx.names[c.ClientID])
			clientVars["client_name"] = idx.names[c.ClientID]
			out = append(out, notification.Occurrence{
				Category:    notification.CategoryClientCourtDateReminder,
				Audience:    notification.AudienceClient,
				RecipientID: c.ClientID,
				Priority:    clientPriority(threshold),
				DedupKey:    fmt.Sprintf("%s:%s:%d", notification.CategoryClientCourtDateReminder, c.ID, threshold),
				MatterID:    c.MatterID,
				CaseID:      c.CaseNumber,
				CourtDateID: c.ID,
				Vars:        clientVars,
			})
		}
	}
	return out
}

// clientPriority maps threshold urgency onto the client priority scale.
func clientPriority(thresholdMinutes int) notification.Priority {
	p := ThresholdPriority(thresholdMinutes)
	if p == notification.PriorityCritical {
		return notification.PriorityImmediate
	}
	return p
}

func withName(vars map[string]string, name string) map[string]string {
	out := make(map[string]string, len(vars)+2)
	for k, v := range vars {
		out[k] = v
	}
	out["name"] = name
	return out
}

func (e *Evaluator) followUps(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	horizon := now.Add(e.cfg.FollowUpWindow)
	for _, f := range snap.FollowUps {
		if f.Done || f.OwnerID == "" || f.DueAt.Before(now) || f.DueAt.After(horizon) {
			continue
		}
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryFollowUpDue,
			Audience:    notification.AudienceLawyer,
			RecipientID: f.OwnerID,
			DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryFollowUpDue, f.ID),
			MatterID:    f.MatterID,
			Vars: map[string]string{
				"follow_up_title": f.Title,
				"matter_title":    idx.matters[f.MatterID].Title,
				"due_at":          e.display(f.DueAt),
				"time_until":      FormatTimeUntil(now, f.DueAt),
				"name":            idx.names[f.OwnerID],
			},
		})
	}
	return out
}

// conflicts flags every pair of overlapping timed events on the same calendar.
func (e *Evaluator) conflicts(snap *casefile.Snapshot, now time.Time) []notification.Occurrence {
	horizon := now.Add(e.cfg.ConflictWindow)
	byOwner := make(map[string][]casefile.CalendarEvent)
	for _, ev := range snap.CalendarEvents {
		if ev.AllDay || ev.OwnerID == "" || !ev.EndsAt.After(now) || !ev.StartsAt.Before(horizon) {
			continue
		}
		byOwner[ev.OwnerID] = append(byOwner[ev.OwnerID], ev)
	}
	owners := make([]string, 0, len(byOwner))
	for owner := range byOwner {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	var out []notification.Occurrence
	for _, owner := range owners {
		events := byOwner[owner]
		sort.Slice(events, func(i, j int) bool {
			if events[i].StartsAt.Equal(events[j].StartsAt) {
				return events[i].ID < events[j].ID
			}
			return events[i].StartsAt.Before(events[j].StartsAt)
		})
		for i := 0; i < len(events); i++ {
			for j := i + 1; j < len(events); j++ {
				a, b := events[i], events[j]
				if !Overlaps(a.StartsAt, a.EndsAt, b.StartsAt, b.EndsAt) {
					continue
				}
				out = append(out, notification.Occurrence{
					Category:    notification.CategoryCalendarConflict,
					Audience:    notification.AudienceLawyer,
					RecipientID: owner,
					DedupKey:    ConflictKey(a.ID, b.ID),
					Vars: map[string]string{
						"date":         a.StartsAt.In(e.cfg.Location).Format("Mon Jan 2"),
						"first_title":  a.Title,
						"first_start":  a.StartsAt.In(e.cfg.Location).Format("15:04"),
						"first_end":    a.EndsAt.In(e.cfg.Location).Format("15:04"),
						"second_title": b.Title,
						"second_start": b.StartsAt.In(e.cfg.Location).Format("15:04"),
						"second_end":   b.EndsAt.In(e.cfg.Location).Format("15:04"),
					},
				})
			}
		}
	}
	return out
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictKey is order-independent in the two event ids.
func ConflictKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s:%s", notification.CategoryCalendarConflict, a, b)
}

func (e *Evaluator) documentActions(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	horizon := now.Add(e.cfg.DocumentActionWindow)
	for _, d := range snap.DocumentActions {
		if d.Completed || d.LawyerID == "" || d.DueAt.After(horizon) {
			continue
		}
		priority := notification.Priority("")
		if d.DueAt.Before(now) {
			priority = notification.PriorityHigh
		}
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryDocumentActionRequired,
			Audience:    notification.AudienceLawyer,
			RecipientID: d.LawyerID,
			Priority:    priority,
			DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryDocumentActionRequired, d.ID),
			MatterID:    d.MatterID,
			Vars: map[string]string{
				"document_title": d.Title,
				"action":         d.Action,
				"matter_title":   idx.matters[d.MatterID].Title,
				"due_at":         e.display(d.DueAt),
				"time_until":     FormatTimeUntil(now, d.DueAt),
				"name":           idx.names[d.LawyerID],
			},
		})
	}
	return out
}

func (e *Evaluator) invoices(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	horizon := now.Add(e.cfg.InvoiceDueWindow)
	for _, inv := range snap.Invoices {
		if inv.Paid || inv.ClientID == "" || inv.DueAt.After(horizon) {
			continue
		}
		category := notification.CategoryClientInvoiceDue
		if inv.DueAt.Before(now) {
			category = notification.CategoryClientInvoiceOverdue
		}
		out = append(out, notification.Occurrence{
			Category:    category,
			Audience:    notification.AudienceClient,
			RecipientID: inv.ClientID,
			DedupKey:    fmt.Sprintf("%s:%s", category, inv.ID),
			MatterID:    inv.MatterID,
			Vars: map[string]string{
				"client_name":    idx.names[inv.ClientID],
				"invoice_number": inv.Number,
				"amount":         strings.TrimSpace(fmt.Sprintf("%.2f %s", inv.Amount, inv.Currency)),
				"due_at":         e.display(inv.DueAt),
				"time_until":     FormatTimeUntil(now, inv.DueAt),
				"matter_title":   idx.matters[inv.MatterID].Title,
			},
		})
	}
	return out
}

func (e *Evaluator) documentRequests(snap *casefile.Snapshot, idx snapshotIndex, now time.Time) []notification.Occurrence {
	var out []notification.Occurrence
	for _, r := range snap.DocumentRequests {
		if r.Completed || r.ClientID == "" || r.RequestedAt.After(now) {
			continue
		}
		days := int(now.Sub(r.RequestedAt) / (24 * time.Hour))
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryClientDocumentRequest,
			Audience:    notification.AudienceClient,
			RecipientID: r.ClientID,
			DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryClientDocumentRequest, r.ID),
			MatterID:    r.MatterID,
			Vars: map[string]string{
				"client_name":      idx.names[r.ClientID],
				"document_title":   r.Title,
				"matter_title":     idx.matters[r.MatterID].Title,
				"days_outstanding": strconv.Itoa(days),
			},
		})
	}
	return out
}

// BuildBriefings returns one daily briefing occurrence per lawyer for the calendar day of now.
func (e *Evaluator) BuildBriefings(snap *casefile.Snapshot, now time.Time) []notification.Occurrence {
	local := now.In(e.cfg.Location)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, e.cfg.Location)
	dayEnd := dayStart.AddDate(0, 0, 1)
	dateKey := DateKey(local)

	var out []notification.Occurrence
	for _, lawyer := range snap.Lawyers {
		var items []string
		deadlinesToday, courtToday, overdue := 0, 0, 0
		for _, d := range snap.Deadlines {
			if d.Completed || d.AssignedTo != lawyer.ID {
				continue
			}
			switch {
			case d.DueAt.Before(now):
				overdue++
				items = append(items, fmt.Sprintf("OVERDUE %s (due %s)", d.Title, e.display(d.DueAt)))
			case d.DueAt.Before(dayEnd):
				deadlinesToday++
				items = append(items, fmt.Sprintf("Deadline %s at %s", d.Title, d.DueAt.In(e.cfg.Location).Format("15:04")))
			}
		}
		for _, c := range snap.CourtDates {
			if c.LawyerID != lawyer.ID || c.StartsAt.Before(dayStart) || !c.StartsAt.Before(dayEnd) {
				continue
			}
			courtToday++
			items = append(items, fmt.Sprintf("Court %s at %s, %s", c.Title, c.StartsAt.In(e.cfg.Location).Format("15:04"), c.Court))
		}
		for _, f := range snap.FollowUps {
			if !f.Done && f.OwnerID == lawyer.ID && f.DueAt.Before(now) {
				overdue++
				items = append(items, fmt.Sprintf("OVERDUE follow-up %s", f.Title))
			}
		}
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryDailyBriefing,
			Audience:    notification.AudienceLawyer,
			RecipientID: lawyer.ID,
			DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryDailyBriefing, dateKey),
			Vars: map[string]string{
				"name":              lawyer.Name,
				"date":              dateKey,
				"deadlines_today":   strconv.Itoa(deadlinesToday),
				"court_dates_today": strconv.Itoa(courtToday),
				"overdue":           strconv.Itoa(overdue),
				"items":             bulletList(items),
			},
		})
	}
	return out
}

// BuildWeeklySummaries returns one weekly summary occurrence per lawyer covering the next 7 days.
func (e *Evaluator) BuildWeeklySummaries(snap *casefile.Snapshot, now time.Time) []notification.Occurrence {
	horizon := now.Add(7 * 24 * time.Hour)
	dateKey := DateKey(now.In(e.cfg.Location))

	var out []notification.Occurrence
	for _, lawyer := range snap.Lawyers {
		var items []string
		deadlines, courts, overdue := 0, 0, 0
		for _, d := range snap.Deadlines {
			if d.Completed || d.AssignedTo != lawyer.ID {
				continue
			}
			if d.DueAt.Before(now) {
				overdue++
				continue
			}
			if d.DueAt.Before(horizon) {
				deadlines++
				items = append(items, fmt.Sprintf("Deadline %s, %s", d.Title, e.display(d.DueAt)))
			}
		}
		for _, c := range snap.CourtDates {
			if c.LawyerID == lawyer.ID && !c.StartsAt.Before(now) && c.StartsAt.Before(horizon) {
				courts++
				items = append(items, fmt.Sprintf("Court %s, %s", c.Title, e.display(c.StartsAt)))
			}
		}
		out = append(out, notification.Occurrence{
			Category:    notification.CategoryWeeklySummary,
			Audience:    notification.AudienceLawyer,
			RecipientID: lawyer.ID,
			DedupKey:    fmt.Sprintf("%s:%s", notification.CategoryWeeklySummary, dateKey),
			Vars: map[string]string{
				"name":             lawyer.Name,
				"date":             dateKey,
				"deadlines_week":   strconv.Itoa(deadlines),
				"court_dates_week": strconv.Itoa(courts),
				"overdue":          strconv.Itoa(overdue),
				"items":            bulletList(items),
			},
		})
	}
	return out
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "Nothing scheduled."
	}
	return "- " + strings.Join(items, "\n- ")
}
