package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"

	"github.com/lib/pq" // For pq.Array
)

// PostgresCaseSource reads the open case items for a tick and resolves contacts.
type PostgresCaseSource struct {
	db *sql.DB
	// CalendarHorizon bounds how far ahead calendar events are loaded.
	CalendarHorizon time.Duration
}

func NewPostgresCaseSource(db *sql.DB, calendarHorizon time.Duration) *PostgresCaseSource {
	return &PostgresCaseSource{db: db, CalendarHorizon: calendarHorizon}
}

func (s *PostgresCaseSource) Snapshot(ctx context.Context, now time.Time) (*casefile.Snapshot, error) {
	snap := &casefile.Snapshot{}
	var err error

	if snap.Deadlines, err = s.deadlines(ctx); err != nil {
		return nil, err
	}
	if snap.CourtDates, err = s.courtDates(ctx, now); err != nil {
		return nil, err
	}
	if snap.FollowUps, err = s.followUps(ctx); err != nil {
		return nil, err
	}
	if snap.CalendarEvents, err = s.calendarEvents(ctx, now); err != nil {
		return nil, err
	}
	if snap.Invoices, err = s.invoices(ctx); err != nil {
		return nil, err
	}
	if snap.DocumentRequests, err = s.documentRequests(ctx); err != nil {
		return nil, err
	}
	if snap.DocumentActions, err = s.documentActions(ctx); err != nil {
		return nil, err
	}
	if snap.Matters, err = s.matters(ctx, referencedMatters(snap)); err != nil {
		return nil, err
	}
	if snap.Lawyers, snap.Clients, err = s.contacts(ctx); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *PostgresCaseSource) Contact(ctx context.Context, id string) (*casefile.Contact, error) {
	query := `SELECT id, audience, name, email, phone, telegram_chat_id, push_token FROM contacts WHERE id = $1`
	c := casefile.Contact{}
	var audience string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &audience, &c.Name, &c.Email, &c.Phone, &c.TelegramChatID, &c.PushToken)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, casefile.ErrContactNotFound
		}
		return nil, fmt.Errorf("error getting contact by ID: %w", err)
	}
	c.Audience = notification.Audience(audience)
	return &c, nil
}

func (s *PostgresCaseSource) deadlines(ctx context.Context) ([]casefile.Deadline, error) {
	query := `SELECT id, matter_id, title, due_at, assigned_to, client_id, completed
               FROM deadlines WHERE completed = FALSE ORDER BY due_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing deadlines: %w", err)
	}
	defer rows.Close()

	var out []casefile.Deadline
	for rows.Next() {
		var d casefile.Deadline
		if err := rows.Scan(&d.ID, &d.MatterID, &d.Title, &d.DueAt, &d.AssignedTo, &d.ClientID, &d.Completed); err != nil {
			return nil, fmt.Errorf("error scanning deadline: %w", err)
		}
		out = append(out, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deadline rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) courtDates(ctx context.Context, now time.Time) ([]casefile.CourtDate, error) {
	query := `SELECT id, matter_id, case_number, title, court, starts_at, lawyer_id, client_id
               FROM court_dates WHERE starts_at >= $1 ORDER BY starts_at`
	rows, err := s.db.QueryContext(ctx, query, startOfDay(now))
	if err != nil {
		return nil, fmt.Errorf("error listing court dates: %w", err)
	}
	defer rows.Close()

	var out []casefile.CourtDate
	for rows.Next() {
		var c casefile.CourtDate
		if err := rows.Scan(&c.ID, &c.MatterID, &c.CaseNumber, &c.Title, &c.Court, &c.StartsAt, &c.LawyerID, &c.ClientID); err != nil {
			return nil, fmt.Errorf("error scanning court date: %w", err)
		}
		out = append(out, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating court date rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) followUps(ctx context.Context) ([]casefile.FollowUp, error) {
	query := `SELECT id, matter_id, title, due_at, owner_id, done
               FROM follow_ups WHERE done = FALSE ORDER BY due_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing follow-ups: %w", err)
	}
	defer rows.Close()

	var out []casefile.FollowUp
	for rows.Next() {
		var f casefile.FollowUp
		if err := rows.Scan(&f.ID, &f.MatterID, &f.Title, &f.DueAt, &f.OwnerID, &f.Done); err != nil {
			return nil, fmt.Errorf("error scanning follow-up: %w", err)
		}
		out = append(out, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating follow-up rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) calendarEvents(ctx context.Context, now time.Time) ([]casefile.CalendarEvent, error) {
	query := `SELECT id, owner_id, title, starts_at, ends_at, all_day
               FROM calendar_events WHERE ends_at > $1 AND starts_at < $2 ORDER BY starts_at, id`
	rows, err := s.db.QueryContext(ctx, query, startOfDay(now), now.Add(s.CalendarHorizon))
	if err != nil {
		return nil, fmt.Errorf("error listing calendar events: %w", err)
	}
	defer rows.Close()

	var out []casefile.CalendarEvent
	for rows.Next() {
		var e casefile.CalendarEvent
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.StartsAt, &e.EndsAt, &e.AllDay); err != nil {
			return nil, fmt.Errorf("error scanning calendar event: %w", err)
		}
		out = append(out, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar event rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) invoices(ctx context.Context) ([]casefile.Invoice, error) {
	query := `SELECT id, matter_id, client_id, number, amount, currency, due_at, paid
               FROM invoices WHERE paid = FALSE ORDER BY due_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing invoices: %w", err)
	}
	defer rows.Close()

	var out []casefile.Invoice
	for rows.Next() {
		var inv casefile.Invoice
		if err := rows.Scan(&inv.ID, &inv.MatterID, &inv.ClientID, &inv.Number, &inv.Amount, &inv.Currency, &inv.DueAt, &inv.Paid); err != nil {
			return nil, fmt.Errorf("error scanning invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoice rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) documentRequests(ctx context.Context) ([]casefile.DocumentRequest, error) {
	query := `SELECT id, matter_id, client_id, title, requested_at, completed
               FROM document_requests WHERE completed = FALSE ORDER BY requested_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing document requests: %w", err)
	}
	defer rows.Close()

	var out []casefile.DocumentRequest
	for rows.Next() {
		var d casefile.DocumentRequest
		if err := rows.Scan(&d.ID, &d.MatterID, &d.ClientID, &d.Title, &d.RequestedAt, &d.Completed); err != nil {
			return nil, fmt.Errorf("error scanning document request: %w", err)
		}
		out = append(out, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document request rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) documentActions(ctx context.Context) ([]casefile.DocumentAction, error) {
	query := `SELECT id, matter_id, lawyer_id, title, action, due_at, completed
               FROM document_actions WHERE completed = FALSE ORDER BY due_at`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing document actions: %w", err)
	}
	defer rows.Close()

	var out []casefile.DocumentAction
	for rows.Next() {
		var d casefile.DocumentAction
		if err := rows.Scan(&d.ID, &d.MatterID, &d.LawyerID, &d.Title, &d.Action, &d.DueAt, &d.Completed); err != nil {
			return nil, fmt.Errorf("error scanning document action: %w", err)
		}
		out = append(out, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document action rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) matters(ctx context.Context, ids []string) ([]casefile.Matter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, title, client_id, lead_lawyer_id FROM matters WHERE id = ANY($1)`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("error listing matters by IDs: %w", err)
	}
	defer rows.Close()

	var out []casefile.Matter
	for rows.Next() {
		var m casefile.Matter
		if err := rows.Scan(&m.ID, &m.Title, &m.ClientID, &m.LeadLawyerID); err != nil {
			return nil, fmt.Errorf("error scanning matter: %w", err)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matter rows: %w", err)
	}
	return out, nil
}

func (s *PostgresCaseSource) contacts(ctx context.Context) (lawyers, clients []casefile.Contact, err error) {
	query := `SELECT id, audience, name, email, phone, telegram_chat_id, push_token
               FROM contacts WHERE audience = ANY($1) ORDER BY id`
	audiences := []string{string(notification.AudienceLawyer), string(notification.AudienceClient)}
	rows, err := s.db.QueryContext(ctx, query, pq.Array(audiences))
	if err != nil {
		return nil, nil, fmt.Errorf("error listing contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c casefile.Contact
		var audience string
		if err := rows.Scan(&c.ID, &audience, &c.Name, &c.Email, &c.Phone, &c.TelegramChatID, &c.PushToken); err != nil {
			return nil, nil, fmt.Errorf("error scanning contact: %w", err)
		}
		c.Audience = notification.Audience(audience)
		if c.Audience == notification.AudienceLawyer {
			lawyers = append(lawyers, c)
		} else {
			clients = append(clients, c)
		}
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating contact rows: %w", err)
	}
	return lawyers, clients, nil
}

func referencedMatters(snap *casefile.Snapshot) []string {
	seen := map[string]struct{}{}
	add := func(id string) {
		if id != "" {
			seen[id] = struct{}{}
		}
	}
	for _, d := range snap.Deadlines {
		add(d.MatterID)
	}
	for _, c := range snap.CourtDates {
		add(c.MatterID)
	}
	for _, f := range snap.FollowUps {
		add(f.MatterID)
	}
	for _, i := range snap.Invoices {
		add(i.MatterID)
	}
	for _, d := range snap.DocumentRequests {
		add(d.MatterID)
	}
	for _, d := range snap.DocumentActions {
		add(d.MatterID)
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
