// internal/app/engine.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/domain/preference"
	"case_reminder_engine/internal/infra/metrics"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	ErrRecordNotFound     = errors.New("notification record not found")
	ErrRecordNotFailed    = errors.New("notification record is not in failed status")
	ErrRecordNotDelivered = errors.New("notification record has not been sent yet")
)

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	Location      *time.Location
	MaxRetries    int
	BaseBackoff   time.Duration
	MaxBackoff    time.Duration
	RatePerMinute int
	RateDeferral  time.Duration
	SnapshotCap   int // most recent dedup entries kept per map in the runtime snapshot
	Evaluator     EvaluatorConfig
	Rules         []notification.Rule
}

// Deps are the collaborators injected into the engine.
type Deps struct {
	Source  casefile.Source
	Senders []notification.Sender
	Store   notification.Store
	Audit   notification.AuditSink
	Now     func() time.Time
	Logger  *logrus.Entry
}

// RecordFilter narrows Records. Zero fields match everything.
type RecordFilter struct {
	Status      notification.Status
	RecipientID string
	Category    notification.Category
	Limit       int
}

// Engine owns all notification state. Every exported method serializes on one mutex,
// so cron jobs and control-surface calls never mutate state in parallel.
type Engine struct {
	mu sync.Mutex

	source casefile.Source
	store  notification.Store
	now    func() time.Time
	logger *logrus.Entry
	opts   Options

	audit      *auditLog
	evaluator  *Evaluator
	prefs      *PreferenceService
	resolver   *RuleResolver
	dedup      *DedupGuard
	digests    *DigestAggregator
	dispatcher *Dispatcher

	records map[string]*notification.Record
	order   []string

	lastBriefingDateKey string
	lastWeeklyDateKey   string
	loggedConfigErrors  map[string]bool
}

func NewEngine(deps Deps, opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.SnapshotCap <= 0 {
		opts.SnapshotCap = 500
	}
	if opts.Evaluator.DeadlineThresholds == nil {
		loc := opts.Location
		opts.Evaluator = DefaultEvaluatorConfig()
		opts.Evaluator.Location = loc
	}
	if opts.Evaluator.Location == nil {
		opts.Evaluator.Location = opts.Location
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	logger := deps.Logger.WithField("component", "engine")

	e := &Engine{
		source:             deps.Source,
		store:              deps.Store,
		now:                deps.Now,
		logger:             logger,
		opts:               opts,
		audit:              &auditLog{sink: deps.Audit, logger: logger},
		evaluator:          NewEvaluator(opts.Evaluator),
		prefs:              NewPreferenceService(),
		dedup:              NewDedupGuard(),
		digests:            NewDigestAggregator(),
		records:            make(map[string]*notification.Record),
		loggedConfigErrors: make(map[string]bool),
	}
	e.resolver = NewRuleResolver(opts.Rules, e.prefs)
	e.dispatcher = NewDispatcher(&e.mu, deps.Senders, DispatcherOptions{
		BaseBackoff:   opts.BaseBackoff,
		MaxBackoff:    opts.MaxBackoff,
		RatePerMinute: opts.RatePerMinute,
		RateDeferral:  opts.RateDeferral,
	}, deps.Now, e.audit, deps.Logger.WithField("component", "dispatcher"))
	return e
}

// unlock releases the mutex and flushes audit entries buffered while it was held.
func (e *Engine) unlock(ctx context.Context) {
	entries := e.audit.take()
	e.mu.Unlock()
	e.audit.write(ctx, entries)
}

// configError logs a configuration problem the first time it is seen.
func (e *Engine) configError(key string, err error) {
	if e.loggedConfigErrors[key] {
		return
	}
	e.loggedConfigErrors[key] = true
	e.logger.WithError(err).WithField("config_key", key).Warn("Ignoring invalid configuration")
}

// Tick runs one polling cycle: deferred flush, reaper, digest flush, event evaluation,
// dedup cleanup and snapshot persistence.
func (e *Engine) Tick(ctx context.Context) error {
	started := time.Now()
	defer func() { metrics.TickDuration.Observe(time.Since(started).Seconds()) }()

	now := e.now()
	snap, snapErr := e.source.Snapshot(ctx, now)
	if snapErr != nil {
		e.logger.WithError(snapErr).Error("Failed to fetch case snapshot, running housekeeping only")
	}

	e.mu.Lock()
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.flushDeferred(now)
	e.reap(now)
	e.flushDigests(now)
	created := 0
	if snap != nil {
		for _, occ := range e.evaluator.Evaluate(snap, now) {
			created += len(e.emit(occ, now))
		}
	}
	purged := e.dedup.Cleanup(now)
	sent, deferred := e.dedup.Len()
	e.unlock(ctx)

	e.logger.WithFields(logrus.Fields{
		"created":        created,
		"dedup_purged":   purged,
		"dedup_sent":     sent,
		"dedup_deferred": deferred,
	}).Debug("Tick completed")

	if err := e.Persist(ctx); err != nil {
		e.logger.WithError(err).Warn("Failed to persist runtime snapshot")
	}
	if snapErr != nil {
		return fmt.Errorf("failed to fetch case snapshot: %w", snapErr)
	}
	return nil
}

// emit resolves an occurrence and creates one record per surviving tuple.
// Check-and-mark on the dedup guard happen here with no I/O in between.
func (e *Engine) emit(occ notification.Occurrence, now time.Time) []*notification.Record {
	if !occ.Category.Valid() {
		e.configError("category:"+string(occ.Category), fmt.Errorf("unknown event category %q", occ.Category))
		return nil
	}
	var out []*notification.Record
	for _, t := range e.resolver.Resolve(occ) {
		if !e.dedup.ShouldFire(t.DedupKey, now) {
			metrics.DedupBlockedTotal.Inc()
			continue
		}
		rec := e.newRecord(occ, t, now)
		pref := e.prefs.Get(occ.RecipientID, t.Channel)

		switch {
		case t.Priority.Urgent():
			e.dedup.MarkSent(rec.DedupKey, now)
			e.auditRecord(rec, "notification_fired", now)
			e.dispatcher.Dispatch(rec)
		case pref.Batches() && t.Priority.Digestable():
			d := e.digests.Add(rec.RecipientID, rec.Audience, pref.DigestFrequency, rec.ID, now)
			rec.Status = notification.StatusBatched
			rec.DigestID = d.ID
			e.dedup.MarkSent(rec.DedupKey, now)
			e.auditRecord(rec, "notification_batched", now)
		case e.inQuietHours(pref, now):
			e.suppress(rec, now)
		case t.Delay > 0:
			rec.Status = notification.StatusScheduled
			rec.ScheduledAt = now.Add(t.Delay)
			e.dedup.MarkSent(rec.DedupKey, now)
			e.auditRecord(rec, "notification_scheduled", now)
		default:
			e.dedup.MarkSent(rec.DedupKey, now)
			e.auditRecord(rec, "notification_fired", now)
			e.dispatcher.Dispatch(rec)
		}
		out = append(out, rec)
	}
	return out
}

func (e *Engine) newRecord(occ notification.Occurrence, t Tuple, now time.Time) *notification.Record {
	rec := &notification.Record{
		ID:          uuid.NewString(),
		RecipientID: occ.RecipientID,
		Audience:    occ.Audience,
		Category:    occ.Category,
		Priority:    t.Priority,
		Channel:     t.Channel,
		Status:      notification.StatusPending,
		RuleID:      t.RuleID,
		Title:       t.Subject,
		Body:        t.Body,
		MatterID:    occ.MatterID,
		CaseID:      occ.CaseID,
		DeadlineID:  occ.DeadlineID,
		CourtDateID: occ.CourtDateID,
		DedupKey:    t.DedupKey,
		CreatedAt:   now,
		MaxRetries:  e.opts.MaxRetries,
	}
	e.track(rec)
	return rec
}

func (e *Engine) track(rec *notification.Record) {
	e.records[rec.ID] = rec
	e.order = append(e.order, rec.ID)
}

func (e *Engine) auditRecord(rec *notification.Record, category string, now time.Time) {
	e.audit.record(notification.AuditEntry{
		Category: category,
		Severity: notification.SeverityInfo,
		Details:  fmt.Sprintf("%s via %s for %s: %s", rec.Category, rec.Channel, rec.RecipientID, rec.Title),
		Metadata: recordMetadata(rec),
		At:       now,
	})
}

// inQuietHours evaluates the preference's window in its own timezone.
// Malformed values count as "not quiet".
func (e *Engine) inQuietHours(p preference.Preference, now time.Time) bool {
	if !p.HasQuietHours() {
		return false
	}
	loc, err := e.prefs.Location(p, e.opts.Location)
	if err != nil {
		e.configError("timezone:"+p.Timezone, err)
	}
	quiet, err := IsInQuietHours(now.In(loc), p.QuietHoursStart, p.QuietHoursEnd)
	if err != nil {
		e.configError("quiet_hours:"+p.QuietHoursStart+"-"+p.QuietHoursEnd, err)
		return false
	}
	return quiet
}

// flushDeferred sends suppressed records whose quiet window has ended.
func (e *Engine) flushDeferred(now time.Time) {
	for _, id := range e.order {
		rec := e.records[id]
		if rec.Status != notification.StatusSuppressed {
			continue
		}
		if e.inQuietHours(e.prefs.Get(rec.RecipientID, rec.Channel), now) {
			continue
		}
		rec.Status = notification.StatusPending
		e.dedup.Promote(rec.DedupKey, now)
		e.auditRecord(rec, "notification_flushed", now)
		e.dispatcher.Dispatch(rec)
	}
}

// suppress parks a non-urgent record until the recipient's quiet hours end.
func (e *Engine) suppress(rec *notification.Record, now time.Time) {
	rec.Status = notification.StatusSuppressed
	e.dedup.MarkDeferred(rec.DedupKey, now)
	metrics.SuppressedTotal.WithLabelValues(string(rec.Channel)).Inc()
	e.auditRecord(rec, "notification_deferred", now)
}

// reap moves due scheduled records back into the send path.
// Non-urgent records that come due inside quiet hours are suppressed instead.
func (e *Engine) reap(now time.Time) {
	for _, id := range e.order {
		rec := e.records[id]
		if rec.Status != notification.StatusScheduled || rec.ScheduledAt.After(now) {
			continue
		}
		if !rec.Priority.Urgent() && e.inQuietHours(e.prefs.Get(rec.RecipientID, rec.Channel), now) {
			e.suppress(rec, now)
			continue
		}
		rec.Status = notification.StatusPending
		e.dispatcher.Dispatch(rec)
	}
}

// flushDigests sends one composite record per due digest on the recipient's default channel.
func (e *Engine) flushDigests(now time.Time) {
	for _, d := range e.digests.Due(now) {
		var parts []*notification.Record
		for _, id := range d.RecordIDs {
			if rec, ok := e.records[id]; ok {
				parts = append(parts, rec)
			}
		}
		if len(parts) == 0 {
			e.digests.Close(d, notification.DigestFailed, "", now)
			continue
		}
		title, body := ComposeDigest(d.Frequency, parts)
		ch := e.prefs.DefaultChannel(d.RecipientID)
		composite := &notification.Record{
			ID:          uuid.NewString(),
			RecipientID: d.RecipientID,
			Audience:    d.Audience,
			Category:    notification.CategoryDigest,
			Priority:    notification.PriorityDigest,
			Channel:     ch,
			Status:      notification.StatusPending,
			Title:       title,
			Body:        body,
			DigestID:    d.ID,
			DedupKey:    RecordDedupKey(fmt.Sprintf("%s:%s", notification.CategoryDigest, d.ID), d.RecipientID, ch),
			CreatedAt:   now,
			MaxRetries:  e.opts.MaxRetries,
		}
		e.track(composite)
		for _, rec := range parts {
			rec.Status = notification.StatusSent
			rec.SentAt = now
		}
		e.digests.Close(d, notification.DigestSent, composite.ID, now)
		metrics.DigestFlushedTotal.WithLabelValues(string(d.Frequency)).Inc()

		if e.inQuietHours(e.prefs.Get(d.RecipientID, ch), now) {
			e.suppress(composite, now)
			continue
		}
		e.dedup.MarkSent(composite.DedupKey, now)
		e.auditRecord(composite, "digest_flushed", now)
		e.dispatcher.Dispatch(composite)
	}
}

// RunDailyBriefing emits the daily briefing for every lawyer.
// It returns nil records when the briefing already ran on this calendar day.
func (e *Engine) RunDailyBriefing(ctx context.Context) ([]notification.Record, error) {
	return e.runAnchored(ctx, &e.lastBriefingDateKey, e.evaluator.BuildBriefings, "daily briefing")
}

// RunWeeklySummary emits the weekly summary; same per-day guard as RunDailyBriefing.
func (e *Engine) RunWeeklySummary(ctx context.Context) ([]notification.Record, error) {
	return e.runAnchored(ctx, &e.lastWeeklyDateKey, e.evaluator.BuildWeeklySummaries, "weekly summary")
}

func (e *Engine) runAnchored(
	ctx context.Context,
	lastKey *string,
	build func(*casefile.Snapshot, time.Time) []notification.Occurrence,
	name string,
) ([]notification.Record, error) {
	now := e.now()
	dateKey := DateKey(now.In(e.opts.Location))

	e.mu.Lock()
	done := *lastKey == dateKey
	e.mu.Unlock()
	if done {
		e.logger.WithField("date", dateKey).Debugf("Skipping %s, already ran today", name)
		return nil, nil
	}

	snap, err := e.source.Snapshot(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch case snapshot for %s: %w", name, err)
	}

	e.mu.Lock()
	if err := ctx.Err(); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	if *lastKey == dateKey {
		e.mu.Unlock()
		return nil, nil
	}
	var out []notification.Record
	for _, occ := range build(snap, now) {
		for _, rec := range e.emit(occ, now) {
			out = append(out, rec.Clone())
		}
	}
	*lastKey = dateKey
	e.unlock(ctx)

	e.logger.WithFields(logrus.Fields{"date": dateKey, "records": len(out)}).Infof("Ran %s", name)
	if err := e.Persist(ctx); err != nil {
		e.logger.WithError(err).Warn("Failed to persist runtime snapshot")
	}
	if out == nil {
		out = []notification.Record{}
	}
	return out, nil
}

// Acknowledge stamps the record as seen by an operator. It does not change status.
func (e *Engine) Acknowledge(ctx context.Context, id string) (notification.Record, error) {
	e.mu.Lock()
	defer e.unlock(ctx)
	rec, ok := e.records[id]
	if !ok {
		return notification.Record{}, ErrRecordNotFound
	}
	if rec.AcknowledgedAt.IsZero() {
		rec.AcknowledgedAt = e.now()
	}
	return rec.Clone(), nil
}

// RetryFailed resets the retry budget of a failed record and sends it again.
func (e *Engine) RetryFailed(ctx context.Context, id string) (notification.Record, error) {
	e.mu.Lock()
	defer e.unlock(ctx)
	rec, ok := e.records[id]
	if !ok {
		return notification.Record{}, ErrRecordNotFound
	}
	if rec.Status != notification.StatusFailed {
		return rec.Clone(), ErrRecordNotFailed
	}
	now := e.now()
	rec.Status = notification.StatusPending
	rec.RetryCount = 0
	rec.Error = ""
	rec.FailedAt = time.Time{}
	e.auditRecord(rec, "notification_retried", now)
	e.dispatcher.Dispatch(rec)
	return rec.Clone(), nil
}

// MarkOpened records that the recipient opened a sent or delivered notification.
func (e *Engine) MarkOpened(ctx context.Context, id string) (notification.Record, error) {
	e.mu.Lock()
	defer e.unlock(ctx)
	rec, ok := e.records[id]
	if !ok {
		return notification.Record{}, ErrRecordNotFound
	}
	switch rec.Status {
	case notification.StatusOpened:
		return rec.Clone(), nil
	case notification.StatusSent, notification.StatusDelivered:
	default:
		return rec.Clone(), ErrRecordNotDelivered
	}
	now := e.now()
	if rec.DeliveredAt.IsZero() {
		rec.DeliveredAt = now
	}
	rec.OpenedAt = now
	rec.Status = notification.StatusOpened
	return rec.Clone(), nil
}

// Record returns a copy of one record.
func (e *Engine) Record(id string) (notification.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.records[id]
	if !ok {
		return notification.Record{}, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// Records returns copies of matching records in creation order.
func (e *Engine) Records(f RecordFilter) []notification.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []notification.Record
	for _, id := range e.order {
		rec := e.records[id]
		if f.Status != "" && rec.Status != f.Status {
			continue
		}
		if f.RecipientID != "" && rec.RecipientID != f.RecipientID {
			continue
		}
		if f.Category != "" && rec.Category != f.Category {
			continue
		}
		out = append(out, rec.Clone())
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out
}

// Digest returns a copy of a digest by id.
func (e *Engine) Digest(id string) (notification.Digest, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d, ok := e.digests.Get(id)
	if !ok {
		return notification.Digest{}, false
	}
	out := *d
	out.RecordIDs = append([]string(nil), d.RecordIDs...)
	return out, true
}

// Rules lists the trigger rules ordered by id.
func (e *Engine) Rules() []notification.Rule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resolver.Rules()
}

// UpdateRule patches a rule; the next tick resolves with the new values.
func (e *Engine) UpdateRule(ctx context.Context, id string, patch notification.RulePatch) (notification.Rule, error) {
	e.mu.Lock()
	rule, err := e.resolver.UpdateRule(id, patch)
	if err == nil {
		e.audit.record(notification.AuditEntry{
			Category: "rule_updated",
			Severity: notification.SeverityInfo,
			Details:  fmt.Sprintf("rule %s updated (enabled=%t)", rule.ID, rule.Enabled),
			Metadata: map[string]string{"rule_id": rule.ID, "category": string(rule.Category)},
			At:       e.now(),
		})
	}
	e.unlock(ctx)
	if err != nil {
		return notification.Rule{}, fmt.Errorf("failed to update rule %s: %w", id, err)
	}
	return rule, nil
}

// Preference returns the effective preference for a recipient and channel.
func (e *Engine) Preference(recipientID string, ch notification.Channel) preference.Preference {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.Get(recipientID, ch)
}

// Preferences returns the effective preference of every channel for a recipient.
func (e *Engine) Preferences(recipientID string) []preference.Preference {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]preference.Preference, 0, len(notification.AllChannels))
	for _, ch := range notification.AllChannels {
		out = append(out, e.prefs.Get(recipientID, ch))
	}
	return out
}

// UpdatePreference stores a channel preference and persists the preferences blob.
func (e *Engine) UpdatePreference(ctx context.Context, p preference.Preference) error {
	e.mu.Lock()
	err := e.prefs.Update(p)
	e.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to update preference: %w", err)
	}
	if err := e.persistPreferences(ctx); err != nil {
		e.logger.WithError(err).Warn("Failed to persist preferences")
	}
	return nil
}

// SetPriorityChannels overrides one priority tier for a recipient.
func (e *Engine) SetPriorityChannels(ctx context.Context, recipientID string, p notification.Priority, channels []notification.Channel) error {
	e.mu.Lock()
	e.prefs.SetPriorityChannels(recipientID, p, channels)
	e.mu.Unlock()
	if err := e.persistPreferences(ctx); err != nil {
		e.logger.WithError(err).Warn("Failed to persist preferences")
	}
	return nil
}

// SetDefaultChannel sets the digest delivery channel for a recipient.
func (e *Engine) SetDefaultChannel(ctx context.Context, recipientID string, ch notification.Channel) error {
	e.mu.Lock()
	e.prefs.SetDefaultChannel(recipientID, ch)
	e.mu.Unlock()
	if err := e.persistPreferences(ctx); err != nil {
		e.logger.WithError(err).Warn("Failed to persist preferences")
	}
	return nil
}

// Restore rehydrates preferences and runtime state. Call before the first tick.
// A missing key is not an error.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	now := e.now()

	prefData, err := e.store.Get(ctx, PreferencesStateKey)
	switch {
	case errors.Is(err, notification.ErrNotFound):
	case err != nil:
		return fmt.Errorf("failed to load preferences: %w", err)
	default:
		snap, err := DecodePreferencesSnapshot(prefData)
		if err != nil {
			return err
		}
		e.mu.Lock()
		e.prefs.Import(snap.Recipients)
		e.mu.Unlock()
	}

	runtimeData, err := e.store.Get(ctx, RuntimeStateKey)
	switch {
	case errors.Is(err, notification.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("failed to load runtime snapshot: %w", err)
	}
	snap, err := DecodeRuntimeSnapshot(runtimeData, now)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.dedup.Import(snap.SentDedupKeys, snap.DeferredDedupKeys, now)
	e.lastBriefingDateKey = snap.LastBriefingDateKey
	e.lastWeeklyDateKey = snap.LastWeeklySummaryDateKey
	sent, deferred := e.dedup.Len()
	e.mu.Unlock()

	e.logger.WithFields(logrus.Fields{
		"dedup_sent":     sent,
		"dedup_deferred": deferred,
		"last_briefing":  snap.LastBriefingDateKey,
		"last_weekly":    snap.LastWeeklySummaryDateKey,
	}).Info("Runtime state restored")
	return nil
}

// Persist writes the runtime snapshot. Failures are retried briefly and then returned;
// callers log them and carry on.
func (e *Engine) Persist(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	e.mu.Lock()
	sent, deferred := e.dedup.Export(e.opts.SnapshotCap)
	snap := RuntimeSnapshot{
		Version:                  runtimeSnapshotVersion,
		SavedAt:                  e.now(),
		LastBriefingDateKey:      e.lastBriefingDateKey,
		LastWeeklySummaryDateKey: e.lastWeeklyDateKey,
		SentDedupKeys:            sent,
		DeferredDedupKeys:        deferred,
	}
	e.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode runtime snapshot: %w", err)
	}
	return e.write(ctx, RuntimeStateKey, data)
}

func (e *Engine) persistPreferences(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	e.mu.Lock()
	snap := PreferencesSnapshot{
		Version:    preferencesSnapshotVersion,
		SavedAt:    e.now(),
		Recipients: e.prefs.Export(),
	}
	e.mu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode preferences snapshot: %w", err)
	}
	return e.write(ctx, PreferencesStateKey, data)
}

func (e *Engine) write(ctx context.Context, key string, data []byte) error {
	err := retry.Do(
		func() error {
			return e.store.Set(ctx, key, data)
		},
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			e.logger.WithError(err).WithFields(logrus.Fields{"key": key, "attempt": n}).Debug("Retrying state write")
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Deactivate makes in-flight send completions discard their results.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	e.dispatcher.Stop()
	e.mu.Unlock()
}

// Activate re-enables send completions after Deactivate.
func (e *Engine) Activate() {
	e.mu.Lock()
	e.dispatcher.Resume()
	e.mu.Unlock()
}

// Wait blocks until in-flight sends complete.
func (e *Engine) Wait() {
	e.dispatcher.Wait()
}
