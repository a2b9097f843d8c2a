package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"case_reminder_engine/internal/domain/casefile"
	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/domain/preference"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC)

func TestEngine_DedupFiresOncePerKey(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})

	h.tick(t)
	first := h.engine.Records(RecordFilter{})
	require.Len(t, first, 2)
	byCh := recordsByChannel(first)
	assert.Equal(t, notification.StatusSent, byCh[notification.ChannelEmail].Status)
	assert.Equal(t, notification.StatusSent, byCh[notification.ChannelInApp].Status)
	assert.Equal(t, "follow_up_due:f1|l1|email", byCh[notification.ChannelEmail].DedupKey)

	h.clock.Advance(time.Minute)
	h.tick(t)
	h.clock.Advance(2 * time.Hour)
	h.tick(t)

	assert.Len(t, h.engine.Records(RecordFilter{}), 2)
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
	assert.Equal(t, 1, h.senders[notification.ChannelInApp].callCount())
}

func TestEngine_QuietHoursSuppressThenSendOnce(t *testing.T) {
	start := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	h := newHarness(t, start, followUpSnapshot(start.Add(12*time.Hour)), Options{MaxRetries: 3})
	ctx := context.Background()
	for _, ch := range []notification.Channel{notification.ChannelEmail, notification.ChannelInApp} {
		require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{
			RecipientID:     "l1",
			Channel:         ch,
			Enabled:         true,
			QuietHoursStart: "22:00",
			QuietHoursEnd:   "07:00",
			Timezone:        "UTC",
		}))
	}

	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, notification.StatusSuppressed, r.Status)
		assert.Equal(t, notification.PriorityNormal, r.Priority)
	}
	assert.Equal(t, 0, h.senders[notification.ChannelEmail].callCount())

	// still quiet at 06:59
	h.clock.Set(time.Date(2026, time.March, 11, 6, 59, 0, 0, time.UTC))
	h.tick(t)
	assert.Len(t, h.engine.Records(RecordFilter{Status: notification.StatusSuppressed}), 2)

	h.clock.Set(time.Date(2026, time.March, 11, 7, 15, 0, 0, time.UTC))
	h.tick(t)
	recs = h.engine.Records(RecordFilter{})
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, notification.StatusSent, r.Status)
	}

	h.clock.Advance(time.Minute)
	h.tick(t)
	assert.Len(t, h.engine.Records(RecordFilter{}), 2)
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
	assert.Equal(t, 1, h.senders[notification.ChannelInApp].callCount())

	cats := h.sink.categories()
	assert.Equal(t, 2, cats["notification_deferred"])
	assert.Equal(t, 2, cats["notification_flushed"])
}

func TestEngine_UrgentIgnoresQuietHours(t *testing.T) {
	start := time.Date(2026, time.March, 10, 23, 0, 0, 0, time.UTC)
	snap := baseSnapshot()
	snap.Deadlines = []casefile.Deadline{{ID: "d1", MatterID: "m1", Title: "File brief", DueAt: start.Add(50 * time.Minute), AssignedTo: "l1"}}
	h := newHarness(t, start, snap, Options{MaxRetries: 3})
	require.NoError(t, h.engine.UpdatePreference(context.Background(), preference.Preference{
		RecipientID: "l1", Channel: notification.ChannelEmail, Enabled: true,
		QuietHoursStart: "22:00", QuietHoursEnd: "07:00",
	}))

	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 4)
	for _, r := range recs {
		assert.Equal(t, notification.CategoryDeadlineApproaching, r.Category)
		assert.Equal(t, notification.PriorityCritical, r.Priority)
		assert.Equal(t, notification.StatusSent, r.Status)
		assert.True(t, strings.HasPrefix(r.DedupKey, "deadline_approaching:d1:60|"), r.DedupKey)
	}
}

func TestEngine_DailyBriefingIdempotentPerDay(t *testing.T) {
	snap := baseSnapshot()
	snap.Deadlines = []casefile.Deadline{{ID: "d1", MatterID: "m1", Title: "File brief", DueAt: t0.Add(9 * time.Hour), AssignedTo: "l1"}}
	h := newHarness(t, t0, snap, Options{MaxRetries: 3})
	ctx := context.Background()

	first, err := h.engine.RunDailyBriefing(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, notification.CategoryDailyBriefing, first[0].Category)
	assert.Contains(t, first[0].Body, "File brief")

	h.clock.Advance(3 * time.Hour)
	second, err := h.engine.RunDailyBriefing(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)

	h.clock.Advance(24 * time.Hour)
	third, err := h.engine.RunDailyBriefing(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
	h.engine.Wait()
}

func TestEngine_WeeklySummaryIdempotentPerDay(t *testing.T) {
	h := newHarness(t, t0, baseSnapshot(), Options{MaxRetries: 3})
	ctx := context.Background()

	first, err := h.engine.RunWeeklySummary(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	second, err := h.engine.RunWeeklySummary(ctx)
	require.NoError(t, err)
	assert.Nil(t, second)
	h.engine.Wait()
}

func TestEngine_RetryBackoffThenTerminalFailure(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 2, BaseBackoff: 30 * time.Second})
	ctx := context.Background()
	require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{RecipientID: "l1", Channel: notification.ChannelInApp, Enabled: false}))
	email := h.senders[notification.ChannelEmail]
	email.setErr(errors.New("smtp 451 try again later"))

	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, notification.StatusScheduled, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.Equal(t, t0.Add(30*time.Second), rec.ScheduledAt)

	h.clock.Advance(30 * time.Second)
	h.tick(t)
	rec, err := h.engine.Record(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusScheduled, rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Equal(t, t0.Add(30*time.Second+60*time.Second), rec.ScheduledAt)

	h.clock.Advance(60 * time.Second)
	h.tick(t)
	rec, err = h.engine.Record(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusFailed, rec.Status)
	assert.Equal(t, 2, rec.RetryCount)
	assert.Contains(t, rec.Error, "smtp 451")

	h.clock.Advance(10 * time.Minute)
	h.tick(t)
	rec, err = h.engine.Record(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusFailed, rec.Status)
	assert.Equal(t, 3, email.callCount())
	assert.Equal(t, 1, h.sink.categories()["notification_failed"])

	email.setErr(nil)
	retried, err := h.engine.RetryFailed(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, retried.RetryCount)
	h.engine.Wait()
	rec, err = h.engine.Record(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, rec.Status)
}

func TestEngine_PermanentErrorFailsImmediately(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 5})
	h.senders[notification.ChannelEmail].setErr(fmt.Errorf("no email address for l1: %w", notification.ErrPermanent))

	h.tick(t)
	byCh := recordsByChannel(h.engine.Records(RecordFilter{}))
	assert.Equal(t, notification.StatusFailed, byCh[notification.ChannelEmail].Status)
	assert.Equal(t, 0, byCh[notification.ChannelEmail].RetryCount)
	assert.Equal(t, notification.StatusSent, byCh[notification.ChannelInApp].Status)
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
}

func TestEngine_MissingAdapterFails(t *testing.T) {
	clock := &fakeClock{t: t0}
	e := NewEngine(Deps{
		Source:  casefile.NewStatic(followUpSnapshot(t0.Add(time.Hour))),
		Senders: []notification.Sender{newFakeSender(notification.ChannelInApp)},
		Now:     clock.Now,
		Logger:  discardLogger(),
	}, Options{Location: time.UTC, MaxRetries: 3})

	require.NoError(t, e.Tick(context.Background()))
	e.Wait()
	byCh := recordsByChannel(e.Records(RecordFilter{}))
	assert.Equal(t, notification.StatusFailed, byCh[notification.ChannelEmail].Status)
	assert.Contains(t, byCh[notification.ChannelEmail].Error, "no adapter")
}

func TestEngine_CalendarConflictOncePerPair(t *testing.T) {
	snap := baseSnapshot()
	day := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)
	snap.CalendarEvents = []casefile.CalendarEvent{
		{ID: "ev-b", OwnerID: "l1", Title: "Deposition", StartsAt: day.Add(10*time.Hour + 30*time.Minute), EndsAt: day.Add(11*time.Hour + 30*time.Minute)},
		{ID: "ev-a", OwnerID: "l1", Title: "Client call", StartsAt: day.Add(10 * time.Hour), EndsAt: day.Add(11 * time.Hour)},
		{ID: "ev-c", OwnerID: "l1", Title: "Firm retreat", StartsAt: day, EndsAt: day.Add(24 * time.Hour), AllDay: true},
	}
	h := newHarness(t, t0, snap, Options{MaxRetries: 3})

	h.tick(t)
	h.clock.Advance(time.Minute)
	h.tick(t)

	recs := h.engine.Records(RecordFilter{Category: notification.CategoryCalendarConflict})
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.True(t, strings.HasPrefix(r.DedupKey, "calendar_conflict:ev-a:ev-b|l1|"), r.DedupKey)
	}
}

func TestEngine_DigestBatchesAndFlushes(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	ctx := context.Background()
	require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{
		RecipientID: "l1", Channel: notification.ChannelEmail, Enabled: true, DigestFrequency: notification.FrequencyDaily,
	}))

	h.tick(t)
	byCh := recordsByChannel(h.engine.Records(RecordFilter{}))
	batched := byCh[notification.ChannelEmail]
	assert.Equal(t, notification.StatusBatched, batched.Status)
	require.NotEmpty(t, batched.DigestID)
	assert.Equal(t, notification.StatusSent, byCh[notification.ChannelInApp].Status)

	d, ok := h.engine.Digest(batched.DigestID)
	require.True(t, ok)
	assert.Equal(t, notification.DigestPending, d.Status)
	assert.Equal(t, t0.Add(24*time.Hour), d.ScheduledAt)
	assert.Equal(t, 0, h.senders[notification.ChannelEmail].callCount())

	h.clock.Advance(24 * time.Hour)
	h.tick(t)

	composites := h.engine.Records(RecordFilter{Category: notification.CategoryDigest})
	require.Len(t, composites, 1)
	assert.Equal(t, notification.ChannelEmail, composites[0].Channel)
	assert.Equal(t, notification.StatusSent, composites[0].Status)
	assert.Contains(t, composites[0].Body, "Call opposing counsel")

	constituent, err := h.engine.Record(batched.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, constituent.Status)

	d, ok = h.engine.Digest(batched.DigestID)
	require.True(t, ok)
	assert.Equal(t, notification.DigestSent, d.Status)
	assert.Equal(t, composites[0].ID, d.CompositeRecordID)
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
}

func TestEngine_RestoreBlocksDuplicatesAfterRestart(t *testing.T) {
	snap := followUpSnapshot(t0.Add(6 * time.Hour))
	h := newHarness(t, t0, snap, Options{MaxRetries: 3})
	ctx := context.Background()

	h.tick(t)
	_, err := h.engine.RunDailyBriefing(ctx)
	require.NoError(t, err)
	h.engine.Wait()
	require.NoError(t, h.engine.Persist(ctx))

	restarted := NewEngine(Deps{
		Source:  casefile.NewStatic(snap),
		Senders: []notification.Sender{newFakeSender(notification.ChannelEmail), newFakeSender(notification.ChannelInApp)},
		Store:   h.store,
		Now:     h.clock.Now,
		Logger:  discardLogger(),
	}, Options{Location: time.UTC, MaxRetries: 3})
	require.NoError(t, restarted.Restore(ctx))

	require.NoError(t, restarted.Tick(ctx))
	restarted.Wait()
	assert.Empty(t, restarted.Records(RecordFilter{}))

	briefing, err := restarted.RunDailyBriefing(ctx)
	require.NoError(t, err)
	assert.Nil(t, briefing)
}

func TestEngine_RestorePreferences(t *testing.T) {
	h := newHarness(t, t0, baseSnapshot(), Options{})
	ctx := context.Background()
	require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{
		RecipientID: "l1", Channel: notification.ChannelPush, Enabled: false,
	}))
	require.NoError(t, h.engine.SetDefaultChannel(ctx, "l1", notification.ChannelInApp))

	restarted := NewEngine(Deps{Source: h.source, Store: h.store, Now: h.clock.Now, Logger: discardLogger()}, Options{Location: time.UTC})
	require.NoError(t, restarted.Restore(ctx))
	assert.False(t, restarted.Preference("l1", notification.ChannelPush).Enabled)
	assert.True(t, restarted.Preference("l1", notification.ChannelEmail).Enabled)
}

func TestEngine_AcknowledgeAndMarkOpened(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	ctx := context.Background()
	h.tick(t)
	rec := recordsByChannel(h.engine.Records(RecordFilter{}))[notification.ChannelInApp]

	h.clock.Advance(time.Minute)
	acked, err := h.engine.Acknowledge(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, acked.Acknowledged())
	assert.Equal(t, notification.StatusSent, acked.Status)

	opened, err := h.engine.MarkOpened(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusOpened, opened.Status)
	assert.Equal(t, t0.Add(time.Minute), opened.OpenedAt)

	_, err = h.engine.Acknowledge(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = h.engine.RetryFailed(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrRecordNotFailed)
}

func TestEngine_UpdateRuleTakesEffectNextTick(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	disabled := false
	_, err := h.engine.UpdateRule(context.Background(), "follow-up-due", notification.RulePatch{Enabled: &disabled})
	require.NoError(t, err)

	h.tick(t)
	assert.Empty(t, h.engine.Records(RecordFilter{}))

	_, err = h.engine.UpdateRule(context.Background(), "no-such-rule", notification.RulePatch{})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestEngine_DelayedRuleSchedulesRecord(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	delay := 15 * time.Minute
	_, err := h.engine.UpdateRule(context.Background(), "follow-up-due", notification.RulePatch{Delay: &delay})
	require.NoError(t, err)

	h.tick(t)
	for _, r := range h.engine.Records(RecordFilter{}) {
		assert.Equal(t, notification.StatusScheduled, r.Status)
		assert.Equal(t, t0.Add(delay), r.ScheduledAt)
	}

	h.clock.Advance(delay)
	h.tick(t)
	assert.Len(t, h.engine.Records(RecordFilter{Status: notification.StatusSent}), 2)
}

func TestEngine_DeactivateDiscardsLateCompletions(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	h.engine.Deactivate()

	require.NoError(t, h.engine.Tick(context.Background()))
	h.engine.Wait()
	for _, r := range h.engine.Records(RecordFilter{}) {
		assert.Equal(t, notification.StatusSending, r.Status)
	}
}

func TestEngine_CancelledContextSkipsMutation(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.engine.Tick(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, h.engine.Records(RecordFilter{}))
}

func TestEngine_DigestListsOccurrenceOnceAcrossChannels(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 3})
	ctx := context.Background()
	for _, ch := range []notification.Channel{notification.ChannelEmail, notification.ChannelInApp} {
		require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{
			RecipientID: "l1", Channel: ch, Enabled: true, DigestFrequency: notification.FrequencyDaily,
		}))
	}

	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 2)
	assert.Equal(t, recs[0].DigestID, recs[1].DigestID)

	h.clock.Advance(24 * time.Hour)
	h.tick(t)

	composites := h.engine.Records(RecordFilter{Category: notification.CategoryDigest})
	require.Len(t, composites, 1)
	assert.Equal(t, "Daily digest: 1 update(s)", composites[0].Title)
	assert.Equal(t, 1, strings.Count(composites[0].Body, "Call opposing counsel"))

	for _, r := range recs {
		got, err := h.engine.Record(r.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, got.Status, "constituent on %s", r.Channel)
	}
	d, ok := h.engine.Digest(recs[0].DigestID)
	require.True(t, ok)
	assert.Len(t, d.RecordIDs, 2)
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
	assert.Equal(t, 0, h.senders[notification.ChannelInApp].callCount())
}

func TestEngine_OverdueDeadlineRenotifiesOncePerDedupWindow(t *testing.T) {
	snap := baseSnapshot()
	snap.Deadlines = []casefile.Deadline{{ID: "d1", MatterID: "m1", Title: "File brief", DueAt: t0.Add(-time.Hour), AssignedTo: "l1"}}
	h := newHarness(t, t0, snap, Options{MaxRetries: 3})
	overdue := func() int {
		return len(h.engine.Records(RecordFilter{Category: notification.CategoryDeadlineOverdue}))
	}

	h.tick(t)
	assert.Equal(t, 4, overdue())
	h.clock.Advance(time.Hour)
	h.tick(t)
	h.clock.Advance(22*time.Hour + 59*time.Minute)
	h.tick(t)
	assert.Equal(t, 4, overdue(), "blocked inside the dedup window")

	h.clock.Set(t0.Add(DedupTTL))
	h.tick(t)
	assert.Equal(t, 8, overdue())
	h.clock.Set(t0.Add(2 * DedupTTL))
	h.tick(t)
	assert.Equal(t, 12, overdue())

	snap.Deadlines[0].Completed = true
	h.source.Replace(snap)
	h.clock.Set(t0.Add(3 * DedupTTL))
	h.tick(t)
	assert.Equal(t, 12, overdue())
}

func TestEngine_RateLimitDefersWithoutRetry(t *testing.T) {
	snap := followUpSnapshot(t0.Add(6 * time.Hour))
	snap.FollowUps = append(snap.FollowUps, casefile.FollowUp{ID: "f2", MatterID: "m1", Title: "Send engagement letter", DueAt: t0.Add(7 * time.Hour), OwnerID: "l1"})
	h := newHarness(t, t0, snap, Options{MaxRetries: 3, RatePerMinute: 1, RateDeferral: time.Minute})
	require.NoError(t, h.engine.UpdatePreference(context.Background(), preference.Preference{RecipientID: "l1", Channel: notification.ChannelInApp, Enabled: false}))
	email := h.senders[notification.ChannelEmail]

	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 2)
	assert.Equal(t, notification.StatusSent, recs[0].Status)
	deferred := recs[1]
	assert.Equal(t, notification.StatusScheduled, deferred.Status)
	assert.Equal(t, 0, deferred.RetryCount)
	assert.Equal(t, t0.Add(time.Minute), deferred.ScheduledAt)
	assert.Empty(t, deferred.Error)
	assert.Empty(t, h.engine.Records(RecordFilter{Status: notification.StatusFailed}))
	assert.Zero(t, h.sink.categories()["notification_failed"])
	assert.Equal(t, 1, email.callCount())

	h.clock.Advance(time.Minute + time.Second)
	h.tick(t)
	got, err := h.engine.Record(deferred.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, got.Status)
	assert.Equal(t, 0, got.RetryCount)
	assert.Equal(t, 2, email.callCount())
}

func TestEngine_ScheduledRecordDueInQuietHoursIsSuppressed(t *testing.T) {
	start := time.Date(2026, time.March, 10, 21, 50, 0, 0, time.UTC)
	h := newHarness(t, start, followUpSnapshot(start.Add(6*time.Hour)), Options{MaxRetries: 3})
	ctx := context.Background()
	for _, ch := range []notification.Channel{notification.ChannelEmail, notification.ChannelInApp} {
		require.NoError(t, h.engine.UpdatePreference(ctx, preference.Preference{
			RecipientID: "l1", Channel: ch, Enabled: true,
			QuietHoursStart: "22:00", QuietHoursEnd: "07:00", Timezone: "UTC",
		}))
	}
	delay := 15 * time.Minute
	_, err := h.engine.UpdateRule(ctx, "follow-up-due", notification.RulePatch{Delay: &delay})
	require.NoError(t, err)

	h.tick(t)
	assert.Len(t, h.engine.Records(RecordFilter{Status: notification.StatusScheduled}), 2)

	h.clock.Advance(delay)
	h.tick(t)
	assert.Len(t, h.engine.Records(RecordFilter{Status: notification.StatusSuppressed}), 2)
	assert.Equal(t, 0, h.senders[notification.ChannelEmail].callCount())

	h.clock.Set(time.Date(2026, time.March, 11, 7, 5, 0, 0, time.UTC))
	h.tick(t)
	recs := h.engine.Records(RecordFilter{})
	require.Len(t, recs, 2)
	for _, r := range recs {
		assert.Equal(t, notification.StatusSent, r.Status)
	}
	assert.Equal(t, 1, h.senders[notification.ChannelEmail].callCount())
	assert.Equal(t, 1, h.senders[notification.ChannelInApp].callCount())
}
