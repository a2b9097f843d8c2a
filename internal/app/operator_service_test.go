package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"case_reminder_engine/internal/domain/notification"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID int64 = 4242

func TestOperatorService_RejectsNonAdmin(t *testing.T) {
	h := newHarness(t, t0, baseSnapshot(), Options{})
	s := NewOperatorService(h.engine, adminID)
	ctx := context.Background()

	_, err := s.FailedRecords(1, 10)
	assert.ErrorIs(t, err, ErrOperatorNotAuthorized)
	_, err = s.Acknowledge(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrOperatorNotAuthorized)
	_, err = s.Retry(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrOperatorNotAuthorized)
	_, err = s.SetRuleEnabled(ctx, 1, "follow-up-due", false)
	assert.ErrorIs(t, err, ErrOperatorNotAuthorized)

	assert.False(t, NewOperatorService(h.engine, 0).IsOperator(0))
}

func TestOperatorService_FailedAndRetry(t *testing.T) {
	h := newHarness(t, t0, followUpSnapshot(t0.Add(6*time.Hour)), Options{MaxRetries: 0})
	h.senders[notification.ChannelEmail].setErr(errors.New("connection reset"))
	s := NewOperatorService(h.engine, adminID)
	ctx := context.Background()

	h.tick(t)
	failed, err := s.FailedRecords(adminID, 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	h.senders[notification.ChannelEmail].setErr(nil)
	_, err = s.Retry(ctx, adminID, failed[0].ID)
	require.NoError(t, err)
	h.engine.Wait()

	failed, err = s.FailedRecords(adminID, 10)
	require.NoError(t, err)
	assert.Empty(t, failed)

	_, err = s.Acknowledge(ctx, adminID, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	rule, err := s.SetRuleEnabled(ctx, adminID, "follow-up-due", false)
	require.NoError(t, err)
	assert.False(t, rule.Enabled)
}
