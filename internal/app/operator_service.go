package app

import (
	"context"
	"fmt"

	"case_reminder_engine/internal/domain/notification"
)

var ErrOperatorNotAuthorized = fmt.Errorf("performing user is not authorized as an operator")

// OperatorService exposes the engine control surface to the admin chat.
type OperatorService struct {
	engine          *Engine
	adminTelegramID int64
}

func NewOperatorService(engine *Engine, adminID int64) *OperatorService {
	return &OperatorService{
		engine:          engine,
		adminTelegramID: adminID,
	}
}

// IsOperator reports whether the Telegram user may use operator commands.
func (s *OperatorService) IsOperator(telegramID int64) bool {
	return s.adminTelegramID != 0 && telegramID == s.adminTelegramID
}

// FailedRecords lists failed records, oldest first.
func (s *OperatorService) FailedRecords(performingAdminID int64, limit int) ([]notification.Record, error) {
	if !s.IsOperator(performingAdminID) {
		return nil, ErrOperatorNotAuthorized
	}
	return s.engine.Records(RecordFilter{Status: notification.StatusFailed, Limit: limit}), nil
}

func (s *OperatorService) Acknowledge(ctx context.Context, performingAdminID int64, recordID string) (notification.Record, error) {
	if !s.IsOperator(performingAdminID) {
		return notification.Record{}, ErrOperatorNotAuthorized
	}
	rec, err := s.engine.Acknowledge(ctx, recordID)
	if err != nil {
		return notification.Record{}, fmt.Errorf("failed to acknowledge %s: %w", recordID, err)
	}
	return rec, nil
}

func (s *OperatorService) Retry(ctx context.Context, performingAdminID int64, recordID string) (notification.Record, error) {
	if !s.IsOperator(performingAdminID) {
		return notification.Record{}, ErrOperatorNotAuthorized
	}
	rec, err := s.engine.RetryFailed(ctx, recordID)
	if err != nil {
		return rec, fmt.Errorf("failed to retry %s: %w", recordID, err)
	}
	return rec, nil
}

// SetRuleEnabled toggles a trigger rule on or off.
func (s *OperatorService) SetRuleEnabled(ctx context.Context, performingAdminID int64, ruleID string, enabled bool) (notification.Rule, error) {
	if !s.IsOperator(performingAdminID) {
		return notification.Rule{}, ErrOperatorNotAuthorized
	}
	return s.engine.UpdateRule(ctx, ruleID, notification.RulePatch{Enabled: &enabled})
}
