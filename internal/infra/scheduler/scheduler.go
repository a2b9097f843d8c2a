package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"case_reminder_engine/internal/domain/notification"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

var ErrAlreadyRunning = errors.New("scheduler is already running")

// Runner is the engine surface the scheduler drives.
type Runner interface {
	Tick(ctx context.Context) error
	RunDailyBriefing(ctx context.Context) ([]notification.Record, error)
	RunWeeklySummary(ctx context.Context) ([]notification.Record, error)
}

type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config anchors the daily briefing and the weekly summary.
type Config struct {
	Location       *time.Location
	BriefingHour   int
	BriefingMinute int
	WeeklyWeekday  time.Weekday
	WeeklyHour     int
}

// ReminderScheduler runs the polling tick and the two anchored jobs on one cron runner.
type ReminderScheduler struct {
	mu       sync.Mutex
	runner   Runner
	logger   *logrus.Entry
	loc      *time.Location
	briefing cron.Schedule
	weekly   cron.Schedule
	specs    [2]string

	state  State
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
}

func NewReminderScheduler(runner Runner, cfg Config, logger *logrus.Entry) (*ReminderScheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	briefingSpec := fmt.Sprintf("%d %d * * *", cfg.BriefingMinute, cfg.BriefingHour)
	weeklySpec := fmt.Sprintf("0 %d * * %d", cfg.WeeklyHour, int(cfg.WeeklyWeekday))

	briefing, err := cron.ParseStandard(briefingSpec)
	if err != nil {
		return nil, fmt.Errorf("invalid daily briefing schedule %q: %w", briefingSpec, err)
	}
	weekly, err := cron.ParseStandard(weeklySpec)
	if err != nil {
		return nil, fmt.Errorf("invalid weekly summary schedule %q: %w", weeklySpec, err)
	}
	return &ReminderScheduler{
		runner:   runner,
		logger:   logger.WithField("component", "scheduler"),
		loc:      cfg.Location,
		briefing: briefing,
		weekly:   weekly,
		specs:    [2]string{briefingSpec, weeklySpec},
		state:    StateIdle,
	}, nil
}

// NextBriefing is the next daily briefing fire time after now, rolling to tomorrow once passed.
func (s *ReminderScheduler) NextBriefing(now time.Time) time.Time {
	return s.briefing.Next(now.In(s.loc))
}

// NextWeeklySummary is the next weekly summary fire time after now.
func (s *ReminderScheduler) NextWeeklySummary(now time.Time) time.Time {
	return s.weekly.Next(now.In(s.loc))
}

func (s *ReminderScheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins ticking every interval and arms the anchored jobs.
// An initial tick runs immediately.
func (s *ReminderScheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", interval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return ErrAlreadyRunning
	}

	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cron.PrintfLogger(s.logger)),
		cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(s.logger))),
	)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() { s.tick(ctx, interval) }); err != nil {
		cancel()
		return fmt.Errorf("could not add tick job: %w", err)
	}
	c.Schedule(s.briefing, cron.FuncJob(func() { s.dailyBriefing(ctx) }))
	c.Schedule(s.weekly, cron.FuncJob(func() { s.weeklySummary(ctx) }))

	s.cron, s.ctx, s.cancel = c, ctx, cancel
	s.state = StateRunning
	c.Start()

	now := time.Now()
	s.logger.WithFields(logrus.Fields{
		"interval":      interval.String(),
		"briefing_spec": s.specs[0],
		"weekly_spec":   s.specs[1],
		"next_briefing": s.NextBriefing(now),
		"next_weekly":   s.NextWeeklySummary(now),
	}).Info("Reminder scheduler started")

	go s.tick(ctx, interval)
	return nil
}

// Stop cancels every job's context and waits for running jobs to return.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.cancel()
	c := s.cron
	s.state = StateStopped
	s.mu.Unlock()

	<-c.Stop().Done()
	s.logger.Info("Reminder scheduler stopped")
}

func (s *ReminderScheduler) tick(ctx context.Context, interval time.Duration) {
	if ctx.Err() != nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	if err := s.runner.Tick(jobCtx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WithError(err).Error("Tick failed")
	}
}

func (s *ReminderScheduler) dailyBriefing(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	recs, err := s.runner.RunDailyBriefing(jobCtx)
	if err != nil {
		s.logger.WithError(err).Error("Daily briefing failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"records":       len(recs),
		"next_briefing": s.NextBriefing(time.Now()),
	}).Info("Daily briefing job finished")
}

func (s *ReminderScheduler) weeklySummary(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	jobCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	recs, err := s.runner.RunWeeklySummary(jobCtx)
	if err != nil {
		s.logger.WithError(err).Error("Weekly summary failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"records":     len(recs),
		"next_weekly": s.NextWeeklySummary(time.Now()),
	}).Info("Weekly summary job finished")
}
