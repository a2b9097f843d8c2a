// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/infra/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultSendTimeout = 30 * time.Second
	defaultMaxBackoff  = time.Hour
)

// DispatcherOptions configures retries, backoff and per-channel rate limits.
type DispatcherOptions struct {
	BaseBackoff   time.Duration // first retry delay; doubled per attempt
	MaxBackoff    time.Duration // upper bound of a single retry delay
	RatePerMinute int           // per channel; 0 disables limiting
	RateDeferral  time.Duration // how far an over-limit send is pushed back
	SendTimeout   time.Duration
}

// Dispatcher runs the per-record send state machine.
// Mutations happen under the engine mutex; channel I/O runs in goroutines.
type Dispatcher struct {
	mu       *sync.Mutex
	senders  map[notification.Channel]notification.Sender
	limiters map[notification.Channel]*rate.Limiter
	opts     DispatcherOptions
	now      func() time.Time
	audit    *auditLog
	logger   *logrus.Entry
	inflight sync.WaitGroup
	active   bool
}

func NewDispatcher(mu *sync.Mutex, senders []notification.Sender, opts DispatcherOptions, now func() time.Time, audit *auditLog, logger *logrus.Entry) *Dispatcher {
	if opts.BaseBackoff <= 0 {
		opts.BaseBackoff = 30 * time.Second
	}
	if opts.MaxBackoff < opts.BaseBackoff {
		opts.MaxBackoff = max(defaultMaxBackoff, opts.BaseBackoff)
	}
	if opts.RateDeferral <= 0 {
		opts.RateDeferral = time.Minute
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = defaultSendTimeout
	}
	d := &Dispatcher{
		mu:       mu,
		senders:  make(map[notification.Channel]notification.Sender, len(senders)),
		limiters: make(map[notification.Channel]*rate.Limiter),
		opts:     opts,
		now:      now,
		audit:    audit,
		logger:   logger,
		active:   true,
	}
	for _, s := range senders {
		d.senders[s.Channel()] = s
		if opts.RatePerMinute > 0 {
			d.limiters[s.Channel()] = rate.NewLimiter(rate.Limit(float64(opts.RatePerMinute)/60.0), max(1, opts.RatePerMinute/10))
		}
	}
	return d
}

// Backoff returns the delay before retry number retryCount+1: 2^retryCount * base,
// clamped to MaxBackoff.
func (d *Dispatcher) Backoff(retryCount int) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}
	delay := d.opts.BaseBackoff
	for i := 0; i < retryCount && delay < d.opts.MaxBackoff; i++ {
		delay *= 2
	}
	return min(delay, d.opts.MaxBackoff)
}

// Dispatch moves a pending or scheduled record into sending and starts the channel send.
// The caller holds the engine mutex.
func (d *Dispatcher) Dispatch(rec *notification.Record) {
	now := d.now()
	sender, ok := d.senders[rec.Channel]
	if !ok {
		d.fail(rec, now, fmt.Sprintf("no adapter configured for channel %s", rec.Channel))
		return
	}
	if lim, ok := d.limiters[rec.Channel]; ok && !lim.AllowN(now, 1) {
		rec.Status = notification.StatusScheduled
		rec.ScheduledAt = now.Add(d.opts.RateDeferral)
		d.logger.WithFields(logrus.Fields{"record_id": rec.ID, "channel": rec.Channel}).Debug("Channel rate limited, send deferred")
		return
	}

	rec.Status = notification.StatusSending
	payload := rec.Clone()
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.opts.SendTimeout)
		defer cancel()

		started := time.Now()
		res, err := sender.Send(ctx, payload)
		metrics.SendDuration.WithLabelValues(string(payload.Channel)).Observe(time.Since(started).Seconds())

		d.mu.Lock()
		if !d.active {
			// Engine stopped while the send was in flight; leave state as it was.
			d.mu.Unlock()
			d.logger.WithField("record_id", payload.ID).Info("Send completed after shutdown, result discarded")
			return
		}
		d.complete(rec, res, err)
		entries := d.audit.take()
		d.mu.Unlock()
		d.audit.write(context.Background(), entries)
	}()
}

// complete applies a send outcome. The caller holds the engine mutex.
func (d *Dispatcher) complete(rec *notification.Record, res notification.SendResult, err error) {
	now := d.now()
	logCtx := d.logger.WithFields(logrus.Fields{
		"record_id": rec.ID,
		"channel":   rec.Channel,
		"category":  rec.Category,
	})
	if err == nil && !res.OK {
		err = fmt.Errorf("channel rejected message: %s", res.Message)
	}
	if err == nil {
		rec.Status = notification.StatusSent
		rec.SentAt = now
		rec.Error = ""
		if res.Delivered {
			rec.Status = notification.StatusDelivered
			rec.DeliveredAt = now
		}
		metrics.DispatchTotal.WithLabelValues(string(rec.Channel), string(rec.Status)).Inc()
		logCtx.Info("Notification sent")
		return
	}

	rec.Error = err.Error()
	if errors.Is(err, notification.ErrPermanent) {
		logCtx.WithError(err).Warn("Permanent channel error, not retrying")
		d.fail(rec, now, err.Error())
		return
	}
	if rec.RetryCount < rec.MaxRetries {
		delay := d.Backoff(rec.RetryCount)
		rec.Status = notification.StatusScheduled
		rec.ScheduledAt = now.Add(delay)
		rec.RetryCount++
		metrics.DispatchTotal.WithLabelValues(string(rec.Channel), string(rec.Status)).Inc()
		logCtx.WithError(err).WithFields(logrus.Fields{
			"retry_count": rec.RetryCount,
			"retry_at":    rec.ScheduledAt,
		}).Warn("Transient channel error, retry scheduled")
		return
	}
	logCtx.WithError(err).WithField("retry_count", rec.RetryCount).Warn("Retries exhausted")
	d.fail(rec, now, err.Error())
}

func (d *Dispatcher) fail(rec *notification.Record, now time.Time, reason string) {
	rec.Status = notification.StatusFailed
	rec.FailedAt = now
	rec.Error = reason
	metrics.DispatchTotal.WithLabelValues(string(rec.Channel), string(rec.Status)).Inc()
	d.audit.record(notification.AuditEntry{
		Category: "notification_failed",
		Severity: notification.SeverityWarning,
		Details:  fmt.Sprintf("%s notification %s failed on %s: %s", rec.Category, rec.ID, rec.Channel, reason),
		Metadata: recordMetadata(rec),
		At:       now,
	})
}

// Stop makes in-flight completions discard their results. The caller holds the engine mutex.
func (d *Dispatcher) Stop() { d.active = false }

// Resume re-enables completions after Stop. The caller holds the engine mutex.
func (d *Dispatcher) Resume() { d.active = true }

// Wait blocks until every in-flight send has completed. Must not be called with the mutex held.
func (d *Dispatcher) Wait() { d.inflight.Wait() }
