// internal/app/timewindow.go
package app

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"case_reminder_engine/internal/domain/notification"
)

const minutesPerDay = 24 * 60

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in clock %q", s)
	}
	return h*60 + m, nil
}

// InQuietWindow reports whether minute-of-day lies in [start, end),
// wrapping past midnight when start > end. An empty window (start == end) never matches.
func InQuietWindow(minute, start, end int) bool {
	if start <= end {
		return minute >= start && minute < end
	}
	return minute >= start || minute < end
}

// IsInQuietHours evaluates the quiet window at the wall-clock time of now.
// Callers decide the location by converting now beforehand.
func IsInQuietHours(now time.Time, start, end string) (bool, error) {
	s, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	return InQuietWindow(now.Hour()*60+now.Minute(), s, e), nil
}

// DateKey is the ISO calendar date of t in its own location.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MinutesUntil truncates the distance to target into whole minutes.
func MinutesUntil(now, target time.Time) int {
	return int(target.Sub(now) / time.Minute)
}

// SelectThreshold picks the single most urgent threshold crossed.
// Thresholds are sorted ascending first so configuration order does not matter.
func SelectThreshold(minutesLeft int, thresholds []int) (int, bool) {
	sorted := append([]int(nil), thresholds...)
	sort.Ints(sorted)
	for _, t := range sorted {
		if minutesLeft <= t {
			return t, true
		}
	}
	return 0, false
}

// ThresholdPriority maps how close an event is to its urgency tier.
func ThresholdPriority(thresholdMinutes int) notification.Priority {
	switch {
	case thresholdMinutes <= 60:
		return notification.PriorityCritical
	case thresholdMinutes <= 240:
		return notification.PriorityHigh
	case thresholdMinutes <= minutesPerDay:
		return notification.PriorityNormal
	default:
		return notification.PriorityLow
	}
}

// FormatTimeUntil renders the distance to target for humans: "in 2 days", "overdue by 45 minutes".
func FormatTimeUntil(now, target time.Time) string {
	d := target.Sub(now)
	if d < 0 {
		return "overdue by " + formatSpan(-d)
	}
	if d < time.Minute {
		return "now"
	}
	return "in " + formatSpan(d)
}

func formatSpan(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= 2*time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Hour:
		return "1 hour"
	default:
		return plural(int(d/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
