package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cases?sslmode=disable")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.TickInterval)
	assert.Equal(t, []int{1440, 180, 60}, cfg.DeadlineThresholds)
	assert.Equal(t, []int{10080, 1440, 120}, cfg.CourtDateThresholds)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Hour, cfg.RetryMaxBackoff)
	assert.Equal(t, "postgres", cfg.StoreBackend)

	h, m, err := cfg.BriefingClock()
	require.NoError(t, err)
	assert.Equal(t, 7, h)
	assert.Equal(t, 30, m)

	day, err := cfg.WeeklyWeekday()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/cases")
	t.Setenv("DEADLINE_THRESHOLDS", "60,2880")
	t.Setenv("TICK_INTERVAL", "15s")
	t.Setenv("TIMEZONE", "Europe/Berlin")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []int{60, 2880}, cfg.DeadlineThresholds)
	assert.Equal(t, 15*time.Second, cfg.TickInterval)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing database", map[string]string{"DATABASE_URL": ""}},
		{"bad briefing time", map[string]string{"BRIEFING_TIME": "7am"}},
		{"bad weekday", map[string]string{"WEEKLY_SUMMARY_WEEKDAY": "someday"}},
		{"bad tick", map[string]string{"TICK_INTERVAL": "0s"}},
		{"redis without url", map[string]string{"STORE_BACKEND": "redis"}},
		{"smtp without host", map[string]string{"EMAIL_PROVIDER": "smtp"}},
		{"negative threshold", map[string]string{"COURT_DATE_THRESHOLDS": "-5"}},
		{"unparsable int", map[string]string{"MAX_RETRIES": "many"}},
		{"too many retries", map[string]string{"MAX_RETRIES": "64"}},
		{"backoff above cap", map[string]string{"RETRY_BASE_BACKOFF": "2h", "RETRY_MAX_BACKOFF": "1h"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "postgres://localhost/cases")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
