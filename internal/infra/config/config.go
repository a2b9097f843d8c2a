package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// maxRetriesLimit is the largest accepted MAX_RETRIES.
const maxRetriesLimit = 20

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL     string `env:"DATABASE_URL"`
	RedisURL        string `env:"REDIS_URL"`
	StoreBackend    string `env:"STORE_BACKEND"     envDefault:"postgres"` // postgres or redis
	TelegramToken   string `env:"TELEGRAM_TOKEN"`
	AdminTelegramID int64  `env:"ADMIN_TELEGRAM_ID"`
	LogLevel        string `env:"LOG_LEVEL"         envDefault:"info"`
	Environment     string `env:"ENVIRONMENT"       envDefault:"development"`
	HTTPAddr        string `env:"HTTP_ADDR"         envDefault:":8080"`
	APIToken        string `env:"API_TOKEN"` // bearer token for /api/v1; empty disables auth

	TickInterval         time.Duration `env:"TICK_INTERVAL"          envDefault:"60s"`
	Timezone             string        `env:"TIMEZONE"               envDefault:"UTC"`
	BriefingTime         string        `env:"BRIEFING_TIME"          envDefault:"07:30"`
	WeeklySummaryWeekday string        `env:"WEEKLY_SUMMARY_WEEKDAY" envDefault:"monday"`
	WeeklySummaryHour    int           `env:"WEEKLY_SUMMARY_HOUR"    envDefault:"8"`
	DeadlineThresholds   []int         `env:"DEADLINE_THRESHOLDS"    envDefault:"1440,180,60"     envSeparator:","`
	CourtDateThresholds  []int         `env:"COURT_DATE_THRESHOLDS"  envDefault:"10080,1440,120"  envSeparator:","`
	FollowUpWindow       time.Duration `env:"FOLLOW_UP_WINDOW"       envDefault:"24h"`
	ConflictWindow       time.Duration `env:"CONFLICT_WINDOW"        envDefault:"168h"`
	MaxRetries           int           `env:"MAX_RETRIES"            envDefault:"3"`
	RetryBaseBackoff     time.Duration `env:"RETRY_BASE_BACKOFF"     envDefault:"30s"`
	RetryMaxBackoff      time.Duration `env:"RETRY_MAX_BACKOFF"      envDefault:"1h"`
	SnapshotCap          int           `env:"SNAPSHOT_CAP"           envDefault:"500"`
	ChannelRatePerMinute int           `env:"CHANNEL_RATE_PER_MINUTE" envDefault:"120"`

	EmailProvider string `env:"EMAIL_PROVIDER"  envDefault:"mock"` // smtp, brevo or mock
	EmailFrom     string `env:"EMAIL_FROM"      envDefault:"reminders@localhost"`
	EmailFromName string `env:"EMAIL_FROM_NAME" envDefault:"Case Reminders"`
	SMTPHost      string `env:"SMTP_HOST"`
	SMTPPort      int    `env:"SMTP_PORT"       envDefault:"587"`
	SMTPUser      string `env:"SMTP_USER"`
	SMTPPassword  string `env:"SMTP_PASSWORD"`
	BrevoAPIKey   string `env:"BREVO_API_KEY"`

	PushGatewayURL string `env:"PUSH_GATEWAY_URL"`
	SMSGatewayURL  string `env:"SMS_GATEWAY_URL"`
	GatewayToken   string `env:"GATEWAY_TOKEN"`
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load does not override variables already set.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values the struct tags cannot express.
func (c *AppConfig) Validate() error {
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Environment = strings.ToLower(c.Environment)
	c.StoreBackend = strings.ToLower(c.StoreBackend)
	c.EmailProvider = strings.ToLower(c.EmailProvider)

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}
	switch c.StoreBackend {
	case "postgres":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	if _, _, err := c.BriefingClock(); err != nil {
		return err
	}
	if _, err := c.WeeklyWeekday(); err != nil {
		return err
	}
	if c.WeeklySummaryHour < 0 || c.WeeklySummaryHour > 23 {
		return fmt.Errorf("WEEKLY_SUMMARY_HOUR must be 0-23, got %d", c.WeeklySummaryHour)
	}
	for _, t := range append(append([]int(nil), c.DeadlineThresholds...), c.CourtDateThresholds...) {
		if t <= 0 {
			return fmt.Errorf("thresholds must be positive minutes, got %d", t)
		}
	}
	if c.MaxRetries < 0 || c.MaxRetries > maxRetriesLimit {
		return fmt.Errorf("MAX_RETRIES must be 0-%d, got %d", maxRetriesLimit, c.MaxRetries)
	}
	if c.RetryBaseBackoff <= 0 || c.RetryMaxBackoff < c.RetryBaseBackoff {
		return fmt.Errorf("RETRY_BASE_BACKOFF must be positive and not above RETRY_MAX_BACKOFF")
	}
	switch c.EmailProvider {
	case "mock":
	case "smtp":
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER=smtp")
		}
	case "brevo":
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER=brevo")
		}
	default:
		return fmt.Errorf("invalid EMAIL_PROVIDER %q", c.EmailProvider)
	}
	return nil
}

// Location returns the configured engine timezone.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// BriefingClock splits BRIEFING_TIME into hour and minute.
func (c *AppConfig) BriefingClock() (int, int, error) {
	var h, m int
	if _, err := fmt.Sscanf(c.BriefingTime, "%d:%d", &h, &m); err != nil || h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid BRIEFING_TIME %q: want HH:MM", c.BriefingTime)
	}
	return h, m, nil
}

// WeeklyWeekday parses WEEKLY_SUMMARY_WEEKDAY.
func (c *AppConfig) WeeklyWeekday() (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(c.WeeklySummaryWeekday)]
	if !ok {
		return 0, fmt.Errorf("invalid WEEKLY_SUMMARY_WEEKDAY %q", c.WeeklySummaryWeekday)
	}
	return d, nil
}
