package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"case_reminder_engine/internal/app"
	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/infra/channels"
	"case_reminder_engine/internal/infra/config"
	idb "case_reminder_engine/internal/infra/database"
	"case_reminder_engine/internal/infra/httpapi"
	"case_reminder_engine/internal/infra/logger"
	"case_reminder_engine/internal/infra/redisstore"
	"case_reminder_engine/internal/infra/scheduler"
	"case_reminder_engine/internal/infra/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.Component("main")
	mainLogger.WithFields(logrus.Fields{
		"environment":   cfg.Environment,
		"store_backend": cfg.StoreBackend,
		"timezone":      cfg.Timezone,
		"tick_interval": cfg.TickInterval.String(),
	}).Info("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.NewPostgresConnection(cfg.DatabaseURL)
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not connect to database")
	}
	defer db.Close()
	if err := idb.EnsureSchema(ctx, db); err != nil {
		mainLogger.WithError(err).Fatal("Could not apply database schema")
	}
	mainLogger.Info("Database connection established")

	var store notification.Store = idb.NewPostgresStore(db)
	if cfg.StoreBackend == "redis" {
		rdb, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not connect to redis")
		}
		defer rdb.Close()
		store = redisstore.New(rdb)
	}
	mainLogger.WithField("backend", cfg.StoreBackend).Info("Snapshot store initialized")

	source := idb.NewPostgresCaseSource(db, cfg.ConflictWindow)
	audit := logger.MultiAudit{logger.NewAuditSink(logger.Log), idb.NewPostgresAuditSink(db)}

	inApp := channels.NewInAppSender(store)
	portal := channels.NewPortalSender(store)
	senders := []notification.Sender{
		channels.NewEmailSender(newEmailProvider(cfg), source, logger.Component("email")),
		inApp,
		portal,
	}
	if cfg.PushGatewayURL != "" {
		senders = append(senders, channels.NewPushSender(cfg.PushGatewayURL, cfg.GatewayToken, source, logger.Component("push")))
	}
	if cfg.SMSGatewayURL != "" {
		senders = append(senders, channels.NewSMSSender(cfg.SMSGatewayURL, cfg.GatewayToken, source, logger.Component("sms")))
	}

	var bot *telebot.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken, logger.Component("telebot"))
		if err != nil {
			mainLogger.WithError(err).Fatal("Could not create Telegram bot")
		}
		senders = append(senders, telegram.NewChatSender(telegram.NewTelebotAdapter(bot), source))
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN not set, chat channel and operator commands disabled")
	}

	evalCfg := app.DefaultEvaluatorConfig()
	evalCfg.DeadlineThresholds = cfg.DeadlineThresholds
	evalCfg.CourtDateThresholds = cfg.CourtDateThresholds
	evalCfg.FollowUpWindow = cfg.FollowUpWindow
	evalCfg.ConflictWindow = cfg.ConflictWindow
	evalCfg.Location = cfg.Location()

	engine := app.NewEngine(app.Deps{
		Source:  source,
		Senders: senders,
		Store:   store,
		Audit:   audit,
		Logger:  logger.Log.WithField("service", "case_reminder_engine"),
	}, app.Options{
		Location:      cfg.Location(),
		MaxRetries:    cfg.MaxRetries,
		BaseBackoff:   cfg.RetryBaseBackoff,
		MaxBackoff:    cfg.RetryMaxBackoff,
		RatePerMinute: cfg.ChannelRatePerMinute,
		SnapshotCap:   cfg.SnapshotCap,
		Evaluator:     evalCfg,
	})
	if err := engine.Restore(ctx); err != nil {
		mainLogger.WithError(err).Warn("Could not restore engine state, starting fresh")
	}

	briefingHour, briefingMinute, _ := cfg.BriefingClock()
	weekday, _ := cfg.WeeklyWeekday()
	sched, err := scheduler.NewReminderScheduler(engine, scheduler.Config{
		Location:       cfg.Location(),
		BriefingHour:   briefingHour,
		BriefingMinute: briefingMinute,
		WeeklyWeekday:  weekday,
		WeeklyHour:     cfg.WeeklySummaryHour,
	}, logger.Log.WithField("service", "case_reminder_engine"))
	if err != nil {
		mainLogger.WithError(err).Fatal("Could not create scheduler")
	}
	if err := sched.Start(cfg.TickInterval); err != nil {
		mainLogger.WithError(err).Fatal("Could not start scheduler")
	}

	handler := httpapi.NewHandler(engine, map[notification.Channel]httpapi.InboxReader{
		notification.ChannelInApp:  inApp,
		notification.ChannelPortal: portal,
	}, logger.Log.WithField("service", "case_reminder_engine"))
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(handler, cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		mainLogger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			mainLogger.WithError(err).Error("HTTP server stopped")
			stop()
		}
	}()

	if bot != nil {
		ops := app.NewOperatorService(engine, cfg.AdminTelegramID)
		telegram.RegisterOperatorHandlers(ctx, bot, ops, logger.Component("telegram"))
		go bot.Start()
		mainLogger.Info("Telegram bot started")
	}

	mainLogger.Info("Application setup complete")
	<-ctx.Done()

	mainLogger.Info("Shutting down application...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if bot != nil {
		bot.Stop()
	}
	sched.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("HTTP server shutdown incomplete")
	}
	engine.Deactivate()
	engine.Wait()
	if err := engine.Persist(shutdownCtx); err != nil {
		mainLogger.WithError(err).Warn("Final snapshot failed")
	}
	mainLogger.Info("Application shut down gracefully")
}

func newEmailProvider(cfg *config.AppConfig) channels.EmailProvider {
	switch cfg.EmailProvider {
	case "smtp":
		return channels.NewSMTPProvider(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailFrom, cfg.EmailFromName)
	case "brevo":
		return channels.NewBrevoProvider(cfg.BrevoAPIKey, cfg.EmailFrom, cfg.EmailFromName, logger.Component("brevo"))
	default:
		return channels.NewMockEmailProvider(logger.Component("email_mock"))
	}
}
