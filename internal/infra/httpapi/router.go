// Package httpapi serves the engine's control surface, health and metrics over HTTP.
package httpapi

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"case_reminder_engine/internal/app"
	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/infra/channels"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// InboxReader lists what an in-app or portal recipient has received.
type InboxReader interface {
	Items(ctx context.Context, recipient string) ([]channels.InboxItem, error)
}

type Handler struct {
	engine  *app.Engine
	inboxes map[notification.Channel]InboxReader
	logger  *logrus.Entry
}

func NewHandler(engine *app.Engine, inboxes map[notification.Channel]InboxReader, logger *logrus.Entry) *Handler {
	return &Handler{engine: engine, inboxes: inboxes, logger: logger.WithField("component", "httpapi")}
}

// NewRouter mounts health, metrics and the /api/v1 routes. An empty apiToken disables auth.
func NewRouter(h *Handler, apiToken string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.logger))

	r.Get("/healthz", h.HandleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(30 * time.Second))
		if apiToken != "" {
			api.Use(bearerAuth(apiToken))
		}

		api.Get("/notifications", h.HandleListRecords)
		api.Get("/notifications/{id}", h.HandleGetRecord)
		api.Post("/notifications/{id}/ack", h.HandleAcknowledge)
		api.Post("/notifications/{id}/retry", h.HandleRetry)
		api.Post("/notifications/{id}/opened", h.HandleOpened)

		api.Get("/rules", h.HandleListRules)
		api.Patch("/rules/{id}", h.HandlePatchRule)

		api.Get("/preferences/{recipient}", h.HandleGetPreferences)
		api.Put("/preferences/{recipient}/default-channel", h.HandleSetDefaultChannel)
		api.Put("/preferences/{recipient}/priorities/{priority}", h.HandleSetPriorityChannels)
		api.Put("/preferences/{recipient}/{channel}", h.HandlePutPreference)

		api.Get("/digests/{id}", h.HandleGetDigest)
		api.Get("/inbox/{channel}/{recipient}", h.HandleInbox)
	})
	return r
}

func requestLogger(logger *logrus.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r)
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				return
			}
			logger.WithFields(logrus.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(started).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("HTTP request")
		})
	}
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "missing or invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
