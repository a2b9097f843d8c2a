package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"case_reminder_engine/internal/app"
	"case_reminder_engine/internal/domain/notification"
	"case_reminder_engine/internal/domain/preference"
	"case_reminder_engine/internal/infra/channels"

	"github.com/go-chi/chi/v5"
)

const maxListLimit = 500

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := app.RecordFilter{
		Status:      notification.Status(q.Get("status")),
		RecipientID: q.Get("recipient"),
		Category:    notification.Category(q.Get("category")),
		Limit:       100,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = min(n, maxListLimit)
	}

	recs := h.engine.Records(filter)
	out := make([]recordResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.Record(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.Acknowledge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.RetryFailed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, toRecordResponse(rec))
}

func (h *Handler) HandleOpened(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.MarkOpened(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) HandleListRules(w http.ResponseWriter, _ *http.Request) {
	rules := h.engine.Rules()
	out := make([]ruleResponse, 0, len(rules))
	for _, rule := range rules {
		out = append(out, toRuleResponse(rule))
	}
	writeJSON(w, http.StatusOK, out)
}

type patchRuleRequest struct {
	Enabled         *bool    `json:"enabled"`
	Channels        []string `json:"channels"`
	Priority        *string  `json:"priority"`
	Delay           *string  `json:"delay"`
	SubjectTemplate *string  `json:"subject_template"`
	BodyTemplate    *string  `json:"body_template"`
}

func (req patchRuleRequest) toPatch() (notification.RulePatch, error) {
	patch := notification.RulePatch{
		Enabled:         req.Enabled,
		SubjectTemplate: req.SubjectTemplate,
		BodyTemplate:    req.BodyTemplate,
	}
	if req.Channels != nil {
		chs, err := parseChannels(req.Channels)
		if err != nil {
			return patch, err
		}
		patch.Channels = chs
	}
	if req.Priority != nil {
		p := notification.Priority(*req.Priority)
		if !p.Valid() {
			return patch, fmt.Errorf("unknown priority %q", *req.Priority)
		}
		patch.Priority = &p
	}
	if req.Delay != nil {
		d, err := time.ParseDuration(*req.Delay)
		if err != nil || d < 0 {
			return patch, fmt.Errorf("invalid delay %q", *req.Delay)
		}
		patch.Delay = &d
	}
	return patch, nil
}

func (h *Handler) HandlePatchRule(w http.ResponseWriter, r *http.Request) {
	var req patchRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, err := h.engine.UpdateRule(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) HandleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Preferences(chi.URLParam(r, "recipient")))
}

func (h *Handler) HandlePutPreference(w http.ResponseWriter, r *http.Request) {
	ch := notification.Channel(chi.URLParam(r, "channel"))
	if !ch.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown channel %q", ch))
		return
	}
	var p preference.Preference
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p.RecipientID = chi.URLParam(r, "recipient")
	p.Channel = ch
	if err := h.engine.UpdatePreference(r.Context(), p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.engine.Preference(p.RecipientID, ch))
}

type channelsRequest struct {
	Channels []string `json:"channels"`
}

func (h *Handler) HandleSetPriorityChannels(w http.ResponseWriter, r *http.Request) {
	p := notification.Priority(chi.URLParam(r, "priority"))
	if !p.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown priority %q", p))
		return
	}
	var req channelsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	chs, err := parseChannels(req.Channels)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.engine.SetPriorityChannels(r.Context(), chi.URLParam(r, "recipient"), p, chs); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type defaultChannelRequest struct {
	Channel string `json:"channel"`
}

func (h *Handler) HandleSetDefaultChannel(w http.ResponseWriter, r *http.Request) {
	var req defaultChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ch := notification.Channel(req.Channel)
	if !ch.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown channel %q", req.Channel))
		return
	}
	if err := h.engine.SetDefaultChannel(r.Context(), chi.URLParam(r, "recipient"), ch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetDigest(w http.ResponseWriter, r *http.Request) {
	d, ok := h.engine.Digest(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "digest not found")
		return
	}
	writeJSON(w, http.StatusOK, toDigestResponse(d))
}

func (h *Handler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	inbox, ok := h.inboxes[notification.Channel(chi.URLParam(r, "channel"))]
	if !ok {
		writeError(w, http.StatusNotFound, "no inbox for channel")
		return
	}
	items, err := inbox.Items(r.Context(), chi.URLParam(r, "recipient"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to read inbox")
		writeError(w, http.StatusInternalServerError, "failed to read inbox")
		return
	}
	if items == nil {
		items = []channels.InboxItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrRecordNotFound), errors.Is(err, app.ErrRuleNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrRecordNotFailed), errors.Is(err, app.ErrRecordNotDelivered):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).Error("Engine call failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseChannels(raw []string) ([]notification.Channel, error) {
	out := make([]notification.Channel, 0, len(raw))
	for _, s := range raw {
		ch := notification.Channel(s)
		if !ch.Valid() {
			return nil, fmt.Errorf("unknown channel %q", s)
		}
		out = append(out, ch)
	}
	return out, nil
}
