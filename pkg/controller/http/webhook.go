package http

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
	"github.com/m-mizutani/hookwarden/pkg/utils/errs"
	"github.com/m-mizutani/hookwarden/pkg/utils/metrics"
)

// maxWebhookBodySize is GitHub's documented payload cap
const maxWebhookBodySize = 25 << 20

// WebhookHandler handles GitHub webhooks
type WebhookHandler struct {
	gate       *SignatureGate
	dispatcher interfaces.WebhookDispatcher
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(secret string, dispatcher interfaces.WebhookDispatcher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		gate:       NewSignatureGate(secret),
		dispatcher: dispatcher,
		logger:     logger.With("component", "webhook"),
	}
}

// Handle processes webhook requests
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", middleware.GetReqID(ctx))

	// Read payload
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodySize))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(w, logger, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	req := &model.WebhookRequest{
		EventType:  r.Header.Get(types.HeaderEvent),
		DeliveryID: r.Header.Get(types.HeaderDelivery),
		ReceivedAt: time.Now(),
		Payload:    body,
	}

	// Verify signature; the payload is only decoded for authenticated requests
	auth := h.gate.Check(r.Header, body)
	if auth == model.AuthAuthenticated {
		metrics.WebhookEvents.WithLabelValues(eventLabel(req.EventType)).Inc()

		event, err := model.DecodeEvent(req.EventType, body)
		if err != nil {
			logger.Warn("Failed to decode webhook payload",
				append([]any{"error", err, "event_type", req.EventType, "delivery_id", req.DeliveryID}, errs.Attrs(err)...)...,
			)
			writeError(w, logger, err, http.StatusBadRequest)
			return
		}
		req.Event = event
	}

	ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
	outcome, err := h.dispatcher.Dispatch(ctx, ww, auth, req)
	if outcome != "" {
		metrics.DispatchOutcomes.WithLabelValues(string(outcome)).Inc()
	}
	if err != nil {
		errs.Handle(ctx, logger, "Failed to process webhook event", goerr.Wrap(err, "webhook dispatch failed",
			goerr.V("event_type", req.EventType),
			goerr.V("delivery_id", req.DeliveryID),
			goerr.V("outcome", outcome),
		))
		if ww.Status() == 0 {
			writeError(ww, logger, err, http.StatusInternalServerError)
		}
		return
	}

	logger.Info("Dispatched webhook",
		"event_type", req.EventType,
		"delivery_id", req.DeliveryID,
		"outcome", outcome,
	)
}

func eventLabel(eventType string) string {
	if eventType == "" {
		return "unknown"
	}
	return eventType
}
