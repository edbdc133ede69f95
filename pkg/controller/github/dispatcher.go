package github

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// Responses written when the signature check rejects a request. The texts
// are shown to operators in the GitHub App delivery log.
const (
	MessageMissingSignature = "Request did not include x-hub header - You need to set a secret in the GitHub App + PERIL_WEBHOOK_SECRET."
	MessageInvalidSignature = "Request did not have a valid x-hub header. Perhaps PERIL_WEBHOOK_SECRET is not set up right?"
)

// Dispatcher routes an authenticated webhook to exactly one handler
type Dispatcher struct {
	pinger    interfaces.Pinger
	lifecycle interfaces.InstallationLifecycle
	delegate  interfaces.EventDelegate
	logger    *slog.Logger
}

// NewDispatcher creates a new GitHub event dispatcher
func NewDispatcher(
	pinger interfaces.Pinger,
	lifecycle interfaces.InstallationLifecycle,
	delegate interfaces.EventDelegate,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		pinger:    pinger,
		lifecycle: lifecycle,
		delegate:  delegate,
		logger:    logger.With("component", "router"),
	}
}

// Dispatch enforces auth and then routes req by event type. Rejections are
// answered here; every other response is written by the selected handler.
// Handler errors are returned unchanged in meaning and the reached outcome is
// reported alongside them.
func (d *Dispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, auth model.AuthResult, req *model.WebhookRequest) (model.DispatchOutcome, error) {
	switch auth {
	case model.AuthAuthenticated:
	case model.AuthInvalidSignature:
		d.logger.WarnContext(ctx, "Rejected webhook with invalid signature", "delivery_id", req.DeliveryID)
		writeText(w, http.StatusUnauthorized, MessageInvalidSignature)
		return model.OutcomeRejectedUnauthenticated, nil
	default:
		d.logger.WarnContext(ctx, "Rejected webhook without signature", "delivery_id", req.DeliveryID)
		writeText(w, http.StatusBadRequest, MessageMissingSignature)
		return model.OutcomeRejectedMissingAuth, nil
	}

	event := req.Event
	if event == nil {
		decoded, err := model.DecodeEvent(req.EventType, req.Payload)
		if err != nil {
			return "", goerr.Wrap(err, "failed to decode webhook event", goerr.V("event_type", req.EventType))
		}
		event = decoded
	}

	d.logger.DebugContext(ctx, "Received event",
		"event_type", req.EventType,
		"delivery_id", req.DeliveryID,
	)

	switch ev := event.(type) {
	case *model.PingEvent:
		return model.OutcomePingHandled, d.pinger.Ping(ctx, w, req, ev)

	case *model.InstallationEvent:
		return d.dispatchInstallation(ctx, w, req, ev)

	case *model.GenericEvent:
		return model.OutcomeDelegated, d.delegate.Delegate(ctx, w, req, ev)

	default:
		return "", goerr.New("unsupported event variant", goerr.V("event_type", req.EventType))
	}
}

func (d *Dispatcher) dispatchInstallation(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, ev *model.InstallationEvent) (model.DispatchOutcome, error) {
	switch ev.Action {
	case model.InstallationActionCreated:
		return model.OutcomeInstallationCreated, d.lifecycle.Create(ctx, w, ev.Installation, req)

	case model.InstallationActionDeleted:
		d.lifecycle.Delete(ctx, ev.Installation.GetID())
		return model.OutcomeInstallationDeleted, nil

	default:
		// Unknown actions (suspend, new_permissions_accepted, ...) are dropped
		// instead of falling through to the rule runner.
		d.logger.InfoContext(ctx, "Ignoring installation event",
			"action", ev.Action,
			"installation_id", ev.Installation.GetID(),
			"delivery_id", req.DeliveryID,
		)
		return model.OutcomeInstallationIgnored, nil
	}
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
