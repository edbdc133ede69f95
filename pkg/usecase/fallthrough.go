package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

type fallthroughDelegate struct {
	settings interfaces.SettingsUpdater
	rules    interfaces.RuleRunner
	logger   *slog.Logger
}

// NewFallthroughDelegate creates the delegate for events without a dedicated
// handler. Every event is shown to the settings updater first, then to the
// rule runner.
func NewFallthroughDelegate(settings interfaces.SettingsUpdater, rules interfaces.RuleRunner, logger *slog.Logger) interfaces.EventDelegate {
	return &fallthroughDelegate{
		settings: settings,
		rules:    rules,
		logger:   logger.With("component", "fallthrough"),
	}
}

func (uc *fallthroughDelegate) Delegate(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error {
	uc.logger.InfoContext(ctx, "Passing event to rule runner",
		"event_type", event.Name,
		"action", event.Action,
		"delivery_id", req.DeliveryID,
	)

	// A settings failure must not hide the event from the rule runner.
	var errList []error
	if err := uc.settings.UpdateSettings(ctx, w, req, event); err != nil {
		errList = append(errList, goerr.Wrap(err, "settings updater failed", goerr.V("event_type", event.Name)))
	}
	if err := uc.rules.RunRules(ctx, w, req, event); err != nil {
		errList = append(errList, goerr.Wrap(err, "rule runner failed", goerr.V("event_type", event.Name)))
	}

	return errors.Join(errList...)
}
