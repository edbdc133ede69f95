package usecase

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
)

type pinger struct {
	logger *slog.Logger
}

// NewPinger creates the responder for GitHub ping events
func NewPinger(logger *slog.Logger) interfaces.Pinger {
	return &pinger{logger: logger.With("component", "ping")}
}

// PingResponse is the body returned for a ping event
type PingResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Zen     string `json:"zen,omitempty"`
}

func (uc *pinger) Ping(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.PingEvent) error {
	uc.logger.InfoContext(ctx, "Received ping",
		"delivery_id", req.DeliveryID,
		"hook_id", event.HookID,
	)

	writeJSON(w, uc.logger, http.StatusOK, &PingResponse{
		Status:  "pong",
		Service: types.ServiceName,
		Version: types.Version,
		Zen:     event.Zen,
	})
	return nil
}
