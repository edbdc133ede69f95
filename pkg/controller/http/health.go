package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
)

func handleHealth(logger *slog.Logger, startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(&model.HealthStatus{
			Status:    "healthy",
			Service:   types.ServiceName,
			Version:   types.Version,
			StartedAt: startedAt,
		}); err != nil {
			logger.Error("Failed to encode health response", "error", err)
		}
	}
}
