package interfaces

import (
	"context"
	"net/http"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// Pinger answers GitHub's ping event
type Pinger interface {
	Ping(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.PingEvent) error
}

// InstallationCreator runs the workflow for a newly installed GitHub App and
// authors the HTTP response.
type InstallationCreator interface {
	CreateInstallation(ctx context.Context, w http.ResponseWriter, installation *github.Installation, req *model.WebhookRequest) error
}

// SettingsUpdater watches events for changes to an installation's settings
// file. It never writes the HTTP response.
type SettingsUpdater interface {
	UpdateSettings(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error
}

// RuleRunner executes the installation's rules for an event and authors the
// HTTP response.
type RuleRunner interface {
	RunRules(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error
}

// InstallationLifecycle creates or deletes installation records
type InstallationLifecycle interface {
	Create(ctx context.Context, w http.ResponseWriter, installation *github.Installation, req *model.WebhookRequest) error

	// Delete issues the storage delete without waiting for it; no response is written
	Delete(ctx context.Context, installationID int64)
}

// EventDelegate receives every event that has no dedicated handler
type EventDelegate interface {
	Delegate(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error
}

// WebhookDispatcher applies the signature verdict and routes a webhook
type WebhookDispatcher interface {
	Dispatch(ctx context.Context, w http.ResponseWriter, auth model.AuthResult, req *model.WebhookRequest) (model.DispatchOutcome, error)
}
