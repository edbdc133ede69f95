package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/utils/async"
	"github.com/m-mizutani/hookwarden/pkg/utils/errs"
)

const (
	DefaultSettingsRepo = "peril-settings"
	DefaultSettingsPath = "settings.json"
)

type installationCreator struct {
	repo         interfaces.InstallationRepository
	notifier     interfaces.Notifier
	settingsRepo string
	settingsPath string
	logger       *slog.Logger
	now          func() time.Time
}

// CreatorOption configures the installation creation workflow
type CreatorOption func(*installationCreator)

// WithNotifier announces new installations
func WithNotifier(n interfaces.Notifier) CreatorOption {
	return func(uc *installationCreator) {
		uc.notifier = n
	}
}

// WithSettingsLocation sets the repository name and file path used for the
// default settings ref of a new installation
func WithSettingsLocation(repo, path string) CreatorOption {
	return func(uc *installationCreator) {
		if repo != "" {
			uc.settingsRepo = repo
		}
		if path != "" {
			uc.settingsPath = path
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CreatorOption {
	return func(uc *installationCreator) {
		uc.now = now
	}
}

// NewInstallationCreator creates the workflow that stores a new installation
// and answers the webhook
func NewInstallationCreator(repo interfaces.InstallationRepository, logger *slog.Logger, opts ...CreatorOption) interfaces.InstallationCreator {
	uc := &installationCreator{
		repo:         repo,
		settingsRepo: DefaultSettingsRepo,
		settingsPath: DefaultSettingsPath,
		logger:       logger.With("component", "installation_creator"),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// InstallationResponse is the body returned for a created installation
type InstallationResponse struct {
	Status         string `json:"status"`
	InstallationID int64  `json:"installation_id"`
	SettingsRef    string `json:"settings_ref,omitempty"`
}

func (uc *installationCreator) CreateInstallation(ctx context.Context, w http.ResponseWriter, installation *github.Installation, req *model.WebhookRequest) error {
	now := uc.now().UTC()
	account := installation.GetAccount()

	record := &model.Installation{
		ID:                  installation.GetID(),
		Login:               account.GetLogin(),
		AccountType:         account.GetType(),
		AvatarURL:           account.GetAvatarURL(),
		RepositorySelection: installation.GetRepositorySelection(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if record.Login != "" {
		record.SettingsRef = fmt.Sprintf("%s/%s@%s", record.Login, uc.settingsRepo, uc.settingsPath)
	}

	if err := uc.repo.CreateInstallation(ctx, record); err != nil {
		if goerr.HasTag(err, model.ErrTagInstallationExists) {
			uc.logger.InfoContext(ctx, "Installation already exists",
				"installation_id", record.ID,
				"delivery_id", req.DeliveryID,
			)
			writeJSON(w, uc.logger, http.StatusOK, &InstallationResponse{
				Status:         "exists",
				InstallationID: record.ID,
			})
			return nil
		}
		return goerr.Wrap(err, "failed to store installation",
			goerr.V("installation_id", record.ID),
			goerr.V("login", record.Login),
		)
	}

	uc.logger.InfoContext(ctx, "Created installation",
		"installation_id", record.ID,
		"login", record.Login,
		"settings_ref", record.SettingsRef,
	)

	writeJSON(w, uc.logger, http.StatusCreated, &InstallationResponse{
		Status:         "created",
		InstallationID: record.ID,
		SettingsRef:    record.SettingsRef,
	})

	if uc.notifier != nil {
		if err := uc.notifier.NotifyInstallation(ctx, record); err != nil {
			errs.Handle(ctx, uc.logger, "Failed to notify installation", err)
		}
	}

	return nil
}

type installationLifecycle struct {
	creator interfaces.InstallationCreator
	repo    interfaces.InstallationRepository
	logger  *slog.Logger
}

// NewInstallationLifecycle creates the handler for installation created and
// deleted events
func NewInstallationLifecycle(creator interfaces.InstallationCreator, repo interfaces.InstallationRepository, logger *slog.Logger) interfaces.InstallationLifecycle {
	return &installationLifecycle{
		creator: creator,
		repo:    repo,
		logger:  logger.With("component", "installation_lifecycle"),
	}
}

// Create hands the installation to the creation workflow, which owns the
// response and duplicate handling
func (uc *installationLifecycle) Create(ctx context.Context, w http.ResponseWriter, installation *github.Installation, req *model.WebhookRequest) error {
	uc.logger.InfoContext(ctx, "Creating new installation", "installation_id", installation.GetID())
	return uc.creator.CreateInstallation(ctx, w, installation, req)
}

// Delete removes the installation record in the background
func (uc *installationLifecycle) Delete(ctx context.Context, installationID int64) {
	uc.logger.InfoContext(ctx, "Deleting installation", "installation_id", installationID)

	async.Dispatch(ctx, uc.logger, func(ctx context.Context) error {
		if err := uc.repo.DeleteInstallation(ctx, installationID); err != nil {
			return goerr.Wrap(err, "failed to delete installation", goerr.V("installation_id", installationID))
		}
		return nil
	})
}
