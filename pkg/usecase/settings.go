package usecase

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

type settingsUpdater struct {
	repo   interfaces.InstallationRepository
	github interfaces.GitHubClient
	logger *slog.Logger
}

// NewSettingsUpdater creates the watcher that refreshes stored settings when
// a push changes an installation's settings file. githubClient may be nil, in
// which case a matching push is reported as an error.
func NewSettingsUpdater(repo interfaces.InstallationRepository, githubClient interfaces.GitHubClient, logger *slog.Logger) interfaces.SettingsUpdater {
	return &settingsUpdater{
		repo:   repo,
		github: githubClient,
		logger: logger.With("component", "settings_updater"),
	}
}

func (uc *settingsUpdater) UpdateSettings(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error {
	if event.Name != types.EventPush || event.InstallationID == 0 {
		return nil
	}

	installation, err := uc.repo.GetInstallation(ctx, event.InstallationID)
	if err != nil {
		return goerr.Wrap(err, "failed to load installation for settings check")
	}
	if installation == nil || installation.SettingsRef == "" {
		return nil
	}

	loc, err := model.ParseSettingsRef(installation.SettingsRef)
	if err != nil {
		return goerr.Wrap(err, "stored settings ref is invalid", goerr.V("installation_id", installation.ID))
	}
	if !strings.EqualFold(event.Repository, loc.FullName()) {
		return nil
	}

	parsed, err := github.ParseWebHook(types.EventPush, req.Payload)
	if err != nil {
		return goerr.Wrap(err, "failed to decode push payload", goerr.T(model.ErrTagMalformedPayload))
	}
	push, ok := parsed.(*github.PushEvent)
	if !ok {
		return goerr.New("unexpected push payload type", goerr.T(model.ErrTagMalformedPayload))
	}

	if !touchesDefaultBranch(push) || !touchesFile(push, loc.Path) {
		return nil
	}

	if uc.github == nil {
		return goerr.New("settings file changed but GitHub App client is not configured",
			goerr.V("installation_id", installation.ID),
			goerr.V("settings_ref", installation.SettingsRef),
		)
	}

	content, err := uc.github.GetFileContent(ctx, installation.ID, loc.Owner, loc.Repo, loc.Path, push.GetAfter())
	if err != nil {
		return goerr.Wrap(err, "failed to fetch settings file", goerr.V("settings_ref", installation.SettingsRef))
	}

	settings, err := ParseSettings(loc.Path, content)
	if err != nil {
		return goerr.Wrap(err, "failed to parse settings file", goerr.V("settings_ref", installation.SettingsRef))
	}

	if err := uc.repo.UpdateSettings(ctx, installation.ID, settings); err != nil {
		return goerr.Wrap(err, "failed to save settings", goerr.V("installation_id", installation.ID))
	}

	uc.logger.InfoContext(ctx, "Updated installation settings",
		"installation_id", installation.ID,
		"settings_ref", installation.SettingsRef,
		"commit", push.GetAfter(),
		"rules", len(settings.Rules),
		"repos", len(settings.Repos),
	)
	return nil
}

func touchesDefaultBranch(push *github.PushEvent) bool {
	branch := push.GetRepo().GetDefaultBranch()
	return branch != "" && push.GetRef() == "refs/heads/"+branch
}

func touchesFile(push *github.PushEvent, file string) bool {
	commits := slices.Clone(push.Commits)
	if push.HeadCommit != nil {
		commits = append(commits, push.HeadCommit)
	}
	for _, c := range commits {
		if slices.Contains(c.Added, file) || slices.Contains(c.Modified, file) {
			return true
		}
	}
	return false
}

// ParseSettings decodes a settings file. The format is chosen by extension:
// .toml, .yaml/.yml, otherwise JSON with comments and trailing commas allowed.
func ParseSettings(filename string, data []byte) (*model.Settings, error) {
	var settings model.Settings

	switch strings.ToLower(path.Ext(filename)) {
	case ".toml":
		if err := toml.Unmarshal(data, &settings); err != nil {
			return nil, goerr.Wrap(err, "invalid TOML settings", goerr.V("file", filename))
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return nil, goerr.Wrap(err, "invalid YAML settings", goerr.V("file", filename))
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &settings); err != nil {
			return nil, goerr.Wrap(err, "invalid JSON settings", goerr.V("file", filename))
		}
	}

	return &settings, nil
}
