package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/infra/github"
	"github.com/urfave/cli/v3"
)

// GitHub holds GitHub App configuration
type GitHub struct {
	WebhookSecret string `masq:"secret"`
	AppID         int64
	PrivateKey    string `masq:"secret"`
	BaseURL       string
	SettingsRepo  string
	SettingsPath  string
}

// Flags returns CLI flags for GitHub configuration
func (c *GitHub) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "github-webhook-secret",
			Usage:       "GitHub App webhook secret",
			Required:    true,
			Destination: &c.WebhookSecret,
			Sources:     cli.EnvVars("HOOKWARDEN_GITHUB_WEBHOOK_SECRET", "PERIL_WEBHOOK_SECRET"),
		},
		&cli.Int64Flag{
			Name:        "github-app-id",
			Usage:       "GitHub App ID, required to read settings files",
			Destination: &c.AppID,
			Sources:     cli.EnvVars("HOOKWARDEN_GITHUB_APP_ID"),
		},
		&cli.StringFlag{
			Name:        "github-private-key",
			Usage:       "GitHub App private key (PEM content or path to PEM file)",
			Destination: &c.PrivateKey,
			Sources:     cli.EnvVars("HOOKWARDEN_GITHUB_PRIVATE_KEY"),
		},
		&cli.StringFlag{
			Name:        "github-base-url",
			Usage:       "GitHub Enterprise API base URL",
			Destination: &c.BaseURL,
			Sources:     cli.EnvVars("HOOKWARDEN_GITHUB_BASE_URL"),
		},
		&cli.StringFlag{
			Name:        "settings-repo",
			Usage:       "Repository name holding installation settings",
			Value:       "peril-settings",
			Destination: &c.SettingsRepo,
			Sources:     cli.EnvVars("HOOKWARDEN_SETTINGS_REPO"),
		},
		&cli.StringFlag{
			Name:        "settings-path",
			Usage:       "Settings file path inside the settings repository",
			Value:       "settings.json",
			Destination: &c.SettingsPath,
			Sources:     cli.EnvVars("HOOKWARDEN_SETTINGS_PATH"),
		},
	}
}

// NewClient builds the GitHub App client. It returns nil when no App ID is
// configured.
func (c *GitHub) NewClient() (interfaces.GitHubClient, error) {
	if c.AppID == 0 {
		return nil, nil
	}
	if c.PrivateKey == "" {
		return nil, goerr.New("github-private-key is required when github-app-id is set", goerr.V("app_id", c.AppID))
	}

	var opts []github.Option
	if c.BaseURL != "" {
		opts = append(opts, github.WithBaseURL(c.BaseURL))
	}

	client, err := github.NewClientFromConfig(c.AppID, c.PrivateKey, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create GitHub App client", goerr.V("app_id", c.AppID))
	}
	return client, nil
}
