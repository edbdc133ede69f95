package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds installation notice configuration
type Slack struct {
	Token   string `masq:"secret"`
	Channel string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-token",
			Usage:       "Slack bot token for installation notices",
			Destination: &c.Token,
			Sources:     cli.EnvVars("HOOKWARDEN_SLACK_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel ID for installation notices",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("HOOKWARDEN_SLACK_CHANNEL"),
		},
	}
}

// NewNotifier returns nil when no token is configured
func (c *Slack) NewNotifier() (interfaces.Notifier, error) {
	if c.Token == "" {
		return nil, nil
	}

	notifier, err := slack.New(c.Token, c.Channel)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Slack notifier", goerr.V("channel", c.Channel))
	}
	return notifier, nil
}
