package slack

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Notifier posts installation notices to a Slack channel
type Notifier struct {
	client  *slack.Client
	channel string
}

var _ interfaces.Notifier = (*Notifier)(nil)

// New creates a Notifier. opts are passed to the Slack client, e.g.
// slack.OptionAPIURL for tests.
func New(token, channel string, opts ...slack.Option) (*Notifier, error) {
	if token == "" {
		return nil, goerr.New("slack token is required")
	}
	if channel == "" {
		return nil, goerr.New("slack channel is required")
	}
	return &Notifier{
		client:  slack.New(token, opts...),
		channel: channel,
	}, nil
}

func (n *Notifier) NotifyInstallation(ctx context.Context, installation *model.Installation) error {
	text := fmt.Sprintf(":wave: GitHub App installed by *%s* (%s, installation %d)",
		installation.Login, installation.AccountType, installation.ID)

	if _, _, err := n.client.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false)); err != nil {
		return goerr.Wrap(err, "failed to post slack message",
			goerr.V("channel", n.channel),
			goerr.V("installation_id", installation.ID),
		)
	}
	return nil
}
