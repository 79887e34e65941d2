package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/service/slack"
	"github.com/urfave/cli/v3"
)

type Slack struct {
	botToken      string
	signingSecret string
	apiURL        string
	pageSize      int
}

func (x *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-bot-token",
			Usage:       "Slack Bot User OAuth Token, used when a request carries no token",
			Category:    "Slack",
			Destination: &x.botToken,
			Sources:     cli.EnvVars("IRIS_SLACK_BOT_TOKEN"),
		},
		&cli.StringFlag{
			Name:        "slack-signing-secret",
			Usage:       "Slack Signing Secret (for event webhook verification)",
			Category:    "Slack",
			Destination: &x.signingSecret,
			Sources:     cli.EnvVars("IRIS_SLACK_SIGNING_SECRET"),
		},
		&cli.StringFlag{
			Name:        "slack-api-url",
			Usage:       "Slack Web API base URL (for testing against a stub)",
			Category:    "Slack",
			Destination: &x.apiURL,
			Sources:     cli.EnvVars("IRIS_SLACK_API_URL"),
		},
		&cli.IntFlag{
			Name:        "slack-page-size",
			Usage:       "Page size of paginated Slack API calls",
			Category:    "Slack",
			Value:       slack.DefaultPageSize,
			Destination: &x.pageSize,
			Sources:     cli.EnvVars("IRIS_SLACK_PAGE_SIZE"),
		},
	}
}

func (x Slack) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("bot-token.len", len(x.botToken)),
		slog.Int("signing-secret.len", len(x.signingSecret)),
		slog.String("api-url", x.apiURL),
		slog.Int("page-size", x.pageSize),
	)
}

// BotToken returns the server's own token, empty when not configured
func (x *Slack) BotToken() string {
	return x.botToken
}

// SigningSecret returns the signing secret of the Slack app
func (x *Slack) SigningSecret() string {
	return x.signingSecret
}

func (x *Slack) options() []slack.Option {
	var opts []slack.Option
	if x.apiURL != "" {
		opts = append(opts, slack.WithAPIURL(x.apiURL))
	}
	if x.pageSize > 0 {
		opts = append(opts, slack.WithPageSize(x.pageSize))
	}
	return opts
}

// NewFactory returns the factory building services for request tokens
func (x *Slack) NewFactory() slack.Factory {
	return slack.NewFactory(x.options()...)
}

// NewBotService returns the service of the bot token, or nil when no bot token is set
func (x *Slack) NewBotService() (slack.Service, error) {
	if x.botToken == "" {
		return nil, nil
	}

	svc, err := slack.New(x.botToken, x.options()...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create slack bot service")
	}
	return svc, nil
}
