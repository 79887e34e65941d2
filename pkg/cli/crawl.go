package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/cli/config"
	"github.com/secmon-lab/iris/pkg/domain/model"
	"github.com/secmon-lab/iris/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdCrawl() *cli.Command {
	var appCfg config.App
	var slackCfg config.Slack
	var filter model.HistoryFilter
	var token string
	var asJSON bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "token",
			Usage:       "Slack token used instead of the bot token",
			Sources:     cli.EnvVars("IRIS_TOKEN"),
			Destination: &token,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Maximum number of messages per channel",
			Destination: &filter.Limit,
		},
		&cli.StringFlag{
			Name:        "oldest",
			Usage:       "Only messages after this timestamp",
			Destination: &filter.Oldest,
		},
		&cli.StringFlag{
			Name:        "latest",
			Usage:       "Only messages before this timestamp",
			Destination: &filter.Latest,
		},
		&cli.BoolFlag{
			Name:        "inclusive",
			Usage:       "Include messages with oldest or latest timestamps",
			Destination: &filter.Inclusive,
		},
		&cli.StringFlag{
			Name:        "cursor",
			Usage:       "Pagination cursor",
			Destination: &filter.Cursor,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the crawl result as JSON",
			Destination: &asJSON,
		},
	}
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)

	return &cli.Command{
		Name:      "crawl",
		Usage:     "Crawl channels once and print their messages",
		ArgsUsage: "<channel ID>...",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			channelIDs := c.Args().Slice()
			if len(channelIDs) == 0 {
				return goerr.Wrap(usecase.ErrChannelsRequired, "specify at least one channel ID")
			}

			uc, _, err := buildUseCases(&appCfg, &slackCfg)
			if err != nil {
				return err
			}

			ws, err := uc.Workspace(token)
			if err != nil {
				return goerr.Wrap(err, "failed to prepare workspace")
			}

			results := ws.Crawl(ctx, channelIDs, filter)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return goerr.Wrap(err, "failed to encode crawl result")
				}
				return nil
			}

			printChannels(os.Stdout, results)
			return nil
		},
	}
}

var (
	channelColor = color.New(color.FgCyan, color.Bold)
	authorColor  = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	timeColor    = color.New(color.Faint)
)

func printChannels(w io.Writer, results []*model.ChannelMessages) {
	for _, result := range results {
		channelColor.Fprintf(w, "# %s\n", result.ChannelID)
		if result.Failed() {
			errorColor.Fprintf(w, "  error: %s\n", result.Error)
			continue
		}
		for _, msg := range result.Messages {
			printMessage(w, msg, "")
			for _, reply := range msg.Replies {
				printMessage(w, reply, "    ")
			}
			if msg.ReplyError != "" {
				errorColor.Fprintf(w, "    (replies unavailable: %s)\n", msg.ReplyError)
			}
		}
		if result.HasMore {
			fmt.Fprintf(w, "  ... more messages, next cursor: %s\n", result.NextCursor)
		}
	}
}

func printMessage(w io.Writer, msg *model.NormalizedMessage, indent string) {
	name := model.UnknownUserName
	if msg.User != nil {
		name = msg.User.DisplayName
	}
	fmt.Fprintf(w, "%s%s %s: %s\n",
		indent,
		timeColor.Sprintf("[%s]", msg.Timestamp),
		authorColor.Sprint(name),
		msg.Text,
	)
}
