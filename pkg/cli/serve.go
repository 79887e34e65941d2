package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/iris/pkg/cli/config"
	httpctrl "github.com/secmon-lab/iris/pkg/controller/http"
	"github.com/secmon-lab/iris/pkg/service/slack"
	"github.com/secmon-lab/iris/pkg/service/worker"
	"github.com/secmon-lab/iris/pkg/usecase"
	"github.com/secmon-lab/iris/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// buildUseCases wires the Slack services and the configuration file into the use
// cases. The bot service is nil when no bot token is configured.
func buildUseCases(appCfg *config.App, slackCfg *config.Slack) (*usecase.UseCases, slack.Service, error) {
	cfg, err := appCfg.Configure()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to load configuration")
	}

	wsOpts, err := cfg.WorkspaceOptions()
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to build workspace options")
	}

	ucOpts := []usecase.Option{
		usecase.WithFactory(slackCfg.NewFactory()),
		usecase.WithWorkspaceOptions(wsOpts...),
	}

	bot, err := slackCfg.NewBotService()
	if err != nil {
		return nil, nil, err
	}
	if bot != nil {
		ucOpts = append(ucOpts, usecase.WithBotService(bot))
		logging.Default().Info("Slack bot token configured, requests without token use it")
	} else {
		logging.Default().Info("Slack bot token not configured, every request must carry a token")
	}

	return usecase.New(ucOpts...), bot, nil
}

func cmdServe(version string) *cli.Command {
	var addr string
	var enableEvents bool
	var refreshInterval time.Duration
	var appCfg config.App
	var slackCfg config.Slack
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("IRIS_ADDR"),
			Destination: &addr,
		},
		&cli.BoolFlag{
			Name:        "slack-events",
			Usage:       "Enable the Slack Events API endpoint (/slack/events)",
			Value:       true,
			Category:    "Slack",
			Sources:     cli.EnvVars("IRIS_SLACK_EVENTS"),
			Destination: &enableEvents,
		},
		&cli.DurationFlag{
			Name:        "identity-refresh-interval",
			Usage:       "Interval of refreshing cached user profiles with the bot token (0 disables)",
			Category:    "Slack",
			Sources:     cli.EnvVars("IRIS_IDENTITY_REFRESH_INTERVAL"),
			Destination: &refreshInterval,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logging.Default().Info("Configuration",
				"app", appCfg,
				"slack", slackCfg,
				"sentry", sentryCfg,
			)

			flush, err := sentryCfg.Configure(version)
			if err != nil {
				return err
			}
			defer flush()

			uc, bot, err := buildUseCases(&appCfg, &slackCfg)
			if err != nil {
				return err
			}

			// N+1 prevention: one users.list per interval instead of users.info per member
			var refreshWorker *worker.IdentityRefreshWorker
			if bot != nil && refreshInterval > 0 {
				refreshWorker = worker.NewIdentityRefreshWorker(bot, uc.Identities(), refreshInterval)
				if err := refreshWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start identity refresh worker")
				}
			}

			var serverOpts []httpctrl.Options
			if enableEvents {
				serverOpts = append(serverOpts, httpctrl.WithSlackEvents(slackCfg.SigningSecret()))
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc, serverOpts...),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Channel to receive server errors
			errCh := make(chan error, 1)

			// Setup signal handling
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			// Start server in goroutine
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "slack_events", enableEvents)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				logging.Default().Info("Context cancelled, shutting down")
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)
			}

			if refreshWorker != nil {
				refreshWorker.Stop()
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logging.Default().Info("Server shutdown completed", "cached_identities", uc.Identities().Len())
			return nil
		},
	}
}
