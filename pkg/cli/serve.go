package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/cli/config"
	githubcontroller "github.com/m-mizutani/hookwarden/pkg/controller/github"
	controller "github.com/m-mizutani/hookwarden/pkg/controller/http"
	"github.com/m-mizutani/hookwarden/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe(getLogger func() *slog.Logger) *cli.Command {
	var (
		serverCfg    config.Server
		githubCfg    config.GitHub
		firestoreCfg config.Firestore
		storageCfg   config.Storage
		sentryCfg    config.Sentry
		slackCfg     config.Slack
		rulesCfg     config.Rules
	)

	var flags []cli.Flag
	flags = append(flags, serverCfg.Flags()...)
	flags = append(flags, githubCfg.Flags()...)
	flags = append(flags, firestoreCfg.Flags()...)
	flags = append(flags, storageCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)
	flags = append(flags, slackCfg.Flags()...)
	flags = append(flags, rulesCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := getLogger()

			logger.Info("Starting hookwarden server",
				slog.String("addr", serverCfg.Addr),
				slog.String("webhook_path", serverCfg.WebhookPath),
				slog.Any("github", githubCfg),
			)

			flush, err := sentryCfg.Configure()
			if err != nil {
				return err
			}
			defer flush()

			repo, closeRepo, err := firestoreCfg.NewRepository(ctx)
			if err != nil {
				return err
			}
			defer closeRepo()

			reports, closeReports, err := storageCfg.NewReportStore(ctx)
			if err != nil {
				return err
			}
			defer closeReports()

			githubClient, err := githubCfg.NewClient()
			if err != nil {
				return err
			}
			if githubClient == nil {
				logger.Warn("GitHub App ID is not set, settings files will not be refreshed")
			}

			notifier, err := slackCfg.NewNotifier()
			if err != nil {
				return err
			}

			// Create use cases
			creatorOpts := []usecase.CreatorOption{
				usecase.WithSettingsLocation(githubCfg.SettingsRepo, githubCfg.SettingsPath),
			}
			if notifier != nil {
				creatorOpts = append(creatorOpts, usecase.WithNotifier(notifier))
			}
			creator := usecase.NewInstallationCreator(repo, logger, creatorOpts...)

			var runnerOpts []usecase.RunnerOption
			if reports != nil {
				runnerOpts = append(runnerOpts, usecase.WithReportStore(reports))
			}
			runner := usecase.NewRuleRunner(repo, rulesCfg.NewExecutor(logger), logger, runnerOpts...)

			dispatcher := githubcontroller.NewDispatcher(
				usecase.NewPinger(logger),
				usecase.NewInstallationLifecycle(creator, repo, logger),
				usecase.NewFallthroughDelegate(usecase.NewSettingsUpdater(repo, githubClient, logger), runner, logger),
				logger,
			)

			// Create HTTP server with options
			server, err := controller.NewServer(
				logger,
				dispatcher,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookPath(serverCfg.WebhookPath),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "HTTP server stopped", goerr.V("addr", serverCfg.Addr))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			case err := <-errCh:
				return err
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
