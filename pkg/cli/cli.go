package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/hookwarden/pkg/cli/config"
	"github.com/m-mizutani/hookwarden/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Run runs the CLI application
func Run(ctx context.Context, args []string) error {
	var loggerCfg config.Logger
	logger := slog.Default()

	app := &cli.Command{
		Name:    types.ServiceName,
		Usage:   "GitHub App webhook router that runs repository rules",
		Version: types.Version,
		Flags:   loggerCfg.Flags(),
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			configured, err := loggerCfg.Configure()
			if err != nil {
				return nil, err
			}

			logger = configured
			slog.SetDefault(logger)
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmdServe(func() *slog.Logger { return logger }),
		},
	}

	if err := app.Run(ctx, args); err != nil {
		logger.Error("CLI execution failed", slog.Any("error", err))
		return err
	}

	return nil
}
