package config

import (
	"log/slog"

	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/infra/executor"
	"github.com/urfave/cli/v3"
)

// Rules holds rule executor configuration
type Rules struct {
	ExecutorURL    string
	ExecutorSecret string `masq:"secret"`
}

// Flags returns CLI flags for rule execution
func (c *Rules) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "executor-url",
			Usage:       "Endpoint of the external rule runner. Runs are only logged when empty",
			Destination: &c.ExecutorURL,
			Sources:     cli.EnvVars("HOOKWARDEN_EXECUTOR_URL"),
		},
		&cli.StringFlag{
			Name:        "executor-secret",
			Usage:       "HMAC secret used to sign requests to the rule runner",
			Destination: &c.ExecutorSecret,
			Sources:     cli.EnvVars("HOOKWARDEN_EXECUTOR_SECRET"),
		},
	}
}

// NewExecutor returns the HTTP executor, or the logging executor when no
// endpoint is configured
func (c *Rules) NewExecutor(logger *slog.Logger) interfaces.RuleExecutor {
	if c.ExecutorURL == "" {
		return executor.NewLog(logger)
	}
	return executor.NewHTTP(c.ExecutorURL, c.ExecutorSecret, nil)
}
