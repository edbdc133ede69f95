package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// Log is a RuleExecutor that only records the run. It is the default when
// no external runner is configured.
type Log struct {
	logger *slog.Logger
}

var _ interfaces.RuleExecutor = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "log_executor")}
}

func (x *Log) Execute(ctx context.Context, run *model.RuleRun, payload []byte) (*model.RunReport, error) {
	started := time.Now().UTC()
	x.logger.InfoContext(ctx, "Rule run recorded",
		"run_id", run.ID,
		"installation_id", run.InstallationID,
		"event", run.Event,
		"action", run.Action,
		"repository", run.Repository,
		"rule", run.Rule,
		"payload_size", len(payload),
	)
	return &model.RunReport{
		Run:        *run,
		Status:     model.RuleRunSucceeded,
		Message:    "recorded without execution",
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}, nil
}
