package usecase

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/utils/async"
	"github.com/m-mizutani/hookwarden/pkg/utils/errs"
	"github.com/m-mizutani/hookwarden/pkg/utils/metrics"
)

type ruleRunner struct {
	repo     interfaces.InstallationRepository
	executor interfaces.RuleExecutor
	reports  interfaces.ReportStore
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// RunnerOption configures the rule runner
type RunnerOption func(*ruleRunner)

// WithReportStore archives every run report
func WithReportStore(store interfaces.ReportStore) RunnerOption {
	return func(uc *ruleRunner) {
		uc.reports = store
	}
}

// WithRunIDGenerator replaces the uuid based run id generator
func WithRunIDGenerator(fn func() string) RunnerOption {
	return func(uc *ruleRunner) {
		uc.newID = fn
	}
}

// NewRuleRunner creates the runner that executes the rules configured for an
// installation against incoming events
func NewRuleRunner(repo interfaces.InstallationRepository, executor interfaces.RuleExecutor, logger *slog.Logger, opts ...RunnerOption) interfaces.RuleRunner {
	uc := &ruleRunner{
		repo:     repo,
		executor: executor,
		logger:   logger.With("component", "rule_runner"),
		newID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// RunResponse is the body returned by the rule runner
type RunResponse struct {
	Status string   `json:"status"`
	Reason string   `json:"reason,omitempty"`
	Runs   []string `json:"runs,omitempty"`
}

func (uc *ruleRunner) RunRules(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error {
	if event.InstallationID == 0 {
		uc.logger.DebugContext(ctx, "Event has no installation", "event_type", event.Name, "delivery_id", req.DeliveryID)
		writeJSON(w, uc.logger, http.StatusOK, &RunResponse{Status: "skipped", Reason: "no installation in payload"})
		return nil
	}

	installation, err := uc.repo.GetInstallation(ctx, event.InstallationID)
	if err != nil {
		return goerr.Wrap(err, "failed to load installation", goerr.V("installation_id", event.InstallationID))
	}
	if installation == nil {
		uc.logger.WarnContext(ctx, "Could not find installation",
			"installation_id", event.InstallationID,
			"event_type", event.Name,
		)
		writeJSON(w, uc.logger, http.StatusNotFound, &RunResponse{Status: "error", Reason: "could not find installation"})
		return nil
	}

	if event.Repository != "" && installation.Settings.IsIgnored(event.Repository) {
		writeJSON(w, uc.logger, http.StatusOK, &RunResponse{Status: "ignored", Reason: "repository is ignored"})
		return nil
	}

	matches := installation.Settings.MatchRules(event)
	if len(matches) == 0 {
		uc.logger.DebugContext(ctx, "No rules matched",
			"installation_id", installation.ID,
			"selector", event.Selector(),
		)
		writeJSON(w, uc.logger, http.StatusOK, &RunResponse{Status: "skipped", Reason: "no matching rules"})
		return nil
	}

	now := uc.now().UTC()
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		run := &model.RuleRun{
			ID:             uc.newID(),
			InstallationID: installation.ID,
			DeliveryID:     req.DeliveryID,
			Event:          event.Name,
			Action:         event.Action,
			Repository:     event.Repository,
			Selector:       m.Selector,
			Rule:           m.Rule,
			EnvVars:        installation.Settings.Options.EnvVars,
			CreatedAt:      now,
		}
		ids = append(ids, run.ID)

		uc.logger.InfoContext(ctx, "Starting rule run",
			"run_id", run.ID,
			"installation_id", run.InstallationID,
			"selector", run.Selector,
			"rule", run.Rule,
		)
		async.Dispatch(ctx, uc.logger, func(ctx context.Context) error {
			return uc.execute(ctx, run, req.Payload)
		})
	}

	writeJSON(w, uc.logger, http.StatusAccepted, &RunResponse{Status: "accepted", Runs: ids})
	return nil
}

func (uc *ruleRunner) execute(ctx context.Context, run *model.RuleRun, payload []byte) error {
	report, err := uc.executor.Execute(ctx, run, payload)
	if report == nil && err != nil {
		report = &model.RunReport{
			Run:        *run,
			Status:     model.RuleRunFailed,
			Message:    err.Error(),
			FinishedAt: uc.now().UTC(),
		}
	}
	if report != nil {
		metrics.RuleRuns.WithLabelValues(string(report.Status)).Inc()
		if uc.reports != nil {
			if putErr := uc.reports.PutReport(ctx, report); putErr != nil {
				errs.Handle(ctx, uc.logger, "Failed to archive run report", putErr)
			}
		}
	}
	if err != nil {
		return goerr.Wrap(err, "rule run failed",
			goerr.V("run_id", run.ID),
			goerr.V("rule", run.Rule),
		)
	}

	uc.logger.InfoContext(ctx, "Finished rule run",
		"run_id", run.ID,
		"status", report.Status,
	)
	return nil
}
