package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/infra/memory"
	"github.com/m-mizutani/hookwarden/pkg/usecase"
)

type MockExecutor struct {
	mu       sync.Mutex
	runs     []*model.RuleRun
	payloads [][]byte
	err      error
	noReport bool
}

func (m *MockExecutor) Execute(ctx context.Context, run *model.RuleRun, payload []byte) (*model.RunReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	m.payloads = append(m.payloads, payload)

	if m.noReport {
		return nil, m.err
	}
	status := model.RuleRunSucceeded
	if m.err != nil {
		status = model.RuleRunFailed
	}
	return &model.RunReport{Run: *run, Status: status}, m.err
}

func (m *MockExecutor) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

type MockReportStore struct {
	mu      sync.Mutex
	reports []*model.RunReport
}

func (m *MockReportStore) PutReport(ctx context.Context, report *model.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, report)
	return nil
}

func (m *MockReportStore) snapshot() []*model.RunReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.RunReport(nil), m.reports...)
}

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("run-%d", n)
	}
}

func setupRulesRepo(t *testing.T) *memory.InstallationRepository {
	t.Helper()
	ctx := context.Background()
	repo := memory.NewInstallationRepository()
	gt.NoError(t, repo.CreateInstallation(ctx, &model.Installation{ID: 1, Login: "octo-org"}))
	gt.NoError(t, repo.UpdateSettings(ctx, 1, &model.Settings{
		Rules: map[string]string{
			"pull_request": "octo-org/peril-settings@rules/pr.ts",
		},
		Repos: map[string]map[string]string{
			"octo-org/app": {"pull_request.opened": "octo-org/app@peril/new_pr.ts"},
		},
		Options: model.SettingsOptions{
			IgnoredRepos: []string{"octo-org/legacy"},
			EnvVars:      []string{"SLACK_WEBHOOK_URL"},
		},
	}))
	return repo
}

func TestRuleRunner_Responses(t *testing.T) {
	tests := []struct {
		name       string
		event      *model.GenericEvent
		wantStatus int
		wantBody   usecase.RunResponse
	}{
		{
			name:       "No installation in payload",
			event:      &model.GenericEvent{Name: "pull_request", Action: "opened"},
			wantStatus: http.StatusOK,
			wantBody:   usecase.RunResponse{Status: "skipped", Reason: "no installation in payload"},
		},
		{
			name:       "Unknown installation",
			event:      &model.GenericEvent{Name: "pull_request", Action: "opened", InstallationID: 404},
			wantStatus: http.StatusNotFound,
			wantBody:   usecase.RunResponse{Status: "error", Reason: "could not find installation"},
		},
		{
			name:       "Ignored repository",
			event:      &model.GenericEvent{Name: "pull_request", Action: "opened", InstallationID: 1, Repository: "octo-org/legacy"},
			wantStatus: http.StatusOK,
			wantBody:   usecase.RunResponse{Status: "ignored", Reason: "repository is ignored"},
		},
		{
			name:       "No matching rules",
			event:      &model.GenericEvent{Name: "issues", Action: "opened", InstallationID: 1, Repository: "octo-org/app"},
			wantStatus: http.StatusOK,
			wantBody:   usecase.RunResponse{Status: "skipped", Reason: "no matching rules"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &MockExecutor{}
			uc := usecase.NewRuleRunner(setupRulesRepo(t), executor, discardLogger())

			w := httptest.NewRecorder()
			err := uc.RunRules(context.Background(), w, &model.WebhookRequest{EventType: tt.event.Name}, tt.event)
			gt.NoError(t, err)
			gt.Number(t, w.Code).Equal(tt.wantStatus)

			var body usecase.RunResponse
			gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			gt.Value(t, body).Equal(tt.wantBody)
			gt.Number(t, executor.count()).Equal(0)
		})
	}
}

func TestRuleRunner_RunsMatchingRules(t *testing.T) {
	executor := &MockExecutor{}
	reports := &MockReportStore{}
	uc := usecase.NewRuleRunner(setupRulesRepo(t), executor, discardLogger(),
		usecase.WithReportStore(reports),
		usecase.WithRunIDGenerator(sequentialIDs()),
	)

	payload := []byte(`{"action":"opened","installation":{"id":1},"repository":{"full_name":"octo-org/app"}}`)
	event := &model.GenericEvent{Name: "pull_request", Action: "opened", InstallationID: 1, Repository: "octo-org/app"}

	w := httptest.NewRecorder()
	err := uc.RunRules(context.Background(), w, &model.WebhookRequest{EventType: "pull_request", DeliveryID: "d-1", Payload: payload}, event)
	gt.NoError(t, err)
	gt.Number(t, w.Code).Equal(http.StatusAccepted)

	var body usecase.RunResponse
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	gt.String(t, body.Status).Equal("accepted")
	gt.Value(t, body.Runs).Equal([]string{"run-1", "run-2"})

	waitFor(t, func() bool { return len(reports.snapshot()) == 2 })

	executor.mu.Lock()
	defer executor.mu.Unlock()
	rules := map[string]*model.RuleRun{}
	for i, run := range executor.runs {
		rules[run.Rule] = run
		gt.String(t, string(executor.payloads[i])).Equal(string(payload))
	}

	org := rules["octo-org/peril-settings@rules/pr.ts"]
	gt.NotNil(t, org)
	gt.String(t, org.Selector).Equal("pull_request")
	gt.String(t, org.DeliveryID).Equal("d-1")
	gt.Value(t, org.EnvVars).Equal([]string{"SLACK_WEBHOOK_URL"})

	repoRule := rules["octo-org/app@peril/new_pr.ts"]
	gt.NotNil(t, repoRule)
	gt.String(t, repoRule.Selector).Equal("pull_request.opened")
	gt.String(t, repoRule.Repository).Equal("octo-org/app")

	for _, report := range reports.snapshot() {
		gt.Value(t, report.Status).Equal(model.RuleRunSucceeded)
	}
}

func TestRuleRunner_ExecutorFailure(t *testing.T) {
	tests := []struct {
		name     string
		noReport bool
	}{
		{name: "Executor returns failed report", noReport: false},
		{name: "Executor returns no report", noReport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := &MockExecutor{err: errors.New("runner unreachable"), noReport: tt.noReport}
			reports := &MockReportStore{}
			uc := usecase.NewRuleRunner(setupRulesRepo(t), executor, discardLogger(), usecase.WithReportStore(reports))

			event := &model.GenericEvent{Name: "pull_request", Action: "closed", InstallationID: 1, Repository: "octo-org/other"}
			w := httptest.NewRecorder()
			gt.NoError(t, uc.RunRules(context.Background(), w, &model.WebhookRequest{}, event))
			gt.Number(t, w.Code).Equal(http.StatusAccepted)

			waitFor(t, func() bool { return len(reports.snapshot()) == 1 })
			report := reports.snapshot()[0]
			gt.Value(t, report.Status).Equal(model.RuleRunFailed)
			gt.String(t, report.Run.Rule).Equal("octo-org/peril-settings@rules/pr.ts")
		})
	}
}

func TestRuleRunner_RepositoryError(t *testing.T) {
	uc := usecase.NewRuleRunner(&failingRepository{err: errors.New("firestore unavailable")}, &MockExecutor{}, discardLogger())

	w := httptest.NewRecorder()
	err := uc.RunRules(context.Background(), w, &model.WebhookRequest{}, &model.GenericEvent{Name: "issues", InstallationID: 1})
	gt.Error(t, err)
	gt.Number(t, w.Body.Len()).Equal(0)
}
