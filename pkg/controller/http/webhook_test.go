package http_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/m-mizutani/gt"

	githubcontroller "github.com/m-mizutani/hookwarden/pkg/controller/github"
	controller "github.com/m-mizutani/hookwarden/pkg/controller/http"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
	"github.com/m-mizutani/hookwarden/pkg/infra/executor"
	"github.com/m-mizutani/hookwarden/pkg/infra/memory"
	"github.com/m-mizutani/hookwarden/pkg/usecase"
)

// generateSignature generates HMAC-SHA256 signature for testing
func generateSignature(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingDispatcher struct {
	calls []model.AuthResult
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, w http.ResponseWriter, auth model.AuthResult, req *model.WebhookRequest) (model.DispatchOutcome, error) {
	d.calls = append(d.calls, auth)
	return model.OutcomeDelegated, nil
}

// callLog records collaborator invocations in order
type callLog struct {
	mu    sync.Mutex
	calls []string
	reqs  []*model.WebhookRequest
}

func (l *callLog) add(name string, req *model.WebhookRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
	l.reqs = append(l.reqs, req)
}

func (l *callLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type mockPinger struct{ log *callLog }

func (m *mockPinger) Ping(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.PingEvent) error {
	m.log.add("ping", req)
	w.WriteHeader(http.StatusOK)
	return nil
}

type mockLifecycle struct {
	log       *callLog
	createErr error
	created   []int64
	deleted   []int64
}

func (m *mockLifecycle) Create(ctx context.Context, w http.ResponseWriter, installation *github.Installation, req *model.WebhookRequest) error {
	m.log.add("create", req)
	m.created = append(m.created, installation.GetID())
	return m.createErr
}

func (m *mockLifecycle) Delete(ctx context.Context, installationID int64) {
	m.log.add("delete", nil)
	m.deleted = append(m.deleted, installationID)
}

type mockSettings struct{ log *callLog }

func (m *mockSettings) UpdateSettings(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error {
	m.log.add("settings", req)
	return nil
}

type mockRules struct{ log *callLog }

func (m *mockRules) RunRules(ctx context.Context, w http.ResponseWriter, req *model.WebhookRequest, event *model.GenericEvent) error {
	m.log.add("rules", req)
	w.WriteHeader(http.StatusAccepted)
	return nil
}

type testHarness struct {
	log       *callLog
	lifecycle *mockLifecycle
	handler   *controller.WebhookHandler
}

func newHarness(secret string) *testHarness {
	log := &callLog{}
	lifecycle := &mockLifecycle{log: log}
	logger := discardLogger()
	delegate := usecase.NewFallthroughDelegate(&mockSettings{log: log}, &mockRules{log: log}, logger)
	dispatcher := githubcontroller.NewDispatcher(&mockPinger{log: log}, lifecycle, delegate, logger)

	return &testHarness{
		log:       log,
		lifecycle: lifecycle,
		handler:   controller.NewWebhookHandler(secret, dispatcher, logger),
	}
}

func newWebhookRequest(eventType string, payload []byte, signature string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/hooks/github/app", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if eventType != "" {
		req.Header.Set("X-GitHub-Event", eventType)
	}
	req.Header.Set("X-GitHub-Delivery", "test-delivery")
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	return req
}

func TestWebhookHandler_SignatureVerification(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name           string
		eventType      string
		payload        string
		signature      string
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "Missing signature on ping",
			eventType:      "ping",
			payload:        `{"zen":"Practicality beats purity."}`,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       "Request did not include x-hub header - You need to set a secret in the GitHub App + PERIL_WEBHOOK_SECRET.",
		},
		{
			name:           "Missing signature on installation",
			eventType:      "installation",
			payload:        `{"action":"deleted","installation":{"id":1}}`,
			wantStatusCode: http.StatusBadRequest,
			wantBody:       "Request did not include x-hub header - You need to set a secret in the GitHub App + PERIL_WEBHOOK_SECRET.",
		},
		{
			name:           "Invalid signature on push",
			eventType:      "push",
			payload:        `{"ref":"refs/heads/main"}`,
			signature:      "sha256=invalid",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Request did not have a valid x-hub header. Perhaps PERIL_WEBHOOK_SECRET is not set up right?",
		},
		{
			name:           "Signature from another secret",
			eventType:      "installation",
			payload:        `{"action":"created","installation":{"id":1}}`,
			signature:      generateSignature("wrong-secret", []byte(`{"action":"created","installation":{"id":1}}`)),
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Request did not have a valid x-hub header. Perhaps PERIL_WEBHOOK_SECRET is not set up right?",
		},
		{
			name:           "Invalid signature with malformed body is still 401",
			eventType:      "installation",
			payload:        `not json`,
			signature:      "sha256=invalid",
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "Request did not have a valid x-hub header. Perhaps PERIL_WEBHOOK_SECRET is not set up right?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(secret)
			w := httptest.NewRecorder()
			h.handler.Handle(w, newWebhookRequest(tt.eventType, []byte(tt.payload), tt.signature))

			gt.Number(t, w.Code).Equal(tt.wantStatusCode)
			gt.String(t, w.Body.String()).Equal(tt.wantBody)
			gt.Number(t, len(h.log.names())).Equal(0)
		})
	}
}

func TestWebhookHandler_Routing(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name      string
		eventType string
		payload   string
		wantCalls []string
	}{
		{
			name:      "Ping",
			eventType: "ping",
			payload:   `{"zen":"Speak like a human.","hook_id":1}`,
			wantCalls: []string{"ping"},
		},
		{
			name:      "Installation created",
			eventType: "installation",
			payload:   `{"action":"created","installation":{"id":101,"account":{"login":"octo-org"}}}`,
			wantCalls: []string{"create"},
		},
		{
			name:      "Installation deleted",
			eventType: "installation",
			payload:   `{"action":"deleted","installation":{"id":102}}`,
			wantCalls: []string{"delete"},
		},
		{
			name:      "Installation suspended",
			eventType: "installation",
			payload:   `{"action":"suspend","installation":{"id":103}}`,
			wantCalls: []string{},
		},
		{
			name:      "Pull request",
			eventType: "pull_request",
			payload:   `{"action":"opened","installation":{"id":104},"repository":{"full_name":"octo-org/app"}}`,
			wantCalls: []string{"settings", "rules"},
		},
		{
			name:      "Missing event header",
			eventType: "",
			payload:   `{"installation":{"id":105}}`,
			wantCalls: []string{"settings", "rules"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(secret)
			payload := []byte(tt.payload)
			w := httptest.NewRecorder()
			h.handler.Handle(w, newWebhookRequest(tt.eventType, payload, generateSignature(secret, payload)))

			calls := h.log.names()
			gt.Number(t, len(calls)).Equal(len(tt.wantCalls))
			for i := range tt.wantCalls {
				gt.String(t, calls[i]).Equal(tt.wantCalls[i])
			}

			if len(tt.wantCalls) == 2 {
				// Settings watcher and rule runner observe the same request
				gt.True(t, h.log.reqs[0] == h.log.reqs[1])
				gt.String(t, string(h.log.reqs[0].Payload)).Equal(tt.payload)
			}
		})
	}
}

func TestWebhookHandler_InstallationIDs(t *testing.T) {
	secret := "test-secret"
	h := newHarness(secret)

	created := []byte(`{"action":"created","installation":{"id":7}}`)
	h.handler.Handle(httptest.NewRecorder(), newWebhookRequest("installation", created, generateSignature(secret, created)))
	deleted := []byte(`{"action":"deleted","installation":{"id":8}}`)
	h.handler.Handle(httptest.NewRecorder(), newWebhookRequest("installation", deleted, generateSignature(secret, deleted)))

	gt.Number(t, len(h.lifecycle.created)).Equal(1)
	gt.Number(t, h.lifecycle.created[0]).Equal(7)
	gt.Number(t, len(h.lifecycle.deleted)).Equal(1)
	gt.Number(t, h.lifecycle.deleted[0]).Equal(8)
}

func TestWebhookHandler_MalformedPayload(t *testing.T) {
	secret := "test-secret"

	tests := []struct {
		name      string
		eventType string
		payload   string
	}{
		{name: "Broken JSON", eventType: "pull_request", payload: `{"action":`},
		{name: "Installation without installation object", eventType: "installation", payload: `{"action":"created"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(secret)
			payload := []byte(tt.payload)
			w := httptest.NewRecorder()
			h.handler.Handle(w, newWebhookRequest(tt.eventType, payload, generateSignature(secret, payload)))

			gt.Number(t, w.Code).Equal(http.StatusBadRequest)
			gt.Number(t, len(h.log.names())).Equal(0)
		})
	}
}

func TestWebhookHandler_CollaboratorError(t *testing.T) {
	secret := "test-secret"
	h := newHarness(secret)
	h.lifecycle.createErr = errors.New("storage unavailable")

	payload := []byte(`{"action":"created","installation":{"id":9}}`)
	w := httptest.NewRecorder()
	h.handler.Handle(w, newWebhookRequest("installation", payload, generateSignature(secret, payload)))

	gt.Number(t, w.Code).Equal(http.StatusInternalServerError)
	gt.Number(t, len(h.lifecycle.created)).Equal(1)
}

func TestWebhookHandler_Integration(t *testing.T) {
	secret := "integration-test-secret"
	logger := discardLogger()
	repo := memory.NewInstallationRepository()

	creator := usecase.NewInstallationCreator(repo, logger)
	lifecycle := usecase.NewInstallationLifecycle(creator, repo, logger)
	delegate := usecase.NewFallthroughDelegate(
		usecase.NewSettingsUpdater(repo, nil, logger),
		usecase.NewRuleRunner(repo, executor.NewLog(logger), logger),
		logger,
	)
	dispatcher := githubcontroller.NewDispatcher(usecase.NewPinger(logger), lifecycle, delegate, logger)

	server, err := controller.NewServer(
		logger,
		dispatcher,
		controller.WithAddr("localhost:0"),
		controller.WithWebhookSecret(secret),
	)
	gt.NoError(t, err)

	ts := httptest.NewServer(server.Handler)
	defer ts.Close()

	send := func(eventType string, payload map[string]any) *http.Response {
		payloadBytes, err := json.Marshal(payload)
		gt.NoError(t, err)

		req, err := http.NewRequest(http.MethodPost, ts.URL+"/hooks/github/app", bytes.NewReader(payloadBytes))
		gt.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-GitHub-Event", eventType)
		req.Header.Set("X-GitHub-Delivery", "integration-test")
		req.Header.Set("X-Hub-Signature-256", generateSignature(secret, payloadBytes))

		resp, err := http.DefaultClient.Do(req)
		gt.NoError(t, err)
		t.Cleanup(func() {
			_ = resp.Body.Close() // Error ignored in test
		})
		return resp
	}

	t.Run("ping", func(t *testing.T) {
		resp := send("ping", map[string]any{"zen": "Mind your words, they are important.", "hook_id": 1})
		gt.Number(t, resp.StatusCode).Equal(http.StatusOK)

		var body usecase.PingResponse
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		gt.String(t, body.Status).Equal("pong")
	})

	t.Run("installation created", func(t *testing.T) {
		resp := send("installation", map[string]any{
			"action": "created",
			"installation": map[string]any{
				"id":      555,
				"account": map[string]any{"login": "octo-org", "type": "Organization"},
			},
		})
		gt.Number(t, resp.StatusCode).Equal(http.StatusCreated)

		stored, err := repo.GetInstallation(context.Background(), 555)
		gt.NoError(t, err)
		gt.String(t, stored.Login).Equal("octo-org")
		gt.String(t, stored.SettingsRef).Equal("octo-org/peril-settings@settings.json")
	})

	t.Run("pull request without rules is skipped", func(t *testing.T) {
		resp := send("pull_request", map[string]any{
			"action":       "opened",
			"installation": map[string]any{"id": 555},
			"repository":   map[string]any{"full_name": "octo-org/app"},
		})
		gt.Number(t, resp.StatusCode).Equal(http.StatusOK)

		var body usecase.RunResponse
		gt.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		gt.String(t, body.Status).Equal("skipped")
	})

	t.Run("installation deleted", func(t *testing.T) {
		resp := send("installation", map[string]any{
			"action":       "deleted",
			"installation": map[string]any{"id": 555},
		})
		gt.Number(t, resp.StatusCode).Equal(http.StatusOK)

		// Deletion runs in the background
		deadline := time.Now().Add(time.Second)
		for {
			stored, err := repo.GetInstallation(context.Background(), 555)
			gt.NoError(t, err)
			if stored == nil {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("installation was not deleted within timeout")
			}
			time.Sleep(10 * time.Millisecond)
		}
	})
}
