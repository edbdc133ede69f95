package executor

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/hookwarden/pkg/domain/interfaces"
	"github.com/m-mizutani/hookwarden/pkg/domain/model"
)

// SignatureHeader carries the HMAC-SHA256 of the request body, "sha256=<hex>"
const SignatureHeader = "X-Hookwarden-Signature-256"

const maxResponseSize = 1 << 20

// HTTP forwards rule runs to an external runner service
type HTTP struct {
	endpoint string
	secret   []byte
	client   *http.Client
}

var _ interfaces.RuleExecutor = (*HTTP)(nil)

// Request is the body posted to the runner
type Request struct {
	Run     *model.RuleRun  `json:"run"`
	Payload json.RawMessage `json:"payload"`
}

// Response is the body expected back from the runner
type Response struct {
	Status  model.RuleRunStatus `json:"status"`
	Message string              `json:"message,omitempty"`
}

// NewHTTP creates an executor posting to endpoint. An empty secret disables signing.
func NewHTTP(endpoint, secret string, client *http.Client) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return &HTTP{
		endpoint: endpoint,
		secret:   []byte(secret),
		client:   client,
	}
}

// Sign returns the value of SignatureHeader for body
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func (x *HTTP) Execute(ctx context.Context, run *model.RuleRun, payload []byte) (*model.RunReport, error) {
	started := time.Now().UTC()

	if len(payload) == 0 {
		payload = []byte("null")
	}
	body, err := json.Marshal(&Request{Run: run, Payload: payload})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal runner request", goerr.V("run_id", run.ID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create runner request", goerr.V("endpoint", x.endpoint))
	}
	req.Header.Set("Content-Type", "application/json")
	if len(x.secret) > 0 {
		req.Header.Set(SignatureHeader, Sign(x.secret, body))
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call rule runner",
			goerr.V("endpoint", x.endpoint),
			goerr.V("run_id", run.ID),
		)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read runner response", goerr.V("run_id", run.ID))
	}

	report := &model.RunReport{
		Run:        *run,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		report.Status = model.RuleRunFailed
		report.Message = string(respBody)
		return report, goerr.New("rule runner returned error status",
			goerr.V("status_code", resp.StatusCode),
			goerr.V("run_id", run.ID),
		)
	}

	var out Response
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, goerr.Wrap(err, "failed to decode runner response",
				goerr.V("run_id", run.ID),
				goerr.V("body", string(respBody)),
			)
		}
	}
	report.Status = out.Status
	if report.Status == "" {
		report.Status = model.RuleRunSucceeded
	}
	report.Message = out.Message
	return report, nil
}
