package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"clixen/internal/api/graph"
)

// EngineClient talks to the hosted workflow engine's REST API. It maps 1:1
// onto the engine's create/update/execute/poll calls and never retries;
// retry policy belongs to deployment automation, not here.
type EngineClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

func NewEngineClient(baseURL, apiKey string, logger zerolog.Logger) *EngineClient {
	return &EngineClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type remoteWorkflow struct {
	ID string `json:"id"`
}

// Deploy serializes the healed graph and submits it as a create (empty
// remoteID) or update. HTTP-level rejections come back as a status, not an
// error; only transport and encoding failures return err.
func (slf *EngineClient) Deploy(ctx context.Context, w *graph.Workflow, remoteID string) (DeployResult, error) {
	payload, err := w.Marshal()
	if err != nil {
		return DeployResult{Status: StatusError, Message: err.Error()}, err
	}

	method := http.MethodPost
	url := slf.baseURL + "/workflows"
	if remoteID != "" {
		method = http.MethodPatch
		url = fmt.Sprintf("%s/workflows/%s", slf.baseURL, remoteID)
	}

	status, body, err := slf.do(ctx, method, url, payload)
	if err != nil {
		return DeployResult{Status: StatusError, Message: err.Error()}, err
	}

	switch {
	case status >= 200 && status < 300:
		var remote remoteWorkflow
		if err := json.Unmarshal(body, &remote); err != nil {
			return DeployResult{Status: StatusError, Message: "unreadable engine response"}, err
		}
		if remote.ID == "" {
			remote.ID = remoteID
		}
		return DeployResult{RemoteID: remote.ID, Status: StatusDeployed}, nil
	case status >= 400 && status < 500:
		return DeployResult{RemoteID: remoteID, Status: StatusRejected, Message: errorMessage(body, status)}, nil
	default:
		return DeployResult{RemoteID: remoteID, Status: StatusError, Message: errorMessage(body, status)}, nil
	}
}

func (slf *EngineClient) Activate(ctx context.Context, remoteID string) error {
	url := fmt.Sprintf("%s/workflows/%s", slf.baseURL, remoteID)
	status, body, err := slf.do(ctx, http.MethodPatch, url, []byte(`{"active":true}`))
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("activate workflow %s: %s", remoteID, errorMessage(body, status))
	}
	return nil
}

func (slf *EngineClient) Execute(ctx context.Context, remoteID string) (string, error) {
	url := fmt.Sprintf("%s/workflows/%s/execute", slf.baseURL, remoteID)
	status, body, err := slf.do(ctx, http.MethodPost, url, []byte(`{}`))
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", fmt.Errorf("execute workflow %s: %s", remoteID, errorMessage(body, status))
	}

	var run struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &run); err != nil {
		return "", fmt.Errorf("unreadable execution response: %w", err)
	}
	return run.ID, nil
}

func (slf *EngineClient) Execution(ctx context.Context, executionID string) (Execution, error) {
	url := fmt.Sprintf("%s/executions/%s", slf.baseURL, executionID)
	status, body, err := slf.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Execution{}, err
	}
	if status < 200 || status >= 300 {
		return Execution{}, fmt.Errorf("get execution %s: %s", executionID, errorMessage(body, status))
	}

	var exec Execution
	if err := json.Unmarshal(body, &exec); err != nil {
		return Execution{}, fmt.Errorf("unreadable execution response: %w", err)
	}
	return exec, nil
}

func (slf *EngineClient) do(ctx context.Context, method, url string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewBuffer(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if slf.apiKey != "" {
		req.Header.Set("X-Api-Key", slf.apiKey)
	}

	resp, err := slf.client.Do(req)
	if err != nil {
		slf.logger.Error().Err(err).Str("url", url).Msg("Engine call failed")
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func errorMessage(body []byte, status int) string {
	var remote struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &remote); err == nil && remote.Message != "" {
		return remote.Message
	}
	return fmt.Sprintf("engine returned HTTP %d", status)
}
