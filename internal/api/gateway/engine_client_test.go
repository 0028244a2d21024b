package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clixen/internal/api/graph"
)

func testWorkflow() *graph.Workflow {
	return &graph.Workflow{
		Name: "[USR-abc12345] Test",
		Nodes: []graph.Node{
			{ID: "1", Name: "Hook", Kind: graph.KindWebhookTrigger, Parameters: map[string]any{"path": "abc12345-hook-1"}},
		},
		Connections: graph.Connections{},
	}
}

func newTestClient(serverURL string) *EngineClient {
	return NewEngineClient(serverURL, "test-key", zerolog.Nop())
}

func TestDeploy_Create(t *testing.T) {
	var gotMethod, gotPath, gotKey string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "wf-remote-1"}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Deploy(context.Background(), testWorkflow(), "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/workflows", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "[USR-abc12345] Test", gotBody["name"])

	assert.Equal(t, StatusDeployed, result.Status)
	assert.Equal(t, "wf-remote-1", result.RemoteID)
	assert.Empty(t, result.Message)
}

func TestDeploy_Update(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/workflows/wf-remote-1", r.URL.Path)
		w.Write([]byte(`{"id": "wf-remote-1"}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Deploy(context.Background(), testWorkflow(), "wf-remote-1")
	require.NoError(t, err)
	assert.Equal(t, StatusDeployed, result.Status)
	assert.Equal(t, "wf-remote-1", result.RemoteID)
}

func TestDeploy_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "node kind not supported"}`))
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Deploy(context.Background(), testWorkflow(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.Status)
	assert.Equal(t, "node kind not supported", result.Message)
}

func TestDeploy_EngineDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Deploy(context.Background(), testWorkflow(), "")
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	assert.Equal(t, "engine returned HTTP 502", result.Message)
}

func TestDeploy_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	result, err := newTestClient(server.URL).Deploy(context.Background(), testWorkflow(), "")
	require.Error(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestActivate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/workflows/wf-remote-1", r.URL.Path)
		body := map[string]any{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["active"])
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Activate(context.Background(), "wf-remote-1")
	assert.NoError(t, err)
}

func TestActivate_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "workflow not found"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Activate(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflow not found")
}

func TestExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/workflows/wf-remote-1/execute", r.URL.Path)
		w.Write([]byte(`{"id": "exec-9"}`))
	}))
	defer server.Close()

	executionID, err := newTestClient(server.URL).Execute(context.Background(), "wf-remote-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-9", executionID)
}

func TestExecution(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/executions/exec-9", r.URL.Path)
		json.NewEncoder(w).Encode(Execution{
			ID:         "exec-9",
			WorkflowID: "wf-remote-1",
			Status:     "success",
			StartedAt:  "2026-08-27T10:00:00Z",
		})
	}))
	defer server.Close()

	exec, err := newTestClient(server.URL).Execution(context.Background(), "exec-9")
	require.NoError(t, err)
	assert.Equal(t, "exec-9", exec.ID)
	assert.Equal(t, "success", exec.Status)
	assert.Equal(t, "2026-08-27T10:00:00Z", exec.StartedAt)
}

func TestExecution_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Execution(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
