package gateway

import (
	"context"

	"clixen/internal/api/graph"
)

// DeployStatus is the gateway's verdict on one deploy attempt.
type DeployStatus string

const (
	StatusDeployed DeployStatus = "deployed"
	StatusRejected DeployStatus = "rejected"
	StatusError    DeployStatus = "error"
)

// DeployResult is what the remote engine reported back.
type DeployResult struct {
	RemoteID string       `json:"remoteId"`
	Status   DeployStatus `json:"status"`
	Message  string       `json:"message,omitempty"`
}

// Execution is one remote workflow run.
type Execution struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt,omitempty"`
	StoppedAt  string `json:"stoppedAt,omitempty"`
}

// Gateway pushes healed workflows to the remote execution engine. The healer
// has no dependency on this interface; it only produces input for it.
type Gateway interface {
	// Deploy creates the workflow remotely, or updates it when remoteID is
	// non-empty.
	Deploy(ctx context.Context, w *graph.Workflow, remoteID string) (DeployResult, error)

	// Activate flips the remote workflow live.
	Activate(ctx context.Context, remoteID string) error

	// Execute starts a run and returns its execution id.
	Execute(ctx context.Context, remoteID string) (string, error)

	// Execution polls the status of one run.
	Execution(ctx context.Context, executionID string) (Execution, error)
}
