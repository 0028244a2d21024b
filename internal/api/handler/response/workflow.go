package response

import (
	"encoding/json"
	"time"
)

type WorkflowResponse struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	Status     string          `json:"status"`
	RemoteID   string          `json:"remoteId,omitempty"`
	Confidence float64         `json:"confidence"`
	Graph      json.RawMessage `json:"graph,omitempty"`
	Fixes      json.RawMessage `json:"fixes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

type DeploymentResponse struct {
	ID         uint      `json:"id"`
	RemoteID   string    `json:"remoteId,omitempty"`
	Status     string    `json:"status"`
	Message    string    `json:"message,omitempty"`
	FixCount   int       `json:"fixCount"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

// HealResponse mirrors the healer's serialized result shape.
type HealResponse struct {
	Graph      json.RawMessage `json:"graph"`
	Fixes      json.RawMessage `json:"fixes"`
	Confidence float64         `json:"confidence"`
}

type ExecutionResponse struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
	StartedAt  string `json:"startedAt,omitempty"`
	StoppedAt  string `json:"stoppedAt,omitempty"`
}
