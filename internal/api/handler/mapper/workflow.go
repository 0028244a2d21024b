package mapper

import (
	"encoding/json"

	"clixen/internal/api/gateway"
	"clixen/internal/api/handler/response"
	"clixen/internal/api/models"
)

type WorkflowMapper struct{}

func NewWorkflowMapper() WorkflowMapper {
	return WorkflowMapper{}
}

func (WorkflowMapper) ToWorkflowResponse(w models.Workflow, includeGraph bool) response.WorkflowResponse {
	resp := response.WorkflowResponse{
		ID:         w.ID,
		Name:       w.Name,
		Status:     string(w.Status),
		RemoteID:   w.RemoteID,
		Confidence: w.Confidence,
		CreatedAt:  w.CreatedAt,
		UpdatedAt:  w.UpdatedAt,
	}
	if includeGraph {
		resp.Graph = json.RawMessage(w.HealedGraph)
		resp.Fixes = json.RawMessage(w.FixLog)
	}
	return resp
}

func (m WorkflowMapper) ToWorkflowResponses(workflows []models.Workflow) []response.WorkflowResponse {
	out := make([]response.WorkflowResponse, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, m.ToWorkflowResponse(w, false))
	}
	return out
}

func (WorkflowMapper) ToDeploymentResponses(deployments []models.Deployment) []response.DeploymentResponse {
	out := make([]response.DeploymentResponse, 0, len(deployments))
	for _, d := range deployments {
		out = append(out, response.DeploymentResponse{
			ID:         d.ID,
			RemoteID:   d.RemoteID,
			Status:     string(d.Status),
			Message:    d.Message,
			FixCount:   d.FixCount,
			Confidence: d.Confidence,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out
}

func (WorkflowMapper) ToExecutionResponse(e gateway.Execution) response.ExecutionResponse {
	return response.ExecutionResponse{
		ID:         e.ID,
		WorkflowID: e.WorkflowID,
		Status:     e.Status,
		StartedAt:  e.StartedAt,
		StoppedAt:  e.StoppedAt,
	}
}
