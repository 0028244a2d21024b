package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"clixen"
	"clixen/internal/api/gateway"
	"clixen/internal/api/graph"
	"clixen/internal/api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGateway lets tests script the remote engine's answers.
type stubGateway struct {
	deployResult gateway.DeployResult
	deployErr    error
	activated    []string
	executionID  string
}

func (s *stubGateway) Deploy(ctx context.Context, w *graph.Workflow, remoteID string) (gateway.DeployResult, error) {
	return s.deployResult, s.deployErr
}

func (s *stubGateway) Activate(ctx context.Context, remoteID string) error {
	s.activated = append(s.activated, remoteID)
	return nil
}

func (s *stubGateway) Execute(ctx context.Context, remoteID string) (string, error) {
	return s.executionID, nil
}

func (s *stubGateway) Execution(ctx context.Context, executionID string) (gateway.Execution, error) {
	return gateway.Execution{ID: executionID, Status: "success"}, nil
}

func setupWorkflowTestDB(t *testing.T) {
	clixen.InitConfig("../../../.env.test")

	err := clixen.DB.AutoMigrate(&models.User{}, &models.Workflow{}, &models.Deployment{})
	require.NoError(t, err, "Failed to migrate workflow tables")
}

func createTestOwner(t *testing.T) models.User {
	user := models.User{
		Identity: uuid.NewString(),
		Email:    fmt.Sprintf("wf-test-%d@example.com", time.Now().UnixNano()),
		Password: "irrelevant",
		Role:     models.RoleUser,
		Active:   true,
	}
	require.NoError(t, clixen.DB.Create(&user).Error)
	return user
}

func cleanupWorkflow(t *testing.T, workflowID, userID uint) {
	if workflowID > 0 {
		clixen.DB.Unscoped().Where("workflow_id = ?", workflowID).Delete(&models.Deployment{})
		clixen.DB.Unscoped().Delete(&models.Workflow{}, workflowID)
	}
	if userID > 0 {
		clixen.DB.Unscoped().Delete(&models.User{}, userID)
	}
}

const rawTestGraph = `{
	"name": "Digest",
	"nodes": [
		{"id": "1", "name": "Hook", "kind": "trigger.webhook"},
		{"id": "2", "name": "Fetch", "kind": "action.httpRequest"}
	],
	"connections": {
		"Hook": {"main": [[{"node": "Fetch", "type": "main", "index": 0}]]}
	}
}`

func TestWorkflow_Create(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	service := NewWorkflowService(&stubGateway{}, nil)

	workflow, result, err := service.Create(owner, []byte(rawTestGraph))
	require.NoError(t, err)
	require.NotNil(t, workflow)
	defer cleanupWorkflow(t, workflow.ID, owner.ID)

	assert.Equal(t, models.WorkflowStatusDraft, workflow.Status)
	assert.Contains(t, workflow.Name, "[USR-")
	assert.NotEmpty(t, result.Fixes)
	assert.GreaterOrEqual(t, workflow.Confidence, 0.80)
	assert.LessOrEqual(t, workflow.Confidence, 0.95)

	// The stored healed graph must still parse.
	healed, err := graph.Parse([]byte(workflow.HealedGraph))
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, healed.Name)
}

func TestWorkflow_Create_Malformed(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	defer cleanupWorkflow(t, 0, owner.ID)

	service := NewWorkflowService(&stubGateway{}, nil)
	_, _, err := service.Create(owner, []byte(`{"name": "Bad", "nodes": 42}`))
	require.Error(t, err)

	var malformed *graph.MalformedError
	assert.ErrorAs(t, err, &malformed)
}

func TestWorkflow_Deploy(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	gw := &stubGateway{deployResult: gateway.DeployResult{RemoteID: "wf-remote-7", Status: gateway.StatusDeployed}}
	service := NewWorkflowService(gw, nil)

	workflow, _, err := service.Create(owner, []byte(rawTestGraph))
	require.NoError(t, err)
	defer cleanupWorkflow(t, workflow.ID, owner.ID)

	deployed, err := service.Deploy(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDeployed, deployed.Status)
	assert.Equal(t, "wf-remote-7", deployed.RemoteID)
	assert.Equal(t, []string{"wf-remote-7"}, gw.activated)

	// One audit row per deploy attempt.
	stored, err := service.FindByID(workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Deployments, 1)
	assert.Equal(t, models.WorkflowStatusDeployed, stored.Deployments[0].Status)
}

func TestWorkflow_Deploy_Rejected(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	gw := &stubGateway{deployResult: gateway.DeployResult{Status: gateway.StatusRejected, Message: "bad node kind"}}
	service := NewWorkflowService(gw, nil)

	workflow, _, err := service.Create(owner, []byte(rawTestGraph))
	require.NoError(t, err)
	defer cleanupWorkflow(t, workflow.ID, owner.ID)

	rejected, err := service.Deploy(context.Background(), workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusRejected, rejected.Status)
	assert.Empty(t, gw.activated, "rejected workflows must not be activated")

	stored, err := service.FindByID(workflow.ID)
	require.NoError(t, err)
	require.Len(t, stored.Deployments, 1)
	assert.Equal(t, "bad node kind", stored.Deployments[0].Message)
}

func TestWorkflow_Execute_NotDeployed(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	service := NewWorkflowService(&stubGateway{executionID: "exec-1"}, nil)

	workflow, _, err := service.Create(owner, []byte(rawTestGraph))
	require.NoError(t, err)
	defer cleanupWorkflow(t, workflow.ID, owner.ID)

	_, err = service.Execute(context.Background(), workflow.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not deployed")
}

func TestWorkflow_FindPage(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	service := NewWorkflowService(&stubGateway{}, nil)

	ids := make([]uint, 0, 3)
	for i := 0; i < 3; i++ {
		workflow, _, err := service.Create(owner, []byte(rawTestGraph))
		require.NoError(t, err)
		ids = append(ids, workflow.ID)
	}
	defer func() {
		for _, id := range ids {
			cleanupWorkflow(t, id, 0)
		}
		cleanupWorkflow(t, 0, owner.ID)
	}()

	first, total, err := service.FindPageForUser(owner.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, first, 2)

	second, total, err := service.FindPageForUser(owner.ID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, second, 1)
}

func TestWorkflow_Ownership(t *testing.T) {
	setupWorkflowTestDB(t)

	owner := createTestOwner(t)
	stranger := createTestOwner(t)
	service := NewWorkflowService(&stubGateway{}, nil)

	workflow, _, err := service.Create(owner, []byte(rawTestGraph))
	require.NoError(t, err)
	defer cleanupWorkflow(t, workflow.ID, owner.ID)
	defer cleanupWorkflow(t, 0, stranger.ID)

	canAccess, err := service.CanUserAccess(workflow.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, canAccess)

	canAccess, err = service.CanUserAccess(workflow.ID, stranger.ID)
	require.NoError(t, err)
	assert.False(t, canAccess)
}
