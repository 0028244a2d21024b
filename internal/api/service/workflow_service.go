package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clixen"
	"clixen/internal/api/gateway"
	"clixen/internal/api/graph"
	"clixen/internal/api/healer"
	"clixen/internal/api/models"
	"clixen/internal/api/repo"
	"clixen/pkg"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const executionCacheTTL = 10 * time.Second

// ProgressPublisher pushes deployment progress events to subscribed clients.
type ProgressPublisher interface {
	Publish(ownerID, workflowID uint, event any) error
}

// WorkflowService orchestrates the full lifecycle: heal the submitted graph,
// persist it, ship it to the remote engine, and record the outcome.
type WorkflowService struct {
	workflowRepo   *repo.WorkflowRepository
	deploymentRepo *repo.DeploymentRepository
	userRepo       *repo.UserRepository
	engine         *healer.Engine
	gateway        gateway.Gateway
	events         ProgressPublisher
	config         clixen.AppConfig
	logger         zerolog.Logger
}

// NewWorkflowService wires the service; events may be nil when realtime
// notifications are disabled.
func NewWorkflowService(gw gateway.Gateway, events ProgressPublisher) *WorkflowService {
	return &WorkflowService{
		workflowRepo:   repo.NewWorkflowRepository(),
		deploymentRepo: repo.NewDeploymentRepository(),
		userRepo:       repo.NewUserRepository(),
		engine:         healer.NewEngine(clixen.Logger),
		gateway:        gw,
		events:         events,
		config:         clixen.GetConfig(),
		logger:         clixen.Logger,
	}
}

// healContext builds the per-caller isolation context. The seed makes path
// generation unique per run without the engine reading the clock itself.
func (slf *WorkflowService) healContext(identity string) *healer.Context {
	return &healer.Context{
		Identity: identity,
		Seed:     uint64(time.Now().UnixNano()),
		Email: healer.EmailProvider{
			Endpoint: slf.config.EmailConfig.APIURL,
			APIKey:   slf.config.EmailConfig.APIKey,
			From:     slf.config.EmailConfig.From,
		},
	}
}

// Heal repairs a submitted graph without persisting or deploying anything.
func (slf *WorkflowService) Heal(raw []byte, identity string) (*healer.Result, error) {
	result, err := slf.engine.Heal(raw, slf.healContext(identity))
	if err != nil {
		slf.logger.Error().Err(err).Msg("Workflow failed to parse")
		return nil, err
	}
	return result, nil
}

// Create heals and persists a new workflow as a draft.
func (slf *WorkflowService) Create(user models.User, raw []byte) (*models.Workflow, *healer.Result, error) {
	result, err := slf.engine.Heal(raw, slf.healContext(user.Identity))
	if err != nil {
		slf.logger.Error().Err(err).Uint("userId", user.ID).Msg("Workflow failed to parse")
		return nil, nil, err
	}

	healed, err := result.Graph.Marshal()
	if err != nil {
		return nil, nil, err
	}
	fixLog, err := json.Marshal(result.Fixes)
	if err != nil {
		return nil, nil, err
	}

	workflow := models.Workflow{
		Name:        result.Graph.Name,
		OwnerID:     user.ID,
		RawGraph:    models.GraphData(raw),
		HealedGraph: models.GraphData(healed),
		FixLog:      models.GraphData(fixLog),
		Confidence:  result.Confidence,
		Status:      models.WorkflowStatusDraft,
	}
	if err := slf.workflowRepo.Create(&workflow); err != nil {
		slf.logger.Error().Err(err).Msg("Error creating workflow")
		return nil, nil, err
	}

	slf.logger.Info().
		Uint("workflowId", workflow.ID).
		Int("fixes", len(result.Fixes)).
		Float64("confidence", result.Confidence).
		Msg("Workflow created")
	return &workflow, result, nil
}

// Deploy ships the healed graph to the remote engine, records the attempt,
// and notifies the owner.
func (slf *WorkflowService) Deploy(ctx context.Context, id uint) (*models.Workflow, error) {
	workflow, err := slf.workflowRepo.FindByIDSimple(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("workflow not found")
		}
		return nil, err
	}

	healed, err := graph.Parse([]byte(workflow.HealedGraph))
	if err != nil {
		slf.logger.Error().Err(err).Uint("workflowId", id).Msg("Stored graph no longer parses")
		return nil, err
	}

	slf.publishProgress(workflow.OwnerID, workflow.ID, "deploying", "")

	deployResult, err := slf.gateway.Deploy(ctx, healed, workflow.RemoteID)
	if err != nil {
		slf.logger.Error().Err(err).Uint("workflowId", id).Msg("Deploy transport failure")
	}

	status := deployStatusToModel(deployResult.Status)
	deployment := models.Deployment{
		WorkflowID: workflow.ID,
		RemoteID:   deployResult.RemoteID,
		Status:     status,
		Message:    deployResult.Message,
		Confidence: workflow.Confidence,
	}
	var fixes []healer.Fix
	if jsonErr := json.Unmarshal([]byte(workflow.FixLog), &fixes); jsonErr == nil {
		deployment.FixCount = len(fixes)
	}
	if dbErr := slf.deploymentRepo.Create(&deployment); dbErr != nil {
		slf.logger.Error().Err(dbErr).Uint("workflowId", id).Msg("Error recording deployment")
	}

	if dbErr := slf.workflowRepo.UpdateDeployState(workflow.ID, deployResult.RemoteID, status); dbErr != nil {
		slf.logger.Error().Err(dbErr).Uint("workflowId", id).Msg("Error updating deploy state")
		return nil, dbErr
	}
	workflow.RemoteID = deployResult.RemoteID
	workflow.Status = status

	slf.publishProgress(workflow.OwnerID, workflow.ID, string(status), deployResult.Message)

	if status == models.WorkflowStatusDeployed {
		if actErr := slf.gateway.Activate(ctx, deployResult.RemoteID); actErr != nil {
			slf.logger.Warn().Err(actErr).Uint("workflowId", id).Msg("Workflow deployed but not activated")
		}
		slf.notifyOwner(workflow)
	}

	if err != nil {
		return &workflow, err
	}
	return &workflow, nil
}

// Execute starts a remote run of a deployed workflow.
func (slf *WorkflowService) Execute(ctx context.Context, id uint) (string, error) {
	workflow, err := slf.workflowRepo.FindByIDSimple(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("workflow not found")
		}
		return "", err
	}
	if workflow.RemoteID == "" || workflow.Status != models.WorkflowStatusDeployed {
		return "", errors.New("workflow is not deployed")
	}
	return slf.gateway.Execute(ctx, workflow.RemoteID)
}

// ExecutionStatus polls one remote run, short-caching results in Redis to
// absorb UI polling.
func (slf *WorkflowService) ExecutionStatus(ctx context.Context, executionID string) (gateway.Execution, error) {
	cacheKey := "execution:" + executionID

	var cached gateway.Execution
	if err := pkg.RedisGet(cacheKey, &cached); err == nil {
		return cached, nil
	} else if !pkg.IsRedisNil(err) {
		slf.logger.Warn().Err(err).Msg("Execution cache read failed")
	}

	exec, err := slf.gateway.Execution(ctx, executionID)
	if err != nil {
		return gateway.Execution{}, err
	}
	if err := pkg.RedisSet(cacheKey, exec, executionCacheTTL); err != nil {
		slf.logger.Warn().Err(err).Msg("Execution cache write failed")
	}
	return exec, nil
}

// FindPageForUser retrieves one page of a user's workflows plus the total count
func (slf *WorkflowService) FindPageForUser(ownerID uint, page, pageSize int) ([]models.Workflow, int64, error) {
	workflows, total, err := slf.workflowRepo.FindPageByOwner(ownerID, page, pageSize)
	if err != nil {
		slf.logger.Error().Err(err).Uint("userId", ownerID).Msg("Error getting workflows for user")
		return nil, 0, err
	}
	return workflows, total, nil
}

// FindByID retrieves one workflow with its deployment history
func (slf *WorkflowService) FindByID(id uint) (*models.Workflow, error) {
	workflow, err := slf.workflowRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("workflow not found")
		}
		slf.logger.Error().Err(err).Uint("workflowId", id).Msg("Error getting workflow")
		return nil, err
	}
	return &workflow, nil
}

func (slf *WorkflowService) Delete(id uint) error {
	return slf.workflowRepo.Delete(id)
}

// CanUserAccess reports whether the user owns the workflow
func (slf *WorkflowService) CanUserAccess(id, userID uint) (bool, error) {
	return slf.workflowRepo.IsOwnedBy(id, userID)
}

func (slf *WorkflowService) publishProgress(ownerID, workflowID uint, status, message string) {
	if slf.events == nil {
		return
	}
	event := map[string]any{"status": status}
	if message != "" {
		event["message"] = message
	}
	if err := slf.events.Publish(ownerID, workflowID, event); err != nil {
		slf.logger.Warn().Err(err).Uint("workflowId", workflowID).Msg("Progress publish failed")
	}
}

// notifyOwner emails the owner about a successful deploy. Best effort.
func (slf *WorkflowService) notifyOwner(workflow models.Workflow) {
	owner, err := slf.userRepo.FindByID(workflow.OwnerID)
	if err != nil {
		slf.logger.Warn().Err(err).Uint("workflowId", workflow.ID).Msg("Owner lookup for notification failed")
		return
	}
	msg := pkg.EmailMessage{
		To:      []string{owner.Email},
		Subject: fmt.Sprintf("Workflow %q is live", workflow.Name),
		HTML: fmt.Sprintf("<p>Your workflow <strong>%s</strong> was deployed and activated.</p>",
			workflow.Name),
	}
	if err := pkg.SendEmail(msg); err != nil {
		slf.logger.Warn().Err(err).Uint("workflowId", workflow.ID).Msg("Deploy notification email failed")
	}
}

func deployStatusToModel(status gateway.DeployStatus) models.WorkflowStatus {
	switch status {
	case gateway.StatusDeployed:
		return models.WorkflowStatusDeployed
	case gateway.StatusRejected:
		return models.WorkflowStatusRejected
	default:
		return models.WorkflowStatusError
	}
}
