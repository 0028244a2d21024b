package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"clixen"
	"clixen/internal/api/graph"
	"clixen/internal/api/handler/mapper"
	"clixen/internal/api/handler/middleware"
	"clixen/internal/api/handler/request"
	"clixen/internal/api/handler/response"
	"clixen/internal/api/service"
	"clixen/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type workflowHandler struct {
	workflowService *service.WorkflowService
	userService     *service.UserService
	workflowMapper  mapper.WorkflowMapper
	config          clixen.AppConfig
	logger          zerolog.Logger
}

func WorkflowHandler(router *graceful.Graceful, workflowService *service.WorkflowService) {
	h := &workflowHandler{
		workflowService: workflowService,
		userService:     service.NewUserService(),
		workflowMapper:  mapper.NewWorkflowMapper(),
		config:          clixen.GetConfig(),
		logger:          clixen.Logger,
	}

	routes := router.Group("/api/v1/workflows")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.POST("/heal", h.heal)
		routes.POST("", h.create)
		routes.GET("", h.getAll)
		routes.GET("/:id", h.getByID)
		routes.DELETE("/:id", h.delete)

		routes.POST("/:id/deploy", h.deploy)
		routes.POST("/:id/execute", h.execute)
		routes.GET("/:id/deployments", h.getDeployments)
	}

	executions := router.Group("/api/v1/executions")
	executions.Use(middleware.AuthMiddleware(h.config))
	{
		executions.GET("/:executionId", h.getExecution)
	}
}

// checkAccess verifies if the user owns the workflow
func (slf *workflowHandler) checkAccess(c *gin.Context, workflowID, userID uint) bool {
	canAccess, err := slf.workflowService.CanUserAccess(workflowID, userID)
	if err != nil {
		slf.logger.Error().Err(err).Uint("workflowID", workflowID).Msg("Failed to check workflow access")
		c.JSON(http.StatusNotFound, response.APIError{Message: "Workflow not found"})
		return false
	}

	if !canAccess {
		c.JSON(http.StatusForbidden, response.APIError{Message: "You don't have access to this workflow"})
		return false
	}

	return true
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// heal repairs a graph without saving it
func (slf *workflowHandler) heal(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	var dto request.HealWorkflow
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	result, err := slf.workflowService.Heal(dto.Graph, pkg.GetUserIdentity(c))
	if err != nil {
		var malformed *graph.MalformedError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, response.APIError{Message: malformed.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Healing failed"})
		return
	}

	if slf.config.Mode == "dev" {
		pkg.PrettyPrint(result.Fixes)
	}

	healed, err := result.Graph.Marshal()
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Healing failed"})
		return
	}
	fixes, err := json.Marshal(result.Fixes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Healing failed"})
		return
	}

	c.JSON(http.StatusOK, response.HealResponse{
		Graph:      healed,
		Fixes:      fixes,
		Confidence: result.Confidence,
	})
}

// create heals and persists a new workflow draft
func (slf *workflowHandler) create(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}

	var dto request.CreateWorkflow
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	user, err := slf.userService.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.APIError{Message: "User not found"})
		return
	}

	workflow, _, err := slf.workflowService.Create(user, dto.Graph)
	if err != nil {
		var malformed *graph.MalformedError
		if errors.As(err, &malformed) {
			c.JSON(http.StatusBadRequest, response.APIError{Message: malformed.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to create workflow"})
		return
	}

	c.JSON(http.StatusCreated, slf.workflowMapper.ToWorkflowResponse(*workflow, true))
}

func (slf *workflowHandler) getAll(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	workflows, total, err := slf.workflowService.FindPageForUser(userID, page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to retrieve workflows"})
		return
	}

	c.JSON(http.StatusOK, response.Page[response.WorkflowResponse]{
		Data:       slf.workflowMapper.ToWorkflowResponses(workflows),
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	})
}

func (slf *workflowHandler) getByID(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !slf.checkAccess(c, id, userID) {
		return
	}

	workflow, err := slf.workflowService.FindByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, slf.workflowMapper.ToWorkflowResponse(*workflow, true))
}

func (slf *workflowHandler) delete(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !slf.checkAccess(c, id, userID) {
		return
	}

	if err := slf.workflowService.Delete(id); err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to delete workflow"})
		return
	}

	c.Status(http.StatusNoContent)
}

// deploy ships the healed graph to the remote engine
func (slf *workflowHandler) deploy(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !slf.checkAccess(c, id, userID) {
		return
	}

	workflow, err := slf.workflowService.Deploy(c.Request.Context(), id)
	if err != nil && workflow == nil {
		c.JSON(http.StatusBadGateway, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, slf.workflowMapper.ToWorkflowResponse(*workflow, false))
}

func (slf *workflowHandler) execute(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !slf.checkAccess(c, id, userID) {
		return
	}

	executionID, err := slf.workflowService.Execute(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusBadGateway, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"executionId": executionID})
}

func (slf *workflowHandler) getDeployments(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if !slf.checkAccess(c, id, userID) {
		return
	}

	workflow, err := slf.workflowService.FindByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, slf.workflowMapper.ToDeploymentResponses(workflow.Deployments))
}

func (slf *workflowHandler) getExecution(c *gin.Context) {
	if _, ok := pkg.GetUserID(c); !ok {
		return
	}

	exec, err := slf.workflowService.ExecutionStatus(c.Request.Context(), c.Param("executionId"))
	if err != nil {
		c.JSON(http.StatusBadGateway, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, slf.workflowMapper.ToExecutionResponse(exec))
}
