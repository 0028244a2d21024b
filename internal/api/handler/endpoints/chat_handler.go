package endpoints

import (
	"net/http"

	"clixen"
	"clixen/internal/api/handler/mapper"
	"clixen/internal/api/handler/middleware"
	"clixen/internal/api/handler/request"
	"clixen/internal/api/handler/response"
	"clixen/internal/api/models"
	"clixen/internal/api/service"
	"clixen/pkg"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type chatHandler struct {
	assistantService *service.AssistantService
	workflowService  *service.WorkflowService
	userService      *service.UserService
	chatMapper       mapper.ChatMapper
	workflowMapper   mapper.WorkflowMapper
	config           clixen.AppConfig
	logger           zerolog.Logger
}

func ChatHandler(router *graceful.Graceful, workflowService *service.WorkflowService) {
	h := &chatHandler{
		assistantService: service.NewAssistantService(),
		workflowService:  workflowService,
		userService:      service.NewUserService(),
		chatMapper:       mapper.NewChatMapper(),
		workflowMapper:   mapper.NewWorkflowMapper(),
		config:           clixen.GetConfig(),
		logger:           clixen.Logger,
	}

	routes := router.Group("/api/v1/chat")
	routes.Use(middleware.AuthMiddleware(h.config))
	{
		routes.POST("/sessions", h.createSession)
		routes.GET("/sessions", h.getSessions)
		routes.GET("/sessions/:id", h.getSession)
		routes.POST("/sessions/:id/messages", h.sendMessage)
		routes.POST("/sessions/:id/workflow", h.saveWorkflow)
	}
}

func (slf *chatHandler) checkAccess(c *gin.Context, sessionID, userID uint) bool {
	canAccess, err := slf.assistantService.CanUserAccess(sessionID, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, response.APIError{Message: "Chat session not found"})
		return false
	}
	if !canAccess {
		c.JSON(http.StatusForbidden, response.APIError{Message: "You don't have access to this session"})
		return false
	}
	return true
}

func (slf *chatHandler) createSession(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}

	var dto request.CreateChatSession
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	session, err := slf.assistantService.CreateSession(userID, dto.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, slf.chatMapper.ToSessionResponse(*session, false))
}

func (slf *chatHandler) getSessions(c *gin.Context) {
	userID, ok := pkg.GetUserID(c)
	if !ok {
		return
	}

	sessions, err := slf.assistantService.FindSessionsForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to retrieve sessions"})
		return
	}

	c.JSON(http.StatusOK, slf.chatMapper.ToSessionResponses(sessions))
}

func (slf *chatHandler) getSession(c *gin.Context) {
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

	session, err := slf.assistantService.FindSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, slf.chatMapper.ToSessionResponse(*session, true))
}

// sendMessage asks the assistant to draft a workflow from the conversation
func (slf *chatHandler) sendMessage(c *gin.Context) {
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

	var dto request.SendChatMessage
	if err := pkg.ParseAndValidate(c, &dto); err != nil {
		c.JSON(http.StatusBadRequest, response.APIError{Message: err.Error()})
		return
	}

	user, err := slf.userService.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.APIError{Message: "User not found"})
		return
	}

	session, result, err := slf.assistantService.SendMessage(id, user, dto.Content)
	if err != nil {
		slf.logger.Error().Err(err).Uint("sessionId", id).Msg("Assistant message failed")
		c.JSON(http.StatusBadGateway, response.APIError{Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session": slf.chatMapper.ToSessionResponse(*session, true),
		"draft":   result,
	})
}

// saveWorkflow persists the session's latest assistant draft as a workflow
func (slf *chatHandler) saveWorkflow(c *gin.Context) {
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

	session, err := slf.assistantService.FindSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, response.APIError{Message: err.Error()})
		return
	}

	var draft string
	for _, msg := range session.Messages {
		if msg.Role == models.ChatRoleAssistant {
			draft = msg.Content
		}
	}
	if draft == "" {
		c.JSON(http.StatusConflict, response.APIError{Message: "Session has no workflow draft yet"})
		return
	}

	user, err := slf.userService.FindByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.APIError{Message: "User not found"})
		return
	}

	workflow, _, err := slf.workflowService.Create(user, []byte(draft))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.APIError{Message: "Failed to save workflow"})
		return
	}

	if err := slf.assistantService.LinkWorkflow(session.ID, workflow.ID); err != nil {
		slf.logger.Warn().Err(err).Uint("sessionId", session.ID).Msg("Failed to link workflow to session")
	}

	c.JSON(http.StatusCreated, slf.workflowMapper.ToWorkflowResponse(*workflow, true))
}
