package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"clixen"
	"clixen/internal/api/healer"
	"clixen/internal/api/models"
	"clixen/internal/api/repo"
	"clixen/pkg"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const draftSystemPrompt = "You are a workflow designer. Reply with a single JSON workflow " +
	"definition: an object with name, nodes and connections. Node kinds are " +
	"trigger.manual, trigger.webhook, trigger.schedule, action.httpRequest, " +
	"action.setValues and action.respond."

// workflowDraftSchema constrains the assistant to the engine's export shape.
var workflowDraftSchema = map[string]any{
	"type":     "object",
	"required": []string{"name", "nodes", "connections"},
	"properties": map[string]any{
		"name":        map[string]any{"type": "string"},
		"nodes":       map[string]any{"type": "array"},
		"connections": map[string]any{"type": "object"},
	},
}

// AssistantService turns chat prompts into workflow drafts via the hosted
// LLM, healing every draft before it is shown to the user.
type AssistantService struct {
	chatRepo *repo.ChatRepository
	engine   *healer.Engine
	config   clixen.AppConfig
	logger   zerolog.Logger
	client   *http.Client
}

func NewAssistantService() *AssistantService {
	return &AssistantService{
		chatRepo: repo.NewChatRepository(),
		engine:   healer.NewEngine(clixen.Logger),
		config:   clixen.GetConfig(),
		logger:   clixen.Logger,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (slf *AssistantService) CreateSession(ownerID uint, title string) (*models.ChatSession, error) {
	session := models.ChatSession{OwnerID: ownerID, Title: title}
	if err := slf.chatRepo.CreateSession(&session); err != nil {
		slf.logger.Error().Err(err).Msg("Error creating chat session")
		return nil, err
	}
	return &session, nil
}

func (slf *AssistantService) FindSessionsForUser(ownerID uint) ([]models.ChatSession, error) {
	return slf.chatRepo.FindSessionsByOwner(ownerID)
}

func (slf *AssistantService) FindSessionByID(id uint) (*models.ChatSession, error) {
	session, err := slf.chatRepo.FindSessionByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New("chat session not found")
		}
		return nil, err
	}
	return &session, nil
}

func (slf *AssistantService) CanUserAccess(id, userID uint) (bool, error) {
	return slf.chatRepo.IsOwnedBy(id, userID)
}

// LinkWorkflow records which saved workflow a session produced.
func (slf *AssistantService) LinkWorkflow(sessionID, workflowID uint) error {
	session, err := slf.chatRepo.FindSessionByID(sessionID)
	if err != nil {
		return err
	}
	session.WorkflowID = pkg.ToPtr(workflowID)
	return slf.chatRepo.UpdateSession(&session)
}

// SendMessage appends the user's prompt, asks the assistant for a workflow
// draft, heals it under the user's isolation context, and stores the healed
// draft as the assistant's reply.
func (slf *AssistantService) SendMessage(sessionID uint, user models.User, content string) (*models.ChatSession, *healer.Result, error) {
	session, err := slf.chatRepo.FindSessionByID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, errors.New("chat session not found")
		}
		return nil, nil, err
	}

	userMsg := models.ChatMessage{SessionID: session.ID, Role: models.ChatRoleUser, Content: content}
	if err := slf.chatRepo.AppendMessage(&userMsg); err != nil {
		return nil, nil, err
	}
	session.Messages = append(session.Messages, userMsg)

	draft, err := slf.draftWorkflow(session.Messages)
	if err != nil {
		slf.logger.Error().Err(err).Uint("sessionId", sessionID).Msg("Assistant draft failed")
		return nil, nil, err
	}

	result, err := slf.engine.Heal(draft, &healer.Context{
		Identity: user.Identity,
		Seed:     uint64(time.Now().UnixNano()),
		Email: healer.EmailProvider{
			Endpoint: slf.config.EmailConfig.APIURL,
			APIKey:   slf.config.EmailConfig.APIKey,
			From:     slf.config.EmailConfig.From,
		},
	})
	if err != nil {
		slf.logger.Error().Err(err).Uint("sessionId", sessionID).Msg("Assistant draft did not parse")
		return nil, nil, fmt.Errorf("assistant produced an unusable draft: %w", err)
	}

	healed, err := result.Graph.Marshal()
	if err != nil {
		return nil, nil, err
	}

	assistantMsg := models.ChatMessage{SessionID: session.ID, Role: models.ChatRoleAssistant, Content: string(healed)}
	if err := slf.chatRepo.AppendMessage(&assistantMsg); err != nil {
		return nil, nil, err
	}
	session.Messages = append(session.Messages, assistantMsg)

	return &session, result, nil
}

type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type assistantApiCall struct {
	Model    string             `json:"model"`
	Messages []assistantMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Format   map[string]any     `json:"format"`
	Options  map[string]any     `json:"options"`
}

type assistantRawResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// draftWorkflow calls the hosted LLM with structured output and returns the
// raw workflow JSON it produced.
func (slf *AssistantService) draftWorkflow(history []models.ChatMessage) ([]byte, error) {
	host := slf.config.AssistantConfig.Host
	if host == "" {
		return nil, errors.New("assistant is not configured")
	}

	messages := []assistantMessage{{Role: "system", Content: draftSystemPrompt}}
	start := 0
	if limit := slf.config.AssistantConfig.MessageLimit; limit > 0 && len(history) > limit {
		start = len(history) - limit
	}
	for _, msg := range history[start:] {
		role := "user"
		if msg.Role == models.ChatRoleAssistant {
			role = "assistant"
		}
		messages = append(messages, assistantMessage{Role: role, Content: msg.Content})
	}

	call := assistantApiCall{
		Model:    slf.config.AssistantConfig.Model,
		Messages: messages,
		Stream:   false,
		Format:   workflowDraftSchema,
		Options:  map[string]any{"temperature": 0},
	}

	data, err := json.Marshal(call)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/chat", host), bytes.NewBuffer(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := slf.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var raw assistantRawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	if !raw.Done {
		return nil, errors.New("assistant call not done")
	}
	return []byte(raw.Message.Content), nil
}
