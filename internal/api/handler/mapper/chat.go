package mapper

import (
	"clixen/internal/api/handler/response"
	"clixen/internal/api/models"
)

type ChatMapper struct{}

func NewChatMapper() ChatMapper {
	return ChatMapper{}
}

func (m ChatMapper) ToSessionResponse(s models.ChatSession, includeMessages bool) response.ChatSessionResponse {
	resp := response.ChatSessionResponse{
		ID:         s.ID,
		Title:      s.Title,
		WorkflowID: s.WorkflowID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if includeMessages {
		resp.Messages = make([]response.ChatMessageResponse, 0, len(s.Messages))
		for _, msg := range s.Messages {
			resp.Messages = append(resp.Messages, response.ChatMessageResponse{
				ID:        msg.ID,
				Role:      string(msg.Role),
				Content:   msg.Content,
				CreatedAt: msg.CreatedAt,
			})
		}
	}
	return resp
}

func (m ChatMapper) ToSessionResponses(sessions []models.ChatSession) []response.ChatSessionResponse {
	out := make([]response.ChatSessionResponse, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, m.ToSessionResponse(s, false))
	}
	return out
}
