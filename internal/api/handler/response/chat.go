package response

import "time"

type ChatSessionResponse struct {
	ID         uint                  `json:"id"`
	Title      string                `json:"title"`
	WorkflowID *uint                 `json:"workflowId,omitempty"`
	Messages   []ChatMessageResponse `json:"messages,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
	UpdatedAt  time.Time             `json:"updatedAt"`
}

type ChatMessageResponse struct {
	ID        uint      `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}
