package request

// CreateChatSession opens a new workflow-drafting conversation.
type CreateChatSession struct {
	Title string `json:"title" validate:"required"`
}

// SendChatMessage asks the assistant to draft or refine a workflow.
type SendChatMessage struct {
	Content string `json:"content" validate:"required"`
}
