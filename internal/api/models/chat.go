package models

import (
	"time"

	"gorm.io/gorm"
)

type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatSession groups the messages of one workflow-drafting conversation.
// WorkflowID is set once the drafted workflow has been saved.
type ChatSession struct {
	ID         uint           `gorm:"primaryKey"`
	OwnerID    uint           `gorm:"index;not null"`
	Title      string         `gorm:"not null"`
	WorkflowID *uint          `gorm:"index"`
	Messages   []ChatMessage  `gorm:"foreignKey:SessionID"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID uint      `gorm:"index;not null"`
	Role      ChatRole  `gorm:"not null"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
