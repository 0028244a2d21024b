package models

import (
	"time"

	"gorm.io/gorm"
)

type WorkflowStatus string

const (
	WorkflowStatusDraft    WorkflowStatus = "draft"
	WorkflowStatusDeployed WorkflowStatus = "deployed"
	WorkflowStatusRejected WorkflowStatus = "rejected"
	WorkflowStatusError    WorkflowStatus = "error"
)

// Workflow stores one user's workflow: the definition as submitted, the
// healed definition that actually ships to the engine, and the deploy state.
type Workflow struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null"`
	OwnerID     uint   `gorm:"index;not null"`
	Owner       User
	RawGraph    GraphData `gorm:"type:jsonb"`
	HealedGraph GraphData `gorm:"type:jsonb"`
	FixLog      GraphData `gorm:"type:jsonb"`
	Confidence  float64
	RemoteID    string         `gorm:"index"`
	Status      WorkflowStatus `gorm:"default:draft"`
	Deployments []Deployment   `gorm:"foreignKey:WorkflowID"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

func (Workflow) TableName() string {
	return "workflows"
}
