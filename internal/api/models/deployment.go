package models

import "time"

// Deployment is one audit row per deploy attempt, successful or not.
type Deployment struct {
	ID         uint `gorm:"primaryKey"`
	WorkflowID uint `gorm:"index;not null"`
	RemoteID   string
	Status     WorkflowStatus
	Message    string
	FixCount   int
	Confidence float64
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (Deployment) TableName() string {
	return "deployments"
}
