package repo

import (
	"clixen"
	"clixen/internal/api/models"

	"gorm.io/gorm"
)

type DeploymentRepository struct {
	Db *gorm.DB
}

func NewDeploymentRepository() *DeploymentRepository {
	return &DeploymentRepository{Db: clixen.DB}
}

func (slf *DeploymentRepository) Create(deployment *models.Deployment) error {
	return slf.Db.Create(deployment).Error
}

// FindAllByWorkflow retrieves the deploy history of one workflow, newest first
func (slf *DeploymentRepository) FindAllByWorkflow(workflowID uint) ([]models.Deployment, error) {
	var deployments []models.Deployment
	err := slf.Db.
		Where("workflow_id = ?", workflowID).
		Order("created_at DESC").
		Find(&deployments).Error
	return deployments, err
}
