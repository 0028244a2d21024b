package repo

import (
	"clixen"
	"clixen/internal/api/models"

	"gorm.io/gorm"
)

type WorkflowRepository struct {
	Db *gorm.DB
}

func NewWorkflowRepository() *WorkflowRepository {
	return &WorkflowRepository{Db: clixen.DB}
}

// FindByID retrieves a workflow with its deployment history
func (slf *WorkflowRepository) FindByID(id uint) (models.Workflow, error) {
	var workflow models.Workflow
	err := slf.Db.
		Preload("Deployments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		First(&workflow, id).Error
	return workflow, err
}

// FindByIDSimple retrieves a workflow without preloading
func (slf *WorkflowRepository) FindByIDSimple(id uint) (models.Workflow, error) {
	var workflow models.Workflow
	err := slf.Db.First(&workflow, id).Error
	return workflow, err
}

// FindPageByOwner retrieves one page of a user's workflows, newest first
func (slf *WorkflowRepository) FindPageByOwner(ownerID uint, page, pageSize int) ([]models.Workflow, int64, error) {
	var total int64
	if err := slf.Db.Model(&models.Workflow{}).
		Where("owner_id = ?", ownerID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var workflows []models.Workflow
	err := slf.Db.
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&workflows).Error
	return workflows, total, err
}

func (slf *WorkflowRepository) Create(workflow *models.Workflow) error {
	return slf.Db.Create(workflow).Error
}

func (slf *WorkflowRepository) Update(workflow *models.Workflow) error {
	return slf.Db.Save(workflow).Error
}

// UpdateDeployState updates only the fields touched by a deploy attempt
func (slf *WorkflowRepository) UpdateDeployState(id uint, remoteID string, status models.WorkflowStatus) error {
	return slf.Db.Model(&models.Workflow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"remote_id": remoteID,
			"status":    status,
		}).Error
}

func (slf *WorkflowRepository) Delete(id uint) error {
	return slf.Db.Delete(&models.Workflow{}, id).Error
}

// IsOwnedBy reports whether the workflow belongs to the user
func (slf *WorkflowRepository) IsOwnedBy(id, ownerID uint) (bool, error) {
	var count int64
	err := slf.Db.Model(&models.Workflow{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Count(&count).Error
	return count > 0, err
}
