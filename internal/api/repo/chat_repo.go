package repo

import (
	"clixen"
	"clixen/internal/api/models"

	"gorm.io/gorm"
)

type ChatRepository struct {
	Db *gorm.DB
}

func NewChatRepository() *ChatRepository {
	return &ChatRepository{Db: clixen.DB}
}

// FindSessionByID retrieves a session with its messages in order
func (slf *ChatRepository) FindSessionByID(id uint) (models.ChatSession, error) {
	var session models.ChatSession
	err := slf.Db.
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, id).Error
	return session, err
}

// FindSessionsByOwner retrieves all sessions of one user, newest first
func (slf *ChatRepository) FindSessionsByOwner(ownerID uint) ([]models.ChatSession, error) {
	var sessions []models.ChatSession
	err := slf.Db.
		Where("owner_id = ?", ownerID).
		Order("updated_at DESC").
		Find(&sessions).Error
	return sessions, err
}

func (slf *ChatRepository) CreateSession(session *models.ChatSession) error {
	return slf.Db.Create(session).Error
}

func (slf *ChatRepository) UpdateSession(session *models.ChatSession) error {
	return slf.Db.Save(session).Error
}

func (slf *ChatRepository) AppendMessage(message *models.ChatMessage) error {
	return slf.Db.Create(message).Error
}

// IsOwnedBy reports whether the session belongs to the user
func (slf *ChatRepository) IsOwnedBy(id, ownerID uint) (bool, error) {
	var count int64
	err := slf.Db.Model(&models.ChatSession{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Count(&count).Error
	return count > 0, err
}
