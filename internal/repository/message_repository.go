package repository

import (
	"context"

	"gorm.io/gorm/clause"

	"hubhive/internal/models"
	"hubhive/internal/storage"
)

type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	FindByRoomID(ctx context.Context, roomID uint, limit, offset int) ([]models.Message, error)
}

type messageRepository struct {
	db *storage.Database
}

func NewMessageRepository(db *storage.Database) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(message).Error
}

// FindByRoomID 依建立時間由新到舊分頁查詢，同一時間以 id 排序
func (r *messageRepository) FindByRoomID(ctx context.Context, roomID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("chatroom_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}
