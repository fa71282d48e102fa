package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hubhive/internal/models"
	"hubhive/internal/storage"
)

type RoomRepository interface {
	Create(ctx context.Context, room *models.Room) error
	FindByID(ctx context.Context, id uint) (*models.Room, error)
	FindWithDetails(ctx context.Context, id uint) (*models.Room, error)
	LockByID(ctx context.Context, id uint) (*models.Room, error)
	FindPublic(ctx context.Context) ([]models.Room, error)
	AddParticipant(ctx context.Context, roomID, userID uint) error
	IsParticipant(ctx context.Context, roomID, userID uint) (bool, error)
	CountParticipants(ctx context.Context, roomID uint) (int64, error)
}

type roomRepository struct {
	db *storage.Database
}

func NewRoomRepository(db *storage.Database) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error
}

func (r *roomRepository) FindByID(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.WithContext(ctx).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindWithDetails 查詢房間並載入建立者、商家與成員
func (r *roomRepository) FindWithDetails(ctx context.Context, id uint) (*models.Room, error) {
	var room models.Room
	err := r.withDetails(ctx).First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// LockByID 在交易中鎖定房間列，直到交易結束
// SQLite 不支援列鎖，只有 PostgreSQL 會加上 FOR UPDATE
func (r *roomRepository) LockByID(ctx context.Context, id uint) (*models.Room, error) {
	q := r.db.WithContext(ctx)
	if r.db.IsPostgres() {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var room models.Room
	if err := q.First(&room, id).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// FindPublic 查詢所有公開房間，新建立的在前
func (r *roomRepository) FindPublic(ctx context.Context) ([]models.Room, error) {
	var rooms []models.Room
	err := r.withDetails(ctx).
		Where("is_private = ?", false).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rooms).Error
	return rooms, err
}

// AddParticipant 加入成員；重複加入不會報錯
func (r *roomRepository) AddParticipant(ctx context.Context, roomID, userID uint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Participant{RoomID: roomID, UserID: userID}).Error
}

func (r *roomRepository) IsParticipant(ctx context.Context, roomID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("chatroom_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *roomRepository) CountParticipants(ctx context.Context, roomID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Participant{}).
		Where("chatroom_id = ?", roomID).
		Count(&count).Error
	return count, err
}

func (r *roomRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Business").
		Preload("Participants", func(db *gorm.DB) *gorm.DB {
			return db.Order("joined_at ASC").Order("user_id ASC")
		})
}
