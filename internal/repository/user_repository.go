package repository

import (
	"context"

	"hubhive/internal/models"
	"hubhive/internal/storage"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uint) (*models.User, error)
	UpdateProfile(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *storage.Database
}

func NewUserRepository(db *storage.Database) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile 只寫入可由用戶修改的個人資料欄位
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Model(user).
		Select("Bio", "Location", "ProfilePicture").
		Updates(user).Error
}
