package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"hubhive/internal/geo"
	"hubhive/internal/models"
	"hubhive/internal/repository"
	"hubhive/internal/utils"
)

// CurrentUser 是經過驗證的請求者
type CurrentUser struct {
	ID       uint
	UserType models.UserType
}

// User 是回傳給客戶端的個人資料
type User struct {
	ID             uint            `json:"id"`
	Username       string          `json:"username"`
	UserType       models.UserType `json:"user_type"`
	Bio            string          `json:"bio"`
	Location       *geo.Location   `json:"location"`
	ProfilePicture string          `json:"profile_picture"`
}

// ProfileUpdate 列出用戶可以修改的欄位，nil 表示不變更
// 欄位長度由 handler 的 binding 標籤檢查
type ProfileUpdate struct {
	Bio            *string
	Location       *geo.Location
	ProfilePicture *string
}

// Validate 檢查座標範圍
func (u ProfileUpdate) Validate() error {
	if !u.Location.Valid() {
		return ErrInvalidLocation
	}
	return nil
}

func (u ProfileUpdate) apply(user *models.User) {
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
	if u.Location != nil {
		user.Location = u.Location
	}
	if u.ProfilePicture != nil {
		user.ProfilePicture = *u.ProfilePicture
	}
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   *utils.TokenManager
}

func NewUserService(userRepo repository.UserRepository, tokens *utils.TokenManager) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

// CurrentUser 由 token 取得目前用戶；token 無效或用戶不存在時回傳 ErrInvalidToken
func (s *UserService) CurrentUser(ctx context.Context, token string) (*CurrentUser, error) {
	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load current user: %w", err)
	}

	return &CurrentUser{ID: user.ID, UserType: user.UserType}, nil
}

// IsBusinessAccount 判斷用戶是否為商家帳號；不存在的用戶不是商家
func (s *UserService) IsBusinessAccount(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user: %w", err)
	}
	return user.UserType == models.UserTypeBusiness, nil
}

func (s *UserService) GetUser(ctx context.Context, userID uint) (*User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}
	return convertModelToUser(user), nil
}

// UpdateProfile 套用部分更新
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*User, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}

	update.apply(user)
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	return convertModelToUser(user), nil
}

func convertModelToUser(model *models.User) *User {
	return &User{
		ID:             model.ID,
		Username:       model.Username,
		UserType:       model.UserType,
		Bio:            model.Bio,
		Location:       model.Location,
		ProfilePicture: model.ProfilePicture,
	}
}
