package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubhive/internal/geo"
	"hubhive/internal/models"
	"hubhive/internal/repository"
	"hubhive/internal/storage/storagetest"
	"hubhive/internal/utils"
)

func strPtr(s string) *string { return &s }

func TestUserService_CurrentUser(t *testing.T) {
	db := storagetest.NewDB(t)
	tokens := utils.NewTokenManager("test-secret", time.Hour)
	svc := NewUserService(repository.NewUserRepository(db), tokens)
	ctx := context.Background()

	shop := storagetest.CreateUser(t, db, "shop", models.UserTypeBusiness)

	token, err := tokens.GenerateToken(shop.ID, string(shop.UserType))
	require.NoError(t, err)

	current, err := svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, shop.ID, current.ID)
	assert.Equal(t, models.UserTypeBusiness, current.UserType)

	_, err = svc.CurrentUser(ctx, "garbage")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	ghost, err := tokens.GenerateToken(shop.ID+100, "regular")
	require.NoError(t, err)
	_, err = svc.CurrentUser(ctx, ghost)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestUserService_IsBusinessAccount(t *testing.T) {
	db := storagetest.NewDB(t)
	svc := NewUserService(repository.NewUserRepository(db), utils.NewTokenManager("s", 0))
	ctx := context.Background()

	shop := storagetest.CreateUser(t, db, "shop", models.UserTypeBusiness)
	person := storagetest.CreateUser(t, db, "person", models.UserTypeRegular)

	for _, tt := range []struct {
		userID uint
		want   bool
	}{
		{shop.ID, true},
		{person.ID, false},
		{12345, false},
	} {
		got, err := svc.IsBusinessAccount(ctx, tt.userID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "user %d", tt.userID)
	}

	// 資料庫錯誤要回傳，不能當成一般帳號
	require.NoError(t, db.Close())
	_, err := svc.IsBusinessAccount(ctx, shop.ID)
	assert.Error(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	db := storagetest.NewDB(t)
	svc := NewUserService(repository.NewUserRepository(db), utils.NewTokenManager("s", 0))
	ctx := context.Background()

	user := storagetest.CreateUser(t, db, "alice", models.UserTypeRegular)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Bio: strPtr("coffee nerd")})
	require.NoError(t, err)
	assert.Equal(t, "coffee nerd", updated.Bio)
	assert.Nil(t, updated.Location)

	updated, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{
		Location:       geo.NewLocation(25.03, 121.56, "Taipei"),
		ProfilePicture: strPtr("https://cdn.example.com/alice.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "coffee nerd", updated.Bio, "fields left nil are unchanged")
	assert.Equal(t, "https://cdn.example.com/alice.png", updated.ProfilePicture)

	stored, err := svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Taipei", stored.Location.Address)
	assert.Equal(t, "coffee nerd", stored.Bio)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Location: geo.NewLocation(0, 200, "")})
	assert.ErrorIs(t, err, ErrInvalidLocation)

	_, err = svc.UpdateProfile(ctx, 999, ProfileUpdate{Bio: strPtr("x")})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
