// Package storagetest 提供測試用的記憶體資料庫。
package storagetest

import (
	"context"
	"fmt"
	"testing"

	"hubhive/internal/models"
	"hubhive/internal/storage"
)

// NewDB 建立已完成遷移的 SQLite 記憶體資料庫，測試結束時自動關閉
func NewDB(t testing.TB) *storage.Database {
	t.Helper()

	db, err := storage.NewSQLiteDB(":memory:", "silent")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// CreateUser 新增一位測試用戶
func CreateUser(t testing.TB, db *storage.Database, username string, userType models.UserType) *models.User {
	t.Helper()

	user := &models.User{Username: username, UserType: userType}
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("failed to create user %q: %v", username, err)
	}
	return user
}

// CreateUsers 依序新增 n 位一般用戶
func CreateUsers(t testing.TB, db *storage.Database, n int) []*models.User {
	t.Helper()

	users := make([]*models.User, 0, n)
	for i := 1; i <= n; i++ {
		users = append(users, CreateUser(t, db, fmt.Sprintf("user%d", i), models.UserTypeRegular))
	}
	return users
}
