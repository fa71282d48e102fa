package repository

import (
	"context"

	"hubhive/internal/storage"
)

type Repositories struct {
	db      *storage.Database
	User    UserRepository
	Room    RoomRepository
	Message MessageRepository
}

func NewRepositories(db *storage.Database) *Repositories {
	return &Repositories{
		db:      db,
		User:    NewUserRepository(db),
		Room:    NewRoomRepository(db),
		Message: NewMessageRepository(db),
	}
}

// Transaction 以同一個資料庫交易建立一組 repositories 並執行 fn
// fn 回傳錯誤時整個交易回滾
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.Transaction(ctx, func(tx *storage.Database) error {
		return fn(NewRepositories(tx))
	})
}
