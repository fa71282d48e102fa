package storage

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hubhive/pkg/config"
)

// Database 包裝 gorm.DB，所有 repository 都透過它存取資料庫
type Database struct {
	*gorm.DB
}

// Open 依照設定中的 driver 開啟資料庫連線
func Open(cfg config.DBConfig) (*Database, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres", "postgresql":
		return NewPostgresDB(cfg)
	case "sqlite", "sqlite3":
		return NewSQLiteDB(cfg.Path, cfg.LogLevel)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewPostgresDB(cfg config.DBConfig) (*Database, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode, cfg.TimeZone)

	return New(postgres.Open(dsn), cfg.LogLevel)
}

// NewSQLiteDB 開啟 SQLite 資料庫，用於本機開發與測試
// SQLite 只允許單一寫入者，因此連線池限制為一條
func NewSQLiteDB(path, logLevel string) (*Database, error) {
	db, err := New(sqlite.Open(path), logLevel)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func New(dialector gorm.Dialector, logLevel string) (*Database, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(parseLogLevel(logLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{DB: db}, nil
}

func (db *Database) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate 自動遷移資料庫結構
func (db *Database) AutoMigrate(models ...interface{}) error {
	return db.DB.AutoMigrate(models...)
}

// Transaction 在單一交易中執行 fn，fn 回傳錯誤或 panic 時回滾
func (db *Database) Transaction(ctx context.Context, fn func(tx *Database) error) error {
	return db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Database{DB: tx})
	})
}

// IsPostgres 回傳目前連線是否為 PostgreSQL
func (db *Database) IsPostgres() bool {
	return db.Dialector.Name() == "postgres"
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
