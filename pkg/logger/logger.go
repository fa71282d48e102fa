package logger

import (
	"go.uber.org/zap"
)

type Config struct {
	Development bool
}

// New 建立 zap logger
// 開發模式輸出彩色文字，正式環境輸出 JSON
func New(cfg Config) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
