// Package middleware 提供 gin 中間件。
//
// AuthMiddleware 解析 JWT 並把用戶放進 gin.Context；
// RequestLogger 以 zap 記錄每個請求。
package middleware
