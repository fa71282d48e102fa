package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hubhive/internal/service"
)

// statusFromError 把業務錯誤對應到 HTTP 狀態碼
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrCapacity):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError 回傳錯誤；伺服器錯誤只記錄細節，不回傳給客戶端
func respondError(c *gin.Context, log *zap.Logger, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseRoomID 解析路徑中的房間 ID；格式錯誤時視為不存在
func parseRoomID(c *gin.Context) (uint, bool) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || roomID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRoomNotFound.Error()})
		return 0, false
	}
	return uint(roomID), true
}
