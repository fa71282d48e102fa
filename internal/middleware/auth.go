package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hubhive/internal/service"
)

// 存放在 gin.Context 中的鍵
const (
	ContextUserID   = "userID"
	ContextUserType = "userType"
)

// Authenticator 由 token 解析出目前用戶
type Authenticator interface {
	CurrentUser(ctx context.Context, token string) (*service.CurrentUser, error)
}

// AuthMiddleware 是一個 Gin 中間件，用於驗證請求的 JWT token
// 優先讀取 Authorization 標頭；瀏覽器的 WebSocket 無法帶標頭，因此也接受 ?token=
func AuthMiddleware(auth Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		user, err := auth.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				log.Error("resolve current user", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		// 將用戶信息設置到上下文中
		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserType, user.UserType)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, bool) {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}

	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// CurrentUserID 取得已驗證的用戶 ID
func CurrentUserID(c *gin.Context) uint {
	return c.GetUint(ContextUserID)
}
