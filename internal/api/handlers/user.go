package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hubhive/internal/geo"
	"hubhive/internal/middleware"
	"hubhive/internal/service"
)

// UserHandler 處理目前用戶的個人資料
type UserHandler struct {
	userService *service.UserService
	log         *zap.Logger
}

func NewUserHandler(userService *service.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) GetProfile(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile 部分更新個人資料，只接受 bio、location、profile_picture
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var input struct {
		Bio            *string       `json:"bio" binding:"omitempty,max=500"`
		Location       *geo.Location `json:"location"`
		ProfilePicture *string       `json:"profile_picture" binding:"omitempty,max=500"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), service.ProfileUpdate{
		Bio:            input.Bio,
		Location:       input.Location,
		ProfilePicture: input.ProfilePicture,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}
