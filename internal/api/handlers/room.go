package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hubhive/internal/geo"
	"hubhive/internal/middleware"
	"hubhive/internal/service"
)

// RoomHandler 處理與聊天室相關的請求
type RoomHandler struct {
	roomService *service.RoomService
	hub         *service.Hub
	log         *zap.Logger
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, hub *service.Hub, log *zap.Logger) *RoomHandler {
	return &RoomHandler{roomService: roomService, hub: hub, log: log}
}

// ListRooms 列出公開房間；同時帶 lat 與 lng 時依距離篩選
func (h *RoomHandler) ListRooms(c *gin.Context) {
	var center *geo.Point
	lat, latOK := queryFloat(c, "lat")
	lng, lngOK := queryFloat(c, "lng")
	if latOK && lngOK {
		center = &geo.Point{Latitude: lat, Longitude: lng}
	}

	maxDistance, ok := queryFloat(c, "max_distance")
	if !ok {
		maxDistance = service.DefaultDiscoveryRadiusKm
	}

	rooms, err := h.roomService.DiscoverRooms(c.Request.Context(), center, maxDistance)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chatrooms": rooms})
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input struct {
		Name            string        `json:"name"`
		Description     string        `json:"description"`
		BusinessID      *uint         `json:"business_id"`
		Location        *geo.Location `json:"location"`
		IsPrivate       bool          `json:"is_private"`
		MaxParticipants *int          `json:"max_participants"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), middleware.CurrentUserID(c), service.CreateRoomInput{
		Name:            input.Name,
		Description:     input.Description,
		BusinessID:      input.BusinessID,
		Location:        input.Location,
		IsPrivate:       input.IsPrivate,
		MaxParticipants: input.MaxParticipants,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Chatroom created", "chatroom": room})
}

// GetRoom 處理獲取房間訊息的請求
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.GetRoom(c.Request.Context(), middleware.CurrentUserID(c), roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chatroom": room})
}

// JoinRoom 處理加入房間的請求
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	room, err := h.roomService.JoinRoom(c.Request.Context(), middleware.CurrentUserID(c), roomID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Joined chatroom", "chatroom": room})
}

// GetMessages 取得歷史訊息，由舊到新
func (h *RoomHandler) GetMessages(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	limit := queryInt(c, "limit", service.DefaultMessageLimit)
	offset := queryInt(c, "offset", 0)

	messages, err := h.roomService.ListMessages(c.Request.Context(), roomID, middleware.CurrentUserID(c), limit, offset)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// GetOnlineCount 取得房間目前的即時連線數
func (h *RoomHandler) GetOnlineCount(c *gin.Context) {
	roomID, ok := parseRoomID(c)
	if !ok {
		return
	}

	if _, err := h.roomService.GetRoom(c.Request.Context(), middleware.CurrentUserID(c), roomID); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"online": h.hub.RoomSubscribers(roomID)})
}

// queryFloat 讀取浮點數參數；缺少或格式錯誤時 ok 為 false
func queryFloat(c *gin.Context, key string) (float64, bool) {
	raw, exists := c.GetQuery(key)
	if !exists {
		return 0, false
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}
