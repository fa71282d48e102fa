package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// 即時通道事件名稱
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventNewMessage  = "new_message"
	EventError       = "error"
)

const defaultSendBuffer = 256

// ErrConnectionClosed 連線已不在 hub 中
var ErrConnectionClosed = errors.New("connection closed")

// Event 是即時通道上傳送的一個框架
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// EncodeEvent 將事件編碼為 JSON 框架
func EncodeEvent(name string, data interface{}) ([]byte, error) {
	return json.Marshal(Event{Name: name, Data: data})
}

// SendPayload 是 send_message 事件的內容
type SendPayload struct {
	ChatroomID  uint    `json:"chatroom_id"`
	UserID      uint    `json:"user_id"`
	Content     string  `json:"content"`
	MessageType string  `json:"message_type"`
	MediaURL    *string `json:"media_url"`
}

// MessageSender 驗證並儲存訊息，由 RoomService 實作
type MessageSender interface {
	SendMessage(ctx context.Context, input SendMessageInput) (*Message, error)
}

// Relay 把房間事件轉發到所有服務實例
type Relay interface {
	Publish(ctx context.Context, roomID uint, frame []byte) error
}

type HubConfig struct {
	SendBuffer int
	SendRate   float64
	SendBurst  int
}

// Connection 代表一條即時連線
// 出站框架先進入緩衝通道，由傳輸層的寫入迴圈取出
type Connection struct {
	ID      string
	UserID  uint
	send    chan []byte
	limiter *rate.Limiter
}

// Send 回傳出站框架通道；連線斷開後通道會被關閉
func (c *Connection) Send() <-chan []byte {
	return c.send
}

func (c *Connection) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Hub 管理所有即時連線、房間訂閱與訊息分發
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Connection          // connID -> 連線
	rooms map[uint]map[string]*Connection // roomID -> 訂閱中的連線
	subs  map[string]map[uint]struct{}    // connID -> 已訂閱的房間

	sender MessageSender
	relay  Relay
	cfg    HubConfig
	log    *zap.Logger
}

func NewHub(sender MessageSender, cfg HubConfig, log *zap.Logger) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &Hub{
		conns:  make(map[string]*Connection),
		rooms:  make(map[uint]map[string]*Connection),
		subs:   make(map[string]map[uint]struct{}),
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// SetRelay 設定跨實例轉發；nil 表示只在本機分發
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = relay
}

// NewConnection 建立尚未註冊的連線
func (h *Hub) NewConnection(userID uint) *Connection {
	limit := rate.Inf
	if h.cfg.SendRate > 0 {
		limit = rate.Limit(h.cfg.SendRate)
	}
	burst := h.cfg.SendBurst
	if burst <= 0 {
		burst = 1
	}

	return &Connection{
		ID:      uuid.NewString(),
		UserID:  userID,
		send:    make(chan []byte, h.cfg.SendBuffer),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Connect 註冊連線
func (h *Hub) Connect(c *Connection) {
	h.mu.Lock()
	h.conns[c.ID] = c
	h.subs[c.ID] = make(map[uint]struct{})
	h.mu.Unlock()

	h.log.Debug("connection registered", zap.String("conn_id", c.ID), zap.Uint("user_id", c.UserID))
}

// Subscribe 把連線加入房間的分發名單，不檢查房間成員資格
func (h *Hub) Subscribe(connID string, roomID uint) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return ErrConnectionClosed
	}

	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[string]*Connection)
	}
	h.rooms[roomID][connID] = c
	h.subs[connID][roomID] = struct{}{}
	return nil
}

// Unsubscribe 把連線移出房間的分發名單；原本沒有訂閱也不算錯誤
func (h *Hub) Unsubscribe(connID string, roomID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(connID, roomID)
}

// Disconnect 移除連線的所有訂閱並關閉出站通道
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.conns[connID]
	if !ok {
		return
	}

	for roomID := range h.subs[connID] {
		h.removeLocked(connID, roomID)
	}
	delete(h.subs, connID)
	delete(h.conns, connID)
	close(c.send)

	h.log.Debug("connection removed", zap.String("conn_id", connID), zap.Uint("user_id", c.UserID))
}

func (h *Hub) removeLocked(connID string, roomID uint) {
	if clients, ok := h.rooms[roomID]; ok {
		delete(clients, connID)
		// 房間沒有訂閱者時刪除
		if len(clients) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if rooms, ok := h.subs[connID]; ok {
		delete(rooms, roomID)
	}
}

// Publish 發佈房間事件
// 有設定 relay 時交給 relay 轉發到所有實例，失敗則退回本機分發
func (h *Hub) Publish(ctx context.Context, roomID uint, frame []byte) {
	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()

	if relay != nil {
		err := relay.Publish(ctx, roomID, frame)
		if err == nil {
			return
		}
		h.log.Warn("relay publish failed, delivering locally", zap.Uint("room_id", roomID), zap.Error(err))
	}
	h.Deliver(roomID, frame)
}

// Deliver 把框架放入房間內每條連線的出站佇列
// 佇列已滿的連線會被略過，不影響其他連線；回傳成功放入的數量
func (h *Hub) Deliver(roomID uint, frame []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for connID, c := range h.rooms[roomID] {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		h.log.Warn("send buffer full, dropping frame",
			zap.String("conn_id", connID),
			zap.Uint("room_id", roomID))
	}
	return delivered
}

// HandleSend 處理 send_message：驗證並儲存後分發給房間，失敗時只回覆發送者
func (h *Hub) HandleSend(ctx context.Context, c *Connection, payload SendPayload) error {
	userID := payload.UserID
	if c.UserID != 0 {
		if userID != 0 && userID != c.UserID {
			h.ReplyError(c, ErrSenderMismatch)
			return ErrSenderMismatch
		}
		userID = c.UserID
	}

	if !c.limiter.Allow() {
		h.ReplyError(c, ErrTooManyMessages)
		return ErrTooManyMessages
	}

	msg, err := h.sender.SendMessage(ctx, SendMessageInput{
		RoomID:      payload.ChatroomID,
		UserID:      userID,
		Content:     payload.Content,
		MessageType: payload.MessageType,
		MediaURL:    payload.MediaURL,
	})
	if err != nil {
		h.ReplyError(c, err)
		return err
	}

	frame, err := EncodeEvent(EventNewMessage, map[string]interface{}{"message": msg})
	if err != nil {
		h.log.Error("encode new_message", zap.Error(err))
		return err
	}
	h.Publish(ctx, payload.ChatroomID, frame)
	return nil
}

// ReplyError 只傳送 error 事件給指定連線
// 非業務錯誤不把細節告訴客戶端
func (h *Hub) ReplyError(c *Connection, err error) {
	message := "internal server error"
	if IsDomainError(err) {
		message = err.Error()
	} else {
		h.log.Error("realtime operation failed", zap.String("conn_id", c.ID), zap.Error(err))
	}

	frame, encErr := EncodeEvent(EventError, map[string]string{"error": message})
	if encErr != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[c.ID]; ok {
		c.enqueue(frame)
	}
}

// RoomSubscribers 取得房間目前的在線連線數
func (h *Hub) RoomSubscribers(roomID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.rooms[roomID])
}

// Subscriptions 回傳連線目前訂閱的房間
func (h *Hub) Subscriptions(connID string) []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]uint, 0, len(h.subs[connID]))
	for roomID := range h.subs[connID] {
		rooms = append(rooms, roomID)
	}
	return rooms
}
