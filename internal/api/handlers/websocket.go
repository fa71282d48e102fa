package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"hubhive/internal/middleware"
	"hubhive/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	defaultReadMax = 4096
)

// 定義 WebSocket 升級器
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // 注意：在生產環境中，應該檢查 origin
	},
}

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	hub       *service.Hub
	readLimit int64
	log       *zap.Logger
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例
func NewWebSocketHandler(hub *service.Hub, readLimit int64, log *zap.Logger) *WebSocketHandler {
	if readLimit <= 0 {
		readLimit = defaultReadMax
	}
	return &WebSocketHandler{hub: hub, readLimit: readLimit, log: log}
}

// inboundEvent 客戶端送來的事件
type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type roomPayload struct {
	ChatroomID uint `json:"chatroom_id"`
}

// HandleWebSocket 處理 WebSocket 連接請求
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	// 升級 HTTP 連接為 WebSocket 連接，失敗時 upgrader 已回應錯誤
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := h.hub.NewConnection(middleware.CurrentUserID(c))
	h.hub.Connect(client)
	h.log.Info("client connected", zap.String("conn_id", client.ID), zap.Uint("user_id", client.UserID))

	// 升級後的連線不受請求生命週期控制
	ctx := context.WithoutCancel(c.Request.Context())

	go h.writePump(conn, client)
	h.readPump(ctx, conn, client)
}

// readPump 持續監聽並處理從客戶端接收的消息，結束時清理連線
func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, client *service.Connection) {
	defer func() {
		h.hub.Disconnect(client.ID)
		conn.Close()
		h.log.Info("client disconnected", zap.String("conn_id", client.ID), zap.Uint("user_id", client.UserID))
	}()

	conn.SetReadLimit(h.readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warn("websocket unexpected close", zap.String("conn_id", client.ID), zap.Error(err))
			}
			return
		}
		h.dispatch(ctx, client, data)
	}
}

// writePump 把 hub 排入的框架寫到客戶端並定時送出 ping
func (h *WebSocketHandler) writePump(conn *websocket.Conn, client *service.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case frame, ok := <-client.Send():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub 已關閉通道
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch 依事件名稱轉交給 hub
func (h *WebSocketHandler) dispatch(ctx context.Context, client *service.Connection, data []byte) {
	var evt inboundEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		h.hub.ReplyError(client, service.ErrMalformedPayload)
		return
	}

	switch evt.Event {
	case service.EventJoinRoom, service.EventLeaveRoom:
		var p roomPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil || p.ChatroomID == 0 {
			h.hub.ReplyError(client, service.ErrMalformedPayload)
			return
		}
		if evt.Event == service.EventJoinRoom {
			if err := h.hub.Subscribe(client.ID, p.ChatroomID); err != nil {
				return
			}
			h.log.Debug("socket joined room", zap.String("conn_id", client.ID), zap.Uint("room_id", p.ChatroomID))
			return
		}
		h.hub.Unsubscribe(client.ID, p.ChatroomID)
		h.log.Debug("socket left room", zap.String("conn_id", client.ID), zap.Uint("room_id", p.ChatroomID))

	case service.EventSendMessage:
		var p service.SendPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			h.hub.ReplyError(client, service.ErrMalformedPayload)
			return
		}
		// 錯誤已由 hub 回覆給發送者
		_ = h.hub.HandleSend(ctx, client, p)

	default:
		h.hub.ReplyError(client, service.ErrUnknownEvent)
	}
}
