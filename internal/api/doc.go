// Package api 註冊 HubHive 的 HTTP 與 WebSocket 路由。
//
// 房間探索、建立、加入與歷史訊息走 REST；即時訊息經由 /api/ws，
// 連線後以 join_room 事件訂閱房間。除了健康檢查以外，所有路由都需要 JWT。
package api
