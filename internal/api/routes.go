package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"hubhive/internal/api/handlers"
	"hubhive/internal/middleware"
	"hubhive/internal/service"
)

type Options struct {
	ReadLimit int64 // 單一 WebSocket 訊息的大小上限
}

func SetupRoutes(r *gin.Engine, services *service.Services, log *zap.Logger, opts Options) {
	// 初始化 handlers
	roomHandler := handlers.NewRoomHandler(services.Room, services.Hub, log.Named("rooms"))
	userHandler := handlers.NewUserHandler(services.User, log.Named("users"))
	wsHandler := handlers.NewWebSocketHandler(services.Hub, opts.ReadLimit, log.Named("ws"))

	// API 路由群組
	api := r.Group("/api")

	// 處理 404 錯誤
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "route not found",
		})
	})

	// 公開路由
	{
		// 基本的健康檢查
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	// 需要驗證的路由
	authorized := api.Group("/")
	authorized.Use(middleware.AuthMiddleware(services.User, log.Named("auth")))
	{
		rooms := authorized.Group("/rooms")
		{
			rooms.GET("", roomHandler.ListRooms)   // 探索房間
			rooms.POST("", roomHandler.CreateRoom) // 創建房間
			rooms.GET("/:id", roomHandler.GetRoom) // 獲取房間信息

			rooms.POST("/:id/join", roomHandler.JoinRoom)        // 加入房間
			rooms.GET("/:id/messages", roomHandler.GetMessages)  // 歷史訊息
			rooms.GET("/:id/online", roomHandler.GetOnlineCount) // 在線人數
		}

		users := authorized.Group("/users")
		{
			users.GET("/me", userHandler.GetProfile)
			users.PATCH("/me", userHandler.UpdateProfile)
		}

		// WebSocket 連接點，房間由 join_room 事件指定
		authorized.GET("/ws", wsHandler.HandleWebSocket)
	}
}
