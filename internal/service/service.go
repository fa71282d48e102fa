package service

import (
	"go.uber.org/zap"

	"hubhive/internal/repository"
	"hubhive/internal/utils"
)

type Services struct {
	User *UserService
	Room *RoomService
	Hub  *Hub
}

func NewServices(repos *repository.Repositories, tokens *utils.TokenManager, hubCfg HubConfig, log *zap.Logger) *Services {
	userService := NewUserService(repos.User, tokens)
	roomService := NewRoomService(repos, log.Named("room"))
	hub := NewHub(roomService, hubCfg, log.Named("hub"))

	return &Services{
		User: userService,
		Room: roomService,
		Hub:  hub,
	}
}
