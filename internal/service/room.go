package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hubhive/internal/geo"
	"hubhive/internal/models"
	"hubhive/internal/repository"
)

const (
	// DefaultDiscoveryRadiusKm 探索附近房間時的預設半徑
	DefaultDiscoveryRadiusKm = 10.0
	DefaultMessageLimit      = 50
	MaxMessageLimit          = 200
)

// Room 是回傳給客戶端的聊天室資訊
type Room struct {
	ID               uint          `json:"id"`
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	BusinessID       *uint         `json:"business_id"`
	BusinessName     *string       `json:"business_name"`
	Location         *geo.Location `json:"location"`
	IsPrivate        bool          `json:"is_private"`
	MaxParticipants  int           `json:"max_participants"`
	ParticipantCount int           `json:"participant_count"`
	Participants     []uint        `json:"participants"`
	CreatedBy        uint          `json:"created_by"`
	CreatorName      *string       `json:"creator_name"`
	CreatedAt        time.Time     `json:"created_at"`
}

// Message 是回傳給客戶端的訊息
type Message struct {
	ID             uint      `json:"id"`
	ChatroomID     uint      `json:"chatroom_id"`
	UserID         uint      `json:"user_id"`
	Content        string    `json:"content"`
	MessageType    string    `json:"message_type"`
	MediaURL       *string   `json:"media_url"`
	Username       *string   `json:"username"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateRoomInput 建立房間時可指定的欄位
type CreateRoomInput struct {
	Name            string
	Description     string
	BusinessID      *uint
	Location        *geo.Location
	IsPrivate       bool
	MaxParticipants *int
}

// SendMessageInput 發送訊息的參數
type SendMessageInput struct {
	RoomID      uint
	UserID      uint
	Content     string
	MessageType string
	MediaURL    *string
}

type RoomService struct {
	repos *repository.Repositories
	log   *zap.Logger
}

func NewRoomService(repos *repository.Repositories, log *zap.Logger) *RoomService {
	return &RoomService{
		repos: repos,
		log:   log,
	}
}

// DiscoverRooms 列出公開房間
// center 不為 nil 時只保留 maxDistanceKm 內的房間，沒有座標的房間會被排除
func (s *RoomService) DiscoverRooms(ctx context.Context, center *geo.Point, maxDistanceKm float64) ([]*Room, error) {
	roomModels, err := s.repos.Room.FindPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("list public rooms: %w", err)
	}

	if center != nil {
		roomModels = geo.Filter(roomModels, func(r models.Room) *geo.Location { return r.Location }, *center, maxDistanceKm)
	}

	rooms := make([]*Room, 0, len(roomModels))
	for i := range roomModels {
		rooms = append(rooms, s.convertModelToRoom(&roomModels[i]))
	}
	return rooms, nil
}

// CreateRoom 建立房間並將建立者加入成員，兩者在同一個交易中完成
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uint, input CreateRoomInput) (*Room, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	maxParticipants := models.DefaultMaxParticipants
	if input.MaxParticipants != nil {
		if *input.MaxParticipants < 1 {
			return nil, ErrInvalidCapacity
		}
		maxParticipants = *input.MaxParticipants
	}

	if !input.Location.Valid() {
		return nil, ErrInvalidLocation
	}

	roomModel := &models.Room{
		Name:            name,
		Description:     input.Description,
		BusinessID:      input.BusinessID,
		Location:        input.Location,
		IsPrivate:       input.IsPrivate,
		MaxParticipants: maxParticipants,
		CreatedBy:       creatorID,
	}

	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if err := tx.Room.Create(ctx, roomModel); err != nil {
			return err
		}
		return tx.Room.AddParticipant(ctx, roomModel.ID, creatorID)
	})
	if err != nil {
		return nil, fmt.Errorf("create room: %w", err)
	}

	s.log.Info("room created",
		zap.Uint("room_id", roomModel.ID),
		zap.Uint("creator_id", creatorID),
		zap.Bool("private", roomModel.IsPrivate))

	return s.loadRoom(ctx, roomModel.ID)
}

// JoinRoom 加入房間；已是成員時直接回傳成功
// PostgreSQL 上會鎖定房間列，讓接近上限的同時加入依序判斷人數
func (s *RoomService) JoinRoom(ctx context.Context, userID, roomID uint) (*Room, error) {
	joined := false
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		room, err := tx.Room.LockByID(ctx, roomID)
		if err != nil {
			return notFoundOr(err, ErrRoomNotFound)
		}

		member, err := tx.Room.IsParticipant(ctx, roomID, userID)
		if err != nil {
			return err
		}
		if member {
			return nil
		}

		count, err := tx.Room.CountParticipants(ctx, roomID)
		if err != nil {
			return err
		}
		if count >= int64(room.MaxParticipants) {
			return ErrRoomFull
		}

		joined = true
		return tx.Room.AddParticipant(ctx, roomID, userID)
	})
	if err != nil {
		if IsDomainError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("join room: %w", err)
	}

	if joined {
		s.log.Info("user joined room", zap.Uint("room_id", roomID), zap.Uint("user_id", userID))
	}

	return s.loadRoom(ctx, roomID)
}

// GetRoom 取得房間資訊；私人房間只有成員可以查看
func (s *RoomService) GetRoom(ctx context.Context, userID, roomID uint) (*Room, error) {
	roomModel, err := s.repos.Room.FindWithDetails(ctx, roomID)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound)
	}

	if roomModel.IsPrivate && !roomModel.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	return s.convertModelToRoom(roomModel), nil
}

// SendMessage 驗證並儲存一則訊息
func (s *RoomService) SendMessage(ctx context.Context, input SendMessageInput) (*Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	room, err := s.repos.Room.FindByID(ctx, input.RoomID)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound)
	}

	user, err := s.repos.User.FindByID(ctx, input.UserID)
	if err != nil {
		return nil, notFoundOr(err, ErrUserNotFound)
	}

	if err := s.checkAccess(ctx, room, input.UserID); err != nil {
		return nil, err
	}

	messageType := strings.TrimSpace(input.MessageType)
	if messageType == "" {
		messageType = models.DefaultMessageType
	}

	messageModel := &models.Message{
		RoomID:      room.ID,
		UserID:      user.ID,
		Content:     content,
		MessageType: messageType,
		MediaURL:    input.MediaURL,
	}
	if err := s.repos.Message.Create(ctx, messageModel); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	messageModel.User = user

	return convertModelToMessage(messageModel), nil
}

// ListMessages 取得房間歷史訊息，結果依時間由舊到新排列
func (s *RoomService) ListMessages(ctx context.Context, roomID, userID uint, limit, offset int) ([]*Message, error) {
	room, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound)
	}

	if err := s.checkAccess(ctx, room, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	if limit > MaxMessageLimit {
		limit = MaxMessageLimit
	}
	if offset < 0 {
		offset = 0
	}

	messageModels, err := s.repos.Message.FindByRoomID(ctx, roomID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	// repository 由新到舊分頁，這裡反轉成由舊到新
	messages := make([]*Message, len(messageModels))
	for i := range messageModels {
		messages[len(messageModels)-1-i] = convertModelToMessage(&messageModels[i])
	}
	return messages, nil
}

func (s *RoomService) checkAccess(ctx context.Context, room *models.Room, userID uint) error {
	if !room.IsPrivate {
		return nil
	}

	member, err := s.repos.Room.IsParticipant(ctx, room.ID, userID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !member {
		return ErrNotParticipant
	}
	return nil
}

func (s *RoomService) loadRoom(ctx context.Context, roomID uint) (*Room, error) {
	roomModel, err := s.repos.Room.FindWithDetails(ctx, roomID)
	if err != nil {
		return nil, notFoundOr(err, ErrRoomNotFound)
	}
	return s.convertModelToRoom(roomModel), nil
}

func (s *RoomService) convertModelToRoom(model *models.Room) *Room {
	participants := make([]uint, 0, len(model.Participants))
	for _, p := range model.Participants {
		participants = append(participants, p.UserID)
	}

	room := &Room{
		ID:               model.ID,
		Name:             model.Name,
		Description:      model.Description,
		BusinessID:       model.BusinessID,
		Location:         model.Location,
		IsPrivate:        model.IsPrivate,
		MaxParticipants:  model.MaxParticipants,
		ParticipantCount: len(participants),
		Participants:     participants,
		CreatedBy:        model.CreatedBy,
		CreatedAt:        model.CreatedAt,
	}
	if model.Creator != nil {
		room.CreatorName = &model.Creator.Username
	}
	if model.Business != nil {
		room.BusinessName = &model.Business.Username
	}
	return room
}

func convertModelToMessage(model *models.Message) *Message {
	msg := &Message{
		ID:          model.ID,
		ChatroomID:  model.RoomID,
		UserID:      model.UserID,
		Content:     model.Content,
		MessageType: model.MessageType,
		MediaURL:    model.MediaURL,
		CreatedAt:   model.CreatedAt,
	}
	if model.User != nil {
		msg.Username = &model.User.Username
		if model.User.ProfilePicture != "" {
			msg.ProfilePicture = &model.User.ProfilePicture
		}
	}
	return msg
}

// notFoundOr 把 gorm 的查無資料轉成對應的業務錯誤，其餘錯誤原樣回傳
func notFoundOr(err error, notFound *Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
