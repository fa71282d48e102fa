package models

import (
	"time"

	"gorm.io/gorm"

	"hubhive/internal/geo"
)

// DefaultMaxParticipants 未指定人數上限時的預設值
const DefaultMaxParticipants = 100

// Room 表示一個聊天室
type Room struct {
	gorm.Model
	Name            string        `gorm:"size:200;not null"`
	Description     string        `gorm:"type:text"`
	BusinessID      *uint         `gorm:"index"`
	Location        *geo.Location `gorm:"type:text;serializer:json"`
	IsPrivate       bool          `gorm:"not null;index"`
	MaxParticipants int           `gorm:"not null"`
	CreatedBy       uint          `gorm:"not null;index"`

	Creator      *User         `gorm:"foreignKey:CreatedBy"`
	Business     *User         `gorm:"foreignKey:BusinessID"`
	Participants []Participant `gorm:"foreignKey:RoomID"`
}

func (Room) TableName() string {
	return "chatrooms"
}

// HasParticipant 檢查已載入的成員列表中是否包含 userID
func (r *Room) HasParticipant(userID uint) bool {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// Participant 聊天室成員關係，(chatroom_id, user_id) 唯一
type Participant struct {
	RoomID   uint      `gorm:"column:chatroom_id;primaryKey;autoIncrement:false"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false"`
	JoinedAt time.Time `gorm:"autoCreateTime"`
}

func (Participant) TableName() string {
	return "chatroom_participants"
}
