package models

import (
	"gorm.io/gorm"
)

// DefaultMessageType 未指定類型時的訊息類型
const DefaultMessageType = "text"

// Message 聊天室內的一則訊息，建立後不可修改
// CreatedAt 由伺服器寫入，作為排序依據
type Message struct {
	gorm.Model
	RoomID      uint    `gorm:"column:chatroom_id;not null;index"`
	UserID      uint    `gorm:"not null;index"`
	Content     string  `gorm:"type:text;not null"`
	MessageType string  `gorm:"size:50;not null"`
	MediaURL    *string `gorm:"size:500"`

	User *User `gorm:"foreignKey:UserID"`
}

// All 回傳需要遷移的所有模型
func All() []interface{} {
	return []interface{}{&User{}, &Room{}, &Participant{}, &Message{}}
}
