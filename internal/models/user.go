package models

import (
	"gorm.io/gorm"

	"hubhive/internal/geo"
)

// User 表示系統中的用戶
// 由外部的認證子系統維護，聊天核心只讀取並在個人資料更新時寫入
type User struct {
	gorm.Model
	Username       string        `gorm:"uniqueIndex;not null"`
	UserType       UserType      `gorm:"size:20;not null"`
	Bio            string        `gorm:"type:text"`
	Location       *geo.Location `gorm:"type:text;serializer:json"`
	ProfilePicture string        `gorm:"size:500"`
}

// UserType 定義用戶類型
type UserType string

const (
	UserTypeRegular  UserType = "regular"
	UserTypeBusiness UserType = "business"
	UserTypeAdmin    UserType = "admin"
)
