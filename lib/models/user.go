package models

import (
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	TelegramID int64 `gorm:"uniqueIndex;not null"`
	Username   string
	FirstName  string
	City       string `gorm:"size:50"` // empty until the user picks one
	IsActive   bool   `gorm:"default:true"`

	Subscriptions []Subscription `gorm:"constraint:OnDelete:CASCADE"`
}

type Users []User
