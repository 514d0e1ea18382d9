package models

import (
	"gorm.io/gorm"
)

// Subscription links a user to a category. It is toggled, never duplicated:
// a repeat subscribe on the same (user, category) flips IsActive.
type Subscription struct {
	gorm.Model
	UserID   uint     `gorm:"index:idx_user_category,unique;not null"`
	Category Category `gorm:"index:idx_user_category,unique;size:50;not null"`
	IsActive bool     `gorm:"default:true"`

	User User
}

type Subscriptions []Subscription
