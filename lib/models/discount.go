package models

import (
	"database/sql"
	"time"

	"gorm.io/gorm"
)

type Discount struct {
	gorm.Model
	StoreID         uint   `gorm:"index:idx_store_title_city;not null"`
	Title           string `gorm:"index:idx_store_title_city;size:500;not null"`
	OldPrice        float64
	NewPrice        float64 `gorm:"not null"`
	DiscountPercent int
	ImageURL        string `gorm:"size:1000"`
	ProductURL      string `gorm:"size:1000"`
	City            string `gorm:"index:idx_store_title_city;index;size:50"`
	ValidFrom       time.Time
	ValidUntil      sql.NullTime
	IsActive        bool `gorm:"index;default:true"`

	Store Store
}

type Discounts []Discount
