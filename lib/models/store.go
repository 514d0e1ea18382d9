package models

import (
	"strings"

	"gorm.io/gorm"
)

type Store struct {
	gorm.Model
	Name        string   `gorm:"uniqueIndex;size:200;not null"`
	Category    Category `gorm:"index;size:50;not null"`
	Website     string   `gorm:"size:500"`
	LogoURL     string   `gorm:"size:500"`
	Description string
	// Comma-separated city list, or CityAll when the chain operates everywhere.
	Cities string `gorm:"size:500"`

	Discounts []Discount `gorm:"constraint:OnDelete:CASCADE"`
}

type Stores []Store

func (s *Store) CityList() []string {
	if s.Cities == "" || s.Cities == CityAll {
		return nil
	}
	return strings.Split(s.Cities, ",")
}

func JoinCities(cities []string) string {
	return strings.Join(cities, ",")
}
