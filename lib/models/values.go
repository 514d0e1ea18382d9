package models

import "time"

// Category enumerates the store categories we track.
type Category string

const (
	CategoryGrocery     Category = "grocery"
	CategoryClothing    Category = "clothing"
	CategoryElectronics Category = "electronics"
	CategoryHome        Category = "home"
)

func Categories() []Category {
	return []Category{CategoryGrocery, CategoryClothing, CategoryElectronics, CategoryHome}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryGrocery, CategoryClothing, CategoryElectronics, CategoryHome:
		return true
	}
	return false
}

// CityAll marks a record that applies to every supported city, as opposed to
// one city from an explicit list. Queries must treat it as matching any city.
const CityAll = "all"

// Candidate is an extracted, not-yet-persisted discount observation.
type Candidate struct {
	Title           string
	OldPrice        float64
	NewPrice        float64
	DiscountPercent int
	ImageURL        string
	ProductURL      string
	ValidUntil      time.Time
	City            string // concrete city or CityAll
	StoreName       string
	Category        Category
}

type Candidates []Candidate
