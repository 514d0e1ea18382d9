package sources

import (
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
)

// Recipe describes where a retailer's listing page keeps its product cards
// and which sub-regions of a card map to each field. Adding a retailer is a
// catalog entry, not new control flow: one shared engine consumes recipes.
type Recipe struct {
	// Cards selects every product card node on the listing page.
	Cards string
	// The rest are evaluated relative to a card node.
	Title    string
	OldPrice string
	NewPrice string
	Image    string // img node, src attribute
	Link     string // anchor node, href attribute

	// Validity is attached to every candidate as now+Validity. Sources do
	// not publish end dates in their cards, so each gets a default length.
	Validity time.Duration
}

type GeographyMode int

const (
	// GeoCityList fans a card out into one candidate per listed city.
	GeoCityList GeographyMode = iota
	// GeoAllCities emits a single candidate tagged with the all-cities
	// sentinel. Kept distinct from an exhaustive list on purpose: queries
	// must treat the sentinel as matching every requested city.
	GeoAllCities
)

type Geography struct {
	Mode   GeographyMode
	Cities []string
}

func AllCities() Geography {
	return Geography{Mode: GeoAllCities}
}

func CityList(cities ...string) Geography {
	return Geography{Mode: GeoCityList, Cities: cities}
}

// Source is one retailer: identity plus where and how to extract.
type Source struct {
	StoreName string
	Category  models.Category
	Website   string // base URL, also recorded on the Store row
	ListPath  string // path of the discounts listing page
	Geography Geography
	Recipe    Recipe
}

func (s Source) ListURL() string {
	return s.Website + s.ListPath
}
