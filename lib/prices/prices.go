// Package prices normalizes the price strings scraped off retailer pages.
// Every source formats prices differently ("12,99 руб.", "1 234.56", "1.234,56"),
// so this is the single place that turns them into comparable numbers.
package prices

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var nonPrice = regexp.MustCompile(`[^\d.,]`)

// Parse extracts a non-negative price from raw text. Thousands separators and
// currency suffixes are dropped; the last '.' or ',' is taken as the decimal
// separator. Any failure yields 0 -- callers must reject zero results rather
// than treat them as a legitimate price.
func Parse(raw string) float64 {
	s := nonPrice.ReplaceAllString(raw, "")
	if s == "" {
		return 0
	}

	if i := strings.LastIndexAny(s, ".,"); i >= 0 {
		intPart := stripSeparators(s[:i])
		fracPart := stripSeparators(s[i+1:])
		s = intPart + "." + fracPart
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil || value < 0 {
		return 0
	}
	return value
}

func stripSeparators(s string) string {
	s = strings.ReplaceAll(s, ".", "")
	return strings.ReplaceAll(s, ",", "")
}

// Percent returns the discount as an integer 0..100. A non-positive old price
// returns 0 to guard the division.
func Percent(oldPrice, newPrice float64) int {
	if oldPrice <= 0 {
		return 0
	}
	return int(math.Round((oldPrice - newPrice) / oldPrice * 100))
}
