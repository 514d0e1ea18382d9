package lib

import (
	"fmt"
	"strings"

	"github.com/dzmitryk/discountwatch/lib/models"
)

var categoryTitles = map[models.Category]string{
	models.CategoryGrocery:     "Продукты",
	models.CategoryClothing:    "Одежда",
	models.CategoryElectronics: "Техника",
	models.CategoryHome:        "Товары для дома",
}

func formatDigest(category models.Category, created int, discounts models.Discounts) (subject, body string) {
	title, ok := categoryTitles[category]
	if !ok {
		title = string(category)
	}
	subject = fmt.Sprintf("%s: %d новых скидок", title, created)

	var b strings.Builder
	for _, d := range discounts {
		fmt.Fprintf(&b, "• %s — %s", d.Title, d.Store.Name)
		if d.DiscountPercent > 0 {
			fmt.Fprintf(&b, " (-%d%%)", d.DiscountPercent)
		}
		fmt.Fprintf(&b, ": %.2f руб.", d.NewPrice)
		if d.ProductURL != "" {
			fmt.Fprintf(&b, "\n  %s", d.ProductURL)
		}
		b.WriteString("\n")
	}
	return subject, strings.TrimRight(b.String(), "\n")
}
