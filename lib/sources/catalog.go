package sources

import (
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
)

const (
	groceryValidity     = 7 * 24 * time.Hour
	electronicsValidity = 14 * 24 * time.Hour
	clothingValidity    = 30 * 24 * time.Hour
)

// Most Belarusian retail sites share the same generic card markup, so the
// grocery recipes differ only in which class-name variants they probe.
var groceryRecipe = Recipe{
	Cards:    `//*[contains(@class, 'product-card')] | //*[contains(@class, 'special-item')] | //*[contains(@class, 'action-item')]`,
	Title:    `.//*[contains(@class, 'product-title')] | .//*[contains(@class, 'product-name')] | .//*[contains(@class, 'item-title')] | .//h3`,
	OldPrice: `.//*[contains(@class, 'old-price')] | .//*[contains(@class, 'price-old')]`,
	NewPrice: `.//*[contains(@class, 'new-price')] | .//*[contains(@class, 'price-new')] | .//*[contains(@class, 'price-current')]`,
	Image:    `.//img`,
	Link:     `.//a`,
	Validity: groceryValidity,
}

// catalog is the full set of scraped retailers. Order is load-bearing only
// in that it is stable; no ordering is guaranteed between sources in a run.
func catalog() []Source {
	return []Source{
		{
			StoreName: "Евроопт",
			Category:  models.CategoryGrocery,
			Website:   "https://evroopt.by",
			ListPath:  "/special/",
			Geography: AllCities(),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Соседи",
			Category:  models.CategoryGrocery,
			Website:   "https://sosedi.by",
			ListPath:  "/special/",
			Geography: AllCities(),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Green",
			Category:  models.CategoryGrocery,
			Website:   "https://green-market.by",
			ListPath:  "/actions/",
			Geography: CityList("Минск", "Гомель", "Брест", "Гродно", "Могилёв", "Витебск"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Виталюр",
			Category:  models.CategoryGrocery,
			Website:   "https://vitalur.by",
			ListPath:  "/actions/",
			Geography: CityList("Минск", "Гомель", "Могилёв", "Бобруйск"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Санта",
			Category:  models.CategoryGrocery,
			Website:   "https://santa.by",
			ListPath:  "/aktsii/",
			Geography: CityList("Брест", "Пинск", "Кобрин", "Барановичи", "Берёза"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Гиппо",
			Category:  models.CategoryGrocery,
			Website:   "https://gippo.by",
			ListPath:  "/actions/",
			Geography: CityList("Минск", "Гомель", "Брест", "Гродно", "Витебск"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Корона",
			Category:  models.CategoryGrocery,
			Website:   "https://korona.by",
			ListPath:  "/actions/",
			Geography: CityList("Минск", "Гомель"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "Рублёвский",
			Category:  models.CategoryGrocery,
			Website:   "https://rublevski.by",
			ListPath:  "/akcii/",
			Geography: CityList("Минск", "Борисов", "Жодино", "Солигорск", "Слуцк"),
			Recipe:    groceryRecipe,
		},
		{
			StoreName: "21vek",
			Category:  models.CategoryElectronics,
			Website:   "https://www.21vek.by",
			ListPath:  "/special_offers/discounts.html",
			// Online-only: delivers country-wide but lists from Минск.
			Geography: CityList("Минск"),
			Recipe: Recipe{
				Cards:    `//*[contains(@class, 'g-item')] | //*[contains(@class, 'product-card')]`,
				Title:    `.//*[contains(@class, 'result__name')] | .//*[contains(@class, 'g-item-title')] | .//*[contains(@class, 'product-title')]`,
				OldPrice: `.//*[contains(@class, 'g-old-price')] | .//*[contains(@class, 'cost-old')] | .//*[contains(@class, 'price-old')]`,
				NewPrice: `.//*[contains(@class, 'g-price')] | .//*[contains(@class, 'cost-new')] | .//*[contains(@class, 'price-current')]`,
				Image:    `.//img`,
				Link:     `.//a[contains(@class, 'result__link')] | .//a[contains(@class, 'product-link')]`,
				Validity: electronicsValidity,
			},
		},
		{
			StoreName: "Mile",
			Category:  models.CategoryClothing,
			Website:   "https://mile.by",
			ListPath:  "/sale/",
			Geography: CityList("Минск"),
			Recipe: Recipe{
				Cards:    `//*[contains(@class, 'product-card')] | //*[contains(@class, 'catalog-item')] | //*[contains(@class, 'product-item')]`,
				Title:    `.//*[contains(@class, 'product-name')] | .//*[contains(@class, 'item-title')] | .//h3`,
				OldPrice: `.//*[contains(@class, 'old-price')] | .//*[contains(@class, 'price-old')]`,
				NewPrice: `.//*[contains(@class, 'new-price')] | .//*[contains(@class, 'price-new')] | .//*[contains(@class, 'current-price')]`,
				Image:    `.//img`,
				Link:     `.//a`,
				Validity: clothingValidity,
			},
		},
		{
			StoreName: "Mark Formelle",
			Category:  models.CategoryClothing,
			Website:   "https://markformelle.by",
			ListPath:  "/sale/",
			Geography: CityList("Минск"),
			Recipe: Recipe{
				Cards:    `//*[contains(@class, 'product-card')] | //*[contains(@class, 'catalog-product')]`,
				Title:    `.//*[contains(@class, 'product-name')] | .//*[contains(@class, 'title')]`,
				OldPrice: `.//*[contains(@class, 'price-old')]`,
				NewPrice: `.//*[contains(@class, 'price-new')] | .//*[contains(@class, 'sale-price')]`,
				Image:    `.//img`,
				Link:     `.//a`,
				Validity: clothingValidity,
			},
		},
	}
}
