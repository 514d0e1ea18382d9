package sources

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/carlmjohnson/requests"
	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/dzmitryk/discountwatch/lib/prices"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Extraction is the outcome of scraping one source. Skipped counts cards
// that were matched but dropped (missing title, unparseable price, negative
// discount) so runs can report on markup drift instead of hiding it.
type Extraction struct {
	Candidates models.Candidates
	Skipped    int
}

// Engine is the one shared extraction routine. Everything retailer-specific
// lives in the Source it is handed.
type Engine struct {
	log       *zap.Logger
	transport http.RoundTripper
	timeout   time.Duration
}

func NewEngine(cfg *config.Config, log *zap.Logger, transport http.RoundTripper) *Engine {
	timeout := cfg.Scrape.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Engine{log: log, transport: transport, timeout: timeout}
}

// Collect fetches the source's listing page and extracts candidates.
// Fetch failures (non-2xx, timeout, network error) return an empty
// extraction and the error; they must never abort a collection run.
func (e *Engine) Collect(ctx context.Context, src Source) (Extraction, error) {
	var out Extraction

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var page string
	err := requests.URL(src.ListURL()).
		Transport(e.transport).
		ToString(&page).
		Fetch(ctx)
	if err != nil {
		e.log.Sugar().Warnw("failed to fetch listing page",
			"store", src.StoreName, "url", src.ListURL(), "err", err)
		return out, err
	}

	doc, err := htmlquery.Parse(strings.NewReader(page))
	if err != nil {
		return out, err
	}

	now := time.Now().UTC()
	for _, card := range htmlquery.Find(doc, src.Recipe.Cards) {
		candidate, ok := e.extractCard(card, src, now)
		if !ok {
			out.Skipped++
			continue
		}
		out.Candidates = append(out.Candidates, fanOut(candidate, src.Geography)...)
	}

	if out.Skipped > 0 {
		e.log.Sugar().Debugw("skipped malformed cards",
			"store", src.StoreName, "skipped", out.Skipped)
	}
	return out, nil
}

func (e *Engine) extractCard(card *html.Node, src Source, now time.Time) (models.Candidate, bool) {
	recipe := src.Recipe

	title := SelectText(card, recipe.Title)
	if title == "" {
		return models.Candidate{}, false
	}

	newPrice := prices.Parse(SelectText(card, recipe.NewPrice))
	if newPrice <= 0 {
		return models.Candidate{}, false
	}

	// A missing old price means the item is not currently marked down, not
	// an error: it defaults to the new price (0% discount).
	oldPrice := newPrice
	if recipe.OldPrice != "" {
		if parsed := prices.Parse(SelectText(card, recipe.OldPrice)); parsed > 0 {
			oldPrice = parsed
		}
	}
	if oldPrice < newPrice {
		return models.Candidate{}, false
	}

	return models.Candidate{
		Title:           title,
		OldPrice:        oldPrice,
		NewPrice:        newPrice,
		DiscountPercent: prices.Percent(oldPrice, newPrice),
		ImageURL:        SelectAttr(card, recipe.Image, "src"),
		ProductURL:      absolutize(src.Website, SelectAttr(card, recipe.Link, "href")),
		ValidUntil:      now.Add(recipe.Validity),
		StoreName:       src.StoreName,
		Category:        src.Category,
	}, true
}

func fanOut(c models.Candidate, geo Geography) models.Candidates {
	if geo.Mode == GeoAllCities {
		c.City = models.CityAll
		return models.Candidates{c}
	}
	out := make(models.Candidates, 0, len(geo.Cities))
	for _, city := range geo.Cities {
		cc := c
		cc.City = city
		out = append(out, cc)
	}
	return out
}

func absolutize(base, href string) string {
	switch {
	case href == "":
		return ""
	case strings.HasPrefix(href, "http://"), strings.HasPrefix(href, "https://"):
		return href
	case strings.HasPrefix(href, "/"):
		return strings.TrimSuffix(base, "/") + href
	default:
		return strings.TrimSuffix(base, "/") + "/" + href
	}
}
