package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/dzmitryk/discountwatch/lib/reconcile"
	"github.com/dzmitryk/discountwatch/lib/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const listingPage = `<html><body>
	<div class="product-card">
		<div class="title">Молоко 1л</div>
		<span class="old-price">2,00 руб.</span>
		<span class="new-price">1,50 руб.</span>
	</div>
	<div class="product-card">
		<div class="title">Хлеб</div>
		<span class="old-price">1,00 руб.</span>
		<span class="new-price">0,80 руб.</span>
	</div>
</body></html>`

var testRecipe = sources.Recipe{
	Cards:    "//div[contains(@class, 'product-card')]",
	Title:    ".//div[contains(@class, 'title')]",
	OldPrice: ".//span[contains(@class, 'old-price')]",
	NewPrice: ".//span[contains(@class, 'new-price')]",
	Validity: 7 * 24 * time.Hour,
}

// routingTransport serves a canned page per host and can simulate a host
// that refuses connections.
type routingTransport struct {
	pages map[string]string
	fail  map[string]bool
}

func (rt *routingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	host := req.URL.Host
	if rt.fail[host] {
		return nil, fmt.Errorf("dial tcp %s: connection refused", host)
	}
	page, ok := rt.pages[host]
	status := http.StatusOK
	if !ok {
		status = http.StatusNotFound
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(page)),
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Request:    req,
	}, nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Store{},
		&models.Discount{},
		&models.Subscription{},
	))
	return db
}

type captureNotifier struct {
	mu  sync.Mutex
	got map[models.Category]int
}

func (n *captureNotifier) BroadcastDigest(_ context.Context, category models.Category, created int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.got == nil {
		n.got = make(map[models.Category]int)
	}
	n.got[category] += created
	return nil
}

func testCollector(t *testing.T, transport http.RoundTripper, srcs ...sources.Source) (*Collector, *gorm.DB, *captureNotifier) {
	t.Helper()
	db := openTestDB(t)
	log := zap.NewNop()

	cfg := &config.Config{}
	cfg.Scrape.Timeout = 5 * time.Second

	notifier := &captureNotifier{}
	c := &Collector{
		log:         log,
		registry:    sources.FromSources(srcs...),
		engine:      sources.NewEngine(cfg, log, transport),
		rec:         reconcile.NewReconciler(fxtest.NewLifecycle(t), db, log),
		notifier:    notifier,
		concurrency: 2,
		clock:       newDailyClock(6, 0),
	}
	return c, db, notifier
}

func grocerySource(store, host string) sources.Source {
	return sources.Source{
		StoreName: store,
		Category:  models.CategoryGrocery,
		Website:   "https://" + host,
		ListPath:  "/akcii/",
		Geography: sources.CityList("Минск"),
		Recipe:    testRecipe,
	}
}

func Test_RunOnce_IsolatesSourceFailures(t *testing.T) {
	transport := &routingTransport{
		pages: map[string]string{"evroopt.test": listingPage},
		fail:  map[string]bool{"sosedi.test": true},
	}
	c, db, notifier := testCollector(t, transport,
		grocerySource("Евроопт", "evroopt.test"),
		grocerySource("Соседи", "sosedi.test"),
	)

	report, err := c.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Sources)
	assert.Equal(t, 1, report.SourceErrors)
	assert.Equal(t, []string{"Соседи"}, report.FailedStores)

	// The healthy source still landed both of its cards.
	assert.Equal(t, 2, report.Saved)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 0, report.Updated)

	var count int64
	db.Model(&models.Discount{}).Count(&count)
	assert.EqualValues(t, 2, count)

	assert.Equal(t, 2, notifier.got[models.CategoryGrocery])
}

func Test_RunOnce_RepeatRunUpdatesInPlace(t *testing.T) {
	transport := &routingTransport{pages: map[string]string{"evroopt.test": listingPage}}
	c, db, _ := testCollector(t, transport, grocerySource("Евроопт", "evroopt.test"))

	first, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Created)

	second, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 2, second.Updated)

	var count int64
	db.Model(&models.Discount{}).Count(&count)
	assert.EqualValues(t, 2, count)

	var stores int64
	db.Model(&models.Store{}).Count(&stores)
	assert.EqualValues(t, 1, stores)
}

func Test_RunOnce_DropsOverlappingTrigger(t *testing.T) {
	transport := &routingTransport{pages: map[string]string{"evroopt.test": listingPage}}
	c, _, _ := testCollector(t, transport, grocerySource("Евроопт", "evroopt.test"))

	c.mu.Lock()
	_, err := c.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
	c.mu.Unlock()

	// Once the previous run releases, the next trigger goes through.
	report, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Saved)
}

func Test_nextFireTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)

	next := nextFireTime(now, 6, 0)
	assert.Equal(t, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), next)

	// Past today's fire time rolls over to tomorrow.
	next = nextFireTime(now.Add(2*time.Hour), 6, 0)
	assert.Equal(t, time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC), next)

	// Exactly at the fire time also rolls over.
	next = nextFireTime(time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC), 6, 0)
	assert.Equal(t, time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC), next)
}
