package reconcile

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

func testReconciler(t *testing.T) *Reconciler {
	t.Helper()
	return &Reconciler{db: openTestDB(t), log: zap.NewNop(), keys: newKeyedMutex()}
}

func candidate(title, city string) models.Candidate {
	return models.Candidate{
		Title:           title,
		OldPrice:        10,
		NewPrice:        7.5,
		DiscountPercent: 25,
		City:            city,
		ValidUntil:      time.Now().UTC().Add(7 * 24 * time.Hour),
		StoreName:       "Евроопт",
		Category:        models.CategoryGrocery,
	}
}

func Test_GetOrCreateStore(t *testing.T) {
	r := testReconciler(t)
	ctx := context.Background()

	first, err := r.GetOrCreateStore(ctx, "Евроопт", models.CategoryGrocery, "https://evroopt.by", models.CityAll)
	require.NoError(t, err)

	second, err := r.GetOrCreateStore(ctx, "Евроопт", models.CategoryGrocery, "https://evroopt.by", models.CityAll)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	r.db.Model(&models.Store{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func Test_Reconcile_RepeatSightingUpdatesInPlace(t *testing.T) {
	r := testReconciler(t)
	ctx := context.Background()

	store, err := r.GetOrCreateStore(ctx, "Евроопт", models.CategoryGrocery, "", models.CityAll)
	require.NoError(t, err)

	created, err := r.Reconcile(ctx, store.ID, candidate("Молоко 1л", "Минск"))
	require.NoError(t, err)
	assert.True(t, created)

	var original models.Discount
	require.NoError(t, r.db.First(&original).Error)

	// Same offer sighted again at a new price.
	repeat := candidate("Молоко 1л", "Минск")
	repeat.NewPrice = 6.0
	repeat.DiscountPercent = 40

	created, err = r.Reconcile(ctx, store.ID, repeat)
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	r.db.Model(&models.Discount{}).Count(&count)
	assert.EqualValues(t, 1, count)

	var refreshed models.Discount
	require.NoError(t, r.db.First(&refreshed).Error)
	assert.Equal(t, 6.0, refreshed.NewPrice)
	assert.Equal(t, 40, refreshed.DiscountPercent)
	assert.True(t, refreshed.IsActive)
	assert.Equal(t, original.CreatedAt, refreshed.CreatedAt)
	assert.False(t, refreshed.UpdatedAt.Before(original.UpdatedAt))
}

func Test_Reconcile_DistinctTitlesAndCities(t *testing.T) {
	r := testReconciler(t)
	ctx := context.Background()

	store, err := r.GetOrCreateStore(ctx, "Green", models.CategoryGrocery, "", "")
	require.NoError(t, err)

	// Two titles for the same store are distinct rows.
	for _, title := range []string{"Сыр", "Масло"} {
		created, err := r.Reconcile(ctx, store.ID, candidate(title, "Минск"))
		require.NoError(t, err)
		assert.True(t, created)
	}

	// A city-list fan-out lands one row per city, sharing the store.
	for _, city := range []string{"Минск", "Брест"} {
		_, err := r.Reconcile(ctx, store.ID, candidate("Кефир", city))
		require.NoError(t, err)
	}

	var count int64
	r.db.Model(&models.Discount{}).Count(&count)
	assert.EqualValues(t, 4, count)

	var kefir models.Discounts
	require.NoError(t, r.db.Where("title = ?", "Кефир").Order("city").Find(&kefir).Error)
	require.Len(t, kefir, 2)
	assert.Equal(t, "Брест", kefir[0].City)
	assert.Equal(t, "Минск", kefir[1].City)
	assert.Equal(t, kefir[0].StoreID, kefir[1].StoreID)
}

func Test_ExpireStale(t *testing.T) {
	r := testReconciler(t)
	ctx := context.Background()

	store, err := r.GetOrCreateStore(ctx, "21vek", models.CategoryElectronics, "", "Минск")
	require.NoError(t, err)

	now := time.Now().UTC()
	seed := []models.Discount{
		{StoreID: store.ID, Title: "Просрочено", NewPrice: 1, City: "Минск", IsActive: true,
			ValidUntil: sql.NullTime{Time: now.Add(-time.Hour), Valid: true}},
		{StoreID: store.ID, Title: "Ещё действует", NewPrice: 1, City: "Минск", IsActive: true,
			ValidUntil: sql.NullTime{Time: now.Add(time.Hour), Valid: true}},
		{StoreID: store.ID, Title: "Без срока", NewPrice: 1, City: "Минск", IsActive: true},
	}
	require.NoError(t, r.db.Create(&seed).Error)

	expired, err := r.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	var active int64
	r.db.Model(&models.Discount{}).Where("is_active = ?", true).Count(&active)
	assert.EqualValues(t, 2, active)

	// Idempotent: a second sweep finds nothing new.
	expired, err = r.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, expired)
}
