// Package reconcile decides what an extracted candidate means for persisted
// state: a new discount, a refresh of an existing one, or nothing.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Reconciler struct {
	db   *gorm.DB
	log  *zap.Logger
	keys *keyedMutex
}

func NewReconciler(lc fx.Lifecycle, db *gorm.DB, log *zap.Logger) *Reconciler {
	return &Reconciler{db: db, log: log, keys: newKeyedMutex()}
}

// Ping reports whether the backing database is reachable. A run that cannot
// reach storage has nowhere to put results and should not start.
func (r *Reconciler) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetOrCreateStore looks a store up by its unique name, creating it on first
// sighting. Safe to call concurrently for the same name: a create that loses
// the race hits the unique constraint and retries the lookup.
func (r *Reconciler) GetOrCreateStore(ctx context.Context, name string, category models.Category, website, cities string) (*models.Store, error) {
	var store models.Store
	tx := r.db.WithContext(ctx).Where("name = ?", name).First(&store)
	if tx.Error == nil {
		return &store, nil
	}
	if !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, tx.Error
	}

	store = models.Store{
		Name:     name,
		Category: category,
		Website:  website,
		Cities:   cities,
	}
	if err := r.db.WithContext(ctx).Create(&store).Error; err != nil {
		// Lost a create race; the winner's row is authoritative.
		var existing models.Store
		if lookupErr := r.db.WithContext(ctx).Where("name = ?", name).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, err
	}
	r.log.Sugar().Infof("Created store %q id:%v (%s)", name, store.ID, category)
	return &store, nil
}

// Reconcile upserts a candidate against the store's active discounts.
// Identity is (store, title, city): re-sighting the same offer refreshes
// prices, percent and validity in place, bumping updated_at but never
// created_at or is_active. Reports whether a new row was created.
func (r *Reconciler) Reconcile(ctx context.Context, storeID uint, c models.Candidate) (bool, error) {
	unlock := r.keys.lock(fmt.Sprintf("%d|%s|%s", storeID, c.Title, c.City))
	defer unlock()

	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Discount
		lookup := tx.
			Where("store_id = ?", storeID).
			Where("title = ?", c.Title).
			Where("city = ?", c.City).
			Where("is_active = ?", true).
			First(&existing)

		if errors.Is(lookup.Error, gorm.ErrRecordNotFound) {
			created = true
			discount := models.Discount{
				StoreID:         storeID,
				Title:           c.Title,
				OldPrice:        c.OldPrice,
				NewPrice:        c.NewPrice,
				DiscountPercent: c.DiscountPercent,
				ImageURL:        c.ImageURL,
				ProductURL:      c.ProductURL,
				City:            c.City,
				ValidFrom:       time.Now().UTC(),
				ValidUntil:      nullTime(c.ValidUntil),
				IsActive:        true,
			}
			return tx.Create(&discount).Error
		}
		if lookup.Error != nil {
			return lookup.Error
		}

		return tx.Model(&existing).Updates(map[string]any{
			"old_price":        c.OldPrice,
			"new_price":        c.NewPrice,
			"discount_percent": c.DiscountPercent,
			"valid_until":      nullTime(c.ValidUntil),
		}).Error
	})
	return created, err
}

// ExpireStale deactivates every active discount whose validity window has
// passed. Runs once per collection cycle regardless of which sources ran, so
// offers that vanished from a page still age out. Idempotent.
func (r *Reconciler) ExpireStale(ctx context.Context) (int64, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Discount{}).
		Where("is_active = ?", true).
		Where("valid_until IS NOT NULL AND valid_until < ?", time.Now().UTC()).
		Update("is_active", false)
	if tx.Error != nil {
		return 0, tx.Error
	}
	return tx.RowsAffected, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
