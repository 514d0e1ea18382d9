// Package lib holds the application service: user lifecycle, subscriptions,
// and the discount queries that back both the API and the digests.
package lib

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dzmitryk/discountwatch/config"
	"github.com/dzmitryk/discountwatch/lib/models"
	"github.com/dzmitryk/discountwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrUnknownCategory = errors.New("unknown category")
	ErrUnsupportedCity = errors.New("unsupported city")
)

const defaultQueryLimit = 10

type Service struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *gorm.DB
	senders senders.Registry
}

func NewService(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, db *gorm.DB, senderRegistry senders.Registry) *Service {
	return &Service{cfg: cfg, log: log, db: db, senders: senderRegistry}
}

// OnboardUser registers a telegram user on first contact and refreshes their
// handle on every later one. Idempotent per telegram id.
func (svc *Service) OnboardUser(ctx context.Context, telegramID int64, username, firstName string) (*models.User, error) {
	var user models.User
	err := svc.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		user = models.User{
			TelegramID: telegramID,
			Username:   username,
			FirstName:  firstName,
			IsActive:   true,
		}
		if err := svc.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		svc.log.Sugar().Infof("Onboarded user id:%v telegram_id:%v", user.ID, telegramID)
		return &user, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if username != "" && username != user.Username {
		updates["username"] = username
	}
	if firstName != "" && firstName != user.FirstName {
		updates["first_name"] = firstName
	}
	if !user.IsActive {
		updates["is_active"] = true
	}
	if len(updates) > 0 {
		if err := svc.db.WithContext(ctx).Model(&user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return &user, nil
}

// UpdateUserCity sets the city used to scope the user's queries and digests.
func (svc *Service) UpdateUserCity(ctx context.Context, telegramID int64, city string) (*models.User, error) {
	if !svc.cfg.IsSupportedCity(city) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCity, city)
	}

	user, err := svc.userByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if err := svc.db.WithContext(ctx).Model(user).Update("city", city).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// ToggleSubscription flips the user's subscription for a category, creating
// it active on first toggle. Reports the resulting state.
func (svc *Service) ToggleSubscription(ctx context.Context, telegramID int64, category models.Category) (bool, error) {
	if !category.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	user, err := svc.userByTelegramID(ctx, telegramID)
	if err != nil {
		return false, err
	}

	var sub models.Subscription
	err = svc.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Where("category = ?", category).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = models.Subscription{UserID: user.ID, Category: category, IsActive: true}
		if err := svc.db.WithContext(ctx).Create(&sub).Error; err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	next := !sub.IsActive
	if err := svc.db.WithContext(ctx).Model(&sub).Update("is_active", next).Error; err != nil {
		return false, err
	}
	return next, nil
}

// UserSubscriptions lists the user's active subscriptions.
func (svc *Service) UserSubscriptions(ctx context.Context, telegramID int64) (models.Subscriptions, error) {
	user, err := svc.userByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	var subs models.Subscriptions
	err = svc.db.WithContext(ctx).
		Where("user_id = ?", user.ID).
		Where("is_active = ?", true).
		Order("category").
		Find(&subs).Error
	return subs, err
}

// SubscribersByCategory lists active users holding an active subscription to
// the category.
func (svc *Service) SubscribersByCategory(ctx context.Context, category models.Category) (models.Users, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	var users models.Users
	err := svc.db.WithContext(ctx).
		Joins("JOIN subscriptions ON subscriptions.user_id = users.id").
		Where("subscriptions.category = ?", category).
		Where("subscriptions.is_active = ?", true).
		Where("users.is_active = ?", true).
		Find(&users).Error
	return users, err
}

// BestDiscounts returns the deepest active discounts visible from a city,
// ordered by percent descending. Rows tagged with the all-cities sentinel
// match every city. Zero-percent rows are plain prices, not discounts, and
// are excluded.
func (svc *Service) BestDiscounts(ctx context.Context, city string, limit int) (models.Discounts, error) {
	var out models.Discounts
	err := svc.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("discount_percent > 0").
		Where("city IN ?", []string{city, models.CityAll}).
		Order("discount_percent DESC").
		Limit(clampLimit(limit)).
		Preload("Store").
		Find(&out).Error
	return out, err
}

// DiscountsByCategory is BestDiscounts narrowed to stores of one category.
func (svc *Service) DiscountsByCategory(ctx context.Context, city string, category models.Category, limit int) (models.Discounts, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	var out models.Discounts
	err := svc.db.WithContext(ctx).
		Joins("JOIN stores ON stores.id = discounts.store_id").
		Where("stores.category = ?", category).
		Where("discounts.is_active = ?", true).
		Where("discounts.discount_percent > 0").
		Where("discounts.city IN ?", []string{city, models.CityAll}).
		Order("discounts.discount_percent DESC").
		Limit(clampLimit(limit)).
		Preload("Store").
		Find(&out).Error
	return out, err
}

// BroadcastDigest pushes the category's current best discounts to every
// subscriber, scoped to each subscriber's own city. Users without a city are
// skipped. Per-recipient failures are logged and do not stop the broadcast.
func (svc *Service) BroadcastDigest(ctx context.Context, category models.Category, created int) error {
	sender, ok := svc.senders["telegram"]
	if !ok {
		return nil
	}

	subscribers, err := svc.SubscribersByCategory(ctx, category)
	if err != nil {
		return err
	}

	log := svc.log.Sugar()
	for _, user := range subscribers {
		if user.City == "" {
			continue
		}
		discounts, err := svc.DiscountsByCategory(ctx, user.City, category, 5)
		if err != nil {
			log.Warnw("Digest query failed", "telegram_id", user.TelegramID, "category", category, "err", err)
			continue
		}
		if len(discounts) == 0 {
			continue
		}

		subject, body := formatDigest(category, created, discounts)
		recipient := strconv.FormatInt(user.TelegramID, 10)
		if _, err := sender.Send(ctx, subject, body, recipient); err != nil {
			log.Warnw("Digest delivery failed", "telegram_id", user.TelegramID, "err", err)
		}
	}
	return nil
}

// DeleteStore removes a store and all of its discounts in one transaction.
// SQLite does not enforce the declared cascade unless foreign keys are
// switched on, so the child delete is explicit.
func (svc *Service) DeleteStore(ctx context.Context, storeID uint) error {
	return svc.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("store_id = ?", storeID).Delete(&models.Discount{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Store{}, storeID).Error
	})
}

func (svc *Service) userByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := svc.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: telegram_id %d", ErrUnknownUser, telegramID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return defaultQueryLimit
	}
	return limit
}
