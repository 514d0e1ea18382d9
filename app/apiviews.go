package app

import (
	"database/sql"
	"time"

	"github.com/dzmitryk/discountwatch/lib/models"
)

type DiscountView struct {
	ID              uint    `json:"id"`
	Store           string  `json:"store"`
	Title           string  `json:"title"`
	OldPrice        float64 `json:"old_price"`
	NewPrice        float64 `json:"new_price"`
	DiscountPercent int     `json:"discount_percent"`
	City            string  `json:"city"`
	ImageURL        string  `json:"image_url,omitempty"`
	ProductURL      string  `json:"product_url,omitempty"`
	ValidUntil      *string `json:"valid_until"`
}

func (view DiscountView) From(entity models.Discount) DiscountView {
	return DiscountView{
		ID:              entity.ID,
		Store:           entity.Store.Name,
		Title:           entity.Title,
		OldPrice:        entity.OldPrice,
		NewPrice:        entity.NewPrice,
		DiscountPercent: entity.DiscountPercent,
		City:            entity.City,
		ImageURL:        entity.ImageURL,
		ProductURL:      entity.ProductURL,
		ValidUntil:      isoformat(entity.ValidUntil),
	}
}

type UserView struct {
	ID         uint   `json:"id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	City       string `json:"city"`
}

func (view UserView) From(entity *models.User) UserView {
	return UserView{
		ID:         entity.ID,
		TelegramID: entity.TelegramID,
		Username:   entity.Username,
		FirstName:  entity.FirstName,
		City:       entity.City,
	}
}

type Fromable[Entity any, Repr any] interface {
	From(Entity) Repr
}

func FromMany[T any, U Fromable[T, U]](elems []T) []U {
	out := make([]U, len(elems))
	for i, t := range elems {
		var u U
		out[i] = u.From(t)
	}
	return out
}

func isoformat(t sql.NullTime) *string {
	if !t.Valid {
		return nil
	}
	s := t.Time.UTC().Format(time.RFC3339)
	return &s
}
