package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Cart struct {
	ID     int
	UserID int
	Items  []CartItem
}

type CartItem struct {
	ID      int
	CartID  int
	MovieID int
	AddedAt time.Time
	Movie   *Movie
}

// TotalAmount prices the cart at the movies' current catalog prices. Prices
// are only frozen when the cart is turned into an order.
func (c *Cart) TotalAmount() decimal.Decimal {
	total := decimal.Zero

	for _, item := range c.Items {
		if item.Movie == nil {
			continue
		}

		total = total.Add(item.Movie.Price)
	}

	return total
}

type CartRepository interface {
	AddMovie(ctx context.Context, userID, movieID int) (*CartItem, error)
	GetByUserId(ctx context.Context, userID int) (*Cart, error)
	RemoveMovie(ctx context.Context, userID, movieID int) (*CartItem, error)
	Delete(ctx context.Context, userID int) error
}
