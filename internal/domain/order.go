package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusCanceled OrderStatus = "canceled"
)

type Order struct {
	ID          int
	UserID      int
	Status      OrderStatus
	TotalAmount decimal.Decimal
	Items       []OrderItem
	CreatedAt   time.Time
}

type OrderItem struct {
	ID           int
	OrderID      int
	MovieID      int
	PriceAtOrder decimal.Decimal
}

// NewOrderFromCart freezes the given cart items into a pending order. Each
// item captures the movie's price at order time, and the order total is the
// sum of those captured prices.
func NewOrderFromCart(userID int, items []CartItem) *Order {
	order := &Order{
		UserID:      userID,
		Status:      OrderStatusPending,
		TotalAmount: decimal.Zero,
	}

	for _, item := range items {
		if item.Movie == nil {
			continue
		}

		order.Items = append(order.Items, OrderItem{
			MovieID:      item.MovieID,
			PriceAtOrder: item.Movie.Price,
		})
		order.TotalAmount = order.TotalAmount.Add(item.Movie.Price)
	}

	return order
}

type OrderFilters struct {
	UserID   *int
	Status   *OrderStatus
	DateFrom *time.Time
	DateTo   *time.Time
	Pagination
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order, cartID int) error
	GetById(ctx context.Context, id int) (*Order, error)
	GetAllByUserId(ctx context.Context, userID int) ([]*Order, error)
	GetAll(ctx context.Context, filters OrderFilters) ([]*Order, *Metadata, error)
	GetBlockedMovieIds(ctx context.Context, userID int, movieIDs []int) ([]int, error)
	UpdateStatus(ctx context.Context, id int, from, to OrderStatus) error
}
