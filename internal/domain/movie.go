package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

type Movie struct {
	ID    int
	Title string
	Year  int
	Price decimal.Decimal
}

type MovieRepository interface {
	GetById(ctx context.Context, id int) (*Movie, error)
}
