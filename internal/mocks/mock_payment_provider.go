package mocks

import (
	"context"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockPaymentProvider struct {
	mock.Mock
	domain.PaymentProvider
}

func (m *MockPaymentProvider) InitiatePayment(
	ctx context.Context,
	orderID int,
	amount decimal.Decimal,
	currency string,
	attempt int) (*domain.PaymentIntent, error) {

	args := m.Called(ctx, orderID, amount, currency, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}

func (m *MockPaymentProvider) GetPaymentIntent(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentIntent), args.Error(1)
}

func (m *MockPaymentProvider) RefundPayment(ctx context.Context, externalID string, amount *decimal.Decimal) (bool, error) {
	args := m.Called(ctx, externalID, amount)
	return args.Bool(0), args.Error(1)
}
