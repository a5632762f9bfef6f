package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusCanceled   PaymentStatus = "canceled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// paymentTransitionSources lists, per target status, the statuses a payment
// may move from. Successful, canceled and refunded are terminal except for
// successful -> refunded. Processing may fall back to pending when the
// provider rejects an attempt and asks for a new payment method.
var paymentTransitionSources = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:    {PaymentStatusPending, PaymentStatusProcessing},
	PaymentStatusProcessing: {PaymentStatusPending, PaymentStatusProcessing},
	PaymentStatusSuccessful: {PaymentStatusPending, PaymentStatusProcessing},
	PaymentStatusCanceled:   {PaymentStatusPending, PaymentStatusProcessing},
	PaymentStatusRefunded:   {PaymentStatusSuccessful},
}

func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	for _, from := range paymentTransitionSources[target] {
		if from == s {
			return true
		}
	}

	return false
}

// PaymentTransitionSources returns the statuses a payment may hold right
// before moving to target. Repositories use it to guard status updates at
// the database level.
func PaymentTransitionSources(target PaymentStatus) []PaymentStatus {
	sources := paymentTransitionSources[target]

	out := make([]PaymentStatus, len(sources))
	copy(out, sources)

	return out
}

type Payment struct {
	ID                int
	UserID            int
	OrderID           int
	Status            PaymentStatus
	Amount            decimal.Decimal
	ExternalPaymentID *string
	Items             []PaymentItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type PaymentItem struct {
	ID             int
	PaymentID      int
	OrderItemID    int
	PriceAtPayment decimal.Decimal
}

// NewPaymentFromOrder opens a pending payment covering every item of the
// order at its frozen price, tied to the provider-side intent by externalID.
func NewPaymentFromOrder(order *Order, externalID string) *Payment {
	payment := &Payment{
		UserID:            order.UserID,
		OrderID:           order.ID,
		Status:            PaymentStatusPending,
		Amount:            order.TotalAmount,
		ExternalPaymentID: &externalID,
	}

	for _, item := range order.Items {
		payment.Items = append(payment.Items, PaymentItem{
			OrderItemID:    item.ID,
			PriceAtPayment: item.PriceAtOrder,
		})
	}

	return payment
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetByExternalId(ctx context.Context, externalID string) (*Payment, error)
	GetAllByUserId(ctx context.Context, userID int) ([]*Payment, error)
	GetAllByOrderId(ctx context.Context, orderID int) ([]*Payment, error)
	GetSettledByOrderId(ctx context.Context, orderID int) (*Payment, error)
	CountByOrderId(ctx context.Context, orderID int) (int, error)
	UpdateStatus(ctx context.Context, id int, status PaymentStatus) (*Payment, error)
	MarkSucceeded(ctx context.Context, externalID string) (*Payment, error)
}
