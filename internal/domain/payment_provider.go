package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// IntentStatus is the provider-side state of a payment intent, normalized
// across SDK versions. Unknown provider statuses pass through verbatim and
// are treated as canceled by the reconciliation flow.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
)

type PaymentIntent struct {
	ID            string
	ClientSecret  string
	Status        IntentStatus
	FailureReason string
}

// PaymentProvider is the boundary to the external payment service. Calls may
// block on the network; implementations must honor ctx and bound their own
// timeouts. Attempt numbers make initiation retries idempotent on the
// provider side: the same (order, attempt) pair always yields the same
// intent.
type PaymentProvider interface {
	InitiatePayment(ctx context.Context, orderID int, amount decimal.Decimal, currency string, attempt int) (*PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, externalID string) (*PaymentIntent, error)
	RefundPayment(ctx context.Context, externalID string, amount *decimal.Decimal) (bool, error)
}
