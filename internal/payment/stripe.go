package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

type StripePaymentProvider struct {
	timeout time.Duration
}

func NewStripePaymentProvider(timeout time.Duration) *StripePaymentProvider {
	return &StripePaymentProvider{
		timeout: timeout,
	}
}

func (s *StripePaymentProvider) InitiatePayment(
	ctx context.Context,
	orderID int,
	amount decimal.Decimal,
	currency string,
	attempt int) (*domain.PaymentIntent, error) {

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(currency),
		Metadata: map[string]string{
			"order_id": strconv.Itoa(orderID),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx

	// Retried attempts for the same order reuse the same intent on the
	// Stripe side, so a timed-out create never leaves a second charge.
	params.SetIdempotencyKey(fmt.Sprintf("order:%d:attempt:%d", orderID, attempt))

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating payment intent for order %d: %w", orderID, err)
	}

	return toPaymentIntent(intent), nil
}

func (s *StripePaymentProvider) GetPaymentIntent(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(externalID, params)
	if err != nil {
		return nil, fmt.Errorf("retrieving payment intent %s: %w", externalID, err)
	}

	return toPaymentIntent(intent), nil
}

func (s *StripePaymentProvider) RefundPayment(ctx context.Context, externalID string, amount *decimal.Decimal) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(externalID),
	}
	params.Context = ctx

	if amount != nil {
		params.Amount = stripe.Int64(toCents(*amount))
	}

	ref, err := refund.New(params)
	if err != nil {
		return false, fmt.Errorf("refunding payment intent %s: %w", externalID, err)
	}

	return ref.Status == stripe.RefundStatusSucceeded, nil
}

// toCents converts a decimal amount to the smallest currency unit. Sub-cent
// fractions are truncated, never rounded up.
func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).IntPart()
}

func toPaymentIntent(intent *stripe.PaymentIntent) *domain.PaymentIntent {
	out := &domain.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       toIntentStatus(intent.Status),
	}

	if intent.LastPaymentError != nil {
		out.FailureReason = intent.LastPaymentError.Msg
	}

	return out
}

func toIntentStatus(status stripe.PaymentIntentStatus) domain.IntentStatus {
	switch status {
	case stripe.PaymentIntentStatusRequiresPaymentMethod:
		return domain.IntentStatusRequiresPaymentMethod
	case stripe.PaymentIntentStatusRequiresConfirmation, stripe.PaymentIntentStatusRequiresAction:
		return domain.IntentStatusRequiresConfirmation
	case stripe.PaymentIntentStatusProcessing:
		return domain.IntentStatusProcessing
	case stripe.PaymentIntentStatusSucceeded:
		return domain.IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return domain.IntentStatusCanceled
	default:
		return domain.IntentStatus(status)
	}
}
