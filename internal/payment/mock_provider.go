package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/shopspring/decimal"
)

// MockPaymentProvider is an in-memory PaymentProvider used by integration
// tests and local development. Intent ids are deterministic per order and
// attempt, mirroring the idempotency behavior of the Stripe provider.
type MockPaymentProvider struct {
	mu       sync.Mutex
	statuses map[string]domain.IntentStatus

	Err      error
	RefundOK bool
}

func NewMockPaymentProvider() *MockPaymentProvider {
	return &MockPaymentProvider{
		statuses: make(map[string]domain.IntentStatus),
		RefundOK: true,
	}
}

func (m *MockPaymentProvider) InitiatePayment(
	ctx context.Context,
	orderID int,
	amount decimal.Decimal,
	currency string,
	attempt int) (*domain.PaymentIntent, error) {

	if m.Err != nil {
		return nil, m.Err
	}

	id := fmt.Sprintf("pi_mock_%d_%d", orderID, attempt)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.statuses[id]; !ok {
		m.statuses[id] = domain.IntentStatusRequiresPaymentMethod
	}

	return &domain.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       m.statuses[id],
	}, nil
}

func (m *MockPaymentProvider) GetPaymentIntent(ctx context.Context, externalID string) (*domain.PaymentIntent, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	status, ok := m.statuses[externalID]
	if !ok {
		return nil, fmt.Errorf("unknown payment intent: %s", externalID)
	}

	return &domain.PaymentIntent{
		ID:           externalID,
		ClientSecret: externalID + "_secret",
		Status:       status,
	}, nil
}

func (m *MockPaymentProvider) RefundPayment(ctx context.Context, externalID string, amount *decimal.Decimal) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}

	return m.RefundOK, nil
}

// SetIntentStatus drives the provider-side state of an intent from tests.
func (m *MockPaymentProvider) SetIntentStatus(externalID string, status domain.IntentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.statuses[externalID] = status
}
