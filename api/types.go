// Package api holds the request and response types of the public HTTP
// surface. Field names and casing are part of the storefront contract;
// monetary amounts serialize as decimal strings.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"requestId"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validationErrors"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type Movie struct {
	Id    int             `json:"id"`
	Title string          `json:"title"`
	Year  int             `json:"year"`
	Price decimal.Decimal `json:"price"`
}

type AddMovieToCartRequest struct {
	MovieId int `json:"movieId" validate:"required,gt=0"`
}

type CartItem struct {
	Id      int       `json:"id"`
	CartId  int       `json:"cartId"`
	MovieId int       `json:"movieId"`
	AddedAt time.Time `json:"addedAt"`
	Movie   *Movie    `json:"movie,omitempty"`
}

type CartItemResponse struct {
	CartItem CartItem `json:"cartItem"`
}

type Cart struct {
	Id          int             `json:"id"`
	UserId      int             `json:"userId"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CartItems   []CartItem      `json:"cartItems"`
}

type CartResponse struct {
	Cart Cart `json:"cart"`
}

type OrderItem struct {
	MovieId      int             `json:"movieId"`
	PriceAtOrder decimal.Decimal `json:"priceAtOrder"`
}

type Order struct {
	Id          int             `json:"id"`
	UserId      int             `json:"userId"`
	CreatedAt   time.Time       `json:"createdAt"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderItems  []OrderItem     `json:"orderItems"`
}

// CreateOrderResponse reports the new order together with the movie ids that
// were dropped from the cart because the user already bought or ordered them.
type CreateOrderResponse struct {
	Order            Order `json:"order"`
	ExcludedMovieIds []int `json:"excludedMovieIds"`
}

type OrderListResponse struct {
	Orders   []Order   `json:"orders"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

// CheckoutResponse carries the provider client secret the storefront needs
// to collect the payment in the browser.
type CheckoutResponse struct {
	ClientSecret string `json:"clientSecret"`
}

// RefundRequest optionally limits the refund to a partial amount. A missing
// amount refunds the payment in full.
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty" validate:"omitempty,positive_decimal"`
}

type PaymentItem struct {
	OrderItemId    int             `json:"orderItemId"`
	PriceAtPayment decimal.Decimal `json:"priceAtPayment"`
}

type Payment struct {
	Id                int             `json:"id"`
	UserId            int             `json:"userId"`
	OrderId           int             `json:"orderId"`
	CreatedAt         time.Time       `json:"createdAt"`
	Status            string          `json:"status"`
	Amount            decimal.Decimal `json:"amount"`
	ExternalPaymentId *string         `json:"externalPaymentId,omitempty"`
	PaymentItems      []PaymentItem   `json:"paymentItems"`
}

type PaymentResponse struct {
	Payment Payment `json:"payment"`
}

type PaymentListResponse struct {
	Payments []Payment `json:"payments"`
}

// WebhookResponse acknowledges a provider event. Status is one of "success",
// "failed" or "ignored"; Message carries the provider failure reason when
// present.
type WebhookResponse struct {
	Status    string  `json:"status"`
	PaymentId *int    `json:"paymentId,omitempty"`
	Message   *string `json:"message,omitempty"`
}
