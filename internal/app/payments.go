package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Fedot0v/online-cinema-api/api"
	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const paymentInitLockTTL = 30 * time.Second

// The lock is released only by the request that holds it, the token guards
// against deleting a lock that expired and was re-acquired by someone else.
var releasePaymentLockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end

	return 0
`)

func (app *Application) InitiateOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	orderId, err := app.readIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	order, err := app.orderRepo.GetById(r.Context(), orderId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Order with id %d not found", orderId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if order.UserID != userId {
		app.notAuthorizedResponse(w, r)
		return
	}

	if order.Status != domain.OrderStatusPending {
		app.badRequestResponse(w, r, fmt.Errorf("Order cannot be paid"))
		return
	}

	release, err := app.acquirePaymentInitLock(r.Context(), order.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentInitInProgress):
			logger.Warn("concurrent payment initiation rejected", "order_id", order.ID)
			app.editConflictResponseWithErr(w, r, fmt.Errorf("A payment for this order is already being initiated"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}
	defer release()

	attempts, err := app.paymentRepo.CountByOrderId(r.Context(), order.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	intent, err := app.paymentProvider.InitiatePayment(
		r.Context(),
		order.ID,
		order.TotalAmount,
		app.config.Stripe.Currency,
		attempts,
	)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	// A retried initiation gets the same intent back from the provider, in
	// that case the payment row already exists and is reused as is.
	existing, err := app.paymentRepo.GetByExternalId(r.Context(), intent.ID)
	if err == nil {
		logger.Info("payment already initiated", "payment_id", existing.ID, "order_id", order.ID)

		resp := api.CheckoutResponse{ClientSecret: intent.ClientSecret}

		err = app.writeJSON(w, http.StatusOK, resp, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}

		return
	}
	if !errors.Is(err, domain.ErrRecordNotFound) {
		app.serverErrorResponse(w, r, err)
		return
	}

	payment := domain.NewPaymentFromOrder(order, intent.ID)

	err = app.paymentRepo.Create(r.Context(), payment)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEditConflict):
			logger.Warn("another payment attempt is already open for order", "order_id", order.ID)
			app.editConflictResponseWithErr(w, r, fmt.Errorf("Another payment attempt for this order is already open"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("payment initiated", "payment_id", payment.ID, "order_id", order.ID, "attempt", attempts)

	resp := api.CheckoutResponse{ClientSecret: intent.ClientSecret}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) acquirePaymentInitLock(ctx context.Context, orderID int) (func(), error) {
	key := paymentInitLockKey(orderID)
	token := uuid.New().String()

	ok, err := app.redis.SetNX(ctx, key, token, paymentInitLockTTL).Result()
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, domain.ErrPaymentInitInProgress
	}

	release := func() {
		// The lock must go away even when the request context is already done.
		err := releasePaymentLockScript.Run(context.WithoutCancel(ctx), app.redis, []string{key}, token).Err()
		if err != nil {
			app.logger.Error("failed to release payment initiation lock", "key", key, "error", err)
		}
	}

	return release, nil
}

func paymentInitLockKey(orderID int) string {
	return fmt.Sprintf("payment_init_lock:%d", orderID)
}

// completePayment reconciles the local payment identified by externalID with
// the live provider state of the intent. The webhook event only triggers the
// lookup, it is never trusted as the source of truth.
func (app *Application) completePayment(ctx context.Context, externalID string) (*domain.Payment, error) {
	payment, err := app.paymentRepo.GetByExternalId(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if payment.Status == domain.PaymentStatusSuccessful {
		return payment, nil
	}

	if !payment.Status.CanTransitionTo(domain.PaymentStatusSuccessful) {
		return nil, domain.ErrPaymentNotCompletable
	}

	intent, err := app.paymentProvider.GetPaymentIntent(ctx, externalID)
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case domain.IntentStatusSucceeded:
		return app.settlePayment(ctx, externalID)
	case domain.IntentStatusProcessing:
		return app.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusProcessing)
	case domain.IntentStatusRequiresPaymentMethod, domain.IntentStatusRequiresConfirmation:
		return app.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusPending)
	default:
		return app.paymentRepo.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCanceled)
	}
}

func (app *Application) settlePayment(ctx context.Context, externalID string) (*domain.Payment, error) {
	settled, err := app.paymentRepo.MarkSucceeded(ctx, externalID)
	if err == nil {
		app.verifyOrderPaid(ctx, settled)
		return settled, nil
	}

	if !errors.Is(err, domain.ErrEditConflict) {
		return nil, err
	}

	// Lost a settle race against a concurrent attempt, re-read and decide.
	current, readErr := app.paymentRepo.GetByExternalId(ctx, externalID)
	if readErr != nil {
		return nil, readErr
	}

	if current.Status == domain.PaymentStatusSuccessful {
		return current, nil
	}

	app.logger.Error("captured payment lost the settle race and needs a manual refund",
		"payment_id", current.ID,
		"order_id", current.OrderID,
	)

	return app.paymentRepo.UpdateStatus(ctx, current.ID, domain.PaymentStatusCanceled)
}

func (app *Application) verifyOrderPaid(ctx context.Context, payment *domain.Payment) {
	order, err := app.orderRepo.GetById(ctx, payment.OrderID)
	if err != nil {
		app.logger.Error("failed to load order after settling payment",
			"payment_id", payment.ID,
			"order_id", payment.OrderID,
			"error", err,
		)
		return
	}

	if order.Status != domain.OrderStatusPaid {
		app.logger.Error("payment settled but order did not move to paid, manual refund needed",
			"payment_id", payment.ID,
			"order_id", order.ID,
			"order_status", order.Status,
		)
	}
}

func (app *Application) RefundOrderPaymentHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)
	userId := app.contextGetUserId(r)

	orderId, err := app.readIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input api.RefundRequest

	// An absent body requests a refund of the full amount.
	if r.ContentLength != 0 {
		err = app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		err = app.validator.Struct(input)
		if err != nil {
			app.failedValidationResponse(w, r, err)
			return
		}
	}

	order, err := app.orderRepo.GetById(r.Context(), orderId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Order with id %d not found", orderId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if order.UserID != userId {
		app.notAuthorizedResponse(w, r)
		return
	}

	payment, err := app.paymentRepo.GetSettledByOrderId(r.Context(), order.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("No successful payment found for this order"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if payment.Status != domain.PaymentStatusSuccessful {
		app.badRequestResponse(w, r, fmt.Errorf("Payment cannot be refunded"))
		return
	}

	if payment.ExternalPaymentID == nil {
		app.serverErrorResponse(w, r, fmt.Errorf("payment %d has no external payment id", payment.ID))
		return
	}

	ok, err := app.paymentProvider.RefundPayment(r.Context(), *payment.ExternalPaymentID, input.Amount)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !ok {
		logger.Warn("provider declined the refund", "payment_id", payment.ID, "order_id", order.ID)
		app.badRequestResponse(w, r, fmt.Errorf("Refund failed"))
		return
	}

	refunded, err := app.paymentRepo.UpdateStatus(r.Context(), payment.ID, domain.PaymentStatusRefunded)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEditConflict):
			app.editConflictResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	logger.Info("payment refunded", "payment_id", refunded.ID, "order_id", order.ID)

	resp := api.PaymentResponse{
		Payment: toApiPayment(refunded),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetUserPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userId := app.contextGetUserId(r)

	payments, err := app.paymentRepo.GetAllByUserId(r.Context(), userId)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentListResponse{
		Payments: toApiPayments(payments),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) GetOrderPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userId := app.contextGetUserId(r)

	orderId, err := app.readIDParam(r, "orderID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	order, err := app.orderRepo.GetById(r.Context(), orderId)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Order with id %d not found", orderId))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	if order.UserID != userId {
		app.notAuthorizedResponse(w, r)
		return
	}

	payments, err := app.paymentRepo.GetAllByOrderId(r.Context(), order.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.PaymentListResponse{
		Payments: toApiPayments(payments),
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toApiPayments(payments []*domain.Payment) []api.Payment {
	apiPayments := make([]api.Payment, len(payments))
	for i, payment := range payments {
		apiPayments[i] = toApiPayment(payment)
	}

	return apiPayments
}

func toApiPayment(payment *domain.Payment) api.Payment {
	items := make([]api.PaymentItem, len(payment.Items))
	for i, item := range payment.Items {
		items[i] = api.PaymentItem{
			OrderItemId:    item.OrderItemID,
			PriceAtPayment: item.PriceAtPayment,
		}
	}

	return api.Payment{
		Id:                payment.ID,
		UserId:            payment.UserID,
		OrderId:           payment.OrderID,
		CreatedAt:         payment.CreatedAt,
		Status:            string(payment.Status),
		Amount:            payment.Amount,
		ExternalPaymentId: payment.ExternalPaymentID,
		PaymentItems:      items,
	}
}
