package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Fedot0v/online-cinema-api/api"
	"github.com/Fedot0v/online-cinema-api/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// Stripe recommends capping webhook bodies at 64KB.
const webhookMaxBodyBytes = 65536

func (app *Application) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	r.Body = http.MaxBytesReader(w, r.Body, webhookMaxBodyBytes)

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("failed to read webhook payload"))
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		r.Header.Get("Stripe-Signature"),
		app.config.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.Warn("webhook signature verification failed", "error", err)
		app.badRequestResponse(w, r, fmt.Errorf("invalid webhook signature"))
		return
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
	default:
		logger.Info("ignoring webhook event", "event_type", event.Type)

		err = app.writeJSON(w, http.StatusOK, api.WebhookResponse{Status: "ignored"}, nil)
		if err != nil {
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	var intent stripe.PaymentIntent

	err = json.Unmarshal(event.Data.Raw, &intent)
	if err != nil {
		app.badRequestResponse(w, r, fmt.Errorf("malformed webhook payload"))
		return
	}

	payment, err := app.completePayment(r.Context(), intent.ID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			// Stripe keeps retrying, the payment row may just not be visible yet.
			app.notFoundResponseWithErr(w, r, fmt.Errorf("Payment not found"))
		case errors.Is(err, domain.ErrPaymentNotCompletable):
			app.badRequestResponse(w, r, fmt.Errorf("Payment cannot be completed"))
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	resp := api.WebhookResponse{
		Status:    "success",
		PaymentId: &payment.ID,
	}

	if event.Type == stripe.EventTypePaymentIntentPaymentFailed {
		resp.Status = "failed"

		if intent.LastPaymentError != nil && intent.LastPaymentError.Msg != "" {
			resp.Message = &intent.LastPaymentError.Msg
		}

		logger.Warn("payment attempt failed",
			"payment_id", payment.ID,
			"payment_status", payment.Status,
		)
	} else {
		logger.Info("payment reconciled from webhook",
			"payment_id", payment.ID,
			"payment_status", payment.Status,
		)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
