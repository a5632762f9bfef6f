package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Fedot0v/online-cinema-api/internal/domain"
)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("positive_decimal", validatePositiveDecimal)
	validator.RegisterValidation("order_status", validateOrderStatus)

	return validator
}

func validatePositiveDecimal(fl validator.FieldLevel) bool {
	amount, ok := fl.Field().Interface().(decimal.Decimal)
	if !ok {
		return false
	}

	return amount.IsPositive()
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	status := domain.OrderStatus(fl.Field().String())

	switch status {
	case domain.OrderStatusPending, domain.OrderStatusPaid, domain.OrderStatusCanceled:
		return true
	}

	return false
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", err.Param())
	case "positive_decimal":
		return "must be a positive amount"
	case "order_status":
		return "must be one of: pending, paid, canceled"
	default:
		return "is invalid"
	}
}
