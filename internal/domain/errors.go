package domain

import "errors"

var (
	ErrRecordNotFound        = errors.New("record not found")
	ErrEditConflict          = errors.New("edit conflict")
	ErrCartNotFound          = errors.New("cart not found")
	ErrMovieAlreadyInCart    = errors.New("movie already in cart")
	ErrMovieNotInCart        = errors.New("movie not found in cart")
	ErrPaymentNotCompletable = errors.New("payment cannot be completed")
	ErrPaymentInitInProgress = errors.New("payment initiation already in progress")
)
