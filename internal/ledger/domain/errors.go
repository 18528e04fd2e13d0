package domain

import "errors"

var (
	ErrInvoiceNotFound        = errors.New("invoice_not_found")
	ErrInvalidState           = errors.New("invalid_state")
	ErrInvalidAmount          = errors.New("invalid_amount")
	ErrNumberExhausted        = errors.New("invoice_number_exhausted")
	ErrConcurrentModification = errors.New("concurrent_modification")
)
