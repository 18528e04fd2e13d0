// Package domain defines the payment allocation contract.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
)

type AllocateRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	Amount     float64      `json:"amount"`
	Discount   float64      `json:"discount,omitempty"`
	Method     string       `json:"payment_method"`
	Reference  string       `json:"payment_reference,omitempty"`
	Remarks    string       `json:"remarks,omitempty"`
}

type AllocationResult struct {
	Payment     ledgerdomain.Payment     `json:"payment"`
	Transaction ledgerdomain.Transaction `json:"transaction"`
	// Settled lists invoice numbers fully paid by this allocation.
	Settled []string `json:"settled_invoices,omitempty"`
}

// Service distributes an incoming payment across a customer's
// outstanding invoices: oldest due date first, any remainder applied as
// credit to the most recently due invoice, one PAYMENT transaction
// appended. Allocation is atomic per payment.
type Service interface {
	Allocate(ctx context.Context, req AllocateRequest) (AllocationResult, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_payment_amount")
	ErrInvalidDiscount = errors.New("invalid_payment_discount")
	ErrMissingMethod   = errors.New("missing_payment_method")
)
