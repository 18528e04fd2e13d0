package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// AddonBillRequest describes a one-off charge raised outside the
// renewal cycle, with its own tax rates.
type AddonBillRequest struct {
	CustomerID     snowflake.ID
	Description    string
	Amount         float64
	CGSTPercentage float64
	SGSTPercentage float64
	IGSTPercentage float64
}

// Service owns the recompute-and-append routine that keeps the
// transaction log in step with invoice/add-on balances, plus invoice
// numbering and manual adjustments.
type Service interface {
	// RecomputeAndAppend recomputes the customer's total outstanding
	// balance inside tx and appends one transaction snapshotting it.
	// Every balance-mutating operation must call this in the same unit
	// of work as its mutations.
	RecomputeAndAppend(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, txnType TransactionType, amount float64, description string, at time.Time) (*Transaction, error)

	// GenerateInvoiceNumber returns a unique {prefix}{digits} number,
	// collision-checked against invoices, addon bills, and manual
	// invoices. Numbers are opaque; callers must not assume ordering.
	GenerateInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error)

	// AdjustBalance adds a manual due/extra amount onto the customer's
	// latest invoice and appends a DEBIT transaction.
	AdjustBalance(ctx context.Context, customerID snowflake.ID, amount float64, description string) (*Transaction, error)

	// CreateAddonBill raises a one-off charge due seven days after
	// creation and appends a DEBIT transaction for the tax-inclusive
	// total.
	CreateAddonBill(ctx context.Context, req AddonBillRequest) (*AddonBill, *Transaction, error)

	ListTransactions(ctx context.Context, customerID snowflake.ID, limit int) ([]Transaction, error)
}
