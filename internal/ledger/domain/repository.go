package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateInvoiceAmounts(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// FindUnpaidForUpdate returns invoices with balance_amount > 0 for a
	// customer, ordered by due date ascending, locked for the caller's
	// transaction. This is the allocation scan: the payment allocator
	// depends on a consistent snapshot of it.
	FindUnpaidForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Invoice, error)
	// FindCreditForUpdate returns invoices with balance_amount < 0
	// (customer credit), locked.
	FindCreditForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Invoice, error)
	// FindLatestByDueDate returns the customer's most recent invoice by
	// due date, or nil.
	FindLatestByDueDate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Invoice, error)
	// FindLastCreated returns the customer's most recently created
	// invoice, or nil. Used by the revert path.
	FindLastCreated(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Invoice, error)
	// FindCreatedBefore returns the newest invoice created before the
	// given one, or nil.
	FindCreatedBefore(ctx context.Context, db *gorm.DB, customerID, beforeID snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]Invoice, error)

	InvoiceNumberExists(ctx context.Context, db *gorm.DB, number string) (bool, error)

	// TotalBalance sums invoice and add-on balances for a customer.
	TotalBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (float64, error)
	// CreditBalance sums only negative invoice balances (always <= 0).
	CreditBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (float64, error)

	InsertAddonBill(ctx context.Context, db *gorm.DB, bill *AddonBill) error
	UpdateAddonBillAmounts(ctx context.Context, db *gorm.DB, bill *AddonBill) error

	InsertPayment(ctx context.Context, db *gorm.DB, payment *Payment) error

	InsertTransaction(ctx context.Context, db *gorm.DB, txn *Transaction) error
	// FindLatestTransaction returns the customer's most recent ledger
	// entry, or nil.
	FindLatestTransaction(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*Transaction, error)
	ListTransactions(ctx context.Context, db *gorm.DB, customerID snowflake.ID, limit int) ([]Transaction, error)
}
