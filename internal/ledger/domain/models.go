// Package domain contains the customer ledger: invoices, add-on bills,
// payments, and the append-only transaction log.
//
// The core invariant: for any customer, the sum of invoice and add-on
// balance_amount columns equals the balance_after of that customer's
// most recent transaction. Every balance mutation must go through
// Service.RecomputeAndAppend inside the same unit of work.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "DRAFT"
	InvoiceStatusSent      InvoiceStatus = "SENT"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusOverdue   InvoiceStatus = "OVERDUE"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// TransactionType classifies ledger entries.
type TransactionType string

const (
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeRenewal    TransactionType = "RENEWAL"
	TransactionTypeDebit      TransactionType = "DEBIT"
	TransactionTypeRefund     TransactionType = "REFUND"
	TransactionTypeAdjustment TransactionType = "ADJUSTMENT"
)

// Invoice is a billing document for one renewal period. balance_amount
// is stored, not recomputed on read: the transaction log snapshots it
// at specific moments. A negative balance is customer credit.
type Invoice struct {
	ID                  snowflake.ID  `gorm:"primaryKey" json:"id"`
	InvoiceNumber       string        `gorm:"uniqueIndex;not null" json:"invoice_number"`
	CustomerID          snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	PlanID              snowflake.ID  `gorm:"index" json:"plan_id,omitempty"`
	BillAmount          float64       `gorm:"not null" json:"bill_amount"`
	CGSTTax             float64       `gorm:"column:cgst_tax;not null;default:0" json:"cgst_tax"`
	SGSTTax             float64       `gorm:"column:sgst_tax;not null;default:0" json:"sgst_tax"`
	IGSTTax             float64       `gorm:"column:igst_tax;not null;default:0" json:"igst_tax"`
	InstallationCharges float64       `gorm:"not null;default:0" json:"installation_charges"`
	Discount            float64       `gorm:"not null;default:0" json:"discount"`
	TotalAmount         float64       `gorm:"not null" json:"total_amount"`
	PaidAmount          float64       `gorm:"not null;default:0" json:"paid_amount"`
	BalanceAmount       float64       `gorm:"not null;default:0" json:"balance_amount"`
	BillingPeriodStart  time.Time     `gorm:"not null" json:"billing_period_start"`
	BillingPeriodEnd    time.Time     `gorm:"not null" json:"billing_period_end"`
	InvoiceDate         time.Time     `gorm:"not null" json:"invoice_date"`
	DueDate             time.Time     `gorm:"not null;index" json:"due_date"`
	Status              InvoiceStatus `gorm:"type:text;not null" json:"status"`
	Remarks             string        `gorm:"" json:"remarks,omitempty"`
	CreatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// AddonBill is a one-off charge outside the renewal cycle. It carries
// the same financial shape as an invoice and contributes to the
// customer's total balance identically.
type AddonBill struct {
	ID            snowflake.ID  `gorm:"primaryKey" json:"id"`
	BillNumber    string        `gorm:"uniqueIndex;not null" json:"bill_number"`
	CustomerID    snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	Description   string        `gorm:"" json:"description,omitempty"`
	BillAmount    float64       `gorm:"not null" json:"bill_amount"`
	CGSTTax       float64       `gorm:"column:cgst_tax;not null;default:0" json:"cgst_tax"`
	SGSTTax       float64       `gorm:"column:sgst_tax;not null;default:0" json:"sgst_tax"`
	IGSTTax       float64       `gorm:"column:igst_tax;not null;default:0" json:"igst_tax"`
	TotalAmount   float64       `gorm:"not null" json:"total_amount"`
	PaidAmount    float64       `gorm:"not null;default:0" json:"paid_amount"`
	BalanceAmount float64       `gorm:"not null;default:0" json:"balance_amount"`
	BillDate      time.Time     `gorm:"not null" json:"bill_date"`
	DueDate       time.Time     `gorm:"not null" json:"due_date"`
	Status        InvoiceStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (AddonBill) TableName() string { return "addon_bills" }

// ManualInvoice is an operator-issued document that shares the invoice
// number space. It does not participate in the balance ledger but its
// numbers must never collide with generated ones.
type ManualInvoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber string       `gorm:"uniqueIndex;not null" json:"invoice_number"`
	CustomerName  string       `gorm:"" json:"customer_name,omitempty"`
	TotalAmount   float64      `gorm:"not null" json:"total_amount"`
	InvoiceDate   time.Time    `gorm:"not null" json:"invoice_date"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (ManualInvoice) TableName() string { return "manual_invoices" }

// Payment records money received from a customer. The allocation of a
// payment across invoices is reflected on the invoices themselves and
// in the transaction log; the payment row is the audit record of the
// receipt.
type Payment struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	PaymentID        string       `gorm:"column:payment_id;uniqueIndex;not null" json:"payment_id"`
	CustomerID       snowflake.ID `gorm:"not null;index" json:"customer_id"`
	Amount           float64      `gorm:"not null" json:"amount"`
	Discount         float64      `gorm:"not null;default:0" json:"discount"`
	PaymentMethod    string       `gorm:"not null" json:"payment_method"`
	PaymentReference string       `gorm:"" json:"payment_reference,omitempty"`
	PaymentDate      time.Time    `gorm:"not null" json:"payment_date"`
	Remarks          string       `gorm:"" json:"remarks,omitempty"`
	Status           string       `gorm:"not null;default:'COMPLETED'" json:"status"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "payments" }

// Transaction is an immutable ledger entry. Rows are appended, never
// updated or deleted; balance_after snapshots the customer's total
// outstanding balance immediately after the event.
type Transaction struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	TransactionID   string          `gorm:"column:transaction_id;uniqueIndex;not null" json:"transaction_id"`
	CustomerID      snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	TransactionType TransactionType `gorm:"type:text;not null" json:"transaction_type"`
	Amount          float64         `gorm:"not null" json:"amount"`
	BalanceAfter    float64         `gorm:"not null" json:"balance_after"`
	Description     string          `gorm:"" json:"description,omitempty"`
	TransactionDate time.Time       `gorm:"not null;index" json:"transaction_date"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "transactions" }
