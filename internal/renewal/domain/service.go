// Package domain defines the renewal engine contract: extending a
// customer's subscription by issuing the next period's invoice, and
// undoing the most recent extension.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
)

type RenewRequest struct {
	CustomerID snowflake.ID `json:"customer_id"`
	// PeriodMonths overrides the customer's configured period when > 0.
	PeriodMonths int `json:"period_months,omitempty"`
	// StartDate overrides the renewal anchor. When nil the anchor is the
	// day after the current end date (if still in the future) or today.
	StartDate *time.Time `json:"start_date,omitempty"`
}

type RenewResult struct {
	Invoice     ledgerdomain.Invoice     `json:"invoice"`
	Transaction ledgerdomain.Transaction `json:"transaction"`
	// PreviousBalance is the customer's outstanding balance before the
	// renewal, credits included.
	PreviousBalance float64 `json:"previous_balance"`
	// NotificationSent is false when downstream delivery failed; the
	// renewal itself still committed.
	NotificationSent bool `json:"notification_sent"`
}

// Service issues renewal invoices and reverts them.
//
// Renew forecloses any credit (negative-balance) invoices into the new
// invoice, so a customer carries at most one invoice with credit at a
// time. Positive balances are left alone; dues accumulate across
// invoices until a payment settles them.
type Service interface {
	Renew(ctx context.Context, req RenewRequest) (RenewResult, error)

	// RevertLast deletes the customer's most recent invoice and restores
	// the previous end date. It refuses when the invoice has received
	// any payment.
	RevertLast(ctx context.Context, customerID snowflake.ID) (*ledgerdomain.Transaction, error)
}

var (
	ErrInvalidPeriod   = errors.New("invalid_period_months")
	ErrNothingToRevert = errors.New("no_invoice_to_revert")
)
