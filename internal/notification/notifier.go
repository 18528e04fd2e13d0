// Package notification is the trigger point for downstream paperwork
// (PDF generation, email/SMS delivery). The ledger never depends on it
// for correctness: a notifier failure is logged and reported as a
// non-fatal flag, never rolled into the money movement.
package notification

import (
	"context"

	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Notifier interface {
	OnInvoiceCreated(ctx context.Context, invoice ledgerdomain.Invoice, customer customerdomain.Customer) error
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier that only records the event.
// Delivery integrations replace this in deployment wiring.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.Named("notification")}
}

func (n *logNotifier) OnInvoiceCreated(ctx context.Context, invoice ledgerdomain.Invoice, customer customerdomain.Customer) error {
	_ = ctx
	n.log.Info("invoice created",
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("customer_code", customer.CustomerCode),
		zap.Float64("total_amount", invoice.TotalAmount),
	)
	return nil
}

var Module = fx.Module("notification",
	fx.Provide(NewLogNotifier),
)
