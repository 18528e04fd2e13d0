package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/clock"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/netbill/internal/payment/domain"
	"github.com/smallbiznis/netbill/pkg/db"
	"github.com/smallbiznis/netbill/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	LedgerRepo   ledgerdomain.Repository
	LedgerSvc    ledgerdomain.Service
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	ledgerRepo   ledgerdomain.Repository
	ledgerSvc    ledgerdomain.Service
	customerRepo customerdomain.Repository
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("payment.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		ledgerRepo:   p.LedgerRepo,
		ledgerSvc:    p.LedgerSvc,
		customerRepo: p.CustomerRepo,
	}
}

// Allocate implements domain.Service.
func (s *Service) Allocate(ctx context.Context, req paymentdomain.AllocateRequest) (paymentdomain.AllocationResult, error) {
	if req.Amount <= 0 {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrInvalidAmount
	}
	if req.Discount < 0 {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrInvalidDiscount
	}
	if strings.TrimSpace(req.Method) == "" {
		return paymentdomain.AllocationResult{}, paymentdomain.ErrMissingMethod
	}

	var result paymentdomain.AllocationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the customer row first: payment allocation and renewal are
		// mutually exclusive per customer.
		cust, err := s.customerRepo.FindByIDForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if cust == nil {
			return customerdomain.ErrCustomerNotFound
		}

		totalCredit := money.Round(req.Amount + req.Discount)
		remaining := totalCredit

		invoices, err := s.ledgerRepo.FindUnpaidForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}

		var settled []string
		for i := range invoices {
			if remaining <= 0 {
				break
			}
			inv := &invoices[i]

			if remaining >= inv.BalanceAmount {
				remaining = money.Round(remaining - inv.BalanceAmount)
				inv.PaidAmount = money.Round(inv.PaidAmount + inv.BalanceAmount)
				inv.BalanceAmount = 0
				inv.Status = ledgerdomain.InvoiceStatusPaid
				settled = append(settled, inv.InvoiceNumber)
			} else {
				inv.PaidAmount = money.Round(inv.PaidAmount + remaining)
				inv.BalanceAmount = money.Round(inv.BalanceAmount - remaining)
				remaining = 0
			}

			if err := s.ledgerRepo.UpdateInvoiceAmounts(ctx, tx, inv); err != nil {
				return err
			}
		}

		// Overpayment becomes credit on the most recently due invoice,
		// never a dropped remainder.
		if remaining > 0 {
			latest, err := s.ledgerRepo.FindLatestByDueDate(ctx, tx, req.CustomerID)
			if err != nil {
				return err
			}
			if latest != nil {
				latest.BalanceAmount = money.Round(latest.BalanceAmount - remaining)
				latest.PaidAmount = money.Round(latest.PaidAmount + remaining)
				if err := s.ledgerRepo.UpdateInvoiceAmounts(ctx, tx, latest); err != nil {
					return err
				}
			}
		}

		now := s.clock.Now()
		payment := &ledgerdomain.Payment{
			ID:               s.genID.Generate(),
			PaymentID:        fmt.Sprintf("PAY%d", s.genID.Generate()),
			CustomerID:       req.CustomerID,
			Amount:           money.Round(req.Amount),
			Discount:         money.Round(req.Discount),
			PaymentMethod:    req.Method,
			PaymentReference: req.Reference,
			PaymentDate:      now,
			Remarks:          req.Remarks,
			Status:           "COMPLETED",
		}
		if err := s.ledgerRepo.InsertPayment(ctx, tx, payment); err != nil {
			return err
		}

		description := fmt.Sprintf("Payment via %s", req.Method)
		if req.Discount > 0 {
			description += fmt.Sprintf(" (Discount: %.2f)", req.Discount)
		}

		txn, err := s.ledgerSvc.RecomputeAndAppend(ctx, tx, req.CustomerID, ledgerdomain.TransactionTypePayment, -totalCredit, description, now)
		if err != nil {
			return err
		}

		result = paymentdomain.AllocationResult{
			Payment:     *payment,
			Transaction: *txn,
			Settled:     settled,
		}
		return nil
	})
	if err != nil {
		if db.IsSerializationErr(err) {
			return paymentdomain.AllocationResult{}, ledgerdomain.ErrConcurrentModification
		}
		return paymentdomain.AllocationResult{}, err
	}

	metrics.IncPayment(result.Payment.Amount)
	s.log.Info("payment allocated",
		zap.String("customer_id", req.CustomerID.String()),
		zap.String("payment_id", result.Payment.PaymentID),
		zap.Float64("amount", result.Payment.Amount),
		zap.Float64("balance_after", result.Transaction.BalanceAfter),
		zap.Int("settled_invoices", len(result.Settled)),
	)
	return result, nil
}
