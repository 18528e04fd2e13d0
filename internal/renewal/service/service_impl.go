package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/clock"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/notification"
	"github.com/smallbiznis/netbill/internal/period"
	plandomain "github.com/smallbiznis/netbill/internal/plan/domain"
	renewaldomain "github.com/smallbiznis/netbill/internal/renewal/domain"
	"github.com/smallbiznis/netbill/internal/tax"
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
	PlanRepo     plandomain.Repository
	Notifier     notification.Notifier
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	ledgerRepo   ledgerdomain.Repository
	ledgerSvc    ledgerdomain.Service
	customerRepo customerdomain.Repository
	planRepo     plandomain.Repository
	notifier     notification.Notifier
}

func NewService(p Params) renewaldomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("renewal.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		ledgerRepo:   p.LedgerRepo,
		ledgerSvc:    p.LedgerSvc,
		customerRepo: p.CustomerRepo,
		planRepo:     p.PlanRepo,
		notifier:     p.Notifier,
	}
}

// Renew implements domain.Service.
func (s *Service) Renew(ctx context.Context, req renewaldomain.RenewRequest) (renewaldomain.RenewResult, error) {
	var (
		result   renewaldomain.RenewResult
		customer *customerdomain.Customer
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cust, err := s.customerRepo.FindByIDForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if cust == nil {
			return customerdomain.ErrCustomerNotFound
		}
		customer = cust

		months := req.PeriodMonths
		if months == 0 {
			months = cust.PeriodMonths
		}
		if months <= 0 {
			return renewaldomain.ErrInvalidPeriod
		}

		plan, err := s.planRepo.FindByID(ctx, tx, cust.PlanID)
		if err != nil {
			return err
		}
		if plan == nil {
			return plandomain.ErrPlanNotFound
		}

		now := s.clock.Now()
		anchor := s.resolveAnchor(req.StartDate, cust.EndDate, now)
		billingPeriod, newEndDate := period.Calculate(cust.BillingType, anchor, months, cust.EndDate)

		prevBalance, err := s.ledgerRepo.TotalBalance(ctx, tx, cust.ID)
		if err != nil {
			return err
		}

		credit, err := s.forecloseCredits(ctx, tx, cust.ID)
		if err != nil {
			return err
		}

		baseAmount := money.Round(plan.Price * float64(months))
		taxes := tax.Calculate(baseAmount, plan.CGSTPercentage, plan.SGSTPercentage, plan.IGSTPercentage)
		totalWithTax := money.Round(taxes.Total)

		// Carried-forward credit reduces what the customer owes on the new
		// invoice; it never reduces what was billed.
		adjusted := money.Round(totalWithTax + credit)
		balance := adjusted
		if balance < 0 {
			balance = 0
		}
		paid := money.Round(totalWithTax - balance)

		status := ledgerdomain.InvoiceStatusSent
		if balance == 0 {
			status = ledgerdomain.InvoiceStatusPaid
		}

		number, err := s.ledgerSvc.GenerateInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		invoice := &ledgerdomain.Invoice{
			ID:                 s.genID.Generate(),
			InvoiceNumber:      number,
			CustomerID:         cust.ID,
			PlanID:             plan.ID,
			BillAmount:         baseAmount,
			CGSTTax:            money.Round(taxes.CGST),
			SGSTTax:            money.Round(taxes.SGST),
			IGSTTax:            money.Round(taxes.IGST),
			TotalAmount:        totalWithTax,
			PaidAmount:         paid,
			BalanceAmount:      balance,
			BillingPeriodStart: billingPeriod.Start,
			BillingPeriodEnd:   billingPeriod.End,
			InvoiceDate:        now,
			DueDate:            newEndDate,
			Status:             status,
			Remarks:            fmt.Sprintf("Renewal: %s x%d month(s)", plan.Name, months),
		}
		if err := s.ledgerRepo.InsertInvoice(ctx, tx, invoice); err != nil {
			return err
		}

		if err := s.customerRepo.AdvanceRenewal(ctx, tx, cust.ID, newEndDate); err != nil {
			return err
		}

		description := fmt.Sprintf("Renewal %s to %s",
			billingPeriod.Start.Format("2006-01-02"), billingPeriod.End.Format("2006-01-02"))
		txn, err := s.ledgerSvc.RecomputeAndAppend(ctx, tx, cust.ID, ledgerdomain.TransactionTypeRenewal, totalWithTax, description, now)
		if err != nil {
			return err
		}

		result = renewaldomain.RenewResult{
			Invoice:         *invoice,
			Transaction:     *txn,
			PreviousBalance: money.Round(prevBalance),
		}
		return nil
	})
	if err != nil {
		if db.IsSerializationErr(err) {
			return renewaldomain.RenewResult{}, ledgerdomain.ErrConcurrentModification
		}
		return renewaldomain.RenewResult{}, err
	}

	// Notification failure never unwinds a committed renewal.
	if err := s.notifier.OnInvoiceCreated(ctx, result.Invoice, *customer); err != nil {
		s.log.Warn("invoice notification failed",
			zap.String("invoice_number", result.Invoice.InvoiceNumber),
			zap.Error(err),
		)
	} else {
		result.NotificationSent = true
	}

	s.log.Info("customer renewed",
		zap.String("customer_id", req.CustomerID.String()),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
		zap.Time("end_date", result.Invoice.DueDate),
		zap.Float64("balance_after", result.Transaction.BalanceAfter),
	)
	return result, nil
}

// resolveAnchor picks the renewal anchor date: an explicit override
// wins, an unexpired end date continues the subscription seamlessly
// from the day after it, and a lapsed or missing end date restarts
// from today.
func (s *Service) resolveAnchor(override, endDate *time.Time, now time.Time) time.Time {
	if override != nil {
		return *override
	}
	today := time.Date(now.UTC().Year(), now.UTC().Month(), now.UTC().Day(), 0, 0, 0, 0, time.UTC)
	if endDate != nil && !endDate.Before(today) {
		return endDate.AddDate(0, 0, 1)
	}
	return today
}

// forecloseCredits zeroes out every negative-balance invoice and
// returns the total credit (<= 0) to carry onto the new invoice.
func (s *Service) forecloseCredits(ctx context.Context, tx *gorm.DB, customerID snowflake.ID) (float64, error) {
	credits, err := s.ledgerRepo.FindCreditForUpdate(ctx, tx, customerID)
	if err != nil {
		return 0, err
	}

	var total float64
	for i := range credits {
		inv := &credits[i]
		total += inv.BalanceAmount

		inv.PaidAmount = money.Round(inv.PaidAmount + inv.BalanceAmount)
		inv.BalanceAmount = 0
		inv.Status = ledgerdomain.InvoiceStatusPaid
		if err := s.ledgerRepo.UpdateInvoiceAmounts(ctx, tx, inv); err != nil {
			return 0, err
		}
	}
	return money.Round(total), nil
}

// RevertLast implements domain.Service.
func (s *Service) RevertLast(ctx context.Context, customerID snowflake.ID) (*ledgerdomain.Transaction, error) {
	var result *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cust, err := s.customerRepo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if cust == nil {
			return customerdomain.ErrCustomerNotFound
		}

		last, err := s.ledgerRepo.FindLastCreated(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if last == nil {
			return renewaldomain.ErrNothingToRevert
		}
		if last.PaidAmount > 0 {
			return ledgerdomain.ErrInvalidState
		}

		if err := s.ledgerRepo.DeleteInvoice(ctx, tx, last.ID); err != nil {
			return err
		}

		// Restore the end date the customer had before this invoice was
		// issued: the previous invoice's period end, or the original
		// start date when this was the first invoice.
		prev, err := s.ledgerRepo.FindCreatedBefore(ctx, tx, customerID, last.ID)
		if err != nil {
			return err
		}
		var restored *time.Time
		if prev != nil {
			end := prev.BillingPeriodEnd
			restored = &end
		} else {
			restored = cust.StartDate
		}
		if err := s.customerRepo.SetEndDate(ctx, tx, customerID, restored); err != nil {
			return err
		}

		description := fmt.Sprintf("Reverted renewal invoice %s", last.InvoiceNumber)
		result, err = s.ledgerSvc.RecomputeAndAppend(ctx, tx, customerID, ledgerdomain.TransactionTypeAdjustment, -last.BalanceAmount, description, s.clock.Now())
		return err
	})
	if err != nil {
		if db.IsSerializationErr(err) {
			return nil, ledgerdomain.ErrConcurrentModification
		}
		return nil, err
	}

	s.log.Info("renewal reverted",
		zap.String("customer_id", customerID.String()),
		zap.Float64("balance_after", result.BalanceAfter),
	)
	return result, nil
}
