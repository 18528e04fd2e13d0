package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/clock"
	"github.com/smallbiznis/netbill/internal/config"
	customerdomain "github.com/smallbiznis/netbill/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/netbill/internal/ledger/domain"
	"github.com/smallbiznis/netbill/internal/tax"
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
	Config       config.Config
	Repo         ledgerdomain.Repository
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         ledgerdomain.Repository
	customerRepo customerdomain.Repository

	numberPrefix   string
	numberDigits   int
	numberAttempts int
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("ledger.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,

		numberPrefix:   p.Config.InvoicePrefix,
		numberDigits:   p.Config.InvoiceDigits,
		numberAttempts: p.Config.InvoiceMaxAttempts,
	}
}

// RecomputeAndAppend implements domain.Service.
func (s *Service) RecomputeAndAppend(ctx context.Context, tx *gorm.DB, customerID snowflake.ID, txnType ledgerdomain.TransactionType, amount float64, description string, at time.Time) (*ledgerdomain.Transaction, error) {
	balance, err := s.repo.TotalBalance(ctx, tx, customerID)
	if err != nil {
		return nil, fmt.Errorf("recompute balance: %w", err)
	}

	txn := &ledgerdomain.Transaction{
		ID:              s.genID.Generate(),
		TransactionID:   fmt.Sprintf("TXN%d", s.genID.Generate()),
		CustomerID:      customerID,
		TransactionType: txnType,
		Amount:          money.Round(amount),
		BalanceAfter:    money.Round(balance),
		Description:     description,
		TransactionDate: at.UTC(),
	}

	if err := s.repo.InsertTransaction(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("append transaction: %w", err)
	}
	return txn, nil
}

// GenerateInvoiceNumber implements domain.Service.
func (s *Service) GenerateInvoiceNumber(ctx context.Context, tx *gorm.DB) (string, error) {
	min := int64(1)
	for i := 1; i < s.numberDigits; i++ {
		min *= 10
	}
	max := min*10 - 1

	for attempt := 0; attempt < s.numberAttempts; attempt++ {
		number := fmt.Sprintf("%s%d", s.numberPrefix, min+rand.Int64N(max-min+1))

		exists, err := s.repo.InvoiceNumberExists(ctx, tx, number)
		if err != nil {
			return "", err
		}
		if !exists {
			return number, nil
		}
	}

	s.log.Error("invoice number space exhausted",
		zap.String("prefix", s.numberPrefix),
		zap.Int("digits", s.numberDigits),
		zap.Int("attempts", s.numberAttempts),
	)
	return "", ledgerdomain.ErrNumberExhausted
}

// AdjustBalance implements domain.Service. The amount lands on the
// customer's latest invoice as extra due (or relief when negative) and
// is recorded as a DEBIT transaction.
func (s *Service) AdjustBalance(ctx context.Context, customerID snowflake.ID, amount float64, description string) (*ledgerdomain.Transaction, error) {
	if amount == 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if description == "" {
		description = "Manual due/extra amount added"
	}

	var result *ledgerdomain.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cust, err := s.customerRepo.FindByIDForUpdate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if cust == nil {
			return customerdomain.ErrCustomerNotFound
		}

		latest, err := s.repo.FindLatestByDueDate(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if latest == nil {
			return ledgerdomain.ErrInvoiceNotFound
		}

		latest.BalanceAmount = money.Round(latest.BalanceAmount + amount)
		latest.TotalAmount = money.Round(latest.TotalAmount + amount)
		if err := s.repo.UpdateInvoiceAmounts(ctx, tx, latest); err != nil {
			return err
		}

		result, err = s.RecomputeAndAppend(ctx, tx, customerID, ledgerdomain.TransactionTypeDebit, amount, description, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("balance adjusted",
		zap.String("customer_id", customerID.String()),
		zap.Float64("amount", amount),
		zap.Float64("balance_after", result.BalanceAfter),
	)
	return result, nil
}

// CreateAddonBill implements domain.Service. The charge lands as its
// own billing document rather than on an existing invoice, so it keeps
// its own tax split and due date.
func (s *Service) CreateAddonBill(ctx context.Context, req ledgerdomain.AddonBillRequest) (*ledgerdomain.AddonBill, *ledgerdomain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, nil, ledgerdomain.ErrInvalidAmount
	}
	if req.CGSTPercentage < 0 || req.SGSTPercentage < 0 || req.IGSTPercentage < 0 {
		return nil, nil, ledgerdomain.ErrInvalidAmount
	}

	var (
		bill *ledgerdomain.AddonBill
		txn  *ledgerdomain.Transaction
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cust, err := s.customerRepo.FindByIDForUpdate(ctx, tx, req.CustomerID)
		if err != nil {
			return err
		}
		if cust == nil {
			return customerdomain.ErrCustomerNotFound
		}

		number, err := s.GenerateInvoiceNumber(ctx, tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		taxes := tax.Calculate(req.Amount, req.CGSTPercentage, req.SGSTPercentage, req.IGSTPercentage)
		total := money.Round(taxes.Total)

		bill = &ledgerdomain.AddonBill{
			ID:            s.genID.Generate(),
			BillNumber:    number,
			CustomerID:    req.CustomerID,
			Description:   req.Description,
			BillAmount:    money.Round(req.Amount),
			CGSTTax:       money.Round(taxes.CGST),
			SGSTTax:       money.Round(taxes.SGST),
			IGSTTax:       money.Round(taxes.IGST),
			TotalAmount:   total,
			PaidAmount:    0,
			BalanceAmount: total,
			BillDate:      now,
			DueDate:       now.AddDate(0, 0, 7),
			Status:        ledgerdomain.InvoiceStatusSent,
		}
		if err := s.repo.InsertAddonBill(ctx, tx, bill); err != nil {
			return err
		}

		description := fmt.Sprintf("Addon bill: %s", req.Description)
		txn, err = s.RecomputeAndAppend(ctx, tx, req.CustomerID, ledgerdomain.TransactionTypeDebit, total, description, now)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Info("addon bill created",
		zap.String("customer_id", req.CustomerID.String()),
		zap.String("bill_number", bill.BillNumber),
		zap.Float64("total_amount", bill.TotalAmount),
	)
	return bill, txn, nil
}

// ListTransactions implements domain.Service.
func (s *Service) ListTransactions(ctx context.Context, customerID snowflake.ID, limit int) ([]ledgerdomain.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListTransactions(ctx, s.db, customerID, limit)
}
