package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/ledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// lockForUpdate takes row locks on dialects that support them. SQLite
// serializes writers itself and rejects FOR UPDATE.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (r *repo) InsertInvoice(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) UpdateInvoiceAmounts(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	result := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"paid_amount":    invoice.PaidAmount,
			"balance_amount": invoice.BalanceAmount,
			"total_amount":   invoice.TotalAmount,
			"status":         invoice.Status,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func (r *repo) DeleteInvoice(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.Invoice{}, "id = ?", id).Error
}

func (r *repo) FindUnpaidForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := lockForUpdate(db.WithContext(ctx)).
		Where("customer_id = ? AND balance_amount > 0", customerID).
		Order("due_date asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) FindCreditForUpdate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := lockForUpdate(db.WithContext(ctx)).
		Where("customer_id = ? AND balance_amount < 0", customerID).
		Order("due_date asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) FindLatestByDueDate(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := lockForUpdate(db.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("due_date desc, id desc").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindLastCreated(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := lockForUpdate(db.WithContext(ctx)).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindCreatedBefore(ctx context.Context, db *gorm.DB, customerID, beforeID snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Where("customer_id = ? AND id < ?", customerID, beforeID).
		Order("created_at desc, id desc").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListInvoices(ctx context.Context, db *gorm.DB, customerID snowflake.ID) ([]domain.Invoice, error) {
	var invoices []domain.Invoice
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) InvoiceNumberExists(ctx context.Context, db *gorm.DB, number string) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := db.WithContext(ctx).
		Model(&domain.AddonBill{}).
		Where("bill_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	if err := db.WithContext(ctx).
		Model(&domain.ManualInvoice{}).
		Where("invoice_number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) TotalBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (float64, error) {
	var invoiceBalance float64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(balance_amount), 0)").
		Scan(&invoiceBalance).Error
	if err != nil {
		return 0, err
	}

	var addonBalance float64
	err = db.WithContext(ctx).
		Model(&domain.AddonBill{}).
		Where("customer_id = ?", customerID).
		Select("COALESCE(SUM(balance_amount), 0)").
		Scan(&addonBalance).Error
	if err != nil {
		return 0, err
	}

	return invoiceBalance + addonBalance, nil
}

func (r *repo) CreditBalance(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (float64, error) {
	var credit float64
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("customer_id = ? AND balance_amount < 0", customerID).
		Select("COALESCE(SUM(balance_amount), 0)").
		Scan(&credit).Error
	if err != nil {
		return 0, err
	}
	return credit, nil
}

func (r *repo) InsertAddonBill(ctx context.Context, db *gorm.DB, bill *domain.AddonBill) error {
	return db.WithContext(ctx).Create(bill).Error
}

func (r *repo) UpdateAddonBillAmounts(ctx context.Context, db *gorm.DB, bill *domain.AddonBill) error {
	result := db.WithContext(ctx).
		Model(&domain.AddonBill{}).
		Where("id = ?", bill.ID).
		Updates(map[string]any{
			"paid_amount":    bill.PaidAmount,
			"balance_amount": bill.BalanceAmount,
			"status":         bill.Status,
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentModification
	}
	return nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Create(payment).Error
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.Transaction) error {
	return db.WithContext(ctx).Create(txn).Error
}

func (r *repo) FindLatestTransaction(ctx context.Context, db *gorm.DB, customerID snowflake.ID) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("transaction_date desc, id desc").
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &txn, nil
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, customerID snowflake.ID, limit int) ([]domain.Transaction, error) {
	stmt := db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("transaction_date desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var txns []domain.Transaction
	if err := stmt.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
