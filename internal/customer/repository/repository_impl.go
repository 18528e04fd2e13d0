package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/customer/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Create(customer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	stmt := db.WithContext(ctx)
	// SQLite serializes writers itself and rejects FOR UPDATE.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var customer domain.Customer
	err := stmt.First(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Customer, error) {
	var customers []domain.Customer
	stmt := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("auto_renew = ?", true).
		Where("end_date IS NOT NULL AND end_date <= ?", now).
		Order("end_date asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	err := stmt.Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) FindExpiringWithin(ctx context.Context, db *gorm.DB, now time.Time, days int) ([]domain.Customer, error) {
	from := now
	to := now.AddDate(0, 0, days)

	var customers []domain.Customer
	err := db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", from, to).
		Order("end_date asc, id asc").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, id snowflake.ID, patch domain.Patch) error {
	updates := map[string]any{}
	if patch.FullName != nil {
		updates["full_name"] = *patch.FullName
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.PlanID != nil {
		updates["plan_id"] = *patch.PlanID
	}
	if patch.PeriodMonths != nil {
		updates["period_months"] = *patch.PeriodMonths
	}
	if patch.AutoRenew != nil {
		updates["auto_renew"] = *patch.AutoRenew
	}
	if patch.Status != nil {
		updates["status"] = *patch.Status
	}
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repo) AdvanceRenewal(ctx context.Context, db *gorm.DB, id snowflake.ID, endDate time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"end_date":   endDate,
			"status":     domain.StatusActive,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) SetEndDate(ctx context.Context, db *gorm.DB, id snowflake.ID, endDate *time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"end_date":   endDate,
			"updated_at": time.Now().UTC(),
		}).Error
}
