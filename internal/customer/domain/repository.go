package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// FindByIDForUpdate locks the customer row for the duration of the
	// caller's transaction, serializing ledger mutations per customer.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Customer, error)
	// FindDue returns ACTIVE auto-renew customers whose end_date is on or
	// before now, oldest expiry first.
	FindDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Customer, error)
	// FindExpiringWithin returns active customers expiring in [now, now+days].
	FindExpiringWithin(ctx context.Context, db *gorm.DB, now time.Time, days int) ([]Customer, error)
	Update(ctx context.Context, db *gorm.DB, id snowflake.ID, patch Patch) error
	// AdvanceRenewal moves end_date forward and reactivates the customer.
	AdvanceRenewal(ctx context.Context, db *gorm.DB, id snowflake.ID, endDate time.Time) error
	// SetEndDate restores end_date without touching status (revert path).
	SetEndDate(ctx context.Context, db *gorm.DB, id snowflake.ID, endDate *time.Time) error
}
