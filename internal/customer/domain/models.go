// Package domain contains the customer model and its billing lifecycle
// fields. end_date is the single source of truth for when a customer is
// due; only the renewal engine moves it.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/netbill/internal/period"
	"gorm.io/datatypes"
)

// Status represents a customer's service state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusDeactive  Status = "DEACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

type Customer struct {
	ID           snowflake.ID       `gorm:"primaryKey" json:"id"`
	CustomerCode string             `gorm:"column:customer_code;uniqueIndex;not null" json:"customer_code"`
	FullName     string             `gorm:"not null" json:"full_name"`
	Email        string             `gorm:"" json:"email,omitempty"`
	BillingType  period.BillingType `gorm:"type:text;not null;default:'PREPAID'" json:"billing_type"`
	PlanID       snowflake.ID       `gorm:"not null;index" json:"plan_id"`
	PeriodMonths int                `gorm:"not null;default:1" json:"period_months"`
	StartDate    *time.Time         `gorm:"" json:"start_date,omitempty"`
	EndDate      *time.Time         `gorm:"index" json:"end_date,omitempty"`
	AutoRenew    bool               `gorm:"not null;default:false" json:"auto_renew"`
	Status       Status             `gorm:"type:text;not null;default:'ACTIVE'" json:"status"`
	Metadata     datatypes.JSONMap  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Customer) TableName() string { return "customers" }

// Patch is a typed partial update for administrative changes. Only
// non-nil fields are applied; billing lifecycle fields (end_date,
// status-on-renewal) are owned by the renewal engine and are not here.
type Patch struct {
	FullName     *string
	Email        *string
	PlanID       *snowflake.ID
	PeriodMonths *int
	AutoRenew    *bool
	Status       *Status
}

var ErrCustomerNotFound = errors.New("customer_not_found")
