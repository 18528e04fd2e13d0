// Package domain contains the service-plan model.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Plan is a service plan a customer subscribes to. Price is per
// period-unit (one month); tax percentages apply to the billed amount.
// A plan referenced by an invoice is treated as immutable: edits affect
// future invoices only.
type Plan struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	Name           string       `gorm:"not null" json:"name"`
	Price          float64      `gorm:"not null" json:"price"`
	CGSTPercentage float64      `gorm:"column:cgst_percentage;not null;default:0" json:"cgst_percentage"`
	SGSTPercentage float64      `gorm:"column:sgst_percentage;not null;default:0" json:"sgst_percentage"`
	IGSTPercentage float64      `gorm:"column:igst_percentage;not null;default:0" json:"igst_percentage"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "plans" }

var ErrPlanNotFound = errors.New("plan_not_found")
