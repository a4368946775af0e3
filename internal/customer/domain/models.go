package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultPaymentTermsDays is applied when a customer is created without
// explicit terms, including customers auto-created by revenue ingestion.
const DefaultPaymentTermsDays = 30

type Customer struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"column:email" json:"email,omitempty"`
	// OpeningBalanceMinor seeds the customer ledger, in minor currency units.
	// Set once at creation and never changed afterwards.
	OpeningBalanceMinor int64     `gorm:"column:opening_balance_minor;not null;default:0" json:"opening_balance_minor"`
	PaymentTermsDays    int       `gorm:"column:payment_terms_days;not null;default:30" json:"payment_terms_days"`
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
