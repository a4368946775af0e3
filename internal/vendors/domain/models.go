package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Vendor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name      string       `gorm:"not null" json:"name"`
	Email     string       `gorm:"column:email" json:"email,omitempty"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Vendor) TableName() string { return "vendors" }

type CreateVendorRequest struct {
	Name  string
	Email string
}

type Service interface {
	Create(context.Context, CreateVendorRequest) (Vendor, error)
	List(context.Context) ([]Vendor, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, vendor *Vendor) error
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]*Vendor, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
)
