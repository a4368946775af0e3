package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ExpenseCategory is one entry in the company's expense chart. The name doubles
// as the match target for categorization suggestions.
type ExpenseCategory struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index" json:"company_id"`
	Name      string       `gorm:"not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (ExpenseCategory) TableName() string { return "expense_categories" }

type CreateCategoryRequest struct {
	Name string
}

type Service interface {
	Create(context.Context, CreateCategoryRequest) (ExpenseCategory, error)
	List(context.Context) ([]ExpenseCategory, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, category *ExpenseCategory) error
	List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]*ExpenseCategory, error)
}

var (
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidName    = errors.New("invalid_name")
)
