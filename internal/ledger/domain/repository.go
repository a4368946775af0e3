package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, line *CustomerStatementLine) error
	// FindLatest returns the most recent line by (line_date desc, id desc),
	// nil when none.
	FindLatest(ctx context.Context, db *gorm.DB, companyID, customerID snowflake.ID) (*CustomerStatementLine, error)
	// ListByCustomer returns all lines sorted by (line_date, id) ascending.
	ListByCustomer(ctx context.Context, db *gorm.DB, companyID, customerID snowflake.ID) ([]*CustomerStatementLine, error)
}
