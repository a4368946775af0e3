package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/category/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, category *domain.ExpenseCategory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO expense_categories (id, company_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		category.ID,
		category.CompanyID,
		category.Name,
		category.CreatedAt,
		category.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]*domain.ExpenseCategory, error) {
	var categories []*domain.ExpenseCategory
	err := db.WithContext(ctx).
		Model(&domain.ExpenseCategory{}).
		Where("company_id = ?", companyID).
		Order("name asc").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}
