package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/vendors/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, vendor *domain.Vendor) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO vendors (id, company_id, name, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		vendor.ID,
		vendor.CompanyID,
		vendor.Name,
		vendor.Email,
		vendor.CreatedAt,
		vendor.UpdatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, companyID snowflake.ID) ([]*domain.Vendor, error) {
	var vendors []*domain.Vendor
	err := db.WithContext(ctx).
		Model(&domain.Vendor{}).
		Where("company_id = ?", companyID).
		Order("name asc").
		Find(&vendors).Error
	if err != nil {
		return nil, err
	}
	return vendors, nil
}
