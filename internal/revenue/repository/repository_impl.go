package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/revenue/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, upload *domain.RevenueUpload) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO revenue_uploads
		 (id, company_id, reference, file_name, status, total_rows, processed_rows, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID,
		upload.CompanyID,
		upload.Reference,
		upload.FileName,
		upload.Status,
		upload.TotalRows,
		upload.ProcessedRows,
		upload.ErrorMessage,
		upload.CreatedAt,
		upload.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.RevenueUpload, error) {
	var upload domain.RevenueUpload
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM revenue_uploads WHERE company_id = ? AND id = ?`,
		companyID,
		id,
	).Scan(&upload).Error
	if err != nil {
		return nil, err
	}
	if upload.ID == 0 {
		return nil, nil
	}
	return &upload, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, upload *domain.RevenueUpload) error {
	return db.WithContext(ctx).Exec(
		`UPDATE revenue_uploads
		 SET status = ?, total_rows = ?, processed_rows = ?, error_message = ?, processed_at = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		upload.Status,
		upload.TotalRows,
		upload.ProcessedRows,
		upload.ErrorMessage,
		upload.ProcessedAt,
		upload.UpdatedAt,
		upload.CompanyID,
		upload.ID,
	).Error
}
