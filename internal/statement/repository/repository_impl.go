package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/statement/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUpload(ctx context.Context, db *gorm.DB, upload *domain.BankStatementUpload) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO bank_statement_uploads
		 (id, company_id, reference, file_name, format, status, total_rows, processed_rows, error_message, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		upload.ID,
		upload.CompanyID,
		upload.Reference,
		upload.FileName,
		upload.Format,
		upload.Status,
		upload.TotalRows,
		upload.ProcessedRows,
		upload.ErrorMessage,
		upload.CreatedAt,
		upload.UpdatedAt,
	).Error
}

func (r *repo) FindUploadByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.BankStatementUpload, error) {
	var upload domain.BankStatementUpload
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM bank_statement_uploads WHERE company_id = ? AND id = ?`,
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

func (r *repo) UpdateUploadStatus(ctx context.Context, db *gorm.DB, upload *domain.BankStatementUpload) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bank_statement_uploads
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

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.BankStatementTransaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) FindTransactionByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*domain.BankStatementTransaction, error) {
	var tx domain.BankStatementTransaction
	err := db.WithContext(ctx).
		Where("company_id = ? AND id = ?", companyID, id).
		Limit(1).
		Find(&tx).Error
	if err != nil {
		return nil, err
	}
	if tx.ID == 0 {
		return nil, nil
	}
	return &tx, nil
}

func (r *repo) UpdateTransactionAssignment(ctx context.Context, db *gorm.DB, tx *domain.BankStatementTransaction) error {
	return db.WithContext(ctx).Exec(
		`UPDATE bank_statement_transactions
		 SET category_id = ?, customer_id = ?, vendor_id = ?, notes = ?, updated_at = ?
		 WHERE company_id = ? AND id = ?`,
		tx.CategoryID,
		tx.CustomerID,
		tx.VendorID,
		tx.Notes,
		tx.UpdatedAt,
		tx.CompanyID,
		tx.ID,
	).Error
}

func (r *repo) ListTransactionsByUpload(ctx context.Context, db *gorm.DB, companyID, uploadID snowflake.ID) ([]*domain.BankStatementTransaction, error) {
	var txs []*domain.BankStatementTransaction
	err := db.WithContext(ctx).
		Where("company_id = ? AND upload_id = ?", companyID, uploadID).
		Order("transaction_date asc, id asc").
		Find(&txs).Error
	if err != nil {
		return nil, err
	}
	return txs, nil
}
