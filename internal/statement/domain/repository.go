package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertUpload(ctx context.Context, db *gorm.DB, upload *BankStatementUpload) error
	FindUploadByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*BankStatementUpload, error)
	UpdateUploadStatus(ctx context.Context, db *gorm.DB, upload *BankStatementUpload) error

	InsertTransaction(ctx context.Context, db *gorm.DB, tx *BankStatementTransaction) error
	FindTransactionByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*BankStatementTransaction, error)
	UpdateTransactionAssignment(ctx context.Context, db *gorm.DB, tx *BankStatementTransaction) error
	ListTransactionsByUpload(ctx context.Context, db *gorm.DB, companyID, uploadID snowflake.ID) ([]*BankStatementTransaction, error)
}
