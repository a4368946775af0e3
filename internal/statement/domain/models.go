package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusProcessed UploadStatus = "processed"
	UploadStatusFailed    UploadStatus = "failed"
)

// Terminal reports whether the upload already ran to completion or failure.
// Terminal uploads are never re-processed.
func (s UploadStatus) Terminal() bool {
	return s == UploadStatusProcessed || s == UploadStatusFailed
}

type BankStatementUpload struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index" json:"company_id"`
	Reference     string       `gorm:"not null;uniqueIndex" json:"reference"`
	FileName      string       `json:"file_name"`
	Format        string       `json:"format"`
	Status        UploadStatus `gorm:"not null;default:pending" json:"status"`
	TotalRows     int          `gorm:"not null;default:0" json:"total_rows"`
	ProcessedRows int          `gorm:"not null;default:0" json:"processed_rows"`
	ErrorMessage  string       `json:"error_message,omitempty"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BankStatementUpload) TableName() string { return "bank_statement_uploads" }

// BankStatementTransaction is one normalized statement row. Money fields are
// minor currency units; StatementBalanceMinor is whatever the bank reported,
// stored as-is.
type BankStatementTransaction struct {
	ID                    snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID             snowflake.ID      `gorm:"not null;index" json:"company_id"`
	UploadID              snowflake.ID      `gorm:"not null;index" json:"upload_id"`
	TransactionDate       time.Time         `gorm:"not null" json:"transaction_date"`
	Description           string            `json:"description"`
	DebitMinor            int64             `gorm:"column:debit_minor;not null;default:0" json:"debit_minor"`
	CreditMinor           int64             `gorm:"column:credit_minor;not null;default:0" json:"credit_minor"`
	StatementBalanceMinor int64             `gorm:"column:statement_balance_minor;not null;default:0" json:"statement_balance_minor"`
	CategoryID            *snowflake.ID     `gorm:"column:category_id" json:"category_id,omitempty"`
	CustomerID            *snowflake.ID     `gorm:"column:customer_id" json:"customer_id,omitempty"`
	VendorID              *snowflake.ID     `gorm:"column:vendor_id" json:"vendor_id,omitempty"`
	SuggestedCategoryID   *snowflake.ID     `gorm:"column:suggested_category_id" json:"suggested_category_id,omitempty"`
	SuggestedCustomerID   *snowflake.ID     `gorm:"column:suggested_customer_id" json:"suggested_customer_id,omitempty"`
	SuggestedVendorID     *snowflake.ID     `gorm:"column:suggested_vendor_id" json:"suggested_vendor_id,omitempty"`
	Notes                 string            `json:"notes,omitempty"`
	Reconciled            bool              `gorm:"not null;default:false" json:"reconciled"`
	Raw                   datatypes.JSONMap `gorm:"column:raw" json:"raw,omitempty"`
	CreatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt             time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (BankStatementTransaction) TableName() string { return "bank_statement_transactions" }

type CreateUploadRequest struct {
	FileName string
	Format   string
}

type CategorizeRequest struct {
	CategoryID *snowflake.ID
	CustomerID *snowflake.ID
	VendorID   *snowflake.ID
	Notes      *string
}

type Service interface {
	CreateUpload(ctx context.Context, req CreateUploadRequest) (BankStatementUpload, error)
	GetUpload(ctx context.Context, id snowflake.ID) (BankStatementUpload, error)
	// ProcessUpload normalizes and stores rows one at a time. On a row
	// failure the rows already inserted are kept, the upload is marked
	// failed with the error text, and the error is returned.
	ProcessUpload(ctx context.Context, uploadID snowflake.ID, rows []map[string]any) (BankStatementUpload, error)
	ListTransactions(ctx context.Context, uploadID snowflake.ID) ([]BankStatementTransaction, error)
	Categorize(ctx context.Context, txID snowflake.ID, req CategorizeRequest) (BankStatementTransaction, error)
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrUploadProcessed = errors.New("upload_already_processed")
	ErrNoRows          = errors.New("no_rows")
	ErrTooManyRows     = errors.New("too_many_rows")
)
