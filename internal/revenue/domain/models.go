package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"gorm.io/gorm"
)

// RevenueUpload shares the bank upload lifecycle: pending until processed,
// terminal on processed or failed.
type RevenueUpload struct {
	ID            snowflake.ID                 `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID                 `gorm:"not null;index" json:"company_id"`
	Reference     string                       `gorm:"not null;uniqueIndex" json:"reference"`
	FileName      string                       `json:"file_name"`
	Status        statementdomain.UploadStatus `gorm:"not null;default:pending" json:"status"`
	TotalRows     int                          `gorm:"not null;default:0" json:"total_rows"`
	ProcessedRows int                          `gorm:"not null;default:0" json:"processed_rows"`
	ErrorMessage  string                       `json:"error_message,omitempty"`
	ProcessedAt   *time.Time                   `json:"processed_at,omitempty"`
	CreatedAt     time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time                    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RevenueUpload) TableName() string { return "revenue_uploads" }

type CreateUploadRequest struct {
	FileName string
}

type Service interface {
	CreateUpload(ctx context.Context, req CreateUploadRequest) (RevenueUpload, error)
	GetUpload(ctx context.Context, id snowflake.ID) (RevenueUpload, error)
	// ProcessUpload resolves or silently creates each row's customer by
	// exact name, then appends a revenue ledger line for it. Row failures
	// follow the bank upload contract: prior rows kept, upload failed.
	ProcessUpload(ctx context.Context, uploadID snowflake.ID, rows []map[string]any) (RevenueUpload, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, upload *RevenueUpload) error
	FindByID(ctx context.Context, db *gorm.DB, companyID, id snowflake.ID) (*RevenueUpload, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, upload *RevenueUpload) error
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
	ErrUploadProcessed = errors.New("upload_already_processed")
	ErrNoRows          = errors.New("no_rows")
	ErrTooManyRows     = errors.New("too_many_rows")
)
