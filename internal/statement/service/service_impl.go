package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
	"github.com/smallbiznis/ledgerline/internal/config"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/statement/normalize"
	suggestdomain "github.com/smallbiznis/ledgerline/internal/suggest/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const uploadKindBank = "bank_statement"

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	IngestConfig *config.IngestConfigHolder
	Repo         domain.Repository
	Suggester    suggestdomain.Service
	Ledger       ledgerdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	ingestConfig *config.IngestConfigHolder
	repo         domain.Repository
	suggester    suggestdomain.Service
	ledger       ledgerdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("statement.service"),
		genID:        p.GenID,
		ingestConfig: p.IngestConfig,
		repo:         p.Repo,
		suggester:    p.Suggester,
		ledger:       p.Ledger,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) CreateUpload(ctx context.Context, req domain.CreateUploadRequest) (domain.BankStatementUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.BankStatementUpload{}, domain.ErrInvalidCompany
	}

	now := time.Now().UTC()
	upload := domain.BankStatementUpload{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Reference: ulid.Make().String(),
		FileName:  strings.TrimSpace(req.FileName),
		Format:    strings.TrimSpace(req.Format),
		Status:    domain.UploadStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if upload.Format == "" {
		upload.Format = "csv"
	}

	if err := s.repo.InsertUpload(ctx, s.db, &upload); err != nil {
		return domain.BankStatementUpload{}, err
	}
	return upload, nil
}

func (s *Service) GetUpload(ctx context.Context, id snowflake.ID) (domain.BankStatementUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.BankStatementUpload{}, domain.ErrInvalidCompany
	}
	if id == 0 {
		return domain.BankStatementUpload{}, domain.ErrInvalidID
	}

	upload, err := s.repo.FindUploadByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.BankStatementUpload{}, err
	}
	if upload == nil {
		return domain.BankStatementUpload{}, domain.ErrNotFound
	}
	return *upload, nil
}

// ProcessUpload normalizes rows one at a time. Column binding is resolved once
// from the first row; a binding failure leaves the upload pending so a
// corrected file can be re-submitted. A per-row failure marks the upload
// failed and keeps the rows inserted before it.
func (s *Service) ProcessUpload(ctx context.Context, uploadID snowflake.ID, rows []map[string]any) (domain.BankStatementUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.BankStatementUpload{}, domain.ErrInvalidCompany
	}

	upload, err := s.repo.FindUploadByID(ctx, s.db, companyID, uploadID)
	if err != nil {
		return domain.BankStatementUpload{}, err
	}
	if upload == nil {
		return domain.BankStatementUpload{}, domain.ErrNotFound
	}
	if upload.Status.Terminal() {
		return *upload, domain.ErrUploadProcessed
	}

	cfg := s.ingestConfig.Current()
	if len(rows) == 0 {
		return *upload, domain.ErrNoRows
	}
	if cfg.MaxRows > 0 && len(rows) > cfg.MaxRows {
		return *upload, domain.ErrTooManyRows
	}

	opts := normalize.FromIngestConfig(cfg)
	cols, err := normalize.ResolveColumns(rows[0], normalize.BankFields, opts)
	if err != nil {
		return *upload, err
	}

	upload.TotalRows = len(rows)
	processed := 0
	for i, row := range rows {
		norm, err := normalize.Normalize(row, cols, opts)
		if err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: %w", i+1, err))
		}

		suggestions, err := s.suggester.Suggest(ctx, companyID, norm.Description, norm.DebitMinor+norm.CreditMinor)
		if err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: suggest: %w", i+1, err))
		}

		now := time.Now().UTC()
		tx := domain.BankStatementTransaction{
			ID:                    s.genID.Generate(),
			CompanyID:             companyID,
			UploadID:              upload.ID,
			TransactionDate:       norm.Date,
			Description:           norm.Description,
			DebitMinor:            norm.DebitMinor,
			CreditMinor:           norm.CreditMinor,
			StatementBalanceMinor: norm.BalanceMinor,
			Raw:                   datatypes.JSONMap(row),
			CreatedAt:             now,
			UpdatedAt:             now,
		}
		if top := suggestions.TopCategory(); top != nil {
			tx.SuggestedCategoryID = &top.ID
		}
		if top := suggestions.TopCustomer(); top != nil {
			tx.SuggestedCustomerID = &top.ID
		}
		if top := suggestions.TopVendor(); top != nil {
			tx.SuggestedVendorID = &top.ID
		}

		if err := s.repo.InsertTransaction(ctx, s.db, &tx); err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: insert: %w", i+1, err))
		}
		processed++
	}

	now := time.Now().UTC()
	upload.Status = domain.UploadStatusProcessed
	upload.ProcessedRows = processed
	upload.ErrorMessage = ""
	upload.ProcessedAt = &now
	upload.UpdatedAt = now
	if err := s.repo.UpdateUploadStatus(ctx, s.db, upload); err != nil {
		return *upload, err
	}

	s.obsMetrics.RecordRowsIngested(ctx, uploadKindBank, int64(processed))
	s.log.Info("bank statement upload processed",
		zap.String("upload_id", upload.ID.String()),
		zap.Int("rows", processed),
	)

	return *upload, nil
}

func (s *Service) markFailed(ctx context.Context, upload *domain.BankStatementUpload, processed int, cause error) (domain.BankStatementUpload, error) {
	upload.Status = domain.UploadStatusFailed
	upload.ProcessedRows = processed
	upload.ErrorMessage = cause.Error()
	upload.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateUploadStatus(ctx, s.db, upload); err != nil {
		s.log.Error("mark upload failed", zap.Error(err), zap.String("upload_id", upload.ID.String()))
	}

	s.obsMetrics.RecordUploadFailed(ctx, uploadKindBank, "row_error")
	s.log.Warn("bank statement upload failed",
		zap.String("upload_id", upload.ID.String()),
		zap.Int("rows_kept", processed),
		zap.Error(cause),
	)

	return *upload, cause
}

func (s *Service) ListTransactions(ctx context.Context, uploadID snowflake.ID) ([]domain.BankStatementTransaction, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	if uploadID == 0 {
		return nil, domain.ErrInvalidID
	}

	upload, err := s.repo.FindUploadByID(ctx, s.db, companyID, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, domain.ErrNotFound
	}

	items, err := s.repo.ListTransactionsByUpload(ctx, s.db, companyID, uploadID)
	if err != nil {
		return nil, err
	}

	txs := make([]domain.BankStatementTransaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		txs = append(txs, *item)
	}
	return txs, nil
}

// Categorize stamps the assignment fields onto the transaction and, when a
// customer is assigned, appends a ledger line with impact debit minus credit.
func (s *Service) Categorize(ctx context.Context, txID snowflake.ID, req domain.CategorizeRequest) (domain.BankStatementTransaction, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.BankStatementTransaction{}, domain.ErrInvalidCompany
	}
	if txID == 0 {
		return domain.BankStatementTransaction{}, domain.ErrInvalidID
	}

	tx, err := s.repo.FindTransactionByID(ctx, s.db, companyID, txID)
	if err != nil {
		return domain.BankStatementTransaction{}, err
	}
	if tx == nil {
		return domain.BankStatementTransaction{}, domain.ErrNotFound
	}

	tx.CategoryID = req.CategoryID
	tx.CustomerID = req.CustomerID
	tx.VendorID = req.VendorID
	if req.Notes != nil {
		tx.Notes = *req.Notes
	}
	tx.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdateTransactionAssignment(ctx, s.db, tx); err != nil {
		return domain.BankStatementTransaction{}, err
	}

	if tx.CustomerID != nil && *tx.CustomerID != 0 {
		_, err := s.ledger.AppendLine(ctx, companyID, ledgerdomain.AppendLineRequest{
			CustomerID:  *tx.CustomerID,
			LineType:    ledgerdomain.LineTypeBankTransaction,
			LineDate:    tx.TransactionDate,
			Description: tx.Description,
			DebitMinor:  tx.DebitMinor,
			CreditMinor: tx.CreditMinor,
			SourceType:  "bank_statement_transaction",
			SourceID:    tx.ID,
		})
		if err != nil {
			return domain.BankStatementTransaction{}, fmt.Errorf("append ledger line: %w", err)
		}
	}

	return *tx, nil
}
