package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"github.com/smallbiznis/ledgerline/internal/revenue/domain"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/statement/normalize"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const uploadKindRevenue = "revenue"

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	IngestConfig *config.IngestConfigHolder
	Repo         domain.Repository
	Customers    customerdomain.Service
	Ledger       ledgerdomain.Service
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	ingestConfig *config.IngestConfigHolder
	repo         domain.Repository
	customers    customerdomain.Service
	ledger       ledgerdomain.Service
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("revenue.service"),
		genID:        p.GenID,
		ingestConfig: p.IngestConfig,
		repo:         p.Repo,
		customers:    p.Customers,
		ledger:       p.Ledger,
		obsMetrics:   p.ObsMetrics,
	}
}

func (s *Service) CreateUpload(ctx context.Context, req domain.CreateUploadRequest) (domain.RevenueUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.RevenueUpload{}, domain.ErrInvalidCompany
	}

	now := time.Now().UTC()
	upload := domain.RevenueUpload{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		Reference: ulid.Make().String(),
		FileName:  req.FileName,
		Status:    statementdomain.UploadStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, &upload); err != nil {
		return domain.RevenueUpload{}, err
	}
	return upload, nil
}

func (s *Service) GetUpload(ctx context.Context, id snowflake.ID) (domain.RevenueUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.RevenueUpload{}, domain.ErrInvalidCompany
	}
	if id == 0 {
		return domain.RevenueUpload{}, domain.ErrInvalidID
	}

	upload, err := s.repo.FindByID(ctx, s.db, companyID, id)
	if err != nil {
		return domain.RevenueUpload{}, err
	}
	if upload == nil {
		return domain.RevenueUpload{}, domain.ErrNotFound
	}
	return *upload, nil
}

// ProcessUpload folds each revenue row into the customer ledger. The row's
// netting balance is revenue minus cost and the running balance continues
// from the customer's prior line, same as the bank transaction path.
func (s *Service) ProcessUpload(ctx context.Context, uploadID snowflake.ID, rows []map[string]any) (domain.RevenueUpload, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok || companyID == 0 {
		return domain.RevenueUpload{}, domain.ErrInvalidCompany
	}

	upload, err := s.repo.FindByID(ctx, s.db, companyID, uploadID)
	if err != nil {
		return domain.RevenueUpload{}, err
	}
	if upload == nil {
		return domain.RevenueUpload{}, domain.ErrNotFound
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
	cols, err := normalize.ResolveColumns(rows[0], normalize.RevenueFields, opts)
	if err != nil {
		return *upload, err
	}

	upload.TotalRows = len(rows)
	processed := 0
	for i, row := range rows {
		rev, err := normalize.NormalizeRevenue(row, cols, opts)
		if err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: %w", i+1, err))
		}

		customer, err := s.customers.EnsureByName(ctx, companyID, rev.CustomerName)
		if err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: customer %q: %w", i+1, rev.CustomerName, err))
		}

		_, err = s.ledger.AppendLine(ctx, companyID, ledgerdomain.AppendLineRequest{
			CustomerID:   customer.ID,
			LineType:     ledgerdomain.LineTypeRevenue,
			LineDate:     rev.Date,
			Description:  rev.Description,
			RevenueMinor: rev.RevenueMinor,
			CostMinor:    rev.CostMinor,
			SourceType:   "revenue_upload",
			SourceID:     upload.ID,
		})
		if err != nil {
			return s.markFailed(ctx, upload, processed, fmt.Errorf("row %d: append line: %w", i+1, err))
		}
		processed++
	}

	now := time.Now().UTC()
	upload.Status = statementdomain.UploadStatusProcessed
	upload.ProcessedRows = processed
	upload.ErrorMessage = ""
	upload.ProcessedAt = &now
	upload.UpdatedAt = now
	if err := s.repo.UpdateStatus(ctx, s.db, upload); err != nil {
		return *upload, err
	}

	s.obsMetrics.RecordRowsIngested(ctx, uploadKindRevenue, int64(processed))
	s.log.Info("revenue upload processed",
		zap.String("upload_id", upload.ID.String()),
		zap.Int("rows", processed),
	)

	return *upload, nil
}

func (s *Service) markFailed(ctx context.Context, upload *domain.RevenueUpload, processed int, cause error) (domain.RevenueUpload, error) {
	upload.Status = statementdomain.UploadStatusFailed
	upload.ProcessedRows = processed
	upload.ErrorMessage = cause.Error()
	upload.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, s.db, upload); err != nil {
		s.log.Error("mark upload failed", zap.Error(err), zap.String("upload_id", upload.ID.String()))
	}

	s.obsMetrics.RecordUploadFailed(ctx, uploadKindRevenue, "row_error")
	s.log.Warn("revenue upload failed",
		zap.String("upload_id", upload.ID.String()),
		zap.Int("rows_kept", processed),
		zap.Error(cause),
	)

	return *upload, cause
}
