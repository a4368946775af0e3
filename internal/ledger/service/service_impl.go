package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	"github.com/smallbiznis/ledgerline/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	obsMetrics   *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("ledger.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		obsMetrics:   p.ObsMetrics,
	}
}

// AppendLine writes one ledger line whose running balance continues from the
// most recent prior line, or from the customer's opening balance when the
// ledger is empty. The read-latest plus insert runs in one DB transaction.
func (s *Service) AppendLine(ctx context.Context, companyID snowflake.ID, req domain.AppendLineRequest) (domain.CustomerStatementLine, error) {
	if companyID == 0 {
		return domain.CustomerStatementLine{}, domain.ErrInvalidCompany
	}
	if req.CustomerID == 0 {
		return domain.CustomerStatementLine{}, domain.ErrInvalidCustomer
	}
	switch req.LineType {
	case domain.LineTypeRevenue, domain.LineTypeBankTransaction:
	default:
		return domain.CustomerStatementLine{}, domain.ErrInvalidLineType
	}

	lineDate := req.LineDate
	if lineDate.IsZero() {
		lineDate = time.Now().UTC()
	}

	line := domain.CustomerStatementLine{
		ID:                  s.genID.Generate(),
		CompanyID:           companyID,
		CustomerID:          req.CustomerID,
		LineType:            req.LineType,
		LineDate:            lineDate,
		Description:         req.Description,
		RevenueMinor:        req.RevenueMinor,
		CostMinor:           req.CostMinor,
		DebitMinor:          req.DebitMinor,
		CreditMinor:         req.CreditMinor,
		NettingBalanceMinor: req.RevenueMinor - req.CostMinor,
		SourceType:          req.SourceType,
		SourceID:            req.SourceID,
		CreatedAt:           time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, companyID, req.CustomerID)
		if err != nil {
			return fmt.Errorf("load customer: %w", err)
		}
		if customer == nil {
			return domain.ErrCustomerMissing
		}

		current := customer.OpeningBalanceMinor
		latest, err := s.repo.FindLatest(ctx, tx, companyID, req.CustomerID)
		if err != nil {
			return fmt.Errorf("load latest line: %w", err)
		}
		if latest != nil {
			current = latest.RunningBalanceMinor
		}

		line.RunningBalanceMinor = current + line.Impact()
		return s.repo.Insert(ctx, tx, &line)
	})
	if err != nil {
		return domain.CustomerStatementLine{}, err
	}

	s.obsMetrics.RecordLedgerLine(ctx, string(line.LineType))
	s.log.Debug("ledger line appended",
		zap.String("customer_id", line.CustomerID.String()),
		zap.String("line_type", string(line.LineType)),
		zap.Int64("running_balance_minor", line.RunningBalanceMinor),
	)

	return line, nil
}

// StatementSummary recomputes every balance from the opening balance forward.
// Recomputed values overwrite the stored running balances in the response
// only; nothing is written back.
func (s *Service) StatementSummary(ctx context.Context, companyID, customerID snowflake.ID) (domain.StatementSummary, error) {
	if companyID == 0 {
		return domain.StatementSummary{}, domain.ErrInvalidCompany
	}
	if customerID == 0 {
		return domain.StatementSummary{}, domain.ErrInvalidCustomer
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, companyID, customerID)
	if err != nil {
		return domain.StatementSummary{}, err
	}
	if customer == nil {
		return domain.StatementSummary{}, domain.ErrCustomerMissing
	}

	lines, err := s.repo.ListByCustomer(ctx, s.db, companyID, customerID)
	if err != nil {
		return domain.StatementSummary{}, err
	}

	summary := domain.StatementSummary{
		CustomerID:          customerID,
		OpeningBalanceMinor: customer.OpeningBalanceMinor,
		ClosingBalanceMinor: customer.OpeningBalanceMinor,
	}

	balance := customer.OpeningBalanceMinor
	var lastStored int64
	for _, item := range lines {
		if item == nil {
			continue
		}
		line := *item
		lastStored = line.RunningBalanceMinor

		balance += line.Impact()
		line.RunningBalanceMinor = balance

		summary.TotalRevenueMinor += line.RevenueMinor
		summary.TotalCostMinor += line.CostMinor
		summary.TotalDebitMinor += line.DebitMinor
		summary.TotalCreditMinor += line.CreditMinor
		summary.Lines = append(summary.Lines, line)
	}

	summary.ClosingBalanceMinor = balance
	if len(summary.Lines) > 0 && lastStored != balance {
		summary.BalanceDrift = true
	}

	return summary, nil
}
