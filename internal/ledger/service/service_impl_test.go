package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerline/internal/customer/repository"
	"github.com/smallbiznis/ledgerline/internal/ledger/domain"
	"github.com/smallbiznis/ledgerline/internal/ledger/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupLedger(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&domain.CustomerStatementLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         repository.Provide(),
		CustomerRepo: customerrepository.Provide(),
	})

	return svc, db, node
}

func newLedgerCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, openingMinor int64) snowflake.ID {
	t.Helper()
	customer := customerdomain.Customer{
		ID:                  node.Generate(),
		CompanyID:           companyID,
		Name:                "Ledger Customer",
		OpeningBalanceMinor: openingMinor,
		PaymentTermsDays:    customerdomain.DefaultPaymentTermsDays,
	}
	require.NoError(t, db.Create(&customer).Error)
	return customer.ID
}

func day(n int) time.Time {
	return time.Date(2024, time.March, n, 0, 0, 0, 0, time.UTC)
}

func TestAppendLineWalksBalance(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 0)
	ctx := context.Background()

	first, err := svc.AppendLine(ctx, companyID, domain.AppendLineRequest{
		CustomerID: customerID,
		LineType:   domain.LineTypeBankTransaction,
		LineDate:   day(1),
		DebitMinor: 10000,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 10000, first.RunningBalanceMinor)

	second, err := svc.AppendLine(ctx, companyID, domain.AppendLineRequest{
		CustomerID:  customerID,
		LineType:    domain.LineTypeBankTransaction,
		LineDate:    day(2),
		CreditMinor: 3000,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 7000, second.RunningBalanceMinor)
}

func TestAppendLineSeedsFromOpeningBalance(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 5000)

	line, err := svc.AppendLine(context.Background(), companyID, domain.AppendLineRequest{
		CustomerID:   customerID,
		LineType:     domain.LineTypeRevenue,
		LineDate:     day(1),
		RevenueMinor: 2500,
		CostMinor:    500,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2000, line.NettingBalanceMinor)
	assert.EqualValues(t, 7000, line.RunningBalanceMinor)
}

func TestAppendLineOutOfOrderSeedsFromNewestLine(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 0)
	ctx := context.Background()

	_, err := svc.AppendLine(ctx, companyID, domain.AppendLineRequest{
		CustomerID: customerID,
		LineType:   domain.LineTypeBankTransaction,
		LineDate:   day(10),
		DebitMinor: 10000,
	})
	require.NoError(t, err)

	// older line date, appended later: continues from the newest prior line
	backdated, err := svc.AppendLine(ctx, companyID, domain.AppendLineRequest{
		CustomerID:  customerID,
		LineType:    domain.LineTypeBankTransaction,
		LineDate:    day(2),
		CreditMinor: 4000,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 6000, backdated.RunningBalanceMinor)
}

func TestAppendLineValidation(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 0)
	ctx := context.Background()

	_, err := svc.AppendLine(ctx, 0, domain.AppendLineRequest{CustomerID: customerID, LineType: domain.LineTypeRevenue})
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)

	_, err = svc.AppendLine(ctx, companyID, domain.AppendLineRequest{LineType: domain.LineTypeRevenue})
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)

	_, err = svc.AppendLine(ctx, companyID, domain.AppendLineRequest{CustomerID: customerID, LineType: "payroll"})
	assert.ErrorIs(t, err, domain.ErrInvalidLineType)

	_, err = svc.AppendLine(ctx, companyID, domain.AppendLineRequest{CustomerID: node.Generate(), LineType: domain.LineTypeRevenue})
	assert.ErrorIs(t, err, domain.ErrCustomerMissing)
}

func TestStatementSummaryRecomputesClosingBalance(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 1500)
	ctx := context.Background()

	requests := []domain.AppendLineRequest{
		{CustomerID: customerID, LineType: domain.LineTypeRevenue, LineDate: day(1), RevenueMinor: 8000, CostMinor: 3000},
		{CustomerID: customerID, LineType: domain.LineTypeBankTransaction, LineDate: day(3), DebitMinor: 2000},
		{CustomerID: customerID, LineType: domain.LineTypeBankTransaction, LineDate: day(5), CreditMinor: 4500},
	}
	for _, req := range requests {
		_, err := svc.AppendLine(ctx, companyID, req)
		require.NoError(t, err)
	}

	summary, err := svc.StatementSummary(ctx, companyID, customerID)
	require.NoError(t, err)

	var impact int64
	for _, req := range requests {
		impact += req.RevenueMinor - req.CostMinor + req.DebitMinor - req.CreditMinor
	}

	assert.EqualValues(t, 1500, summary.OpeningBalanceMinor)
	assert.Equal(t, summary.OpeningBalanceMinor+impact, summary.ClosingBalanceMinor)
	assert.EqualValues(t, 8000, summary.TotalRevenueMinor)
	assert.EqualValues(t, 3000, summary.TotalCostMinor)
	assert.EqualValues(t, 2000, summary.TotalDebitMinor)
	assert.EqualValues(t, 4500, summary.TotalCreditMinor)
	assert.False(t, summary.BalanceDrift)
	require.Len(t, summary.Lines, 3)
	assert.Equal(t, summary.ClosingBalanceMinor, summary.Lines[2].RunningBalanceMinor)
}

func TestStatementSummaryFlagsDrift(t *testing.T) {
	svc, db, node := setupLedger(t)
	companyID := node.Generate()
	customerID := newLedgerCustomer(t, db, node, companyID, 0)
	ctx := context.Background()

	_, err := svc.AppendLine(ctx, companyID, domain.AppendLineRequest{
		CustomerID: customerID,
		LineType:   domain.LineTypeBankTransaction,
		LineDate:   day(1),
		DebitMinor: 1000,
	})
	require.NoError(t, err)

	// corrupt the stored running balance; the recompute must disagree
	require.NoError(t, db.Exec(
		`UPDATE customer_statement_lines SET running_balance_minor = 99999 WHERE customer_id = ?`,
		customerID,
	).Error)

	summary, err := svc.StatementSummary(ctx, companyID, customerID)
	require.NoError(t, err)
	assert.True(t, summary.BalanceDrift)
	assert.EqualValues(t, 1000, summary.ClosingBalanceMinor)
	assert.EqualValues(t, 1000, summary.Lines[0].RunningBalanceMinor)
}

func TestStatementSummaryUnknownCustomer(t *testing.T) {
	svc, _, node := setupLedger(t)

	_, err := svc.StatementSummary(context.Background(), node.Generate(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrCustomerMissing)
}
