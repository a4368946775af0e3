package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerline/internal/customer/repository"
	customerservice "github.com/smallbiznis/ledgerline/internal/customer/service"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerline/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerline/internal/ledger/service"
	"github.com/smallbiznis/ledgerline/internal/revenue/domain"
	"github.com/smallbiznis/ledgerline/internal/revenue/repository"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       domain.Service
	ledger    ledgerdomain.Service
	db        *gorm.DB
	node      *snowflake.Node
	companyID snowflake.ID
	ctx       context.Context
}

func setupRevenue(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&domain.RevenueUpload{},
		&ledgerdomain.CustomerStatementLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	customers := customerservice.New(customerservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  customerrepository.Provide(),
	})
	ledger := ledgerservice.New(ledgerservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Repo:         ledgerrepository.Provide(),
		CustomerRepo: customerrepository.Provide(),
	})
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		IngestConfig: config.NewStaticIngestConfigHolder(config.DefaultIngestConfig()),
		Repo:         repository.Provide(),
		Customers:    customers,
		Ledger:       ledger,
	})

	companyID := node.Generate()
	return fixture{
		svc:       svc,
		ledger:    ledger,
		db:        db,
		node:      node,
		companyID: companyID,
		ctx:       companyctx.WithCompanyID(context.Background(), int64(companyID)),
	}
}

func TestProcessUploadCreatesCustomersAndFoldsLedger(t *testing.T) {
	f := setupRevenue(t)

	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{FileName: "q1.csv"})
	require.NoError(t, err)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Customer": "Globex", "Revenue": "80.00", "Cost": "30.00"},
		{"Date": "2024-03-05", "Customer": "Globex", "Revenue": "20.00", "Cost": "5.00"},
		{"Date": "2024-03-07", "Customer": "Initech", "Revenue": "40.00", "Cost": "0.00"},
	}

	got, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, statementdomain.UploadStatusProcessed, got.Status)
	assert.Equal(t, 3, got.ProcessedRows)
	require.NotNil(t, got.ProcessedAt)

	var globex customerdomain.Customer
	require.NoError(t, f.db.Where("company_id = ? AND name = ?", f.companyID, "Globex").First(&globex).Error)
	assert.Equal(t, customerdomain.DefaultPaymentTermsDays, globex.PaymentTermsDays)
	assert.Zero(t, globex.OpeningBalanceMinor)

	// two lines for Globex, running balance folded across rows
	summary, err := f.ledger.StatementSummary(f.ctx, f.companyID, globex.ID)
	require.NoError(t, err)
	require.Len(t, summary.Lines, 2)
	assert.EqualValues(t, 5000, summary.Lines[0].NettingBalanceMinor)
	assert.EqualValues(t, 5000, summary.Lines[0].RunningBalanceMinor)
	assert.EqualValues(t, 1500, summary.Lines[1].NettingBalanceMinor)
	assert.EqualValues(t, 6500, summary.Lines[1].RunningBalanceMinor)
	assert.EqualValues(t, 6500, summary.ClosingBalanceMinor)
	assert.False(t, summary.BalanceDrift)

	assert.Equal(t, ledgerdomain.LineTypeRevenue, summary.Lines[0].LineType)
	assert.Equal(t, upload.ID, summary.Lines[0].SourceID)
}

func TestProcessUploadReusesExistingCustomer(t *testing.T) {
	f := setupRevenue(t)

	existing := customerdomain.Customer{
		ID:                  f.node.Generate(),
		CompanyID:           f.companyID,
		Name:                "Globex",
		OpeningBalanceMinor: 10000,
		PaymentTermsDays:    45,
	}
	require.NoError(t, f.db.Create(&existing).Error)

	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{})
	require.NoError(t, err)

	_, err = f.svc.ProcessUpload(f.ctx, upload.ID, []map[string]any{
		{"Date": "2024-03-01", "Customer": "Globex", "Revenue": "10.00", "Cost": "0.00"},
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, f.db.Model(&customerdomain.Customer{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// opening balance seeds the fold
	summary, err := f.ledger.StatementSummary(f.ctx, f.companyID, existing.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 11000, summary.ClosingBalanceMinor)
}

func TestProcessUploadRowFailureKeepsPriorLines(t *testing.T) {
	f := setupRevenue(t)

	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{})
	require.NoError(t, err)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Customer": "Globex", "Revenue": "10.00", "Cost": "0.00"},
		{"Date": "2024-03-02", "Customer": "", "Revenue": "10.00", "Cost": "0.00"},
	}

	got, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.Error(t, err)
	assert.Equal(t, statementdomain.UploadStatusFailed, got.Status)
	assert.Equal(t, 1, got.ProcessedRows)
	assert.NotEmpty(t, got.ErrorMessage)

	var lines int64
	require.NoError(t, f.db.Model(&ledgerdomain.CustomerStatementLine{}).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)
}

func TestProcessUploadRejectsTerminalUpload(t *testing.T) {
	f := setupRevenue(t)

	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{})
	require.NoError(t, err)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Customer": "Globex", "Revenue": "10.00", "Cost": "0.00"},
	}
	_, err = f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)

	_, err = f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	assert.ErrorIs(t, err, domain.ErrUploadProcessed)
}

func TestProcessUploadMissingColumns(t *testing.T) {
	f := setupRevenue(t)

	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{})
	require.NoError(t, err)

	_, err = f.svc.ProcessUpload(f.ctx, upload.ID, []map[string]any{
		{"Date": "2024-03-01", "Memo": "no customer column"},
	})
	require.Error(t, err)

	got, err := f.svc.GetUpload(f.ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, statementdomain.UploadStatusPending, got.Status)
}
