package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	categoryrepository "github.com/smallbiznis/ledgerline/internal/category/repository"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerline/internal/customer/repository"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/ledgerline/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/ledgerline/internal/ledger/service"
	"github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/statement/repository"
	suggestservice "github.com/smallbiznis/ledgerline/internal/suggest/service"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	vendorrepository "github.com/smallbiznis/ledgerline/internal/vendors/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc       domain.Service
	db        *gorm.DB
	node      *snowflake.Node
	companyID snowflake.ID
	ctx       context.Context
}

func setupStatement(t *testing.T) fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&vendordomain.Vendor{},
		&categorydomain.ExpenseCategory{},
		&domain.BankStatementUpload{},
		&domain.BankStatementTransaction{},
		&ledgerdomain.CustomerStatementLine{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	holder := config.NewStaticIngestConfigHolder(config.DefaultIngestConfig())

	suggester := suggestservice.New(suggestservice.Params{
		DB:           db,
		Log:          zap.NewNop(),
		IngestConfig: holder,
		CustomerRepo: customerrepository.Provide(),
		VendorRepo:   vendorrepository.Provide(),
		CategoryRepo: categoryrepository.Provide(),
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
		IngestConfig: holder,
		Repo:         repository.Provide(),
		Suggester:    suggester,
		Ledger:       ledger,
	})

	companyID := node.Generate()
	return fixture{
		svc:       svc,
		db:        db,
		node:      node,
		companyID: companyID,
		ctx:       companyctx.WithCompanyID(context.Background(), int64(companyID)),
	}
}

func newUpload(t *testing.T, f fixture) domain.BankStatementUpload {
	t.Helper()
	upload, err := f.svc.CreateUpload(f.ctx, domain.CreateUploadRequest{FileName: "march.csv"})
	require.NoError(t, err)
	require.Equal(t, domain.UploadStatusPending, upload.Status)
	require.NotEmpty(t, upload.Reference)
	return upload
}

func TestProcessUploadHappyPath(t *testing.T) {
	f := setupStatement(t)
	require.NoError(t, f.db.Create(&vendordomain.Vendor{
		ID: f.node.Generate(), CompanyID: f.companyID, Name: "Acme",
	}).Error)
	upload := newUpload(t, f)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Description": "Payment to Acme Corp", "Debit": "100.00", "Credit": ""},
		{"Date": "2024-03-02", "Description": "Refund", "Debit": "", "Credit": "30.00"},
	}

	got, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusProcessed, got.Status)
	assert.Equal(t, 2, got.TotalRows)
	assert.Equal(t, 2, got.ProcessedRows)
	require.NotNil(t, got.ProcessedAt)
	assert.Empty(t, got.ErrorMessage)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.EqualValues(t, 10000, txs[0].DebitMinor)
	assert.EqualValues(t, 0, txs[0].CreditMinor)
	require.NotNil(t, txs[0].SuggestedVendorID)
	assert.NotEmpty(t, txs[0].Raw)

	assert.EqualValues(t, 0, txs[1].DebitMinor)
	assert.EqualValues(t, 3000, txs[1].CreditMinor)
}

func TestProcessUploadSingleAmountColumn(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	rows := []map[string]any{
		{"Date": "2024-03-03", "Description": "Card purchase", "Amount": "-42.50"},
		{"Date": "2024-03-04", "Description": "Deposit", "Amount": "42.50"},
	}

	_, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// negative lands on the debit side, positive on the credit side
	assert.EqualValues(t, 4250, txs[0].DebitMinor)
	assert.EqualValues(t, 0, txs[0].CreditMinor)
	assert.EqualValues(t, 0, txs[1].DebitMinor)
	assert.EqualValues(t, 4250, txs[1].CreditMinor)
}

func TestProcessUploadKeepsRowsBeforeFailure(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Description": "ok", "Amount": "10.00"},
		{"Date": "2024-03-02", "Description": "ok", "Amount": "20.00"},
		{"Date": "2024-03-03", "Description": "ok", "Amount": "30.00"},
		{"Date": "not-a-date", "Description": "bad", "Amount": "40.00"},
	}

	got, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.Error(t, err)
	assert.Equal(t, domain.UploadStatusFailed, got.Status)
	assert.Equal(t, 3, got.ProcessedRows)
	assert.NotEmpty(t, got.ErrorMessage)
	assert.Nil(t, got.ProcessedAt)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 3)
}

func TestProcessUploadRejectsTerminalUpload(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Description": "ok", "Amount": "10.00"},
	}
	_, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)

	_, err = f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	assert.ErrorIs(t, err, domain.ErrUploadProcessed)
}

func TestProcessUploadColumnBindingFailureLeavesPending(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	rows := []map[string]any{
		{"Foo": "x", "Bar": "y"},
	}
	_, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.Error(t, err)

	got, err := f.svc.GetUpload(f.ctx, upload.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.UploadStatusPending, got.Status)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestProcessUploadUnknownUpload(t *testing.T) {
	f := setupStatement(t)

	_, err := f.svc.ProcessUpload(f.ctx, f.node.Generate(), []map[string]any{
		{"Date": "2024-03-01", "Description": "x"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCategorizeAppendsLedgerLine(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	customer := customerdomain.Customer{
		ID: f.node.Generate(), CompanyID: f.companyID, Name: "Globex",
	}
	require.NoError(t, f.db.Create(&customer).Error)

	rows := []map[string]any{
		{"Date": "2024-03-01", "Description": "invoice payment", "Debit": "100.00"},
		{"Date": "2024-03-02", "Description": "partial refund", "Credit": "30.00"},
	}
	_, err := f.svc.ProcessUpload(f.ctx, upload.ID, rows)
	require.NoError(t, err)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	got, err := f.svc.Categorize(f.ctx, txs[0].ID, domain.CategorizeRequest{CustomerID: &customer.ID})
	require.NoError(t, err)
	require.NotNil(t, got.CustomerID)
	assert.Equal(t, customer.ID, *got.CustomerID)

	_, err = f.svc.Categorize(f.ctx, txs[1].ID, domain.CategorizeRequest{CustomerID: &customer.ID})
	require.NoError(t, err)

	var lines []ledgerdomain.CustomerStatementLine
	require.NoError(t, f.db.
		Where("customer_id = ?", customer.ID).
		Order("id asc").
		Find(&lines).Error)
	require.Len(t, lines, 2)
	assert.EqualValues(t, 10000, lines[0].RunningBalanceMinor)
	assert.EqualValues(t, 7000, lines[1].RunningBalanceMinor)
	assert.Equal(t, ledgerdomain.LineTypeBankTransaction, lines[0].LineType)
	assert.Equal(t, txs[0].ID, lines[0].SourceID)
}

func TestCategorizeWithoutCustomerSkipsLedger(t *testing.T) {
	f := setupStatement(t)
	upload := newUpload(t, f)

	category := categorydomain.ExpenseCategory{
		ID: f.node.Generate(), CompanyID: f.companyID, Name: "Office Supplies",
	}
	require.NoError(t, f.db.Create(&category).Error)

	_, err := f.svc.ProcessUpload(f.ctx, upload.ID, []map[string]any{
		{"Date": "2024-03-01", "Description": "stationery", "Debit": "12.00"},
	})
	require.NoError(t, err)

	txs, err := f.svc.ListTransactions(f.ctx, upload.ID)
	require.NoError(t, err)
	require.Len(t, txs, 1)

	notes := "quarterly stock-up"
	got, err := f.svc.Categorize(f.ctx, txs[0].ID, domain.CategorizeRequest{
		CategoryID: &category.ID,
		Notes:      &notes,
	})
	require.NoError(t, err)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, notes, got.Notes)

	var count int64
	require.NoError(t, f.db.Model(&ledgerdomain.CustomerStatementLine{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCategorizeUnknownTransaction(t *testing.T) {
	f := setupStatement(t)

	_, err := f.svc.Categorize(f.ctx, f.node.Generate(), domain.CategorizeRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
