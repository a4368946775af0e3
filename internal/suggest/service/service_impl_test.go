package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	categoryrepository "github.com/smallbiznis/ledgerline/internal/category/repository"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	customerrepository "github.com/smallbiznis/ledgerline/internal/customer/repository"
	"github.com/smallbiznis/ledgerline/internal/suggest/domain"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	vendorrepository "github.com/smallbiznis/ledgerline/internal/vendors/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSuggest(t *testing.T) (*Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&customerdomain.Customer{},
		&vendordomain.Vendor{},
		&categorydomain.ExpenseCategory{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		IngestConfig: config.NewStaticIngestConfigHolder(config.DefaultIngestConfig()),
		CustomerRepo: customerrepository.Provide(),
		VendorRepo:   vendorrepository.Provide(),
		CategoryRepo: categoryrepository.Provide(),
	}).(*Service)

	return svc, db, node
}

func seedVendor(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, name string) {
	t.Helper()
	require.NoError(t, db.Create(&vendordomain.Vendor{ID: node.Generate(), CompanyID: companyID, Name: name}).Error)
}

func seedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, name string) {
	t.Helper()
	require.NoError(t, db.Create(&customerdomain.Customer{ID: node.Generate(), CompanyID: companyID, Name: name}).Error)
}

func seedCategory(t *testing.T, db *gorm.DB, node *snowflake.Node, companyID snowflake.ID, name string) {
	t.Helper()
	require.NoError(t, db.Create(&categorydomain.ExpenseCategory{ID: node.Generate(), CompanyID: companyID, Name: name}).Error)
}

func TestSuggestBidirectionalMatch(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	seedVendor(t, db, node, companyID, "Acme")
	seedCustomer(t, db, node, companyID, "Acme Corp Ltd")

	got, err := svc.Suggest(context.Background(), companyID, "Payment to Acme Corp", 0)
	require.NoError(t, err)

	// vendor name inside the description
	require.Len(t, got.Vendors, 1)
	assert.Equal(t, "Acme", got.Vendors[0].Name)

	// description term inside the customer name
	got, err = svc.Suggest(context.Background(), companyID, "Acme", 0)
	require.NoError(t, err)
	require.Len(t, got.Customers, 1)
	assert.Equal(t, "Acme Corp Ltd", got.Customers[0].Name)
}

func TestSuggestKeywordFamilies(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	seedCategory(t, db, node, companyID, "Rent & Premises")
	seedCategory(t, db, node, companyID, "Travel Expenses")

	got, err := svc.Suggest(context.Background(), companyID, "Monthly lease - Unit 4", 0)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Rent & Premises", got.Categories[0].Name)

	got, err = svc.Suggest(context.Background(), companyID, "UBER trip to client site", 0)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Travel Expenses", got.Categories[0].Name)
}

func TestSuggestCapsCandidates(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	for i := 0; i < 9; i++ {
		seedVendor(t, db, node, companyID, fmt.Sprintf("Acme Branch %02d", i))
	}

	got, err := svc.Suggest(context.Background(), companyID, "acme branch", 0)
	require.NoError(t, err)
	assert.Len(t, got.Vendors, domain.MaxCandidates)
	// natural name order means the first five branches win
	assert.Equal(t, "Acme Branch 00", got.Vendors[0].Name)
}

func TestSuggestDirectoryCoversLargeCompanies(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	// The oldest customer must survive directories far past any page size.
	seedCustomer(t, db, node, companyID, "Zenith Trading")
	for i := 0; i < 300; i++ {
		seedCustomer(t, db, node, companyID, fmt.Sprintf("Filler Customer %03d", i))
	}

	got, err := svc.Suggest(context.Background(), companyID, "payment from zenith trading", 0)
	require.NoError(t, err)
	require.Len(t, got.Customers, 1)
	assert.Equal(t, "Zenith Trading", got.Customers[0].Name)
}

func TestSuggestNoMatches(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	seedVendor(t, db, node, companyID, "Acme")

	got, err := svc.Suggest(context.Background(), companyID, "Unrelated transfer", 0)
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestSuggestInvalidCompany(t *testing.T) {
	svc, _, _ := setupSuggest(t)

	_, err := svc.Suggest(context.Background(), 0, "anything", 0)
	assert.ErrorIs(t, err, domain.ErrInvalidCompany)
}

func TestSuggestCachesDirectory(t *testing.T) {
	svc, db, node := setupSuggest(t)
	companyID := node.Generate()

	seedVendor(t, db, node, companyID, "Acme")

	got, err := svc.Suggest(context.Background(), companyID, "acme", 0)
	require.NoError(t, err)
	require.Len(t, got.Vendors, 1)

	// added after the snapshot, invisible until the TTL lapses
	seedVendor(t, db, node, companyID, "Acme Two")

	got, err = svc.Suggest(context.Background(), companyID, "acme", 0)
	require.NoError(t, err)
	assert.Len(t, got.Vendors, 1)
}
