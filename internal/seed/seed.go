package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/smallbiznis/ledgerline/internal/company/domain"
	"gorm.io/gorm"
)

const (
	defaultCompanyName = "Main"
	defaultCompanySlug = "main"
	defaultCurrency    = "USD"
)

// EnsureDefaultCompany seeds the bootstrap company so single-tenant setups
// work without an explicit create call.
func EnsureDefaultCompany(db *gorm.DB) error {
	return ensureDefaultCompany(db, 0)
}

// EnsureDefaultCompanyWithID seeds the bootstrap company under a fixed ID,
// used when DEFAULT_COMPANY pins the tenant.
func EnsureDefaultCompanyWithID(db *gorm.DB, id int64) error {
	return ensureDefaultCompany(db, snowflake.ID(id))
}

func ensureDefaultCompany(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company companydomain.Company
		err := tx.WithContext(ctx).
			Where("slug = ?", defaultCompanySlug).
			First(&company).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if id == 0 {
			id = node.Generate()
		}
		now := time.Now().UTC()
		company = companydomain.Company{
			ID:        id,
			Name:      defaultCompanyName,
			Slug:      defaultCompanySlug,
			Currency:  defaultCurrency,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&company).Error
	})
}
