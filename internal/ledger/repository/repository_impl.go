package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, line *domain.CustomerStatementLine) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customer_statement_lines
		 (id, company_id, customer_id, line_type, line_date, description,
		  revenue_minor, cost_minor, debit_minor, credit_minor,
		  netting_balance_minor, running_balance_minor, source_type, source_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID,
		line.CompanyID,
		line.CustomerID,
		line.LineType,
		line.LineDate,
		line.Description,
		line.RevenueMinor,
		line.CostMinor,
		line.DebitMinor,
		line.CreditMinor,
		line.NettingBalanceMinor,
		line.RunningBalanceMinor,
		line.SourceType,
		line.SourceID,
		line.CreatedAt,
	).Error
}

func (r *repo) FindLatest(ctx context.Context, db *gorm.DB, companyID, customerID snowflake.ID) (*domain.CustomerStatementLine, error) {
	var line domain.CustomerStatementLine
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM customer_statement_lines
		 WHERE company_id = ? AND customer_id = ?
		 ORDER BY line_date DESC, id DESC
		 LIMIT 1`,
		companyID,
		customerID,
	).Scan(&line).Error
	if err != nil {
		return nil, err
	}
	if line.ID == 0 {
		return nil, nil
	}
	return &line, nil
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, companyID, customerID snowflake.ID) ([]*domain.CustomerStatementLine, error) {
	var lines []*domain.CustomerStatementLine
	err := db.WithContext(ctx).Raw(
		`SELECT * FROM customer_statement_lines
		 WHERE company_id = ? AND customer_id = ?
		 ORDER BY line_date ASC, id ASC`,
		companyID,
		customerID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}
