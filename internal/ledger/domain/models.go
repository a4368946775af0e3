package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// LineType distinguishes where a statement line came from.
type LineType string

const (
	LineTypeRevenue         LineType = "revenue"
	LineTypeBankTransaction LineType = "bank_transaction"
)

// CustomerStatementLine is one movement on a customer's ledger. All money
// fields are minor currency units. RunningBalanceMinor is the balance as of
// insert time; reads recompute it and never trust the stored value alone.
type CustomerStatementLine struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID           snowflake.ID `gorm:"not null;index" json:"company_id"`
	CustomerID          snowflake.ID `gorm:"not null;index:idx_customer_lines" json:"customer_id"`
	LineType            LineType     `gorm:"not null" json:"line_type"`
	LineDate            time.Time    `gorm:"not null;index:idx_customer_lines" json:"line_date"`
	Description         string       `json:"description"`
	RevenueMinor        int64        `gorm:"column:revenue_minor;not null;default:0" json:"revenue_minor"`
	CostMinor           int64        `gorm:"column:cost_minor;not null;default:0" json:"cost_minor"`
	DebitMinor          int64        `gorm:"column:debit_minor;not null;default:0" json:"debit_minor"`
	CreditMinor         int64        `gorm:"column:credit_minor;not null;default:0" json:"credit_minor"`
	NettingBalanceMinor int64        `gorm:"column:netting_balance_minor;not null;default:0" json:"netting_balance_minor"`
	RunningBalanceMinor int64        `gorm:"column:running_balance_minor;not null;default:0" json:"running_balance_minor"`
	SourceType          string       `gorm:"column:source_type" json:"source_type,omitempty"`
	SourceID            snowflake.ID `gorm:"column:source_id" json:"source_id,omitempty"`
	CreatedAt           time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CustomerStatementLine) TableName() string { return "customer_statement_lines" }

// Impact is the signed effect of the line on the customer balance.
func (l CustomerStatementLine) Impact() int64 {
	return l.RevenueMinor - l.CostMinor + l.DebitMinor - l.CreditMinor
}

type AppendLineRequest struct {
	CustomerID   snowflake.ID
	LineType     LineType
	LineDate     time.Time
	Description  string
	RevenueMinor int64
	CostMinor    int64
	DebitMinor   int64
	CreditMinor  int64
	SourceType   string
	SourceID     snowflake.ID
}

// StatementSummary is the recomputed view of a customer ledger. Balances are
// response-only and never written back.
type StatementSummary struct {
	CustomerID          snowflake.ID            `json:"customer_id"`
	OpeningBalanceMinor int64                   `json:"opening_balance_minor"`
	ClosingBalanceMinor int64                   `json:"closing_balance_minor"`
	TotalRevenueMinor   int64                   `json:"total_revenue_minor"`
	TotalCostMinor      int64                   `json:"total_cost_minor"`
	TotalDebitMinor     int64                   `json:"total_debit_minor"`
	TotalCreditMinor    int64                   `json:"total_credit_minor"`
	BalanceDrift        bool                    `json:"balance_drift"`
	Lines               []CustomerStatementLine `json:"lines"`
}

type Service interface {
	AppendLine(ctx context.Context, companyID snowflake.ID, req AppendLineRequest) (CustomerStatementLine, error)
	StatementSummary(ctx context.Context, companyID, customerID snowflake.ID) (StatementSummary, error)
}

var (
	ErrInvalidCompany  = errors.New("invalid_company")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidLineType = errors.New("invalid_line_type")
	ErrCustomerMissing = errors.New("customer_not_found")
)
