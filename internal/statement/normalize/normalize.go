// Package normalize turns raw upload rows with arbitrary column naming into
// normalized transaction tuples. It is pure: no storage access, no clock.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/ledgerline/internal/config"
)

// Field names a logical column an upload row may carry.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldAmount      Field = "amount"
	FieldBalance     Field = "balance"
	FieldCustomer    Field = "customer"
	FieldRevenue     Field = "revenue"
	FieldCost        Field = "cost"
)

// BankFields are the logical fields a bank statement row must bind.
var BankFields = []Field{FieldDate, FieldDescription}

// RevenueFields are the logical fields a revenue row must bind.
var RevenueFields = []Field{FieldDate, FieldCustomer, FieldRevenue, FieldCost}

// Options carries the declarative alias lists and accepted date layouts.
type Options struct {
	Aliases     map[Field][]string
	DateLayouts []string
}

// FromIngestConfig converts the hot-reloadable ingest configuration into
// normalizer options.
func FromIngestConfig(cfg config.IngestConfig) Options {
	return Options{
		Aliases: map[Field][]string{
			FieldDate:        cfg.Columns.Date,
			FieldDescription: cfg.Columns.Description,
			FieldDebit:       cfg.Columns.Debit,
			FieldCredit:      cfg.Columns.Credit,
			FieldAmount:      cfg.Columns.Amount,
			FieldBalance:     cfg.Columns.Balance,
			FieldCustomer:    cfg.Columns.Customer,
			FieldRevenue:     cfg.Columns.Revenue,
			FieldCost:        cfg.Columns.Cost,
		},
		DateLayouts: cfg.DateLayouts,
	}
}

// ColumnMap binds logical fields to the actual row keys of one upload.
type ColumnMap map[Field]string

// ColumnError reports logical fields that could not be bound to any column.
type ColumnError struct {
	Missing []Field
}

func (e *ColumnError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, string(f))
	}
	return "unresolved columns: " + strings.Join(names, ", ")
}

// ParseError reports a single row value that could not be parsed.
type ParseError struct {
	Field Field
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Normalized is one parsed statement row. All amounts are minor units.
type Normalized struct {
	Date         time.Time
	Description  string
	DebitMinor   int64
	CreditMinor  int64
	BalanceMinor int64
}

// ResolveColumns binds every logical field it can from the first row of a
// batch and fails when a required field has no matching column. Matching is
// case-insensitive: a column binds an alias when its lowered name contains it.
// Resolution runs once per upload, not per row.
func ResolveColumns(row map[string]any, required []Field, opts Options) (ColumnMap, error) {
	cols := ColumnMap{}
	for field, aliases := range opts.Aliases {
		if key, ok := matchColumn(row, aliases); ok {
			cols[field] = key
		}
	}

	var missing []Field
	for _, field := range required {
		if _, ok := cols[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, &ColumnError{Missing: missing}
	}
	return cols, nil
}

func matchColumn(row map[string]any, aliases []string) (string, bool) {
	for _, alias := range aliases {
		alias = strings.ToLower(strings.TrimSpace(alias))
		if alias == "" {
			continue
		}
		for key := range row {
			if strings.Contains(strings.ToLower(strings.TrimSpace(key)), alias) {
				return key, true
			}
		}
	}
	return "", false
}

// Normalize parses one row against a resolved column map.
//
// Amount resolution priority:
//  1. explicit debit and credit columns, parsed independently (empty is 0);
//     a lone debit or credit column parses the same way, and when it is blank
//     the scan of rule 3 still runs so mixed-header batches keep the side the
//     first row did not bind
//  2. a single amount column, sign-split (positive credit, negative debit)
//  3. first numeric value under any remaining key containing debit, credit or
//     amount, sign-split; otherwise both amounts are 0
func Normalize(row map[string]any, cols ColumnMap, opts Options) (Normalized, error) {
	var out Normalized

	rawDate := row[cols[FieldDate]]
	date, err := ParseDate(rawDate, opts.DateLayouts)
	if err != nil {
		return Normalized{}, &ParseError{Field: FieldDate, Value: stringify(rawDate), Err: err}
	}
	out.Date = date

	if key, ok := cols[FieldDescription]; ok {
		out.Description = strings.TrimSpace(stringify(row[key]))
	}

	debitKey, hasDebit := cols[FieldDebit]
	creditKey, hasCredit := cols[FieldCredit]
	amountKey, hasAmount := cols[FieldAmount]

	switch {
	case hasDebit && hasCredit:
		debit, err := parseOptionalAmount(row[debitKey])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldDebit, Value: stringify(row[debitKey]), Err: err}
		}
		credit, err := parseOptionalAmount(row[creditKey])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldCredit, Value: stringify(row[creditKey]), Err: err}
		}
		out.DebitMinor = abs64(debit)
		out.CreditMinor = abs64(credit)

	case hasDebit:
		debit, err := parseOptionalAmount(row[debitKey])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldDebit, Value: stringify(row[debitKey]), Err: err}
		}
		out.DebitMinor = abs64(debit)
		if out.DebitMinor == 0 {
			out.DebitMinor, out.CreditMinor = scanAmount(row, cols)
		}

	case hasCredit:
		credit, err := parseOptionalAmount(row[creditKey])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldCredit, Value: stringify(row[creditKey]), Err: err}
		}
		out.CreditMinor = abs64(credit)
		if out.CreditMinor == 0 {
			out.DebitMinor, out.CreditMinor = scanAmount(row, cols)
		}

	case hasAmount:
		amount, err := parseOptionalAmount(row[amountKey])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldAmount, Value: stringify(row[amountKey]), Err: err}
		}
		out.DebitMinor, out.CreditMinor = signSplit(amount)

	default:
		out.DebitMinor, out.CreditMinor = scanAmount(row, cols)
	}

	if key, ok := cols[FieldBalance]; ok {
		balance, err := parseOptionalAmount(row[key])
		if err != nil {
			return Normalized{}, &ParseError{Field: FieldBalance, Value: stringify(row[key]), Err: err}
		}
		out.BalanceMinor = balance
	}

	return out, nil
}

// RevenueRow is one parsed revenue upload row. Amounts are minor units.
type RevenueRow struct {
	Date         time.Time
	CustomerName string
	Description  string
	RevenueMinor int64
	CostMinor    int64
}

// NormalizeRevenue parses one revenue row against a resolved column map.
// Revenue and cost parse tolerant of blanks (blank is 0); the customer name
// must be non-empty.
func NormalizeRevenue(row map[string]any, cols ColumnMap, opts Options) (RevenueRow, error) {
	var out RevenueRow

	rawDate := row[cols[FieldDate]]
	date, err := ParseDate(rawDate, opts.DateLayouts)
	if err != nil {
		return RevenueRow{}, &ParseError{Field: FieldDate, Value: stringify(rawDate), Err: err}
	}
	out.Date = date

	out.CustomerName = strings.TrimSpace(stringify(row[cols[FieldCustomer]]))
	if out.CustomerName == "" {
		return RevenueRow{}, &ParseError{Field: FieldCustomer, Value: "", Err: fmt.Errorf("empty customer name")}
	}

	if key, ok := cols[FieldDescription]; ok {
		out.Description = strings.TrimSpace(stringify(row[key]))
	}

	revenue, err := parseOptionalAmount(row[cols[FieldRevenue]])
	if err != nil {
		return RevenueRow{}, &ParseError{Field: FieldRevenue, Value: stringify(row[cols[FieldRevenue]]), Err: err}
	}
	out.RevenueMinor = revenue

	cost, err := parseOptionalAmount(row[cols[FieldCost]])
	if err != nil {
		return RevenueRow{}, &ParseError{Field: FieldCost, Value: stringify(row[cols[FieldCost]]), Err: err}
	}
	out.CostMinor = cost

	return out, nil
}

// scanAmount is the last-resort lookup: any key whose name contains an
// amount-ish token, first numeric value wins.
func scanAmount(row map[string]any, cols ColumnMap) (debit, credit int64) {
	bound := map[string]struct{}{}
	for _, key := range cols {
		bound[key] = struct{}{}
	}
	for key, value := range row {
		if _, taken := bound[key]; taken {
			continue
		}
		lowered := strings.ToLower(key)
		if !strings.Contains(lowered, "debit") &&
			!strings.Contains(lowered, "credit") &&
			!strings.Contains(lowered, "amount") {
			continue
		}
		amount, err := parseOptionalAmount(value)
		if err != nil {
			continue
		}
		return signSplit(amount)
	}
	return 0, 0
}

func signSplit(amount int64) (debit, credit int64) {
	if amount < 0 {
		return -amount, 0
	}
	return 0, amount
}

// ParseDate parses a date value against the accepted layouts in order.
// Date-only layouts normalize to midnight UTC.
func ParseDate(value any, layouts []string) (time.Time, error) {
	if t, ok := value.(time.Time); ok {
		return t.UTC(), nil
	}
	raw := strings.TrimSpace(stringify(value))
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			lastErr = err
			continue
		}
		if !strings.ContainsAny(layout, ":") {
			t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("date parse failed: %w", lastErr)
}

func parseOptionalAmount(value any) (int64, error) {
	if value == nil {
		return 0, nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return ParseAmountMinor(value)
}

// ParseAmountMinor converts a row value into minor units (two decimals).
// Strings tolerate currency symbols, thousand separators and comma decimals.
func ParseAmountMinor(value any) (int64, error) {
	switch typed := value.(type) {
	case int:
		return int64(typed) * 100, nil
	case int64:
		return typed * 100, nil
	case float64:
		return int64(math.Round(typed * 100)), nil
	case string:
		return parseDecimalToMinor(typed)
	default:
		return 0, fmt.Errorf("unsupported amount type %T", value)
	}
}

func parseDecimalToMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"")
	s = strings.TrimLeft(s, "$£€")
	if s == "" {
		return 0, nil
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	// If both '.' and ',' are present, ',' is a thousands separator. A lone
	// ',' is treated as the decimal separator.
	if strings.Contains(s, ".") && strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ",", "")
	} else if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	s = strings.ReplaceAll(s, " ", "")

	parts := strings.SplitN(s, ".", 2)
	intPart := strings.ReplaceAll(parts[0], ",", "")
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}

	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 2 {
		fracPart = fracPart[:2]
	}
	for len(fracPart) < 2 {
		fracPart += "0"
	}

	v, err := strconv.ParseInt(intPart+fracPart, 10, 64)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return v, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func stringify(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
