package normalize

import (
	"testing"
	"time"

	"github.com/smallbiznis/ledgerline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return FromIngestConfig(config.DefaultIngestConfig())
}

func TestResolveColumns_LooseHeaderMatch(t *testing.T) {
	row := map[string]any{
		"Transaction Date": "2024-03-01",
		"Narrative":        "ACME CORP INVOICE 42",
		"Money Out":        "100.00",
		"Money In":         "",
		"Balance":          "900.00",
	}

	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "Transaction Date", cols[FieldDate])
	assert.Equal(t, "Narrative", cols[FieldDescription])
	assert.Equal(t, "Money Out", cols[FieldDebit])
	assert.Equal(t, "Money In", cols[FieldCredit])
	assert.Equal(t, "Balance", cols[FieldBalance])
}

func TestResolveColumns_MissingRequired(t *testing.T) {
	row := map[string]any{"foo": "bar"}

	_, err := ResolveColumns(row, BankFields, testOptions())
	require.Error(t, err)

	var colErr *ColumnError
	require.ErrorAs(t, err, &colErr)
	assert.Contains(t, colErr.Missing, FieldDate)
	assert.Contains(t, colErr.Missing, FieldDescription)
}

func TestNormalize_DebitCreditColumnsWin(t *testing.T) {
	// An explicit debit/credit pair is never overridden by an amount column.
	row := map[string]any{
		"date":        "2024-01-15",
		"description": "office rent",
		"debit":       "250.00",
		"credit":      "",
		"amount":      "-999.99",
	}
	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)

	got, err := Normalize(row, cols, testOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(25000), got.DebitMinor)
	assert.Equal(t, int64(0), got.CreditMinor)
	assert.GreaterOrEqual(t, got.DebitMinor, int64(0))
	assert.GreaterOrEqual(t, got.CreditMinor, int64(0))
}

func TestNormalize_SignInference(t *testing.T) {
	tests := []struct {
		name       string
		amount     any
		wantDebit  int64
		wantCredit int64
	}{
		{name: "negative is debit", amount: "-42.50", wantDebit: 4250, wantCredit: 0},
		{name: "positive is credit", amount: "42.50", wantDebit: 0, wantCredit: 4250},
		{name: "numeric json value", amount: -42.5, wantDebit: 4250, wantCredit: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := map[string]any{
				"date":        "2024-01-15",
				"description": "transfer",
				"amount":      tt.amount,
			}
			cols, err := ResolveColumns(row, BankFields, testOptions())
			require.NoError(t, err)

			got, err := Normalize(row, cols, testOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebit, got.DebitMinor)
			assert.Equal(t, tt.wantCredit, got.CreditMinor)
		})
	}
}

func TestNormalize_SingleSidedColumn(t *testing.T) {
	tests := []struct {
		name       string
		row        map[string]any
		wantDebit  int64
		wantCredit int64
	}{
		{
			name: "debit column only",
			row: map[string]any{
				"Date":        "2024-03-01",
				"Description": "invoice payment",
				"Debit":       "100.00",
			},
			wantDebit: 10000,
		},
		{
			name: "credit column only",
			row: map[string]any{
				"Date":        "2024-03-02",
				"Description": "refund",
				"Credit":      "30.00",
			},
			wantCredit: 3000,
		},
		{
			name: "blank single-sided value is zero",
			row: map[string]any{
				"Date":        "2024-03-03",
				"Description": "memo",
				"Debit":       "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveColumns(tt.row, BankFields, testOptions())
			require.NoError(t, err)

			got, err := Normalize(tt.row, cols, testOptions())
			require.NoError(t, err)
			assert.Equal(t, tt.wantDebit, got.DebitMinor)
			assert.Equal(t, tt.wantCredit, got.CreditMinor)
		})
	}
}

func TestNormalize_MixedHeaderBatchKeepsUnboundSide(t *testing.T) {
	// Columns resolve once per batch. A first row carrying only a Debit
	// header must not swallow a later row that carries only Credit.
	first := map[string]any{
		"Date":        "2024-03-01",
		"Description": "invoice payment",
		"Debit":       "100.00",
	}
	cols, err := ResolveColumns(first, BankFields, testOptions())
	require.NoError(t, err)

	got, err := Normalize(first, cols, testOptions())
	require.NoError(t, err)
	assert.EqualValues(t, 10000, got.DebitMinor)
	assert.EqualValues(t, 0, got.CreditMinor)

	second := map[string]any{
		"Date":        "2024-03-02",
		"Description": "partial refund",
		"Credit":      "30.00",
	}
	got, err = Normalize(second, cols, testOptions())
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.DebitMinor)
	assert.EqualValues(t, 3000, got.CreditMinor)
}

func TestNormalize_FallbackScan(t *testing.T) {
	row := map[string]any{
		"date":        "2024-01-15",
		"description": "misc",
		"Misc Amount": "-12.00",
	}
	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)
	// The loose alias table already binds "Misc Amount" as the amount column.
	delete(cols, FieldAmount)

	got, err := Normalize(row, cols, testOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(1200), got.DebitMinor)
	assert.Equal(t, int64(0), got.CreditMinor)
}

func TestNormalize_NoAmountColumns(t *testing.T) {
	row := map[string]any{
		"date":        "2024-01-15",
		"description": "memo only",
	}
	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)

	got, err := Normalize(row, cols, testOptions())
	require.NoError(t, err)
	assert.Zero(t, got.DebitMinor)
	assert.Zero(t, got.CreditMinor)
	assert.Zero(t, got.BalanceMinor)
}

func TestNormalize_StatementBalanceStoredAsIs(t *testing.T) {
	row := map[string]any{
		"date":        "2024-01-15",
		"description": "deposit",
		"credit":      "10.00",
		"debit":       "",
		"balance":     "123.45",
	}
	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)

	got, err := Normalize(row, cols, testOptions())
	require.NoError(t, err)
	assert.Equal(t, int64(12345), got.BalanceMinor)
}

func TestNormalize_BadDate(t *testing.T) {
	row := map[string]any{
		"date":        "not a date",
		"description": "x",
	}
	cols, err := ResolveColumns(row, BankFields, testOptions())
	require.NoError(t, err)

	_, err = Normalize(row, cols, testOptions())
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, FieldDate, parseErr.Field)
}

func TestParseDate_Layouts(t *testing.T) {
	opts := testOptions()

	got, err := ParseDate("2024-03-01", opts.DateLayouts)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), got)

	got, err = ParseDate("2024-03-01 10:30:00", opts.DateLayouts)
	require.NoError(t, err)
	assert.Equal(t, 10, got.Hour())
}

func TestParseAmountMinor(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{in: "1,234.56", want: 123456},
		{in: "1234,56", want: 123456},
		{in: "$99.90", want: 9990},
		{in: "-0.01", want: -1},
		{in: 12.34, want: 1234},
		{in: 7, want: 700},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseAmountMinor(tt.in)
		if tt.wantErr {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
