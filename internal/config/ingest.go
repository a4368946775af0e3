package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// IngestConfig is the declarative upload-parsing configuration: ordered column
// aliases per logical field, the category keyword families, accepted date
// layouts and batch limits. It ships with working defaults and can be
// overridden by a volume-mounted ingest.yml.
type IngestConfig struct {
	Columns     ColumnAliases   `mapstructure:"columns"`
	Keywords    []KeywordFamily `mapstructure:"keywords"`
	DateLayouts []string        `mapstructure:"dateLayouts"`
	MaxRows     int             `mapstructure:"maxRows"`
}

// ColumnAliases lists the accepted header aliases per logical field, in
// priority order. Matching is case-insensitive substring.
type ColumnAliases struct {
	Date        []string `mapstructure:"date"`
	Description []string `mapstructure:"description"`
	Debit       []string `mapstructure:"debit"`
	Credit      []string `mapstructure:"credit"`
	Amount      []string `mapstructure:"amount"`
	Balance     []string `mapstructure:"balance"`
	Customer    []string `mapstructure:"customer"`
	Revenue     []string `mapstructure:"revenue"`
	Cost        []string `mapstructure:"cost"`
}

// KeywordFamily maps a category-name token to the description keywords that
// should suggest categories of that family.
type KeywordFamily struct {
	Family   string   `mapstructure:"family"`
	Keywords []string `mapstructure:"keywords"`
}

func DefaultIngestConfig() IngestConfig {
	return IngestConfig{
		Columns: ColumnAliases{
			Date:        []string{"date", "transaction date", "posted"},
			Description: []string{"description", "narrative", "details", "memo"},
			Debit:       []string{"debit", "withdrawal", "money out"},
			Credit:      []string{"credit", "deposit", "money in"},
			Amount:      []string{"amount", "value"},
			Balance:     []string{"balance"},
			Customer:    []string{"customer", "client", "name"},
			Revenue:     []string{"revenue", "income", "sales"},
			Cost:        []string{"cost", "expense"},
		},
		Keywords: []KeywordFamily{
			{Family: "rent", Keywords: []string{"rent", "lease", "property"}},
			{Family: "utilities", Keywords: []string{"electric", "gas", "water", "internet", "phone"}},
			{Family: "travel", Keywords: []string{"hotel", "flight", "uber", "taxi", "fuel", "gas"}},
			{Family: "office", Keywords: []string{"office", "supplies", "equipment", "furniture"}},
			{Family: "marketing", Keywords: []string{"advertising", "marketing", "promotion", "social media"}},
			{Family: "insurance", Keywords: []string{"insurance", "premium", "coverage"}},
			{Family: "legal", Keywords: []string{"legal", "attorney", "lawyer", "court"}},
			{Family: "accounting", Keywords: []string{"accounting", "bookkeeping", "tax", "cpa"}},
		},
		DateLayouts: []string{
			"2006-01-02T15:04:05Z07:00",
			"2006-01-02 15:04:05",
			"2006-01-02",
			"02/01/2006",
			"2/01/2006",
			"01/02/2006",
		},
		MaxRows: 10_000,
	}
}

// IngestConfigHolder hands out the current ingest configuration and swaps it
// atomically on hot reload.
type IngestConfigHolder struct {
	current atomic.Value // holds IngestConfig
}

func NewIngestConfigHolder() (*IngestConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("ingest")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/ledgerline/config") // Volume-mounted config
	v.AddConfigPath("/etc/ledgerline")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("LEDGERLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultIngestConfig()
		v.SetDefault("ingest.columns", defaults.Columns)
		v.SetDefault("ingest.keywords", defaults.Keywords)
		v.SetDefault("ingest.dateLayouts", defaults.DateLayouts)
		v.SetDefault("ingest.maxRows", defaults.MaxRows)
	}

	var cfg IngestConfig
	if err := v.UnmarshalKey("ingest", &cfg); err != nil {
		return nil, err
	}
	cfg = fillIngestDefaults(cfg)
	if err := validateIngestConfig(cfg); err != nil {
		return nil, err
	}

	holder := &IngestConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated IngestConfig
		if err := v.UnmarshalKey("ingest", &updated); err != nil {
			log.Printf("[ingest-config] reload failed: %v", err)
			return
		}
		updated = fillIngestDefaults(updated)
		if err := validateIngestConfig(updated); err != nil {
			log.Printf("[ingest-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[ingest-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// Current returns the active ingest configuration.
func (h *IngestConfigHolder) Current() IngestConfig {
	return h.current.Load().(IngestConfig)
}

// NewStaticIngestConfigHolder wraps a fixed config, used by tests.
func NewStaticIngestConfigHolder(cfg IngestConfig) *IngestConfigHolder {
	holder := &IngestConfigHolder{}
	holder.current.Store(fillIngestDefaults(cfg))
	return holder
}

func fillIngestDefaults(cfg IngestConfig) IngestConfig {
	defaults := DefaultIngestConfig()
	if len(cfg.Columns.Date) == 0 {
		cfg.Columns.Date = defaults.Columns.Date
	}
	if len(cfg.Columns.Description) == 0 {
		cfg.Columns.Description = defaults.Columns.Description
	}
	if len(cfg.Columns.Debit) == 0 {
		cfg.Columns.Debit = defaults.Columns.Debit
	}
	if len(cfg.Columns.Credit) == 0 {
		cfg.Columns.Credit = defaults.Columns.Credit
	}
	if len(cfg.Columns.Amount) == 0 {
		cfg.Columns.Amount = defaults.Columns.Amount
	}
	if len(cfg.Columns.Balance) == 0 {
		cfg.Columns.Balance = defaults.Columns.Balance
	}
	if len(cfg.Columns.Customer) == 0 {
		cfg.Columns.Customer = defaults.Columns.Customer
	}
	if len(cfg.Columns.Revenue) == 0 {
		cfg.Columns.Revenue = defaults.Columns.Revenue
	}
	if len(cfg.Columns.Cost) == 0 {
		cfg.Columns.Cost = defaults.Columns.Cost
	}
	if len(cfg.Keywords) == 0 {
		cfg.Keywords = defaults.Keywords
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = defaults.DateLayouts
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = defaults.MaxRows
	}
	return cfg
}

func validateIngestConfig(cfg IngestConfig) error {
	for _, family := range cfg.Keywords {
		if strings.TrimSpace(family.Family) == "" {
			return errors.New("ingest keyword family requires a name")
		}
		if len(family.Keywords) == 0 {
			return errors.New("ingest keyword family " + family.Family + " requires keywords")
		}
	}
	return nil
}
