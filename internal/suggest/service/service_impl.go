package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerline/internal/cache"
	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	"github.com/smallbiznis/ledgerline/internal/config"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	"github.com/smallbiznis/ledgerline/internal/suggest/domain"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const directoryTTL = 30 * time.Second

// directory is the per-company name list snapshot the matcher runs against.
type directory struct {
	customers  []domain.Candidate
	vendors    []domain.Candidate
	categories []domain.Candidate
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	IngestConfig *config.IngestConfigHolder
	CustomerRepo customerdomain.Repository
	VendorRepo   vendordomain.Repository
	CategoryRepo categorydomain.Repository
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	ingestConfig *config.IngestConfigHolder
	customerRepo customerdomain.Repository
	vendorRepo   vendordomain.Repository
	categoryRepo categorydomain.Repository
	obsMetrics   *obsmetrics.Metrics

	directories cache.Cache[snowflake.ID, directory]
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("suggest.service"),
		ingestConfig: p.IngestConfig,
		customerRepo: p.CustomerRepo,
		vendorRepo:   p.VendorRepo,
		categoryRepo: p.CategoryRepo,
		obsMetrics:   p.ObsMetrics,
		directories:  cache.NewTTLCache[snowflake.ID, directory](),
	}
}

func (s *Service) Suggest(ctx context.Context, companyID snowflake.ID, description string, amountMinor int64) (domain.Suggestions, error) {
	_ = amountMinor // carried for future heuristics, unused by name matching

	if companyID == 0 {
		return domain.Suggestions{}, domain.ErrInvalidCompany
	}

	dir, err := s.directory(ctx, companyID)
	if err != nil {
		return domain.Suggestions{}, err
	}

	needle := strings.ToLower(strings.TrimSpace(description))

	out := domain.Suggestions{
		Customers:  matchNames(needle, dir.customers),
		Vendors:    matchNames(needle, dir.vendors),
		Categories: s.matchCategories(needle, dir.categories),
	}

	s.obsMetrics.RecordSuggestion(ctx, !out.Empty())

	return out, nil
}

func (s *Service) directory(ctx context.Context, companyID snowflake.ID) (directory, error) {
	if dir, ok := s.directories.Get(companyID); ok {
		return dir, nil
	}

	customers, err := s.customerRepo.ListNames(ctx, s.db, companyID)
	if err != nil {
		return directory{}, err
	}
	vendors, err := s.vendorRepo.List(ctx, s.db, companyID)
	if err != nil {
		return directory{}, err
	}
	categories, err := s.categoryRepo.List(ctx, s.db, companyID)
	if err != nil {
		return directory{}, err
	}

	dir := directory{}
	for _, c := range customers {
		if c == nil {
			continue
		}
		dir.customers = append(dir.customers, domain.Candidate{ID: c.ID, Name: c.Name})
	}
	for _, v := range vendors {
		if v == nil {
			continue
		}
		dir.vendors = append(dir.vendors, domain.Candidate{ID: v.ID, Name: v.Name})
	}
	for _, c := range categories {
		if c == nil {
			continue
		}
		dir.categories = append(dir.categories, domain.Candidate{ID: c.ID, Name: c.Name})
	}
	sortByName(dir.customers)
	sortByName(dir.vendors)
	sortByName(dir.categories)

	s.directories.Set(companyID, dir, directoryTTL)
	return dir, nil
}

// matchNames keeps candidates whose lowered name contains the description or
// is contained by it, capped at MaxCandidates.
func matchNames(needle string, candidates []domain.Candidate) []domain.Candidate {
	if needle == "" {
		return nil
	}
	var out []domain.Candidate
	for _, candidate := range candidates {
		if bidirectionalMatch(needle, strings.ToLower(candidate.Name)) {
			out = append(out, candidate)
			if len(out) == domain.MaxCandidates {
				break
			}
		}
	}
	return out
}

// matchCategories applies the name match first, then the keyword-family table:
// only the first family whose token appears in the category name is consulted.
func (s *Service) matchCategories(needle string, candidates []domain.Candidate) []domain.Candidate {
	if needle == "" {
		return nil
	}
	families := s.ingestConfig.Current().Keywords

	var out []domain.Candidate
	for _, candidate := range candidates {
		name := strings.ToLower(candidate.Name)
		matched := bidirectionalMatch(needle, name)
		if !matched {
			if family := firstFamily(name, families); family != nil {
				for _, keyword := range family.Keywords {
					if strings.Contains(needle, strings.ToLower(keyword)) {
						matched = true
						break
					}
				}
			}
		}
		if matched {
			out = append(out, candidate)
			if len(out) == domain.MaxCandidates {
				break
			}
		}
	}
	return out
}

func firstFamily(categoryName string, families []config.KeywordFamily) *config.KeywordFamily {
	for i := range families {
		if strings.Contains(categoryName, strings.ToLower(families[i].Family)) {
			return &families[i]
		}
	}
	return nil
}

func bidirectionalMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func sortByName(candidates []domain.Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})
}
