package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ledgerline/internal/category"
	categorydomain "github.com/smallbiznis/ledgerline/internal/category/domain"
	"github.com/smallbiznis/ledgerline/internal/company"
	companydomain "github.com/smallbiznis/ledgerline/internal/company/domain"
	"github.com/smallbiznis/ledgerline/internal/config"
	"github.com/smallbiznis/ledgerline/internal/customer"
	customerdomain "github.com/smallbiznis/ledgerline/internal/customer/domain"
	"github.com/smallbiznis/ledgerline/internal/ledger"
	ledgerdomain "github.com/smallbiznis/ledgerline/internal/ledger/domain"
	"github.com/smallbiznis/ledgerline/internal/observability"
	obsmiddleware "github.com/smallbiznis/ledgerline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ledgerline/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ledgerline/internal/observability/tracing"
	"github.com/smallbiznis/ledgerline/internal/ratelimit"
	"github.com/smallbiznis/ledgerline/internal/revenue"
	revenuedomain "github.com/smallbiznis/ledgerline/internal/revenue/domain"
	"github.com/smallbiznis/ledgerline/internal/statement"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
	"github.com/smallbiznis/ledgerline/internal/suggest"
	suggestdomain "github.com/smallbiznis/ledgerline/internal/suggest/domain"
	"github.com/smallbiznis/ledgerline/internal/vendors"
	vendordomain "github.com/smallbiznis/ledgerline/internal/vendors/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	company.Module,
	customer.Module,
	vendors.Module,
	category.Module,
	suggest.Module,
	ledger.Module,
	statement.Module,
	revenue.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	companySvc    companydomain.Service
	customerSvc   customerdomain.Service
	vendorSvc     vendordomain.Service
	categorySvc   categorydomain.Service
	suggestSvc    suggestdomain.Service
	ledgerSvc     ledgerdomain.Service
	statementSvc  statementdomain.Service
	revenueSvc    revenuedomain.Service
	uploadLimiter *ratelimit.UploadIngestLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	CompanySvc    companydomain.Service
	CustomerSvc   customerdomain.Service
	VendorSvc     vendordomain.Service
	CategorySvc   categorydomain.Service
	SuggestSvc    suggestdomain.Service
	LedgerSvc     ledgerdomain.Service
	StatementSvc  statementdomain.Service
	RevenueSvc    revenuedomain.Service
	UploadLimiter *ratelimit.UploadIngestLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics            `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		companySvc:    p.CompanySvc,
		customerSvc:   p.CustomerSvc,
		vendorSvc:     p.VendorSvc,
		categorySvc:   p.CategorySvc,
		suggestSvc:    p.SuggestSvc,
		ledgerSvc:     p.LedgerSvc,
		statementSvc:  p.StatementSvc,
		revenueSvc:    p.RevenueSvc,
		uploadLimiter: p.UploadLimiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/companies", s.CreateCompany)
	api.GET("/companies", s.ListCompanies)
	api.GET("/companies/:id", s.GetCompanyByID)

	scoped := api.Group("", s.CompanyContext())
	{
		scoped.POST("/customers", s.CreateCustomer)
		scoped.GET("/customers", s.ListCustomers)
		scoped.GET("/customers/:id", s.GetCustomerByID)
		scoped.GET("/customers/:id/statement-summary", s.GetCustomerStatementSummary)

		scoped.POST("/vendors", s.CreateVendor)
		scoped.GET("/vendors", s.ListVendors)

		scoped.POST("/categories", s.CreateCategory)
		scoped.GET("/categories", s.ListCategories)

		scoped.POST("/bank-uploads", s.UploadIngestRateLimit(), s.CreateBankUpload)
		scoped.GET("/bank-uploads/:id", s.GetBankUpload)
		scoped.GET("/bank-uploads/:id/transactions", s.ListBankUploadTransactions)
		scoped.PUT("/bank-transactions/:id/categorize", s.CategorizeBankTransaction)

		scoped.POST("/revenue-uploads", s.UploadIngestRateLimit(), s.CreateRevenueUpload)
		scoped.GET("/revenue-uploads/:id", s.GetRevenueUpload)
		scoped.POST("/revenue-uploads/:id/process", s.UploadIngestRateLimit(), s.ProcessRevenueUpload)

		scoped.GET("/suggestions", s.GetSuggestions)
	}
}
