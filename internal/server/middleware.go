package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
)

const HeaderCompany = "X-Company-ID"

// CompanyContext resolves the active company from the X-Company-ID header,
// falling back to the configured default company for single-tenant setups.
func (s *Server) CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader(HeaderCompany))

		var companyID int64
		if header != "" {
			parsed, err := snowflake.ParseString(header)
			if err != nil || parsed == 0 {
				AbortWithError(c, newValidationError("company_id", "invalid_company", "invalid company header"))
				return
			}
			companyID = int64(parsed)
		} else if s.cfg.DefaultCompanyID != 0 {
			companyID = s.cfg.DefaultCompanyID
		} else {
			AbortWithError(c, newValidationError("company_id", "invalid_company", "missing company header"))
			return
		}

		ctx := companyctx.WithCompanyID(c.Request.Context(), companyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// UploadIngestRateLimit guards the upload endpoints with the per-company
// token bucket. A nil limiter allows everything.
func (s *Server) UploadIngestRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.uploadLimiter.Enabled() {
			c.Next()
			return
		}

		companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
		if !ok {
			c.Next()
			return
		}

		allowed, err := s.uploadLimiter.AllowCompany(c.Request.Context(), companyID.String())
		if err != nil {
			// redis errors fail open
			c.Next()
			return
		}
		if !allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), companyID.String(), c.FullPath(), "bucket_empty")
			AbortWithError(c, ErrRateLimited)
			return
		}

		s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), companyID.String(), c.FullPath())
		c.Next()
	}
}
