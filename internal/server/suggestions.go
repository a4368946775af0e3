package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
)

// GetSuggestions is the ad-hoc probe for the categorization suggester, useful
// when wiring up a client before running a full upload.
func (s *Server) GetSuggestions(c *gin.Context) {
	description := strings.TrimSpace(c.Query("description"))
	if description == "" {
		AbortWithError(c, newValidationError("description", "invalid_description", "description is required"))
		return
	}

	amount, err := parseOptionalInt64(c.Query("amount"))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "invalid amount"))
		return
	}
	var amountMinor int64
	if amount != nil {
		amountMinor = *amount
	}

	companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, newValidationError("company_id", "invalid_company", "missing company"))
		return
	}

	resp, err := s.suggestSvc.Suggest(c.Request.Context(), companyID, description, amountMinor)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
