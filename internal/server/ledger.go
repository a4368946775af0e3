package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/ledgerline/internal/companyctx"
)

func (s *Server) GetCustomerStatementSummary(c *gin.Context) {
	customerID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid customer id"))
		return
	}

	companyID, ok := companyctx.CompanyIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, newValidationError("company_id", "invalid_company", "missing company"))
		return
	}

	resp, err := s.ledgerSvc.StatementSummary(c.Request.Context(), companyID, customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
