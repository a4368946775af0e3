package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
)

type createBankUploadRequest struct {
	FileName string           `json:"file_name"`
	Format   string           `json:"format"`
	Rows     []map[string]any `json:"rows"`
}

type categorizeRequest struct {
	CategoryID string  `json:"category_id"`
	CustomerID string  `json:"customer_id"`
	VendorID   string  `json:"vendor_id"`
	Notes      *string `json:"notes"`
}

// CreateBankUpload registers the upload and runs the ingest loop in one call.
// A row failure still returns the upload so the caller can see the rows that
// were kept and the captured error.
func (s *Server) CreateBankUpload(c *gin.Context) {
	var req createBankUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	upload, err := s.statementSvc.CreateUpload(c.Request.Context(), statementdomain.CreateUploadRequest{
		FileName: req.FileName,
		Format:   req.Format,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	processed, err := s.statementSvc.ProcessUpload(c.Request.Context(), upload.ID, req.Rows)
	if err != nil {
		if processed.Status == statementdomain.UploadStatusFailed {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"data": processed})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": processed})
}

func (s *Server) GetBankUpload(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid upload id"))
		return
	}

	resp, err := s.statementSvc.GetUpload(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListBankUploadTransactions(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid upload id"))
		return
	}

	resp, err := s.statementSvc.ListTransactions(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CategorizeBankTransaction(c *gin.Context) {
	txID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid transaction id"))
		return
	}

	var req categorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	categoryID, err := parseOptionalSnowflakeID(req.CategoryID)
	if err != nil {
		AbortWithError(c, newValidationError("category_id", "invalid_category", "invalid category id"))
		return
	}
	customerID, err := parseOptionalSnowflakeID(req.CustomerID)
	if err != nil {
		AbortWithError(c, newValidationError("customer_id", "invalid_customer", "invalid customer id"))
		return
	}
	vendorID, err := parseOptionalSnowflakeID(req.VendorID)
	if err != nil {
		AbortWithError(c, newValidationError("vendor_id", "invalid_vendor", "invalid vendor id"))
		return
	}

	var notes *string
	if req.Notes != nil {
		trimmed := strings.TrimSpace(*req.Notes)
		notes = &trimmed
	}

	resp, err := s.statementSvc.Categorize(c.Request.Context(), txID, statementdomain.CategorizeRequest{
		CategoryID: categoryID,
		CustomerID: customerID,
		VendorID:   vendorID,
		Notes:      notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
