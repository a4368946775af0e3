package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	revenuedomain "github.com/smallbiznis/ledgerline/internal/revenue/domain"
	statementdomain "github.com/smallbiznis/ledgerline/internal/statement/domain"
)

type createRevenueUploadRequest struct {
	FileName string `json:"file_name"`
}

type processRevenueUploadRequest struct {
	Rows []map[string]any `json:"rows"`
}

func (s *Server) CreateRevenueUpload(c *gin.Context) {
	var req createRevenueUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.revenueSvc.CreateUpload(c.Request.Context(), revenuedomain.CreateUploadRequest{
		FileName: req.FileName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetRevenueUpload(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid upload id"))
		return
	}

	resp, err := s.revenueSvc.GetUpload(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ProcessRevenueUpload(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid upload id"))
		return
	}

	var req processRevenueUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	processed, err := s.revenueSvc.ProcessUpload(c.Request.Context(), id, req.Rows)
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
