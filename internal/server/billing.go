package server

import (
	"context"
	"net/http"
	"strings"

	billingdomain "github.com/brikx/coach/internal/billing/domain"
	"github.com/gin-gonic/gin"
)

type allocateFunc func(ctx context.Context, req billingdomain.AllocateRequest) (*billingdomain.AllocationResult, error)

// Allocate runs an invoice and writes the result.
func (s *Server) Allocate(c *gin.Context) {
	s.allocate(c, s.billingSvc.Allocate)
}

// PreviewAllocation returns the same plan as Allocate without writing it.
func (s *Server) PreviewAllocation(c *gin.Context) {
	s.allocate(c, s.billingSvc.Preview)
}

func (s *Server) allocate(c *gin.Context, run allocateFunc) {
	var req billingdomain.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if number := strings.TrimSpace(req.InvoiceNumber); number != "" {
		c.Set("invoice_number", number)
	}

	result, err := run(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) UnbilledSummary(c *gin.Context) {
	var req billingdomain.UnbilledRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.CutoffDate = strings.TrimSpace(req.CutoffDate)
	req.ProjectID = strings.TrimSpace(req.ProjectID)

	summary, err := s.billingSvc.UnbilledSummary(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}
