package server

import (
	"net/http"
	"strings"

	timeentrydomain "github.com/brikx/coach/internal/timeentry/domain"
	"github.com/brikx/coach/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

type listTimeEntriesQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	ProjectID string `form:"project_id"`
	From      string `form:"from"`
	To        string `form:"to"`
	Invoiced  string `form:"invoiced"`
}

func (s *Server) CreateTimeEntry(c *gin.Context) {
	var req timeentrydomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	entry, err := s.timeEntrySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) ListTimeEntries(c *gin.Context) {
	var query listTimeEntriesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	invoiced, err := parseOptionalBool(query.Invoiced)
	if err != nil {
		AbortWithError(c, newValidationError("invoiced", "invalid_invoiced", "invoiced must be true or false"))
		return
	}

	resp, err := s.timeEntrySvc.List(c.Request.Context(), timeentrydomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
		ProjectID: strings.TrimSpace(query.ProjectID),
		From:      strings.TrimSpace(query.From),
		To:        strings.TrimSpace(query.To),
		Invoiced:  invoiced,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":      resp.Entries,
		"page_info": resp.PageInfo,
	})
}

func (s *Server) GetTimeEntry(c *gin.Context) {
	entry, err := s.timeEntrySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) UpdateTimeEntry(c *gin.Context) {
	var req timeentrydomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.ID = strings.TrimSpace(c.Param("id"))

	entry, err := s.timeEntrySvc.Update(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entry})
}

func (s *Server) DeleteTimeEntry(c *gin.Context) {
	if err := s.timeEntrySvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
