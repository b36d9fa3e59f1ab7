package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/tessa/caseload/internal/report"
	"github.com/tessa/caseload/internal/service"
)

// CaseloadHandler exposes the caseload report job engine over HTTP. The
// protocol is poll-driven: clients create a job, call step until done, page
// the results, then release the job.
type CaseloadHandler struct {
	svc *service.CaseloadService
}

// NewCaseloadHandler creates a new caseload handler.
func NewCaseloadHandler(svc *service.CaseloadService) *CaseloadHandler {
	return &CaseloadHandler{svc: svc}
}

// CreateRequest is the job creation payload.
type CreateRequest struct {
	LookbackDays int `json:"lookback_days" binding:"required"`
	UntilDays    int `json:"until_days"`
}

// Create handles POST /api/v1/reports/caseload.
func (h *CaseloadHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := h.svc.Create(c.Request.Context(), req.LookbackDays, req.UntilDays)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Step handles POST /api/v1/reports/caseload/:id/step.
func (h *CaseloadHandler) Step(c *gin.Context) {
	snap, err := h.svc.Step(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Status handles GET /api/v1/reports/caseload/:id.
func (h *CaseloadHandler) Status(c *gin.Context) {
	snap, err := h.svc.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// Results handles GET /api/v1/reports/caseload/:id/results.
func (h *CaseloadHandler) Results(c *gin.Context) {
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}

	page, err := h.svc.Results(c.Request.Context(), c.Param("id"), c.Query("view"), offset, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Cancel handles POST /api/v1/reports/caseload/:id/cancel.
func (h *CaseloadHandler) Cancel(c *gin.Context) {
	resp, err := h.svc.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cleanup handles DELETE /api/v1/reports/caseload/:id.
func (h *CaseloadHandler) Cleanup(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Cleanup(c.Request.Context(), c.Param("id")))
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// writeError maps control-plane errors to HTTP status codes.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, report.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, report.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, report.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
