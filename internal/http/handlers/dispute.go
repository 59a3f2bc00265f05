package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type DisputeHandler struct {
	log      *logger.Logger
	disputes services.DisputeService
}

func NewDisputeHandler(log *logger.Logger, disputes services.DisputeService) *DisputeHandler {
	return &DisputeHandler{log: log.With("handler", "DisputeHandler"), disputes: disputes}
}

// POST /dispute
func (h *DisputeHandler) Create(c *gin.Context) {
	var req services.CreateDisputeInput
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.disputes.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"dispute": d})
}

// GET /dispute?status=OPEN,IN_PROGRESS
func (h *DisputeHandler) List(c *gin.Context) {
	var statuses []support.Status
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			statuses = append(statuses, support.Status(s))
		}
	}
	rows, total, err := h.disputes.List(c.Request.Context(), identity(c), statuses, page(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /dispute/:id
func (h *DisputeHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.disputes.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"dispute": d})
}

type disputeStatusRequest struct {
	Status support.Status `json:"status" binding:"required"`
	Note   string         `json:"note"`
}

// PATCH /dispute/:id/status
func (h *DisputeHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req disputeStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	d, err := h.disputes.UpdateStatus(c.Request.Context(), identity(c), id, req.Status, req.Note)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"dispute": d})
}

// POST /dispute/:id/read
func (h *DisputeHandler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.disputes.MarkRead(c.Request.Context(), identity(c), id); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
