package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type MunicipalityHandler struct {
	log            *logger.Logger
	municipalities services.MunicipalityService
}

func NewMunicipalityHandler(log *logger.Logger, municipalities services.MunicipalityService) *MunicipalityHandler {
	return &MunicipalityHandler{log: log.With("handler", "MunicipalityHandler"), municipalities: municipalities}
}

// GET /municipalities
func (h *MunicipalityHandler) List(c *gin.Context) {
	rows, total, err := h.municipalities.List(c.Request.Context(), identity(c), page(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /municipalities/:id
func (h *MunicipalityHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	m, err := h.municipalities.Get(c.Request.Context(), id)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"municipality": m})
}

// POST /municipalities
func (h *MunicipalityHandler) Create(c *gin.Context) {
	var req services.MunicipalityInput
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.municipalities.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"municipality": m})
}

// PATCH /municipalities/:id
func (h *MunicipalityHandler) Update(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.MunicipalityUpdate
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.municipalities.Update(c.Request.Context(), identity(c), id, req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"municipality": m})
}

// DELETE /municipalities/:id
func (h *MunicipalityHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.municipalities.Delete(c.Request.Context(), identity(c), id); err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type assignManagerRequest struct {
	ManagerID uuid.UUID `json:"manager_id"`
}

// POST /municipalities/:id/manager
func (h *MunicipalityHandler) AssignManager(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req assignManagerRequest
	if !bindJSON(c, &req) {
		return
	}
	m, err := h.municipalities.AssignManager(c.Request.Context(), identity(c), id, req.ManagerID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"municipality": m})
}
