package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type PaymentHandler struct {
	log      *logger.Logger
	payments services.PaymentService
}

func NewPaymentHandler(log *logger.Logger, payments services.PaymentService) *PaymentHandler {
	return &PaymentHandler{log: log.With("handler", "PaymentHandler"), payments: payments}
}

// POST /payment
func (h *PaymentHandler) Create(c *gin.Context) {
	var req services.CreatePaymentInput
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"payment": p})
}

// GET /payment
// Households see their own payments, collectors those for their collections,
// staff everything in scope (optionally ?municipality_id=).
func (h *PaymentHandler) List(c *gin.Context) {
	id := identity(c)
	ctx := c.Request.Context()
	var (
		rows  []*billing.Payment
		total int64
		err   error
	)
	switch id.Role {
	case user.RoleHousehold:
		rows, total, err = h.payments.ListForHousehold(ctx, id, page(c))
	case user.RoleCollector:
		rows, total, err = h.payments.ListForCollector(ctx, id, page(c))
	default:
		mid, ok := queryID(c, "municipality_id")
		if !ok {
			return
		}
		rows, total, err = h.payments.ListAll(ctx, id, mid, page(c))
	}
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /payment/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.payments.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"payment": p})
}

type paymentStatusRequest struct {
	Status billing.Status `json:"status" binding:"required"`
}

// PATCH /payment/:id/status
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	p, err := h.payments.UpdateStatus(c.Request.Context(), identity(c), id, req.Status)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"payment": p})
}
