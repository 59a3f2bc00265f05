package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type RatingHandler struct {
	log     *logger.Logger
	ratings services.RatingService
}

func NewRatingHandler(log *logger.Logger, ratings services.RatingService) *RatingHandler {
	return &RatingHandler{log: log.With("handler", "RatingHandler"), ratings: ratings}
}

type rateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// POST /household/requests/:id/rate
func (h *RatingHandler) Rate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req rateRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.ratings.RateCollector(c.Request.Context(), identity(c), id, req.Rating, req.Comment)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"rating": r})
}

// GET /collector/ratings
func (h *RatingHandler) Mine(c *gin.Context) {
	h.respond(c, identity(c).UserID)
}

// GET /collectors/:id/ratings
func (h *RatingHandler) ForCollector(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, id)
}

func (h *RatingHandler) respond(c *gin.Context, collectorID uuid.UUID) {
	ctx := c.Request.Context()
	rows, total, err := h.ratings.ListForCollector(ctx, identity(c), collectorID, page(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	summary, err := h.ratings.Summary(ctx, collectorID)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	p := page(c).Normalized()
	response.RespondOK(c, gin.H{
		"items":   rows,
		"total":   total,
		"limit":   p.Limit,
		"offset":  p.Offset,
		"summary": summary,
	})
}
