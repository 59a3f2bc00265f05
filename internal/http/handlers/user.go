package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type UserHandler struct {
	log   *logger.Logger
	users services.UserService
}

func NewUserHandler(log *logger.Logger, users services.UserService) *UserHandler {
	return &UserHandler{log: log.With("handler", "UserHandler"), users: users}
}

// GET /me
func (h *UserHandler) GetMe(c *gin.Context) {
	u, err := h.users.GetMe(c.Request.Context(), identity(c))
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// PATCH /me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req services.UpdateProfileInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// GET /admin/users?role=&municipality_id=&enabled=
func (h *UserHandler) List(c *gin.Context) {
	mid, ok := queryID(c, "municipality_id")
	if !ok {
		return
	}
	q := services.UserQuery{
		Role:           user.Role(c.Query("role")),
		MunicipalityID: mid,
		Enabled:        queryBool(c, "enabled"),
		Page:           page(c),
	}
	rows, total, err := h.users.List(c.Request.Context(), identity(c), q)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /admin/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	u, err := h.users.Get(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// POST /admin/staff
func (h *UserHandler) CreateStaff(c *gin.Context) {
	var req services.CreateStaffInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.CreateStaff(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// PATCH /admin/users/:id/status
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.UserStatusInput
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.users.UpdateStatus(c.Request.Context(), identity(c), id, req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}
