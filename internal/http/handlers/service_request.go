package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/http/response"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/services"
)

type ServiceRequestHandler struct {
	log         *logger.Logger
	requests    services.ServiceRequestService
	collections services.WasteCollectionService
}

func NewServiceRequestHandler(log *logger.Logger, requests services.ServiceRequestService, collections services.WasteCollectionService) *ServiceRequestHandler {
	return &ServiceRequestHandler{
		log:         log.With("handler", "ServiceRequestHandler"),
		requests:    requests,
		collections: collections,
	}
}

// requestQuery reads ?status=PENDING,ACCEPTED&waste_type=&start=&end=.
func requestQuery(c *gin.Context) (services.RequestQuery, bool) {
	w, ok := window(c)
	if !ok {
		return services.RequestQuery{}, false
	}
	q := services.RequestQuery{
		WasteType: collection.WasteType(strings.ToUpper(strings.TrimSpace(c.Query("waste_type")))),
		From:      w.Start,
		To:        w.End,
		Page:      page(c),
	}
	for _, s := range strings.Split(c.Query("status"), ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			q.Statuses = append(q.Statuses, collection.Status(s))
		}
	}
	return q, true
}

func (h *ServiceRequestHandler) respondList(c *gin.Context, fn func(services.RequestQuery) ([]*collection.ServiceRequest, int64, error)) {
	q, ok := requestQuery(c)
	if !ok {
		return
	}
	rows, total, err := fn(q)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

func (h *ServiceRequestHandler) respondOne(c *gin.Context, req *collection.ServiceRequest, err error) {
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"service_request": req})
}

// POST /service-requests
func (h *ServiceRequestHandler) Create(c *gin.Context) {
	var req services.CreateServiceRequestInput
	if !bindJSON(c, &req) {
		return
	}
	created, err := h.requests.Create(c.Request.Context(), identity(c), req)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondCreated(c, gin.H{"service_request": created})
}

// GET /service-requests
func (h *ServiceRequestHandler) ListOwn(c *gin.Context) {
	h.respondList(c, func(q services.RequestQuery) ([]*collection.ServiceRequest, int64, error) {
		return h.requests.ListForHousehold(c.Request.Context(), identity(c), q)
	})
}

// GET /service-requests/:id
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.requests.Get(c.Request.Context(), identity(c), id)
	h.respondOne(c, req, err)
}

type reasonRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

// optionalJSON binds a body only when one was sent.
func optionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dst)
}

// POST /service-requests/:id/cancel
func (h *ServiceRequestHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body reasonRequest
	if !optionalJSON(c, &body) {
		return
	}
	req, err := h.requests.Cancel(c.Request.Context(), identity(c), id, body.Reason)
	h.respondOne(c, req, err)
}

// GET /collector/requests/available
func (h *ServiceRequestHandler) ListAvailable(c *gin.Context) {
	h.respondList(c, func(q services.RequestQuery) ([]*collection.ServiceRequest, int64, error) {
		return h.requests.ListAvailable(c.Request.Context(), identity(c), q)
	})
}

// GET /collector/requests
func (h *ServiceRequestHandler) ListAssigned(c *gin.Context) {
	h.respondList(c, func(q services.RequestQuery) ([]*collection.ServiceRequest, int64, error) {
		return h.requests.ListForCollector(c.Request.Context(), identity(c), q)
	})
}

// POST /collector/requests/:id/accept
func (h *ServiceRequestHandler) Accept(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body reasonRequest
	if !optionalJSON(c, &body) {
		return
	}
	req, err := h.requests.Accept(c.Request.Context(), identity(c), id, body.Note)
	h.respondOne(c, req, err)
}

// POST /collector/requests/:id/reject
func (h *ServiceRequestHandler) Reject(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body reasonRequest
	if !optionalJSON(c, &body) {
		return
	}
	req, err := h.requests.Reject(c.Request.Context(), identity(c), id, body.Reason)
	h.respondOne(c, req, err)
}

// POST /collector/requests/:id/start
func (h *ServiceRequestHandler) Start(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	req, err := h.requests.Start(c.Request.Context(), identity(c), id)
	h.respondOne(c, req, err)
}

// POST /collector/requests/:id/complete
func (h *ServiceRequestHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body services.CompleteInput
	if !optionalJSON(c, &body) {
		return
	}
	req, wc, err := h.requests.Complete(c.Request.Context(), identity(c), id, body)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"service_request": req, "waste_collection": wc})
}

type assignRequest struct {
	CollectorID uuid.UUID `json:"collector_id"`
}

// POST /admin/requests/:id/assign
func (h *ServiceRequestHandler) Assign(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var body assignRequest
	if !bindJSON(c, &body) {
		return
	}
	req, err := h.requests.AssignCollector(c.Request.Context(), identity(c), id, body.CollectorID)
	h.respondOne(c, req, err)
}

// GET /municipalities/:id/requests
func (h *ServiceRequestHandler) ListForMunicipality(c *gin.Context) {
	mid, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondList(c, func(q services.RequestQuery) ([]*collection.ServiceRequest, int64, error) {
		return h.requests.ListForMunicipality(c.Request.Context(), identity(c), mid, q)
	})
}

func (h *ServiceRequestHandler) respondCollections(c *gin.Context, fn func(services.CollectionQuery) ([]*collection.WasteCollection, int64, error)) {
	w, ok := window(c)
	if !ok {
		return
	}
	rows, total, err := fn(services.CollectionQuery{Window: w, Page: page(c)})
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	list(c, rows, total)
}

// GET /household/collections
func (h *ServiceRequestHandler) HouseholdCollections(c *gin.Context) {
	h.respondCollections(c, func(q services.CollectionQuery) ([]*collection.WasteCollection, int64, error) {
		return h.collections.ListForHousehold(c.Request.Context(), identity(c), q)
	})
}

// GET /collector/collections
func (h *ServiceRequestHandler) CollectorCollections(c *gin.Context) {
	h.respondCollections(c, func(q services.CollectionQuery) ([]*collection.WasteCollection, int64, error) {
		return h.collections.ListForCollector(c.Request.Context(), identity(c), q)
	})
}

// GET /municipalities/:id/collections
func (h *ServiceRequestHandler) MunicipalityCollections(c *gin.Context) {
	mid, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.respondCollections(c, func(q services.CollectionQuery) ([]*collection.WasteCollection, int64, error) {
		return h.collections.ListForMunicipality(c.Request.Context(), identity(c), mid, q)
	})
}

// GET /service-requests/:id/collection
func (h *ServiceRequestHandler) CollectionForRequest(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	wc, err := h.collections.GetForRequest(c.Request.Context(), identity(c), id)
	if err != nil {
		response.RespondError(c, h.log, err)
		return
	}
	response.RespondOK(c, gin.H{"waste_collection": wc})
}
