package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/observability"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

type CreateServiceRequestInput struct {
	Description     string               `json:"description" validate:"notblank,max=2000"`
	WasteType       collection.WasteType `json:"waste_type" validate:"required,waste_type"`
	EstimatedVolume float64              `json:"estimated_volume" validate:"gt=0"`
	PreferredDate   *time.Time           `json:"preferred_date"`
	// Address and Phone default to the household's own when blank.
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
}

type CompleteInput struct {
	Note         string    `json:"note" validate:"max=2000"`
	ActualWeight float64   `json:"actual_weight" validate:"gte=0"`
	Latitude     float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64   `json:"longitude" validate:"gte=-180,lte=180"`
	CollectedAt  time.Time `json:"collected_at"`
}

// RequestQuery narrows request listings. Zero values mean "any".
type RequestQuery struct {
	Statuses  []collection.Status
	WasteType collection.WasteType
	From      time.Time
	To        time.Time
	Page      Page
}

type ServiceRequestService interface {
	Create(ctx context.Context, id auth.Identity, in CreateServiceRequestInput) (*collection.ServiceRequest, error)
	Accept(ctx context.Context, id auth.Identity, requestID uuid.UUID, note string) (*collection.ServiceRequest, error)
	Reject(ctx context.Context, id auth.Identity, requestID uuid.UUID, reason string) (*collection.ServiceRequest, error)
	Start(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.ServiceRequest, error)
	Complete(ctx context.Context, id auth.Identity, requestID uuid.UUID, in CompleteInput) (*collection.ServiceRequest, *collection.WasteCollection, error)
	Cancel(ctx context.Context, id auth.Identity, requestID uuid.UUID, reason string) (*collection.ServiceRequest, error)
	AssignCollector(ctx context.Context, id auth.Identity, requestID, collectorID uuid.UUID) (*collection.ServiceRequest, error)

	Get(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.ServiceRequest, error)
	ListForHousehold(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error)
	ListForCollector(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error)
	ListAvailable(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error)
	ListForMunicipality(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q RequestQuery) ([]*collection.ServiceRequest, int64, error)
}

type ServiceRequestServiceDeps struct {
	Log           *logger.Logger
	Aggregate     domainagg.ServiceRequestAggregate
	Requests      repos.ServiceRequestRepo
	Users         repos.UserRepo
	Notifications NotificationService
	Realtime      RealtimeNotifier
	Metrics       *observability.Metrics
}

type serviceRequestService struct {
	log     *logger.Logger
	agg     domainagg.ServiceRequestAggregate
	reqs    repos.ServiceRequestRepo
	users   repos.UserRepo
	notify  NotificationService
	live    RealtimeNotifier
	metrics *observability.Metrics
	scope   scoper
}

func NewServiceRequestService(deps ServiceRequestServiceDeps) ServiceRequestService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Realtime == nil {
		deps.Realtime = NewRealtimeNotifier(nil)
	}
	return &serviceRequestService{
		log:     deps.Log.With("service", "ServiceRequestService"),
		agg:     deps.Aggregate,
		reqs:    deps.Requests,
		users:   deps.Users,
		notify:  deps.Notifications,
		live:    deps.Realtime,
		metrics: deps.Metrics,
		scope:   scoper{users: deps.Users},
	}
}

func (s *serviceRequestService) loadUser(ctx context.Context, op string, userID uuid.UUID, what string) (*user.User, error) {
	u, err := s.users.GetByID(dbctx.Of(ctx), userID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if u == nil {
		return nil, domainagg.Validation(op, "unknown "+what)
	}
	return u, nil
}

func (s *serviceRequestService) Create(ctx context.Context, id auth.Identity, in CreateServiceRequestInput) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Create"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, err
	}
	in.WasteType = collection.WasteType(strings.ToUpper(strings.TrimSpace(string(in.WasteType))))
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	household, err := s.loadUser(ctx, op, id.UserID, "household")
	if err != nil {
		return nil, err
	}
	if household.Role != user.RoleHousehold {
		return nil, domainagg.Validation(op, "unknown household")
	}
	munID, ok := household.MunicipalityID()
	if !ok {
		return nil, domainagg.Validation(op, "household has no municipality")
	}
	address := firstNonBlank(in.Address, household.Address)
	phone := firstNonBlank(in.Phone, household.Phone)
	if address == "" {
		return nil, domainagg.FieldError(op, "address", "address is required")
	}
	if phone == "" {
		return nil, domainagg.FieldError(op, "phone", "phone is required")
	}

	enabled := true
	collectors, err := s.users.ListIDs(dbctx.Of(ctx), repos.UserFilter{Role: user.RoleCollector, MunicipalityID: munID, Enabled: &enabled})
	if err != nil {
		return nil, repoErr(op, err)
	}

	req := &collection.ServiceRequest{
		Description:     strings.TrimSpace(in.Description),
		WasteType:       in.WasteType,
		EstimatedVolume: in.EstimatedVolume,
		PreferredDate:   in.PreferredDate,
		Address:         address,
		Phone:           phone,
		HouseholdID:     household.ID,
		MunicipalityID:  munID,
	}
	res, err := s.agg.Create(ctx, domainagg.CreateRequestInput{
		Request: req,
		Notify: func(created *collection.ServiceRequest) []domainagg.NotificationDraft {
			drafts := make([]domainagg.NotificationDraft, 0, len(collectors))
			for _, cid := range collectors {
				drafts = append(drafts, domainagg.NotificationDraft{
					RecipientID: cid,
					Subject:     "New collection request",
					Message:     fmt.Sprintf("A new %s pickup was requested at %s.", strings.ToLower(string(created.WasteType)), created.Address),
					Type:        notification.TypeInfo,
				})
			}
			return drafts
		},
	})
	if err != nil {
		return nil, err
	}
	s.notify.Deliver(ctx, res.Notifications...)
	return res.Request, nil
}

func (s *serviceRequestService) Accept(ctx context.Context, id auth.Identity, requestID uuid.UUID, note string) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Accept"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, err
	}
	collector, err := s.activeCollector(ctx, op, id.UserID)
	if err != nil {
		return nil, err
	}
	munID, _ := collector.MunicipalityID()
	cid := collector.ID
	return s.transition(ctx, op, transitionPlan{
		requestID: requestID,
		event:     collection.EventAccept,
		actor:     id,
		collector: &cid,
		comment:   optionalText(note),
		authorize: func(cur *collection.ServiceRequest) error {
			if cur.MunicipalityID != munID {
				return domainagg.Forbidden(op, "request is outside your municipality")
			}
			return nil
		},
		notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			return []domainagg.NotificationDraft{householdDraft(updated,
				"Request accepted",
				fmt.Sprintf("%s accepted your collection request.", displayName(collector)))}
		},
	})
}

func (s *serviceRequestService) Reject(ctx context.Context, id auth.Identity, requestID uuid.UUID, reason string) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Reject"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, err
	}
	collector, err := s.activeCollector(ctx, op, id.UserID)
	if err != nil {
		return nil, err
	}
	munID, _ := collector.MunicipalityID()
	return s.transition(ctx, op, transitionPlan{
		requestID: requestID,
		event:     collection.EventReject,
		actor:     id,
		comment:   optionalText(reason),
		authorize: func(cur *collection.ServiceRequest) error {
			switch cur.Status {
			case collection.StatusPending:
				if cur.MunicipalityID != munID {
					return domainagg.Forbidden(op, "request is outside your municipality")
				}
			case collection.StatusAccepted:
				if !cur.AssignedTo(id.UserID) {
					return domainagg.Forbidden(op, "request is assigned to another collector")
				}
			default:
				return domainagg.InvalidState(op, fmt.Sprintf("cannot reject a request that is %s", cur.Status))
			}
			return nil
		},
		notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			msg := "Your collection request was rejected."
			if r := strings.TrimSpace(reason); r != "" {
				msg += " Reason: " + r
			}
			return []domainagg.NotificationDraft{householdDraft(updated, "Request rejected", msg)}
		},
	})
}

func (s *serviceRequestService) Start(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Start"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, err
	}
	return s.transition(ctx, op, transitionPlan{
		requestID: requestID,
		event:     collection.EventStart,
		actor:     id,
		authorize: assignedCollectorOnly(op, id.UserID),
		notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			return []domainagg.NotificationDraft{householdDraft(updated,
				"Collection on its way",
				"Your collector has started the pickup.")}
		},
	})
}

func (s *serviceRequestService) Complete(ctx context.Context, id auth.Identity, requestID uuid.UUID, in CompleteInput) (*collection.ServiceRequest, *collection.WasteCollection, error) {
	const op = "ServiceRequest.Complete"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, nil, err
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, nil, err
	}
	res, err := s.agg.Complete(ctx, domainagg.CompleteRequestInput{
		RequestID:    requestID,
		ActorID:      id.UserID,
		Authorize:    assignedCollectorOnly(op, id.UserID),
		Comment:      optionalText(in.Note),
		ActualWeight: in.ActualWeight,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		CollectedAt:  in.CollectedAt,
		Notify: func(updated *collection.ServiceRequest, wc *collection.WasteCollection) []domainagg.NotificationDraft {
			d := householdDraft(updated,
				"Collection completed",
				fmt.Sprintf("Your waste was collected (%.1f kg). You can now rate the service.", wc.ActualWeight))
			d.Metadata = map[string]any{"waste_collection_id": wc.ID.String()}
			return []domainagg.NotificationDraft{d}
		},
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.IncTransition(collection.EventComplete, collection.StatusInProgress, res.Request.Status)
	s.afterWrite(ctx, res.Request, res.Notifications)
	return res.Request, res.Collection, nil
}

func (s *serviceRequestService) Cancel(ctx context.Context, id auth.Identity, requestID uuid.UUID, reason string) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Cancel"
	if err := requireRole(op, id, user.RoleHousehold, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	var managerMun uuid.UUID
	if id.Role == user.RoleManager {
		mid, err := s.scope.ownMunicipality(ctx, op, id)
		if err != nil {
			return nil, err
		}
		managerMun = mid
	}
	return s.transition(ctx, op, transitionPlan{
		requestID: requestID,
		event:     collection.EventCancel,
		actor:     id,
		comment:   optionalText(reason),
		authorize: func(cur *collection.ServiceRequest) error {
			switch id.Role {
			case user.RoleHousehold:
				if cur.HouseholdID != id.UserID {
					return domainagg.Forbidden(op, "only the requesting household may cancel")
				}
			case user.RoleManager:
				if cur.MunicipalityID != managerMun {
					return domainagg.Forbidden(op, "request is outside your municipality")
				}
			}
			return nil
		},
		notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			msg := "The collection request was cancelled."
			if r := strings.TrimSpace(reason); r != "" {
				msg += " Reason: " + r
			}
			var drafts []domainagg.NotificationDraft
			if updated.CollectorID != nil {
				drafts = append(drafts, domainagg.NotificationDraft{
					RecipientID: *updated.CollectorID,
					Subject:     "Request cancelled",
					Message:     msg,
					Type:        notification.TypeServiceRequestUpdate,
				})
			}
			if id.UserID != updated.HouseholdID {
				drafts = append(drafts, householdDraft(updated, "Request cancelled", msg))
			}
			return drafts
		},
	})
}

func (s *serviceRequestService) AssignCollector(ctx context.Context, id auth.Identity, requestID, collectorID uuid.UUID) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.AssignCollector"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	collector, err := s.activeCollector(ctx, op, collectorID)
	if err != nil {
		return nil, err
	}
	collectorMun, _ := collector.MunicipalityID()
	var managerMun uuid.UUID
	if id.Role == user.RoleManager {
		if managerMun, err = s.scope.ownMunicipality(ctx, op, id); err != nil {
			return nil, err
		}
	}
	cid := collector.ID
	var previous *uuid.UUID
	return s.transition(ctx, op, transitionPlan{
		requestID: requestID,
		event:     collection.EventAssign,
		actor:     id,
		collector: &cid,
		authorize: func(cur *collection.ServiceRequest) error {
			if managerMun != uuid.Nil && cur.MunicipalityID != managerMun {
				return domainagg.Forbidden(op, "request is outside your municipality")
			}
			if cur.MunicipalityID != collectorMun {
				return domainagg.Validation(op, "collector serves a different municipality")
			}
			previous = cur.CollectorID
			return nil
		},
		notify: func(updated *collection.ServiceRequest) []domainagg.NotificationDraft {
			drafts := []domainagg.NotificationDraft{
				{
					RecipientID: cid,
					Subject:     "Request assigned to you",
					Message:     fmt.Sprintf("You were assigned a %s pickup at %s.", strings.ToLower(string(updated.WasteType)), updated.Address),
					Type:        notification.TypeServiceRequestUpdate,
				},
				householdDraft(updated, "Collector assigned", fmt.Sprintf("%s will handle your request.", displayName(collector))),
			}
			if previous != nil && *previous != cid {
				drafts = append(drafts, domainagg.NotificationDraft{
					RecipientID: *previous,
					Subject:     "Request reassigned",
					Message:     "A request you accepted was reassigned to another collector.",
					Type:        notification.TypeServiceRequestUpdate,
				})
			}
			return drafts
		},
	})
}

type transitionPlan struct {
	requestID uuid.UUID
	event     string
	actor     auth.Identity
	collector *uuid.UUID
	comment   *string
	authorize func(*collection.ServiceRequest) error
	notify    func(*collection.ServiceRequest) []domainagg.NotificationDraft
}

func (s *serviceRequestService) transition(ctx context.Context, op string, plan transitionPlan) (*collection.ServiceRequest, error) {
	if plan.requestID == uuid.Nil {
		return nil, domainagg.FieldError(op, "id", "request id is required")
	}
	res, err := s.agg.Transition(ctx, domainagg.TransitionInput{
		RequestID:   plan.requestID,
		Event:       plan.event,
		ActorID:     plan.actor.UserID,
		Authorize:   plan.authorize,
		CollectorID: plan.collector,
		Comment:     plan.comment,
		Notify:      plan.notify,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncTransition(plan.event, res.From, res.Request.Status)
	s.afterWrite(ctx, res.Request, res.Notifications)
	return res.Request, nil
}

func (s *serviceRequestService) afterWrite(ctx context.Context, req *collection.ServiceRequest, rows []*notification.Notification) {
	s.notify.Deliver(ctx, rows...)
	s.live.RequestUpdated(ctx, req.HouseholdID, req)
	if req.CollectorID != nil {
		s.live.RequestUpdated(ctx, *req.CollectorID, req)
	}
}

func (s *serviceRequestService) activeCollector(ctx context.Context, op string, userID uuid.UUID) (*user.User, error) {
	u, err := s.users.GetByID(dbctx.Of(ctx), userID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if u == nil || u.Role != user.RoleCollector {
		return nil, domainagg.NotFound(op, "collector")
	}
	if !u.CanSignIn() {
		return nil, domainagg.Forbidden(op, "collector account is disabled")
	}
	if _, ok := u.MunicipalityID(); !ok {
		return nil, domainagg.Validation(op, "collector has no municipality")
	}
	return u, nil
}

func (s *serviceRequestService) Get(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.ServiceRequest, error) {
	const op = "ServiceRequest.Get"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	req, err := s.reqs.GetByID(dbctx.Of(ctx), requestID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if req == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	if err := s.canView(ctx, op, id, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (s *serviceRequestService) canView(ctx context.Context, op string, id auth.Identity, req *collection.ServiceRequest) error {
	switch id.Role {
	case user.RoleAdmin:
		return nil
	case user.RoleHousehold:
		if req.HouseholdID == id.UserID {
			return nil
		}
	case user.RoleCollector:
		if req.AssignedTo(id.UserID) {
			return nil
		}
		if req.Status == collection.StatusPending {
			if mid, err := s.scope.ownMunicipality(ctx, op, id); err == nil && mid == req.MunicipalityID {
				return nil
			}
		}
	case user.RoleManager:
		mid, err := s.scope.ownMunicipality(ctx, op, id)
		if err != nil {
			return err
		}
		if mid == req.MunicipalityID {
			return nil
		}
	}
	return domainagg.Forbidden(op, "not allowed to view this request")
}

func (s *serviceRequestService) list(ctx context.Context, op string, f repos.RequestFilter, q RequestQuery) ([]*collection.ServiceRequest, int64, error) {
	for _, st := range q.Statuses {
		if !st.Valid() {
			return nil, 0, domainagg.FieldError(op, "status", fmt.Sprintf("unknown status %q", st))
		}
	}
	if q.WasteType != "" && !q.WasteType.Valid() {
		return nil, 0, domainagg.FieldError(op, "waste_type", fmt.Sprintf("unknown waste type %q", q.WasteType))
	}
	page := q.Page.Normalized()
	if len(f.Statuses) == 0 {
		f.Statuses = q.Statuses
	}
	f.WasteType = q.WasteType
	f.CreatedFrom = q.From
	f.CreatedTo = q.To
	f.Limit = page.Limit
	f.Offset = page.Offset
	rows, total, err := s.reqs.List(dbctx.Of(ctx), f)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *serviceRequestService) ListForHousehold(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error) {
	const op = "ServiceRequest.ListForHousehold"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.RequestFilter{HouseholdID: id.UserID}, q)
}

func (s *serviceRequestService) ListForCollector(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error) {
	const op = "ServiceRequest.ListForCollector"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.RequestFilter{CollectorID: id.UserID}, q)
}

// ListAvailable lists unassigned PENDING requests in the collector's municipality, oldest first.
func (s *serviceRequestService) ListAvailable(ctx context.Context, id auth.Identity, q RequestQuery) ([]*collection.ServiceRequest, int64, error) {
	const op = "ServiceRequest.ListAvailable"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, 0, err
	}
	mid, err := s.scope.ownMunicipality(ctx, op, id)
	if err != nil {
		return nil, 0, err
	}
	q.Statuses = nil
	return s.list(ctx, op, repos.RequestFilter{
		MunicipalityID: mid,
		Statuses:       []collection.Status{collection.StatusPending},
		Unassigned:     true,
		OldestFirst:    true,
	}, q)
}

func (s *serviceRequestService) ListForMunicipality(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q RequestQuery) ([]*collection.ServiceRequest, int64, error) {
	const op = "ServiceRequest.ListForMunicipality"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.RequestFilter{MunicipalityID: mid}, q)
}

func assignedCollectorOnly(op string, userID uuid.UUID) func(*collection.ServiceRequest) error {
	return func(cur *collection.ServiceRequest) error {
		if !cur.AssignedTo(userID) {
			return domainagg.Forbidden(op, "request is not assigned to you")
		}
		return nil
	}
}

func householdDraft(req *collection.ServiceRequest, subject, message string) domainagg.NotificationDraft {
	return domainagg.NotificationDraft{
		RecipientID: req.HouseholdID,
		Subject:     subject,
		Message:     message,
		Type:        notification.TypeServiceRequestUpdate,
		Metadata:    map[string]any{"status": string(req.Status)},
	}
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func displayName(u *user.User) string {
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return "A collector"
	}
	return u.Name
}
