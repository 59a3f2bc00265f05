package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/stats"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type CollectionQuery struct {
	Window stats.Window
	Page
}

// WasteCollectionService reads collection records. Records are written only by
// ServiceRequestService.Complete.
type WasteCollectionService interface {
	ListForCollector(ctx context.Context, id auth.Identity, q CollectionQuery) ([]*collection.WasteCollection, int64, error)
	ListForHousehold(ctx context.Context, id auth.Identity, q CollectionQuery) ([]*collection.WasteCollection, int64, error)
	ListForMunicipality(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q CollectionQuery) ([]*collection.WasteCollection, int64, error)
	GetForRequest(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.WasteCollection, error)
}

type WasteCollectionServiceDeps struct {
	Log         *logger.Logger
	Collections repos.WasteCollectionRepo
	Requests    repos.ServiceRequestRepo
	Users       repos.UserRepo
}

type wasteCollectionService struct {
	log   *logger.Logger
	deps  WasteCollectionServiceDeps
	scope scoper
}

func NewWasteCollectionService(deps WasteCollectionServiceDeps) WasteCollectionService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	return &wasteCollectionService{
		log:   deps.Log.With("service", "WasteCollectionService"),
		deps:  deps,
		scope: scoper{users: deps.Users},
	}
}

func (s *wasteCollectionService) list(ctx context.Context, op string, f repos.CollectionFilter, q CollectionQuery) ([]*collection.WasteCollection, int64, error) {
	w := q.Window
	if !w.Start.IsZero() && !w.End.IsZero() && !w.Start.Before(w.End) {
		return nil, 0, domainagg.FieldError(op, "start", "start must be before end")
	}
	p := q.Page.Normalized()
	f.From, f.To, f.Limit, f.Offset = w.Start, w.End, p.Limit, p.Offset
	rows, total, err := s.deps.Collections.List(dbctx.Of(ctx), f)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *wasteCollectionService) ListForCollector(ctx context.Context, id auth.Identity, q CollectionQuery) ([]*collection.WasteCollection, int64, error) {
	const op = "WasteCollection.ListForCollector"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.CollectionFilter{CollectorID: id.UserID}, q)
}

func (s *wasteCollectionService) ListForHousehold(ctx context.Context, id auth.Identity, q CollectionQuery) ([]*collection.WasteCollection, int64, error) {
	const op = "WasteCollection.ListForHousehold"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.CollectionFilter{HouseholdID: id.UserID}, q)
}

func (s *wasteCollectionService) ListForMunicipality(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, q CollectionQuery) ([]*collection.WasteCollection, int64, error) {
	const op = "WasteCollection.ListForMunicipality"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.CollectionFilter{MunicipalityID: mid}, q)
}

func (s *wasteCollectionService) GetForRequest(ctx context.Context, id auth.Identity, requestID uuid.UUID) (*collection.WasteCollection, error) {
	const op = "WasteCollection.GetForRequest"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	var own uuid.UUID
	if id.Is(user.RoleManager) {
		var err error
		if own, err = s.scope.ownMunicipality(ctx, op, id); err != nil {
			return nil, err
		}
	}
	req, err := s.deps.Requests.GetByID(dbc, requestID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if req == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	switch {
	case id.IsAdmin():
	case id.Is(user.RoleManager):
		if req.MunicipalityID != own {
			return nil, domainagg.NotFound(op, "service request")
		}
	case req.HouseholdID == id.UserID:
	case req.CollectorID != nil && *req.CollectorID == id.UserID:
	default:
		return nil, domainagg.NotFound(op, "service request")
	}
	wc, err := s.deps.Collections.GetByServiceRequestID(dbc, requestID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if wc == nil {
		return nil, domainagg.NotFound(op, "waste collection")
	}
	return wc, nil
}
