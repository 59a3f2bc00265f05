package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/wastecollect-backend/internal/data/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

type CreateDisputeInput struct {
	Title            string     `json:"title" validate:"notblank,max=200"`
	Description      string     `json:"description" validate:"notblank,max=4000"`
	ServiceRequestID *uuid.UUID `json:"service_request_id"`
	PaymentID        *uuid.UUID `json:"payment_id"`
}

type DisputeService interface {
	Create(ctx context.Context, id auth.Identity, in CreateDisputeInput) (*support.Dispute, error)
	UpdateStatus(ctx context.Context, id auth.Identity, disputeID uuid.UUID, next support.Status, note string) (*support.Dispute, error)
	MarkRead(ctx context.Context, id auth.Identity, disputeID uuid.UUID) error
	Get(ctx context.Context, id auth.Identity, disputeID uuid.UUID) (*support.Dispute, error)
	List(ctx context.Context, id auth.Identity, statuses []support.Status, page Page) ([]*support.Dispute, int64, error)
}

type DisputeServiceDeps struct {
	Log           *logger.Logger
	Runner        dataagg.TxRunner
	Users         repos.UserRepo
	Disputes      repos.DisputeRepo
	Requests      repos.ServiceRequestRepo
	Payments      repos.PaymentRepo
	Notifications NotificationService
	Now           Clock
}

type disputeService struct {
	log      *logger.Logger
	runner   dataagg.TxRunner
	disputes repos.DisputeRepo
	reqs     repos.ServiceRequestRepo
	payments repos.PaymentRepo
	users    repos.UserRepo
	scope    scoper
	notify   NotificationService
	now      Clock
}

func NewDisputeService(deps DisputeServiceDeps) DisputeService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &disputeService{
		log:      deps.Log.With("service", "DisputeService"),
		runner:   deps.Runner,
		disputes: deps.Disputes,
		reqs:     deps.Requests,
		payments: deps.Payments,
		users:    deps.Users,
		scope:    scoper{users: deps.Users},
		notify:   deps.Notifications,
		now:      deps.Now,
	}
}

func (s *disputeService) Create(ctx context.Context, id auth.Identity, in CreateDisputeInput) (*support.Dispute, error) {
	const op = "Dispute.Create"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	dbc := dbctx.Of(ctx)
	raiser, err := s.users.GetByID(dbc, id.UserID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if raiser == nil {
		return nil, domainagg.NotFound(op, "user")
	}
	var municipalityID *uuid.UUID
	if mid, ok := raiser.MunicipalityID(); ok {
		municipalityID = &mid
	}
	if in.ServiceRequestID != nil {
		req, err := s.reqs.GetByID(dbc, *in.ServiceRequestID)
		if err != nil {
			return nil, repoErr(op, err)
		}
		if req == nil {
			return nil, domainagg.NotFound(op, "service request")
		}
		if !id.IsAdmin() && req.HouseholdID != id.UserID && !req.AssignedTo(id.UserID) {
			return nil, domainagg.Forbidden(op, "service request does not belong to you")
		}
		mid := req.MunicipalityID
		municipalityID = &mid
	}
	if in.PaymentID != nil {
		p, err := s.payments.GetByID(dbc, *in.PaymentID)
		if err != nil {
			return nil, repoErr(op, err)
		}
		if p == nil {
			return nil, domainagg.NotFound(op, "payment")
		}
		if !id.IsAdmin() && p.HouseholdID != id.UserID {
			return nil, domainagg.Forbidden(op, "payment does not belong to you")
		}
	}
	now := s.now()
	rows, err := s.disputes.Create(dbc, []*support.Dispute{{
		Title:            strings.TrimSpace(in.Title),
		Description:      strings.TrimSpace(in.Description),
		Status:           support.StatusOpen,
		IsRead:           false,
		RaisedByID:       id.UserID,
		ServiceRequestID: in.ServiceRequestID,
		PaymentID:        in.PaymentID,
		MunicipalityID:   municipalityID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}})
	if err != nil {
		return nil, repoErr(op, err)
	}
	return rows[0], nil
}

func (s *disputeService) UpdateStatus(ctx context.Context, id auth.Identity, disputeID uuid.UUID, next support.Status, note string) (*support.Dispute, error) {
	const op = "Dispute.UpdateStatus"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	next = support.Status(strings.ToUpper(strings.TrimSpace(string(next))))
	if !next.Valid() {
		return nil, domainagg.FieldError(op, "status", fmt.Sprintf("unknown dispute status %q", next))
	}
	scope, err := s.scope.municipality(ctx, op, id, uuid.Nil)
	if err != nil {
		return nil, err
	}

	var updated *support.Dispute
	var sent *notification.Notification
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		cur, err := s.disputes.LockByID(dbc, disputeID)
		if err != nil {
			return err
		}
		if cur == nil {
			return domainagg.NotFound(op, "dispute")
		}
		if !inMunicipality(cur, scope) {
			return domainagg.Forbidden(op, "dispute outside your scope")
		}
		if !cur.Status.CanMoveTo(next) {
			return domainagg.InvalidState(op, fmt.Sprintf("cannot move dispute from %s to %s", cur.Status, next))
		}
		updates := map[string]interface{}{
			"status":     string(next),
			"updated_at": s.now(),
		}
		if n := strings.TrimSpace(note); n != "" {
			updates["resolution_note"] = n
		}
		ok, err := s.disputes.UpdateIfStatus(dbc, cur.ID, cur.Status, updates)
		if err != nil {
			return err
		}
		if !ok {
			return domainagg.InvalidState(op, "dispute was updated concurrently")
		}
		if updated, err = s.disputes.GetByID(dbc, cur.ID); err != nil {
			return err
		}
		did := cur.ID
		msg := fmt.Sprintf("Your dispute %q is now %s.", cur.Title, next)
		if n := strings.TrimSpace(note); n != "" {
			msg += " " + n
		}
		sent, err = s.notify.Notify(dbc, NotifyInput{
			RecipientID:      cur.RaisedByID,
			Subject:          "Dispute updated",
			Message:          msg,
			Type:             notification.TypeDisputeUpdate,
			DisputeID:        &did,
			ServiceRequestID: cur.ServiceRequestID,
			PaymentID:        cur.PaymentID,
			Metadata:         map[string]any{"from": string(cur.Status), "to": string(next)},
		})
		return err
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.notify.Deliver(ctx, sent)
	return updated, nil
}

func (s *disputeService) MarkRead(ctx context.Context, id auth.Identity, disputeID uuid.UUID) error {
	const op = "Dispute.MarkRead"
	scope, err := s.scope.municipality(ctx, op, id, uuid.Nil)
	if err != nil {
		return err
	}
	dbc := dbctx.Of(ctx)
	d, err := s.disputes.GetByID(dbc, disputeID)
	if err != nil {
		return repoErr(op, err)
	}
	if d == nil {
		return domainagg.NotFound(op, "dispute")
	}
	if !inMunicipality(d, scope) {
		return domainagg.Forbidden(op, "dispute outside your scope")
	}
	if d.IsRead {
		return nil
	}
	return repoErr(op, s.disputes.UpdateFields(dbc, d.ID, map[string]interface{}{"is_read": true}))
}

func (s *disputeService) Get(ctx context.Context, id auth.Identity, disputeID uuid.UUID) (*support.Dispute, error) {
	const op = "Dispute.Get"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	d, err := s.disputes.GetByID(dbctx.Of(ctx), disputeID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if d == nil {
		return nil, domainagg.NotFound(op, "dispute")
	}
	if d.RaisedByID == id.UserID || id.IsAdmin() {
		return d, nil
	}
	if id.Role != user.RoleManager {
		return nil, domainagg.Forbidden(op, "not allowed to view this dispute")
	}
	scope, err := s.scope.municipality(ctx, op, id, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if !inMunicipality(d, scope) {
		return nil, domainagg.Forbidden(op, "dispute outside your scope")
	}
	return d, nil
}

// inMunicipality reports whether d falls inside scope. uuid.Nil is every municipality.
func inMunicipality(d *support.Dispute, scope uuid.UUID) bool {
	if scope == uuid.Nil {
		return true
	}
	return d.MunicipalityID != nil && *d.MunicipalityID == scope
}

// List returns every dispute to admins, the municipality's disputes to managers
// and only the caller's own to anyone else.
func (s *disputeService) List(ctx context.Context, id auth.Identity, statuses []support.Status, page Page) ([]*support.Dispute, int64, error) {
	const op = "Dispute.List"
	if err := requireIdentity(op, id); err != nil {
		return nil, 0, err
	}
	for _, st := range statuses {
		if !st.Valid() {
			return nil, 0, domainagg.FieldError(op, "status", fmt.Sprintf("unknown dispute status %q", st))
		}
	}
	page = page.Normalized()
	f := repos.DisputeFilter{Statuses: statuses, Limit: page.Limit, Offset: page.Offset}
	switch {
	case id.IsAdmin():
	case id.Role == user.RoleManager:
		mid, err := s.scope.municipality(ctx, op, id, uuid.Nil)
		if err != nil {
			return nil, 0, err
		}
		f.MunicipalityID = mid
	default:
		f.RaisedByID = id.UserID
	}
	rows, total, err := s.disputes.List(dbctx.Of(ctx), f)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}
