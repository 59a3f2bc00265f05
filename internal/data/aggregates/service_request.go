package aggregates

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"gorm.io/datatypes"
)

const serviceRequestTable = "service_request"

type ServiceRequestAggregateDeps struct {
	Base BaseDeps

	Requests      repos.ServiceRequestRepo
	Collections   repos.WasteCollectionRepo
	Notifications repos.NotificationRepo
}

type serviceRequestAggregate struct {
	deps ServiceRequestAggregateDeps
}

func NewServiceRequestAggregate(deps ServiceRequestAggregateDeps) domainagg.ServiceRequestAggregate {
	deps.Base = deps.Base.withDefaults()
	return &serviceRequestAggregate{deps: deps}
}

func (a *serviceRequestAggregate) configured(op string) error {
	if a.deps.Requests == nil || a.deps.Collections == nil || a.deps.Notifications == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "service request aggregate repos not configured", nil)
	}
	return nil
}

func (a *serviceRequestAggregate) Create(ctx context.Context, in domainagg.CreateRequestInput) (domainagg.CreateRequestResult, error) {
	const op = "Collection.ServiceRequest.Create"
	var out domainagg.CreateRequestResult
	if err := a.configured(op); err != nil {
		return out, err
	}
	if in.Request == nil {
		return out, domainagg.Validation(op, "missing request")
	}
	req := in.Request
	req.Status = collection.StatusPending
	req.CollectorID = nil
	req.Version = 0

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		created, err := a.deps.Requests.Create(dbc, []*collection.ServiceRequest{req})
		if err != nil {
			return err
		}
		out.Request = created[0]
		if in.Notify != nil {
			out.Notifications, err = a.insertDrafts(dbc, out.Request.ID, in.Notify(out.Request))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domainagg.CreateRequestResult{}, err
	}
	return out, nil
}

func (a *serviceRequestAggregate) Transition(ctx context.Context, in domainagg.TransitionInput) (domainagg.TransitionResult, error) {
	const op = "Collection.ServiceRequest.Transition"
	var out domainagg.TransitionResult
	if err := a.configured(op); err != nil {
		return out, err
	}
	if in.RequestID == uuid.Nil {
		return out, domainagg.Validation(op, "missing request id")
	}
	event := strings.TrimSpace(in.Event)
	if event == collection.EventComplete {
		return out, domainagg.Validation(op, "complete must go through Complete")
	}

	err := executeWrite(ctx, a.deps.Base, op+"."+event, func(dbc dbctx.Context) error {
		current, err := a.lock(dbc, op, in.RequestID, in.Authorize)
		if err != nil {
			return err
		}
		next, err := collection.Next(current.Status, event)
		if err != nil {
			return transitionError(op, err)
		}

		updates := map[string]any{
			"status":     string(next),
			"updated_at": a.deps.Base.Now(),
		}
		if in.CollectorID != nil {
			updates["collector_id"] = *in.CollectorID
		}
		if in.Comment != nil {
			updates["comment"] = *in.Comment
		}
		if event == collection.EventCancel && in.ActorID != uuid.Nil {
			updates["cancelled_by"] = in.ActorID
		}
		updated, err := a.casUpdate(dbc, op, current, updates)
		if err != nil {
			return err
		}
		out.Request = updated
		out.From = current.Status
		if in.Notify != nil {
			out.Notifications, err = a.insertDrafts(dbc, updated.ID, in.Notify(updated))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domainagg.TransitionResult{}, err
	}
	return out, nil
}

// Complete moves the request to COMPLETED and records the pickup in one transaction.
func (a *serviceRequestAggregate) Complete(ctx context.Context, in domainagg.CompleteRequestInput) (domainagg.CompleteRequestResult, error) {
	const op = "Collection.ServiceRequest.Complete"
	var out domainagg.CompleteRequestResult
	if err := a.configured(op); err != nil {
		return out, err
	}
	if in.RequestID == uuid.Nil {
		return out, domainagg.Validation(op, "missing request id")
	}
	if in.ActualWeight < 0 {
		return out, domainagg.FieldError(op, "actual_weight", "actual weight must not be negative")
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		current, err := a.lock(dbc, op, in.RequestID, in.Authorize)
		if err != nil {
			return err
		}
		next, err := collection.Next(current.Status, collection.EventComplete)
		if err != nil {
			return transitionError(op, err)
		}
		if current.CollectorID == nil {
			return domainagg.InvalidState(op, "request has no assigned collector")
		}

		now := a.deps.Base.Now()
		updates := map[string]any{
			"status":     string(next),
			"updated_at": now,
		}
		if in.Comment != nil {
			updates["comment"] = *in.Comment
		}
		updated, err := a.casUpdate(dbc, op, current, updates)
		if err != nil {
			return err
		}

		collectedAt := in.CollectedAt.UTC()
		if in.CollectedAt.IsZero() {
			collectedAt = now
		}
		wc := &collection.WasteCollection{
			ServiceRequestID: updated.ID,
			CollectorID:      *updated.CollectorID,
			HouseholdID:      updated.HouseholdID,
			MunicipalityID:   updated.MunicipalityID,
			WasteType:        updated.WasteType,
			CollectionDate:   collectedAt,
			ActualWeight:     in.ActualWeight,
			Latitude:         in.Latitude,
			Longitude:        in.Longitude,
			Address:          updated.Address,
			Status:           collection.StatusCompleted,
		}
		if in.Comment != nil {
			wc.CollectorComment = *in.Comment
		}
		created, err := a.deps.Collections.Create(dbc, []*collection.WasteCollection{wc})
		if err != nil {
			return err
		}

		out.Request = updated
		out.Collection = created[0]
		if in.Notify != nil {
			out.Notifications, err = a.insertDrafts(dbc, updated.ID, in.Notify(updated, out.Collection))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domainagg.CompleteRequestResult{}, err
	}
	return out, nil
}

func (a *serviceRequestAggregate) lock(dbc dbctx.Context, op string, id uuid.UUID, authorize func(*collection.ServiceRequest) error) (*collection.ServiceRequest, error) {
	current, err := a.deps.Requests.LockByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	if authorize != nil {
		if err := authorize(current); err != nil {
			return nil, err
		}
	}
	return current, nil
}

// casUpdate writes updates only if nobody moved the row since it was read.
func (a *serviceRequestAggregate) casUpdate(dbc dbctx.Context, op string, current *collection.ServiceRequest, updates map[string]any) (*collection.ServiceRequest, error) {
	updates["version"] = current.Version + 1
	ok, err := a.deps.Base.CASGuard.UpdateByStatusAndVersion(dbc, serviceRequestTable, current.ID, string(current.Status), current.Version, updates)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, a.lostRace(dbc, op, current.ID)
	}
	updated, err := a.deps.Requests.GetByID(dbc, current.ID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	return updated, nil
}

func (a *serviceRequestAggregate) lostRace(dbc dbctx.Context, op string, id uuid.UUID) error {
	latest, err := a.deps.Requests.GetByID(dbc, id)
	if err != nil {
		return err
	}
	if latest == nil {
		return domainagg.NotFound(op, "service request")
	}
	return domainagg.InvalidState(op, "service request is now "+string(latest.Status))
}

func (a *serviceRequestAggregate) insertDrafts(dbc dbctx.Context, requestID uuid.UUID, drafts []domainagg.NotificationDraft) ([]*notification.Notification, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	rows := make([]*notification.Notification, 0, len(drafts))
	for _, d := range drafts {
		if d.RecipientID == uuid.Nil {
			continue
		}
		typ := d.Type
		if !typ.Valid() {
			typ = notification.TypeServiceRequestUpdate
		}
		rid := requestID
		n := &notification.Notification{
			RecipientID:      d.RecipientID,
			Subject:          strings.TrimSpace(d.Subject),
			Message:          strings.TrimSpace(d.Message),
			Type:             typ,
			ServiceRequestID: &rid,
		}
		if len(d.Metadata) > 0 {
			raw, err := json.Marshal(d.Metadata)
			if err != nil {
				return nil, err
			}
			n.Metadata = datatypes.JSON(raw)
		}
		rows = append(rows, n)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return a.deps.Notifications.Create(dbc, rows)
}

func transitionError(op string, err error) error {
	var te *collection.ErrTransition
	if errors.As(err, &te) {
		return domainagg.NewError(domainagg.CodeInvalidState, op, te.Error(), err)
	}
	return domainagg.Wrap(domainagg.CodeInvalidState, op, err)
}
