package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	dataagg "github.com/yungbote/wastecollect-backend/internal/data/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/data/repos"
	repocollection "github.com/yungbote/wastecollect-backend/internal/data/repos/collection"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/auth"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
)

type RatingSummary = repocollection.RatingSummary

type RatingService interface {
	RateCollector(ctx context.Context, id auth.Identity, requestID uuid.UUID, rating int, comment string) (*collection.CollectorRating, error)
	ListForCollector(ctx context.Context, id auth.Identity, collectorID uuid.UUID, page Page) ([]*collection.CollectorRating, int64, error)
	Summary(ctx context.Context, collectorID uuid.UUID) (RatingSummary, error)
}

type RatingServiceDeps struct {
	Log           *logger.Logger
	Runner        dataagg.TxRunner
	Requests      repos.ServiceRequestRepo
	Ratings       repos.CollectorRatingRepo
	Notifications NotificationService
	Now           Clock
}

type ratingService struct {
	log     *logger.Logger
	runner  dataagg.TxRunner
	reqs    repos.ServiceRequestRepo
	ratings repos.CollectorRatingRepo
	notify  NotificationService
	now     Clock
}

func NewRatingService(deps RatingServiceDeps) RatingService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &ratingService{
		log:     deps.Log.With("service", "RatingService"),
		runner:  deps.Runner,
		reqs:    deps.Requests,
		ratings: deps.Ratings,
		notify:  deps.Notifications,
		now:     deps.Now,
	}
}

func (s *ratingService) RateCollector(ctx context.Context, id auth.Identity, requestID uuid.UUID, rating int, comment string) (*collection.CollectorRating, error) {
	const op = "Rating.RateCollector"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, err
	}
	if rating < collection.MinRating || rating > collection.MaxRating {
		return nil, domainagg.FieldError(op, "rating", fmt.Sprintf("rating must be between %d and %d", collection.MinRating, collection.MaxRating))
	}
	req, err := s.reqs.GetByID(dbctx.Of(ctx), requestID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if req == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	if req.HouseholdID != id.UserID {
		return nil, domainagg.Forbidden(op, "only the requesting household may rate")
	}
	if req.Status != collection.StatusCompleted {
		return nil, domainagg.InvalidState(op, "only completed requests can be rated")
	}
	if req.CollectorID == nil {
		return nil, domainagg.InvalidState(op, "request has no collector")
	}

	var created *collection.CollectorRating
	var note *notification.Notification
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		exists, err := s.ratings.ExistsForServiceRequest(dbc, req.ID)
		if err != nil {
			return err
		}
		if exists {
			return alreadyRated(op)
		}
		rows, err := s.ratings.Create(dbc, []*collection.CollectorRating{{
			ServiceRequestID: req.ID,
			CollectorID:      *req.CollectorID,
			HouseholdID:      req.HouseholdID,
			MunicipalityID:   req.MunicipalityID,
			Rating:           rating,
			Comment:          strings.TrimSpace(comment),
			RatingDate:       s.now(),
			CreatedAt:        s.now(),
		}})
		if err != nil {
			// The unique index settles a race between two first ratings.
			if domainagg.IsCode(dataagg.MapError(op, err), domainagg.CodeValidation) {
				return alreadyRated(op)
			}
			return err
		}
		created = rows[0]
		reqID := req.ID
		note, err = s.notify.Notify(dbc, NotifyInput{
			RecipientID:      *req.CollectorID,
			Subject:          "New rating",
			Message:          fmt.Sprintf("A household rated your service %d/5.", rating),
			Type:             notification.TypeInfo,
			ServiceRequestID: &reqID,
			Metadata:         map[string]any{"rating": rating},
		})
		return err
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.notify.Deliver(ctx, note)
	return created, nil
}

func alreadyRated(op string) error {
	return domainagg.Validation(op, "already rated")
}

func (s *ratingService) ListForCollector(ctx context.Context, id auth.Identity, collectorID uuid.UUID, page Page) ([]*collection.CollectorRating, int64, error) {
	const op = "Rating.ListForCollector"
	if err := requireIdentity(op, id); err != nil {
		return nil, 0, err
	}
	if collectorID == uuid.Nil {
		collectorID = id.UserID
	}
	if collectorID != id.UserID && !id.IsStaff() {
		return nil, 0, domainagg.Forbidden(op, "not allowed to view these ratings")
	}
	page = page.Normalized()
	rows, total, err := s.ratings.List(dbctx.Of(ctx), repos.RatingFilter{CollectorID: collectorID, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *ratingService) Summary(ctx context.Context, collectorID uuid.UUID) (RatingSummary, error) {
	const op = "Rating.Summary"
	sum, err := s.ratings.Summary(dbctx.Of(ctx), repos.RatingFilter{CollectorID: collectorID})
	if err != nil {
		return RatingSummary{}, repoErr(op, err)
	}
	return sum, nil
}
