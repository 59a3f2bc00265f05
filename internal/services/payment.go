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
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/domain/user"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
	"github.com/yungbote/wastecollect-backend/internal/platform/logger"
	"github.com/yungbote/wastecollect-backend/internal/platform/stripepay"
	"github.com/yungbote/wastecollect-backend/internal/platform/validate"
)

// CardGateway charges card payments. *stripepay.Gateway satisfies it.
type CardGateway interface {
	Charge(ctx context.Context, req stripepay.ChargeRequest) (stripepay.ChargeResult, error)
}

type CreatePaymentInput struct {
	ServiceRequestID uuid.UUID      `json:"service_request_id" validate:"required"`
	Amount           float64        `json:"amount" validate:"gt=0"`
	Method           billing.Method `json:"method" validate:"required,oneof=CASH CARD MOBILE_MONEY BANK_TRANSFER"`
	// PaymentMethod is the gateway token for CARD payments.
	PaymentMethod string `json:"payment_method"`
}

type PaymentService interface {
	Create(ctx context.Context, id auth.Identity, in CreatePaymentInput) (*billing.Payment, error)
	UpdateStatus(ctx context.Context, id auth.Identity, paymentID uuid.UUID, status billing.Status) (*billing.Payment, error)
	Get(ctx context.Context, id auth.Identity, paymentID uuid.UUID) (*billing.Payment, error)
	ListForHousehold(ctx context.Context, id auth.Identity, page Page) ([]*billing.Payment, int64, error)
	ListForCollector(ctx context.Context, id auth.Identity, page Page) ([]*billing.Payment, int64, error)
	ListAll(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, page Page) ([]*billing.Payment, int64, error)
}

type PaymentServiceDeps struct {
	Log           *logger.Logger
	Runner        dataagg.TxRunner
	Payments      repos.PaymentRepo
	Requests      repos.ServiceRequestRepo
	Users         repos.UserRepo
	Notifications NotificationService
	// Gateway is optional; without it CARD payments stay PENDING.
	Gateway CardGateway
	Now     Clock
}

type paymentService struct {
	log      *logger.Logger
	runner   dataagg.TxRunner
	payments repos.PaymentRepo
	reqs     repos.ServiceRequestRepo
	notify   NotificationService
	gateway  CardGateway
	now      Clock
	scope    scoper
}

func NewPaymentService(deps PaymentServiceDeps) PaymentService {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	if deps.Now == nil {
		deps.Now = utcNow
	}
	return &paymentService{
		log:      deps.Log.With("service", "PaymentService"),
		runner:   deps.Runner,
		payments: deps.Payments,
		reqs:     deps.Requests,
		notify:   deps.Notifications,
		gateway:  deps.Gateway,
		now:      deps.Now,
		scope:    scoper{users: deps.Users},
	}
}

func newTransactionRef() string {
	return "TXN-" + strings.ToUpper(uuid.NewString())
}

func (s *paymentService) Create(ctx context.Context, id auth.Identity, in CreatePaymentInput) (*billing.Payment, error) {
	const op = "Payment.Create"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, err
	}
	in.Method = billing.Method(strings.ToUpper(strings.TrimSpace(string(in.Method))))
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	req, err := s.reqs.GetByID(dbctx.Of(ctx), in.ServiceRequestID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if req == nil {
		return nil, domainagg.NotFound(op, "service request")
	}
	if req.HouseholdID != id.UserID {
		return nil, domainagg.Forbidden(op, "service request does not belong to you")
	}
	if req.Status != collection.StatusCompleted {
		return nil, domainagg.InvalidState(op, "only completed requests can be paid")
	}

	p := &billing.Payment{
		Amount:           in.Amount,
		Method:           in.Method,
		Status:           billing.StatusSuccessful,
		PaymentDate:      s.now(),
		TransactionRef:   newTransactionRef(),
		HouseholdID:      req.HouseholdID,
		ServiceRequestID: req.ID,
		CollectorID:      req.CollectorID,
		MunicipalityID:   req.MunicipalityID,
	}
	if in.Method == billing.MethodCard {
		s.chargeCard(ctx, p, in.PaymentMethod)
	}

	var sent []*notification.Notification
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		rows, err := s.payments.Create(dbc, []*billing.Payment{p})
		if err != nil {
			return err
		}
		p = rows[0]
		if p.Status != billing.StatusSuccessful {
			return nil
		}
		sent, err = s.confirm(dbc, p)
		return err
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.notify.Deliver(ctx, sent...)
	return p, nil
}

// chargeCard records the gateway outcome on p. A gateway failure leaves a FAILED payment.
func (s *paymentService) chargeCard(ctx context.Context, p *billing.Payment, token string) {
	if s.gateway == nil {
		p.Status = billing.StatusPending
		return
	}
	res, err := s.gateway.Charge(ctx, stripepay.ChargeRequest{
		Amount:        p.Amount,
		Reference:     p.TransactionRef,
		Description:   "Waste collection " + p.ServiceRequestID.String(),
		PaymentMethod: token,
		Metadata:      map[string]string{"service_request_id": p.ServiceRequestID.String()},
	})
	if err != nil {
		s.log.Warn("card charge failed", "transaction_ref", p.TransactionRef, "error", err)
		p.Status = billing.StatusFailed
		return
	}
	p.ExternalRef = res.ExternalRef
	p.Status = res.Status
}

func (s *paymentService) confirm(dbc dbctx.Context, p *billing.Payment) ([]*notification.Notification, error) {
	pid, rid := p.ID, p.ServiceRequestID
	meta := map[string]any{"transaction_ref": p.TransactionRef, "amount": p.Amount}
	household, err := s.notify.Notify(dbc, NotifyInput{
		RecipientID:      p.HouseholdID,
		Subject:          "Payment received",
		Message:          fmt.Sprintf("Your payment of %.2f (%s) was received.", p.Amount, p.TransactionRef),
		Type:             notification.TypePaymentConfirmation,
		PaymentID:        &pid,
		ServiceRequestID: &rid,
		Metadata:         meta,
	})
	if err != nil {
		return nil, err
	}
	out := []*notification.Notification{household}
	if p.CollectorID != nil {
		collector, err := s.notify.Notify(dbc, NotifyInput{
			RecipientID:      *p.CollectorID,
			Subject:          "Payment received",
			Message:          fmt.Sprintf("A payment of %.2f was made for a collection you completed.", p.Amount),
			Type:             notification.TypePaymentConfirmation,
			PaymentID:        &pid,
			ServiceRequestID: &rid,
			Metadata:         meta,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, collector)
	}
	return out, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, id auth.Identity, paymentID uuid.UUID, status billing.Status) (*billing.Payment, error) {
	const op = "Payment.UpdateStatus"
	if err := requireRole(op, id, user.RoleAdmin, user.RoleManager); err != nil {
		return nil, err
	}
	status = billing.Status(strings.ToUpper(strings.TrimSpace(string(status))))
	if !status.Valid() {
		return nil, domainagg.FieldError(op, "status", fmt.Sprintf("unknown payment status %q", status))
	}
	scope, err := s.scope.municipality(ctx, op, id, uuid.Nil)
	if err != nil {
		return nil, err
	}

	var out *billing.Payment
	var sent []*notification.Notification
	err = s.runner.InTx(ctx, func(dbc dbctx.Context) error {
		p, err := s.payments.GetByID(dbc, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return domainagg.NotFound(op, "payment")
		}
		if scope != uuid.Nil && p.MunicipalityID != scope {
			return domainagg.Forbidden(op, "payment is outside your municipality")
		}
		if p.Status == status {
			out = p
			return nil
		}
		if err := s.payments.UpdateFields(dbc, p.ID, map[string]interface{}{"status": string(status), "updated_at": s.now()}); err != nil {
			return err
		}
		p.Status = status
		out = p
		if status == billing.StatusSuccessful {
			sent, err = s.confirm(dbc, p)
			return err
		}
		pid := p.ID
		n, err := s.notify.Notify(dbc, NotifyInput{
			RecipientID: p.HouseholdID,
			Subject:     "Payment updated",
			Message:     fmt.Sprintf("Payment %s is now %s.", p.TransactionRef, status),
			Type:        notification.TypePaymentConfirmation,
			PaymentID:   &pid,
		})
		if err != nil {
			return err
		}
		sent = []*notification.Notification{n}
		return nil
	})
	if err != nil {
		return nil, dataagg.MapError(op, err)
	}
	s.notify.Deliver(ctx, sent...)
	return out, nil
}

func (s *paymentService) Get(ctx context.Context, id auth.Identity, paymentID uuid.UUID) (*billing.Payment, error) {
	const op = "Payment.Get"
	if err := requireIdentity(op, id); err != nil {
		return nil, err
	}
	p, err := s.payments.GetByID(dbctx.Of(ctx), paymentID)
	if err != nil {
		return nil, repoErr(op, err)
	}
	if p == nil {
		return nil, domainagg.NotFound(op, "payment")
	}
	switch {
	case id.IsAdmin(), p.HouseholdID == id.UserID, p.CollectorID != nil && *p.CollectorID == id.UserID:
		return p, nil
	case id.Role == user.RoleManager:
		if _, err := s.scope.municipality(ctx, op, id, p.MunicipalityID); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, domainagg.Forbidden(op, "not allowed to view this payment")
}

func (s *paymentService) list(ctx context.Context, op string, f repos.PaymentFilter, page Page) ([]*billing.Payment, int64, error) {
	page = page.Normalized()
	f.Limit, f.Offset = page.Limit, page.Offset
	rows, total, err := s.payments.List(dbctx.Of(ctx), f)
	if err != nil {
		return nil, 0, repoErr(op, err)
	}
	return rows, total, nil
}

func (s *paymentService) ListForHousehold(ctx context.Context, id auth.Identity, page Page) ([]*billing.Payment, int64, error) {
	const op = "Payment.ListForHousehold"
	if err := requireRole(op, id, user.RoleHousehold); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.PaymentFilter{HouseholdID: id.UserID}, page)
}

func (s *paymentService) ListForCollector(ctx context.Context, id auth.Identity, page Page) ([]*billing.Payment, int64, error) {
	const op = "Payment.ListForCollector"
	if err := requireRole(op, id, user.RoleCollector); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.PaymentFilter{CollectorID: id.UserID}, page)
}

func (s *paymentService) ListAll(ctx context.Context, id auth.Identity, municipalityID uuid.UUID, page Page) ([]*billing.Payment, int64, error) {
	const op = "Payment.ListAll"
	mid, err := s.scope.municipality(ctx, op, id, municipalityID)
	if err != nil {
		return nil, 0, err
	}
	return s.list(ctx, op, repos.PaymentFilter{MunicipalityID: mid}, page)
}
