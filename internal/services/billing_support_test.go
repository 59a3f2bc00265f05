package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	domainagg "github.com/yungbote/wastecollect-backend/internal/domain/aggregates"
	"github.com/yungbote/wastecollect-backend/internal/domain/billing"
	"github.com/yungbote/wastecollect-backend/internal/domain/collection"
	"github.com/yungbote/wastecollect-backend/internal/domain/support"
	"github.com/yungbote/wastecollect-backend/internal/platform/stripepay"
	"github.com/yungbote/wastecollect-backend/internal/realtime"
)

type stubGateway struct {
	res stripepay.ChargeResult
	err error
	got []stripepay.ChargeRequest
}

func (g *stubGateway) Charge(_ context.Context, req stripepay.ChargeRequest) (stripepay.ChargeResult, error) {
	g.got = append(g.got, req)
	return g.res, g.err
}

func TestPaymentCashOnCompletedRequest(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	cid := e.collector.ID
	done := testutil.SeedRequest(t, ctx, e.db, e.household, &cid, collection.StatusCompleted)

	p, err := e.payments.Create(ctx, idOf(e.household), CreatePaymentInput{
		ServiceRequestID: done.ID,
		Amount:           150,
		Method:           "cash",
	})
	require.NoError(t, err)
	require.Equal(t, billing.StatusSuccessful, p.Status)
	require.Equal(t, billing.MethodCash, p.Method)
	require.True(t, strings.HasPrefix(p.TransactionRef, "TXN-"), p.TransactionRef)
	require.Equal(t, strings.ToUpper(p.TransactionRef), p.TransactionRef)
	require.Equal(t, e.mun.ID, p.MunicipalityID)
	require.NotNil(t, p.CollectorID)

	for _, id := range []uuid.UUID{e.household.ID, e.collector.ID} {
		require.Equal(t, 1, e.pub.count(realtime.UserChannel(id), realtime.SSEEventNotificationCreated))
	}

	pending := testutil.SeedRequest(t, ctx, e.db, e.household, nil, collection.StatusPending)
	_, err = e.payments.Create(ctx, idOf(e.household), CreatePaymentInput{
		ServiceRequestID: pending.ID,
		Amount:           10,
		Method:           billing.MethodCash,
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeInvalidState), "got %v", err)

	_, err = e.payments.Create(ctx, idOf(e.household), CreatePaymentInput{
		ServiceRequestID: done.ID,
		Amount:           0,
		Method:           billing.MethodCash,
	})
	require.True(t, domainagg.IsCode(err, domainagg.CodeValidation), "got %v", err)

	rows, total, err := e.payments.ListForCollector(ctx, idOf(e.collector), Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, p.ID, rows[0].ID)
}

func TestPaymentCardOutcomes(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	cid := e.collector.ID
	done := testutil.SeedRequest(t, ctx, e.db, e.household, &cid, collection.StatusCompleted)
	card := CreatePaymentInput{ServiceRequestID: done.ID, Amount: 80, Method: billing.MethodCard, PaymentMethod: "pm_card_visa"}

	p, err := e.payments.Create(ctx, idOf(e.household), card)
	require.NoError(t, err)
	require.Equal(t, billing.StatusPending, p.Status)

	failing := &stubGateway{err: errors.New("card declined")}
	svc := NewPaymentService(PaymentServiceDeps{
		Runner:        e.runner,
		Payments:      e.set.Payment,
		Requests:      e.set.ServiceRequest,
		Users:         e.set.User,
		Notifications: e.notifications,
		Gateway:       failing,
	})
	p, err = svc.Create(ctx, idOf(e.household), card)
	require.NoError(t, err)
	require.Equal(t, billing.StatusFailed, p.Status)
	require.Len(t, failing.got, 1)
	require.Equal(t, "pm_card_visa", failing.got[0].PaymentMethod)

	ok := &stubGateway{res: stripepay.ChargeResult{ExternalRef: "pi_123", Status: billing.StatusSuccessful}}
	svc = NewPaymentService(PaymentServiceDeps{
		Runner:        e.runner,
		Payments:      e.set.Payment,
		Requests:      e.set.ServiceRequest,
		Users:         e.set.User,
		Notifications: e.notifications,
		Gateway:       ok,
	})
	p, err = svc.Create(ctx, idOf(e.household), card)
	require.NoError(t, err)
	require.Equal(t, billing.StatusSuccessful, p.Status)
	require.Equal(t, "pi_123", p.ExternalRef)

	refunded, err := e.payments.UpdateStatus(ctx, idOf(e.manager), p.ID, "refunded")
	require.NoError(t, err)
	require.Equal(t, billing.StatusRefunded, refunded.Status)

	_, err = e.payments.UpdateStatus(ctx, idOf(e.household), p.ID, billing.StatusRefunded)
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
}

func TestDisputeStatusGraph(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	cid := e.collector.ID
	done := testutil.SeedRequest(t, ctx, e.db, e.household, &cid, collection.StatusCompleted)
	rid := done.ID

	d, err := e.disputes.Create(ctx, idOf(e.household), CreateDisputeInput{
		Title:            "Bins left open",
		Description:      "The collector left the lids open.",
		ServiceRequestID: &rid,
	})
	require.NoError(t, err)
	require.Equal(t, support.StatusOpen, d.Status)
	require.False(t, d.IsRead)

	_, err = e.disputes.UpdateStatus(ctx, idOf(e.household), d.ID, support.StatusResolved, "")
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	resolved, err := e.disputes.UpdateStatus(ctx, idOf(e.admin), d.ID, "resolved", "spoke to the crew")
	require.NoError(t, err)
	require.Equal(t, support.StatusResolved, resolved.Status)
	require.Equal(t, "spoke to the crew", resolved.ResolutionNote)

	closed, err := e.disputes.UpdateStatus(ctx, idOf(e.admin), d.ID, support.StatusClosed, "")
	require.NoError(t, err)
	require.Equal(t, support.StatusClosed, closed.Status)

	_, err = e.disputes.UpdateStatus(ctx, idOf(e.admin), d.ID, support.StatusOpen, "")
	require.True(t, domainagg.IsCode(err, domainagg.CodeInvalidState), "got %v", err)

	// two status updates, one notification each
	require.Equal(t, 2, e.pub.count(realtime.UserChannel(e.household.ID), realtime.SSEEventNotificationCreated))

	require.NoError(t, e.disputes.MarkRead(ctx, idOf(e.admin), d.ID))
	got, err := e.disputes.Get(ctx, idOf(e.household), d.ID)
	require.NoError(t, err)
	require.True(t, got.IsRead)

	other := testutil.SeedHousehold(t, ctx, e.db, e.mun.ID)
	_, err = e.disputes.Get(ctx, idOf(other), d.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
	_, err = e.disputes.Create(ctx, idOf(other), CreateDisputeInput{Title: "t", Description: "d", ServiceRequestID: &rid})
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	mine, total, err := e.disputes.List(ctx, idOf(other), nil, Page{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, mine)
}

func TestDisputeManagerScope(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	elsewhere := testutil.SeedMunicipality(t, ctx, e.db, "elsewhere")
	foreign := testutil.SeedManager(t, ctx, e.db, elsewhere.ID)

	d, err := e.disputes.Create(ctx, idOf(e.household), CreateDisputeInput{
		Title:       "Missed pickup",
		Description: "Nobody came on Tuesday.",
	})
	require.NoError(t, err)
	require.NotNil(t, d.MunicipalityID)
	require.Equal(t, e.mun.ID, *d.MunicipalityID)

	rows, total, err := e.disputes.List(ctx, idOf(foreign), nil, Page{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, rows)

	_, err = e.disputes.Get(ctx, idOf(foreign), d.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
	err = e.disputes.MarkRead(ctx, idOf(foreign), d.ID)
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)
	_, err = e.disputes.UpdateStatus(ctx, idOf(foreign), d.ID, support.StatusClosed, "")
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	cur, err := e.disputes.Get(ctx, idOf(e.admin), d.ID)
	require.NoError(t, err)
	require.Equal(t, support.StatusOpen, cur.Status)
	require.False(t, cur.IsRead)

	rows, total, err = e.disputes.List(ctx, idOf(e.manager), nil, Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	require.NoError(t, e.disputes.MarkRead(ctx, idOf(e.manager), d.ID))
	closed, err := e.disputes.UpdateStatus(ctx, idOf(e.manager), d.ID, support.StatusClosed, "duplicate")
	require.NoError(t, err)
	require.Equal(t, support.StatusClosed, closed.Status)
}

func TestBulkNotifications(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ghost := uuid.New()

	res, err := e.notifications.SendNotifications(ctx, idOf(e.admin), BulkInput{
		Mode:    BulkUsers,
		UserIDs: []uuid.UUID{e.household.ID, ghost},
		Subject: "Holiday schedule",
		Message: "No pickups on Friday.",
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	byUser := map[uuid.UUID]RecipientResult{}
	for _, r := range res {
		byUser[r.UserID] = r
	}
	require.False(t, byUser[ghost].OK)
	require.Equal(t, "user not found", byUser[ghost].Error)
	require.True(t, byUser[e.household.ID].OK)
	require.NotNil(t, byUser[e.household.ID].NotificationID)

	res, err = e.notifications.SendNotifications(ctx, idOf(e.manager), BulkInput{
		Mode:    "role",
		Role:    "COLLECTOR",
		Subject: "Depot closed",
		Message: "Use the north depot today.",
	})
	require.NoError(t, err)
	require.Len(t, res, 2)

	_, err = e.notifications.SendNotifications(ctx, idOf(e.household), BulkInput{Mode: BulkAll, Subject: "s", Message: "m"})
	require.True(t, domainagg.IsCode(err, domainagg.CodeForbidden), "got %v", err)

	rows, total, err := e.notifications.ListForUser(ctx, idOf(e.household), true, Page{})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.NoError(t, e.notifications.MarkAsRead(ctx, idOf(e.household), rows[0].ID))
	n, err := e.notifications.UnreadCount(ctx, idOf(e.household))
	require.NoError(t, err)
	require.Zero(t, n)
}
