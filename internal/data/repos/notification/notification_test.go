package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/wastecollect-backend/internal/data/repos/testutil"
	"github.com/yungbote/wastecollect-backend/internal/domain/notification"
	"github.com/yungbote/wastecollect-backend/internal/platform/dbctx"
)

func TestNotificationRepoReadFlags(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := NewNotificationRepo(db, testutil.Logger(t))

	recipient := uuid.New()
	other := uuid.New()
	rows, err := repo.Create(dbc, []*notification.Notification{
		{RecipientID: recipient, Subject: "a", Message: "a", Type: notification.TypeInfo},
		{RecipientID: recipient, Subject: "b", Message: "b", Type: notification.TypeAlert},
		{RecipientID: other, Subject: "c", Message: "c", Type: notification.TypeInfo},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	n, err := repo.CountUnread(dbc, recipient)
	if err != nil || n != 2 {
		t.Fatalf("CountUnread: want 2 got %d (%v)", n, err)
	}

	now := time.Now().UTC()
	ok, err := repo.SetRead(dbc, rows[0].ID, other, true, now)
	if err != nil {
		t.Fatalf("SetRead wrong recipient: %v", err)
	}
	if ok {
		t.Fatalf("SetRead wrong recipient: expected no match")
	}
	ok, err = repo.SetRead(dbc, rows[0].ID, recipient, true, now)
	if err != nil || !ok {
		t.Fatalf("SetRead: ok=%v err=%v", ok, err)
	}

	unread, total, err := repo.ListForRecipient(dbc, recipient, true, 10, 0)
	if err != nil {
		t.Fatalf("ListForRecipient: %v", err)
	}
	if total != 1 || len(unread) != 1 || unread[0].ID != rows[1].ID {
		t.Fatalf("ListForRecipient unread: unexpected %+v", unread)
	}

	ok, err = repo.SetRead(dbc, rows[0].ID, recipient, false, now)
	if err != nil || !ok {
		t.Fatalf("SetRead unread: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, rows[0].ID)
	if err != nil || got == nil || got.IsRead || got.ReadAt != nil {
		t.Fatalf("GetByID after unread: %+v %v", got, err)
	}

	changed, err := repo.MarkAllRead(dbc, recipient, now)
	if err != nil || changed != 2 {
		t.Fatalf("MarkAllRead: want 2 got %d (%v)", changed, err)
	}

	deleted, err := repo.Delete(dbc, rows[2].ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: %v %v", deleted, err)
	}
}
