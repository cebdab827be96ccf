package notifier

import (
	"context"
	"testing"
	"time"

	"maintenance-service/internal/logging"
	"maintenance-service/internal/models"
	"maintenance-service/internal/store"
)

func TestNotifyAdminsRecordsOnePerAdmin(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	first, err := st.CreateUser(ctx, models.User{Name: "Root", Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	second, err := st.CreateUser(ctx, models.User{Name: "Ops", Role: models.RoleAdmin})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateUser(ctx, models.User{Name: "Viewer", Role: "USER"}); err != nil {
		t.Fatal(err)
	}

	svc := New(st, nil, logging.NewNop(), time.Second)
	orderID := int64(7)
	if err := svc.NotifyAdmins(ctx, "IOT_ALERT", "title", "message", &orderID); err != nil {
		t.Fatalf("notify: %v", err)
	}

	notifications := st.Notifications()
	if len(notifications) != 2 {
		t.Fatalf("expected one notification per admin, got %d", len(notifications))
	}
	seen := map[int64]bool{}
	for _, n := range notifications {
		seen[n.UserID] = true
		if n.ID == "" {
			t.Fatal("notification needs a generated id")
		}
		if n.Kind != "IOT_ALERT" || n.Title != "title" || n.Message != "message" {
			t.Fatalf("unexpected payload: %+v", n)
		}
		if n.OrderID == nil || *n.OrderID != orderID {
			t.Fatal("order reference lost")
		}
	}
	if !seen[first.ID] || !seen[second.ID] {
		t.Fatal("both admins should be notified")
	}
}

func TestNotifyAdminsWithNoAdminsIsQuiet(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st, nil, logging.NewNop(), time.Second)

	if err := svc.NotifyAdmins(context.Background(), "IOT_ALERT", "t", "m", nil); err != nil {
		t.Fatalf("no admins is not an error: %v", err)
	}
	if n := len(st.Notifications()); n != 0 {
		t.Fatalf("expected no notifications, got %d", n)
	}
}
