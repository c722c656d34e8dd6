package store

import (
	"testing"

	"github.com/dukerupert/larder/internal/database"
)

func setupPushTestDB(t *testing.T) (*PushStore, int64, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	u, err := NewUserStore(db).Create("pat@example.com", "Pat", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return NewPushStore(db), 1, u.ID
}

func TestPushSubscribe(t *testing.T) {
	ps, hid, uid := setupPushTestDB(t)

	sub, err := ps.Subscribe(uid, hid, "https://push.example.com/a", "p256", "auth", "Phone")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.ID == 0 || sub.DeviceName != "Phone" || sub.P256dhKey != "p256" {
		t.Errorf("sub = %+v", sub)
	}

	again, err := ps.Subscribe(uid, hid, "https://push.example.com/a", "p256-new", "auth-new", "Phone 2")
	if err != nil {
		t.Fatalf("resubscribe: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("resubscribe id = %d, want %d", again.ID, sub.ID)
	}
	if again.P256dhKey != "p256-new" || again.DeviceName != "Phone 2" {
		t.Errorf("resubscribe did not refresh keys: %+v", again)
	}

	subs, err := ps.ListByHousehold(hid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("got %d subscriptions, want 1", len(subs))
	}
}

func TestPushListScopedToHousehold(t *testing.T) {
	ps, hid, uid := setupPushTestDB(t)

	ps.Subscribe(uid, hid, "https://push.example.com/a", "k", "a", "")
	ps.Subscribe(uid, hid, "https://push.example.com/b", "k", "a", "")

	other, err := ps.ListByHousehold(hid + 1)
	if err != nil {
		t.Fatalf("list other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other household sees %d subscriptions", len(other))
	}

	mine, err := ps.ListByUser(hid, uid)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 2 {
		t.Errorf("got %d subscriptions, want 2", len(mine))
	}
}

func TestPushDelete(t *testing.T) {
	ps, hid, uid := setupPushTestDB(t)

	sub, _ := ps.Subscribe(uid, hid, "https://push.example.com/a", "k", "a", "")

	ok, err := ps.Delete(hid, uid+1, sub.ID)
	if err != nil {
		t.Fatalf("delete as other user: %v", err)
	}
	if ok {
		t.Error("deleted another user's subscription")
	}

	ok, err = ps.Delete(hid, uid, sub.ID)
	if err != nil || !ok {
		t.Fatalf("delete = %v, %v", ok, err)
	}
	got, _ := ps.GetByID(hid, sub.ID)
	if got != nil {
		t.Error("subscription still present after delete")
	}
}

func TestPushDeleteByEndpoint(t *testing.T) {
	ps, hid, uid := setupPushTestDB(t)

	ps.Subscribe(uid, hid, "https://push.example.com/gone", "k", "a", "")
	if err := ps.DeleteByEndpoint("https://push.example.com/gone"); err != nil {
		t.Fatalf("delete by endpoint: %v", err)
	}
	subs, _ := ps.ListByHousehold(hid)
	if len(subs) != 0 {
		t.Errorf("got %d subscriptions after delete, want 0", len(subs))
	}
}
