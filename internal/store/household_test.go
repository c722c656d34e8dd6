package store

import (
	"errors"
	"testing"

	"github.com/dukerupert/larder/internal/database"
)

func setupHouseholdTestDB(t *testing.T) (*HouseholdStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHouseholdStore(db), NewUserStore(db)
}

func TestHouseholdCreate(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "Test Household" {
		t.Errorf("name = %q, want %q", h.Name, "Test Household")
	}
	if h.ID == 0 {
		t.Error("expected non-zero ID")
	}
}

func TestHouseholdGetByID(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	created, err := hs.Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	h, err := hs.GetByID(created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h.Name != "Test Household" {
		t.Errorf("name = %q, want %q", h.Name, "Test Household")
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.GetByID(999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestHouseholdRename(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	created, err := hs.Create("Old Name")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := hs.Rename(created.ID, "New Name")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Name != "New Name" {
		t.Errorf("name = %q, want %q", updated.Name, "New Name")
	}
}

func TestHouseholdAddMember(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, err := hs.Create("Test Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	u, err := us.Create("alice@example.com", "Alice", "")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	m, err := hs.AddMember(h.ID, u.ID, "admin")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if m.Role != "admin" {
		t.Errorf("role = %q, want %q", m.Role, "admin")
	}
	if m.HouseholdID != h.ID {
		t.Errorf("household_id = %d, want %d", m.HouseholdID, h.ID)
	}
	if m.UserID != u.ID {
		t.Errorf("user_id = %d, want %d", m.UserID, u.ID)
	}
}

func TestHouseholdAddMemberDuplicate(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, _ := hs.Create("Test Household")
	u, _ := us.Create("alice@example.com", "Alice", "")

	if _, err := hs.AddMember(h.ID, u.ID, "admin"); err != nil {
		t.Fatalf("add member: %v", err)
	}
	if _, err := hs.AddMember(h.ID, u.ID, "member"); err == nil {
		t.Fatal("expected error for duplicate membership, got nil")
	}
}

func TestHouseholdRemoveMember(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, _ := hs.Create("Test Household")
	u, _ := us.Create("alice@example.com", "Alice", "")
	hs.AddMember(h.ID, u.ID, "member")

	removed, err := hs.RemoveMember(h.ID, u.ID)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if !removed {
		t.Error("removed = false, want true")
	}

	m, err := hs.GetMember(h.ID, u.ID)
	if err != nil {
		t.Fatalf("get member after remove: %v", err)
	}
	if m != nil {
		t.Error("expected nil after remove")
	}

	removed, err = hs.RemoveMember(h.ID, u.ID)
	if err != nil || removed {
		t.Errorf("second remove = %v, %v; want false, nil", removed, err)
	}
}

func TestHouseholdKeepsLastAdmin(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, _ := hs.Create("Test Household")
	alice, _ := us.Create("alice@example.com", "Alice", "")
	bob, _ := us.Create("bob@example.com", "Bob", "")
	hs.AddMember(h.ID, alice.ID, "admin")
	hs.AddMember(h.ID, bob.ID, "member")

	if _, err := hs.RemoveMember(h.ID, alice.ID); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("remove only admin: err = %v, want ErrLastAdmin", err)
	}
	if _, err := hs.UpdateMemberRole(h.ID, alice.ID, "member"); !errors.Is(err, ErrLastAdmin) {
		t.Fatalf("demote only admin: err = %v, want ErrLastAdmin", err)
	}

	if _, err := hs.UpdateMemberRole(h.ID, bob.ID, "admin"); err != nil {
		t.Fatalf("promote bob: %v", err)
	}
	m, err := hs.UpdateMemberRole(h.ID, alice.ID, "member")
	if err != nil {
		t.Fatalf("demote alice with another admin: %v", err)
	}
	if m.Role != "member" {
		t.Errorf("role = %q, want member", m.Role)
	}
	if removed, err := hs.RemoveMember(h.ID, alice.ID); err != nil || !removed {
		t.Errorf("remove former admin = %v, %v", removed, err)
	}
}

func TestHouseholdListMembers(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, _ := hs.Create("Test Household")
	u1, _ := us.Create("alice@example.com", "Alice", "")
	u2, _ := us.Create("bob@example.com", "Bob", "")
	hs.AddMember(h.ID, u2.ID, "member")
	hs.AddMember(h.ID, u1.ID, "admin")

	members, err := hs.ListMembers(h.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	if members[0].UserID != u1.ID || members[0].Email != "alice@example.com" || members[0].Name != "Alice" {
		t.Errorf("first member = %+v, want admin alice", members[0])
	}
	if members[1].Role != "member" || members[1].Email != "bob@example.com" {
		t.Errorf("second member = %+v", members[1])
	}
}

func TestHouseholdListHouseholdsForUser(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h1, _ := hs.Create("Household A")
	h2, _ := hs.Create("Household B")
	u, _ := us.Create("alice@example.com", "Alice", "")
	hs.AddMember(h1.ID, u.ID, "admin")
	hs.AddMember(h2.ID, u.ID, "member")

	households, err := hs.ListHouseholdsForUser(u.ID)
	if err != nil {
		t.Fatalf("list households for user: %v", err)
	}
	if len(households) != 2 {
		t.Fatalf("expected 2 households, got %d", len(households))
	}
}

func TestHouseholdUpdateMemberRole(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)

	h, _ := hs.Create("Test Household")
	u, _ := us.Create("alice@example.com", "Alice", "")
	hs.AddMember(h.ID, u.ID, "member")

	m, err := hs.UpdateMemberRole(h.ID, u.ID, "admin")
	if err != nil {
		t.Fatalf("update member role: %v", err)
	}
	if m.Role != "admin" {
		t.Errorf("role = %q, want %q", m.Role, "admin")
	}

	m, err = hs.UpdateMemberRole(h.ID, u.ID+100, "admin")
	if err != nil || m != nil {
		t.Errorf("update unknown member = %+v, %v; want nil, nil", m, err)
	}
}

func TestHouseholdSeedDefaults(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.Create("New Household")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	if err := hs.SeedDefaults(h.ID); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	// Seeding twice must not fail on the settings primary key.
	if err := hs.SeedDefaults(h.ID); err != nil {
		t.Fatalf("seed defaults again: %v", err)
	}

	var settingsCount int
	hs.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE household_id = ?`, h.ID).Scan(&settingsCount)
	if settingsCount != 3 {
		t.Errorf("settings = %d, want 3", settingsCount)
	}

	var orderCount int
	hs.db.QueryRow(`SELECT COUNT(*) FROM settings WHERE household_id = ? AND key = ?`, h.ID, KeyCategoryOrder).Scan(&orderCount)
	if orderCount != 0 {
		t.Errorf("category order should be unset for a new household")
	}
}

func TestHouseholdDefaultSeed(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	// The migration seeds a default "Home" with ID=1
	h, err := hs.GetByID(1)
	if err != nil {
		t.Fatalf("get default household: %v", err)
	}
	if h == nil {
		t.Fatal("expected default household with ID=1")
	}
	if h.Name != "Home" {
		t.Errorf("name = %q, want %q", h.Name, "Home")
	}
}
