package database

import "testing"

func TestOpenRunsMigrations(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var name string
	if err := db.QueryRow(`SELECT name FROM households WHERE id = 1`).Scan(&name); err != nil {
		t.Fatalf("default household: %v", err)
	}
	if name != "Home" {
		t.Errorf("default household name = %q, want %q", name, "Home")
	}

	var unitSystem string
	if err := db.QueryRow(`SELECT value FROM settings WHERE household_id = 1 AND key = 'unit_system'`).Scan(&unitSystem); err != nil {
		t.Fatalf("default unit system: %v", err)
	}
	if unitSystem != "imperial" {
		t.Errorf("unit_system = %q, want %q", unitSystem, "imperial")
	}
}

func TestRecipeColumnsPairedCheck(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO shopping_list_items (household_id, ingredient, recipe_title) VALUES (1, 'flour', 'Bread')`)
	if err == nil {
		t.Fatal("expected check violation for recipe_title without recipe_id")
	}
}

func TestCategoryCheck(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	_, err = db.Exec(`INSERT INTO shopping_list_items (household_id, ingredient, category) VALUES (1, 'flour', 'Baking Aisle')`)
	if err == nil {
		t.Fatal("expected check violation for unknown category")
	}
}

func TestPushAndBackupTables(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"push_subscriptions", "backups"} {
		var n int
		err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("lookup %s: %v", table, err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}

	_, err = db.Exec(`INSERT INTO backups (object_key, status) VALUES ('k', 'archived')`)
	if err == nil {
		t.Fatal("expected check violation for unknown backup status")
	}
}
