package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

type PantryStore struct {
	db *sql.DB
}

func NewPantryStore(db *sql.DB) *PantryStore {
	return &PantryStore{db: db}
}

func scanPantryItem(scanner interface{ Scan(...any) error }) (*model.PantryItem, error) {
	var p model.PantryItem
	err := scanner.Scan(&p.ID, &p.HouseholdID, &p.NormalizedIngredient, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const pantryCols = `id, household_id, normalized_ingredient, created_at`

func (s *PantryStore) List(householdID int64) ([]model.PantryItem, error) {
	rows, err := s.db.Query(
		`SELECT `+pantryCols+` FROM pantry_items WHERE household_id = ? ORDER BY normalized_ingredient ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list pantry: %w", err)
	}
	defer rows.Close()

	var items []model.PantryItem
	for rows.Next() {
		p, err := scanPantryItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Keys returns the household's pantry as a set of normalized ingredient keys.
func (s *PantryStore) Keys(householdID int64) (map[string]bool, error) {
	items, err := s.List(householdID)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(items))
	for _, p := range items {
		keys[p.NormalizedIngredient] = true
	}
	return keys, nil
}

// Add marks ingredient as always on hand. Adding an ingredient that is
// already present is a no-op.
func (s *PantryStore) Add(householdID int64, ingredient string) (*model.PantryItem, error) {
	key := grocery.Normalize(ingredient)
	if key == "" {
		return nil, fmt.Errorf("add pantry item: empty ingredient")
	}
	_, err := s.db.Exec(
		`INSERT INTO pantry_items (household_id, normalized_ingredient) VALUES (?, ?)
		 ON CONFLICT(household_id, normalized_ingredient) DO NOTHING`,
		householdID, key,
	)
	if err != nil {
		return nil, fmt.Errorf("add pantry item: %w", err)
	}
	return s.get(householdID, key)
}

func (s *PantryStore) Remove(householdID int64, ingredient string) error {
	_, err := s.db.Exec(
		`DELETE FROM pantry_items WHERE household_id = ? AND normalized_ingredient = ?`,
		householdID, grocery.Normalize(ingredient),
	)
	if err != nil {
		return fmt.Errorf("remove pantry item: %w", err)
	}
	return nil
}

// Toggle adds ingredient to the pantry if absent and removes it otherwise. It
// reports whether the ingredient is in the pantry afterwards.
func (s *PantryStore) Toggle(householdID int64, ingredient string) (bool, error) {
	key := grocery.Normalize(ingredient)
	existing, err := s.get(householdID, key)
	if err != nil {
		return false, err
	}
	if existing != nil {
		if err := s.Remove(householdID, key); err != nil {
			return false, err
		}
		return false, nil
	}
	if _, err := s.Add(householdID, key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PantryStore) get(householdID int64, key string) (*model.PantryItem, error) {
	row := s.db.QueryRow(
		`SELECT `+pantryCols+` FROM pantry_items WHERE household_id = ? AND normalized_ingredient = ?`,
		householdID, key,
	)
	p, err := scanPantryItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pantry item: %w", err)
	}
	return p, nil
}
