package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dukerupert/larder/internal/grocery"
)

const (
	KeyCategoryOrder = "category_order"
	KeyUnitSystem    = "unit_system"
	KeyShowSources   = "show_sources"
	KeyStoreMode     = "store_mode"
)

var shoppingKeys = []string{
	KeyUnitSystem,
	KeyShowSources,
	KeyStoreMode,
}

// ErrInvalidOrder is returned when a category order names an unknown or
// repeated category.
var ErrInvalidOrder = errors.New("invalid category order")

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the value for key, or "" and false if it is unset.
func (s *SettingsStore) Get(householdID int64, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM settings WHERE household_id = ? AND key = ?`,
		householdID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SettingsStore) GetAll(householdID int64) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings WHERE household_id = ? ORDER BY key`, householdID)
	if err != nil {
		return nil, fmt.Errorf("get all settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

func (s *SettingsStore) Set(householdID int64, key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (household_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(household_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		householdID, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) Delete(householdID int64, key string) error {
	_, err := s.db.Exec(`DELETE FROM settings WHERE household_id = ? AND key = ?`, householdID, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, err)
	}
	return nil
}

// CategoryOrder returns the stored category order override, or nil when the
// household has never reordered. Unparseable values are treated as unset.
func (s *SettingsStore) CategoryOrder(householdID int64) ([]grocery.Category, error) {
	raw, ok, err := s.Get(householdID, KeyCategoryOrder)
	if err != nil || !ok {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, nil
	}
	order := make([]grocery.Category, 0, len(names))
	for _, n := range names {
		if c, ok := grocery.ParseCategory(n); ok {
			order = append(order, c)
		}
	}
	return order, nil
}

// SetCategoryOrder replaces the stored override wholesale. The order need not
// be exhaustive but may only name known categories, each at most once.
func (s *SettingsStore) SetCategoryOrder(householdID int64, order []grocery.Category) error {
	seen := make(map[grocery.Category]bool, len(order))
	names := make([]string, 0, len(order))
	for _, c := range order {
		if !c.Valid() || seen[c] {
			return fmt.Errorf("%w: %q", ErrInvalidOrder, c)
		}
		seen[c] = true
		names = append(names, string(c))
	}
	b, err := json.Marshal(names)
	if err != nil {
		return fmt.Errorf("encode category order: %w", err)
	}
	return s.Set(householdID, KeyCategoryOrder, string(b))
}

// ResetCategoryOrder deletes the override so the default order applies.
func (s *SettingsStore) ResetCategoryOrder(householdID int64) error {
	return s.Delete(householdID, KeyCategoryOrder)
}

// UnitSystem returns the household's display unit system, imperial unless set.
func (s *SettingsStore) UnitSystem(householdID int64) (grocery.System, error) {
	raw, _, err := s.Get(householdID, KeyUnitSystem)
	if err != nil {
		return "", err
	}
	if sys, ok := grocery.ParseSystem(raw); ok {
		return sys, nil
	}
	return grocery.Imperial, nil
}

func (s *SettingsStore) ShowSources(householdID int64) (bool, error) {
	return s.getBool(householdID, KeyShowSources, true)
}

func (s *SettingsStore) StoreMode(householdID int64) (bool, error) {
	return s.getBool(householdID, KeyStoreMode, false)
}

func (s *SettingsStore) getBool(householdID int64, key string, def bool) (bool, error) {
	raw, ok, err := s.Get(householdID, key)
	if err != nil || !ok {
		return def, err
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, nil
	}
	return v, nil
}

// GetShoppingSettings returns the shopping-list preference keys that are set.
func (s *SettingsStore) GetShoppingSettings(householdID int64) (map[string]string, error) {
	settings := make(map[string]string)
	for _, key := range shoppingKeys {
		value, ok, err := s.Get(householdID, key)
		if err != nil {
			return nil, fmt.Errorf("get shopping setting %q: %w", key, err)
		}
		if ok {
			settings[key] = value
		}
	}
	return settings, nil
}
