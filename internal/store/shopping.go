package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

type ShoppingStore struct {
	db *sql.DB
}

func NewShoppingStore(db *sql.DB) *ShoppingStore {
	return &ShoppingStore{db: db}
}

func scanShoppingItem(scanner interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	var checked int
	var category string
	var recipeID sql.NullInt64
	var recipeTitle, substitutedFrom sql.NullString

	err := scanner.Scan(
		&item.ID, &item.HouseholdID, &item.Ingredient, &item.Quantity, &item.Unit,
		&category, &checked, &recipeID, &recipeTitle, &substitutedFrom,
		&item.SortOrder, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Category = grocery.Category(category)
	item.IsChecked = checked != 0
	if recipeID.Valid {
		item.RecipeID = &recipeID.Int64
	}
	if recipeTitle.Valid {
		item.RecipeTitle = &recipeTitle.String
	}
	if substitutedFrom.Valid {
		item.SubstitutedFrom = &substitutedFrom.String
	}
	return &item, nil
}

const shoppingItemCols = `id, household_id, ingredient, quantity, unit, category, is_checked, recipe_id, recipe_title, substituted_from, sort_order, created_at, updated_at`

// resolveCategory returns category if it is a member of the enumeration,
// otherwise the categorizer's guess for ingredient.
func resolveCategory(ingredient string, category grocery.Category) grocery.Category {
	if category.Valid() {
		return category
	}
	if c, ok := grocery.ParseCategory(string(category)); ok {
		return c
	}
	return grocery.Categorize(ingredient)
}

func (s *ShoppingStore) ListItems(householdID int64) ([]model.ShoppingListItem, error) {
	rows, err := s.db.Query(
		`SELECT `+shoppingItemCols+` FROM shopping_list_items WHERE household_id = ? ORDER BY sort_order ASC, id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping items: %w", err)
	}
	defer rows.Close()

	var items []model.ShoppingListItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *ShoppingStore) GetItem(householdID, id int64) (*model.ShoppingListItem, error) {
	row := s.db.QueryRow(
		`SELECT `+shoppingItemCols+` FROM shopping_list_items WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	item, err := scanShoppingItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping item: %w", err)
	}
	return item, nil
}

// CreateItem adds a quick-add item. An empty or unknown category is filled in
// by the categorizer.
func (s *ShoppingStore) CreateItem(householdID int64, ingredient, quantity, unit string, category grocery.Category) (*model.ShoppingListItem, error) {
	ingredient = strings.TrimSpace(ingredient)
	result, err := s.db.Exec(
		`INSERT INTO shopping_list_items (household_id, ingredient, quantity, unit, category, sort_order)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM shopping_list_items WHERE household_id = ?))`,
		householdID, ingredient, strings.TrimSpace(quantity), strings.TrimSpace(unit),
		string(resolveCategory(ingredient, category)), householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert shopping item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetItem(householdID, id)
}

// GenerateFromMealPlan adds one item per ingredient of every recipe planned
// between from and to (inclusive, YYYY-MM-DD). Ingredients already on the
// list for the same recipe are skipped, so regenerating is a no-op. Returns
// the newly created items.
func (s *ShoppingStore) GenerateFromMealPlan(householdID int64, from, to string) ([]model.ShoppingListItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT r.id, r.title, ri.ingredient, ri.quantity, ri.unit, ri.sort_order, ri.id
		 FROM meal_plan_entries mp
		 JOIN recipes r ON r.id = mp.recipe_id
		 JOIN recipe_ingredients ri ON ri.recipe_id = r.id
		 WHERE mp.household_id = ? AND mp.planned_date BETWEEN ? AND ?
		 ORDER BY mp.planned_date ASC, r.id ASC, ri.sort_order ASC, ri.id ASC`,
		householdID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list planned ingredients: %w", err)
	}

	type planned struct {
		recipeID                   int64
		title                      string
		ingredient, quantity, unit string
	}
	var wanted []planned
	seen := make(map[string]bool)
	for rows.Next() {
		var p planned
		var sortOrder int
		var ingredientID int64
		if err := rows.Scan(&p.recipeID, &p.title, &p.ingredient, &p.quantity, &p.unit, &sortOrder, &ingredientID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan planned ingredient: %w", err)
		}
		// A recipe planned twice in the range contributes its ingredients once.
		key := fmt.Sprintf("%d\x00%d", p.recipeID, ingredientID)
		if seen[key] {
			continue
		}
		seen[key] = true
		wanted = append(wanted, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate planned ingredients: %w", err)
	}
	rows.Close()

	var ids []int64
	for _, p := range wanted {
		var exists int
		err := tx.QueryRow(
			`SELECT COUNT(*) FROM shopping_list_items
			 WHERE household_id = ? AND recipe_id = ? AND lower(COALESCE(substituted_from, ingredient)) = lower(?)`,
			householdID, p.recipeID, p.ingredient,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("check existing item: %w", err)
		}
		if exists > 0 {
			continue
		}

		result, err := tx.Exec(
			`INSERT INTO shopping_list_items (household_id, ingredient, quantity, unit, category, recipe_id, recipe_title, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(sort_order), 0) + 1 FROM shopping_list_items WHERE household_id = ?))`,
			householdID, p.ingredient, p.quantity, p.unit, string(grocery.Categorize(p.ingredient)),
			p.recipeID, p.title, householdID,
		)
		if err != nil {
			return nil, fmt.Errorf("insert generated item: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit generate: %w", err)
	}

	items := make([]model.ShoppingListItem, 0, len(ids))
	for _, id := range ids {
		item, err := s.GetItem(householdID, id)
		if err != nil {
			return nil, err
		}
		if item != nil {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (s *ShoppingStore) UpdateItem(householdID, id int64, ingredient, quantity, unit string, category grocery.Category) (*model.ShoppingListItem, error) {
	ingredient = strings.TrimSpace(ingredient)
	_, err := s.db.Exec(
		`UPDATE shopping_list_items SET ingredient = ?, quantity = ?, unit = ?, category = ?, updated_at = ?
		 WHERE id = ? AND household_id = ?`,
		ingredient, strings.TrimSpace(quantity), strings.TrimSpace(unit),
		string(resolveCategory(ingredient, category)), time.Now().UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("update shopping item: %w", err)
	}
	return s.GetItem(householdID, id)
}

func (s *ShoppingStore) SetChecked(householdID, id int64, checked bool) (*model.ShoppingListItem, error) {
	v := 0
	if checked {
		v = 1
	}
	_, err := s.db.Exec(
		`UPDATE shopping_list_items SET is_checked = ?, updated_at = ? WHERE id = ? AND household_id = ?`,
		v, time.Now().UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("set checked: %w", err)
	}
	return s.GetItem(householdID, id)
}

func (s *ShoppingStore) ToggleChecked(householdID, id int64) (*model.ShoppingListItem, error) {
	_, err := s.db.Exec(
		`UPDATE shopping_list_items SET is_checked = 1 - is_checked, updated_at = ? WHERE id = ? AND household_id = ?`,
		time.Now().UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle checked: %w", err)
	}
	return s.GetItem(householdID, id)
}

// Substitute replaces the item's ingredient. The first pre-substitution name
// is kept in substituted_from across repeated substitutions.
func (s *ShoppingStore) Substitute(householdID, id int64, replacement string) (*model.ShoppingListItem, error) {
	replacement = strings.TrimSpace(replacement)
	_, err := s.db.Exec(
		`UPDATE shopping_list_items
		 SET substituted_from = COALESCE(substituted_from, ingredient), ingredient = ?, category = ?, updated_at = ?
		 WHERE id = ? AND household_id = ?`,
		replacement, string(grocery.Categorize(replacement)), time.Now().UTC(), id, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("substitute item: %w", err)
	}
	return s.GetItem(householdID, id)
}

func (s *ShoppingStore) DeleteItem(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM shopping_list_items WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	return nil
}

// ClearChecked deletes every checked item and returns the deleted items.
func (s *ShoppingStore) ClearChecked(householdID int64) ([]model.ShoppingListItem, error) {
	return s.deleteWhere("clear checked", `household_id = ? AND is_checked = 1`, householdID)
}

// ClearAll empties the list and returns the deleted items.
func (s *ShoppingStore) ClearAll(householdID int64) ([]model.ShoppingListItem, error) {
	return s.deleteWhere("clear all", `household_id = ?`, householdID)
}

// DeleteByRecipe removes every item generated from recipeID.
func (s *ShoppingStore) DeleteByRecipe(householdID, recipeID int64) ([]model.ShoppingListItem, error) {
	return s.deleteWhere("delete by recipe", `household_id = ? AND recipe_id = ?`, householdID, recipeID)
}

func (s *ShoppingStore) deleteWhere(op, where string, args ...any) ([]model.ShoppingListItem, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT `+shoppingItemCols+` FROM shopping_list_items WHERE `+where+` ORDER BY id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	var deleted []model.ShoppingListItem
	for rows.Next() {
		item, err := scanShoppingItem(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan shopping item: %w", err)
		}
		deleted = append(deleted, *item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows.Close()

	if _, err := tx.Exec(`DELETE FROM shopping_list_items WHERE `+where, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit %s: %w", op, err)
	}
	return deleted, nil
}

func (s *ShoppingStore) CountUnchecked(householdID int64) (int, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM shopping_list_items WHERE household_id = ? AND is_checked = 0`,
		householdID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unchecked: %w", err)
	}
	return count, nil
}
