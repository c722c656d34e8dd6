package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

type MealPlanStore struct {
	db *sql.DB
}

func NewMealPlanStore(db *sql.DB) *MealPlanStore {
	return &MealPlanStore{db: db}
}

func scanMealPlanEntry(scanner interface{ Scan(...any) error }) (*model.MealPlanEntry, error) {
	var e model.MealPlanEntry
	err := scanner.Scan(&e.ID, &e.HouseholdID, &e.RecipeID, &e.RecipeTitle, &e.PlannedDate, &e.MealType, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const mealPlanCols = `mp.id, mp.household_id, mp.recipe_id, r.title, mp.planned_date, mp.meal_type, mp.created_at`

// Add plans recipeID for date (YYYY-MM-DD). The recipe must belong to the
// household.
func (s *MealPlanStore) Add(householdID, recipeID int64, date, mealType string) (*model.MealPlanEntry, error) {
	if mealType == "" {
		mealType = "dinner"
	}
	result, err := s.db.Exec(
		`INSERT INTO meal_plan_entries (household_id, recipe_id, planned_date, meal_type)
		 SELECT ?, id, ?, ? FROM recipes WHERE id = ? AND household_id = ?`,
		householdID, date, mealType, recipeID, householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert meal plan entry: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.get(householdID, id)
}

func (s *MealPlanStore) get(householdID, id int64) (*model.MealPlanEntry, error) {
	row := s.db.QueryRow(
		`SELECT `+mealPlanCols+` FROM meal_plan_entries mp JOIN recipes r ON r.id = mp.recipe_id
		 WHERE mp.id = ? AND mp.household_id = ?`,
		id, householdID,
	)
	e, err := scanMealPlanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get meal plan entry: %w", err)
	}
	return e, nil
}

// ListRange returns entries planned between from and to inclusive.
func (s *MealPlanStore) ListRange(householdID int64, from, to string) ([]model.MealPlanEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+mealPlanCols+` FROM meal_plan_entries mp JOIN recipes r ON r.id = mp.recipe_id
		 WHERE mp.household_id = ? AND mp.planned_date BETWEEN ? AND ?
		 ORDER BY mp.planned_date ASC, mp.id ASC`,
		householdID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("list meal plan: %w", err)
	}
	defer rows.Close()

	var entries []model.MealPlanEntry
	for rows.Next() {
		e, err := scanMealPlanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal plan entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *MealPlanStore) Delete(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM meal_plan_entries WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete meal plan entry: %w", err)
	}
	return nil
}
