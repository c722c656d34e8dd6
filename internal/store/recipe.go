package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	err := scanner.Scan(&r.ID, &r.HouseholdID, &r.Title, &r.Servings, &r.Instructions, &r.SourceURL, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func scanRecipeIngredient(scanner interface{ Scan(...any) error }) (*model.RecipeIngredient, error) {
	var ri model.RecipeIngredient
	err := scanner.Scan(&ri.ID, &ri.RecipeID, &ri.Ingredient, &ri.Quantity, &ri.Unit, &ri.SortOrder)
	if err != nil {
		return nil, err
	}
	return &ri, nil
}

func scanNutrition(scanner interface{ Scan(...any) error }) (*model.NutritionData, error) {
	var n model.NutritionData
	err := scanner.Scan(&n.RecipeID, &n.Calories, &n.Protein, &n.Carbs, &n.Fat, &n.Fiber, &n.Sugar, &n.Sodium, &n.Source, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

const recipeCols = `id, household_id, title, servings, instructions, source_url, created_at, updated_at`
const recipeIngredientCols = `id, recipe_id, ingredient, quantity, unit, sort_order`
const nutritionCols = `recipe_id, calories, protein, carbs, fat, fiber, sugar, sodium, source, updated_at`

// Create inserts the recipe and its ingredients in one transaction.
func (s *RecipeStore) Create(householdID int64, r model.Recipe) (*model.Recipe, error) {
	if r.Servings < 1 {
		r.Servings = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`INSERT INTO recipes (household_id, title, servings, instructions, source_url) VALUES (?, ?, ?, ?, ?)`,
		householdID, strings.TrimSpace(r.Title), r.Servings, r.Instructions, r.SourceURL,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recipe: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for i, ing := range r.Ingredients {
		name := strings.TrimSpace(ing.Ingredient)
		if name == "" {
			continue
		}
		if _, err := tx.Exec(
			`INSERT INTO recipe_ingredients (recipe_id, ingredient, quantity, unit, sort_order) VALUES (?, ?, ?, ?, ?)`,
			id, name, strings.TrimSpace(ing.Quantity), strings.TrimSpace(ing.Unit), i,
		); err != nil {
			return nil, fmt.Errorf("insert ingredient %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recipe: %w", err)
	}
	return s.Get(householdID, id)
}

// Get returns the recipe with its ingredients.
func (s *RecipeStore) Get(householdID, id int64) (*model.Recipe, error) {
	row := s.db.QueryRow(`SELECT `+recipeCols+` FROM recipes WHERE id = ? AND household_id = ?`, id, householdID)
	r, err := scanRecipe(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	r.Ingredients, err = s.ListIngredients(id)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipeStore) List(householdID int64) ([]model.Recipe, error) {
	rows, err := s.db.Query(`SELECT `+recipeCols+` FROM recipes WHERE household_id = ? ORDER BY title ASC, id ASC`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

func (s *RecipeStore) ListIngredients(recipeID int64) ([]model.RecipeIngredient, error) {
	rows, err := s.db.Query(
		`SELECT `+recipeIngredientCols+` FROM recipe_ingredients WHERE recipe_id = ? ORDER BY sort_order ASC, id ASC`,
		recipeID,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []model.RecipeIngredient
	for rows.Next() {
		ri, err := scanRecipeIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, *ri)
	}
	return ingredients, rows.Err()
}

// Delete removes the recipe. Its ingredients, nutrition, meal plan entries
// and generated shopping-list items cascade.
func (s *RecipeStore) Delete(householdID, id int64) error {
	_, err := s.db.Exec(`DELETE FROM recipes WHERE id = ? AND household_id = ?`, id, householdID)
	if err != nil {
		return fmt.Errorf("delete recipe: %w", err)
	}
	return nil
}

// UpsertNutrition stores per-serving nutrition for a recipe, replacing any
// previous extraction.
func (s *RecipeStore) UpsertNutrition(n model.NutritionData) error {
	_, err := s.db.Exec(
		`INSERT INTO recipe_nutrition (recipe_id, calories, protein, carbs, fat, fiber, sugar, sodium, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(recipe_id) DO UPDATE SET
		   calories = excluded.calories, protein = excluded.protein, carbs = excluded.carbs,
		   fat = excluded.fat, fiber = excluded.fiber, sugar = excluded.sugar,
		   sodium = excluded.sodium, source = excluded.source, updated_at = excluded.updated_at`,
		n.RecipeID, n.Calories, n.Protein, n.Carbs, n.Fat, n.Fiber, n.Sugar, n.Sodium, n.Source, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert nutrition: %w", err)
	}
	return nil
}

func (s *RecipeStore) GetNutrition(recipeID int64) (*model.NutritionData, error) {
	row := s.db.QueryRow(`SELECT `+nutritionCols+` FROM recipe_nutrition WHERE recipe_id = ?`, recipeID)
	n, err := scanNutrition(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get nutrition: %w", err)
	}
	return n, nil
}
