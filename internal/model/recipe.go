package model

import "time"

type Recipe struct {
	ID           int64              `json:"id"`
	HouseholdID  int64              `json:"household_id"`
	Title        string             `json:"title"`
	Servings     int                `json:"servings"`
	Instructions string             `json:"instructions"`
	SourceURL    string             `json:"source_url"`
	Ingredients  []RecipeIngredient `json:"ingredients,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type RecipeIngredient struct {
	ID         int64  `json:"id"`
	RecipeID   int64  `json:"recipe_id"`
	Ingredient string `json:"ingredient"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
	SortOrder  int    `json:"sort_order"`
}

// NutritionData is per-serving nutrition for a recipe, as extracted by the
// nutrition pipeline.
type NutritionData struct {
	RecipeID  int64     `json:"recipe_id"`
	Calories  float64   `json:"calories"`
	Protein   float64   `json:"protein"`
	Carbs     float64   `json:"carbs"`
	Fat       float64   `json:"fat"`
	Fiber     float64   `json:"fiber"`
	Sugar     float64   `json:"sugar"`
	Sodium    float64   `json:"sodium"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MealPlanEntry struct {
	ID          int64     `json:"id"`
	HouseholdID int64     `json:"household_id"`
	RecipeID    int64     `json:"recipe_id"`
	RecipeTitle string    `json:"recipe_title"`
	PlannedDate string    `json:"planned_date"`
	MealType    string    `json:"meal_type"`
	CreatedAt   time.Time `json:"created_at"`
}
