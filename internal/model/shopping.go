package model

import (
	"time"

	"github.com/dukerupert/larder/internal/grocery"
)

// ShoppingListItem is one entry on a household's shopping list. RecipeID and
// RecipeTitle are either both set or both nil.
type ShoppingListItem struct {
	ID              int64            `json:"id"`
	HouseholdID     int64            `json:"household_id"`
	Ingredient      string           `json:"ingredient"`
	Quantity        string           `json:"quantity"`
	Unit            string           `json:"unit"`
	Category        grocery.Category `json:"category"`
	IsChecked       bool             `json:"is_checked"`
	RecipeID        *int64           `json:"recipe_id"`
	RecipeTitle     *string          `json:"recipe_title"`
	SubstitutedFrom *string          `json:"substituted_from"`
	SortOrder       int              `json:"sort_order"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// FromRecipe reports whether the item was generated from a recipe.
func (i ShoppingListItem) FromRecipe() bool {
	return i.RecipeID != nil && i.RecipeTitle != nil
}

type PantryItem struct {
	ID                   int64     `json:"id"`
	HouseholdID          int64     `json:"household_id"`
	NormalizedIngredient string    `json:"normalized_ingredient"`
	CreatedAt            time.Time `json:"created_at"`
}
