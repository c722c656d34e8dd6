package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/nutrition"
	"github.com/dukerupert/larder/internal/shoplist"
	"github.com/dukerupert/larder/internal/store"
)

// NutritionEnqueuer schedules nutrition extraction for a saved recipe.
type NutritionEnqueuer interface {
	Enqueue(householdID, recipeID int64) (nutrition.Task, bool)
}

type RecipeHandler struct {
	recipes   *store.RecipeStore
	mealPlan  *store.MealPlanStore
	items     *store.ShoppingStore
	nutrition NutritionEnqueuer
	hub       Broadcaster
	logger    *slog.Logger
}

func NewRecipeHandler(recipes *store.RecipeStore, mealPlan *store.MealPlanStore, items *store.ShoppingStore, nq NutritionEnqueuer, hub Broadcaster, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		recipes:   recipes,
		mealPlan:  mealPlan,
		items:     items,
		nutrition: nq,
		hub:       hub,
		logger:    logger,
	}
}

type recipeIngredientRequest struct {
	Ingredient string `json:"ingredient"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
}

type recipeRequest struct {
	Title        string                    `json:"title"`
	Servings     int                       `json:"servings"`
	Instructions string                    `json:"instructions"`
	SourceURL    string                    `json:"source_url"`
	Ingredients  []recipeIngredientRequest `json:"ingredients"`
}

type recipeResponse struct {
	*model.Recipe
	Nutrition *model.NutritionData `json:"nutrition,omitempty"`
}

func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.recipes.List(auth.HouseholdID(r.Context()))
	if err != nil {
		h.logger.Error("list recipes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recipes")
		return
	}
	if recipes == nil {
		recipes = []model.Recipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Create saves the recipe and queues nutrition extraction without waiting for
// it. A full queue does not fail the request.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req recipeRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Servings < 0 {
		writeError(w, http.StatusBadRequest, "servings must not be negative")
		return
	}

	rec := model.Recipe{
		Title:        req.Title,
		Servings:     req.Servings,
		Instructions: req.Instructions,
		SourceURL:    strings.TrimSpace(req.SourceURL),
	}
	for _, ing := range req.Ingredients {
		rec.Ingredients = append(rec.Ingredients, model.RecipeIngredient{
			Ingredient: ing.Ingredient,
			Quantity:   ing.Quantity,
			Unit:       ing.Unit,
		})
	}

	created, err := h.recipes.Create(hh, rec)
	if err != nil {
		h.logger.Error("create recipe", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create recipe")
		return
	}

	if len(created.Ingredients) > 0 {
		if task, ok := h.nutrition.Enqueue(hh, created.ID); ok {
			h.logger.Debug("nutrition queued", "recipe_id", created.ID, "task_id", task.ID)
		}
	}

	writeJSON(w, http.StatusCreated, recipeResponse{Recipe: created})
}

func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.recipes.Get(hh, id)
	if err != nil {
		h.logger.Error("get recipe", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recipe")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}

	n, err := h.recipes.GetNutrition(id)
	if err != nil {
		h.logger.Error("get nutrition", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recipe")
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Recipe: rec, Nutrition: n})
}

// Delete removes the recipe. Its generated shopping-list items go with it and
// are announced as deletions.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.recipes.Get(hh, id)
	if err != nil {
		h.logger.Error("get recipe", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recipe")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}

	deleted, err := h.items.DeleteByRecipe(hh, id)
	if err != nil {
		h.logger.Error("delete recipe items", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete recipe")
		return
	}
	if err := h.recipes.Delete(hh, id); err != nil {
		h.logger.Error("delete recipe", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete recipe")
		return
	}

	for _, item := range deleted {
		h.hub.Broadcast(hh, shoplist.Event{Type: shoplist.EventDelete, Item: item})
	}
	w.WriteHeader(http.StatusNoContent)
}

var mealTypes = map[string]bool{
	"breakfast": true,
	"lunch":     true,
	"dinner":    true,
	"snack":     true,
}

type mealPlanRequest struct {
	RecipeID int64  `json:"recipe_id"`
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

// ListMealPlan returns entries between ?from= and ?to= inclusive, defaulting
// to the next seven days.
func (h *RecipeHandler) ListMealPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := time.Now().Format(dateLayout)
	from := q.Get("from")
	if from == "" {
		from = today
	}
	to := q.Get("to")
	if to == "" {
		start, err := time.Parse(dateLayout, from)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
			return
		}
		to = start.AddDate(0, 0, 6).Format(dateLayout)
	}
	if _, err := time.Parse(dateLayout, from); err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	if _, err := time.Parse(dateLayout, to); err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	entries, err := h.mealPlan.ListRange(auth.HouseholdID(r.Context()), from, to)
	if err != nil {
		h.logger.Error("list meal plan", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list meal plan")
		return
	}
	if entries == nil {
		entries = []model.MealPlanEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *RecipeHandler) AddMealPlan(w http.ResponseWriter, r *http.Request) {
	hh := auth.HouseholdID(r.Context())

	var req mealPlanRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	req.MealType = strings.ToLower(strings.TrimSpace(req.MealType))
	if req.MealType != "" && !mealTypes[req.MealType] {
		writeError(w, http.StatusBadRequest, "meal_type must be breakfast, lunch, dinner or snack")
		return
	}

	entry, err := h.mealPlan.Add(hh, req.RecipeID, req.Date, req.MealType)
	if err != nil {
		h.logger.Error("add meal plan entry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add meal plan entry")
		return
	}
	if entry == nil {
		writeError(w, http.StatusNotFound, "recipe not found")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *RecipeHandler) DeleteMealPlan(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.mealPlan.Delete(auth.HouseholdID(r.Context()), id); err != nil {
		h.logger.Error("delete meal plan entry", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete meal plan entry")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
