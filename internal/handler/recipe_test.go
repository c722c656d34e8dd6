package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/shoplist"
	"github.com/dukerupert/larder/internal/store"
)

type recipeFixture struct {
	h       *RecipeHandler
	hub     *recordingHub
	queue   *fakeQueue
	recipes *store.RecipeStore
	items   *store.ShoppingStore
}

func setupRecipeHandler(t *testing.T) recipeFixture {
	t.Helper()
	db := setupHandlerTestDB(t)
	f := recipeFixture{
		hub:     newRecordingHub(),
		queue:   &fakeQueue{},
		recipes: store.NewRecipeStore(db),
		items:   store.NewShoppingStore(db),
	}
	f.h = NewRecipeHandler(f.recipes, store.NewMealPlanStore(db), f.items, f.queue, f.hub, discardLogger)
	return f
}

func (f recipeFixture) create(t *testing.T, body map[string]any) model.Recipe {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.Create(rec, newRequest(t, "POST", "/api/recipes", body, testHousehold))
	assertStatus(t, rec, http.StatusCreated)
	return decodeBody[model.Recipe](t, rec)
}

func TestCreateRecipeEnqueuesNutrition(t *testing.T) {
	f := setupRecipeHandler(t)

	r := f.create(t, map[string]any{
		"title":    "Omelette",
		"servings": 2,
		"ingredients": []map[string]string{
			{"ingredient": "eggs", "quantity": "3"},
			{"ingredient": "cheddar", "quantity": "1/4", "unit": "cup"},
		},
	})
	if len(r.Ingredients) != 2 {
		t.Fatalf("expected 2 ingredients, got %d", len(r.Ingredients))
	}
	if len(f.queue.tasks) != 1 || f.queue.tasks[0].RecipeID != r.ID || f.queue.tasks[0].HouseholdID != testHousehold {
		t.Errorf("queued tasks = %+v", f.queue.tasks)
	}

	// A recipe without ingredients has nothing to analyse.
	f.create(t, map[string]any{"title": "Water"})
	if len(f.queue.tasks) != 1 {
		t.Errorf("expected no task for empty recipe, got %d tasks", len(f.queue.tasks))
	}
}

func TestCreateRecipeQueueFull(t *testing.T) {
	f := setupRecipeHandler(t)
	f.queue.full = true

	r := f.create(t, map[string]any{
		"title":       "Toast",
		"ingredients": []map[string]string{{"ingredient": "bread"}},
	})
	if r.ID == 0 {
		t.Error("recipe should be saved even when the queue is full")
	}
}

func TestCreateRecipeValidation(t *testing.T) {
	f := setupRecipeHandler(t)

	tests := []map[string]any{
		{"title": "  "},
		{"title": "Soup", "servings": -1},
	}
	for _, body := range tests {
		rec := httptest.NewRecorder()
		f.h.Create(rec, newRequest(t, "POST", "/", body, testHousehold))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %v: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestGetRecipeWithNutrition(t *testing.T) {
	f := setupRecipeHandler(t)
	r := f.create(t, map[string]any{
		"title":       "Rice Bowl",
		"ingredients": []map[string]string{{"ingredient": "rice", "quantity": "1", "unit": "cup"}},
	})
	id := strconv.FormatInt(r.ID, 10)

	rec := httptest.NewRecorder()
	f.h.Get(rec, newRequest(t, "GET", "/", nil, testHousehold, "id", id))
	assertStatus(t, rec, http.StatusOK)
	if got := decodeBody[recipeResponse](t, rec); got.Nutrition != nil {
		t.Errorf("expected no nutrition yet, got %+v", got.Nutrition)
	}

	if err := f.recipes.UpsertNutrition(model.NutritionData{RecipeID: r.ID, Calories: 205, Source: "test"}); err != nil {
		t.Fatalf("upsert nutrition: %v", err)
	}
	rec = httptest.NewRecorder()
	f.h.Get(rec, newRequest(t, "GET", "/", nil, testHousehold, "id", id))
	got := decodeBody[recipeResponse](t, rec)
	if got.Nutrition == nil || got.Nutrition.Calories != 205 {
		t.Errorf("nutrition = %+v", got.Nutrition)
	}
	if got.Recipe == nil || got.Title != "Rice Bowl" {
		t.Errorf("recipe = %+v", got.Recipe)
	}

	rec = httptest.NewRecorder()
	f.h.Get(rec, newRequest(t, "GET", "/", nil, 999, "id", id))
	assertStatus(t, rec, http.StatusNotFound)
}

func TestDeleteRecipeBroadcastsItemDeletes(t *testing.T) {
	f := setupRecipeHandler(t)
	r := f.create(t, map[string]any{
		"title":       "Tacos",
		"ingredients": []map[string]string{{"ingredient": "tortillas"}, {"ingredient": "ground beef"}},
	})

	rec := httptest.NewRecorder()
	f.h.AddMealPlan(rec, newRequest(t, "POST", "/", map[string]any{"recipe_id": r.ID, "date": "2026-05-05"}, testHousehold))
	assertStatus(t, rec, http.StatusCreated)
	if _, err := f.items.GenerateFromMealPlan(testHousehold, "2026-05-05", "2026-05-05"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	rec = httptest.NewRecorder()
	f.h.Delete(rec, newRequest(t, "DELETE", "/", nil, testHousehold, "id", strconv.FormatInt(r.ID, 10)))
	assertStatus(t, rec, http.StatusNoContent)

	evs := f.hub.take(testHousehold)
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	for _, ev := range evs {
		if ev.Type != shoplist.EventDelete {
			t.Errorf("event type = %s, want DELETE", ev.Type)
		}
	}
	if items, _ := f.items.ListItems(testHousehold); len(items) != 0 {
		t.Errorf("expected no items left, got %d", len(items))
	}

	rec = httptest.NewRecorder()
	f.h.Delete(rec, newRequest(t, "DELETE", "/", nil, testHousehold, "id", strconv.FormatInt(r.ID, 10)))
	assertStatus(t, rec, http.StatusNotFound)
}

func TestMealPlan(t *testing.T) {
	f := setupRecipeHandler(t)
	r := f.create(t, map[string]any{"title": "Chili"})

	rec := httptest.NewRecorder()
	f.h.AddMealPlan(rec, newRequest(t, "POST", "/", map[string]any{"recipe_id": r.ID, "date": "2026-06-01", "meal_type": "Lunch"}, testHousehold))
	assertStatus(t, rec, http.StatusCreated)
	entry := decodeBody[model.MealPlanEntry](t, rec)
	if entry.MealType != "lunch" || entry.RecipeTitle != "Chili" {
		t.Errorf("entry = %+v", entry)
	}

	rec = httptest.NewRecorder()
	f.h.ListMealPlan(rec, newRequest(t, "GET", "/api/meal-plan?from=2026-06-01", nil, testHousehold))
	assertStatus(t, rec, http.StatusOK)
	if entries := decodeBody[[]model.MealPlanEntry](t, rec); len(entries) != 1 {
		t.Errorf("expected 1 entry in default week, got %d", len(entries))
	}

	rec = httptest.NewRecorder()
	f.h.ListMealPlan(rec, newRequest(t, "GET", "/api/meal-plan?from=2026-06-02&to=2026-06-30", nil, testHousehold))
	if entries := decodeBody[[]model.MealPlanEntry](t, rec); len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}

	rec = httptest.NewRecorder()
	f.h.DeleteMealPlan(rec, newRequest(t, "DELETE", "/", nil, testHousehold, "id", strconv.FormatInt(entry.ID, 10)))
	assertStatus(t, rec, http.StatusNoContent)
}

func TestMealPlanValidation(t *testing.T) {
	f := setupRecipeHandler(t)
	r := f.create(t, map[string]any{"title": "Chili"})

	tests := []struct {
		name   string
		body   map[string]any
		hh     int64
		status int
	}{
		{"bad date", map[string]any{"recipe_id": r.ID, "date": "June 1"}, testHousehold, http.StatusBadRequest},
		{"bad meal type", map[string]any{"recipe_id": r.ID, "date": "2026-06-01", "meal_type": "brunch"}, testHousehold, http.StatusBadRequest},
		{"unknown recipe", map[string]any{"recipe_id": 9999, "date": "2026-06-01"}, testHousehold, http.StatusNotFound},
		{"other household", map[string]any{"recipe_id": r.ID, "date": "2026-06-01"}, 999, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			f.h.AddMealPlan(rec, newRequest(t, "POST", "/", tt.body, tt.hh))
			assertStatus(t, rec, tt.status)
		})
	}

	rec := httptest.NewRecorder()
	f.h.ListMealPlan(rec, newRequest(t, "GET", "/api/meal-plan?from=tomorrow", nil, testHousehold))
	assertStatus(t, rec, http.StatusBadRequest)
}
