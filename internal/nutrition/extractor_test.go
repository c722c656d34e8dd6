package nutrition

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dukerupert/larder/internal/model"
)

func TestParseNutrition(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		wantCalories float64
		wantSodium   float64
		wantErr      error
	}{
		{"plain", `{"calories": 320, "protein": 12.5, "sodium": 410}`, 320, 410, nil},
		{"fenced", "```json\n{\"calories\": 250, \"sodium\": 90}\n```", 250, 90, nil},
		{"prose around", `Here you go: {"calories": "~180 kcal", "sodium": "75mg"} Enjoy!`, 180, 75, nil},
		{"missing fields", `{"calories": 99}`, 99, 0, nil},
		{"no json", "I cannot help with that.", 0, 0, ErrNoJSON},
		{"reversed braces", "} oops {", 0, 0, ErrNoJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseNutrition(tt.text)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if n.Calories != tt.wantCalories {
				t.Errorf("calories = %v, want %v", n.Calories, tt.wantCalories)
			}
			if n.Sodium != tt.wantSodium {
				t.Errorf("sodium = %v, want %v", n.Sodium, tt.wantSodium)
			}
		})
	}
}

func TestParseNutritionMalformed(t *testing.T) {
	_, err := ParseNutrition(`{"calories": [1, 2]}`)
	if err == nil || errors.Is(err, ErrNoJSON) {
		t.Errorf("err = %v, want unmarshal error", err)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt(model.Recipe{
		Title: "Pancakes",
		Ingredients: []model.RecipeIngredient{
			{Ingredient: "flour", Quantity: "2", Unit: "cups"},
			{Ingredient: "salt"},
		},
	})
	for _, want := range []string{`"Pancakes"`, "1 servings", "- 2 cups flour", "- salt", "'calories'"} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q:\n%s", want, p)
		}
	}
}

func TestNoopExtractor(t *testing.T) {
	_, err := NoopExtractor{}.Extract(context.Background(), model.Recipe{})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}
