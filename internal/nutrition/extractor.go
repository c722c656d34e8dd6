// Package nutrition extracts per-serving nutrition for saved recipes in the
// background.
package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukerupert/larder/internal/model"
)

var (
	// ErrNoJSON is returned when a model reply contains no JSON object.
	ErrNoJSON = errors.New("no JSON object in reply")
	// ErrNotConfigured is returned by NoopExtractor.
	ErrNotConfigured = errors.New("extractor not configured")
)

// Extractor estimates nutrition for a recipe.
type Extractor interface {
	Extract(ctx context.Context, recipe model.Recipe) (*model.NutritionData, error)
}

// NoopExtractor is used when no model API key is configured. Every task it
// sees ends up in the dead-letter sink.
type NoopExtractor struct{}

func (NoopExtractor) Extract(context.Context, model.Recipe) (*model.NutritionData, error) {
	return nil, ErrNotConfigured
}

// BuildPrompt renders the instruction sent to the model for recipe.
func BuildPrompt(recipe model.Recipe) string {
	var b strings.Builder
	servings := recipe.Servings
	if servings < 1 {
		servings = 1
	}
	fmt.Fprintf(&b, "Estimate the nutrition per serving for the recipe %q, which makes %d servings.\n", recipe.Title, servings)
	b.WriteString("Ingredients:\n")
	for _, ing := range recipe.Ingredients {
		line := strings.TrimSpace(strings.Join([]string{ing.Quantity, ing.Unit, ing.Ingredient}, " "))
		fmt.Fprintf(&b, "- %s\n", strings.Join(strings.Fields(line), " "))
	}
	b.WriteString("Return a single clean JSON object with numeric keys 'calories' (kcal), 'protein', 'carbs', 'fat', 'fiber', 'sugar' (grams) and 'sodium' (milligrams). ")
	b.WriteString("Do not wrap the JSON in markdown.")
	return b.String()
}

// amount accepts a JSON number or a string with a leading number such as
// "12g" or "~300 kcal".
type amount float64

func (a *amount) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*a = amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount: %s is neither number nor string", data)
	}
	s = strings.TrimLeft(strings.TrimSpace(s), "~≈ ")
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.') {
		end++
	}
	if end == 0 {
		*a = 0
		return nil
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return fmt.Errorf("amount %q: %w", s, err)
	}
	*a = amount(f)
	return nil
}

type reply struct {
	Calories amount `json:"calories"`
	Protein  amount `json:"protein"`
	Carbs    amount `json:"carbs"`
	Fat      amount `json:"fat"`
	Fiber    amount `json:"fiber"`
	Sugar    amount `json:"sugar"`
	Sodium   amount `json:"sodium"`
}

// ParseNutrition pulls the outermost JSON object out of a model reply, which
// may be wrapped in prose or markdown fences.
func ParseNutrition(text string) (*model.NutritionData, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start > end {
		return nil, ErrNoJSON
	}

	var r reply
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return nil, fmt.Errorf("unmarshal nutrition: %w", err)
	}
	return &model.NutritionData{
		Calories: float64(r.Calories),
		Protein:  float64(r.Protein),
		Carbs:    float64(r.Carbs),
		Fat:      float64(r.Fat),
		Fiber:    float64(r.Fiber),
		Sugar:    float64(r.Sugar),
		Sodium:   float64(r.Sodium),
	}, nil
}
