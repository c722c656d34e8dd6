package nutrition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/dukerupert/larder/internal/model"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiExtractor asks a Gemini model for nutrition estimates.
type GeminiExtractor struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
}

func NewGeminiExtractor(ctx context.Context, apiKey, modelName string) (*GeminiExtractor, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: api key required")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	m := client.GenerativeModel(modelName)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)
	return &GeminiExtractor{client: client, model: m, name: modelName}, nil
}

func (g *GeminiExtractor) Extract(ctx context.Context, recipe model.Recipe) (*model.NutritionData, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(BuildPrompt(recipe)))
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("empty response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	n, err := ParseNutrition(text.String())
	if err != nil {
		return nil, err
	}
	n.RecipeID = recipe.ID
	n.Source = g.name
	return n, nil
}

func (g *GeminiExtractor) Close() error {
	return g.client.Close()
}
