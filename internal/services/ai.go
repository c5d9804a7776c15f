package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// IngredientSuggester proposes a shopping list for a recipe.
type IngredientSuggester interface {
	SuggestIngredients(ctx context.Context, recipe RecipePrompt) ([]SuggestedIngredient, error)
}

// RecipePrompt describes the dish sent to the model.
type RecipePrompt struct {
	Name        string
	Course      string
	Description string
	Guests      int
}

type SuggestedIngredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

type AIService struct {
	client *openai.Client
	model  string
}

func NewAIService(apiKey string) *AIService {
	return &AIService{
		client: openai.NewClient(apiKey),
		model:  openai.GPT4o,
	}
}

// SuggestIngredients asks the model for the ingredients of a recipe
func (s *AIService) SuggestIngredients(ctx context.Context, recipe RecipePrompt) ([]SuggestedIngredient, error) {
	if s.client == nil {
		return nil, fmt.Errorf("OpenAI client not initialized")
	}

	guests := recipe.Guests
	if guests < 1 {
		guests = 4
	}

	prompt := fmt.Sprintf(`You help a family plan a festive meal. List the ingredients needed for the dish below.

Dish: %s
Course: %s
Notes: %s
Guests: %d

Answer with a JSON array only, no prose:
[
  {"name": "ingredient name", "quantity": "amount for all guests", "unit": "g, kg, ml, l, pieces..."}
]

Rules:
- Return an empty array [] if the dish is unknown
- Quantities must cover every guest
- Do not include salt, pepper or water`, recipe.Name, recipe.Course, recipe.Description, guests)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3,
		},
	)

	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)

	var ingredients []SuggestedIngredient
	if err := json.Unmarshal([]byte(content), &ingredients); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}

	return ingredients, nil
}

// stripCodeFence removes a markdown ```json fence some models wrap around JSON.
func stripCodeFence(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	return strings.TrimSpace(content)
}
