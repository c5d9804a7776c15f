package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrIngredientNotFound     = errors.New("ingredient not found")
	ErrRecipeNameRequired     = errors.New("recipe name is required")
	ErrIngredientNameRequired = errors.New("ingredient name is required")
	ErrInvalidCourse          = errors.New("course must be starter, main, dessert or other")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoSuggestions        = errors.New("AI did not suggest any ingredient")
)

// MenuService manages recipes and their ingredients.
type MenuService struct {
	menuRepo  repository.MenuRepository
	eventRepo repository.EventRepository
	suggester IngredientSuggester
	notifier  Notifier
}

// NewMenuService creates a new MenuService. suggester may be nil.
func NewMenuService(
	menuRepo repository.MenuRepository,
	eventRepo repository.EventRepository,
	suggester IngredientSuggester,
	notifier Notifier,
) *MenuService {
	return &MenuService{
		menuRepo:  menuRepo,
		eventRepo: eventRepo,
		suggester: suggester,
		notifier:  notifierOrNoop(notifier),
	}
}

// RecipeInput holds editable recipe fields.
type RecipeInput struct {
	Name        *string
	Course      *models.Course
	Description *string
	Ingredients []IngredientInput
}

// IngredientInput holds editable ingredient fields.
type IngredientInput struct {
	Name     *string
	Quantity *string
	Unit     *string
}

// Coverage lists which ingredients of the event already have a contribution.
type Coverage struct {
	Covered   []uint64 `json:"covered"`
	Uncovered []uint64 `json:"uncovered"`
}

// ListRecipes returns the menu of an event.
func (s *MenuService) ListRecipes(eventID uint64) ([]models.MenuRecipe, error) {
	recipes, err := s.menuRepo.ListRecipes(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// CreateRecipe creates a recipe with optional initial ingredients.
func (s *MenuService) CreateRecipe(eventID uint64, input RecipeInput) (*models.MenuRecipe, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrRecipeNameRequired
	}

	recipe := &models.MenuRecipe{
		EventID: eventID,
		Name:    strings.TrimSpace(*input.Name),
		Course:  models.CourseMain,
	}
	if input.Course != nil {
		if !input.Course.Valid() {
			return nil, ErrInvalidCourse
		}
		recipe.Course = *input.Course
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}

	for _, in := range input.Ingredients {
		ingredient, err := buildIngredient(in)
		if err != nil {
			return nil, err
		}
		recipe.Ingredients = append(recipe.Ingredients, ingredient)
	}

	if err := s.menuRepo.CreateRecipe(recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.notify(eventID, "created", recipe.ID)
	return recipe, nil
}

// UpdateRecipe edits the recipe attributes. Ingredients are managed separately.
func (s *MenuService) UpdateRecipe(eventID, recipeID uint64, input RecipeInput) (*models.MenuRecipe, error) {
	recipe, err := s.findRecipe(eventID, recipeID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrRecipeNameRequired
		}
		recipe.Name = name
	}
	if input.Course != nil {
		if !input.Course.Valid() {
			return nil, ErrInvalidCourse
		}
		recipe.Course = *input.Course
	}
	if input.Description != nil {
		recipe.Description = *input.Description
	}

	if err := s.menuRepo.UpdateRecipe(recipe); err != nil {
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	s.notify(eventID, "updated", recipe.ID)
	return recipe, nil
}

// DeleteRecipe removes a recipe and its ingredients.
func (s *MenuService) DeleteRecipe(eventID, recipeID uint64) error {
	recipe, err := s.findRecipe(eventID, recipeID)
	if err != nil {
		return err
	}

	if err := s.menuRepo.DeleteRecipe(recipe.ID); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}

	s.notify(eventID, "deleted", recipe.ID)
	return nil
}

// AddIngredients appends ingredients to a recipe.
func (s *MenuService) AddIngredients(eventID, recipeID uint64, inputs []IngredientInput) ([]models.MenuIngredient, error) {
	recipe, err := s.findRecipe(eventID, recipeID)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, ErrIngredientNameRequired
	}

	ingredients := make([]models.MenuIngredient, 0, len(inputs))
	for _, in := range inputs {
		ingredient, err := buildIngredient(in)
		if err != nil {
			return nil, err
		}
		ingredient.RecipeID = recipe.ID
		ingredients = append(ingredients, ingredient)
	}

	if err := s.menuRepo.AddIngredients(ingredients); err != nil {
		return nil, fmt.Errorf("failed to add ingredients: %w", err)
	}

	s.notify(eventID, "updated", recipe.ID)
	return ingredients, nil
}

// UpdateIngredient edits one ingredient.
func (s *MenuService) UpdateIngredient(eventID, ingredientID uint64, input IngredientInput) (*models.MenuIngredient, error) {
	ingredient, err := s.findIngredient(eventID, ingredientID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrIngredientNameRequired
		}
		ingredient.Name = name
	}
	if input.Quantity != nil {
		ingredient.Quantity = strings.TrimSpace(*input.Quantity)
	}
	if input.Unit != nil {
		ingredient.Unit = strings.TrimSpace(*input.Unit)
	}

	if err := s.menuRepo.UpdateIngredient(ingredient); err != nil {
		return nil, fmt.Errorf("failed to update ingredient: %w", err)
	}

	s.notify(eventID, "updated", ingredient.RecipeID)
	return ingredient, nil
}

// DeleteIngredient removes an ingredient; linked contributions are kept but unlinked.
func (s *MenuService) DeleteIngredient(eventID, ingredientID uint64) error {
	ingredient, err := s.findIngredient(eventID, ingredientID)
	if err != nil {
		return err
	}

	if err := s.menuRepo.DeleteIngredient(ingredient.ID); err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}

	s.notify(eventID, "updated", ingredient.RecipeID)
	return nil
}

// Coverage splits the event's ingredients by whether someone brings them.
func (s *MenuService) Coverage(eventID uint64) (*Coverage, error) {
	recipes, err := s.menuRepo.ListRecipes(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	coveredIDs, err := s.menuRepo.CoveredIngredientIDs(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute coverage: %w", err)
	}

	covered := make(map[uint64]struct{}, len(coveredIDs))
	for _, id := range coveredIDs {
		covered[id] = struct{}{}
	}

	result := &Coverage{Covered: []uint64{}, Uncovered: []uint64{}}
	for _, r := range recipes {
		for _, i := range r.Ingredients {
			if _, ok := covered[i.ID]; ok {
				result.Covered = append(result.Covered, i.ID)
			} else {
				result.Uncovered = append(result.Uncovered, i.ID)
			}
		}
	}
	return result, nil
}

// Suggest asks the AI for the ingredients of a recipe. When apply is set the
// suggestions are stored on the recipe.
func (s *MenuService) Suggest(ctx context.Context, eventID, recipeID uint64, apply bool) ([]SuggestedIngredient, error) {
	if s.suggester == nil {
		return nil, ErrAIServiceNotConfigured
	}

	recipe, err := s.findRecipe(eventID, recipeID)
	if err != nil {
		return nil, err
	}

	counts, err := s.eventRepo.Summary(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}

	suggestions, err := s.suggester.SuggestIngredients(ctx, RecipePrompt{
		Name:        recipe.Name,
		Course:      string(recipe.Course),
		Description: recipe.Description,
		Guests:      int(counts.Participants),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to suggest ingredients: %w", err)
	}

	valid := make([]SuggestedIngredient, 0, len(suggestions))
	for _, sug := range suggestions {
		sug.Name = strings.TrimSpace(sug.Name)
		if sug.Name == "" {
			continue
		}
		valid = append(valid, sug)
		if len(valid) == constants.MaxSuggestedItems {
			break
		}
	}
	if len(valid) == 0 {
		return nil, ErrAINoSuggestions
	}

	if apply {
		ingredients := make([]models.MenuIngredient, len(valid))
		for i, sug := range valid {
			ingredients[i] = models.MenuIngredient{
				RecipeID: recipe.ID,
				Name:     sug.Name,
				Quantity: sug.Quantity,
				Unit:     sug.Unit,
			}
		}
		if err := s.menuRepo.AddIngredients(ingredients); err != nil {
			return nil, fmt.Errorf("failed to add ingredients: %w", err)
		}
		s.notify(eventID, "updated", recipe.ID)
	}

	return valid, nil
}

func (s *MenuService) findRecipe(eventID, recipeID uint64) (*models.MenuRecipe, error) {
	recipe, err := s.menuRepo.FindRecipe(recipeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to find recipe: %w", err)
	}
	if recipe.EventID != eventID {
		return nil, ErrRecipeNotFound
	}
	return recipe, nil
}

func (s *MenuService) findIngredient(eventID, ingredientID uint64) (*models.MenuIngredient, error) {
	ingredient, err := s.menuRepo.FindIngredient(ingredientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIngredientNotFound
		}
		return nil, fmt.Errorf("failed to find ingredient: %w", err)
	}

	owner, err := s.menuRepo.IngredientEventID(ingredient.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve ingredient: %w", err)
	}
	if owner != eventID {
		return nil, ErrIngredientNotFound
	}
	return ingredient, nil
}

func (s *MenuService) notify(eventID uint64, action string, recipeID uint64) {
	s.notifier.Notify(eventID, constants.RealtimeMenuUpdate, change{Action: action, ID: recipeID})
}

func buildIngredient(in IngredientInput) (models.MenuIngredient, error) {
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return models.MenuIngredient{}, ErrIngredientNameRequired
	}
	ingredient := models.MenuIngredient{Name: strings.TrimSpace(*in.Name)}
	if in.Quantity != nil {
		ingredient.Quantity = strings.TrimSpace(*in.Quantity)
	}
	if in.Unit != nil {
		ingredient.Unit = strings.TrimSpace(*in.Unit)
	}
	return ingredient, nil
}
