package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// MenuHandler handles recipes and ingredients of an event.
type MenuHandler struct {
	menuService *services.MenuService
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(menuService *services.MenuService) *MenuHandler {
	return &MenuHandler{menuService: menuService}
}

type ingredientRequest struct {
	Name     *string `json:"name"`
	Quantity *string `json:"quantity"`
	Unit     *string `json:"unit"`
}

func (r ingredientRequest) input() services.IngredientInput {
	return services.IngredientInput{Name: r.Name, Quantity: r.Quantity, Unit: r.Unit}
}

type recipeRequest struct {
	Name        *string             `json:"name"`
	Course      *models.Course      `json:"course"`
	Description *string             `json:"description"`
	Ingredients []ingredientRequest `json:"ingredients"`
}

func (r recipeRequest) input() services.RecipeInput {
	in := services.RecipeInput{Name: r.Name, Course: r.Course, Description: r.Description}
	for _, i := range r.Ingredients {
		in.Ingredients = append(in.Ingredients, i.input())
	}
	return in
}

// ListRecipes returns the menu of the event.
func (h *MenuHandler) ListRecipes(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	recipes, err := h.menuService.ListRecipes(event.ID)
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipes": recipes})
}

// CreateRecipe adds a recipe, optionally with ingredients.
func (h *MenuHandler) CreateRecipe(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	recipe, err := h.menuService.CreateRecipe(event.ID, req.input())
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusCreated, recipe)
}

// UpdateRecipe edits a recipe.
func (h *MenuHandler) UpdateRecipe(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	recipeID, ok := utils.ParseIDParam(c, "recipeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid recipe ID")
		return
	}

	var req recipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	recipe, err := h.menuService.UpdateRecipe(event.ID, recipeID, req.input())
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// DeleteRecipe removes a recipe with its ingredients.
func (h *MenuHandler) DeleteRecipe(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	recipeID, ok := utils.ParseIDParam(c, "recipeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid recipe ID")
		return
	}

	if err := h.menuService.DeleteRecipe(event.ID, recipeID); err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Recipe deleted successfully"})
}

// AddIngredients appends ingredients to a recipe.
func (h *MenuHandler) AddIngredients(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	recipeID, ok := utils.ParseIDParam(c, "recipeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid recipe ID")
		return
	}

	var req struct {
		Ingredients []ingredientRequest `json:"ingredients" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Ingredients are required")
		return
	}

	inputs := make([]services.IngredientInput, len(req.Ingredients))
	for i, in := range req.Ingredients {
		inputs[i] = in.input()
	}

	ingredients, err := h.menuService.AddIngredients(event.ID, recipeID, inputs)
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ingredients": ingredients})
}

// UpdateIngredient edits an ingredient.
func (h *MenuHandler) UpdateIngredient(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	ingredientID, ok := utils.ParseIDParam(c, "ingredientId")
	if !ok {
		apierrors.BadRequest(c, "Invalid ingredient ID")
		return
	}

	var req ingredientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ingredient, err := h.menuService.UpdateIngredient(event.ID, ingredientID, req.input())
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, ingredient)
}

// DeleteIngredient removes an ingredient.
func (h *MenuHandler) DeleteIngredient(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	ingredientID, ok := utils.ParseIDParam(c, "ingredientId")
	if !ok {
		apierrors.BadRequest(c, "Invalid ingredient ID")
		return
	}

	if err := h.menuService.DeleteIngredient(event.ID, ingredientID); err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Ingredient deleted successfully"})
}

// Coverage reports which ingredients someone already brings.
func (h *MenuHandler) Coverage(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	coverage, err := h.menuService.Coverage(event.ID)
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, coverage)
}

// SuggestIngredients asks the AI for the ingredients of a recipe.
// With ?apply=true the suggestions are added to the recipe.
func (h *MenuHandler) SuggestIngredients(c *gin.Context) {
	_, event, ok := requestContext(c)
	if !ok {
		return
	}

	recipeID, ok := utils.ParseIDParam(c, "recipeId")
	if !ok {
		apierrors.BadRequest(c, "Invalid recipe ID")
		return
	}

	suggestions, err := h.menuService.Suggest(c.Request.Context(), event.ID, recipeID, c.Query("apply") == "true")
	if err != nil {
		respondMenuError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

func respondMenuError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRecipeNotFound),
		errors.Is(err, services.ErrIngredientNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrRecipeNameRequired),
		errors.Is(err, services.ErrIngredientNameRequired),
		errors.Is(err, services.ErrInvalidCourse):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not available")
	case errors.Is(err, services.ErrAINoSuggestions):
		apierrors.BadGateway(c, err.Error())
	default:
		if !respondCommonError(c, err) {
			respondInternal(c, err)
		}
	}
}
