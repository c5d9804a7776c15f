package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

type stubSuggester struct {
	prompt      RecipePrompt
	suggestions []SuggestedIngredient
	err         error
}

func (s *stubSuggester) SuggestIngredients(_ context.Context, recipe RecipePrompt) ([]SuggestedIngredient, error) {
	s.prompt = recipe
	return s.suggestions, s.err
}

// MenuServiceTestSuite covers recipes, ingredients, coverage and AI suggestions.
type MenuServiceTestSuite struct {
	suite.Suite
	db        *gorm.DB
	service   *MenuService
	suggester *stubSuggester
	notifier  *recordingNotifier
	event     *models.Event
	user      *models.User
}

// SetupTest runs before each test
func (suite *MenuServiceTestSuite) SetupTest() {
	suite.db = newTestDB(suite.T())
	suite.suggester = &stubSuggester{}
	suite.notifier = &recordingNotifier{}
	suite.service = NewMenuService(
		repository.NewMenuRepository(suite.db),
		repository.NewEventRepository(suite.db),
		suite.suggester,
		suite.notifier,
	)

	suite.user = &models.User{Name: "Mamie"}
	mustCreate(suite.T(), suite.db, suite.user)
	suite.event = &models.Event{Name: "Noël"}
	mustCreate(suite.T(), suite.db, suite.event)
	addMember(suite.T(), suite.db, suite.event, suite.user)
}

func (suite *MenuServiceTestSuite) createRecipe(name string, ingredients ...string) *models.MenuRecipe {
	inputs := make([]IngredientInput, len(ingredients))
	for i := range ingredients {
		inputs[i] = IngredientInput{Name: &ingredients[i]}
	}
	recipe, err := suite.service.CreateRecipe(suite.event.ID, RecipeInput{Name: &name, Ingredients: inputs})
	suite.Require().NoError(err)
	return recipe
}

func (suite *MenuServiceTestSuite) TestCreateRecipeDefaultsToMain() {
	recipe := suite.createRecipe(" Dinde aux marrons ", "Dinde", "Marrons")

	suite.Equal("Dinde aux marrons", recipe.Name)
	suite.Equal(models.CourseMain, recipe.Course)
	suite.Len(recipe.Ingredients, 2)
	suite.Contains(suite.notifier.names(), fmt.Sprintf("%d:%s", suite.event.ID, constants.RealtimeMenuUpdate))
}

func (suite *MenuServiceTestSuite) TestCreateRecipeValidation() {
	blank := "  "
	_, err := suite.service.CreateRecipe(suite.event.ID, RecipeInput{Name: &blank})
	suite.ErrorIs(err, ErrRecipeNameRequired)

	name := "Bûche"
	course := models.Course("brunch")
	_, err = suite.service.CreateRecipe(suite.event.ID, RecipeInput{Name: &name, Course: &course})
	suite.ErrorIs(err, ErrInvalidCourse)
}

func (suite *MenuServiceTestSuite) TestIngredientsAreScopedToTheirEvent() {
	recipe := suite.createRecipe("Bûche", "Chocolat")
	other := &models.Event{Name: "Réveillon"}
	mustCreate(suite.T(), suite.db, other)

	qty := "200"
	_, err := suite.service.UpdateIngredient(other.ID, recipe.Ingredients[0].ID, IngredientInput{Quantity: &qty})
	suite.ErrorIs(err, ErrIngredientNotFound)

	_, err = suite.service.UpdateRecipe(other.ID, recipe.ID, RecipeInput{})
	suite.ErrorIs(err, ErrRecipeNotFound)

	updated, err := suite.service.UpdateIngredient(suite.event.ID, recipe.Ingredients[0].ID, IngredientInput{Quantity: &qty})
	suite.Require().NoError(err)
	suite.Equal("200", updated.Quantity)
}

func (suite *MenuServiceTestSuite) TestCoverage() {
	recipe := suite.createRecipe("Raclette", "Fromage", "Pommes de terre", "Charcuterie")
	cheese := recipe.Ingredients[0].ID
	mustCreate(suite.T(), suite.db, &models.Contribution{
		EventID:      suite.event.ID,
		UserID:       suite.user.ID,
		Title:        "Fromage à raclette",
		IngredientID: &cheese,
	})

	coverage, err := suite.service.Coverage(suite.event.ID)
	suite.Require().NoError(err)

	suite.Equal([]uint64{cheese}, coverage.Covered)
	suite.ElementsMatch([]uint64{recipe.Ingredients[1].ID, recipe.Ingredients[2].ID}, coverage.Uncovered)
}

func (suite *MenuServiceTestSuite) TestSuggestAppliesCleanedSuggestions() {
	recipe := suite.createRecipe("Foie gras maison")
	suite.suggester.suggestions = []SuggestedIngredient{
		{Name: " Foie gras cru ", Quantity: "500", Unit: "g"},
		{Name: "   "},
		{Name: "Sel", Quantity: "1", Unit: "pincée"},
	}

	suggestions, err := suite.service.Suggest(context.Background(), suite.event.ID, recipe.ID, true)
	suite.Require().NoError(err)

	suite.Len(suggestions, 2)
	suite.Equal("Foie gras cru", suggestions[0].Name)
	suite.Equal(1, suite.suggester.prompt.Guests)
	suite.Equal("main", suite.suggester.prompt.Course)

	var stored []models.MenuIngredient
	suite.Require().NoError(suite.db.Where("recipe_id = ?", recipe.ID).Order("id").Find(&stored).Error)
	suite.Require().Len(stored, 2)
	suite.Equal("Sel", stored[1].Name)
	suite.Equal("pincée", stored[1].Unit)
}

func (suite *MenuServiceTestSuite) TestSuggestErrors() {
	recipe := suite.createRecipe("Huîtres")

	suite.suggester.suggestions = nil
	_, err := suite.service.Suggest(context.Background(), suite.event.ID, recipe.ID, false)
	suite.ErrorIs(err, ErrAINoSuggestions)

	suite.suggester.err = errors.New("rate limited")
	_, err = suite.service.Suggest(context.Background(), suite.event.ID, recipe.ID, false)
	suite.Error(err)

	withoutAI := NewMenuService(repository.NewMenuRepository(suite.db), repository.NewEventRepository(suite.db), nil, nil)
	_, err = withoutAI.Suggest(context.Background(), suite.event.ID, recipe.ID, false)
	suite.ErrorIs(err, ErrAIServiceNotConfigured)
}

func TestMenuServiceTestSuite(t *testing.T) {
	suite.Run(t, new(MenuServiceTestSuite))
}
