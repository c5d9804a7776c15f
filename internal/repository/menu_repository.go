package repository

import (
	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"gorm.io/gorm"
)

// GormMenuRepository is a GORM implementation of MenuRepository
type GormMenuRepository struct {
	db *gorm.DB
}

// NewMenuRepository creates a new MenuRepository
func NewMenuRepository(db *gorm.DB) MenuRepository {
	return &GormMenuRepository{db: db}
}

func orderedIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("id ASC")
}

// CreateRecipe creates a recipe with its ingredients
func (r *GormMenuRepository) CreateRecipe(recipe *models.MenuRecipe) error {
	return r.db.Create(recipe).Error
}

// FindRecipe finds a recipe with ingredients
func (r *GormMenuRepository) FindRecipe(id uint64) (*models.MenuRecipe, error) {
	var recipe models.MenuRecipe
	if err := r.db.Preload("Ingredients", orderedIngredients).First(&recipe, id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes lists recipes of an event in course order
func (r *GormMenuRepository) ListRecipes(eventID uint64) ([]models.MenuRecipe, error) {
	var recipes []models.MenuRecipe
	if err := r.db.Preload("Ingredients", orderedIngredients).
		Scopes(database.ForEvent(eventID)).
		Order("CASE course WHEN 'starter' THEN 0 WHEN 'main' THEN 1 WHEN 'dessert' THEN 2 ELSE 3 END").
		Order("id ASC").
		Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// UpdateRecipe updates recipe attributes
func (r *GormMenuRepository) UpdateRecipe(recipe *models.MenuRecipe) error {
	return r.db.Omit("Ingredients").Save(recipe).Error
}

// DeleteRecipe deletes a recipe and its ingredients, unlinking contributions
func (r *GormMenuRepository) DeleteRecipe(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		ingredientIDs := tx.Model(&models.MenuIngredient{}).Select("id").Where("recipe_id = ?", id)
		if err := tx.Model(&models.Contribution{}).
			Where("ingredient_id IN (?)", ingredientIDs).
			Update("ingredient_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&models.MenuIngredient{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MenuRecipe{}, id).Error
	})
}

// AddIngredients inserts ingredients
func (r *GormMenuRepository) AddIngredients(ingredients []models.MenuIngredient) error {
	if len(ingredients) == 0 {
		return nil
	}
	return r.db.Create(&ingredients).Error
}

// FindIngredient finds an ingredient by ID
func (r *GormMenuRepository) FindIngredient(id uint64) (*models.MenuIngredient, error) {
	var ingredient models.MenuIngredient
	if err := r.db.First(&ingredient, id).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

// UpdateIngredient updates an ingredient
func (r *GormMenuRepository) UpdateIngredient(ingredient *models.MenuIngredient) error {
	return r.db.Save(ingredient).Error
}

// DeleteIngredient deletes an ingredient, unlinking contributions
func (r *GormMenuRepository) DeleteIngredient(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Contribution{}).
			Where("ingredient_id = ?", id).
			Update("ingredient_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MenuIngredient{}, id).Error
	})
}

// IngredientEventID resolves the event of an ingredient through its recipe
func (r *GormMenuRepository) IngredientEventID(ingredientID uint64) (uint64, error) {
	var recipe models.MenuRecipe
	if err := r.db.
		Joins("JOIN menu_ingredients ON menu_ingredients.recipe_id = menu_recipes.id").
		Where("menu_ingredients.id = ?", ingredientID).
		First(&recipe).Error; err != nil {
		return 0, err
	}
	return recipe.EventID, nil
}

// CoveredIngredientIDs lists ingredients of the event with at least one contribution
func (r *GormMenuRepository) CoveredIngredientIDs(eventID uint64) ([]uint64, error) {
	var ids []uint64
	if err := r.db.Model(&models.Contribution{}).
		Distinct("ingredient_id").
		Where("event_id = ? AND ingredient_id IS NOT NULL", eventID).
		Pluck("ingredient_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
