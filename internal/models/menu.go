package models

import "time"

type Course string

const (
	CourseStarter Course = "starter"
	CourseMain    Course = "main"
	CourseDessert Course = "dessert"
	CourseOther   Course = "other"
)

func (c Course) Valid() bool {
	switch c {
	case CourseStarter, CourseMain, CourseDessert, CourseOther:
		return true
	}
	return false
}

type MenuRecipe struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	EventID     uint64    `gorm:"not null;index" json:"event_id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Course      Course    `gorm:"type:varchar(20);not null;default:'main'" json:"course"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Ingredients []MenuIngredient `gorm:"foreignKey:RecipeID" json:"ingredients"`
}

type MenuIngredient struct {
	ID       uint64 `gorm:"primarykey" json:"id"`
	RecipeID uint64 `gorm:"not null;index" json:"recipe_id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Quantity string `gorm:"type:varchar(100)" json:"quantity"`
	Unit     string `gorm:"type:varchar(50)" json:"unit"`
}
