package models

import (
	"time"
)

type ContributionCategory string

const (
	CategoryFood  ContributionCategory = "food"
	CategoryDrink ContributionCategory = "drink"
	CategoryDecor ContributionCategory = "decor"
	CategoryGift  ContributionCategory = "gift"
	CategoryOther ContributionCategory = "other"
)

func (c ContributionCategory) Valid() bool {
	switch c {
	case CategoryFood, CategoryDrink, CategoryDecor, CategoryGift, CategoryOther:
		return true
	}
	return false
}

type Contribution struct {
	ID           uint64               `gorm:"primarykey" json:"id"`
	EventID      uint64               `gorm:"not null;index" json:"event_id"`
	UserID       uint64               `gorm:"not null;index" json:"user_id"`
	Title        string               `gorm:"type:varchar(255);not null" json:"title"`
	Category     ContributionCategory `gorm:"type:varchar(20);not null;default:'other'" json:"category"`
	Quantity     string               `gorm:"type:varchar(100)" json:"quantity"`
	Note         string               `gorm:"type:text" json:"note"`
	ImageURL     string               `gorm:"type:varchar(500)" json:"image_url,omitempty"`
	IngredientID *uint64              `gorm:"index" json:"ingredient_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`

	// Relations
	User       User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Ingredient *MenuIngredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
}
