package services

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrContributionNotFound = errors.New("contribution not found")
	ErrContributionTitle    = errors.New("contribution title is required")
	ErrInvalidCategory      = errors.New("invalid contribution category")
	ErrIngredientNotInEvent = errors.New("ingredient does not belong to this event")
)

// ContributionService handles pledged items of an event.
type ContributionService struct {
	contributionRepo repository.ContributionRepository
	menuRepo         repository.MenuRepository
	images           ImageStore
	notifier         Notifier
}

// NewContributionService creates a new ContributionService.
func NewContributionService(
	contributionRepo repository.ContributionRepository,
	menuRepo repository.MenuRepository,
	images ImageStore,
	notifier Notifier,
) *ContributionService {
	return &ContributionService{
		contributionRepo: contributionRepo,
		menuRepo:         menuRepo,
		images:           images,
		notifier:         notifierOrNoop(notifier),
	}
}

// ContributionInput holds editable contribution fields. Nil pointers are left unchanged.
type ContributionInput struct {
	Title           *string
	Category        *models.ContributionCategory
	Quantity        *string
	Note            *string
	IngredientID    *uint64
	ClearIngredient bool
	Image           io.Reader
	RemoveImage     bool
}

// List returns the contributions of an event.
func (s *ContributionService) List(eventID uint64) ([]models.Contribution, error) {
	contributions, err := s.contributionRepo.ListByEvent(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions: %w", err)
	}
	return contributions, nil
}

// Create records a new contribution owned by the actor.
func (s *ContributionService) Create(eventID uint64, actor Actor, input ContributionInput) (*models.Contribution, error) {
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, ErrContributionTitle
	}

	contribution := &models.Contribution{
		EventID:  eventID,
		UserID:   actor.ID,
		Title:    strings.TrimSpace(*input.Title),
		Category: models.CategoryOther,
	}
	if err := s.apply(contribution, input); err != nil {
		return nil, err
	}

	if input.Image != nil {
		url, err := s.images.Save(input.Image)
		if err != nil {
			return nil, err
		}
		contribution.ImageURL = url
	}

	if err := s.contributionRepo.Create(contribution); err != nil {
		removeImage(s.images, contribution.ImageURL)
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}

	created, err := s.contributionRepo.FindByID(contribution.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload contribution: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeContributionUpdate, change{Action: "created", ID: created.ID})
	return created, nil
}

// Update modifies a contribution; only its owner or an admin may do so.
func (s *ContributionService) Update(eventID, contributionID uint64, actor Actor, input ContributionInput) (*models.Contribution, error) {
	contribution, err := s.find(eventID, contributionID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModify(contribution.UserID) {
		return nil, ErrForbidden
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrContributionTitle
		}
		contribution.Title = title
	}
	if err := s.apply(contribution, input); err != nil {
		return nil, err
	}

	previousImage := contribution.ImageURL
	replaced := false
	switch {
	case input.Image != nil:
		url, err := s.images.Save(input.Image)
		if err != nil {
			return nil, err
		}
		contribution.ImageURL = url
		replaced = true
	case input.RemoveImage:
		contribution.ImageURL = ""
		replaced = true
	}

	if err := s.contributionRepo.Update(contribution); err != nil {
		if input.Image != nil {
			removeImage(s.images, contribution.ImageURL)
		}
		return nil, fmt.Errorf("failed to update contribution: %w", err)
	}
	if replaced {
		removeImage(s.images, previousImage)
	}

	updated, err := s.contributionRepo.FindByID(contribution.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload contribution: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeContributionUpdate, change{Action: "updated", ID: updated.ID})
	return updated, nil
}

// Delete removes a contribution and its uploaded image.
func (s *ContributionService) Delete(eventID, contributionID uint64, actor Actor) error {
	contribution, err := s.find(eventID, contributionID)
	if err != nil {
		return err
	}
	if !actor.CanModify(contribution.UserID) {
		return ErrForbidden
	}

	if err := s.contributionRepo.Delete(contribution.ID); err != nil {
		return fmt.Errorf("failed to delete contribution: %w", err)
	}
	removeImage(s.images, contribution.ImageURL)

	s.notifier.Notify(eventID, constants.RealtimeContributionUpdate, change{Action: "deleted", ID: contribution.ID})
	return nil
}

func (s *ContributionService) apply(contribution *models.Contribution, input ContributionInput) error {
	if input.Category != nil {
		if !input.Category.Valid() {
			return ErrInvalidCategory
		}
		contribution.Category = *input.Category
	}
	if input.Quantity != nil {
		contribution.Quantity = strings.TrimSpace(*input.Quantity)
	}
	if input.Note != nil {
		contribution.Note = *input.Note
	}

	if input.ClearIngredient {
		contribution.IngredientID = nil
	} else if input.IngredientID != nil {
		ingredientEventID, err := s.menuRepo.IngredientEventID(*input.IngredientID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrIngredientNotInEvent
			}
			return fmt.Errorf("failed to resolve ingredient: %w", err)
		}
		if ingredientEventID != contribution.EventID {
			return ErrIngredientNotInEvent
		}
		id := *input.IngredientID
		contribution.IngredientID = &id
	}

	return nil
}

func (s *ContributionService) find(eventID, contributionID uint64) (*models.Contribution, error) {
	contribution, err := s.contributionRepo.FindByID(contributionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContributionNotFound
		}
		return nil, fmt.Errorf("failed to find contribution: %w", err)
	}
	if contribution.EventID != eventID {
		return nil, ErrContributionNotFound
	}
	return contribution, nil
}
