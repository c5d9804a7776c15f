package services

import (
	"errors"
	"fmt"
	"io"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrNameTaken    = errors.New("name is already used by another person")
	ErrInvalidEmail = errors.New("email address is not valid")
)

// ProfileService lets users edit their own profile.
type ProfileService struct {
	userRepo repository.UserRepository
	images   ImageStore
}

// NewProfileService creates a new ProfileService.
func NewProfileService(userRepo repository.UserRepository, images ImageStore) *ProfileService {
	return &ProfileService{userRepo: userRepo, images: images}
}

// ProfileInput holds the editable profile fields. An empty email clears it.
type ProfileInput struct {
	Name  *string
	Email *string
}

// Get returns the user.
func (s *ProfileService) Get(userID uint64) (*models.User, error) {
	return s.find(userID)
}

// Update changes the display name and email. Names stay unique ignoring case.
func (s *ProfileService) Update(userID uint64, input ProfileInput) (*models.User, error) {
	user, err := s.find(userID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || utf8.RuneCountInString(name) > constants.MaxNameLength {
			return nil, ErrInvalidName
		}

		existing, err := s.userRepo.FindByName(name)
		switch {
		case err == nil && existing.ID != user.ID:
			return nil, ErrNameTaken
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to check name: %w", err)
		}
		user.Name = name
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email == "" {
			user.Email = nil
		} else {
			addr, err := mail.ParseAddress(email)
			if err != nil || addr.Address != email {
				return nil, ErrInvalidEmail
			}
			user.Email = &email
		}
	}

	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// SetAvatar stores a new avatar and removes the previous file.
func (s *ProfileService) SetAvatar(userID uint64, image io.Reader) (*models.User, error) {
	user, err := s.find(userID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(image)
	if err != nil {
		return nil, err
	}

	previous := user.AvatarURL
	user.AvatarURL = url
	if err := s.userRepo.Update(user); err != nil {
		removeImage(s.images, url)
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	removeImage(s.images, previous)
	return user, nil
}

func (s *ProfileService) find(userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
