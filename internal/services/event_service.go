package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrNotEventMember  = errors.New("user is not a participant of this event")
	ErrEventNameEmpty  = errors.New("event name cannot be empty")
	ErrUnknownEventIDs = errors.New("one or more events do not exist")
)

// EventService provides event reads, access checks and admin management.
type EventService struct {
	eventRepo repository.EventRepository
	images    ImageStore
}

// NewEventService creates a new EventService.
func NewEventService(eventRepo repository.EventRepository, images ImageStore) *EventService {
	return &EventService{
		eventRepo: eventRepo,
		images:    images,
	}
}

// CheckAccess loads the event and verifies the actor may see it: admins see
// everything, others need a membership row.
func (s *EventService) CheckAccess(actor Actor, eventID uint64) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}

	if actor.IsAdmin() {
		return event, nil
	}

	if _, err := s.eventRepo.FindMember(eventID, actor.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEventMember
		}
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	return event, nil
}

// ListForActor lists events visible to the actor.
func (s *EventService) ListForActor(actor Actor) ([]models.Event, error) {
	var (
		events []models.Event
		err    error
	)
	if actor.IsAdmin() {
		events, err = s.eventRepo.List()
	} else {
		events, err = s.eventRepo.ListForUser(actor.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// Summary returns the counts shown before any tab is loaded.
func (s *EventService) Summary(eventID uint64) (*repository.EventCounts, error) {
	counts, err := s.eventRepo.Summary(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}
	return counts, nil
}

// Participants lists the members of an event.
func (s *EventService) Participants(eventID uint64) ([]models.EventUser, error) {
	members, err := s.eventRepo.ListMembers(eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return members, nil
}

// IsMember reports whether a user belongs to an event.
func (s *EventService) IsMember(eventID, userID uint64) (bool, error) {
	if _, err := s.eventRepo.FindMember(eventID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// EventInput holds editable event attributes.
type EventInput struct {
	Name        *string
	Description *string
	Location    *string
	StartsAt    *time.Time
	ClearStarts bool
}

// CreateEvent creates a new event. The creator is added as a participant.
func (s *EventService) CreateEvent(actor Actor, input EventInput) (*models.Event, error) {
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return nil, ErrEventNameEmpty
	}

	event := &models.Event{
		Name:        strings.TrimSpace(*input.Name),
		StartsAt:    input.StartsAt,
		CreatedByID: &actor.ID,
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Location != nil {
		event.Location = *input.Location
	}

	if err := s.eventRepo.Create(event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	if err := s.eventRepo.AddMember(actor.ID, []uint64{event.ID}); err != nil {
		return nil, fmt.Errorf("failed to add creator to event: %w", err)
	}

	return event, nil
}

// UpdateEvent applies the provided fields.
func (s *EventService) UpdateEvent(eventID uint64, input EventInput) (*models.Event, error) {
	event, err := s.find(eventID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrEventNameEmpty
		}
		event.Name = name
	}
	if input.Description != nil {
		event.Description = *input.Description
	}
	if input.Location != nil {
		event.Location = *input.Location
	}
	if input.ClearStarts {
		event.StartsAt = nil
	} else if input.StartsAt != nil {
		event.StartsAt = input.StartsAt
	}

	if err := s.eventRepo.Update(event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

// SetClosed closes or reopens an event.
func (s *EventService) SetClosed(eventID uint64, closed bool) (*models.Event, error) {
	event, err := s.find(eventID)
	if err != nil {
		return nil, err
	}

	event.IsClosed = closed
	if err := s.eventRepo.Update(event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return event, nil
}

// SetImage replaces the event cover image.
func (s *EventService) SetImage(eventID uint64, image io.Reader) (*models.Event, error) {
	event, err := s.find(eventID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Save(image)
	if err != nil {
		return nil, err
	}

	previous := event.ImageURL
	event.ImageURL = url
	if err := s.eventRepo.Update(event); err != nil {
		s.removeImage(url)
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.removeImage(previous)
	return event, nil
}

// DeleteEvent removes an event with all its content and uploaded images.
func (s *EventService) DeleteEvent(eventID uint64) error {
	event, err := s.find(eventID)
	if err != nil {
		return err
	}

	urls, err := s.eventRepo.ContentImageURLs(eventID)
	if err != nil {
		return fmt.Errorf("failed to list event images: %w", err)
	}

	if err := s.eventRepo.Delete(eventID); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	s.removeImage(event.ImageURL)
	for _, url := range urls {
		s.removeImage(url)
	}
	return nil
}

// ValidateEventIDs ensures every ID refers to an existing event and returns them deduplicated.
func (s *EventService) ValidateEventIDs(ids []uint64) ([]uint64, error) {
	ids = uniqueUint64(ids)
	for _, id := range ids {
		if _, err := s.find(id); err != nil {
			if errors.Is(err, ErrEventNotFound) {
				return nil, ErrUnknownEventIDs
			}
			return nil, err
		}
	}
	return ids, nil
}

func (s *EventService) find(eventID uint64) (*models.Event, error) {
	event, err := s.eventRepo.FindByID(eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return event, nil
}

func (s *EventService) removeImage(url string) {
	removeImage(s.images, url)
}
