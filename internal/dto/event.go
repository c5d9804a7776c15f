package dto

import (
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
)

// EventDTO represents an event in API responses
type EventDTO struct {
	ID          uint64     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    *time.Time `json:"starts_at"`
	IsClosed    bool       `json:"is_closed"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// EventSummaryDTO is the minimal payload loaded before any tab
type EventSummaryDTO struct {
	Event  EventDTO               `json:"event"`
	Counts repository.EventCounts `json:"counts"`
}

// ParticipantDTO represents a member of an event
type ParticipantDTO struct {
	PublicUserDTO
	JoinedAt time.Time `json:"joined_at"`
}

// ContributionDTO represents a contribution in API responses
type ContributionDTO struct {
	ID           uint64                      `json:"id"`
	EventID      uint64                      `json:"event_id"`
	Title        string                      `json:"title"`
	Category     models.ContributionCategory `json:"category"`
	Quantity     string                      `json:"quantity"`
	Note         string                      `json:"note"`
	ImageURL     string                      `json:"image_url,omitempty"`
	IngredientID *uint64                     `json:"ingredient_id,omitempty"`
	User         *PublicUserDTO              `json:"user,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// MessageDTO represents a chat message in API responses
type MessageDTO struct {
	ID        uint64         `json:"id"`
	EventID   uint64         `json:"event_id"`
	Content   string         `json:"content"`
	Media     []string       `json:"media"`
	User      *PublicUserDTO `json:"user,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToEventDTO converts an Event model to EventDTO
func ToEventDTO(event models.Event) EventDTO {
	return EventDTO{
		ID:          event.ID,
		Name:        event.Name,
		Description: event.Description,
		Location:    event.Location,
		StartsAt:    event.StartsAt,
		IsClosed:    event.IsClosed,
		ImageURL:    event.ImageURL,
	}
}

// ToEventDTOs converts a slice of events
func ToEventDTOs(events []models.Event) []EventDTO {
	result := make([]EventDTO, len(events))
	for i, e := range events {
		result[i] = ToEventDTO(e)
	}
	return result
}

// ToParticipantDTOs converts memberships to participants
func ToParticipantDTOs(members []models.EventUser) []ParticipantDTO {
	result := make([]ParticipantDTO, 0, len(members))
	for _, m := range members {
		u := ToPublicUserDTO(&m.User)
		if u == nil {
			continue
		}
		result = append(result, ParticipantDTO{PublicUserDTO: *u, JoinedAt: m.JoinedAt})
	}
	return result
}

// ToContributionDTO converts a Contribution model to ContributionDTO
func ToContributionDTO(c models.Contribution) ContributionDTO {
	return ContributionDTO{
		ID:           c.ID,
		EventID:      c.EventID,
		Title:        c.Title,
		Category:     c.Category,
		Quantity:     c.Quantity,
		Note:         c.Note,
		ImageURL:     c.ImageURL,
		IngredientID: c.IngredientID,
		User:         ToPublicUserDTO(&c.User),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

// ToContributionDTOs converts a slice of contributions
func ToContributionDTOs(contributions []models.Contribution) []ContributionDTO {
	result := make([]ContributionDTO, len(contributions))
	for i, c := range contributions {
		result[i] = ToContributionDTO(c)
	}
	return result
}

// ToMessageDTO converts a ChatMessage model to MessageDTO
func ToMessageDTO(m models.ChatMessage) MessageDTO {
	media := make([]string, len(m.Media))
	for i, md := range m.Media {
		media[i] = md.URL
	}
	return MessageDTO{
		ID:        m.ID,
		EventID:   m.EventID,
		Content:   m.Content,
		Media:     media,
		User:      ToPublicUserDTO(&m.User),
		CreatedAt: m.CreatedAt,
	}
}

// ToMessageDTOs converts a slice of messages
func ToMessageDTOs(messages []models.ChatMessage) []MessageDTO {
	result := make([]MessageDTO, len(messages))
	for i, m := range messages {
		result[i] = ToMessageDTO(m)
	}
	return result
}
