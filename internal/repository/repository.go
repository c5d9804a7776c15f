package repository

import (
	"errors"
	"time"

	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/utils"
)

// ErrAlreadyClosed is returned when closing a poll that is already closed.
var ErrAlreadyClosed = errors.New("repository: already closed")

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByName finds a user by display name (case-insensitive)
	FindByName(name string) (*models.User, error)

	// List lists a page of users ordered by name with the total count
	List(params utils.PaginationParams) ([]models.User, int64, error)

	// Update saves a user
	Update(user *models.User) error

	// Delete removes a user and everything they own
	Delete(id uint64) error

	// ContentImageURLs lists uploaded images on the user's contributions and messages
	ContentImageURLs(id uint64) ([]string, error)
}

// EventRepository defines the interface for event and membership data access
type EventRepository interface {
	Create(event *models.Event) error
	FindByID(id uint64) (*models.Event, error)
	Update(event *models.Event) error

	// Delete removes an event and all of its content
	Delete(id uint64) error

	// ContentImageURLs lists uploaded images on the event's contributions and messages
	ContentImageURLs(id uint64) ([]string, error)

	// List lists every event, newest first
	List() ([]models.Event, error)

	// ListOpenIDs returns the IDs of all non-closed events
	ListOpenIDs() ([]uint64, error)

	// ListForUser lists the events a user is a member of
	ListForUser(userID uint64) ([]models.Event, error)

	// AddMember links a user to events; existing links are kept
	AddMember(userID uint64, eventIDs []uint64) error

	// FindMember finds a specific membership
	FindMember(eventID, userID uint64) (*models.EventUser, error)

	// ListMembers lists members of an event with their users
	ListMembers(eventID uint64) ([]models.EventUser, error)

	// Summary returns the counts shown on the event page header
	Summary(eventID uint64) (*EventCounts, error)
}

// EventCounts holds per-event counters
type EventCounts struct {
	Participants  int64 `json:"participants"`
	Contributions int64 `json:"contributions"`
	OpenPolls     int64 `json:"open_polls"`
	OpenTasks     int64 `json:"open_tasks"`
	Messages      int64 `json:"messages"`
	Recipes       int64 `json:"recipes"`
}

// EventCodeRepository defines the interface for invite code data access
type EventCodeRepository interface {
	// Create creates a code linked to the given events
	Create(code *models.EventCode, eventIDs []uint64) error

	FindByID(id uint64) (*models.EventCode, error)

	// FindByCode finds a code with its events preloaded
	FindByCode(code string) (*models.EventCode, error)

	List() ([]models.EventCode, error)
	Update(code *models.EventCode) error

	// ReplaceEvents replaces the set of events linked to a code
	ReplaceEvents(codeID uint64, eventIDs []uint64) error

	Delete(id uint64) error
}

// RefreshTokenRepository defines the interface for persisted refresh tokens
type RefreshTokenRepository interface {
	Create(token *models.RefreshToken) error
	FindByID(id string) (*models.RefreshToken, error)

	// Revoke marks a token revoked. It reports false when the token was
	// already revoked, so a token can be consumed at most once.
	Revoke(id string, at time.Time) (bool, error)

	// RevokeAllForUser revokes every active token of a user
	RevokeAllForUser(userID uint64, at time.Time) error

	// DeleteExpired removes tokens that expired before the given time
	DeleteExpired(before time.Time) (int64, error)
}

// ContributionRepository defines the interface for contribution data access
type ContributionRepository interface {
	Create(contribution *models.Contribution) error
	FindByID(id uint64) (*models.Contribution, error)
	ListByEvent(eventID uint64) ([]models.Contribution, error)
	Update(contribution *models.Contribution) error
	Delete(id uint64) error
}

// PollRepository defines the interface for poll data access
type PollRepository interface {
	// Create creates a poll together with its options
	Create(poll *models.Poll) error

	// FindByID finds a poll with options ordered by position
	FindByID(id uint64) (*models.Poll, error)

	ListByEvent(eventID uint64) ([]models.Poll, error)

	// Tally returns vote counts keyed by option ID
	Tally(pollIDs []uint64) (map[uint64]int64, error)

	// VotesByUser returns the option IDs a user voted for, keyed by poll ID
	VotesByUser(pollIDs []uint64, userID uint64) (map[uint64][]uint64, error)

	// ReplaceVotes sets a user's votes on a poll to exactly optionIDs
	ReplaceVotes(pollID, userID uint64, optionIDs []uint64) error

	Delete(id uint64) error

	// Close marks an open poll closed and stores the generated contributions
	// in the same transaction. Returns ErrAlreadyClosed for a closed poll.
	Close(pollID uint64, at time.Time, contributions []models.Contribution) error
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(task *models.Task) error

	// FindByID finds a task with creator and assignee
	FindByID(id uint64) (*models.Task, error)

	ListByEvent(eventID uint64) ([]models.Task, error)
	Update(task *models.Task) error
	Delete(id uint64) error

	// ListDueBetween lists open assigned tasks of non-closed events due in [from, to)
	ListDueBetween(from, to time.Time) ([]models.Task, error)
}

// ChatRepository defines the interface for chat data access
type ChatRepository interface {
	// Create stores a message and its media
	Create(message *models.ChatMessage) error

	FindByID(id uint64) (*models.ChatMessage, error)

	// ListByEvent returns up to limit messages older than beforeID (0 = newest), oldest first
	ListByEvent(eventID, beforeID uint64, limit int) ([]models.ChatMessage, error)

	Delete(id uint64) error
}

// MenuRepository defines the interface for recipe and ingredient data access
type MenuRepository interface {
	CreateRecipe(recipe *models.MenuRecipe) error
	FindRecipe(id uint64) (*models.MenuRecipe, error)
	ListRecipes(eventID uint64) ([]models.MenuRecipe, error)
	UpdateRecipe(recipe *models.MenuRecipe) error
	DeleteRecipe(id uint64) error

	AddIngredients(ingredients []models.MenuIngredient) error
	FindIngredient(id uint64) (*models.MenuIngredient, error)
	UpdateIngredient(ingredient *models.MenuIngredient) error
	DeleteIngredient(id uint64) error

	// IngredientEventID resolves the event an ingredient belongs to
	IngredientEventID(ingredientID uint64) (uint64, error)

	// CoveredIngredientIDs lists ingredients of an event that have a contribution
	CoveredIngredientIDs(eventID uint64) ([]uint64, error)
}

// StatsRepository exposes global counters for the admin dashboard
type StatsRepository interface {
	Counts() (map[string]int64, error)
}
