package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"github.com/yukikurage/noel-en-famille/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrCodeNotFound      = errors.New("event code not found")
	ErrCodeTaken         = errors.New("event code already exists")
	ErrInvalidCodeFormat = errors.New("event code must be 4 to 50 letters, digits or dashes")
	ErrCodeWithoutEvents = errors.New("a non-master code needs at least one event")
	ErrInvalidRole       = errors.New("role must be user or admin")
	ErrCannotModifySelf  = errors.New("admins cannot change or delete their own account here")
)

// ConnectionCounter reports live realtime connections.
type ConnectionCounter interface {
	Connections() int
	Rooms() int
}

// AdminService backs the admin dashboard: invite codes, users and stats.
type AdminService struct {
	codeRepo    repository.EventCodeRepository
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	statsRepo   repository.StatsRepository
	events      *EventService
	images      ImageStore
	realtime    ConnectionCounter
	clock       clockwork.Clock
}

// AdminDeps groups the AdminService collaborators.
type AdminDeps struct {
	Codes    repository.EventCodeRepository
	Users    repository.UserRepository
	Refresh  repository.RefreshTokenRepository
	Stats    repository.StatsRepository
	Events   *EventService
	Images   ImageStore
	Realtime ConnectionCounter
	Clock    clockwork.Clock
}

// NewAdminService creates a new AdminService.
func NewAdminService(deps AdminDeps) *AdminService {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AdminService{
		codeRepo:    deps.Codes,
		userRepo:    deps.Users,
		refreshRepo: deps.Refresh,
		statsRepo:   deps.Stats,
		events:      deps.Events,
		images:      deps.Images,
		realtime:    deps.Realtime,
		clock:       clock,
	}
}

// CreateCodeInput describes a new invite code. An empty Code is generated.
type CreateCodeInput struct {
	Code      string
	Label     string
	IsMaster  bool
	ExpiresAt *time.Time
	EventIDs  []uint64
}

// UpdateCodeInput holds editable code fields.
type UpdateCodeInput struct {
	Label       *string
	IsActive    *bool
	IsMaster    *bool
	ExpiresAt   *time.Time
	ClearExpiry bool
	EventIDs    *[]uint64
}

// ListCodes returns every invite code with its events.
func (s *AdminService) ListCodes() ([]models.EventCode, error) {
	codes, err := s.codeRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list codes: %w", err)
	}
	return codes, nil
}

// CreateCode creates an invite code linked to the given events.
func (s *AdminService) CreateCode(input CreateCodeInput) (*models.EventCode, error) {
	value := utils.NormalizeInviteCode(input.Code)
	if value == "" {
		generated, err := utils.GenerateInviteCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}
		value = generated
	} else if !utils.ValidInviteCode(value) {
		return nil, ErrInvalidCodeFormat
	}

	eventIDs, err := s.events.ValidateEventIDs(input.EventIDs)
	if err != nil {
		return nil, err
	}
	if !input.IsMaster && len(eventIDs) == 0 {
		return nil, ErrCodeWithoutEvents
	}

	if _, err := s.codeRepo.FindByCode(value); err == nil {
		return nil, ErrCodeTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check code: %w", err)
	}

	code := &models.EventCode{
		Code:      value,
		Label:     strings.TrimSpace(input.Label),
		IsMaster:  input.IsMaster,
		IsActive:  true,
		ExpiresAt: input.ExpiresAt,
	}
	if err := s.codeRepo.Create(code, eventIDs); err != nil {
		return nil, fmt.Errorf("failed to create code: %w", err)
	}

	return s.codeRepo.FindByID(code.ID)
}

// UpdateCode edits an invite code.
func (s *AdminService) UpdateCode(codeID uint64, input UpdateCodeInput) (*models.EventCode, error) {
	code, err := s.findCode(codeID)
	if err != nil {
		return nil, err
	}

	if input.Label != nil {
		code.Label = strings.TrimSpace(*input.Label)
	}
	if input.IsActive != nil {
		code.IsActive = *input.IsActive
	}
	if input.IsMaster != nil {
		code.IsMaster = *input.IsMaster
	}
	if input.ClearExpiry {
		code.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		code.ExpiresAt = input.ExpiresAt
	}

	linked := len(code.Events)
	var eventIDs []uint64
	if input.EventIDs != nil {
		eventIDs, err = s.events.ValidateEventIDs(*input.EventIDs)
		if err != nil {
			return nil, err
		}
		linked = len(eventIDs)
	}
	if !code.IsMaster && linked == 0 {
		return nil, ErrCodeWithoutEvents
	}

	if err := s.codeRepo.Update(code); err != nil {
		return nil, fmt.Errorf("failed to update code: %w", err)
	}
	if input.EventIDs != nil {
		if err := s.codeRepo.ReplaceEvents(code.ID, eventIDs); err != nil {
			return nil, fmt.Errorf("failed to link events: %w", err)
		}
	}

	return s.codeRepo.FindByID(code.ID)
}

// DeleteCode removes an invite code. Existing memberships are kept.
func (s *AdminService) DeleteCode(codeID uint64) error {
	if _, err := s.findCode(codeID); err != nil {
		return err
	}
	if err := s.codeRepo.Delete(codeID); err != nil {
		return fmt.Errorf("failed to delete code: %w", err)
	}
	return nil
}

// ListUsers returns one page of users and the total count.
func (s *AdminService) ListUsers(params utils.PaginationParams) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// UpdateRole changes a user's role and revokes their sessions so fresh tokens carry it.
func (s *AdminService) UpdateRole(actor Actor, userID uint64, role models.UserRole) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, ErrInvalidRole
	}
	if actor.ID == userID {
		return nil, ErrCannotModifySelf
	}

	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}
	if user.Role == role {
		return user, nil
	}

	user.Role = role
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	if err := s.refreshRepo.RevokeAllForUser(user.ID, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to revoke sessions: %w", err)
	}
	return user, nil
}

// DeleteUser removes a user with everything they own.
func (s *AdminService) DeleteUser(actor Actor, userID uint64) error {
	if actor.ID == userID {
		return ErrCannotModifySelf
	}

	user, err := s.findUser(userID)
	if err != nil {
		return err
	}
	urls, err := s.userRepo.ContentImageURLs(user.ID)
	if err != nil {
		return fmt.Errorf("failed to list user images: %w", err)
	}

	if err := s.userRepo.Delete(user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	removeImage(s.images, user.AvatarURL)
	for _, url := range urls {
		removeImage(s.images, url)
	}
	return nil
}

// Metrics is the admin dashboard snapshot.
type Metrics struct {
	Counts      map[string]int64 `json:"counts"`
	Connections int              `json:"realtime_connections"`
	Rooms       int              `json:"realtime_rooms"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Metrics returns row counts and realtime connection numbers.
func (s *AdminService) Metrics() (*Metrics, error) {
	counts, err := s.statsRepo.Counts()
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	m := &Metrics{Counts: counts, GeneratedAt: s.clock.Now()}
	if s.realtime != nil {
		m.Connections = s.realtime.Connections()
		m.Rooms = s.realtime.Rooms()
	}
	return m, nil
}

func (s *AdminService) findCode(codeID uint64) (*models.EventCode, error) {
	code, err := s.codeRepo.FindByID(codeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to find code: %w", err)
	}
	return code, nil
}

func (s *AdminService) findUser(userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}
