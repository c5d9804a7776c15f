package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"github.com/yukikurage/noel-en-famille/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrInvalidName  = errors.New("name must be between 1 and 50 characters")
	ErrInvalidCode  = errors.New("invalid or expired event code")
	ErrUserNotFound = errors.New("user not found")
)

// AuthService handles invite-code login and the refresh token lifecycle.
type AuthService struct {
	userRepo    repository.UserRepository
	eventRepo   repository.EventRepository
	codeRepo    repository.EventCodeRepository
	refreshRepo repository.RefreshTokenRepository
	tokens      *TokenService
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	eventRepo repository.EventRepository,
	codeRepo repository.EventCodeRepository,
	refreshRepo repository.RefreshTokenRepository,
	tokens *TokenService,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		eventRepo:   eventRepo,
		codeRepo:    codeRepo,
		refreshRepo: refreshRepo,
		tokens:      tokens,
	}
}

// LoginInput holds the display name and event code.
type LoginInput struct {
	Name string
	Code string
}

// AuthResult is returned by login and refresh.
type AuthResult struct {
	User   *models.User
	Tokens *TokenPair
}

// Login resolves or creates the user named in the input, links the events the
// code grants and issues a token pair.
func (s *AuthService) Login(input LoginInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || utf8.RuneCountInString(name) > constants.MaxNameLength {
		return nil, ErrInvalidName
	}

	code, err := s.codeRepo.FindByCode(utils.NormalizeInviteCode(input.Code))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("failed to find event code: %w", err)
	}
	if !code.Usable(s.tokens.Now()) {
		return nil, ErrInvalidCode
	}

	user, err := s.resolveUser(name)
	if err != nil {
		return nil, err
	}

	eventIDs, err := s.grantedEventIDs(code)
	if err != nil {
		return nil, err
	}
	if err := s.eventRepo.AddMember(user.ID, eventIDs); err != nil {
		return nil, fmt.Errorf("failed to link events: %w", err)
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: pair}, nil
}

// Refresh consumes a refresh token and issues a new pair. A token is accepted
// exactly once.
func (s *AuthService) Refresh(refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	record, err := s.refreshRepo.FindByID(claims.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	now := s.tokens.Now()
	if record.TokenHash != HashToken(refreshToken) || !record.Active(now) {
		return nil, ErrInvalidRefreshToken
	}

	revoked, err := s.refreshRepo.Revoke(record.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if !revoked {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(record.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	pair, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, Tokens: pair}, nil
}

// Logout revokes the presented refresh token. Unknown or invalid tokens are ignored.
func (s *AuthService) Logout(refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil
	}

	if _, err := s.refreshRepo.Revoke(claims.ID, s.tokens.Now()); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// Authenticate decodes an access token and loads its user.
func (s *AuthService) Authenticate(accessToken string) (*models.User, error) {
	claims, err := s.tokens.ParseAccess(accessToken)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrInvalidAccessToken
	}

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAccessToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user with the events they belong to.
func (s *AuthService) GetUser(id uint64) (*models.User, []models.Event, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to find user: %w", err)
	}

	events, err := s.eventRepo.ListForUser(id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list events: %w", err)
	}

	return user, events, nil
}

// PurgeExpiredTokens deletes refresh tokens that can no longer be used.
func (s *AuthService) PurgeExpiredTokens() (int64, error) {
	n, err := s.refreshRepo.DeleteExpired(s.tokens.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return n, nil
}

func (s *AuthService) resolveUser(name string) (*models.User, error) {
	user, err := s.userRepo.FindByName(name)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	user = &models.User{Name: name, Role: models.RoleUser}
	if err := s.userRepo.Create(user); err != nil {
		// Lost a race against a concurrent login with the same name.
		if existing, findErr := s.userRepo.FindByName(name); findErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (s *AuthService) grantedEventIDs(code *models.EventCode) ([]uint64, error) {
	if code.IsMaster {
		ids, err := s.eventRepo.ListOpenIDs()
		if err != nil {
			return nil, fmt.Errorf("failed to list open events: %w", err)
		}
		return ids, nil
	}

	ids := make([]uint64, len(code.Events))
	for i, event := range code.Events {
		ids[i] = event.ID
	}
	return ids, nil
}

func (s *AuthService) issue(user *models.User) (*TokenPair, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	record := &models.RefreshToken{
		ID:        pair.RefreshID,
		UserID:    user.ID,
		TokenHash: HashToken(pair.RefreshToken),
		ExpiresAt: pair.RefreshExpiresAt,
	}
	if err := s.refreshRepo.Create(record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return pair, nil
}
