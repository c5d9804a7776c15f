package services

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"golang.org/x/crypto/blake2b"
)

var (
	ErrInvalidAccessToken  = errors.New("invalid access token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// AccessClaims are carried by the short-lived access token.
type AccessClaims struct {
	Role models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessClaims) UserID() (uint64, error) {
	return strconv.ParseUint(c.Subject, 10, 64)
}

// RefreshClaims are carried by the refresh token. ID is the persisted record key.
type RefreshClaims struct {
	jwt.RegisteredClaims
}

// TokenPair is what a successful login or refresh hands back to the client.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
	RefreshID        string
}

// TokenService signs and verifies access and refresh tokens with separate secrets.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	clock         clockwork.Clock
}

// TokenConfig holds the signing parameters.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(cfg TokenConfig, clock clockwork.Clock) *TokenService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenService{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		clock:         clock,
	}
}

// Now returns the service clock time.
func (s *TokenService) Now() time.Time {
	return s.clock.Now()
}

// Issue signs a new access and refresh token for the user.
func (s *TokenService) Issue(user *models.User) (*TokenPair, error) {
	now := s.clock.Now()
	subject := strconv.FormatUint(user.ID, 10)

	accessExp := now.Add(s.accessTTL)
	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	})
	accessToken, err := access.SignedString(s.accessSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refreshID := uuid.NewString()
	refreshExp := now.Add(s.refreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        refreshID,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	refreshToken, err := refresh.SignedString(s.refreshSecret)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
		RefreshID:        refreshID,
	}, nil
}

// ParseAccess verifies an access token.
func (s *TokenService) ParseAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, s.keyFunc(s.accessSecret), s.parserOptions()...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAccessToken, err)
	}
	return claims, nil
}

// ParseRefresh verifies a refresh token signature and expiry.
func (s *TokenService) ParseRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if _, err := jwt.ParseWithClaims(token, claims, s.keyFunc(s.refreshSecret), s.parserOptions()...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRefreshToken, err)
	}
	if claims.ID == "" {
		return nil, fmt.Errorf("%w: missing jti", ErrInvalidRefreshToken)
	}
	return claims, nil
}

func (s *TokenService) keyFunc(secret []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}
}

func (s *TokenService) parserOptions() []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
}

// HashToken is the at-rest form of a refresh token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
