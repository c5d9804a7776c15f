package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
	"github.com/yukikurage/noel-en-famille/internal/services"
)

const refreshCookiePath = "/api/auth"

// CookieConfig controls how auth cookies are written.
type CookieConfig struct {
	Secure bool
	Domain string
}

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	cookies     CookieConfig
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, cookies CookieConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
	}
}

type authResponse struct {
	User                 dto.UserDTO `json:"user"`
	AccessToken          string      `json:"accessToken"`
	AccessTokenExpiresAt time.Time   `json:"accessTokenExpiresAt"`
}

// Login resolves the user by name and invite code and sets the auth cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Name string `json:"name" binding:"required"`
		Code string `json:"code" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Name and code are required")
		return
	}

	result, err := h.authService.Login(services.LoginInput{
		Name: req.Name,
		Code: req.Code,
	})
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, authResponse{
		User:                 dto.ToUserDTO(*result.User),
		AccessToken:          result.Tokens.AccessToken,
		AccessTokenExpiresAt: result.Tokens.AccessExpiresAt,
	})
}

// Refresh rotates the refresh token. Any failure clears both cookies.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(constants.RefreshTokenCookie)

	result, err := h.authService.Refresh(token)
	if err != nil {
		h.clearAuthCookies(c)
		if errors.Is(err, services.ErrInvalidRefreshToken) {
			apierrors.InvalidToken(c, "Session expired, please log in again")
			return
		}
		respondInternal(c, err)
		return
	}

	h.setAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, authResponse{
		User:                 dto.ToUserDTO(*result.User),
		AccessToken:          result.Tokens.AccessToken,
		AccessTokenExpiresAt: result.Tokens.AccessExpiresAt,
	})
}

// Logout revokes the refresh token and clears the cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(constants.RefreshTokenCookie)
	h.clearAuthCookies(c)

	if err := h.authService.Logout(token); err != nil {
		respondInternal(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user with their events.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	user, events, err := h.authService.GetUser(userID)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   dto.ToUserDTO(*user),
		"events": dto.ToEventDTOs(events),
	})
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, tokens *services.TokenPair) {
	now := time.Now()

	c.SetSameSite(http.SameSiteLaxMode)
	// readable by the client; only the refresh token is httpOnly
	c.SetCookie(constants.AccessTokenCookie, tokens.AccessToken,
		maxAge(tokens.AccessExpiresAt, now), "/", h.cookies.Domain, h.cookies.Secure, false)

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.RefreshTokenCookie, tokens.RefreshToken,
		maxAge(tokens.RefreshExpiresAt, now), refreshCookiePath, h.cookies.Domain, h.cookies.Secure, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.AccessTokenCookie, "", -1, "/", h.cookies.Domain, h.cookies.Secure, false)

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(constants.RefreshTokenCookie, "", -1, refreshCookiePath, h.cookies.Domain, h.cookies.Secure, true)
}

func maxAge(expiresAt, now time.Time) int {
	seconds := int(expiresAt.Sub(now).Seconds())
	if seconds < 1 {
		return 1
	}
	return seconds
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidName):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrInvalidCode):
		apierrors.InvalidCode(c, err.Error())
	case errors.Is(err, services.ErrInvalidRefreshToken),
		errors.Is(err, services.ErrInvalidAccessToken):
		apierrors.InvalidToken(c, "")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		respondInternal(c, err)
	}
}
