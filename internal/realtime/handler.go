package realtime

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"go.uber.org/zap"
)

// Authenticator resolves an access token to its user.
type Authenticator interface {
	Authenticate(accessToken string) (*models.User, error)
}

// AccessChecker decides whether an actor may watch an event.
type AccessChecker interface {
	CheckAccess(actor services.Actor, eventID uint64) (*models.Event, error)
}

// Handler upgrades authenticated requests to websocket connections.
type Handler struct {
	hub      *Hub
	auth     Authenticator
	access   AccessChecker
	upgrader websocket.Upgrader
}

// NewHandler creates a new Handler. With no allowed origins only same-origin
// connections are accepted; "*" accepts any origin.
func NewHandler(hub *Hub, auth Authenticator, access AccessChecker, allowedOrigins []string) *Handler {
	h := &Handler{hub: hub, auth: auth, access: access}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

// Serve handles GET /api/socketio.
func (h *Handler) Serve(c *gin.Context) {
	token := accessToken(c)
	if token == "" {
		apierrors.Unauthorized(c, "")
		return
	}

	user, err := h.auth.Authenticate(token)
	if err != nil {
		apierrors.InvalidToken(c, "")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	cl := newClient(conn, services.Actor{ID: user.ID, Role: user.Role})
	h.hub.register(cl)
	h.readLoop(cl)
}

func (h *Handler) readLoop(cl *client) {
	defer h.hub.unregister(cl)

	for {
		_, data, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.L().Debug("websocket closed", zap.Uint64("user_id", cl.actor.ID), zap.Error(err))
			}
			return
		}

		var f clientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			cl.sendFrame(errorFrame(0, "malformed frame"))
			continue
		}

		switch f.Type {
		case constants.RealtimeJoinEvent:
			h.handleJoin(cl, f.EventID)
		case constants.RealtimeLeaveEvent:
			h.hub.leave(cl, f.EventID)
			cl.sendFrame(Frame{Type: "left", EventID: f.EventID})
		default:
			cl.sendFrame(errorFrame(f.EventID, "unknown frame type"))
		}
	}
}

func (h *Handler) handleJoin(cl *client, eventID uint64) {
	if eventID == 0 {
		cl.sendFrame(errorFrame(0, "eventId is required"))
		return
	}

	if _, err := h.access.CheckAccess(cl.actor, eventID); err != nil {
		switch {
		case errors.Is(err, services.ErrEventNotFound):
			cl.sendFrame(errorFrame(eventID, "event not found"))
		case errors.Is(err, services.ErrNotEventMember):
			cl.sendFrame(errorFrame(eventID, "not a participant of this event"))
		default:
			logging.L().Error("realtime access check failed", zap.Uint64("event_id", eventID), zap.Error(err))
			cl.sendFrame(errorFrame(eventID, "internal error"))
		}
		return
	}

	h.hub.join(cl, eventID)
	cl.sendFrame(Frame{Type: "joined", EventID: eventID})
}

func errorFrame(eventID uint64, message string) Frame {
	return Frame{Type: "error", EventID: eventID, Data: gin.H{"message": message}}
}

// accessToken reads the token from the cookie, a bearer header or the token
// query parameter, in that order.
func accessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(constants.AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
