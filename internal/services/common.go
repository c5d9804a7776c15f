package services

import (
	"errors"
	"io"

	"github.com/yukikurage/noel-en-famille/internal/logging"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"go.uber.org/zap"
)

var (
	ErrForbidden    = errors.New("not allowed to modify this resource")
	ErrAdminOnly    = errors.New("admin role required")
	ErrInvalidInput = errors.New("invalid input")
)

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID   uint64
	Role models.UserRole
}

func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanModify reports whether the actor owns the resource or is an admin.
func (a Actor) CanModify(ownerID uint64) bool {
	return a.IsAdmin() || a.ID == ownerID
}

// Notifier broadcasts a change to the clients watching an event. Delivery is
// best effort; callers never fail because of it.
type Notifier interface {
	Notify(eventID uint64, name string, payload interface{})
}

// ImageStore persists uploaded images and returns their public URL.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(url string) error
}

type noopNotifier struct{}

func (noopNotifier) Notify(uint64, string, interface{}) {}

// NoopNotifier drops every notification.
var NoopNotifier Notifier = noopNotifier{}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return NoopNotifier
	}
	return n
}

// change is the payload sent with realtime notifications.
type change struct {
	Action string `json:"action"`
	ID     uint64 `json:"id"`
}

func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}

// removeImage deletes an uploaded file; failures are logged and otherwise ignored.
func removeImage(store ImageStore, url string) {
	if url == "" || store == nil {
		return
	}
	if err := store.Remove(url); err != nil {
		logging.L().Warn("failed to remove image", zap.String("url", url), zap.Error(err))
	}
}
