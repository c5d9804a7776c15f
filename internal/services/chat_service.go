package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageEmpty    = errors.New("message needs text or at least one image")
	ErrMessageTooLong  = errors.New("message is too long")
	ErrTooManyMedia    = errors.New("too many images attached")
)

// ChatService handles event chat messages.
type ChatService struct {
	chatRepo repository.ChatRepository
	images   ImageStore
	notifier Notifier
}

// NewChatService creates a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, images ImageStore, notifier Notifier) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		images:   images,
		notifier: notifierOrNoop(notifier),
	}
}

// List returns up to limit messages older than beforeID, oldest first.
func (s *ChatService) List(eventID, beforeID uint64, limit int) ([]models.ChatMessage, error) {
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	messages, err := s.chatRepo.ListByEvent(eventID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// Post stores a message with its images and broadcasts it to the room.
func (s *ChatService) Post(eventID uint64, actor Actor, content string, images []io.Reader) (*models.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" && len(images) == 0 {
		return nil, ErrMessageEmpty
	}
	if utf8.RuneCountInString(content) > constants.MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if len(images) > constants.MaxMediaPerMessage {
		return nil, ErrTooManyMedia
	}

	message := &models.ChatMessage{EventID: eventID, UserID: actor.ID, Content: content}
	for _, img := range images {
		url, err := s.images.Save(img)
		if err != nil {
			s.discard(message.Media)
			return nil, err
		}
		message.Media = append(message.Media, models.ChatMedia{URL: url})
	}

	if err := s.chatRepo.Create(message); err != nil {
		s.discard(message.Media)
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	created, err := s.chatRepo.FindByID(message.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload message: %w", err)
	}

	s.notifier.Notify(eventID, constants.RealtimeNewMessage, change{Action: "created", ID: created.ID})
	return created, nil
}

// Delete removes a message and its media files. Authors and admins may delete.
func (s *ChatService) Delete(eventID, messageID uint64, actor Actor) error {
	message, err := s.chatRepo.FindByID(messageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMessageNotFound
		}
		return fmt.Errorf("failed to find message: %w", err)
	}
	if eventID != 0 && message.EventID != eventID {
		return ErrMessageNotFound
	}
	if !actor.CanModify(message.UserID) {
		return ErrForbidden
	}

	if err := s.chatRepo.Delete(message.ID); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	s.discard(message.Media)

	s.notifier.Notify(message.EventID, constants.RealtimeNewMessage, change{Action: "deleted", ID: message.ID})
	return nil
}

func (s *ChatService) discard(media []models.ChatMedia) {
	for _, m := range media {
		removeImage(s.images, m.URL)
	}
}
