package services

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
)

// failingChatRepo refuses to store messages.
type failingChatRepo struct {
	repository.ChatRepository
}

func (failingChatRepo) Create(*models.ChatMessage) error {
	return errors.New("disk full")
}

func imageReaders(n int) []io.Reader {
	readers := make([]io.Reader, n)
	for i := range readers {
		readers[i] = strings.NewReader("fake image bytes")
	}
	return readers
}

func TestChatService_PostAndDelete(t *testing.T) {
	db := newTestDB(t)
	store := &fakeImages{}
	notifier := &recordingNotifier{}
	chat := NewChatService(repository.NewChatRepository(db), store, notifier)

	alice := &models.User{Name: "Alice"}
	bob := &models.User{Name: "Bob"}
	admin := &models.User{Name: "Admin", Role: models.RoleAdmin}
	for _, u := range []*models.User{alice, bob, admin} {
		mustCreate(t, db, u)
	}
	event := &models.Event{Name: "Noël"}
	mustCreate(t, db, event)
	addMember(t, db, event, alice, bob)

	message, err := chat.Post(event.ID, Actor{ID: alice.ID}, "  Joyeux Noël !  ", imageReaders(2))
	require.NoError(t, err)
	assert.Equal(t, "Joyeux Noël !", message.Content)
	assert.Equal(t, "Alice", message.User.Name)
	require.Len(t, message.Media, 2)
	assert.ElementsMatch(t, store.saved, []string{message.Media[0].URL, message.Media[1].URL})
	assert.Contains(t, notifier.names(), fmt.Sprintf("%d:%s", event.ID, constants.RealtimeNewMessage))

	assert.ErrorIs(t, chat.Delete(event.ID, message.ID, Actor{ID: bob.ID}), ErrForbidden)
	assert.ErrorIs(t, chat.Delete(event.ID+1, message.ID, Actor{ID: alice.ID}), ErrMessageNotFound)
	assert.Empty(t, store.removed)

	require.NoError(t, chat.Delete(event.ID, message.ID, Actor{ID: admin.ID, Role: models.RoleAdmin}))
	assert.ElementsMatch(t, store.saved, store.removed)
	assert.ErrorIs(t, chat.Delete(event.ID, message.ID, Actor{ID: alice.ID}), ErrMessageNotFound)

	var mediaRows int64
	db.Model(&models.ChatMedia{}).Count(&mediaRows)
	assert.Zero(t, mediaRows)
}

func TestChatService_PostValidation(t *testing.T) {
	db := newTestDB(t)
	store := &fakeImages{}
	chat := NewChatService(repository.NewChatRepository(db), store, nil)
	actor := Actor{ID: 1}

	_, err := chat.Post(1, actor, "   ", nil)
	assert.ErrorIs(t, err, ErrMessageEmpty)

	_, err = chat.Post(1, actor, strings.Repeat("é", constants.MaxMessageLength+1), nil)
	assert.ErrorIs(t, err, ErrMessageTooLong)

	_, err = chat.Post(1, actor, "photos", imageReaders(constants.MaxMediaPerMessage+1))
	assert.ErrorIs(t, err, ErrTooManyMedia)
	assert.Empty(t, store.saved)
}

func TestChatService_PostDiscardsMediaWhenInsertFails(t *testing.T) {
	db := newTestDB(t)
	store := &fakeImages{}
	chat := NewChatService(failingChatRepo{repository.NewChatRepository(db)}, store, nil)

	_, err := chat.Post(1, Actor{ID: 1}, "", imageReaders(3))
	require.Error(t, err)
	assert.Len(t, store.saved, 3)
	assert.ElementsMatch(t, store.saved, store.removed)
}

func TestChatService_ListPagesBackwards(t *testing.T) {
	db := newTestDB(t)
	chat := NewChatService(repository.NewChatRepository(db), nil, nil)

	user := &models.User{Name: "Alice"}
	mustCreate(t, db, user)
	event := &models.Event{Name: "Noël"}
	mustCreate(t, db, event)

	var ids []uint64
	for i := 1; i <= 5; i++ {
		m, err := chat.Post(event.ID, Actor{ID: user.ID}, fmt.Sprintf("message %d", i), nil)
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}

	latest, err := chat.List(event.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, []uint64{ids[3], ids[4]}, []uint64{latest[0].ID, latest[1].ID})

	older, err := chat.List(event.ID, latest[0].ID, 0)
	require.NoError(t, err)
	assert.Len(t, older, 3, "an out of range limit falls back to the default page size")
	assert.Equal(t, ids[0], older[0].ID)
}
