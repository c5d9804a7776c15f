package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
)

func TestEventService_DeleteEventRemovesContentAndImages(t *testing.T) {
	db := newTestDB(t)
	store := &fakeImages{}
	events := NewEventService(repository.NewEventRepository(db), store)

	alice := &models.User{Name: "Alice"}
	mustCreate(t, db, alice)
	event := &models.Event{Name: "Noël", ImageURL: "/uploads/sapin.webp"}
	other := &models.Event{Name: "Réveillon"}
	mustCreate(t, db, event)
	mustCreate(t, db, other)
	addMember(t, db, event, alice)
	addMember(t, db, other, alice)
	mustCreate(t, db, &models.EventCode{Code: "NOEL-2025", IsActive: true, Events: []models.Event{*event, *other}})

	recipe := &models.MenuRecipe{EventID: event.ID, Name: "Raclette", Ingredients: []models.MenuIngredient{{Name: "Fromage"}}}
	mustCreate(t, db, recipe)
	mustCreate(t, db, &models.Contribution{
		EventID:      event.ID,
		UserID:       alice.ID,
		Title:        "Fromage à raclette",
		ImageURL:     "/uploads/fromage.webp",
		IngredientID: &recipe.Ingredients[0].ID,
	})
	mustCreate(t, db, &models.ChatMessage{EventID: event.ID, UserID: alice.ID, Media: []models.ChatMedia{{URL: "/uploads/photo.webp"}}})
	poll := &models.Poll{EventID: event.ID, CreatorID: alice.ID, Question: "Dessert ?", Options: []models.PollOption{
		{Label: "Bûche", Position: 0},
		{Label: "Glace", Position: 1},
	}}
	mustCreate(t, db, poll)
	mustCreate(t, db, &models.PollVote{PollID: poll.ID, OptionID: poll.Options[0].ID, UserID: alice.ID})
	mustCreate(t, db, &models.Task{EventID: event.ID, CreatorID: alice.ID, AssigneeID: &alice.ID, Title: "Sapin"})
	mustCreate(t, db, &models.Contribution{EventID: other.ID, UserID: alice.ID, Title: "Champagne", ImageURL: "/uploads/champagne.webp"})

	require.NoError(t, events.DeleteEvent(event.ID))

	assert.ElementsMatch(t, []string{"/uploads/sapin.webp", "/uploads/fromage.webp", "/uploads/photo.webp"}, store.removed)

	for _, model := range []interface{}{
		&models.MenuIngredient{}, &models.MenuRecipe{}, &models.ChatMedia{}, &models.ChatMessage{},
		&models.PollVote{}, &models.PollOption{}, &models.Poll{}, &models.Task{},
	} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}

	var remaining []models.Contribution
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, other.ID, remaining[0].EventID)

	var code models.EventCode
	require.NoError(t, db.Preload("Events").Where("code = ?", "NOEL-2025").First(&code).Error)
	require.Len(t, code.Events, 1)
	assert.Equal(t, other.ID, code.Events[0].ID)

	assert.ErrorIs(t, events.DeleteEvent(event.ID), ErrEventNotFound)
}
