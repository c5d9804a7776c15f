package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
)

func labels(options []models.PollOption) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Label
	}
	return out
}

func TestSelectWinners(t *testing.T) {
	options := []models.PollOption{
		{ID: 10, Label: "Dinde", Position: 0},
		{ID: 11, Label: "Chapon", Position: 1},
		{ID: 12, Label: "Foie gras", Position: 2},
		{ID: 13, Label: "Huîtres", Position: 3},
	}

	tests := []struct {
		name  string
		tally map[uint64]int64
		want  []string
	}{
		{
			name:  "clear winners",
			tally: map[uint64]int64{10: 1, 11: 4, 12: 2},
			want:  []string{"Chapon", "Foie gras"},
		},
		{
			name:  "ties keep option order",
			tally: map[uint64]int64{10: 2, 11: 2, 12: 2, 13: 2},
			want:  []string{"Dinde", "Chapon"},
		},
		{
			name:  "tie for second place",
			tally: map[uint64]int64{13: 5, 12: 1, 11: 1},
			want:  []string{"Huîtres", "Chapon"},
		},
		{
			name:  "single voted option",
			tally: map[uint64]int64{12: 1},
			want:  []string{"Foie gras"},
		},
		{
			name:  "no votes",
			tally: map[uint64]int64{},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectWinners(options, tt.tally, constants.PollWinnerCount)
			assert.Equal(t, tt.want, labels(got))
		})
	}
}

func TestSelectWinners_UsesPositionNotSliceOrder(t *testing.T) {
	options := []models.PollOption{
		{ID: 2, Label: "Tarte", Position: 1},
		{ID: 1, Label: "Bûche", Position: 0},
		{ID: 3, Label: "Glace", Position: 2},
	}

	got := SelectWinners(options, map[uint64]int64{1: 1, 2: 1, 3: 1}, 2)

	assert.Equal(t, []string{"Bûche", "Tarte"}, labels(got))
	assert.Equal(t, "Tarte", options[0].Label, "input must not be reordered")
}

func TestPollService_VoteAndClose(t *testing.T) {
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 12, 20, 18, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	polls := NewPollService(repository.NewPollRepository(db), notifier, clock)

	creator := &models.User{Name: "Maman"}
	voter := &models.User{Name: "Léa"}
	mustCreate(t, db, creator)
	mustCreate(t, db, voter)
	event := &models.Event{Name: "Noël"}
	mustCreate(t, db, event)

	poll, err := polls.Create(event.ID, Actor{ID: creator.ID, Role: models.RoleUser}, CreatePollInput{
		Question: "Quel dessert ?",
		Category: models.CategoryFood,
		Options:  []string{"Bûche", "Tarte", " bûche ", "Glace"},
	})
	require.NoError(t, err)
	require.Len(t, poll.Options, 3, "duplicate labels are dropped")

	ids := make(map[string]uint64)
	for _, o := range poll.Options {
		ids[o.Label] = o.ID
	}

	_, err = polls.Vote(event.ID, poll.ID, Actor{ID: voter.ID}, []uint64{ids["Tarte"], ids["Glace"]})
	assert.ErrorIs(t, err, ErrSingleChoiceOnly)

	_, err = polls.Vote(event.ID, poll.ID, Actor{ID: creator.ID}, []uint64{ids["Glace"]})
	require.NoError(t, err)
	view, err := polls.Vote(event.ID, poll.ID, Actor{ID: voter.ID}, []uint64{ids["Glace"]})
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.TotalVotes)
	assert.Equal(t, []uint64{ids["Glace"]}, view.MyVotes)

	// Changing a single-choice vote replaces it
	view, err = polls.Vote(event.ID, poll.ID, Actor{ID: voter.ID}, []uint64{ids["Tarte"]})
	require.NoError(t, err)
	assert.Equal(t, int64(2), view.TotalVotes)

	_, err = polls.Close(event.ID, poll.ID, Actor{ID: voter.ID, Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrNotPollCloser)

	result, err := polls.Close(event.ID, poll.ID, Actor{ID: creator.ID, Role: models.RoleUser})
	require.NoError(t, err)
	assert.True(t, result.Poll.Poll.IsClosed)
	require.NotNil(t, result.Poll.Poll.ClosedAt)
	assert.True(t, clock.Now().Equal(*result.Poll.Poll.ClosedAt))

	var stored []models.Contribution
	require.NoError(t, db.Where("event_id = ?", event.ID).Order("id").Find(&stored).Error)
	require.Len(t, stored, 2)
	assert.Equal(t, "Tarte", stored[0].Title)
	assert.Equal(t, "Glace", stored[1].Title)
	for _, c := range stored {
		assert.Equal(t, creator.ID, c.UserID)
		assert.Equal(t, models.CategoryFood, c.Category)
	}

	_, err = polls.Vote(event.ID, poll.ID, Actor{ID: voter.ID}, []uint64{ids["Bûche"]})
	assert.ErrorIs(t, err, ErrPollClosed)
	_, err = polls.Close(event.ID, poll.ID, Actor{ID: creator.ID})
	assert.ErrorIs(t, err, ErrPollClosed)

	assert.Contains(t, notifier.names(), fmt.Sprintf("%d:%s", event.ID, constants.RealtimeContributionUpdate))
}

func TestPollService_CreateValidation(t *testing.T) {
	db := newTestDB(t)
	polls := NewPollService(repository.NewPollRepository(db), nil, nil)
	actor := Actor{ID: 1}

	_, err := polls.Create(1, actor, CreatePollInput{Question: " ", Options: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrPollQuestion)

	_, err = polls.Create(1, actor, CreatePollInput{Question: "?", Options: []string{"a", "A"}})
	assert.ErrorIs(t, err, ErrPollOptions)

	_, err = polls.Create(1, actor, CreatePollInput{Question: "?", Type: "ranked", Options: []string{"a", "b"}})
	assert.ErrorIs(t, err, ErrInvalidPollType)
}

func TestPollService_WrongEventIsNotFound(t *testing.T) {
	db := newTestDB(t)
	polls := NewPollService(repository.NewPollRepository(db), nil, nil)
	creator := &models.User{Name: "Alice"}
	mustCreate(t, db, creator)
	event := &models.Event{Name: "Noël"}
	mustCreate(t, db, event)

	poll, err := polls.Create(event.ID, Actor{ID: creator.ID}, CreatePollInput{Question: "?", Options: []string{"a", "b"}})
	require.NoError(t, err)

	_, err = polls.Get(event.ID+1, poll.ID, creator.ID)
	assert.ErrorIs(t, err, ErrPollNotFound)
}
