package services

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"github.com/yukikurage/noel-en-famille/internal/utils"
	"gorm.io/gorm"
)

type fixedConnections struct{ conns, rooms int }

func (f fixedConnections) Connections() int { return f.conns }
func (f fixedConnections) Rooms() int       { return f.rooms }

type adminFixture struct {
	db     *gorm.DB
	admin  *AdminService
	auth   *AuthService
	images *fakeImages
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	db := newTestDB(t)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC))
	images := &fakeImages{}

	users := repository.NewUserRepository(db)
	events := repository.NewEventRepository(db)
	codes := repository.NewEventCodeRepository(db)
	refresh := repository.NewRefreshTokenRepository(db)
	eventService := NewEventService(events, images)

	return &adminFixture{
		db: db,
		admin: NewAdminService(AdminDeps{
			Codes:    codes,
			Users:    users,
			Refresh:  refresh,
			Stats:    repository.NewStatsRepository(db),
			Events:   eventService,
			Images:   images,
			Realtime: fixedConnections{conns: 3, rooms: 2},
			Clock:    clock,
		}),
		auth:   NewAuthService(users, events, codes, refresh, newTestTokens(clock)),
		images: images,
	}
}

func TestAdminService_CreateCode(t *testing.T) {
	f := newAdminFixture(t)
	event := &models.Event{Name: "Noël"}
	mustCreate(t, f.db, event)

	code, err := f.admin.CreateCode(CreateCodeInput{Code: " noel-2025 ", Label: " Famille ", EventIDs: []uint64{event.ID, event.ID}})
	require.NoError(t, err)
	assert.Equal(t, "NOEL-2025", code.Code)
	assert.Equal(t, "Famille", code.Label)
	assert.True(t, code.IsActive)
	require.Len(t, code.Events, 1)

	_, err = f.admin.CreateCode(CreateCodeInput{Code: "NOEL-2025", EventIDs: []uint64{event.ID}})
	assert.ErrorIs(t, err, ErrCodeTaken)

	_, err = f.admin.CreateCode(CreateCodeInput{Code: "LONELY"})
	assert.ErrorIs(t, err, ErrCodeWithoutEvents)

	_, err = f.admin.CreateCode(CreateCodeInput{Code: "a b", EventIDs: []uint64{event.ID}})
	assert.ErrorIs(t, err, ErrInvalidCodeFormat)

	_, err = f.admin.CreateCode(CreateCodeInput{Code: "GHOST", EventIDs: []uint64{event.ID + 100}})
	assert.ErrorIs(t, err, ErrUnknownEventIDs)

	generated, err := f.admin.CreateCode(CreateCodeInput{IsMaster: true})
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z2-9]{4}-[A-Z2-9]{4}$`, generated.Code)
	assert.True(t, generated.IsMaster)
}

func TestAdminService_UpdateCode(t *testing.T) {
	f := newAdminFixture(t)
	event := &models.Event{Name: "Noël"}
	mustCreate(t, f.db, event)
	code, err := f.admin.CreateCode(CreateCodeInput{Code: "NOEL-2025", EventIDs: []uint64{event.ID}})
	require.NoError(t, err)

	inactive := false
	updated, err := f.admin.UpdateCode(code.ID, UpdateCodeInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)

	none := []uint64{}
	_, err = f.admin.UpdateCode(code.ID, UpdateCodeInput{EventIDs: &none})
	assert.ErrorIs(t, err, ErrCodeWithoutEvents)

	_, err = f.admin.UpdateCode(code.ID+10, UpdateCodeInput{})
	assert.ErrorIs(t, err, ErrCodeNotFound)

	_, err = f.auth.Login(LoginInput{Name: "Mamie", Code: "NOEL-2025"})
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestAdminService_UpdateRoleRevokesSessions(t *testing.T) {
	f := newAdminFixture(t)
	admin := &models.User{Name: "Admin", Role: models.RoleAdmin}
	mustCreate(t, f.db, admin)
	mustCreate(t, f.db, &models.EventCode{Code: "FAMILLE", IsMaster: true, IsActive: true})

	login, err := f.auth.Login(LoginInput{Name: "Léa", Code: "FAMILLE"})
	require.NoError(t, err)

	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}
	user, err := f.admin.UpdateRole(actor, login.User.ID, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)

	_, err = f.auth.Refresh(login.Tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = f.admin.UpdateRole(actor, admin.ID, models.RoleUser)
	assert.ErrorIs(t, err, ErrCannotModifySelf)

	_, err = f.admin.UpdateRole(actor, login.User.ID, "owner")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAdminService_DeleteUserRemovesAvatar(t *testing.T) {
	f := newAdminFixture(t)
	admin := &models.User{Name: "Admin", Role: models.RoleAdmin}
	user := &models.User{Name: "Léa", AvatarURL: "/uploads/lea.webp"}
	mustCreate(t, f.db, admin)
	mustCreate(t, f.db, user)
	actor := Actor{ID: admin.ID, Role: models.RoleAdmin}

	assert.ErrorIs(t, f.admin.DeleteUser(actor, admin.ID), ErrCannotModifySelf)
	require.NoError(t, f.admin.DeleteUser(actor, user.ID))
	assert.Equal(t, []string{"/uploads/lea.webp"}, f.images.removed)
	assert.ErrorIs(t, f.admin.DeleteUser(actor, user.ID), ErrUserNotFound)
}

func TestAdminService_DeleteUserWithAuthoredContent(t *testing.T) {
	f := newAdminFixture(t)
	admin := &models.User{Name: "Admin", Role: models.RoleAdmin}
	alice := &models.User{Name: "Alice"}
	bob := &models.User{Name: "Bob", AvatarURL: "/uploads/bob.webp"}
	for _, u := range []*models.User{admin, alice, bob} {
		mustCreate(t, f.db, u)
	}
	event := &models.Event{Name: "Noël"}
	mustCreate(t, f.db, event)
	addMember(t, f.db, event, alice, bob)

	bobsTask := &models.Task{EventID: event.ID, CreatorID: bob.ID, Title: "Sapin"}
	alicesTask := &models.Task{EventID: event.ID, CreatorID: alice.ID, AssigneeID: &bob.ID, Title: "Guirlandes"}
	mustCreate(t, f.db, bobsTask)
	mustCreate(t, f.db, alicesTask)

	poll := &models.Poll{EventID: event.ID, CreatorID: bob.ID, Question: "Entrée ?", Options: []models.PollOption{
		{Label: "Huîtres", Position: 0},
		{Label: "Foie gras", Position: 1},
	}}
	mustCreate(t, f.db, poll)
	mustCreate(t, f.db, &models.PollVote{PollID: poll.ID, OptionID: poll.Options[1].ID, UserID: alice.ID})

	mustCreate(t, f.db, &models.Contribution{EventID: event.ID, UserID: bob.ID, Title: "Vin", ImageURL: "/uploads/vin.webp"})
	mustCreate(t, f.db, &models.Contribution{EventID: event.ID, UserID: alice.ID, Title: "Pain", ImageURL: "/uploads/pain.webp"})
	mustCreate(t, f.db, &models.ChatMessage{EventID: event.ID, UserID: bob.ID, Content: "Coucou", Media: []models.ChatMedia{{URL: "/uploads/selfie.webp"}}})

	require.NoError(t, f.admin.DeleteUser(Actor{ID: admin.ID, Role: models.RoleAdmin}, bob.ID))

	assert.ElementsMatch(t, []string{"/uploads/bob.webp", "/uploads/vin.webp", "/uploads/selfie.webp"}, f.images.removed)

	var tasks []models.Task
	require.NoError(t, f.db.Find(&tasks).Error)
	require.Len(t, tasks, 1)
	assert.Equal(t, alicesTask.ID, tasks[0].ID)
	assert.Nil(t, tasks[0].AssigneeID)

	for _, model := range []interface{}{&models.Poll{}, &models.PollOption{}, &models.PollVote{}, &models.ChatMedia{}, &models.ChatMessage{}} {
		var n int64
		require.NoError(t, f.db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows left", model)
	}

	var contributions int64
	require.NoError(t, f.db.Model(&models.Contribution{}).Count(&contributions).Error)
	assert.Equal(t, int64(1), contributions)
}

func TestAdminService_ListUsersAndMetrics(t *testing.T) {
	f := newAdminFixture(t)
	for _, name := range []string{"Chloé", "Alice", "Bruno"} {
		mustCreate(t, f.db, &models.User{Name: name})
	}

	users, total, err := f.admin.ListUsers(utils.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Name)

	m, err := f.admin.Metrics()
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Counts["users"])
	assert.Equal(t, 3, m.Connections)
	assert.Equal(t, 2, m.Rooms)
}
