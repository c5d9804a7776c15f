package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/database"
	"github.com/yukikurage/noel-en-famille/internal/models"
	"github.com/yukikurage/noel-en-famille/internal/repository"
	"github.com/yukikurage/noel-en-famille/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db     *gorm.DB
	router *gin.Engine
	auth   *services.AuthService
	tokens *services.TokenService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	database.SetDB(db)

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	codeRepo := repository.NewEventCodeRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	contributionRepo := repository.NewContributionRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	pollRepo := repository.NewPollRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	chatRepo := repository.NewChatRepository(db)

	tokens := services.NewTokenService(services.TokenConfig{
		AccessSecret:  "access-secret-for-tests",
		RefreshSecret: "refresh-secret-for-tests",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}, clockwork.NewRealClock())

	authService := services.NewAuthService(userRepo, eventRepo, codeRepo, refreshRepo, tokens)
	eventService := services.NewEventService(eventRepo, nil)
	chatService := services.NewChatService(chatRepo, nil, nil)

	gin.SetMode(gin.TestMode)
	r := gin.New()

	rt := &Router{
		Auth:          NewAuthHandler(authService, CookieConfig{}),
		Events:        NewEventHandler(eventService),
		Contributions: NewContributionHandler(services.NewContributionService(contributionRepo, menuRepo, nil, nil)),
		Polls:         NewPollHandler(services.NewPollService(pollRepo, nil, nil)),
		Tasks:         NewTaskHandler(services.NewTaskService(taskRepo, eventRepo, nil)),
		Chat:          NewChatHandler(chatService),
		Menu:          NewMenuHandler(services.NewMenuService(menuRepo, eventRepo, nil, nil)),
		Profile:       NewProfileHandler(services.NewProfileService(userRepo, nil)),
		Admin: NewAdminHandler(services.NewAdminService(services.AdminDeps{
			Codes:   codeRepo,
			Users:   userRepo,
			Refresh: refreshRepo,
			Stats:   repository.NewStatsRepository(db),
			Events:  eventService,
		}), eventService, chatService),
		Reminders:     NewReminderHandler(services.NewReminderService(taskRepo, nil, nil)),
		Authenticator: authService,
		AccessChecker: eventService,
		CronSecret:    "cron-secret",
	}
	rt.Register(r)

	return &testEnv{db: db, router: r, auth: authService, tokens: tokens}
}

func (e *testEnv) createUser(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{Name: name, Role: role}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createEvent(t *testing.T, name string, members ...*models.User) *models.Event {
	t.Helper()
	event := &models.Event{Name: name}
	require.NoError(t, e.db.Create(event).Error)
	for _, m := range members {
		require.NoError(t, e.db.Create(&models.EventUser{EventID: event.ID, UserID: m.ID, JoinedAt: time.Now()}).Error)
	}
	return event
}

func (e *testEnv) createCode(t *testing.T, code string, master bool, events ...*models.Event) *models.EventCode {
	t.Helper()
	ec := &models.EventCode{Code: code, IsMaster: master, IsActive: true}
	for _, ev := range events {
		ec.Events = append(ec.Events, *ev)
	}
	require.NoError(t, e.db.Create(ec).Error)
	return ec
}

func (e *testEnv) accessToken(t *testing.T, user *models.User) string {
	t.Helper()
	pair, err := e.tokens.Issue(user)
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) authed(t *testing.T, user *models.User, method, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.AddCookie(&http.Cookie{Name: constants.AccessTokenCookie, Value: e.accessToken(t, user)})
	return e.do(req)
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
