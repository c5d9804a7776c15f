package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/noel-en-famille/internal/middleware"
)

// Router holds everything the HTTP routes depend on.
type Router struct {
	Auth          *AuthHandler
	Events        *EventHandler
	Contributions *ContributionHandler
	Polls         *PollHandler
	Tasks         *TaskHandler
	Chat          *ChatHandler
	Menu          *MenuHandler
	Profile       *ProfileHandler
	Admin         *AdminHandler
	Reminders     *ReminderHandler
	Realtime      gin.HandlerFunc

	Authenticator middleware.Authenticator
	AccessChecker middleware.AccessChecker
	LoginLimiter  *middleware.IPRateLimiter
	CronSecret    string
}

// Register mounts the API routes on r.
func (rt *Router) Register(r *gin.Engine) {
	r.GET("/health", Health)

	api := r.Group("/api")
	requireAuth := middleware.RequireAuth(rt.Authenticator)
	eventAccess := middleware.RequireEventAccess(rt.AccessChecker)

	// Auth routes (public)
	auth := api.Group("/auth")
	{
		login := []gin.HandlerFunc{rt.Auth.Login}
		if rt.LoginLimiter != nil {
			login = append([]gin.HandlerFunc{rt.LoginLimiter.Middleware()}, login...)
		}
		auth.POST("/login", login...)
		auth.POST("/refresh", rt.Auth.Refresh)
		auth.POST("/logout", rt.Auth.Logout)
		auth.GET("/me", requireAuth, rt.Auth.GetCurrentUser)
	}

	if rt.Realtime != nil {
		api.GET("/socketio", rt.Realtime)
	}

	// Event routes (participants)
	events := api.Group("/events")
	events.Use(requireAuth)
	{
		events.GET("", rt.Events.ListEvents)

		event := events.Group("/:eventId")
		event.Use(eventAccess)
		{
			event.GET("", rt.Events.GetEvent)
			event.GET("/summary", rt.Events.GetSummary)
			event.GET("/participants", rt.Events.ListParticipants)

			contributions := event.Group("/contributions")
			contributions.GET("", rt.Contributions.ListContributions)
			contributions.POST("", rt.Contributions.CreateContribution)
			contributions.GET("/export.csv", rt.Contributions.ExportCSV)
			contributions.PUT("/:contributionId", rt.Contributions.UpdateContribution)
			contributions.DELETE("/:contributionId", rt.Contributions.DeleteContribution)

			polls := event.Group("/polls")
			polls.GET("", rt.Polls.ListPolls)
			polls.POST("", rt.Polls.CreatePoll)
			polls.POST("/:pollId/vote", rt.Polls.Vote)
			polls.POST("/:pollId/close", rt.Polls.ClosePoll)
			polls.DELETE("/:pollId", rt.Polls.DeletePoll)

			tasks := event.Group("/tasks")
			tasks.GET("", rt.Tasks.ListTasks)
			tasks.POST("", rt.Tasks.CreateTask)
			tasks.GET("/export.ics", rt.Tasks.ExportICS)
			tasks.GET("/:taskId", rt.Tasks.GetTask)
			tasks.PATCH("/:taskId", rt.Tasks.UpdateTask)
			tasks.POST("/:taskId/toggle", rt.Tasks.ToggleTask)
			tasks.DELETE("/:taskId", rt.Tasks.DeleteTask)

			messages := event.Group("/messages")
			messages.GET("", rt.Chat.ListMessages)
			messages.POST("", rt.Chat.PostMessage)
			messages.DELETE("/:messageId", rt.Chat.DeleteMessage)

			menu := event.Group("/menu")
			menu.GET("/recipes", rt.Menu.ListRecipes)
			menu.POST("/recipes", rt.Menu.CreateRecipe)
			menu.PUT("/recipes/:recipeId", rt.Menu.UpdateRecipe)
			menu.DELETE("/recipes/:recipeId", rt.Menu.DeleteRecipe)
			menu.POST("/recipes/:recipeId/ingredients", rt.Menu.AddIngredients)
			menu.POST("/recipes/:recipeId/suggest", rt.Menu.SuggestIngredients)
			menu.PUT("/ingredients/:ingredientId", rt.Menu.UpdateIngredient)
			menu.DELETE("/ingredients/:ingredientId", rt.Menu.DeleteIngredient)
			menu.GET("/coverage", rt.Menu.Coverage)
		}
	}

	// Profile routes
	profile := api.Group("/profile")
	profile.Use(requireAuth)
	{
		profile.GET("", rt.Profile.GetProfile)
		profile.PUT("", rt.Profile.UpdateProfile)
		profile.POST("/avatar", rt.Profile.UploadAvatar)
	}

	// Admin routes
	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/codes", rt.Admin.ListCodes)
		admin.POST("/codes", rt.Admin.CreateCode)
		admin.PUT("/codes/:codeId", rt.Admin.UpdateCode)
		admin.DELETE("/codes/:codeId", rt.Admin.DeleteCode)

		admin.POST("/events", rt.Admin.CreateEvent)
		admin.PUT("/events/:eventId", rt.Admin.UpdateEvent)
		admin.POST("/events/:eventId/close", rt.Admin.CloseEvent)
		admin.POST("/events/:eventId/reopen", rt.Admin.ReopenEvent)
		admin.POST("/events/:eventId/image", rt.Admin.UploadEventImage)
		admin.DELETE("/events/:eventId", rt.Admin.DeleteEvent)

		admin.GET("/users", rt.Admin.ListUsers)
		admin.PUT("/users/:userId/role", rt.Admin.UpdateUserRole)
		admin.DELETE("/users/:userId", rt.Admin.DeleteUser)

		admin.DELETE("/messages/:messageId", rt.Admin.DeleteMessage)
		admin.GET("/metrics", rt.Admin.Metrics)
	}

	// Cron routes
	api.POST("/reminders/send", middleware.RequireCronSecret(rt.CronSecret), rt.Reminders.SendReminders)
}
