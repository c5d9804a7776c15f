package constants

import "time"

// Context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyEvent     = "event"
	ContextKeyRequestID = "request_id"
)

// Cookie names
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refreshToken"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

const (
	MinPollOptions     = 2
	MaxPollOptions     = 20
	PollWinnerCount    = 2
	MaxNameLength      = 50
	MaxMessageLength   = 2000
	MaxMediaPerMessage = 4
	MaxSuggestedItems  = 30
)

const (
	ReminderWindow         = 24 * time.Hour
	SummaryRefreshDebounce = 300 * time.Millisecond
)

// Realtime event names
const (
	RealtimeJoinEvent          = "join-event"
	RealtimeLeaveEvent         = "leave-event"
	RealtimeNewMessage         = "new-message"
	RealtimePollUpdate         = "poll-update"
	RealtimeContributionUpdate = "contribution-update"
	RealtimeTaskUpdate         = "task-update"
	RealtimeMenuUpdate         = "menu-update"
)
