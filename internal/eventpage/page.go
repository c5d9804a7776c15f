// Package eventpage drives the incremental loading of an event page: the
// summary first, then each tab on demand, with cached tabs invalidated by
// local mutations and realtime notifications.
package eventpage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"go.uber.org/zap"
)

// Tab is a lazily loaded section of the event page.
type Tab string

const (
	TabContributions Tab = "contributions"
	TabMenu          Tab = "menu"
	TabPolls         Tab = "polls"
	TabTasks         Tab = "tasks"
	TabChat          Tab = "chat"
)

// Tabs lists every tab of the page.
var Tabs = []Tab{TabContributions, TabMenu, TabPolls, TabTasks, TabChat}

// State is the cache state of one tab.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateLoaded
	StateInvalidated
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateInvalidated:
		return "invalidated"
	}
	return "unknown"
}

// TabForRealtime maps a realtime event name to the tab it invalidates.
func TabForRealtime(name string) (Tab, bool) {
	switch name {
	case constants.RealtimeContributionUpdate:
		return TabContributions, true
	case constants.RealtimeMenuUpdate:
		return TabMenu, true
	case constants.RealtimePollUpdate:
		return TabPolls, true
	case constants.RealtimeTaskUpdate:
		return TabTasks, true
	case constants.RealtimeNewMessage:
		return TabChat, true
	}
	return "", false
}

// Fetcher loads page data from the API.
type Fetcher interface {
	FetchSummary(ctx context.Context, eventID uint64) (*dto.EventSummaryDTO, error)
	FetchTab(ctx context.Context, eventID uint64, tab Tab) (json.RawMessage, error)
}

type tabState struct {
	state    State
	data     json.RawMessage
	inFlight bool
	// reload is set when the tab was invalidated while a fetch was running.
	reload bool
}

// Page is the per-event loading controller. It is safe for concurrent use.
type Page struct {
	eventID  uint64
	fetcher  Fetcher
	clock    clockwork.Clock
	debounce time.Duration

	mu             sync.Mutex
	ctx            context.Context
	active         Tab
	tabs           map[Tab]*tabState
	summary        *dto.EventSummaryDTO
	summaryTimer   clockwork.Timer
	summaryRunning bool
	summaryPending bool
	closed         bool
}

// Option configures a Page.
type Option func(*Page)

// WithClock sets the clock used for debouncing.
func WithClock(clock clockwork.Clock) Option {
	return func(p *Page) { p.clock = clock }
}

// WithDebounce overrides the summary refresh delay.
func WithDebounce(d time.Duration) Option {
	return func(p *Page) { p.debounce = d }
}

// NewPage creates a controller for one event.
func NewPage(eventID uint64, fetcher Fetcher, opts ...Option) *Page {
	p := &Page{
		eventID:  eventID,
		fetcher:  fetcher,
		clock:    clockwork.NewRealClock(),
		debounce: constants.SummaryRefreshDebounce,
		ctx:      context.Background(),
		tabs:     make(map[Tab]*tabState, len(Tabs)),
	}
	for _, opt := range opts {
		opt(p)
	}
	for _, t := range Tabs {
		p.tabs[t] = &tabState{state: StateUnloaded}
	}
	return p
}

// Open loads the summary. ctx also bounds the debounced refreshes started later.
func (p *Page) Open(ctx context.Context) error {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()

	summary, err := p.fetcher.FetchSummary(ctx, p.eventID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.summary = summary
	p.mu.Unlock()
	return nil
}

// Activate makes tab the visible one and loads it unless it is cached or
// already loading.
func (p *Page) Activate(ctx context.Context, tab Tab) error {
	p.mu.Lock()
	ts, ok := p.tabs[tab]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	p.active = tab
	if ts.state == StateLoaded || ts.inFlight {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.load(ctx, tab)
}

// OnMutation reacts to a change made by this client.
func (p *Page) OnMutation(ctx context.Context, tab Tab) error {
	return p.invalidate(ctx, tab)
}

// OnRealtime reacts to a notification broadcast by another client.
// Unknown event names are ignored.
func (p *Page) OnRealtime(ctx context.Context, eventName string) error {
	tab, ok := TabForRealtime(eventName)
	if !ok {
		return nil
	}
	return p.invalidate(ctx, tab)
}

// Summary returns the last loaded summary, or nil before Open.
func (p *Page) Summary() *dto.EventSummaryDTO {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summary == nil {
		return nil
	}
	s := *p.summary
	return &s
}

// TabState returns the cache state of tab.
func (p *Page) TabState(tab Tab) State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ts, ok := p.tabs[tab]; ok {
		return ts.state
	}
	return StateUnloaded
}

// TabData returns the cached payload of tab. Invalidated data is still returned.
func (p *Page) TabData(tab Tab) (json.RawMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ts, ok := p.tabs[tab]
	if !ok || ts.data == nil {
		return nil, false
	}
	return ts.data, true
}

// Active returns the visible tab.
func (p *Page) Active() Tab {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Close cancels the pending summary refresh.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.summaryTimer != nil {
		p.summaryTimer.Stop()
		p.summaryTimer = nil
	}
}

// invalidate refetches the tab at once when it is visible; otherwise it only
// drops the cached flag. Summary counts are refreshed after the debounce delay
// in both cases.
func (p *Page) invalidate(ctx context.Context, tab Tab) error {
	p.mu.Lock()
	ts, ok := p.tabs[tab]
	if !ok {
		p.mu.Unlock()
		return nil
	}
	p.scheduleSummaryLocked()

	if tab != p.active {
		if ts.state == StateLoaded {
			ts.state = StateInvalidated
		}
		if ts.inFlight {
			ts.reload = true
		}
		p.mu.Unlock()
		return nil
	}

	if ts.inFlight {
		ts.reload = true
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	return p.load(ctx, tab)
}

// load fetches tab, refetching while invalidations arrived during the fetch
// and the tab is still visible.
func (p *Page) load(ctx context.Context, tab Tab) error {
	p.mu.Lock()
	ts := p.tabs[tab]
	if ts.inFlight {
		ts.reload = true
		p.mu.Unlock()
		return nil
	}
	ts.inFlight = true
	previous := ts.state
	ts.state = StateLoading
	p.mu.Unlock()

	for {
		data, err := p.fetcher.FetchTab(ctx, p.eventID, tab)

		p.mu.Lock()
		if err != nil {
			ts.inFlight = false
			ts.reload = false
			ts.state = previous
			if previous == StateLoaded {
				ts.state = StateInvalidated
			}
			p.mu.Unlock()
			return err
		}

		ts.data = data
		if !ts.reload {
			ts.inFlight = false
			ts.state = StateLoaded
			p.mu.Unlock()
			return nil
		}

		ts.reload = false
		if p.active != tab {
			ts.inFlight = false
			ts.state = StateInvalidated
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
	}
}

func (p *Page) scheduleSummaryLocked() {
	if p.closed {
		return
	}
	if p.summaryTimer != nil {
		p.summaryTimer.Stop()
	}
	p.summaryTimer = p.clock.AfterFunc(p.debounce, p.refreshSummary)
}

func (p *Page) refreshSummary() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if p.summaryRunning {
		p.summaryPending = true
		p.mu.Unlock()
		return
	}
	p.summaryRunning = true
	ctx := p.ctx
	p.mu.Unlock()

	for {
		summary, err := p.fetcher.FetchSummary(ctx, p.eventID)

		p.mu.Lock()
		if err != nil {
			logging.L().Warn("failed to refresh event summary", zap.Uint64("event_id", p.eventID), zap.Error(err))
		} else {
			p.summary = summary
		}
		if !p.summaryPending || p.closed {
			p.summaryRunning = false
			p.summaryPending = false
			p.mu.Unlock()
			return
		}
		p.summaryPending = false
		p.mu.Unlock()
	}
}
