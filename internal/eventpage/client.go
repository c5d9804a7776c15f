package eventpage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yukikurage/noel-en-famille/internal/constants"
	"github.com/yukikurage/noel-en-famille/internal/dto"
	apierrors "github.com/yukikurage/noel-en-famille/internal/errors"
	"github.com/yukikurage/noel-en-famille/internal/logging"
	"go.uber.org/zap"
)

const maxResponseBytes = 8 << 20

// HTTPFetcher reads page data from the REST API with an access token.
type HTTPFetcher struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

// NewHTTPFetcher creates a fetcher for the API rooted at baseURL.
func NewHTTPFetcher(baseURL, accessToken string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPFetcher{
		baseURL:     strings.TrimRight(baseURL, "/"),
		accessToken: accessToken,
		client:      client,
	}
}

func tabPath(eventID uint64, tab Tab) (string, error) {
	switch tab {
	case TabContributions:
		return fmt.Sprintf("/api/events/%d/contributions", eventID), nil
	case TabMenu:
		return fmt.Sprintf("/api/events/%d/menu/recipes", eventID), nil
	case TabPolls:
		return fmt.Sprintf("/api/events/%d/polls", eventID), nil
	case TabTasks:
		return fmt.Sprintf("/api/events/%d/tasks", eventID), nil
	case TabChat:
		return fmt.Sprintf("/api/events/%d/messages", eventID), nil
	}
	return "", fmt.Errorf("unknown tab %q", tab)
}

// FetchSummary loads the event summary.
func (f *HTTPFetcher) FetchSummary(ctx context.Context, eventID uint64) (*dto.EventSummaryDTO, error) {
	body, err := f.get(ctx, fmt.Sprintf("/api/events/%d/summary", eventID))
	if err != nil {
		return nil, err
	}
	var summary dto.EventSummaryDTO
	if err := json.Unmarshal(body, &summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary: %w", err)
	}
	return &summary, nil
}

// FetchTab loads the raw payload of one tab.
func (f *HTTPFetcher) FetchTab(ctx context.Context, eventID uint64, tab Tab) (json.RawMessage, error) {
	path, err := tabPath(eventID, tab)
	if err != nil {
		return nil, err
	}
	body, err := f.get(ctx, path)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

func (f *HTTPFetcher) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if f.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+f.accessToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apierrors.APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != "" {
			return nil, fmt.Errorf("GET %s: status %d: %w", path, resp.StatusCode, &apiErr)
		}
		return nil, fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	return body, nil
}

type realtimeFrame struct {
	Type    string `json:"type"`
	EventID uint64 `json:"eventId"`
}

// Listen joins the event room on the realtime endpoint and forwards every
// notification for the page's event to OnRealtime until ctx is done or the
// connection drops.
func (p *Page) Listen(ctx context.Context, wsURL, accessToken string) error {
	header := http.Header{}
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}
	defer conn.Close()

	join := realtimeFrame{Type: constants.RealtimeJoinEvent, EventID: p.eventID}
	if err := conn.WriteJSON(join); err != nil {
		return fmt.Errorf("failed to join event room: %w", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
		case <-stop:
		}
	}()

	for {
		var frame realtimeFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if frame.EventID != p.eventID {
			continue
		}
		if frame.Type == "error" {
			return fmt.Errorf("realtime join rejected for event %d", p.eventID)
		}
		if err := p.OnRealtime(ctx, frame.Type); err != nil {
			logging.L().Debug("realtime refetch failed", zap.String("type", frame.Type), zap.Error(err))
		}
	}
}
