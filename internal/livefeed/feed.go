// Package livefeed listens to the backend's websocket status channel.
package livefeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

const (
	Path = "/ws"

	statusType = "status"
)

// Frame is one message pushed by the backend.
type Frame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Feed is an open status connection. It satisfies flow.StatusSource.
type Feed struct {
	conn   *websocket.Conn
	logger *slog.Logger

	closeOnce sync.Once
}

// WSURL turns an http(s) backend base URL into the ws(s) feed URL.
func WSURL(backendURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(backendURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse backend url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported backend url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + Path
	return u.String(), nil
}

// Dial connects to the feed of the backend at backendURL.
func Dial(ctx context.Context, backendURL string, logger *slog.Logger) (*Feed, error) {
	wsURL, err := WSURL(backendURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Feed{conn: conn, logger: logger}, nil
}

// Run forwards status messages to emit until ctx is done or the connection
// drops. Frames that are not valid JSON or not of type "status" are
// skipped.
func (f *Feed) Run(ctx context.Context, emit func(message string)) error {
	stop := context.AfterFunc(ctx, func() { _ = f.Close() })
	defer stop()

	for {
		mt, data, err := f.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read status frame: %w", err)
		}
		if mt != websocket.TextMessage {
			continue
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			f.logger.Debug("skipping malformed status frame", "error", err)
			continue
		}
		if frame.Type != statusType {
			continue
		}
		emit(frame.Message)
	}
}

// Close shuts the connection. It is safe to call more than once.
func (f *Feed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		err = f.conn.Close()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}
