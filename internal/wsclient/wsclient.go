// Package wsclient follows the live feed of a remote shoppulse server over WebSocket.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hay-kot/shoppulse/internal/core/feed"
)

const (
	// readWait must exceed the server's ping period.
	readWait  = 70 * time.Second
	writeWait = 5 * time.Second
)

// Endpoint turns a server URL into its WebSocket feed URL. http and https map to
// ws and wss; an empty path becomes /ws.
func Endpoint(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, raw)
	}

	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", raw)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Source subscribes to a remote /ws endpoint. It implements live.Source.
type Source struct {
	url    string
	dialer *websocket.Dialer
	log    zerolog.Logger
}

// New creates a source for the WebSocket URL url.
func New(url string, log zerolog.Logger) *Source {
	return &Source{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    log,
	}
}

// Subscribe dials the server and delivers every snapshot it sends. Read failures
// after the connection is established are reported through fail. cancel must not
// be called from fn.
func (s *Source) Subscribe(ctx context.Context, fn func(feed.Snapshot), fail func(error)) (func(), error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %s: %w", s.url, resp.Status, err)
		}
		return nil, fmt.Errorf("dial %s: %w", s.url, err)
	}

	var (
		mu      sync.Mutex
		stopped bool
	)

	_ = conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(data string) error {
		_ = conn.SetReadDeadline(time.Now().Add(readWait))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	})

	go func() {
		for {
			var snap feed.Snapshot
			_, data, err := conn.ReadMessage()
			if err == nil {
				if err := json.Unmarshal(data, &snap); err != nil {
					s.log.Warn().Err(err).Msg("decode snapshot")
					continue
				}
			}

			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			if err != nil {
				stopped = true
				mu.Unlock()
				_ = conn.Close()
				s.log.Debug().Err(err).Str("url", s.url).Msg("websocket read")
				if fail != nil {
					fail(readError(err))
				}
				return
			}
			fn(snap)
			mu.Unlock()
		}
	}()

	cancel := func() {
		mu.Lock()
		if stopped {
			mu.Unlock()
			return
		}
		stopped = true
		mu.Unlock()

		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		_ = conn.Close()
	}
	return cancel, nil
}

// readError describes why a subscription ended.
func readError(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return fmt.Errorf("server closed connection (%d): %w", ce.Code, err)
	}
	return fmt.Errorf("connection lost: %w", err)
}
