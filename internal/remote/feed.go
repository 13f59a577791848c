package remote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/syncserver"
)

const (
	pongWait  = 60 * time.Second
	writeWait = 10 * time.Second

	// Snapshots carry whole collections
	maxMessageSize = 8 << 20
)

// ErrAlreadyListening is returned by Listen on a client that already has a feed
var ErrAlreadyListening = errors.New("remote feed already running")

type feed struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	connected bool
}

// WebsocketURL derives the feed address from the server's base url
func (c *Client) WebsocketURL() string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = c.base.Path + "/ws"
	return u.String()
}

// Listen starts the snapshot feed. Snapshots are published to subscribers
// until ctx is cancelled or Close is called. A dropped connection is
// re-dialled with exponential backoff.
func (c *Client) Listen(ctx context.Context) error {
	if c.feed != nil {
		return ErrAlreadyListening
	}
	ctx, cancel := context.WithCancel(ctx)
	c.feed = &feed{cancel: cancel, done: make(chan struct{})}
	go c.listen(ctx)
	return nil
}

// Connected reports whether the feed currently has a live connection
func (c *Client) Connected() bool {
	if c.feed == nil {
		return false
	}
	c.feed.mu.Lock()
	defer c.feed.mu.Unlock()
	return c.feed.connected
}

// Close stops the feed and waits for it to exit
func (c *Client) Close() error {
	if c.feed == nil {
		return nil
	}
	c.feed.cancel()
	<-c.feed.done
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) setConnected(v bool) {
	c.feed.mu.Lock()
	c.feed.connected = v
	c.feed.mu.Unlock()
}

func (c *Client) listen(ctx context.Context) {
	defer close(c.feed.done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second

	for {
		received, err := c.stream(ctx)
		c.setConnected(false)
		if ctx.Err() != nil {
			return
		}
		if received {
			b.Reset()
		}

		wait := b.NextBackOff()
		c.logger.Warn("snapshot feed disconnected",
			zap.Error(err),
			zap.Duration("retry_in", wait),
		)

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

// stream dials the server and publishes snapshots until the connection ends.
// received reports whether at least one message arrived.
func (c *Client) stream(ctx context.Context) (received bool, err error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.WebsocketURL(), nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	c.setConnected(true)
	c.logger.Info("snapshot feed connected", zap.String("url", c.WebsocketURL()))

	// unblock ReadMessage on cancellation
	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		conn.Close()
	})
	defer stop()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return received, err
		}
		conn.SetReadDeadline(time.Now().Add(pongWait))
		received = true
		c.dispatch(raw)
	}
}

func (c *Client) dispatch(raw []byte) {
	var msg syncserver.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("malformed snapshot message", zap.Error(err))
		return
	}

	switch msg.Type {
	case syncserver.TypeTemplates:
		var ts []models.Template
		if err := json.Unmarshal(msg.Data, &ts); err != nil {
			c.logger.Warn("malformed template snapshot", zap.Error(err))
			return
		}
		c.PublishTemplates(ts)
	case syncserver.TypeSessions:
		var ss []models.Session
		if err := json.Unmarshal(msg.Data, &ss); err != nil {
			c.logger.Warn("malformed session snapshot", zap.Error(err))
			return
		}
		c.PublishSessions(ss)
	default:
		c.logger.Debug("ignoring message", zap.String("type", msg.Type))
	}
}
