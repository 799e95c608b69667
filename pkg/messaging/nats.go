package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
)

// Client wraps the NATS connection used for job lifecycle and progress
// fan-out. A nil Client is valid everywhere: publication is best-effort and
// generation never depends on the broker being up. Connection state is kept
// in atomics because the NATS callbacks run on their own goroutines.
type Client struct {
	conn       *nats.Conn
	subs       map[string]*nats.Subscription
	mu         sync.RWMutex
	reconnects int64 // atomic
	connected  int32 // atomic
}

// Config holds NATS configuration
type Config struct {
	URL            string
	Name           string
	ReconnectWait  time.Duration
	MaxReconnects  int
	ConnectTimeout time.Duration
}

// NewClient connects to NATS
func NewClient(cfg Config) (*Client, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.Timeout(cfg.ConnectTimeout),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	client := &Client{
		conn: conn,
		subs: make(map[string]*nats.Subscription),
	}
	atomic.StoreInt32(&client.connected, 1)

	conn.SetReconnectHandler(func(nc *nats.Conn) {
		atomic.AddInt64(&client.reconnects, 1)
		atomic.StoreInt32(&client.connected, 1)
	})
	conn.SetDisconnectErrHandler(func(nc *nats.Conn, err error) {
		atomic.StoreInt32(&client.connected, 0)
	})

	return client, nil
}

// Publish publishes a message to a subject
func (c *Client) Publish(ctx context.Context, subject string, data interface{}) error {
	if c == nil || c.conn == nil {
		return nil
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

// Subscribe subscribes to a subject. The handler receives the raw payload
// and runs on the NATS delivery goroutine.
func (c *Client) Subscribe(subject string, handler func(data []byte)) error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("not connected")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.subs[subject]; exists {
		return fmt.Errorf("already subscribed to %s", subject)
	}

	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) { handler(msg.Data) })
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.subs[subject] = sub
	return nil
}

// Unsubscribe removes a subscription
func (c *Client) Unsubscribe(subject string) error {
	if c == nil {
		return fmt.Errorf("not connected")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sub, exists := c.subs[subject]
	if !exists {
		return fmt.Errorf("not subscribed to %s", subject)
	}
	if err := sub.Unsubscribe(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	delete(c.subs, subject)
	return nil
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	return c != nil && c.conn != nil && atomic.LoadInt32(&c.connected) == 1 && c.conn.IsConnected()
}

// Close unsubscribes everything and closes the connection
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for subject, sub := range c.subs {
		sub.Unsubscribe()
		delete(c.subs, subject)
	}
	if c.conn != nil {
		c.conn.Close()
	}
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// Drain drains the connection
func (c *Client) Drain() error {
	if c == nil || c.conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.conn.Drain()
}

// Reconnects returns the number of reconnections observed
func (c *Client) Reconnects() int {
	if c == nil {
		return 0
	}
	return int(atomic.LoadInt64(&c.reconnects))
}
