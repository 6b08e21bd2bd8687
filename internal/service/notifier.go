package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/redis/go-redis/v9"

	"github.com/timmy/quill/internal/config"
	"github.com/timmy/quill/internal/logger"
)

// EventType names a job lifecycle event sent to third parties.
type EventType string

const (
	EventAccepted  EventType = "accepted"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
)

const (
	defaultNotifyQueue   = 64
	defaultNotifyTimeout = 10 * time.Second
)

// Event is one notification payload.
type Event struct {
	Type      EventType              `json:"type"`
	ArticleID string                 `json:"article_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Time      time.Time              `json:"time"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(t EventType, articleID string, metadata map[string]interface{}) Event {
	return Event{Type: t, ArticleID: articleID, Metadata: metadata, Time: time.Now().UTC()}
}

// Notifier delivers an event to one destination.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// NoopNotifier discards events.
type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, Event) error { return nil }

// WebhookNotifier POSTs events as JSON.
type WebhookNotifier struct {
	client *resty.Client
	url    string
}

// NewWebhookNotifier creates a WebhookNotifier for url.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &WebhookNotifier{
		client: resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		url:    url,
	}
}

func (w *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	resp, err := w.client.R().SetContext(ctx).SetBody(ev).Post(w.url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// RedisNotifier publishes events on a Redis Pub/Sub channel.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// NewRedisNotifier connects to url (redis://...) and publishes on channel.
func NewRedisNotifier(url, channel string) (*RedisNotifier, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if channel == "" {
		channel = "quill:events"
	}
	return &RedisNotifier{client: redis.NewClient(opts), channel: channel}, nil
}

func (r *RedisNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, payload).Err()
}

// Close closes the Redis connection.
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}

// MultiNotifier fans an event out to every backend.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every backend that holds a connection.
func (m MultiNotifier) Close() error {
	var errs []error
	for _, n := range m {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// NewNotifierFromConfig builds the configured backends. With none
// configured it returns NoopNotifier.
func NewNotifierFromConfig(cfg *config.NotifyConfig) (Notifier, error) {
	var backends MultiNotifier
	if cfg.WebhookURL != "" {
		backends = append(backends, NewWebhookNotifier(cfg.WebhookURL, cfg.Timeout))
	}
	if cfg.RedisURL != "" {
		rn, err := NewRedisNotifier(cfg.RedisURL, cfg.RedisChannel)
		if err != nil {
			return nil, err
		}
		backends = append(backends, rn)
	}
	switch len(backends) {
	case 0:
		return NoopNotifier{}, nil
	case 1:
		return backends[0], nil
	default:
		return backends, nil
	}
}

// Dispatcher queues events and delivers them from a single goroutine so a
// slow or failing destination never blocks the caller. When the queue is
// full the event is dropped.
type Dispatcher struct {
	backend Notifier
	timeout time.Duration
	queue   chan Event

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

var _ Notifier = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher. Call Start before use.
func NewDispatcher(backend Notifier, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultNotifyQueue
	}
	if timeout <= 0 {
		timeout = defaultNotifyTimeout
	}
	return &Dispatcher{backend: backend, timeout: timeout, queue: make(chan Event, queueSize)}
}

// Start launches the sender goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.send(ev)
	}
}

func (d *Dispatcher) send(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	ctx = logger.SetArticleID(ctx, ev.ArticleID)

	start := time.Now()
	err := d.backend.Notify(ctx, ev)
	entry := logger.With(logger.Fields{logger.FieldDurationMs: time.Since(start).Milliseconds()})
	if err != nil {
		entry.Warn(ctx, "Notification failed: type=%s, error=%v", ev.Type, err)
		return
	}
	entry.Debug(ctx, "Notification sent: type=%s", ev.Type)
}

// Notify enqueues ev and returns immediately. It never fails.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return nil
	}
	select {
	case d.queue <- ev:
	default:
		logger.CtxWarn(ctx, "Notification queue full, event dropped: type=%s, article_id=%s", ev.Type, ev.ArticleID)
	}
	return nil
}

// Stop closes the queue and waits for queued events to drain or ctx to
// expire.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close releases the backend's connections. Call it after Stop.
func (d *Dispatcher) Close() error {
	if c, ok := d.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
