package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/quill/internal/config"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
}

func (r *recordingNotifier) Notify(ctx context.Context, ev Event) error {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func TestDispatcherDelivers(t *testing.T) {
	backend := &recordingNotifier{}
	d := NewDispatcher(backend, 4, time.Second)
	d.Start()

	require.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a1", nil)))
	require.NoError(t, d.Notify(context.Background(), NewEvent(EventCompleted, "a1", nil)))
	require.NoError(t, d.Stop(context.Background()))

	assert.Equal(t, []EventType{EventAccepted, EventCompleted}, backend.types())
	// after stop, events are discarded
	assert.NoError(t, d.Notify(context.Background(), NewEvent(EventFailed, "a1", nil)))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	backend := &recordingNotifier{block: make(chan struct{})}
	d := NewDispatcher(backend, 1, time.Second)
	d.Start()

	// first event is taken by the sender and blocks, second fills the queue
	require.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a1", nil)))
	require.Eventually(t, func() bool { return len(d.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a2", nil)))
	require.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a3", nil)))

	close(backend.block)
	require.NoError(t, d.Stop(context.Background()))
	assert.Len(t, backend.types(), 2)
}

func TestDispatcherSwallowsBackendErrors(t *testing.T) {
	backend := &recordingNotifier{err: errors.New("unreachable")}
	d := NewDispatcher(backend, 4, 50*time.Millisecond)
	d.Start()
	assert.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a1", nil)))
	require.NoError(t, d.Stop(context.Background()))
	assert.Len(t, backend.types(), 1)
}

func TestWebhookNotifier(t *testing.T) {
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, time.Second)
	require.NoError(t, n.Notify(context.Background(), NewEvent(EventAccepted, "a1", map[string]interface{}{"model": "gpt-4o"})))
	assert.Equal(t, EventAccepted, got.Type)
	assert.Equal(t, "a1", got.ArticleID)
	assert.Equal(t, "gpt-4o", got.Metadata["model"])
}

func TestWebhookNotifierStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, time.Second).Notify(context.Background(), NewEvent(EventAccepted, "a1", nil))
	assert.ErrorContains(t, err, "502")
}

func TestRedisNotifierPublishes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	raw := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { raw.Close() })
	ctx := context.Background()

	// subscribe before publishing, pub/sub has no replay
	sub := raw.Subscribe(ctx, "quill:events")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	n, err := NewRedisNotifier("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	require.NoError(t, n.Notify(ctx, NewEvent(EventCompleted, "a1", map[string]interface{}{"score": 7.5})))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &ev))
	assert.Equal(t, EventCompleted, ev.Type)
	assert.Equal(t, "a1", ev.ArticleID)
	assert.Equal(t, 7.5, ev.Metadata["score"])
}

func TestMultiNotifierJoinsErrors(t *testing.T) {
	ok := &recordingNotifier{}
	bad := &recordingNotifier{err: errors.New("down")}
	err := MultiNotifier{bad, ok}.Notify(context.Background(), NewEvent(EventFailed, "a1", nil))
	assert.ErrorContains(t, err, "down")
	assert.Len(t, ok.types(), 1)
}

func TestDispatcherCloseReleasesBackends(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rn, err := NewRedisNotifier("redis://"+mr.Addr(), "")
	require.NoError(t, err)
	rec := &recordingNotifier{}
	d := NewDispatcher(MultiNotifier{rec, rn}, 4, time.Second)
	d.Start()

	require.NoError(t, d.Notify(context.Background(), NewEvent(EventAccepted, "a1", nil)))
	require.NoError(t, d.Stop(context.Background()))
	require.NoError(t, d.Close())

	assert.Equal(t, []EventType{EventAccepted}, rec.types())
	err = rn.Notify(context.Background(), NewEvent(EventFailed, "a1", nil))
	assert.ErrorIs(t, err, goredis.ErrClosed)

	// backends without connections close as a no-op
	assert.NoError(t, NewDispatcher(NoopNotifier{}, 1, time.Second).Close())
}

func TestNewNotifierFromConfig(t *testing.T) {
	n, err := NewNotifierFromConfig(&config.NotifyConfig{})
	require.NoError(t, err)
	assert.IsType(t, NoopNotifier{}, n)

	n, err = NewNotifierFromConfig(&config.NotifyConfig{WebhookURL: "http://example.invalid/hook"})
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)

	n, err = NewNotifierFromConfig(&config.NotifyConfig{WebhookURL: "http://example.invalid/hook", RedisURL: "redis://localhost:6379"})
	require.NoError(t, err)
	assert.Len(t, n.(MultiNotifier), 2)

	_, err = NewNotifierFromConfig(&config.NotifyConfig{RedisURL: "://bad"})
	assert.Error(t, err)
}
