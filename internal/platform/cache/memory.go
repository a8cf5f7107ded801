package cache

import (
	"context"
	"sync"
	"time"

	"filedrop/internal/platform/models"
)

type cachedInbox struct {
	inbox    models.Inbox
	cachedAt time.Time
}

// Memory is the in-process fallback used when no redis address is configured.
type Memory struct {
	store sync.Map // map[slug]*cachedInbox
	ttl   time.Duration

	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{ttl: ttl}
}

func (c *Memory) Get(ctx context.Context, slug string) (*models.Inbox, bool) {
	val, ok := c.store.Load(slug)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedInbox)
	if time.Since(entry.cachedAt) > c.ttl {
		c.store.Delete(slug)
		return nil, false
	}

	inbox := entry.inbox
	return &inbox, true
}

func (c *Memory) Set(ctx context.Context, inbox *models.Inbox) {
	c.store.Store(inbox.Slug, &cachedInbox{inbox: *inbox, cachedAt: time.Now()})
}

func (c *Memory) Invalidate(ctx context.Context, slug string) {
	c.store.Delete(slug)
}

func (c *Memory) Subscribe(ctx context.Context, creatorID string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	c.mu.Lock()
	if c.listeners == nil {
		c.listeners = make(map[string]map[chan struct{}]struct{})
	}
	if c.listeners[creatorID] == nil {
		c.listeners[creatorID] = make(map[chan struct{}]struct{})
	}
	c.listeners[creatorID][ch] = struct{}{}
	c.mu.Unlock()

	go func() {
		<-ctx.Done()
		c.mu.Lock()
		delete(c.listeners[creatorID], ch)
		if len(c.listeners[creatorID]) == 0 {
			delete(c.listeners, creatorID)
		}
		close(ch)
		c.mu.Unlock()
	}()

	return ch, nil
}

func (c *Memory) Refresh(ctx context.Context, creatorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.listeners[creatorID] {
		select {
		case ch <- struct{}{}:
		default:
			// a signal is already pending
		}
	}
	return nil
}
