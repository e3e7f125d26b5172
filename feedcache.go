package sitecms

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/sitecms/store"
)

// feedSize is the number of most recent posts kept for RSS and the sitemap.
const feedSize = 50

// postLister is the part of the store the feed cache reads from.
type postLister interface {
	ListPosts(ctx context.Context, f store.PostFilter) ([]store.BlogPost, error)
}

// FeedCache is an in-memory cache of the latest blog posts with TTL, shared
// by the RSS feed and the sitemap. Blog writes invalidate it.
type FeedCache struct {
	mu      sync.RWMutex
	posts   []store.BlogPost
	fetched time.Time
	ttl     time.Duration
	store   postLister
}

// NewFeedCache creates a FeedCache backed by s.
func NewFeedCache(s postLister, ttl time.Duration) *FeedCache {
	return &FeedCache{store: s, ttl: ttl}
}

func (c *FeedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// Posts returns the latest posts, newest first, reloading them when the
// cache is empty or expired. It tries a read lock first and only takes the
// write lock when a reload is needed.
func (c *FeedCache) Posts(ctx context.Context) ([]store.BlogPost, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.store.ListPosts(ctx, store.PostFilter{Limit: feedSize})
	if err != nil {
		return nil, err
	}
	c.posts = posts
	c.fetched = time.Now()
	return posts, nil
}
