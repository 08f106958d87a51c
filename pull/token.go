package pull

import (
	"context"
	"sync"
	"time"
)

// TokenFetcher obtains a new access token and its lifetime.
type TokenFetcher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenCache holds one access token until shortly before it expires.
// It is safe for concurrent use; only one fetch runs at a time.
type TokenCache struct {
	Fetch TokenFetcher
	Skew  time.Duration // refresh this long before expiry
	Now   func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{Fetch: fetch, Skew: time.Minute, Now: time.Now}
}

// Get returns the cached token or fetches a new one.
func (c *TokenCache) Get(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.token != "" && now.Before(c.expiry.Add(-c.Skew)) {
		return c.token, nil
	}
	token, expiresIn, err := c.Fetch(ctx)
	if err != nil {
		return "", err
	}
	c.token = token
	c.expiry = now.Add(expiresIn)
	return token, nil
}

// Invalidate drops the cached token, e.g. after a 401.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiry = time.Time{}
	c.mu.Unlock()
}

func (c *TokenCache) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}
