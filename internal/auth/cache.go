package auth

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/ascgate/internal/metrics"
)

// DefaultRefreshMargin is how long before expiry a cached token is dropped.
const DefaultRefreshMargin = time.Minute

// CachingIssuer reuses one token per credentials until it is within margin
// of its expiry. Entries live in memory only. A failed issue removes the
// entry so the next call signs again.
type CachingIssuer struct {
	source TokenSource
	margin time.Duration
	now    func() time.Time

	mu     sync.Mutex
	tokens map[Credentials]AccessToken
}

// NewCachingIssuer wraps source. margin is clamped to [0, TokenLifetime/2].
func NewCachingIssuer(source TokenSource, margin time.Duration) *CachingIssuer {
	if margin < 0 {
		margin = 0
	}
	if margin > TokenLifetime/2 {
		margin = TokenLifetime / 2
	}
	return &CachingIssuer{
		source: source,
		margin: margin,
		now:    time.Now,
		tokens: make(map[Credentials]AccessToken),
	}
}

func (c *CachingIssuer) Issue(ctx context.Context, creds Credentials) (AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tok, ok := c.tokens[creds]; ok && tok.ValidAt(c.now(), c.margin) {
		metrics.TokenCacheHits.Inc()
		return tok, nil
	}

	tok, err := c.source.Issue(ctx, creds)
	if err != nil {
		delete(c.tokens, creds)
		return AccessToken{}, err
	}

	c.tokens[creds] = tok
	return tok, nil
}

// Invalidate drops the cached token for creds, e.g. after the remote side
// rejected it with 401.
func (c *CachingIssuer) Invalidate(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, creds)
}
