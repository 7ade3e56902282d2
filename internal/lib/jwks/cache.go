// Package jwks keeps the identity provider's signing keys in a process-wide
// cache. Keys expire after a bounded refresh interval, concurrent refreshes
// collapse into one fetch, forced refreshes for unknown key ids are rate
// limited, and every fetch is bounded by a timeout.
package jwks

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/strata-gate/internal/lib/sl"
)

const (
	DefaultRefreshInterval = 10 * time.Minute
	DefaultFetchTimeout    = 5 * time.Second
	DefaultMinRefreshGap   = 30 * time.Second
	maxKeys                = 64
	maxBodyBytes           = 1 << 20
	refreshKey             = "jwks"
)

var (
	// ErrKeyNotFound means the key set does not contain the requested kid.
	ErrKeyNotFound = errors.New("signing key not found")
	// ErrFetch means the key set could not be fetched in time.
	ErrFetch = errors.New("signing keys unavailable")
)

// Cache is safe for concurrent use.
type Cache struct {
	url             string
	httpClient      *http.Client
	refreshInterval time.Duration
	fetchTimeout    time.Duration
	log             *slog.Logger
	onRefresh       func(err error)
	now             func() time.Time

	keys    *expirable.LRU[string, *rsa.PublicKey]
	group   singleflight.Group
	limiter *rate.Limiter

	mu          sync.RWMutex
	lastRefresh time.Time
	generation  uint64
}

// Option configures a Cache.
type Option func(*Cache)

// WithHTTPClient replaces the default client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.httpClient = client }
}

// WithRefreshInterval sets how long fetched keys are trusted.
func WithRefreshInterval(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.refreshInterval = d
		}
	}
}

// WithFetchTimeout bounds every fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithMinRefreshGap limits how often an unknown kid may force a refetch.
func WithMinRefreshGap(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

// WithRefreshHook is called after every fetch attempt.
func WithRefreshHook(fn func(err error)) Option {
	return func(c *Cache) { c.onRefresh = fn }
}

// New creates a cache for the key set at url. Nothing is fetched until the
// first lookup or Prefetch.
func New(url string, opts ...Option) *Cache {
	c := &Cache{
		url:             url,
		refreshInterval: DefaultRefreshInterval,
		fetchTimeout:    DefaultFetchTimeout,
		limiter:         rate.NewLimiter(rate.Every(DefaultMinRefreshGap), 1),
		log:             slog.New(slog.DiscardHandler),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.fetchTimeout}
	}
	c.keys = expirable.NewLRU[string, *rsa.PublicKey](maxKeys, nil, c.refreshInterval)
	return c
}

// Key returns the public key for kid, fetching the key set when the cached
// copy is stale or does not know kid.
func (c *Cache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	const op = "jwks.Key"
	if kid == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrKeyNotFound)
	}
	seen := c.currentGeneration()
	if key, ok := c.keys.Get(kid); ok {
		return key, nil
	}
	// A fresh key set that lacks kid only gets refetched within the rate limit,
	// so made-up kids cannot turn into a fetch per request.
	if c.fresh() && !c.limiter.Allow() {
		return nil, fmt.Errorf("%s: %w", op, ErrKeyNotFound)
	}
	if err := c.refresh(ctx, seen); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if key, ok := c.keys.Get(kid); ok {
		return key, nil
	}
	return nil, fmt.Errorf("%s: %w", op, ErrKeyNotFound)
}

// Prefetch loads the key set once, typically at startup.
func (c *Cache) Prefetch(ctx context.Context) error {
	return c.refresh(ctx, c.currentGeneration())
}

func (c *Cache) currentGeneration() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *Cache) fresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.lastRefresh.IsZero() && c.now().Sub(c.lastRefresh) < c.refreshInterval
}

// refresh fetches the key set unless another caller already refreshed it
// after seen.
func (c *Cache) refresh(ctx context.Context, seen uint64) error {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		if c.currentGeneration() != seen {
			return nil, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		keys, err := c.fetch(fetchCtx)
		if c.onRefresh != nil {
			c.onRefresh(err)
		}
		if err != nil {
			c.log.Warn("jwks refresh failed", slog.String("url", c.url), sl.Err(err))
			return nil, err
		}

		c.keys.Purge()
		for kid, key := range keys {
			c.keys.Add(kid, key)
		}
		c.mu.Lock()
		c.lastRefresh = c.now()
		c.generation++
		c.mu.Unlock()
		c.log.Debug("jwks refreshed", slog.Int("keys", len(keys)))
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("%w: %v", ErrFetch, res.Err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrFetch, ctx.Err())
	}
}

type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (c *Cache) fetch(ctx context.Context) (map[string]*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks fetch failed: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("jwks response exceeds %d bytes", maxBodyBytes)
	}
	var payload jwksResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	keys := make(map[string]*rsa.PublicKey, len(payload.Keys))
	for _, key := range payload.Keys {
		if key.Kty != "RSA" || key.Kid == "" {
			continue
		}
		if key.Use != "" && key.Use != "sig" {
			continue
		}
		pub, err := jwkToRSAPublicKey(key)
		if err != nil {
			continue
		}
		keys[key.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("jwks contains no usable keys")
	}
	return keys, nil
}

func jwkToRSAPublicKey(key jwkKey) (*rsa.PublicKey, error) {
	if key.N == "" || key.E == "" {
		return nil, errors.New("missing rsa params")
	}
	nBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes).Int64()
	if e <= 0 || e > int64(^uint32(0)) {
		return nil, errors.New("invalid rsa exponent")
	}
	return &rsa.PublicKey{N: n, E: int(e)}, nil
}
