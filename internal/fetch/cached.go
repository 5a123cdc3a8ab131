package fetch

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultCacheSize is the number of responses kept by a CachedFetcher.
const DefaultCacheSize = 128

// DefaultCacheTTL is how long a successful response stays cached.
const DefaultCacheTTL = 10 * time.Minute

// Fetcher downloads a URL. It is satisfied by CachedFetcher and by Func.
type Fetcher interface {
	Fetch(ctx context.Context, urlStr string, headers map[string]string) (*Result, error)
}

// Func adapts URL with fixed options to the Fetcher interface.
type Func func(ctx context.Context, urlStr string, headers map[string]string) (*Result, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, urlStr string, headers map[string]string) (*Result, error) {
	return f(ctx, urlStr, headers)
}

// Plain returns a Fetcher that calls URL with opts plus the per-call headers.
func Plain(opts *Options) Fetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return Func(func(ctx context.Context, urlStr string, headers map[string]string) (*Result, error) {
		o := *opts
		if len(headers) > 0 {
			merged := make(map[string]string, len(opts.Headers)+len(headers))
			for k, v := range opts.Headers {
				merged[k] = v
			}
			for k, v := range headers {
				merged[k] = v
			}
			o.Headers = merged
		}
		return URL(ctx, urlStr, &o)
	})
}

// CachedFetcher keeps recent successful responses in an expiring LRU so an
// artifact URL referenced more than once is only downloaded once.
type CachedFetcher struct {
	next  Fetcher
	cache *expirable.LRU[string, *Result]
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	Size     int
	CacheTTL time.Duration
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		Size:     DefaultCacheSize,
		CacheTTL: DefaultCacheTTL,
	}
}

// NewCachedFetcher wraps next with a response cache.
func NewCachedFetcher(next Fetcher, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.Size <= 0 {
		config.Size = DefaultCacheSize
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	return &CachedFetcher{
		next:  next,
		cache: expirable.NewLRU[string, *Result](config.Size, nil, config.CacheTTL),
	}
}

// Fetch returns a cached response when one is fresh, otherwise downloads.
// Failures are never cached.
func (f *CachedFetcher) Fetch(ctx context.Context, urlStr string, headers map[string]string) (*Result, error) {
	if cached, ok := f.cache.Get(urlStr); ok {
		return cached, nil
	}

	result, err := f.next.Fetch(ctx, urlStr, headers)
	if err != nil {
		return result, err
	}

	f.cache.Add(urlStr, result)
	return result, nil
}

// Invalidate drops urlStr from the cache.
func (f *CachedFetcher) Invalidate(urlStr string) {
	f.cache.Remove(urlStr)
}

// Len returns the number of cached responses.
func (f *CachedFetcher) Len() int {
	return f.cache.Len()
}
