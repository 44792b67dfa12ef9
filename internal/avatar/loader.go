package avatar

import (
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"sync"
	"time"

	"rewards_backend/internal/logger"
	"rewards_backend/internal/metrics"

	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// DefaultLoadTimeout bounds how long a single asset may delay a swap.
const DefaultLoadTimeout = 3 * time.Second

const preloadConcurrency = 8

// Cache is an append-only image cache keyed by asset path. Entries are never
// replaced or evicted.
type Cache struct {
	m sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(key string) (image.Image, bool) {
	v, ok := c.m.Load(key)
	if !ok {
		return nil, false
	}
	return v.(image.Image), true
}

func (c *Cache) put(key string, img image.Image) {
	c.m.LoadOrStore(key, img)
}

// Len is used by tests and metrics.
func (c *Cache) Len() int {
	n := 0
	c.m.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// sharedCache backs every loader built without WithCache.
var sharedCache = NewCache()

// Loader fetches and decodes assets. Load never returns an error: a failed or
// slow asset resolves to nil after at most the configured timeout.
type Loader struct {
	fetcher Fetcher
	cache   *Cache
	timeout time.Duration
	group   singleflight.Group
}

type LoaderOption func(*Loader)

func WithCache(c *Cache) LoaderOption {
	return func(l *Loader) { l.cache = c }
}

func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func NewLoader(fetcher Fetcher, opts ...LoaderOption) *Loader {
	l := &Loader{
		fetcher: fetcher,
		cache:   sharedCache,
		timeout: DefaultLoadTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loader) Load(ctx context.Context, path string) image.Image {
	if img, ok := l.cache.Get(path); ok {
		return img
	}

	ch := l.group.DoChan(path, func() (any, error) {
		// detached from the caller so a cancelled waiter doesn't fail the others
		fctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		return l.fetchDecode(fctx, path), nil
	})

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		img, _ := res.Val.(image.Image)
		return img
	case <-timer.C:
		logger.Warn("avatar asset timed out", "path", path)
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (l *Loader) fetchDecode(ctx context.Context, path string) image.Image {
	start := time.Now()
	defer func() { metrics.AssetLoadSeconds.Observe(time.Since(start).Seconds()) }()

	rc, err := l.fetcher.Fetch(ctx, path)
	if err != nil {
		metrics.AssetLoads.WithLabelValues("missing").Inc()
		logger.Debug("avatar asset unavailable", "path", path, "error", err)
		return nil
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		metrics.AssetLoads.WithLabelValues("decode_error").Inc()
		logger.Warn("avatar asset decode failed", "path", path, "error", err)
		return nil
	}
	metrics.AssetLoads.WithLabelValues("ok").Inc()
	l.cache.put(path, img)
	return img
}

// LoadAll resolves every path concurrently. Missing entries map to nil.
func (l *Loader) LoadAll(ctx context.Context, paths []string) map[string]image.Image {
	results := make([]image.Image, len(paths))

	var g errgroup.Group
	g.SetLimit(preloadConcurrency)
	for i, p := range paths {
		g.Go(func() error {
			results[i] = l.Load(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]image.Image, len(paths))
	for i, p := range paths {
		out[p] = results[i]
	}
	return out
}
