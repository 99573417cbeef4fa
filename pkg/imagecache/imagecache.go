package imagecache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"resty.dev/v3"
)

// Prefetcher warms image URLs so map clients hit a hot CDN edge when a new
// marker's photo first renders. Prefetching is fire-and-forget: failures are
// logged at debug level and never surfaced to callers.
type Prefetcher struct {
	client *resty.Client
	mu     sync.Mutex
	seen   map[string]struct{}
}

func NewPrefetcher(timeout time.Duration) *Prefetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prefetcher{
		client: resty.New().SetTimeout(timeout),
		seen:   make(map[string]struct{}),
	}
}

// Prefetch warms the URL in the background. A URL already warmed this
// session is skipped.
func (p *Prefetcher) Prefetch(url string) {
	if url == "" {
		return
	}
	p.mu.Lock()
	if _, ok := p.seen[url]; ok {
		p.mu.Unlock()
		return
	}
	p.seen[url] = struct{}{}
	p.mu.Unlock()

	go func() {
		resp, err := p.client.R().SetContext(context.Background()).Get(url)
		if err != nil {
			logrus.Debugf("image prefetch %s: %v", url, err)
			return
		}
		if resp.IsError() {
			logrus.Debugf("image prefetch %s: status %d", url, resp.StatusCode())
		}
	}()
}

// Warmed reports whether the URL has been prefetched this session.
func (p *Prefetcher) Warmed(url string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[url]
	return ok
}

// Close releases the underlying HTTP client.
func (p *Prefetcher) Close() error {
	return p.client.Close()
}
