package providers

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// PayloadCache stores raw upstream payloads so repeated pipeline runs on the
// same slate date do not re-hit the sources.
type PayloadCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// FetcherOptions configures the shared HTTP fetcher.
type FetcherOptions struct {
	Timeout          time.Duration
	RateLimit        float64 // requests per second against upstream sources
	Burst            int
	BreakerThreshold int
	CacheTTL         time.Duration
}

// Fetcher performs rate-limited, circuit-breaker protected GETs with a
// per-day payload cache in front. All source clients share one instance so
// the rate limit applies across sources hosted on the same upstream.
type Fetcher struct {
	httpClient *http.Client
	cache      PayloadCache
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cacheTTL   time.Duration
	logger     *logrus.Logger
}

// NewFetcher creates a fetcher. cache may be nil, in which case every call
// goes to the network.
func NewFetcher(cache PayloadCache, opts FetcherOptions, logger *logrus.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 1.0
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = 3
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 6 * time.Hour
	}

	settings := gobreaker.Settings{
		Name:        "stats-sources",
		MaxRequests: uint32(opts.BreakerThreshold),
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: opts.Timeout},
		cache:      cache,
		limiter:    rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		cacheTTL:   opts.CacheTTL,
		logger:     logger,
	}
}

// PayloadKey builds the cache key for a source tag on a slate date.
func PayloadKey(tag string, day time.Time) string {
	return fmt.Sprintf("payload:%s:%s", tag, day.Format("20060102"))
}

// GetCached fetches url, serving the body from the payload cache when a copy
// for the same tag and day exists.
func (f *Fetcher) GetCached(ctx context.Context, tag, url string, day time.Time) ([]byte, error) {
	key := PayloadKey(tag, day)
	if f.cache != nil {
		var cached string
		if err := f.cache.Get(ctx, key, &cached); err == nil {
			f.logger.WithFields(logrus.Fields{"tag": tag, "key": key}).Debug("Payload cache hit")
			return []byte(cached), nil
		}
	}

	body, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		if err := f.cache.Set(ctx, key, string(body), f.cacheTTL); err != nil {
			f.logger.Warnf("Failed to cache payload for %s: %v", tag, err)
		}
	}
	return body, nil
}

// Get performs a rate-limited GET with retries behind the circuit breaker.
func (f *Fetcher) Get(ctx context.Context, url string) ([]byte, error) {
	result, err := f.breaker.Execute(func() (interface{}, error) {
		return f.getWithRetry(ctx, url)
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

func (f *Fetcher) getWithRetry(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			waitTime := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			f.logger.Warnf("Request failed (attempt %d), waiting %v: %v", attempt, waitTime, lastErr)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := f.doGet(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("request failed after retries: %w", lastErr)
}

// ConditionalResult carries the outcome of an ETag-aware GET.
type ConditionalResult struct {
	Body        []byte
	ETag        string
	NotModified bool
}

// GetConditional performs a GET sending If-None-Match when etag is non-empty.
// A 304 response returns NotModified with an empty body; the caller reuses
// its previous payload.
func (f *Fetcher) GetConditional(ctx context.Context, url, etag string) (*ConditionalResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return &ConditionalResult{ETag: etag, NotModified: true}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &ConditionalResult{Body: body, ETag: resp.Header.Get("ETag")}, nil
}

func (f *Fetcher) doGet(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}
