// Package feeds aggregates external security news into the repository.
// Each configured feed is a JSON endpoint yielding an array of headline
// objects; items are keyed by URL, so refetching a feed updates existing
// records instead of duplicating them.
package feeds

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/storage"
)

const (
	defaultInterval = 15 * time.Minute
	maxFeedBody     = 4 << 20
)

// Feed names one upstream source.
type Feed struct {
	Name string
	URL  string
}

// feedItem is the wire shape each feed returns.
type feedItem struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Summary   string    `json:"summary,omitempty"`
	Published time.Time `json:"published"`
}

// Fetcher polls feeds and upserts NewsItem records. A shared rate limiter
// spaces upstream requests regardless of how many feeds are configured.
type Fetcher struct {
	repo     storage.Repository
	feeds    []Feed
	http     *http.Client
	limiter  *rate.Limiter
	interval time.Duration
	now      func() time.Time
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithInterval sets the polling interval. Default is 15 minutes.
func WithInterval(d time.Duration) Option {
	return func(f *Fetcher) { f.interval = d }
}

// WithHTTPClient replaces the HTTP client used to fetch feeds.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) { f.http = hc }
}

// WithRateLimit sets the maximum upstream requests per second.
func WithRateLimit(rps float64) Option {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithClock overrides the fetch timestamp clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Fetcher) { f.now = now }
}

// NewFetcher creates a Fetcher over the given feeds.
func NewFetcher(repo storage.Repository, feeds []Feed, opts ...Option) *Fetcher {
	f := &Fetcher{
		repo:     repo,
		feeds:    feeds,
		http:     &http.Client{Timeout: 20 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(1), 2),
		interval: defaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run polls all feeds once immediately, then on every tick until ctx is
// canceled. Per-feed failures are logged and skipped; Run only returns on
// cancellation.
func (f *Fetcher) Run(ctx context.Context) {
	f.FetchAll(ctx)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.FetchAll(ctx)
		}
	}
}

// FetchAll polls every configured feed once.
func (f *Fetcher) FetchAll(ctx context.Context) {
	for _, feed := range f.feeds {
		if err := f.fetch(ctx, feed); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("feed fetch failed", "feed", feed.Name, "error", err)
		}
	}
}

func (f *Fetcher) fetch(ctx context.Context, feed Feed) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", feed.URL, err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", feed.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: status %d", feed.URL, resp.StatusCode)
	}

	var items []feedItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBody)).Decode(&items); err != nil {
		return fmt.Errorf("decoding %s: %w", feed.URL, err)
	}

	stored := 0
	for _, item := range items {
		if item.Title == "" || item.URL == "" {
			continue
		}
		news := engagement.NewsItem{
			ID:          newsID(item.URL),
			Title:       item.Title,
			URL:         item.URL,
			Source:      feed.Name,
			PublishedAt: item.Published,
			FetchedAt:   f.now(),
		}
		data, err := json.Marshal(news)
		if err != nil {
			continue
		}
		if err := f.repo.Put(engagement.KindNews, news.ID, data); err != nil {
			slog.Warn("failed to store news item", "url", item.URL, "error", err)
			continue
		}
		stored++
	}
	slog.Debug("feed fetched", "feed", feed.Name, "items", len(items), "stored", stored)
	return nil
}

// newsID derives a stable record ID from the item URL, which is what makes
// refetches upsert instead of append.
func newsID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:16])
}
