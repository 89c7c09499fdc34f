package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"golang.org/x/net/html"

	"webrag/internal/contextutil"
)

// ErrInvalidURL is returned when the start URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid URL")

const (
	requestTimeout = 10 * time.Second
	maxRetries     = 3
)

// userAgents are rotated across requests so a crawl does not present a single
// fingerprint to the target site.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
}

// Page is one crawled document: its content converted to Markdown-style text
// plus the source metadata the chunker carries through into every chunk.
type Page struct {
	URL     string
	Depth   int
	Title   string
	Content string
}

// Config holds crawl limits and behavior toggles.
type Config struct {
	MaxDepth   int
	PageLimit  int
	UseSitemap bool
	// Client overrides the HTTP client, mainly for tests. Nil selects a
	// client with the default request timeout.
	Client *http.Client
}

// Limits overrides the crawler's configured bounds for a single Crawl call.
// Nil fields keep the configured values.
type Limits struct {
	MaxDepth  *int
	PageLimit *int
}

// Crawler fetches pages breadth-first from a start URL, bounded by depth and
// page count. It is single-use per Crawl call; the visited set is call-local.
type Crawler struct {
	client     *http.Client
	maxDepth   int
	pageLimit  int
	useSitemap bool
	agentIdx   atomic.Int64
}

// New creates a crawler from the given limits.
func New(cfg Config) *Crawler {
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &Crawler{
		client:     client,
		maxDepth:   cfg.MaxDepth,
		pageLimit:  cfg.PageLimit,
		useSitemap: cfg.UseSitemap,
	}
}

// Crawl walks the site starting at startURL and returns the fetched pages in
// discovery order. When sitemap use is enabled it ingests the sitemap's URLs
// first and falls back to breadth-first link crawling if no sitemap exists.
// Fetch failures on individual pages are logged and skipped; only an invalid
// start URL or context cancellation aborts the crawl.
func (c *Crawler) Crawl(ctx context.Context, startURL string, limits Limits) ([]Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	start, err := parseHTTPURL(startURL)
	if err != nil {
		return nil, err
	}

	maxDepth := c.maxDepth
	if limits.MaxDepth != nil {
		maxDepth = *limits.MaxDepth
	}
	pageLimit := c.pageLimit
	if limits.PageLimit != nil {
		pageLimit = *limits.PageLimit
	}

	if c.useSitemap {
		locs, err := c.sitemapURLs(ctx, start, pageLimit)
		if err != nil {
			logger.WarnContext(ctx, "sitemap lookup failed, falling back to crawl", "url", startURL, "error", err)
		}
		if len(locs) > 0 {
			logger.InfoContext(ctx, "using sitemap", "url", startURL, "locations", len(locs))
			return c.fetchAll(ctx, locs, pageLimit)
		}
	}

	type queued struct {
		url   string
		depth int
	}
	queue := []queued{{url: start.String(), depth: 0}}
	visited := map[string]bool{}
	var pages []Page

	for len(queue) > 0 && len(pages) < pageLimit {
		if err := ctx.Err(); err != nil {
			return pages, err
		}

		item := queue[0]
		queue = queue[1:]
		if visited[item.url] || item.depth > maxDepth {
			continue
		}
		visited[item.url] = true

		logger.InfoContext(ctx, "fetching page", "url", item.url, "depth", item.depth)
		doc, finalURL, err := c.fetchHTML(ctx, item.url)
		if err != nil {
			logger.WarnContext(ctx, "skipping page", "url", item.url, "error", err)
			continue
		}
		if doc == nil {
			continue // non-HTML content
		}

		title, content := extractContent(doc)
		if content != "" {
			pages = append(pages, Page{
				URL:     finalURL,
				Depth:   item.depth,
				Title:   title,
				Content: content,
			})
		}

		if item.depth < maxDepth {
			for _, link := range extractLinks(finalURL, doc) {
				if !visited[link] {
					queue = append(queue, queued{url: link, depth: item.depth + 1})
				}
			}
		}
	}

	logger.InfoContext(ctx, "crawl finished", "pages", len(pages))
	return pages, nil
}

// fetchAll fetches a flat list of URLs (sitemap mode) up to the page limit.
func (c *Crawler) fetchAll(ctx context.Context, urls []string, pageLimit int) ([]Page, error) {
	logger := contextutil.LoggerFromContext(ctx)

	var pages []Page
	for _, u := range urls {
		if len(pages) >= pageLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			return pages, err
		}
		doc, finalURL, err := c.fetchHTML(ctx, u)
		if err != nil {
			logger.WarnContext(ctx, "skipping page", "url", u, "error", err)
			continue
		}
		if doc == nil {
			continue
		}
		title, content := extractContent(doc)
		if content != "" {
			pages = append(pages, Page{URL: finalURL, Title: title, Content: content})
		}
	}
	return pages, nil
}

// fetchHTML fetches a URL with retry and parses the body. A nil document with
// nil error means the response was not HTML and the page should be skipped.
func (c *Crawler) fetchHTML(ctx context.Context, pageURL string) (*html.Node, string, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return nil, "", nil
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("parse html: %w", err)
	}
	return doc, resp.Request.URL.String(), nil
}

// get performs the request with User-Agent rotation and exponential backoff
// on transient failures. Client errors (4xx) are not retried.
func (c *Crawler) get(ctx context.Context, pageURL string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("User-Agent", c.nextUserAgent())

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		default:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
		}
	}

	return nil, fmt.Errorf("fetch %s: %w", pageURL, lastErr)
}

func (c *Crawler) nextUserAgent() string {
	n := c.agentIdx.Add(1) - 1
	return userAgents[int(n)%len(userAgents)]
}

// backoff returns the delay before retry attempt n (0-indexed) with jitter.
func backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 500 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

func parseHTTPURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidURL, raw, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

func isHTMLContentType(ct string) bool {
	return ct == "" || containsFold(ct, "text/html") || containsFold(ct, "application/xhtml")
}
