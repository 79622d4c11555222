// Package crawler fetches the documentation pages that feed the chunker and
// concatenates them into a single document file.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	// DefaultConcurrency is the number of pages fetched at once.
	DefaultConcurrency = 4

	// DefaultRequestsPerSecond bounds the request rate against the docs host.
	DefaultRequestsPerSecond = 4.0

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "docqa-crawler/1.0"

	// maxPageBytes caps a single page body.
	maxPageBytes = 10 << 20
)

// DefaultURLs are the Garden developer documentation pages, served as raw
// markdown.
var DefaultURLs = []string{
	"https://docs.garden.finance/developers/overview.md",
	"https://docs.garden.finance/developers/supported-chains.md",
	"https://docs.garden.finance/developers/supported-routes.md",
	"https://docs.garden.finance/developers/affiliate-fees.md",
	"https://docs.garden.finance/developers/api/overview.md",
	"https://docs.garden.finance/developers/api/1click.md",
	"https://docs.garden.finance/developers/sdk/overview.md",
	"https://docs.garden.finance/developers/sdk/react/quickstart.md",
	"https://docs.garden.finance/developers/sdk/react/setup.md",
	"https://docs.garden.finance/developers/sdk/nodejs/quickstart.md",
	"https://docs.garden.finance/developers/sdk/nodejs/setup.md",
	"https://docs.garden.finance/developers/core/order-lifecycle.md",
	"https://docs.garden.finance/developers/core/sessions.md",
	"https://docs.garden.finance/developers/guides/cookbook.md",
	"https://docs.garden.finance/developers/guides/sdk.md",
	"https://docs.garden.finance/developers/localnet.md",
}

// Document is the content of one fetched page.
type Document struct {
	// URL is the page the content was fetched from.
	URL string

	// Content is the page text, converted to markdown when the page was HTML.
	Content string
}

// Config configures a Crawler.
type Config struct {
	URLs              []string
	Concurrency       int
	RequestsPerSecond float64
	Timeout           time.Duration
	UserAgent         string

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Crawler fetches a fixed list of pages.
type Crawler struct {
	urls        []string
	concurrency int
	userAgent   string
	client      *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates a Crawler, filling unset fields with the defaults.
func New(c Config, logger *slog.Logger) *Crawler {
	if len(c.URLs) == 0 {
		c.URLs = DefaultURLs
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: c.Timeout}
	}

	return &Crawler{
		urls:        c.URLs,
		concurrency: c.Concurrency,
		userAgent:   c.UserAgent,
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(c.RequestsPerSecond), 1),
		logger:      logger,
	}
}

// Crawl fetches every configured URL and returns the pages that were fetched,
// in configuration order. Pages that fail are logged and skipped; the
// returned error is non-nil only when ctx ends the crawl.
func (c *Crawler) Crawl(ctx context.Context) ([]Document, error) {
	pages := make([]*Document, len(c.urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, u := range c.urls {
		g.Go(func() error {
			if err := c.limiter.Wait(gctx); err != nil {
				return err
			}

			content, err := c.fetch(gctx, u)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.logger.Warn("failed to fetch page", "url", u, "error", err)
				return nil
			}

			c.logger.Info("fetched page", "url", u, "characters", len(content))
			pages[i] = &Document{URL: u, Content: content}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("crawling: %w", err)
	}

	docs := make([]Document, 0, len(pages))
	for _, p := range pages {
		if p != nil {
			docs = append(docs, *p)
		}
	}
	return docs, nil
}

func (c *Crawler) fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "html") {
		return string(body), nil
	}
	return HTMLToMarkdown(string(body), pageURL)
}

// HTMLToMarkdown converts the main content of an HTML page to markdown,
// resolving relative links against pageURL.
func HTMLToMarkdown(html, pageURL string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("script, style, nav, header, footer").Remove()

	sel := doc.Find("main").First()
	if sel.Length() == 0 {
		sel = doc.Find("article").First()
	}
	if sel.Length() == 0 {
		sel = doc.Find("body")
	}

	inner, err := sel.Html()
	if err != nil {
		return "", fmt.Errorf("rendering html: %w", err)
	}

	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}

	converted, err := md.NewConverter(domain, true, nil).ConvertString(inner)
	if err != nil {
		return "", fmt.Errorf("converting html to markdown: %w", err)
	}
	if strings.TrimSpace(converted) == "" {
		return "", errors.New("page has no content")
	}
	return converted, nil
}
