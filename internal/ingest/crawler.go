// Package ingest walks a site, cleans what it finds, and feeds the results
// through chunking, embedding, and storage.
package ingest

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/gocolly/colly/v2"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/log"
	"github.com/koopa0/kura/internal/security"
)

// Page is one crawled page whose main content was successfully extracted.
type Page struct {
	Title       string
	URL         string
	Text        string
	Description string
	StatusCode  int
}

// CrawlStats counts what the crawler saw and why pages were skipped.
type CrawlStats struct {
	Visited     int
	Accepted    int
	NoContent   int
	BadStatus   int
	OffDomain   int
	FetchErrors int
}

// Crawler fetches pages from a single site starting at a root URL,
// restricted to the configured path prefixes and capped at a page limit.
type Crawler struct {
	root         *url.URL
	includePaths []string
	pageLimit    int
	delay        time.Duration
	allowPrivate bool
	validator    *security.URL
	logger       log.Logger
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithPrivateHostsAllowed disables the SSRF guard so the crawler may
// fetch loopback and private-network targets. Needed for crawling
// internal documentation sites.
func WithPrivateHostsAllowed() CrawlerOption {
	return func(c *Crawler) { c.allowPrivate = true }
}

// NewCrawler builds a crawler from the crawl configuration.
func NewCrawler(cfg config.CrawlConfig, logger log.Logger, opts ...CrawlerOption) (*Crawler, error) {
	root, err := url.Parse(cfg.RootURL)
	if err != nil {
		return nil, fmt.Errorf("parsing root URL: %w", err)
	}
	if root.Scheme != "http" && root.Scheme != "https" {
		return nil, fmt.Errorf("root URL must be http or https, got %q", cfg.RootURL)
	}
	if cfg.PageLimit <= 0 {
		return nil, fmt.Errorf("page limit must be positive, got %d", cfg.PageLimit)
	}
	if logger == nil {
		logger = log.NewNop()
	}

	c := &Crawler{
		root:         root,
		includePaths: cfg.IncludePaths,
		pageLimit:    cfg.PageLimit,
		delay:        time.Duration(cfg.DelayMS) * time.Millisecond,
		validator:    security.NewURL(),
		logger:       logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.allowPrivate {
		if err := c.validator.Validate(cfg.RootURL); err != nil {
			return nil, fmt.Errorf("unsafe root URL: %w", err)
		}
	}
	return c, nil
}

// Crawl walks the site breadth-first from the root, following only
// same-host links under the include paths, and returns the pages whose
// main content could be extracted. Pages that fail extraction are skipped
// and counted, never fatal; the crawl stops at the page limit or when ctx
// is cancelled.
func (c *Crawler) Crawl(ctx context.Context) ([]Page, *CrawlStats, error) {
	stats := &CrawlStats{}
	var pages []Page

	collector := colly.NewCollector(
		colly.AllowedDomains(c.root.Host),
		colly.UserAgent("kura/1.0"),
	)
	if !c.allowPrivate {
		// Resolved-IP checks guard against DNS rebinding mid-crawl.
		collector.WithTransport(c.validator.SafeTransport())
	}
	if c.delay > 0 {
		if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: c.delay}); err != nil {
			return nil, nil, fmt.Errorf("configuring crawl rate: %w", err)
		}
	}

	collector.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil || len(pages) >= c.pageLimit {
			r.Abort()
			return
		}
		if !c.pathAllowed(r.URL.Path) {
			stats.OffDomain++
			r.Abort()
		}
	})

	collector.OnResponse(func(r *colly.Response) {
		stats.Visited++
		pageURL := r.Request.URL

		if r.StatusCode != 200 {
			stats.BadStatus++
			c.logger.Debug("skipping page", "url", pageURL.String(), "reason", "bad-status", "status", r.StatusCode)
			return
		}

		article, err := readability.FromReader(bytes.NewReader(r.Body), pageURL)
		if err != nil || strings.TrimSpace(article.TextContent) == "" {
			stats.NoContent++
			c.logger.Debug("skipping page", "url", pageURL.String(), "reason", "no-content", "error", err)
			return
		}

		title := strings.TrimSpace(article.Title)
		if title == "" {
			title = pageURL.String()
		}

		pages = append(pages, Page{
			Title:       title,
			URL:         pageURL.String(),
			Text:        article.TextContent,
			Description: extractDescription(r.Body),
			StatusCode:  r.StatusCode,
		})
	})

	collector.OnHTML("a[href]", func(e *colly.HTMLElement) {
		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" {
			return
		}
		// Visit errors here mean duplicate, off-domain, or aborted links.
		_ = e.Request.Visit(link)
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			stats.Visited++
			stats.BadStatus++
			c.logger.Debug("skipping page", "url", r.Request.URL.String(), "reason", "bad-status", "status", r.StatusCode)
			return
		}
		stats.FetchErrors++
		c.logger.Warn("page fetch failed", "url", r.Request.URL.String(), "error", err)
	})

	if err := collector.Visit(c.root.String()); err != nil {
		return nil, stats, fmt.Errorf("starting crawl at %s: %w", c.root, err)
	}
	collector.Wait()

	if err := ctx.Err(); err != nil {
		return pages, stats, err
	}

	stats.Accepted = len(pages)
	c.logger.Info("crawl finished",
		"accepted", stats.Accepted,
		"visited", stats.Visited,
		"no_content", stats.NoContent,
		"bad_status", stats.BadStatus,
		"off_domain", stats.OffDomain)
	return pages, stats, nil
}

// pathAllowed reports whether the path falls under the crawl root or one
// of the include prefixes. An empty include list admits the whole host.
func (c *Crawler) pathAllowed(path string) bool {
	if path == c.root.Path || path == "/" || path == "" {
		return true
	}
	if len(c.includePaths) == 0 {
		return true
	}
	for _, prefix := range c.includePaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractDescription pulls the meta description from the raw HTML, empty
// when absent.
func extractDescription(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	desc, _ := doc.Find(`meta[name="description"]`).Attr("content")
	return strings.TrimSpace(desc)
}
