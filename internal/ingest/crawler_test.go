package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koopa0/kura/internal/config"
	"github.com/koopa0/kura/internal/testutil"
)

const articleBody = `<p>Home equity rates are variable and start at 7.99 percent annually.
The card carries no annual fee and no origination fee for qualified borrowers.
Cashback rewards accrue on every purchase and post monthly to the account.</p>`

func crawlSite(t *testing.T, includePaths []string, pageLimit int) (*httptest.Server, *Crawler) {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Home</title></head><body>
			<a href="/support/fees">Fees</a>
			<a href="/support/rates">Rates</a>
			<a href="/admin/secret">Admin</a>
			<a href="/support/missing">Missing</a>
			`+articleBody+`</body></html>`)
	})
	mux.HandleFunc("/support/fees", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Fees</title>
			<meta name="description" content="Fee schedule details"></head>
			<body>`+articleBody+`</body></html>`)
	})
	mux.HandleFunc("/support/rates", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Rates</title></head><body>`+articleBody+`</body></html>`)
	})
	mux.HandleFunc("/admin/secret", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body>`+articleBody+`</body></html>`)
	})
	mux.HandleFunc("/support/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	crawler, err := NewCrawler(config.CrawlConfig{
		RootURL:      srv.URL + "/",
		IncludePaths: includePaths,
		PageLimit:    pageLimit,
	}, testutil.DiscardLogger(), WithPrivateHostsAllowed())
	require.NoError(t, err)
	return srv, crawler
}

func TestCrawlerFollowsIncludePaths(t *testing.T) {
	srv, crawler := crawlSite(t, []string{"/support"}, 20)

	pages, stats, err := crawler.Crawl(context.Background())
	require.NoError(t, err)

	urls := make(map[string]Page, len(pages))
	for _, p := range pages {
		urls[p.URL] = p
	}

	assert.Contains(t, urls, srv.URL+"/")
	assert.Contains(t, urls, srv.URL+"/support/fees")
	assert.Contains(t, urls, srv.URL+"/support/rates")
	assert.NotContains(t, urls, srv.URL+"/admin/secret", "path outside include list")

	assert.Equal(t, 1, stats.BadStatus, "404 page skipped")
	assert.Equal(t, len(pages), stats.Accepted)

	fees := urls[srv.URL+"/support/fees"]
	assert.Equal(t, "Fees", fees.Title)
	assert.Equal(t, "Fee schedule details", fees.Description)
	assert.Contains(t, fees.Text, "no annual fee")
	assert.Equal(t, 200, fees.StatusCode)
}

func TestCrawlerPageLimit(t *testing.T) {
	_, crawler := crawlSite(t, nil, 2)

	pages, _, err := crawler.Crawl(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, len(pages), 2)
	assert.NotEmpty(t, pages)
}

func TestCrawlerCancelledContext(t *testing.T) {
	_, crawler := crawlSite(t, nil, 20)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := crawler.Crawl(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewCrawlerValidation(t *testing.T) {
	_, err := NewCrawler(config.CrawlConfig{RootURL: "ftp://example.com", PageLimit: 5}, nil)
	require.Error(t, err)

	_, err = NewCrawler(config.CrawlConfig{RootURL: "https://example.com", PageLimit: 0}, nil)
	require.Error(t, err)
}

func TestNewCrawlerRejectsPrivateRoot(t *testing.T) {
	_, err := NewCrawler(config.CrawlConfig{RootURL: "http://127.0.0.1:8080/", PageLimit: 5}, nil)
	require.ErrorContains(t, err, "unsafe root URL")

	_, err = NewCrawler(config.CrawlConfig{RootURL: "http://127.0.0.1:8080/", PageLimit: 5}, nil,
		WithPrivateHostsAllowed())
	require.NoError(t, err)
}

func TestPathAllowed(t *testing.T) {
	root, err := url.Parse("https://example.com/")
	require.NoError(t, err)
	c := &Crawler{root: root, includePaths: []string{"/support", "/education"}}

	assert.True(t, c.pathAllowed("/"))
	assert.True(t, c.pathAllowed("/support/fees"))
	assert.True(t, c.pathAllowed("/education"))
	assert.False(t, c.pathAllowed("/admin"))

	open := &Crawler{root: root}
	assert.True(t, open.pathAllowed("/anything"))
}
