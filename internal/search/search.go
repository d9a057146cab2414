// Package search turns a query into a ranked list of result URLs by
// scraping a public search engine's HTML results page.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	EngineGoogle     = "google"
	EngineDuckDuckGo = "duckduckgo"

	// DefaultTimeout bounds one results page request when New builds the client.
	DefaultTimeout = 5 * time.Second

	// Text browsers get the plain HTML results page without scripts.
	userAgent = "Lynx/2.9.0dev.12 libwww-FM/2.14 SSL-MM/1.4.1 GNUTLS/3.7.8"
)

var (
	ErrUnknownEngine = errors.New("unknown search engine")
	ErrSearchStatus  = errors.New("unexpected search response status")
)

type Searcher interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

func New(engine string, client *http.Client, log logrus.FieldLogger) (Searcher, error) {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	switch strings.ToLower(engine) {
	case EngineGoogle, "":
		return NewGoogle(client, log), nil
	case EngineDuckDuckGo:
		return NewDuckDuckGo(client, log), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
	}
}

func get(ctx context.Context, client *http.Client, endpoint string, params url.Values, cookies ...*http.Cookie) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build search request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrSearchStatus, resp.Status)
	}
	return resp, nil
}

// collector keeps result URLs distinct and in rank order.
type collector struct {
	seen  map[string]struct{}
	urls  []string
	limit int
}

func newCollector(limit int) *collector {
	return &collector{seen: make(map[string]struct{}), limit: limit}
}

func (c *collector) add(raw string) bool {
	if c.full() {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	key := u.String()
	if _, ok := c.seen[key]; ok {
		return false
	}
	c.seen[key] = struct{}{}
	c.urls = append(c.urls, key)
	return true
}

func (c *collector) full() bool {
	return len(c.urls) >= c.limit
}
