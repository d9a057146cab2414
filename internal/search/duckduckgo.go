package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

type DuckDuckGo struct {
	client   *http.Client
	log      logrus.FieldLogger
	endpoint string
}

func NewDuckDuckGo(client *http.Client, log logrus.FieldLogger) *DuckDuckGo {
	return &DuckDuckGo{
		client:   client,
		log:      log.WithField("engine", EngineDuckDuckGo),
		endpoint: duckDuckGoEndpoint,
	}
}

func (d *DuckDuckGo) WithEndpoint(endpoint string) *DuckDuckGo {
	d.endpoint = endpoint
	return d
}

// Search only reads the first results page; the HTML endpoint pages via POST forms.
func (d *DuckDuckGo) Search(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	resp, err := get(ctx, d.client, d.endpoint, url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	results := newCollector(n)
	doc.Find("a.result__a").Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok {
			results.add(unwrapDuckDuckGoLink(href))
		}
	})
	d.log.WithField("results", len(results.urls)).Debug("parsed results page")
	return results.urls, nil
}

// unwrapDuckDuckGoLink resolves "//duckduckgo.com/l/?uddg=<target>" redirect links.
func unwrapDuckDuckGoLink(href string) string {
	if !strings.Contains(href, "uddg=") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("uddg")
}
