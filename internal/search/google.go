package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
)

const (
	googleEndpoint = "https://www.google.com/search"
	googlePageSize = 10
	googleMaxPages = 5
)

type Google struct {
	client   *http.Client
	log      logrus.FieldLogger
	endpoint string
	lang     string
}

func NewGoogle(client *http.Client, log logrus.FieldLogger) *Google {
	return &Google{
		client:   client,
		log:      log.WithField("engine", EngineGoogle),
		endpoint: googleEndpoint,
		lang:     "en",
	}
}

// WithEndpoint points the scraper at a different results page, e.g. a local mirror.
func (g *Google) WithEndpoint(endpoint string) *Google {
	g.endpoint = endpoint
	return g
}

func (g *Google) Search(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	results := newCollector(n)

	for page := 0; page < googleMaxPages && !results.full(); page++ {
		params := url.Values{
			"q":     {query},
			"num":   {strconv.Itoa(n + 2)},
			"hl":    {g.lang},
			"start": {strconv.Itoa(page * googlePageSize)},
			"safe":  {"active"},
		}
		added, err := g.searchPage(ctx, params, results)
		if err != nil {
			return nil, err
		}
		g.log.WithFields(logrus.Fields{"page": page, "added": added}).Debug("parsed results page")
		if added == 0 {
			break
		}
	}

	return results.urls, nil
}

func (g *Google) searchPage(ctx context.Context, params url.Values, results *collector) (int, error) {
	resp, err := get(ctx, g.client, g.endpoint, params, &http.Cookie{Name: "CONSENT", Value: "PENDING+987"})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to parse search results: %w", err)
	}

	added := 0
	doc.Find("div.g, div.ezO2md").Each(func(_ int, block *goquery.Selection) {
		href, ok := block.Find("a[href]").First().Attr("href")
		if !ok {
			return
		}
		if results.add(unwrapGoogleLink(href)) {
			added++
		}
	})
	return added, nil
}

// unwrapGoogleLink resolves "/url?q=<target>&sa=..." redirect links.
func unwrapGoogleLink(href string) string {
	if !strings.HasPrefix(href, "/url?") {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return u.Query().Get("q")
}
