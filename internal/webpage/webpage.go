// Package webpage downloads search result pages and extracts their
// paragraph text for use as answer context.
package webpage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxBodyBytes caps how much of a page is read and parsed.
const DefaultMaxBodyBytes = 5 << 20

var (
	ErrStatus    = errors.New("unexpected page response status")
	ErrEmptyPage = errors.New("page has no paragraph text")
)

type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

type Fetcher struct {
	client       *http.Client
	log          logrus.FieldLogger
	timeLimit    time.Duration
	totalTimeout time.Duration
	maxBodyBytes int64
	workers      int
}

type FetcherOption func(f *Fetcher)

// WithTimeLimit bounds connecting to a page and waiting for its response
// headers. Reading the body is bounded by the total timeout only.
func WithTimeLimit(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.timeLimit = d
	}
}

// WithTotalTimeout bounds fetching plus parsing of a single page.
func WithTotalTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.totalTimeout = d
	}
}

func WithWorkers(n int) FetcherOption {
	return func(f *Fetcher) {
		f.workers = n
	}
}

func WithMaxBodyBytes(n int64) FetcherOption {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithHTTPClient replaces the fetcher's client; the time limit is then up
// to the client's transport.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.client = client
	}
}

func NewFetcher(log logrus.FieldLogger, options ...FetcherOption) *Fetcher {
	f := &Fetcher{
		log:          log,
		timeLimit:    3 * time.Second,
		totalTimeout: 6 * time.Second,
		maxBodyBytes: DefaultMaxBodyBytes,
		workers:      runtime.NumCPU(),
	}
	for _, opt := range options {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Transport: newTransport(f.timeLimit)}
	}
	if f.workers < 1 {
		f.workers = 1
	}
	return f
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, f.totalTimeout)
	defer cancel()

	f.log.WithField("url", url).Info("fetching link")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Page{}, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, f.maxBodyBytes))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Page{}, fmt.Errorf("page not read within total timeout: %w", ctxErr)
	}
	if err != nil {
		return Page{}, fmt.Errorf("failed to parse page: %w", err)
	}

	return Page{URL: url, Text: ParagraphText(doc)}, nil
}

func newTransport(timeLimit time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeLimit,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeLimit
	transport.ResponseHeaderTimeout = timeLimit
	return transport
}

// ParagraphText joins the text of every <p> element with single spaces.
func ParagraphText(doc *goquery.Document) string {
	paragraphs := doc.Find("p").Map(func(_ int, p *goquery.Selection) string {
		return p.Text()
	})
	return strings.Join(paragraphs, " ")
}

// FetchAll fetches urls concurrently and returns the pages that produced
// text, in the order of urls. Failures are logged and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []Page {
	pages := make([]*Page, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, url := range urls {
		g.Go(func() error {
			page, err := f.Fetch(gctx, url)
			if err == nil && strings.TrimSpace(page.Text) == "" {
				err = ErrEmptyPage
			}
			if err != nil {
				f.log.WithError(err).WithField("url", url).Warn("error fetching page")
				return nil
			}
			pages[i] = &page
			return nil
		})
	}
	_ = g.Wait()

	res := make([]Page, 0, len(urls))
	for _, p := range pages {
		if p != nil {
			res = append(res, *p)
		}
	}
	return res
}
