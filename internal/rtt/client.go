// Package rtt talks to the realtimetrains.co.uk public site.
//
// There is no API upstream, only server-rendered HTML, so the client issues
// plain GETs with a browser-like header set and hands the body to the scrape
// package untouched. One attempt per fetch, no retry.
package rtt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// DefaultBaseURL is the production upstream. Tests point BaseURL at an
// httptest server instead.
const DefaultBaseURL = "https://www.realtimetrains.co.uk"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config controls collector behavior.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Response is the outcome of one upstream fetch. A non-2xx status still
// carries whatever body the upstream returned; transport failures are
// returned as errors instead.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// OK reports whether the fetch landed in the 2xx range.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client fetches upstream pages through a Colly collector.
type Client struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Client. Zero-value config fields fall back to production
// defaults.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	base := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	// Each request stands alone; repeated searches revisit the same URLs.
	base.AllowURLRevisit = true
	base.IgnoreRobotsTxt = true
	// Error statuses flow through OnResponse so the caller can classify them.
	base.ParseHTTPErrorResponse = true
	base.SetRequestTimeout(cfg.Timeout)
	base.WithTransport(&http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          64,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.Timeout,
		ForceAttemptHTTP2:     true,
	})

	return &Client{
		cfg:           cfg,
		baseCollector: base,
		logger:        logger,
	}
}

// SearchURL builds the detailed search-results URL for a station pair.
// hhmm is the requested departure time with the colon stripped.
func (c *Client) SearchURL(fromCrs, toCrs, date, hhmm string) string {
	return fmt.Sprintf("%s/search/detailed/gb-nr:%s/to/gb-nr:%s/%s/%s",
		c.cfg.BaseURL, strings.ToUpper(fromCrs), strings.ToUpper(toCrs), date, hhmm)
}

// ServiceURL builds the detailed service page URL for one candidate.
func (c *Client) ServiceURL(uid, runDate string) string {
	return fmt.Sprintf("%s/service/gb-nr:%s/%s/detailed", c.cfg.BaseURL, uid, runDate)
}

type fetchResult struct {
	resp Response
	err  error
}

// Fetch executes a single GET against url. The returned error covers
// transport-level failures only; HTTP error statuses come back in the
// Response for the caller to classify.
func (c *Client) Fetch(ctx context.Context, url string) (Response, error) {
	collector := c.baseCollector.Clone()
	collector.AllowURLRevisit = true
	collector.ParseHTTPErrorResponse = true
	collector.SetRequestTimeout(c.cfg.Timeout)
	start := time.Now()
	resultCh := make(chan fetchResult, 1)
	var once sync.Once
	send := func(res fetchResult) {
		once.Do(func() { resultCh <- res })
	}

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-GB,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		send(fetchResult{resp: Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}})
	})
	collector.OnError(func(_ *colly.Response, err error) {
		if err == nil {
			err = errors.New("unknown colly error")
		}
		send(fetchResult{err: err})
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	var visitErr error
	select {
	case <-ctx.Done():
		return Response{}, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case visitErr = <-done:
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return Response{}, fmt.Errorf("fetch %s: %w", url, res.err)
		}
		c.logger.Debug("upstream fetch",
			zap.String("url", res.resp.URL),
			zap.Int("status", res.resp.StatusCode),
			zap.Int("bytes", len(res.resp.Body)),
			zap.Duration("duration", res.resp.Duration),
		)
		return res.resp, nil
	default:
		if visitErr != nil {
			return Response{}, fmt.Errorf("visit %s: %w", url, visitErr)
		}
		return Response{}, errors.New("fetch produced no result")
	}
}
