// Package search queries the remote job board and maps its answers to
// domain listings.
package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"jobpulse-engine/internal/domain"
	"jobpulse-engine/internal/logging"
	"jobpulse-engine/internal/transport"
)

type Config struct {
	BaseURL         string
	SearchPath      string
	SiteURL         string // prefix for listing detail links
	UserAgent       string
	PageSizes       []int
	DefaultPageSize int
}

func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		SearchPath:      DefaultSearchPath,
		SiteURL:         DefaultSiteURL,
		UserAgent:       "JobPulse/1.0",
		PageSizes:       []int{5, 10, 20, 50},
		DefaultPageSize: 10,
	}
}

// Page is one page of results. HasNextPage is CurrentPage*PageSize < TotalCount.
type Page struct {
	Listings    []domain.JobListing `json:"listings"`
	TotalCount  int                 `json:"totalCount"`
	TotalPages  int                 `json:"totalPages"`
	CurrentPage int                 `json:"currentPage"`
	PageSize    int                 `json:"pageSize"`
	HasNextPage bool                `json:"hasNextPage"`
}

// Sender is satisfied by *transport.Transport.
type Sender interface {
	Send(ctx context.Context, req *http.Request) (*transport.Response, error)
}

// TokenFunc supplies an optional bearer token per request. An empty token
// or an error leaves the request unauthenticated.
type TokenFunc func() (string, error)

type Client struct {
	cfg   Config
	tr    Sender
	token TokenFunc
	log   *logging.Logger
}

type Option func(*Client)

func WithToken(f TokenFunc) Option {
	return func(c *Client) { c.token = f }
}

func WithLogger(l *logging.Logger) Option {
	return func(c *Client) { c.log = l.Named("search") }
}

func NewClient(cfg Config, tr Sender, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.SearchPath == "" {
		cfg.SearchPath = def.SearchPath
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = def.SiteURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}
	if len(cfg.PageSizes) == 0 {
		cfg.PageSizes = def.PageSizes
	}
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = def.DefaultPageSize
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	cfg.SiteURL = strings.TrimRight(cfg.SiteURL, "/")

	c := &Client{cfg: cfg, tr: tr, log: logging.NewNop()}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Config() Config { return c.cfg }

// Prepare normalizes and validates f and returns it with the request URL
// it maps to. Identical URLs mean identical searches.
func (c *Client) Prepare(f Filter) (Filter, string, error) {
	f = f.normalized(c.cfg.DefaultPageSize)
	if err := f.Validate(c.cfg.PageSizes); err != nil {
		return Filter{}, "", err
	}
	return f, c.cfg.BaseURL + c.cfg.SearchPath + "?" + encodeQuery(f).Encode(), nil
}

// Search fetches one page. It keeps no state between calls; ask for the
// next page with f.WithPage(p.CurrentPage+1).
func (c *Client) Search(ctx context.Context, f Filter) (Page, error) {
	f, u, err := c.Prepare(f)
	if err != nil {
		return Page{}, err
	}
	return c.fetch(ctx, f, u)
}

func (c *Client) fetch(ctx context.Context, f Filter, u string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Page{}, fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		tok, err := c.token()
		if err != nil {
			c.log.Debug("provider token unavailable", "err", err)
		} else if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.tr.Send(ctx, req)
	if err != nil {
		return Page{}, fmt.Errorf("search: %w", err)
	}

	page, err := decodePage(resp.Body, f, c.cfg.SiteURL)
	if err != nil {
		c.log.Warn("provider response rejected", "page", f.Page, "err", err)
		return Page{}, err
	}
	c.log.Debug("search ok", "keyword", f.Keyword, "page", page.CurrentPage,
		"results", len(page.Listings), "total", page.TotalCount)
	return page, nil
}
