// Package cms is a client for the headless CMS REST API that stores posts.
package cms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrNotFound is returned when a document lookup matches nothing.
	ErrNotFound = errors.New("cms: document not found")
	// ErrForeignPage is returned when a page URL does not point at the
	// configured API endpoint.
	ErrForeignPage = errors.New("cms: page url outside api endpoint")
)

// RequestsTotal counts API requests. Register it with the application's
// metrics registry.
var RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "pubfront_cms_requests_total",
	Help: "CMS API requests by operation and outcome.",
}, []string{"op", "code"})

// APIError is returned for non-2xx API responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cms: api returned %d: %s", e.StatusCode, e.Body)
}

// Config holds the API location and credentials.
type Config struct {
	Endpoint    string        // API root, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken string        // optional
	Timeout     time.Duration // per request (default 10s)
}

// Client queries the CMS API.
type Client struct {
	endpoint    *url.URL
	accessToken string
	timeout     time.Duration
	http        *http.Client
	log         *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("cms: endpoint is required")
	}
	u, err := url.Parse(strings.TrimRight(cfg.Endpoint, "/"))
	if err != nil {
		return nil, fmt.Errorf("cms: parse endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("cms: endpoint must be http or https, got %q", cfg.Endpoint)
	}
	c := &Client{
		endpoint:    u,
		accessToken: cfg.AccessToken,
		timeout:     cfg.Timeout,
		http:        http.DefaultClient,
		log:         slog.Default(),
	}
	if c.timeout == 0 {
		c.timeout = 10 * time.Second
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListOptions controls a ListByType query.
type ListOptions struct {
	PageSize  int
	Page      int
	Orderings string // e.g. "[document.first_publication_date desc]"
}

type searchParams struct {
	Ref         string `url:"ref"`
	Q           string `url:"q"`
	PageSize    int    `url:"pageSize,omitempty"`
	Page        int    `url:"page,omitempty"`
	Orderings   string `url:"orderings,omitempty"`
	AccessToken string `url:"access_token,omitempty"`
}

// Ref returns the master ref of the repository.
func (c *Client) Ref(ctx context.Context) (string, error) {
	params := struct {
		AccessToken string `url:"access_token,omitempty"`
	}{c.accessToken}
	v, err := query.Values(params)
	if err != nil {
		return "", err
	}
	u := *c.endpoint
	u.RawQuery = v.Encode()

	var info apiInfo
	if err := c.getJSON(ctx, "ref", u.String(), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", fmt.Errorf("cms: no master ref in api response")
}

// ListByType returns one page of documents of the given type.
func (c *Client) ListByType(ctx context.Context, docType string, opts ListOptions) (*Response, error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	return c.search(ctx, "list", searchParams{
		Ref:       ref,
		Q:         fmt.Sprintf("[[at(document.type,%s)]]", strconv.Quote(docType)),
		PageSize:  opts.PageSize,
		Page:      opts.Page,
		Orderings: opts.Orderings,
	})
}

// AllByType walks every page of documents of the given type.
func (c *Client) AllByType(ctx context.Context, docType string, opts ListOptions) ([]Document, error) {
	if opts.PageSize == 0 {
		opts.PageSize = 100
	}
	resp, err := c.ListByType(ctx, docType, opts)
	if err != nil {
		return nil, err
	}
	docs := resp.Results
	for resp.NextPage != "" {
		resp, err = c.FetchPage(ctx, resp.NextPage)
		if err != nil {
			return nil, err
		}
		docs = append(docs, resp.Results...)
	}
	return docs, nil
}

// GetByUID returns the document of docType with the given uid.
func (c *Client) GetByUID(ctx context.Context, docType, uid string) (*Document, error) {
	ref, err := c.Ref(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := c.search(ctx, "get", searchParams{
		Ref:      ref,
		Q:        fmt.Sprintf("[[at(my.%s.uid,%s)]]", docType, strconv.Quote(uid)),
		PageSize: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

// FetchPage follows a next_page URL returned by a previous query. The URL
// must point at the configured endpoint.
func (c *Client) FetchPage(ctx context.Context, pageURL string) (*Response, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("cms: parse page url: %w", err)
	}
	if u.Scheme != c.endpoint.Scheme || u.Host != c.endpoint.Host || !strings.HasPrefix(u.Path, c.endpoint.Path) {
		return nil, ErrForeignPage
	}
	if c.accessToken != "" {
		q := u.Query()
		if q.Get("access_token") == "" {
			q.Set("access_token", c.accessToken)
			u.RawQuery = q.Encode()
		}
	}
	var resp Response
	if err := c.getJSON(ctx, "page", u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) search(ctx context.Context, op string, params searchParams) (*Response, error) {
	params.AccessToken = c.accessToken
	v, err := query.Values(params)
	if err != nil {
		return nil, err
	}
	u := *c.endpoint
	u.Path += "/documents/search"
	u.RawQuery = v.Encode()

	var resp Response
	if err := c.getJSON(ctx, op, u.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, op, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("cms: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		RequestsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("cms: %s request: %w", op, err)
	}
	defer resp.Body.Close()
	RequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Debug("cms request", "op", op, "status", resp.StatusCode, "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("cms: decode %s response: %w", op, err)
	}
	return nil
}
