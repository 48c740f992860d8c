// Package eodhd fills symbol profiles and exchange rates from the EOD
// Historical Data API (https://eodhd.com).
package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/etnz/valuation"
	"go.uber.org/zap"
)

// DefaultBaseURL is the root of the EODHD API.
const DefaultBaseURL = "https://eodhd.com/api"

// Client queries the EODHD API. Responses are cached on disk for a day.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	log     *zap.SugaredLogger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL   string
	transport http.RoundTripper
	cacheDir  string
	noCache   bool
	log       *zap.SugaredLogger
}

// WithBaseURL changes the API root, mostly for tests.
func WithBaseURL(u string) Option { return func(o *clientOptions) { o.baseURL = u } }

// WithTransport sets the underlying transport.
func WithTransport(t http.RoundTripper) Option { return func(o *clientOptions) { o.transport = t } }

// WithCacheDir sets the directory of the disk cache. The empty string disables it.
func WithCacheDir(dir string) Option {
	return func(o *clientOptions) { o.cacheDir, o.noCache = dir, dir == "" }
}

// WithLogger sets the client logger.
func WithLogger(log *zap.SugaredLogger) Option { return func(o *clientOptions) { o.log = log } }

// New creates a client authenticated with 'apiKey'.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("eodhd: missing API key")
	}
	o := clientOptions{
		baseURL:  DefaultBaseURL,
		cacheDir: os.TempDir(),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := url.Parse(o.baseURL); err != nil {
		return nil, fmt.Errorf("eodhd: invalid base url %q: %w", o.baseURL, err)
	}

	client := &http.Client{Transport: o.transport}
	if !o.noCache {
		client = newCachingClient(o.transport, o.cacheDir, valuation.Daily, o.log)
	}
	return &Client{apiKey: apiKey, baseURL: o.baseURL, http: client, log: o.log}, nil
}

// endpoint returns the address of an API call, with the common query
// parameters set.
func (c *Client) endpoint(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("fmt", "json")
	query.Set("api_token", c.apiKey)
	return c.baseURL + path + "?" + query.Encode()
}

// jwget performs an HTTP GET request to the given address and unmarshals the
// JSON response body into the provided data structure.
func (c *Client) jwget(ctx context.Context, addr string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, data)
}
