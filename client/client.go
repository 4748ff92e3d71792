// Package client talks to the Notion REST API on behalf of the blog.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/SergeyParamoshkin/blog/internal/model"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	DefaultAddr    = "https://api.notion.com"
	DefaultVersion = "2022-06-28"

	StatusProperty  = "Status"
	DateProperty    = "Date"
	PublishedStatus = "Published"

	pageSize = 100
)

var (
	ErrInvalidID       = errors.New("invalid notion id")
	ErrMissingDatabase = errors.New("notion database id not configured")
)

// RequestObserver is notified after every Notion round trip. status is 0
// when the request failed before a response arrived.
type RequestObserver interface {
	ObserveRequest(ctx context.Context, endpoint string, status int, elapsed time.Duration)
}

type Client struct {
	http.Client
	Addr string

	token      string
	version    string
	databaseID string
	limiter    *rate.Limiter
	observer   RequestObserver
}

type Option func(*Client)

// WithAddr points the client at another API root, e.g. a test server.
func WithAddr(addr string) Option {
	return func(c *Client) { c.Addr = addr }
}

func WithVersion(version string) Option {
	return func(c *Client) { c.version = version }
}

func WithDatabase(id string) Option {
	return func(c *Client) { c.databaseID = id }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.Timeout = d }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.Transport = rt }
}

// WithRateLimit caps outgoing requests at rps with the given burst.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithObserver(o RequestObserver) Option {
	return func(c *Client) { c.observer = o }
}

// New returns a client authenticated with token. Notion allows an average
// of three requests per second per integration, which is the default limit.
func New(token string, opts ...Option) *Client {
	c := &Client{
		Addr:    DefaultAddr,
		token:   token,
		version: DefaultVersion,
		limiter: rate.NewLimiter(rate.Limit(3), 3),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeID accepts dashed or undashed Notion ids and returns the dashed form.
func NormalizeID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}

	return u.String(), nil
}

// QueryDatabase runs q against the database and follows pagination until
// every result has been collected.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q QueryRequest) ([]Page, error) {
	id, err := NormalizeID(databaseID)
	if err != nil {
		return nil, err
	}

	var pages []Page
	q.PageSize = pageSize
	for {
		var list pageList
		if err := c.call(ctx, http.MethodPost, "databases.query", "/v1/databases/"+id+"/query", q, &list); err != nil {
			return nil, err
		}
		pages = append(pages, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			return pages, nil
		}
		q.StartCursor = list.NextCursor
	}
}

// FetchPublishedPosts returns the configured database's pages whose Status
// is Published, newest Date first.
func (c *Client) FetchPublishedPosts(ctx context.Context) ([]Page, error) {
	if c.databaseID == "" {
		return nil, ErrMissingDatabase
	}

	pages, err := c.QueryDatabase(ctx, c.databaseID, PublishedQuery())
	if err != nil {
		return nil, err
	}

	published := pages[:0]
	for _, p := range pages {
		if p.Status() == PublishedStatus {
			published = append(published, p)
		}
	}
	sort.SliceStable(published, func(i, j int) bool {
		return model.Newer(published[i].DateStart(), published[j].DateStart())
	})

	return published, nil
}

// PublishedQuery filters on Status == Published and sorts by Date descending.
func PublishedQuery() QueryRequest {
	return QueryRequest{
		Filter: &Filter{
			And: []Filter{{
				Property: StatusProperty,
				Status:   &StatusFilter{Equals: PublishedStatus},
			}},
		},
		Sorts: []Sort{{Property: DateProperty, Direction: "descending"}},
	}
}

func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	id, err := NormalizeID(pageID)
	if err != nil {
		return nil, err
	}

	var page Page
	if err := c.call(ctx, http.MethodGet, "pages.retrieve", "/v1/pages/"+id, nil, &page); err != nil {
		return nil, err
	}

	return &page, nil
}

// BlockChildren lists the direct children of a block or page.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	id, err := NormalizeID(blockID)
	if err != nil {
		return nil, err
	}

	var (
		blocks []Block
		cursor string
	)
	for {
		params := url.Values{}
		params.Set("page_size", strconv.Itoa(pageSize))
		if cursor != "" {
			params.Set("start_cursor", cursor)
		}

		var list blockList
		path := "/v1/blocks/" + id + "/children?" + params.Encode()
		if err := c.call(ctx, http.MethodGet, "blocks.children", path, nil, &list); err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			return blocks, nil
		}
		cursor = list.NextCursor
	}
}

func (c *Client) call(ctx context.Context, method, endpoint, path string, in, out interface{}) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("notion %s: %w", endpoint, err)
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("notion %s: encoding request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.Addr+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.Do(req)
	if err != nil {
		c.observe(ctx, endpoint, 0, start)
		return fmt.Errorf("notion %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.observe(ctx, endpoint, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("notion %s: reading response: %w", endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(endpoint, resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("notion %s: decoding response: %w", endpoint, err)
	}

	return nil
}

func (c *Client) observe(ctx context.Context, endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveRequest(ctx, endpoint, status, time.Since(start))
	}
}

// APIError is a non-2xx answer from Notion.
type APIError struct {
	Endpoint string
	Status   int    `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("notion %s: status %d", e.Endpoint, e.Status)
	}

	return fmt.Sprintf("notion %s: %d %s: %s", e.Endpoint, e.Status, e.Code, e.Message)
}

func newAPIError(endpoint string, status int, body []byte) error {
	apiErr := &APIError{}
	// The body is best effort; proxies may answer with HTML.
	_ = json.Unmarshal(body, apiErr)
	apiErr.Endpoint = endpoint
	apiErr.Status = status

	return apiErr
}

// IsNotFound reports whether err is a Notion object_not_found answer.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
