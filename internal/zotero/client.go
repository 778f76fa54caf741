package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/avast/retry-go"
	"github.com/chraibi/ZoteroTidy/internal/record"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is sent with every request as Zotero-API-Version.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit keeps well under the point where Zotero starts sending
	// Backoff headers.
	RateLimit = 5.0

	// PageSize is the maximum number of items the API returns per request.
	PageSize = 100

	// DefaultRetryAttempts is how many times a failed GET is retried.
	DefaultRetryAttempts = 3

	// DefaultRetryDelay is the base delay of the exponential retry backoff.
	DefaultRetryDelay = time.Second
)

// Library types.
const (
	LibraryUser  = "user"
	LibraryGroup = "group"
)

// Client is a rate-limited HTTP client for one Zotero library.
type Client struct {
	httpClient    *http.Client
	limiter       *rate.Limiter
	logger        zerolog.Logger
	apiKey        string
	baseURL       string
	prefix        string // /users/{id} or /groups/{id}
	retryAttempts uint
	retryDelay    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key sent as Zotero-API-Key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets the maximum number of requests per second.
func WithRateLimit(perSecond float64) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithRetry sets how many times a failed read is retried and the base delay
// between attempts. Writes are never retried.
func WithRetry(attempts uint, delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithLogger sets the logger for request and mapping diagnostics.
func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the library of the given type ("user" or
// "group") and numeric id.
func NewClient(libraryType, libraryID string, opts ...ClientOption) *Client {
	kind := "users"
	if libraryType == LibraryGroup {
		kind = "groups"
	}
	c := &Client{
		httpClient:    &http.Client{Timeout: DefaultTimeout},
		limiter:       rate.NewLimiter(rate.Limit(RateLimit), 1),
		logger:        zerolog.Nop(),
		baseURL:       BaseURL,
		prefix:        "/" + kind + "/" + url.PathEscape(libraryID),
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	case resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: status %d", ErrPreconditionFailed, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     resp.Request.Method,
			Path:       resp.Request.URL.Path,
			Message:    string(bytes.TrimSpace(msg)),
		}
	}
	return nil
}

// do sends one request. On success the caller owns resp.Body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, header http.Header, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + c.prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Zotero-API-Version", APIVersion)
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}

	if backoff := resp.Header.Get("Backoff"); backoff != "" {
		c.logger.Warn().Str("seconds", backoff).Msg("server requested backoff")
	}

	if err := checkHTTPErrors(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// get sends a GET, retrying rate limits, unavailability and network errors
// with exponential backoff.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	var resp *http.Response
	err := retry.Do(
		func() error {
			r, err := c.do(ctx, http.MethodGet, path, query, nil, nil)
			if err != nil {
				if !retryable(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			resp = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.retryAttempts+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug().Err(err).Uint("attempt", n+1).Str("path", path).Msg("retrying request")
		}),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// getItems sends a GET and decodes a JSON array of items.
func (c *Client) getItems(ctx context.Context, path string, query url.Values) ([]record.Record, error) {
	resp, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("%w: decoding items: %v", ErrInvalidResponse, err)
	}
	return MapItems(items, c.logger), nil
}

// headerInt reads a numeric response header from a limit=1 probe of path.
func (c *Client) headerInt(ctx context.Context, path, header string) (int64, error) {
	resp, err := c.get(ctx, path, url.Values{"limit": {"1"}, "format": {"keys"}})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	raw := resp.Header.Get(header)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing %s header", ErrInvalidResponse, header)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s header %q: %v", ErrInvalidResponse, header, raw, err)
	}
	return n, nil
}

// FetchPage returns up to limit items starting at offset, most recently
// modified first.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) ([]record.Record, error) {
	if limit <= 0 || limit > PageSize {
		limit = PageSize
	}
	q := url.Values{
		"start":     {strconv.Itoa(offset)},
		"limit":     {strconv.Itoa(limit)},
		"sort":      {"dateModified"},
		"direction": {"desc"},
		"format":    {"json"},
	}
	return c.getItems(ctx, "/items", q)
}

// FetchAll pages through the library until total records have been read or
// the server returns an empty page. A total of zero or less reads everything.
func (c *Client) FetchAll(ctx context.Context, total int) ([]record.Record, error) {
	var all []record.Record
	for offset := 0; total <= 0 || offset < total; {
		limit := PageSize
		if total > 0 && total-offset < limit {
			limit = total - offset
		}
		page, err := c.FetchPage(ctx, offset, limit)
		if err != nil {
			return nil, fmt.Errorf("fetching items at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		offset += len(page)
		c.logger.Debug().Int("read", len(all)).Int("total", total).Msg("fetched page")
	}
	return all, nil
}

// FetchChildren returns the immediate children of the item with key.
func (c *Client) FetchChildren(ctx context.Context, key string) ([]record.Record, error) {
	return c.getItems(ctx, "/items/"+url.PathEscape(key)+"/children", url.Values{"format": {"json"}})
}

// Children implements the child listing used by the planners.
func (c *Client) Children(ctx context.Context, key string) ([]record.Record, error) {
	return c.FetchChildren(ctx, key)
}

// CurrentVersion returns the library's Last-Modified-Version.
func (c *Client) CurrentVersion(ctx context.Context) (int64, error) {
	return c.headerInt(ctx, "/items", "Last-Modified-Version")
}

// NumItems returns the number of items in the library, children included.
func (c *Client) NumItems(ctx context.Context) (int, error) {
	n, err := c.headerInt(ctx, "/items", "Total-Results")
	return int(n), err
}

// TrashCount returns the number of items in the trash.
func (c *Client) TrashCount(ctx context.Context) (int, error) {
	n, err := c.headerInt(ctx, "/items/trash", "Total-Results")
	return int(n), err
}

// write sends a mutating request guarded by If-Unmodified-Since-Version.
func (c *Client) write(ctx context.Context, method, path string, query url.Values, version int64, body any) error {
	header := http.Header{}
	header.Set("If-Unmodified-Since-Version", strconv.FormatInt(version, 10))
	resp, err := c.do(ctx, method, path, query, header, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Update moves a note, attachment or annotation under r.ParentKey. Only
// parentItem is sent; tags and every other field are left as they are.
func (c *Client) Update(ctx context.Context, r record.Record) error {
	if r.Kind != record.KindNote && r.Kind != record.KindAttachment && r.Kind != record.KindAnnotation {
		return fmt.Errorf("update %s: only child items can be reparented, got %s", r.Key, r.Kind)
	}
	patch := reparentPatch{ParentItem: r.ParentKey}
	return c.write(ctx, http.MethodPatch, "/items/"+url.PathEscape(r.Key), nil, r.Version, patch)
}

// Delete removes the record. The server deletes its children too.
func (c *Client) Delete(ctx context.Context, r record.Record) error {
	return c.write(ctx, http.MethodDelete, "/items/"+url.PathEscape(r.Key), nil, r.Version, nil)
}

// AddTags appends tags to the record's tags as manual tags. Existing tags,
// automatic ones included, are sent back unchanged. It reports false and
// sends nothing when every tag is already present.
func (c *Client) AddTags(ctx context.Context, r record.Record, tags []string) (bool, error) {
	merged, changed := mergeTags(r.Tags, tags)
	if !changed {
		return false, nil
	}
	patch := tagsPatch{Tags: toTags(merged)}
	if err := c.write(ctx, http.MethodPatch, "/items/"+url.PathEscape(r.Key), nil, r.Version, patch); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveTagGlobally removes tag from every item in the library.
func (c *Client) RemoveTagGlobally(ctx context.Context, tag string) error {
	version, err := c.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("querying library version: %w", err)
	}
	return c.write(ctx, http.MethodDelete, "/tags", url.Values{"tag": {tag}}, version, nil)
}

// DownloadFile returns the stored file of an attachment item. The caller
// must close the reader.
func (c *Client) DownloadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := c.get(ctx, "/items/"+url.PathEscape(key)+"/file", nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
