// Package unpaywall looks up the open-access status of DOIs.
//
// Unpaywall only covers Crossref DOIs; anything it does not know is treated
// as closed access.
package unpaywall

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"resty.dev/v3"
)

const (
	// BaseURL is the Unpaywall REST API base URL.
	BaseURL = "https://api.unpaywall.org/v2"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRetryDelay is the base backoff delay between retries.
	DefaultRetryDelay = time.Second
)

// ErrInvalidEmail is returned when no usable contact email is configured.
// Unpaywall requires one on every request.
var ErrInvalidEmail = errors.New("unpaywall requires a valid email address")

// Result is the subset of an Unpaywall DOI object we use.
type Result struct {
	DOI      string `json:"doi"`
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	Title    string `json:"title"`
}

// Client queries Unpaywall.
type Client struct {
	httpClient       *resty.Client
	email            string
	maxRetryAttempts uint
	retryDelay       time.Duration
	logger           zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.httpClient.SetBaseURL(url)
	}
}

// WithRetry sets retry attempts and the base backoff delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client identified by email.
func NewClient(email string, opts ...Option) (*Client, error) {
	if err := validator.New().Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}

	client := resty.New()
	client.SetBaseURL(BaseURL)
	client.SetTimeout(DefaultTimeout)
	client.SetHeader("Accept", "application/json")

	c := &Client{
		httpClient:       client,
		email:            email,
		maxRetryAttempts: 3,
		retryDelay:       DefaultRetryDelay,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.httpClient.Close()
}

// statusError is a non-2xx Unpaywall response.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("response error %d: %s", e.status, e.body)
}

func isRetryableError(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return true // transport errors
}

// Lookup returns the Unpaywall record for doi. A DOI unknown to Unpaywall
// yields a zero Result and no error.
func (c *Client) Lookup(ctx context.Context, doi string) (Result, error) {
	doi = strings.ToLower(strings.TrimSpace(doi))
	var result Result
	err := retry.Do(
		func() error {
			r, err := c.lookup(ctx, doi)
			if err != nil {
				if !isRetryableError(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			result = r
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.maxRetryAttempts+1),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return Result{DOI: doi}, nil
		}
		return Result{}, fmt.Errorf("unpaywall lookup %s: %w", doi, err)
	}
	return result, nil
}

func (c *Client) lookup(ctx context.Context, doi string) (Result, error) {
	response, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("email", c.email).
		SetResult(&Result{}).
		Get("/" + doi)
	if err != nil {
		return Result{}, fmt.Errorf("httpClient.Get > %w", err)
	}
	if response.IsError() {
		return Result{}, &statusError{status: response.StatusCode(), body: response.String()}
	}
	res, ok := response.Result().(*Result)
	if !ok || res == nil {
		return Result{}, fmt.Errorf("unexpected unpaywall response for %s", doi)
	}
	return *res, nil
}

// OpenAccess returns the subset of dois that Unpaywall reports as open
// access, keyed by lower-cased DOI. Lookups rejected by Unpaywall are logged
// and skipped; transport failures abort.
func (c *Client) OpenAccess(ctx context.Context, dois []string) (map[string]bool, error) {
	oa := make(map[string]bool)
	for _, doi := range dois {
		res, err := c.Lookup(ctx, doi)
		if err != nil {
			var se *statusError
			if errors.As(err, &se) && se.status < 500 && se.status != http.StatusTooManyRequests {
				c.logger.Warn().Err(err).Str("doi", doi).Msg("skipping DOI")
				continue
			}
			return nil, err
		}
		if res.IsOA {
			oa[strings.ToLower(strings.TrimSpace(doi))] = true
		}
	}
	return oa, nil
}
