//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	api "github.com/oshokin/relcut/internal/api/http/index"
	"github.com/oshokin/relcut/internal/config"
)

// Client wraps the package-index HTTP API with convenience helpers.
type Client struct {
	// baseURL is the index server root address.
	baseURL *url.URL
	// httpClient performs the requests.
	httpClient *http.Client

	// callTimeout is the default timeout for individual index calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for index calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("index address must be provided")
	// errBadHTTPStatus is returned when the index answers with an unexpected status.
	errBadHTTPStatus = errors.New("unexpected http status")
)

// Dial validates the index address and builds a client.
// Note: this uses plain HTTP without authentication; run the index on a
// trusted network or terminate TLS in a proxy until native TLS is added.
func Dial(address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	baseURL, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("parse index address: %w", err)
	}

	client := &Client{
		baseURL:     baseURL,
		httpClient:  http.DefaultClient,
		callTimeout: config.DefaultIndexTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Ping verifies the index is reachable and responsive.
func (c *Client) Ping(ctx context.Context) error {
	response, err := c.do(ctx, http.MethodGet, nil, http.NoBody, "healthz")
	if err != nil {
		return err
	}

	_ = response.Body.Close()

	return nil
}

// ListReleases retrieves the project listing from the index.
func (c *Client) ListReleases(ctx context.Context, project string) (*api.ProjectListing, error) {
	response, err := c.do(ctx, http.MethodGet, nil, http.NoBody, "projects", project, "/")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var listing api.ProjectListing
	if err = json.NewDecoder(response.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode project listing: %w", err)
	}

	return &listing, nil
}

// Upload pushes a file (manifest or artifact) to the index.
func (c *Client) Upload(ctx context.Context, project, filename string, contents io.Reader) (*api.UploadResult, error) {
	response, err := c.do(ctx, http.MethodPut, contents, nil, "projects", project, filename)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var result api.UploadResult
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload result: %w", err)
	}

	return &result, nil
}

// Fetch downloads a stored file. The caller owns the returned body.
func (c *Client) Fetch(ctx context.Context, project, filename string) (io.ReadCloser, error) {
	response, err := c.do(ctx, http.MethodGet, nil, http.NoBody, "projects", project, filename)
	if err != nil {
		return nil, err
	}

	return response.Body, nil
}

// Yank marks a published release withdrawn from installation.
func (c *Client) Yank(ctx context.Context, project, version string) error {
	response, err := c.do(ctx, http.MethodPost, nil, http.NoBody, "projects", project, version, "yank")
	if err != nil {
		return err
	}

	_ = response.Body.Close()

	return nil
}

// Prune asks the index to drop superseded releases past the grace period.
func (c *Client) Prune(ctx context.Context, project string) (*api.PruneResult, error) {
	response, err := c.do(ctx, http.MethodPost, nil, http.NoBody, "projects", project, "prune")
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = response.Body.Close()
	}()

	var result api.PruneResult
	if err = json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode prune result: %w", err)
	}

	return &result, nil
}

// do performs one HTTP call against the index with the client timeout applied.
//
//nolint:bodyclose // The caller owns the body on success; error paths close it here.
func (c *Client) do(ctx context.Context, method string, body io.Reader, fallbackBody io.Reader, parts ...string) (*http.Response, error) {
	callCtx, cancel := c.callContext(ctx)

	requestURL := *c.baseURL
	requestURL.Path = path.Join(append([]string{requestURL.Path}, parts...)...)

	// path.Join strips the trailing slash the listing endpoint requires.
	if len(parts) > 0 && parts[len(parts)-1] == "/" {
		requestURL.Path += "/"
	}

	if body == nil {
		body = fallbackBody
	}

	req, err := http.NewRequestWithContext(callCtx, method, requestURL.String(), body)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("build index request: %w", err)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		cancel()

		return nil, fmt.Errorf("call index: %w", err)
	}

	if response.StatusCode >= http.StatusBadRequest {
		message := decodeErrorBody(response.Body)
		_ = response.Body.Close()
		cancel()

		return nil, fmt.Errorf("%s %s: %s: %w", method, requestURL.String(), message, errBadHTTPStatus)
	}

	// Tie the cancel to body closure so streaming reads stay alive.
	response.Body = &cancelOnClose{ReadCloser: response.Body, cancel: cancel}

	return response, nil
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}

// decodeErrorBody extracts the error message from a JSON error response.
func decodeErrorBody(body io.Reader) string {
	var payload api.ErrorResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil || payload.Error == "" {
		return "no error details"
	}

	return payload.Error
}

// cancelOnClose releases the per-call context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser

	// cancel releases the call context.
	cancel context.CancelFunc
}

// Close closes the wrapped body and cancels the call context.
func (c *cancelOnClose) Close() error {
	defer c.cancel()

	return c.ReadCloser.Close()
}
