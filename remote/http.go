// Package remote fetches rule inputs over HTTP(S). Fetch rules use it to
// materialise a URL as a local file; transient server failures are retried
// with exponential backoff.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/weftsh/weft/pattern"
	"github.com/weftsh/weft/retry"
	"github.com/weftsh/weft/workflow"
)

// ErrNotFound indicates the server does not serve the requested URL.
var ErrNotFound = errors.New("remote file not found")

// StatusError reports an HTTP status that prevented the operation.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d", e.URL, e.StatusCode)
}

// Client talks to HTTP(S) file sources. Cancellation and deadlines come
// from the caller's context; the zero number of options gives three
// attempts per request with the retry package's default backoff.
type Client struct {
	httpClient  *http.Client
	maxAttempts int
	retryOpts   []retry.Option
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
var WithHTTPClient = func(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxAttempts caps how often a transient failure is retried.
var WithMaxAttempts = func(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithRetryOptions adjusts the backoff between attempts.
var WithRetryOptions = func(opts ...retry.Option) Option {
	return func(c *Client) {
		c.retryOpts = append(c.retryOpts, opts...)
	}
}

// NewClient returns a Client ready for use.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		maxAttempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Exists reports whether the URL is served, using a HEAD request.
func (c *Client) Exists(ctx context.Context, rawURL string) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return false, nil
	}
	if err := checkStatus(rawURL, resp); err != nil {
		return false, err
	}
	return true, nil
}

// ModTime reports the remote file's modification time from the
// Last-Modified header. Servers that omit the header yield an error.
func (c *Client) ModTime(ctx context.Context, rawURL string) (time.Time, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return time.Time{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(rawURL, resp); err != nil {
		return time.Time{}, err
	}

	lastModified := resp.Header.Get("Last-Modified")
	if lastModified == "" {
		return time.Time{}, fmt.Errorf("%s: missing Last-Modified header", rawURL)
	}
	t, err := http.ParseTime(lastModified)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing Last-Modified for %s: %w", rawURL, err)
	}
	return t, nil
}

// Size reports the remote file's size from the Content-Length header.
func (c *Client) Size(ctx context.Context, rawURL string) (int64, error) {
	resp, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(rawURL, resp); err != nil {
		return 0, err
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("%s: missing Content-Length header", rawURL)
	}
	return resp.ContentLength, nil
}

// Download fetches the URL into destPath. Parent directories are created
// and the destination only appears once the download completed in full, so
// a failed transfer never leaves a partial output behind.
func (c *Client) Download(ctx context.Context, rawURL, destPath string) error {
	resp, err := c.do(ctx, http.MethodGet, rawURL)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(rawURL, resp); err != nil {
		return err
	}

	dir := filepath.Dir(destPath)
	if mkdirErr := os.MkdirAll(dir, 0o755); mkdirErr != nil {
		return fmt.Errorf("creating output directory: %w", mkdirErr)
	}

	tempFile, createErr := os.CreateTemp(dir, ".weft-fetch-*")
	if createErr != nil {
		return fmt.Errorf("creating temp file: %w", createErr)
	}
	tempPath := tempFile.Name()

	if _, copyErr := io.Copy(tempFile, resp.Body); copyErr != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("downloading %s: %w", rawURL, copyErr)
	}

	// Sync to disk to catch disk full errors before closing
	if syncErr := tempFile.Sync(); syncErr != nil {
		_ = tempFile.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("syncing file to disk: %w", syncErr)
	}
	if closeErr := tempFile.Close(); closeErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing file: %w", closeErr)
	}
	if renameErr := os.Rename(tempPath, destPath); renameErr != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming file: %w", renameErr)
	}
	return nil
}

// Action adapts a URL template into a rule action downloading the expanded
// URL to the rule's single output. The template may reference wildcard
// names the same way shell scripts do.
func (c *Client) Action(rawURL string) workflow.Action {
	return func(ctx context.Context, inv workflow.Invocation) error {
		values := make(map[string]string, len(inv.Wildcards)+2)
		for name, value := range inv.Wildcards {
			values[name] = value
		}
		values["input"] = strings.Join(inv.Inputs, " ")
		values["output"] = strings.Join(inv.Outputs, " ")

		expanded, err := pattern.Substitute(rawURL, values)
		if err != nil {
			return err
		}
		if len(inv.Outputs) != 1 {
			return fmt.Errorf("fetch rule %s needs exactly one output, got %d", inv.Rule, len(inv.Outputs))
		}
		return c.Download(ctx, expanded, inv.Outputs[0])
	}
}

// do issues one request, retrying transport errors and transient statuses.
// The returned response may still carry a non-2xx status; callers decide
// what a settled 404 or 403 means for them.
func (c *Client) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	opts := append([]retry.Option{
		retry.WithAttempts(c.maxAttempts),
		retry.WithCondition(retryableError),
	}, c.retryOpts...)

	var resp *http.Response
	err := retry.Do(ctx, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, method, rawURL, http.NoBody)
		if reqErr != nil {
			return fmt.Errorf("creating request: %w", reqErr)
		}
		r, doErr := c.httpClient.Do(req)
		if doErr != nil {
			return doErr
		}
		if transientStatus(r.StatusCode) {
			_ = r.Body.Close()
			return &StatusError{URL: rawURL, StatusCode: r.StatusCode}
		}
		resp = r
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// checkStatus maps a settled response status to an error, folding the
// not-found family into ErrNotFound.
func checkStatus(rawURL string, resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	default:
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}
}

// transientStatus reports whether a status code is worth retrying.
func transientStatus(code int) bool {
	return code == http.StatusRequestTimeout ||
		code == http.StatusTooManyRequests ||
		code >= http.StatusInternalServerError
}

// retryableError retries transient statuses and transport-level failures;
// settled responses and malformed requests are final.
func retryableError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return transientStatus(statusErr.StatusCode)
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
