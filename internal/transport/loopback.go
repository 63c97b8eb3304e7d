// Package transport implements the single outbound HTTP primitive every
// core module must use to reach a local service: http_get/http_post, both
// enforcing the loopback boundary before any I/O is attempted.
package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"bitbucket.org/creachadair/stringset"

	"uwizard/internal/logging"
)

// ErrorKind is C1's closed error-kind set.
type ErrorKind string

const (
	ErrNonLoopback  ErrorKind = "non_loopback"
	ErrTimeout      ErrorKind = "timeout"
	ErrConnect      ErrorKind = "connect_error"
	ErrHTTPError    ErrorKind = "http_error"
	ErrMalformed    ErrorKind = "malformed_body"
)

// Error is C1's typed error.
type Error struct {
	Kind    ErrorKind
	Code    int // populated for ErrHTTPError
	Message string
}

func (e *Error) Error() string {
	if e.Kind == ErrHTTPError {
		return fmt.Sprintf("%s(%d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// loopbackAllowlist is the fixed set of hosts allowed for outbound calls.
var loopbackAllowlist = stringset.New("127.0.0.1", "::1", "localhost")

const (
	DefaultTimeout = 2 * time.Second
	MaxTimeout     = 30 * time.Second
)

// Result is C1's success shape.
type Result struct {
	Status     int
	Headers    http.Header
	BodyBytes  []byte
	ParsedJSON map[string]interface{}
}

// Client is the loopback-only HTTP primitive. The zero value is usable.
type Client struct {
	// httpClient is lazily built per-call with the requested timeout, since
	// each call may specify its own timeout within [0, MaxTimeout].
	transport http.RoundTripper
}

// normalizeHost rewrites wildcard binds to the loopback address they
// actually resolve to locally, per the loopback allowlist policy.
func normalizeHost(host string) string {
	switch host {
	case "0.0.0.0", "::":
		return "127.0.0.1"
	default:
		return host
	}
}

// checkLoopback parses rawURL and returns a *Error if its host (after
// wildcard normalization) is not in the loopback allowlist. No I/O is
// attempted when this returns non-nil.
func checkLoopback(rawURL string) (*url.URL, *Error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{Kind: ErrConnect, Message: fmt.Sprintf("invalid URL: %v", err)}
	}

	host := u.Hostname()
	if h, _, splitErr := net.SplitHostPort(u.Host); splitErr == nil {
		host = h
	}
	host = normalizeHost(host)

	if !loopbackAllowlist.Contains(host) {
		logging.Get(logging.CategoryTransport).Warn("rejected non-loopback target host=%s url=%s", host, rawURL)
		return nil, &Error{Kind: ErrNonLoopback, Message: fmt.Sprintf("host %q is not loopback", host)}
	}
	return u, nil
}

func clampTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return DefaultTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

func (c *Client) httpClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   clampTimeout(timeout),
		Transport: c.transport,
		// No redirects are followed per C1's contract.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func buildResult(resp *http.Response) (Result, *Error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, &Error{Kind: ErrConnect, Message: fmt.Sprintf("reading body: %v", err)}
	}

	result := Result{Status: resp.StatusCode, Headers: resp.Header, BodyBytes: body}

	ct := resp.Header.Get("Content-Type")
	looksJSON := len(body) > 0 && (ct == "" || containsJSON(ct))
	if looksJSON && len(body) > 0 {
		var parsed map[string]interface{}
		if err := json.Unmarshal(body, &parsed); err != nil {
			if containsJSON(ct) {
				return result, &Error{Kind: ErrMalformed, Message: fmt.Sprintf("claimed JSON but failed to parse: %v", err)}
			}
			// Content-Type was unset and the body just isn't JSON; that's
			// fine, ParsedJSON stays nil.
		} else {
			result.ParsedJSON = parsed
		}
	}

	if resp.StatusCode >= 400 {
		return result, &Error{Kind: ErrHTTPError, Code: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	return result, nil
}

func containsJSON(contentType string) bool {
	return contentType != "" && (contentType == "application/json" ||
		len(contentType) >= 16 && contentType[:16] == "application/json")
}

// Get performs http_get.
func (c *Client) Get(url string, headers map[string]string, timeout time.Duration) (Result, *Error) {
	parsed, lerr := checkLoopback(url)
	if lerr != nil {
		return Result{}, lerr
	}

	req, err := http.NewRequest(http.MethodGet, parsed.String(), nil)
	if err != nil {
		return Result{}, &Error{Kind: ErrConnect, Message: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient(timeout).Do(req)
	if err != nil {
		return Result{}, classifyDoError(err)
	}
	return buildResult(resp)
}

// Post performs http_post.
func (c *Client) Post(url string, body []byte, headers map[string]string, timeout time.Duration) (Result, *Error) {
	parsed, lerr := checkLoopback(url)
	if lerr != nil {
		return Result{}, lerr
	}

	req, err := http.NewRequest(http.MethodPost, parsed.String(), bytes.NewReader(body))
	if err != nil {
		return Result{}, &Error{Kind: ErrConnect, Message: err.Error()}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient(timeout).Do(req)
	if err != nil {
		return Result{}, classifyDoError(err)
	}
	return buildResult(resp)
}

func classifyDoError(err error) *Error {
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return &Error{Kind: ErrTimeout, Message: err.Error()}
	}
	return &Error{Kind: ErrConnect, Message: err.Error()}
}
