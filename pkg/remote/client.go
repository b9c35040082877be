// Package remote talks to the HTTP server that exposes the object tree.
//
// Node descriptions are requested with TextMode=0 so the server answers with
// raw JSON instead of the HTML page that hosts the browser. Plugin resources
// live at /?path=<ClassName>.{js,css}&TextMode=1 and are probed with HEAD
// before they are fetched.
package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/entrhq/objbrowser/pkg/logging"
)

// ResourceKind distinguishes plugin code from plugin stylesheets.
type ResourceKind int

const (
	KindScript ResourceKind = iota
	KindStyle
)

// Ext returns the file extension used for the kind.
func (k ResourceKind) Ext() string {
	if k == KindStyle {
		return ".css"
	}
	return ".js"
}

func (k ResourceKind) String() string {
	if k == KindStyle {
		return "style"
	}
	return "script"
}

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "objbrowser/0.1"
	maxBodyBytes     = 8 << 20
)

// Client issues node fetches and resource probes against one server. The
// page URL it is built from plays the role of the browser location: its
// path is the base path of every object path and its query is forwarded on
// every node request.
type Client struct {
	page      *url.URL
	http      *http.Client
	timeout   time.Duration
	maxBody   int64
	logger    logging.Sink
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logging.Sink) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the timeout of the default http.Client. A client passed
// with WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxBodySize limits the size of response bodies. Larger bodies fail
// with ErrBodyTooLarge.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// NewClient creates a client for the page at pageURL, for example
// http://localhost:8084/Root?ObjPath=Root&TextMode=1.
func NewClient(pageURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid page url %q: scheme and host are required", pageURL)
	}

	c := &Client{
		page:      u,
		timeout:   defaultTimeout,
		maxBody:   maxBodyBytes,
		logger:    logging.Discard(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

// PageURL returns the page address the client was created with.
func (c *Client) PageURL() string {
	return c.page.String()
}

// ObjPath returns the ObjPath query parameter of the page, the root object
// path of the hosted view. It is empty when the page has none.
func (c *Client) ObjPath() string {
	return c.page.Query().Get("ObjPath")
}

func (c *Client) origin() string {
	return c.page.Scheme + "://" + c.page.Host
}

// DataURL builds the address of the JSON description of an object path.
// The page query is forwarded with TextMode=1 rewritten to TextMode=0, or
// TextMode=0 appended when the page does not set it.
func (c *Client) DataURL(path string) string {
	params := c.page.RawQuery
	if strings.Contains(params, "TextMode=") {
		params = "?" + strings.ReplaceAll(params, "TextMode=1", "TextMode=0")
	} else if params == "" {
		params = "?TextMode=0"
	} else {
		params = "?" + params + "&TextMode=0"
	}

	full := c.page.EscapedPath()
	if path != "" {
		if !strings.HasSuffix(full, "/") {
			full += "/"
		}
		full += path
	}
	return c.origin() + full + params
}

// PluginURL returns where the plugin resource for a class might live.
func (c *Client) PluginURL(className string, kind ResourceKind) string {
	return c.origin() + "/?path=" + className + kind.Ext() + "&TextMode=1"
}

// ViewURL returns the address of a new top-level view rooted at path.
func (c *Client) ViewURL(path string) string {
	return c.origin() + c.page.EscapedPath() + "?TextMode=1&ObjPath=" + path
}

// FetchNode retrieves and decodes the node at path. A non-2xx status or a
// transport failure yields a *NetworkError; an undecodable body yields a
// *ParseError.
func (c *Client) FetchNode(ctx context.Context, path string) (*ObjectNode, error) {
	target := c.DataURL(path)
	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	node, err := DecodeNode(body)
	if err != nil {
		c.logger.Warnf("invalid node description from %s: %v", target, err)
		return nil, &ParseError{URL: target, Snippet: bodySnippet(body), Err: err}
	}
	return node, nil
}

// ProbeExists issues a HEAD request for url. Any 2xx answer means the
// resource exists, any other status means it does not. Only transport
// failures are reported as errors.
func (c *Client) ProbeExists(ctx context.Context, target string) (bool, error) {
	req, err := c.newRequest(ctx, http.MethodHead, target)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, &NetworkError{Method: http.MethodHead, URL: target, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	exists := resp.StatusCode >= 200 && resp.StatusCode < 300
	c.logger.Debugf("probe %s -> %d", target, resp.StatusCode)
	return exists, nil
}

// FetchResource downloads a plugin resource body.
func (c *Client) FetchResource(ctx context.Context, target string) ([]byte, error) {
	return c.get(ctx, target)
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, target)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &NetworkError{Method: http.MethodGet, URL: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{Method: http.MethodGet, URL: target, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &NetworkError{Method: http.MethodGet, URL: target, Err: err}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &NetworkError{
			Method: http.MethodGet,
			URL:    target,
			Err:    fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBody),
		}
	}
	c.logger.Debugf("GET %s -> %d (%d bytes)", target, resp.StatusCode, len(body))
	return body, nil
}

func (c *Client) newRequest(ctx context.Context, method, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if method == http.MethodGet {
		req.Header.Set("Accept", "application/json, */*")
	}
	return req, nil
}
