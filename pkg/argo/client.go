package argo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	retryablehttp "github.com/hashicorp/go-retryablehttp"

	"github.com/argonaut-dev/argonaut/pkg/debug"
)

// Default transport settings, applied when the corresponding ClientConfig
// field is zero.
const (
	DefaultConnectTimeout   = 10 * time.Second
	DefaultHeaderTimeout    = 60 * time.Second
	DefaultRequestTimeout   = 120 * time.Second
	DefaultMaxConns         = 64
	DefaultMaxResponseBytes = 8 << 20
)

// maxErrorBodyBytes bounds how much of an upstream error body is retained
// for diagnostics.
const maxErrorBodyBytes = 64 << 10

// ClientConfig holds transport settings for the Argo backend. The three
// URLs are complete endpoints, not a base to join paths onto.
type ClientConfig struct {
	ChatURL       string
	StreamChatURL string
	EmbeddingURL  string

	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout time.Duration

	// HeaderTimeout bounds the wait for response headers after the request
	// is written, which for streams is the time to first byte.
	HeaderTimeout time.Duration

	// RequestTimeout bounds a whole non-streaming exchange when the caller's
	// context carries no deadline of its own. A caller deadline always wins,
	// which is how per-request timeout overrides reach the transport.
	RequestTimeout time.Duration

	// MaxRetries is the number of additional attempts after the first.
	// Zero, the default, means exactly one attempt per request.
	MaxRetries int

	// MaxConns caps concurrent connections to the backend host. Requests
	// beyond the cap wait for a free connection instead of failing.
	MaxConns int

	// MaxResponseBytes bounds how much of a non-streaming response body is
	// read before the request fails with a SizeLimitError.
	MaxResponseBytes int64
}

func (c *ClientConfig) applyDefaults() {
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.HeaderTimeout == 0 {
		c.HeaderTimeout = DefaultHeaderTimeout
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
}

// Client sends requests to the Argo backend over HTTP. All failures surface
// as *BackendError; response bodies larger than the configured bound surface
// as *SizeLimitError. A zero retry budget means exactly one attempt.
type Client struct {
	cfg  ClientConfig
	http *retryablehttp.Client
}

// NewClient creates a Client for the given backend endpoints.
func NewClient(cfg ClientConfig) *Client {
	cfg.applyDefaults()

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		ResponseHeaderTimeout: cfg.HeaderTimeout,
		MaxConnsPerHost:       cfg.MaxConns,
		MaxIdleConnsPerHost:   cfg.MaxConns,
		IdleConnTimeout:       90 * time.Second,
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	rc.Logger = nil
	// Hand the final response back untouched when the retry budget runs
	// out, so upstream status codes and bodies survive.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient = &http.Client{Transport: transport}

	return &Client{cfg: cfg, http: rc}
}

// Chat sends a non-streaming chat request and returns the decoded response.
func (c *Client) Chat(ctx context.Context, req *Request) (*Response, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()

	resp, err := c.post(ctx, c.cfg.ChatURL, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}

	var out Response
	if err := json.Unmarshal(body, &out); err != nil {
		// A 2xx with an undecodable body is still an upstream failure; the
		// orchestrator maps sub-400 statuses of this kind to a gateway 502.
		return nil, &BackendError{
			Kind:   KindHTTPStatus,
			Status: resp.StatusCode,
			Body:   truncate(string(body), 200),
			Err:    fmt.Errorf("decoding chat response: %w", err),
		}
	}
	return &out, nil
}

// ChatStream opens a streaming chat request and returns a reader over the
// backend's raw text chunks. The caller owns closing the reader. No overall
// deadline applies beyond the caller's context; a stream may legitimately
// outlive any fixed request timeout, so only the connect and header
// timeouts bound its start.
func (c *Client) ChatStream(ctx context.Context, req *Request) (*ChunkReader, error) {
	resp, err := c.post(ctx, c.cfg.StreamChatURL, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, httpStatusError(resp)
	}
	debug.Log("backend", "stream open", "url", c.cfg.StreamChatURL, "model", req.Model)
	return NewChunkReader(resp.Body), nil
}

// Embed sends an embeddings request and returns the decoded vectors.
func (c *Client) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()

	resp, err := c.post(ctx, c.cfg.EmbeddingURL, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := c.readBody(resp)
	if err != nil {
		return nil, err
	}

	var out EmbeddingResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &BackendError{
			Kind:   KindHTTPStatus,
			Status: resp.StatusCode,
			Body:   truncate(string(body), 200),
			Err:    fmt.Errorf("decoding embedding response: %w", err),
		}
	}
	return &out, nil
}

// ChatRaw forwards an opaque request body to the chat endpoint and returns
// the backend's status and body verbatim. Only network failures and
// oversized bodies turn into errors.
func (c *Client) ChatRaw(ctx context.Context, body []byte) (int, []byte, error) {
	ctx, cancel := c.deadline(ctx)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.ChatURL, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("argo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return 0, nil, classifyNetworkError(err)
	}
	defer resp.Body.Close()

	out, err := c.readBounded(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

// post marshals payload and performs the HTTP exchange. It returns the raw
// response with the body unread; callers own closing it.
func (c *Client) post(ctx context.Context, url string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("argo: encoding request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("argo: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	debug.Log("backend", "request", "url", url, "bytes", len(body))
	debug.Raw("backend", string(body))

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, classifyNetworkError(err)
	}
	return resp, nil
}

// readBody consumes a response body within the configured bound and turns
// non-2xx statuses into BackendErrors carrying the (truncated) body.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, httpStatusError(resp)
	}
	body, err := c.readBounded(resp.Body)
	if err != nil {
		return nil, err
	}
	debug.Log("backend", "response", "status", resp.StatusCode, "bytes", len(body))
	debug.Raw("backend", string(body))
	return body, nil
}

func (c *Client) readBounded(r io.Reader) ([]byte, error) {
	limit := c.cfg.MaxResponseBytes
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, classifyNetworkError(err)
	}
	if int64(len(data)) > limit {
		return nil, &SizeLimitError{Limit: limit}
	}
	return data, nil
}

func httpStatusError(resp *http.Response) *BackendError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &BackendError{
		Kind:   KindHTTPStatus,
		Status: resp.StatusCode,
		Body:   string(body),
	}
}

// deadline applies the default request timeout when the caller supplied no
// deadline of its own.
func (c *Client) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}
