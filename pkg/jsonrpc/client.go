package jsonrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/ipos-browser-go/internal/models"
	"github.com/denysvitali/ipos-browser-go/version"
)

// AmzDateFormat is the layout of the x-amz-date request header
const AmzDateFormat = "20060102T150405Z"

// Doer is the HTTP primitive used by the client. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallOptions customises a single call. The zero value sends id 1 and
// empty params.
type CallOptions struct {
	ID     int
	Params interface{}
}

// Response is the raw result of a successful (2xx) round trip. JSON-RPC
// semantics are left to the caller.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client sends JSON-RPC 2.0 requests over HTTP(S) POST to a single endpoint
type Client struct {
	Version   string
	Namespace string
	Endpoint  Endpoint

	endpoint string
	http     Doer
	now      func() time.Time
	logger   *logrus.Logger
	nextID   atomic.Int64
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP primitive. Timeouts are its responsibility.
func WithHTTPClient(d Doer) Option {
	return func(c *Client) {
		c.http = d
	}
}

// WithClock overrides the clock used for the x-amz-date header
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for endpoint. Method names are qualified with
// namespace when it is non-empty.
func NewClient(endpoint, namespace string, opts ...Option) (*Client, error) {
	ep, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	c := &Client{
		Version:   models.JSONRPCVersion,
		Namespace: namespace,
		Endpoint:  ep,
		endpoint:  endpoint,
		http:      http.DefaultClient,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.SetOutput(io.Discard)
	}
	return c, nil
}

// QualifiedMethod returns the wire name of method
func (c *Client) QualifiedMethod(method string) string {
	if c.Namespace == "" {
		return method
	}
	return c.Namespace + "." + method
}

// NextID returns a process-unique request id starting at 1
func (c *Client) NextID() int {
	return int(c.nextID.Add(1))
}

// NewRequest builds the JSON-RPC request body for method
func (c *Client) NewRequest(method string, opts *CallOptions) models.JSONRPCRequest {
	req := models.JSONRPCRequest{
		ID:      1,
		JSONRPC: c.Version,
		Method:  c.QualifiedMethod(method),
		Params:  map[string]interface{}{},
	}
	if opts != nil {
		if opts.ID != 0 {
			req.ID = opts.ID
		}
		if opts.Params != nil {
			req.Params = opts.Params
		}
	}
	return req
}

// Call performs a single POST round trip. A non-2xx status is returned as
// *StatusError, a failure without any status as *NetworkError. No retries
// are attempted.
func (c *Client) Call(ctx context.Context, method string, opts *CallOptions, token string) (*Response, error) {
	if method == "" {
		return nil, fmt.Errorf("jsonrpc: method is required")
	}

	body, err := json.Marshal(c.NewRequest(method, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-amz-date", c.now().UTC().Format(AmzDateFormat))
	req.Header.Set("User-Agent", version.UserAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": c.QualifiedMethod(method),
			"error":  err,
		}).Debug("JSON-RPC call failed before a response")
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"method":  c.QualifiedMethod(method),
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("JSON-RPC call completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: respBody}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
