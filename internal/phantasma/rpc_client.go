package phantasma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"phantasma-explorer/internal/observability"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements RPCClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// Compile-time interface check.
var _ RPCClient = (*HTTPClient)(nil)

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport failures.
// Zero disables retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new Phantasma RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	ID      string        `json:"id"`
	Params  []interface{} `json:"params"`
}

// rpcError is the error member of a response. Some nodes send a bare string.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call performs a JSON-RPC call, retrying transport failures with exponential backoff.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      fmt.Sprintf("%d", c.requestID.Add(1)),
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		lastErr = c.do(ctx, method, body, result)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(lastErr) {
			break
		}
	}

	observability.RecordRPCError(method, KindOf(lastErr).String())
	return lastErr
}

// do performs a single round-trip and classifies the outcome.
func (c *HTTPClient) do(ctx context.Context, method string, body []byte, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &Error{Kind: ErrorKindWebRequest, Method: method, Message: "http request", Err: err}
	}

	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return &Error{Kind: ErrorKindWebRequest, Method: method, Message: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{
			Kind:    ErrorKindWebRequest,
			Method:  method,
			Message: fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(respBody, 256)),
		}
	}

	return decodeResponse(method, respBody, result)
}

// decodeResponse separates the four outcomes of a JSON-RPC body:
// result, structured error, non-JSON, and JSON carrying neither member.
func decodeResponse(method string, body []byte, result interface{}) error {
	var root interface{}
	if err := json.Unmarshal(body, &root); err != nil {
		return &Error{Kind: ErrorKindFailedParsingJSON, Method: method, Message: "failed to parse JSON", Err: err}
	}

	obj, ok := root.(map[string]interface{})
	if !ok {
		return &Error{Kind: ErrorKindMalformedResponse, Method: method, Message: "response is not an object"}
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(body, &members); err != nil {
		return &Error{Kind: ErrorKindFailedParsingJSON, Method: method, Message: "failed to parse JSON", Err: err}
	}

	if rawErr, ok := members["error"]; ok && obj["error"] != nil {
		return &Error{Kind: ErrorKindAPI, Method: method, Message: errorMessage(rawErr)}
	}

	rawResult, ok := members["result"]
	if !ok {
		return &Error{Kind: ErrorKindMalformedResponse, Method: method, Message: "malformed response"}
	}

	if result != nil {
		if err := json.Unmarshal(rawResult, result); err != nil {
			return &Error{Kind: ErrorKindFailedParsingJSON, Method: method, Message: "decode result", Err: err}
		}
	}
	return nil
}

// errorMessage extracts the server message from an error member.
func errorMessage(raw json.RawMessage) string {
	var obj rpcError
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// GetApplications retrieves the application directory.
func (c *HTTPClient) GetApplications(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.call(ctx, "getApps", nil, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

// GetTokens retrieves the token directory.
func (c *HTTPClient) GetTokens(ctx context.Context) ([]Token, error) {
	var tokens []Token
	if err := c.call(ctx, "getTokens", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// GetChains retrieves all chains of the nexus.
func (c *HTTPClient) GetChains(ctx context.Context) ([]Chain, error) {
	var chains []Chain
	if err := c.call(ctx, "getChains", nil, &chains); err != nil {
		return nil, err
	}
	return chains, nil
}

// GetBlockHeight retrieves the current height of a chain.
func (c *HTTPClient) GetBlockHeight(ctx context.Context, chainAddress string) (uint64, error) {
	var height Uint64
	if err := c.call(ctx, "getBlockHeight", []interface{}{chainAddress}, &height); err != nil {
		return 0, err
	}
	return uint64(height), nil
}

// GetBlockByHeight retrieves a block of a chain by height.
func (c *HTTPClient) GetBlockByHeight(ctx context.Context, chainAddress string, height uint64) (*Block, error) {
	var block Block
	if err := c.call(ctx, "getBlockByHeight", []interface{}{chainAddress, height}, &block); err != nil {
		return nil, err
	}
	if block.Hash == "" {
		return nil, &Error{
			Kind:    ErrorKindMalformedResponse,
			Method:  "getBlockByHeight",
			Message: fmt.Sprintf("block %d of %s has no hash", height, chainAddress),
		}
	}
	return &block, nil
}
