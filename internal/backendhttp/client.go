package backendhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"pkt.systems/coderun/core"
	"pkt.systems/coderun/schema"
	"pkt.systems/pslog"
)

// DefaultTimeout bounds a single backend request when Config.Timeout is unset.
const DefaultTimeout = 10 * time.Second

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 8 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-Id"

// Config configures the HTTP backend client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Headers    map[string]string
	HTTPClient *http.Client
}

// Client implements core.Backend over the JSON/HTTP execution protocol.
type Client struct {
	base    *url.URL
	timeout time.Duration
	headers map[string]string
	http    *http.Client
	newID   func() string
}

// New validates cfg and returns a backend client.
func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("backend base url is required")
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse backend base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base url %q must include scheme and host", raw)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	headers := make(map[string]string, len(cfg.Headers))
	for key, value := range cfg.Headers {
		headers[key] = value
	}
	return &Client{
		base:    base,
		timeout: timeout,
		headers: headers,
		http:    client,
		newID:   func() string { return uuid.NewString() },
	}, nil
}

// BaseURL returns the normalized backend base URL.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.base.String(), "/")
}

// Run submits source code and returns the new process id.
func (c *Client) Run(ctx context.Context, code string) (schema.PID, error) {
	var resp schema.RunResponse
	if err := c.post(ctx, "run", schema.RunRequest{Code: code}, &resp); err != nil {
		return schema.PID{}, err
	}
	if resp.PID.IsZero() {
		return schema.PID{}, core.NewBackendError(core.BackendErrorProtocol, "run", schema.ErrMissingPID)
	}
	return resp.PID, nil
}

// Output fetches output produced since the previous poll.
func (c *Client) Output(ctx context.Context, pid schema.PID) (schema.OutputResponse, error) {
	var resp schema.OutputResponse
	if err := c.post(ctx, "output", schema.OutputRequest{PID: pid}, &resp); err != nil {
		return schema.OutputResponse{}, err
	}
	return resp, nil
}

// Input forwards one line of standard input.
func (c *Client) Input(ctx context.Context, pid schema.PID, line string) error {
	return c.post(ctx, "input", schema.InputRequest{PID: pid, Input: line}, nil)
}

// Reset terminates the process.
func (c *Client) Reset(ctx context.Context, pid schema.PID) error {
	return c.post(ctx, "reset", schema.ResetRequest{PID: pid}, nil)
}

func (c *Client) post(ctx context.Context, op string, payload any, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return core.NewBackendError(core.BackendErrorProtocol, op, fmt.Errorf("encode request: %w", err))
	}
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	requestID := c.newID()
	log := pslog.Ctx(ctx).With("op", op, "request_id", requestID)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpoint(op), bytes.NewReader(body))
	if err != nil {
		return core.NewBackendError(core.BackendErrorUnknown, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug("backend request failed", "err", err, "duration", time.Since(start))
		return wrapTransportError(op, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return wrapTransportError(op, err)
	}
	log.Trace("backend request done", "status", resp.StatusCode, "duration", time.Since(start), "bytes", len(data))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return core.NewBackendError(core.BackendErrorProtocol, op, errors.New("empty response body"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return core.NewBackendError(core.BackendErrorProtocol, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) endpoint(op string) string {
	return c.base.JoinPath(op).String()
}

// statusError classifies a non-2xx reply, preferring the backend's
// {"error": "..."} message when the body carries one.
func statusError(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var payload schema.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	err := fmt.Errorf("status %d: %s", status, msg)
	var kind core.BackendErrorKind
	switch {
	case status == http.StatusNotFound:
		kind = core.BackendErrorNotFound
		err = fmt.Errorf("%w: %w", schema.ErrUnknownProcess, err)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		kind = core.BackendErrorTimeout
	case status == http.StatusBadGateway || status == http.StatusServiceUnavailable:
		kind = core.BackendErrorUnavailable
	case status >= 400 && status < 500:
		kind = core.BackendErrorRejected
	default:
		kind = core.BackendErrorUnknown
	}
	backendErr := core.NewBackendError(kind, op, err)
	backendErr.Status = status
	return backendErr
}

func wrapTransportError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *core.BackendError
	if errors.As(err, &existing) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return core.NewBackendError(core.BackendErrorCanceled, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewBackendError(core.BackendErrorTimeout, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return core.NewBackendError(core.BackendErrorTimeout, op, err)
		}
		return core.NewBackendError(core.BackendErrorUnavailable, op, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return core.NewBackendError(core.BackendErrorUnavailable, op, err)
	}
	return core.NewBackendError(core.BackendErrorUnknown, op, err)
}
