// Package relay is a client for an EmailJS-compatible mail relay: a hosted
// service that turns a template id plus a map of template parameters into an
// email, so the site never speaks SMTP itself.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"contactrelay/pkg/circuitbreaker"
	"contactrelay/pkg/metrics"
	"contactrelay/pkg/trace"
)

const sendPath = "/api/v1.0/email/send"

var (
	// ErrNotInitialized is returned by Send before Init was called.
	ErrNotInitialized = errors.New("relay client is not initialized")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("relay is unavailable")
)

// Error is a rejection reported by the relay itself. Text carries the body the
// relay answered with, which is safe to show to the sender.
type Error struct {
	Status int
	Text   string
}

func (e *Error) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("relay returned status %d", e.Status)
	}
	return fmt.Sprintf("relay returned status %d: %s", e.Status, e.Text)
}

// Response is the relay's answer to an accepted send.
type Response struct {
	Status int
	Text   string
}

// Fields are the template parameters of one email.
type Fields map[string]string

type sendRequest struct {
	ServiceID      string `json:"service_id"`
	TemplateID     string `json:"template_id"`
	UserID         string `json:"user_id"`
	TemplateParams Fields `json:"template_params"`
	AccessToken    string `json:"accessToken,omitempty"`
}

type Client struct {
	baseURL    string
	privateKey string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
	logger     *zap.Logger

	mu        sync.RWMutex
	publicKey string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPrivateKey sets the access token sent alongside the public key.
func WithPrivateKey(key string) Option {
	return func(c *Client) { c.privateKey = key }
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(c *Client) { c.cb = cb }
}

// NewClient builds a client for baseURL. The http.Client carries no timeout:
// callers bound each send through ctx.
func NewClient(baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cb == nil {
		cfg := circuitbreaker.DefaultConfig()
		cfg.OnStateChange = func(from, to circuitbreaker.State) {
			logger.Warn("Relay circuit breaker state changed",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		}
		c.cb = circuitbreaker.NewCircuitBreaker(cfg)
	}
	return c
}

// Init sets the public key used to authenticate every send.
func (c *Client) Init(publicKey string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publicKey = publicKey
}

// Send asks the relay to deliver one email rendered from templateID.
// Relay rejections come back as *Error; 4xx rejections do not trip the breaker.
func (c *Client) Send(ctx context.Context, serviceID, templateID string, fields Fields) (*Response, error) {
	c.mu.RLock()
	publicKey := c.publicKey
	c.mu.RUnlock()
	if publicKey == "" {
		return nil, ErrNotInitialized
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:      serviceID,
		TemplateID:     templateID,
		UserID:         publicKey,
		TemplateParams: fields,
		AccessToken:    c.privateKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode relay request: %w", err)
	}

	var (
		resp      *Response
		rejection *Error
	)
	err = c.cb.Execute(func() error {
		var callErr error
		resp, callErr = c.do(ctx, body)
		if errors.As(callErr, &rejection) && rejection.Status < 500 {
			return nil
		}
		return callErr
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return nil, ErrUnavailable
	}
	if err != nil {
		return nil, err
	}
	if rejection != nil {
		return nil, rejection
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*Response, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sendPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if traceID := trace.FromContext(ctx); traceID != "" {
		req.Header.Set(trace.HeaderName, traceID)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordRelayCallLatency(sendPath, "error", time.Since(start))
		return nil, fmt.Errorf("failed to call relay: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
	if err != nil {
		metrics.RecordRelayCallLatency(sendPath, "error", time.Since(start))
		return nil, fmt.Errorf("failed to read relay response: %w", err)
	}
	text := strings.TrimSpace(string(raw))

	if httpResp.StatusCode != http.StatusOK {
		status := fmt.Sprintf("%d", httpResp.StatusCode)
		if httpResp.StatusCode >= 500 {
			status = "5xx"
		}
		metrics.RecordRelayCallLatency(sendPath, status, time.Since(start))
		return nil, &Error{Status: httpResp.StatusCode, Text: text}
	}

	metrics.RecordRelayCallLatency(sendPath, "success", time.Since(start))
	return &Response{Status: httpResp.StatusCode, Text: text}, nil
}
