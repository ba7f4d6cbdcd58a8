package opencode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"OpenCodeWeb/internal/cache"
	"OpenCodeWeb/internal/config"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "OpenCodeWeb/internal/opencode"

// Client talks to an opencode server over its HTTP API
type Client struct {
	baseURL    string
	providerID string
	modelID    string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
	appInfo    *cache.Store

	duration metric.Float64Histogram
	requests metric.Int64Counter
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request logging
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTracer sets the tracer used for per-request spans
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) { c.tracer = tracer }
}

// WithMeter sets the meter used for request metrics
func WithMeter(meter metric.Meter) Option {
	return func(c *Client) { c.initMetrics(meter) }
}

// WithDefaults sets the provider and model used when SendMessage gets no override
func WithDefaults(providerID, modelID string) Option {
	return func(c *Client) {
		if providerID != "" {
			c.providerID = providerID
		}
		if modelID != "" {
			c.modelID = modelID
		}
	}
}

// WithAppInfoTTL caches GetAppInfo responses for ttl
func WithAppInfoTTL(ttl time.Duration) Option {
	return func(c *Client) { c.appInfo = cache.New(ttl) }
}

// NewClient creates a client for the opencode server at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		providerID: config.DefaultProviderID,
		modelID:    config.DefaultModelID,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     slog.Default(),
		tracer:     otel.Tracer(instrumentationName),
		appInfo:    cache.New(0),
	}
	c.initMetrics(otel.Meter(instrumentationName))
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) initMetrics(meter metric.Meter) {
	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err != nil {
		c.logger.Warn("failed to create histogram", "error", err)
	}
	counter, err := meter.Int64Counter(
		"opencode.requests",
		metric.WithDescription("Requests sent to the opencode server"),
	)
	if err != nil {
		c.logger.Warn("failed to create counter", "error", err)
	}
	c.duration = histogram
	c.requests = counter
}

// BaseURL returns the server address this client targets
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateSession creates a new session on the server
func (c *Client) CreateSession(ctx context.Context) (SessionPayload, error) {
	body, err := c.do(ctx, "create_session", http.MethodPost, "/session", struct{}{})
	if err != nil {
		return nil, err
	}
	return unwrapData(body), nil
}

// SendMessage sends content as a single text part and waits for the assistant reply
func (c *Client) SendMessage(ctx context.Context, sessionID, content string, opts ...SendOption) (MessagePayload, error) {
	cfg := sendConfig{providerID: c.providerID, modelID: c.modelID}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqBody := ChatRequest{
		ProviderID: cfg.providerID,
		ModelID:    cfg.modelID,
		Parts:      []TextPart{{Type: "text", Text: content}},
	}

	body, err := c.do(ctx, "send_message", http.MethodPost, "/session/"+url.PathEscape(sessionID)+"/message", reqBody)
	if err != nil {
		return nil, err
	}
	return unwrapData(body), nil
}

// ListMessages returns the message list exactly as the server sent it,
// either a bare array or a {data: [...]} envelope.
func (c *Client) ListMessages(ctx context.Context, sessionID string) (MessageListPayload, error) {
	return c.do(ctx, "get_messages", http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/message", nil)
}

// ListSessions returns all sessions known to the server
func (c *Client) ListSessions(ctx context.Context) (SessionListPayload, error) {
	body, err := c.do(ctx, "get_sessions", http.MethodGet, "/session", nil)
	if err != nil {
		return nil, err
	}
	return unwrapData(body), nil
}

// GetAppInfo returns server app info; it doubles as the connectivity probe
func (c *Client) GetAppInfo(ctx context.Context) (AppInfoPayload, error) {
	key := cache.GenerateCacheKey(c.baseURL, "app")
	if cached, ok := c.appInfo.Get(key); ok {
		c.logger.Debug("cache hit", "op", "get_app_info")
		return cached, nil
	}

	body, err := c.do(ctx, "get_app_info", http.MethodGet, "/app", nil)
	if err != nil {
		return nil, err
	}
	info := unwrapData(body)
	c.appInfo.Put(key, info)
	return info, nil
}

// do performs one request and returns the response body of a 2xx reply
func (c *Client) do(ctx context.Context, op, method, path string, reqBody any) (json.RawMessage, error) {
	ctx, span := c.tracer.Start(ctx, "opencode."+op,
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("opencode.path", path),
		),
	)
	defer span.End()

	start := time.Now()
	status := 0
	defer func() {
		attrs := metric.WithAttributes(attribute.String("op", op), attribute.Int("status", status))
		if c.duration != nil {
			c.duration.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		}
		if c.requests != nil {
			c.requests.Add(ctx, 1, attrs)
		}
	}()

	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("accept", "application/json")
	if reqBody != nil {
		req.Header.Set("content-type", "application/json")
	}

	c.logger.Debug("opencode request", "op", op, "method", method, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		rerr := &RemoteError{Message: fmt.Sprintf("failed to send request: %v", err), Err: err}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, rerr.Error())
		return nil, rerr
	}
	defer resp.Body.Close()
	status = resp.StatusCode
	span.SetAttributes(attribute.Int("http.status_code", status))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		rerr := &RemoteError{Status: status, Message: fmt.Sprintf("failed to read response: %v", err), Err: err}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, rerr.Error())
		return nil, rerr
	}

	if status < 200 || status > 299 {
		msg := errorMessage(respBody)
		if msg == "" {
			msg = http.StatusText(status)
		}
		rerr := &RemoteError{Status: status, Message: msg}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, rerr.Error())
		c.logger.Warn("opencode request failed", "op", op, "status", status, "error", msg)
		return nil, rerr
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		respBody = []byte("null")
	}
	if !json.Valid(respBody) {
		rerr := &RemoteError{Status: status, Message: "invalid JSON in response"}
		span.RecordError(rerr)
		span.SetStatus(codes.Error, rerr.Error())
		return nil, rerr
	}
	return respBody, nil
}

// unwrapData strips a top-level {data: ...} envelope if there is one
func unwrapData(body json.RawMessage) json.RawMessage {
	parsed := gjson.ParseBytes(body)
	if parsed.IsObject() {
		if data := parsed.Get("data"); data.Exists() && data.Type != gjson.Null {
			return json.RawMessage(data.Raw)
		}
	}
	return body
}
