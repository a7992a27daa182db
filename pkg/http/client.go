package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/astro-web3/coffee-drinks/pkg/tracer"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTimeout       = 60 * time.Second
	DefaultRetry         = 2
	DefaultRetryWait     = 100 * time.Millisecond
	DefaultRetryMaxWait  = 2 * time.Second
	defaultSpanName      = "http.Request"
	defaultAcceptHeader  = "application/json"
	defaultContentHeader = "application/json"
)

var (
	//nolint:gochecknoglobals // Global HTTP client is intentional for application-wide requests
	defaultClient *Client
	//nolint:gochecknoglobals // Global once is intentional for thread-safe initialization
	once sync.Once
)

// Client is a traced resty client. Each outbound call is bounded by Timeout
// and retried at most RetryCount times on transport errors and 5xx responses.
type Client struct {
	resty *resty.Client
}

type ClientOption func(*resty.Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *resty.Client) {
		if d > 0 {
			c.SetTimeout(d)
		}
	}
}

func WithRetryCount(n int) ClientOption {
	return func(c *resty.Client) {
		if n >= 0 {
			c.SetRetryCount(n)
		}
	}
}

func WithRetryWait(wait, maxWait time.Duration) ClientOption {
	return func(c *resty.Client) {
		c.SetRetryWaitTime(wait).SetRetryMaxWaitTime(maxWait)
	}
}

func NewClient(opts ...ClientOption) *Client {
	rc := resty.New().
		SetTimeout(DefaultTimeout).
		SetRetryCount(DefaultRetry).
		SetRetryWaitTime(DefaultRetryWait).
		SetRetryMaxWaitTime(DefaultRetryMaxWait).
		SetHeader("Content-Type", defaultContentHeader).
		SetHeader("Accept", defaultAcceptHeader).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || (r != nil && r.StatusCode() >= http.StatusInternalServerError)
		})

	for _, opt := range opts {
		opt(rc)
	}

	return &Client{resty: rc}
}

// Default returns the shared HTTP client instance.
func Default() *Client {
	once.Do(func() {
		defaultClient = NewClient()
	})
	return defaultClient
}

type RequestOption func(*resty.Request)

func WithAuthToken(token string) RequestOption {
	return func(r *resty.Request) {
		r.SetAuthToken(token)
	}
}

func WithBody(body any) RequestOption {
	return func(r *resty.Request) {
		r.SetBody(body)
	}
}

func WithResult(result any) RequestOption {
	return func(r *resty.Request) {
		if result != nil {
			r.SetResult(result)
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

func (c *Client) Request(ctx context.Context, method, url string, opts ...RequestOption) (*resty.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := startClientSpan(ctx, defaultSpanName, method, url)
	defer span.End()

	request := c.resty.R().SetContext(ctx)
	for _, opt := range opts {
		opt(request)
	}

	injectTracingHeaders(ctx, request)

	resp, err := request.Execute(method, url)

	recordSpan(span, resp, err)
	return resp, err
}

func (c *Client) Get(ctx context.Context, url string, opts ...RequestOption) (*resty.Response, error) {
	return c.Request(ctx, http.MethodGet, url, opts...)
}

func startClientSpan(
	ctx context.Context,
	spanName string,
	method string,
	url string,
) (context.Context, trace.Span) {
	return tracer.Start(ctx, spanName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", url),
		),
	)
}

func recordSpan(span trace.Span, resp *resty.Response, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	if resp == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("http.status_code", resp.StatusCode()),
		attribute.Int("http.attempts", resp.Request.Attempt),
	)
	if resp.IsError() {
		span.SetStatus(codes.Error, resp.Status())
		return
	}
	span.SetStatus(codes.Ok, "")
}
