package backend

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kirillkom/invoice-hub-agent/internal/infrastructure/resilience"
)

// TokenFunc returns the bearer token to send, or "" for anonymous calls.
type TokenFunc func(ctx context.Context) (string, error)

type Options struct {
	Timeout       time.Duration
	UploadTimeout time.Duration
	Resilience    resilience.Config
	Observer      resilience.Observer
	Transport     http.RoundTripper
}

// Client talks to the invoice dashboard REST API. One instance serves every backend port.
type Client struct {
	baseURL      string
	token        TokenFunc
	httpClient   *http.Client
	uploadClient *http.Client
	executor     *resilience.Executor
}

func New(baseURL string, token TokenFunc, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 5 * time.Minute
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	transport := otelhttp.NewTransport(base)

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		httpClient:   &http.Client{Timeout: opts.Timeout, Transport: transport},
		uploadClient: &http.Client{Timeout: opts.UploadTimeout, Transport: transport},
		executor:     resilience.NewExecutor(opts.Resilience).WithObserver(opts.Observer),
	}
}
