package portalhttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/icos-carbon-portal/cpclient/cperr"
)

// ErrCircuitOpen is returned when the endpoint's circuit breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

const tracerName = "github.com/icos-carbon-portal/cpclient/internal/portalhttp"

// Doer abstracts HTTP request execution so tests can stub the transport.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the resilient portal client.
type ClientConfig struct {
	// Name identifies the endpoint for breaker naming and logs.
	Name string

	// Timeout bounds individual HTTP calls. Default 10s.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts on transient failures.
	// Default 3.
	MaxRetries uint64

	// InitialInterval is the first retry backoff interval. Default 100ms.
	InitialInterval time.Duration

	// MaxInterval caps the retry backoff interval. Default 5s.
	MaxInterval time.Duration

	// Breaker overrides the circuit breaker settings.
	Breaker *BreakerConfig

	// Logger for per-request debug logging.
	Logger zerolog.Logger
}

// Client executes portal requests with retry and circuit breaking. Retries
// apply to network errors and 5xx responses; 4xx responses are returned to
// the caller unchanged.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*result]
	tracer     trace.Tracer
	logger     zerolog.Logger
	cfg        ClientConfig
}

// result carries a response through the breaker; 5xx responses travel as
// errors so they count as breaker failures.
type result struct {
	resp *http.Response
}

type serverStatusError struct {
	status int
}

func (e *serverStatusError) Error() string {
	return "server error: " + http.StatusText(e.status)
}

// New creates a resilient portal client.
func New(cfg ClientConfig) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 5 * time.Second
	}

	bcfg := BreakerConfig{Name: cfg.Name}
	if cfg.Breaker != nil {
		bcfg = *cfg.Breaker
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    newBreaker(bcfg),
		tracer:     otel.Tracer(tracerName),
		logger:     cfg.Logger,
		cfg:        cfg,
	}
}

// Do executes the request with retry and circuit breaking. The returned
// response may carry any status code; use CheckResponse to map failures to
// error kinds.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	ctx, span := c.tracer.Start(ctx, c.cfg.Name+" "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		))
	defer span.End()

	requestID := uuid.NewString()
	start := time.Now()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var lastResp *http.Response

	operation := func() error {
		res, err := c.breaker.Execute(func() (*result, error) {
			attempt := req.Clone(ctx)
			attempt.Header.Set("X-Request-Id", requestID)
			r, doErr := c.httpClient.Do(attempt)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				return &result{resp: r}, &serverStatusError{status: r.StatusCode}
			}
			return &result{resp: r}, nil
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(ErrCircuitOpen)
			}
			if res != nil && res.resp != nil {
				lastResp = res.resp
			}
			return err
		}

		lastResp = res.resp
		return nil
	}

	err := backoff.Retry(operation, policy)

	evt := c.logger.Debug().
		Str("endpoint", c.cfg.Name).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Str("request_id", requestID).
		Dur("elapsed", time.Since(start))

	if err != nil {
		if lastResp != nil {
			// 5xx that exhausted retries; hand the response back so the
			// caller can capture the body.
			evt.Int("status", lastResp.StatusCode).Msg("portal request failed")
			span.SetStatus(codes.Error, lastResp.Status)
			return lastResp, nil
		}
		evt.Err(err).Msg("portal request failed")
		span.SetStatus(codes.Error, err.Error())
		return nil, &cperr.RemoteError{Err: err}
	}

	evt.Int("status", lastResp.StatusCode).Msg("portal request")
	span.SetAttributes(attribute.Int("http.status_code", lastResp.StatusCode))
	return lastResp, nil
}

// CheckResponse maps a non-2xx response to the matching error kind, reading
// and closing the body. A 401 becomes an AuthError ("expired" when the body
// says so), anything else a RemoteError with the captured body. On success
// the body is left untouched.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		lower := strings.ToLower(string(body))
		if strings.Contains(lower, "expir") {
			return cperr.NewAuthError("expired")
		}
		return cperr.NewAuthError("invalid")
	}
	return &cperr.RemoteError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}

// NewRequest builds a request with context and the portal client's JSON
// accept header.
func NewRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
