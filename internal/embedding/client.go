package embedding

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-bookstore-backend/internal/observability"
)

// InputType tells the provider how the text will be used.
type InputType string

const (
	InputDocument InputType = "document"
	InputQuery    InputType = "query"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryDelay     = time.Second
	defaultAttemptTimeout = 10 * time.Second
	maxRetryDelay         = 30 * time.Second
	maxErrorBody          = 512
)

// ErrEmptyInput is returned for blank text. The provider is not called.
var ErrEmptyInput = errors.New("embedding: empty input")

// ErrDimensionMismatch is returned when the provider answers with a vector
// of a different length than configured. It is not retried.
var ErrDimensionMismatch = errors.New("embedding: dimension mismatch")

// Config configures the provider client.
type Config struct {
	URL            string
	APIKey         string
	Model          string
	MaxAttempts    int           // total attempts per call
	RetryDelay     time.Duration // fixed delay between attempts; escalated on 429
	AttemptTimeout time.Duration // per-attempt HTTP timeout
	CallBudget     time.Duration // bound on one Embed call including retries; 0 = none
	Dimensions     int           // requested and enforced vector length; 0 = provider default
	Breaker        bool          // wrap calls in a circuit breaker
}

// Client calls a Voyage-compatible embeddings endpoint.
type Client struct {
	cfg     Config
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]float32]
	log     zerolog.Logger

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

type embedRequest struct {
	Input     []string `json:"input"`
	Model     string   `json:"model"`
	InputType string   `json:"input_type,omitempty"`
	Dimension int      `json:"output_dimension,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

type embedError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail string `json:"detail"`
}

// statusError is a non-2xx provider response.
type statusError struct {
	code       int
	retryAfter time.Duration
	msg        string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("embedding provider returned %d: %s", e.code, e.msg)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// NewClient builds a client. A nil httpClient gets a traced transport.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = defaultAttemptTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: observability.TracedTransport("embedding", nil)}
	}
	c := &Client{
		cfg:   cfg,
		http:  httpClient,
		log:   log.With().Str("component", "embedding").Logger(),
		sleep: sleepCtx,
	}
	if cfg.Breaker {
		c.breaker = newBreaker(c.log)
	}
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.cfg.Model }

// Embed returns the vector for text. Transient failures are retried; once
// the attempts are exhausted the result is Unavailable, never an error.
func (c *Client) Embed(ctx context.Context, text string, inputType InputType) Outcome {
	ctx, span := otel.Tracer("embedding").Start(ctx, "Client.Embed")
	defer span.End()
	span.SetAttributes(attribute.String("embedding.input_type", string(inputType)))

	text = strings.TrimSpace(text)
	if text == "" {
		return Unavailable(ErrEmptyInput)
	}
	if c.cfg.CallBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CallBudget)
		defer cancel()
	}

	var (
		vec []float32
		err error
	)
	if c.breaker != nil {
		vec, err = c.breaker.Execute(func() ([]float32, error) {
			return c.embedWithRetry(ctx, text, inputType)
		})
	} else {
		vec, err = c.embedWithRetry(ctx, text, inputType)
	}

	switch {
	case err == nil && len(vec) > 0:
		observability.EmbeddingRequests.WithLabelValues("available").Inc()
		return Available(vec)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		observability.EmbeddingRequests.WithLabelValues("rejected").Inc()
		return Unavailable(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	default:
		observability.EmbeddingRequests.WithLabelValues("unavailable").Inc()
		span.RecordError(err)
		c.log.Warn().Err(err).Str("input_type", string(inputType)).Msg("embedding unavailable")
		return Unavailable(fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
}

func (c *Client) embedWithRetry(ctx context.Context, text string, inputType InputType) ([]float32, error) {
	body, err := json.Marshal(embedRequest{
		Input:     []string{text},
		Model:     c.cfg.Model,
		InputType: string(inputType),
		Dimension: c.cfg.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.retryDelay(attempt, lastErr)); err != nil {
				return nil, err
			}
		}

		vec, err := c.attempt(ctx, body)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var se *statusError
		if (errors.As(err, &se) && !se.retryable()) || errors.Is(err, ErrDimensionMismatch) {
			return nil, err
		}
		c.log.Debug().Err(err).Int("attempt", attempt+1).Msg("embedding attempt failed")
	}
	return nil, fmt.Errorf("max attempts (%d) exceeded: %w", c.cfg.MaxAttempts, lastErr)
}

// retryDelay is the fixed delay, escalated after a 429: RetryDelay·2^attempt
// or the provider's Retry-After when longer, capped at maxRetryDelay.
func (c *Client) retryDelay(attempt int, lastErr error) time.Duration {
	d := c.cfg.RetryDelay
	var se *statusError
	if errors.As(lastErr, &se) && se.code == http.StatusTooManyRequests {
		d = c.cfg.RetryDelay << uint(attempt)
		if se.retryAfter > d {
			d = se.retryAfter
		}
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

func (c *Client) attempt(ctx context.Context, body []byte) ([]float32, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(actx.Err(), context.DeadlineExceeded) {
			observability.EmbeddingAttempts.WithLabelValues("timeout").Inc()
		} else {
			observability.EmbeddingAttempts.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.EmbeddingAttempts.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		observability.EmbeddingAttempts.WithLabelValues(statusClass(resp.StatusCode)).Inc()
		return nil, &statusError{
			code:       resp.StatusCode,
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			msg:        errorMessage(raw),
		}
	}
	observability.EmbeddingAttempts.WithLabelValues("2xx").Inc()

	var out embedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("no embedding returned")
	}
	vec := out.Data[0].Embedding
	if c.cfg.Dimensions > 0 && len(vec) != c.cfg.Dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), c.cfg.Dimensions)
	}
	return vec, nil
}

func statusClass(code int) string {
	switch {
	case code == http.StatusTooManyRequests:
		return "429"
	case code >= 500:
		return "5xx"
	default:
		return "4xx"
	}
}

func errorMessage(raw []byte) string {
	var e embedError
	if json.Unmarshal(raw, &e) == nil {
		if e.Error.Message != "" {
			return e.Error.Message
		}
		if e.Detail != "" {
			return e.Detail
		}
	}
	if len(raw) > maxErrorBody {
		raw = raw[:maxErrorBody]
	}
	return string(raw)
}

// parseRetryAfter reads a delay-seconds Retry-After value.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
