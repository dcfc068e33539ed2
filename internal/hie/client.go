package hie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/pkg/circuitbreaker"
)

// DefaultRequestTimeout bounds each outbound registry call.
const DefaultRequestTimeout = 10 * time.Second

// RequestError is returned when the registry answers with a non-2xx status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("registry request failed with %d: %s", e.Status, e.Body)
}

// TimeoutError is returned when the bounded wait on a registry call elapses.
// Distinct from RequestError so callers can surface the two differently.
type TimeoutError struct {
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("registry request timed out after %s", e.Elapsed)
}

// RegistryConfig holds configuration for the registry client.
type RegistryConfig struct {
	// BaseURL is the registry endpoint, e.g. https://registry.example.org/hie
	BaseURL string
	// Timeout bounds each request; zero means DefaultRequestTimeout
	Timeout time.Duration
}

// Registry calls the client-registry search and OTP endpoints. All calls run
// through a circuit breaker so a degraded registry fails fast.
type Registry struct {
	config  RegistryConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewRegistry creates a registry client.
func NewRegistry(cfg RegistryConfig, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRequestTimeout
	}
	return &Registry{
		config:  cfg,
		http:    &http.Client{},
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer("hie-registry"),
	}
}

// RequestOTP asks the registry to send a verification OTP to the client's
// registered phone.
func (r *Registry) RequestOTP(ctx context.Context, req OTPRequest) (*OTPResponse, error) {
	var resp OTPResponse
	if err := r.postJSON(ctx, "/client/send-custom-otp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ValidateOTP checks an OTP against the session it was issued for.
func (r *Registry) ValidateOTP(ctx context.Context, req OTPValidation) (*OTPValidationResponse, error) {
	var resp OTPValidationResponse
	if err := r.postJSON(ctx, "/client/validate-custom-otp", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Search looks up registry records by identification number and type.
func (r *Registry) Search(ctx context.Context, req SearchRequest) ([]Client, error) {
	var resp []Client
	if err := r.postJSON(ctx, "/client/search", req, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// postJSON performs a bounded JSON POST through the circuit breaker.
func (r *Registry) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	ctx, span := r.tracer.Start(ctx, "registry_post",
		trace.WithAttributes(attribute.String("path", path)))
	defer span.End()

	start := time.Now()
	do := func() (interface{}, error) {
		return nil, r.doPost(ctx, path, payload, out)
	}

	var err error
	if r.breaker != nil {
		_, err = r.breaker.Execute(ctx, do)
	} else {
		_, err = do()
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Elapsed: time.Since(start)}
		}
		span.RecordError(err)
		r.logger.Warn("registry call failed",
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *Registry) doPost(ctx context.Context, path string, payload, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return context.DeadlineExceeded
		}
		return fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Status: resp.StatusCode, Body: string(text)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
