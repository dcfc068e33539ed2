package amrs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/pkg/circuitbreaker"
)

// Resource selects the REST resource an identifier write targets. Dependant
// identifier writes go through the person resource because a dependant may
// not yet be enrolled as a patient.
type Resource string

const (
	ResourcePatient Resource = "patient"
	ResourcePerson  Resource = "person"
)

// RequestError is returned when the REST service answers with a non-2xx
// status.
type RequestError struct {
	Status int
	Body   string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("amrs request failed with %d: %s", e.Status, e.Body)
}

// ClientConfig holds configuration for the AMRS REST client.
type ClientConfig struct {
	// BaseURL is the REST root, e.g. https://amrs.example.org/ws/rest/v1
	BaseURL string
	// Username and Password authenticate via HTTP basic auth
	Username string
	Password string
	// Timeout bounds each request; zero disables the client-side bound
	Timeout time.Duration
}

// Client is the REST client for the local patient store. Calls go through a
// circuit breaker when one is supplied.
type Client struct {
	config  ClientConfig
	http    *http.Client
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewClient creates an AMRS REST client. A nil breaker disables circuit
// breaking.
func NewClient(cfg ClientConfig, breaker *circuitbreaker.CircuitBreaker, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config:  cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer("amrs-client"),
	}
}

// GetPatient fetches a full patient record.
func (c *Client) GetPatient(ctx context.Context, patientUUID string) (*Patient, error) {
	var patient Patient
	path := fmt.Sprintf("/patient/%s?v=full", patientUUID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

// GetPerson fetches a full person record.
func (c *Client) GetPerson(ctx context.Context, personUUID string) (*Person, error) {
	var person Person
	path := fmt.Sprintf("/person/%s?v=full", personUUID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// UpdatePerson posts a partial demographic update against an existing person.
func (c *Client) UpdatePerson(ctx context.Context, personUUID string, payload interface{}) (*Person, error) {
	var person Person
	path := fmt.Sprintf("/person/%s", personUUID)
	if err := c.doJSON(ctx, http.MethodPost, path, payload, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// CreatePerson creates a new person record.
func (c *Client) CreatePerson(ctx context.Context, payload interface{}) (*Person, error) {
	var person Person
	if err := c.doJSON(ctx, http.MethodPost, "/person", payload, &person); err != nil {
		return nil, err
	}
	return &person, nil
}

// CreatePatient enrolls a person as a patient with identifiers.
func (c *Client) CreatePatient(ctx context.Context, payload interface{}) (*Patient, error) {
	var patient Patient
	if err := c.doJSON(ctx, http.MethodPost, "/patient", payload, &patient); err != nil {
		return nil, err
	}
	return &patient, nil
}

// WriteIdentifier assigns or updates an identifier on a patient or person.
// An empty identifierUUID creates a new identifier slot; a non-empty one
// updates that existing identifier in place.
func (c *Client) WriteIdentifier(ctx context.Context, resource Resource, ownerUUID, identifierUUID string, payload IdentifierPayload) error {
	path := fmt.Sprintf("/%s/%s/identifier", resource, ownerUUID)
	if identifierUUID != "" {
		path = fmt.Sprintf("%s/%s", path, identifierUUID)
	}
	return c.doJSON(ctx, http.MethodPost, path, payload, nil)
}

// GenerateIdentifier draws the next identifier from an idgen source.
func (c *Client) GenerateIdentifier(ctx context.Context, sourceUUID string) (string, error) {
	var resp struct {
		Identifier string `json:"identifier"`
	}
	path := fmt.Sprintf("/idgen/identifiersource/%s/identifier", sourceUUID)
	if err := c.doJSON(ctx, http.MethodPost, path, struct{}{}, &resp); err != nil {
		return "", err
	}
	return resp.Identifier, nil
}

// CreateRelationship links two persons.
func (c *Client) CreateRelationship(ctx context.Context, payload RelationshipPayload) (*Relationship, error) {
	var rel Relationship
	if err := c.doJSON(ctx, http.MethodPost, "/relationship", payload, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetRelationships fetches a person's relationships oriented around that
// person.
func (c *Client) GetRelationships(ctx context.Context, personUUID string) ([]MappedRelationship, error) {
	var resp ListResponse[Relationship]
	path := fmt.Sprintf("/relationship?person=%s&v=full", url.QueryEscape(personUUID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return MapRelationships(personUUID, resp.Results), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out interface{}) error {
	ctx, span := c.tracer.Start(ctx, "amrs_request",
		trace.WithAttributes(
			attribute.String("method", method),
			attribute.String("path", path)))
	defer span.End()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	start := time.Now()
	// Only the transport call runs through the breaker. Non-2xx answers are
	// routine (unknown uuid lookups return 404) and must not trip it.
	do := func() (interface{}, error) {
		return c.http.Do(req)
	}

	var result interface{}
	if c.breaker != nil {
		result, err = c.breaker.Execute(ctx, do)
	} else {
		result, err = do()
	}
	if err != nil {
		span.RecordError(err)
		c.logger.Warn("amrs call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("amrs request: %w", err)
	}
	resp := result.(*http.Response)
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{Status: resp.StatusCode, Body: string(text)}
		span.RecordError(reqErr)
		c.logger.Warn("amrs call rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return reqErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(text, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
