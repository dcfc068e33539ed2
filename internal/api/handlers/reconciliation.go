// Package handlers provides HTTP handlers for the reconciliation API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/api/middleware"
	"github.com/ampath/go-hie/internal/hie"
	"github.com/ampath/go-hie/internal/infrastructure/postgres"
	"github.com/ampath/go-hie/internal/observability/metrics"
	"github.com/ampath/go-hie/internal/reconcile"
	"github.com/ampath/go-hie/pkg/idempotency"
)

// ReconciliationHandler handles record comparison and sync endpoints
type ReconciliationHandler struct {
	service  *reconcile.Service
	registry *hie.Registry
	store    reconcile.LocalStore
	events   *postgres.EventStore
	inbox    *idempotency.Inbox
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReconciliationHandler creates a new handler. Events, inbox and metrics
// are optional.
func NewReconciliationHandler(
	service *reconcile.Service,
	registry *hie.Registry,
	store reconcile.LocalStore,
	events *postgres.EventStore,
	inbox *idempotency.Inbox,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ReconciliationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationHandler{
		service:  service,
		registry: registry,
		store:    store,
		events:   events,
		inbox:    inbox,
		metrics:  m,
		logger:   logger,
	}
}

// Routes returns the handler routes
func (h *ReconciliationHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/registry/search", h.Search)
	r.Post("/registry/otp", h.RequestOTP)
	r.Post("/registry/otp/validate", h.ValidateOTP)
	r.Post("/patients/{uuid}/compare", h.Compare)
	r.Post("/patients/{uuid}/sync", h.Sync)
	r.Get("/patients/{uuid}/relationships", h.Relationships)
	r.Post("/patients/{uuid}/dependants/resolve", h.ResolveDependants)
	r.Post("/patients/{uuid}/dependants", h.CreateDependant)
	r.Get("/patients/{uuid}/events", h.Events)
	r.Post("/registrations", h.Register)
	return r
}

// Search handles POST /registry/search
func (h *ReconciliationHandler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req hie.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.IdentificationNumber == "" || req.IdentificationType == "" {
		h.jsonError(w, "identificationNumber and identificationType are required", http.StatusBadRequest)
		return
	}

	results, err := h.registry.Search(ctx, req)
	if err != nil {
		h.countLookup("error")
		h.registryError(w, err)
		return
	}
	h.countLookup("ok")
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

// RequestOTP handles POST /registry/otp
func (h *ReconciliationHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req hie.OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.registry.RequestOTP(r.Context(), req)
	if err != nil {
		h.registryError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// ValidateOTP handles POST /registry/otp/validate
func (h *ReconciliationHandler) ValidateOTP(w http.ResponseWriter, r *http.Request) {
	var req hie.OTPValidation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	resp, err := h.registry.ValidateOTP(r.Context(), req)
	if err != nil {
		h.registryError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// CompareRequest carries the registry record to compare against the local
// patient.
type CompareRequest struct {
	Client        hie.Client `json:"client"`
	FromDependant bool       `json:"fromDependant,omitempty"`
}

// CompareResponse is the side-by-side field comparison.
type CompareResponse struct {
	PatientUUID string                    `json:"patientUuid"`
	Rows        []reconcile.ComparisonRow `json:"rows"`
}

// Compare handles POST /patients/{uuid}/compare
func (h *ReconciliationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("reconciliation-handler")
	ctx, span := tracer.Start(ctx, "compare_records")
	defer span.End()

	patientUUID := chi.URLParam(r, "uuid")
	span.SetAttributes(attribute.String("patient_uuid", patientUUID))

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	patient, err := h.loadPatient(ctx, patientUUID, req.FromDependant)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	rows := reconcile.Compare(&req.Client, patient)
	if h.metrics != nil {
		h.metrics.ComparisonsTotal.Inc()
	}
	h.writeJSON(w, http.StatusOK, CompareResponse{PatientUUID: patientUUID, Rows: rows})
}

// SyncRequest is the request body for a selective sync. SelectAll takes
// every external value from a fresh comparison instead of an explicit
// selection; it requires the registry record in Client.
type SyncRequest struct {
	FromDependant bool                      `json:"fromDependant,omitempty"`
	Selection     []reconcile.SelectedField `json:"selection"`
	SelectAll     bool                      `json:"selectAll,omitempty"`
	Client        *hie.Client               `json:"client,omitempty"`
}

// Sync handles POST /patients/{uuid}/sync
func (h *ReconciliationHandler) Sync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tracer := otel.Tracer("reconciliation-handler")
	ctx, span := tracer.Start(ctx, "sync_record")
	defer span.End()

	patientUUID := chi.URLParam(r, "uuid")
	span.SetAttributes(attribute.String("patient_uuid", patientUUID))

	var req SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var chosen map[string]string
	if req.SelectAll {
		if req.Client == nil {
			h.jsonError(w, "selectAll requires the registry record", http.StatusBadRequest)
			return
		}
		patient, err := h.loadPatient(ctx, patientUUID, req.FromDependant)
		if err != nil {
			h.serviceError(w, err)
			return
		}
		chosen = reconcile.SelectAllExternal(reconcile.Compare(req.Client, patient))
	} else {
		var selection reconcile.Selection
		for _, entry := range req.Selection {
			selection.Toggle(true, entry.Field, entry.Value, false)
		}
		chosen = selection.Collapse()
	}

	start := time.Now()
	result, err := h.service.Sync(ctx, reconcile.SyncRequest{
		PatientUUID:   patientUUID,
		FromDependant: req.FromDependant,
		Selection:     chosen,
		CorrelationID: middleware.GetRequestID(ctx),
	})
	if h.metrics != nil {
		h.metrics.SyncDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		var partial *reconcile.PartialWriteError
		if errors.As(err, &partial) {
			h.countSync("partial")
			if result != nil {
				h.countIdentifierWrites("ok", len(result.IdentifiersWritten))
			}
			h.countIdentifierWrites("error", len(partial.Failed))
			h.writeJSON(w, http.StatusMultiStatus, map[string]interface{}{
				"result":    result,
				"succeeded": partial.Succeeded,
				"failed":    partial.Failed,
				"error":     partial.Error(),
			})
			return
		}
		h.countSync("error")
		h.serviceError(w, err)
		return
	}
	h.countSync("ok")
	h.countIdentifierWrites("ok", len(result.IdentifiersWritten))
	h.writeJSON(w, http.StatusOK, result)
}

// Relationships handles GET /patients/{uuid}/relationships
func (h *ReconciliationHandler) Relationships(w http.ResponseWriter, r *http.Request) {
	patientUUID := chi.URLParam(r, "uuid")
	relationships, err := h.store.GetRelationships(r.Context(), patientUUID)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"relationships": relationships})
}

// ResolveRequest carries the registry record whose dependants get resolved.
type ResolveRequest struct {
	Client hie.Client `json:"client"`
}

// ResolveDependants handles POST /patients/{uuid}/dependants/resolve
func (h *ReconciliationHandler) ResolveDependants(w http.ResponseWriter, r *http.Request) {
	patientUUID := chi.URLParam(r, "uuid")

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resolutions, err := h.service.ResolveDependants(r.Context(), patientUUID, &req.Client)
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if h.metrics != nil {
		for _, res := range resolutions {
			h.metrics.DependantsResolved.WithLabelValues(string(res.State)).Inc()
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"resolutions": resolutions})
}

// CreateDependantRequest is the request body for creating a dependant.
type CreateDependantRequest struct {
	Dependant hie.Dependant `json:"dependant"`
}

// CreateDependant handles POST /patients/{uuid}/dependants
func (h *ReconciliationHandler) CreateDependant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientUUID := chi.URLParam(r, "uuid")

	var req CreateDependantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateDependant(ctx, h.inbox, reconcile.DependantCreateRequest{
		PrimaryUUID:   patientUUID,
		Dependant:     req.Dependant,
		CorrelationID: middleware.GetRequestID(ctx),
	})
	if err != nil {
		var partial *reconcile.PartialWriteError
		if errors.As(err, &partial) {
			h.writeJSON(w, http.StatusMultiStatus, map[string]interface{}{
				"result":    result,
				"succeeded": partial.Succeeded,
				"failed":    partial.Failed,
				"error":     partial.Error(),
			})
			return
		}
		h.serviceError(w, err)
		return
	}
	if h.metrics != nil && !result.Duplicate {
		h.metrics.DependantsCreated.Inc()
	}
	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	h.writeJSON(w, status, result)
}

// Events handles GET /patients/{uuid}/events
func (h *ReconciliationHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		h.jsonError(w, "event history not configured", http.StatusNotFound)
		return
	}
	patientUUID := chi.URLParam(r, "uuid")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.events.History(r.Context(), patientUUID, limit)
	if err != nil {
		h.logger.Error("event history query failed", zap.Error(err))
		h.jsonError(w, "failed to load events", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"events": records})
}

// RegisterRequest is the request body for registering a new patient.
type RegisterRequest struct {
	Client         hie.Client `json:"client"`
	LocationUUID   string     `json:"locationUuid,omitempty"`
	CivilStatus    string     `json:"civilStatus"`
	EducationLevel string     `json:"educationLevel"`
	Religion       string     `json:"religion"`
	Occupation     string     `json:"occupation"`
}

// Register handles POST /registrations
func (h *ReconciliationHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Register(ctx, h.inbox, reconcile.RegistrationRequest{
		Client:         req.Client,
		LocationUUID:   req.LocationUUID,
		CivilStatus:    req.CivilStatus,
		EducationLevel: req.EducationLevel,
		Religion:       req.Religion,
		Occupation:     req.Occupation,
		CorrelationID:  middleware.GetRequestID(ctx),
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.Registrations.Inc()
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// loadPatient fetches the local side of a comparison. Dependants may only
// exist as persons, so those load through the person resource.
func (h *ReconciliationHandler) loadPatient(ctx context.Context, patientUUID string, fromDependant bool) (*amrs.Patient, error) {
	if fromDependant {
		person, err := h.store.GetPerson(ctx, patientUUID)
		if err != nil {
			return nil, err
		}
		return &amrs.Patient{UUID: person.UUID, Identifiers: person.Identifiers, Person: *person}, nil
	}
	return h.store.GetPatient(ctx, patientUUID)
}

func (h *ReconciliationHandler) countSync(outcome string) {
	if h.metrics != nil {
		h.metrics.SyncsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *ReconciliationHandler) countIdentifierWrites(outcome string, n int) {
	if h.metrics != nil && n > 0 {
		h.metrics.IdentifierWrites.WithLabelValues(outcome).Add(float64(n))
	}
}

func (h *ReconciliationHandler) countLookup(outcome string) {
	if h.metrics != nil {
		h.metrics.RegistryLookups.WithLabelValues(outcome).Inc()
	}
}

// registryError maps registry client failures to HTTP statuses.
func (h *ReconciliationHandler) registryError(w http.ResponseWriter, err error) {
	var timeout *hie.TimeoutError
	if errors.As(err, &timeout) {
		h.jsonError(w, "registry request timed out", http.StatusGatewayTimeout)
		return
	}
	var reqErr *hie.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Status >= 400 && reqErr.Status < 500 {
			h.jsonError(w, "registry rejected the request", reqErr.Status)
			return
		}
		h.jsonError(w, "registry unavailable", http.StatusBadGateway)
		return
	}
	h.logger.Error("registry call failed", zap.Error(err))
	h.jsonError(w, "registry unavailable", http.StatusBadGateway)
}

// serviceError maps the failure taxonomy to HTTP statuses.
func (h *ReconciliationHandler) serviceError(w http.ResponseWriter, err error) {
	var syncErr *reconcile.SyncError
	if errors.As(err, &syncErr) {
		switch syncErr.Code {
		case reconcile.CodeValidationFailure:
			h.jsonError(w, syncErr.Error(), http.StatusBadRequest)
		case reconcile.CodeNotFound:
			h.jsonError(w, syncErr.Error(), http.StatusNotFound)
		case reconcile.CodeTimeoutFailure:
			h.jsonError(w, syncErr.Error(), http.StatusGatewayTimeout)
		default:
			h.jsonError(w, syncErr.Error(), http.StatusBadGateway)
		}
		return
	}
	var storeErr *amrs.RequestError
	if errors.As(err, &storeErr) {
		switch {
		case storeErr.Status == 404:
			h.jsonError(w, "record not found", http.StatusNotFound)
		case storeErr.Status >= 400 && storeErr.Status < 500:
			h.jsonError(w, "store rejected the request", http.StatusBadRequest)
		default:
			h.jsonError(w, "store unavailable", http.StatusBadGateway)
		}
		return
	}
	h.logger.Error("request failed", zap.Error(err))
	h.jsonError(w, "internal error", http.StatusInternalServerError)
}

func (h *ReconciliationHandler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *ReconciliationHandler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
