package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
	"github.com/ampath/go-hie/pkg/workerpool"
)

// LocalStore is the surface of the local patient store the service writes
// through.
type LocalStore interface {
	GetPatient(ctx context.Context, patientUUID string) (*amrs.Patient, error)
	GetPerson(ctx context.Context, personUUID string) (*amrs.Person, error)
	UpdatePerson(ctx context.Context, personUUID string, payload interface{}) (*amrs.Person, error)
	CreatePerson(ctx context.Context, payload interface{}) (*amrs.Person, error)
	CreatePatient(ctx context.Context, payload interface{}) (*amrs.Patient, error)
	WriteIdentifier(ctx context.Context, resource amrs.Resource, ownerUUID, identifierUUID string, payload amrs.IdentifierPayload) error
	CreateRelationship(ctx context.Context, payload amrs.RelationshipPayload) (*amrs.Relationship, error)
	GetRelationships(ctx context.Context, personUUID string) ([]amrs.MappedRelationship, error)
	GenerateIdentifier(ctx context.Context, sourceUUID string) (string, error)
}

// Publisher emits domain events after successful writes.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// AuditStore records every reconciliation write durably.
type AuditStore interface {
	Record(ctx context.Context, event *Event) error
}

// Config holds service configuration.
type Config struct {
	// LocationUUID stamps every identifier write
	LocationUUID string
	// UniversalIDSourceUUID is the idgen source new registrations draw from
	UniversalIDSourceUUID string
}

// Service orchestrates selective syncs, dependant creation and new-patient
// registration against the local store.
type Service struct {
	store     LocalStore
	pool      *workerpool.Pool
	publisher Publisher
	audit     AuditStore
	config    Config
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewService creates the reconciliation service. The worker pool bounds
// identifier write fan-out and may be nil, in which case writes run
// sequentially. Publisher and audit store are optional.
func NewService(store LocalStore, pool *workerpool.Pool, publisher Publisher, audit AuditStore, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     store,
		pool:      pool,
		publisher: publisher,
		audit:     audit,
		config:    cfg,
		logger:    logger,
		tracer:    otel.Tracer("reconcile-service"),
	}
}

// SyncRequest carries one selective sync: which local record to write and
// the collapsed field selection.
type SyncRequest struct {
	PatientUUID   string
	FromDependant bool
	Selection     map[string]string
	CorrelationID string
}

// SyncResult reports which writes landed.
type SyncResult struct {
	PatientUUID        string   `json:"patientUuid"`
	PersonFields       []string `json:"personFields"`
	IdentifiersWritten []string `json:"identifiersWritten"`
	IdentifiersFailed  []string `json:"identifiersFailed,omitempty"`
}

// identifierWrite is the worker pool payload for one identifier write.
type identifierWrite struct {
	field          string
	resource       amrs.Resource
	ownerUUID      string
	identifierUUID string
	payload        amrs.IdentifierPayload
}

// Sync writes the selected fields to the local record. The person update
// goes first in a single call; identifier writes fan out afterwards, each
// independent. A failed identifier write never rolls back the rest: the
// caller gets a PartialWriteError naming what landed and what did not.
func (s *Service) Sync(ctx context.Context, req SyncRequest) (*SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync_record",
		trace.WithAttributes(
			attribute.String("patient_uuid", req.PatientUUID),
			attribute.Bool("from_dependant", req.FromDependant)))
	defer span.End()

	if req.PatientUUID == "" {
		return nil, &SyncError{Field: "patientUuid", Code: CodeValidationFailure, Message: "patient uuid is required"}
	}
	if len(req.Selection) == 0 {
		return nil, &SyncError{Field: "selection", Code: CodeValidationFailure, Message: "no fields selected"}
	}

	identifiers, err := s.localIdentifiers(ctx, req)
	if err != nil {
		return nil, classify("fetch", err)
	}

	result := &SyncResult{PatientUUID: req.PatientUUID}

	personPayload := BuildPersonPayload(req.Selection)
	if _, err := s.store.UpdatePerson(ctx, req.PatientUUID, personPayload); err != nil {
		span.RecordError(err)
		return nil, classify("person", err)
	}
	for _, field := range PersonSyncFields {
		if _, ok := req.Selection[field]; ok {
			result.PersonFields = append(result.PersonFields, field)
		}
	}
	s.logger.Info("person record updated",
		zap.String("patient_uuid", req.PatientUUID),
		zap.Strings("fields", result.PersonFields))

	writes := s.identifierWrites(req, identifiers)
	written, failed, causes := s.runIdentifierWrites(ctx, writes)
	result.IdentifiersWritten = written
	result.IdentifiersFailed = failed

	s.emit(ctx, req.PatientUUID, EventRecordSynced, RecordSyncedData{
		PatientUUID:        req.PatientUUID,
		RegistryID:         req.Selection[FieldCr],
		PersonFields:       result.PersonFields,
		IdentifiersWritten: written,
		IdentifiersFailed:  failed,
		FromDependant:      req.FromDependant,
	}, req.CorrelationID)

	if len(failed) > 0 {
		succeeded := append(append([]string{}, result.PersonFields...), written...)
		return result, &PartialWriteError{Succeeded: succeeded, Failed: failed, Causes: causes}
	}
	return result, nil
}

// localIdentifiers loads the target record's current identifiers so writes
// can aim at existing slots.
func (s *Service) localIdentifiers(ctx context.Context, req SyncRequest) ([]amrs.Identifier, error) {
	if req.FromDependant {
		person, err := s.store.GetPerson(ctx, req.PatientUUID)
		if err != nil {
			return nil, err
		}
		return person.Identifiers, nil
	}
	patient, err := s.store.GetPatient(ctx, req.PatientUUID)
	if err != nil {
		return nil, err
	}
	ids := patient.Identifiers
	if len(ids) == 0 {
		ids = patient.Person.Identifiers
	}
	return ids, nil
}

// identifierWrites plans the identifier fan-out. Empty selected values are
// skipped; an identifier never gets blanked. A write targets the existing
// identifier's own uuid when the type is already assigned, and an empty slot
// otherwise.
func (s *Service) identifierWrites(req SyncRequest, existing []amrs.Identifier) []identifierWrite {
	resource := amrs.ResourcePatient
	if req.FromDependant {
		resource = amrs.ResourcePerson
	}

	var writes []identifierWrite
	for _, field := range IdentifierSyncFields {
		value, ok := req.Selection[field]
		if !ok || value == "" {
			continue
		}
		typeUUID := IdentifierTypeUUID(IdentifierFieldLabel(field))
		var slot string
		if id := amrs.FindIdentifier(existing, typeUUID); id != nil {
			slot = id.UUID
		}
		writes = append(writes, identifierWrite{
			field:          field,
			resource:       resource,
			ownerUUID:      req.PatientUUID,
			identifierUUID: slot,
			payload:        BuildIdentifierPayload(field, value, s.config.LocationUUID),
		})
	}
	return writes
}

func (s *Service) runIdentifierWrites(ctx context.Context, writes []identifierWrite) (written, failed []string, causes []error) {
	if len(writes) == 0 {
		return nil, nil, nil
	}

	type outcome struct {
		field string
		err   error
	}
	outcomes := make([]outcome, 0, len(writes))

	if s.pool != nil {
		chans := make(map[string]<-chan *workerpool.Result, len(writes))
		for i := range writes {
			w := writes[i]
			done, err := s.pool.Dispatch(&workerpool.Task{
				ID:      fmt.Sprintf("identifier-%s-%s", w.ownerUUID, w.field),
				Payload: &w,
				Context: ctx,
			})
			if err != nil {
				outcomes = append(outcomes, outcome{field: w.field, err: err})
				continue
			}
			chans[w.field] = done
		}
		for field, done := range chans {
			select {
			case <-ctx.Done():
				outcomes = append(outcomes, outcome{field: field, err: ctx.Err()})
			case res := <-done:
				outcomes = append(outcomes, outcome{field: field, err: res.Error})
			}
		}
	} else {
		for _, w := range writes {
			err := s.store.WriteIdentifier(ctx, w.resource, w.ownerUUID, w.identifierUUID, w.payload)
			outcomes = append(outcomes, outcome{field: w.field, err: err})
		}
	}

	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o.field)
			causes = append(causes, classify(o.field, o.err))
			s.logger.Warn("identifier write failed",
				zap.String("field", o.field),
				zap.Error(o.err))
		} else {
			written = append(written, o.field)
		}
	}
	sort.Strings(written)
	sort.Strings(failed)
	return written, failed, causes
}

// IdentifierWorker returns the worker function a pool serving this service
// must be constructed with.
func IdentifierWorker(store LocalStore) workerpool.WorkerFunc {
	return func(ctx context.Context, task *workerpool.Task) *workerpool.Result {
		w, ok := task.Payload.(*identifierWrite)
		if !ok {
			return &workerpool.Result{TaskID: task.ID, Success: false, Error: errors.New("unexpected task payload")}
		}
		if err := store.WriteIdentifier(ctx, w.resource, w.ownerUUID, w.identifierUUID, w.payload); err != nil {
			return &workerpool.Result{TaskID: task.ID, Success: false, Error: err}
		}
		return &workerpool.Result{TaskID: task.ID, Success: true}
	}
}

// emit publishes and audits a domain event, best effort.
func (s *Service) emit(ctx context.Context, aggregateID string, eventType EventType, data interface{}, correlationID string) {
	event, err := NewEvent(aggregateID, eventType, data)
	if err != nil {
		s.logger.Error("encode event", zap.Error(err))
		return
	}
	event.CorrelationID = correlationID
	// Publish stages the outbox entry and the audit row in one transaction,
	// so the standalone audit store only runs when no publisher is wired.
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("event publish failed",
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
		return
	}
	if s.audit != nil {
		if err := s.audit.Record(ctx, event); err != nil {
			s.logger.Error("audit record failed",
				zap.String("event_type", string(eventType)),
				zap.Error(err))
		}
	}
}

// classify wraps a transport error into the failure taxonomy.
func classify(field string, err error) error {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return err
	}
	var timeout *hie.TimeoutError
	if errors.As(err, &timeout) {
		return &SyncError{Field: field, Code: CodeTimeoutFailure, Message: "request timed out", Cause: err}
	}
	var reqErr *amrs.RequestError
	if errors.As(err, &reqErr) {
		code := CodeNetworkFailure
		switch {
		case reqErr.Status == 404:
			code = CodeNotFound
		case reqErr.Status >= 400 && reqErr.Status < 500:
			code = CodeValidationFailure
		}
		return &SyncError{Field: field, Code: code, Message: "store rejected the request", Cause: err}
	}
	var hieErr *hie.RequestError
	if errors.As(err, &hieErr) {
		code := CodeNetworkFailure
		if hieErr.Status >= 400 && hieErr.Status < 500 {
			code = CodeValidationFailure
		}
		return &SyncError{Field: field, Code: code, Message: "registry rejected the request", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &SyncError{Field: field, Code: CodeTimeoutFailure, Message: "request timed out", Cause: err}
	}
	return &SyncError{Field: field, Code: CodeNetworkFailure, Message: "request failed", Cause: err}
}
