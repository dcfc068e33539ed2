package reconcile

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
	"github.com/ampath/go-hie/pkg/idempotency"
)

// ResolutionState tracks where a registry dependant stands against the
// local store.
type ResolutionState string

const (
	// StateUnresolved means the dependant entry carries no usable record.
	StateUnresolved ResolutionState = "UNRESOLVED"
	// StateLookedUp means local candidates were fetched but not yet decided.
	StateLookedUp ResolutionState = "LOOKED_UP"
	// StateMatched means an existing local person covers this dependant.
	StateMatched ResolutionState = "MATCHED"
	// StateCreateRequired means no local person matches; a create is needed.
	StateCreateRequired ResolutionState = "CREATE_REQUIRED"
)

// DependantResolution is the outcome of resolving one registry dependant.
type DependantResolution struct {
	Relationship      string          `json:"relationship"`
	State             ResolutionState `json:"state"`
	RegistryID        string          `json:"registryId,omitempty"`
	DependantName     string          `json:"dependantName,omitempty"`
	MatchedPersonUUID string          `json:"matchedPersonUuid,omitempty"`
	MatchedRelUUID    string          `json:"matchedRelationshipUuid,omitempty"`
}

// ResolveDependants walks the registry record's dependants and decides, for
// each, whether an existing related person in the local store already covers
// it. Dependant entries without an embedded record stay unresolved rather
// than failing the whole pass.
func (s *Service) ResolveDependants(ctx context.Context, primaryUUID string, external *hie.Client) ([]DependantResolution, error) {
	ctx, span := s.tracer.Start(ctx, "resolve_dependants",
		trace.WithAttributes(attribute.String("patient_uuid", primaryUUID)))
	defer span.End()

	relationships, err := s.store.GetRelationships(ctx, primaryUUID)
	if err != nil {
		span.RecordError(err)
		return nil, classify("relationships", err)
	}

	// Fetch each related person once; a dependant list routinely repeats
	// relatives across entries.
	related := make(map[string]*amrs.Person, len(relationships))
	for _, rel := range relationships {
		if _, ok := related[rel.RelatedPersonUUID]; ok {
			continue
		}
		person, err := s.store.GetPerson(ctx, rel.RelatedPersonUUID)
		if err != nil {
			s.logger.Warn("related person fetch failed",
				zap.String("person_uuid", rel.RelatedPersonUUID),
				zap.Error(err))
			continue
		}
		related[rel.RelatedPersonUUID] = person
	}

	resolutions := make([]DependantResolution, 0, len(external.Dependants))
	for _, dep := range external.Dependants {
		record := dep.Primary()
		res := DependantResolution{
			Relationship: dep.Relationship,
			State:        StateUnresolved,
		}
		if record == nil {
			resolutions = append(resolutions, res)
			continue
		}
		res.RegistryID = record.ID
		res.DependantName = strings.TrimSpace(record.FirstName + " " + record.LastName)
		res.State = StateLookedUp

		for _, rel := range relationships {
			person, ok := related[rel.RelatedPersonUUID]
			if !ok {
				continue
			}
			if dependantMatches(record, person) {
				res.State = StateMatched
				res.MatchedPersonUUID = rel.RelatedPersonUUID
				res.MatchedRelUUID = rel.UUID
				break
			}
		}
		if res.State == StateLookedUp {
			res.State = StateCreateRequired
		}
		resolutions = append(resolutions, res)
	}
	return resolutions, nil
}

// dependantMatches decides whether a local person is the registry dependant.
// A shared identifier settles it; otherwise the full name and birthdate must
// all agree.
func dependantMatches(record *hie.Client, person *amrs.Person) bool {
	for _, field := range IdentifierSyncFields {
		label := IdentifierFieldLabel(field)
		var ext string
		if field == FieldCr {
			ext = record.ID
		} else {
			ext = record.Identification(label)
		}
		if ext == "" {
			continue
		}
		typeUUID := IdentifierTypeUUID(label)
		for _, id := range person.Identifiers {
			if id.IdentifierType.UUID == typeUUID && id.Identifier == ext {
				return true
			}
		}
		// The registry number doubles as a person attribute on records
		// created from earlier syncs.
		if field == FieldCr && person.AttributeValue(ClientRegistryAttrTypeUUID) == ext {
			return true
		}
	}

	name := person.PreferredName
	if !strings.EqualFold(name.GivenName, record.FirstName) ||
		!strings.EqualFold(name.FamilyName, record.LastName) {
		return false
	}
	return normalizeBirthdate(person.Birthdate) == record.DateOfBirth
}

// DependantCreateRequest asks for a registry dependant to be created as a
// local person linked to the primary patient.
type DependantCreateRequest struct {
	PrimaryUUID   string
	Dependant     hie.Dependant
	CorrelationID string
}

// DependantCreateResult reports the created records.
type DependantCreateResult struct {
	DependantUUID    string `json:"dependantUuid"`
	RelationshipUUID string `json:"relationshipUuid,omitempty"`
	Duplicate        bool   `json:"duplicate,omitempty"`
}

// CreateDependant creates a local person from the dependant's registry
// record, then links it to the primary patient. The create pair is
// deduplicated through the inbox when one is configured: replaying the same
// dependant returns the original result instead of minting a second person.
func (s *Service) CreateDependant(ctx context.Context, inbox *idempotency.Inbox, req DependantCreateRequest) (*DependantCreateResult, error) {
	ctx, span := s.tracer.Start(ctx, "create_dependant",
		trace.WithAttributes(
			attribute.String("patient_uuid", req.PrimaryUUID),
			attribute.String("relationship", req.Dependant.Relationship)))
	defer span.End()

	record := req.Dependant.Primary()
	if record == nil {
		return nil, &SyncError{Field: "dependant", Code: CodeValidationFailure, Message: "dependant entry carries no record"}
	}
	if req.PrimaryUUID == "" {
		return nil, &SyncError{Field: "patientUuid", Code: CodeValidationFailure, Message: "primary patient uuid is required"}
	}

	if inbox == nil {
		return s.createDependant(ctx, req, record)
	}

	key := idempotency.GenerateKey(req.PrimaryUUID, record.ID, record.FirstName, record.LastName, record.DateOfBirth, "dependant-create")
	payload, err := json.Marshal(req.Dependant)
	if err != nil {
		return nil, &SyncError{Field: "dependant", Code: CodeValidationFailure, Message: "unencodable dependant record", Cause: err}
	}

	var createErr error
	outcome, err := inbox.Process(ctx, key, "dependant-create", payload, func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		result, err := s.createDependant(ctx, req, record)
		if err != nil {
			createErr = err
			return nil, err
		}
		return json.Marshal(result)
	})
	if err != nil {
		if createErr != nil {
			return nil, createErr
		}
		return nil, classify("dependant", err)
	}

	var result DependantCreateResult
	if err := json.Unmarshal(outcome.Result, &result); err != nil {
		return nil, classify("dependant", err)
	}
	result.Duplicate = !outcome.IsNew && !outcome.WasRecovered
	return &result, nil
}

func (s *Service) createDependant(ctx context.Context, req DependantCreateRequest, record *hie.Client) (*DependantCreateResult, error) {
	person, err := s.store.CreatePerson(ctx, BuildCreatePersonPayload(record))
	if err != nil {
		return nil, classify("person", err)
	}
	result := &DependantCreateResult{DependantUUID: person.UUID}

	relPayload := BuildRelationshipPayload(req.PrimaryUUID, req.Dependant.Relationship, person.UUID, time.Now())
	rel, err := s.store.CreateRelationship(ctx, relPayload)
	if err != nil {
		s.logger.Error("relationship create failed after person create",
			zap.String("dependant_uuid", person.UUID),
			zap.Error(err))
		return result, &PartialWriteError{
			Succeeded: []string{"person"},
			Failed:    []string{"relationship"},
			Causes:    []error{classify("relationship", err)},
		}
	}
	result.RelationshipUUID = rel.UUID

	s.emit(ctx, req.PrimaryUUID, EventDependantCreated, DependantCreatedData{
		PrimaryPatientUUID: req.PrimaryUUID,
		DependantUUID:      person.UUID,
		RegistryID:         record.ID,
		Relationship:       req.Dependant.Relationship,
		RelationshipUUID:   rel.UUID,
	}, req.CorrelationID)

	s.logger.Info("dependant created",
		zap.String("patient_uuid", req.PrimaryUUID),
		zap.String("dependant_uuid", person.UUID),
		zap.String("relationship", req.Dependant.Relationship))
	return result, nil
}
