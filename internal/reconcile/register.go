package reconcile

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
	"github.com/ampath/go-hie/pkg/idempotency"
)

// RegistrationRequest enrolls a registry client as a brand-new local
// patient. The four attribute values are mandatory; registration refuses to
// mint a patient without them.
type RegistrationRequest struct {
	Client         hie.Client
	LocationUUID   string
	CivilStatus    string
	EducationLevel string
	Religion       string
	Occupation     string
	CorrelationID  string
}

// RegistrationResult reports the created patient and its dependants.
type RegistrationResult struct {
	PatientUUID      string                  `json:"patientUuid"`
	UniversalID      string                  `json:"universalId"`
	Dependants       []DependantCreateResult `json:"dependants,omitempty"`
	DependantsFailed int                     `json:"dependantsFailed,omitempty"`
}

// patientCreatePayload is the enrollment write shape.
type patientCreatePayload struct {
	Person      PersonPayload           `json:"person"`
	Identifiers []amrs.IdentifierPayload `json:"identifiers"`
}

// Register creates a new patient from a registry record: a generated
// universal id, the registry number plus every identification as
// identifiers, and the four mandatory attributes. Dependants on the record
// are created afterwards, best effort; a failed dependant never unwinds the
// registration.
func (s *Service) Register(ctx context.Context, inbox *idempotency.Inbox, req RegistrationRequest) (*RegistrationResult, error) {
	ctx, span := s.tracer.Start(ctx, "register_patient",
		trace.WithAttributes(attribute.String("registry_id", req.Client.ID)))
	defer span.End()

	if err := validateRegistration(req); err != nil {
		return nil, err
	}

	location := req.LocationUUID
	if location == "" {
		location = s.config.LocationUUID
	}
	if location == "" {
		return nil, &SyncError{Field: "locationUuid", Code: CodeValidationFailure, Message: "identifier location is required"}
	}

	universalID, err := s.store.GenerateIdentifier(ctx, s.config.UniversalIDSourceUUID)
	if err != nil {
		span.RecordError(err)
		return nil, classify("universalId", err)
	}

	person := BuildCreatePersonPayload(&req.Client)
	// Registration carries exactly the reviewed attribute set, not the
	// values copied off the registry record.
	person.Attributes = []AttributePayload{
		{Value: req.CivilStatus, AttributeType: CivilStatusAttrTypeUUID},
		{Value: req.EducationLevel, AttributeType: EducationLevelAttrTypeUUID},
		{Value: req.Religion, AttributeType: ReligionAttrTypeUUID},
		{Value: req.Occupation, AttributeType: OccupationAttrTypeUUID},
	}

	payload := patientCreatePayload{
		Person:      person,
		Identifiers: BuildRegistrationIdentifiers(&req.Client, location, universalID),
	}

	patient, err := s.store.CreatePatient(ctx, payload)
	if err != nil {
		span.RecordError(err)
		return nil, classify("patient", err)
	}

	result := &RegistrationResult{
		PatientUUID: patient.UUID,
		UniversalID: universalID,
	}
	s.logger.Info("patient registered",
		zap.String("patient_uuid", patient.UUID),
		zap.String("registry_id", req.Client.ID),
		zap.String("universal_id", universalID))

	for _, dep := range req.Client.Dependants {
		depResult, err := s.CreateDependant(ctx, inbox, DependantCreateRequest{
			PrimaryUUID:   patient.UUID,
			Dependant:     dep,
			CorrelationID: req.CorrelationID,
		})
		if err != nil {
			result.DependantsFailed++
			s.logger.Warn("dependant create failed during registration",
				zap.String("patient_uuid", patient.UUID),
				zap.String("relationship", dep.Relationship),
				zap.Error(err))
			if depResult != nil {
				result.Dependants = append(result.Dependants, *depResult)
			}
			continue
		}
		result.Dependants = append(result.Dependants, *depResult)
	}

	s.emit(ctx, patient.UUID, EventPatientRegistered, PatientRegisteredData{
		PatientUUID: patient.UUID,
		RegistryID:  req.Client.ID,
		UniversalID: universalID,
		Dependants:  len(result.Dependants),
	}, req.CorrelationID)

	return result, nil
}

func validateRegistration(req RegistrationRequest) error {
	missing := func(field string) error {
		return &SyncError{Field: field, Code: CodeValidationFailure, Message: "mandatory attribute missing"}
	}
	switch {
	case req.CivilStatus == "":
		return missing("civilStatus")
	case req.EducationLevel == "":
		return missing("educationLevel")
	case req.Religion == "":
		return missing("religion")
	case req.Occupation == "":
		return missing("occupation")
	}
	if req.Client.ID == "" {
		return &SyncError{Field: "client", Code: CodeValidationFailure, Message: "registry record id is required"}
	}
	return nil
}
