package reconcile

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event
type EventType string

const (
	EventRecordSynced      EventType = "RecordSynced"
	EventDependantCreated  EventType = "DependantCreated"
	EventPatientRegistered EventType = "PatientRegistered"
)

// Event represents a domain event emitted after a reconciliation write.
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     EventType       `json:"event_type"`
	EventData     json.RawMessage `json:"event_data"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewEvent creates a new event keyed by the local patient uuid.
func NewEvent(aggregateID string, eventType EventType, data interface{}) (*Event, error) {
	eventData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: "PatientRecord",
		EventType:     eventType,
		EventData:     eventData,
		Timestamp:     time.Now().UTC(),
	}, nil
}

// RecordSyncedData describes a completed selective sync.
type RecordSyncedData struct {
	PatientUUID        string   `json:"patient_uuid"`
	RegistryID         string   `json:"registry_id,omitempty"`
	PersonFields       []string `json:"person_fields"`
	IdentifiersWritten []string `json:"identifiers_written"`
	IdentifiersFailed  []string `json:"identifiers_failed,omitempty"`
	FromDependant      bool     `json:"from_dependant"`
}

// DependantCreatedData describes a dependant person created from a registry
// record.
type DependantCreatedData struct {
	PrimaryPatientUUID string `json:"primary_patient_uuid"`
	DependantUUID      string `json:"dependant_uuid"`
	RegistryID         string `json:"registry_id,omitempty"`
	Relationship       string `json:"relationship"`
	RelationshipUUID   string `json:"relationship_uuid,omitempty"`
}

// PatientRegisteredData describes a brand-new patient registered from a
// registry record.
type PatientRegisteredData struct {
	PatientUUID string `json:"patient_uuid"`
	RegistryID  string `json:"registry_id"`
	UniversalID string `json:"universal_id"`
	Dependants  int    `json:"dependants"`
}
