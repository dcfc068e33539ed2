package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
	"github.com/ampath/go-hie/internal/observability/metrics"
	"github.com/ampath/go-hie/internal/reconcile"
)

// stubStore serves canned records for handler tests.
type stubStore struct {
	patients map[string]*amrs.Patient
	persons  map[string]*amrs.Person
}

func (s *stubStore) GetPatient(ctx context.Context, patientUUID string) (*amrs.Patient, error) {
	if p, ok := s.patients[patientUUID]; ok {
		return p, nil
	}
	return nil, &amrs.RequestError{Status: 404, Body: "not found"}
}

func (s *stubStore) GetPerson(ctx context.Context, personUUID string) (*amrs.Person, error) {
	if p, ok := s.persons[personUUID]; ok {
		return p, nil
	}
	return nil, &amrs.RequestError{Status: 404, Body: "not found"}
}

func (s *stubStore) UpdatePerson(ctx context.Context, personUUID string, payload interface{}) (*amrs.Person, error) {
	return &amrs.Person{UUID: personUUID}, nil
}

func (s *stubStore) CreatePerson(ctx context.Context, payload interface{}) (*amrs.Person, error) {
	return &amrs.Person{UUID: "person-new"}, nil
}

func (s *stubStore) CreatePatient(ctx context.Context, payload interface{}) (*amrs.Patient, error) {
	return &amrs.Patient{UUID: "patient-new"}, nil
}

func (s *stubStore) WriteIdentifier(ctx context.Context, resource amrs.Resource, ownerUUID, identifierUUID string, payload amrs.IdentifierPayload) error {
	return nil
}

func (s *stubStore) CreateRelationship(ctx context.Context, payload amrs.RelationshipPayload) (*amrs.Relationship, error) {
	return &amrs.Relationship{UUID: "rel-new"}, nil
}

func (s *stubStore) GetRelationships(ctx context.Context, personUUID string) ([]amrs.MappedRelationship, error) {
	return nil, nil
}

func (s *stubStore) GenerateIdentifier(ctx context.Context, sourceUUID string) (string, error) {
	return "UID-1", nil
}

func newTestHandler(store *stubStore) *ReconciliationHandler {
	service := reconcile.NewService(store, nil, nil, nil, reconcile.Config{
		LocationUUID:          "loc-1",
		UniversalIDSourceUUID: "idgen-1",
	}, nil)
	return NewReconciliationHandler(service, nil, store, nil, nil, nil, nil)
}

func TestCompareHandler(t *testing.T) {
	store := &stubStore{
		patients: map[string]*amrs.Patient{
			"p-1": {
				UUID: "p-1",
				Person: amrs.Person{
					UUID:          "p-1",
					Gender:        "F",
					PreferredName: amrs.Name{GivenName: "Wanjiku", FamilyName: "Kamau"},
				},
			},
		},
	}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(CompareRequest{
		Client: hie.Client{FirstName: "Wanjiku", LastName: "Kamau", Gender: "Female"},
	})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/compare", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp CompareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PatientUUID != "p-1" || len(resp.Rows) == 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCompareHandlerUnknownPatient(t *testing.T) {
	handler := newTestHandler(&stubStore{})
	router := handler.Routes()

	body, _ := json.Marshal(CompareRequest{})
	req := httptest.NewRequest(http.MethodPost, "/patients/missing/compare", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSyncHandlerValidation(t *testing.T) {
	store := &stubStore{patients: map[string]*amrs.Patient{"p-1": {UUID: "p-1"}}}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(SyncRequest{})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty selection status = %d, want 400", rec.Code)
	}
}

func TestSyncHandler(t *testing.T) {
	store := &stubStore{patients: map[string]*amrs.Patient{"p-1": {UUID: "p-1"}}}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(SyncRequest{
		Selection: []reconcile.SelectedField{
			{Field: "givenName", Value: "Wanjiku"},
			{Field: "NationalID", Value: "12345678"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result reconcile.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.PersonFields) != 1 || len(result.IdentifiersWritten) != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestSyncHandlerCountsIdentifierWrites(t *testing.T) {
	store := &stubStore{patients: map[string]*amrs.Patient{"p-1": {UUID: "p-1"}}}
	m := metrics.New()
	service := reconcile.NewService(store, nil, nil, nil, reconcile.Config{
		LocationUUID:          "loc-1",
		UniversalIDSourceUUID: "idgen-1",
	}, nil)
	handler := NewReconciliationHandler(service, nil, store, nil, nil, m, nil)
	router := handler.Routes()

	body, _ := json.Marshal(SyncRequest{
		Selection: []reconcile.SelectedField{
			{Field: "NationalID", Value: "12345678"},
			{Field: "SHANumber", Value: "SHA-99"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := testutil.ToFloat64(m.IdentifierWrites.WithLabelValues("ok")); got != 2 {
		t.Errorf("ok writes = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.IdentifierWrites.WithLabelValues("error")); got != 0 {
		t.Errorf("failed writes = %v, want 0", got)
	}
}

func TestSyncHandlerSelectAll(t *testing.T) {
	store := &stubStore{patients: map[string]*amrs.Patient{"p-1": {UUID: "p-1"}}}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(SyncRequest{
		SelectAll: true,
		Client: &hie.Client{
			ID:          "CR-001",
			FirstName:   "Wanjiku",
			LastName:    "Kamau",
			Gender:      "Female",
			DateOfBirth: "1990-04-12",
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result reconcile.SyncResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The full takeover carries every person field, empty or not.
	if len(result.PersonFields) == 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestSyncHandlerSelectAllRequiresClient(t *testing.T) {
	store := &stubStore{patients: map[string]*amrs.Patient{"p-1": {UUID: "p-1"}}}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(SyncRequest{SelectAll: true})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/sync", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateDependantHandler(t *testing.T) {
	store := &stubStore{}
	handler := newTestHandler(store)
	router := handler.Routes()

	body, _ := json.Marshal(CreateDependantRequest{
		Dependant: hie.Dependant{
			Relationship: "Child",
			Total:        1,
			Results:      []hie.Client{{ID: "CR-DEP-1", FirstName: "Amani", LastName: "Kamau"}},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/patients/p-1/dependants", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result reconcile.DependantCreateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.DependantUUID != "person-new" || result.RelationshipUUID != "rel-new" {
		t.Errorf("result = %+v", result)
	}
}

func TestRegisterHandlerValidation(t *testing.T) {
	handler := newTestHandler(&stubStore{})
	router := handler.Routes()

	body, _ := json.Marshal(RegisterRequest{Client: hie.Client{ID: "CR-001"}})
	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for missing attributes", rec.Code)
	}
}

func TestRegisterHandler(t *testing.T) {
	handler := newTestHandler(&stubStore{})
	router := handler.Routes()

	body, _ := json.Marshal(RegisterRequest{
		Client:         hie.Client{ID: "CR-001", FirstName: "Wanjiku", LastName: "Kamau"},
		CivilStatus:    "concept-1",
		EducationLevel: "concept-2",
		Religion:       "concept-3",
		Occupation:     "concept-4",
	})
	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var result reconcile.RegistrationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.PatientUUID != "patient-new" || result.UniversalID != "UID-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestInvalidBody(t *testing.T) {
	handler := newTestHandler(&stubStore{})
	router := handler.Routes()

	req := httptest.NewRequest(http.MethodPost, "/registrations", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for malformed body", rec.Code)
	}
}
