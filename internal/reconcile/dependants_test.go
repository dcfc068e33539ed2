package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
)

func dependantOf(relationship string, record hie.Client) hie.Dependant {
	return hie.Dependant{
		Relationship: relationship,
		Total:        1,
		Results:      []hie.Client{record},
	}
}

func TestResolveDependantsStates(t *testing.T) {
	store := newFakeStore()
	store.relationships["primary-1"] = []amrs.MappedRelationship{
		{UUID: "rel-1", RelatedPersonUUID: "dep-person-1"},
	}
	store.persons["dep-person-1"] = &amrs.Person{
		UUID: "dep-person-1",
		PreferredName: amrs.Name{
			GivenName:  "Amani",
			FamilyName: "Kamau",
		},
		Birthdate: "2015-06-01",
	}
	svc := newTestService(store, nil)

	external := &hie.Client{
		ID: "CR-001",
		Dependants: []hie.Dependant{
			// No embedded record at all.
			{Relationship: "Child", Total: 0},
			// Matches the existing related person by name and birthdate.
			dependantOf("Child", hie.Client{
				ID:          "CR-DEP-1",
				FirstName:   "amani",
				LastName:    "KAMAU",
				DateOfBirth: "2015-06-01",
			}),
			// Nothing local matches.
			dependantOf("Spouse", hie.Client{
				ID:          "CR-DEP-2",
				FirstName:   "Zawadi",
				LastName:    "Otieno",
				DateOfBirth: "1992-01-20",
			}),
		},
	}

	resolutions, err := svc.ResolveDependants(context.Background(), "primary-1", external)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolutions) != 3 {
		t.Fatalf("got %d resolutions, want 3", len(resolutions))
	}

	if resolutions[0].State != StateUnresolved {
		t.Errorf("empty dependant state = %s, want UNRESOLVED", resolutions[0].State)
	}
	if resolutions[1].State != StateMatched {
		t.Errorf("name-match state = %s, want MATCHED", resolutions[1].State)
	}
	if resolutions[1].MatchedPersonUUID != "dep-person-1" || resolutions[1].MatchedRelUUID != "rel-1" {
		t.Errorf("match = %+v", resolutions[1])
	}
	if resolutions[2].State != StateCreateRequired {
		t.Errorf("unmatched state = %s, want CREATE_REQUIRED", resolutions[2].State)
	}
}

func TestResolveDependantsMatchesByIdentifier(t *testing.T) {
	store := newFakeStore()
	store.relationships["primary-1"] = []amrs.MappedRelationship{
		{UUID: "rel-1", RelatedPersonUUID: "dep-person-1"},
	}
	store.persons["dep-person-1"] = &amrs.Person{
		UUID: "dep-person-1",
		// Different rendering of the name; the shared identifier decides.
		PreferredName: amrs.Name{GivenName: "A.", FamilyName: "K."},
		Identifiers: []amrs.Identifier{
			{
				UUID:           "slot-1",
				Identifier:     "BC-555",
				IdentifierType: amrs.IdentifierType{UUID: TemporaryDependantIDTypeUUID},
			},
		},
	}
	svc := newTestService(store, nil)

	external := &hie.Client{
		Dependants: []hie.Dependant{
			dependantOf("Child", hie.Client{
				ID:        "CR-DEP-1",
				FirstName: "Amani",
				LastName:  "Kamau",
				OtherIdentifications: []hie.Identification{
					{IdentificationType: IdentTemporaryDependantID, IdentificationNumber: "BC-555"},
				},
			}),
		},
	}

	resolutions, err := svc.ResolveDependants(context.Background(), "primary-1", external)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolutions[0].State != StateMatched {
		t.Errorf("state = %s, want MATCHED on shared identifier", resolutions[0].State)
	}
}

func TestResolveDependantsMatchesByRegistryAttribute(t *testing.T) {
	store := newFakeStore()
	store.relationships["primary-1"] = []amrs.MappedRelationship{
		{UUID: "rel-1", RelatedPersonUUID: "dep-person-1"},
	}
	store.persons["dep-person-1"] = &amrs.Person{
		UUID:          "dep-person-1",
		PreferredName: amrs.Name{GivenName: "X", FamilyName: "Y"},
		Attributes: []amrs.Attribute{
			{
				Value:         amrs.AttributeValue{Text: "CR-DEP-1"},
				AttributeType: amrs.AttributeType{UUID: ClientRegistryAttrTypeUUID},
			},
		},
	}
	svc := newTestService(store, nil)

	external := &hie.Client{
		Dependants: []hie.Dependant{
			dependantOf("Child", hie.Client{ID: "CR-DEP-1", FirstName: "Amani", LastName: "Kamau"}),
		},
	}

	resolutions, err := svc.ResolveDependants(context.Background(), "primary-1", external)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolutions[0].State != StateMatched {
		t.Errorf("state = %s, want MATCHED on registry attribute", resolutions[0].State)
	}
}

func TestCreateDependant(t *testing.T) {
	store := newFakeStore()
	store.nextPersonUUID = "dep-new-1"
	publisher := &fakePublisher{}
	svc := newTestService(store, publisher)

	result, err := svc.CreateDependant(context.Background(), nil, DependantCreateRequest{
		PrimaryUUID: "primary-1",
		Dependant: dependantOf("Child", hie.Client{
			ID:          "CR-DEP-1",
			FirstName:   "Amani",
			LastName:    "Kamau",
			Gender:      "Male",
			DateOfBirth: "2015-06-01",
		}),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.DependantUUID != "dep-new-1" || result.RelationshipUUID == "" {
		t.Errorf("result = %+v", result)
	}
	if len(store.createdPersons) != 1 || len(store.createdRels) != 1 {
		t.Fatalf("persons=%d rels=%d", len(store.createdPersons), len(store.createdRels))
	}

	rel := store.createdRels[0]
	if rel.PersonA != "primary-1" || rel.PersonB != "dep-new-1" {
		t.Errorf("the primary patient must be side A, got %+v", rel)
	}
	if rel.RelationshipType != ParentChildRelTypeUUID {
		t.Errorf("relationship type = %q", rel.RelationshipType)
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != EventDependantCreated {
		t.Errorf("events = %+v", publisher.events)
	}
}

func TestCreateDependantWithoutPublisher(t *testing.T) {
	store := newFakeStore()
	store.nextPersonUUID = "dep-new-1"
	svc := newTestService(store, nil)

	result, err := svc.CreateDependant(context.Background(), nil, DependantCreateRequest{
		PrimaryUUID: "primary-1",
		Dependant: dependantOf("Child", hie.Client{
			ID:          "CR-DEP-1",
			FirstName:   "Amani",
			LastName:    "Kamau",
			Gender:      "Male",
			DateOfBirth: "2015-06-01",
		}),
	})
	if err != nil {
		t.Fatalf("create without publisher: %v", err)
	}
	if result.DependantUUID != "dep-new-1" {
		t.Errorf("result = %+v", result)
	}
	if len(store.createdRels) != 1 {
		t.Fatalf("rels = %d", len(store.createdRels))
	}
}

func TestCreateDependantValidation(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.CreateDependant(context.Background(), nil, DependantCreateRequest{
		PrimaryUUID: "primary-1",
		Dependant:   hie.Dependant{Relationship: "Child"},
	})
	var syncErr *SyncError
	if !errors.As(err, &syncErr) || syncErr.Code != CodeValidationFailure {
		t.Fatalf("empty dependant: %v", err)
	}

	_, err = svc.CreateDependant(context.Background(), nil, DependantCreateRequest{
		Dependant: dependantOf("Child", hie.Client{ID: "CR-DEP-1"}),
	})
	if !errors.As(err, &syncErr) || syncErr.Code != CodeValidationFailure {
		t.Fatalf("missing primary uuid: %v", err)
	}
}

func TestCreateDependantRelationshipFailureIsPartial(t *testing.T) {
	store := newFakeStore()
	store.nextPersonUUID = "dep-new-1"
	store.failCreateRel = &amrs.RequestError{Status: 500, Body: "boom"}
	svc := newTestService(store, nil)

	result, err := svc.CreateDependant(context.Background(), nil, DependantCreateRequest{
		PrimaryUUID: "primary-1",
		Dependant:   dependantOf("Child", hie.Client{ID: "CR-DEP-1", FirstName: "Amani", LastName: "Kamau"}),
	})

	var partial *PartialWriteError
	if !errors.As(err, &partial) {
		t.Fatalf("want PartialWriteError, got %v", err)
	}
	// The orphaned person is reported so the caller can link it later.
	if result == nil || result.DependantUUID != "dep-new-1" {
		t.Errorf("result = %+v", result)
	}
	if len(partial.Succeeded) != 1 || partial.Succeeded[0] != "person" {
		t.Errorf("succeeded = %v", partial.Succeeded)
	}
	if len(partial.Failed) != 1 || partial.Failed[0] != "relationship" {
		t.Errorf("failed = %v", partial.Failed)
	}
}
