package reconcile

import (
	"testing"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
)

func testClient() *hie.Client {
	return &hie.Client{
		ID:                   "CR-001",
		FirstName:            "Wanjiku",
		MiddleName:           "Njeri",
		LastName:             "Kamau",
		Gender:               "Female",
		DateOfBirth:          "1990-04-12",
		Phone:                "+254700000001",
		Country:              "Kenya",
		County:               "Uasin Gishu",
		SubCounty:            "Kesses",
		Ward:                 "Racecourse",
		VillageEstate:        "Langas",
		IdentificationType:   IdentNationalID,
		IdentificationNumber: "12345678",
		OtherIdentifications: []hie.Identification{
			{IdentificationType: IdentSHANumber, IdentificationNumber: "SHA-99"},
		},
	}
}

func testPatient() *amrs.Patient {
	return &amrs.Patient{
		UUID: "patient-1",
		Identifiers: []amrs.Identifier{
			{
				UUID:           "ident-slot-1",
				Identifier:     "87654321",
				IdentifierType: amrs.IdentifierType{UUID: NationalIDTypeUUID},
			},
		},
		Person: amrs.Person{
			UUID:      "patient-1",
			Gender:    "F",
			Birthdate: "1990-04-12T00:00:00.000+0300",
			PreferredName: amrs.Name{
				GivenName:  "Wanjiku",
				MiddleName: "",
				FamilyName: "Kamau",
			},
			PreferredAddress: amrs.Address{
				Country:        "Kenya",
				CountyDistrict: "Uasin Gishu",
				Address2:       "Ainabkoi",
				Address7:       "Racecourse",
			},
			Identifiers: []amrs.Identifier{
				{
					UUID:           "ident-slot-1",
					Identifier:     "87654321",
					IdentifierType: amrs.IdentifierType{UUID: NationalIDTypeUUID},
				},
			},
			Attributes: []amrs.Attribute{
				{
					Value:         amrs.AttributeValue{Text: "+254711111111"},
					AttributeType: amrs.AttributeType{UUID: ContactPhoneAttrTypeUUID},
				},
			},
		},
	}
}

func TestFieldValueNames(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldGivenName, client, patient)
	if p.Local != "Wanjiku" || p.External != "Wanjiku" {
		t.Errorf("givenName = %+v", p)
	}
	if p.Differs() {
		t.Error("givenName should not differ")
	}

	p = FieldValue(FieldMiddleName, client, patient)
	if p.Local != "" || p.External != "Njeri" {
		t.Errorf("middleName = %+v", p)
	}
	if !p.Differs() {
		t.Error("middleName should differ")
	}
}

func TestFieldValueGender(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldGender, client, patient)
	if p.External != "F" {
		t.Errorf("Female should render as F, got %q", p.External)
	}
	if p.Differs() {
		t.Error("gender should agree")
	}

	client.Gender = "Male"
	p = FieldValue(FieldGender, client, patient)
	if p.External != "M" {
		t.Errorf("Male should render as M, got %q", p.External)
	}

	// Anything the registry serves that is not Female maps to M.
	client.Gender = "Intersex"
	p = FieldValue(FieldGender, client, patient)
	if p.External != "M" {
		t.Errorf("non-Female gender should render as M, got %q", p.External)
	}
}

func TestFieldValueBirthdateNormalized(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldBirthdate, client, patient)
	if p.Local != "1990-04-12" {
		t.Errorf("local birthdate = %q, want 1990-04-12", p.Local)
	}
	if p.Differs() {
		t.Error("birthdate should agree after normalization")
	}

	patient.Person.Birthdate = "not-a-date"
	p = FieldValue(FieldBirthdate, client, patient)
	if p.Local != "not-a-date" {
		t.Errorf("unparseable birthdate should pass through, got %q", p.Local)
	}
}

func TestFieldValueAddresses(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldAddress7, client, patient)
	if p.Local != "Racecourse" || p.External != "Racecourse" {
		t.Errorf("ward = %+v", p)
	}

	p = FieldValue(FieldAddress2, client, patient)
	if p.Local != "Ainabkoi" || p.External != "Kesses" {
		t.Errorf("sub-county = %+v", p)
	}
	if !p.Differs() {
		t.Error("sub-county should differ")
	}
}

func TestFieldValueIdentifiers(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldNationalID, client, patient)
	if p.Local != "87654321" || p.External != "12345678" {
		t.Errorf("national id = %+v", p)
	}

	p = FieldValue(FieldSHANumber, client, patient)
	if p.Local != "" || p.External != "SHA-99" {
		t.Errorf("sha number = %+v", p)
	}

	// The registry number comes off the record id, not the identification
	// entries.
	p = FieldValue(FieldCr, client, patient)
	if p.External != "CR-001" {
		t.Errorf("registry number = %q, want CR-001", p.External)
	}
}

func TestFieldValueAttributes(t *testing.T) {
	client := testClient()
	patient := testPatient()

	p := FieldValue(FieldPhone, client, patient)
	if p.Local != "+254711111111" || p.External != "+254700000001" {
		t.Errorf("phone = %+v", p)
	}
}

func TestFieldValueNilSides(t *testing.T) {
	for _, field := range ComparisonFields {
		p := FieldValue(field, nil, nil)
		if p.Local != "" || p.External != "" {
			t.Errorf("field %s with nil records = %+v", field, p)
		}
	}
	if p := FieldValue("no-such-field", testClient(), testPatient()); p.Local != "" || p.External != "" {
		t.Errorf("unknown field = %+v", p)
	}
}

func TestCompareRowOrder(t *testing.T) {
	rows := Compare(testClient(), testPatient())
	if len(rows) != len(ComparisonFields) {
		t.Fatalf("got %d rows, want %d", len(rows), len(ComparisonFields))
	}
	for i, row := range rows {
		if row.Field != ComparisonFields[i] {
			t.Errorf("row %d field = %s, want %s", i, row.Field, ComparisonFields[i])
		}
	}

	byField := make(map[string]ComparisonRow, len(rows))
	for _, row := range rows {
		byField[row.Field] = row
	}
	if !byField[FieldMiddleName].Differs {
		t.Error("middleName row should differ")
	}
	if byField[FieldGivenName].Differs {
		t.Error("givenName row should not differ")
	}
}
