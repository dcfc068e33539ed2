package reconcile

import "testing"

func TestIdentifierTypeUUID(t *testing.T) {
	cases := []struct {
		label string
		want  string
	}{
		{IdentNationalID, NationalIDTypeUUID},
		{IdentSHANumber, SHANumberTypeUUID},
		{IdentHouseholdNumber, HouseholdNumberTypeUUID},
		{IdentClientRegistry, ClientRegistryNoTypeUUID},
		{IdentTemporaryDependantID, TemporaryDependantIDTypeUUID},
		{"Passport", ""},
	}
	for _, c := range cases {
		if got := IdentifierTypeUUID(c.label); got != c.want {
			t.Errorf("IdentifierTypeUUID(%q) = %q, want %q", c.label, got, c.want)
		}
	}
}

func TestAttributeTypeUUID(t *testing.T) {
	if got := AttributeTypeUUID(AttrPhone); got != ContactPhoneAttrTypeUUID {
		t.Errorf("phone = %q", got)
	}
	// Citizenship shares the phone attribute type in the upstream dictionary.
	if got := AttributeTypeUUID(AttrCitizenship); got != ContactPhoneAttrTypeUUID {
		t.Errorf("citizenship = %q, want the shared phone type", got)
	}
	if got := AttributeTypeUUID("unknown"); got != "" {
		t.Errorf("unknown label = %q", got)
	}
}

func TestRelationshipTypeUUID(t *testing.T) {
	if got := RelationshipTypeUUID("Spouse"); got != SpouseRelTypeUUID {
		t.Errorf("Spouse = %q", got)
	}
	if got := RelationshipTypeUUID("Child"); got != ParentChildRelTypeUUID {
		t.Errorf("Child = %q", got)
	}
	for _, rel := range []string{"Cousin", "Guardian", ""} {
		if got := RelationshipTypeUUID(rel); got != OtherNonCodedRelTypeUUID {
			t.Errorf("%q = %q, want the non-coded type", rel, got)
		}
	}
}

func TestCivilStatusConceptUUID(t *testing.T) {
	cases := map[string]string{
		"Married":   CivilStatusMarriedUUID,
		"Divorced":  CivilStatusDivorcedUUID,
		"Single":    CivilStatusSingleUUID,
		"Widowed":   CivilStatusNotApplicableUUID,
		"Separated": CivilStatusNotApplicableUUID,
		"":          CivilStatusNotApplicableUUID,
	}
	for status, want := range cases {
		if got := CivilStatusConceptUUID(status); got != want {
			t.Errorf("CivilStatusConceptUUID(%q) = %q, want %q", status, got, want)
		}
	}
}

func TestFieldLabelRoundTrips(t *testing.T) {
	for _, field := range IdentifierSyncFields {
		label := IdentifierFieldLabel(field)
		if label == "" {
			t.Errorf("identifier field %q has no label", field)
			continue
		}
		if IdentifierTypeUUID(label) == "" {
			t.Errorf("identifier label %q has no type uuid", label)
		}
	}
	for _, field := range AttributeSyncFields {
		label := AttributeFieldLabel(field)
		if label == "" {
			t.Errorf("attribute field %q has no label", field)
			continue
		}
		if AttributeTypeUUID(label) == "" {
			t.Errorf("attribute label %q has no type uuid", label)
		}
	}
}
