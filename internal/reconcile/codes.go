// Package reconcile implements field-level reconciliation between client
// registry records and the local AMRS patient store: value extraction,
// selective demographic sync, payload building and dependant resolution.
package reconcile

// Registry identification-type labels as they appear on registry records.
// The registry number itself rides under the label "id" because the registry
// exposes it as the record id rather than as an identification entry.
const (
	IdentNationalID           = "National ID"
	IdentSHANumber            = "SHA Number"
	IdentHouseholdNumber      = "Household Number"
	IdentRefugeeID            = "Refugee ID"
	IdentAlienID              = "Alien ID"
	IdentMandateNumber        = "Mandate Number"
	IdentClientRegistry       = "id"
	IdentTemporaryDependantID = "Temporary Dependant ID"
)

// Registry attribute labels, matching the registry record's JSON keys.
const (
	AttrKRAPin         = "kra_pin"
	AttrCivilStatus    = "civil_status"
	AttrEmail          = "email"
	AttrPhone          = "phone"
	AttrPlaceOfBirth   = "place_of_birth"
	AttrCitizenship    = "citizenship"
	AttrClientRegistry = "id"
)

// AMRS identifier-type uuids.
const (
	HouseholdNumberTypeUUID      = "bb74b20e-dcee-4f59-bdf1-2dffc3abf106"
	SHANumberTypeUUID            = "cf5362b2-8049-4442-b3c6-36f870e320cb"
	ClientRegistryNoTypeUUID     = "e88dc246-3614-4ee3-8141-1f2a83054e72"
	NationalIDTypeUUID           = "58a47054-1359-11df-a1f1-0026b9348838"
	ProviderNationalIDTypeUUID   = "4550df92-c684-4597-8ab8-d6b10eabdcfb"
	RefugeeIDTypeUUID            = "465e81af-8d69-47e9-9127-53a94adc75fb"
	MandateNumberTypeUUID        = "aae2d097-20ba-43ca-9b71-fd8296068f39"
	AlienIDTypeUUID              = "12f5b147-3403-4a73-913d-7ded9ffec094"
	TemporaryDependantIDTypeUUID = "a3d34214-93e8-4faf-bf4d-0272eee079eb"
	UniversalIDTypeUUID          = "58a4732e-1359-11df-a1f1-0026b9348838"
	UPINumberTypeUUID            = "cba702b9-4664-4b43-83f1-9ab473cbd64d"
)

// AMRS person attribute-type uuids. Citizenship intentionally shares the
// contact phone uuid; the upstream dictionary stores both under the same
// attribute type.
const (
	ContactPhoneAttrTypeUUID     = "72a759a8-1359-11df-a1f1-0026b9348838"
	CitizenshipAttrTypeUUID      = "72a759a8-1359-11df-a1f1-0026b9348838"
	ContactEmailAttrTypeUUID     = "2f65dbcb-3e58-45a3-8be7-fd1dc9aa0faa"
	AlternativePhoneAttrTypeUUID = "c725f524-c14a-4468-ac19-4a0e6661c930"
	KRAPinAttrTypeUUID           = "ae683747-b3fc-4e5c-bad3-c3be743b248f"
	CivilStatusAttrTypeUUID      = "8d871f2a-c2cc-11de-8d13-0010c6dffd0f"
	ClientRegistryAttrTypeUUID   = "e068e02b-faac-4baf-bd58-fe6e0c29a81f"
	PlaceOfBirthAttrTypeUUID     = "8d8718c2-c2cc-11de-8d13-0010c6dffd0f"
	EducationLevelAttrTypeUUID   = "352b0d51-63c6-47d0-a295-156bebee4fd5"
	ReligionAttrTypeUUID         = "4ae16101-cfba-4c08-9c9c-d848e6f609aa"
	OccupationAttrTypeUUID       = "9e86409f-9c20-42d0-aeb3-f29a4ca0a7a0"
)

// AMRS relationship-type uuids.
const (
	ParentChildRelTypeUUID   = "7878d348-1359-11df-a1f1-0026b9348838"
	AuntUncleRelTypeUUID     = "7878dd3e-1359-11df-a1f1-0026b9348838"
	SpouseRelTypeUUID        = "7878df3c-1359-11df-a1f1-0026b9348838"
	GrandchildRelTypeUUID    = "7878e144-1359-11df-a1f1-0026b9348838"
	GuardianRelTypeUUID      = "01bc0cf5-d428-427f-be13-305eb9cad7ba"
	FosterRelTypeUUID        = "7878e52c-1359-11df-a1f1-0026b9348838"
	OtherNonCodedRelTypeUUID = "af78531e-98ab-41da-be3a-6a871ecbf8c0"
)

// Civil status concept uuids used as coded attribute values.
const (
	CivilStatusMarriedUUID       = "8d871f26-c2cc-11de-8d13-0010c6dffd0f"
	CivilStatusDivorcedUUID      = "8d871fb0-c2cc-11de-8d13-0010c6dffd0f"
	CivilStatusSingleUUID        = "8d871f34-c2cc-11de-8d13-0010c6dffd0f"
	CivilStatusNotApplicableUUID = "8d871e18-c2cc-11de-8d13-0010c6dffd0f"
)

// IdentifierTypeUUID maps a registry identification-type label to the AMRS
// identifier-type uuid. Unknown labels map to the empty string.
func IdentifierTypeUUID(label string) string {
	switch label {
	case IdentNationalID:
		return NationalIDTypeUUID
	case IdentSHANumber:
		return SHANumberTypeUUID
	case IdentHouseholdNumber:
		return HouseholdNumberTypeUUID
	case IdentRefugeeID:
		return RefugeeIDTypeUUID
	case IdentAlienID:
		return AlienIDTypeUUID
	case IdentMandateNumber:
		return MandateNumberTypeUUID
	case IdentClientRegistry:
		return ClientRegistryNoTypeUUID
	case IdentTemporaryDependantID:
		return TemporaryDependantIDTypeUUID
	default:
		return ""
	}
}

// AttributeTypeUUID maps a registry attribute label to the AMRS person
// attribute-type uuid. Unknown labels map to the empty string.
func AttributeTypeUUID(label string) string {
	switch label {
	case AttrPhone:
		return ContactPhoneAttrTypeUUID
	case AttrCitizenship:
		return CitizenshipAttrTypeUUID
	case AttrEmail:
		return ContactEmailAttrTypeUUID
	case AttrKRAPin:
		return KRAPinAttrTypeUUID
	case AttrCivilStatus:
		return CivilStatusAttrTypeUUID
	case AttrClientRegistry:
		return ClientRegistryAttrTypeUUID
	case AttrPlaceOfBirth:
		return PlaceOfBirthAttrTypeUUID
	default:
		return ""
	}
}

// RelationshipTypeUUID maps a registry relationship label to the AMRS
// relationship-type uuid. Spouse and Child have dedicated types; everything
// else falls back to the non-coded type.
func RelationshipTypeUUID(relationship string) string {
	switch relationship {
	case "Spouse":
		return SpouseRelTypeUUID
	case "Child":
		return ParentChildRelTypeUUID
	default:
		return OtherNonCodedRelTypeUUID
	}
}

// CivilStatusConceptUUID maps a registry civil-status value to the coded
// concept uuid. Values without a dedicated concept map to not-applicable.
func CivilStatusConceptUUID(status string) string {
	switch status {
	case "Married":
		return CivilStatusMarriedUUID
	case "Divorced":
		return CivilStatusDivorcedUUID
	case "Single":
		return CivilStatusSingleUUID
	default:
		return CivilStatusNotApplicableUUID
	}
}
