package reconcile

// Demographic field keys, matching the person resource's property names.
const (
	FieldGivenName      = "givenName"
	FieldMiddleName     = "middleName"
	FieldFamilyName     = "familyName"
	FieldGender         = "gender"
	FieldBirthdate      = "birthdate"
	FieldCountry        = "country"
	FieldCountyDistrict = "countyDistrict"
	FieldAddress2       = "address2"
	FieldAddress7       = "address7"
	FieldCityVillage    = "cityVillage"
	FieldLongitude      = "longitude"
	FieldLatitude       = "latitude"
)

// Identifier field keys, one per syncable identification type.
const (
	FieldNationalID           = "NationalID"
	FieldSHANumber            = "SHANumber"
	FieldHouseholdNumber      = "HouseholdNumber"
	FieldRefugeeID            = "RefugeeID"
	FieldAlienID              = "AlienID"
	FieldMandateNumber        = "MandateNumber"
	FieldCr                   = "Cr"
	FieldTemporaryDependantID = "TemporaryDependantID"
)

// Attribute field keys, one per syncable person attribute.
const (
	FieldKRAPin       = "KRAPin"
	FieldCivilStatus  = "CivilStatus"
	FieldEmail        = "Email"
	FieldPhone        = "Phone"
	FieldPlaceOfBirth = "PlaceOfBirth"
	FieldCitizenship  = "Citizenship"
)

// NameFields are the person name components, in display order.
var NameFields = []string{FieldGivenName, FieldMiddleName, FieldFamilyName}

// AddressFields are the syncable address levels, in display order.
var AddressFields = []string{
	FieldCountry,
	FieldCountyDistrict,
	FieldAddress2,
	FieldAddress7,
	FieldCityVillage,
	FieldLongitude,
	FieldLatitude,
}

// PersonSyncFields are the demographic fields a person update may carry:
// names, then gender and birthdate, then addresses.
var PersonSyncFields = concatFields(NameFields, []string{FieldGender, FieldBirthdate}, AddressFields)

// IdentifierSyncFields are the identifier field keys, in display order.
var IdentifierSyncFields = []string{
	FieldNationalID,
	FieldSHANumber,
	FieldHouseholdNumber,
	FieldRefugeeID,
	FieldAlienID,
	FieldMandateNumber,
	FieldCr,
	FieldTemporaryDependantID,
}

// AttributeSyncFields are the attribute field keys, in display order.
var AttributeSyncFields = []string{
	FieldKRAPin,
	FieldCivilStatus,
	FieldEmail,
	FieldPhone,
	FieldPlaceOfBirth,
	FieldCitizenship,
}

// ComparisonFields is the full ordered field list a record comparison walks:
// demographics followed by identifiers.
var ComparisonFields = concatFields(PersonSyncFields, IdentifierSyncFields)

// identifierFieldLabels maps identifier field keys to the registry
// identification-type labels they carry on the wire.
var identifierFieldLabels = map[string]string{
	FieldNationalID:           IdentNationalID,
	FieldSHANumber:            IdentSHANumber,
	FieldHouseholdNumber:      IdentHouseholdNumber,
	FieldRefugeeID:            IdentRefugeeID,
	FieldAlienID:              IdentAlienID,
	FieldMandateNumber:        IdentMandateNumber,
	FieldCr:                   IdentClientRegistry,
	FieldTemporaryDependantID: IdentTemporaryDependantID,
}

// attributeFieldLabels maps attribute field keys to the registry record's
// attribute labels.
var attributeFieldLabels = map[string]string{
	FieldKRAPin:       AttrKRAPin,
	FieldCivilStatus:  AttrCivilStatus,
	FieldEmail:        AttrEmail,
	FieldPhone:        AttrPhone,
	FieldPlaceOfBirth: AttrPlaceOfBirth,
	FieldCitizenship:  AttrCitizenship,
}

// IdentifierFieldLabel returns the registry identification-type label for an
// identifier field key, or the empty string for any other field.
func IdentifierFieldLabel(field string) string {
	return identifierFieldLabels[field]
}

// AttributeFieldLabel returns the registry attribute label for an attribute
// field key, or the empty string for any other field.
func AttributeFieldLabel(field string) string {
	return attributeFieldLabels[field]
}

// IsNameField reports whether the field is a person name component.
func IsNameField(field string) bool {
	return field == FieldGivenName || field == FieldMiddleName || field == FieldFamilyName
}

// IsAddressField reports whether the field is an address level.
func IsAddressField(field string) bool {
	for _, f := range AddressFields {
		if f == field {
			return true
		}
	}
	return false
}

// IsIdentifierField reports whether the field is an identifier field key.
func IsIdentifierField(field string) bool {
	_, ok := identifierFieldLabels[field]
	return ok
}

// IsAttributeField reports whether the field is an attribute field key.
func IsAttributeField(field string) bool {
	_, ok := attributeFieldLabels[field]
	return ok
}

func concatFields(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
