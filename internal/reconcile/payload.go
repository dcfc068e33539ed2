package reconcile

import (
	"encoding/json"
	"time"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
)

// AttributePayload is the write shape for one person attribute.
type AttributePayload struct {
	Value         string `json:"value"`
	AttributeType string `json:"attributeType"`
}

// PersonPayload is the write shape for a person create or update. Scalar
// fields sit at the payload root; names and addresses ride as single-element
// arrays. On marshalling, a scalar root field wins any collision with the
// names or addresses keys.
type PersonPayload struct {
	Fields     map[string]interface{}
	Names      map[string]string
	Addresses  map[string]string
	Attributes []AttributePayload
}

// Empty reports whether the payload carries nothing at all.
func (p PersonPayload) Empty() bool {
	return len(p.Fields) == 0 && len(p.Names) == 0 && len(p.Addresses) == 0 && len(p.Attributes) == 0
}

func (p PersonPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Fields)+3)
	if p.Names != nil {
		out["names"] = []map[string]string{p.Names}
	}
	if p.Addresses != nil {
		out["addresses"] = []map[string]string{p.Addresses}
	}
	if len(p.Attributes) > 0 {
		out["attributes"] = p.Attributes
	}
	for k, v := range p.Fields {
		out[k] = v
	}
	return json.Marshal(out)
}

// BuildPersonPayload splits a collapsed selection into the person update
// shape. Selected name components are kept even when empty so a sync can
// blank a stale name part; empty address values are dropped; identifier and
// attribute selections are left for their own write paths.
func BuildPersonPayload(selection map[string]string) PersonPayload {
	payload := PersonPayload{
		Fields:    map[string]interface{}{},
		Names:     map[string]string{},
		Addresses: map[string]string{},
	}
	for _, field := range PersonSyncFields {
		value, ok := selection[field]
		if !ok {
			continue
		}
		switch {
		case IsNameField(field):
			payload.Names[field] = value
		case IsAddressField(field):
			if value != "" {
				payload.Addresses[field] = value
			}
		default:
			payload.Fields[field] = value
		}
	}
	// An absent names or addresses key must stay absent; an empty one would
	// blank the person's current entries.
	if len(payload.Names) == 0 {
		payload.Names = nil
	}
	if len(payload.Addresses) == 0 {
		payload.Addresses = nil
	}
	return payload
}

// BuildPatientAttributes maps a registry record's attribute values into
// write shapes, skipping absent values. Civil status is written as its coded
// concept uuid; the registry number lands in the client-registry attribute.
func BuildPatientAttributes(external *hie.Client) []AttributePayload {
	if external == nil {
		return nil
	}
	var attrs []AttributePayload
	add := func(value, attrType string) {
		if value != "" {
			attrs = append(attrs, AttributePayload{Value: value, AttributeType: attrType})
		}
	}
	add(external.PlaceOfBirth, PlaceOfBirthAttrTypeUUID)
	add(external.Phone, ContactPhoneAttrTypeUUID)
	add(external.Email, ContactEmailAttrTypeUUID)
	add(external.KRAPin, KRAPinAttrTypeUUID)
	if external.CivilStatus != "" {
		attrs = append(attrs, AttributePayload{
			Value:         CivilStatusConceptUUID(external.CivilStatus),
			AttributeType: CivilStatusAttrTypeUUID,
		})
	}
	add(external.ID, ClientRegistryAttrTypeUUID)
	add(external.Citizenship, CitizenshipAttrTypeUUID)
	return attrs
}

// BuildCreatePersonPayload maps a registry record into a full person create
// shape. Unlike the selective update shape, empty name components are
// omitted entirely; a brand-new person has no stale parts to blank.
func BuildCreatePersonPayload(external *hie.Client) PersonPayload {
	payload := PersonPayload{Fields: map[string]interface{}{}}

	names := map[string]string{}
	if external.FirstName != "" {
		names[FieldGivenName] = external.FirstName
	}
	if external.MiddleName != "" {
		names[FieldMiddleName] = external.MiddleName
	}
	if external.LastName != "" {
		names[FieldFamilyName] = external.LastName
	}
	if len(names) > 0 {
		payload.Names = names
	}

	if external.Gender == "Male" {
		payload.Fields[FieldGender] = "M"
	} else {
		payload.Fields[FieldGender] = "F"
	}
	payload.Fields[FieldBirthdate] = external.DateOfBirth
	payload.Fields["birthdateEstimated"] = false
	payload.Fields["dead"] = external.IsAlive == 0
	if external.DeceasedDatetime != "" {
		payload.Fields["deathDate"] = external.DeceasedDatetime
	}

	addresses := map[string]string{}
	addAddr := func(value string, keys ...string) {
		if value == "" {
			return
		}
		for _, k := range keys {
			addresses[k] = value
		}
	}
	addAddr(external.Country, FieldCountry, "address1")
	addAddr(external.PlaceOfBirth, "address10")
	addAddr(external.County, FieldCountyDistrict)
	addAddr(external.SubCounty, FieldAddress2, "stateProvince")
	addAddr(external.Ward, FieldAddress7, "address4")
	addAddr(external.VillageEstate, FieldCityVillage)
	addAddr(external.Longitude, FieldLongitude)
	addAddr(external.Latitude, FieldLatitude)
	if len(addresses) > 0 {
		payload.Addresses = addresses
	}

	payload.Attributes = BuildPatientAttributes(external)
	return payload
}

// BuildIdentifierPayload maps one selected identifier field value into the
// identifier write shape.
func BuildIdentifierPayload(field, value, locationUUID string) amrs.IdentifierPayload {
	return amrs.IdentifierPayload{
		Identifier:     value,
		IdentifierType: IdentifierTypeUUID(IdentifierFieldLabel(field)),
		Location:       locationUUID,
	}
}

// BuildRelationshipPayload links a primary person to a dependant. The
// primary person is always side A.
func BuildRelationshipPayload(primaryUUID, relationship, dependantUUID string, now time.Time) amrs.RelationshipPayload {
	return amrs.RelationshipPayload{
		PersonA:          primaryUUID,
		RelationshipType: RelationshipTypeUUID(relationship),
		PersonB:          dependantUUID,
		StartDate:        now.UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// BuildRegistrationIdentifiers assembles the identifier set a new patient
// registration carries: the registry number, the record's primary
// identification, every secondary identification, and finally the generated
// universal id flagged preferred.
func BuildRegistrationIdentifiers(external *hie.Client, locationUUID, universalID string) []amrs.IdentifierPayload {
	identifiers := []amrs.IdentifierPayload{
		{
			IdentifierType: ClientRegistryNoTypeUUID,
			Identifier:     external.ID,
			Location:       locationUUID,
		},
		{
			IdentifierType: IdentifierTypeUUID(external.IdentificationType),
			Identifier:     external.IdentificationNumber,
			Location:       locationUUID,
		},
	}
	for _, id := range external.OtherIdentifications {
		identifiers = append(identifiers, amrs.IdentifierPayload{
			IdentifierType: IdentifierTypeUUID(id.IdentificationType),
			Identifier:     id.IdentificationNumber,
			Location:       locationUUID,
		})
	}
	identifiers = append(identifiers, amrs.IdentifierPayload{
		IdentifierType: UniversalIDTypeUUID,
		Identifier:     universalID,
		Location:       locationUUID,
		Preferred:      true,
	})
	return identifiers
}
