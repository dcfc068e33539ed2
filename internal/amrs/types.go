// Package amrs provides data structures and the REST client for the local
// AMRS patient store.
package amrs

import (
	"encoding/json"
)

// Name is a person name record.
type Name struct {
	UUID       string `json:"uuid,omitempty"`
	Display    string `json:"display,omitempty"`
	GivenName  string `json:"givenName"`
	MiddleName string `json:"middleName"`
	FamilyName string `json:"familyName"`
}

// Address is a person address record. Address levels follow the national
// administrative hierarchy: countyDistrict holds the county, address2 the
// sub-county, address7 the ward and cityVillage the village or estate.
type Address struct {
	UUID           string `json:"uuid,omitempty"`
	Preferred      bool   `json:"preferred,omitempty"`
	Address1       string `json:"address1,omitempty"`
	Address2       string `json:"address2,omitempty"`
	Address3       string `json:"address3,omitempty"`
	Address4       string `json:"address4,omitempty"`
	Address5       string `json:"address5,omitempty"`
	Address6       string `json:"address6,omitempty"`
	Address7       string `json:"address7,omitempty"`
	CityVillage    string `json:"cityVillage,omitempty"`
	Country        string `json:"country,omitempty"`
	PostalCode     string `json:"postalCode,omitempty"`
	StateProvince  string `json:"stateProvince,omitempty"`
	CountyDistrict string `json:"countyDistrict,omitempty"`
	Latitude       string `json:"latitude,omitempty"`
	Longitude      string `json:"longitude,omitempty"`
}

// IdentifierType is a reference to a registered identifier type.
type IdentifierType struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
}

// Identifier is an assigned patient identifier.
type Identifier struct {
	UUID           string         `json:"uuid"`
	Display        string         `json:"display,omitempty"`
	Identifier     string         `json:"identifier"`
	IdentifierType IdentifierType `json:"identifierType"`
	Preferred      bool           `json:"preferred,omitempty"`
}

// AttributeType is a reference to a registered person attribute type.
type AttributeType struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
}

// AttributeValue decodes an attribute value that the REST service renders
// either as a plain string or as a coded concept object.
type AttributeValue struct {
	Text        string
	ConceptUUID string
}

func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Text = s
		return nil
	}
	var obj struct {
		UUID    string `json:"uuid"`
		Display string `json:"display"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	v.Text = obj.Display
	v.ConceptUUID = obj.UUID
	return nil
}

func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if v.ConceptUUID != "" {
		return json.Marshal(struct {
			UUID    string `json:"uuid"`
			Display string `json:"display,omitempty"`
		}{UUID: v.ConceptUUID, Display: v.Text})
	}
	return json.Marshal(v.Text)
}

// Attribute is a person attribute value.
type Attribute struct {
	UUID          string         `json:"uuid,omitempty"`
	Display       string         `json:"display,omitempty"`
	Value         AttributeValue `json:"value"`
	AttributeType AttributeType  `json:"attributeType"`
}

// Person is the demographic core of a patient record.
type Person struct {
	UUID               string      `json:"uuid"`
	Display            string      `json:"display,omitempty"`
	Gender             string      `json:"gender"`
	Age                int         `json:"age,omitempty"`
	Birthdate          string      `json:"birthdate"`
	BirthdateEstimated bool        `json:"birthdateEstimated"`
	Dead               bool        `json:"dead"`
	DeathDate          string      `json:"deathDate,omitempty"`
	PreferredName      Name        `json:"preferredName"`
	PreferredAddress   Address     `json:"preferredAddress"`
	Attributes         []Attribute `json:"attributes,omitempty"`
	Identifiers        []Identifier `json:"identifiers,omitempty"`
	Voided             bool        `json:"voided,omitempty"`
}

// Patient is a full patient record as served by the REST service.
type Patient struct {
	UUID        string       `json:"uuid"`
	Display     string       `json:"display,omitempty"`
	Identifiers []Identifier `json:"identifiers"`
	Person      Person       `json:"person"`
	Voided      bool         `json:"voided,omitempty"`
}

// FindIdentifier returns the identifier of the given type, or nil when none
// is assigned.
func FindIdentifier(ids []Identifier, typeUUID string) *Identifier {
	for i := range ids {
		if ids[i].IdentifierType.UUID == typeUUID {
			return &ids[i]
		}
	}
	return nil
}

// AttributeValue returns the person's attribute value for the given attribute
// type, or the empty string when the attribute is absent.
func (p *Person) AttributeValue(typeUUID string) string {
	for i := range p.Attributes {
		if p.Attributes[i].AttributeType.UUID == typeUUID {
			return p.Attributes[i].Value.Text
		}
	}
	return ""
}

// RelatedPerson is the person reference embedded in a relationship record.
type RelatedPerson struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
}

// RelationshipType carries the directional labels of a relationship type.
type RelationshipType struct {
	UUID    string `json:"uuid"`
	Display string `json:"display,omitempty"`
	AIsToB  string `json:"aIsToB,omitempty"`
	BIsToA  string `json:"bIsToA,omitempty"`
}

// Relationship is a raw relationship record between two persons.
type Relationship struct {
	UUID             string           `json:"uuid"`
	PersonA          RelatedPerson    `json:"personA"`
	PersonB          RelatedPerson    `json:"personB"`
	RelationshipType RelationshipType `json:"relationshipType"`
	StartDate        string           `json:"startDate,omitempty"`
}

// MappedRelationship is a relationship viewed from one person's side, with
// the direction label resolved for that person.
type MappedRelationship struct {
	UUID                 string
	Relative             string
	RelatedPersonUUID    string
	RelationshipType     string
	RelationshipTypeUUID string
	RelationshipTypeName string
}

// MapRelationships orients raw relationship records around the given person.
// When the person is side A the related person is side B and the direction
// label is bIsToA, and the reverse otherwise.
func MapRelationships(personUUID string, relationships []Relationship) []MappedRelationship {
	mapped := make([]MappedRelationship, 0, len(relationships))
	for _, rel := range relationships {
		m := MappedRelationship{
			UUID:                 rel.UUID,
			RelationshipTypeUUID: rel.RelationshipType.UUID,
			RelationshipTypeName: rel.RelationshipType.Display,
		}
		if rel.PersonA.UUID == personUUID {
			m.Relative = rel.PersonB.Display
			m.RelatedPersonUUID = rel.PersonB.UUID
			m.RelationshipType = rel.RelationshipType.BIsToA
		} else {
			m.Relative = rel.PersonA.Display
			m.RelatedPersonUUID = rel.PersonA.UUID
			m.RelationshipType = rel.RelationshipType.AIsToB
		}
		mapped = append(mapped, m)
	}
	return mapped
}

// IdentifierPayload is the write shape for assigning or updating an
// identifier on a patient or person.
type IdentifierPayload struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
	Preferred      bool   `json:"preferred,omitempty"`
	Location       string `json:"location,omitempty"`
}

// RelationshipPayload is the write shape for creating a relationship.
type RelationshipPayload struct {
	PersonA          string `json:"personA"`
	RelationshipType string `json:"relationshipType"`
	PersonB          string `json:"personB"`
	StartDate        string `json:"startDate"`
}

// ListResponse wraps paged REST list results.
type ListResponse[T any] struct {
	Results []T `json:"results"`
}
