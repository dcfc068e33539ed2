package reconcile

import (
	"time"

	"github.com/ampath/go-hie/internal/amrs"
	"github.com/ampath/go-hie/internal/hie"
)

// FieldPair is a field's value on each side of a comparison. Missing and
// null values are both rendered as the empty string so the two sides compare
// cleanly.
type FieldPair struct {
	Local    string `json:"local"`
	External string `json:"external"`
}

// Differs reports whether the two sides disagree.
func (p FieldPair) Differs() bool {
	return p.Local != p.External
}

// birthdateLayouts are the renderings the local store serves birthdates in.
var birthdateLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339,
	"2006-01-02",
}

// normalizeBirthdate reformats a local birthdate to YYYY-MM-DD when it
// parses; unparseable values pass through untouched.
func normalizeBirthdate(value string) string {
	for _, layout := range birthdateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return value
}

// externalGender renders a registry gender for comparison against the local
// single-letter coding. Anything other than Female maps to M.
func externalGender(gender string) string {
	if gender == "Female" {
		return "F"
	}
	return "M"
}

// FieldValue extracts the comparable pair for one field. Total over any
// field name: unknown fields and nil records yield empty pairs rather than
// errors, so callers can iterate arbitrary field lists safely.
func FieldValue(field string, external *hie.Client, local *amrs.Patient) FieldPair {
	var person *amrs.Person
	if local != nil {
		person = &local.Person
	}

	switch field {
	case FieldGivenName:
		return pair(personName(person).GivenName, clientField(external, func(c *hie.Client) string { return c.FirstName }))
	case FieldMiddleName:
		return pair(personName(person).MiddleName, clientField(external, func(c *hie.Client) string { return c.MiddleName }))
	case FieldFamilyName:
		return pair(personName(person).FamilyName, clientField(external, func(c *hie.Client) string { return c.LastName }))
	case FieldGender:
		var ext string
		if external != nil {
			ext = externalGender(external.Gender)
		}
		return pair(personField(person, func(p *amrs.Person) string { return p.Gender }), ext)
	case FieldBirthdate:
		var loc string
		if person != nil {
			loc = normalizeBirthdate(person.Birthdate)
		}
		return pair(loc, clientField(external, func(c *hie.Client) string { return c.DateOfBirth }))
	case FieldCountry:
		return pair(personAddress(person).Country, clientField(external, func(c *hie.Client) string { return c.Country }))
	case FieldCountyDistrict:
		return pair(personAddress(person).CountyDistrict, clientField(external, func(c *hie.Client) string { return c.County }))
	case FieldAddress2:
		return pair(personAddress(person).Address2, clientField(external, func(c *hie.Client) string { return c.SubCounty }))
	case FieldAddress7:
		return pair(personAddress(person).Address7, clientField(external, func(c *hie.Client) string { return c.Ward }))
	case FieldCityVillage:
		return pair(personAddress(person).CityVillage, clientField(external, func(c *hie.Client) string { return c.VillageEstate }))
	case FieldLongitude:
		return pair(personAddress(person).Longitude, clientField(external, func(c *hie.Client) string { return c.Longitude }))
	case FieldLatitude:
		return pair(personAddress(person).Latitude, clientField(external, func(c *hie.Client) string { return c.Latitude }))
	}

	if IsIdentifierField(field) {
		label := IdentifierFieldLabel(field)
		var loc string
		if person != nil {
			for _, id := range person.Identifiers {
				if id.IdentifierType.UUID == IdentifierTypeUUID(label) {
					loc = id.Identifier
					break
				}
			}
		}
		var ext string
		if external != nil {
			if field == FieldCr {
				// The registry number is the record id, not an
				// identification entry.
				ext = external.ID
			} else {
				ext = external.Identification(label)
			}
		}
		return pair(loc, ext)
	}

	if IsAttributeField(field) {
		var loc string
		if person != nil {
			loc = person.AttributeValue(AttributeTypeUUID(AttributeFieldLabel(field)))
		}
		var ext string
		if external != nil {
			switch field {
			case FieldKRAPin:
				ext = external.KRAPin
			case FieldCivilStatus:
				ext = external.CivilStatus
			case FieldEmail:
				ext = external.Email
			case FieldPhone:
				ext = external.Phone
			case FieldPlaceOfBirth:
				ext = external.PlaceOfBirth
			case FieldCitizenship:
				ext = external.Citizenship
			}
		}
		return pair(loc, ext)
	}

	return FieldPair{}
}

// Compare extracts every comparison field into an ordered row list.
func Compare(external *hie.Client, local *amrs.Patient) []ComparisonRow {
	rows := make([]ComparisonRow, 0, len(ComparisonFields))
	for _, field := range ComparisonFields {
		p := FieldValue(field, external, local)
		rows = append(rows, ComparisonRow{Field: field, Local: p.Local, External: p.External, Differs: p.Differs()})
	}
	return rows
}

// ComparisonRow is one field of a side-by-side record comparison.
type ComparisonRow struct {
	Field    string `json:"field"`
	Local    string `json:"local"`
	External string `json:"external"`
	Differs  bool   `json:"differs"`
}

func pair(local, external string) FieldPair {
	return FieldPair{Local: local, External: external}
}

func personName(p *amrs.Person) amrs.Name {
	if p == nil {
		return amrs.Name{}
	}
	return p.PreferredName
}

func personAddress(p *amrs.Person) amrs.Address {
	if p == nil {
		return amrs.Address{}
	}
	return p.PreferredAddress
}

func personField(p *amrs.Person, get func(*amrs.Person) string) string {
	if p == nil {
		return ""
	}
	return get(p)
}

func clientField(c *hie.Client, get func(*hie.Client) string) string {
	if c == nil {
		return ""
	}
	return get(c)
}
