// Package hie provides data structures for Health Information Exchange
// client-registry records.
package hie

// Identification is a secondary identification carried on a registry record.
type Identification struct {
	IdentificationType   string `json:"identification_type"`
	IdentificationNumber string `json:"identification_number"`
}

// Dependant is a related person nested inside a registry record. Results holds
// the matching sub-records; only the first entry is ever used and additional
// matches are intentionally ignored.
type Dependant struct {
	DateAdded    string   `json:"date_added,omitempty"`
	Relationship string   `json:"relationship"`
	Total        int      `json:"total"`
	Results      []Client `json:"result"`
}

// Primary returns the dependant's primary sub-record, or nil when the
// dependant carries no results and should be skipped.
func (d *Dependant) Primary() *Client {
	if d == nil || len(d.Results) == 0 {
		return nil
	}
	return &d.Results[0]
}

// AlternativeContact is a non-dependant contact on a registry record.
type AlternativeContact struct {
	ContactType  string `json:"contact_type"`
	ContactID    string `json:"contact_id"`
	ContactName  string `json:"contact_name"`
	Relationship string `json:"relationship"`
	Remarks      string `json:"remarks"`
}

// Client is a person record as returned by the client registry. Immutable once
// fetched; reconciliation never mutates it.
type Client struct {
	ID                   string               `json:"id"`
	FirstName            string               `json:"first_name"`
	MiddleName           string               `json:"middle_name"`
	LastName             string               `json:"last_name"`
	Gender               string               `json:"gender"`
	DateOfBirth          string               `json:"date_of_birth"`
	PlaceOfBirth         string               `json:"place_of_birth"`
	Citizenship          string               `json:"citizenship"`
	KRAPin               string               `json:"kra_pin"`
	CivilStatus          string               `json:"civil_status"`
	IdentificationType   string               `json:"identification_type"`
	IdentificationNumber string               `json:"identification_number"`
	OtherIdentifications []Identification     `json:"other_identifications"`
	Dependants           []Dependant          `json:"dependants"`
	IsAlive              int                  `json:"is_alive"`
	DeceasedDatetime     string               `json:"deceased_datetime"`
	Phone                string               `json:"phone"`
	Email                string               `json:"email"`
	Country              string               `json:"country"`
	County               string               `json:"county"`
	SubCounty            string               `json:"sub_county"`
	Ward                 string               `json:"ward"`
	VillageEstate        string               `json:"village_estate"`
	BuildingHouseNo      string               `json:"building_house_no"`
	Latitude             string               `json:"latitude"`
	Longitude            string               `json:"longitude"`
	PostalAddress        string               `json:"postal_address,omitempty"`
	AlternativeContacts  []AlternativeContact `json:"alternative_contacts,omitempty"`
}

// Identification returns the identification number carried for the given
// registry identification-type label, searching other_identifications first
// and falling back to the record's primary identification. Empty string when
// the record carries no identification of that type.
func (c *Client) Identification(typeLabel string) string {
	if c == nil {
		return ""
	}
	for _, id := range c.OtherIdentifications {
		if id.IdentificationType == typeLabel {
			return id.IdentificationNumber
		}
	}
	if c.IdentificationType == typeLabel {
		return c.IdentificationNumber
	}
	return ""
}

// SearchRequest is the body for a registry client search.
type SearchRequest struct {
	IdentificationNumber string `json:"identificationNumber"`
	IdentificationType   string `json:"identificationType"`
	LocationUUID         string `json:"locationUuid"`
}

// OTPRequest is the body for requesting a verification OTP.
type OTPRequest struct {
	IdentificationNumber string `json:"identificationNumber"`
	IdentificationType   string `json:"identificationType"`
	LocationUUID         string `json:"locationUuid"`
}

// OTPResponse is the registry's response to an OTP request.
type OTPResponse struct {
	Message     string `json:"message"`
	SessionID   string `json:"sessionId"`
	MaskedPhone string `json:"maskedPhone"`
}

// OTPValidation is the body for validating a received OTP.
type OTPValidation struct {
	SessionID    string `json:"sessionId"`
	OTP          string `json:"otp"`
	LocationUUID string `json:"locationUuid"`
}

// OTPValidationResponse is the registry's response to an OTP validation.
type OTPValidationResponse struct {
	Message string `json:"message"`
	IsValid bool   `json:"isValid,omitempty"`
}
