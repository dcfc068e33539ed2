package amrs

import (
	"encoding/json"
	"testing"
)

func TestAttributeValueUnmarshal(t *testing.T) {
	var attr Attribute
	if err := json.Unmarshal([]byte(`{"value":"+254700000001","attributeType":{"uuid":"type-1"}}`), &attr); err != nil {
		t.Fatalf("string value: %v", err)
	}
	if attr.Value.Text != "+254700000001" || attr.Value.ConceptUUID != "" {
		t.Errorf("value = %+v", attr.Value)
	}

	if err := json.Unmarshal([]byte(`{"value":{"uuid":"concept-1","display":"Married"},"attributeType":{"uuid":"type-2"}}`), &attr); err != nil {
		t.Fatalf("coded value: %v", err)
	}
	if attr.Value.Text != "Married" || attr.Value.ConceptUUID != "concept-1" {
		t.Errorf("coded value = %+v", attr.Value)
	}
}

func TestAttributeValueMarshal(t *testing.T) {
	data, err := json.Marshal(AttributeValue{Text: "plain"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"plain"` {
		t.Errorf("plain value = %s", data)
	}

	data, err = json.Marshal(AttributeValue{Text: "Married", ConceptUUID: "concept-1"})
	if err != nil {
		t.Fatalf("marshal coded: %v", err)
	}
	var obj map[string]string
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("coded value should marshal as an object: %s", data)
	}
	if obj["uuid"] != "concept-1" {
		t.Errorf("coded value = %s", data)
	}
}

func TestPersonAttributeValue(t *testing.T) {
	person := Person{
		Attributes: []Attribute{
			{Value: AttributeValue{Text: "first"}, AttributeType: AttributeType{UUID: "type-1"}},
			{Value: AttributeValue{Text: "second"}, AttributeType: AttributeType{UUID: "type-2"}},
		},
	}
	if got := person.AttributeValue("type-2"); got != "second" {
		t.Errorf("value = %q", got)
	}
	if got := person.AttributeValue("missing"); got != "" {
		t.Errorf("missing type = %q", got)
	}
}

func TestFindIdentifier(t *testing.T) {
	ids := []Identifier{
		{UUID: "slot-1", Identifier: "111", IdentifierType: IdentifierType{UUID: "type-1"}},
		{UUID: "slot-2", Identifier: "222", IdentifierType: IdentifierType{UUID: "type-2"}},
	}
	id := FindIdentifier(ids, "type-2")
	if id == nil || id.UUID != "slot-2" {
		t.Errorf("identifier = %+v", id)
	}
	if FindIdentifier(ids, "type-3") != nil {
		t.Error("unknown type should yield nil")
	}
}

func TestMapRelationshipsOrientsAroundPerson(t *testing.T) {
	rels := []Relationship{
		{
			UUID:    "rel-1",
			PersonA: RelatedPerson{UUID: "p-1", Display: "Primary"},
			PersonB: RelatedPerson{UUID: "p-2", Display: "Dependant"},
			RelationshipType: RelationshipType{
				UUID: "type-1", Display: "Parent/Child", AIsToB: "Parent", BIsToA: "Child",
			},
		},
		{
			UUID:    "rel-2",
			PersonA: RelatedPerson{UUID: "p-3", Display: "Spouse"},
			PersonB: RelatedPerson{UUID: "p-1", Display: "Primary"},
			RelationshipType: RelationshipType{
				UUID: "type-2", Display: "Spouse/Spouse", AIsToB: "Spouse", BIsToA: "Spouse",
			},
		},
	}

	mapped := MapRelationships("p-1", rels)
	if len(mapped) != 2 {
		t.Fatalf("mapped = %+v", mapped)
	}
	if mapped[0].RelatedPersonUUID != "p-2" || mapped[0].RelationshipType != "Child" {
		t.Errorf("side A view = %+v", mapped[0])
	}
	if mapped[1].RelatedPersonUUID != "p-3" || mapped[1].RelationshipType != "Spouse" {
		t.Errorf("side B view = %+v", mapped[1])
	}
}
