package hie

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/client/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		var req SearchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.IdentificationNumber != "12345678" {
			t.Errorf("identificationNumber = %s", req.IdentificationNumber)
		}
		json.NewEncoder(w).Encode([]Client{
			{ID: "CR-001", FirstName: "Wanjiku", LastName: "Kamau"},
		})
	}))
	defer server.Close()

	registry := NewRegistry(RegistryConfig{BaseURL: server.URL}, nil, nil)
	results, err := registry.Search(context.Background(), SearchRequest{
		IdentificationNumber: "12345678",
		IdentificationType:   "National ID",
	})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].ID != "CR-001" {
		t.Errorf("results = %+v", results)
	}
}

func TestSearchNonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such client", http.StatusNotFound)
	}))
	defer server.Close()

	registry := NewRegistry(RegistryConfig{BaseURL: server.URL}, nil, nil)
	_, err := registry.Search(context.Background(), SearchRequest{IdentificationNumber: "x"})

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("want RequestError, got %v", err)
	}
	if reqErr.Status != http.StatusNotFound {
		t.Errorf("status = %d", reqErr.Status)
	}
}

func TestSearchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	registry := NewRegistry(RegistryConfig{BaseURL: server.URL, Timeout: 20 * time.Millisecond}, nil, nil)
	_, err := registry.Search(context.Background(), SearchRequest{IdentificationNumber: "x"})

	var timeout *TimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("want TimeoutError, got %v", err)
	}
}

func TestRequestOTP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/client/send-custom-otp" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(OTPResponse{Message: "sent", SessionID: "sess-1", MaskedPhone: "+2547***01"})
	}))
	defer server.Close()

	registry := NewRegistry(RegistryConfig{BaseURL: server.URL}, nil, nil)
	resp, err := registry.RequestOTP(context.Background(), OTPRequest{})
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if resp.SessionID != "sess-1" || resp.MaskedPhone != "+2547***01" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIdentification(t *testing.T) {
	client := &Client{
		IdentificationType:   "National ID",
		IdentificationNumber: "primary-123",
		OtherIdentifications: []Identification{
			{IdentificationType: "SHA Number", IdentificationNumber: "SHA-1"},
			{IdentificationType: "National ID", IdentificationNumber: "other-456"},
		},
	}

	// Secondary identifications win over the primary for the same type.
	if got := client.Identification("National ID"); got != "other-456" {
		t.Errorf("National ID = %q", got)
	}
	if got := client.Identification("SHA Number"); got != "SHA-1" {
		t.Errorf("SHA Number = %q", got)
	}
	if got := client.Identification("Passport"); got != "" {
		t.Errorf("Passport = %q", got)
	}

	var nilClient *Client
	if got := nilClient.Identification("National ID"); got != "" {
		t.Errorf("nil client = %q", got)
	}
}

func TestDependantPrimary(t *testing.T) {
	dep := &Dependant{Relationship: "Child"}
	if dep.Primary() != nil {
		t.Error("dependant without results should have no primary")
	}

	dep.Results = []Client{{ID: "CR-1"}, {ID: "CR-2"}}
	primary := dep.Primary()
	if primary == nil || primary.ID != "CR-1" {
		t.Errorf("primary = %+v, want the first result", primary)
	}

	var nilDep *Dependant
	if nilDep.Primary() != nil {
		t.Error("nil dependant should have no primary")
	}
}
