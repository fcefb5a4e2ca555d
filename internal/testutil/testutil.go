// Package testutil provides common test helpers for Philview packages: a seeded directory and
// assertions over the JSON envelope every API handler writes.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/philview/philview/internal/models"
	"github.com/philview/philview/internal/store"
)

// TestingT is the subset of testing.TB the helpers need.
type TestingT interface {
	Helper()
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// NewSeededStore returns an in-memory store holding the demo property catalog.
func NewSeededStore(t TestingT) *store.InMemoryStore {
	t.Helper()
	st := store.NewInMemoryStore()
	if err := store.Seed(context.Background(), st); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}
	return st
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t TestingT, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes the response body and validates its status field.
func AssertJSONResponse(t TestingT, rr *httptest.ResponseRecorder, expectedStatus models.APIStatus) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
		return nil
	}
	status, ok := response["status"].(string)
	if !ok {
		t.Errorf("response missing or invalid 'status' field")
		return response
	}
	if status != string(expectedStatus) {
		t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
	}
	return response
}

// DecodeResult checks for an ok envelope and unmarshals its result into v. A nil v only checks.
func DecodeResult(t TestingT, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var envelope struct {
		Status  string          `json:"status"`
		Message string          `json:"message"`
		Result  json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode JSON response %q: %v", rr.Body.String(), err)
		return
	}
	if envelope.Status != string(models.APIStatusOK) {
		t.Fatalf("expected status 'ok', got '%s' (%s)", envelope.Status, envelope.Message)
		return
	}
	if v == nil {
		return
	}
	if err := json.Unmarshal(envelope.Result, v); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}

// CreateHTTPRequest builds a request whose body is body marshaled as JSON. A string body is sent as is.
func CreateHTTPRequest(t TestingT, method, url string, body interface{}) *http.Request {
	t.Helper()
	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		raw = MustMarshalJSON(t, body)
	}
	req := httptest.NewRequest(method, url, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertAppointmentCount checks how many appointments userID has ("" counts all).
func AssertAppointmentCount(t TestingT, d store.Directory, userID string, expected int, label string) {
	t.Helper()
	apts, err := d.ListAppointments(context.Background(), userID)
	if err != nil {
		t.Fatalf("%s: failed to list appointments: %v", label, err)
		return
	}
	if len(apts) != expected {
		t.Errorf("%s: expected %d appointments, got %d", label, expected, len(apts))
	}
}

// MustMarshalJSON marshals v and fails the test on error.
func MustMarshalJSON(t TestingT, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals data into target and fails the test on error.
func MustUnmarshalJSON(t TestingT, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
