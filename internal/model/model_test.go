package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAdminPasswordHashNotInJSON(t *testing.T) {
	admin := Admin{
		ID:           1,
		Email:        "admin@example.com",
		PasswordHash: "$2a$10$somebcrypthash",
		Name:         "Admin User",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	b, err := json.Marshal(admin)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if _, ok := m["password_hash"]; ok {
		t.Error("password_hash should NOT appear in JSON output (json:\"-\" tag)")
	}

	// Verify other fields are present
	if _, ok := m["email"]; !ok {
		t.Error("email should be present in JSON output")
	}
	if _, ok := m["name"]; !ok {
		t.Error("name should be present in JSON output")
	}
}

func TestAdminLastLoginOmittedWhenNil(t *testing.T) {
	admin := Admin{ID: 2, Email: "a@b.com"}

	b, err := json.Marshal(admin)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if _, ok := m["last_login_at"]; ok {
		t.Error("last_login_at should be omitted when nil")
	}
}

func TestProductJSON(t *testing.T) {
	img := "/uploads/1700000000-abcd1234.png"
	p := Product{
		ID:          7,
		Name:        "Widget",
		Description: "A widget",
		Price:       9.99,
		Image:       &img,
		CreatedAt:   time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
		UpdatedAt:   time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC),
	}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if m["name"] != "Widget" {
		t.Errorf("name = %v, want %q", m["name"], "Widget")
	}
	if m["price"] != float64(9.99) {
		t.Errorf("price = %v, want 9.99", m["price"])
	}
	if m["image"] != img {
		t.Errorf("image = %v, want %q", m["image"], img)
	}
}

func TestProductImageNullWhenAbsent(t *testing.T) {
	p := Product{ID: 1, Name: "Widget", Description: "A widget", Price: 9.99}

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	// The image key must be present and explicitly null, not omitted:
	// storefront clients distinguish "no image" from a missing field.
	v, ok := m["image"]
	if !ok {
		t.Fatal("expected 'image' key in Product JSON")
	}
	if v != nil {
		t.Errorf("image = %v, want null", v)
	}
}

func TestErrorResponseJSON(t *testing.T) {
	er := ErrorResponse{
		Error: ErrorDetail{
			Code:    404,
			Message: "Product not found",
			Context: map[string]interface{}{
				"id": "42",
			},
		},
	}

	b, err := json.Marshal(er)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	errObj, ok := m["error"].(map[string]interface{})
	if !ok {
		t.Fatal("expected 'error' key to be an object")
	}
	if errObj["code"] != float64(404) {
		t.Errorf("error.code = %v, want 404", errObj["code"])
	}
	if errObj["message"] != "Product not found" {
		t.Errorf("error.message = %v, want %q", errObj["message"], "Product not found")
	}

	// Context should be omitted when nil
	er2 := ErrorResponse{Error: ErrorDetail{Code: 500, Message: "Internal error"}}
	b2, err := json.Marshal(er2)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var m2 map[string]interface{}
	if err := json.Unmarshal(b2, &m2); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	errObj2 := m2["error"].(map[string]interface{})
	if _, ok := errObj2["context"]; ok {
		t.Error("context should be omitted when nil")
	}
}
