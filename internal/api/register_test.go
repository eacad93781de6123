package api

import (
	"net/http"
	"testing"
)

func TestRegisterNode(t *testing.T) {
	_, router, _ := newTestHandler(t)

	var node NodeResponse
	w := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		FQDN:            "web-1.prod.example.com",
		RegistrationKey: testRegistrationKey,
		Environment:     "prod",
		Role:            "web",
	}, &node)
	if w.Code != http.StatusOK {
		t.Fatalf("register = %d, want 200: %s", w.Code, w.Body.String())
	}
	if node.ID == "" || node.FQDN != "web-1.prod.example.com" {
		t.Errorf("unexpected node response: %+v", node)
	}

	// Re-registration returns the same node
	var again NodeResponse
	w = doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		FQDN:            "web-1.prod.example.com",
		RegistrationKey: testRegistrationKey,
	}, &again)
	if w.Code != http.StatusOK {
		t.Fatalf("re-register = %d, want 200", w.Code)
	}
	if again.ID != node.ID {
		t.Errorf("re-registration returned node %s, want %s", again.ID, node.ID)
	}
}

func TestRegisterNodeBadKey(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		FQDN:            "web-1.prod.example.com",
		RegistrationKey: "wrong-key",
	}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("register with bad key = %d, want 401", w.Code)
	}
}

func TestRegisterNodeValidation(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/register", "", RegisterRequest{
		RegistrationKey: testRegistrationKey,
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("register without fqdn = %d, want 400", w.Code)
	}
}
