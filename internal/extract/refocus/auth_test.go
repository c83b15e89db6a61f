package refocus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthenticateReturnsTokenFromLoginResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Fatalf("expected POST /login, got %s", r.URL.Path)
		}
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode login request: %v", err)
		}
		if req.Username != "alice" || req.Password != "s3cret" {
			t.Fatalf("unexpected login request: %+v", req)
		}
		_ = json.NewEncoder(w).Encode(loginResponse{Token: "abc123"})
	}))
	defer srv.Close()

	a := Authenticator{}
	token, err := a.Authenticate(context.Background(), srv.Client(), srv.URL, "alice", []byte("s3cret"))
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if token != "abc123" {
		t.Fatalf("expected token abc123, got %q", token)
	}
}

func TestAuthenticateFailsOnNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	a := Authenticator{}
	if _, err := a.Authenticate(context.Background(), srv.Client(), srv.URL, "alice", []byte("x")); err == nil {
		t.Fatalf("expected an error on a non-200 login response")
	}
}

func TestAuthenticateFailsOnEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(loginResponse{})
	}))
	defer srv.Close()

	a := Authenticator{}
	if _, err := a.Authenticate(context.Background(), srv.Client(), srv.URL, "alice", []byte("x")); err == nil {
		t.Fatalf("expected an error when the login response carries an empty token")
	}
}

func TestApplySetsBearerHeader(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	Authenticator{}.Apply(req, "tok123")
	if got := req.Header.Get("Authorization"); got != "Bearer tok123" {
		t.Fatalf("expected Bearer tok123, got %q", got)
	}
}

func TestApplyIsNoopForEmptyToken(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	Authenticator{}.Apply(req, "")
	if got := req.Header.Get("Authorization"); got != "" {
		t.Fatalf("expected no Authorization header for an empty token, got %q", got)
	}
}
