package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidateToken(t *testing.T) {
	a := NewAuth(nil, "test-secret")
	tok, err := a.IssueToken("ops")
	if err != nil {
		t.Fatal(err)
	}
	sub, err := a.ValidateToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if sub != "ops" {
		t.Errorf("expected subject ops, got %q", sub)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	a := NewAuth(nil, "test-secret")
	other := NewAuth(nil, "other-secret")
	foreign, _ := other.IssueToken("ops")

	sign := func(claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	exp := time.Now().Add(time.Hour).Unix()
	cases := map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"missing role": sign(jwt.MapClaims{"sub": "x", "iss": adminIssuer, "exp": exp}),
		"wrong issuer": sign(jwt.MapClaims{"sub": "x", "iss": "elsewhere", "role": adminRole, "exp": exp}),
		"no expiry":    sign(jwt.MapClaims{"sub": "x", "iss": adminIssuer, "role": adminRole}),
		"expired":      sign(jwt.MapClaims{"sub": "x", "iss": adminIssuer, "role": adminRole, "exp": time.Now().Add(-time.Hour).Unix()}),
	}
	for name, tok := range cases {
		if _, err := a.ValidateToken(tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestSecretPersistsInDatabase(t *testing.T) {
	db := openTestDB(t)
	first := NewAuth(db, "")
	tok, err := first.IssueToken("ops")
	if err != nil {
		t.Fatal(err)
	}
	second := NewAuth(db, "")
	if _, err := second.ValidateToken(tok); err != nil {
		t.Errorf("token should survive a restart: %v", err)
	}
}

func TestRequireAdmin(t *testing.T) {
	a := NewAuth(nil, "test-secret")
	h := a.RequireAdmin(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	tok, _ := a.IssueToken("ops")

	cases := []struct {
		header string
		want   int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer nope", http.StatusUnauthorized},
		{"Bearer " + tok, http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		h(rec, req)
		if rec.Code != c.want {
			t.Errorf("header %q: status %d, want %d", c.header, rec.Code, c.want)
		}
	}
}
