package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantOK  bool
	}{
		{"valid bearer", "Bearer abc123", "abc123", true},
		{"case insensitive scheme", "bearer abc123", "abc123", true},
		{"missing header", "", "", false},
		{"wrong scheme", "Basic abc123", "", false},
		{"no token", "Bearer ", "", false},
		{"malformed", "abc123", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractBearer("Authorization", tt.value)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ExtractBearer(%q) = (%q, %v), want (%q, %v)", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDecode_OpaqueToken(t *testing.T) {
	tok := Decode("not-a-jwt")
	if tok.Raw != "not-a-jwt" {
		t.Errorf("Raw = %q, want %q", tok.Raw, "not-a-jwt")
	}
	if tok.Subject != "" {
		t.Errorf("Subject = %q, want empty for an opaque token", tok.Subject)
	}
}

func TestDecode_JWTClaims(t *testing.T) {
	claims := jwt.MapClaims{"sub": "user-123"}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned jwt: %v", err)
	}

	tok := Decode(raw)
	if tok.Subject != "user-123" {
		t.Errorf("Subject = %q, want %q", tok.Subject, "user-123")
	}
}

func TestMiddleware_AttachesToken(t *testing.T) {
	var gotOK bool
	var gotSubject string

	claims := jwt.MapClaims{"sub": "user-456"}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign unsigned jwt: %v", err)
	}

	handler := Middleware("Authorization")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := TokenFromContext(r.Context())
		gotOK = ok
		gotSubject = tok.Subject
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !gotOK {
		t.Fatal("expected token in context")
	}
	if gotSubject != "user-456" {
		t.Errorf("Subject = %q, want %q", gotSubject, "user-456")
	}
}

func TestMiddleware_NoTokenPassesThrough(t *testing.T) {
	called := false
	handler := Middleware("Authorization")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if _, ok := TokenFromContext(r.Context()); ok {
			t.Error("expected no token in context")
		}
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("handler was not invoked")
	}
}
